package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a minimal stand-in for the diary API plus an object store that
// accepts presigned PUTs under /bucket/.
type fakeAPI struct {
	mu       sync.Mutex
	srv      *httptest.Server
	objects  map[string][]byte
	auth     []string
	created  []NewEntry
	failPUT  string
	failSign string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{objects: map[string][]byte{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/upload-url", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var in struct {
			Filename    string `json:"filename"`
			ContentType string `json:"contentType"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Filename == f.failSign {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Invalid request","error":"validation error"}`))
			return
		}
		key := "u1/2025-06-01-" + in.Filename
		_ = json.NewEncoder(w).Encode(PresignedURL{
			URL:     f.srv.URL + "/bucket/" + key,
			Method:  http.MethodPut,
			Key:     key,
			Bucket:  "bucket",
			Headers: map[string]string{"Content-Type": in.ContentType},
		})
	})
	mux.HandleFunc("PUT /bucket/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		key := strings.TrimPrefix(r.URL.Path, "/bucket/")
		if f.failPUT != "" && strings.HasSuffix(key, f.failPUT) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("SignatureDoesNotMatch"))
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.objects[key] = body
		f.mu.Unlock()
	})
	mux.HandleFunc("POST /api/entry", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var in NewEntry
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.mu.Lock()
		f.created = append(f.created, in)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "Entry created",
			"entry":   Entry{EntryID: "e1", UserID: "u1", Date: in.Date, Text: in.Text, Images: in.Images, Videos: in.Videos},
		})
	})
	mux.HandleFunc("GET /api/entries", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "5", q.Get("size"))
		assert.Equal(t, "2025-01-01", q.Get("after"))
		assert.Equal(t, "", q.Get("before"))
		_ = json.NewEncoder(w).Encode(Page{Entries: []Entry{{EntryID: "e1"}}, Page: 2, Size: 5, Total: 6})
	})
	mux.HandleFunc("GET /api/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.PathValue("id") != "e1" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Forbidden, begone!"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"entry": Entry{EntryID: "e1"}})
	})
	mux.HandleFunc("GET /api/entry/{date}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_ = json.NewEncoder(w).Encode(map[string]any{"entries": []Entry{{EntryID: "e1", Date: r.PathValue("date")}}})
	})
	mux.HandleFunc("DELETE /api/entry/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.PathValue("id") == "broken" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"Failed to delete attachments","errors":[{"key":"u1/a.png","code":"AccessDenied","msg":"nope"}]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "Entry deleted", "entryId": r.PathValue("id"), "deletedObjects": 2})
	})
	mux.HandleFunc("POST /api/access-url", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		_ = json.NewEncoder(w).Encode(PresignedURL{URL: f.srv.URL + "/bucket/x", Method: http.MethodGet, Key: "u1/x", ExpiresIn: 500})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Method+" "+r.URL.Path+" "+r.Header.Get("Authorization"))
}

func newTestClient(f *fakeAPI) *Client {
	return New(context.Background(), f.srv.URL+"/", "tok", 5*time.Second)
}

func TestClient_BearerOnlyOnAPICalls(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(f)

	_, err := c.UploadAll(context.Background(), []Attachment{{Name: "a.png", ContentType: "image/png", Data: []byte("x")}}, 0)
	require.NoError(t, err)

	assert.Contains(t, f.auth, "POST /api/upload-url Bearer tok")
	assert.Contains(t, f.auth, "PUT /bucket/u1/2025-06-01-a.png ")
}

func TestUploadAll_PreservesOrder(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(f)

	files := []Attachment{
		{Name: "c.png", ContentType: "image/png", Data: []byte("c")},
		{Name: "a.mp4", ContentType: "video/mp4", Data: []byte("a")},
		{Name: "b.png", ContentType: "image/png", Data: []byte("b")},
	}
	keys, err := c.UploadAll(context.Background(), files, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1/2025-06-01-c.png", "u1/2025-06-01-a.mp4", "u1/2025-06-01-b.png"}, keys)
	assert.Equal(t, []byte("a"), f.objects["u1/2025-06-01-a.mp4"])
}

func TestPublish_SplitsImagesAndVideos(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(f)

	e, err := c.Publish(context.Background(), "2025-06-01", "hello", []Attachment{
		{Name: "a.png", ContentType: "image/png"},
		{Name: "b.mp4", ContentType: "video/mp4"},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, "e1", e.EntryID)

	require.Len(t, f.created, 1)
	assert.Equal(t, []string{"u1/2025-06-01-a.png"}, f.created[0].Images)
	assert.Equal(t, []string{"u1/2025-06-01-b.mp4"}, f.created[0].Videos)
}

func TestPublish_NoAttachmentsSendsEmptyLists(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(f)

	_, err := c.Publish(context.Background(), "2025-06-01", "plain", nil, 0)
	require.NoError(t, err)
	require.Len(t, f.created, 1)
	assert.NotNil(t, f.created[0].Images)
	assert.NotNil(t, f.created[0].Videos)
}

func TestPublish_UploadFailureSkipsCreate(t *testing.T) {
	f := newFakeAPI(t)
	f.failPUT = "bad.png"
	c := newTestClient(f)

	_, err := c.Publish(context.Background(), "2025-06-01", "x", []Attachment{
		{Name: "ok.png", ContentType: "image/png"},
		{Name: "bad.png", ContentType: "image/png"},
	}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.png")
	assert.Empty(t, f.created)
}

func TestPublish_SignFailureSkipsCreate(t *testing.T) {
	f := newFakeAPI(t)
	f.failSign = "x.txt"
	c := newTestClient(f)

	_, err := c.Publish(context.Background(), "2025-06-01", "x", []Attachment{{Name: "x.txt", ContentType: "text/plain"}}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadRequest))
	assert.Empty(t, f.created)
}

func TestClient_ReadCalls(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(f)
	ctx := context.Background()

	p, err := c.ListEntries(ctx, ListOptions{Page: 2, Size: 5, After: "2025-01-01"})
	require.NoError(t, err)
	assert.Equal(t, 6, p.Total)
	assert.Len(t, p.Entries, 1)

	e, err := c.GetEntry(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", e.EntryID)

	_, err = c.GetEntry(ctx, "other")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Contains(t, err.Error(), "Forbidden, begone!")

	list, err := c.EntriesByDate(ctx, "2025-06-01")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2025-06-01", list[0].Date)

	u, err := c.AccessURL(ctx, "u1/x")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, u.Method)
	assert.Equal(t, 500, u.ExpiresIn)
}

func TestClient_DeleteEntry(t *testing.T) {
	f := newFakeAPI(t)
	c := newTestClient(f)

	res, err := c.DeleteEntry(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, &DeleteResult{EntryID: "e1", DeletedObjects: 2}, res)

	_, err = c.DeleteEntry(context.Background(), "broken")
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.Len(t, apiErr.Errors, 1)
	assert.Equal(t, "AccessDenied", apiErr.Errors[0].Code)
}

func TestDecodeError_PlainBody(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusNotFound)
	_, _ = rec.WriteString("404 page not found")

	err := decodeError(rec.Result())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "404 page not found")
}

func TestUploadAll_RespectsLimit(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
			return
		}
		var in struct {
			Filename string `json:"filename"`
		}
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(PresignedURL{URL: srv.URL + "/put/" + in.Filename, Key: in.Filename})
	}))
	defer srv.Close()

	c := New(context.Background(), srv.URL, "tok", 5*time.Second)
	files := make([]Attachment, 6)
	for i := range files {
		files[i] = Attachment{Name: string(rune('a' + i)), ContentType: "image/png"}
	}

	keys, err := c.UploadAll(context.Background(), files, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 2)

	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	assert.Equal(t, keys, sorted)
}
