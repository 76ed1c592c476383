// Package api is the HTTP client for the diary API. API calls carry the
// bearer token; uploads to presigned URLs go out on a separate plain client,
// since an extra Authorization header breaks the URL signature.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

// APIError is a non-2xx answer from the diary API.
type APIError struct {
	Status  int
	Message string
	Detail  string
	Errors  []DeleteFailure
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest
	}
	return false
}

type DeleteFailure struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	Message string `json:"msg"`
}

type Entry struct {
	EntryID string   `json:"entryId"`
	UserID  string   `json:"userId"`
	Date    string   `json:"date"`
	Text    string   `json:"text"`
	Images  []string `json:"images"`
	Videos  []string `json:"videos"`
}

type NewEntry struct {
	Date   string   `json:"date"`
	Text   string   `json:"text"`
	Images []string `json:"images"`
	Videos []string `json:"videos"`
}

type Page struct {
	Entries []Entry `json:"entries"`
	Page    int     `json:"page"`
	Size    int     `json:"size"`
	Total   int     `json:"total"`
}

type ListOptions struct {
	Page   int
	Size   int
	After  string
	Before string
}

type PresignedURL struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Key       string            `json:"key"`
	Bucket    string            `json:"bucket"`
	ExpiresIn int               `json:"expiresIn"`
	Headers   map[string]string `json:"headers,omitempty"`
}

type DeleteResult struct {
	EntryID        string `json:"entryId"`
	DeletedObjects int    `json:"deletedObjects"`
}

type Client struct {
	baseURL string
	api     *http.Client
	upload  *http.Client
}

// New returns a client for the API at baseURL, authenticating with token.
func New(ctx context.Context, baseURL, token string, timeout time.Duration) *Client {
	api := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	api.Timeout = timeout

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		api:     api,
		upload:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateEntry(ctx context.Context, in NewEntry) (*Entry, error) {
	var out struct {
		Entry Entry `json:"entry"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/entry", in, &out); err != nil {
		return nil, err
	}
	return &out.Entry, nil
}

func (c *Client) GetEntry(ctx context.Context, id string) (*Entry, error) {
	var out struct {
		Entry Entry `json:"entry"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/entries/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Entry, nil
}

func (c *Client) ListEntries(ctx context.Context, o ListOptions) (*Page, error) {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", fmt.Sprint(o.Page))
	}
	if o.Size > 0 {
		q.Set("size", fmt.Sprint(o.Size))
	}
	if o.After != "" {
		q.Set("after", o.After)
	}
	if o.Before != "" {
		q.Set("before", o.Before)
	}

	path := "/api/entries"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out Page
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EntriesByDate(ctx context.Context, date string) ([]Entry, error) {
	var out struct {
		Entries []Entry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/entry/"+url.PathEscape(date), nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *Client) DeleteEntry(ctx context.Context, id string) (*DeleteResult, error) {
	var out DeleteResult
	if err := c.do(ctx, http.MethodDelete, "/api/entry/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UploadURL(ctx context.Context, filename, contentType string) (*PresignedURL, error) {
	in := map[string]string{"filename": filename, "contentType": contentType}
	var out PresignedURL
	if err := c.do(ctx, http.MethodPost, "/api/upload-url", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AccessURL(ctx context.Context, key string) (*PresignedURL, error) {
	in := map[string]string{"key": key}
	var out PresignedURL
	if err := c.do(ctx, http.MethodPost, "/api/access-url", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var body struct {
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Errors  []DeleteFailure `json:"errors"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil {
		body.Message = strings.TrimSpace(string(data))
	}
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Message, Detail: body.Error, Errors: body.Errors}
}
