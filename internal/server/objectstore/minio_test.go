package objectstore

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMinio struct {
	mock.Mock
}

func (m *mockMinio) PresignHeader(ctx context.Context, method, bucketName, objectName string, expires time.Duration, reqParams url.Values, extraHeaders http.Header) (*url.URL, error) {
	args := m.Called(method, bucketName, objectName, expires, extraHeaders.Get("Content-Type"))
	u, _ := args.Get(0).(*url.URL)
	return u, args.Error(1)
}

func (m *mockMinio) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	args := m.Called(bucketName, objectName, expires)
	u, _ := args.Get(0).(*url.URL)
	return u, args.Error(1)
}

func (m *mockMinio) RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError {
	var keys []string
	for o := range objectsCh {
		keys = append(keys, o.Key)
	}
	args := m.Called(bucketName, keys)

	out := make(chan minio.RemoveObjectError, len(keys))
	if errs, ok := args.Get(0).([]minio.RemoveObjectError); ok {
		for _, e := range errs {
			out <- e
		}
	}
	close(out)
	return out
}

func TestSplitEndpoint(t *testing.T) {
	host, secure, err := splitEndpoint("http://127.0.0.1:9000/")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", host)
	assert.False(t, secure)

	host, secure, err = splitEndpoint("https://s3.example.com")
	require.NoError(t, err)
	assert.Equal(t, "s3.example.com", host)
	assert.True(t, secure)

	host, _, err = splitEndpoint("minio:9000")
	require.NoError(t, err)
	assert.Equal(t, "minio:9000", host)

	_, _, err = splitEndpoint("")
	require.Error(t, err)
}

func TestNewMinioStore_UsesClientFactory(t *testing.T) {
	orig := newMinioClient
	t.Cleanup(func() { newMinioClient = orig })

	var gotEndpoint string
	var gotOpts *minio.Options
	newMinioClient = func(endpoint string, opts *minio.Options) (minioAPI, error) {
		gotEndpoint, gotOpts = endpoint, opts
		return &mockMinio{}, nil
	}

	st, err := NewMinioStore(S3Options{Bucket: "b", Region: "us-east-1", AccessKey: "a", SecretKey: "s", BaseEndpoint: "https://minio:9000"})
	require.NoError(t, err)
	assert.Equal(t, "b", st.Bucket())
	assert.Equal(t, "minio:9000", gotEndpoint)
	assert.True(t, gotOpts.Secure)
	assert.Equal(t, "us-east-1", gotOpts.Region)
}

func TestNewMinioStore_FactoryError(t *testing.T) {
	orig := newMinioClient
	t.Cleanup(func() { newMinioClient = orig })
	newMinioClient = func(endpoint string, opts *minio.Options) (minioAPI, error) {
		return nil, errors.New("bad endpoint")
	}

	_, err := NewMinioStore(S3Options{BaseEndpoint: "minio:9000"})
	require.Error(t, err)
}

func TestMinioStore_Presign(t *testing.T) {
	m := &mockMinio{}
	putURL, _ := url.Parse("http://minio/b/u1/a.png?sig=1")
	getURL, _ := url.Parse("http://minio/b/u1/a.png?sig=2")
	m.On("PresignHeader", http.MethodPut, "b", "u1/a.png", 300*time.Second, "image/png").Return(putURL, nil)
	m.On("PresignedGetObject", "b", "u1/a.png", 500*time.Second).Return(getURL, nil)

	st := &MinioStore{bucket: "b", client: m}

	u, err := st.PresignPut(context.Background(), "u1/a.png", "image/png", 300*time.Second)
	require.NoError(t, err)
	assert.Equal(t, putURL.String(), u)

	u, err = st.PresignGet(context.Background(), "u1/a.png", 500*time.Second)
	require.NoError(t, err)
	assert.Equal(t, getURL.String(), u)

	m.AssertExpectations(t)
}

func TestMinioStore_PresignError(t *testing.T) {
	m := &mockMinio{}
	m.On("PresignedGetObject", "b", "k", time.Minute).Return(nil, errors.New("boom"))

	st := &MinioStore{bucket: "b", client: m}
	_, err := st.PresignGet(context.Background(), "k", time.Minute)
	require.EqualError(t, err, "boom")
}

func TestMinioStore_DeleteObjects(t *testing.T) {
	m := &mockMinio{}
	m.On("RemoveObjects", "b", []string{"u1/a", "u1/b"}).Return([]minio.RemoveObjectError{
		{ObjectName: "u1/b", Err: minio.ErrorResponse{Code: "AccessDenied", Message: "denied"}},
	})

	st := &MinioStore{bucket: "b", client: m}
	failures, err := st.DeleteObjects(context.Background(), []string{"u1/a", "u1/b"})
	require.NoError(t, err)
	assert.Equal(t, []DeleteError{{Key: "u1/b", Code: "AccessDenied", Message: "denied"}}, failures)
	m.AssertExpectations(t)
}

func TestMinioStore_DeleteObjectsEmptySkipsCall(t *testing.T) {
	m := &mockMinio{}
	st := &MinioStore{bucket: "b", client: m}

	failures, err := st.DeleteObjects(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, failures)
	m.AssertNotCalled(t, "RemoveObjects", mock.Anything, mock.Anything)
}
