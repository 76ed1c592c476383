package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryStore keeps object keys in memory. Presigned URLs point at a
// memory:// scheme and are only useful for tests and local runs.
type MemoryStore struct {
	bucket string

	mu      sync.Mutex
	objects map[string]string
	refuse  map[string]DeleteError
	callErr error
}

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		objects: make(map[string]string),
		refuse:  make(map[string]DeleteError),
	}
}

func (m *MemoryStore) Bucket() string { return m.bucket }

// Put records an object as present.
func (m *MemoryStore) Put(key, contentType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = contentType
}

// Has reports whether key is present.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Refuse makes future deletes of key fail with code.
func (m *MemoryStore) Refuse(key, code, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refuse[key] = DeleteError{Key: key, Code: code, Message: msg}
}

// FailCalls makes every DeleteObjects call fail with err until reset with nil.
func (m *MemoryStore) FailCalls(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callErr = err
}

func (m *MemoryStore) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return m.url(key, "PUT", ttl), nil
}

func (m *MemoryStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return m.url(key, "GET", ttl), nil
}

func (m *MemoryStore) url(key, method string, ttl time.Duration) string {
	q := url.Values{}
	q.Set("method", method)
	q.Set("expires", fmt.Sprintf("%d", int(ttl.Seconds())))
	u := url.URL{Scheme: "memory", Host: m.bucket, Path: "/" + key, RawQuery: q.Encode()}
	return u.String()
}

func (m *MemoryStore) DeleteObjects(ctx context.Context, keys []string) ([]DeleteError, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.callErr != nil {
		return nil, m.callErr
	}

	var failures []DeleteError
	for _, k := range keys {
		if f, ok := m.refuse[k]; ok {
			failures = append(failures, f)
			continue
		}
		delete(m.objects, k)
	}
	return failures, nil
}
