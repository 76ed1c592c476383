// Package objectstore wraps the blob stores that hold entry attachments.
// Every backend presigns uploads and downloads and bulk-deletes keys,
// reporting per-key failures separately from call failures.
package objectstore

import (
	"context"
	"fmt"
	"time"
)

// DeleteError describes one key the store refused to delete.
type DeleteError struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	Message string `json:"msg"`
}

func (e DeleteError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Key, e.Message, e.Code)
}

// Store is the attachment blob store.
type Store interface {
	// Bucket names the container all keys live in.
	Bucket() string
	// PresignPut returns a URL that accepts a single PUT of contentType at key.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	// PresignGet returns a URL that serves key.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// DeleteObjects removes keys. Absent keys count as deleted. A non-nil
	// error means the call itself failed and nothing can be assumed about
	// the keys; otherwise the slice lists the keys that were not removed.
	DeleteObjects(ctx context.Context, keys []string) ([]DeleteError, error)
}

// maxDeleteBatch is the S3 DeleteObjects per-request key limit.
const maxDeleteBatch = 1000

func chunk(keys []string, size int) [][]string {
	var out [][]string
	for len(keys) > size {
		out = append(out, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		out = append(out, keys)
	}
	return out
}
