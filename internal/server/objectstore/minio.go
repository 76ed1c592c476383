package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioAPI is the subset of *minio.Client the store needs.
type minioAPI interface {
	PresignHeader(ctx context.Context, method, bucketName, objectName string, expires time.Duration, reqParams url.Values, extraHeaders http.Header) (*url.URL, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
}

var newMinioClient = func(endpoint string, opts *minio.Options) (minioAPI, error) {
	c, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MinioStore uses the native MinIO client.
type MinioStore struct {
	bucket string
	client minioAPI
}

// NewMinioStore accepts the same options as NewS3Store. BaseEndpoint may be
// a bare host:port or a URL; an https scheme turns TLS on.
func NewMinioStore(o S3Options) (*MinioStore, error) {
	host, secure, err := splitEndpoint(o.BaseEndpoint)
	if err != nil {
		return nil, err
	}

	client, err := newMinioClient(host, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: secure,
		Region: o.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStore{bucket: o.Bucket, client: client}, nil
}

func splitEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return "", false, fmt.Errorf("minio endpoint is empty")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), false, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse minio endpoint: %w", err)
	}
	return u.Host, u.Scheme == "https", nil
}

func (s *MinioStore) Bucket() string { return s.bucket }

func (s *MinioStore) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	h := http.Header{}
	h.Set("Content-Type", contentType)

	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.bucket, key, ttl, nil, h)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *MinioStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *MinioStore) DeleteObjects(ctx context.Context, keys []string) ([]DeleteError, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, k := range keys {
			select {
			case objectsCh <- minio.ObjectInfo{Key: k}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var failures []DeleteError
	for e := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		resp := minio.ToErrorResponse(e.Err)
		code := resp.Code
		if code == "" {
			code = "InternalError"
		}
		msg := resp.Message
		if msg == "" && e.Err != nil {
			msg = e.Err.Error()
		}
		failures = append(failures, DeleteError{Key: e.ObjectName, Code: code, Message: msg})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("remove objects: %w", err)
	}
	return failures, nil
}
