package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
	"github.com/dmitrijs2005/diarykeeper/internal/logging"
	"github.com/dmitrijs2005/diarykeeper/internal/server/attachments"
	"github.com/dmitrijs2005/diarykeeper/internal/server/objectstore"
)

// PresignedURL is a short-lived grant for one object-store operation.
type PresignedURL struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Key       string            `json:"key"`
	Bucket    string            `json:"bucket"`
	ExpiresIn int               `json:"expiresIn"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// AttachmentService is the only place attachment keys are minted or read
// access is granted.
type AttachmentService struct {
	store     objectstore.Store
	uploadTTL time.Duration
	accessTTL time.Duration
	log       logging.Logger
	now       func() time.Time
}

func NewAttachmentService(store objectstore.Store, uploadTTL, accessTTL time.Duration, log logging.Logger) *AttachmentService {
	return &AttachmentService{
		store:     store,
		uploadTTL: uploadTTL,
		accessTTL: accessTTL,
		log:       log.With("module", "attachments"),
		now:       time.Now,
	}
}

var allowedMediaPrefixes = []string{"image/", "video/"}

func isMedia(contentType string) bool {
	for _, p := range allowedMediaPrefixes {
		if strings.HasPrefix(contentType, p) {
			return true
		}
	}
	return false
}

// IssueUploadURL mints "<userID>/<today>-<sanitized filename>" and presigns
// a PUT of contentType to it.
func (s *AttachmentService) IssueUploadURL(ctx context.Context, userID, filename, contentType string) (*PresignedURL, error) {
	filename, contentType = strings.TrimSpace(filename), strings.TrimSpace(contentType)
	if filename == "" || contentType == "" {
		return nil, fmt.Errorf("%w: filename and contentType are required", common.ErrValidation)
	}
	if !isMedia(contentType) {
		return nil, fmt.Errorf("%w: only image/* or video/* content types are allowed", common.ErrValidation)
	}

	key, err := attachments.UploadKey(userID, filename, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	u, err := s.store.PresignPut(ctx, key.String(), contentType, s.uploadTTL)
	if err != nil {
		s.log.Error(ctx, "presign put failed", "key", key.String(), "error", err)
		return nil, upstream("presign put", err)
	}

	s.log.Info(ctx, "upload url issued", "bucket", s.store.Bucket(), "key", key.String(), "content_type", contentType)
	return &PresignedURL{
		URL:       u,
		Method:    "PUT",
		Key:       key.String(),
		Bucket:    s.store.Bucket(),
		ExpiresIn: int(s.uploadTTL.Seconds()),
		Headers:   map[string]string{"Content-Type": contentType},
	}, nil
}

// IssueAccessURL presigns a GET for a key the caller owns. Keys without an
// owner segment are refused like foreign ones.
func (s *AttachmentService) IssueAccessURL(ctx context.Context, userID, rawKey string) (*PresignedURL, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, fmt.Errorf("%w: key is required", common.ErrValidation)
	}

	key, err := attachments.ParseKey(rawKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrForbidden, err)
	}
	if !key.OwnedBy(userID) {
		s.log.Warn(ctx, "access url refused", "user_id", userID, "key", rawKey)
		return nil, common.ErrForbidden
	}

	u, err := s.store.PresignGet(ctx, key.String(), s.accessTTL)
	if err != nil {
		s.log.Error(ctx, "presign get failed", "key", key.String(), "error", err)
		return nil, upstream("presign get", err)
	}

	return &PresignedURL{
		URL:       u,
		Method:    "GET",
		Key:       key.String(),
		Bucket:    s.store.Bucket(),
		ExpiresIn: int(s.accessTTL.Seconds()),
	}, nil
}
