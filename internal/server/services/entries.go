// Package services contains server-side business logic. EntryService owns the
// entry lifecycle (creation, queries and the two-store deletion protocol);
// AttachmentService issues presigned URLs for attachment keys.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
	"github.com/dmitrijs2005/diarykeeper/internal/logging"
	"github.com/dmitrijs2005/diarykeeper/internal/server/models"
	"github.com/dmitrijs2005/diarykeeper/internal/server/objectstore"
	"github.com/dmitrijs2005/diarykeeper/internal/server/query"
	"github.com/dmitrijs2005/diarykeeper/internal/server/repositories/entries"
	"github.com/google/uuid"
)

// EntryService coordinates the metadata store and the object store.
type EntryService struct {
	repo  entries.Repository
	store objectstore.Store
	log   logging.Logger
	newID func() string
}

// NewEntryService wires the service to its stores.
func NewEntryService(repo entries.Repository, store objectstore.Store, log logging.Logger) *EntryService {
	return &EntryService{
		repo:  repo,
		store: store,
		log:   log.With("module", "entries"),
		newID: uuid.NewString,
	}
}

// CreateInput is the client-supplied part of a new entry.
type CreateInput struct {
	Date   string   `json:"date"`
	Text   string   `json:"text"`
	Images []string `json:"images"`
	Videos []string `json:"videos"`
}

// ListParams are raw, unvalidated listing parameters as received.
type ListParams struct {
	Page   string
	Size   string
	After  string
	Before string
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrUpstream, op, err)
}

// Create validates the input, assigns a fresh entry id and stores the
// record with one unconditioned write. Attachment keys are stored as given.
func (s *EntryService) Create(ctx context.Context, userID string, in CreateInput) (*models.Entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", common.ErrValidation)
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		return nil, fmt.Errorf("%w: missing date", common.ErrValidation)
	}

	entry := (&models.Entry{
		EntryID: s.newID(),
		UserID:  userID,
		Date:    date,
		Text:    in.Text,
		Images:  in.Images,
		Videos:  in.Videos,
	}).Normalize()

	if err := s.repo.Create(ctx, entry); err != nil {
		s.log.Error(ctx, "create entry failed", "entry_id", entry.EntryID, "error", err)
		return nil, upstream("create entry", err)
	}

	s.log.Info(ctx, "entry created", "entry_id", entry.EntryID, "date", entry.Date,
		"images", len(entry.Images), "videos", len(entry.Videos))
	return entry, nil
}

// List returns one page of the caller's entries. Page and size are clamped
// rather than rejected; malformed date bounds are a validation error.
func (s *EntryService) List(ctx context.Context, userID string, p ListParams) (*query.Page, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", common.ErrValidation)
	}
	rng, err := query.NewDateRange(p.After, p.Before)
	if err != nil {
		return nil, err
	}

	page, err := s.repo.List(ctx, query.Request{
		OwnerID: userID,
		Page:    query.ParsePage(p.Page),
		Size:    query.ParseSize(p.Size),
		Range:   rng,
	})
	if err != nil {
		s.log.Error(ctx, "list entries failed", "user_id", userID, "error", err)
		return nil, upstream("list entries", err)
	}
	return page, nil
}

// ListByDate returns the caller's entries on date. No matches is an empty
// result, not an error.
func (s *EntryService) ListByDate(ctx context.Context, userID, date string) ([]*models.Entry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", common.ErrValidation)
	}
	if !query.IsDate(date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", common.ErrValidation)
	}

	result, err := s.repo.ListByDate(ctx, userID, date)
	if err != nil {
		s.log.Error(ctx, "list entries by date failed", "user_id", userID, "date", date, "error", err)
		return nil, upstream("list entries by date", err)
	}
	return result, nil
}

// GetByID fetches by id first and checks ownership afterwards. A foreign
// entry is reported as ErrForbidden, which reveals that it exists.
func (s *EntryService) GetByID(ctx context.Context, userID, entryID string) (*models.Entry, error) {
	if userID == "" || entryID == "" {
		return nil, fmt.Errorf("%w: missing user or entry id", common.ErrValidation)
	}

	e, err := s.repo.GetByID(ctx, entryID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}
	if err != nil {
		s.log.Error(ctx, "get entry failed", "entry_id", entryID, "error", err)
		return nil, upstream("get entry", err)
	}
	if e.UserID != userID {
		return nil, common.ErrForbidden
	}
	return e, nil
}
