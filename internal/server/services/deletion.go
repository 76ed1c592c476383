package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
	"github.com/dmitrijs2005/diarykeeper/internal/logging"
	"github.com/dmitrijs2005/diarykeeper/internal/server/attachments"
	"github.com/dmitrijs2005/diarykeeper/internal/server/models"
	"github.com/dmitrijs2005/diarykeeper/internal/server/objectstore"
)

// DeleteResult reports a completed deletion.
type DeleteResult struct {
	EntryID        string `json:"entryId"`
	DeletedObjects int    `json:"deletedObjects"`
}

// AttachmentCleanupError means the object store did not confirm removal of
// every attachment. The metadata row is still in place and the whole
// deletion may be retried.
type AttachmentCleanupError struct {
	EntryID  string
	Failures []objectstore.DeleteError
	Err      error
}

func (e *AttachmentCleanupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("attachment cleanup for entry %s failed: %v", e.EntryID, e.Err)
	}
	return fmt.Sprintf("attachment cleanup for entry %s failed for %d key(s)", e.EntryID, len(e.Failures))
}

func (e *AttachmentCleanupError) Is(target error) bool {
	return target == common.ErrAttachmentCleanup
}

func (e *AttachmentCleanupError) Unwrap() error { return e.Err }

type stage int

const (
	stageValidating stage = iota
	stageCleaningAttachments
	stageDeletingMetadata
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageValidating:
		return "validating"
	case stageCleaningAttachments:
		return "cleaning_attachments"
	case stageDeletingMetadata:
		return "deleting_metadata"
	case stageDone:
		return "done"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// deletion is the state of one delete request. Stages only move forward and
// a failing stage ends the request.
type deletion struct {
	entryID string
	userID  string
	stage   stage
	entry   *models.Entry
	keys    []attachments.Key
}

// Delete removes an entry and its attachments. Attachments go first; the
// metadata row is deleted only once the object store confirmed every key,
// so a failure at any point leaves a state from which calling Delete again
// converges.
func (s *EntryService) Delete(ctx context.Context, userID, entryID string) (*DeleteResult, error) {
	d := &deletion{entryID: entryID, userID: userID, stage: stageValidating}
	log := s.log.With("entry_id", entryID, "user_id", userID)

	for d.stage != stageDone {
		log.Debug(ctx, "deletion stage", "stage", d.stage.String())
		if err := s.advance(ctx, log, d); err != nil {
			log.Warn(ctx, "deletion aborted", "stage", d.stage.String(), "error", err)
			return nil, err
		}
	}

	log.Info(ctx, "entry deleted", "deleted_objects", len(d.keys))
	return &DeleteResult{EntryID: entryID, DeletedObjects: len(d.keys)}, nil
}

func (s *EntryService) advance(ctx context.Context, log logging.Logger, d *deletion) error {
	switch d.stage {
	case stageValidating:
		if err := s.validateDeletion(ctx, d); err != nil {
			return err
		}
		d.stage = stageCleaningAttachments
	case stageCleaningAttachments:
		if err := s.cleanAttachments(ctx, log, d); err != nil {
			return err
		}
		d.stage = stageDeletingMetadata
	case stageDeletingMetadata:
		if err := s.deleteMetadata(ctx, d); err != nil {
			return err
		}
		d.stage = stageDone
	default:
		return fmt.Errorf("unexpected deletion stage %s", d.stage)
	}
	return nil
}

func (s *EntryService) validateDeletion(ctx context.Context, d *deletion) error {
	if d.entryID == "" {
		return fmt.Errorf("%w: missing entry id", common.ErrValidation)
	}
	if d.userID == "" {
		return fmt.Errorf("%w: missing user id", common.ErrValidation)
	}

	e, err := s.repo.GetByID(ctx, d.entryID)
	if errors.Is(err, common.ErrorNotFound) {
		return err
	}
	if err != nil {
		return upstream("get entry", err)
	}
	if e.UserID != d.userID {
		return common.ErrForbidden
	}

	d.entry = e
	d.keys = attachments.OwnedKeys(d.userID, e.AttachmentKeys())
	return nil
}

func (s *EntryService) cleanAttachments(ctx context.Context, log logging.Logger, d *deletion) error {
	if len(d.keys) == 0 {
		return nil
	}

	failures, err := s.store.DeleteObjects(ctx, attachments.Strings(d.keys))
	if err != nil {
		return &AttachmentCleanupError{EntryID: d.entryID, Err: err}
	}
	if len(failures) > 0 {
		for _, f := range failures {
			log.Error(ctx, "attachment not deleted", "bucket", s.store.Bucket(), "key", f.Key, "code", f.Code, "msg", f.Message)
		}
		return &AttachmentCleanupError{EntryID: d.entryID, Failures: failures}
	}
	return nil
}

// deleteMetadata issues the owner-conditioned delete. A row that vanished
// in the meantime counts as deleted.
func (s *EntryService) deleteMetadata(ctx context.Context, d *deletion) error {
	err := s.repo.DeleteOwned(ctx, d.entryID, d.userID)
	if errors.Is(err, common.ErrForbidden) {
		return err
	}
	if err != nil {
		return upstream("delete entry", err)
	}
	return nil
}
