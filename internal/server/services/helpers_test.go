package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/diarykeeper/internal/logging"
	"github.com/dmitrijs2005/diarykeeper/internal/server/models"
	"github.com/dmitrijs2005/diarykeeper/internal/server/objectstore"
	"github.com/dmitrijs2005/diarykeeper/internal/server/repositories/entries"
	"github.com/stretchr/testify/require"
)

// spyRepo counts mutating calls and can inject errors; everything else is
// delegated to the embedded repository.
type spyRepo struct {
	entries.Repository
	creates, deletes int
	getErr, delErr   error
	createErr        error
	listErr          error
}

func (r *spyRepo) Create(ctx context.Context, e *models.Entry) error {
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	return r.Repository.Create(ctx, e)
}

func (r *spyRepo) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.Repository.GetByID(ctx, id)
}

func (r *spyRepo) DeleteOwned(ctx context.Context, id, owner string) error {
	r.deletes++
	if r.delErr != nil {
		return r.delErr
	}
	return r.Repository.DeleteOwned(ctx, id, owner)
}

func (r *spyRepo) ListByDate(ctx context.Context, owner, date string) ([]*models.Entry, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.Repository.ListByDate(ctx, owner, date)
}

// spyStore counts bulk deletes.
type spyStore struct {
	*objectstore.MemoryStore
	deleteCalls int
	lastKeys    []string
}

func (s *spyStore) DeleteObjects(ctx context.Context, keys []string) ([]objectstore.DeleteError, error) {
	s.deleteCalls++
	s.lastKeys = keys
	return s.MemoryStore.DeleteObjects(ctx, keys)
}

func newEntryService(t *testing.T) (*EntryService, *spyRepo, *spyStore) {
	t.Helper()
	repo := &spyRepo{Repository: entries.NewMemoryRepository()}
	store := &spyStore{MemoryStore: objectstore.NewMemoryStore("diary-uploads")}
	svc := NewEntryService(repo, store, logging.Nop{})

	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%02d", n)
	}
	return svc, repo, store
}

func seed(t *testing.T, repo *spyRepo, e *models.Entry) {
	t.Helper()
	require.NoError(t, repo.Repository.Create(context.Background(), e.Normalize()))
}
