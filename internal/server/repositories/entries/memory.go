package entries

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
	"github.com/dmitrijs2005/diarykeeper/internal/server/models"
	"github.com/dmitrijs2005/diarykeeper/internal/server/query"
)

// MemoryRepository keeps entries in a map. Returned entries are copies.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]models.Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]models.Entry)}
}

func clone(e models.Entry) *models.Entry {
	e.Images = append([]string{}, e.Images...)
	e.Videos = append([]string{}, e.Videos...)
	return &e
}

func (r *MemoryRepository) Create(_ context.Context, entry *models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.EntryID]; ok {
		return ErrDuplicateEntry
	}
	r.entries[entry.EntryID] = *clone(*entry)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(e), nil
}

func (r *MemoryRepository) snapshot() []*models.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, clone(e))
	}
	return out
}

func (r *MemoryRepository) List(_ context.Context, req query.Request) (*query.Page, error) {
	return query.Apply(r.snapshot(), req), nil
}

func (r *MemoryRepository) ListByDate(_ context.Context, ownerID, date string) ([]*models.Entry, error) {
	out := []*models.Entry{}
	for _, e := range r.snapshot() {
		if e.UserID == ownerID && e.Date == date {
			out = append(out, e)
		}
	}
	query.Sort(out)
	return out, nil
}

func (r *MemoryRepository) DeleteOwned(_ context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	if e.UserID != ownerID {
		return common.ErrForbidden
	}
	delete(r.entries, id)
	return nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }
