// Package entries provides the metadata stores for diary entries:
// SQL (PostgreSQL and SQLite), DynamoDB and an in-memory map. Every
// implementation returns pages in the order defined by the query package.
package entries

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/diarykeeper/internal/server/models"
	"github.com/dmitrijs2005/diarykeeper/internal/server/query"
)

// ErrDuplicateEntry is returned by Create when the entry id is taken.
var ErrDuplicateEntry = errors.New("entry already exists")

type Repository interface {
	// Create stores a new entry. Entry ids are never reused.
	Create(ctx context.Context, entry *models.Entry) error
	// GetByID returns common.ErrorNotFound when no entry has id.
	GetByID(ctx context.Context, id string) (*models.Entry, error)
	// List returns one page of the owner's dated entries.
	List(ctx context.Context, req query.Request) (*query.Page, error)
	// ListByDate returns every entry the owner has on date.
	ListByDate(ctx context.Context, ownerID, date string) ([]*models.Entry, error)
	// DeleteOwned removes the entry only if ownerID owns it. Deleting an
	// absent entry succeeds; an entry owned by someone else yields
	// common.ErrForbidden and is left untouched.
	DeleteOwned(ctx context.Context, id, ownerID string) error
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
