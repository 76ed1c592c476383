package entries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/diarykeeper/internal/common"
	"github.com/dmitrijs2005/diarykeeper/internal/dbx"
	"github.com/dmitrijs2005/diarykeeper/internal/server/models"
	"github.com/dmitrijs2005/diarykeeper/internal/server/query"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

const entryColumns = `entry_id, user_id, date, text, images, videos`

// SQLRepository implements entry storage over a dbx.DBTX (*sql.DB or *sql.Tx).
// Queries are written with '?' placeholders and rebound for PostgreSQL.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dialect
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialectPostgres}
}

// NewSQLiteRepository constructs a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialectSQLite}
}

func (r *SQLRepository) q(query string) string {
	if r.dialect == dialectPostgres {
		return dbx.Rebind(query)
	}
	return query
}

// Create inserts a new row. Attachment lists are stored as JSON arrays.
func (r *SQLRepository) Create(ctx context.Context, entry *models.Entry) error {
	images, err := encodeKeys(entry.Images)
	if err != nil {
		return err
	}
	videos, err := encodeKeys(entry.Videos)
	if err != nil {
		return err
	}

	query := `INSERT INTO entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, r.q(query),
		entry.EntryID, entry.UserID, entry.Date, entry.Text, images, videos); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE entry_id = ?`
	e, err := scanEntry(r.db.QueryRowContext(ctx, r.q(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select entry: %w", err)
	}
	return e, nil
}

// List counts and pages inside one read-only transaction so the total and
// the page agree. When the repository is already bound to a transaction the
// caller's transaction is used as is.
func (r *SQLRepository) List(ctx context.Context, req query.Request) (*query.Page, error) {
	var page *query.Page
	run := func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		page, err = r.list(ctx, tx, req)
		return err
	}

	if db, ok := r.db.(*sql.DB); ok {
		if err := dbx.WithTx(ctx, db, r.readOnlyTx(), run); err != nil {
			return nil, err
		}
		return page, nil
	}
	if err := run(ctx, r.db); err != nil {
		return nil, err
	}
	return page, nil
}

func (r *SQLRepository) readOnlyTx() *sql.TxOptions {
	if r.dialect == dialectPostgres {
		return &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead}
	}
	return nil
}

func (r *SQLRepository) list(ctx context.Context, tx dbx.DBTX, req query.Request) (*query.Page, error) {
	where := []string{"user_id = ?", "date <> ''"}
	args := []any{req.OwnerID}
	if req.Range.After != "" {
		where = append(where, "date >= ?")
		args = append(args, req.Range.After)
	}
	if req.Range.Before != "" {
		where = append(where, "date <= ?")
		args = append(args, req.Range.Before)
	}
	cond := strings.Join(where, " AND ")

	page := &query.Page{Entries: []*models.Entry{}, Page: req.Page, Size: req.Size}

	if err := tx.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM entries WHERE `+cond), args...).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	if req.Offset() >= page.Total {
		return page, nil
	}

	query := `SELECT ` + entryColumns + ` FROM entries WHERE ` + cond +
		` ORDER BY date DESC, entry_id ASC LIMIT ? OFFSET ?`
	rows, err := tx.QueryContext(ctx, r.q(query), append(args, req.Size, req.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		page.Entries = append(page.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return page, nil
}

func (r *SQLRepository) ListByDate(ctx context.Context, ownerID, date string) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE user_id = ? AND date = ? ORDER BY entry_id ASC`
	rows, err := r.db.QueryContext(ctx, r.q(query), ownerID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to select entries: %w", err)
	}
	defer rows.Close()

	result := []*models.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteOwned deletes by id and owner in one statement. When nothing was
// deleted a follow-up lookup tells an absent entry from a foreign one.
func (r *SQLRepository) DeleteOwned(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM entries WHERE entry_id = ? AND user_id = ?`), id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n > 0 {
		return nil
	}

	var owner string
	err = r.db.QueryRowContext(ctx, r.q(`SELECT user_id FROM entries WHERE entry_id = ?`), id).Scan(&owner)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return fmt.Errorf("db error: %w", err)
	case owner != ownerID:
		return common.ErrForbidden
	default:
		return nil
	}
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var e models.Entry
	var images, videos string
	if err := row.Scan(&e.EntryID, &e.UserID, &e.Date, &e.Text, &images, &videos); err != nil {
		return nil, err
	}
	var err error
	if e.Images, err = decodeKeys(images); err != nil {
		return nil, err
	}
	if e.Videos, err = decodeKeys(videos); err != nil {
		return nil, err
	}
	return &e, nil
}

func encodeKeys(keys []string) (string, error) {
	if keys == nil {
		keys = []string{}
	}
	b, err := json.Marshal(keys)
	if err != nil {
		return "", fmt.Errorf("encode attachment keys: %w", err)
	}
	return string(b), nil
}

func decodeKeys(raw string) ([]string, error) {
	keys := []string{}
	if raw == "" {
		return keys, nil
	}
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, fmt.Errorf("decode attachment keys: %w", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}
