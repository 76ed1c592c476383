package repomanager

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/dmitrijs2005/diarykeeper/internal/dbx"
	"github.com/dmitrijs2005/diarykeeper/internal/server/repositories/entries"
	"github.com/pressly/goose/v3"
)

// RepositoryManager vends repositories for one SQL dialect and owns its schema.
type RepositoryManager interface {
	// DriverName is the database/sql driver to open connections with.
	DriverName() string
	RunMigrations(context.Context, *sql.DB) error
	Entries(db dbx.DBTX) entries.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// runMigrations points goose at the embedded directory for dialect and
// applies every pending migration.
func runMigrations(ctx context.Context, db *sql.DB, fsys fs.FS, dialect, dir string) error {
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, dir)
}
