package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/diarykeeper/internal/dbx"
	"github.com/dmitrijs2005/diarykeeper/internal/server/migrations"
	"github.com/dmitrijs2005/diarykeeper/internal/server/repositories/entries"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager is the single-node variant backed by modernc.org/sqlite.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) DriverName() string { return "sqlite" }

func (m *SQLiteRepositoryManager) Entries(db dbx.DBTX) entries.Repository {
	return entries.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, migrations.SQLite, "sqlite3", "sqlite")
}

func NewSQLiteRepositoryManager() RepositoryManager {
	return &SQLiteRepositoryManager{}
}
