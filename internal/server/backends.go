package server

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/diarykeeper/internal/server/auth"
	"github.com/dmitrijs2005/diarykeeper/internal/server/config"
	"github.com/dmitrijs2005/diarykeeper/internal/server/objectstore"
	"github.com/dmitrijs2005/diarykeeper/internal/server/repositories/entries"
	"github.com/dmitrijs2005/diarykeeper/internal/server/repositories/repomanager"
)

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// openMetadata connects the configured metadata store. The returned close
// function releases its connections.
func openMetadata(ctx context.Context, c *config.Config) (entries.Repository, func() error, error) {
	noop := func() error { return nil }

	switch c.MetadataBackend {
	case config.BackendPostgres:
		return openSQL(ctx, repomanager.NewPostgresRepositoryManager(), c.DatabaseDSN, 0)
	case config.BackendSQLite:
		return openSQL(ctx, repomanager.NewSQLiteRepositoryManager(), c.SQLitePath, 1)
	case config.BackendDynamoDB:
		o := dynamoOptions(c)
		client, err := entries.NewDynamoClient(ctx, o)
		if err != nil {
			return nil, nil, err
		}
		return entries.NewDynamoRepository(client, o.Table, o.OwnerDateIndex), noop, nil
	case config.BackendMemory:
		return entries.NewMemoryRepository(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown metadata backend %q", c.MetadataBackend)
	}
}

func dynamoOptions(c *config.Config) entries.DynamoOptions {
	return entries.DynamoOptions{
		Region:         c.S3Region,
		Endpoint:       c.DynamoEndpoint,
		AccessKey:      c.DynamoAccessKey,
		SecretKey:      c.DynamoSecretKey,
		Table:          c.DynamoTable,
		OwnerDateIndex: c.DynamoOwnerDateIndex,
	}
}

func openSQL(ctx context.Context, m repomanager.RepositoryManager, dsn string, maxConns int) (entries.Repository, func() error, error) {
	db, err := sqlOpen(m.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("db migration error: %w", err)
	}
	return m.Entries(db), db.Close, nil
}

func openObjectStore(ctx context.Context, c *config.Config) (objectstore.Store, error) {
	opts := objectstore.S3Options{
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
		UsePathStyle: c.S3UsePathStyle,
	}

	switch c.ObjectStoreBackend {
	case config.ObjectStoreS3:
		return objectstore.NewS3Store(ctx, opts)
	case config.ObjectStoreMinio:
		return objectstore.NewMinioStore(opts)
	case config.ObjectStoreMemory:
		return objectstore.NewMemoryStore(c.S3Bucket), nil
	default:
		return nil, fmt.Errorf("unknown object store %q", c.ObjectStoreBackend)
	}
}

func newVerifier(ctx context.Context, c *config.Config) (auth.Verifier, error) {
	switch c.AuthMode {
	case config.AuthModeJWT:
		if c.SecretKey == "" {
			return nil, fmt.Errorf("jwt auth requires a secret key")
		}
		return auth.NewJWTVerifier([]byte(c.SecretKey)), nil
	case config.AuthModeOIDC:
		return auth.NewOIDCVerifier(ctx, c.OIDCIssuer, c.OIDCClientID)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", c.AuthMode)
	}
}
