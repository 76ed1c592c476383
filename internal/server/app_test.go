package server

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/diarykeeper/internal/server/config"
	"github.com/dmitrijs2005/diarykeeper/internal/server/objectstore"
	"github.com/dmitrijs2005/diarykeeper/internal/server/repositories/entries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = "127.0.0.1:0"
	c.GRPCHealthAddr = "127.0.0.1:0"
	c.MetadataBackend = config.BackendSQLite
	c.SQLitePath = filepath.Join(t.TempDir(), "diary.db")
	c.ObjectStoreBackend = config.ObjectStoreMemory
	c.AllowedEmail = "me@example.com"
	c.LogLevel = "error"
	return c
}

func TestOpenMetadata(t *testing.T) {
	ctx := context.Background()

	c := testConfig(t)
	repo, closeDB, err := openMetadata(ctx, c)
	require.NoError(t, err)
	assert.IsType(t, &entries.SQLRepository{}, repo)
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, closeDB())

	c.MetadataBackend = config.BackendMemory
	repo, _, err = openMetadata(ctx, c)
	require.NoError(t, err)
	assert.IsType(t, &entries.MemoryRepository{}, repo)

	c.MetadataBackend = config.BackendDynamoDB
	c.DynamoEndpoint = "http://127.0.0.1:8000"
	repo, _, err = openMetadata(ctx, c)
	require.NoError(t, err)
	assert.IsType(t, &entries.DynamoRepository{}, repo)

	c.MetadataBackend = "cassandra"
	_, _, err = openMetadata(ctx, c)
	require.Error(t, err)
}

func TestDynamoOptions_FromConfig(t *testing.T) {
	c := testConfig(t)
	c.DynamoEndpoint = "http://127.0.0.1:8000"
	c.DynamoAccessKey = "local"
	c.DynamoSecretKey = "localsecret"

	assert.Equal(t, entries.DynamoOptions{
		Region:         "us-east-1",
		Endpoint:       "http://127.0.0.1:8000",
		AccessKey:      "local",
		SecretKey:      "localsecret",
		Table:          "diary-entries",
		OwnerDateIndex: "userId-date-index",
	}, dynamoOptions(c))
}

func TestOpenMetadata_OpenError(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })
	sqlOpen = func(driverName, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driverName)
		return nil, errors.New("bad dsn")
	}

	c := testConfig(t)
	c.MetadataBackend = config.BackendPostgres
	_, _, err := openMetadata(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad dsn")
}

func TestOpenObjectStore(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t)

	st, err := openObjectStore(ctx, c)
	require.NoError(t, err)
	assert.IsType(t, &objectstore.MemoryStore{}, st)
	assert.Equal(t, c.S3Bucket, st.Bucket())

	c.ObjectStoreBackend = config.ObjectStoreMinio
	st, err = openObjectStore(ctx, c)
	require.NoError(t, err)
	assert.IsType(t, &objectstore.MinioStore{}, st)

	c.ObjectStoreBackend = config.ObjectStoreS3
	st, err = openObjectStore(ctx, c)
	require.NoError(t, err)
	assert.IsType(t, &objectstore.S3Store{}, st)

	c.ObjectStoreBackend = "gcs"
	_, err = openObjectStore(ctx, c)
	require.Error(t, err)
}

func TestNewVerifier(t *testing.T) {
	c := testConfig(t)

	_, err := newVerifier(context.Background(), c)
	require.NoError(t, err)

	c.SecretKey = ""
	_, err = newVerifier(context.Background(), c)
	require.Error(t, err)

	c.AuthMode = "saml"
	_, err = newVerifier(context.Background(), c)
	require.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestNewApp_FailsOnUnknownBackend(t *testing.T) {
	c := testConfig(t)
	c.ObjectStoreBackend = "nope"
	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
}
