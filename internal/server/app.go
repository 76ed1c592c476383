// Package server initializes and runs the diary server.
// It opens the configured metadata and object stores, wires the services,
// and runs the REST API and the gRPC health endpoint until shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/diarykeeper/internal/logging"
	"github.com/dmitrijs2005/diarykeeper/internal/server/auth"
	"github.com/dmitrijs2005/diarykeeper/internal/server/config"
	"github.com/dmitrijs2005/diarykeeper/internal/server/repositories/entries"
	"github.com/dmitrijs2005/diarykeeper/internal/server/rest"
	"github.com/dmitrijs2005/diarykeeper/internal/server/services"

	gs "github.com/dmitrijs2005/diarykeeper/internal/server/grpc"
)

type App struct {
	config            *config.Config
	logger            logging.Logger
	repo              entries.Repository
	entryService      *services.EntryService
	attachmentService *services.AttachmentService
	verifier          auth.Verifier
	policy            auth.Policy
	closeDB           func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	repo, closeDB, err := openMetadata(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("metadata store init error: %w", err)
	}

	store, err := openObjectStore(ctx, c)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	verifier, err := newVerifier(ctx, c)
	if err != nil {
		closeDB()
		return nil, fmt.Errorf("auth init error: %w", err)
	}

	if c.AllowedEmail == "" {
		logger.Warn(ctx, "no allowed email configured, every request will be refused")
	}

	return &App{
		config:            c,
		logger:            logger,
		repo:              repo,
		entryService:      services.NewEntryService(repo, store, logger),
		attachmentService: services.NewAttachmentService(store, c.UploadURLTTL, c.AccessURLTTL, logger),
		verifier:          verifier,
		policy:            auth.NewEmailAllowList(c.AllowedEmail),
		closeDB:           closeDB,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewServer(app.entryService, app.attachmentService, app.verifier, app.policy, app.logger, rest.Options{
		Addr:        app.config.HTTPAddr,
		CORSOrigins: app.config.CORSOrigins,
		EnablePprof: app.config.EnablePprof,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCHealthAddr, app.logger, app.repo, app.config.HealthProbeInterval)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives, ctx is cancelled or a server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "metadata_backend", app.config.MetadataBackend, "object_store", app.config.ObjectStoreBackend)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.closeDB(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
