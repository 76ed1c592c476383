// Package rest exposes the diary over HTTP with gin. Every /api route runs
// behind the identity gate, and wrong verbs are checked only after it, so an
// unauthorized caller always sees 403 even for an unsupported method.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/diarykeeper/internal/logging"
	"github.com/dmitrijs2005/diarykeeper/internal/server/auth"
	"github.com/dmitrijs2005/diarykeeper/internal/server/models"
	"github.com/dmitrijs2005/diarykeeper/internal/server/query"
	"github.com/dmitrijs2005/diarykeeper/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
)

// EntryAPI is the entry lifecycle the handlers call.
type EntryAPI interface {
	Create(ctx context.Context, userID string, in services.CreateInput) (*models.Entry, error)
	List(ctx context.Context, userID string, p services.ListParams) (*query.Page, error)
	ListByDate(ctx context.Context, userID, date string) ([]*models.Entry, error)
	GetByID(ctx context.Context, userID, entryID string) (*models.Entry, error)
	Delete(ctx context.Context, userID, entryID string) (*services.DeleteResult, error)
}

// AttachmentAPI issues presigned attachment URLs.
type AttachmentAPI interface {
	IssueUploadURL(ctx context.Context, userID, filename, contentType string) (*services.PresignedURL, error)
	IssueAccessURL(ctx context.Context, userID, key string) (*services.PresignedURL, error)
}

// Options tune the HTTP surface.
type Options struct {
	Addr        string
	CORSOrigins []string
	EnablePprof bool
}

type Server struct {
	router      *gin.Engine
	entries     EntryAPI
	attachments AttachmentAPI
	verifier    auth.Verifier
	policy      auth.Policy
	logger      logging.Logger
	addr        string
}

func NewServer(es EntryAPI, as AttachmentAPI, v auth.Verifier, p auth.Policy, l logging.Logger, opts Options) *Server {
	s := &Server{
		entries:     es,
		attachments: as,
		verifier:    v,
		policy:      p,
		logger:      l.With("module", "http_server"),
		addr:        opts.Addr,
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), s.accessLog)
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	if opts.EnablePprof {
		pprof.Register(router)
	}

	router.GET("/health", s.handleHealth)

	api := router.Group("/api", s.authenticate)
	{
		api.POST("/entry", s.handleCreateEntry)
		api.GET("/entries", s.handleListEntries)
		api.GET("/entries/:id", s.handleGetEntry)
		api.GET("/entry/:date", s.handleEntriesByDate)
		api.DELETE("/entry/:id", s.handleDeleteEntry)
		api.POST("/upload-url", s.handleUploadURL)
		api.POST("/access-url", s.handleAccessURL)
	}

	router.NoMethod(s.handleNoMethod)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	})

	s.router = router
	return s
}

// corsConfig allows the configured browser origins. With none configured
// any origin may call, but without credentials.
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled and then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug(c.Request.Context(), "request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start).String())
}

func (s *Server) handleNoMethod(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		s.authenticate(c)
		if c.IsAborted() {
			return
		}
	}
	c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Method Not Allowed"})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
