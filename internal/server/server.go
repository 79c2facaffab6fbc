// Package server exposes recordings, settings and runtime stats over a
// gin REST API with a websocket status feed.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/raphaelgruber/beethoven-go/internal/metrics"
	"github.com/raphaelgruber/beethoven-go/internal/models"
	"github.com/raphaelgruber/beethoven-go/internal/service"
)

const (
	// DefaultMaxUploadBytes caps multipart audio uploads.
	DefaultMaxUploadBytes = 200 << 20

	// DefaultWatchInterval is how often the watch feed re-reads status.
	DefaultWatchInterval = time.Second
)

// Recordings is the recording API surface. *service.RecordingService implements it.
type Recordings interface {
	Ingest(ctx context.Context, req service.IngestRequest) (*models.Recording, error)
	Get(ctx context.Context, id string) (*models.Recording, error)
	Status(ctx context.Context, id string) (*service.StatusView, error)
	List(ctx context.Context, filter models.RecordingFilter) ([]models.Recording, error)
}

// Settings is the settings API surface. *service.SettingsService implements it.
type Settings interface {
	List(ctx context.Context) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Set(ctx context.Context, key, value string) (*models.Setting, error)
}

// Pinger checks store connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Server.
type Deps struct {
	Recordings Recordings
	Settings   Settings
	DB         Pinger
	Metrics    *metrics.Collector
	Logger     *slog.Logger

	MaxUploadBytes int64
	WatchInterval  time.Duration
}

// Server wraps the gin engine and the HTTP server lifecycle.
type Server struct {
	engine     *gin.Engine
	recordings Recordings
	settings   Settings
	db         Pinger
	metrics    *metrics.Collector
	logger     *slog.Logger

	maxUploadBytes int64
	watchInterval  time.Duration

	http *http.Server
}

// New creates a Server with all routes registered.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if deps.WatchInterval <= 0 {
		deps.WatchInterval = DefaultWatchInterval
	}

	engine := gin.New()
	engine.Use(RequestID(), RecoveryMiddleware(deps.Logger), LoggingMiddleware(deps.Logger))

	s := &Server{
		engine:         engine,
		recordings:     deps.Recordings,
		settings:       deps.Settings,
		db:             deps.DB,
		metrics:        deps.Metrics,
		logger:         deps.Logger,
		maxUploadBytes: deps.MaxUploadBytes,
		watchInterval:  deps.WatchInterval,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)

	rec := api.Group("/recordings")
	rec.POST("", s.handleCreateRecording)
	rec.GET("", s.handleListRecordings)
	rec.GET("/:id", s.handleGetRecording)
	rec.GET("/:id/status", s.handleRecordingStatus)
	rec.GET("/:id/watch", s.handleWatchRecording)

	set := api.Group("/settings")
	set.GET("", s.handleListSettings)
	set.GET("/:key", s.handleGetSetting)
	set.PUT("/:key", s.handlePutSetting)
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		// Long enough for large uploads and watch connections.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}
	s.logger.Info("http server listening", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
