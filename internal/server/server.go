// Package server provides the HTTP API for vidsense.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/vidsense/internal/config"
	"github.com/hyperjump/vidsense/internal/embeddings"
	"github.com/hyperjump/vidsense/internal/keyword"
	"github.com/hyperjump/vidsense/internal/pipeline"
	"github.com/hyperjump/vidsense/internal/storage"
	"go.uber.org/zap"
)

// WatchService manages the directories watched for new media.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the vidsense API.
type Server struct {
	pipeline   *pipeline.Pipeline
	generator  *embeddings.Generator
	events     storage.EventStore
	vectors    storage.VectorStore
	keyword    keyword.Index // nil when keyword search is disabled
	watch      WatchService  // nil when watching is disabled
	config     *config.Config
	configPath string
	configMu   sync.Mutex
	// jobMu serializes extraction and embedding generation.
	jobMu  sync.Mutex
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies. kw and watch may be nil.
// When configPath is set, watch directory changes are persisted to it.
func NewServer(
	p *pipeline.Pipeline,
	gen *embeddings.Generator,
	events storage.EventStore,
	vectors storage.VectorStore,
	kw keyword.Index,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pipeline:   p,
		generator:  gen,
		events:     events,
		vectors:    vectors,
		keyword:    kw,
		watch:      watch,
		config:     cfg,
		configPath: configPath,
		logger:     logger,
	}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		// Extraction and generation can run for minutes; they only stop when the client goes away.
		r.Post("/extract", s.handleExtract)
		r.Post("/embeddings", s.handleEmbeddings)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(middleware.Compress(5))
			r.Get("/status", s.handleStatus)
			r.Post("/retrieve", s.handleRetrieve)
			r.Get("/events/{modality}", s.handleListEvents)
			r.Get("/search", s.handleKeywordSearch)
			r.Get("/watch/directories", s.handleWatchDirectoriesList)
			r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
			r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
		})
	})
	return r
}

// RunExclusive runs fn while holding the job lock used by the extract and embeddings endpoints.
// The watcher uses it so files arriving on disk never race an API-triggered run.
func (s *Server) RunExclusive(fn func()) {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	fn()
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
