// Package server provides the HTTP API for the recommender.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/config"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/keyword"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/metrics"
	"github.com/Raja-venkat-reddy/shl-assessment-recommendation/internal/recommend"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server is the HTTP server for the recommendation API.
type Server struct {
	loader  *recommend.Loader
	config  *config.Config
	metrics *metrics.Recorder
	logger  *zap.Logger
	server  *http.Server

	indexOnce sync.Once
	index     *keyword.CatalogIndex
	indexErr  error
}

// NewServer creates a server that answers queries through the engine held by loader.
// recorder may be nil, in which case /metrics is not mounted. The server records nothing
// itself: engines built by loader must be opened with recommend.WithMetrics(recorder).
func NewServer(loader *recommend.Loader, cfg *config.Config, recorder *metrics.Recorder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		loader:  loader,
		config:  cfg,
		metrics: recorder,
		logger:  logger,
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/recommend", s.handleRecommend)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recommend", s.handleRecommend)
		r.Get("/assessments", s.handleAssessments)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.closeIndex()
	return err
}

func (s *Server) closeIndex() {
	if s.index != nil {
		_ = s.index.Close()
	}
}

// requestLogger logs one line per request with zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
