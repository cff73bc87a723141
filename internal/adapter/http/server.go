package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
	"github.com/couchcryptid/climate-data-etl/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Catalog resolves reference data. *pipeline.Locator implements it.
type Catalog interface {
	Regions(ctx context.Context) ([]domain.Region, error)
	Parameters(ctx context.Context) ([]domain.Parameter, error)
	FindRegion(ctx context.Context, code string) (domain.Region, error)
	FindParameter(ctx context.Context, code string) (domain.Parameter, error)
}

// RecordQuerier serves the read API.
type RecordQuerier interface {
	ListRecords(ctx context.Context, filter domain.RecordFilter) (domain.RecordPage, error)
	Summarize(ctx context.Context, filter domain.RecordFilter) (domain.RecordSummary, error)
}

// Ingester runs dataset syncs. *pipeline.Ingester implements it.
type Ingester interface {
	SyncFromURL(ctx context.Context, rawURL string) (domain.SyncResult, error)
	SyncBatchByCodes(ctx context.Context, req pipeline.BatchRequest) (domain.BatchResult, error)
}

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Ready    ReadinessChecker
	Catalog  Catalog
	Records  RecordQuerier
	Ingester Ingester
}

// Server exposes health, readiness, metrics and the climate data API.
type Server struct {
	httpServer *http.Server
	deps       Deps
	runs       *runRegistry
	logger     *slog.Logger

	// baseCtx outlives requests; background batch runs use it and it is
	// cancelled on shutdown.
	baseCtx    context.Context
	cancelRuns context.CancelFunc
}

// NewServer creates an HTTP server with the health and API routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	baseCtx, cancel := context.WithCancel(context.Background())

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:       deps,
		runs:       newRunRegistry(defaultRunHistory, defaultMaxRunning),
		logger:     logger,
		baseCtx:    baseCtx,
		cancelRuns: cancel,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(deps.Ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/regions", s.handleListRegions)
		r.Get("/regions/{code}", s.handleGetRegion)
		r.Get("/parameters", s.handleListParameters)
		r.Get("/parameters/{code}", s.handleGetParameter)
		r.Get("/records", s.handleListRecords)
		r.Get("/records/summary", s.handleSummary)

		r.Post("/ingest", s.handleIngest)
		r.Post("/ingest/trigger", s.handleTrigger)
		r.Get("/ingest/runs/{runID}", s.handleGetRun)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections, then waits for background batch
// runs within the given context deadline. Runs still going at the deadline
// are cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if waitErr := s.runs.wait(ctx); waitErr != nil {
		s.logger.Warn("cancelling unfinished batch runs", "error", waitErr)
		s.cancelRuns()
		return waitErr
	}
	s.cancelRuns()
	return err
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// requestLogger logs one line per request with chi's request ID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
