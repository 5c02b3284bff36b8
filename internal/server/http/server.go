// Package httpserver provides the HTTP REST API server for the bibliometrics service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/papertalks/bibliometrics-service/internal/bibliometrics"
	"github.com/papertalks/bibliometrics-service/internal/database"
	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/observability"
	"github.com/papertalks/bibliometrics-service/internal/pipeline"
	"github.com/papertalks/bibliometrics-service/internal/repository"
)

// Pipelines groups the workflow entry points the server exposes. Metadata
// serves the DOI preview endpoint directly.
type Pipelines struct {
	Importer  *pipeline.Importer
	Refresher *pipeline.CitationRefresher
	Enricher  *pipeline.Enricher
	Metadata  pipeline.MetadataLookup
}

// HealthChecker reports database health for the liveness and readiness
// endpoints. *database.DB satisfies it; tests substitute a stub.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	pipelines   Pipelines
	paperRepo   repository.PaperRepository
	health      HealthChecker
	metrics     *observability.Metrics
	metricsPath string
	logger      zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MetricsPath exposes the Prometheus endpoint when non-empty.
	MetricsPath string
}

// NewServer creates a new HTTP server with all dependencies.
// Metrics may be nil, in which case no request metrics are recorded.
func NewServer(
	cfg Config,
	pipelines Pipelines,
	paperRepo repository.PaperRepository,
	health HealthChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		pipelines:   pipelines,
		paperRepo:   paperRepo,
		health:      health,
		metrics:     metrics,
		metricsPath: cfg.MetricsPath,
		logger:      logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Router returns the configured handler, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.metricsMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	if s.metricsPath != "" {
		r.Handle(s.metricsPath, promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(jsonContentTypeMiddleware)

		r.Route("/researchers/{researcherID}", func(r chi.Router) {
			r.Post("/import", s.importWorks)
			r.Post("/citations/refresh", s.refreshCitations)
			r.Post("/papers/enrich", s.enrichPapers)
			r.Get("/bibliometrics", s.getBibliometrics)
			r.Get("/papers", s.listPapers)
			r.Post("/papers", s.addPaper)
		})

		r.Route("/papers", func(r chi.Router) {
			r.Get("/lookup", s.lookupPaper)
			r.Post("/{paperID}/citations/refresh", s.refreshPaperCitations)
			r.Put("/{paperID}", s.updatePaper)
			r.Delete("/{paperID}", s.deletePaper)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// getBibliometrics handles GET /researchers/{researcherID}/bibliometrics.
// The report is computed on demand from the stored corpus.
func (s *Server) getBibliometrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	researcherID, ok := parseUUID(w, chi.URLParam(r, "researcherID"), "researcher_id")
	if !ok {
		return
	}

	papers, err := s.paperRepo.ListByResearcher(ctx, researcherID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	corpus := make([]domain.Paper, len(papers))
	for i, p := range papers {
		corpus[i] = *p
	}

	writeJSON(w, http.StatusOK, bibliometrics.Compute(corpus))
}
