// Package main provides the entry point for the bibliometrics service HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/papertalks/bibliometrics-service/internal/config"
	"github.com/papertalks/bibliometrics-service/internal/database"
	"github.com/papertalks/bibliometrics-service/internal/observability"
	"github.com/papertalks/bibliometrics-service/internal/pipeline"
	"github.com/papertalks/bibliometrics-service/internal/registries/crossref"
	"github.com/papertalks/bibliometrics-service/internal/registries/opencitations"
	"github.com/papertalks/bibliometrics-service/internal/registries/orcid"
	"github.com/papertalks/bibliometrics-service/internal/registries/semanticscholar"
	"github.com/papertalks/bibliometrics-service/internal/repository"
	"github.com/papertalks/bibliometrics-service/internal/resolver"
	httpserver "github.com/papertalks/bibliometrics-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("bibliometrics-service starting")

	// Graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("bibliometrics")
	}

	paperRepo := repository.NewPgPaperRepository(db)

	// Registry clients share the service-wide User-Agent.
	userAgent := cfg.Registries.UserAgent()

	orcidClient := orcid.New(orcid.Config{
		BaseURL:   cfg.Registries.ORCID.BaseURL,
		UserAgent: userAgent,
		Timeout:   cfg.Registries.ORCID.Timeout,
		RateLimit: cfg.Registries.ORCID.RateLimit,
		BurstSize: cfg.Registries.ORCID.BurstSize,
	})
	crossrefClient := crossref.New(crossref.Config{
		BaseURL:   cfg.Registries.Crossref.BaseURL,
		UserAgent: userAgent,
		Timeout:   cfg.Registries.Crossref.Timeout,
		RateLimit: cfg.Registries.Crossref.RateLimit,
		BurstSize: cfg.Registries.Crossref.BurstSize,
	})
	s2Client := semanticscholar.New(semanticscholar.Config{
		BaseURL:   cfg.Registries.SemanticScholar.BaseURL,
		APIKey:    cfg.Registries.SemanticScholar.APIKey,
		UserAgent: userAgent,
		Timeout:   cfg.Registries.SemanticScholar.Timeout,
		RateLimit: cfg.Registries.SemanticScholar.RateLimit,
		BurstSize: cfg.Registries.SemanticScholar.BurstSize,
	})
	ocClient := opencitations.New(opencitations.Config{
		BaseURL:     cfg.Registries.OpenCitations.BaseURL,
		AccessToken: cfg.Registries.OpenCitations.APIKey,
		UserAgent:   userAgent,
		Timeout:     cfg.Registries.OpenCitations.Timeout,
		RateLimit:   cfg.Registries.OpenCitations.RateLimit,
		BurstSize:   cfg.Registries.OpenCitations.BurstSize,
	})

	// Crossref leads for metadata; Semantic Scholar leads for citations.
	metadataResolver := resolver.NewMetadataResolver(logger, crossrefClient, s2Client)
	citationResolver := resolver.NewCitationResolver(logger, s2Client, ocClient)

	pipelines := httpserver.Pipelines{
		Importer: pipeline.NewImporter(
			orcidClient, metadataResolver, paperRepo, metrics, logger,
			cfg.Pipeline.EnrichBatchSize,
		),
		Refresher: pipeline.NewCitationRefresher(
			citationResolver, paperRepo, metrics, logger,
			cfg.Pipeline.CitationBatchSize,
		),
		Enricher: pipeline.NewEnricher(
			metadataResolver, paperRepo, metrics, logger,
			cfg.Pipeline.EnrichBatchSize,
		),
		Metadata: metadataResolver,
	}

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	if cfg.Metrics.Enabled {
		httpCfg.MetricsPath = cfg.Metrics.Path
	}

	httpSrv := httpserver.NewServer(httpCfg, pipelines, paperRepo, db, metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", httpCfg.Address).
		Msg("bibliometrics-service is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down bibliometrics-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("bibliometrics-service shutdown complete")
	return nil
}
