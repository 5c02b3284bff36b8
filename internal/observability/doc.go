// Package observability provides logging, metrics, and context helpers for
// the bibliometrics service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for imports, enrichment, citation refreshes and
//     the HTTP surface
//   - Context helpers for propagating request identity
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("orcid", orcid).Msg("import started")
//
// Add researcher context to a logger:
//
//	logger = observability.WithResearcherContext(logger, researcherID, orcid)
//
// # Metrics
//
// Initialize metrics once at startup:
//
//	metrics := observability.NewMetrics("bibliometrics")
//
// Record metrics:
//
//	metrics.RecordImportStarted()
//	metrics.RecordImportCompleted(result.Imported, result.Skipped, result.Enriched, elapsed.Seconds())
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - researcher_id: Researcher identifier
//   - orcid: ORCID iD being imported
//   - paper_id: Paper identifier
//   - doi: Paper DOI or synthesized identifier
//   - registry: External registry name
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
