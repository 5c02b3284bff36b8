package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/papertalks/bibliometrics-service/internal/batch"
	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/observability"
	"github.com/papertalks/bibliometrics-service/internal/repository"
)

// EnrichResult summarizes one enrichment sweep.
type EnrichResult struct {
	// Total is the number of papers missing authors.
	Total int `json:"total"`

	// Enriched is the number of papers whose author list was filled.
	Enriched int `json:"enriched"`

	// Unresolved is the number of papers no registry could provide an
	// author list for.
	Unresolved int `json:"unresolved"`

	// Skipped is the number of papers without a registry-resolvable DOI.
	Skipped int `json:"skipped"`
}

// Enricher backfills metadata for papers that were imported without authors,
// typically because every registry lookup failed during the import.
type Enricher struct {
	metadata  MetadataLookup
	papers    repository.PaperRepository
	metrics   *observability.Metrics
	logger    zerolog.Logger
	batchSize int
}

// NewEnricher creates an enricher. A non-positive batchSize falls back to
// DefaultEnrichBatchSize. Metrics may be nil in tests.
func NewEnricher(
	metadata MetadataLookup,
	papers repository.PaperRepository,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	batchSize int,
) *Enricher {
	if batchSize <= 0 {
		batchSize = DefaultEnrichBatchSize
	}
	return &Enricher{
		metadata:  metadata,
		papers:    papers,
		metrics:   metrics,
		logger:    logger,
		batchSize: batchSize,
	}
}

// EnrichResearcher sweeps a researcher's papers that have no authors and
// retries their metadata lookups, a bounded chunk at a time.
func (e *Enricher) EnrichResearcher(ctx context.Context, researcherID uuid.UUID) (*EnrichResult, error) {
	papers, err := e.papers.ListByResearcher(ctx, researcherID)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}

	result := &EnrichResult{}

	var targets []*domain.Paper
	for _, paper := range papers {
		if paper.HasAuthors() {
			continue
		}
		result.Total++
		if paper.HasRealDOI() {
			targets = append(targets, paper)
		} else {
			result.Skipped++
		}
	}

	outcomes, err := batch.Run(ctx, targets, e.batchSize, func(ctx context.Context, paper *domain.Paper) bool {
		return e.enrichOne(ctx, paper)
	})
	if err != nil {
		return nil, err
	}

	for _, ok := range outcomes {
		if ok {
			result.Enriched++
		} else {
			result.Unresolved++
		}
	}

	if e.metrics != nil {
		e.metrics.RecordEnrichments(result.Enriched, result.Unresolved)
	}
	e.logger.Info().
		Str("researcher_id", researcherID.String()).
		Int("total", result.Total).
		Int("enriched", result.Enriched).
		Int("unresolved", result.Unresolved).
		Int("skipped", result.Skipped).
		Msg("Enrichment sweep finished")

	return result, nil
}

func (e *Enricher) enrichOne(ctx context.Context, paper *domain.Paper) bool {
	logger := observability.WithPaperContext(e.logger, paper.ID.String(), paper.DOI)

	// A lookup that cannot produce authors does not help an authorless
	// paper; leave it for a later sweep rather than rewriting its fields.
	meta := e.metadata.Resolve(ctx, paper.DOI)
	if meta == nil || !meta.HasAuthors() {
		logger.Debug().Msg("No registry returned an author list for this DOI")
		return false
	}

	applyMetadata(paper, meta)
	if err := e.papers.UpdateMetadata(ctx, paper); err != nil {
		logger.Warn().Err(err).Msg("Failed to store enriched metadata")
		return false
	}

	return true
}
