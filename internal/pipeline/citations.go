package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/papertalks/bibliometrics-service/internal/batch"
	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/observability"
	"github.com/papertalks/bibliometrics-service/internal/repository"
)

// RefreshResult summarizes one citation refresh run.
type RefreshResult struct {
	// Total is the number of papers examined.
	Total int `json:"total"`

	// Updated is the number of papers with a freshly stored count.
	Updated int `json:"updated"`

	// Failed is the number of papers no registry could resolve.
	Failed int `json:"failed"`

	// Skipped is the number of papers without a registry-resolvable DOI.
	Skipped int `json:"skipped"`
}

// CitationRefresher re-resolves citation counts for stored papers.
type CitationRefresher struct {
	citations CitationLookup
	papers    repository.PaperRepository
	metrics   *observability.Metrics
	logger    zerolog.Logger
	batchSize int
}

// NewCitationRefresher creates a refresher. A non-positive batchSize falls
// back to DefaultCitationBatchSize. Metrics may be nil in tests.
func NewCitationRefresher(
	citations CitationLookup,
	papers repository.PaperRepository,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	batchSize int,
) *CitationRefresher {
	if batchSize <= 0 {
		batchSize = DefaultCitationBatchSize
	}
	return &CitationRefresher{
		citations: citations,
		papers:    papers,
		metrics:   metrics,
		logger:    logger,
		batchSize: batchSize,
	}
}

// RefreshResearcher refreshes citation counts for every paper of a
// researcher. Papers under synthesized identifiers are skipped without a
// lookup; resolution failures are counted, never propagated.
func (cr *CitationRefresher) RefreshResearcher(ctx context.Context, researcherID uuid.UUID) (*RefreshResult, error) {
	papers, err := cr.papers.ListByResearcher(ctx, researcherID)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}

	result := &RefreshResult{Total: len(papers)}

	var resolvable []*domain.Paper
	for _, paper := range papers {
		if paper.HasRealDOI() {
			resolvable = append(resolvable, paper)
		} else {
			result.Skipped++
		}
	}

	outcomes, err := batch.Run(ctx, resolvable, cr.batchSize, func(ctx context.Context, paper *domain.Paper) bool {
		return cr.refreshOne(ctx, paper)
	})
	if err != nil {
		return nil, err
	}

	for _, ok := range outcomes {
		if ok {
			result.Updated++
		} else {
			result.Failed++
		}
	}

	if cr.metrics != nil {
		cr.metrics.RecordCitationRefreshes(result.Updated, result.Failed, result.Skipped)
	}
	cr.logger.Info().
		Str("researcher_id", researcherID.String()).
		Int("total", result.Total).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("Citation refresh finished")

	return result, nil
}

// RefreshPaper refreshes the citation count of a single paper and returns the
// updated record. Papers under synthesized identifiers are rejected.
func (cr *CitationRefresher) RefreshPaper(ctx context.Context, paperID uuid.UUID) (*domain.Paper, error) {
	paper, err := cr.papers.GetByID(ctx, paperID)
	if err != nil {
		return nil, err
	}

	if !paper.HasRealDOI() {
		return nil, domain.NewValidationError("doi", "paper has no registry-resolvable DOI")
	}

	count, ok := cr.citations.Resolve(ctx, paper.DOI)
	if !ok {
		return nil, domain.NewNotFoundError("citation count", paper.DOI)
	}

	now := time.Now().UTC()
	if err := cr.papers.UpdateCitationCount(ctx, paper.ID, count, now); err != nil {
		return nil, err
	}

	paper.CitationCount = count
	paper.CitationsUpdatedAt = &now

	if cr.metrics != nil {
		cr.metrics.RecordCitationRefreshes(1, 0, 0)
	}

	return paper, nil
}

func (cr *CitationRefresher) refreshOne(ctx context.Context, paper *domain.Paper) bool {
	logger := observability.WithPaperContext(cr.logger, paper.ID.String(), paper.DOI)

	count, ok := cr.citations.Resolve(ctx, paper.DOI)
	if !ok {
		logger.Debug().Msg("No registry knows this DOI")
		return false
	}

	if err := cr.papers.UpdateCitationCount(ctx, paper.ID, count, time.Now().UTC()); err != nil {
		logger.Warn().Err(err).Msg("Failed to store citation count")
		return false
	}

	return true
}
