// Package pipeline implements the aggregation workflows of the service:
// importing a researcher's declared works from ORCID, refreshing citation
// counts and sweeping up missing metadata. Workflows degrade on registry
// failures; a paper that cannot be enriched is still imported.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/papertalks/bibliometrics-service/internal/batch"
	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/observability"
	"github.com/papertalks/bibliometrics-service/internal/registries"
	"github.com/papertalks/bibliometrics-service/internal/registries/orcid"
	"github.com/papertalks/bibliometrics-service/internal/repository"
	"github.com/papertalks/bibliometrics-service/internal/resolver"
)

// Default chunk sizes for concurrent registry lookups.
const (
	DefaultEnrichBatchSize   = 5
	DefaultCitationBatchSize = 10
)

// WorksSource fetches the works declared on an ORCID profile.
type WorksSource interface {
	FetchWorks(ctx context.Context, orcid string) ([]orcid.DeclaredWork, error)
}

// MetadataLookup resolves paper metadata for a DOI, or nil when no registry
// knows it.
type MetadataLookup interface {
	Resolve(ctx context.Context, doi string) *registries.Metadata
}

// CitationLookup resolves a citation count for a DOI. The second return
// value reports whether any registry knew the identifier.
type CitationLookup interface {
	Resolve(ctx context.Context, doi string) (int, bool)
}

// Compile-time interface verification.
var (
	_ WorksSource    = (*orcid.Client)(nil)
	_ MetadataLookup = (*resolver.MetadataResolver)(nil)
	_ CitationLookup = (*resolver.CitationResolver)(nil)
)

// ImportResult summarizes one import run.
type ImportResult struct {
	// Total is the number of works declared on the profile.
	Total int `json:"total"`

	// Imported is the number of papers stored.
	Imported int `json:"imported"`

	// Skipped is the number of works not stored because the researcher
	// already has them.
	Skipped int `json:"skipped"`

	// Enriched is the number of stored papers whose author list was filled
	// from a registry.
	Enriched int `json:"enriched"`
}

// Importer turns declared ORCID works into stored, enriched papers.
type Importer struct {
	works           WorksSource
	metadata        MetadataLookup
	papers          repository.PaperRepository
	metrics         *observability.Metrics
	logger          zerolog.Logger
	enrichBatchSize int
}

// NewImporter creates an importer. A non-positive enrichBatchSize falls back
// to DefaultEnrichBatchSize. Metrics may be nil in tests.
func NewImporter(
	works WorksSource,
	metadata MetadataLookup,
	papers repository.PaperRepository,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	enrichBatchSize int,
) *Importer {
	if enrichBatchSize <= 0 {
		enrichBatchSize = DefaultEnrichBatchSize
	}
	return &Importer{
		works:           works,
		metadata:        metadata,
		papers:          papers,
		metrics:         metrics,
		logger:          logger,
		enrichBatchSize: enrichBatchSize,
	}
}

// ImportWorks imports every work declared on the given ORCID profile for the
// researcher. Works without a usable DOI are stored under a synthesized
// identifier so they still count toward publication totals.
func (im *Importer) ImportWorks(ctx context.Context, researcherID uuid.UUID, rawORCID string) (*ImportResult, error) {
	orcidID, err := domain.NormalizeORCID(rawORCID)
	if err != nil {
		return nil, err
	}

	logger := observability.WithResearcherContext(im.logger, researcherID.String(), orcidID)
	logger.Info().Msg("Import started")

	start := time.Now()
	if im.metrics != nil {
		im.metrics.RecordImportStarted()
	}

	result, err := im.runImport(ctx, researcherID, orcidID, logger)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		if im.metrics != nil {
			im.metrics.RecordImportFailed(elapsed)
		}
		return nil, err
	}

	if im.metrics != nil {
		im.metrics.RecordImportCompleted(result.Imported, result.Skipped, result.Enriched, elapsed)
	}
	logger.Info().
		Int("total", result.Total).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Int("enriched", result.Enriched).
		Msg("Import finished")

	return result, nil
}

func (im *Importer) runImport(ctx context.Context, researcherID uuid.UUID, orcidID string, logger zerolog.Logger) (*ImportResult, error) {
	works, err := im.works.FetchWorks(ctx, orcidID)
	if err != nil {
		return nil, err
	}

	existing, err := im.papers.ListDOIs(ctx, researcherID)
	if err != nil {
		return nil, fmt.Errorf("listing existing papers: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, doi := range existing {
		seen[strings.ToLower(doi)] = struct{}{}
	}

	result := &ImportResult{Total: len(works)}

	var candidates []*domain.Paper
	for _, work := range works {
		// Untitled works are unusable; they count toward the total only.
		if work.Title == "" {
			continue
		}

		doi := workIdentifier(orcidID, work)
		key := strings.ToLower(doi)
		if _, dup := seen[key]; dup {
			result.Skipped++
			continue
		}
		seen[key] = struct{}{}

		candidates = append(candidates, &domain.Paper{
			ResearcherID:  researcherID,
			DOI:           doi,
			Title:         work.Title,
			Journal:       work.Journal,
			PublishedDate: work.PublishedDate(),
		})
	}

	enriched, err := im.enrichCandidates(ctx, candidates)
	if err != nil {
		return nil, err
	}
	result.Enriched = enriched

	inserted, err := im.papers.BulkInsert(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("storing imported papers: %w", err)
	}
	result.Imported = inserted
	// Papers another import stored concurrently surface as conflicts here.
	result.Skipped += len(candidates) - inserted

	logger.Debug().Int("candidates", len(candidates)).Int("inserted", inserted).Msg("Candidates stored")

	return result, nil
}

// enrichCandidates fills registry metadata into candidates that carry a real
// DOI, a bounded chunk at a time. Lookup misses leave the declared fields in
// place. A candidate counts as enriched only when a registry produced its
// author list; other registry fields still overlay the declared ones.
func (im *Importer) enrichCandidates(ctx context.Context, candidates []*domain.Paper) (int, error) {
	var resolvable []*domain.Paper
	for _, paper := range candidates {
		if paper.HasRealDOI() {
			resolvable = append(resolvable, paper)
		}
	}

	outcomes, err := batch.Run(ctx, resolvable, im.enrichBatchSize, func(ctx context.Context, paper *domain.Paper) bool {
		meta := im.metadata.Resolve(ctx, paper.DOI)
		if meta == nil {
			return false
		}
		applyMetadata(paper, meta)
		return meta.HasAuthors()
	})
	if err != nil {
		return 0, err
	}

	enriched := 0
	for _, ok := range outcomes {
		if ok {
			enriched++
		}
	}
	return enriched, nil
}

// AddPaper stores a single paper by DOI, resolving its metadata first.
// Returns domain.ErrNotFound when no registry knows the DOI and
// domain.ErrAlreadyExists when the researcher already has it.
func (im *Importer) AddPaper(ctx context.Context, researcherID uuid.UUID, rawDOI string) (*domain.Paper, error) {
	doi, err := domain.NormalizeDOI(rawDOI)
	if err != nil {
		return nil, err
	}

	if _, err := im.papers.GetByDOI(ctx, researcherID, doi); err == nil {
		return nil, domain.NewAlreadyExistsError("paper", doi)
	}

	meta := im.metadata.Resolve(ctx, doi)
	if meta == nil {
		return nil, domain.NewNotFoundError("paper metadata", doi)
	}

	paper := &domain.Paper{
		ResearcherID: researcherID,
		DOI:          doi,
	}
	applyMetadata(paper, meta)

	return im.papers.Create(ctx, paper)
}

// workIdentifier picks the stored identifier for a declared work: its
// normalized DOI when it has a valid one, otherwise a synthesized identifier
// derived from the profile and put code.
func workIdentifier(orcidID string, work orcid.DeclaredWork) string {
	if work.DOI != "" {
		if doi, err := domain.NormalizeDOI(work.DOI); err == nil {
			return doi
		}
	}
	return domain.NewPseudoIdentifier(orcidID, work.PutCode)
}

// applyMetadata overlays registry metadata onto a paper. Registry fields win
// when present; declared fields survive registry gaps.
func applyMetadata(paper *domain.Paper, meta *registries.Metadata) {
	if meta.Title != "" {
		paper.Title = meta.Title
	}
	if meta.Abstract != "" {
		paper.Abstract = meta.Abstract
	}
	if meta.Journal != "" {
		paper.Journal = meta.Journal
	}
	if meta.PublishedDate != nil {
		paper.PublishedDate = meta.PublishedDate
	}
	if meta.HasAuthors() {
		paper.Authors = meta.Authors
	}
}
