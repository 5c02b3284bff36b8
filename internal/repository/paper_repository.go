package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/papertalks/bibliometrics-service/internal/domain"
)

// PaperRepository handles paper persistence and deduplication. Every paper
// belongs to exactly one researcher; the (researcher, DOI) pair is unique
// with case-insensitive DOI comparison.
type PaperRepository interface {
	// Create inserts a new paper.
	// Returns domain.ErrAlreadyExists if the researcher already has a paper
	// with the same DOI, ignoring case.
	Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// BulkInsert inserts multiple papers in a single batch roundtrip,
	// skipping papers whose DOI the researcher already has. Returns the
	// number of papers actually inserted.
	BulkInsert(ctx context.Context, papers []*domain.Paper) (int, error)

	// GetByID retrieves a paper by its internal UUID.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// GetByDOI retrieves a researcher's paper by DOI, ignoring case.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByDOI(ctx context.Context, researcherID uuid.UUID, doi string) (*domain.Paper, error)

	// LookupByDOI retrieves any stored paper with the given DOI, ignoring
	// case and researcher. When several researchers share the DOI the most
	// recently created record wins.
	// Returns domain.ErrNotFound if no matching paper exists.
	LookupByDOI(ctx context.Context, doi string) (*domain.Paper, error)

	// ListByResearcher retrieves all of a researcher's papers, most recent
	// first. Used by bulk operations that must see the full set.
	ListByResearcher(ctx context.Context, researcherID uuid.UUID) ([]*domain.Paper, error)

	// List retrieves a researcher's papers matching the filter criteria.
	// Returns the matching papers and total count for pagination.
	List(ctx context.Context, researcherID uuid.UUID, filter PaperFilter) ([]*domain.Paper, int64, error)

	// ListDOIs retrieves the DOIs of all of a researcher's papers. Used to
	// build the deduplication set during imports.
	ListDOIs(ctx context.Context, researcherID uuid.UUID) ([]string, error)

	// UpdateMetadata updates the descriptive fields of a paper: title,
	// abstract, authors, journal and publication date.
	// Returns domain.ErrNotFound if the paper does not exist.
	UpdateMetadata(ctx context.Context, paper *domain.Paper) error

	// UpdateCitationCount stores a freshly resolved citation count and the
	// time it was resolved.
	// Returns domain.ErrNotFound if the paper does not exist.
	UpdateCitationCount(ctx context.Context, id uuid.UUID, count int, checkedAt time.Time) error

	// Delete removes a paper.
	// Returns domain.ErrNotFound if the paper does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaperFilter specifies criteria for listing a researcher's papers.
type PaperFilter struct {
	// WithoutAuthors filters by author-list presence (optional).
	// When true, only papers with an empty author list are returned.
	// When false, only papers with at least one author are returned.
	// When nil, no filtering is applied.
	WithoutAuthors *bool

	// RealDOI filters by identifier kind (optional).
	// When true, only papers with a registry-resolvable DOI are returned.
	// When false, only papers carrying a locally synthesized identifier
	// are returned.
	// When nil, no filtering is applied.
	RealDOI *bool

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *PaperFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
