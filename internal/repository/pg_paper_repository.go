package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/papertalks/bibliometrics-service/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// paperColumns is the canonical column list used by every paper query.
const paperColumns = `id, researcher_id, doi, title, abstract, authors,
		journal, published_date, citation_count, citations_updated_at,
		created_at, updated_at`

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// Create inserts a new paper.
func (r *PgPaperRepository) Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}
	if paper.DOI == "" {
		return nil, domain.NewValidationError("doi", "DOI is required")
	}
	if paper.ResearcherID == uuid.Nil {
		return nil, domain.NewValidationError("researcher_id", "researcher ID is required")
	}

	authorsJSON, err := json.Marshal(authorsOrEmpty(paper.Authors))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authors: %w", err)
	}

	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO papers (
			id, researcher_id, doi, title, abstract, authors,
			journal, published_date, citation_count, citations_updated_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
		)
		RETURNING created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		paper.ID,
		paper.ResearcherID,
		paper.DOI,
		paper.Title,
		paper.Abstract,
		authorsJSON,
		paper.Journal,
		paper.PublishedDate,
		paper.CitationCount,
		paper.CitationsUpdatedAt,
		now,
	).Scan(&paper.CreatedAt, &paper.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.NewAlreadyExistsError("paper", paper.DOI)
		}
		return nil, fmt.Errorf("failed to insert paper: %w", err)
	}

	return paper, nil
}

// BulkInsert inserts multiple papers in a single batch roundtrip. Conflicting
// DOIs are skipped silently so one already-stored paper never aborts an
// import.
func (r *PgPaperRepository) BulkInsert(ctx context.Context, papers []*domain.Paper) (int, error) {
	if len(papers) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO papers (
			id, researcher_id, doi, title, abstract, authors,
			journal, published_date, citation_count, citations_updated_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
		)
		ON CONFLICT (researcher_id, lower(doi)) DO NOTHING`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for i, paper := range papers {
		if paper == nil {
			return 0, domain.NewValidationError("paper", fmt.Sprintf("paper at index %d is nil", i))
		}
		if paper.DOI == "" {
			return 0, domain.NewValidationError("doi", fmt.Sprintf("paper at index %d has no DOI", i))
		}
		if paper.ID == uuid.Nil {
			paper.ID = uuid.New()
		}

		authorsJSON, err := json.Marshal(authorsOrEmpty(paper.Authors))
		if err != nil {
			return 0, fmt.Errorf("failed to marshal authors: %w", err)
		}

		batch.Queue(query,
			paper.ID,
			paper.ResearcherID,
			paper.DOI,
			paper.Title,
			paper.Abstract,
			authorsJSON,
			paper.Journal,
			paper.PublishedDate,
			paper.CitationCount,
			paper.CitationsUpdatedAt,
			now,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range papers {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert paper batch: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	return inserted, nil
}

// GetByID retrieves a paper by its UUID.
func (r *PgPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	query := fmt.Sprintf(`SELECT %s FROM papers WHERE id = $1`, paperColumns)

	paper, err := scanPaper(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", id.String())
		}
		return nil, fmt.Errorf("failed to get paper by ID: %w", err)
	}

	return paper, nil
}

// GetByDOI retrieves a researcher's paper by DOI, ignoring case.
func (r *PgPaperRepository) GetByDOI(ctx context.Context, researcherID uuid.UUID, doi string) (*domain.Paper, error) {
	if doi == "" {
		return nil, domain.NewValidationError("doi", "DOI is required")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM papers
		WHERE researcher_id = $1 AND lower(doi) = lower($2)`, paperColumns)

	paper, err := scanPaper(r.db.QueryRow(ctx, query, researcherID, doi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", doi)
		}
		return nil, fmt.Errorf("failed to get paper by DOI: %w", err)
	}

	return paper, nil
}

// LookupByDOI retrieves any stored paper with the given DOI, ignoring case.
func (r *PgPaperRepository) LookupByDOI(ctx context.Context, doi string) (*domain.Paper, error) {
	if doi == "" {
		return nil, domain.NewValidationError("doi", "DOI is required")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM papers
		WHERE lower(doi) = lower($1)
		ORDER BY created_at DESC
		LIMIT 1`, paperColumns)

	paper, err := scanPaper(r.db.QueryRow(ctx, query, doi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", doi)
		}
		return nil, fmt.Errorf("failed to look up paper by DOI: %w", err)
	}

	return paper, nil
}

// ListByResearcher retrieves all of a researcher's papers, most recent first.
func (r *PgPaperRepository) ListByResearcher(ctx context.Context, researcherID uuid.UUID) ([]*domain.Paper, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM papers
		WHERE researcher_id = $1
		ORDER BY created_at DESC`, paperColumns)

	rows, err := r.db.Query(ctx, query, researcherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	return collectPapers(rows)
}

// List retrieves a researcher's papers matching the filter criteria.
func (r *PgPaperRepository) List(ctx context.Context, researcherID uuid.UUID, filter PaperFilter) ([]*domain.Paper, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	conditions := []string{"p.researcher_id = $1"}
	args := []interface{}{researcherID}
	argIndex := 2

	if filter.WithoutAuthors != nil {
		if *filter.WithoutAuthors {
			conditions = append(conditions, "jsonb_array_length(p.authors) = 0")
		} else {
			conditions = append(conditions, "jsonb_array_length(p.authors) > 0")
		}
	}

	if filter.RealDOI != nil {
		op := "NOT ILIKE"
		if !*filter.RealDOI {
			op = "ILIKE"
		}
		conditions = append(conditions, fmt.Sprintf("p.doi %s $%d", op, argIndex))
		args = append(args, domain.PseudoIdentifierPrefix+"%")
		argIndex++
	}

	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM papers p %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT p.id, p.researcher_id, p.doi, p.title, p.abstract, p.authors,
			p.journal, p.published_date, p.citation_count, p.citations_updated_at,
			p.created_at, p.updated_at
		FROM papers p
		%s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	papers, err := collectPapers(rows)
	if err != nil {
		return nil, 0, err
	}

	return papers, totalCount, nil
}

// ListDOIs retrieves the DOIs of all of a researcher's papers.
func (r *PgPaperRepository) ListDOIs(ctx context.Context, researcherID uuid.UUID) ([]string, error) {
	query := `SELECT doi FROM papers WHERE researcher_id = $1`

	rows, err := r.db.Query(ctx, query, researcherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list DOIs: %w", err)
	}
	defer rows.Close()

	var dois []string
	for rows.Next() {
		var doi string
		if err := rows.Scan(&doi); err != nil {
			return nil, fmt.Errorf("failed to scan DOI: %w", err)
		}
		dois = append(dois, doi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating DOIs: %w", err)
	}

	return dois, nil
}

// UpdateMetadata updates the descriptive fields of a paper.
func (r *PgPaperRepository) UpdateMetadata(ctx context.Context, paper *domain.Paper) error {
	if paper == nil {
		return domain.NewValidationError("paper", "paper cannot be nil")
	}

	authorsJSON, err := json.Marshal(authorsOrEmpty(paper.Authors))
	if err != nil {
		return fmt.Errorf("failed to marshal authors: %w", err)
	}

	query := `
		UPDATE papers
		SET title = $1, abstract = $2, authors = $3, journal = $4,
			published_date = $5, updated_at = $6
		WHERE id = $7`

	result, err := r.db.Exec(ctx, query,
		paper.Title,
		paper.Abstract,
		authorsJSON,
		paper.Journal,
		paper.PublishedDate,
		time.Now().UTC(),
		paper.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update paper metadata: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", paper.ID.String())
	}

	return nil
}

// UpdateCitationCount stores a freshly resolved citation count.
func (r *PgPaperRepository) UpdateCitationCount(ctx context.Context, id uuid.UUID, count int, checkedAt time.Time) error {
	if count < 0 {
		return domain.NewValidationError("citation_count", "citation count cannot be negative")
	}

	query := `
		UPDATE papers
		SET citation_count = $1, citations_updated_at = $2, updated_at = $2
		WHERE id = $3`

	result, err := r.db.Exec(ctx, query, count, checkedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update citation count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id.String())
	}

	return nil
}

// Delete removes a paper.
func (r *PgPaperRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM papers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete paper: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("paper", id.String())
	}

	return nil
}

// authorsOrEmpty keeps the authors column a JSON array even for papers with
// no known authors.
func authorsOrEmpty(authors []string) []string {
	if authors == nil {
		return []string{}
	}
	return authors
}

// scanPaper scans a single paper row.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var paper domain.Paper
	var authorsJSON []byte

	err := row.Scan(
		&paper.ID,
		&paper.ResearcherID,
		&paper.DOI,
		&paper.Title,
		&paper.Abstract,
		&authorsJSON,
		&paper.Journal,
		&paper.PublishedDate,
		&paper.CitationCount,
		&paper.CitationsUpdatedAt,
		&paper.CreatedAt,
		&paper.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(authorsJSON) > 0 {
		if err := json.Unmarshal(authorsJSON, &paper.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}

	return &paper, nil
}

// collectPapers drains rows into a slice of papers.
func collectPapers(rows pgx.Rows) ([]*domain.Paper, error) {
	var papers []*domain.Paper
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating papers: %w", err)
	}

	return papers, nil
}
