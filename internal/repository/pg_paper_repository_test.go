package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papertalks/bibliometrics-service/internal/domain"
)

// Helper to create a valid paper for testing.
func newTestPaper() *domain.Paper {
	now := time.Now().UTC()
	published := time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC)
	return &domain.Paper{
		ID:            uuid.New(),
		ResearcherID:  uuid.New(),
		DOI:           "10.48550/arXiv.1706.03762",
		Title:         "Attention Is All You Need",
		Abstract:      "The dominant sequence transduction models.",
		Authors:       []string{"Ashish Vaswani", "Noam Shazeer"},
		Journal:       "NeurIPS",
		PublishedDate: &published,
		CitationCount: 10,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func mustAuthorsJSON(t *testing.T, authors []string) []byte {
	t.Helper()
	data, err := json.Marshal(authors)
	require.NoError(t, err)
	return data
}

func paperRows(paper *domain.Paper, authorsJSON []byte) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "researcher_id", "doi", "title", "abstract", "authors",
		"journal", "published_date", "citation_count", "citations_updated_at",
		"created_at", "updated_at",
	}).AddRow(
		paper.ID, paper.ResearcherID, paper.DOI, paper.Title, paper.Abstract,
		authorsJSON, paper.Journal, paper.PublishedDate, paper.CitationCount,
		paper.CitationsUpdatedAt, paper.CreatedAt, paper.UpdatedAt,
	)
}

func TestPgPaperRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates paper successfully", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		paper := newTestPaper()

		mock.ExpectQuery("INSERT INTO papers").
			WithArgs(
				paper.ID, paper.ResearcherID, paper.DOI, paper.Title, paper.Abstract,
				mustAuthorsJSON(t, paper.Authors), paper.Journal, paper.PublishedDate,
				paper.CitationCount, paper.CitationsUpdatedAt, pgxmock.AnyArg(),
			).
			WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).
				AddRow(paper.CreatedAt, paper.UpdatedAt))

		result, err := repo.Create(ctx, paper)
		require.NoError(t, err)
		assert.Equal(t, paper.ID, result.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("assigns an ID when missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		paper := newTestPaper()
		paper.ID = uuid.Nil

		mock.ExpectQuery("INSERT INTO papers").
			WithArgs(
				pgxmock.AnyArg(), paper.ResearcherID, paper.DOI, paper.Title, paper.Abstract,
				mustAuthorsJSON(t, paper.Authors), paper.Journal, paper.PublishedDate,
				paper.CitationCount, paper.CitationsUpdatedAt, pgxmock.AnyArg(),
			).
			WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).
				AddRow(paper.CreatedAt, paper.UpdatedAt))

		result, err := repo.Create(ctx, paper)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, result.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violation to already exists", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		paper := newTestPaper()

		mock.ExpectQuery("INSERT INTO papers").
			WithArgs(
				paper.ID, paper.ResearcherID, paper.DOI, paper.Title, paper.Abstract,
				mustAuthorsJSON(t, paper.Authors), paper.Journal, paper.PublishedDate,
				paper.CitationCount, paper.CitationsUpdatedAt, pgxmock.AnyArg(),
			).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err = repo.Create(ctx, paper)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects nil paper", func(t *testing.T) {
		repo := NewPgPaperRepository(nil)
		_, err := repo.Create(ctx, nil)

		var validationErr *domain.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "paper", validationErr.Field)
	})

	t.Run("rejects missing DOI", func(t *testing.T) {
		repo := NewPgPaperRepository(nil)
		paper := newTestPaper()
		paper.DOI = ""

		_, err := repo.Create(ctx, paper)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgPaperRepository_BulkInsert(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts batch and counts conflicts", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		first := newTestPaper()
		second := newTestPaper()
		second.ResearcherID = first.ResearcherID
		second.DOI = "10.1038/nature14539"

		batch := mock.ExpectBatch()
		batch.ExpectExec("INSERT INTO papers").
			WithArgs(
				first.ID, first.ResearcherID, first.DOI, first.Title, first.Abstract,
				mustAuthorsJSON(t, first.Authors), first.Journal, first.PublishedDate,
				first.CitationCount, first.CitationsUpdatedAt, pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		batch.ExpectExec("INSERT INTO papers").
			WithArgs(
				second.ID, second.ResearcherID, second.DOI, second.Title, second.Abstract,
				mustAuthorsJSON(t, second.Authors), second.Journal, second.PublishedDate,
				second.CitationCount, second.CitationsUpdatedAt, pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 0)) // conflict, skipped

		inserted, err := repo.BulkInsert(ctx, []*domain.Paper{first, second})
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		repo := NewPgPaperRepository(nil)
		inserted, err := repo.BulkInsert(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, inserted)
	})

	t.Run("rejects paper without DOI", func(t *testing.T) {
		repo := NewPgPaperRepository(nil)
		paper := newTestPaper()
		paper.DOI = ""

		_, err := repo.BulkInsert(ctx, []*domain.Paper{paper})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgPaperRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns paper", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		paper := newTestPaper()

		mock.ExpectQuery("SELECT (.+) FROM papers WHERE id").
			WithArgs(paper.ID).
			WillReturnRows(paperRows(paper, mustAuthorsJSON(t, paper.Authors)))

		result, err := repo.GetByID(ctx, paper.ID)
		require.NoError(t, err)
		assert.Equal(t, paper.DOI, result.DOI)
		assert.Equal(t, paper.Authors, result.Authors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		id := uuid.New()

		mock.ExpectQuery("SELECT (.+) FROM papers WHERE id").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		_, err = repo.GetByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPgPaperRepository_GetByDOI(t *testing.T) {
	ctx := context.Background()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)
	paper := newTestPaper()

	mock.ExpectQuery(`SELECT (.+) FROM papers\s+WHERE researcher_id = \$1 AND lower\(doi\) = lower\(\$2\)`).
		WithArgs(paper.ResearcherID, "10.48550/ARXIV.1706.03762").
		WillReturnRows(paperRows(paper, mustAuthorsJSON(t, paper.Authors)))

	result, err := repo.GetByDOI(ctx, paper.ResearcherID, "10.48550/ARXIV.1706.03762")
	require.NoError(t, err)
	assert.Equal(t, paper.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("lists with filters", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		paper := newTestPaper()
		withoutAuthors := true
		realDOI := true

		mock.ExpectQuery("SELECT COUNT").
			WithArgs(paper.ResearcherID, domain.PseudoIdentifierPrefix+"%").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
		mock.ExpectQuery("SELECT (.+) FROM papers p").
			WithArgs(paper.ResearcherID, domain.PseudoIdentifierPrefix+"%", 50, 0).
			WillReturnRows(paperRows(paper, mustAuthorsJSON(t, paper.Authors)))

		papers, total, err := repo.List(ctx, paper.ResearcherID, PaperFilter{
			WithoutAuthors: &withoutAuthors,
			RealDOI:        &realDOI,
			Limit:          50,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, papers, 1)
		assert.Equal(t, paper.ID, papers[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("applies pagination defaults", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		researcherID := uuid.New()

		mock.ExpectQuery("SELECT COUNT").
			WithArgs(researcherID).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
		mock.ExpectQuery("SELECT (.+) FROM papers p").
			WithArgs(researcherID, defaultFilterLimit, 0).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))

		_, total, err := repo.List(ctx, researcherID, PaperFilter{Limit: -5, Offset: -3})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgPaperRepository_ListDOIs(t *testing.T) {
	ctx := context.Background()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)
	researcherID := uuid.New()

	mock.ExpectQuery("SELECT doi FROM papers").
		WithArgs(researcherID).
		WillReturnRows(pgxmock.NewRows([]string{"doi"}).
			AddRow("10.1038/nature14539").
			AddRow("orcid-0000-0002-1825-0097-42"))

	dois, err := repo.ListDOIs(ctx, researcherID)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.1038/nature14539", "orcid-0000-0002-1825-0097-42"}, dois)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgPaperRepository_UpdateMetadata(t *testing.T) {
	ctx := context.Background()

	t.Run("updates fields", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		paper := newTestPaper()

		mock.ExpectExec("UPDATE papers").
			WithArgs(
				paper.Title, paper.Abstract, mustAuthorsJSON(t, paper.Authors),
				paper.Journal, paper.PublishedDate, pgxmock.AnyArg(), paper.ID,
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateMetadata(ctx, paper))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing paper", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		paper := newTestPaper()

		mock.ExpectExec("UPDATE papers").
			WithArgs(
				paper.Title, paper.Abstract, mustAuthorsJSON(t, paper.Authors),
				paper.Journal, paper.PublishedDate, pgxmock.AnyArg(), paper.ID,
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.UpdateMetadata(ctx, paper), domain.ErrNotFound)
	})
}

func TestPgPaperRepository_UpdateCitationCount(t *testing.T) {
	ctx := context.Background()

	t.Run("updates count and timestamp", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		id := uuid.New()
		checkedAt := time.Now()

		mock.ExpectExec("UPDATE papers").
			WithArgs(42, checkedAt.UTC(), id).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateCitationCount(ctx, id, 42, checkedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects negative count", func(t *testing.T) {
		repo := NewPgPaperRepository(nil)
		err := repo.UpdateCitationCount(ctx, uuid.New(), -1, time.Now())
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPgPaperRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes paper", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		id := uuid.New()

		mock.ExpectExec("DELETE FROM papers").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.Delete(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing paper", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		id := uuid.New()

		mock.ExpectExec("DELETE FROM papers").
			WithArgs(id).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.ErrorIs(t, repo.Delete(ctx, id), domain.ErrNotFound)
	})
}
