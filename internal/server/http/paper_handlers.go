package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/repository"
)

// addPaperRequest is the JSON request body for adding a single paper.
type addPaperRequest struct {
	DOI string `json:"doi"`
}

// updatePaperRequest is the JSON request body for editing a stored paper.
// All descriptive fields are replaced; an empty published_date clears the
// stored date.
type updatePaperRequest struct {
	Title         string   `json:"title"`
	Abstract      string   `json:"abstract"`
	Journal       string   `json:"journal"`
	PublishedDate string   `json:"published_date"`
	Authors       []string `json:"authors"`
}

// listPapers handles GET /researchers/{researcherID}/papers.
// Optional filters: without_authors, real_doi (both boolean).
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	researcherID, ok := parseUUID(w, chi.URLParam(r, "researcherID"), "researcher_id")
	if !ok {
		return
	}

	limit, offset := parsePaginationParams(r)
	filter := repository.PaperFilter{
		Limit:  limit,
		Offset: offset,
	}

	if param := r.URL.Query().Get("without_authors"); param != "" {
		v, err := strconv.ParseBool(param)
		if err != nil {
			writeError(w, http.StatusBadRequest, "without_authors must be a boolean")
			return
		}
		filter.WithoutAuthors = &v
	}
	if param := r.URL.Query().Get("real_doi"); param != "" {
		v, err := strconv.ParseBool(param)
		if err != nil {
			writeError(w, http.StatusBadRequest, "real_doi must be a boolean")
			return
		}
		filter.RealDOI = &v
	}

	papers, totalCount, err := s.paperRepo.List(ctx, researcherID, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]paperResponse, len(papers))
	for i, p := range papers {
		responses[i] = domainPaperToResponse(p)
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:        responses,
		NextPageToken: encodePageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// addPaper handles POST /researchers/{researcherID}/papers.
// The DOI must resolve against at least one metadata registry.
func (s *Server) addPaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	researcherID, ok := parseUUID(w, chi.URLParam(r, "researcherID"), "researcher_id")
	if !ok {
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req addPaperRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if strings.TrimSpace(req.DOI) == "" {
		writeError(w, http.StatusBadRequest, "doi is required")
		return
	}

	paper, err := s.pipelines.Importer.AddPaper(ctx, researcherID, req.DOI)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domainPaperToResponse(paper))
}

// lookupPaper handles GET /papers/lookup?doi=...
// It previews registry metadata for a DOI without storing anything, and
// reports whether any researcher already has the paper.
func (s *Server) lookupPaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawDOI := r.URL.Query().Get("doi")
	if strings.TrimSpace(rawDOI) == "" {
		writeError(w, http.StatusBadRequest, "doi query parameter is required")
		return
	}

	doi, err := domain.NormalizeDOI(rawDOI)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	meta := s.pipelines.Metadata.Resolve(ctx, doi)
	if meta == nil {
		writeError(w, http.StatusNotFound, "DOI not found in any registry")
		return
	}

	_, lookupErr := s.paperRepo.LookupByDOI(ctx, doi)

	writeJSON(w, http.StatusOK, metadataToPreviewResponse(doi, meta, lookupErr == nil))
}

// updatePaper handles PUT /papers/{paperID}. The DOI and citation fields are
// not editable; they belong to the import and refresh workflows.
func (s *Server) updatePaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req updatePaperRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	var publishedDate *time.Time
	if req.PublishedDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PublishedDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "published_date must be formatted as YYYY-MM-DD")
			return
		}
		publishedDate = &parsed
	}

	paper, err := s.paperRepo.GetByID(ctx, paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	paper.Title = strings.TrimSpace(req.Title)
	paper.Abstract = strings.TrimSpace(req.Abstract)
	paper.Journal = strings.TrimSpace(req.Journal)
	paper.PublishedDate = publishedDate
	paper.Authors = req.Authors

	if err := s.paperRepo.UpdateMetadata(ctx, paper); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainPaperToResponse(paper))
}

// refreshPaperCitations handles POST /papers/{paperID}/citations/refresh.
func (s *Server) refreshPaperCitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	paper, err := s.pipelines.Refresher.RefreshPaper(ctx, paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainPaperToResponse(paper))
}

// deletePaper handles DELETE /papers/{paperID}.
func (s *Server) deletePaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	if err := s.paperRepo.Delete(ctx, paperID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
