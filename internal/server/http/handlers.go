package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxRequestBodySize caps request bodies at 1 MB.
const maxRequestBodySize = 1 << 20

// importRequest is the JSON request body for importing an ORCID profile.
type importRequest struct {
	ORCID string `json:"orcid"`
}

// importWorks handles POST /researchers/{researcherID}/import.
// It fetches the profile's declared works, reconciles their metadata and
// stores the resulting papers.
func (s *Server) importWorks(w http.ResponseWriter, r *http.Request) {
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

	var req importRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if strings.TrimSpace(req.ORCID) == "" {
		writeError(w, http.StatusBadRequest, "orcid is required")
		return
	}

	result, err := s.pipelines.Importer.ImportWorks(ctx, researcherID, req.ORCID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// refreshCitations handles POST /researchers/{researcherID}/citations/refresh.
// It re-resolves citation counts for the researcher's entire corpus.
func (s *Server) refreshCitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	researcherID, ok := parseUUID(w, chi.URLParam(r, "researcherID"), "researcher_id")
	if !ok {
		return
	}

	result, err := s.pipelines.Refresher.RefreshResearcher(ctx, researcherID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// enrichPapers handles POST /researchers/{researcherID}/papers/enrich.
// It retries metadata lookups for papers imported without authors.
func (s *Server) enrichPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	researcherID, ok := parseUUID(w, chi.URLParam(r, "researcherID"), "researcher_id")
	if !ok {
		return
	}

	result, err := s.pipelines.Enricher.EnrichResearcher(ctx, researcherID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
