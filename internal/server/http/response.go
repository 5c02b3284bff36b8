package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/registries"
)

// Pagination constants.
const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type paperResponse struct {
	ID                 string     `json:"id"`
	ResearcherID       string     `json:"researcher_id"`
	DOI                string     `json:"doi"`
	RealDOI            bool       `json:"real_doi"`
	Title              string     `json:"title"`
	Abstract           string     `json:"abstract,omitempty"`
	Authors            []string   `json:"authors"`
	Journal            string     `json:"journal,omitempty"`
	PublishedDate      *time.Time `json:"published_date,omitempty"`
	CitationCount      int        `json:"citation_count"`
	CitationsUpdatedAt *time.Time `json:"citations_updated_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// previewResponse is the registry metadata preview for a DOI that has not
// necessarily been stored.
type previewResponse struct {
	DOI           string     `json:"doi"`
	Title         string     `json:"title"`
	Abstract      string     `json:"abstract,omitempty"`
	Authors       []string   `json:"authors"`
	Journal       string     `json:"journal,omitempty"`
	PublishedDate *time.Time `json:"published_date,omitempty"`
	AlreadyStored bool       `json:"already_stored"`
}

func metadataToPreviewResponse(doi string, meta *registries.Metadata, stored bool) previewResponse {
	authors := meta.Authors
	if authors == nil {
		authors = []string{}
	}
	return previewResponse{
		DOI:           doi,
		Title:         meta.Title,
		Abstract:      meta.Abstract,
		Authors:       authors,
		Journal:       meta.Journal,
		PublishedDate: meta.PublishedDate,
		AlreadyStored: stored,
	}
}

type listPapersResponse struct {
	Papers        []paperResponse `json:"papers"`
	NextPageToken string          `json:"next_page_token,omitempty"`
	TotalCount    int             `json:"total_count"`
}

func domainPaperToResponse(p *domain.Paper) paperResponse {
	authors := p.Authors
	if authors == nil {
		authors = []string{}
	}
	return paperResponse{
		ID:                 p.ID.String(),
		ResearcherID:       p.ResearcherID.String(),
		DOI:                p.DOI,
		RealDOI:            p.HasRealDOI(),
		Title:              p.Title,
		Abstract:           p.Abstract,
		Authors:            authors,
		Journal:            p.Journal,
		PublishedDate:      p.PublishedDate,
		CitationCount:      p.CitationCount,
		CitationsUpdatedAt: p.CitationsUpdatedAt,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers already sent, nothing to do.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// writeDomainError maps domain errors to appropriate HTTP status codes and
// writes a JSON error response. Internal error details are not leaked to
// clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidIdentifier):
		var ie *domain.InvalidIdentifierError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadRequest, ie.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid identifier")
		}
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrNoWorks):
		writeError(w, http.StatusNotFound, "no works declared on profile")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if
// invalid. The parse error details are not echoed back.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query
// parameters, applying default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodePageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodePageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
