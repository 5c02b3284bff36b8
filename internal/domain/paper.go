package domain

import (
	"time"

	"github.com/google/uuid"
)

// Paper is a reconciled publication record in a researcher's corpus.
//
// DOI holds the normalized identifier used for deduplication; for declared
// works without a real DOI it holds a pseudo-identifier (see
// NewPseudoIdentifier). The DOI is unique (case-insensitively) within one
// researcher's corpus.
type Paper struct {
	ID                 uuid.UUID
	ResearcherID       uuid.UUID
	DOI                string
	Title              string
	Abstract           string
	Authors            []string
	Journal            string
	PublishedDate      *time.Time
	CitationCount      int
	CitationsUpdatedAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasAuthors reports whether the paper carries at least one author name.
// Papers without authors are candidates for the enrichment sweep.
func (p *Paper) HasAuthors() bool {
	return len(p.Authors) > 0
}

// HasRealDOI reports whether the paper's identifier can be resolved against
// external registries. Pseudo-identifiers are never sent over the network.
func (p *Paper) HasRealDOI() bool {
	return p.DOI != "" && !IsPseudoIdentifier(p.DOI)
}

// PublicationDate assembles a calendar date from partial year/month/day
// values as reported by a works registry. Month and day default to 1 when
// absent. A missing year means no date at all, not a default.
func PublicationDate(year, month, day int) *time.Time {
	if year <= 0 {
		return nil
	}
	if month <= 0 {
		month = 1
	}
	if day <= 0 {
		day = 1
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}
