// Package registries provides clients for the external scholarly registries
// the aggregation pipeline reconciles against.
//
// Each registry (Crossref, Semantic Scholar, OpenCitations, ORCID) has its own
// subpackage that parses the registry's native response shape into the strict
// internal types defined here, at the adapter boundary. Raw registry JSON
// never travels past the adapter layer.
//
// Adapters signal "no data" with an error satisfying errors.Is(err,
// domain.ErrNotFound); transport failures surface as other errors. The
// resolvers treat both identically for control flow and never issue a network
// call for a reserved pseudo-identifier.
package registries

import (
	"context"
	"time"
)

// Metadata is the reconciled-record fragment a metadata registry can
// contribute for a DOI. Zero-valued fields mean the registry reported
// nothing for that field.
type Metadata struct {
	// Title is the work's title, with markup stripped.
	Title string

	// Abstract is the work's abstract, with markup stripped.
	Abstract string

	// Authors is the ordered display-name list, already collapsed for
	// collaboration-scale papers (see CollapseAuthors).
	Authors []string

	// Journal is the container/journal title.
	Journal string

	// PublishedDate is the publication date with month/day defaulted to 1
	// when the registry reported a partial date. Nil when the registry
	// reported no year at all.
	PublishedDate *time.Time
}

// HasAuthors reports whether the registry contributed at least one author.
func (m *Metadata) HasAuthors() bool {
	return m != nil && len(m.Authors) > 0
}

// MetadataSource is a registry that can look up work metadata by DOI.
type MetadataSource interface {
	// FetchMetadata retrieves metadata for a normalized DOI.
	// Returns an error satisfying domain.ErrNotFound when the registry has
	// no record for the DOI or the DOI is a reserved pseudo-identifier.
	FetchMetadata(ctx context.Context, doi string) (*Metadata, error)

	// Name returns a human-readable registry name for logging and metrics.
	Name() string
}

// CitationSource is a registry that can report a citation count by DOI.
type CitationSource interface {
	// FetchCitationCount retrieves the citation count for a normalized DOI.
	// Returns an error satisfying domain.ErrNotFound when the registry has
	// no count for the DOI or the DOI is a reserved pseudo-identifier.
	FetchCitationCount(ctx context.Context, doi string) (int, error)

	// Name returns a human-readable registry name for logging and metrics.
	Name() string
}
