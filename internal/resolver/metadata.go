// Package resolver chains registry adapters into fault-tolerant lookups.
// Registries disagree and fail independently; resolvers consult them in a
// configured order and degrade to partial or absent results instead of
// surfacing transport failures to callers.
package resolver

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/registries"
)

// MetadataResolver merges paper metadata from an ordered chain of sources.
// Earlier sources win on every field, except authors: a source that returns
// no authors cedes the author list to the next source in the chain.
type MetadataResolver struct {
	sources []registries.MetadataSource
	logger  zerolog.Logger
}

// NewMetadataResolver creates a resolver that consults sources in the given
// order.
func NewMetadataResolver(logger zerolog.Logger, sources ...registries.MetadataSource) *MetadataResolver {
	return &MetadataResolver{
		sources: sources,
		logger:  logger,
	}
}

// Resolve looks up metadata for a normalized DOI. It returns nil when no
// source knows the identifier; it never returns an error, because a failed
// lookup must not fail the import that requested it.
func (r *MetadataResolver) Resolve(ctx context.Context, doi string) *registries.Metadata {
	// Pseudo-identifiers are local constructs; no registry can know them.
	if domain.IsPseudoIdentifier(doi) {
		return nil
	}

	var merged *registries.Metadata
	for _, source := range r.sources {
		// Later sources are only consulted while the author list is
		// still missing.
		if merged != nil && merged.HasAuthors() {
			break
		}

		meta, err := source.FetchMetadata(ctx, doi)
		if err != nil {
			r.logLookupFailure(source.Name(), doi, err)
			continue
		}

		merged = mergeMetadata(merged, meta)
	}

	return merged
}

// logLookupFailure records a source failure. A true miss is routine and logged
// at debug; anything else indicates a registry problem worth a warning.
func (r *MetadataResolver) logLookupFailure(source, doi string, err error) {
	event := r.logger.Debug()
	if !errors.Is(err, domain.ErrNotFound) {
		event = r.logger.Warn().Err(err)
	}
	event.Str("registry", source).Str("doi", doi).Msg("Metadata lookup failed")
}

// mergeMetadata fills the empty fields of base from next. Fields already
// present in base are kept.
func mergeMetadata(base, next *registries.Metadata) *registries.Metadata {
	if next == nil {
		return base
	}
	if base == nil {
		merged := *next
		return &merged
	}

	if base.Title == "" {
		base.Title = next.Title
	}
	if base.Abstract == "" {
		base.Abstract = next.Abstract
	}
	if base.Journal == "" {
		base.Journal = next.Journal
	}
	if base.PublishedDate == nil {
		base.PublishedDate = next.PublishedDate
	}
	if !base.HasAuthors() {
		base.Authors = next.Authors
	}

	return base
}
