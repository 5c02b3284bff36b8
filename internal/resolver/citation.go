package resolver

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/registries"
)

// CitationResolver looks up citation counts from an ordered chain of sources.
// The first source that knows the identifier wins; a zero count from a source
// that knows the paper is a real answer and stops the chain.
type CitationResolver struct {
	sources []registries.CitationSource
	logger  zerolog.Logger
}

// NewCitationResolver creates a resolver that consults sources in the given
// order.
func NewCitationResolver(logger zerolog.Logger, sources ...registries.CitationSource) *CitationResolver {
	return &CitationResolver{
		sources: sources,
		logger:  logger,
	}
}

// Resolve looks up the citation count for a normalized DOI. The second return
// value reports whether any source knew the identifier. It never returns an
// error, because a failed lookup must not fail the refresh that requested it.
func (r *CitationResolver) Resolve(ctx context.Context, doi string) (int, bool) {
	// Pseudo-identifiers are local constructs; no registry can know them.
	if domain.IsPseudoIdentifier(doi) {
		return 0, false
	}

	for _, source := range r.sources {
		count, err := source.FetchCitationCount(ctx, doi)
		if err != nil {
			r.logLookupFailure(source.Name(), doi, err)
			continue
		}
		return count, true
	}

	return 0, false
}

func (r *CitationResolver) logLookupFailure(source, doi string, err error) {
	event := r.logger.Debug()
	if !errors.Is(err, domain.ErrNotFound) {
		event = r.logger.Warn().Err(err)
	}
	event.Str("registry", source).Str("doi", doi).Msg("Citation lookup failed")
}
