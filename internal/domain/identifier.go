package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// IdentifierKind classifies an external identifier.
type IdentifierKind string

const (
	// KindDOI is a Digital Object Identifier for a publication.
	KindDOI IdentifierKind = "doi"

	// KindORCID is an ORCID iD identifying a researcher.
	KindORCID IdentifierKind = "orcid"
)

// PseudoIdentifierPrefix marks identifiers synthesized for declared works
// that carry no real DOI. Pseudo-identifiers keep DOI-less works addressable
// and deduplicable but must never be sent to an external registry.
const PseudoIdentifierPrefix = "orcid-"

// orcidPattern is the fixed-width ORCID iD format: 0000-0000-0000-000X.
var orcidPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)

// doiURLPrefix strips "https://doi.org/" and "http://doi.org/" prefixes.
var doiURLPrefix = regexp.MustCompile(`^https?://doi\.org/`)

// orcidURLPrefix strips "https://orcid.org/" and "http://orcid.org/" prefixes.
var orcidURLPrefix = regexp.MustCompile(`^https?://orcid\.org/`)

// whitespacePattern matches any run of whitespace inside an identifier.
var whitespacePattern = regexp.MustCompile(`\s+`)

// Identifier is a normalized external identifier.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

// String returns the normalized identifier value.
func (id Identifier) String() string {
	return id.Value
}

// NormalizeIdentifier canonicalizes a raw identifier string.
// Normalization is idempotent: applying it to an already normalized value
// returns the value unchanged. Invalid input yields InvalidIdentifierError
// before any network interaction can happen.
func NormalizeIdentifier(kind IdentifierKind, raw string) (Identifier, error) {
	switch kind {
	case KindDOI:
		value, err := NormalizeDOI(raw)
		if err != nil {
			return Identifier{}, err
		}
		return Identifier{Kind: KindDOI, Value: value}, nil
	case KindORCID:
		value, err := NormalizeORCID(raw)
		if err != nil {
			return Identifier{}, err
		}
		return Identifier{Kind: KindORCID, Value: value}, nil
	default:
		return Identifier{}, fmt.Errorf("unsupported identifier kind: %q", kind)
	}
}

// NormalizeDOI canonicalizes a DOI string: trims surrounding whitespace,
// strips a leading doi.org URL or "doi:" scheme prefix, and removes internal
// whitespace. DOIs have no fixed grammar, so no further validation is applied;
// only an empty result is rejected.
func NormalizeDOI(raw string) (string, error) {
	doi := strings.TrimSpace(raw)
	doi = doiURLPrefix.ReplaceAllString(doi, "")
	doi = strings.TrimPrefix(doi, "doi:")
	doi = whitespacePattern.ReplaceAllString(doi, "")
	if doi == "" {
		return "", &InvalidIdentifierError{Kind: KindDOI, Raw: raw}
	}
	return doi, nil
}

// NormalizeORCID canonicalizes an ORCID iD: trims whitespace, strips a
// leading orcid.org URL prefix, and validates the fixed-width
// 0000-0000-0000-000X format.
func NormalizeORCID(raw string) (string, error) {
	orcid := strings.TrimSpace(raw)
	orcid = orcidURLPrefix.ReplaceAllString(orcid, "")
	orcid = whitespacePattern.ReplaceAllString(orcid, "")
	if !orcidPattern.MatchString(orcid) {
		return "", &InvalidIdentifierError{Kind: KindORCID, Raw: raw}
	}
	return orcid, nil
}

// NewPseudoIdentifier synthesizes a reserved identifier for a declared work
// without a DOI. The put code is the works registry's per-work sequence
// number, which makes the result unique within one researcher's record.
func NewPseudoIdentifier(orcid string, putCode int64) string {
	return fmt.Sprintf("%s%s-%d", PseudoIdentifierPrefix, orcid, putCode)
}

// IsPseudoIdentifier reports whether the identifier was synthesized by
// NewPseudoIdentifier. Pseudo-identifiers short-circuit all registry lookups.
func IsPseudoIdentifier(id string) bool {
	return strings.HasPrefix(id, PseudoIdentifierPrefix)
}
