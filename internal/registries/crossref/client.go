// Package crossref implements the primary metadata registry adapter.
//
// Crossref has the broadest DOI coverage of the pipeline's sources but
// notoriously patchy author lists, which is why the metadata resolver
// escalates to Semantic Scholar whenever Crossref reports no authors.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/registries"
)

const (
	// DefaultBaseURL is the Crossref REST API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default requests per second. Crossref's polite
	// pool (requests carrying a mailto) tolerates this comfortably.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// collaborationLimit is the author-list size above which the list is
	// collapsed. Particle-physics-scale collaborations exceed it by orders
	// of magnitude.
	collaborationLimit = 50

	// sourceName is the human-readable name for this registry.
	sourceName = "Crossref"
)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the Crossref API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// UserAgent self-identifies the client; Crossref routes identified
	// clients to the polite pool.
	UserAgent string

	// Timeout is the request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. Defaults to DefaultRateLimit.
	RateLimit float64

	// BurstSize is the maximum burst of requests. Defaults to DefaultBurstSize.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = registries.DefaultUserAgent
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client implements registries.MetadataSource for Crossref.
type Client struct {
	config     Config
	httpClient *registries.HTTPClient
}

// Compile-time interface verification.
var _ registries.MetadataSource = (*Client)(nil)

// New creates a new Crossref client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: registries.NewHTTPClient(registries.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
			UserAgent: cfg.UserAgent,
		}),
	}
}

// NewWithHTTPClient creates a Crossref client with a custom HTTP client,
// used by tests to point at an httptest server.
func NewWithHTTPClient(cfg Config, httpClient *registries.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Name returns the human-readable registry name.
func (c *Client) Name() string {
	return sourceName
}

// FetchMetadata retrieves work metadata for a normalized DOI.
func (c *Client) FetchMetadata(ctx context.Context, doi string) (*registries.Metadata, error) {
	// Pseudo-identifiers are never resolvable; skip the network entirely.
	if domain.IsPseudoIdentifier(doi) {
		return nil, domain.NewNotFoundError("work", doi)
	}

	lookupURL := fmt.Sprintf("%s/works/%s", c.config.BaseURL, url.PathEscape(doi))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("work", doi)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Parse the response (limit body to 10MB to prevent resource exhaustion).
	var work workResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&work); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return messageToMetadata(&work.Message), nil
}

// messageToMetadata maps a Crossref work message into the internal record
// shape, sanitizing markup and collapsing collaboration-scale author lists.
func messageToMetadata(msg *workMessage) *registries.Metadata {
	meta := &registries.Metadata{
		Authors: extractAuthors(msg.Author),
	}

	if len(msg.Title) > 0 {
		meta.Title = registries.StripTags(msg.Title[0])
	}
	if msg.Abstract != "" {
		meta.Abstract = registries.StripTags(msg.Abstract)
	}
	if len(msg.ContainerTitle) > 0 {
		meta.Journal = msg.ContainerTitle[0]
	}
	meta.PublishedDate = extractDate(msg)

	return meta
}

// extractAuthors shapes the raw contributor list into display names.
// For lists over collaborationLimit entries, a collective collaboration name
// replaces the whole list when present; otherwise the list is collapsed.
func extractAuthors(raw []author) []string {
	if len(raw) == 0 {
		return nil
	}

	if len(raw) > collaborationLimit {
		for _, a := range raw {
			if a.Name != "" {
				return []string{a.Name}
			}
		}
		return registries.CollapseAuthors(formatAuthors(raw), collaborationLimit)
	}

	return formatAuthors(raw)
}

// formatAuthors renders contributor entries as display names, dropping
// entries with no name parts at all.
func formatAuthors(raw []author) []string {
	names := make([]string, 0, len(raw))
	for _, a := range raw {
		name := a.Name // collaboration name wins
		switch {
		case name != "":
		case a.Given != "" && a.Family != "":
			name = a.Given + " " + a.Family
		case a.Family != "":
			name = a.Family
		case a.Given != "":
			name = a.Given
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// extractDate picks the first date variant Crossref reports, in the order
// published, published-print, published-online, and fills missing month/day
// with 1. A variant without a year contributes nothing.
func extractDate(msg *workMessage) *time.Time {
	for _, field := range []*dateField{msg.Published, msg.PublishedPrint, msg.PublishedOnline} {
		if field == nil || len(field.DateParts) == 0 || len(field.DateParts[0]) == 0 {
			continue
		}
		parts := field.DateParts[0]
		year := parts[0]
		month, day := 0, 0
		if len(parts) >= 2 {
			month = parts[1]
		}
		if len(parts) >= 3 {
			day = parts[2]
		}
		if date := domain.PublicationDate(year, month, day); date != nil {
			return date
		}
	}
	return nil
}
