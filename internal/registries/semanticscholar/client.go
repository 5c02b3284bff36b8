// Package semanticscholar implements the secondary metadata registry adapter.
//
// Semantic Scholar backfills author lists that Crossref is missing and is the
// first choice for citation counts.
package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/registries"
)

const (
	// DefaultBaseURL is the Semantic Scholar Graph API base URL.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default requests per second for
	// unauthenticated clients.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// metadataFields selects the fields requested for metadata lookups.
	metadataFields = "title,abstract,authors"

	// citationFields selects the fields requested for citation lookups.
	citationFields = "citationCount"

	// collapseLimit is the author-list size above which the list is
	// collapsed to the leading names plus a summary entry.
	collapseLimit = 10

	// sourceName is the human-readable name for this registry.
	sourceName = "Semantic Scholar"
)

// Config holds configuration for the Semantic Scholar client.
type Config struct {
	// BaseURL is the Graph API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is the optional API key; authenticated clients get higher
	// rate limits.
	APIKey string

	// UserAgent self-identifies the client.
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

// paperResponse captures the fields used from a Graph API paper record.
type paperResponse struct {
	Title         string       `json:"title"`
	Abstract      string       `json:"abstract"`
	Authors       []authorInfo `json:"authors"`
	CitationCount *int         `json:"citationCount"`
}

// authorInfo is a flat author entry; Semantic Scholar reports display names
// directly rather than given/family parts.
type authorInfo struct {
	Name string `json:"name"`
}

// Client implements registries.MetadataSource and registries.CitationSource
// for Semantic Scholar.
type Client struct {
	config     Config
	httpClient *registries.HTTPClient
}

// Compile-time interface verification.
var (
	_ registries.MetadataSource = (*Client)(nil)
	_ registries.CitationSource = (*Client)(nil)
)

// New creates a new Semantic Scholar client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: registries.NewHTTPClient(registries.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			UserAgent:    cfg.UserAgent,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		}),
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client, used by
// tests to point at an httptest server.
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

// FetchMetadata retrieves title, abstract and authors for a normalized DOI.
func (c *Client) FetchMetadata(ctx context.Context, doi string) (*registries.Metadata, error) {
	paper, err := c.fetchPaper(ctx, doi, metadataFields)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(paper.Authors))
	for _, a := range paper.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}

	return &registries.Metadata{
		Title:    registries.StripTags(paper.Title),
		Abstract: registries.StripTags(paper.Abstract),
		Authors:  registries.CollapseAuthors(names, collapseLimit),
	}, nil
}

// FetchCitationCount retrieves the citation count for a normalized DOI.
// A record without the citationCount field is reported as not found.
func (c *Client) FetchCitationCount(ctx context.Context, doi string) (int, error) {
	paper, err := c.fetchPaper(ctx, doi, citationFields)
	if err != nil {
		return 0, err
	}
	if paper.CitationCount == nil {
		return 0, domain.NewNotFoundError("citation count", doi)
	}
	return *paper.CitationCount, nil
}

// fetchPaper performs a Graph API paper lookup with the given field list.
func (c *Client) fetchPaper(ctx context.Context, doi, fields string) (*paperResponse, error) {
	// Pseudo-identifiers are never resolvable; skip the network entirely.
	if domain.IsPseudoIdentifier(doi) {
		return nil, domain.NewNotFoundError("paper", doi)
	}

	lookupURL := fmt.Sprintf("%s/paper/DOI:%s?fields=%s", c.config.BaseURL, url.PathEscape(doi), url.QueryEscape(fields))

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
		return nil, domain.NewNotFoundError("paper", doi)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Parse the response (limit body to 10MB to prevent resource exhaustion).
	var paper paperResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&paper); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &paper, nil
}
