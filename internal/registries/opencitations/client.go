// Package opencitations implements the fallback citation-count registry
// adapter backed by the OpenCitations COCI index.
package opencitations

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
	// DefaultBaseURL is the OpenCitations API base URL.
	DefaultBaseURL = "https://opencitations.net"

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 5.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// apiKeyHeader is the header name for the OpenCitations access token.
	apiKeyHeader = "authorization"

	// sourceName is the human-readable name for this registry.
	sourceName = "OpenCitations"
)

// Config holds configuration for the OpenCitations client.
type Config struct {
	// BaseURL is the API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// AccessToken is the optional OpenCitations access token.
	AccessToken string

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

// countRecord is one element of the citation-count response array. The count
// is strict-typed so that records reporting anything other than a JSON number
// fail to decode instead of silently becoming zero.
type countRecord struct {
	Count *int `json:"count"`
}

// Client implements registries.CitationSource for OpenCitations.
type Client struct {
	config     Config
	httpClient *registries.HTTPClient
}

// Compile-time interface verification.
var _ registries.CitationSource = (*Client)(nil)

// New creates a new OpenCitations client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	return &Client{
		config: cfg,
		httpClient: registries.NewHTTPClient(registries.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			UserAgent:    cfg.UserAgent,
			APIKey:       cfg.AccessToken,
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

// FetchCitationCount retrieves the COCI citation count for a normalized DOI.
// An empty response array or a record without a numeric count is reported as
// not found so callers fall through their source chain.
func (c *Client) FetchCitationCount(ctx context.Context, doi string) (int, error) {
	// Pseudo-identifiers are never resolvable; skip the network entirely.
	if domain.IsPseudoIdentifier(doi) {
		return 0, domain.NewNotFoundError("citation count", doi)
	}

	countURL := fmt.Sprintf("%s/index/coci/api/v1/citation-count/%s", c.config.BaseURL, url.PathEscape(doi))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, countURL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, domain.NewNotFoundError("citation count", doi)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return 0, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var records []countRecord
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&records); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}

	if len(records) == 0 || records[0].Count == nil {
		return 0, domain.NewNotFoundError("citation count", doi)
	}

	return *records[0].Count, nil
}
