// Package orcid implements the declared-works registry adapter backed by the
// public ORCID API. It is the entry point of every import: the researcher's
// self-declared works drive which papers exist at all.
package orcid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/registries"
)

const (
	// DefaultBaseURL is the public ORCID API base URL.
	DefaultBaseURL = "https://pub.orcid.org"

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 8.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 8

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// sourceName is the human-readable name for this registry.
	sourceName = "ORCID"
)

// DeclaredWork is one work declared on an ORCID profile. Works without a DOI
// keep an empty DOI and are later identified by their put code.
type DeclaredWork struct {
	PutCode int64
	Title   string
	DOI     string
	Journal string
	Year    int
	Month   int
	Day     int
}

// PublishedDate converts the declared date parts into a timestamp, or nil
// when no year is declared.
func (w DeclaredWork) PublishedDate() *time.Time {
	return domain.PublicationDate(w.Year, w.Month, w.Day)
}

// Config holds configuration for the ORCID client.
type Config struct {
	// BaseURL is the API base URL. Defaults to DefaultBaseURL.
	BaseURL string

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

// Client fetches declared works from the public ORCID API.
type Client struct {
	config     Config
	httpClient *registries.HTTPClient
}

// New creates a new ORCID client with the given configuration.
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

// FetchWorks retrieves all works declared on the profile of a normalized
// ORCID iD. A profile with no declared works returns domain.ErrNoWorks; an
// unknown iD returns an error matching domain.ErrNotFound.
func (c *Client) FetchWorks(ctx context.Context, orcid string) ([]DeclaredWork, error) {
	worksURL := fmt.Sprintf("%s/v3.0/%s/works", c.config.BaseURL, orcid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, worksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("ORCID profile", orcid)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	// Parse the response (limit body to 10MB to prevent resource exhaustion).
	var payload worksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(payload.Group) == 0 {
		return nil, fmt.Errorf("orcid %s: %w", orcid, domain.ErrNoWorks)
	}

	works := make([]DeclaredWork, 0, len(payload.Group))
	for _, group := range payload.Group {
		if len(group.WorkSummary) == 0 {
			continue
		}
		works = append(works, summaryToWork(group.WorkSummary[0]))
	}

	return works, nil
}

// summaryToWork converts the preferred work summary of a group into a
// DeclaredWork.
func summaryToWork(summary workSummary) DeclaredWork {
	work := DeclaredWork{PutCode: summary.PutCode}

	if summary.Title != nil && summary.Title.Title != nil {
		work.Title = strings.TrimSpace(registries.StripTags(summary.Title.Title.Value))
	}
	if summary.JournalTitle != nil {
		work.Journal = strings.TrimSpace(summary.JournalTitle.Value)
	}
	if summary.ExternalIDs != nil {
		for _, id := range summary.ExternalIDs.ExternalID {
			if strings.EqualFold(id.Type, "doi") && id.Value != "" {
				work.DOI = id.Value
				break
			}
		}
	}
	if summary.PublicationDate != nil {
		work.Year = dateValue(summary.PublicationDate.Year)
		work.Month = dateValue(summary.PublicationDate.Month)
		work.Day = dateValue(summary.PublicationDate.Day)
	}

	return work
}

// dateValue parses one declared date part; ORCID reports them as strings.
func dateValue(field *valueField) int {
	if field == nil {
		return 0
	}
	value, err := strconv.Atoi(strings.TrimSpace(field.Value))
	if err != nil {
		return 0
	}
	return value
}
