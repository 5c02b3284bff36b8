package orcid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/registries"
)

// newTestClient creates a client configured for testing against the given
// server URL.
func newTestClient(serverURL string) *Client {
	cfg := Config{
		BaseURL:   serverURL,
		UserAgent: "TestClient/1.0",
		Timeout:   5 * time.Second,
		RateLimit: 100, // High rate for testing
		BurstSize: 100,
	}

	httpClient := registries.NewHTTPClient(registries.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: cfg.UserAgent,
	})

	return NewWithHTTPClient(cfg, httpClient)
}

const sampleWorks = `{
  "group": [
    {
      "work-summary": [
        {
          "put-code": 12345,
          "title": {"title": {"value": "Attention Is <i>All</i> You Need"}},
          "journal-title": {"value": "NeurIPS"},
          "publication-date": {
            "year": {"value": "2017"},
            "month": {"value": "6"},
            "day": {"value": "12"}
          },
          "external-ids": {
            "external-id": [
              {"external-id-type": "eid", "external-id-value": "2-s2.0-85083951332"},
              {"external-id-type": "DOI", "external-id-value": "10.48550/arXiv.1706.03762"}
            ]
          }
        },
        {
          "put-code": 99,
          "title": {"title": {"value": "Duplicate group member, ignored"}}
        }
      ]
    },
    {
      "work-summary": [
        {
          "put-code": 67890,
          "title": {"title": {"value": "An Unregistered Technical Report"}},
          "publication-date": {"year": {"value": "2020"}}
        }
      ]
    },
    {
      "work-summary": []
    }
  ]
}`

func TestFetchWorks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3.0/0000-0002-1825-0097/works", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, err := w.Write([]byte(sampleWorks))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	works, err := client.FetchWorks(context.Background(), "0000-0002-1825-0097")
	require.NoError(t, err)
	require.Len(t, works, 2)

	first := works[0]
	assert.Equal(t, int64(12345), first.PutCode)
	assert.Equal(t, "Attention Is All You Need", first.Title)
	assert.Equal(t, "10.48550/arXiv.1706.03762", first.DOI, "DOI type match is case-insensitive")
	assert.Equal(t, "NeurIPS", first.Journal)
	assert.Equal(t, 2017, first.Year)
	assert.Equal(t, 6, first.Month)
	assert.Equal(t, 12, first.Day)
	require.NotNil(t, first.PublishedDate())
	assert.Equal(t, time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC), *first.PublishedDate())

	second := works[1]
	assert.Equal(t, int64(67890), second.PutCode)
	assert.Empty(t, second.DOI)
	require.NotNil(t, second.PublishedDate())
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), *second.PublishedDate(), "missing month and day default to January 1st")
}

func TestFetchWorks_EmptyProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`{"group": []}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchWorks(context.Background(), "0000-0002-1825-0097")
	assert.ErrorIs(t, err, domain.ErrNoWorks)
}

func TestFetchWorks_ProfileNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchWorks(context.Background(), "0000-0000-0000-0000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchWorks_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.FetchWorks(context.Background(), "0000-0002-1825-0097")
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestSummaryToWork_NonNumericDateParts(t *testing.T) {
	work := summaryToWork(workSummary{
		PutCode: 7,
		Title:   &titleContainer{Title: &valueField{Value: "  Spaced Title  "}},
		PublicationDate: &publicationDate{
			Year: &valueField{Value: "n/a"},
		},
	})

	assert.Equal(t, "Spaced Title", work.Title)
	assert.Zero(t, work.Year)
	assert.Nil(t, work.PublishedDate())
}
