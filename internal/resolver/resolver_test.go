package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papertalks/bibliometrics-service/internal/domain"
	"github.com/papertalks/bibliometrics-service/internal/registries"
)

// fakeMetadataSource returns a canned result and records how often it was
// consulted.
type fakeMetadataSource struct {
	name  string
	meta  *registries.Metadata
	err   error
	calls int
}

func (f *fakeMetadataSource) FetchMetadata(_ context.Context, _ string) (*registries.Metadata, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.meta, nil
}

func (f *fakeMetadataSource) Name() string { return f.name }

type fakeCitationSource struct {
	name  string
	count int
	err   error
	calls int
}

func (f *fakeCitationSource) FetchCitationCount(_ context.Context, _ string) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.count, nil
}

func (f *fakeCitationSource) Name() string { return f.name }

func TestMetadataResolver_PrimaryComplete(t *testing.T) {
	primary := &fakeMetadataSource{name: "primary", meta: &registries.Metadata{
		Title:   "Primary Title",
		Authors: []string{"Ada Lovelace"},
	}}
	secondary := &fakeMetadataSource{name: "secondary", meta: &registries.Metadata{
		Title:   "Secondary Title",
		Authors: []string{"Charles Babbage"},
	}}

	r := NewMetadataResolver(zerolog.Nop(), primary, secondary)
	meta := r.Resolve(context.Background(), "10.1000/x")

	require.NotNil(t, meta)
	assert.Equal(t, "Primary Title", meta.Title)
	assert.Equal(t, []string{"Ada Lovelace"}, meta.Authors)
	assert.Zero(t, secondary.calls, "secondary must not be consulted when primary has authors")
}

func TestMetadataResolver_AuthorsEscalateToSecondary(t *testing.T) {
	published := time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC)
	primary := &fakeMetadataSource{name: "primary", meta: &registries.Metadata{
		Title:         "Primary Title",
		Journal:       "Primary Journal",
		PublishedDate: &published,
	}}
	secondary := &fakeMetadataSource{name: "secondary", meta: &registries.Metadata{
		Title:    "Secondary Title",
		Abstract: "Secondary abstract.",
		Authors:  []string{"Grace Hopper"},
	}}

	r := NewMetadataResolver(zerolog.Nop(), primary, secondary)
	meta := r.Resolve(context.Background(), "10.1000/x")

	require.NotNil(t, meta)
	assert.Equal(t, "Primary Title", meta.Title, "fields present in primary are kept")
	assert.Equal(t, "Primary Journal", meta.Journal)
	assert.Equal(t, "Secondary abstract.", meta.Abstract, "fields absent in primary are filled")
	assert.Equal(t, []string{"Grace Hopper"}, meta.Authors)
}

func TestMetadataResolver_PrimaryFailureFallsThrough(t *testing.T) {
	primary := &fakeMetadataSource{name: "primary", err: domain.NewExternalAPIError("primary", 500, "boom", nil)}
	secondary := &fakeMetadataSource{name: "secondary", meta: &registries.Metadata{
		Title:   "Secondary Title",
		Authors: []string{"Grace Hopper"},
	}}

	r := NewMetadataResolver(zerolog.Nop(), primary, secondary)
	meta := r.Resolve(context.Background(), "10.1000/x")

	require.NotNil(t, meta)
	assert.Equal(t, "Secondary Title", meta.Title)
}

func TestMetadataResolver_AllAbsent(t *testing.T) {
	primary := &fakeMetadataSource{name: "primary", err: domain.NewNotFoundError("paper", "10.1000/x")}
	secondary := &fakeMetadataSource{name: "secondary", err: errors.New("connection refused")}

	r := NewMetadataResolver(zerolog.Nop(), primary, secondary)
	assert.Nil(t, r.Resolve(context.Background(), "10.1000/x"))
}

func TestMetadataResolver_PseudoIdentifierShortCircuits(t *testing.T) {
	primary := &fakeMetadataSource{name: "primary", meta: &registries.Metadata{Title: "x"}}

	r := NewMetadataResolver(zerolog.Nop(), primary)
	assert.Nil(t, r.Resolve(context.Background(), "orcid-0000-0002-1825-0097-42"))
	assert.Zero(t, primary.calls)
}

func TestCitationResolver_FirstSourceWins(t *testing.T) {
	primary := &fakeCitationSource{name: "primary", count: 42}
	fallback := &fakeCitationSource{name: "fallback", count: 7}

	r := NewCitationResolver(zerolog.Nop(), primary, fallback)
	count, ok := r.Resolve(context.Background(), "10.1000/x")

	assert.True(t, ok)
	assert.Equal(t, 42, count)
	assert.Zero(t, fallback.calls)
}

func TestCitationResolver_ZeroIsARealAnswer(t *testing.T) {
	primary := &fakeCitationSource{name: "primary", count: 0}
	fallback := &fakeCitationSource{name: "fallback", count: 99}

	r := NewCitationResolver(zerolog.Nop(), primary, fallback)
	count, ok := r.Resolve(context.Background(), "10.1000/x")

	assert.True(t, ok)
	assert.Zero(t, count)
	assert.Zero(t, fallback.calls, "an uncited paper must not trigger the fallback")
}

func TestCitationResolver_FallsBackOnMiss(t *testing.T) {
	primary := &fakeCitationSource{name: "primary", err: domain.NewNotFoundError("citation count", "10.1000/x")}
	fallback := &fakeCitationSource{name: "fallback", count: 17}

	r := NewCitationResolver(zerolog.Nop(), primary, fallback)
	count, ok := r.Resolve(context.Background(), "10.1000/x")

	assert.True(t, ok)
	assert.Equal(t, 17, count)
}

func TestCitationResolver_FallsBackOnTransportError(t *testing.T) {
	primary := &fakeCitationSource{name: "primary", err: errors.New("timeout")}
	fallback := &fakeCitationSource{name: "fallback", count: 3}

	r := NewCitationResolver(zerolog.Nop(), primary, fallback)
	count, ok := r.Resolve(context.Background(), "10.1000/x")

	assert.True(t, ok)
	assert.Equal(t, 3, count)
}

func TestCitationResolver_AllAbsent(t *testing.T) {
	primary := &fakeCitationSource{name: "primary", err: domain.NewNotFoundError("citation count", "10.1000/x")}
	fallback := &fakeCitationSource{name: "fallback", err: errors.New("timeout")}

	r := NewCitationResolver(zerolog.Nop(), primary, fallback)
	_, ok := r.Resolve(context.Background(), "10.1000/x")
	assert.False(t, ok)
}

func TestCitationResolver_PseudoIdentifierShortCircuits(t *testing.T) {
	primary := &fakeCitationSource{name: "primary", count: 5}

	r := NewCitationResolver(zerolog.Nop(), primary)
	_, ok := r.Resolve(context.Background(), "orcid-0000-0002-1825-0097-42")
	assert.False(t, ok)
	assert.Zero(t, primary.calls)
}
