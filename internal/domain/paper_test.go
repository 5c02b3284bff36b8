package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicationDate(t *testing.T) {
	tests := []struct {
		name             string
		year, month, day int
		want             *time.Time
	}{
		{
			name: "full date",
			year: 2023, month: 6, day: 15,
			want: timePtr(2023, 6, 15),
		},
		{
			name: "missing day defaults to 1",
			year: 2023, month: 6,
			want: timePtr(2023, 6, 1),
		},
		{
			name: "missing month and day default to 1",
			year: 2023,
			want: timePtr(2023, 1, 1),
		},
		{
			name: "missing year yields no date",
			month: 6, day: 15,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PublicationDate(tt.year, tt.month, tt.day)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestPaperHasRealDOI(t *testing.T) {
	assert.True(t, (&Paper{DOI: "10.1000/182"}).HasRealDOI())
	assert.False(t, (&Paper{DOI: "orcid-0000-0002-1825-0097-1"}).HasRealDOI())
	assert.False(t, (&Paper{}).HasRealDOI())
}

func TestPaperHasAuthors(t *testing.T) {
	assert.False(t, (&Paper{}).HasAuthors())
	assert.True(t, (&Paper{Authors: []string{"Jane Doe"}}).HasAuthors())
}

func timePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
