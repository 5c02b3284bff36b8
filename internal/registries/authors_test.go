package registries

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "Attention Is All You Need", "Attention Is All You Need"},
		{"jats markup removed", "<jats:p>We propose a <jats:italic>new</jats:italic> model.</jats:p>", "We propose a new model."},
		{"subscript removed", "H<sub>2</sub>O splitting", "H2O splitting"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripTags(tt.input))
		})
	}
}

func TestCollapseAuthors(t *testing.T) {
	names := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("Author %d", i+1)
		}
		return out
	}

	t.Run("list under limit unchanged", func(t *testing.T) {
		authors := names(10)
		assert.Equal(t, authors, CollapseAuthors(authors, 10))
	})

	t.Run("collaboration list collapsed", func(t *testing.T) {
		collapsed := CollapseAuthors(names(60), 10)
		assert.Len(t, collapsed, 6)
		assert.Equal(t, "Author 1", collapsed[0])
		assert.Equal(t, "Author 5", collapsed[4])
		assert.Equal(t, "+ 55 more authors", collapsed[5])
	})

	t.Run("empty list unchanged", func(t *testing.T) {
		assert.Empty(t, CollapseAuthors(nil, 10))
	})
}
