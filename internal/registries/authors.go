package registries

import (
	"fmt"
	"regexp"
)

// collapseKeep is the number of leading authors kept when a long author
// list is collapsed.
const collapseKeep = 5

// tagPattern matches HTML/XML tags in registry-supplied titles and abstracts.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes HTML/XML markup from registry-supplied text. Crossref in
// particular embeds JATS tags in abstracts.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// CollapseAuthors shortens an author display-name list that exceeds limit.
// Collaboration-scale papers would otherwise dominate storage and UI with
// thousands of names. The first collapseKeep names are kept and a synthetic
// "+ N more authors" entry summarizes the rest. Lists at or under the limit
// are returned unchanged.
func CollapseAuthors(names []string, limit int) []string {
	if len(names) <= limit {
		return names
	}
	collapsed := make([]string, 0, collapseKeep+1)
	collapsed = append(collapsed, names[:collapseKeep]...)
	collapsed = append(collapsed, fmt.Sprintf("+ %d more authors", len(names)-collapseKeep))
	return collapsed
}
