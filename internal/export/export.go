// Package export renders a story as Markdown or standalone HTML.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/kalambet/lifetale/internal/story"
)

// Markdown renders the story as a Markdown document, stages ascending by
// age. The story itself is not mutated.
func Markdown(s story.Story) string {
	sorted := make([]story.Stage, len(s.Stages))
	copy(sorted, s.Stages)
	story.SortStages(sorted)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# The Life of %s\n\n", s.Profile.Name)
	fmt.Fprintf(&sb, "*%s*\n\n", s.Profile.Description)

	for _, st := range sorted {
		fmt.Fprintf(&sb, "## Age %d: %s\n\n", st.Age, st.Title)
		sb.WriteString(st.Content)
		sb.WriteString("\n\n")
	}

	if !s.Complete {
		sb.WriteString("*(story in progress)*\n")
	}
	return sb.String()
}

// HTML renders the story's Markdown form to HTML.
func HTML(s story.Story) ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(s)), &buf); err != nil {
		return nil, fmt.Errorf("rendering story html: %w", err)
	}
	return buf.Bytes(), nil
}
