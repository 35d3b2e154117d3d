package export

import (
	"strings"
	"testing"

	"github.com/kalambet/lifetale/internal/profile"
	"github.com/kalambet/lifetale/internal/story"
)

func testStory() story.Story {
	return story.Story{
		Profile: profile.Profile{
			Name:        "Alex Carter",
			Description: "A curious kid from a small coastal town.",
		},
		Stages: []story.Stage{
			{Age: 5, Title: "School", Content: "First day at school went sideways."},
			{Age: 0, Title: "Born", Content: "A loud arrival on a stormy night."},
		},
		Complete: true,
	}
}

func TestMarkdown(t *testing.T) {
	got := Markdown(testStory())

	if !strings.HasPrefix(got, "# The Life of Alex Carter\n") {
		t.Errorf("Markdown() does not start with the title heading:\n%s", got)
	}
	// Stages come out sorted by age even when stored out of order.
	born := strings.Index(got, "## Age 0: Born")
	school := strings.Index(got, "## Age 5: School")
	if born == -1 || school == -1 {
		t.Fatalf("Markdown() missing stage headings:\n%s", got)
	}
	if born > school {
		t.Error("Markdown() stages not sorted ascending by age")
	}
	if strings.Contains(got, "story in progress") {
		t.Error("Markdown() flags a complete story as in progress")
	}
}

func TestMarkdown_InProgress(t *testing.T) {
	s := testStory()
	s.Complete = false

	if got := Markdown(s); !strings.Contains(got, "*(story in progress)*") {
		t.Error("Markdown() missing in-progress marker")
	}
}

func TestMarkdown_DoesNotMutateInput(t *testing.T) {
	s := testStory()
	Markdown(s)
	if s.Stages[0].Age != 5 {
		t.Error("Markdown() reordered the caller's stages")
	}
}

func TestHTML(t *testing.T) {
	got, err := HTML(testStory())
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}

	html := string(got)
	if !strings.Contains(html, "<h1>The Life of Alex Carter</h1>") {
		t.Errorf("HTML() missing title heading:\n%s", html)
	}
	if !strings.Contains(html, "<h2>Age 0: Born</h2>") {
		t.Errorf("HTML() missing stage heading:\n%s", html)
	}
}
