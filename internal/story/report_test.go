package story

import (
	"errors"
	"strings"
	"testing"
)

// fullStory builds a story covering every target age with healthy stages.
func fullStory() Story {
	s := Story{Complete: true}
	for _, age := range TargetAges {
		s.Stages = append(s.Stages, Stage{
			Age:     age,
			Title:   "A turning point",
			Content: strings.Repeat("a decisive event ", 5),
		})
	}
	return s
}

func TestValidate_CompleteStory(t *testing.T) {
	report := Validate(fullStory())
	if !report.Valid {
		t.Errorf("Valid = false, missing=%v issues=%v", report.MissingAges, report.Issues)
	}
}

func TestValidate_MissingAges(t *testing.T) {
	s := fullStory()
	var kept []Stage
	for _, st := range s.Stages {
		if st.Age != 40 && st.Age != 45 {
			kept = append(kept, st)
		}
	}
	s.Stages = kept

	report := Validate(s)
	if report.Valid {
		t.Error("Valid = true with missing ages")
	}
	if len(report.MissingAges) != 2 || report.MissingAges[0] != 40 || report.MissingAges[1] != 45 {
		t.Errorf("MissingAges = %v, want [40 45]", report.MissingAges)
	}
}

func TestValidate_AgeGap(t *testing.T) {
	s := fullStory()
	// Dropping ages 15 and 18 leaves a 10..22 gap of 12 years.
	var kept []Stage
	for _, st := range s.Stages {
		if st.Age != 15 && st.Age != 18 {
			kept = append(kept, st)
		}
	}
	s.Stages = kept

	report := Validate(s)
	found := false
	for _, issue := range report.Issues {
		if strings.Contains(issue, "gap of 12 years between ages 10 and 22") {
			found = true
		}
	}
	if !found {
		t.Errorf("Issues = %v, want a 12-year gap issue", report.Issues)
	}
}

func TestValidate_TenYearGapAllowed(t *testing.T) {
	report := Validate(fullStory())
	// The target set itself contains 10-year gaps (70 to 80 absent here, but
	// 60..70 spans exactly 10); none may be flagged.
	for _, issue := range report.Issues {
		if strings.Contains(issue, "gap") {
			t.Errorf("unexpected gap issue: %s", issue)
		}
	}
}

func TestValidate_ThinStages(t *testing.T) {
	s := fullStory()
	s.Stages[3].Content = strings.Repeat("x", 30)
	s.Stages[5].Title = "T"

	report := Validate(s)
	if report.Valid {
		t.Error("Valid = true with thin stages")
	}
	var shortContent, shortTitle bool
	for _, issue := range report.Issues {
		if strings.Contains(issue, "content too short at age 15") {
			shortContent = true
		}
		if strings.Contains(issue, "title too short at age 22") {
			shortTitle = true
		}
	}
	if !shortContent {
		t.Errorf("Issues = %v, want short-content issue at age 15", report.Issues)
	}
	if !shortTitle {
		t.Errorf("Issues = %v, want short-title issue at age 22", report.Issues)
	}
}

func TestValidate_LengthsCountedInRunes(t *testing.T) {
	s := fullStory()
	// 90 bytes but only 30 runes: still too short.
	s.Stages[3].Content = strings.Repeat("年", 30)

	report := Validate(s)
	var shortContent bool
	for _, issue := range report.Issues {
		if strings.Contains(issue, "content too short at age 15") {
			shortContent = true
		}
	}
	if !shortContent {
		t.Errorf("Issues = %v, want short-content issue for 30-rune content", report.Issues)
	}

	// 50 runes clears the minimum regardless of byte width.
	s.Stages[3].Content = strings.Repeat("年", 50)
	if report := Validate(s); !report.Valid {
		t.Errorf("Valid = false for 50-rune content: %v", report.Issues)
	}
}

func TestValidate_UnsortedInput(t *testing.T) {
	s := fullStory()
	// Shuffle: validation must sort internally before gap analysis.
	s.Stages[0], s.Stages[len(s.Stages)-1] = s.Stages[len(s.Stages)-1], s.Stages[0]

	report := Validate(s)
	if !report.Valid {
		t.Errorf("Valid = false for unsorted complete story: %v", report.Issues)
	}
	// And the input order is untouched.
	if s.Stages[0].Age != 80 {
		t.Error("Validate mutated stage order")
	}
}

func TestSummarize(t *testing.T) {
	s := Story{Stages: []Stage{
		{Age: 10, Content: strings.Repeat("x", 60)},
		{Age: 0, Content: strings.Repeat("x", 80)},
		{Age: 5, Content: strings.Repeat("x", 70)},
	}}

	stats, err := Summarize(s)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if stats.Stages != 3 {
		t.Errorf("Stages = %d, want 3", stats.Stages)
	}
	if stats.MinAge != 0 || stats.MaxAge != 10 {
		t.Errorf("age range = [%d, %d], want [0, 10]", stats.MinAge, stats.MaxAge)
	}
	if stats.MeanContentLen != 70 {
		t.Errorf("MeanContentLen = %v, want 70", stats.MeanContentLen)
	}
	// 3 of 18 target ages is 16.67 percent, rounded to 17.
	if stats.Completion != 17 {
		t.Errorf("Completion = %d, want 17", stats.Completion)
	}
}

func TestSummarize_FullStory(t *testing.T) {
	stats, err := Summarize(fullStory())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if stats.Completion != 100 {
		t.Errorf("Completion = %d, want 100", stats.Completion)
	}
}

func TestSummarize_Empty(t *testing.T) {
	if _, err := Summarize(Story{}); !errors.Is(err, ErrEmptyStory) {
		t.Fatalf("Summarize(empty) = %v, want ErrEmptyStory", err)
	}
}

func TestSortStages(t *testing.T) {
	stages := []Stage{{Age: 22}, {Age: 0}, {Age: 80}, {Age: 5}}
	SortStages(stages)
	for i, want := range []int{0, 5, 22, 80} {
		if stages[i].Age != want {
			t.Errorf("stages[%d].Age = %d, want %d", i, stages[i].Age, want)
		}
	}
}

func TestLastAgeAndMaxAge(t *testing.T) {
	if got := LastAge(nil); got != -1 {
		t.Errorf("LastAge(nil) = %d, want -1", got)
	}
	if got := MaxAge(nil); got != -1 {
		t.Errorf("MaxAge(nil) = %d, want -1", got)
	}

	stages := []Stage{{Age: 30}, {Age: 10}}
	if got := LastAge(stages); got != 10 {
		t.Errorf("LastAge = %d, want 10 (insertion order)", got)
	}
	if got := MaxAge(stages); got != 30 {
		t.Errorf("MaxAge = %d, want 30", got)
	}
}
