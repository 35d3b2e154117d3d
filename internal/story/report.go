package story

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// maxAgeGap is the widest span allowed between two age-adjacent stages
// before the story is flagged as discontinuous.
const maxAgeGap = 10

const (
	minContentLength = 50
	minTitleLength   = 2
)

// Report is the result of Validate. Valid is true only when no target age
// is missing and no continuity or quality issue was found.
type Report struct {
	Valid       bool     `json:"valid"`
	MissingAges []int    `json:"missing_ages"`
	Issues      []string `json:"issues"`
}

// Validate checks a story against the target age set, flags gaps wider
// than ten years between age-adjacent stages, and flags stages with
// too-short content or titles. It does not mutate the story.
func Validate(s Story) Report {
	existing := make(map[int]bool, len(s.Stages))
	for _, st := range s.Stages {
		existing[st.Age] = true
	}

	var missing []int
	for _, age := range TargetAges {
		if !existing[age] {
			missing = append(missing, age)
		}
	}

	sorted := make([]Stage, len(s.Stages))
	copy(sorted, s.Stages)
	SortStages(sorted)

	var issues []string
	for i := 0; i < len(sorted)-1; i++ {
		if gap := sorted[i+1].Age - sorted[i].Age; gap > maxAgeGap {
			issues = append(issues, fmt.Sprintf("gap of %d years between ages %d and %d", gap, sorted[i].Age, sorted[i+1].Age))
		}
	}

	// Lengths are measured in runes; model output is not always ASCII.
	for _, st := range s.Stages {
		if utf8.RuneCountInString(st.Content) < minContentLength {
			issues = append(issues, fmt.Sprintf("content too short at age %d", st.Age))
		}
		if utf8.RuneCountInString(st.Title) < minTitleLength {
			issues = append(issues, fmt.Sprintf("title too short at age %d", st.Age))
		}
	}

	return Report{
		Valid:       len(missing) == 0 && len(issues) == 0,
		MissingAges: missing,
		Issues:      issues,
	}
}

// ErrEmptyStory is returned by Summarize for a story with no stages.
var ErrEmptyStory = errors.New("story has no stages")

// Stats aggregates a story's stages. Completion is a percentage of the
// target age set, rounded to the nearest integer.
type Stats struct {
	Stages         int     `json:"stages"`
	MinAge         int     `json:"min_age"`
	MaxAge         int     `json:"max_age"`
	MeanContentLen float64 `json:"mean_content_length"`
	Completion     int     `json:"completion"`
}

// Summarize computes aggregate statistics for a story. An empty story
// returns ErrEmptyStory rather than dividing by zero.
func Summarize(s Story) (Stats, error) {
	if len(s.Stages) == 0 {
		return Stats{}, ErrEmptyStory
	}

	minAge := s.Stages[0].Age
	maxAge := s.Stages[0].Age
	total := 0
	for _, st := range s.Stages {
		if st.Age < minAge {
			minAge = st.Age
		}
		if st.Age > maxAge {
			maxAge = st.Age
		}
		total += utf8.RuneCountInString(st.Content)
	}

	n := len(s.Stages)
	return Stats{
		Stages:         n,
		MinAge:         minAge,
		MaxAge:         maxAge,
		MeanContentLen: float64(total) / float64(n),
		Completion:     int(float64(n)/float64(len(TargetAges))*100 + 0.5),
	}, nil
}
