// Package story defines the life-story data model: age-stamped narrative
// stages, the story that collects them, and the pure checks that judge a
// story's completeness and quality.
package story

import (
	"sort"
	"time"

	"github.com/kalambet/lifetale/internal/profile"
)

// TargetAges is the fixed set of ages a complete story must cover, in
// ascending order. A story is judged complete against the last entry.
var TargetAges = []int{0, 5, 10, 15, 18, 22, 25, 30, 35, 40, 45, 50, 55, 60, 65, 70, 75, 80}

// FinalAge returns the last entry of TargetAges.
func FinalAge() int {
	return TargetAges[len(TargetAges)-1]
}

// Stage is one age-labeled narrative unit. CreatedAt is set by the
// completion client at receipt time.
type Stage struct {
	Age       int       `json:"age"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Story is the accumulating result of one generation session. Stages are
// kept in insertion order; call SortStages before treating them as
// canonical. Complete is set only by the generator after the final batch.
type Story struct {
	ID          string          `json:"id,omitempty"`
	Profile     profile.Profile `json:"profile"`
	Stages      []Stage         `json:"stages"`
	Complete    bool            `json:"complete"`
	GeneratedAt time.Time       `json:"generated_at"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
}

// SortStages orders stages ascending by age, in place.
func SortStages(stages []Stage) {
	sort.Slice(stages, func(i, j int) bool {
		return stages[i].Age < stages[j].Age
	})
}

// LastAge returns the age of the last stage in insertion order, or -1 for
// an empty slice. Batch prompts pick the next target ages after this value.
func LastAge(stages []Stage) int {
	if len(stages) == 0 {
		return -1
	}
	return stages[len(stages)-1].Age
}

// MaxAge returns the highest age across stages, or -1 for an empty slice.
func MaxAge(stages []Stage) int {
	max := -1
	for _, st := range stages {
		if st.Age > max {
			max = st.Age
		}
	}
	return max
}
