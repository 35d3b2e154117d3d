// Package prompt renders the instruction and user prompts sent to the
// completion API. All functions are pure: profile and stages in, strings out.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kalambet/lifetale/internal/profile"
	"github.com/kalambet/lifetale/internal/story"
)

// batchSize is the number of stages requested per model call.
const batchSize = 3

// historyContentLimit caps how much of a prior stage's content is echoed
// back into a batch prompt.
const historyContentLimit = 100

// System is the fixed instruction set sent as the system message. It pins
// the JSON output schema and the narrative constraints; the length figures
// are requests to the model, not enforced limits.
const System = `You are a professional life-story writer. Given a character profile, produce a believable, engaging, and coherent life story.

Requirements:
1. The story must be plausible and grounded in everyday reality
2. Every life stage must reflect the character's attributes (intelligence, wealth, appearance, health)
3. The plot needs highs and lows: successes as well as setbacks
4. Keep the character consistent and the narrative continuous
5. Write tersely and concentrate on pivotal events
6. Keep each stage to 60-80 characters, centered on the key turning point

Respond strictly in the following JSON format:
{
  "stages": [
    {
      "age": <age as a number>,
      "title": "short stage title (6-8 characters)",
      "content": "concise story text, 60-80 characters, highlighting the key event and turning point"
    }
  ]
}`

// AttributeBand maps a 1-10 score onto four qualitative bands. Used by the
// batch and single-stage prompts.
func AttributeBand(v int) string {
	switch {
	case v <= 3:
		return "low"
	case v <= 6:
		return "medium"
	case v <= 8:
		return "high"
	default:
		return "very high"
	}
}

// AttributeScale maps a 1-10 score onto five qualitative bands with
// different thresholds than AttributeBand. The CLI profile display uses
// this finer scale; the two functions are intentionally distinct.
func AttributeScale(v int) string {
	switch {
	case v <= 2:
		return "very low"
	case v <= 4:
		return "low"
	case v <= 6:
		return "medium"
	case v <= 8:
		return "high"
	default:
		return "very high"
	}
}

// NextTargetAges returns the next ages to request: the first batchSize
// entries of the target age set that lie beyond the last stage generated
// so far. Empty when the story already reaches the final target age.
func NextTargetAges(stages []story.Stage) []int {
	last := story.LastAge(stages)
	var next []int
	for _, age := range story.TargetAges {
		if age > last {
			next = append(next, age)
			if len(next) == batchSize {
				break
			}
		}
	}
	return next
}

// Batch renders the user prompt for the next batch of stages: the profile,
// the full story so far as truncated context lines, and the next target
// ages by name.
func Batch(p profile.Profile, stages []story.Stage) string {
	var sb strings.Builder
	sb.WriteString("Write the life story for the following character:\n\n")
	writeProfile(&sb, p)

	if len(stages) > 0 {
		sb.WriteString("\nThe story so far:\n")
		for _, st := range stages {
			fmt.Fprintf(&sb, "Age %d, %s: %s...\n", st.Age, st.Title, truncate(st.Content, historyContentLimit))
		}
		sb.WriteString("\nContinue from these events and keep the narrative consistent.\n")
	}

	ages := NextTargetAges(stages)
	sb.WriteString("\nWrite the stages for the following ages: ")
	sb.WriteString(joinAges(ages))
	sb.WriteString(`

Make sure that:
1. Every stage reflects the character's attributes
2. The plot stays plausible and engaging
3. New stages follow on from the earlier ones
4. Each stage is terse (60-80 characters) and centered on a key event or turning point`)

	return sb.String()
}

// SingleStage renders the user prompt for exactly one stage at targetAge.
// Up to the three most recent prior stages (ages below the target, listed
// ascending, titles only) are included as background.
func SingleStage(p profile.Profile, targetAge int, existing []story.Stage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the life story of the following character at age %d:\n\n", targetAge)
	writeProfile(&sb, p)

	prior := priorStages(existing, targetAge, 3)
	if len(prior) > 0 {
		sb.WriteString("\nBackground so far:\n")
		for _, st := range prior {
			fmt.Fprintf(&sb, "Age %d: %s\n", st.Age, st.Title)
		}
	}

	fmt.Fprintf(&sb, `
Write the stage at age %d. Make sure that:
1. The stage reflects the character's attributes
2. It stays consistent with the background
3. The text is terse (60-80 characters)
4. It highlights the key event and turning point of this age
5. The title is short (6-8 characters)

Write exactly one stage.`, targetAge)

	return sb.String()
}

// Regeneration renders the prompt for regenerating the stage at targetAge.
// Unlike SingleStage it feeds in every prior stage below the target and
// asks the model for fresh content showing character growth.
func Regeneration(p profile.Profile, targetAge int, context []story.Stage) string {
	var before []story.Stage
	for _, st := range context {
		if st.Age < targetAge {
			before = append(before, st)
		}
	}

	var sb strings.Builder
	sb.WriteString(Batch(p, before))
	fmt.Fprintf(&sb, `

Rewrite the stage at age %d. Make sure that:
1. It stays consistent with the earlier story
2. The content is fresh and does not repeat what came before
3. It shows how the character has grown and changed`, targetAge)

	return sb.String()
}

func writeProfile(sb *strings.Builder, p profile.Profile) {
	sb.WriteString("Character:\n")
	fmt.Fprintf(sb, "- Name: %s\n", p.Name)
	fmt.Fprintf(sb, "- Gender: %s\n", p.Gender)
	fmt.Fprintf(sb, "- Intelligence: %s (%d/10)\n", AttributeBand(p.Intelligence), p.Intelligence)
	fmt.Fprintf(sb, "- Family wealth: %s (%d/10)\n", AttributeBand(p.Wealth), p.Wealth)
	fmt.Fprintf(sb, "- Appearance: %s (%d/10)\n", AttributeBand(p.Appearance), p.Appearance)
	fmt.Fprintf(sb, "- Health: %s (%d/10)\n", AttributeBand(p.Health), p.Health)
	fmt.Fprintf(sb, "- About: %s\n", p.Description)
}

// priorStages returns up to limit stages with ages strictly below
// targetAge, most recent first selection, returned in ascending age order.
func priorStages(stages []story.Stage, targetAge, limit int) []story.Stage {
	var below []story.Stage
	for _, st := range stages {
		if st.Age < targetAge {
			below = append(below, st)
		}
	}
	story.SortStages(below)
	if len(below) > limit {
		below = below[len(below)-limit:]
	}
	return below
}

// truncate cuts s to at most limit runes. Model content may be non-ASCII,
// so the cut must land on a rune boundary.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func joinAges(ages []int) string {
	parts := make([]string, len(ages))
	for i, a := range ages {
		parts[i] = fmt.Sprintf("%d", a)
	}
	return strings.Join(parts, ", ")
}
