// Package narrative coordinates prompt building and completion calls to
// grow a story batch by batch. Generation within one story is strictly
// sequential: every prompt depends on the stages accumulated so far.
package narrative

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kalambet/lifetale/internal/profile"
	"github.com/kalambet/lifetale/internal/prompt"
	"github.com/kalambet/lifetale/internal/story"
)

// stagesPerBatch is how many stages one model call is asked for.
const stagesPerBatch = 3

// CompletionClient abstracts the deepseek client for testing.
type CompletionClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) ([]story.Stage, error)
}

// Generator drives the prompt builder and the completion client. It holds
// no per-story state; sessions do.
type Generator struct {
	client CompletionClient
	logger *slog.Logger
}

// NewGenerator creates a Generator over the given client.
func NewGenerator(client CompletionClient) *Generator {
	return &Generator{
		client: client,
		logger: slog.Default(),
	}
}

// GenerateStoryBatch requests the next batch of stages for the profile
// given the stages generated so far. It does not mutate anything; the
// caller merges. The returned flag is true when the combined stages reach
// the final target age.
func (g *Generator) GenerateStoryBatch(ctx context.Context, p profile.Profile, existing []story.Stage) ([]story.Stage, bool, error) {
	stages, err := g.client.Generate(ctx, prompt.System, prompt.Batch(p, existing))
	if err != nil {
		return nil, false, err
	}

	max := story.MaxAge(existing)
	if m := story.MaxAge(stages); m > max {
		max = m
	}
	return stages, max >= story.FinalAge(), nil
}

// GenerateSingleStage requests exactly one stage at targetAge, with up to
// the three most recent prior stages as context. If the model answers with
// a different age, the first returned stage is used and its age is forced
// to targetAge.
func (g *Generator) GenerateSingleStage(ctx context.Context, p profile.Profile, targetAge int, existing []story.Stage) (story.Stage, error) {
	stages, err := g.client.Generate(ctx, prompt.System, prompt.SingleStage(p, targetAge, existing))
	if err != nil {
		return story.Stage{}, err
	}
	if len(stages) == 0 {
		return story.Stage{}, fmt.Errorf("the model returned no stages for age %d", targetAge)
	}

	for _, st := range stages {
		if st.Age == targetAge {
			return st, nil
		}
	}

	g.logger.Debug("no stage matched target age, using first", "target_age", targetAge, "got_age", stages[0].Age)
	st := stages[0]
	st.Age = targetAge
	return st, nil
}

// RegenerateStage asks for a fresh take on the stage at targetAge, feeding
// every prior stage below the target as history and instructing the model
// to avoid repeating itself. The first returned stage is used as-is; its
// age is deliberately not checked against targetAge.
func (g *Generator) RegenerateStage(ctx context.Context, p profile.Profile, targetAge int, history []story.Stage) (story.Stage, error) {
	stages, err := g.client.Generate(ctx, prompt.System, prompt.Regeneration(p, targetAge, history))
	if err != nil {
		return story.Stage{}, err
	}
	if len(stages) == 0 {
		return story.Stage{}, fmt.Errorf("the model returned no stages for age %d", targetAge)
	}
	return stages[0], nil
}
