package narrative

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kalambet/lifetale/internal/profile"
	"github.com/kalambet/lifetale/internal/prompt"
	"github.com/kalambet/lifetale/internal/story"
)

// scriptedClient follows the target-age schedule: each Generate call
// returns stages for the next three target ages, like a cooperative model.
type scriptedClient struct {
	calls   int
	prompts []string
	err     error
}

func (c *scriptedClient) Generate(_ context.Context, _ string, userPrompt string) ([]story.Stage, error) {
	c.calls++
	c.prompts = append(c.prompts, userPrompt)
	if c.err != nil {
		return nil, c.err
	}

	start := (c.calls - 1) * 3
	var stages []story.Stage
	for _, age := range story.TargetAges[start:min(start+3, len(story.TargetAges))] {
		stages = append(stages, story.Stage{
			Age:     age,
			Title:   "A turn",
			Content: fmt.Sprintf("Something decisive happened around the age of %d this year.", age),
		})
	}
	return stages, nil
}

// fixedClient returns the same stages on every call.
type fixedClient struct {
	stages []story.Stage
	err    error
}

func (c *fixedClient) Generate(context.Context, string, string) ([]story.Stage, error) {
	return c.stages, c.err
}

func testProfile() profile.Profile {
	return profile.Profile{
		Name:         "Alex Carter",
		Gender:       profile.GenderFemale,
		Intelligence: 7,
		Wealth:       4,
		Appearance:   6,
		Health:       8,
		Description:  "A curious kid from a small coastal town.",
	}
}

func TestGenerateStoryBatch(t *testing.T) {
	client := &scriptedClient{}
	g := NewGenerator(client)

	stages, done, err := g.GenerateStoryBatch(context.Background(), testProfile(), nil)
	if err != nil {
		t.Fatalf("GenerateStoryBatch: %v", err)
	}
	if len(stages) != 3 {
		t.Fatalf("got %d stages, want 3", len(stages))
	}
	if done {
		t.Error("done = true after the first batch")
	}
}

func TestGenerateStoryBatch_FinalFlag(t *testing.T) {
	existing := []story.Stage{{Age: 70}, {Age: 75}}
	client := &fixedClient{stages: []story.Stage{{Age: 80, Title: "Rest", Content: "a quiet final chapter by the sea"}}}
	g := NewGenerator(client)

	_, done, err := g.GenerateStoryBatch(context.Background(), testProfile(), existing)
	if err != nil {
		t.Fatalf("GenerateStoryBatch: %v", err)
	}
	if !done {
		t.Error("done = false once the final target age is reached")
	}
}

func TestGenerateSingleStage_MatchingAge(t *testing.T) {
	client := &fixedClient{stages: []story.Stage{
		{Age: 22, Title: "Wrong", Content: "stage at the wrong age entirely"},
		{Age: 25, Title: "Right", Content: "the stage actually asked for here"},
	}}
	g := NewGenerator(client)

	st, err := g.GenerateSingleStage(context.Background(), testProfile(), 25, nil)
	if err != nil {
		t.Fatalf("GenerateSingleStage: %v", err)
	}
	if st.Title != "Right" || st.Age != 25 {
		t.Errorf("got stage %+v, want the age-25 stage", st)
	}
}

func TestGenerateSingleStage_ForcesAge(t *testing.T) {
	client := &fixedClient{stages: []story.Stage{
		{Age: 999, Title: "Astray", Content: "the model wandered off the target age"},
	}}
	g := NewGenerator(client)

	st, err := g.GenerateSingleStage(context.Background(), testProfile(), 25, nil)
	if err != nil {
		t.Fatalf("GenerateSingleStage: %v", err)
	}
	if st.Age != 25 {
		t.Errorf("Age = %d, want 25 (forced to the target)", st.Age)
	}
	if st.Title != "Astray" {
		t.Errorf("Title = %q, want the first returned stage", st.Title)
	}
}

func TestGenerateSingleStage_Empty(t *testing.T) {
	g := NewGenerator(&fixedClient{})
	if _, err := g.GenerateSingleStage(context.Background(), testProfile(), 25, nil); err == nil {
		t.Fatal("GenerateSingleStage: want error for empty model output")
	}
}

func TestRegenerateStage_FirstStageAsIs(t *testing.T) {
	client := &fixedClient{stages: []story.Stage{
		{Age: 30, Title: "Fresh", Content: "a completely different take on this age"},
		{Age: 25, Title: "Extra", Content: "a second stage that must be ignored"},
	}}
	g := NewGenerator(client)

	st, err := g.RegenerateStage(context.Background(), testProfile(), 25, nil)
	if err != nil {
		t.Fatalf("RegenerateStage: %v", err)
	}
	// The first stage is taken as-is, even at a different age.
	if st.Age != 30 || st.Title != "Fresh" {
		t.Errorf("got stage %+v, want the first returned stage unmodified", st)
	}
}

func TestRegenerateStage_ClientError(t *testing.T) {
	wantErr := errors.New("boom")
	g := NewGenerator(&fixedClient{err: wantErr})

	if _, err := g.RegenerateStage(context.Background(), testProfile(), 25, nil); !errors.Is(err, wantErr) {
		t.Fatalf("RegenerateStage error = %v, want %v", err, wantErr)
	}
}

func TestGenerator_SendsSystemPrompt(t *testing.T) {
	var gotSystem string
	client := clientFunc(func(_ context.Context, systemPrompt, _ string) ([]story.Stage, error) {
		gotSystem = systemPrompt
		return []story.Stage{{Age: 0, Title: "Born", Content: "a loud arrival on a stormy night"}}, nil
	})
	g := NewGenerator(client)

	if _, _, err := g.GenerateStoryBatch(context.Background(), testProfile(), nil); err != nil {
		t.Fatalf("GenerateStoryBatch: %v", err)
	}
	if gotSystem != prompt.System {
		t.Error("GenerateStoryBatch did not send the fixed system prompt")
	}
}

type clientFunc func(ctx context.Context, systemPrompt, userPrompt string) ([]story.Stage, error)

func (f clientFunc) Generate(ctx context.Context, systemPrompt, userPrompt string) ([]story.Stage, error) {
	return f(ctx, systemPrompt, userPrompt)
}
