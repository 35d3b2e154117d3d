package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kalambet/lifetale/internal/story"
)

func TestSession_FullRun(t *testing.T) {
	client := &scriptedClient{}
	g := NewGenerator(client)
	s := g.NewSession(testProfile())

	if s.State() != StateEmpty {
		t.Fatalf("initial state = %v, want empty", s.State())
	}
	if client.calls != 0 {
		t.Fatal("NewSession must not generate anything")
	}

	wantProgress := []int{17, 33, 50, 67, 83, 100}
	var last Snapshot
	for i, want := range wantProgress {
		snap, err := s.Next(context.Background())
		if err != nil {
			t.Fatalf("Next(%d): %v", i+1, err)
		}
		if snap.Progress != want {
			t.Errorf("batch %d progress = %d, want %d", i+1, snap.Progress, want)
		}
		if got := len(snap.Story.Stages); got != (i+1)*3 {
			t.Errorf("batch %d stages = %d, want %d", i+1, got, (i+1)*3)
		}
		if snap.Done != (i == len(wantProgress)-1) {
			t.Errorf("batch %d done = %v", i+1, snap.Done)
		}
		last = snap
	}

	if s.State() != StateComplete {
		t.Errorf("final state = %v, want complete", s.State())
	}
	if !last.Story.Complete {
		t.Error("final story not marked complete")
	}
	if len(last.Story.Stages) != len(story.TargetAges) {
		t.Fatalf("final stages = %d, want %d", len(last.Story.Stages), len(story.TargetAges))
	}
	for i, st := range last.Story.Stages {
		if st.Age != story.TargetAges[i] {
			t.Errorf("final stages[%d].Age = %d, want %d (sorted ascending)", i, st.Age, story.TargetAges[i])
		}
	}

	if _, err := s.Next(context.Background()); !errors.Is(err, ErrSessionDone) {
		t.Fatalf("Next after completion = %v, want ErrSessionDone", err)
	}
}

func TestSession_FailureIsSticky(t *testing.T) {
	boom := errors.New("boom")
	client := &scriptedClient{err: boom}
	g := NewGenerator(client)
	s := g.NewSession(testProfile())

	if _, err := s.Next(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Next error = %v, want boom", err)
	}
	if s.State() != StateFailed {
		t.Errorf("state = %v, want failed", s.State())
	}

	// A failed session keeps returning the same error without calling out.
	if _, err := s.Next(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("second Next error = %v, want boom", err)
	}
	if client.calls != 1 {
		t.Errorf("client saw %d calls, want 1", client.calls)
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err() = %v, want boom", s.Err())
	}
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	g := NewGenerator(&scriptedClient{})
	s := g.NewSession(testProfile())

	snap, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	snap.Story.Stages[0].Title = "mutated"
	if s.Story().Stages[0].Title == "mutated" {
		t.Error("mutating a snapshot leaked into the session's story")
	}
}

func TestSession_PromptSeesEarlierStages(t *testing.T) {
	client := &scriptedClient{}
	g := NewGenerator(client)
	s := g.NewSession(testProfile())

	for i := 0; i < 2; i++ {
		if _, err := s.Next(context.Background()); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}

	if len(client.prompts) != 2 {
		t.Fatalf("client saw %d prompts, want 2", len(client.prompts))
	}
	// The second prompt must carry the first batch as history.
	for _, want := range []string{"Age 0", "Age 5", "Age 10"} {
		if !strings.Contains(client.prompts[1], want) {
			t.Errorf("second prompt missing history line %q", want)
		}
	}
}
