package narrative

import (
	"context"
	"errors"
	"time"

	"github.com/kalambet/lifetale/internal/profile"
	"github.com/kalambet/lifetale/internal/story"
)

// ErrSessionDone is returned by Next once the story is complete.
var ErrSessionDone = errors.New("story generation already finished")

// State is the lifecycle of one generation session.
type State int

const (
	StateEmpty State = iota
	StateInProgress
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateInProgress:
		return "in-progress"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is one checkpoint of a multi-batch generation: a copy of the
// story so far, the progress percentage, and whether generation finished.
type Snapshot struct {
	Story    story.Story `json:"story"`
	Progress int         `json:"progress"`
	Done     bool        `json:"done"`
}

// Session generates a complete story cooperatively: each Next call runs
// exactly one batch and hands control back with a partial snapshot, so
// callers get progress checkpoints instead of one long blocking call.
// A session is finite, not restartable, and not safe for concurrent use.
type Session struct {
	gen     *Generator
	profile profile.Profile

	s       story.Story
	batches int
	total   int
	state   State
	err     error
}

// NewSession starts a session for the profile. Nothing is generated until
// the first Next call.
func (g *Generator) NewSession(p profile.Profile) *Session {
	return &Session{
		gen:     g,
		profile: p,
		total:   (len(story.TargetAges) + stagesPerBatch - 1) / stagesPerBatch,
		state:   StateEmpty,
		s: story.Story{
			Profile:     p,
			GeneratedAt: time.Now(),
		},
	}
}

// State returns the session's lifecycle state.
func (s *Session) State() State { return s.state }

// Err returns the error that moved the session to StateFailed, or nil.
func (s *Session) Err() error { return s.err }

// Batches returns how many batches have completed so far.
func (s *Session) Batches() int { return s.batches }

// Story returns a copy of the accumulated story.
func (s *Session) Story() story.Story {
	return copyStory(s.s)
}

// Next runs one batch: builds the prompt from everything generated so far,
// calls the completion client, and appends the result. On the final batch
// the stages are sorted ascending by age and the story is marked complete.
// A client failure moves the session to StateFailed and is surfaced
// unchanged; every later Next returns the same error.
func (s *Session) Next(ctx context.Context) (Snapshot, error) {
	switch s.state {
	case StateComplete:
		return Snapshot{}, ErrSessionDone
	case StateFailed:
		return Snapshot{}, s.err
	}

	stages, _, err := s.gen.GenerateStoryBatch(ctx, s.profile, s.s.Stages)
	if err != nil {
		s.state = StateFailed
		s.err = err
		return Snapshot{}, err
	}

	s.s.Stages = append(s.s.Stages, stages...)
	s.batches++
	s.state = StateInProgress

	if s.batches >= s.total {
		story.SortStages(s.s.Stages)
		s.s.Complete = true
		s.state = StateComplete
	}

	return Snapshot{
		Story:    copyStory(s.s),
		Progress: int(float64(s.batches)/float64(s.total)*100 + 0.5),
		Done:     s.s.Complete,
	}, nil
}

func copyStory(src story.Story) story.Story {
	out := src
	out.Stages = make([]story.Stage, len(src.Stages))
	copy(out.Stages, src.Stages)
	return out
}
