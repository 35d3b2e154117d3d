// Package api exposes the story engine over HTTP (chi) and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/lifetale/internal/export"
	"github.com/kalambet/lifetale/internal/narrative"
	"github.com/kalambet/lifetale/internal/profile"
	"github.com/kalambet/lifetale/internal/storage"
	"github.com/kalambet/lifetale/internal/story"
)

// StoryStore is the persistence surface the HTTP and MCP handlers use.
// *storage.Store satisfies it.
type StoryStore interface {
	SaveStory(st story.Story) error
	GetStory(id string) (story.Story, error)
	ListStories(limit, offset int) ([]storage.StorySummary, error)
	DeleteStory(id string) error
}

// Deps holds the collaborators the HTTP surface needs.
type Deps struct {
	Store     StoryStore
	Profiles  *profile.Manager
	Generator *narrative.Generator
	Token     string
}

// Service owns the active generation sessions and serves them over HTTP
// and MCP. A session lives from story creation until its final batch (or
// terminal failure); each batch runs on an explicit request, never
// concurrently for one story.
type Service struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	session  *narrative.Session
	inFlight bool
}

var (
	errNoSession     = errors.New("no active generation session for this story")
	errBatchInFlight = errors.New("a batch is already being generated for this story")
)

// NewService creates the shared API service.
func NewService(deps Deps) *Service {
	return &Service{
		deps:     deps,
		sessions: make(map[string]*sessionEntry),
	}
}

// Router builds the HTTP surface: health and metrics are open, every
// other route requires the bearer token.
func (h *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(h.deps.Token))

		r.Post("/stories", h.createStory)
		r.Get("/stories", h.listStories)
		r.Get("/stories/{id}", h.getStory)
		r.Delete("/stories/{id}", h.deleteStory)
		r.Post("/stories/{id}/batches", h.nextBatch)
		r.Post("/stories/{id}/stages/{age}", h.fillStage)
		r.Post("/stories/{id}/stages/{age}/regenerate", h.regenerateStage)
		r.Get("/stories/{id}/report", h.storyReport)
		r.Get("/stories/{id}/stats", h.storyStats)
		r.Get("/stories/{id}/export", h.exportStory)

		r.Get("/profile", h.getProfile)
		r.Patch("/profile", h.patchProfile)
	})

	return r
}

// createStory validates the submitted profile, opens a generation session,
// and runs the first batch before responding.
func (h *Service) createStory(w http.ResponseWriter, r *http.Request) {
	var p profile.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if errs := p.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"message": "profile is invalid",
				"type":    "invalid_request_error",
				"fields":  errs,
			},
		})
		return
	}

	id := uuid.New().String()
	h.mu.Lock()
	h.sessions[id] = &sessionEntry{session: h.deps.Generator.NewSession(p)}
	h.mu.Unlock()

	snap, err := h.advance(r.Context(), id)
	if err != nil {
		completionError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// nextBatch advances an active session by exactly one batch.
func (h *Service) nextBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := h.advance(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, errNoSession):
		httpError(w, http.StatusNotFound, "invalid_request_error", "%v", err)
	case errors.Is(err, errBatchInFlight):
		httpError(w, http.StatusConflict, "invalid_request_error", "%v", err)
	case errors.Is(err, narrative.ErrSessionDone):
		httpError(w, http.StatusConflict, "invalid_request_error", "%v", err)
	default:
		completionError(w, err)
	}
}

// advance runs one batch of the session for id and persists the snapshot.
// The session is dropped only after its final snapshot has been saved: a
// persistence failure on the last batch keeps the session around, and the
// next call retries the save instead of generating again.
func (h *Service) advance(ctx context.Context, id string) (narrative.Snapshot, error) {
	h.mu.Lock()
	entry, ok := h.sessions[id]
	if !ok {
		h.mu.Unlock()
		return narrative.Snapshot{}, errNoSession
	}
	if entry.inFlight {
		h.mu.Unlock()
		return narrative.Snapshot{}, errBatchInFlight
	}
	entry.inFlight = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		entry.inFlight = false
		h.mu.Unlock()
	}()

	var snap narrative.Snapshot
	if entry.session.State() == narrative.StateComplete {
		// A completed session still registered means its final save
		// failed; rebuild the terminal snapshot and try again.
		snap = narrative.Snapshot{Story: entry.session.Story(), Progress: 100, Done: true}
	} else {
		var err error
		snap, err = entry.session.Next(ctx)
		countBatch(err)
		if err != nil {
			return narrative.Snapshot{}, err
		}
	}

	snap.Story.ID = id
	snap.Story.UpdatedAt = time.Now().UTC()
	if err := h.deps.Store.SaveStory(snap.Story); err != nil {
		slog.Error("persisting story snapshot failed", "story_id", id, "error", err)
		return narrative.Snapshot{}, fmt.Errorf("persisting story %s: %w", id, err)
	}

	if snap.Done {
		h.mu.Lock()
		delete(h.sessions, id)
		h.mu.Unlock()
	}
	return snap, nil
}

func (h *Service) listStories(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	summaries, err := h.deps.Store.ListStories(limit, offset)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "listing stories: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *Service) getStory(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadStory(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Service) deleteStory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	delete(h.sessions, id)
	h.mu.Unlock()

	if err := h.deps.Store.DeleteStory(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "invalid_request_error", "story %s not found", id)
			return
		}
		httpError(w, http.StatusInternalServerError, "api_error", "deleting story: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// fillStage generates the stage at the given age for a stored story and
// inserts it (or replaces the existing stage at that age).
func (h *Service) fillStage(w http.ResponseWriter, r *http.Request) {
	st, age, ok := h.loadStoryAge(w, r)
	if !ok {
		return
	}

	stage, err := h.deps.Generator.GenerateSingleStage(r.Context(), st.Profile, age, st.Stages)
	countStageOp("fill", err)
	if err != nil {
		completionError(w, err)
		return
	}

	substituteStage(&st, age, stage)
	h.persistAndRespond(w, st, stage)
}

// regenerateStage asks for a fresh stage at the given age and substitutes
// it for the existing one.
func (h *Service) regenerateStage(w http.ResponseWriter, r *http.Request) {
	st, age, ok := h.loadStoryAge(w, r)
	if !ok {
		return
	}

	stage, err := h.deps.Generator.RegenerateStage(r.Context(), st.Profile, age, st.Stages)
	countStageOp("regenerate", err)
	if err != nil {
		completionError(w, err)
		return
	}

	substituteStage(&st, age, stage)
	h.persistAndRespond(w, st, stage)
}

func (h *Service) persistAndRespond(w http.ResponseWriter, st story.Story, stage story.Stage) {
	if err := h.saveStory(&st); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "saving story: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stage": stage, "story": st})
}

// saveStory stamps the update time and persists the story.
func (h *Service) saveStory(st *story.Story) error {
	st.UpdatedAt = time.Now().UTC()
	return h.deps.Store.SaveStory(*st)
}

// substituteStage replaces the stage at age, or appends when the story has
// none there. The new stage's own age field is left as produced upstream.
func substituteStage(st *story.Story, age int, stage story.Stage) {
	for i := range st.Stages {
		if st.Stages[i].Age == age {
			st.Stages[i] = stage
			return
		}
	}
	st.Stages = append(st.Stages, stage)
}

func (h *Service) storyReport(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadStory(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, story.Validate(st))
}

func (h *Service) storyStats(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadStory(w, r)
	if !ok {
		return
	}
	stats, err := story.Summarize(st)
	if err != nil {
		httpError(w, http.StatusConflict, "invalid_request_error", "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Service) exportStory(w http.ResponseWriter, r *http.Request) {
	st, ok := h.loadStory(w, r)
	if !ok {
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, export.Markdown(st))
	case "html":
		html, err := export.HTML(st)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(html)
	default:
		httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown export format %q", format)
	}
}

func (h *Service) getProfile(w http.ResponseWriter, _ *http.Request) {
	p, ok, err := h.deps.Profiles.Get()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
		return
	}
	if !ok {
		httpError(w, http.StatusNotFound, "invalid_request_error", "no default profile saved")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// patchProfile merges the request body over the saved default profile and
// persists the result if it validates.
func (h *Service) patchProfile(w http.ResponseWriter, r *http.Request) {
	p, _, err := h.deps.Profiles.Get()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if errs := p.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"message": "profile is invalid",
				"type":    "invalid_request_error",
				"fields":  errs,
			},
		})
		return
	}

	if err := h.deps.Profiles.Set(p); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "saving profile: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Service) loadStory(w http.ResponseWriter, r *http.Request) (story.Story, bool) {
	id := chi.URLParam(r, "id")
	st, err := h.deps.Store.GetStory(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "invalid_request_error", "story %s not found", id)
		} else {
			httpError(w, http.StatusInternalServerError, "api_error", "loading story: %v", err)
		}
		return story.Story{}, false
	}
	return st, true
}

func (h *Service) loadStoryAge(w http.ResponseWriter, r *http.Request) (story.Story, int, bool) {
	st, ok := h.loadStory(w, r)
	if !ok {
		return story.Story{}, 0, false
	}
	age, err := strconv.Atoi(chi.URLParam(r, "age"))
	if err != nil || age < 0 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid age %q", chi.URLParam(r, "age"))
		return story.Story{}, 0, false
	}
	return st, age, true
}
