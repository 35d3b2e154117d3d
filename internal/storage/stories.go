package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kalambet/lifetale/internal/profile"
	"github.com/kalambet/lifetale/internal/story"
)

// SaveStory upserts a story and replaces its stage rows. Stage insertion
// order is preserved via the seq column.
func (s *Store) SaveStory(st story.Story) error {
	if st.ID == "" {
		return fmt.Errorf("story has no id")
	}

	profileJSON, err := json.Marshal(st.Profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback()

	updatedAt := st.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	if _, err := tx.Exec(`
		INSERT INTO stories (id, profile_json, complete, generated_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			profile_json = excluded.profile_json,
			complete = excluded.complete,
			updated_at = excluded.updated_at`,
		st.ID, string(profileJSON), boolToInt(st.Complete),
		st.GeneratedAt.UTC().Format(time.RFC3339), updatedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("saving story %s: %w", st.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM stages WHERE story_id = ?`, st.ID); err != nil {
		return fmt.Errorf("clearing stages for %s: %w", st.ID, err)
	}

	// Stages are keyed by sequence, not age: a story may legitimately hold
	// more than one stage at the same age and all of them must round-trip.
	for i, stage := range st.Stages {
		if _, err := tx.Exec(`
			INSERT INTO stages (story_id, seq, age, title, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			st.ID, i, stage.Age, stage.Title, stage.Content,
			stage.CreatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("saving stage at age %d for %s: %w", stage.Age, st.ID, err)
		}
	}

	return tx.Commit()
}

// GetStory loads a story with its stages in insertion order.
func (s *Store) GetStory(id string) (story.Story, error) {
	var (
		st          story.Story
		profileJSON string
		complete    int
		generatedAt string
		updatedAt   string
	)
	err := s.db.QueryRow(`
		SELECT id, profile_json, complete, generated_at, updated_at
		FROM stories WHERE id = ?`, id,
	).Scan(&st.ID, &profileJSON, &complete, &generatedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return story.Story{}, ErrNotFound
	}
	if err != nil {
		return story.Story{}, err
	}

	var p profile.Profile
	if err := json.Unmarshal([]byte(profileJSON), &p); err != nil {
		return story.Story{}, fmt.Errorf("decoding profile for %s: %w", id, err)
	}
	st.Profile = p
	st.Complete = complete != 0
	if st.GeneratedAt, err = time.Parse(time.RFC3339, generatedAt); err != nil {
		return story.Story{}, fmt.Errorf("parsing generated_at for %s: %w", id, err)
	}
	if st.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return story.Story{}, fmt.Errorf("parsing updated_at for %s: %w", id, err)
	}

	rows, err := s.db.Query(`
		SELECT age, title, content, created_at
		FROM stages WHERE story_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return story.Story{}, fmt.Errorf("loading stages for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var stage story.Stage
		var createdAt string
		if err := rows.Scan(&stage.Age, &stage.Title, &stage.Content, &createdAt); err != nil {
			return story.Story{}, err
		}
		if stage.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return story.Story{}, fmt.Errorf("parsing stage created_at for %s: %w", id, err)
		}
		st.Stages = append(st.Stages, stage)
	}
	return st, rows.Err()
}

// ListStories returns summaries of stored stories, most recently updated
// first.
func (s *Store) ListStories(limit, offset int) ([]StorySummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT st.id, st.profile_json, st.complete, st.generated_at, st.updated_at,
		       (SELECT COUNT(*) FROM stages WHERE story_id = st.id)
		FROM stories st
		ORDER BY st.updated_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []StorySummary{}
	for rows.Next() {
		var (
			sum         StorySummary
			profileJSON string
			complete    int
			generatedAt string
			updatedAt   string
		)
		if err := rows.Scan(&sum.ID, &profileJSON, &complete, &generatedAt, &updatedAt, &sum.Stages); err != nil {
			return nil, err
		}
		var p profile.Profile
		if err := json.Unmarshal([]byte(profileJSON), &p); err == nil {
			sum.Name = p.Name
		}
		sum.Complete = complete != 0
		if sum.GeneratedAt, err = time.Parse(time.RFC3339, generatedAt); err != nil {
			return nil, fmt.Errorf("parsing generated_at for %s: %w", sum.ID, err)
		}
		if sum.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at for %s: %w", sum.ID, err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// DeleteStory removes a story and, via the foreign key, its stages.
func (s *Store) DeleteStory(id string) error {
	res, err := s.db.Exec(`DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Default profile ---

const defaultProfileKey = "default"

// SaveDefaultProfile stores the serialized default profile.
func (s *Store) SaveDefaultProfile(data string) error {
	_, err := s.db.Exec(`
		INSERT INTO profile (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		defaultProfileKey, data)
	return err
}

// DefaultProfile returns the serialized default profile; ok is false when
// none has been saved.
func (s *Store) DefaultProfile() (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM profile WHERE key = ?`, defaultProfileKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
