package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const fragmentColumns = "id, scene_id, context_type, content, priority, created_at"

// InsertContextTx appends one narrative context fragment inside the
// caller's transaction. Fragments are append-only.
func (s *Store) InsertContextTx(ctx context.Context, tx *sql.Tx, fragment *ContextFragment) error {
	if fragment == nil {
		return errors.New("fragment is nil")
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO narrative_context (scene_id, context_type, content, priority, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		fragment.SceneID,
		fragment.ContextType,
		fragment.Content,
		fragment.Priority,
		timestamp(time.Now()),
	); err != nil {
		return fmt.Errorf("insert context fragment: %w", err)
	}
	return nil
}

// FragmentsForScene returns a scene's context fragments in insertion order.
func (s *Store) FragmentsForScene(ctx context.Context, sceneID int64) ([]*ContextFragment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fragmentColumns+` FROM narrative_context WHERE scene_id = ? ORDER BY id`,
		sceneID,
	)
	if err != nil {
		return nil, fmt.Errorf("query scene fragments: %w", err)
	}
	defer rows.Close()
	return collectFragments(rows)
}

// OpenThreads returns the highest priority unresolved plot threads across
// the whole series, newest first, capped at limit.
func (s *Store) OpenThreads(ctx context.Context, limit int) ([]*ContextFragment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fragmentColumns+` FROM narrative_context
         WHERE context_type = ?
         ORDER BY priority DESC, id DESC LIMIT ?`,
		ContextOpenThread,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query open threads: %w", err)
	}
	defer rows.Close()
	return collectFragments(rows)
}

// RecentCompletedScenes returns the last completed scenes ordered oldest to
// newest so callers can present them chronologically.
func (s *Store) RecentCompletedScenes(ctx context.Context, limit int) ([]*Scene, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+sceneColumns+` FROM (
            SELECT `+sceneColumns+` FROM scenes
            WHERE generation_completed_at IS NOT NULL
            ORDER BY scene_number DESC LIMIT ?
         ) ORDER BY scene_number ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent scenes: %w", err)
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}
	return scenes, rows.Err()
}

func collectFragments(rows *sql.Rows) ([]*ContextFragment, error) {
	var fragments []*ContextFragment
	for rows.Next() {
		var (
			fragment   ContextFragment
			createdRaw sql.NullString
		)
		if err := rows.Scan(
			&fragment.ID,
			&fragment.SceneID,
			&fragment.ContextType,
			&fragment.Content,
			&fragment.Priority,
			&createdRaw,
		); err != nil {
			return nil, err
		}
		if created, err := parseTimeString(createdRaw.String); err == nil {
			fragment.CreatedAt = created
		}
		fragments = append(fragments, &fragment)
	}
	return fragments, rows.Err()
}
