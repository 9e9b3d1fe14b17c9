package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sceneColumns = "id, scene_number, episode_id, scene_in_episode, video_url, duration_seconds, video_prompt, narrative_summary, generation_started_at, generation_completed_at, generation_cost, retry_count, created_at"

// NextSceneNumber issues the next global scene number. Numbers are strictly
// increasing and gap-free: total_scenes counts completed scenes, so the next
// number is always total_scenes + 1 regardless of restarts.
func (s *Store) NextSceneNumber(ctx context.Context) (int64, error) {
	state, err := s.SeriesState(ctx)
	if err != nil {
		return 0, err
	}
	return state.TotalScenes + 1, nil
}

// InsertScene creates a scene row immediately before its first render attempt.
func (s *Store) InsertScene(ctx context.Context, scene *Scene) (*Scene, error) {
	if scene == nil {
		return nil, errors.New("scene is nil")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO scenes (
            scene_number, episode_id, scene_in_episode, video_url, duration_seconds,
            video_prompt, narrative_summary, generation_started_at, retry_count, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		scene.SceneNumber,
		scene.EpisodeID,
		scene.SceneInEpisode,
		scene.VideoURL,
		scene.DurationSeconds,
		scene.VideoPrompt,
		scene.NarrativeSummary,
		timestamp(now),
		scene.RetryCount,
		timestamp(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert scene: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.sceneByID(ctx, id)
}

// SceneByNumber fetches a scene by its global number.
func (s *Store) SceneByNumber(ctx context.Context, number int64) (*Scene, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE scene_number = ?`, number)
	scene, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}
	return scene, nil
}

func (s *Store) sceneByID(ctx context.Context, id int64) (*Scene, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sceneColumns+` FROM scenes WHERE id = ?`, id)
	scene, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scene: %w", err)
	}
	return scene, nil
}

// IncompleteScene returns the episode's in-flight scene row, if one exists.
// A restart resumes from this row rather than issuing a new scene number.
func (s *Store) IncompleteScene(ctx context.Context, episodeID int64) (*Scene, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+sceneColumns+` FROM scenes
         WHERE episode_id = ? AND generation_completed_at IS NULL
         ORDER BY scene_in_episode LIMIT 1`,
		episodeID,
	)
	scene, err := scanScene(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get incomplete scene: %w", err)
	}
	return scene, nil
}

// ScenesForEpisode returns an episode's scenes in playback order.
func (s *Store) ScenesForEpisode(ctx context.Context, episodeID int64) ([]*Scene, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE episode_id = ? ORDER BY scene_in_episode`,
		episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query episode scenes: %w", err)
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

// CountCompletedScenes returns how many of an episode's scenes finished.
func (s *Store) CountCompletedScenes(ctx context.Context, episodeID int64) (int, error) {
	var count int
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM scenes WHERE episode_id = ? AND generation_completed_at IS NOT NULL`,
		episodeID,
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count completed scenes: %w", err)
	}
	return count, nil
}

// RecordSceneFailure increments the retry counter after a failed render.
func (s *Store) RecordSceneFailure(ctx context.Context, sceneID int64) error {
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE scenes SET retry_count = retry_count + 1 WHERE id = ? AND generation_completed_at IS NULL`,
		sceneID,
	); err != nil {
		return fmt.Errorf("record scene failure: %w", err)
	}
	return nil
}

// ResetSceneRetries zeroes the retry counters of an episode's incomplete
// scenes. Used by the operator retry path after an exhausted-retry halt.
func (s *Store) ResetSceneRetries(ctx context.Context, episodeID int64) error {
	if _, err := s.db.ExecContext(
		ctx,
		`UPDATE scenes SET retry_count = 0 WHERE episode_id = ? AND generation_completed_at IS NULL`,
		episodeID,
	); err != nil {
		return fmt.Errorf("reset scene retries: %w", err)
	}
	return nil
}

// CompleteSceneTx stamps the scene finished with its artifact and cost.
// Completed scenes are immutable, so the guard clause makes a second call
// for the same scene a no-op.
func (s *Store) CompleteSceneTx(ctx context.Context, tx *sql.Tx, sceneID int64, videoURL string, durationSeconds int, cost float64) (bool, error) {
	res, err := tx.ExecContext(
		ctx,
		`UPDATE scenes
         SET video_url = ?, duration_seconds = ?, generation_cost = ?, generation_completed_at = ?
         WHERE id = ? AND generation_completed_at IS NULL`,
		videoURL,
		durationSeconds,
		cost,
		timestamp(time.Now()),
		sceneID,
	)
	if err != nil {
		return false, fmt.Errorf("complete scene: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanScene(sc scanner) (*Scene, error) {
	var (
		id           int64
		sceneNumber  int64
		episodeID    int64
		sceneInEp    int
		videoURL     string
		duration     int
		videoPrompt  string
		summary      string
		startedRaw   sql.NullString
		completedRaw sql.NullString
		cost         sql.NullFloat64
		retryCount   int
		createdRaw   sql.NullString
	)
	if err := sc.Scan(
		&id,
		&sceneNumber,
		&episodeID,
		&sceneInEp,
		&videoURL,
		&duration,
		&videoPrompt,
		&summary,
		&startedRaw,
		&completedRaw,
		&cost,
		&retryCount,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	scene := &Scene{
		ID:                    id,
		SceneNumber:           sceneNumber,
		EpisodeID:             episodeID,
		SceneInEpisode:        sceneInEp,
		VideoURL:              videoURL,
		DurationSeconds:       duration,
		VideoPrompt:           videoPrompt,
		NarrativeSummary:      summary,
		GenerationStartedAt:   timePtr(startedRaw),
		GenerationCompletedAt: timePtr(completedRaw),
		GenerationCost:        cost.Float64,
		RetryCount:            retryCount,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		scene.CreatedAt = created
	}
	return scene, nil
}
