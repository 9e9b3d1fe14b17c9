package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const seriesStateColumns = "current_episode, current_scene_in_episode, total_scenes, total_episodes, last_generated_at, system_status, created_at, updated_at"

// SeriesState returns the singleton series state row.
func (s *Store) SeriesState(ctx context.Context) (*SeriesState, error) {
	return seriesState(ctx, s.db)
}

func seriesState(ctx context.Context, q dbtx) (*SeriesState, error) {
	row := q.QueryRowContext(ctx, `SELECT `+seriesStateColumns+` FROM series_state WHERE id = 1`)
	state, err := scanSeriesState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("series state not initialized")
	}
	if err != nil {
		return nil, fmt.Errorf("get series state: %w", err)
	}
	return state, nil
}

// SeriesStateUpdate describes a partial mutation of the series state row.
// Nil fields are left untouched.
type SeriesStateUpdate struct {
	CurrentEpisode        *int64
	CurrentSceneInEpisode *int
	TotalScenes           *int64
	TotalEpisodes         *int64
	SystemStatus          *SystemStatus
}

// SeriesStateTx reads the singleton row inside the caller's transaction so
// counter updates observe a consistent snapshot.
func (s *Store) SeriesStateTx(ctx context.Context, tx *sql.Tx) (*SeriesState, error) {
	return seriesState(ctx, tx)
}

// UpdateSeriesState applies a partial update and stamps last_generated_at.
func (s *Store) UpdateSeriesState(ctx context.Context, update SeriesStateUpdate) error {
	return updateSeriesState(ctx, s.db, update)
}

// UpdateSeriesStateTx is the transaction-scoped variant used when the state
// change must commit atomically with other rows.
func (s *Store) UpdateSeriesStateTx(ctx context.Context, tx *sql.Tx, update SeriesStateUpdate) error {
	return updateSeriesState(ctx, tx, update)
}

func updateSeriesState(ctx context.Context, q dbtx, update SeriesStateUpdate) error {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)

	if update.CurrentEpisode != nil {
		sets = append(sets, "current_episode = ?")
		args = append(args, *update.CurrentEpisode)
	}
	if update.CurrentSceneInEpisode != nil {
		sets = append(sets, "current_scene_in_episode = ?")
		args = append(args, *update.CurrentSceneInEpisode)
	}
	if update.TotalScenes != nil {
		sets = append(sets, "total_scenes = ?")
		args = append(args, *update.TotalScenes)
	}
	if update.TotalEpisodes != nil {
		sets = append(sets, "total_episodes = ?")
		args = append(args, *update.TotalEpisodes)
	}
	if update.SystemStatus != nil {
		sets = append(sets, "system_status = ?")
		args = append(args, string(*update.SystemStatus))
	}
	if len(sets) == 0 {
		return nil
	}

	now := timestamp(time.Now())
	sets = append(sets, "last_generated_at = ?", "updated_at = ?")
	args = append(args, now, now)

	query := "UPDATE series_state SET "
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += " WHERE id = 1"

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update series state: %w", err)
	}
	return nil
}

// SetSystemStatus is a convenience wrapper for the most common transition.
func (s *Store) SetSystemStatus(ctx context.Context, status SystemStatus) error {
	return s.UpdateSeriesState(ctx, SeriesStateUpdate{SystemStatus: &status})
}

func scanSeriesState(sc scanner) (*SeriesState, error) {
	var (
		currentEpisode int64
		currentScene   int
		totalScenes    int64
		totalEpisodes  int64
		lastGenerated  sql.NullString
		statusStr      string
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)
	if err := sc.Scan(
		&currentEpisode,
		&currentScene,
		&totalScenes,
		&totalEpisodes,
		&lastGenerated,
		&statusStr,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	state := &SeriesState{
		CurrentEpisode:        currentEpisode,
		CurrentSceneInEpisode: currentScene,
		TotalScenes:           totalScenes,
		TotalEpisodes:         totalEpisodes,
		SystemStatus:          SystemStatus(statusStr),
		LastGeneratedAt:       timePtr(lastGenerated),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		state.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		state.UpdatedAt = updated
	}
	return state, nil
}
