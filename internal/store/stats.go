package store

import (
	"context"
	"fmt"
)

// Stats aggregates series-wide progress and spend in a single pass.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	row := s.db.QueryRowContext(ctx, `
        SELECT
            (SELECT COUNT(*) FROM episodes),
            (SELECT COUNT(*) FROM episodes WHERE generation_completed_at IS NOT NULL),
            (SELECT COUNT(*) FROM scenes),
            (SELECT COUNT(*) FROM scenes WHERE generation_completed_at IS NOT NULL),
            (SELECT COALESCE(SUM(generation_cost), 0) FROM scenes WHERE generation_completed_at IS NOT NULL),
            (SELECT COALESCE(SUM(duration_seconds), 0) FROM scenes WHERE generation_completed_at IS NOT NULL),
            (SELECT COUNT(*) FROM characters)`)
	if err := row.Scan(
		&stats.TotalEpisodes,
		&stats.CompletedEpisodes,
		&stats.TotalScenes,
		&stats.CompletedScenes,
		&stats.TotalCost,
		&stats.TotalDurationSeconds,
		&stats.TotalCharacters,
	); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

// VerifyCounters cross-checks the denormalized series_state counters against
// the episode and scene tables. A mismatch means a transition escaped its
// transaction and the database needs operator attention.
func (s *Store) VerifyCounters(ctx context.Context) error {
	state, err := s.SeriesState(ctx)
	if err != nil {
		return err
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	if state.TotalScenes != stats.CompletedScenes {
		return fmt.Errorf("counter drift: series_state.total_scenes=%d but %d scenes completed", state.TotalScenes, stats.CompletedScenes)
	}
	if state.TotalEpisodes != stats.CompletedEpisodes {
		return fmt.Errorf("counter drift: series_state.total_episodes=%d but %d episodes completed", state.TotalEpisodes, stats.CompletedEpisodes)
	}
	return nil
}
