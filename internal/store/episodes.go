package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const episodeColumns = "id, episode_number, director_plan, arc_summary, generation_started_at, generation_completed_at, total_cost, created_at"

// InsertEpisodeTx creates an episode row with its plan persisted verbatim.
// Runs inside the caller's transaction so the row and the series state
// transition commit together.
func (s *Store) InsertEpisodeTx(ctx context.Context, tx *sql.Tx, episodeNumber int64, directorPlan, arcSummary string) (*Episode, error) {
	now := time.Now().UTC()
	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO episodes (episode_number, director_plan, arc_summary, generation_started_at, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		episodeNumber,
		directorPlan,
		nullableString(arcSummary),
		timestamp(now),
		timestamp(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert episode: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return episodeByID(ctx, tx, id)
}

// OpenEpisode returns the single episode with no completion timestamp, or
// nil when every episode has finished. More than one open episode is an
// invariant violation and reported as an error.
func (s *Store) OpenEpisode(ctx context.Context) (*Episode, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+episodeColumns+` FROM episodes WHERE generation_completed_at IS NULL ORDER BY episode_number`,
	)
	if err != nil {
		return nil, fmt.Errorf("query open episodes: %w", err)
	}
	defer rows.Close()

	var open []*Episode
	for rows.Next() {
		episode, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		open = append(open, episode)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(open) {
	case 0:
		return nil, nil
	case 1:
		return open[0], nil
	default:
		return nil, fmt.Errorf("invariant violation: %d episodes open at once", len(open))
	}
}

// EpisodeByNumber fetches an episode by its public number.
func (s *Store) EpisodeByNumber(ctx context.Context, number int64) (*Episode, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE episode_number = ?`, number)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return episode, nil
}

func episodeByID(ctx context.Context, q dbtx, id int64) (*Episode, error) {
	row := q.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id)
	episode, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return episode, nil
}

// ListEpisodes returns episodes newest first with scene progress counts.
func (s *Store) ListEpisodes(ctx context.Context, limit, offset int) ([]*EpisodeSummary, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT e.id, e.episode_number, e.director_plan, e.arc_summary, e.generation_started_at,
                e.generation_completed_at, e.total_cost, e.created_at,
                COUNT(s.id),
                COUNT(s.generation_completed_at)
         FROM episodes e
         LEFT JOIN scenes s ON s.episode_id = e.id
         GROUP BY e.id
         ORDER BY e.episode_number DESC
         LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var summaries []*EpisodeSummary
	for rows.Next() {
		summary, err := scanEpisodeSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count episodes: %w", err)
	}
	return summaries, total, nil
}

// CompleteEpisodeTx stamps the episode complete with the summed cost of its
// scenes. The caller updates series state in the same transaction.
func (s *Store) CompleteEpisodeTx(ctx context.Context, tx *sql.Tx, episodeID int64) (float64, error) {
	var totalCost float64
	row := tx.QueryRowContext(
		ctx,
		`SELECT COALESCE(SUM(generation_cost), 0) FROM scenes WHERE episode_id = ? AND generation_completed_at IS NOT NULL`,
		episodeID,
	)
	if err := row.Scan(&totalCost); err != nil {
		return 0, fmt.Errorf("sum scene costs: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE episodes SET generation_completed_at = ?, total_cost = ? WHERE id = ?`,
		timestamp(time.Now()),
		totalCost,
		episodeID,
	); err != nil {
		return 0, fmt.Errorf("complete episode: %w", err)
	}
	return totalCost, nil
}

func scanEpisode(sc scanner) (*Episode, error) {
	var (
		id            int64
		episodeNumber int64
		directorPlan  string
		arcSummary    sql.NullString
		startedRaw    sql.NullString
		completedRaw  sql.NullString
		totalCost     sql.NullFloat64
		createdRaw    sql.NullString
	)
	if err := sc.Scan(
		&id,
		&episodeNumber,
		&directorPlan,
		&arcSummary,
		&startedRaw,
		&completedRaw,
		&totalCost,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	episode := &Episode{
		ID:                    id,
		EpisodeNumber:         episodeNumber,
		DirectorPlan:          directorPlan,
		ArcSummary:            arcSummary.String,
		GenerationStartedAt:   timePtr(startedRaw),
		GenerationCompletedAt: timePtr(completedRaw),
		TotalCost:             totalCost.Float64,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		episode.CreatedAt = created
	}
	return episode, nil
}

func scanEpisodeSummary(sc scanner) (*EpisodeSummary, error) {
	var (
		id            int64
		episodeNumber int64
		directorPlan  string
		arcSummary    sql.NullString
		startedRaw    sql.NullString
		completedRaw  sql.NullString
		totalCost     sql.NullFloat64
		createdRaw    sql.NullString
		sceneCount    int
		completed     int
	)
	if err := sc.Scan(
		&id,
		&episodeNumber,
		&directorPlan,
		&arcSummary,
		&startedRaw,
		&completedRaw,
		&totalCost,
		&createdRaw,
		&sceneCount,
		&completed,
	); err != nil {
		return nil, err
	}
	summary := &EpisodeSummary{
		Episode: Episode{
			ID:                    id,
			EpisodeNumber:         episodeNumber,
			DirectorPlan:          directorPlan,
			ArcSummary:            arcSummary.String,
			GenerationStartedAt:   timePtr(startedRaw),
			GenerationCompletedAt: timePtr(completedRaw),
			TotalCost:             totalCost.Float64,
		},
		SceneCount:      sceneCount,
		CompletedScenes: completed,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		summary.CreatedAt = created
	}
	return summary, nil
}
