package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const logColumns = "id, scene_number, log_level, component, message, error_details, created_at"

// AppendLog records one generation audit trail entry. Failures here are
// reported but never block the pipeline; callers log and continue.
func (s *Store) AppendLog(ctx context.Context, entry *GenerationLog) error {
	if entry == nil {
		return nil
	}
	var sceneNumber any
	if entry.SceneNumber != nil {
		sceneNumber = *entry.SceneNumber
	}
	if _, err := s.db.ExecContext(
		ctx,
		`INSERT INTO generation_logs (scene_number, log_level, component, message, error_details, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		sceneNumber,
		strings.ToLower(entry.Level),
		entry.Component,
		entry.Message,
		nullableString(entry.ErrorDetails),
		timestamp(time.Now()),
	); err != nil {
		return fmt.Errorf("append generation log: %w", err)
	}
	return nil
}

// RecentLogs returns the newest audit entries, optionally filtered by level.
func (s *Store) RecentLogs(ctx context.Context, level string, limit int) ([]*GenerationLog, error) {
	query := `SELECT ` + logColumns + ` FROM generation_logs`
	args := make([]any, 0, 2)
	if level != "" {
		query += ` WHERE log_level = ?`
		args = append(args, strings.ToLower(level))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generation logs: %w", err)
	}
	defer rows.Close()

	var entries []*GenerationLog
	for rows.Next() {
		var (
			entry       GenerationLog
			sceneNumber sql.NullInt64
			details     sql.NullString
			createdRaw  sql.NullString
		)
		if err := rows.Scan(
			&entry.ID,
			&sceneNumber,
			&entry.Level,
			&entry.Component,
			&entry.Message,
			&details,
			&createdRaw,
		); err != nil {
			return nil, err
		}
		if sceneNumber.Valid {
			value := sceneNumber.Int64
			entry.SceneNumber = &value
		}
		entry.ErrorDetails = details.String
		if created, err := parseTimeString(createdRaw.String); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
