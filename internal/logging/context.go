package logging

import (
	"context"
	"log/slog"

	"showrunner/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEpisodeNumber is the standardized structured logging key for episode numbers.
	FieldEpisodeNumber = "episode_number"
	// FieldSceneNumber is the standardized structured logging key for global scene numbers.
	FieldSceneNumber = "scene_number"
	// FieldSceneInEpisode is the standardized structured logging key for a scene's position within its episode.
	FieldSceneInEpisode = "scene_in_episode"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags log records with a machine-readable event category.
	FieldEventType = "event_type"
	// FieldErrorHint carries an operator-facing suggestion for resolving an error.
	FieldErrorHint = "error_hint"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if episode, ok := services.EpisodeNumberFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldEpisodeNumber, episode))
	}
	if scene, ok := services.SceneNumberFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldSceneNumber, scene))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
