package services

import "context"

type contextKey string

const (
	episodeKey   contextKey = "episode_number"
	sceneKey     contextKey = "scene_number"
	requestIDKey contextKey = "request_id"
)

// WithEpisodeNumber annotates context with the episode being processed.
func WithEpisodeNumber(ctx context.Context, number int64) context.Context {
	return context.WithValue(ctx, episodeKey, number)
}

// EpisodeNumberFromContext extracts the episode number if present.
func EpisodeNumberFromContext(ctx context.Context) (int64, bool) {
	switch v := ctx.Value(episodeKey).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// WithSceneNumber annotates context with the global scene number.
func WithSceneNumber(ctx context.Context, number int64) context.Context {
	return context.WithValue(ctx, sceneKey, number)
}

// SceneNumberFromContext extracts the global scene number if present.
func SceneNumberFromContext(ctx context.Context) (int64, bool) {
	switch v := ctx.Value(sceneKey).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
