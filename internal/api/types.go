// Package api defines the read-only view models served over HTTP and
// consumed by the CLI. Conversions from store rows live here so handlers
// and commands share one JSON shape.
package api

import "time"

// SeriesStatus mirrors the series_state row plus daemon liveness.
type SeriesStatus struct {
	Running               bool       `json:"running"`
	PID                   int        `json:"pid,omitempty"`
	SystemStatus          string     `json:"system_status"`
	CurrentEpisode        int64      `json:"current_episode"`
	CurrentSceneInEpisode int        `json:"current_scene_in_episode"`
	TotalEpisodes         int64      `json:"total_episodes"`
	TotalScenes           int64      `json:"total_scenes"`
	LastGeneratedAt       *time.Time `json:"last_generated_at,omitempty"`
	DatabasePath          string     `json:"database_path,omitempty"`
}

// EpisodeView is one episode in a listing.
type EpisodeView struct {
	EpisodeNumber         int64      `json:"episode_number"`
	ArcSummary            string     `json:"arc_summary"`
	SceneCount            int        `json:"scene_count"`
	CompletedScenes       int        `json:"completed_scenes"`
	TotalCost             float64    `json:"total_cost"`
	GenerationStartedAt   *time.Time `json:"generation_started_at,omitempty"`
	GenerationCompletedAt *time.Time `json:"generation_completed_at,omitempty"`
	Open                  bool       `json:"open"`
}

// SceneView is one scene within an episode detail.
type SceneView struct {
	SceneNumber      int64      `json:"scene_number"`
	SceneInEpisode   int        `json:"scene_in_episode"`
	VideoURL         string     `json:"video_url,omitempty"`
	DurationSeconds  int        `json:"duration_seconds"`
	NarrativeSummary string     `json:"narrative_summary"`
	GenerationCost   float64    `json:"generation_cost"`
	RetryCount       int        `json:"retry_count"`
	Completed        bool       `json:"completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// EpisodeDetail is one episode with its scenes in playback order.
type EpisodeDetail struct {
	EpisodeView
	DirectorPlan string      `json:"director_plan,omitempty"`
	Scenes       []SceneView `json:"scenes"`
}

// CharacterView is one canon registry entry.
type CharacterView struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	ImageURL             string `json:"image_url,omitempty"`
	ImageVersion         int    `json:"image_version"`
	CanonicalState       string `json:"canonical_state,omitempty"`
	FirstAppearanceScene int64  `json:"first_appearance_scene"`
	LastAppearanceScene  int64  `json:"last_appearance_scene"`
}

// StatsView aggregates series totals.
type StatsView struct {
	TotalEpisodes        int64   `json:"total_episodes"`
	CompletedEpisodes    int64   `json:"completed_episodes"`
	TotalScenes          int64   `json:"total_scenes"`
	CompletedScenes      int64   `json:"completed_scenes"`
	TotalCost            float64 `json:"total_cost"`
	TotalDurationSeconds int64   `json:"total_duration_seconds"`
	TotalCharacters      int64   `json:"total_characters"`
}

// LogView is one generation audit entry.
type LogView struct {
	SceneNumber *int64    `json:"scene_number,omitempty"`
	Level       string    `json:"level"`
	Component   string    `json:"component"`
	Message     string    `json:"message"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EpisodeListResponse wraps a paginated episode listing.
type EpisodeListResponse struct {
	Episodes []EpisodeView `json:"episodes"`
	Total    int64         `json:"total"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
}

// LogListResponse wraps an audit log listing.
type LogListResponse struct {
	Logs []LogView `json:"logs"`
}

// CharacterListResponse wraps the character registry.
type CharacterListResponse struct {
	Characters []CharacterView `json:"characters"`
}

// ControlResponse acknowledges a POST control verb.
type ControlResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ErrorResponse carries a handler failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
