package store

import (
	"strings"
	"time"
)

// SystemStatus represents the orchestrator's position in the generation cycle.
type SystemStatus string

const (
	StatusIdle            SystemStatus = "idle"
	StatusPlanningEpisode SystemStatus = "planning_episode"
	StatusGeneratingScene SystemStatus = "generating_scene"
	StatusPaused          SystemStatus = "paused"
	StatusError           SystemStatus = "error"
)

var allStatuses = []SystemStatus{
	StatusIdle,
	StatusPlanningEpisode,
	StatusGeneratingScene,
	StatusPaused,
	StatusError,
}

var statusSet = func() map[SystemStatus]struct{} {
	set := make(map[SystemStatus]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []SystemStatus {
	cp := make([]SystemStatus, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known SystemStatus.
func ParseStatus(value string) (SystemStatus, bool) {
	normalized := SystemStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// SeriesState is the singleton row tracking where the series stands. It is
// mutated only through the orchestrator's lifecycle transitions and is
// always recomputable from the episodes and scenes tables.
type SeriesState struct {
	CurrentEpisode        int64
	CurrentSceneInEpisode int
	TotalScenes           int64
	TotalEpisodes         int64
	LastGeneratedAt       *time.Time
	SystemStatus          SystemStatus
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Episode holds one planned narrative unit and its accumulated cost.
type Episode struct {
	ID                    int64
	EpisodeNumber         int64
	DirectorPlan          string
	ArcSummary            string
	GenerationStartedAt   *time.Time
	GenerationCompletedAt *time.Time
	TotalCost             float64
	CreatedAt             time.Time
}

// Open reports whether the episode has not finished generating.
func (e *Episode) Open() bool {
	return e != nil && e.GenerationCompletedAt == nil
}

// Scene is the atomic unit of rendering work. SceneNumber is globally
// unique and strictly increasing; SceneInEpisode restarts at 1 per episode.
type Scene struct {
	ID                    int64
	SceneNumber           int64
	EpisodeID             int64
	SceneInEpisode        int
	VideoURL              string
	DurationSeconds       int
	VideoPrompt           string
	NarrativeSummary      string
	GenerationStartedAt   *time.Time
	GenerationCompletedAt *time.Time
	GenerationCost        float64
	RetryCount            int
	CreatedAt             time.Time
}

// Completed reports whether the scene rendered successfully. A completed
// scene is immutable.
func (s *Scene) Completed() bool {
	return s != nil && s.GenerationCompletedAt != nil
}

// Character is a registry entry in the series canon.
type Character struct {
	ID                   string
	Name                 string
	ImageURL             string
	ImageVersion         int
	CanonicalState       string
	FirstAppearanceScene int64
	LastAppearanceScene  int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ContextFragment is one append-only narrative context entry tied to a scene.
type ContextFragment struct {
	ID          int64
	SceneID     int64
	ContextType string
	Content     string
	Priority    int
	CreatedAt   time.Time
}

// Context fragment types recognized by the canon.
const (
	ContextOpenThread = "open_thread"
	ContextSceneEvent = "scene_event"
)

// GenerationLog is one append-only audit trail entry.
type GenerationLog struct {
	ID           int64
	SceneNumber  *int64
	Level        string
	Component    string
	Message      string
	ErrorDetails string
	CreatedAt    time.Time
}

// Stats aggregates series-wide counts for the read API.
type Stats struct {
	TotalEpisodes        int64
	CompletedEpisodes    int64
	TotalScenes          int64
	CompletedScenes      int64
	TotalCost            float64
	TotalDurationSeconds int64
	TotalCharacters      int64
}

// EpisodeSummary is an episode row decorated with scene progress counts,
// used by the paginated listing.
type EpisodeSummary struct {
	Episode
	SceneCount      int
	CompletedScenes int
}
