// Package director plans episodes. A Planner turns the current canon
// snapshot into an ordered list of scene prompts; the orchestrator persists
// the plan verbatim and renders one scene at a time.
package director

import (
	"context"
	"fmt"
	"strings"

	"showrunner/internal/canon"
	"showrunner/internal/services"
)

// Planner produces the next episode's plan from series memory.
type Planner interface {
	// PlanEpisode returns a validated-shape plan for the given episode
	// number. Implementations must not write any state.
	PlanEpisode(ctx context.Context, episodeNumber int64, snapshot *canon.Snapshot) (*Plan, error)
}

// ScenePlan is one planned scene within an episode.
type ScenePlan struct {
	SceneInEpisode   int      `json:"scene_number"`
	VideoPrompt      string   `json:"video_prompt"`
	NarrativeSummary string   `json:"narrative_summary"`
	Characters       []string `json:"characters,omitempty"`
	OpensThread      string   `json:"opens_thread,omitempty"`
	ThreadPriority   int      `json:"thread_priority,omitempty"`
}

// CharacterSpec introduces a character the plan expects to appear for the
// first time this episode.
type CharacterSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImagePrompt string `json:"image_prompt,omitempty"`
}

// Plan is the director's complete output for one episode. It is stored
// verbatim as JSON on the episode row so a restart can resume mid-episode
// without replanning.
type Plan struct {
	EpisodeNumber int64           `json:"episode_number"`
	ArcSummary    string          `json:"arc_summary"`
	Scenes        []ScenePlan     `json:"scenes"`
	NewCharacters []CharacterSpec `json:"new_characters,omitempty"`
	EstimatedCost float64         `json:"estimated_cost,omitempty"`
}

// ValidatePlan rejects malformed plans before anything is written. Scene
// entries must number exactly scenesPerEpisode, in order, each with a
// non-empty prompt and summary.
func ValidatePlan(plan *Plan, scenesPerEpisode int) error {
	if plan == nil {
		return services.Wrap(services.ErrValidation, "director", "validate", "plan is nil", nil)
	}
	if strings.TrimSpace(plan.ArcSummary) == "" {
		return services.Wrap(services.ErrValidation, "director", "validate", "arc summary is empty", nil)
	}
	if len(plan.Scenes) != scenesPerEpisode {
		return services.Wrap(services.ErrValidation, "director", "validate",
			fmt.Sprintf("plan has %d scenes, want %d", len(plan.Scenes), scenesPerEpisode), nil)
	}
	for i, scene := range plan.Scenes {
		want := i + 1
		if scene.SceneInEpisode != want {
			return services.Wrap(services.ErrValidation, "director", "validate",
				fmt.Sprintf("scene at index %d numbered %d, want %d", i, scene.SceneInEpisode, want), nil)
		}
		if strings.TrimSpace(scene.VideoPrompt) == "" {
			return services.Wrap(services.ErrValidation, "director", "validate",
				fmt.Sprintf("scene %d has empty video prompt", want), nil)
		}
		if strings.TrimSpace(scene.NarrativeSummary) == "" {
			return services.Wrap(services.ErrValidation, "director", "validate",
				fmt.Sprintf("scene %d has empty narrative summary", want), nil)
		}
	}
	for _, spec := range plan.NewCharacters {
		if strings.TrimSpace(spec.Name) == "" {
			return services.Wrap(services.ErrValidation, "director", "validate", "new character with empty name", nil)
		}
	}
	return nil
}
