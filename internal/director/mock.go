package director

import (
	"context"
	"fmt"

	"showrunner/internal/canon"
)

// mockEstimatedPlanCost approximates model spend for one planning call.
const mockEstimatedPlanCost = 0.05

// MockPlanner produces deterministic plans without touching the network.
// Episode 1 introduces a small fixed cast; later episodes reuse whatever
// the snapshot says already exists. Plans are a pure function of episode
// number and series shape, so tests and mock-mode runs are reproducible.
type MockPlanner struct {
	ScenesPerEpisode     int
	SceneDurationSeconds int
}

var _ Planner = (*MockPlanner)(nil)

// NewMockPlanner builds a planner for the given series shape.
func NewMockPlanner(scenesPerEpisode, sceneDurationSeconds int) *MockPlanner {
	if scenesPerEpisode <= 0 {
		scenesPerEpisode = 6
	}
	if sceneDurationSeconds <= 0 {
		sceneDurationSeconds = 30
	}
	return &MockPlanner{
		ScenesPerEpisode:     scenesPerEpisode,
		SceneDurationSeconds: sceneDurationSeconds,
	}
}

var mockCast = []CharacterSpec{
	{Name: "Captain Mara Voss", Description: "Weathered freighter captain who trusts her ship more than people."},
	{Name: "Juno", Description: "Ship's navigation AI with an unsettling sense of humor."},
	{Name: "Dex Calloway", Description: "Rookie engineer hiding why he really left the shipyards."},
}

// PlanEpisode returns the canned plan for the requested episode.
func (p *MockPlanner) PlanEpisode(ctx context.Context, episodeNumber int64, snapshot *canon.Snapshot) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	plan := &Plan{
		EpisodeNumber: episodeNumber,
		ArcSummary:    fmt.Sprintf("Episode %d: the crew of the Meridian pushes deeper into the drift, and an old debt resurfaces.", episodeNumber),
		EstimatedCost: mockEstimatedPlanCost,
	}
	if episodeNumber == 1 && (snapshot == nil || len(snapshot.Characters) == 0) {
		plan.NewCharacters = append(plan.NewCharacters, mockCast...)
	}
	cast := castNames(plan, snapshot)
	for i := 1; i <= p.ScenesPerEpisode; i++ {
		plan.Scenes = append(plan.Scenes, ScenePlan{
			SceneInEpisode: i,
			VideoPrompt: fmt.Sprintf(
				"Cinematic %d second shot, episode %d scene %d: the freighter Meridian drifts through a derelict field, cold blue light, slow dolly in.",
				p.SceneDurationSeconds, episodeNumber, i),
			NarrativeSummary: fmt.Sprintf("Episode %d, scene %d: the crew uncovers another piece of the debt that follows them.", episodeNumber, i),
			Characters:       cast,
		})
	}
	// Leave one thread dangling so the next episode has something to pull on.
	plan.Scenes[len(plan.Scenes)-1].OpensThread = fmt.Sprintf("The signal from episode %d remains unanswered.", episodeNumber)
	plan.Scenes[len(plan.Scenes)-1].ThreadPriority = 5
	return plan, nil
}

func castNames(plan *Plan, snapshot *canon.Snapshot) []string {
	var names []string
	for _, spec := range plan.NewCharacters {
		names = append(names, spec.Name)
	}
	if snapshot != nil {
		for _, character := range snapshot.Characters {
			names = append(names, character.Name)
		}
	}
	if len(names) == 0 {
		for _, spec := range mockCast {
			names = append(names, spec.Name)
		}
	}
	return names
}
