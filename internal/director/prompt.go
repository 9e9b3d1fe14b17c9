package director

import (
	"fmt"
	"strings"

	"showrunner/internal/canon"
)

const planSystemPrompt = `You are the showrunner of an ongoing episodic video series.
Plan the next episode as a JSON object with this exact shape:
{
  "episode_number": <int>,
  "arc_summary": "<one paragraph describing the episode arc>",
  "scenes": [
    {
      "scene_number": <1..N in order>,
      "video_prompt": "<detailed visual prompt for a %d second video clip>",
      "narrative_summary": "<what canonically happens in this scene>",
      "characters": ["<names of characters appearing>"],
      "opens_thread": "<optional plot thread left unresolved>",
      "thread_priority": <optional 0-10>
    }
  ],
  "new_characters": [
    {"name": "<name>", "description": "<canonical description>", "image_prompt": "<reference image prompt>"}
  ]
}
Produce exactly %d scenes. Continuity is mandatory: respect established
characters, their canonical state, and unresolved plot threads. Respond with
JSON only, no prose and no code fences.`

// SystemPrompt renders the planning instructions for the configured series
// shape.
func SystemPrompt(scenesPerEpisode, sceneDurationSeconds int) string {
	return fmt.Sprintf(planSystemPrompt, sceneDurationSeconds, scenesPerEpisode)
}

// UserPrompt serializes the canon snapshot into the planning request.
func UserPrompt(episodeNumber int64, snapshot *canon.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan episode %d.\n", episodeNumber)

	if snapshot == nil {
		b.WriteString("\nThis is the first episode. Establish the series premise and introduce the initial cast.\n")
		return b.String()
	}

	if len(snapshot.Characters) == 0 {
		b.WriteString("\nNo characters exist yet. Introduce the initial cast via new_characters.\n")
	} else {
		b.WriteString("\nEstablished characters:\n")
		for _, character := range snapshot.Characters {
			fmt.Fprintf(&b, "- %s (%s): %s\n", character.Name, character.ID, character.CanonicalState)
		}
	}

	if len(snapshot.RecentScenes) > 0 {
		b.WriteString("\nRecent scenes, oldest first:\n")
		for _, scene := range snapshot.RecentScenes {
			fmt.Fprintf(&b, "- scene %d: %s\n", scene.SceneNumber, scene.NarrativeSummary)
		}
	}

	if len(snapshot.OpenThreads) > 0 {
		b.WriteString("\nUnresolved plot threads:\n")
		for _, thread := range snapshot.OpenThreads {
			fmt.Fprintf(&b, "- [priority %d] %s\n", thread.Priority, thread.Content)
		}
	}

	if snapshot.State != nil {
		fmt.Fprintf(&b, "\nSeries progress: %d episodes and %d scenes completed so far.\n",
			snapshot.State.TotalEpisodes, snapshot.State.TotalScenes)
	}
	return b.String()
}
