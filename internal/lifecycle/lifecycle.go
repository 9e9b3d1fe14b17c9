// Package lifecycle owns episode and scene state transitions. The
// orchestrator decides when to act; this package decides what a transition
// means and keeps every multi-row change inside one transaction.
package lifecycle

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"showrunner/internal/canon"
	"showrunner/internal/config"
	"showrunner/internal/director"
	"showrunner/internal/logging"
	"showrunner/internal/renderer"
	"showrunner/internal/services"
	"showrunner/internal/store"
)

var (
	// ErrEpisodeAlreadyOpen signals a StartEpisode call while an episode is
	// still generating.
	ErrEpisodeAlreadyOpen = errors.New("an episode is already open")
	// ErrRetriesExhausted signals a scene that failed its final allowed
	// attempt. The series halts in error status until an operator retries.
	ErrRetriesExhausted = errors.New("scene retries exhausted")
	// ErrEpisodeComplete signals AdvanceScene called on an episode whose
	// scenes are all rendered.
	ErrEpisodeComplete = errors.New("episode has no scenes left")
)

// Manager coordinates the planner, renderer, and canon memory through the
// store. It is driven by a single goroutine; methods are not safe for
// concurrent use.
type Manager struct {
	store    *store.Store
	memory   *canon.Memory
	planner  director.Planner
	renderer renderer.Renderer
	images   renderer.ImageRenderer
	cfg      *config.Config
	logger   *slog.Logger
}

// NewManager wires the lifecycle over its collaborators. images may be nil
// when the backend cannot produce reference stills.
func NewManager(
	st *store.Store,
	memory *canon.Memory,
	planner director.Planner,
	sceneRenderer renderer.Renderer,
	images renderer.ImageRenderer,
	cfg *config.Config,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:    st,
		memory:   memory,
		planner:  planner,
		renderer: sceneRenderer,
		images:   images,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "lifecycle"),
	}
}

// StartEpisode plans and persists the next episode. Episode numbers are
// forward-only: the next number is always total_episodes + 1. On planner
// failure nothing is written and the series returns to idle so a later
// tick can retry.
func (m *Manager) StartEpisode(ctx context.Context) (*store.Episode, error) {
	open, err := m.store.OpenEpisode(ctx)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, fmt.Errorf("%w: episode %d", ErrEpisodeAlreadyOpen, open.EpisodeNumber)
	}

	snapshot, err := m.memory.ReadContext(ctx)
	if err != nil {
		return nil, err
	}
	episodeNumber := snapshot.State.TotalEpisodes + 1
	ctx = services.WithEpisodeNumber(ctx, episodeNumber)

	if err := m.store.SetSystemStatus(ctx, store.StatusPlanningEpisode); err != nil {
		return nil, err
	}

	plan, err := m.planner.PlanEpisode(ctx, episodeNumber, snapshot)
	if err == nil {
		err = director.ValidatePlan(plan, m.cfg.Series.ScenesPerEpisode)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "episode planning failed",
			logging.Int64(logging.FieldEpisodeNumber, episodeNumber),
			logging.Error(err),
		)
		m.appendLog(ctx, nil, "error", "director", fmt.Sprintf("planning episode %d failed", episodeNumber), err)
		if statusErr := m.store.SetSystemStatus(ctx, store.StatusIdle); statusErr != nil {
			return nil, errors.Join(err, statusErr)
		}
		return nil, err
	}

	encoded, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode episode plan: %w", err)
	}

	var episode *store.Episode
	err = m.store.WithTx(ctx, func(tx *sql.Tx) error {
		episode, err = m.store.InsertEpisodeTx(ctx, tx, episodeNumber, string(encoded), plan.ArcSummary)
		if err != nil {
			return err
		}
		sceneOne := 1
		status := store.StatusGeneratingScene
		return m.store.UpdateSeriesStateTx(ctx, tx, store.SeriesStateUpdate{
			CurrentEpisode:        &episodeNumber,
			CurrentSceneInEpisode: &sceneOne,
			SystemStatus:          &status,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("persist episode %d: %w", episodeNumber, err)
	}

	m.logger.InfoContext(ctx, "episode planned",
		logging.Int64(logging.FieldEpisodeNumber, episodeNumber),
		logging.Int("scenes", len(plan.Scenes)),
		logging.Int("new_characters", len(plan.NewCharacters)),
		logging.Float64("estimated_cost", plan.EstimatedCost),
	)
	m.appendLog(ctx, nil, "info", "director",
		fmt.Sprintf("episode %d planned with %d scenes (estimated cost %.2f)", episodeNumber, len(plan.Scenes), plan.EstimatedCost), nil)

	m.introduceCharacters(ctx, plan)
	return episode, nil
}

// introduceCharacters registers planned characters and requests reference
// images. Image failures are logged and skipped; the episode proceeds.
func (m *Manager) introduceCharacters(ctx context.Context, plan *director.Plan) {
	for _, spec := range plan.NewCharacters {
		imageURL := ""
		if m.images != nil {
			prompt := spec.ImagePrompt
			if prompt == "" {
				prompt = spec.Description
			}
			url, _, err := m.images.RenderCharacterImage(ctx, spec.Name, prompt)
			if err != nil {
				m.logger.WarnContext(ctx, "character image generation failed",
					logging.String("character", spec.Name),
					logging.Error(err),
				)
				m.appendLog(ctx, nil, "warn", "renderer",
					fmt.Sprintf("reference image for %q failed", spec.Name), err)
			} else {
				imageURL = url
			}
		}
		if _, err := m.memory.RegisterCharacter(ctx, spec.Name, spec.Description, imageURL, 0); err != nil {
			m.logger.WarnContext(ctx, "character registration failed",
				logging.String("character", spec.Name),
				logging.Error(err),
			)
		}
	}
}

// AdvanceScene renders the episode's next scene. A restart resumes the
// existing incomplete scene row and its already-issued number; otherwise a
// new row gets the next global number. Success routes through canon; the
// last allowed failure halts the series in error status.
func (m *Manager) AdvanceScene(ctx context.Context, episode *store.Episode) (*store.Scene, error) {
	if episode == nil {
		return nil, errors.New("episode is nil")
	}
	ctx = services.WithEpisodeNumber(ctx, episode.EpisodeNumber)

	var plan director.Plan
	if err := json.Unmarshal([]byte(episode.DirectorPlan), &plan); err != nil {
		return nil, fmt.Errorf("decode plan for episode %d: %w", episode.EpisodeNumber, err)
	}

	scene, err := m.nextScene(ctx, episode, &plan)
	if err != nil {
		return nil, err
	}
	ctx = services.WithSceneNumber(ctx, scene.SceneNumber)

	planned := plan.Scenes[scene.SceneInEpisode-1]
	m.logger.InfoContext(ctx, "rendering scene",
		logging.Int64(logging.FieldSceneNumber, scene.SceneNumber),
		logging.Int(logging.FieldSceneInEpisode, scene.SceneInEpisode),
		logging.Int("attempt", scene.RetryCount+1),
	)

	artifact, renderErr := m.renderer.RenderScene(ctx, renderer.Request{
		EpisodeNumber:   episode.EpisodeNumber,
		SceneNumber:     scene.SceneNumber,
		SceneInEpisode:  scene.SceneInEpisode,
		Prompt:          scene.VideoPrompt,
		DurationSeconds: scene.DurationSeconds,
	})
	if renderErr != nil {
		return nil, m.handleRenderFailure(ctx, scene, renderErr)
	}

	outcome := canon.Outcome{
		VideoURL:        artifact.VideoURL,
		DurationSeconds: artifact.DurationSeconds,
		Cost:            artifact.Cost,
	}
	if planned.OpensThread != "" {
		outcome.OpenThreads = append(outcome.OpenThreads, canon.ThreadDelta{
			Content:  planned.OpensThread,
			Priority: planned.ThreadPriority,
		})
	}
	for _, name := range planned.Characters {
		outcome.Characters = append(outcome.Characters, canon.CharacterDelta{Name: name})
	}
	if _, err := m.memory.RecordSceneOutcome(ctx, scene, outcome); err != nil {
		return nil, err
	}
	m.appendLog(ctx, &scene.SceneNumber, "info", "renderer",
		fmt.Sprintf("scene %d rendered (cost %.2f)", scene.SceneNumber, artifact.Cost), nil)

	completed, err := m.store.SceneByNumber(ctx, scene.SceneNumber)
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// nextScene resumes the incomplete scene row or creates the next one.
func (m *Manager) nextScene(ctx context.Context, episode *store.Episode, plan *director.Plan) (*store.Scene, error) {
	scene, err := m.store.IncompleteScene(ctx, episode.ID)
	if err != nil {
		return nil, err
	}
	if scene != nil {
		if scene.SceneInEpisode < 1 || scene.SceneInEpisode > len(plan.Scenes) {
			return nil, fmt.Errorf("scene %d outside plan for episode %d", scene.SceneInEpisode, episode.EpisodeNumber)
		}
		return scene, nil
	}

	completed, err := m.store.CountCompletedScenes(ctx, episode.ID)
	if err != nil {
		return nil, err
	}
	if completed >= len(plan.Scenes) {
		return nil, ErrEpisodeComplete
	}
	sceneInEpisode := completed + 1
	planned := plan.Scenes[sceneInEpisode-1]

	number, err := m.store.NextSceneNumber(ctx)
	if err != nil {
		return nil, err
	}
	return m.store.InsertScene(ctx, &store.Scene{
		SceneNumber:      number,
		EpisodeID:        episode.ID,
		SceneInEpisode:   sceneInEpisode,
		DurationSeconds:  m.cfg.Series.SceneDurationSeconds,
		VideoPrompt:      planned.VideoPrompt,
		NarrativeSummary: planned.NarrativeSummary,
	})
}

// handleRenderFailure books the failed attempt and decides whether the
// series keeps retrying or halts. Attempts are counted per scene row, so
// exactly max_scene_retries renders happen before the halt.
func (m *Manager) handleRenderFailure(ctx context.Context, scene *store.Scene, renderErr error) error {
	if err := m.store.RecordSceneFailure(ctx, scene.ID); err != nil {
		return errors.Join(renderErr, err)
	}
	attempts := scene.RetryCount + 1
	m.appendLog(ctx, &scene.SceneNumber, "error", "renderer",
		fmt.Sprintf("scene %d render attempt %d failed", scene.SceneNumber, attempts), renderErr)

	exhausted := attempts >= m.cfg.Generation.MaxSceneRetries
	if services.IsTerminal(renderErr) || exhausted {
		m.logger.ErrorContext(ctx, "scene halted the series",
			logging.Int64(logging.FieldSceneNumber, scene.SceneNumber),
			logging.Int("attempts", attempts),
			logging.Bool("terminal", services.IsTerminal(renderErr)),
			logging.Error(renderErr),
			logging.Alert("generation halted, operator retry required"),
		)
		if err := m.store.SetSystemStatus(ctx, store.StatusError); err != nil {
			return errors.Join(renderErr, err)
		}
		return fmt.Errorf("%w: scene %d after %d attempts: %w", ErrRetriesExhausted, scene.SceneNumber, attempts, renderErr)
	}

	m.logger.WarnContext(ctx, "scene render failed, will retry",
		logging.Int64(logging.FieldSceneNumber, scene.SceneNumber),
		logging.Int("attempts", attempts),
		logging.Error(renderErr),
	)
	return renderErr
}

// CompleteEpisodeIfDone finalizes the episode once every planned scene is
// rendered: cost rolls up, counters advance, series returns to idle. The
// bool reports whether completion happened on this call.
func (m *Manager) CompleteEpisodeIfDone(ctx context.Context, episode *store.Episode) (bool, error) {
	if episode == nil {
		return false, errors.New("episode is nil")
	}
	completed, err := m.store.CountCompletedScenes(ctx, episode.ID)
	if err != nil {
		return false, err
	}
	if completed < m.cfg.Series.ScenesPerEpisode {
		return false, nil
	}

	var totalCost float64
	err = m.store.WithTx(ctx, func(tx *sql.Tx) error {
		totalCost, err = m.store.CompleteEpisodeTx(ctx, tx, episode.ID)
		if err != nil {
			return err
		}
		state, err := m.store.SeriesStateTx(ctx, tx)
		if err != nil {
			return err
		}
		totalEpisodes := state.TotalEpisodes + 1
		nextEpisode := episode.EpisodeNumber + 1
		sceneOne := 1
		status := store.StatusIdle
		return m.store.UpdateSeriesStateTx(ctx, tx, store.SeriesStateUpdate{
			CurrentEpisode:        &nextEpisode,
			CurrentSceneInEpisode: &sceneOne,
			TotalEpisodes:         &totalEpisodes,
			SystemStatus:          &status,
		})
	})
	if err != nil {
		return false, fmt.Errorf("complete episode %d: %w", episode.EpisodeNumber, err)
	}

	m.logger.InfoContext(ctx, "episode complete",
		logging.Int64(logging.FieldEpisodeNumber, episode.EpisodeNumber),
		logging.Int("scenes", completed),
		logging.Float64("total_cost", totalCost),
	)
	m.appendLog(ctx, nil, "info", "orchestrator",
		fmt.Sprintf("episode %d complete, total cost %.2f", episode.EpisodeNumber, totalCost), nil)
	return true, nil
}

// RetryErrored resets the halted scene's retry budget and puts the series
// back into generation. The operator intervention path.
func (m *Manager) RetryErrored(ctx context.Context) error {
	state, err := m.store.SeriesState(ctx)
	if err != nil {
		return err
	}
	if state.SystemStatus != store.StatusError {
		return services.Wrap(services.ErrValidation, "lifecycle", "retry",
			fmt.Sprintf("series is %s, not error", state.SystemStatus), nil)
	}
	episode, err := m.store.OpenEpisode(ctx)
	if err != nil {
		return err
	}
	if episode == nil {
		return m.store.SetSystemStatus(ctx, store.StatusIdle)
	}
	if err := m.store.ResetSceneRetries(ctx, episode.ID); err != nil {
		return err
	}
	if err := m.store.SetSystemStatus(ctx, store.StatusGeneratingScene); err != nil {
		return err
	}
	m.appendLog(ctx, nil, "info", "orchestrator",
		fmt.Sprintf("operator retry on episode %d", episode.EpisodeNumber), nil)
	return nil
}

func (m *Manager) appendLog(ctx context.Context, sceneNumber *int64, level, component, message string, cause error) {
	entry := &store.GenerationLog{
		SceneNumber: sceneNumber,
		Level:       level,
		Component:   component,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
	if cause != nil {
		entry.ErrorDetails = cause.Error()
	}
	if err := m.store.AppendLog(ctx, entry); err != nil {
		m.logger.WarnContext(ctx, "audit log write failed", logging.Error(err))
	}
}
