package lifecycle_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"showrunner/internal/canon"
	"showrunner/internal/config"
	"showrunner/internal/director"
	"showrunner/internal/lifecycle"
	"showrunner/internal/renderer"
	"showrunner/internal/store"
	"showrunner/internal/testsupport"
)

type fixture struct {
	cfg     *config.Config
	store   *store.Store
	memory  *canon.Memory
	mock    *renderer.MockRenderer
	manager *lifecycle.Manager
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	memory := canon.NewMemory(st, nil, cfg.Generation.CanonSceneWindowSize)
	mock := renderer.NewMockRenderer()
	planner := director.NewMockPlanner(cfg.Series.ScenesPerEpisode, cfg.Series.SceneDurationSeconds)
	manager := lifecycle.NewManager(st, memory, planner, mock, mock, cfg, nil)
	return &fixture{cfg: cfg, store: st, memory: memory, mock: mock, manager: manager}
}

func TestStartEpisodePersistsPlanAndCast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	episode, err := f.manager.StartEpisode(ctx)
	if err != nil {
		t.Fatalf("StartEpisode failed: %v", err)
	}
	if episode.EpisodeNumber != 1 {
		t.Fatalf("expected episode 1, got %d", episode.EpisodeNumber)
	}
	if episode.DirectorPlan == "" || episode.ArcSummary == "" {
		t.Fatalf("plan not persisted: %#v", episode)
	}

	state, err := f.store.SeriesState(ctx)
	if err != nil {
		t.Fatalf("SeriesState failed: %v", err)
	}
	if state.SystemStatus != store.StatusGeneratingScene {
		t.Fatalf("expected generating_scene, got %s", state.SystemStatus)
	}
	if state.CurrentEpisode != 1 || state.CurrentSceneInEpisode != 1 {
		t.Fatalf("unexpected series position: %#v", state)
	}

	// Episode 1 introduces the mock cast with reference images.
	characters, err := f.store.Characters(ctx)
	if err != nil {
		t.Fatalf("Characters failed: %v", err)
	}
	if len(characters) != 3 {
		t.Fatalf("expected 3 characters, got %d", len(characters))
	}
	for _, character := range characters {
		if character.ImageURL == "" {
			t.Fatalf("character %s missing reference image", character.ID)
		}
	}
}

func TestStartEpisodeRejectsSecondOpenEpisode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.manager.StartEpisode(ctx); err != nil {
		t.Fatalf("StartEpisode failed: %v", err)
	}
	if _, err := f.manager.StartEpisode(ctx); !errors.Is(err, lifecycle.ErrEpisodeAlreadyOpen) {
		t.Fatalf("expected ErrEpisodeAlreadyOpen, got %v", err)
	}
}

func TestFullEpisodeAccumulatesCost(t *testing.T) {
	f := newFixture(t)
	f.mock.Cost = 4.61
	ctx := context.Background()

	episode, err := f.manager.StartEpisode(ctx)
	if err != nil {
		t.Fatalf("StartEpisode failed: %v", err)
	}

	for i := 1; i <= f.cfg.Series.ScenesPerEpisode; i++ {
		scene, err := f.manager.AdvanceScene(ctx, episode)
		if err != nil {
			t.Fatalf("AdvanceScene %d failed: %v", i, err)
		}
		if scene.SceneNumber != int64(i) || scene.SceneInEpisode != i {
			t.Fatalf("scene %d numbered %d/%d", i, scene.SceneNumber, scene.SceneInEpisode)
		}
		if !scene.Completed() {
			t.Fatalf("scene %d not completed", i)
		}
	}

	if _, err := f.manager.AdvanceScene(ctx, episode); !errors.Is(err, lifecycle.ErrEpisodeComplete) {
		t.Fatalf("expected ErrEpisodeComplete, got %v", err)
	}

	done, err := f.manager.CompleteEpisodeIfDone(ctx, episode)
	if err != nil {
		t.Fatalf("CompleteEpisodeIfDone failed: %v", err)
	}
	if !done {
		t.Fatal("expected episode to complete")
	}

	finished, err := f.store.EpisodeByNumber(ctx, 1)
	if err != nil {
		t.Fatalf("EpisodeByNumber failed: %v", err)
	}
	if finished.Open() {
		t.Fatal("episode still open after completion")
	}
	// 6 scenes at 4.61 each.
	if math.Abs(finished.TotalCost-27.66) > 1e-6 {
		t.Fatalf("episode cost = %f, want 27.66", finished.TotalCost)
	}

	state, err := f.store.SeriesState(ctx)
	if err != nil {
		t.Fatalf("SeriesState failed: %v", err)
	}
	if state.SystemStatus != store.StatusIdle {
		t.Fatalf("expected idle after completion, got %s", state.SystemStatus)
	}
	if state.CurrentEpisode != 2 || state.TotalEpisodes != 1 || state.TotalScenes != 6 {
		t.Fatalf("unexpected counters: %#v", state)
	}
	if err := f.store.VerifyCounters(ctx); err != nil {
		t.Fatalf("VerifyCounters failed: %v", err)
	}
}

func TestRetriesExhaustedHaltsSeries(t *testing.T) {
	f := newFixture(t, testsupport.WithMaxSceneRetries(3))
	f.mock.FailScene(3, -1)
	ctx := context.Background()

	episode, err := f.manager.StartEpisode(ctx)
	if err != nil {
		t.Fatalf("StartEpisode failed: %v", err)
	}

	for i := 1; i <= 2; i++ {
		if _, err := f.manager.AdvanceScene(ctx, episode); err != nil {
			t.Fatalf("AdvanceScene %d failed: %v", i, err)
		}
	}

	// Two retryable failures, then the third attempt exhausts the budget.
	for attempt := 1; attempt <= 2; attempt++ {
		_, err := f.manager.AdvanceScene(ctx, episode)
		if err == nil {
			t.Fatalf("attempt %d should have failed", attempt)
		}
		if errors.Is(err, lifecycle.ErrRetriesExhausted) {
			t.Fatalf("attempt %d halted too early: %v", attempt, err)
		}
	}
	if _, err := f.manager.AdvanceScene(ctx, episode); !errors.Is(err, lifecycle.ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}

	// 2 successes + exactly 3 attempts on scene 3.
	if got := f.mock.Renders(); got != 5 {
		t.Fatalf("expected 5 render attempts, got %d", got)
	}

	state, err := f.store.SeriesState(ctx)
	if err != nil {
		t.Fatalf("SeriesState failed: %v", err)
	}
	if state.SystemStatus != store.StatusError {
		t.Fatalf("expected error status, got %s", state.SystemStatus)
	}
	if state.TotalScenes != 2 {
		t.Fatalf("failed scene leaked into counters: total_scenes = %d", state.TotalScenes)
	}

	// The failed scene contributed nothing to canon.
	snapshot, err := f.memory.ReadContext(ctx)
	if err != nil {
		t.Fatalf("ReadContext failed: %v", err)
	}
	if len(snapshot.RecentScenes) != 2 {
		t.Fatalf("expected 2 canon scenes, got %d", len(snapshot.RecentScenes))
	}
}

func TestTerminalFailureHaltsImmediately(t *testing.T) {
	f := newFixture(t, testsupport.WithMaxSceneRetries(3))
	f.mock.FailSceneTerminal(1)
	ctx := context.Background()

	episode, err := f.manager.StartEpisode(ctx)
	if err != nil {
		t.Fatalf("StartEpisode failed: %v", err)
	}
	if _, err := f.manager.AdvanceScene(ctx, episode); !errors.Is(err, lifecycle.ErrRetriesExhausted) {
		t.Fatalf("expected immediate halt on terminal failure, got %v", err)
	}
	if got := f.mock.Renders(); got != 1 {
		t.Fatalf("terminal failure should not retry, got %d attempts", got)
	}
}

func TestAdvanceSceneResumesIncompleteRow(t *testing.T) {
	f := newFixture(t, testsupport.WithMaxSceneRetries(3))
	f.mock.FailScene(2, 1)
	ctx := context.Background()

	episode, err := f.manager.StartEpisode(ctx)
	if err != nil {
		t.Fatalf("StartEpisode failed: %v", err)
	}
	if _, err := f.manager.AdvanceScene(ctx, episode); err != nil {
		t.Fatalf("scene 1 failed: %v", err)
	}
	if _, err := f.manager.AdvanceScene(ctx, episode); err == nil {
		t.Fatal("scripted failure did not fire")
	}

	// The retry reuses the existing row and its scene number.
	scene, err := f.manager.AdvanceScene(ctx, episode)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if scene.SceneNumber != 2 || scene.SceneInEpisode != 2 {
		t.Fatalf("retry minted a new number: %d/%d", scene.SceneNumber, scene.SceneInEpisode)
	}
	if scene.RetryCount != 1 {
		t.Fatalf("expected retry_count 1 on resumed scene, got %d", scene.RetryCount)
	}
}

func TestRetryErroredResumesGeneration(t *testing.T) {
	f := newFixture(t, testsupport.WithMaxSceneRetries(1))
	f.mock.FailScene(1, 1)
	ctx := context.Background()

	episode, err := f.manager.StartEpisode(ctx)
	if err != nil {
		t.Fatalf("StartEpisode failed: %v", err)
	}
	if _, err := f.manager.AdvanceScene(ctx, episode); !errors.Is(err, lifecycle.ErrRetriesExhausted) {
		t.Fatalf("expected halt, got %v", err)
	}

	if err := f.manager.RetryErrored(ctx); err != nil {
		t.Fatalf("RetryErrored failed: %v", err)
	}
	state, err := f.store.SeriesState(ctx)
	if err != nil {
		t.Fatalf("SeriesState failed: %v", err)
	}
	if state.SystemStatus != store.StatusGeneratingScene {
		t.Fatalf("expected generating_scene after retry, got %s", state.SystemStatus)
	}

	// The scripted failure was consumed, so the scene now renders.
	scene, err := f.manager.AdvanceScene(ctx, episode)
	if err != nil {
		t.Fatalf("AdvanceScene after retry failed: %v", err)
	}
	if !scene.Completed() {
		t.Fatal("scene should complete after operator retry")
	}
}

func TestRetryErroredRequiresErrorStatus(t *testing.T) {
	f := newFixture(t)
	if err := f.manager.RetryErrored(context.Background()); err == nil {
		t.Fatal("expected error when series is not halted")
	}
}
