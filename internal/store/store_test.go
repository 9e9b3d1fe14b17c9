package store_test

import (
	"context"
	"database/sql"
	"testing"

	"showrunner/internal/store"
	"showrunner/internal/testsupport"
)

func TestOpenInitializesSchemaAndSeriesState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	state, err := st.SeriesState(ctx)
	if err != nil {
		t.Fatalf("SeriesState failed: %v", err)
	}
	if state.SystemStatus != store.StatusIdle {
		t.Fatalf("expected idle status, got %s", state.SystemStatus)
	}
	if state.CurrentEpisode != 1 || state.TotalScenes != 0 || state.TotalEpisodes != 0 {
		t.Fatalf("unexpected initial state: %#v", state)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	path := st.Path()
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := store.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	if _, err := reopened.SeriesState(context.Background()); err != nil {
		t.Fatalf("SeriesState after reopen failed: %v", err)
	}
}

func TestUpdateSeriesStatePartial(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	totalScenes := int64(4)
	status := store.StatusGeneratingScene
	if err := st.UpdateSeriesState(ctx, store.SeriesStateUpdate{
		TotalScenes:  &totalScenes,
		SystemStatus: &status,
	}); err != nil {
		t.Fatalf("UpdateSeriesState failed: %v", err)
	}

	state, err := st.SeriesState(ctx)
	if err != nil {
		t.Fatalf("SeriesState failed: %v", err)
	}
	if state.TotalScenes != 4 {
		t.Fatalf("expected total_scenes 4, got %d", state.TotalScenes)
	}
	if state.SystemStatus != store.StatusGeneratingScene {
		t.Fatalf("expected generating_scene, got %s", state.SystemStatus)
	}
	if state.CurrentEpisode != 1 {
		t.Fatalf("untouched field changed: current_episode = %d", state.CurrentEpisode)
	}
	if state.LastGeneratedAt == nil {
		t.Fatal("expected last_generated_at to be stamped")
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := store.ParseStatus(" Generating_Scene "); !ok || status != store.StatusGeneratingScene {
		t.Fatalf("ParseStatus normalized = %q ok=%v", status, ok)
	}
	if _, ok := store.ParseStatus("exploded"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestSingleOpenEpisodeInvariant(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := st.InsertEpisodeTx(ctx, tx, 1, `{"scenes":[]}`, "first arc")
		return err
	}); err != nil {
		t.Fatalf("insert episode failed: %v", err)
	}

	open, err := st.OpenEpisode(ctx)
	if err != nil {
		t.Fatalf("OpenEpisode failed: %v", err)
	}
	if open == nil || open.EpisodeNumber != 1 {
		t.Fatalf("expected episode 1 open, got %#v", open)
	}

	if err := st.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := st.InsertEpisodeTx(ctx, tx, 2, `{"scenes":[]}`, "second arc")
		return err
	}); err != nil {
		t.Fatalf("insert second episode failed: %v", err)
	}
	if _, err := st.OpenEpisode(ctx); err == nil {
		t.Fatal("expected error with two open episodes")
	}
}

func TestSceneNumbersAreSequential(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var episode *store.Episode
	if err := st.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		episode, err = st.InsertEpisodeTx(ctx, tx, 1, `{"scenes":[]}`, "arc")
		return err
	}); err != nil {
		t.Fatalf("insert episode failed: %v", err)
	}

	number, err := st.NextSceneNumber(ctx)
	if err != nil {
		t.Fatalf("NextSceneNumber failed: %v", err)
	}
	if number != 1 {
		t.Fatalf("expected first scene number 1, got %d", number)
	}

	scene, err := st.InsertScene(ctx, &store.Scene{
		SceneNumber:      number,
		EpisodeID:        episode.ID,
		SceneInEpisode:   1,
		DurationSeconds:  30,
		VideoPrompt:      "a quiet opening shot",
		NarrativeSummary: "the story begins",
	})
	if err != nil {
		t.Fatalf("InsertScene failed: %v", err)
	}
	if scene.Completed() {
		t.Fatal("fresh scene should not be completed")
	}

	// Completing the scene bumps total_scenes, so the next number advances.
	if err := st.WithTx(ctx, func(tx *sql.Tx) error {
		done, err := st.CompleteSceneTx(ctx, tx, scene.ID, "mock://video/1.mp4", 30, 4.5)
		if err != nil {
			return err
		}
		if !done {
			t.Fatal("expected completion to apply")
		}
		total := int64(1)
		return st.UpdateSeriesStateTx(ctx, tx, store.SeriesStateUpdate{TotalScenes: &total})
	}); err != nil {
		t.Fatalf("complete scene failed: %v", err)
	}

	next, err := st.NextSceneNumber(ctx)
	if err != nil {
		t.Fatalf("NextSceneNumber failed: %v", err)
	}
	if next != 2 {
		t.Fatalf("expected next scene number 2, got %d", next)
	}
}

func TestCompleteSceneTxIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var episode *store.Episode
	if err := st.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		episode, err = st.InsertEpisodeTx(ctx, tx, 1, `{}`, "arc")
		return err
	}); err != nil {
		t.Fatalf("insert episode failed: %v", err)
	}
	scene, err := st.InsertScene(ctx, &store.Scene{
		SceneNumber:      1,
		EpisodeID:        episode.ID,
		SceneInEpisode:   1,
		DurationSeconds:  30,
		VideoPrompt:      "prompt",
		NarrativeSummary: "summary",
	})
	if err != nil {
		t.Fatalf("InsertScene failed: %v", err)
	}

	for i, wantApplied := range []bool{true, false} {
		var applied bool
		if err := st.WithTx(ctx, func(tx *sql.Tx) error {
			var err error
			applied, err = st.CompleteSceneTx(ctx, tx, scene.ID, "mock://video/1.mp4", 30, 4.5)
			return err
		}); err != nil {
			t.Fatalf("CompleteSceneTx call %d failed: %v", i+1, err)
		}
		if applied != wantApplied {
			t.Fatalf("CompleteSceneTx call %d applied=%v, want %v", i+1, applied, wantApplied)
		}
	}
}

func TestIncompleteSceneResumesLowest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var episode *store.Episode
	if err := st.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		episode, err = st.InsertEpisodeTx(ctx, tx, 1, `{}`, "arc")
		return err
	}); err != nil {
		t.Fatalf("insert episode failed: %v", err)
	}

	first, err := st.InsertScene(ctx, &store.Scene{
		SceneNumber: 1, EpisodeID: episode.ID, SceneInEpisode: 1,
		DurationSeconds: 30, VideoPrompt: "p1", NarrativeSummary: "s1",
	})
	if err != nil {
		t.Fatalf("InsertScene failed: %v", err)
	}
	if err := st.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := st.CompleteSceneTx(ctx, tx, first.ID, "mock://1", 30, 4.5)
		return err
	}); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	second, err := st.InsertScene(ctx, &store.Scene{
		SceneNumber: 2, EpisodeID: episode.ID, SceneInEpisode: 2,
		DurationSeconds: 30, VideoPrompt: "p2", NarrativeSummary: "s2",
	})
	if err != nil {
		t.Fatalf("InsertScene failed: %v", err)
	}

	incomplete, err := st.IncompleteScene(ctx, episode.ID)
	if err != nil {
		t.Fatalf("IncompleteScene failed: %v", err)
	}
	if incomplete == nil || incomplete.ID != second.ID {
		t.Fatalf("expected scene 2 incomplete, got %#v", incomplete)
	}
}

func TestRecordSceneFailureIncrementsRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	var episode *store.Episode
	if err := st.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		episode, err = st.InsertEpisodeTx(ctx, tx, 1, `{}`, "arc")
		return err
	}); err != nil {
		t.Fatalf("insert episode failed: %v", err)
	}
	scene, err := st.InsertScene(ctx, &store.Scene{
		SceneNumber: 1, EpisodeID: episode.ID, SceneInEpisode: 1,
		DurationSeconds: 30, VideoPrompt: "p", NarrativeSummary: "s",
	})
	if err != nil {
		t.Fatalf("InsertScene failed: %v", err)
	}

	if err := st.RecordSceneFailure(ctx, scene.ID); err != nil {
		t.Fatalf("RecordSceneFailure failed: %v", err)
	}
	if err := st.RecordSceneFailure(ctx, scene.ID); err != nil {
		t.Fatalf("RecordSceneFailure failed: %v", err)
	}
	fetched, err := st.SceneByNumber(ctx, 1)
	if err != nil {
		t.Fatalf("SceneByNumber failed: %v", err)
	}
	if fetched.RetryCount != 2 {
		t.Fatalf("expected retry_count 2, got %d", fetched.RetryCount)
	}

	if err := st.ResetSceneRetries(ctx, episode.ID); err != nil {
		t.Fatalf("ResetSceneRetries failed: %v", err)
	}
	fetched, err = st.SceneByNumber(ctx, 1)
	if err != nil {
		t.Fatalf("SceneByNumber failed: %v", err)
	}
	if fetched.RetryCount != 0 {
		t.Fatalf("expected retry_count reset, got %d", fetched.RetryCount)
	}
}

func TestCharacterIDsAreSequential(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i, wantID := range []string{"char_001", "char_002", "char_003"} {
		if err := st.WithTx(ctx, func(tx *sql.Tx) error {
			id, err := st.NextCharacterIDTx(ctx, tx)
			if err != nil {
				return err
			}
			if id != wantID {
				t.Fatalf("character %d id = %q, want %q", i+1, id, wantID)
			}
			return st.InsertCharacterTx(ctx, tx, &store.Character{
				ID:   id,
				Name: "Character " + id,
			})
		}); err != nil {
			t.Fatalf("insert character failed: %v", err)
		}
	}

	characters, err := st.Characters(ctx)
	if err != nil {
		t.Fatalf("Characters failed: %v", err)
	}
	if len(characters) != 3 {
		t.Fatalf("expected 3 characters, got %d", len(characters))
	}
}

func TestStatsAndVerifyCounters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.VerifyCounters(ctx); err != nil {
		t.Fatalf("VerifyCounters on fresh store failed: %v", err)
	}

	var episode *store.Episode
	if err := st.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		episode, err = st.InsertEpisodeTx(ctx, tx, 1, `{}`, "arc")
		return err
	}); err != nil {
		t.Fatalf("insert episode failed: %v", err)
	}
	scene, err := st.InsertScene(ctx, &store.Scene{
		SceneNumber: 1, EpisodeID: episode.ID, SceneInEpisode: 1,
		DurationSeconds: 30, VideoPrompt: "p", NarrativeSummary: "s",
	})
	if err != nil {
		t.Fatalf("InsertScene failed: %v", err)
	}
	if err := st.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := st.CompleteSceneTx(ctx, tx, scene.ID, "mock://1", 30, 4.5); err != nil {
			return err
		}
		total := int64(1)
		return st.UpdateSeriesStateTx(ctx, tx, store.SeriesStateUpdate{TotalScenes: &total})
	}); err != nil {
		t.Fatalf("complete scene failed: %v", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEpisodes != 1 || stats.CompletedScenes != 1 || stats.TotalDurationSeconds != 30 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
	if stats.TotalCost < 4.49 || stats.TotalCost > 4.51 {
		t.Fatalf("expected total cost ~4.50, got %f", stats.TotalCost)
	}
	if err := st.VerifyCounters(ctx); err != nil {
		t.Fatalf("VerifyCounters failed: %v", err)
	}
}
