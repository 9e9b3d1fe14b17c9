package canon_test

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"testing"

	"showrunner/internal/canon"
	"showrunner/internal/store"
	"showrunner/internal/testsupport"
)

func insertEpisode(t *testing.T, st *store.Store) *store.Episode {
	t.Helper()
	var episode *store.Episode
	if err := st.WithTx(context.Background(), func(tx *sql.Tx) error {
		var err error
		episode, err = st.InsertEpisodeTx(context.Background(), tx, 1, `{}`, "arc")
		return err
	}); err != nil {
		t.Fatalf("insert episode failed: %v", err)
	}
	return episode
}

func insertScene(t *testing.T, st *store.Store, episodeID, sceneNumber int64, sceneInEpisode int) *store.Scene {
	t.Helper()
	scene, err := st.InsertScene(context.Background(), &store.Scene{
		SceneNumber:      sceneNumber,
		EpisodeID:        episodeID,
		SceneInEpisode:   sceneInEpisode,
		DurationSeconds:  30,
		VideoPrompt:      fmt.Sprintf("prompt %d", sceneNumber),
		NarrativeSummary: fmt.Sprintf("summary %d", sceneNumber),
	})
	if err != nil {
		t.Fatalf("insert scene %d failed: %v", sceneNumber, err)
	}
	return scene
}

func TestRecordSceneOutcomeCommitsEverything(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	memory := canon.NewMemory(st, nil, 0)
	ctx := context.Background()

	episode := insertEpisode(t, st)
	scene := insertScene(t, st, episode.ID, 1, 1)

	recorded, err := memory.RecordSceneOutcome(ctx, scene, canon.Outcome{
		VideoURL:        "mock://video/episode_1/scene_1.mp4",
		DurationSeconds: 30,
		Cost:            4.5,
		Events:          []string{"the crew docks at the relay"},
		OpenThreads:     []canon.ThreadDelta{{Content: "who sent the signal", Priority: 5}},
		Characters: []canon.CharacterDelta{
			{Name: "Captain Mara Voss", CanonicalState: "on the bridge"},
		},
	})
	if err != nil {
		t.Fatalf("RecordSceneOutcome failed: %v", err)
	}
	if !recorded {
		t.Fatal("expected first outcome to be recorded")
	}

	fetched, err := st.SceneByNumber(ctx, 1)
	if err != nil {
		t.Fatalf("SceneByNumber failed: %v", err)
	}
	if !fetched.Completed() {
		t.Fatal("scene should be completed")
	}
	if math.Abs(fetched.GenerationCost-4.5) > 1e-6 {
		t.Fatalf("scene cost = %f, want 4.50", fetched.GenerationCost)
	}

	fragments, err := st.FragmentsForScene(ctx, scene.ID)
	if err != nil {
		t.Fatalf("FragmentsForScene failed: %v", err)
	}
	// narrative summary + one event + one open thread
	if len(fragments) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(fragments))
	}

	threads, err := st.OpenThreads(ctx, 10)
	if err != nil {
		t.Fatalf("OpenThreads failed: %v", err)
	}
	if len(threads) != 1 || threads[0].Content != "who sent the signal" {
		t.Fatalf("unexpected open threads: %#v", threads)
	}

	character, err := st.CharacterByName(ctx, "Captain Mara Voss")
	if err != nil {
		t.Fatalf("CharacterByName failed: %v", err)
	}
	if character == nil || character.ID != "char_001" {
		t.Fatalf("expected char_001, got %#v", character)
	}
	if character.FirstAppearanceScene != 1 || character.LastAppearanceScene != 1 {
		t.Fatalf("unexpected appearance range: %#v", character)
	}

	state, err := st.SeriesState(ctx)
	if err != nil {
		t.Fatalf("SeriesState failed: %v", err)
	}
	if state.TotalScenes != 1 {
		t.Fatalf("expected total_scenes 1, got %d", state.TotalScenes)
	}
	if state.CurrentSceneInEpisode != 2 {
		t.Fatalf("expected current_scene_in_episode 2, got %d", state.CurrentSceneInEpisode)
	}
}

func TestRecordSceneOutcomeIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	memory := canon.NewMemory(st, nil, 0)
	ctx := context.Background()

	episode := insertEpisode(t, st)
	scene := insertScene(t, st, episode.ID, 1, 1)

	outcome := canon.Outcome{
		VideoURL:        "mock://video/episode_1/scene_1.mp4",
		DurationSeconds: 30,
		Cost:            4.5,
		Characters:      []canon.CharacterDelta{{Name: "Juno"}},
	}
	if _, err := memory.RecordSceneOutcome(ctx, scene, outcome); err != nil {
		t.Fatalf("first RecordSceneOutcome failed: %v", err)
	}
	recorded, err := memory.RecordSceneOutcome(ctx, scene, outcome)
	if err != nil {
		t.Fatalf("second RecordSceneOutcome failed: %v", err)
	}
	if recorded {
		t.Fatal("second call should be a no-op")
	}

	state, err := st.SeriesState(ctx)
	if err != nil {
		t.Fatalf("SeriesState failed: %v", err)
	}
	if state.TotalScenes != 1 {
		t.Fatalf("counters double counted: total_scenes = %d", state.TotalScenes)
	}
	fragments, err := st.FragmentsForScene(ctx, scene.ID)
	if err != nil {
		t.Fatalf("FragmentsForScene failed: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("fragments duplicated: %d", len(fragments))
	}
}

func TestRecordSceneOutcomeTouchesKnownCharacter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	memory := canon.NewMemory(st, nil, 0)
	ctx := context.Background()

	episode := insertEpisode(t, st)
	first := insertScene(t, st, episode.ID, 1, 1)
	second := insertScene(t, st, episode.ID, 2, 2)

	if _, err := memory.RecordSceneOutcome(ctx, first, canon.Outcome{
		VideoURL: "mock://1", DurationSeconds: 30, Cost: 4.5,
		Characters: []canon.CharacterDelta{{Name: "Dex Calloway", CanonicalState: "in the cargo hold"}},
	}); err != nil {
		t.Fatalf("first outcome failed: %v", err)
	}
	if _, err := memory.RecordSceneOutcome(ctx, second, canon.Outcome{
		VideoURL: "mock://2", DurationSeconds: 30, Cost: 4.5,
		Characters: []canon.CharacterDelta{{Name: "Dex Calloway", CanonicalState: "injured but walking"}},
	}); err != nil {
		t.Fatalf("second outcome failed: %v", err)
	}

	character, err := st.CharacterByName(ctx, "Dex Calloway")
	if err != nil {
		t.Fatalf("CharacterByName failed: %v", err)
	}
	if character.ID != "char_001" {
		t.Fatalf("touch created a duplicate: %#v", character)
	}
	if character.CanonicalState != "injured but walking" {
		t.Fatalf("canonical state not refreshed: %q", character.CanonicalState)
	}
	if character.FirstAppearanceScene != 1 || character.LastAppearanceScene != 2 {
		t.Fatalf("unexpected appearance range: first=%d last=%d",
			character.FirstAppearanceScene, character.LastAppearanceScene)
	}
}

func TestReadContextWindowIsChronological(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	memory := canon.NewMemory(st, nil, 3)
	ctx := context.Background()

	episode := insertEpisode(t, st)
	for i := int64(1); i <= 5; i++ {
		scene := insertScene(t, st, episode.ID, i, int(i))
		if _, err := memory.RecordSceneOutcome(ctx, scene, canon.Outcome{
			VideoURL:        fmt.Sprintf("mock://video/%d", i),
			DurationSeconds: 30,
			Cost:            4.5,
		}); err != nil {
			t.Fatalf("outcome %d failed: %v", i, err)
		}
	}

	snapshot, err := memory.ReadContext(ctx)
	if err != nil {
		t.Fatalf("ReadContext failed: %v", err)
	}
	if len(snapshot.RecentScenes) != 3 {
		t.Fatalf("expected window of 3 scenes, got %d", len(snapshot.RecentScenes))
	}
	for i, want := range []int64{3, 4, 5} {
		if snapshot.RecentScenes[i].SceneNumber != want {
			t.Fatalf("window[%d] = scene %d, want %d", i, snapshot.RecentScenes[i].SceneNumber, want)
		}
	}
	if snapshot.State.TotalScenes != 5 {
		t.Fatalf("snapshot state total_scenes = %d", snapshot.State.TotalScenes)
	}
}

func TestRegisterCharacterIsIdempotentByName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	memory := canon.NewMemory(st, nil, 0)
	ctx := context.Background()

	first, err := memory.RegisterCharacter(ctx, "Juno", "ship AI", "mock://character/juno.png", 1)
	if err != nil {
		t.Fatalf("RegisterCharacter failed: %v", err)
	}
	if first.ID != "char_001" {
		t.Fatalf("expected char_001, got %s", first.ID)
	}

	again, err := memory.RegisterCharacter(ctx, "Juno", "different text", "", 9)
	if err != nil {
		t.Fatalf("second RegisterCharacter failed: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected existing character back, got %s", again.ID)
	}

	characters, err := st.Characters(ctx)
	if err != nil {
		t.Fatalf("Characters failed: %v", err)
	}
	if len(characters) != 1 {
		t.Fatalf("duplicate registration: %d characters", len(characters))
	}
}
