// Package canon is the single write path for series memory. Every durable
// narrative fact, which characters exist, what happened in past scenes,
// which plot threads remain open, enters the database through
// RecordSceneOutcome and is read back through ReadContext. Keeping one
// writer makes the memory append-only and immune to partial updates.
package canon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"showrunner/internal/logging"
	"showrunner/internal/store"
)

const defaultWindowSize = 10

// openThreadLimit caps how many unresolved threads a snapshot carries so
// planner prompts stay bounded as the series grows.
const openThreadLimit = 20

// Memory mediates all narrative state access.
type Memory struct {
	store      *store.Store
	logger     *slog.Logger
	windowSize int
}

// NewMemory wires canon memory over the given store. windowSize bounds how
// many recent scenes a snapshot includes; zero selects the default.
func NewMemory(st *store.Store, logger *slog.Logger, windowSize int) *Memory {
	if logger == nil {
		logger = logging.NewNop()
	}
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	return &Memory{
		store:      st,
		logger:     logging.NewComponentLogger(logger, "canon"),
		windowSize: windowSize,
	}
}

// Snapshot is a read-only view of series memory at one point in time.
// RecentScenes run oldest to newest so callers can present them
// chronologically without re-sorting.
type Snapshot struct {
	State        *store.SeriesState
	Characters   []*store.Character
	RecentScenes []*store.Scene
	OpenThreads  []*store.ContextFragment
}

// ReadContext assembles the snapshot handed to episode planning.
func (m *Memory) ReadContext(ctx context.Context) (*Snapshot, error) {
	state, err := m.store.SeriesState(ctx)
	if err != nil {
		return nil, fmt.Errorf("read series state: %w", err)
	}
	characters, err := m.store.Characters(ctx)
	if err != nil {
		return nil, fmt.Errorf("read characters: %w", err)
	}
	scenes, err := m.store.RecentCompletedScenes(ctx, m.windowSize)
	if err != nil {
		return nil, fmt.Errorf("read recent scenes: %w", err)
	}
	threads, err := m.store.OpenThreads(ctx, openThreadLimit)
	if err != nil {
		return nil, fmt.Errorf("read open threads: %w", err)
	}
	return &Snapshot{
		State:        state,
		Characters:   characters,
		RecentScenes: scenes,
		OpenThreads:  threads,
	}, nil
}

// CharacterDelta describes a character's involvement in a completed scene.
// Unknown names are registered with the next sequential identifier; known
// names get their canonical state and last appearance refreshed.
type CharacterDelta struct {
	Name           string
	CanonicalState string
	ImageURL       string
}

// ThreadDelta opens one plot thread for future episodes to pick up.
type ThreadDelta struct {
	Content  string
	Priority int
}

// Outcome carries everything a successfully rendered scene contributes to
// series memory.
type Outcome struct {
	VideoURL        string
	DurationSeconds int
	Cost            float64
	Events          []string
	OpenThreads     []ThreadDelta
	Characters      []CharacterDelta
}

// RecordSceneOutcome commits a rendered scene to canon in one transaction:
// the scene row is stamped complete, context fragments are appended,
// characters are registered or touched, and the series counters advance.
// Calling it again for an already completed scene is a no-op; the returned
// bool reports whether this call performed the write.
func (m *Memory) RecordSceneOutcome(ctx context.Context, scene *store.Scene, outcome Outcome) (bool, error) {
	if scene == nil {
		return false, errors.New("scene is nil")
	}
	recorded := false
	err := m.store.WithTx(ctx, func(tx *sql.Tx) error {
		done, err := m.store.CompleteSceneTx(ctx, tx, scene.ID, outcome.VideoURL, outcome.DurationSeconds, outcome.Cost)
		if err != nil {
			return err
		}
		if !done {
			return nil
		}
		recorded = true

		if summary := strings.TrimSpace(scene.NarrativeSummary); summary != "" {
			if err := m.store.InsertContextTx(ctx, tx, &store.ContextFragment{
				SceneID:     scene.ID,
				ContextType: store.ContextSceneEvent,
				Content:     summary,
			}); err != nil {
				return err
			}
		}
		for _, event := range outcome.Events {
			if event = strings.TrimSpace(event); event == "" {
				continue
			}
			if err := m.store.InsertContextTx(ctx, tx, &store.ContextFragment{
				SceneID:     scene.ID,
				ContextType: store.ContextSceneEvent,
				Content:     event,
			}); err != nil {
				return err
			}
		}
		for _, thread := range outcome.OpenThreads {
			if thread.Content = strings.TrimSpace(thread.Content); thread.Content == "" {
				continue
			}
			if err := m.store.InsertContextTx(ctx, tx, &store.ContextFragment{
				SceneID:     scene.ID,
				ContextType: store.ContextOpenThread,
				Content:     thread.Content,
				Priority:    thread.Priority,
			}); err != nil {
				return err
			}
		}

		for _, delta := range outcome.Characters {
			if err := m.applyCharacterDelta(ctx, tx, scene.SceneNumber, delta); err != nil {
				return err
			}
		}

		state, err := m.store.SeriesStateTx(ctx, tx)
		if err != nil {
			return err
		}
		totalScenes := state.TotalScenes + 1
		nextInEpisode := scene.SceneInEpisode + 1
		return m.store.UpdateSeriesStateTx(ctx, tx, store.SeriesStateUpdate{
			TotalScenes:           &totalScenes,
			CurrentSceneInEpisode: &nextInEpisode,
		})
	})
	if err != nil {
		return false, fmt.Errorf("record scene %d outcome: %w", scene.SceneNumber, err)
	}
	if recorded {
		m.logger.InfoContext(ctx, "scene committed to canon",
			logging.Int64(logging.FieldSceneNumber, scene.SceneNumber),
			logging.Float64("cost", outcome.Cost),
			logging.Int("characters", len(outcome.Characters)),
		)
	}
	return recorded, nil
}

// RegisterCharacter creates a canon character outside the scene outcome
// path. Used when an episode plan introduces characters before their first
// scene renders.
func (m *Memory) RegisterCharacter(ctx context.Context, name, description, imageURL string, sceneNumber int64) (*store.Character, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("character name is empty")
	}
	var character *store.Character
	err := m.store.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := m.store.CharacterByNameTx(ctx, tx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			character = existing
			return nil
		}
		id, err := m.store.NextCharacterIDTx(ctx, tx)
		if err != nil {
			return err
		}
		character = &store.Character{
			ID:                   id,
			Name:                 name,
			ImageURL:             imageURL,
			ImageVersion:         1,
			CanonicalState:       description,
			FirstAppearanceScene: sceneNumber,
			LastAppearanceScene:  sceneNumber,
		}
		return m.store.InsertCharacterTx(ctx, tx, character)
	})
	if err != nil {
		return nil, fmt.Errorf("register character %q: %w", name, err)
	}
	return character, nil
}

func (m *Memory) applyCharacterDelta(ctx context.Context, tx *sql.Tx, sceneNumber int64, delta CharacterDelta) error {
	name := strings.TrimSpace(delta.Name)
	if name == "" {
		return nil
	}
	existing, err := m.store.CharacterByNameTx(ctx, tx, name)
	if err != nil {
		return err
	}
	if existing != nil {
		return m.store.TouchCharacterTx(ctx, tx, existing.ID, delta.CanonicalState, sceneNumber)
	}
	id, err := m.store.NextCharacterIDTx(ctx, tx)
	if err != nil {
		return err
	}
	return m.store.InsertCharacterTx(ctx, tx, &store.Character{
		ID:                   id,
		Name:                 name,
		ImageURL:             delta.ImageURL,
		ImageVersion:         1,
		CanonicalState:       delta.CanonicalState,
		FirstAppearanceScene: sceneNumber,
		LastAppearanceScene:  sceneNumber,
	})
}
