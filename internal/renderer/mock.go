package renderer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"showrunner/internal/services"
)

const (
	// mockSceneCost matches the fixed spend a mock render reports.
	mockSceneCost = 4.50
	// mockImageCost matches the fixed spend for a mock reference image.
	mockImageCost = 0.040
)

// MockRenderer fabricates artifacts without network calls. Cost defaults to
// mockSceneCost but is overridable, and individual scene numbers can be
// scripted to fail a set number of times to exercise the retry path.
type MockRenderer struct {
	Cost float64

	mu       sync.Mutex
	failures map[int64]*scriptedFailure
	renders  int
}

type scriptedFailure struct {
	remaining int
	terminal  bool
}

// NewMockRenderer returns a renderer that always succeeds at the default
// mock cost.
func NewMockRenderer() *MockRenderer {
	return &MockRenderer{Cost: mockSceneCost}
}

var (
	_ Renderer      = (*MockRenderer)(nil)
	_ ImageRenderer = (*MockRenderer)(nil)
)

// FailScene scripts the given global scene number to fail `times` render
// attempts before succeeding. Pass times < 0 to fail forever.
func (m *MockRenderer) FailScene(sceneNumber int64, times int) {
	m.scriptFailure(sceneNumber, times, false)
}

// FailSceneTerminal scripts a terminal (non-retryable) failure.
func (m *MockRenderer) FailSceneTerminal(sceneNumber int64) {
	m.scriptFailure(sceneNumber, -1, true)
}

func (m *MockRenderer) scriptFailure(sceneNumber int64, times int, terminal bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[int64]*scriptedFailure)
	}
	m.failures[sceneNumber] = &scriptedFailure{remaining: times, terminal: terminal}
}

// Renders reports how many render attempts were made, successes and
// scripted failures both.
func (m *MockRenderer) Renders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renders
}

// RenderScene returns a deterministic mock artifact, honoring any scripted
// failures for the requested scene.
func (m *MockRenderer) RenderScene(ctx context.Context, req Request) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.renders++
	script := m.failures[req.SceneNumber]
	if script != nil && script.remaining != 0 {
		if script.remaining > 0 {
			script.remaining--
		}
		terminal := script.terminal
		m.mu.Unlock()
		if terminal {
			return nil, services.Wrap(services.ErrValidation, "renderer", "render_scene",
				fmt.Sprintf("scene %d rejected by backend", req.SceneNumber), nil)
		}
		return nil, services.Wrap(services.ErrTransient, "renderer", "render_scene",
			fmt.Sprintf("scripted failure for scene %d", req.SceneNumber), nil)
	}
	m.mu.Unlock()

	cost := m.Cost
	if cost == 0 {
		cost = mockSceneCost
	}
	return &Artifact{
		VideoURL:        fmt.Sprintf("mock://video/episode_%d/scene_%d.mp4", req.EpisodeNumber, req.SceneNumber),
		DurationSeconds: req.DurationSeconds,
		Cost:            cost,
	}, nil
}

// RenderCharacterImage returns a deterministic mock reference image.
func (m *MockRenderer) RenderCharacterImage(ctx context.Context, name, prompt string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
	return fmt.Sprintf("mock://character/%s.png", slug), mockImageCost, nil
}
