package testsupport

import (
	"path/filepath"
	"testing"

	"showrunner/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Generation runs in mock mode with a short series so full episodes finish
// quickly under test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Generation.Mode = "mock"
	cfg.Generation.SceneInterval = 1
	cfg.Generation.EpisodeInterval = 1
	cfg.Generation.ErrorRetryInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithScenesPerEpisode overrides the episode shape on the test config.
func WithScenesPerEpisode(scenes int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Series.ScenesPerEpisode = scenes
	}
}

// WithMaxSceneRetries overrides the retry budget on the test config.
func WithMaxSceneRetries(retries int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Generation.MaxSceneRetries = retries
	}
}
