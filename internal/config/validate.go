package config

import (
	"errors"
	"fmt"
	"strconv"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSeries(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateBackends(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSeries() error {
	if c.Series.ScenesPerEpisode <= 0 {
		return errors.New("series.scenes_per_episode must be positive")
	}
	if c.Series.SceneDurationSeconds <= 0 {
		return errors.New("series.scene_duration_seconds must be positive")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	switch c.Generation.Mode {
	case "mock", "real":
	default:
		return fmt.Errorf("generation.mode must be %q or %q, got %q", "mock", "real", c.Generation.Mode)
	}
	if err := ensurePositiveMap(map[string]int{
		"generation.scene_interval":       c.Generation.SceneInterval,
		"generation.episode_interval":     c.Generation.EpisodeInterval,
		"generation.max_scene_retries":    c.Generation.MaxSceneRetries,
		"generation.error_retry_interval": c.Generation.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackends() error {
	if c.Generation.Mode != "real" {
		return nil
	}
	if c.Director.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/showrunner/config.toml"
		}
		return fmt.Errorf("director.api_key is required in real mode. Set SHOWRUNNER_DIRECTOR_API_KEY or edit %s (create with 'showrunner config init')", defaultPath)
	}
	if c.Renderer.APIKey == "" {
		return errors.New("renderer.api_key is required in real mode")
	}
	if c.Director.TimeoutSeconds <= 0 {
		return errors.New("director.timeout_seconds must be positive")
	}
	if c.Renderer.TimeoutSeconds <= 0 {
		return errors.New("renderer.timeout_seconds must be positive")
	}
	if _, err := strconv.ParseFloat(c.Renderer.CostPerSecond, 64); err != nil {
		return fmt.Errorf("renderer.cost_per_second must be a decimal number: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "console", "json", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
