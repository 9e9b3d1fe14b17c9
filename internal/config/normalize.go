package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGeneration()
	c.normalizeDirector()
	c.normalizeRenderer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeGeneration() {
	c.Generation.Mode = strings.ToLower(strings.TrimSpace(c.Generation.Mode))
	if c.Generation.Mode == "" {
		c.Generation.Mode = defaultGenerationMode
	}
	if c.Generation.CanonSceneWindowSize <= 0 {
		c.Generation.CanonSceneWindowSize = defaultCanonSceneWindow
	}
}

func (c *Config) normalizeDirector() {
	if c.Director.APIKey == "" {
		if value, ok := os.LookupEnv("SHOWRUNNER_DIRECTOR_API_KEY"); ok {
			c.Director.APIKey = strings.TrimSpace(value)
		}
	}
	c.Director.APIKey = strings.TrimSpace(c.Director.APIKey)
	c.Director.BaseURL = strings.TrimSpace(c.Director.BaseURL)
	if c.Director.BaseURL == "" {
		c.Director.BaseURL = defaultDirectorBaseURL
	}
	c.Director.Model = strings.TrimSpace(c.Director.Model)
	if c.Director.Model == "" {
		c.Director.Model = defaultDirectorModel
	}
}

func (c *Config) normalizeRenderer() {
	if c.Renderer.APIKey == "" {
		if value, ok := os.LookupEnv("SHOWRUNNER_RENDERER_API_KEY"); ok {
			c.Renderer.APIKey = strings.TrimSpace(value)
		}
	}
	c.Renderer.APIKey = strings.TrimSpace(c.Renderer.APIKey)
	c.Renderer.BaseURL = strings.TrimSpace(c.Renderer.BaseURL)
	if c.Renderer.BaseURL == "" {
		c.Renderer.BaseURL = defaultRendererBaseURL
	}
	c.Renderer.CostPerSecond = strings.TrimSpace(c.Renderer.CostPerSecond)
	if c.Renderer.CostPerSecond == "" {
		c.Renderer.CostPerSecond = defaultRendererCostPerSec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
