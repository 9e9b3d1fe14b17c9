package config

const (
	defaultDataDir              = "~/.local/share/showrunner"
	defaultLogDir               = "~/.local/share/showrunner/logs"
	defaultAPIBind              = "127.0.0.1:7160"
	defaultScenesPerEpisode     = 6
	defaultSceneDurationSeconds = 30
	defaultGenerationMode       = "mock"
	defaultSceneInterval        = 600
	defaultEpisodeInterval      = 3600
	defaultMaxSceneRetries      = 3
	defaultErrorRetryInterval   = 10
	defaultCanonSceneWindow     = 10
	defaultDirectorBaseURL      = "https://api.anthropic.com/v1/chat/completions"
	defaultDirectorModel        = "claude-opus-4-5"
	defaultDirectorTimeout      = 120
	defaultRendererBaseURL      = "https://generativelanguage.googleapis.com/v1beta/videos"
	defaultRendererTimeout      = 600
	defaultRendererCostPerSec   = "0.15"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Series: Series{
			ScenesPerEpisode:     defaultScenesPerEpisode,
			SceneDurationSeconds: defaultSceneDurationSeconds,
		},
		Generation: Generation{
			Mode:                 defaultGenerationMode,
			SceneInterval:        defaultSceneInterval,
			EpisodeInterval:      defaultEpisodeInterval,
			MaxSceneRetries:      defaultMaxSceneRetries,
			ErrorRetryInterval:   defaultErrorRetryInterval,
			CanonSceneWindowSize: defaultCanonSceneWindow,
		},
		Director: Director{
			BaseURL:        defaultDirectorBaseURL,
			Model:          defaultDirectorModel,
			TimeoutSeconds: defaultDirectorTimeout,
		},
		Renderer: Renderer{
			BaseURL:        defaultRendererBaseURL,
			TimeoutSeconds: defaultRendererTimeout,
			CostPerSecond:  defaultRendererCostPerSec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
