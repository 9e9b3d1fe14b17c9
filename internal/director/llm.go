package director

import (
	"context"
	"log/slog"

	"showrunner/internal/canon"
	"showrunner/internal/config"
	"showrunner/internal/logging"
	"showrunner/internal/services"
)

// LLMPlanner plans episodes by asking a chat completion model for a strict
// JSON plan. It holds no state between calls; continuity comes entirely
// from the snapshot it is handed.
type LLMPlanner struct {
	client               *Client
	logger               *slog.Logger
	scenesPerEpisode     int
	sceneDurationSeconds int
}

var _ Planner = (*LLMPlanner)(nil)

// NewLLMPlanner builds a planner from daemon configuration.
func NewLLMPlanner(cfg *config.Config, logger *slog.Logger, opts ...ClientOption) *LLMPlanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LLMPlanner{
		client: NewClient(ClientConfig{
			APIKey:         cfg.Director.APIKey,
			BaseURL:        cfg.Director.BaseURL,
			Model:          cfg.Director.Model,
			TimeoutSeconds: cfg.Director.TimeoutSeconds,
		}, opts...),
		logger:               logging.NewComponentLogger(logger, "director"),
		scenesPerEpisode:     cfg.Series.ScenesPerEpisode,
		sceneDurationSeconds: cfg.Series.SceneDurationSeconds,
	}
}

// PlanEpisode requests, decodes, and shape-checks the next episode plan.
// Transport failures come back retryable; a plan that decodes but violates
// the contract is a validation error and will not be retried blindly.
func (p *LLMPlanner) PlanEpisode(ctx context.Context, episodeNumber int64, snapshot *canon.Snapshot) (*Plan, error) {
	system := SystemPrompt(p.scenesPerEpisode, p.sceneDurationSeconds)
	user := UserPrompt(episodeNumber, snapshot)

	p.logger.InfoContext(ctx, "requesting episode plan",
		logging.Int64(logging.FieldEpisodeNumber, episodeNumber),
		logging.Int("scenes_per_episode", p.scenesPerEpisode),
	)
	content, err := p.client.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "director", "plan_episode", "chat completion failed", err)
	}

	var plan Plan
	if err := DecodeModelJSON(content, &plan); err != nil {
		return nil, services.Wrap(services.ErrExternal, "director", "plan_episode", "undecodable plan payload", err)
	}
	plan.EpisodeNumber = episodeNumber
	if err := ValidatePlan(&plan, p.scenesPerEpisode); err != nil {
		return nil, err
	}
	return &plan, nil
}
