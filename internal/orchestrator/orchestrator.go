// Package orchestrator runs the generation loop. A single goroutine wakes
// on a cadence, re-reads durable state, and dispatches at most one
// lifecycle action per tick. All decisions come from the database, never
// from in-process memory, so a crash between ticks loses nothing.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"showrunner/internal/config"
	"showrunner/internal/lifecycle"
	"showrunner/internal/logging"
	"showrunner/internal/services"
	"showrunner/internal/store"
)

// Orchestrator drives the lifecycle manager on timers.
type Orchestrator struct {
	store   *store.Store
	manager *lifecycle.Manager
	cfg     *config.Config
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	wake    chan struct{}
}

// New wires the orchestrator over its collaborators.
func New(st *store.Store, manager *lifecycle.Manager, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		store:   st,
		manager: manager,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "orchestrator"),
		wake:    make(chan struct{}, 1),
	}
}

// Start begins background processing.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return errors.New("orchestrator already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.wg.Add(1)
	o.mu.Unlock()

	go o.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the loop to exit.
// An in-flight render finishes before the loop observes cancellation.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()
	o.wg.Wait()
}

// Running reports whether the loop is active.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) run(ctx context.Context) {
	defer o.wg.Done()
	o.logger.Info("generation loop started",
		logging.Duration("scene_interval", o.sceneInterval()),
		logging.Duration("episode_interval", o.episodeInterval()),
	)
	for {
		select {
		case <-ctx.Done():
			o.logger.Info("generation loop stopped")
			return
		default:
		}

		wait := o.tick(ctx)
		if !o.sleep(ctx, wait) {
			o.logger.Info("generation loop stopped")
			return
		}
	}
}

// tick performs at most one lifecycle action and returns how long to wait
// before the next one.
func (o *Orchestrator) tick(ctx context.Context) time.Duration {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	state, err := o.store.SeriesState(ctx)
	if err != nil {
		o.logger.Error("state read failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database access"),
		)
		return o.errorRetryInterval()
	}

	switch state.SystemStatus {
	case store.StatusPaused, store.StatusError:
		// Nothing moves until Resume or RetryErrored pokes the loop.
		return o.episodeInterval()
	}

	episode, err := o.store.OpenEpisode(ctx)
	if err != nil {
		o.logger.Error("open episode lookup failed", logging.Error(err))
		return o.errorRetryInterval()
	}

	if episode == nil {
		return o.maybeStartEpisode(ctx, state)
	}

	done, err := o.manager.CompleteEpisodeIfDone(ctx, episode)
	if err != nil {
		o.logger.Error("episode completion failed", logging.Error(err))
		return o.errorRetryInterval()
	}
	if done {
		return o.episodeInterval()
	}
	return o.advance(ctx, episode)
}

// maybeStartEpisode respects the between-episode cadence before planning.
func (o *Orchestrator) maybeStartEpisode(ctx context.Context, state *store.SeriesState) time.Duration {
	if state.LastGeneratedAt != nil {
		elapsed := time.Since(*state.LastGeneratedAt)
		if remaining := o.episodeInterval() - elapsed; remaining > 0 {
			return remaining
		}
	}
	if _, err := o.manager.StartEpisode(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		o.logger.Error("episode start failed", logging.Error(err))
		return o.errorRetryInterval()
	}
	// Plan is persisted; render the first scene promptly.
	return time.Second
}

// advance renders one scene. The render itself runs on a detached context
// so shutdown lets it finish and commit; cancellation is honored between
// scenes, not inside one.
func (o *Orchestrator) advance(ctx context.Context, episode *store.Episode) time.Duration {
	renderCtx := context.WithoutCancel(ctx)
	_, err := o.manager.AdvanceScene(renderCtx, episode)
	switch {
	case err == nil:
		return o.sceneInterval()
	case errors.Is(err, lifecycle.ErrEpisodeComplete):
		return time.Second
	case errors.Is(err, lifecycle.ErrRetriesExhausted):
		// Status is already error; hold until the operator intervenes.
		return o.episodeInterval()
	default:
		return o.errorRetryInterval()
	}
}

// Pause flips the series to paused. The current tick's scene, if any,
// still completes.
func (o *Orchestrator) Pause(ctx context.Context) error {
	state, err := o.store.SeriesState(ctx)
	if err != nil {
		return err
	}
	if state.SystemStatus == store.StatusError {
		return errors.New("series is in error status; use retry")
	}
	if err := o.store.SetSystemStatus(ctx, store.StatusPaused); err != nil {
		return err
	}
	o.logger.Info("generation paused")
	return nil
}

// Resume returns a paused series to idle and pokes the loop.
func (o *Orchestrator) Resume(ctx context.Context) error {
	state, err := o.store.SeriesState(ctx)
	if err != nil {
		return err
	}
	if state.SystemStatus != store.StatusPaused {
		return errors.New("series is not paused")
	}
	if err := o.store.SetSystemStatus(ctx, store.StatusIdle); err != nil {
		return err
	}
	o.poke()
	o.logger.Info("generation resumed")
	return nil
}

// RetryErrored clears an exhausted-retry halt and pokes the loop.
func (o *Orchestrator) RetryErrored(ctx context.Context) error {
	if err := o.manager.RetryErrored(ctx); err != nil {
		return err
	}
	o.poke()
	o.logger.Info("operator retry accepted")
	return nil
}

// poke wakes the loop early without waiting out the current interval.
func (o *Orchestrator) poke() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// sleep waits out the interval unless canceled or poked. Returns false on
// cancellation.
func (o *Orchestrator) sleep(ctx context.Context, wait time.Duration) bool {
	if wait <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-o.wake:
		return true
	case <-timer.C:
		return true
	}
}

func (o *Orchestrator) sceneInterval() time.Duration {
	return time.Duration(o.cfg.Generation.SceneInterval) * time.Second
}

func (o *Orchestrator) episodeInterval() time.Duration {
	return time.Duration(o.cfg.Generation.EpisodeInterval) * time.Second
}

func (o *Orchestrator) errorRetryInterval() time.Duration {
	return time.Duration(o.cfg.Generation.ErrorRetryInterval) * time.Second
}
