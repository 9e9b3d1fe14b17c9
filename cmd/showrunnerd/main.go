package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"showrunner/internal/canon"
	"showrunner/internal/config"
	"showrunner/internal/daemon"
	"showrunner/internal/director"
	"showrunner/internal/lifecycle"
	"showrunner/internal/logging"
	"showrunner/internal/orchestrator"
	"showrunner/internal/renderer"
	"showrunner/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open series store", logging.Error(err))
		return
	}

	memory := canon.NewMemory(st, logger, cfg.Generation.CanonSceneWindowSize)

	var (
		planner       director.Planner
		sceneRenderer renderer.Renderer
		images        renderer.ImageRenderer
	)
	if cfg.MockMode() {
		planner = director.NewMockPlanner(cfg.Series.ScenesPerEpisode, cfg.Series.SceneDurationSeconds)
		mock := renderer.NewMockRenderer()
		sceneRenderer = mock
		images = mock
	} else {
		planner = director.NewLLMPlanner(cfg, logger)
		httpRenderer, err := renderer.NewHTTPRenderer(cfg)
		if err != nil {
			logger.Error("configure renderer", logging.Error(err))
			_ = st.Close()
			return
		}
		sceneRenderer = httpRenderer
		images = httpRenderer
	}

	manager := lifecycle.NewManager(st, memory, planner, sceneRenderer, images, cfg, logger)
	loop := orchestrator.New(st, manager, cfg, logger)

	d, err := daemon.New(cfg, st, loop, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = st.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("showrunnerd shutting down")
}
