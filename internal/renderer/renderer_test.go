package renderer_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"showrunner/internal/config"
	"showrunner/internal/renderer"
	"showrunner/internal/services"
)

func TestMockRendererProducesDeterministicArtifact(t *testing.T) {
	mock := renderer.NewMockRenderer()
	artifact, err := mock.RenderScene(context.Background(), renderer.Request{
		EpisodeNumber:   2,
		SceneNumber:     9,
		SceneInEpisode:  3,
		Prompt:          "a slow pan across the hull",
		DurationSeconds: 30,
	})
	if err != nil {
		t.Fatalf("RenderScene failed: %v", err)
	}
	if artifact.VideoURL != "mock://video/episode_2/scene_9.mp4" {
		t.Fatalf("unexpected video url: %s", artifact.VideoURL)
	}
	if artifact.DurationSeconds != 30 {
		t.Fatalf("unexpected duration: %d", artifact.DurationSeconds)
	}
	if math.Abs(artifact.Cost-4.50) > 1e-6 {
		t.Fatalf("unexpected cost: %f", artifact.Cost)
	}
}

func TestMockRendererScriptedTransientFailure(t *testing.T) {
	mock := renderer.NewMockRenderer()
	mock.FailScene(3, 2)
	ctx := context.Background()
	req := renderer.Request{EpisodeNumber: 1, SceneNumber: 3, Prompt: "p", DurationSeconds: 30}

	for attempt := 1; attempt <= 2; attempt++ {
		_, err := mock.RenderScene(ctx, req)
		if err == nil {
			t.Fatalf("attempt %d should have failed", attempt)
		}
		if !errors.Is(err, services.ErrTransient) {
			t.Fatalf("attempt %d: expected ErrTransient, got %v", attempt, err)
		}
	}
	artifact, err := mock.RenderScene(ctx, req)
	if err != nil {
		t.Fatalf("third attempt should succeed: %v", err)
	}
	if artifact == nil || artifact.VideoURL == "" {
		t.Fatal("expected artifact after scripted failures drained")
	}
	if mock.Renders() != 3 {
		t.Fatalf("expected 3 render attempts, got %d", mock.Renders())
	}
}

func TestMockRendererTerminalFailure(t *testing.T) {
	mock := renderer.NewMockRenderer()
	mock.FailSceneTerminal(5)
	_, err := mock.RenderScene(context.Background(), renderer.Request{SceneNumber: 5, Prompt: "p"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	// Terminal failures never drain.
	_, err = mock.RenderScene(context.Background(), renderer.Request{SceneNumber: 5, Prompt: "p"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation on repeat, got %v", err)
	}
}

func TestMockRendererCharacterImage(t *testing.T) {
	mock := renderer.NewMockRenderer()
	url, cost, err := mock.RenderCharacterImage(context.Background(), "Captain Mara Voss", "portrait")
	if err != nil {
		t.Fatalf("RenderCharacterImage failed: %v", err)
	}
	if url != "mock://character/captain_mara_voss.png" {
		t.Fatalf("unexpected image url: %s", url)
	}
	if math.Abs(cost-0.040) > 1e-6 {
		t.Fatalf("unexpected image cost: %f", cost)
	}
}

func rendererConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Renderer.APIKey = "test"
	cfg.Renderer.BaseURL = baseURL
	cfg.Renderer.CostPerSecond = "0.15"
	return &cfg
}

func TestHTTPRendererSubmitAndPoll(t *testing.T) {
	var polls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/videos":
			var req map[string]any
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode submit body: %v", err)
			}
			if req["prompt"] == "" {
				t.Fatal("submit body missing prompt")
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"job_id": "job-1", "status": "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/videos/job-1":
			if polls.Add(1) < 2 {
				_ = json.NewEncoder(w).Encode(map[string]any{"job_id": "job-1", "status": "running"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"job_id":           "job-1",
				"status":           "completed",
				"video_url":        "https://cdn.example.com/scene_1.mp4",
				"duration_seconds": 30,
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	r, err := renderer.NewHTTPRenderer(rendererConfig(server.URL), renderer.WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("NewHTTPRenderer failed: %v", err)
	}
	artifact, err := r.RenderScene(context.Background(), renderer.Request{
		EpisodeNumber: 1, SceneNumber: 1, Prompt: "opening shot", DurationSeconds: 30,
	})
	if err != nil {
		t.Fatalf("RenderScene failed: %v", err)
	}
	if artifact.VideoURL != "https://cdn.example.com/scene_1.mp4" {
		t.Fatalf("unexpected video url: %s", artifact.VideoURL)
	}
	// Backend omitted cost, so it is derived from duration at 0.15/s.
	if math.Abs(artifact.Cost-4.50) > 1e-6 {
		t.Fatalf("expected derived cost 4.50, got %f", artifact.Cost)
	}
}

func TestHTTPRendererRejectedJobIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"job_id": "job-2",
			"status": "rejected",
			"error":  "prompt violates content policy",
		})
	}))
	defer server.Close()

	r, err := renderer.NewHTTPRenderer(rendererConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPRenderer failed: %v", err)
	}
	_, err = r.RenderScene(context.Background(), renderer.Request{Prompt: "p", DurationSeconds: 30})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for rejected job, got %v", err)
	}
}

func TestHTTPRendererServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	r, err := renderer.NewHTTPRenderer(rendererConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPRenderer failed: %v", err)
	}
	_, err = r.RenderScene(context.Background(), renderer.Request{Prompt: "p", DurationSeconds: 30})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient for http 502, got %v", err)
	}
}

func TestHTTPRendererCharacterImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"image_url": "https://cdn.example.com/mara.png",
			"cost":      0.04,
		})
	}))
	defer server.Close()

	r, err := renderer.NewHTTPRenderer(rendererConfig(server.URL))
	if err != nil {
		t.Fatalf("NewHTTPRenderer failed: %v", err)
	}
	url, cost, err := r.RenderCharacterImage(context.Background(), "Mara", "portrait")
	if err != nil {
		t.Fatalf("RenderCharacterImage failed: %v", err)
	}
	if url != "https://cdn.example.com/mara.png" || math.Abs(cost-0.04) > 1e-6 {
		t.Fatalf("unexpected image result: %s %f", url, cost)
	}
}

func TestNewHTTPRendererRejectsBadCostRate(t *testing.T) {
	cfg := rendererConfig("http://localhost:1")
	cfg.Renderer.CostPerSecond = "cheap"
	if _, err := renderer.NewHTTPRenderer(cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
