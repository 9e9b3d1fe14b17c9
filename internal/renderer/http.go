package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"showrunner/internal/config"
	"showrunner/internal/services"
)

const (
	defaultRenderTimeout = 10 * time.Minute
	defaultPollInterval  = 5 * time.Second
)

// HTTPRenderer drives a remote video generation service: submit a job,
// poll until it finishes, report the artifact. Cost is computed locally
// from the configured per-second rate when the backend omits it.
type HTTPRenderer struct {
	apiKey        string
	baseURL       string
	costPerSecond float64
	httpClient    *http.Client
	pollInterval  time.Duration
}

var (
	_ Renderer      = (*HTTPRenderer)(nil)
	_ ImageRenderer = (*HTTPRenderer)(nil)
)

// HTTPOption customizes the renderer.
type HTTPOption func(*HTTPRenderer)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(r *HTTPRenderer) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// WithPollInterval overrides how often job status is polled.
func WithPollInterval(interval time.Duration) HTTPOption {
	return func(r *HTTPRenderer) {
		if interval > 0 {
			r.pollInterval = interval
		}
	}
}

// NewHTTPRenderer builds a renderer from daemon configuration.
func NewHTTPRenderer(cfg *config.Config, opts ...HTTPOption) (*HTTPRenderer, error) {
	timeout := defaultRenderTimeout
	if cfg.Renderer.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.Renderer.TimeoutSeconds) * time.Second
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(cfg.Renderer.CostPerSecond), 64)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "renderer", "new",
			fmt.Sprintf("unparseable cost_per_second %q", cfg.Renderer.CostPerSecond), err)
	}
	renderer := &HTTPRenderer{
		apiKey:        strings.TrimSpace(cfg.Renderer.APIKey),
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.Renderer.BaseURL), "/"),
		costPerSecond: rate,
		httpClient:    &http.Client{Timeout: timeout},
		pollInterval:  defaultPollInterval,
	}
	for _, opt := range opts {
		opt(renderer)
	}
	return renderer, nil
}

type renderJobRequest struct {
	Prompt          string `json:"prompt"`
	DurationSeconds int    `json:"duration_seconds"`
	EpisodeNumber   int64  `json:"episode_number"`
	SceneNumber     int64  `json:"scene_number"`
}

type renderJobResponse struct {
	JobID           string  `json:"job_id"`
	Status          string  `json:"status"`
	VideoURL        string  `json:"video_url"`
	DurationSeconds int     `json:"duration_seconds"`
	Cost            float64 `json:"cost"`
	Error           string  `json:"error"`
}

// RenderScene submits the scene and polls the job to completion, bounded
// by the request context and the configured HTTP timeout per call.
func (r *HTTPRenderer) RenderScene(ctx context.Context, req Request) (*Artifact, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, services.Wrap(services.ErrValidation, "renderer", "render_scene", "empty prompt", nil)
	}
	job, err := r.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	for {
		switch job.Status {
		case "completed", "succeeded":
			return r.artifactFrom(job, req), nil
		case "failed", "rejected":
			marker := services.ErrExternal
			if job.Status == "rejected" {
				marker = services.ErrValidation
			}
			return nil, services.Wrap(marker, "renderer", "render_scene",
				fmt.Sprintf("job %s %s: %s", job.JobID, job.Status, job.Error), nil)
		}
		select {
		case <-ctx.Done():
			return nil, services.Wrap(services.ErrTimeout, "renderer", "render_scene",
				fmt.Sprintf("gave up waiting on job %s", job.JobID), ctx.Err())
		case <-time.After(r.pollInterval):
		}
		job, err = r.poll(ctx, job.JobID)
		if err != nil {
			return nil, err
		}
	}
}

// RenderCharacterImage asks the backend for a single reference still.
func (r *HTTPRenderer) RenderCharacterImage(ctx context.Context, name, prompt string) (string, float64, error) {
	payload := map[string]string{"name": name, "prompt": prompt}
	var resp struct {
		ImageURL string  `json:"image_url"`
		Cost     float64 `json:"cost"`
	}
	if err := r.doJSON(ctx, http.MethodPost, "/v1/images", payload, &resp); err != nil {
		return "", 0, err
	}
	if resp.ImageURL == "" {
		return "", 0, services.Wrap(services.ErrExternal, "renderer", "render_image", "backend returned no image url", nil)
	}
	return resp.ImageURL, resp.Cost, nil
}

func (r *HTTPRenderer) submit(ctx context.Context, req Request) (*renderJobResponse, error) {
	payload := renderJobRequest{
		Prompt:          req.Prompt,
		DurationSeconds: req.DurationSeconds,
		EpisodeNumber:   req.EpisodeNumber,
		SceneNumber:     req.SceneNumber,
	}
	var job renderJobResponse
	if err := r.doJSON(ctx, http.MethodPost, "/v1/videos", payload, &job); err != nil {
		return nil, err
	}
	if job.JobID == "" && job.Status == "" {
		return nil, services.Wrap(services.ErrExternal, "renderer", "render_scene", "backend returned no job id", nil)
	}
	return &job, nil
}

func (r *HTTPRenderer) poll(ctx context.Context, jobID string) (*renderJobResponse, error) {
	var job renderJobResponse
	if err := r.doJSON(ctx, http.MethodGet, "/v1/videos/"+jobID, nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *HTTPRenderer) artifactFrom(job *renderJobResponse, req Request) *Artifact {
	artifact := &Artifact{
		VideoURL:        job.VideoURL,
		DurationSeconds: job.DurationSeconds,
		Cost:            job.Cost,
	}
	if artifact.DurationSeconds == 0 {
		artifact.DurationSeconds = req.DurationSeconds
	}
	if artifact.Cost == 0 {
		artifact.Cost = float64(artifact.DurationSeconds) * r.costPerSecond
	}
	return artifact
}

func (r *HTTPRenderer) doJSON(ctx context.Context, method, path string, payload, target any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return services.Wrap(services.ErrValidation, "renderer", "request", "encode body", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return services.Wrap(services.ErrValidation, "renderer", "request", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "renderer", "request", method+" "+path, err)
		}
		return services.Wrap(services.ErrTransient, "renderer", "request", method+" "+path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransient, "renderer", "request", "read body", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		marker := services.ErrTransient
		if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError &&
			resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusRequestTimeout {
			marker = services.ErrValidation
		}
		return services.Wrap(marker, "renderer", "request",
			fmt.Sprintf("%s %s: http %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return services.Wrap(services.ErrExternal, "renderer", "request", "decode response", err)
	}
	return nil
}
