package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"showrunner/internal/api"
)

// apiClient is a thin HTTP client for the daemon's read API and control
// verbs.
type apiClient struct {
	base       string
	httpClient *http.Client
}

func newAPIClient(addr string) *apiClient {
	base := strings.TrimSpace(addr)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &apiClient{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) status(ctx context.Context) (api.SeriesStatus, error) {
	var out api.SeriesStatus
	err := c.get(ctx, "/api/status", nil, &out)
	return out, err
}

func (c *apiClient) episodes(ctx context.Context, limit, offset int) (api.EpisodeListResponse, error) {
	var out api.EpisodeListResponse
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", fmt.Sprint(limit))
	}
	if offset > 0 {
		query.Set("offset", fmt.Sprint(offset))
	}
	err := c.get(ctx, "/api/episodes", query, &out)
	return out, err
}

func (c *apiClient) episode(ctx context.Context, number int64) (*api.EpisodeDetail, error) {
	var out api.EpisodeDetail
	if err := c.get(ctx, fmt.Sprintf("/api/episodes/%d", number), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) characters(ctx context.Context) (api.CharacterListResponse, error) {
	var out api.CharacterListResponse
	err := c.get(ctx, "/api/characters", nil, &out)
	return out, err
}

func (c *apiClient) stats(ctx context.Context) (api.StatsView, error) {
	var out api.StatsView
	err := c.get(ctx, "/api/stats", nil, &out)
	return out, err
}

func (c *apiClient) logs(ctx context.Context, level string, limit int) (api.LogListResponse, error) {
	var out api.LogListResponse
	query := url.Values{}
	if level != "" {
		query.Set("level", level)
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprint(limit))
	}
	err := c.get(ctx, "/api/logs", query, &out)
	return out, err
}

func (c *apiClient) control(ctx context.Context, verb string) (api.ControlResponse, error) {
	var out api.ControlResponse
	err := c.do(ctx, http.MethodPost, "/api/"+verb, nil, &out)
	return out, err
}

func (c *apiClient) get(ctx context.Context, path string, query url.Values, target any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, query, target)
}

func (c *apiClient) do(ctx context.Context, method, path string, _ url.Values, target any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return wrapDialError(err, c.base)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
		return fmt.Errorf("daemon returned http %d", resp.StatusCode)
	}
	if target == nil {
		return nil
	}
	return json.Unmarshal(body, target)
}

func wrapDialError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start the daemon with `showrunnerd`", base)
	}
	return fmt.Errorf("connect to daemon at %s: %w", base, err)
}
