// Package renderer turns scene prompts into finished video artifacts. It is
// a port: the orchestrator only sees the Renderer interface, and the mock
// and HTTP implementations are swapped by generation.mode.
package renderer

import (
	"context"
)

// Request describes one scene to render. Numbering fields exist so the
// backend can tag artifacts; the renderer never consults the database.
type Request struct {
	EpisodeNumber   int64
	SceneNumber     int64
	SceneInEpisode  int
	Prompt          string
	DurationSeconds int
}

// Artifact is a completed render.
type Artifact struct {
	VideoURL        string
	DurationSeconds int
	Cost            float64
}

// Renderer produces scene artifacts. Implementations wrap failures with the
// services sentinel errors so callers can distinguish retryable transport
// faults from terminal input problems.
type Renderer interface {
	RenderScene(ctx context.Context, req Request) (*Artifact, error)
}

// ImageRenderer produces character reference images. Failures here are
// non-fatal to episode generation.
type ImageRenderer interface {
	RenderCharacterImage(ctx context.Context, name, prompt string) (url string, cost float64, err error)
}
