package services

import (
	"context"
	"testing"
)

func TestEpisodeAndSceneContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := EpisodeNumberFromContext(ctx); ok {
		t.Fatal("empty context should carry no episode")
	}

	ctx = WithEpisodeNumber(ctx, 7)
	ctx = WithSceneNumber(ctx, 42)

	if number, ok := EpisodeNumberFromContext(ctx); !ok || number != 7 {
		t.Fatalf("episode = %d, %v", number, ok)
	}
	if number, ok := SceneNumberFromContext(ctx); !ok || number != 42 {
		t.Fatalf("scene = %d, %v", number, ok)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if same := WithRequestID(ctx, ""); same != ctx {
		t.Fatal("empty id should not allocate a new context")
	}

	ctx = WithRequestID(ctx, "req-123")
	if id, ok := RequestIDFromContext(ctx); !ok || id != "req-123" {
		t.Fatalf("request id = %q, %v", id, ok)
	}
}
