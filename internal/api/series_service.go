package api

import (
	"context"

	"showrunner/internal/store"
)

// SeriesReader abstracts the store queries the read API needs.
type SeriesReader interface {
	SeriesState(ctx context.Context) (*store.SeriesState, error)
	ListEpisodes(ctx context.Context, limit, offset int) ([]*store.EpisodeSummary, int64, error)
	EpisodeByNumber(ctx context.Context, number int64) (*store.Episode, error)
	ScenesForEpisode(ctx context.Context, episodeID int64) ([]*store.Scene, error)
	Characters(ctx context.Context) ([]*store.Character, error)
	Stats(ctx context.Context) (*store.Stats, error)
	RecentLogs(ctx context.Context, level string, limit int) ([]*store.GenerationLog, error)
}

// SeriesService exposes read-only series queries returning API DTOs.
type SeriesService struct {
	store SeriesReader
}

// NewSeriesService constructs a SeriesService around the provided reader.
func NewSeriesService(store SeriesReader) *SeriesService {
	if store == nil {
		return nil
	}
	return &SeriesService{store: store}
}

// Status returns the series state view.
func (s *SeriesService) Status(ctx context.Context) (SeriesStatus, error) {
	if s == nil || s.store == nil {
		return SeriesStatus{}, nil
	}
	state, err := s.store.SeriesState(ctx)
	if err != nil {
		return SeriesStatus{}, err
	}
	return FromSeriesState(state), nil
}

// ListEpisodes returns one page of episodes, newest first.
func (s *SeriesService) ListEpisodes(ctx context.Context, limit, offset int) (EpisodeListResponse, error) {
	if s == nil || s.store == nil {
		return EpisodeListResponse{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	summaries, total, err := s.store.ListEpisodes(ctx, limit, offset)
	if err != nil {
		return EpisodeListResponse{}, err
	}
	return EpisodeListResponse{
		Episodes: FromEpisodeSummaries(summaries),
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// DescribeEpisode returns one episode with its scenes, or nil when absent.
func (s *SeriesService) DescribeEpisode(ctx context.Context, number int64) (*EpisodeDetail, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	episode, err := s.store.EpisodeByNumber(ctx, number)
	if err != nil || episode == nil {
		return nil, err
	}
	scenes, err := s.store.ScenesForEpisode(ctx, episode.ID)
	if err != nil {
		return nil, err
	}
	detail := &EpisodeDetail{
		EpisodeView: EpisodeView{
			EpisodeNumber:         episode.EpisodeNumber,
			ArcSummary:            episode.ArcSummary,
			SceneCount:            len(scenes),
			TotalCost:             episode.TotalCost,
			GenerationStartedAt:   episode.GenerationStartedAt,
			GenerationCompletedAt: episode.GenerationCompletedAt,
			Open:                  episode.Open(),
		},
		DirectorPlan: episode.DirectorPlan,
	}
	for _, scene := range scenes {
		view := FromScene(scene)
		if view.Completed {
			detail.CompletedScenes++
		}
		detail.Scenes = append(detail.Scenes, view)
	}
	return detail, nil
}

// Characters returns the canon registry.
func (s *SeriesService) Characters(ctx context.Context) (CharacterListResponse, error) {
	if s == nil || s.store == nil {
		return CharacterListResponse{}, nil
	}
	characters, err := s.store.Characters(ctx)
	if err != nil {
		return CharacterListResponse{}, err
	}
	return CharacterListResponse{Characters: FromCharacters(characters)}, nil
}

// Stats returns aggregate series counters.
func (s *SeriesService) Stats(ctx context.Context) (StatsView, error) {
	if s == nil || s.store == nil {
		return StatsView{}, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return StatsView{}, err
	}
	return FromStats(stats), nil
}

// Logs returns recent audit entries, optionally filtered by level.
func (s *SeriesService) Logs(ctx context.Context, level string, limit int) (LogListResponse, error) {
	if s == nil || s.store == nil {
		return LogListResponse{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.store.RecentLogs(ctx, level, limit)
	if err != nil {
		return LogListResponse{}, err
	}
	return LogListResponse{Logs: FromLogs(entries)}, nil
}
