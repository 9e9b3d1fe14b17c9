package api

import "showrunner/internal/store"

// FromSeriesState converts the singleton state row.
func FromSeriesState(state *store.SeriesState) SeriesStatus {
	if state == nil {
		return SeriesStatus{}
	}
	return SeriesStatus{
		SystemStatus:          string(state.SystemStatus),
		CurrentEpisode:        state.CurrentEpisode,
		CurrentSceneInEpisode: state.CurrentSceneInEpisode,
		TotalEpisodes:         state.TotalEpisodes,
		TotalScenes:           state.TotalScenes,
		LastGeneratedAt:       state.LastGeneratedAt,
	}
}

// FromEpisodeSummary converts one listing row.
func FromEpisodeSummary(summary *store.EpisodeSummary) EpisodeView {
	if summary == nil {
		return EpisodeView{}
	}
	return EpisodeView{
		EpisodeNumber:         summary.EpisodeNumber,
		ArcSummary:            summary.ArcSummary,
		SceneCount:            summary.SceneCount,
		CompletedScenes:       summary.CompletedScenes,
		TotalCost:             summary.TotalCost,
		GenerationStartedAt:   summary.GenerationStartedAt,
		GenerationCompletedAt: summary.GenerationCompletedAt,
		Open:                  summary.Episode.Open(),
	}
}

// FromEpisodeSummaries converts a listing page.
func FromEpisodeSummaries(summaries []*store.EpisodeSummary) []EpisodeView {
	views := make([]EpisodeView, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, FromEpisodeSummary(summary))
	}
	return views
}

// FromScene converts one scene row.
func FromScene(scene *store.Scene) SceneView {
	if scene == nil {
		return SceneView{}
	}
	return SceneView{
		SceneNumber:      scene.SceneNumber,
		SceneInEpisode:   scene.SceneInEpisode,
		VideoURL:         scene.VideoURL,
		DurationSeconds:  scene.DurationSeconds,
		NarrativeSummary: scene.NarrativeSummary,
		GenerationCost:   scene.GenerationCost,
		RetryCount:       scene.RetryCount,
		Completed:        scene.Completed(),
		CompletedAt:      scene.GenerationCompletedAt,
	}
}

// FromCharacter converts one registry entry.
func FromCharacter(character *store.Character) CharacterView {
	if character == nil {
		return CharacterView{}
	}
	return CharacterView{
		ID:                   character.ID,
		Name:                 character.Name,
		ImageURL:             character.ImageURL,
		ImageVersion:         character.ImageVersion,
		CanonicalState:       character.CanonicalState,
		FirstAppearanceScene: character.FirstAppearanceScene,
		LastAppearanceScene:  character.LastAppearanceScene,
	}
}

// FromCharacters converts the full registry.
func FromCharacters(characters []*store.Character) []CharacterView {
	views := make([]CharacterView, 0, len(characters))
	for _, character := range characters {
		views = append(views, FromCharacter(character))
	}
	return views
}

// FromStats converts the aggregate counters.
func FromStats(stats *store.Stats) StatsView {
	if stats == nil {
		return StatsView{}
	}
	return StatsView{
		TotalEpisodes:        stats.TotalEpisodes,
		CompletedEpisodes:    stats.CompletedEpisodes,
		TotalScenes:          stats.TotalScenes,
		CompletedScenes:      stats.CompletedScenes,
		TotalCost:            stats.TotalCost,
		TotalDurationSeconds: stats.TotalDurationSeconds,
		TotalCharacters:      stats.TotalCharacters,
	}
}

// FromLog converts one audit entry.
func FromLog(entry *store.GenerationLog) LogView {
	if entry == nil {
		return LogView{}
	}
	return LogView{
		SceneNumber: entry.SceneNumber,
		Level:       entry.Level,
		Component:   entry.Component,
		Message:     entry.Message,
		Error:       entry.ErrorDetails,
		CreatedAt:   entry.CreatedAt,
	}
}

// FromLogs converts an audit listing.
func FromLogs(entries []*store.GenerationLog) []LogView {
	views := make([]LogView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, FromLog(entry))
	}
	return views
}
