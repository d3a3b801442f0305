package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/deltaforge/smartdine/internal/config"
	"github.com/deltaforge/smartdine/internal/messaging"
	"github.com/deltaforge/smartdine/internal/ml"
	"github.com/deltaforge/smartdine/internal/search"
)

type Services struct {
	Mood        *MoodClassifier
	Memory      *SessionMemory
	Scoring     *ScoringEngine
	Selection   *SelectionPolicy
	Weather     *WeatherService
	Explanation *ExplanationService
	Recommender *Recommender
}

func New(
	ctx context.Context,
	cfg *config.Config,
	logger *logrus.Logger,
	embedder ml.Embedder,
	index search.Searcher,
	events *messaging.EventPublisher,
	rng Rand,
) (*Services, error) {
	// Mood phrase embeddings are a startup dependency: if the embedding
	// sidecar is unreachable here the process should not come up.
	moodClassifier, err := NewMoodClassifier(ctx, embedder, logger)
	if err != nil {
		return nil, err
	}

	memory, err := NewSessionMemory(cfg.Recommendation.SessionCapacity, cfg.Recommendation.HistoryWindow)
	if err != nil {
		return nil, err
	}

	scoring := NewScoringEngine(&cfg.Recommendation, rng)
	selection := NewSelectionPolicy(&cfg.Recommendation, rng)
	weather := NewWeatherService(cfg.Weather, logger)
	explanation := NewExplanationService(cfg.Explainer, rng, logger)

	recommender := NewRecommender(
		&cfg.Recommendation, index, embedder, moodClassifier, memory,
		scoring, selection, weather, explanation, events, rng, logger,
	)

	return &Services{
		Mood:        moodClassifier,
		Memory:      memory,
		Scoring:     scoring,
		Selection:   selection,
		Weather:     weather,
		Explanation: explanation,
		Recommender: recommender,
	}, nil
}
