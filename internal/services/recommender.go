package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deltaforge/smartdine/internal/config"
	"github.com/deltaforge/smartdine/internal/messaging"
	"github.com/deltaforge/smartdine/internal/metrics"
	"github.com/deltaforge/smartdine/internal/ml"
	"github.com/deltaforge/smartdine/internal/search"
	"github.com/deltaforge/smartdine/pkg/models"
)

// Cuisine keyword pools for the weather-conditioned surprise filter.
var (
	coldWeatherCuisines = []string{"spicy", "tandoor", "grill", "soup"}
	hotWeatherCuisines  = []string{"salad", "juice", "light", "cool"}
)

// RecommenderInterface is what the HTTP layer consumes; tests mock it.
type RecommenderInterface interface {
	Recommend(ctx context.Context, req *models.RecommendRequest) (*models.RecommendResponse, error)
	Cities() []string
}

// Recommender is the top-level controller. Per request it resolves the city
// once, fetches weather, branches to surprise or query mode, and on the
// query branch updates session memory after selection. Every degraded path
// yields a valid response shape, never an error to the HTTP layer.
type Recommender struct {
	cfg       *config.RecommendationConfig
	index     search.Searcher
	embedder  ml.Embedder
	mood      *MoodClassifier
	memory    *SessionMemory
	scoring   *ScoringEngine
	selection *SelectionPolicy
	weather   WeatherProvider
	explainer Explainer
	events    *messaging.EventPublisher
	rng       Rand
	logger    *logrus.Logger
}

func NewRecommender(
	cfg *config.RecommendationConfig,
	index search.Searcher,
	embedder ml.Embedder,
	mood *MoodClassifier,
	memory *SessionMemory,
	scoring *ScoringEngine,
	selection *SelectionPolicy,
	weather WeatherProvider,
	explainer Explainer,
	events *messaging.EventPublisher,
	rng Rand,
	logger *logrus.Logger,
) *Recommender {
	return &Recommender{
		cfg:       cfg,
		index:     index,
		embedder:  embedder,
		mood:      mood,
		memory:    memory,
		scoring:   scoring,
		selection: selection,
		weather:   weather,
		explainer: explainer,
		events:    events,
		rng:       rng,
		logger:    logger,
	}
}

// Recommend serves one request end to end.
func (r *Recommender) Recommend(ctx context.Context, req *models.RecommendRequest) (*models.RecommendResponse, error) {
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	}()

	// Canonicalize once at the boundary; every shard key downstream uses
	// this form.
	cityKey := models.NormalizeCity(req.City)
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	query := strings.TrimSpace(req.Query)

	weather := r.weather.GetWeather(ctx, cityKey)

	if req.Surprise || query == "" {
		return r.surpriseRecommend(ctx, cityKey, sessionID, weather), nil
	}

	return r.queryRecommend(ctx, cityKey, sessionID, query, weather), nil
}

func (r *Recommender) queryRecommend(ctx context.Context, cityKey, sessionID, query string, weather *models.WeatherInfo) *models.RecommendResponse {
	mood, moodScore, intents := r.mood.Classify(ctx, query)
	memory := r.memory.Get(sessionID)

	roundedScore := math.Round(moodScore*100) / 100
	response := &models.RecommendResponse{
		Mood:      mood,
		MoodScore: &roundedScore,
		Weather:   weather,
		Results:   []models.ScoredItem{},
	}

	queryEmbedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.WithError(err).WithField("session_id", sessionID).Warn("Query embedding failed, returning empty results")
		metrics.EmptyResultsTotal.Inc()
		return response
	}

	matches, err := r.index.Search(cityKey, queryEmbedding, r.cfg.SearchK)
	if err != nil {
		if !errors.Is(err, search.ErrCityNotFound) {
			r.logger.WithError(err).WithField("city", cityKey).Warn("Vector search failed")
		}
		metrics.EmptyResultsTotal.Inc()
		return response
	}

	candidates := make([]models.ScoredItem, len(matches))
	for i, match := range matches {
		candidates[i] = models.ScoredItem{
			MenuItem:      match.Item,
			SemanticScore: match.Score,
		}
	}

	candidates = r.scoring.FilterQualified(candidates)
	if len(candidates) == 0 {
		metrics.EmptyResultsTotal.Inc()
		return response
	}

	r.scoring.ScoreAll(candidates, intents, weather, memory)
	selected, weatherIdx := r.selection.Select(candidates)

	for i := range selected {
		var itemWeather *models.WeatherInfo
		if i == weatherIdx {
			itemWeather = weather
		}
		selected[i].Explanation = r.explainer.Explain(ctx, &selected[i].MenuItem, cityKey, mood, itemWeather, false)
	}

	r.memory.Update(sessionID, query, selected, mood, cityKey)
	r.publishEvent(sessionID, cityKey, query, mood, false, selected)
	metrics.RecommendationsTotal.WithLabelValues("query").Inc()

	r.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"city":       cityKey,
		"mood":       mood,
		"results":    len(selected),
	}).Info("Recommendation served")

	response.Results = selected
	return response
}

// surpriseRecommend picks a single weather-appropriate item at random.
// Session memory is deliberately left untouched on this branch.
func (r *Recommender) surpriseRecommend(ctx context.Context, cityKey, sessionID string, weather *models.WeatherInfo) *models.RecommendResponse {
	response := &models.RecommendResponse{
		Mood:    "surprise",
		Weather: weather,
		Results: []models.ScoredItem{},
	}

	items, err := r.index.Items(cityKey)
	if err != nil || len(items) == 0 {
		if err != nil && !errors.Is(err, search.ErrCityNotFound) {
			r.logger.WithError(err).WithField("city", cityKey).Warn("Surprise item lookup failed")
		}
		metrics.EmptyResultsTotal.Inc()
		return response
	}

	pool := filterByCuisine(items, surpriseCuisines(weather.Category))
	if len(pool) == 0 {
		pool = items
	}

	pick := models.ScoredItem{MenuItem: pool[r.rng.Intn(len(pool))]}

	var itemWeather *models.WeatherInfo
	if r.rng.Float64() < r.cfg.SurpriseWeatherBias {
		itemWeather = weather
	}
	pick.Explanation = r.explainer.Explain(ctx, &pick.MenuItem, cityKey, "surprise", itemWeather, true)

	r.publishEvent(sessionID, cityKey, "", "surprise", true, []models.ScoredItem{pick})
	metrics.RecommendationsTotal.WithLabelValues("surprise").Inc()

	response.Results = []models.ScoredItem{pick}
	return response
}

// Cities lists the cities the engine can serve.
func (r *Recommender) Cities() []string {
	return r.index.Cities()
}

func (r *Recommender) publishEvent(sessionID, cityKey, query, mood string, surprise bool, results []models.ScoredItem) {
	if r.events == nil {
		return
	}

	names := make([]string, 0, len(results))
	for _, result := range results {
		names = append(names, result.ItemName)
	}

	r.events.PublishRecommendation(messaging.RecommendationEvent{
		EventID:   uuid.New(),
		SessionID: sessionID,
		City:      cityKey,
		Query:     query,
		Mood:      mood,
		Surprise:  surprise,
		ItemNames: names,
		Timestamp: time.Now(),
	})
}

func surpriseCuisines(category models.WeatherCategory) []string {
	switch category {
	case models.WeatherCold, models.WeatherRainy:
		return coldWeatherCuisines
	case models.WeatherHot:
		return hotWeatherCuisines
	default:
		return nil
	}
}

func filterByCuisine(items []models.MenuItem, keywords []string) []models.MenuItem {
	if len(keywords) == 0 {
		return items
	}

	var filtered []models.MenuItem
	for _, item := range items {
		if containsAny(strings.ToLower(item.Cuisine), keywords) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
