package services

import (
	"sort"
	"strings"

	"github.com/deltaforge/smartdine/internal/config"
	"github.com/deltaforge/smartdine/pkg/models"
)

// Cuisine keyword sets for intent and weather alignment.
var (
	cheesyCuisines = []string{"pizza", "italian", "cheese"}
	spicyCuisines  = []string{"spicy", "tandoor", "chilli"}
)

// ScoringEngine turns a retrieved candidate into a final scalar: the
// semantic/feature blend plus a small uniform jitter that keeps repeated
// identical queries from ranking identically.
type ScoringEngine struct {
	cfg *config.RecommendationConfig
	rng Rand
}

func NewScoringEngine(cfg *config.RecommendationConfig, rng Rand) *ScoringEngine {
	return &ScoringEngine{cfg: cfg, rng: rng}
}

// FilterQualified drops candidates below the minimum rating. Runs before
// scoring; no other merit rescues a low-rated item.
func (se *ScoringEngine) FilterQualified(candidates []models.ScoredItem) []models.ScoredItem {
	qualified := candidates[:0]
	for _, candidate := range candidates {
		if candidate.AverageRating >= se.cfg.MinRating {
			qualified = append(qualified, candidate)
		}
	}
	return qualified
}

// FeatureScore sums the item-quality, intent-alignment, memory, and weather
// terms. Each term applies only when its precondition holds; the repetition
// penalty outweighs every single bonus so recently returned items sink.
func (se *ScoringEngine) FeatureScore(item *models.MenuItem, intents map[string]bool, weather *models.WeatherInfo, memory SessionRecord) float64 {
	score := 0.4 * (item.AverageRating / 5)

	popularity := item.RestaurantPopularity / 1000
	if popularity > 1 {
		popularity = 1
	}
	score += 0.2 * popularity

	if item.IsBestseller {
		score += 0.2
	}

	cuisine := strings.ToLower(item.Cuisine)
	if intents["cheesy"] && containsAny(cuisine, cheesyCuisines) {
		score += 0.15
	}
	if intents["spicy"] && containsAny(cuisine, spicyCuisines) {
		score += 0.15
	}

	if containsString(memory.Cuisines, item.Cuisine) {
		score += 0.1
	}
	if containsString(memory.Items, item.ItemName) {
		score -= 0.2
	}

	if weather != nil {
		switch weather.Category {
		case models.WeatherCold, models.WeatherRainy:
			if intents["spicy"] {
				score += 0.1
			}
		case models.WeatherHot:
			if intents["light"] {
				score += 0.1
			}
		}
	}

	return score
}

// ScoreAll assigns final scores in place and sorts descending. Jitter is
// drawn once per candidate per call and never persisted.
func (se *ScoringEngine) ScoreAll(candidates []models.ScoredItem, intents map[string]bool, weather *models.WeatherInfo, memory SessionRecord) {
	for i := range candidates {
		feature := se.FeatureScore(&candidates[i].MenuItem, intents, weather, memory)
		candidates[i].FinalScore = se.cfg.SemanticWeight*candidates[i].SemanticScore +
			se.cfg.FeatureWeight*feature +
			se.jitter()
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].FinalScore > candidates[j].FinalScore
	})
}

func (se *ScoringEngine) jitter() float64 {
	return se.cfg.JitterMin + se.rng.Float64()*(se.cfg.JitterMax-se.cfg.JitterMin)
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
