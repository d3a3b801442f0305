package services

import (
	"github.com/deltaforge/smartdine/internal/config"
	"github.com/deltaforge/smartdine/pkg/models"
)

// SelectionPolicy turns a ranked candidate list into the final result set.
// Pure top-k would surface the same near-duplicate high scorers on every
// repeated query, so selection samples from the top pool instead: one
// uniformly chosen item carries the weather context, the rest are drawn
// without replacement, and the combined list is shuffled so the weather
// pick's position leaks nothing.
type SelectionPolicy struct {
	cfg *config.RecommendationConfig
	rng Rand
}

func NewSelectionPolicy(cfg *config.RecommendationConfig, rng Rand) *SelectionPolicy {
	return &SelectionPolicy{cfg: cfg, rng: rng}
}

// Select picks up to ReturnCount items from candidates (sorted descending by
// final score) and returns them with the index of the weather pick in the
// returned slice, or -1 for an empty input.
func (sp *SelectionPolicy) Select(ranked []models.ScoredItem) ([]models.ScoredItem, int) {
	if len(ranked) == 0 {
		return nil, -1
	}

	poolSize := sp.cfg.TopPoolSize
	if poolSize > len(ranked) {
		poolSize = len(ranked)
	}
	pool := ranked[:poolSize]

	weatherPick := sp.rng.Intn(len(pool))

	remaining := make([]int, 0, len(pool)-1)
	for i := range pool {
		if i != weatherPick {
			remaining = append(remaining, i)
		}
	}

	sampleCount := sp.cfg.ReturnCount - 1
	if sampleCount > len(remaining) {
		sampleCount = len(remaining)
	}

	selected := make([]models.ScoredItem, 0, sampleCount+1)
	selected = append(selected, pool[weatherPick])
	for _, p := range sp.rng.Perm(len(remaining))[:sampleCount] {
		selected = append(selected, pool[remaining[p]])
	}

	// Shuffle while tracking where the weather pick lands.
	weatherIdx := 0
	sp.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
		switch weatherIdx {
		case i:
			weatherIdx = j
		case j:
			weatherIdx = i
		}
	})

	return selected, weatherIdx
}
