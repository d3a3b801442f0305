package models

import "strings"

// MenuItem is one row of the processed menu dataset. JSON tags follow the
// dataset column names so records round-trip through the index shards and
// API responses unchanged.
type MenuItem struct {
	ItemName             string  `json:"Item_Name"`
	RestaurantName       string  `json:"Restaurant_Name"`
	Cuisine              string  `json:"Cuisine"`
	City                 string  `json:"City"`
	IsExpensive          bool    `json:"Is_Expensive"`
	IsHighlyRated        bool    `json:"Is_Highly_Rated"`
	IsBestseller         bool    `json:"Is_Bestseller"`
	AverageRating        float64 `json:"Average_Rating"`
	RestaurantPopularity float64 `json:"Restaurant_Popularity"`
	EmbeddingText        string  `json:"embedding_text"`
}

// ScoredItem is a MenuItem plus the derived, per-request fields. The backing
// item store is never mutated; these fields live only on the copy returned
// to the caller. FinalScore is populated in query mode only.
type ScoredItem struct {
	MenuItem
	SemanticScore float64 `json:"semantic_score,omitempty"`
	FinalScore    float64 `json:"final_score,omitempty"`
	Explanation   string  `json:"explanation"`
}

// NormalizeCity canonicalizes a city name into the key used by every
// city-sharded subsystem (index, weather cache, session memory). All lookups
// must go through this one function or they silently miss.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
