package models

// RecommendRequest is the inbound payload for POST /recommend. A blank query
// is valid and triggers surprise mode; an absent session id falls back to
// the shared "default" session.
type RecommendRequest struct {
	Query     string `json:"query"`
	City      string `json:"city" validate:"required"`
	Surprise  bool   `json:"surprise"`
	SessionID string `json:"session_id"`
}

// RecommendResponse is the engine's answer. Mood is "surprise" in surprise
// mode; MoodScore is present in query mode only and is a relative,
// query-local confidence, not a calibrated probability.
type RecommendResponse struct {
	Mood      string       `json:"mood"`
	MoodScore *float64     `json:"mood_score,omitempty"`
	Weather   *WeatherInfo `json:"weather"`
	Results   []ScoredItem `json:"results"`
}

// CitiesResponse lists the cities with a loaded index.
type CitiesResponse struct {
	Cities []string `json:"cities"`
}
