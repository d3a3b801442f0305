package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smartdine_recommendations_total",
		Help: "Recommendations served, partitioned by mode (query or surprise).",
	}, []string{"mode"})

	EmptyResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartdine_empty_results_total",
		Help: "Requests that short-circuited to an empty result list.",
	})

	EmbeddingCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartdine_embedding_cache_hits_total",
		Help: "Text embeddings served from the redis cache.",
	})

	WeatherCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "smartdine_weather_cache_hits_total",
		Help: "Weather lookups served from the in-process TTL cache.",
	})

	RecommendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "smartdine_recommend_duration_seconds",
		Help:    "End-to-end latency of the recommend pipeline.",
		Buckets: prometheus.DefBuckets,
	})
)
