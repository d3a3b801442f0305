package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Data           DataConfig           `mapstructure:"data"`
	Embedding      EmbeddingConfig      `mapstructure:"embedding"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Weather        WeatherConfig        `mapstructure:"weather"`
	Explainer      ExplainerConfig      `mapstructure:"explainer"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DataConfig struct {
	ItemsPath string `mapstructure:"items_path"`
	IndexDir  string `mapstructure:"index_dir"`
}

// EmbeddingConfig points at the sidecar embedding server (POST /embed with
// {"texts": [...]}, answering {"embeddings": [[...]]}). Dimensions must match
// the dimension the index shards were built with.
type EmbeddingConfig struct {
	URL         string        `mapstructure:"url"`
	Dimensions  int           `mapstructure:"dimensions"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CachePrefix string        `mapstructure:"cache_prefix"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
}

type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type WeatherConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type ExplainerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RecommendationConfig struct {
	SearchK             int     `mapstructure:"search_k"`
	ReturnCount         int     `mapstructure:"return_count"`
	TopPoolSize         int     `mapstructure:"top_pool_size"`
	MinRating           float64 `mapstructure:"min_rating"`
	HistoryWindow       int     `mapstructure:"history_window"`
	SessionCapacity     int     `mapstructure:"session_capacity"`
	SemanticWeight      float64 `mapstructure:"semantic_weight"`
	FeatureWeight       float64 `mapstructure:"feature_weight"`
	JitterMin           float64 `mapstructure:"jitter_min"`
	JitterMax           float64 `mapstructure:"jitter_max"`
	SurpriseWeatherBias float64 `mapstructure:"surprise_weather_bias"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.mode", "development")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Data defaults
	viper.SetDefault("data.items_path", "./data/processed/smartdine_preprocessed.csv")
	viper.SetDefault("data.index_dir", "./data/index")

	// Embedding defaults (all-MiniLM-L6-v2 served by the sidecar)
	viper.SetDefault("embedding.url", "http://localhost:8501/embed")
	viper.SetDefault("embedding.dimensions", 384)
	viper.SetDefault("embedding.timeout", "10s")
	viper.SetDefault("embedding.cache_prefix", "embed:text")
	viper.SetDefault("embedding.cache_ttl", "24h")

	// Redis defaults (embedding cache, optional)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.url", "localhost:6379")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Weather defaults
	viper.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5/weather")
	viper.SetDefault("weather.timeout", "5s")
	viper.SetDefault("weather.cache_ttl", "10m")

	// Explainer defaults (OpenAI-compatible chat endpoint)
	viper.SetDefault("explainer.enabled", false)
	viper.SetDefault("explainer.endpoint", "https://api.groq.com/openai/v1/chat/completions")
	viper.SetDefault("explainer.model", "llama3-8b-8192")
	viper.SetDefault("explainer.timeout", "10s")

	// Kafka defaults (served-recommendation events, optional)
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topic", "smartdine.recommendations")

	// Recommendation policy defaults
	viper.SetDefault("recommendation.search_k", 40)
	viper.SetDefault("recommendation.return_count", 3)
	viper.SetDefault("recommendation.top_pool_size", 10)
	viper.SetDefault("recommendation.min_rating", 4.0)
	viper.SetDefault("recommendation.history_window", 5)
	viper.SetDefault("recommendation.session_capacity", 10000)
	viper.SetDefault("recommendation.semantic_weight", 0.6)
	viper.SetDefault("recommendation.feature_weight", 0.4)
	viper.SetDefault("recommendation.jitter_min", 0.03)
	viper.SetDefault("recommendation.jitter_max", 0.09)
	viper.SetDefault("recommendation.surprise_weather_bias", 0.6)

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
