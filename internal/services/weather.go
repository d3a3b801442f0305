package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deltaforge/smartdine/internal/config"
	"github.com/deltaforge/smartdine/internal/metrics"
	"github.com/deltaforge/smartdine/pkg/models"
)

// WeatherProvider resolves a city to its current weather context. It never
// fails: any upstream problem degrades to the unknown category.
type WeatherProvider interface {
	GetWeather(ctx context.Context, city string) *models.WeatherInfo
}

type weatherEntry struct {
	fetched time.Time
	info    *models.WeatherInfo
}

// WeatherService queries OpenWeather and caches per city with a TTL.
// Concurrent misses for the same city may redundantly refetch; the overwrite
// is idempotent, the lock only protects the map itself.
type WeatherService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	ttl     time.Duration
	logger  *logrus.Logger

	mu    sync.RWMutex
	cache map[string]weatherEntry

	now func() time.Time
}

func NewWeatherService(cfg config.WeatherConfig, logger *logrus.Logger) *WeatherService {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	return &WeatherService{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		ttl:     cfg.CacheTTL,
		logger:  logger,
		cache:   make(map[string]weatherEntry),
		now:     time.Now,
	}
}

// GetWeather returns the weather context for a city, from cache when fresh.
func (ws *WeatherService) GetWeather(ctx context.Context, city string) *models.WeatherInfo {
	if ws.apiKey == "" {
		return unknownWeather(city)
	}

	cityKey := models.NormalizeCity(city)

	ws.mu.RLock()
	entry, ok := ws.cache[cityKey]
	ws.mu.RUnlock()
	if ok && ws.now().Sub(entry.fetched) < ws.ttl {
		metrics.WeatherCacheHits.Inc()
		return entry.info
	}

	info, err := ws.fetch(ctx, city)
	if err != nil {
		ws.logger.WithError(err).WithField("city", cityKey).Warn("Weather lookup failed, using unknown category")
		return unknownWeather(city)
	}

	ws.mu.Lock()
	ws.cache[cityKey] = weatherEntry{fetched: ws.now(), info: info}
	ws.mu.Unlock()

	return info
}

type openWeatherResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
}

func (ws *WeatherService) fetch(ctx context.Context, city string) (*models.WeatherInfo, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", ws.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ws.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := ws.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &weatherStatusError{status: resp.StatusCode}
	}

	var payload openWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Weather) == 0 {
		return nil, errMissingCondition
	}

	tempC := math.Round(payload.Main.Temp)
	condition := payload.Weather[0].Main

	return &models.WeatherInfo{
		City:      city,
		TempC:     &tempC,
		Condition: condition,
		Category:  classifyWeather(tempC, condition),
	}, nil
}

// classifyWeather maps raw weather to a food-relevant category. Temperature
// thresholds are checked before condition text; that order is part of the
// contract.
func classifyWeather(tempC float64, condition string) models.WeatherCategory {
	if tempC >= 30 {
		return models.WeatherHot
	}
	if tempC <= 18 {
		return models.WeatherCold
	}
	lower := strings.ToLower(condition)
	if strings.Contains(lower, "rain") {
		return models.WeatherRainy
	}
	if strings.Contains(lower, "cloud") {
		return models.WeatherCloudy
	}
	return models.WeatherPleasant
}

func unknownWeather(city string) *models.WeatherInfo {
	return &models.WeatherInfo{
		City:      city,
		TempC:     nil,
		Condition: "unknown",
		Category:  models.WeatherUnknown,
	}
}

type weatherStatusError struct {
	status int
}

func (e *weatherStatusError) Error() string {
	return "weather api returned status " + http.StatusText(e.status)
}

var errMissingCondition = errors.New("weather api response missing condition")
