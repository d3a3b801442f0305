package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/deltaforge/smartdine/internal/config"
	"github.com/deltaforge/smartdine/internal/handlers"
	"github.com/deltaforge/smartdine/internal/messaging"
	"github.com/deltaforge/smartdine/internal/middleware"
	"github.com/deltaforge/smartdine/internal/ml"
	"github.com/deltaforge/smartdine/internal/search"
	"github.com/deltaforge/smartdine/internal/services"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	redis    *redis.Client
	events   *messaging.EventPublisher
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	// Redis only backs the embedding cache; a failed connection downgrades
	// to uncached operation instead of blocking startup.
	app.redis = connectRedis(cfg, app.logger)

	embedder := ml.NewTextEmbeddingService(cfg.Embedding, app.redis, app.logger)

	index, err := search.Load(cfg.Data.IndexDir, cfg.Embedding.Dimensions, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load search index: %w", err)
	}

	app.events = messaging.NewEventPublisher(cfg.Kafka, app.logger)

	services, err := services.New(ctx, cfg, app.logger, embedder, index, app.events, services.NewTimeRand())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = services

	app.handlers = handlers.New(app.logger, services)
	app.setupRouter()

	app.logger.WithField("cities", len(index.Cities())).Info("Application initialized")
	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.events.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing event publisher")
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing redis connection")
			return err
		}
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func connectRedis(cfg *config.Config, logger *logrus.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.URL,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		DialTimeout: cfg.Redis.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.Timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unavailable, embedding cache disabled")
		client.Close()
		return nil
	}

	logger.WithField("addr", cfg.Redis.URL).Info("Connected to redis")
	return client
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/cities", a.handlers.Recommendation.Cities)
	router.POST("/recommend", a.handlers.Recommendation.Recommend)

	a.router = router
}
