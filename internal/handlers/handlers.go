package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/deltaforge/smartdine/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
}

func New(logger *logrus.Logger, services *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger),
		Recommendation: NewRecommendationHandler(services.Recommender, logger),
	}
}
