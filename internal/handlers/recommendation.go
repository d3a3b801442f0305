package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/deltaforge/smartdine/internal/services"
	"github.com/deltaforge/smartdine/pkg/models"
)

type RecommendationHandler struct {
	recommender services.RecommenderInterface
	validate    *validator.Validate
	logger      *logrus.Logger
}

func NewRecommendationHandler(recommender services.RecommenderInterface, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Recommend handles POST /recommend.
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req models.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": "Invalid request body: " + err.Error(),
			},
		})
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": "city is required",
			},
		})
		return
	}

	response, err := h.recommender.Recommend(c.Request.Context(), &req)
	if err != nil {
		h.logger.WithError(err).Error("Recommendation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_FAILED",
				"message": "Failed to generate recommendations",
			},
		})
		return
	}

	c.JSON(http.StatusOK, response)
}

// Cities handles GET /cities.
func (h *RecommendationHandler) Cities(c *gin.Context) {
	c.JSON(http.StatusOK, models.CitiesResponse{Cities: h.recommender.Cities()})
}
