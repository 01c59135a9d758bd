package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"gastro-analytics/internal/database"
	"gastro-analytics/internal/variance"
)

const (
	analysisCachePrefix = "variance:analysis:"
	analysisCacheTTL    = 15 * time.Minute
)

type VarianceHTTPHandler struct {
	tracker    *variance.Tracker
	thresholds *database.ThresholdStore
	cache      *redis.Client
}

func NewVarianceHTTPHandler(tracker *variance.Tracker, thresholds *database.ThresholdStore, cache *redis.Client) *VarianceHTTPHandler {
	return &VarianceHTTPHandler{
		tracker:    tracker,
		thresholds: thresholds,
		cache:      cache,
	}
}

type AnalyzeRequest struct {
	Period            variance.ConsumptionPeriod             `json:"period" binding:"required"`
	IngredientRecords []variance.IngredientConsumptionRecord `json:"ingredientRecords"`
	RecipeSummaries   []variance.RecipeConsumptionSummary    `json:"recipeSummaries"`
	HistoricalTrends  []variance.VarianceTrendAnalysis       `json:"historicalTrends,omitempty"`
}

func (h *VarianceHTTPHandler) SetThresholds(c *gin.Context) {
	location := c.Param("location")
	if location == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Location required"))
		return
	}

	var thresholds variance.VarianceThresholds
	if err := c.ShouldBindJSON(&thresholds); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	thresholds.LocationID = location

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h.tracker.SetThresholds(location, thresholds)
	if h.thresholds != nil {
		if err := h.thresholds.Save(ctx, location, thresholds); err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse("Failed to persist thresholds: "+err.Error()))
			return
		}
	}

	// New thresholds change alerting, so the cached analysis is stale.
	if h.cache != nil {
		h.cache.Del(ctx, analysisCachePrefix+location)
	}

	c.JSON(http.StatusOK, successResponse("Thresholds updated successfully", thresholds))
}

func (h *VarianceHTTPHandler) GetThresholds(c *gin.Context) {
	location := c.Param("location")

	if thresholds, ok := h.tracker.Thresholds(location); ok {
		c.JSON(http.StatusOK, successResponse("Thresholds retrieved successfully", thresholds))
		return
	}

	if h.thresholds != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		thresholds, found, err := h.thresholds.Get(ctx, location)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse("Failed to load thresholds: "+err.Error()))
			return
		}
		if found {
			h.tracker.SetThresholds(location, thresholds)
			c.JSON(http.StatusOK, successResponse("Thresholds retrieved successfully", thresholds))
			return
		}
	}

	c.JSON(http.StatusNotFound, errorResponse("No thresholds registered for location"))
}

func (h *VarianceHTTPHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	if req.Period.Location == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Period location required"))
		return
	}

	result := h.tracker.AnalyzeVariance(req.IngredientRecords, req.RecipeSummaries, req.Period, req.HistoricalTrends)

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if payload, err := json.Marshal(result); err == nil {
			h.cache.Set(ctx, analysisCachePrefix+req.Period.Location, payload, analysisCacheTTL)
		}
	}

	c.JSON(http.StatusOK, successResponse("Variance analysis completed", result))
}

func (h *VarianceHTTPHandler) GetCachedAnalysis(c *gin.Context) {
	location := c.Param("location")

	if h.cache == nil {
		c.JSON(http.StatusNotFound, errorResponse("No cached analysis for location"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := h.cache.Get(ctx, analysisCachePrefix+location).Bytes()
	if err != nil {
		if err == redis.Nil {
			c.JSON(http.StatusNotFound, errorResponse("No cached analysis for location"))
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse("Cache error: "+err.Error()))
		return
	}

	var result variance.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Corrupt cached analysis"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Cached analysis retrieved successfully", result))
}
