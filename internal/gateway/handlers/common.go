package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gastro-analytics/internal/reporting"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// --- Helper for mapping service errors ---
func handleServiceError(c *gin.Context, err error) {
	if err != nil {
		switch {
		case errors.Is(err, reporting.ErrNotFound):
			c.JSON(http.StatusNotFound, errorResponse(err.Error()))
		case errors.Is(err, reporting.ErrValidation):
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, errorResponse("Service error: "+err.Error()))
		}
		c.Abort()
	}
}
