package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gastro-analytics/config"
	"gastro-analytics/internal/utils"
)

type AuthHTTPHandler struct {
	auth config.AuthConfig
}

func NewAuthHTTPHandler(auth config.AuthConfig) *AuthHTTPHandler {
	return &AuthHTTPHandler{auth: auth}
}

type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHTTPHandler) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	if req.Username != h.auth.ServiceUser || req.Password != h.auth.ServicePassword {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid credentials"))
		return
	}

	token, exp, err := utils.GenerateToken([]byte(h.auth.JWTSecret), req.Username, "service", h.auth.TokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to generate token"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Token issued successfully", gin.H{
		"token":      token,
		"expires_at": exp,
	}))
}
