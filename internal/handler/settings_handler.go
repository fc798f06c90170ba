package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/willrad86/auditproof-mileage/internal/models"
	"github.com/willrad86/auditproof-mileage/internal/repository"
	"github.com/willrad86/auditproof-mileage/pkg/response"
)

// SettingsHandler handles HTTP requests for settings
type SettingsHandler struct {
	settings *repository.SettingsRepository
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *repository.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// GetRate handles GET /api/v1/settings/rate
func (h *SettingsHandler) GetRate(c *gin.Context) {
	rate, err := h.settings.RatePerMile()
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"rate_per_mile": rate})
}

type rateRequest struct {
	RatePerMile float64 `json:"rate_per_mile" binding:"required"`
}

// SetRate handles PUT /api/v1/settings/rate
func (h *SettingsHandler) SetRate(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RatePerMile <= 0 {
		response.BadRequest(c, "rate_per_mile must be a positive number")
		return
	}

	value := strconv.FormatFloat(req.RatePerMile, 'f', -1, 64)
	if err := h.settings.Set(models.SettingIRSRatePerMile, value); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"rate_per_mile": req.RatePerMile})
}
