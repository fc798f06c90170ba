package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
	"github.com/willrad86/auditproof-mileage/internal/models"
	"github.com/willrad86/auditproof-mileage/internal/repository"
	"github.com/willrad86/auditproof-mileage/internal/trip"
	"github.com/willrad86/auditproof-mileage/pkg/response"
)

// TripHandler handles HTTP requests for trips
type TripHandler struct {
	manager *trip.Manager
	trips   *repository.TripRepository
}

// NewTripHandler creates a new trip handler
func NewTripHandler(manager *trip.Manager, trips *repository.TripRepository) *TripHandler {
	return &TripHandler{manager: manager, trips: trips}
}

// GetTrips handles GET /api/v1/trips
func (h *TripHandler) GetTrips(c *gin.Context) {
	var filter models.TripFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return
	}

	resp, err := h.trips.GetTrips(filter)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, resp)
}

// GetTripByID handles GET /api/v1/trips/:id
func (h *TripHandler) GetTripByID(c *gin.Context) {
	t, err := h.trips.GetByID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, t)
}

type startRequest struct {
	VehicleID string `json:"vehicle_id" binding:"required"`
	Purpose   string `json:"purpose"`
	Notes     string `json:"notes"`
}

// Start handles POST /api/v1/trips/start
func (h *TripHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid trip start payload")
		return
	}

	t, err := h.manager.Start(c.Request.Context(), req.VehicleID, req.Purpose, req.Notes)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, t)
}

// Stop handles POST /api/v1/trips/:id/stop
func (h *TripHandler) Stop(c *gin.Context) {
	t, err := h.manager.Stop(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, t)
}

// AddPoint handles POST /api/v1/trips/:id/points
func (h *TripHandler) AddPoint(c *gin.Context) {
	var coord models.Coordinate
	if err := c.ShouldBindJSON(&coord); err != nil {
		response.BadRequest(c, "invalid coordinate payload")
		return
	}

	if err := h.manager.AddPoint(c.Request.Context(), c.Param("id"), coord); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

type classifyRequest struct {
	Classification string `json:"classification" binding:"required"`
}

// Classify handles PUT /api/v1/trips/:id/classify
func (h *TripHandler) Classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid classification payload")
		return
	}

	if err := h.manager.Classify(c.Param("id"), req.Classification); err != nil {
		response.FromError(c, err)
		return
	}

	t, err := h.trips.GetByID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, t)
}

type annotateRequest struct {
	Purpose *string `json:"purpose"`
	Notes   *string `json:"notes"`
}

// Annotate handles PUT /api/v1/trips/:id. Only purpose and notes are
// editable over the API, and only while the trip is active: both fields are
// covered by the completion seal.
func (h *TripHandler) Annotate(c *gin.Context) {
	var req annotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid trip update payload")
		return
	}

	current, err := h.trips.GetByID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	if !current.IsActive() {
		response.FromError(c, apperr.Newf(apperr.CodeInvalidState,
			"trip %s is sealed; purpose and notes can no longer change", current.ID))
		return
	}

	update := models.TripUpdate{Purpose: req.Purpose, Notes: req.Notes}
	if err := h.trips.Update(c.Param("id"), update); err != nil {
		response.FromError(c, err)
		return
	}

	t, err := h.trips.GetByID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, t)
}

// Delete handles DELETE /api/v1/trips/:id
func (h *TripHandler) Delete(c *gin.Context) {
	if err := h.trips.Delete(c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}
