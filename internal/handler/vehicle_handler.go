package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/willrad86/auditproof-mileage/internal/models"
	"github.com/willrad86/auditproof-mileage/internal/repository"
	"github.com/willrad86/auditproof-mileage/pkg/response"
)

// VehicleHandler handles HTTP requests for vehicles
type VehicleHandler struct {
	vehicles *repository.VehicleRepository
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicles *repository.VehicleRepository) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles}
}

// Create handles POST /api/v1/vehicles
func (h *VehicleHandler) Create(c *gin.Context) {
	var vehicle models.Vehicle
	if err := c.ShouldBindJSON(&vehicle); err != nil {
		response.BadRequest(c, "invalid vehicle payload")
		return
	}
	if vehicle.Make == "" || vehicle.Model == "" {
		response.BadRequest(c, "make and model are required")
		return
	}

	if err := h.vehicles.Create(&vehicle); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, vehicle)
}

// List handles GET /api/v1/vehicles
func (h *VehicleHandler) List(c *gin.Context) {
	vehicles, err := h.vehicles.List()
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, vehicles)
}

// GetByID handles GET /api/v1/vehicles/:id
func (h *VehicleHandler) GetByID(c *gin.Context) {
	vehicle, err := h.vehicles.GetByID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, vehicle)
}

// Update handles PUT /api/v1/vehicles/:id
func (h *VehicleHandler) Update(c *gin.Context) {
	var update models.VehicleUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.BadRequest(c, "invalid vehicle update payload")
		return
	}

	if err := h.vehicles.Update(c.Param("id"), update); err != nil {
		response.FromError(c, err)
		return
	}

	vehicle, err := h.vehicles.GetByID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, vehicle)
}

// Delete handles DELETE /api/v1/vehicles/:id
func (h *VehicleHandler) Delete(c *gin.Context) {
	if err := h.vehicles.Delete(c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

type odometerRequest struct {
	Slot      string `json:"slot" binding:"required"`
	Path      string `json:"path" binding:"required"`
	Hash      string `json:"hash" binding:"required"`
	MonthYear string `json:"month_year" binding:"required"`
}

// AttachOdometerPhoto handles POST /api/v1/vehicles/:id/odometer
func (h *VehicleHandler) AttachOdometerPhoto(c *gin.Context) {
	var req odometerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid odometer photo payload")
		return
	}
	if req.Slot != "start" && req.Slot != "end" {
		response.Error(c, http.StatusBadRequest, "slot must be \"start\" or \"end\"")
		return
	}

	err := h.vehicles.AttachOdometerPhoto(c.Param("id"), req.Slot, req.Path, req.Hash, req.MonthYear)
	if err != nil {
		response.FromError(c, err)
		return
	}

	vehicle, err := h.vehicles.GetByID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, vehicle)
}
