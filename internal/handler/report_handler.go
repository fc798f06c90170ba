package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/willrad86/auditproof-mileage/internal/integrity"
	"github.com/willrad86/auditproof-mileage/internal/report"
	"github.com/willrad86/auditproof-mileage/internal/repository"
	"github.com/willrad86/auditproof-mileage/pkg/response"
)

// ReportHandler handles HTTP requests for sealed reports
type ReportHandler struct {
	svc     *report.Service
	reports *repository.ReportRepository
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *report.Service, reports *repository.ReportRepository) *ReportHandler {
	return &ReportHandler{svc: svc, reports: reports}
}

type generateRequest struct {
	VehicleID string `json:"vehicle_id" binding:"required"`
	MonthYear string `json:"month_year" binding:"required"`
}

// Generate handles POST /api/v1/reports
func (h *ReportHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid report request")
		return
	}

	rep, err := h.svc.Generate(c.Request.Context(), req.VehicleID, req.MonthYear)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, rep)
}

// List handles GET /api/v1/reports?vehicle_id=&month_year=
func (h *ReportHandler) List(c *gin.Context) {
	vehicleID := c.Query("vehicle_id")
	if vehicleID == "" {
		response.BadRequest(c, "vehicle_id is required")
		return
	}

	reports, err := h.reports.ListByVehicle(vehicleID, c.Query("month_year"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, reports)
}

// GetByID handles GET /api/v1/reports/:id
func (h *ReportHandler) GetByID(c *gin.Context) {
	rep, err := h.reports.GetByID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, rep)
}

type exportRequest struct {
	Dir string `json:"dir" binding:"required"`
}

// Export handles POST /api/v1/reports/:id/export
func (h *ReportHandler) Export(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid export request")
		return
	}

	path, err := h.svc.Export(c.Request.Context(), c.Param("id"), req.Dir)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"path": path})
}

// Verify handles POST /api/v1/reports/verify. The body is an exported
// report document; the embedded payload is rehashed against its seal.
func (h *ReportHandler) Verify(c *gin.Context) {
	var doc report.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.BadRequest(c, "invalid report document")
		return
	}

	if err := integrity.VerifyReport(doc.Payload, doc.Report.ReportHash); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"verified": true, "report_hash": doc.Report.ReportHash})
}

// SignatureQR handles GET /api/v1/reports/:id/qr
func (h *ReportHandler) SignatureQR(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))

	png, err := h.svc.SignatureQR(c.Param("id"), size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
