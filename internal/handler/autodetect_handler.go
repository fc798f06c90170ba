package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/willrad86/auditproof-mileage/internal/autodetect"
	"github.com/willrad86/auditproof-mileage/pkg/response"
)

// AutoDetectHandler handles HTTP requests for the trip auto-detection engine
type AutoDetectHandler struct {
	engine *autodetect.Engine
}

// NewAutoDetectHandler creates a new auto-detection handler
func NewAutoDetectHandler(engine *autodetect.Engine) *AutoDetectHandler {
	return &AutoDetectHandler{engine: engine}
}

// Enable handles POST /api/v1/autodetect/enable. A refused enable is not an
// error; the response carries what the client must remediate.
func (h *AutoDetectHandler) Enable(c *gin.Context) {
	enabled := h.engine.Enable(c.Request.Context())
	response.Success(c, gin.H{"enabled": enabled})
}

// Disable handles POST /api/v1/autodetect/disable
func (h *AutoDetectHandler) Disable(c *gin.Context) {
	h.engine.Disable(c.Request.Context())
	response.Success(c, gin.H{"enabled": false})
}

// Status handles GET /api/v1/autodetect/status
func (h *AutoDetectHandler) Status(c *gin.Context) {
	response.Success(c, gin.H{
		"enabled": h.engine.Enabled(),
		"state":   h.engine.CurrentState().String(),
	})
}
