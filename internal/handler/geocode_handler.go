package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/willrad86/auditproof-mileage/internal/geocode"
	"github.com/willrad86/auditproof-mileage/pkg/response"
)

// GeocodeHandler handles HTTP requests for address resolution
type GeocodeHandler struct {
	resolver *geocode.Service
}

// NewGeocodeHandler creates a new geocode handler
func NewGeocodeHandler(resolver *geocode.Service) *GeocodeHandler {
	return &GeocodeHandler{resolver: resolver}
}

// ResolvePending handles POST /api/v1/geocode/resolve. It re-attempts the
// address lookups that fell back to coordinates while offline.
func (h *GeocodeHandler) ResolvePending(c *gin.Context) {
	res, err := h.resolver.ResolvePending(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, res)
}
