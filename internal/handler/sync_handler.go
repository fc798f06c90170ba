package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	syncsvc "github.com/willrad86/auditproof-mileage/internal/sync"
	"github.com/willrad86/auditproof-mileage/pkg/response"
)

// SyncHandler handles HTTP requests for cloud reconciliation. The service
// is nil when no remote store is configured.
type SyncHandler struct {
	svc *syncsvc.Service
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(svc *syncsvc.Service) *SyncHandler {
	return &SyncHandler{svc: svc}
}

// SyncAll handles POST /api/v1/sync
func (h *SyncHandler) SyncAll(c *gin.Context) {
	if h.svc == nil {
		response.Error(c, http.StatusServiceUnavailable, "no remote store configured")
		return
	}

	res, err := h.svc.SyncAll(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, res)
}

// SyncTrips handles POST /api/v1/sync/trips
func (h *SyncHandler) SyncTrips(c *gin.Context) {
	if h.svc == nil {
		response.Error(c, http.StatusServiceUnavailable, "no remote store configured")
		return
	}

	res, err := h.svc.SyncTrips(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, res)
}
