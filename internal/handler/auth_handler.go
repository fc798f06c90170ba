package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/willrad86/auditproof-mileage/internal/auth"
	"github.com/willrad86/auditproof-mileage/pkg/response"
)

// AuthHandler exchanges the shared device secret for a bearer token.
type AuthHandler struct {
	svc    *auth.Service
	secret string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *auth.Service, secret string) *AuthHandler {
	return &AuthHandler{svc: svc, secret: secret}
}

type tokenRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
}

// Token handles POST /api/v1/auth/token
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "device_id and secret are required")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.secret)) != 1 {
		response.Error(c, http.StatusUnauthorized, "invalid secret")
		return
	}

	token, err := h.svc.IssueToken(req.DeviceID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token})
}
