package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/willrad86/auditproof-mileage/internal/auth"
	"github.com/willrad86/auditproof-mileage/pkg/response"
)

// ContextDeviceID is the gin context key the device id is stored under.
const ContextDeviceID = "device_id"

// Auth rejects requests that do not carry a valid bearer token.
func Auth(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := svc.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "missing or malformed authorization header")
			c.Abort()
			return
		}

		claims, err := svc.ValidateToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}

		c.Set(ContextDeviceID, claims.DeviceID)
		c.Next()
	}
}
