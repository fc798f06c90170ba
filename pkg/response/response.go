package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/willrad86/auditproof-mileage/internal/apperr"
)

// Response is the standard API envelope.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error sends an error response
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// NotFound sends a 404 not found response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError sends a 500 internal server error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// FromError maps a service error onto the HTTP status its code implies.
// Unrecognized errors become a 500 with a generic message so internals do
// not leak to clients.
func FromError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		InternalError(c, "internal error")
		return
	}

	switch ae.Code {
	case apperr.CodeNotFound:
		Error(c, http.StatusNotFound, ae.Message)
	case apperr.CodeConflict:
		Error(c, http.StatusConflict, ae.Message)
	case apperr.CodePermissionDenied:
		Error(c, http.StatusForbidden, ae.Message)
	case apperr.CodeInvalidState:
		Error(c, http.StatusUnprocessableEntity, ae.Message)
	case apperr.CodeNetworkUnavailable:
		Error(c, http.StatusServiceUnavailable, ae.Message)
	case apperr.CodeIntegrityMismatch:
		Error(c, http.StatusConflict, ae.Message)
	default:
		InternalError(c, ae.Message)
	}
}
