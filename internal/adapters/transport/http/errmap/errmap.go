package errmap

import (
	"net/http"

	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k customErrors.Kind) int {
	switch k {
	case customErrors.KindUserExists, customErrors.KindConflict:
		return http.StatusConflict
	case customErrors.KindUserNotFound, customErrors.KindNotFound:
		return http.StatusNotFound
	case customErrors.KindBadCredentials, customErrors.KindInvalidSession,
		customErrors.KindRefreshExpired, customErrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case customErrors.KindForbidden, customErrors.KindEmailNotVerified:
		return http.StatusForbidden
	case customErrors.KindValidation, customErrors.KindInvalidOTP, customErrors.KindOTPExpired:
		return http.StatusBadRequest
	case customErrors.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Abort writes {"error": KIND, "message": text} and stops the chain.
// Internal failures are attached to the context for the request logger and
// never reach the client.
func Abort(c *gin.Context, err error) {
	kind := customErrors.KindOf(err)
	if kind == customErrors.KindInternal {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(StatusFor(kind), gin.H{
		"error":   kind,
		"message": customErrors.Message(err),
	})
}
