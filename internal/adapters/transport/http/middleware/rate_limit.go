package middleware

import (
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/http/errmap"
	"github.com/Miraines/gentlemale/backend/internal/adapters/transport/ratelimit"
	customErrors "github.com/Miraines/gentlemale/backend/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
)

// RateLimitPerIP rejects a client with 429 once its bucket is empty.
func RateLimitPerIP(l *ratelimit.PerIP) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			errmap.Abort(c, customErrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
