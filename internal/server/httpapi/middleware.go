package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/logging"
	"github.com/dmitrijs2005/jwtkeeper/internal/server/auth"
)

const (
	ctxOwnerIDKey = "owner_id"
	ctxTokenIDKey = "jti"
)

// RequireAuth rejects requests whose bearer token is malformed, expired or
// no longer on the allowlist. On success the owner id and jti are stored in
// the gin context.
func RequireAuth(a *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := a.AuthenticateHeader(c.Request.Context(), c.GetHeader(common.AuthorizationHeaderName))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}

		c.Set(ctxOwnerIDKey, claims.OwnerID())
		c.Set(ctxTokenIDKey, claims.TokenID())
		c.Next()
	}
}

func ownerID(c *gin.Context) string {
	return c.GetString(ctxOwnerIDKey)
}

func tokenID(c *gin.Context) string {
	return c.GetString(ctxTokenIDKey)
}

// RequestLogger logs one line per request.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if id := ownerID(c); id != "" {
			args = append(args, "user_id", id)
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error(c.Request.Context(), "http request", args...)
		case status >= http.StatusBadRequest:
			logger.Warn(c.Request.Context(), "http request", args...)
		default:
			logger.Info(c.Request.Context(), "http request", args...)
		}
	}
}
