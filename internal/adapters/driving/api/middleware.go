package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/logger"
)

// BearerAuth checks the Authorization header against token.
// A missing or non-bearer header is rejected with 403, a wrong token with 401.
// An empty token disables the check.
func BearerAuth(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		scheme, credentials, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		credentials = strings.TrimSpace(credentials)
		if !ok || !strings.EqualFold(scheme, "bearer") || credentials == "" {
			abortWithDetail(c, http.StatusForbidden, "Not authenticated")
			return
		}
		if subtle.ConstantTimeCompare([]byte(credentials), want) != 1 {
			logger.With("client_ip", c.ClientIP()).Debug("rejected bearer token")
			abortWithDetail(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs one line per request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).Round(time.Millisecond),
			"client_ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
		).Info("request completed")
	}
}

// MetricsMiddleware reports every request to observer, labelled by route pattern.
func MetricsMiddleware(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observer.ObserveRequest(route, c.Writer.Status(), time.Since(start))
	}
}

func abortWithDetail(c *gin.Context, code int, detail string) {
	c.AbortWithStatusJSON(code, gin.H{"detail": detail})
}
