package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Timeout bounds the request context. Handlers observe the deadline through
// the context passed to backend calls; a zero duration leaves requests
// unbounded. Routes listed in streams (long-lived event streams) are never
// bounded.
func Timeout(d time.Duration, streams ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(streams))
	for _, p := range streams {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		if _, ok := skip[c.FullPath()]; ok {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
