package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-portal/pkg/httputil"
)

// DefaultMaxBodySize covers login forms and action posts.
const DefaultMaxBodySize = 64 << 10

// BodyLimit rejects requests whose declared body exceeds max and caps the
// bytes a handler can read from the rest.
func BodyLimit(max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > max {
			msg := fmt.Sprintf("request body exceeds %d bytes", max)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.Response{
				Success: false,
				Message: msg,
				Error:   &httputil.Error{Code: http.StatusRequestEntityTooLarge, Message: msg},
			})
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max)
		}
		c.Next()
	}
}
