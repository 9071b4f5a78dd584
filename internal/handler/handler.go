package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/patient-portal/internal/middleware"
	"github.com/jwalitptl/patient-portal/internal/session"
	apperrors "github.com/jwalitptl/patient-portal/pkg/errors"
)

// RouteRegistrar is implemented by every handler package.
type RouteRegistrar interface {
	RegisterRoutes(*gin.RouterGroup)
}

// Session returns the request's session, or nil when the guard attached none.
func Session(c *gin.Context) *session.Session {
	sess, _ := middleware.SessionFrom(c)
	return sess
}

// SessionID returns the id of the request's session, or "".
func SessionID(c *gin.Context) string {
	if sess := Session(c); sess != nil {
		return sess.ID
	}
	return ""
}

// BindError turns a binding failure into a bad request, keeping the first
// field error readable.
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.BadRequest("invalid "+fe.Field()+": failed on "+fe.Tag(), err)
	}
	return apperrors.BadRequest("invalid request", err)
}
