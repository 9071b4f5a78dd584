package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/patient-portal/internal/model"
	"github.com/jwalitptl/patient-portal/internal/session"
	"github.com/jwalitptl/patient-portal/pkg/httputil"
)

const ContextSession = "session"

const (
	PathHome             = "/"
	PathDataUsage        = "/data-usage"
	PathContact          = "/contact"
	PathPatientLogin     = "/patient/login"
	PathPatientRegister  = "/patient/register"
	PathAdminLogin       = "/admin/login"
	PathPatientDashboard = "/patient/dashboard"
	PathAdminDashboard   = "/admin/dashboard"
	PathAdminEvents      = "/admin/events"
)

var publicPaths = map[string]bool{
	PathHome:            true,
	PathDataUsage:       true,
	PathContact:         true,
	PathPatientLogin:    true,
	PathPatientRegister: true,
	PathAdminLogin:      true,
}

var authPages = map[string]bool{
	PathPatientLogin:    true,
	PathPatientRegister: true,
	PathAdminLogin:      true,
}

// Decision is the outcome of a guard check: allow, or redirect to Redirect.
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision {
	return Decision{Allow: true}
}

func redirect(target string) Decision {
	return Decision{Redirect: target}
}

func normalizePath(path string) string {
	if path == "" {
		return PathHome
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

func under(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func loginFor(path string) string {
	if under(path, "/admin") {
		return PathAdminLogin
	}
	return PathPatientLogin
}

func dashboardFor(role model.Role) (string, bool) {
	switch {
	case role.IsPatient():
		return PathPatientDashboard, true
	case role.IsAdmin():
		return PathAdminDashboard, true
	}
	return "", false
}

// Decide is the route guard. It looks only at the path and the session's
// token and role.
func Decide(path, token string, role model.Role) Decision {
	path = normalizePath(path)

	if publicPaths[path] {
		if token != "" && authPages[path] {
			if dashboard, ok := dashboardFor(role); ok {
				return redirect(dashboard)
			}
		}
		return allow()
	}

	if token == "" {
		return redirect(loginFor(path))
	}

	switch {
	case under(path, "/patient"):
		if !role.IsPatient() {
			return redirect(PathPatientLogin)
		}
	case under(path, "/admin"):
		if !role.IsAdmin() {
			return redirect(PathAdminLogin)
		}
	}
	return allow()
}

// Guard applies Decide to each request using the session cookie. Browsers
// are redirected; JSON clients sent to a login page get 401 instead.
func Guard(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := loadSession(c, sessions)

		var (
			token string
			role  model.Role
		)
		if sess != nil {
			token, role = sess.Token, sess.Role
		}

		d := Decide(c.Request.URL.Path, token, role)
		if !d.Allow {
			if wantsJSON(c) && (d.Redirect == PathPatientLogin || d.Redirect == PathAdminLogin) {
				c.Header("Location", d.Redirect)
				c.AbortWithStatusJSON(http.StatusUnauthorized, httputil.Response{
					Success: false,
					Message: "authentication required",
					Data:    gin.H{"redirect": d.Redirect},
					Error:   &httputil.Error{Code: http.StatusUnauthorized, Message: "authentication required"},
				})
				return
			}
			c.Redirect(http.StatusFound, d.Redirect)
			c.Abort()
			return
		}

		if sess != nil {
			c.Set(ContextSession, sess)
		}
		c.Next()
	}
}

func loadSession(c *gin.Context, sessions *session.Manager) *session.Session {
	value, err := c.Cookie(sessions.CookieName())
	if err != nil || value == "" {
		return nil
	}

	sess, err := sessions.Load(c.Request.Context(), value)
	switch {
	case err == nil:
		return sess
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrInvalidCookie):
		log.Debug().Err(err).Str("request_id", c.GetString(ContextRequestID)).Msg("Ignoring session cookie")
	default:
		log.Error().Err(err).Str("request_id", c.GetString(ContextRequestID)).Msg("Failed to load session")
	}
	return nil
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		c.GetHeader("X-Requested-With") == "XMLHttpRequest"
}

// SessionFrom returns the session the guard attached to the request.
func SessionFrom(c *gin.Context) (*session.Session, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*session.Session)
	return sess, ok && sess != nil
}
