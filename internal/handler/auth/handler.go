package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/patient-portal/internal/handler"
	"github.com/jwalitptl/patient-portal/internal/middleware"
	"github.com/jwalitptl/patient-portal/internal/model"
	"github.com/jwalitptl/patient-portal/internal/session"
	apperrors "github.com/jwalitptl/patient-portal/pkg/errors"
	"github.com/jwalitptl/patient-portal/pkg/httputil"
)

const (
	msgLoginFailed = "Invalid login credentials"
	msgWrongPortal = "This account cannot sign in here"
	msgLoggedIn    = "Login successful"
	msgLoggedOut   = "Logged out successfully"
)

// Authenticator verifies credentials against the hospital backend.
type Authenticator interface {
	Login(ctx context.Context, portal model.Role, creds model.Credentials) (*model.LoginResult, error)
}

type Handler struct {
	backend  Authenticator
	sessions *session.Manager
	onLogout []func(sessionID string)
}

// NewHandler builds the login and logout handler. Each onLogout hook runs
// with the id of a destroyed session.
func NewHandler(backend Authenticator, sessions *session.Manager, onLogout ...func(sessionID string)) *Handler {
	return &Handler{backend: backend, sessions: sessions, onLogout: onLogout}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST(middleware.PathPatientLogin, h.PatientLogin)
	r.POST(middleware.PathAdminLogin, h.AdminLogin)
}

// RegisterLogout mounts logout outside the guard so stale cookies can
// always be cleared.
func (h *Handler) RegisterLogout(r gin.IRoutes) {
	r.POST("/logout", h.Logout)
}

func (h *Handler) PatientLogin(c *gin.Context) {
	h.login(c, model.RolePatient, middleware.PathPatientDashboard)
}

func (h *Handler) AdminLogin(c *gin.Context) {
	h.login(c, model.RoleAdmin, middleware.PathAdminDashboard)
}

func (h *Handler) login(c *gin.Context, portal model.Role, dashboard string) {
	var creds model.Credentials
	if err := c.ShouldBind(&creds); err != nil {
		httputil.RespondWithError(c, handler.BindError(err))
		return
	}

	result, err := h.backend.Login(c.Request.Context(), portal, creds)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Network(err))
		return
	}
	if !result.Success || result.Token == "" {
		msg := result.Message
		if msg == "" {
			msg = msgLoginFailed
		}
		httputil.RespondWithError(c, apperrors.Application(msg))
		return
	}

	var user model.LoginUser
	if len(result.User) > 0 {
		if err := json.Unmarshal(result.User, &user); err != nil {
			log.Warn().Err(err).Str("portal", string(portal)).Msg("Login profile not understood")
		}
	}

	role := result.Role
	if role == "" {
		role = user.Role
	}
	if (portal.IsPatient() && !role.IsPatient()) || (portal.IsAdmin() && !role.IsAdmin()) {
		httputil.RespondWithError(c, apperrors.Application(msgWrongPortal))
		return
	}

	sess := &session.Session{
		Token:          result.Token,
		Role:           role,
		UserID:         user.Identifier(),
		PatientID:      user.PatientID.String(),
		Email:          user.Email,
		HospitalNumber: user.HospitalNumber,
		Profile:        result.User,
	}
	if sess.Email == "" {
		sess.Email = creds.Email
	}
	if sess.HospitalNumber == "" {
		sess.HospitalNumber = creds.HospitalNumber
	}
	if role.IsPatient() && sess.PatientID == "" {
		sess.PatientID = sess.UserID
	}

	h.destroyCurrent(c)

	value, err := h.sessions.Create(c.Request.Context(), sess)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}
	h.setCookie(c, value)

	log.Info().
		Str("request_id", c.GetString(middleware.ContextRequestID)).
		Str("role", string(role)).
		Str("user_id", sess.UserID).
		Msg("User logged in")

	msg := result.Message
	if msg == "" {
		msg = msgLoggedIn
	}
	httputil.RespondWithMessage(c, msg, gin.H{
		"role":     role,
		"redirect": dashboard,
		"user":     sess.Profile,
	})
}

// Logout clears every session key together and drops per-session state.
func (h *Handler) Logout(c *gin.Context) {
	h.destroyCurrent(c)
	h.clearCookie(c)
	httputil.RespondWithMessage(c, msgLoggedOut, gin.H{"redirect": middleware.PathHome})
}

func (h *Handler) destroyCurrent(c *gin.Context) {
	value, err := c.Cookie(h.sessions.CookieName())
	if err != nil || value == "" {
		return
	}
	id, err := h.sessions.Destroy(c.Request.Context(), value)
	if err != nil {
		log.Error().Err(err).Str("session_id", id).Msg("Failed to clear session")
	}
	if id == "" {
		return
	}
	for _, hook := range h.onLogout {
		hook(id)
	}
}

func (h *Handler) setCookie(c *gin.Context, value string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessions.CookieName(), value, int(h.sessions.TTL().Seconds()), "/", "", h.sessions.Secure(), true)
}

func (h *Handler) clearCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessions.CookieName(), "", -1, "/", "", h.sessions.Secure(), true)
}
