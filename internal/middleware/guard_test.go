package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-portal/internal/model"
	"github.com/jwalitptl/patient-portal/internal/session"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		token string
		role  model.Role
		want  Decision
	}{
		{"home anonymous", "/", "", "", allow()},
		{"contact anonymous", "/contact", "", "", allow()},
		{"data usage signed in", "/data-usage", "t", model.RoleAdmin, allow()},
		{"patient login anonymous", "/patient/login", "", "", allow()},
		{"patient login as patient", "/patient/login", "t", model.RolePatient, redirect(PathPatientDashboard)},
		{"register as patient", "/patient/register", "t", model.RolePatient, redirect(PathPatientDashboard)},
		{"admin login as doctor", "/admin/login", "t", model.RoleDoctor, redirect(PathAdminDashboard)},
		{"patient login as admin", "/patient/login", "t", model.RoleAdmin, redirect(PathAdminDashboard)},
		{"login with token but unknown role", "/admin/login", "t", "visitor", allow()},
		{"login with role but no token", "/admin/login", "", model.RoleAdmin, allow()},
		{"home signed in", "/", "t", model.RolePatient, allow()},
		{"patient dashboard anonymous", "/patient/dashboard", "", "", redirect(PathPatientLogin)},
		{"admin page anonymous", "/admin/appointments", "", "", redirect(PathAdminLogin)},
		{"other page anonymous", "/billing", "", "", redirect(PathPatientLogin)},
		{"patient dashboard as patient", "/patient/dashboard", "t", model.RolePatient, allow()},
		{"patient page as admin", "/patient/dashboard", "t", model.RoleAdmin, redirect(PathPatientLogin)},
		{"admin page as patient", "/admin/dashboard", "t", model.RolePatient, redirect(PathAdminLogin)},
		{"admin page as receptionist", "/admin/appointments/7", "t", model.RoleReceptionist, allow()},
		{"admin page as pharmacist", "/admin/dashboard", "t", model.RolePharmacist, allow()},
		{"admin page as billing officer", "/admin/bills/invoices/1.pdf", "t", model.RoleBillingOfficer, allow()},
		{"admin page unknown role", "/admin/dashboard", "t", "janitor", redirect(PathAdminLogin)},
		{"trailing slash", "/patient/dashboard/", "", "", redirect(PathPatientLogin)},
		{"prefix lookalike", "/administrator", "", "", redirect(PathPatientLogin)},
		{"prefix lookalike signed in", "/administrator", "t", model.RolePatient, allow()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.path, tt.token, tt.role))
		})
	}
}

func newGuardedEngine(t *testing.T) (*gin.Engine, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr := session.NewManager(session.NewMemoryStore(time.Hour), session.NewIssuer("secret", time.Hour), "portal_session", false, nil)
	r := gin.New()
	r.Use(Guard(mgr))
	handler := func(c *gin.Context) {
		sess, ok := SessionFrom(c)
		if ok {
			c.String(http.StatusOK, "hello "+sess.UserID)
			return
		}
		c.String(http.StatusOK, "hello")
	}
	r.GET("/patient/login", handler)
	r.GET("/patient/dashboard", handler)
	r.GET("/admin/appointments", handler)
	return r, mgr
}

func cookieFor(t *testing.T, mgr *session.Manager, role model.Role) *http.Cookie {
	t.Helper()
	value, err := mgr.Create(context.Background(), &session.Session{Token: "tok", Role: role, UserID: "42"})
	require.NoError(t, err)
	return &http.Cookie{Name: mgr.CookieName(), Value: value}
}

func TestGuardRedirectsAnonymous(t *testing.T) {
	r, _ := newGuardedEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/appointments", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, PathAdminLogin, w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	req.Header.Set("Accept", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/admin/login"`)
}

func TestGuardAttachesSession(t *testing.T) {
	r, mgr := newGuardedEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/patient/dashboard", nil)
	req.AddCookie(cookieFor(t, mgr, model.RolePatient))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello 42", w.Body.String())
}

func TestGuardRoleMismatch(t *testing.T) {
	r, mgr := newGuardedEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/appointments", nil)
	req.AddCookie(cookieFor(t, mgr, model.RolePatient))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, PathAdminLogin, w.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/patient/login", nil)
	req.AddCookie(cookieFor(t, mgr, model.RolePatient))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, PathPatientDashboard, w.Header().Get("Location"))
}

func TestGuardIgnoresForgedCookie(t *testing.T) {
	r, _ := newGuardedEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/patient/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "portal_session", Value: "forged"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, PathPatientLogin, w.Header().Get("Location"))
}
