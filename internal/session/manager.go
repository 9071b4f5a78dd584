package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/patient-portal/pkg/metrics"
)

// ErrInvalidCookie is returned for a cookie that fails verification or
// does not match its stored session.
var ErrInvalidCookie = errors.New("invalid session cookie")

// Manager ties the signed cookie to the stored session and owns the
// session lifecycle: Create at login, Load per request, Destroy at logout.
type Manager struct {
	store      Store
	issuer     *Issuer
	cookieName string
	secure     bool
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewManager(store Store, issuer *Issuer, cookieName string, secure bool, m *metrics.Metrics) *Manager {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Manager{
		store:      store,
		issuer:     issuer,
		cookieName: cookieName,
		secure:     secure,
		metrics:    m,
		now:        time.Now,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) Secure() bool {
	return m.secure
}

func (m *Manager) TTL() time.Duration {
	return m.issuer.TTL()
}

func (m *Manager) observe(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.SessionOperations.WithLabelValues(op, status).Inc()
}

// Create stores sess under a fresh id and returns the cookie value.
func (m *Manager) Create(ctx context.Context, sess *Session) (string, error) {
	sess.ID = NewID()
	sess.CreatedAt = m.now().UTC()

	err := m.store.Save(ctx, sess)
	m.observe("create", err)
	if err != nil {
		return "", err
	}

	value, err := m.issuer.Issue(sess)
	if err != nil {
		_ = m.store.Clear(ctx, sess.ID)
		return "", err
	}
	return value, nil
}

// Load resolves a cookie value to its session.
func (m *Manager) Load(ctx context.Context, value string) (*Session, error) {
	claims, err := m.issuer.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}

	sess, err := m.store.Get(ctx, claims.ID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.observe("load", err)
		}
		return nil, err
	}
	if sess.Role != claims.Role {
		return nil, ErrInvalidCookie
	}
	return sess, nil
}

// Destroy clears the session a cookie refers to. Unknown or invalid cookies
// are not an error.
func (m *Manager) Destroy(ctx context.Context, value string) (string, error) {
	claims, err := m.issuer.Parse(value)
	if err != nil {
		return "", nil
	}
	err = m.store.Clear(ctx, claims.ID)
	m.observe("destroy", err)
	return claims.ID, err
}
