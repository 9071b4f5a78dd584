package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jwalitptl/patient-portal/internal/model"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// Session is the caller's authentication state, written at login and
// cleared as a unit at logout. Handlers receive it explicitly.
type Session struct {
	ID             string          `json:"id"`
	Token          string          `json:"token"`
	Role           model.Role      `json:"role"`
	UserID         string          `json:"user_id"`
	PatientID      string          `json:"patient_id,omitempty"`
	Email          string          `json:"email,omitempty"`
	HospitalNumber string          `json:"hospital_number,omitempty"`
	Profile        json.RawMessage `json:"user,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Authenticated reports whether the session carries a token and a known role.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != "" && s.Role.Valid()
}

// Identity returns the caller identity required by appointment actions.
func (s *Session) Identity() (userID string, role model.Role, ok bool) {
	if s == nil || s.UserID == "" || s.Role == "" {
		return "", "", false
	}
	return s.UserID, s.Role, true
}

// Store persists sessions for the lifetime of a login.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Clear(ctx context.Context, id string) error
}
