package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-portal/internal/model"
)

func testSession() *Session {
	return &Session{
		ID:             NewID(),
		Token:          "backend-token",
		Role:           model.RolePatient,
		UserID:         "42",
		PatientID:      "42",
		Email:          "ada@example.com",
		HospitalNumber: "HN-0042",
		Profile:        json.RawMessage(`{"name":"Ada"}`),
		CreatedAt:      time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	s := testSession()

	_, err := store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, s))
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	got.Token = "changed"
	again, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "backend-token", again.Token)

	require.NoError(t, store.Clear(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisFieldsRoundTrip(t *testing.T) {
	s := testSession()

	raw := encodeFields(s)
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = v.(string)
	}

	assert.Equal(t, s, decodeFields(s.ID, fields))
}

func TestSessionIdentity(t *testing.T) {
	var missing *Session
	_, _, ok := missing.Identity()
	assert.False(t, ok)
	assert.False(t, missing.Authenticated())

	s := testSession()
	userID, role, ok := s.Identity()
	assert.True(t, ok)
	assert.Equal(t, "42", userID)
	assert.Equal(t, model.RolePatient, role)
	assert.True(t, s.Authenticated())

	s.Role = "visitor"
	assert.False(t, s.Authenticated())
}

func TestIssuer(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	s := testSession()

	value, err := issuer.Issue(s)
	require.NoError(t, err)

	claims, err := issuer.Parse(value)
	require.NoError(t, err)
	assert.Equal(t, s.ID, claims.ID)
	assert.Equal(t, model.RolePatient, claims.Role)

	_, err = NewIssuer("other", time.Hour).Parse(value)
	assert.Error(t, err)

	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(value)
	assert.Error(t, err)
}

func TestManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	mgr := NewManager(store, NewIssuer("secret", time.Hour), "portal_session", false, nil)

	sess := &Session{Token: "tok", Role: model.RoleAdmin, UserID: "3"}
	value, err := mgr.Create(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	loaded, err := mgr.Load(ctx, value)
	require.NoError(t, err)
	assert.Equal(t, "tok", loaded.Token)

	_, err = mgr.Load(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidCookie)

	id, err := mgr.Destroy(ctx, value)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, id)

	_, err = mgr.Load(ctx, value)
	assert.ErrorIs(t, err, ErrNotFound)

	id, err = mgr.Destroy(ctx, "garbage")
	assert.NoError(t, err)
	assert.Empty(t, id)
}
