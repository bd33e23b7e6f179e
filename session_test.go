package deskguard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSessionCheck tests session validation
func TestSessionCheck(t *testing.T) {
	var nilSession *Session
	assert.ErrorIs(t, nilSession.Check(), ErrUnauthenticated)
	assert.ErrorIs(t, (&Session{Roles: NewRoleSet(RoleAdmin), IsActive: true}).Check(), ErrUnauthenticated)
	assert.ErrorIs(t, (&Session{ActorID: "u", IsActive: true}).Check(), ErrUnauthenticated)
	assert.ErrorIs(t, (&Session{ActorID: "u", Roles: NewRoleSet(RoleAdmin)}).Check(), ErrAccountDisabled)
	assert.NoError(t, NewSession("u", RoleAdmin).Check())
}

// TestNewSession tests defaults
func TestNewSession(t *testing.T) {
	s := NewSession("u")
	assert.True(t, s.IsActive)
	assert.Equal(t, NewRoleSet(RoleAgent), s.Roles)

	s = NewSession("u", RoleAgent, RoleAdmin)
	assert.Equal(t, RoleAdmin, s.DisplayRole())

	var nilSession *Session
	assert.Equal(t, Role(""), nilSession.DisplayRole())
}

// TestSessionResolverFunc tests the adapter
func TestSessionResolverFunc(t *testing.T) {
	resolver := SessionResolverFunc(func(r *http.Request) (*Session, error) {
		return NewSession(r.Header.Get("X-User"), RoleSupervisor), nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User", "u-9")

	s, err := resolver.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "u-9", s.ActorID)
}
