package deskguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoleRank tests the hierarchy order
func TestRoleRank(t *testing.T) {
	assert.Less(t, RoleAgent.Rank(), RoleSupervisor.Rank())
	assert.Less(t, RoleSupervisor.Rank(), RoleAdmin.Rank())
	assert.Less(t, RoleAdmin.Rank(), RoleSuperAdmin.Rank())
	assert.Equal(t, -1, Role("owner").Rank())
	assert.False(t, Role("owner").Valid())
}

// TestParseRole tests role name parsing
func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Super_Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleSuperAdmin, r)

	_, err = ParseRole("owner")
	assert.ErrorIs(t, err, ErrValidation)
}

// TestRoleSet tests set construction and queries
func TestRoleSet(t *testing.T) {
	t.Run("Duplicates collapse", func(t *testing.T) {
		s := NewRoleSet(RoleAdmin, RoleAdmin, RoleAgent)
		assert.Equal(t, 2, s.Len())
		assert.True(t, s.Has(RoleAdmin))
		assert.True(t, s.Has(RoleAgent))
		assert.False(t, s.Has(RoleSupervisor))
	})

	t.Run("Roles are listed in hierarchy order", func(t *testing.T) {
		s := NewRoleSet(RoleSuperAdmin, RoleAgent, RoleAdmin)
		assert.Equal(t, []Role{RoleAgent, RoleAdmin, RoleSuperAdmin}, s.Roles())
		assert.Equal(t, "agent,admin,super_admin", s.String())
	})

	t.Run("Unknown roles are ignored", func(t *testing.T) {
		s := NewRoleSet(Role("owner"))
		assert.True(t, s.IsEmpty())
	})

	t.Run("Zero value is empty", func(t *testing.T) {
		var s RoleSet
		assert.True(t, s.IsEmpty())
		assert.Equal(t, 0, s.Len())
	})

	t.Run("With does not mutate the receiver", func(t *testing.T) {
		s := NewRoleSet(RoleAgent)
		s2 := s.With(RoleAdmin)
		assert.False(t, s.Has(RoleAdmin))
		assert.True(t, s2.Has(RoleAdmin))
	})
}

// TestForSession tests the non-empty fallback for active sessions
func TestForSession(t *testing.T) {
	assert.Equal(t, NewRoleSet(RoleAgent), ForSession())
	assert.Equal(t, NewRoleSet(RoleAdmin), ForSession(RoleAdmin))
}

// TestParseRoleSet tests parsing role names into a set
func TestParseRoleSet(t *testing.T) {
	s, err := ParseRoleSet("agent", "ADMIN", "agent", "")
	require.NoError(t, err)
	assert.Equal(t, NewRoleSet(RoleAgent, RoleAdmin), s)

	_, err = ParseRoleSet("agent", "root")
	assert.ErrorIs(t, err, ErrValidation)
}

// TestRolesAtLeast tests the "role and above" helper
func TestRolesAtLeast(t *testing.T) {
	assert.Equal(t, NewRoleSet(RoleSupervisor, RoleAdmin, RoleSuperAdmin), RolesAtLeast(RoleSupervisor))
	assert.Equal(t, NewRoleSet(RoleSuperAdmin), RolesAtLeast(RoleSuperAdmin))
	assert.Equal(t, 4, RolesAtLeast(RoleAgent).Len())
	assert.True(t, RolesAtLeast(Role("owner")).IsEmpty())
}
