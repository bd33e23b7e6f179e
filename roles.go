package deskguard

import (
	"fmt"
	"strings"
)

// Role is a named privilege tier. Roles form a total order that is used for
// display purposes only; authorization is always computed over a RoleSet.
type Role string

const (
	RoleAgent      Role = "agent"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// hierarchy lists every role from lowest to highest.
var hierarchy = []Role{RoleAgent, RoleSupervisor, RoleAdmin, RoleSuperAdmin}

// AllRoles returns every known role, lowest first.
func AllRoles() []Role {
	out := make([]Role, len(hierarchy))
	copy(out, hierarchy)
	return out
}

// Rank returns the position of the role in the hierarchy, or -1 if unknown.
func (r Role) Rank() int {
	for i, h := range hierarchy {
		if h == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.Rank() >= 0
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// ParseRole converts a role name into a Role. Matching is case-insensitive.
func ParseRole(name string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(name)))
	if !r.Valid() {
		return "", NewError(ErrValidation, fmt.Sprintf("unknown role %q", name))
	}
	return r, nil
}

// RoleSet is the unordered set of roles held by one actor.
// The zero value is the empty set.
type RoleSet struct {
	bits uint8
}

// NewRoleSet builds a RoleSet from roles. Unknown roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if rank := r.Rank(); rank >= 0 {
			s.bits |= 1 << uint(rank)
		}
	}
	return s
}

// ForSession builds the RoleSet of an active session. An active session is
// never role-less, so an empty input falls back to the lowest role.
func ForSession(roles ...Role) RoleSet {
	s := NewRoleSet(roles...)
	if s.IsEmpty() {
		return NewRoleSet(RoleAgent)
	}
	return s
}

// ParseRoleSet parses role names, rejecting unknown ones.
func ParseRoleSet(names ...string) (RoleSet, error) {
	var s RoleSet
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		r, err := ParseRole(n)
		if err != nil {
			return RoleSet{}, err
		}
		s = s.With(r)
	}
	return s, nil
}

// RolesAtLeast returns the set containing r and every role above it.
func RolesAtLeast(r Role) RoleSet {
	rank := r.Rank()
	if rank < 0 {
		return RoleSet{}
	}
	var s RoleSet
	for i := rank; i < len(hierarchy); i++ {
		s.bits |= 1 << uint(i)
	}
	return s
}

// With returns a copy of the set including r.
func (s RoleSet) With(r Role) RoleSet {
	if rank := r.Rank(); rank >= 0 {
		s.bits |= 1 << uint(rank)
	}
	return s
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	rank := r.Rank()
	return rank >= 0 && s.bits&(1<<uint(rank)) != 0
}

// IsEmpty reports whether the set holds no roles.
func (s RoleSet) IsEmpty() bool {
	return s.bits == 0
}

// Len returns the number of roles in the set.
func (s RoleSet) Len() int {
	n := 0
	for i := range hierarchy {
		if s.bits&(1<<uint(i)) != 0 {
			n++
		}
	}
	return n
}

// Roles returns the members in hierarchy order, lowest first.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(hierarchy))
	for i, r := range hierarchy {
		if s.bits&(1<<uint(i)) != 0 {
			out = append(out, r)
		}
	}
	return out
}

// Strings returns the role names in hierarchy order.
func (s RoleSet) Strings() []string {
	roles := s.Roles()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// String returns the roles joined by commas.
func (s RoleSet) String() string {
	return strings.Join(s.Strings(), ",")
}
