package deskguard

import (
	"net/http"
)

// Session is the per-request view of the acting user.
type Session struct {
	ActorID  string
	Roles    RoleSet
	IsActive bool
}

// NewSession creates an active session. An empty role list falls back to the
// lowest role.
func NewSession(actorID string, roles ...Role) *Session {
	return &Session{
		ActorID:  actorID,
		Roles:    ForSession(roles...),
		IsActive: true,
	}
}

// Check validates the session before any policy decision is made.
// A missing session yields ErrUnauthenticated and an inactive account yields
// ErrAccountDisabled.
func (s *Session) Check() error {
	if s == nil || s.ActorID == "" || s.Roles.IsEmpty() {
		return NewError(ErrUnauthenticated, "no active session")
	}
	if !s.IsActive {
		return NewError(ErrAccountDisabled, "account is disabled").WithActor(s.ActorID)
	}
	return nil
}

// DisplayRole returns the highest role held, for labels only.
func (s *Session) DisplayRole() Role {
	if s == nil {
		return ""
	}
	r, _ := HighestRole(s.Roles)
	return r
}

// SessionResolver resolves the session of an inbound request.
// Implementations return a nil session and nil error for anonymous requests.
type SessionResolver interface {
	Resolve(r *http.Request) (*Session, error)
}

// SessionResolverFunc adapts a function to SessionResolver.
type SessionResolverFunc func(r *http.Request) (*Session, error)

// Resolve implements SessionResolver.
func (f SessionResolverFunc) Resolve(r *http.Request) (*Session, error) {
	return f(r)
}
