package deskguard

// HasAnyRole reports whether the actor holds at least one of the required roles.
// This is the primitive behind every "is this actor allowed" check.
//
// Example:
//
//	if deskguard.HasAnyRole(session.Roles, deskguard.RolesAtLeast(deskguard.RoleAdmin)) {
//	    // actor may change article status
//	}
func HasAnyRole(actor, required RoleSet) bool {
	return actor.bits&required.bits != 0
}

// HasAllRoles reports whether every required role is held by the actor.
// An empty requirement is vacuously satisfied.
func HasAllRoles(actor, required RoleSet) bool {
	return actor.bits&required.bits == required.bits
}

// HighestRole returns the maximal role present in the set, walking the
// hierarchy top-down. It is meant for labels and must not gate access.
func HighestRole(actor RoleSet) (Role, bool) {
	for i := len(hierarchy) - 1; i >= 0; i-- {
		if actor.Has(hierarchy[i]) {
			return hierarchy[i], true
		}
	}
	return "", false
}

// Policy combines a Registry with session checks.
// It is safe for concurrent use once the registry is frozen.
type Policy struct {
	registry *Registry
}

// NewPolicy creates a Policy backed by registry.
func NewPolicy(registry *Registry) *Policy {
	registry.Freeze()
	return &Policy{registry: registry}
}

// Registry returns the underlying route and action table.
func (p *Policy) Registry() *Registry {
	return p.registry
}

// Authorize checks the session and then the action's allowed roles.
// Session failures take precedence over role checks. Actions missing from
// the registry are denied to every role.
func (p *Policy) Authorize(s *Session, action string) error {
	if err := s.Check(); err != nil {
		return err
	}
	required := p.registry.RequiredFor(action)
	if required.IsEmpty() {
		return NewError(ErrForbidden, action+" is not granted to any role").WithActor(s.ActorID)
	}
	if !HasAnyRole(s.Roles, required) {
		return forbidden(action, required, s.ActorID)
	}
	return nil
}

// AuthorizeRoute checks the session and then route-level access for path.
func (p *Policy) AuthorizeRoute(s *Session, path string) error {
	if err := s.Check(); err != nil {
		return err
	}
	if !p.registry.CanAccessRoute(s.Roles, path) {
		required, _ := p.registry.routeRoles(path)
		return forbidden(path, required, s.ActorID)
	}
	return nil
}

// requireRoles checks an ad-hoc role requirement against an already validated session.
func requireRoles(s *Session, what string, required RoleSet) error {
	if !HasAnyRole(s.Roles, required) {
		return forbidden(what, required, s.ActorID)
	}
	return nil
}
