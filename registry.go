package deskguard

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry holds the static route and action tables.
// It is built at startup and treated as immutable once frozen.
type Registry struct {
	mu      sync.RWMutex
	frozen  bool
	routes  map[string]RoleSet
	actions map[string]RoleSet
}

// RouteDefinition configures the roles allowed on one route path.
type RouteDefinition struct {
	path     string
	registry *Registry
}

// ActionDefinition configures the roles allowed to perform one action.
type ActionDefinition struct {
	name     string
	registry *Registry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		routes:  make(map[string]RoleSet),
		actions: make(map[string]RoleSet),
	}
}

// Route starts defining a route path. The path is normalised before storage.
//
// Example:
//
//	registry.Route("/dashboard/settings").Allow(deskguard.RoleAdmin, deskguard.RoleSuperAdmin).
//	    Route("/dashboard/users").AllowAtLeast(deskguard.RoleAdmin)
func (r *Registry) Route(path string) *RouteDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mustBeOpen()

	p := normalizeRoutePath(path)
	if _, ok := r.routes[p]; !ok {
		r.routes[p] = RoleSet{}
	}
	return &RouteDefinition{path: p, registry: r}
}

// Action starts defining an action such as "articles.publish".
func (r *Registry) Action(name string) *ActionDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mustBeOpen()

	if _, ok := r.actions[name]; !ok {
		r.actions[name] = RoleSet{}
	}
	return &ActionDefinition{name: name, registry: r}
}

func (r *Registry) mustBeOpen() {
	if r.frozen {
		panic("deskguard: registry modified after freeze")
	}
}

// Freeze marks the registry immutable. Further definitions panic.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Validate checks that every route and action has a non-empty allowed set
// and that action names are well formed.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for p, roles := range r.routes {
		if roles.IsEmpty() {
			return NewError(ErrValidation, fmt.Sprintf("route %q has no allowed roles", p))
		}
	}
	for name, roles := range r.actions {
		if err := ValidateAction(name); err != nil {
			return err
		}
		if roles.IsEmpty() {
			return NewError(ErrValidation, fmt.Sprintf("action %q has no allowed roles", name))
		}
	}
	return nil
}

// Allow adds roles to the route's allowed set.
func (d *RouteDefinition) Allow(roles ...Role) *RouteDefinition {
	d.registry.mu.Lock()
	defer d.registry.mu.Unlock()
	d.registry.mustBeOpen()

	set := d.registry.routes[d.path]
	for _, role := range roles {
		set = set.With(role)
	}
	d.registry.routes[d.path] = set
	return d
}

// AllowAtLeast allows role and every role above it.
func (d *RouteDefinition) AllowAtLeast(role Role) *RouteDefinition {
	return d.Allow(RolesAtLeast(role).Roles()...)
}

// Route continues defining routes on the registry (fluent API).
func (d *RouteDefinition) Route(path string) *RouteDefinition {
	return d.registry.Route(path)
}

// Action continues with an action definition (fluent API).
func (d *RouteDefinition) Action(name string) *ActionDefinition {
	return d.registry.Action(name)
}

// Allow adds roles to the action's allowed set.
func (d *ActionDefinition) Allow(roles ...Role) *ActionDefinition {
	d.registry.mu.Lock()
	defer d.registry.mu.Unlock()
	d.registry.mustBeOpen()

	set := d.registry.actions[d.name]
	for _, role := range roles {
		set = set.With(role)
	}
	d.registry.actions[d.name] = set
	return d
}

// AllowAtLeast allows role and every role above it.
func (d *ActionDefinition) AllowAtLeast(role Role) *ActionDefinition {
	return d.Allow(RolesAtLeast(role).Roles()...)
}

// Action continues defining actions on the registry (fluent API).
func (d *ActionDefinition) Action(name string) *ActionDefinition {
	return d.registry.Action(name)
}

// Route continues with a route definition (fluent API).
func (d *ActionDefinition) Route(path string) *RouteDefinition {
	return d.registry.Route(path)
}

// RequiredFor returns the roles allowed to perform action.
// An unregistered action yields the empty set.
func (r *Registry) RequiredFor(action string) RoleSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[action]
}

// Can reports whether actor may perform a registered action.
// Unregistered actions are denied.
func (r *Registry) Can(actor RoleSet, action string) bool {
	required := r.RequiredFor(action)
	return !required.IsEmpty() && HasAnyRole(actor, required)
}

// CanAccessRoute resolves route-level access for path.
//
// The exact path is looked up first; on a miss the last segment is stripped
// repeatedly and the closest registered ancestor decides. When no ancestor is
// registered, any actor holding at least one role is allowed. Routes must be
// registered explicitly to be restricted.
func (r *Registry) CanAccessRoute(actor RoleSet, path string) bool {
	if required, ok := r.routeRoles(path); ok {
		return HasAnyRole(actor, required)
	}
	return !actor.IsEmpty()
}

// routeRoles returns the allowed roles of the closest registered ancestor of path.
func (r *Registry) routeRoles(path string) (RoleSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, candidate := range routeAncestors(normalizeRoutePath(path)) {
		if roles, ok := r.routes[candidate]; ok {
			return roles, true
		}
	}
	return RoleSet{}, false
}

// Routes returns the registered route paths, sorted.
func (r *Registry) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.routes))
	for p := range r.routes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Actions returns the registered action names, sorted.
func (r *Registry) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.actions))
	for a := range r.actions {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// registryFile is the YAML representation of a registry.
type registryFile struct {
	Routes  map[string][]string `yaml:"routes"`
	Actions map[string][]string `yaml:"actions"`
}

// LoadRegistry reads a registry from YAML:
//
//	routes:
//	  /dashboard/settings: [admin, super_admin]
//	actions:
//	  articles.publish: [admin, super_admin]
//
// The result is validated but not frozen.
func LoadRegistry(rd io.Reader) (*Registry, error) {
	var file registryFile
	if err := yaml.NewDecoder(rd).Decode(&file); err != nil && err != io.EOF {
		return nil, NewError(ErrValidation, "invalid policy file").WithCause(err)
	}

	reg := NewRegistry()
	for p, names := range file.Routes {
		roles, err := ParseRoleSet(names...)
		if err != nil {
			return nil, err
		}
		reg.Route(p).Allow(roles.Roles()...)
	}
	for a, names := range file.Actions {
		roles, err := ParseRoleSet(names...)
		if err != nil {
			return nil, err
		}
		reg.Action(a).Allow(roles.Roles()...)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

// LoadRegistryFile reads a registry from a YAML file.
func LoadRegistryFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return LoadRegistry(f)
}

// MarshalYAML writes the registry in the format read by LoadRegistry.
func (r *Registry) MarshalYAML() (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file := registryFile{
		Routes:  make(map[string][]string, len(r.routes)),
		Actions: make(map[string][]string, len(r.actions)),
	}
	for p, roles := range r.routes {
		file.Routes[p] = roles.Strings()
	}
	for a, roles := range r.actions {
		file.Actions[a] = roles.Strings()
	}
	return file, nil
}

// Action identifiers used by the service.
const (
	ActionArticleRead       = "articles.read"
	ActionArticleCreate     = "articles.create"
	ActionArticleEdit       = "articles.edit"
	ActionArticleStatus     = "articles.status"
	ActionArticleArchive    = "articles.archive"
	ActionArticleDelete     = "articles.delete"
	ActionCategoryManage    = "categories.manage"
	ActionTagManage         = "tags.manage"
	ActionAuditRead         = "audit.read"
	ActionCountersReconcile = "counters.reconcile"
)

// DefaultRegistry returns the helpdesk route and action table.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Action(ActionArticleRead).AllowAtLeast(RoleAgent).
		Action(ActionArticleCreate).AllowAtLeast(RoleSupervisor).
		Action(ActionArticleEdit).AllowAtLeast(RoleSupervisor).
		Action(ActionArticleStatus).AllowAtLeast(RoleAdmin).
		Action(ActionArticleArchive).AllowAtLeast(RoleSupervisor).
		Action(ActionArticleDelete).AllowAtLeast(RoleAdmin).
		Action(ActionCategoryManage).AllowAtLeast(RoleSupervisor).
		Action(ActionTagManage).AllowAtLeast(RoleSupervisor).
		Action(ActionAuditRead).AllowAtLeast(RoleAdmin).
		Action(ActionCountersReconcile).AllowAtLeast(RoleAdmin)

	r.Route("/dashboard").AllowAtLeast(RoleAgent).
		Route("/dashboard/tickets").AllowAtLeast(RoleAgent).
		Route("/dashboard/knowledge-base").AllowAtLeast(RoleAgent).
		Route("/dashboard/knowledge-base/new").AllowAtLeast(RoleSupervisor).
		Route("/dashboard/knowledge-base/categories").AllowAtLeast(RoleSupervisor).
		Route("/dashboard/knowledge-base/tags").AllowAtLeast(RoleSupervisor).
		Route("/dashboard/reports").AllowAtLeast(RoleSupervisor).
		Route("/dashboard/users").AllowAtLeast(RoleAdmin).
		Route("/dashboard/settings").AllowAtLeast(RoleAdmin).
		Route("/dashboard/settings/roles").Allow(RoleSuperAdmin)

	r.Route("/api").AllowAtLeast(RoleAgent).
		Route("/api/articles").AllowAtLeast(RoleAgent).
		Route("/api/categories").AllowAtLeast(RoleAgent).
		Route("/api/tags").AllowAtLeast(RoleAgent).
		Route("/api/audit").AllowAtLeast(RoleAdmin).
		Route("/api/admin").AllowAtLeast(RoleAdmin).
		Route("/api/admin/reconcile").AllowAtLeast(RoleAdmin)

	return r
}
