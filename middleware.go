package deskguard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Middleware provides net/http middleware for session resolution, route
// guards and action guards. It does not depend on any router.
type Middleware struct {
	policy       *Policy
	resolver     SessionResolver
	errorHandler func(http.ResponseWriter, *http.Request, error)
	logger       zerolog.Logger
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := deskguard.NewMiddleware(policy, deskguard.SessionResolverFunc(func(r *http.Request) (*deskguard.Session, error) {
//	    return sessions.Lookup(r.Context(), r.Header.Get("Authorization"))
//	}))
//	mux.Handle("/dashboard/", mw.InjectAuditContext()(mw.RequireRoute()(dashboard)))
func NewMiddleware(policy *Policy, resolver SessionResolver, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		policy:       policy,
		resolver:     resolver,
		errorHandler: WriteError,
		logger:       zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

// WithMiddlewareLogger sets the logger used for denied requests.
func WithMiddlewareLogger(l zerolog.Logger) MiddlewareOption {
	return func(m *Middleware) {
		m.logger = l
	}
}

// session returns the session already in the context, or resolves it.
func (m *Middleware) session(r *http.Request) (*Session, error) {
	if s := SessionFromContext(r.Context()); s != nil {
		return s, nil
	}
	if m.resolver == nil {
		return nil, nil
	}
	s, err := m.resolver.Resolve(r)
	if err != nil {
		return nil, internal("resolve session", err)
	}
	return s, nil
}

func (m *Middleware) deny(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.Debug().Err(err).
		Str("path", r.URL.Path).
		Str("request_id", GetRequestID(r.Context())).
		Int("status", HTTPStatus(err)).
		Msg("request denied")
	m.errorHandler(w, r, err)
}

// guard builds a middleware that checks the session with check and stores it
// in the request context.
func (m *Middleware) guard(check func(*Session, *http.Request) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := m.session(r)
			if err != nil {
				m.deny(w, r, err)
				return
			}
			if err := check(s, r); err != nil {
				m.deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// RequireRoute creates middleware that enforces route-level access for the
// request path. Missing sessions yield 401, insufficient roles 403.
//
// Example:
//
//	mux.Handle("/dashboard/settings/", mw.RequireRoute()(settingsHandler))
func (m *Middleware) RequireRoute() func(http.Handler) http.Handler {
	return m.guard(func(s *Session, r *http.Request) error {
		return m.policy.AuthorizeRoute(s, r.URL.Path)
	})
}

// RequireAction creates middleware that requires the session to be allowed
// the given action.
//
// Example:
//
//	mux.Handle("POST /api/articles", mw.RequireAction(deskguard.ActionArticleCreate)(createHandler))
func (m *Middleware) RequireAction(action string) func(http.Handler) http.Handler {
	return m.guard(func(s *Session, _ *http.Request) error {
		return m.policy.Authorize(s, action)
	})
}

// LoadSession creates middleware that resolves the session into the context
// without enforcing anything. Anonymous requests pass through.
func (m *Middleware) LoadSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := m.session(r)
			if err != nil || s == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context for the audit log. A request
// without X-Request-ID gets a generated one, echoed in the response.
//
// Example:
//
//	handler = mw.InjectAuditContext()(handler)
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = newID()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := WithAuditContext(r.Context(), AuditContext{
				IPAddress: ip,
				UserAgent: r.UserAgent(),
				RequestID: requestID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ErrorBody is the JSON shape written by WriteError.
type ErrorBody struct {
	Error         string            `json:"error"`
	Message       string            `json:"message,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	RequiredRoles []string          `json:"requiredRoles,omitempty"`
}

// WriteError writes err as JSON with the status from HTTPStatus.
// Internal errors never expose their cause.
func WriteError(w http.ResponseWriter, _ *http.Request, err error) {
	status := HTTPStatus(err)
	body := ErrorBody{Error: http.StatusText(status)}

	var e *Error
	if status != http.StatusInternalServerError && errors.As(err, &e) {
		body.Message = e.Message
		body.Fields = e.Fields
		if !e.RequiredRoles.IsEmpty() {
			body.RequiredRoles = e.RequiredRoles.Strings()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
