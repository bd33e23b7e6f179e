package deskguard

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Sentinel errors for deskguard operations.
var (
	// ErrUnauthenticated is returned when there is no session.
	ErrUnauthenticated = errors.New("deskguard: unauthenticated")

	// ErrAccountDisabled is returned when the session belongs to an inactive account.
	ErrAccountDisabled = errors.New("deskguard: account disabled")

	// ErrForbidden is returned when an authenticated actor lacks the required roles.
	ErrForbidden = errors.New("deskguard: forbidden")

	// ErrNotFound is returned when an entity is absent or not visible to the actor.
	// The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("deskguard: not found")

	// ErrValidation is returned when a field constraint is violated.
	ErrValidation = errors.New("deskguard: validation failed")

	// ErrConflict is returned on uniqueness violations and circular parent references.
	ErrConflict = errors.New("deskguard: conflict")

	// ErrSlugTaken is returned by a Store when a slug uniqueness constraint fires.
	// The service retries with a freshly derived slug before giving up with ErrConflict.
	ErrSlugTaken = errors.New("deskguard: slug taken")

	// ErrInternal is returned when the backing store fails.
	ErrInternal = errors.New("deskguard: internal error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err           error             // Underlying sentinel error
	Message       string            // Additional context
	Fields        map[string]string // Per-field validation detail
	RequiredRoles RoleSet           // Roles that would have satisfied the check
	Entity        string            // Entity kind involved (if applicable)
	EntityID      string            // Entity ID involved (if applicable)
	ActorID       string            // Actor who triggered the error (if applicable)
	cause         error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + e.Fields[k]
		}
		msg = fmt.Sprintf("%s (%s)", msg, strings.Join(parts, "; "))
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the sentinel and, when present, the underlying cause.
func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithEntity adds entity information to the error.
func (e *Error) WithEntity(kind, id string) *Error {
	e.Entity = kind
	e.EntityID = id
	return e
}

// WithField adds a per-field validation message.
func (e *Error) WithField(field, message string) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
	return e
}

// WithRequiredRoles records the minimum roles for a forbidden operation.
func (e *Error) WithRequiredRoles(roles RoleSet) *Error {
	e.RequiredRoles = roles
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// WithCause attaches the underlying error, typically a storage failure.
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// forbidden builds the ErrForbidden value naming the minimum roles.
func forbidden(action string, required RoleSet, actorID string) *Error {
	return NewError(ErrForbidden, fmt.Sprintf("%s requires one of [%s]", action, required)).
		WithRequiredRoles(required).
		WithActor(actorID)
}

// notFound builds the ErrNotFound value for an entity.
func notFound(kind, id string) *Error {
	return NewError(ErrNotFound, kind+" not found").WithEntity(kind, id)
}

// internal wraps a storage failure. Errors that already carry a deskguard
// sentinel are passed through untouched.
func internal(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	for _, known := range []error{ErrNotFound, ErrConflict, ErrSlugTaken, ErrValidation, ErrForbidden} {
		if errors.Is(err, known) {
			return err
		}
	}
	return NewError(ErrInternal, op).WithCause(err)
}

// HTTPStatus maps an error to the HTTP status code the transport layer should return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccountDisabled), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict), errors.Is(err, ErrSlugTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsForbidden checks if an error is an authorization error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflict checks if an error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
