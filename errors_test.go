package deskguard

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrorString tests error formatting
func TestErrorString(t *testing.T) {
	e := NewError(ErrValidation, "invalid article").
		WithField("title", "is required").
		WithField("content", "is required")
	assert.Equal(t, "deskguard: validation failed: invalid article (content: is required; title: is required)", e.Error())

	wrapped := NewError(ErrInternal, "insert article").WithCause(errors.New("connection reset"))
	assert.Equal(t, "deskguard: internal error: insert article: connection reset", wrapped.Error())
}

// TestErrorIs tests sentinel matching through wrapping
func TestErrorIs(t *testing.T) {
	cause := errors.New("boom")
	e := NewError(ErrConflict, "x").WithCause(cause)

	assert.ErrorIs(t, e, ErrConflict)
	assert.ErrorIs(t, e, cause)
	assert.NotErrorIs(t, e, ErrNotFound)

	outer := fmt.Errorf("handler: %w", e)
	assert.True(t, IsConflict(outer))

	var target *Error
	assert.True(t, errors.As(outer, &target))
	assert.Equal(t, "x", target.Message)
}

// TestHTTPStatus tests the status mapping
func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{NewError(ErrUnauthenticated, ""), http.StatusUnauthorized},
		{NewError(ErrAccountDisabled, ""), http.StatusForbidden},
		{forbidden("articles.status", RolesAtLeast(RoleAdmin), "u"), http.StatusForbidden},
		{notFound("article", "1"), http.StatusNotFound},
		{NewError(ErrValidation, ""), http.StatusBadRequest},
		{NewError(ErrConflict, ""), http.StatusConflict},
		{NewError(ErrSlugTaken, ""), http.StatusConflict},
		{NewError(ErrInternal, ""), http.StatusInternalServerError},
		{errors.New("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

// TestInternal tests storage error wrapping
func TestInternal(t *testing.T) {
	assert.NoError(t, internal("op", nil))

	nf := notFound("article", "1")
	assert.Same(t, nf, internal("op", nf))

	assert.Equal(t, ErrConflict, internal("op", ErrConflict))

	err := internal("insert article", errors.New("disk full"))
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "disk full")
}

// TestErrorHelpers tests the Is* helpers
func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsForbidden(forbidden("x.y", RoleSet{}, "")))
	assert.True(t, IsNotFound(notFound("tag", "t")))
	assert.True(t, IsValidation(NewError(ErrValidation, "")))
	assert.False(t, IsValidation(NewError(ErrConflict, "")))
}
