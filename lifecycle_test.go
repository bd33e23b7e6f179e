package deskguard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransitionRequiredRoles tests the status transition table
func TestTransitionRequiredRoles(t *testing.T) {
	statuses := []ArticleStatus{StatusDraft, StatusPublished, StatusArchived}

	for _, from := range statuses {
		for _, to := range statuses {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				want := RolesAtLeast(RoleAdmin)
				if from == to {
					want = RolesAtLeast(RoleSupervisor)
				}
				assert.Equal(t, want, RequiredRolesForChange(from, to))
			})
		}
	}
}

// TestApplyTransition tests PublishedAt side effects
func TestApplyTransition(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	tests := []struct {
		name      string
		from      ArticleStatus
		published *time.Time
		to        ArticleStatus
		want      *time.Time
	}{
		{"Draft to published sets now", StatusDraft, nil, StatusPublished, &later},
		{"Published to archived keeps", StatusPublished, &first, StatusArchived, &first},
		{"Published to draft keeps", StatusPublished, &first, StatusDraft, &first},
		{"Archived to draft clears", StatusArchived, &first, StatusDraft, nil},
		{"Archived to published resets", StatusArchived, &first, StatusPublished, &later},
		{"Draft to archived leaves nil", StatusDraft, nil, StatusArchived, nil},
		{"No change is a no-op", StatusPublished, &first, StatusPublished, &first},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Article{Status: tt.from, PublishedAt: tt.published}
			ApplyTransition(a, tt.to, later)

			assert.Equal(t, tt.to, a.Status)
			if tt.want == nil {
				assert.Nil(t, a.PublishedAt)
				return
			}
			require.NotNil(t, a.PublishedAt)
			assert.True(t, tt.want.Equal(*a.PublishedAt))
		})
	}
}

// TestApplyTitle tests the slug regeneration trigger
func TestApplyTitle(t *testing.T) {
	a := &Article{Title: "Same"}
	assert.False(t, applyTitle(a, "Same"))
	assert.True(t, applyTitle(a, "Different"))
	assert.Equal(t, "Different", a.Title)
}

// TestParseArticleStatus tests status parsing
func TestParseArticleStatus(t *testing.T) {
	s, err := ParseArticleStatus("published")
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, s)

	_, err = ParseArticleStatus("PUBLISHED")
	assert.ErrorIs(t, err, ErrValidation)
}
