package deskguard

import (
	"time"
)

var (
	// editorRoles may create articles, edit content and soft delete.
	editorRoles = RolesAtLeast(RoleSupervisor)

	// publisherRoles may change article status and hard delete.
	publisherRoles = RolesAtLeast(RoleAdmin)
)

// Transition is a move of an article between two statuses.
// From == To describes an edit that leaves the status alone.
type Transition struct {
	From ArticleStatus
	To   ArticleStatus
}

// ChangesStatus reports whether the transition moves the article.
func (t Transition) ChangesStatus() bool {
	return t.From != t.To
}

// RequiredRoles returns the roles allowed to perform the transition.
//
// Edits that keep the status require SUPERVISOR+ whatever the current status.
// Every status change touches PUBLISHED or ARCHIVED on at least one side and
// requires ADMIN+. Soft delete is the one exception and is gated separately.
func (t Transition) RequiredRoles() RoleSet {
	if !t.ChangesStatus() {
		return editorRoles
	}
	return publisherRoles
}

// RequiredRolesForChange is a shorthand for Transition{from, to}.RequiredRoles().
func RequiredRolesForChange(from, to ArticleStatus) RoleSet {
	return Transition{From: from, To: to}.RequiredRoles()
}

// ApplyTransition moves a to status `to` and applies the timestamp side effects:
//
//   - entering PUBLISHED from another status sets PublishedAt to now
//   - ARCHIVED -> DRAFT clears PublishedAt
//   - PUBLISHED -> ARCHIVED keeps PublishedAt as the first publish time
//
// No other transition touches PublishedAt. The caller is responsible for
// authorization; ApplyTransition only mutates a.
func ApplyTransition(a *Article, to ArticleStatus, now time.Time) {
	from := a.Status
	if from == to {
		return
	}

	switch {
	case to == StatusPublished:
		t := now
		a.PublishedAt = &t
	case from == StatusArchived && to == StatusDraft:
		a.PublishedAt = nil
	}
	a.Status = to
}

// applyTitle sets the title and reports whether the slug must be regenerated.
// Re-saving an unchanged title keeps the slug.
func applyTitle(a *Article, title string) bool {
	if title == a.Title {
		return false
	}
	a.Title = title
	return true
}
