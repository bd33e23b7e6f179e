package deskguard

import (
	"github.com/uptrace/bun"
)

// privilegedReaders may see articles in every status.
var privilegedReaders = NewRoleSet(RoleSupervisor, RoleAdmin, RoleSuperAdmin)

// Predicate is the visibility filter derived for one actor.
// It is evaluated in memory by Matches and in SQL by Apply; both must agree.
type Predicate struct {
	privileged bool
	actorID    string
	status     *ArticleStatus
}

// VisiblePredicate derives the articles an actor may read.
//
// Actors holding SUPERVISOR, ADMIN or SUPER_ADMIN see every status, optionally
// narrowed by statusFilter. Everyone else sees published articles plus their
// own drafts. Archived articles are never visible to them, including their own.
func VisiblePredicate(actor RoleSet, actorID string, statusFilter *ArticleStatus) Predicate {
	p := Predicate{
		privileged: HasAnyRole(actor, privilegedReaders),
		actorID:    actorID,
	}
	if statusFilter != nil {
		s := *statusFilter
		p.status = &s
	}
	return p
}

// PredicateFor derives the predicate for a session.
func PredicateFor(s *Session, statusFilter *ArticleStatus) Predicate {
	return VisiblePredicate(s.Roles, s.ActorID, statusFilter)
}

// Privileged reports whether the predicate admits every status.
func (p Predicate) Privileged() bool {
	return p.privileged
}

// MatchesNone reports whether no article can satisfy the predicate.
func (p Predicate) MatchesNone() bool {
	return !p.privileged && p.status != nil && *p.status == StatusArchived
}

// Matches reports whether the article is visible.
func (p Predicate) Matches(a *Article) bool {
	if a == nil {
		return false
	}
	if p.status != nil && a.Status != *p.status {
		return false
	}
	if p.privileged {
		return true
	}
	switch a.Status {
	case StatusPublished:
		return true
	case StatusDraft:
		return p.actorID != "" && a.AuthorID == p.actorID
	default:
		return false
	}
}

// Apply adds the predicate to a query over the articles table (alias "a").
func (p Predicate) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if p.privileged {
		if p.status != nil {
			q = q.Where("a.status = ?", *p.status)
		}
		return q
	}

	if p.status == nil {
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("a.status = ?", StatusPublished).
				WhereOr("a.status = ? AND a.author_id = ?", StatusDraft, p.actorID)
		})
	}

	switch *p.status {
	case StatusPublished:
		return q.Where("a.status = ?", StatusPublished)
	case StatusDraft:
		return q.Where("a.status = ? AND a.author_id = ?", StatusDraft, p.actorID)
	default:
		return q.Where("FALSE")
	}
}
