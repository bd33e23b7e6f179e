package deskguard

import "time"

// ArticleFilter narrows article listings. Visibility is applied on top of it.
type ArticleFilter struct {
	// Filter by status; nil means every status the actor may see
	Status *ArticleStatus

	// Filter by category
	CategoryID string

	// Filter by tag
	TagID string

	// Filter by author
	AuthorID string

	// Pagination
	Limit  int
	Offset int
}

// NewArticleFilter creates a new ArticleFilter with default values.
func NewArticleFilter() ArticleFilter {
	return ArticleFilter{
		Limit: 50,
	}
}

// WithStatus sets the status filter.
func (f ArticleFilter) WithStatus(status ArticleStatus) ArticleFilter {
	f.Status = &status
	return f
}

// WithCategory sets the category filter.
func (f ArticleFilter) WithCategory(categoryID string) ArticleFilter {
	f.CategoryID = categoryID
	return f
}

// WithTag sets the tag filter.
func (f ArticleFilter) WithTag(tagID string) ArticleFilter {
	f.TagID = tagID
	return f
}

// WithAuthor sets the author filter.
func (f ArticleFilter) WithAuthor(authorID string) ArticleFilter {
	f.AuthorID = authorID
	return f
}

// WithPagination sets both limit and offset.
func (f ArticleFilter) WithPagination(limit, offset int) ArticleFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

func (f ArticleFilter) limit() int {
	if f.Limit <= 0 {
		return 50
	}
	return f.Limit
}

// AuditLogFilter provides options for filtering audit log queries.
type AuditLogFilter struct {
	ActorID   string
	ArticleID string
	Action    string

	Since time.Time
	Until time.Time

	Limit  int
	Offset int
}

// NewAuditLogFilter creates a new AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{
		Limit: 100,
	}
}

// WithActor sets the actor ID filter.
func (f AuditLogFilter) WithActor(actorID string) AuditLogFilter {
	f.ActorID = actorID
	return f
}

// WithArticle sets the article ID filter.
func (f AuditLogFilter) WithArticle(articleID string) AuditLogFilter {
	f.ArticleID = articleID
	return f
}

// WithAction sets the action filter.
func (f AuditLogFilter) WithAction(action AuditAction) AuditLogFilter {
	f.Action = string(action)
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

func (f AuditLogFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

func (f AuditLogFilter) matches(l *ArticleAuditLog) bool {
	if f.ActorID != "" && l.ActorID != f.ActorID {
		return false
	}
	if f.ArticleID != "" && l.ArticleID != f.ArticleID {
		return false
	}
	if f.Action != "" && l.Action != f.Action {
		return false
	}
	if !f.Since.IsZero() && l.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && l.Timestamp.After(f.Until) {
		return false
	}
	return true
}
