package deskguard

import (
	"time"

	"github.com/uptrace/bun"
)

// ArticleStatus is the lifecycle state of a knowledge-base article.
type ArticleStatus string

const (
	StatusDraft     ArticleStatus = "draft"
	StatusPublished ArticleStatus = "published"
	StatusArchived  ArticleStatus = "archived"
)

// Valid reports whether s is a known status.
func (s ArticleStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// ParseArticleStatus converts a status name into an ArticleStatus.
func ParseArticleStatus(name string) (ArticleStatus, error) {
	s := ArticleStatus(name)
	if !s.Valid() {
		return "", NewError(ErrValidation, "unknown status").WithField("status", name)
	}
	return s, nil
}

// Article is a knowledge-base article.
type Article struct {
	bun.BaseModel `bun:"table:articles,alias:a"`

	ID          string        `bun:"id,pk,type:uuid"`
	Title       string        `bun:"title,notnull"`
	Slug        string        `bun:"slug,notnull,unique"`
	Content     string        `bun:"content,notnull"`
	Excerpt     *string       `bun:"excerpt"`
	Status      ArticleStatus `bun:"status,notnull,default:'draft'"`
	CategoryID  *string       `bun:"category_id,type:uuid"`
	AuthorID    string        `bun:"author_id,notnull"`
	ViewCount   int64         `bun:"view_count,notnull,default:0"`
	PublishedAt *time.Time    `bun:"published_at"`
	CreatedAt   time.Time     `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time     `bun:"updated_at,notnull,default:current_timestamp"`

	// Populated by the service from article_tags; not a column.
	TagIDs []string `bun:"-"`
}

// Clone returns a deep copy of the article.
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	c := *a
	c.Excerpt = cloneString(a.Excerpt)
	c.CategoryID = cloneString(a.CategoryID)
	if a.PublishedAt != nil {
		t := *a.PublishedAt
		c.PublishedAt = &t
	}
	if a.TagIDs != nil {
		c.TagIDs = append([]string(nil), a.TagIDs...)
	}
	return &c
}

// Category groups articles in a tree. ArticleCount is maintained by the reconciler.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID           string    `bun:"id,pk,type:uuid"`
	Name         string    `bun:"name,notnull,unique"`
	Slug         string    `bun:"slug,notnull,unique"`
	Description  string    `bun:"description"`
	ParentID     *string   `bun:"parent_id,type:uuid"`
	ArticleCount int       `bun:"article_count,notnull,default:0"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Tag labels articles. ArticleCount is maintained by the reconciler.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:t"`

	ID           string    `bun:"id,pk,type:uuid"`
	Name         string    `bun:"name,notnull,unique"`
	Slug         string    `bun:"slug,notnull,unique"`
	ArticleCount int       `bun:"article_count,notnull,default:0"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// ArticleTag associates an article with a tag. Rows live and die with the
// owning article mutation.
type ArticleTag struct {
	bun.BaseModel `bun:"table:article_tags,alias:at"`

	ArticleID string `bun:"article_id,pk,type:uuid"`
	TagID     string `bun:"tag_id,pk,type:uuid"`
}

// ArticleAuditLog records every article mutation for compliance and debugging.
type ArticleAuditLog struct {
	bun.BaseModel `bun:"table:article_audit_log,alias:aal"`

	ID        string    `bun:"id,pk,type:uuid"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	ActorID    string   `bun:"actor_id,notnull"`
	ActorRoles []string `bun:"actor_roles,array"`

	Action    string `bun:"action,notnull"`
	ArticleID string `bun:"article_id,notnull"`

	PreviousStatus string `bun:"previous_status"`
	NewStatus      string `bun:"new_status"`

	// Request metadata for forensics
	IPAddress string `bun:"ip_address"`
	UserAgent string `bun:"user_agent"`
	RequestID string `bun:"request_id"`

	Metadata map[string]any `bun:"metadata,type:jsonb"`
}

// AuditAction names an article mutation in the audit log.
type AuditAction string

const (
	AuditActionCreated    AuditAction = "created"
	AuditActionUpdated    AuditAction = "updated"
	AuditActionTransition AuditAction = "transitioned"
	AuditActionArchived   AuditAction = "archived"
	AuditActionDeleted    AuditAction = "deleted"
)

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	Session        *Session
	Action         AuditAction
	ArticleID      string
	PreviousStatus ArticleStatus
	NewStatus      ArticleStatus
	Metadata       map[string]any
}

// ToModel converts an AuditEntry to an ArticleAuditLog model.
func (e *AuditEntry) ToModel(ac AuditContext, now time.Time) *ArticleAuditLog {
	return &ArticleAuditLog{
		ID:             newID(),
		Timestamp:      now,
		ActorID:        e.Session.ActorID,
		ActorRoles:     e.Session.Roles.Strings(),
		Action:         string(e.Action),
		ArticleID:      e.ArticleID,
		PreviousStatus: string(e.PreviousStatus),
		NewStatus:      string(e.NewStatus),
		IPAddress:      ac.IPAddress,
		UserAgent:      ac.UserAgent,
		RequestID:      ac.RequestID,
		Metadata:       e.Metadata,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
