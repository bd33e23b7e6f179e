package deskguard

import (
	"context"
)

// SlugNamespace identifies a slug uniqueness domain.
type SlugNamespace string

const (
	NamespaceArticles   SlugNamespace = "articles"
	NamespaceCategories SlugNamespace = "categories"
	NamespaceTags       SlugNamespace = "tags"
)

// Store is the persistence contract the engine relies on.
//
// Implementations must provide atomic read-modify-write through WithinTx,
// enforce slug uniqueness per namespace (reporting ErrSlugTaken), and report
// absent rows with ErrNotFound. The engine never retries storage failures.
type Store interface {
	// WithinTx runs fn as one atomic unit. The Store passed to fn must be used
	// for every operation inside the unit. Returning an error rolls back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	ArticleStore
	TaxonomyStore
	AuditStore
}

// ArticleStore covers article rows and their tag associations.
type ArticleStore interface {
	// GetArticle reads one article. With forUpdate the row is locked until the
	// surrounding transaction ends.
	GetArticle(ctx context.Context, id string, forUpdate bool) (*Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*Article, error)
	InsertArticle(ctx context.Context, a *Article) error
	UpdateArticle(ctx context.Context, a *Article) error
	DeleteArticle(ctx context.Context, id string) error
	ListArticles(ctx context.Context, pred Predicate, filter ArticleFilter) ([]*Article, error)
	IncrementViewCount(ctx context.Context, id string) error

	ArticleTagIDs(ctx context.Context, articleID string) ([]string, error)
	DeleteArticleTags(ctx context.Context, articleID string) error
	InsertArticleTags(ctx context.Context, articleID string, tagIDs []string) error

	// SlugsWithBase lists slugs in namespace equal to base or of the form
	// base-<n>, ignoring the row identified by excludeID.
	SlugsWithBase(ctx context.Context, ns SlugNamespace, base, excludeID string) ([]string, error)
}

// TaxonomyStore covers categories, tags and their denormalised counters.
type TaxonomyStore interface {
	CategoryExists(ctx context.Context, id string) (bool, error)
	TagExists(ctx context.Context, id string) (bool, error)
	GetCategory(ctx context.Context, id string) (*Category, error)
	GetTag(ctx context.Context, id string) (*Tag, error)
	InsertCategory(ctx context.Context, c *Category) error
	InsertTag(ctx context.Context, t *Tag) error
	UpdateCategoryParent(ctx context.Context, id string, parentID *string) error
	ListCategories(ctx context.Context) ([]*Category, error)
	ListTags(ctx context.Context) ([]*Tag, error)

	CountArticlesByCategory(ctx context.Context, categoryID string) (int, error)
	CountArticlesByTag(ctx context.Context, tagID string) (int, error)
	SetCategoryArticleCount(ctx context.Context, categoryID string, count int) error
	SetTagArticleCount(ctx context.Context, tagID string, count int) error
}

// AuditStore persists the article audit trail.
type AuditStore interface {
	InsertAudit(ctx context.Context, entry *ArticleAuditLog) error
	ListAudit(ctx context.Context, filter AuditLogFilter) ([]ArticleAuditLog, error)
}
