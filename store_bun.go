package deskguard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/fernandezvara/dbkit"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStore is the PostgreSQL Store, built on bun queries over dbkit.
// Uniqueness violations are classified with dbkit: slug constraints become
// ErrSlugTaken, other unique constraints ErrConflict.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	if _, err := db.Migrate(ctx, deskguard.Migrations()); err != nil {
//	    return err
//	}
//	svc := deskguard.NewService(deskguard.NewBunStore(db), policy)
type BunStore struct {
	db dbkit.IDB
}

// NewBunStore creates a store over db, normally a *dbkit.DBKit.
func NewBunStore(db dbkit.IDB) *BunStore {
	return &BunStore{db: db}
}

// WithinTx implements Store. Inside a transaction it opens a savepoint.
func (s *BunStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	run := func(tx *dbkit.Tx) error {
		return fn(ctx, &BunStore{db: tx})
	}
	switch db := s.db.(type) {
	case *dbkit.Tx:
		return db.Transaction(ctx, run)
	case *dbkit.DBKit:
		return db.Transaction(ctx, run)
	default:
		return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}
}

// classify maps dbkit errors onto the deskguard taxonomy.
func classify(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	switch {
	case dbkit.IsNotFound(err):
		return notFound(entity, id).WithCause(err)
	case dbkit.IsDuplicate(err):
		if isSlugConstraint(err) {
			return NewError(ErrSlugTaken, entity+" slug already in use").WithEntity(entity, id).WithCause(err)
		}
		return NewError(ErrConflict, entity+" already exists").WithEntity(entity, id).WithCause(err)
	}
	return err
}

// isSlugConstraint reports whether err violated one of the *_slug_key constraints.
func isSlugConstraint(err error) bool {
	constraint, ok := dbkit.GetConstraint(err)
	return ok && strings.HasSuffix(constraint, "_slug_key")
}

// mustAffect turns an update or delete that matched no row into ErrNotFound.
func mustAffect(result sql.Result, err error, op, entity, id string) error {
	if err := dbkit.WithErr(result, err, op).Err(); err != nil {
		return classify(err, entity, id)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return notFound(entity, id)
	}
	return nil
}

// GetArticle implements ArticleStore; forUpdate locks the row.
func (s *BunStore) GetArticle(ctx context.Context, id string, forUpdate bool) (*Article, error) {
	if uuid.Validate(id) != nil {
		return nil, notFound("article", id)
	}
	a := new(Article)
	q := s.db.NewSelect().Model(a).Where("a.id = ?", id)
	if forUpdate {
		q = q.For("UPDATE")
	}
	if err := dbkit.WithErr1(q.Scan(ctx), "GetArticle").Err(); err != nil {
		return nil, classify(err, "article", id)
	}
	return a, nil
}

// GetArticleBySlug implements ArticleStore.
func (s *BunStore) GetArticleBySlug(ctx context.Context, slug string) (*Article, error) {
	a := new(Article)
	err := dbkit.WithErr1(s.db.NewSelect().Model(a).Where("a.slug = ?", slug).Scan(ctx), "GetArticleBySlug").Err()
	if err != nil {
		return nil, classify(err, "article", slug)
	}
	return a, nil
}

// InsertArticle implements ArticleStore.
func (s *BunStore) InsertArticle(ctx context.Context, a *Article) error {
	result, err := s.db.NewInsert().Model(a).Exec(ctx)
	return classify(dbkit.WithErr(result, err, "InsertArticle").Err(), "article", a.ID)
}

// UpdateArticle implements ArticleStore. Author, creation time and view
// count are never written here.
func (s *BunStore) UpdateArticle(ctx context.Context, a *Article) error {
	result, err := s.db.NewUpdate().
		Model(a).
		Column("title", "slug", "content", "excerpt", "status", "category_id", "published_at", "updated_at").
		WherePK().
		Exec(ctx)
	return mustAffect(result, err, "UpdateArticle", "article", a.ID)
}

// DeleteArticle implements ArticleStore.
func (s *BunStore) DeleteArticle(ctx context.Context, id string) error {
	result, err := s.db.NewDelete().Model((*Article)(nil)).Where("id = ?", id).Exec(ctx)
	return mustAffect(result, err, "DeleteArticle", "article", id)
}

// ListArticles implements ArticleStore, newest first.
func (s *BunStore) ListArticles(ctx context.Context, pred Predicate, filter ArticleFilter) ([]*Article, error) {
	articles := []*Article{}
	q := pred.Apply(s.db.NewSelect().Model(&articles))
	if filter.CategoryID != "" {
		q = q.Where("a.category_id = ?", filter.CategoryID)
	}
	if filter.AuthorID != "" {
		q = q.Where("a.author_id = ?", filter.AuthorID)
	}
	if filter.TagID != "" {
		q = q.Where("EXISTS (SELECT 1 FROM article_tags AS at WHERE at.article_id = a.id AND at.tag_id = ?)", filter.TagID)
	}
	q = q.Order("a.created_at DESC", "a.id ASC").Limit(filter.limit())
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := dbkit.WithErr1(q.Scan(ctx), "ListArticles").Err(); err != nil {
		return nil, err
	}
	return articles, nil
}

// IncrementViewCount implements ArticleStore.
func (s *BunStore) IncrementViewCount(ctx context.Context, id string) error {
	result, err := s.db.NewUpdate().
		Model((*Article)(nil)).
		Set("view_count = view_count + 1").
		Where("id = ?", id).
		Exec(ctx)
	return mustAffect(result, err, "IncrementViewCount", "article", id)
}

// ArticleTagIDs implements ArticleStore.
func (s *BunStore) ArticleTagIDs(ctx context.Context, articleID string) ([]string, error) {
	var ids []string
	err := dbkit.WithErr1(s.db.NewRaw("SELECT tag_id FROM article_tags WHERE article_id = ? ORDER BY tag_id", articleID).Scan(ctx, &ids), "ArticleTagIDs").Err()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}

// DeleteArticleTags implements ArticleStore.
func (s *BunStore) DeleteArticleTags(ctx context.Context, articleID string) error {
	result, err := s.db.NewDelete().Model((*ArticleTag)(nil)).Where("article_id = ?", articleID).Exec(ctx)
	return dbkit.WithErr(result, err, "DeleteArticleTags").Err()
}

// InsertArticleTags implements ArticleStore.
func (s *BunStore) InsertArticleTags(ctx context.Context, articleID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]ArticleTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, ArticleTag{ArticleID: articleID, TagID: id})
	}
	result, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return classify(dbkit.WithErr(result, err, "InsertArticleTags").Err(), "article", articleID)
}

var slugTables = map[SlugNamespace]string{
	NamespaceArticles:   "articles",
	NamespaceCategories: "categories",
	NamespaceTags:       "tags",
}

// SlugsWithBase implements ArticleStore.
func (s *BunStore) SlugsWithBase(ctx context.Context, ns SlugNamespace, base, excludeID string) ([]string, error) {
	table, ok := slugTables[ns]
	if !ok {
		return nil, NewError(ErrValidation, "unknown slug namespace "+string(ns))
	}

	var slugs []string
	pattern := "^" + regexp.QuoteMeta(base) + "-[0-9]+$"
	err := dbkit.WithErr1(s.db.NewRaw(
		"SELECT slug FROM ? WHERE (slug = ? OR slug ~ ?) AND id::text <> ? ORDER BY slug",
		bun.Ident(table), base, pattern, excludeID,
	).Scan(ctx, &slugs), "SlugsWithBase").Err()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return slugs, nil
}

// CategoryExists implements TaxonomyStore.
func (s *BunStore) CategoryExists(ctx context.Context, id string) (bool, error) {
	if uuid.Validate(id) != nil {
		return false, nil
	}
	return dbkit.Exists[Category](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
}

// TagExists implements TaxonomyStore.
func (s *BunStore) TagExists(ctx context.Context, id string) (bool, error) {
	if uuid.Validate(id) != nil {
		return false, nil
	}
	return dbkit.Exists[Tag](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
}

// GetCategory implements TaxonomyStore.
func (s *BunStore) GetCategory(ctx context.Context, id string) (*Category, error) {
	if uuid.Validate(id) != nil {
		return nil, notFound("category", id)
	}
	c := new(Category)
	if err := dbkit.WithErr1(s.db.NewSelect().Model(c).Where("c.id = ?", id).Scan(ctx), "GetCategory").Err(); err != nil {
		return nil, classify(err, "category", id)
	}
	return c, nil
}

// GetTag implements TaxonomyStore.
func (s *BunStore) GetTag(ctx context.Context, id string) (*Tag, error) {
	if uuid.Validate(id) != nil {
		return nil, notFound("tag", id)
	}
	t := new(Tag)
	if err := dbkit.WithErr1(s.db.NewSelect().Model(t).Where("t.id = ?", id).Scan(ctx), "GetTag").Err(); err != nil {
		return nil, classify(err, "tag", id)
	}
	return t, nil
}

// InsertCategory implements TaxonomyStore.
func (s *BunStore) InsertCategory(ctx context.Context, c *Category) error {
	result, err := s.db.NewInsert().Model(c).Exec(ctx)
	return classify(dbkit.WithErr(result, err, "InsertCategory").Err(), "category", c.ID)
}

// InsertTag implements TaxonomyStore.
func (s *BunStore) InsertTag(ctx context.Context, t *Tag) error {
	result, err := s.db.NewInsert().Model(t).Exec(ctx)
	return classify(dbkit.WithErr(result, err, "InsertTag").Err(), "tag", t.ID)
}

// UpdateCategoryParent implements TaxonomyStore.
func (s *BunStore) UpdateCategoryParent(ctx context.Context, id string, parentID *string) error {
	result, err := s.db.NewUpdate().
		Model((*Category)(nil)).
		Set("parent_id = ?", parentID).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)
	return mustAffect(result, err, "UpdateCategoryParent", "category", id)
}

// ListCategories implements TaxonomyStore, ordered by name.
func (s *BunStore) ListCategories(ctx context.Context) ([]*Category, error) {
	var categories []*Category
	err := dbkit.WithErr1(s.db.NewSelect().Model(&categories).Order("c.name ASC").Scan(ctx), "ListCategories").Err()
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// ListTags implements TaxonomyStore, ordered by name.
func (s *BunStore) ListTags(ctx context.Context) ([]*Tag, error) {
	var tags []*Tag
	err := dbkit.WithErr1(s.db.NewSelect().Model(&tags).Order("t.name ASC").Scan(ctx), "ListTags").Err()
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// CountArticlesByCategory implements TaxonomyStore.
func (s *BunStore) CountArticlesByCategory(ctx context.Context, categoryID string) (int, error) {
	return dbkit.Count[Article](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("category_id = ?", categoryID)
	})
}

// CountArticlesByTag implements TaxonomyStore. Association rows cascade with
// their article, so every row counts.
func (s *BunStore) CountArticlesByTag(ctx context.Context, tagID string) (int, error) {
	return dbkit.Count[ArticleTag](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("tag_id = ?", tagID)
	})
}

// SetCategoryArticleCount implements TaxonomyStore.
func (s *BunStore) SetCategoryArticleCount(ctx context.Context, categoryID string, count int) error {
	result, err := s.db.NewUpdate().
		Model((*Category)(nil)).
		Set("article_count = ?", count).
		Where("id = ?", categoryID).
		Exec(ctx)
	return mustAffect(result, err, "SetCategoryArticleCount", "category", categoryID)
}

// SetTagArticleCount implements TaxonomyStore.
func (s *BunStore) SetTagArticleCount(ctx context.Context, tagID string, count int) error {
	result, err := s.db.NewUpdate().
		Model((*Tag)(nil)).
		Set("article_count = ?", count).
		Where("id = ?", tagID).
		Exec(ctx)
	return mustAffect(result, err, "SetTagArticleCount", "tag", tagID)
}

// InsertAudit implements AuditStore.
func (s *BunStore) InsertAudit(ctx context.Context, entry *ArticleAuditLog) error {
	_, err := s.db.NewInsert().Model(entry).Exec(ctx)
	return dbkit.WithErr1(err, "InsertAudit").Err()
}

// ListAudit implements AuditStore, newest first.
func (s *BunStore) ListAudit(ctx context.Context, filter AuditLogFilter) ([]ArticleAuditLog, error) {
	var logs []ArticleAuditLog
	q := s.db.NewSelect().Model(&logs)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.ArticleID != "" {
		q = q.Where("article_id = ?", filter.ArticleID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}
	q = q.Limit(filter.limit())
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	q = q.Order("timestamp DESC")

	if err := dbkit.WithErr1(q.Scan(ctx), "ListAudit").Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

var _ Store = (*BunStore)(nil)
