package deskguard

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. Transactions are serialised by one
// mutex and rolled back by restoring a snapshot, so every unit of work sees
// a consistent state. It suits tests and single-process embedders.
type MemoryStore struct {
	state *memoryState
	inTx  bool
}

type memoryState struct {
	mu   sync.Mutex
	data memoryData
}

type memoryData struct {
	articles    map[string]*Article
	categories  map[string]*Category
	tags        map[string]*Tag
	articleTags map[string][]string
	audit       []ArticleAuditLog
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{data: memoryData{
			articles:    map[string]*Article{},
			categories:  map[string]*Category{},
			tags:        map[string]*Tag{},
			articleTags: map[string][]string{},
		}},
	}
}

func (d memoryData) clone() memoryData {
	c := memoryData{
		articles:    make(map[string]*Article, len(d.articles)),
		categories:  make(map[string]*Category, len(d.categories)),
		tags:        make(map[string]*Tag, len(d.tags)),
		articleTags: make(map[string][]string, len(d.articleTags)),
		audit:       slices.Clone(d.audit),
	}
	for id, a := range d.articles {
		c.articles[id] = a.Clone()
	}
	for id, cat := range d.categories {
		cc := *cat
		cc.ParentID = cloneString(cat.ParentID)
		c.categories[id] = &cc
	}
	for id, t := range d.tags {
		tt := *t
		c.tags[id] = &tt
	}
	for id, tags := range d.articleTags {
		c.articleTags[id] = slices.Clone(tags)
	}
	return c
}

// do runs fn against the data, taking the lock unless a transaction holds it.
func (m *MemoryStore) do(fn func(d *memoryData) error) error {
	if !m.inTx {
		m.state.mu.Lock()
		defer m.state.mu.Unlock()
	}
	return fn(&m.state.data)
}

// WithinTx implements Store. Nested calls behave like savepoints.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) (err error) {
	if !m.inTx {
		m.state.mu.Lock()
		defer m.state.mu.Unlock()
	}

	snapshot := m.state.data.clone()
	defer func() {
		if r := recover(); r != nil {
			m.state.data = snapshot
			panic(r)
		}
		if err != nil {
			m.state.data = snapshot
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &MemoryStore{state: m.state, inTx: true})
}

// GetArticle implements ArticleStore. Rows are always locked inside a
// transaction, so forUpdate has no extra effect.
func (m *MemoryStore) GetArticle(_ context.Context, id string, _ bool) (*Article, error) {
	var out *Article
	err := m.do(func(d *memoryData) error {
		a, ok := d.articles[id]
		if !ok {
			return notFound("article", id)
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

// GetArticleBySlug implements ArticleStore.
func (m *MemoryStore) GetArticleBySlug(_ context.Context, slug string) (*Article, error) {
	var out *Article
	err := m.do(func(d *memoryData) error {
		for _, a := range d.articles {
			if a.Slug == slug {
				out = a.Clone()
				return nil
			}
		}
		return notFound("article", slug)
	})
	return out, err
}

func (d *memoryData) articleSlugTaken(slug, exceptID string) bool {
	for id, a := range d.articles {
		if id != exceptID && a.Slug == slug {
			return true
		}
	}
	return false
}

func storedArticle(a *Article) *Article {
	c := a.Clone()
	c.TagIDs = nil
	return c
}

// InsertArticle implements ArticleStore.
func (m *MemoryStore) InsertArticle(_ context.Context, a *Article) error {
	return m.do(func(d *memoryData) error {
		if _, ok := d.articles[a.ID]; ok {
			return NewError(ErrConflict, "article already exists").WithEntity("article", a.ID)
		}
		if d.articleSlugTaken(a.Slug, a.ID) {
			return NewError(ErrSlugTaken, a.Slug).WithEntity("article", a.ID)
		}
		d.articles[a.ID] = storedArticle(a)
		return nil
	})
}

// UpdateArticle implements ArticleStore.
func (m *MemoryStore) UpdateArticle(_ context.Context, a *Article) error {
	return m.do(func(d *memoryData) error {
		if _, ok := d.articles[a.ID]; !ok {
			return notFound("article", a.ID)
		}
		if d.articleSlugTaken(a.Slug, a.ID) {
			return NewError(ErrSlugTaken, a.Slug).WithEntity("article", a.ID)
		}
		d.articles[a.ID] = storedArticle(a)
		return nil
	})
}

// DeleteArticle implements ArticleStore. Tag associations go with the row.
func (m *MemoryStore) DeleteArticle(_ context.Context, id string) error {
	return m.do(func(d *memoryData) error {
		if _, ok := d.articles[id]; !ok {
			return notFound("article", id)
		}
		delete(d.articles, id)
		delete(d.articleTags, id)
		return nil
	})
}

// ListArticles implements ArticleStore, newest first.
func (m *MemoryStore) ListArticles(_ context.Context, pred Predicate, filter ArticleFilter) ([]*Article, error) {
	var out []*Article
	err := m.do(func(d *memoryData) error {
		for _, a := range d.articles {
			if !pred.Matches(a) {
				continue
			}
			if filter.CategoryID != "" && (a.CategoryID == nil || *a.CategoryID != filter.CategoryID) {
				continue
			}
			if filter.AuthorID != "" && a.AuthorID != filter.AuthorID {
				continue
			}
			if filter.TagID != "" && !slices.Contains(d.articleTags[a.ID], filter.TagID) {
				continue
			}
			out = append(out, a.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, filter.Offset, filter.limit()), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

// IncrementViewCount implements ArticleStore.
func (m *MemoryStore) IncrementViewCount(_ context.Context, id string) error {
	return m.do(func(d *memoryData) error {
		a, ok := d.articles[id]
		if !ok {
			return notFound("article", id)
		}
		a.ViewCount++
		return nil
	})
}

// ArticleTagIDs implements ArticleStore.
func (m *MemoryStore) ArticleTagIDs(_ context.Context, articleID string) ([]string, error) {
	var out []string
	err := m.do(func(d *memoryData) error {
		out = slices.Clone(d.articleTags[articleID])
		return nil
	})
	return out, err
}

// DeleteArticleTags implements ArticleStore.
func (m *MemoryStore) DeleteArticleTags(_ context.Context, articleID string) error {
	return m.do(func(d *memoryData) error {
		delete(d.articleTags, articleID)
		return nil
	})
}

// InsertArticleTags implements ArticleStore.
func (m *MemoryStore) InsertArticleTags(_ context.Context, articleID string, tagIDs []string) error {
	return m.do(func(d *memoryData) error {
		if _, ok := d.articles[articleID]; !ok {
			return notFound("article", articleID)
		}
		current := d.articleTags[articleID]
		for _, id := range tagIDs {
			if _, ok := d.tags[id]; !ok {
				return notFound("tag", id)
			}
			if slices.Contains(current, id) {
				return NewError(ErrConflict, "tag already associated").WithEntity("tag", id)
			}
			current = append(current, id)
		}
		d.articleTags[articleID] = current
		return nil
	})
}

// SlugsWithBase implements ArticleStore.
func (m *MemoryStore) SlugsWithBase(_ context.Context, ns SlugNamespace, base, excludeID string) ([]string, error) {
	var out []string
	err := m.do(func(d *memoryData) error {
		collect := func(id, slug string) {
			if id != excludeID && isSlugVariant(slug, base) {
				out = append(out, slug)
			}
		}
		switch ns {
		case NamespaceArticles:
			for id, a := range d.articles {
				collect(id, a.Slug)
			}
		case NamespaceCategories:
			for id, c := range d.categories {
				collect(id, c.Slug)
			}
		case NamespaceTags:
			for id, t := range d.tags {
				collect(id, t.Slug)
			}
		default:
			return NewError(ErrValidation, "unknown slug namespace "+string(ns))
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// CategoryExists implements TaxonomyStore.
func (m *MemoryStore) CategoryExists(_ context.Context, id string) (bool, error) {
	var ok bool
	err := m.do(func(d *memoryData) error {
		_, ok = d.categories[id]
		return nil
	})
	return ok, err
}

// TagExists implements TaxonomyStore.
func (m *MemoryStore) TagExists(_ context.Context, id string) (bool, error) {
	var ok bool
	err := m.do(func(d *memoryData) error {
		_, ok = d.tags[id]
		return nil
	})
	return ok, err
}

// GetCategory implements TaxonomyStore.
func (m *MemoryStore) GetCategory(_ context.Context, id string) (*Category, error) {
	var out *Category
	err := m.do(func(d *memoryData) error {
		c, ok := d.categories[id]
		if !ok {
			return notFound("category", id)
		}
		cc := *c
		cc.ParentID = cloneString(c.ParentID)
		out = &cc
		return nil
	})
	return out, err
}

// GetTag implements TaxonomyStore.
func (m *MemoryStore) GetTag(_ context.Context, id string) (*Tag, error) {
	var out *Tag
	err := m.do(func(d *memoryData) error {
		t, ok := d.tags[id]
		if !ok {
			return notFound("tag", id)
		}
		tt := *t
		out = &tt
		return nil
	})
	return out, err
}

// InsertCategory implements TaxonomyStore.
func (m *MemoryStore) InsertCategory(_ context.Context, c *Category) error {
	return m.do(func(d *memoryData) error {
		for _, other := range d.categories {
			if other.Name == c.Name {
				return NewError(ErrConflict, "category name already in use").WithField("name", c.Name)
			}
			if other.Slug == c.Slug {
				return NewError(ErrSlugTaken, c.Slug).WithEntity("category", c.ID)
			}
		}
		cc := *c
		cc.ParentID = cloneString(c.ParentID)
		d.categories[c.ID] = &cc
		return nil
	})
}

// InsertTag implements TaxonomyStore.
func (m *MemoryStore) InsertTag(_ context.Context, t *Tag) error {
	return m.do(func(d *memoryData) error {
		for _, other := range d.tags {
			if other.Name == t.Name {
				return NewError(ErrConflict, "tag name already in use").WithField("name", t.Name)
			}
			if other.Slug == t.Slug {
				return NewError(ErrSlugTaken, t.Slug).WithEntity("tag", t.ID)
			}
		}
		tt := *t
		d.tags[t.ID] = &tt
		return nil
	})
}

// UpdateCategoryParent implements TaxonomyStore.
func (m *MemoryStore) UpdateCategoryParent(_ context.Context, id string, parentID *string) error {
	return m.do(func(d *memoryData) error {
		c, ok := d.categories[id]
		if !ok {
			return notFound("category", id)
		}
		c.ParentID = cloneString(parentID)
		return nil
	})
}

// ListCategories implements TaxonomyStore, ordered by name.
func (m *MemoryStore) ListCategories(_ context.Context) ([]*Category, error) {
	var out []*Category
	err := m.do(func(d *memoryData) error {
		for _, c := range d.categories {
			cc := *c
			cc.ParentID = cloneString(c.ParentID)
			out = append(out, &cc)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// ListTags implements TaxonomyStore, ordered by name.
func (m *MemoryStore) ListTags(_ context.Context) ([]*Tag, error) {
	var out []*Tag
	err := m.do(func(d *memoryData) error {
		for _, t := range d.tags {
			tt := *t
			out = append(out, &tt)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// CountArticlesByCategory implements TaxonomyStore.
func (m *MemoryStore) CountArticlesByCategory(_ context.Context, categoryID string) (int, error) {
	n := 0
	err := m.do(func(d *memoryData) error {
		for _, a := range d.articles {
			if a.CategoryID != nil && *a.CategoryID == categoryID {
				n++
			}
		}
		return nil
	})
	return n, err
}

// CountArticlesByTag implements TaxonomyStore.
func (m *MemoryStore) CountArticlesByTag(_ context.Context, tagID string) (int, error) {
	n := 0
	err := m.do(func(d *memoryData) error {
		for articleID, tags := range d.articleTags {
			if _, ok := d.articles[articleID]; ok && slices.Contains(tags, tagID) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// SetCategoryArticleCount implements TaxonomyStore.
func (m *MemoryStore) SetCategoryArticleCount(_ context.Context, categoryID string, count int) error {
	return m.do(func(d *memoryData) error {
		c, ok := d.categories[categoryID]
		if !ok {
			return notFound("category", categoryID)
		}
		c.ArticleCount = count
		return nil
	})
}

// SetTagArticleCount implements TaxonomyStore.
func (m *MemoryStore) SetTagArticleCount(_ context.Context, tagID string, count int) error {
	return m.do(func(d *memoryData) error {
		t, ok := d.tags[tagID]
		if !ok {
			return notFound("tag", tagID)
		}
		t.ArticleCount = count
		return nil
	})
}

// InsertAudit implements AuditStore.
func (m *MemoryStore) InsertAudit(_ context.Context, entry *ArticleAuditLog) error {
	return m.do(func(d *memoryData) error {
		d.audit = append(d.audit, *entry)
		return nil
	})
}

// ListAudit implements AuditStore, newest first.
func (m *MemoryStore) ListAudit(_ context.Context, filter AuditLogFilter) ([]ArticleAuditLog, error) {
	var out []ArticleAuditLog
	err := m.do(func(d *memoryData) error {
		for i := len(d.audit) - 1; i >= 0; i-- {
			if filter.matches(&d.audit[i]) {
				out = append(out, d.audit[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return page(out, filter.Offset, filter.limit()), nil
}

var _ Store = (*MemoryStore)(nil)
