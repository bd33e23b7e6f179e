package deskguard

import (
	"context"
	"os"
	"testing"

	"github.com/fernandezvara/dbkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupBunService connects to TEST_DATABASE_URL, applies migrations and
// empties every table.
func setupBunService(t *testing.T) (*Service, *BunStore) {
	t.Helper()
	ctx := context.Background()

	db, err := dbkit.New(dbkit.Config{URL: os.Getenv("TEST_DATABASE_URL")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Migrate(ctx, Migrations())
	require.NoError(t, err)

	_, err = db.NewRaw("TRUNCATE article_tags, articles, tags, categories, article_audit_log").Exec(ctx)
	require.NoError(t, err)

	store := NewBunStore(db)
	return NewService(store, nil), store
}

// TestIntegrationArticleLifecycle tests the full lifecycle against PostgreSQL
func TestIntegrationArticleLifecycle(t *testing.T) {
	if !requireDatabase(t) {
		return
	}
	ctx := context.Background()
	svc, store := setupBunService(t)

	supervisor := NewSession("supervisor-1", RoleSupervisor)
	admin := NewSession("admin-1", RoleAdmin)
	agent := NewSession("agent-1", RoleAgent)

	cat, err := svc.CreateCategory(ctx, supervisor, CategoryInput{Name: "Accounts"})
	require.NoError(t, err)
	tag, err := svc.CreateTag(ctx, supervisor, "password")
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		a, err := svc.CreateArticle(ctx, supervisor, ArticleInput{
			Title:      "Reset password",
			Content:    "Steps",
			CategoryID: &cat.ID,
			TagIDs:     []string{tag.ID},
		})
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	first, err := svc.GetArticle(ctx, admin, ids[0])
	require.NoError(t, err)
	second, err := svc.GetArticle(ctx, admin, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "reset-password", first.Slug)
	assert.Equal(t, "reset-password-1", second.Slug)
	assert.Equal(t, []string{tag.ID}, first.TagIDs)

	got, err := store.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ArticleCount)

	_, err = svc.UpdateArticle(ctx, supervisor, ids[0], ArticlePatch{Status: statusPtr(StatusPublished)})
	require.ErrorIs(t, err, ErrForbidden)

	published, err := svc.UpdateArticle(ctx, admin, ids[0], ArticlePatch{Status: statusPtr(StatusPublished)})
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)

	_, err = svc.GetArticle(ctx, agent, ids[0])
	assert.NoError(t, err)
	_, err = svc.GetArticle(ctx, agent, ids[1])
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := svc.ListArticles(ctx, agent, NewArticleFilter())
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0]}, articleIDs(list))

	require.NoError(t, svc.HardDeleteArticle(ctx, admin, ids[2]))
	_, err = svc.SoftDeleteArticle(ctx, supervisor, ids[1])
	require.NoError(t, err)

	got, err = store.GetTag(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ArticleCount)

	c, err := store.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, c.ArticleCount)

	logs, err := svc.GetAuditLog(ctx, admin, NewAuditLogFilter().WithArticle(ids[0]))
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

// TestIntegrationTaxonomy tests constraint classification and cycles
func TestIntegrationTaxonomy(t *testing.T) {
	if !requireDatabase(t) {
		return
	}
	ctx := context.Background()
	svc, _ := setupBunService(t)
	sess := NewSession("supervisor-1", RoleSupervisor)

	a, err := svc.CreateCategory(ctx, sess, CategoryInput{Name: "A"})
	require.NoError(t, err)
	b, err := svc.CreateCategory(ctx, sess, CategoryInput{Name: "B", ParentID: &a.ID})
	require.NoError(t, err)

	_, err = svc.SetCategoryParent(ctx, sess, a.ID, &b.ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateCategory(ctx, sess, CategoryInput{Name: "A"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateArticle(ctx, sess, ArticleInput{Title: "x", Content: "y", TagIDs: []string{newID()}})
	assert.ErrorIs(t, err, ErrValidation)
}

// TestIntegrationHealth tests health reporting and pool configuration
func TestIntegrationHealth(t *testing.T) {
	if !requireDatabase(t) {
		return
	}
	ctx := context.Background()
	_, store := setupBunService(t)

	assert.True(t, store.IsHealthy(ctx))
	assert.NoError(t, store.Ping(ctx))
	assert.True(t, store.Health(ctx).Healthy)

	err := store.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		txStore := tx.(*BunStore)
		assert.NoError(t, txStore.Ping(ctx))
		status := txStore.Health(ctx)
		assert.True(t, status.Healthy)
		assert.Empty(t, status.Error)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, store.ConfigurePool(DefaultPoolConfig()))
	assert.EqualValues(t, 25, store.PoolStats().MaxOpenConnections)
}
