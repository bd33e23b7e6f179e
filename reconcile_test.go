package deskguard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAffectedTags tests the symmetric difference
func TestAffectedTags(t *testing.T) {
	tests := []struct {
		name   string
		before []string
		after  []string
		want   []string
	}{
		{"Replace one", []string{"a", "b"}, []string{"b", "c"}, []string{"a", "c"}},
		{"Unchanged", []string{"a", "b"}, []string{"b", "a"}, nil},
		{"Clear all", []string{"a", "b"}, nil, []string{"a", "b"}},
		{"From nothing", nil, []string{"z", "y"}, []string{"y", "z"}},
		{"Both empty", nil, []string{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AffectedTags(tt.before, tt.after))
		})
	}
}

// TestAffectedCategories tests old and new category selection
func TestAffectedCategories(t *testing.T) {
	assert.Nil(t, AffectedCategories(nil, nil))
	assert.Nil(t, AffectedCategories(strPtr("a"), strPtr("a")))
	assert.Equal(t, []string{"a", "b"}, AffectedCategories(strPtr("a"), strPtr("b")))
	assert.Equal(t, []string{"a"}, AffectedCategories(strPtr("a"), nil))
	assert.Equal(t, []string{"b"}, AffectedCategories(nil, strPtr("b")))
}

// TestReconcile tests that a single counter is overwritten from the data
func TestReconcile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat := env.category(t, "Hardware")
	tag := env.tag(t, "printer")
	env.draft(t, env.supervisor, ArticleInput{Title: "Jammed", CategoryID: &cat.ID, TagIDs: []string{tag.ID}})

	require.NoError(t, env.store.SetCategoryArticleCount(ctx, cat.ID, 40))
	require.NoError(t, env.store.SetTagArticleCount(ctx, tag.ID, -3))

	require.NoError(t, Reconcile(ctx, env.store, KindCategory, cat.ID))
	require.NoError(t, Reconcile(ctx, env.store, KindTag, tag.ID))
	assert.Equal(t, 1, env.categoryCount(t, cat.ID))
	assert.Equal(t, 1, env.tagCount(t, tag.ID))

	assert.ErrorIs(t, Reconcile(ctx, env.store, EntityKind("ticket"), "x"), ErrValidation)
	assert.ErrorIs(t, Reconcile(ctx, env.store, KindTag, "missing"), ErrNotFound)
}

// TestReconcileAll tests the operator repair pass
func TestReconcileAll(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cat := env.category(t, "Software")
	env.category(t, "Empty")
	tag := env.tag(t, "install")
	env.draft(t, env.supervisor, ArticleInput{Title: "Setup", CategoryID: &cat.ID, TagIDs: []string{tag.ID}})
	env.draft(t, env.supervisor, ArticleInput{Title: "Upgrade", TagIDs: []string{tag.ID}})

	require.NoError(t, env.store.SetTagArticleCount(ctx, tag.ID, 99))

	report, err := env.svc.ReconcileAll(ctx, env.admin)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Categories)
	assert.Equal(t, 1, report.Tags)
	require.Len(t, report.Drift, 1)
	assert.Equal(t, CounterDrift{Kind: KindTag, ID: tag.ID, Name: "install", Stored: 99, Computed: 2}, report.Drift[0])
	assert.Equal(t, 2, env.tagCount(t, tag.ID))

	again, err := env.svc.ReconcileAll(ctx, env.admin)
	require.NoError(t, err)
	assert.Empty(t, again.Drift)

	_, err = env.svc.ReconcileAll(ctx, env.supervisor)
	assert.ErrorIs(t, err, ErrForbidden)
}
