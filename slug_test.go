package deskguard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSlugify tests slug derivation
func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Test Article", "test-article"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Crème brûlée: how-to!", "creme-brulee-how-to"},
		{"multiple---hyphens___and   spaces", "multiple-hyphens-and-spaces"},
		{"Ñandú über alles", "nandu-uber-alles"},
		{"v2.0 release", "v2-0-release"},
		{"!!!", ""},
		{"", ""},
		{"日本語", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Slugify(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Slugify(got), "slugify must be idempotent")
		})
	}
}

// TestNextFreeSlug tests suffix selection
func TestNextFreeSlug(t *testing.T) {
	assert.Equal(t, "faq", nextFreeSlug("faq", nil))
	assert.Equal(t, "faq-1", nextFreeSlug("faq", []string{"faq"}))
	assert.Equal(t, "faq-3", nextFreeSlug("faq", []string{"faq", "faq-1", "faq-2"}))
	assert.Equal(t, "faq-1", nextFreeSlug("faq", []string{"faq", "faq-2"}))
	assert.Equal(t, "faq", nextFreeSlug("faq", []string{"faq-1"}))
}

// TestIsSlugVariant tests base-<n> recognition
func TestIsSlugVariant(t *testing.T) {
	assert.True(t, isSlugVariant("faq", "faq"))
	assert.True(t, isSlugVariant("faq-12", "faq"))
	assert.False(t, isSlugVariant("faq-", "faq"))
	assert.False(t, isSlugVariant("faq-abc", "faq"))
	assert.False(t, isSlugVariant("faq-1-2", "faq"))
	assert.False(t, isSlugVariant("faqs", "faq"))
}

// TestEnsureUnique tests the store-backed allocator
func TestEnsureUnique(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, s := range []string{"test-article", "test-article-1", "test-article-other"} {
		require.NoError(t, store.InsertArticle(ctx, &Article{ID: newID(), Slug: s, Status: StatusDraft}))
	}
	self := &Article{ID: newID(), Slug: "test-article-2", Status: StatusDraft}
	require.NoError(t, store.InsertArticle(ctx, self))

	slug, err := EnsureUnique(ctx, store, NamespaceArticles, "test-article", "")
	require.NoError(t, err)
	assert.Equal(t, "test-article-3", slug)

	slug, err = EnsureUnique(ctx, store, NamespaceArticles, "test-article", self.ID)
	require.NoError(t, err)
	assert.Equal(t, "test-article-2", slug)

	slug, err = EnsureUnique(ctx, store, NamespaceTags, "test-article", "")
	require.NoError(t, err)
	assert.Equal(t, "test-article", slug)

	_, err = EnsureUnique(ctx, store, NamespaceArticles, "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

// TestBaseSlug tests the empty-slug fallback
func TestBaseSlug(t *testing.T) {
	assert.Equal(t, "hello", baseSlug("Hello", "article"))
	assert.Equal(t, "article", baseSlug("...", "article"))
}
