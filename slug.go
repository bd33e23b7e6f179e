package deskguard

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugAttempts bounds how often a write that lost a slug race is retried.
const maxSlugAttempts = 5

// Slugify turns text into a URL slug: lowercase ASCII letters and digits
// separated by single hyphens, diacritics removed, no leading or trailing
// hyphen. It is total and idempotent; empty input yields an empty slug.
//
//	Slugify("Crème brûlée: how-to!") // "creme-brulee-how-to"
func Slugify(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// SlugSource lists the slugs already taken in a namespace.
type SlugSource interface {
	SlugsWithBase(ctx context.Context, ns SlugNamespace, base, excludeID string) ([]string, error)
}

// EnsureUnique returns base when it is free in ns, otherwise the smallest
// base-<n> (n >= 1) not yet taken. The row identified by excludeID is ignored
// so an entity does not collide with itself.
//
// This is an optimistic pre-check. The store's uniqueness constraint is the
// real guarantee; a write that still collides reports ErrSlugTaken and the
// caller derives a new slug.
func EnsureUnique(ctx context.Context, src SlugSource, ns SlugNamespace, base, excludeID string) (string, error) {
	if base == "" {
		return "", NewError(ErrValidation, "slug cannot be empty").WithField("slug", "empty")
	}

	existing, err := src.SlugsWithBase(ctx, ns, base, excludeID)
	if err != nil {
		return "", internal("list slugs", err)
	}
	return nextFreeSlug(base, existing), nil
}

func nextFreeSlug(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// isSlugVariant reports whether slug equals base or has the form base-<n>.
func isSlugVariant(slug, base string) bool {
	if slug == base {
		return true
	}
	rest, ok := strings.CutPrefix(slug, base+"-")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// baseSlug derives the slug base for text, falling back to fallback when the
// text has no sluggable characters.
func baseSlug(text, fallback string) string {
	if s := Slugify(text); s != "" {
		return s
	}
	return fallback
}
