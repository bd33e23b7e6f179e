package deskguard

import (
	"context"
	"strings"
	"unicode/utf8"
)

const (
	maxTitleLength   = 200
	maxExcerptLength = 500
)

// ArticleInput carries the fields of a new article.
// The status is not settable: every article starts as a draft.
type ArticleInput struct {
	Title      string
	Content    string
	Excerpt    *string
	CategoryID *string
	TagIDs     []string
}

// ArticlePatch describes a partial update. Nil fields are left unchanged.
// ClearExcerpt and ClearCategory set the nullable fields to null.
type ArticlePatch struct {
	Title         *string
	Content       *string
	Excerpt       *string
	ClearExcerpt  bool
	CategoryID    *string
	ClearCategory bool
	TagIDs        *[]string
	Status        *ArticleStatus
}

// touchesContent reports whether the patch edits anything besides status.
func (p ArticlePatch) touchesContent() bool {
	return p.Title != nil || p.Content != nil || p.Excerpt != nil || p.ClearExcerpt ||
		p.CategoryID != nil || p.ClearCategory || p.TagIDs != nil
}

// fieldErrors accumulates per-field validation messages.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	e := NewError(ErrValidation, "invalid article")
	for k, v := range f {
		e.WithField(k, v)
	}
	return e
}

func validateTitle(errs fieldErrors, title string) {
	switch {
	case strings.TrimSpace(title) == "":
		errs.add("title", "is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		errs.add("title", "must be at most 200 characters")
	}
}

func validateContent(errs fieldErrors, content string) {
	if strings.TrimSpace(content) == "" {
		errs.add("content", "is required")
	}
}

func validateExcerpt(errs fieldErrors, excerpt *string) {
	if excerpt != nil && utf8.RuneCountInString(*excerpt) > maxExcerptLength {
		errs.add("excerpt", "must be at most 500 characters")
	}
}

// validateInput checks field constraints of a new article.
func validateInput(in ArticleInput) error {
	errs := fieldErrors{}
	validateTitle(errs, in.Title)
	validateContent(errs, in.Content)
	validateExcerpt(errs, in.Excerpt)
	return errs.err()
}

// validatePatch checks field constraints of the fields a patch sets.
func validatePatch(p ArticlePatch) error {
	errs := fieldErrors{}
	if p.Title != nil {
		validateTitle(errs, *p.Title)
	}
	if p.Content != nil {
		validateContent(errs, *p.Content)
	}
	validateExcerpt(errs, p.Excerpt)
	if p.Excerpt != nil && p.ClearExcerpt {
		errs.add("excerpt", "cannot be set and cleared at once")
	}
	if p.CategoryID != nil && p.ClearCategory {
		errs.add("categoryId", "cannot be set and cleared at once")
	}
	if p.Status != nil && !p.Status.Valid() {
		errs.add("status", "is not a valid status")
	}
	return errs.err()
}

// validateReferences checks that the referenced category and tags exist.
// Unknown references are rejected, never dropped.
func validateReferences(ctx context.Context, tx TaxonomyStore, categoryID *string, tagIDs []string) error {
	errs := fieldErrors{}
	if categoryID != nil {
		ok, err := tx.CategoryExists(ctx, *categoryID)
		if err != nil {
			return internal("check category", err)
		}
		if !ok {
			errs.add("categoryId", "category "+*categoryID+" not found")
		}
	}
	for _, id := range tagIDs {
		ok, err := tx.TagExists(ctx, id)
		if err != nil {
			return internal("check tag", err)
		}
		if !ok {
			errs.add("tagIds", "tag "+id+" not found")
		}
	}
	return errs.err()
}

// dedupe removes empty and repeated IDs, keeping first occurrences.
func dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
