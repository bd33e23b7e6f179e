package deskguard

import (
	"context"
	"strings"
	"unicode/utf8"
)

const maxTaxonomyNameLength = 100

// CategoryInput carries the fields of a new category.
type CategoryInput struct {
	Name        string
	Description string
	ParentID    *string
}

func validateName(name string) error {
	errs := fieldErrors{}
	switch {
	case strings.TrimSpace(name) == "":
		errs.add("name", "is required")
	case utf8.RuneCountInString(name) > maxTaxonomyNameLength:
		errs.add("name", "must be at most 100 characters")
	}
	return errs.err()
}

// CreateCategory creates a category with a slug unique among categories.
// A name already in use yields ErrConflict.
func (s *Service) CreateCategory(ctx context.Context, sess *Session, in CategoryInput) (*Category, error) {
	if err := s.policy.Authorize(sess, ActionCategoryManage); err != nil {
		return nil, err
	}
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	var created *Category
	err := s.mutate(ctx, "CreateCategory", func(ctx context.Context, tx Store) error {
		if in.ParentID != nil {
			ok, err := tx.CategoryExists(ctx, *in.ParentID)
			if err != nil {
				return internal("check parent category", err)
			}
			if !ok {
				return NewError(ErrValidation, "invalid category").
					WithField("parentId", "category "+*in.ParentID+" not found")
			}
		}

		slug, err := EnsureUnique(ctx, tx, NamespaceCategories, baseSlug(name, "category"), "")
		if err != nil {
			return err
		}

		now := s.now()
		c := &Category{
			ID:          newID(),
			Name:        name,
			Slug:        slug,
			Description: in.Description,
			ParentID:    cloneString(in.ParentID),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.InsertCategory(ctx, c); err != nil {
			return internal("insert category", err)
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateTag creates a tag with a slug unique among tags.
// A name already in use yields ErrConflict.
func (s *Service) CreateTag(ctx context.Context, sess *Session, name string) (*Tag, error) {
	if err := s.policy.Authorize(sess, ActionTagManage); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	var created *Tag
	err := s.mutate(ctx, "CreateTag", func(ctx context.Context, tx Store) error {
		slug, err := EnsureUnique(ctx, tx, NamespaceTags, baseSlug(name, "tag"), "")
		if err != nil {
			return err
		}
		t := &Tag{
			ID:        newID(),
			Name:      name,
			Slug:      slug,
			CreatedAt: s.now(),
		}
		if err := tx.InsertTag(ctx, t); err != nil {
			return internal("insert tag", err)
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SetCategoryParent moves a category under parentID, or to the top level when
// parentID is nil. A move that would make the category its own ancestor is
// rejected with ErrConflict.
func (s *Service) SetCategoryParent(ctx context.Context, sess *Session, id string, parentID *string) (*Category, error) {
	if err := s.policy.Authorize(sess, ActionCategoryManage); err != nil {
		return nil, err
	}

	var moved *Category
	err := s.mutate(ctx, "SetCategoryParent", func(ctx context.Context, tx Store) error {
		c, err := tx.GetCategory(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				return notFound("category", id)
			}
			return internal("get category", err)
		}

		if parentID != nil {
			if err := checkAncestry(ctx, tx, id, *parentID); err != nil {
				return err
			}
		}

		if err := tx.UpdateCategoryParent(ctx, id, parentID); err != nil {
			return internal("update category parent", err)
		}
		c.ParentID = cloneString(parentID)
		c.UpdatedAt = s.now()
		moved = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// checkAncestry walks up from parentID and fails if it reaches id.
func checkAncestry(ctx context.Context, tx TaxonomyStore, id, parentID string) error {
	if parentID == id {
		return NewError(ErrConflict, "category cannot be its own parent").WithEntity("category", id)
	}

	seen := map[string]struct{}{}
	cur := parentID
	for {
		if cur == id {
			return NewError(ErrConflict, "circular category parent").
				WithEntity("category", id).
				WithField("parentId", parentID)
		}
		if _, ok := seen[cur]; ok {
			// Pre-existing loop above us that does not include id.
			return nil
		}
		seen[cur] = struct{}{}

		c, err := tx.GetCategory(ctx, cur)
		if err != nil {
			if IsNotFound(err) && cur == parentID {
				return NewError(ErrValidation, "invalid category").
					WithField("parentId", "category "+parentID+" not found")
			}
			return internal("get category", err)
		}
		if c.ParentID == nil {
			return nil
		}
		cur = *c.ParentID
	}
}

// ListCategories returns every category ordered by name.
func (s *Service) ListCategories(ctx context.Context, sess *Session) ([]*Category, error) {
	if err := s.policy.Authorize(sess, ActionArticleRead); err != nil {
		return nil, err
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, internal("list categories", err)
	}
	return categories, nil
}

// ListTags returns every tag ordered by name.
func (s *Service) ListTags(ctx context.Context, sess *Session) ([]*Tag, error) {
	if err := s.policy.Authorize(sess, ActionArticleRead); err != nil {
		return nil, err
	}
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, internal("list tags", err)
	}
	return tags, nil
}
