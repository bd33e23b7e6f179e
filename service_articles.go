package deskguard

import (
	"context"
	"fmt"
	"strings"
)

// CreateArticle creates a draft authored by the session's actor. The category
// and tags must exist; their counters are reconciled in the same transaction.
func (s *Service) CreateArticle(ctx context.Context, sess *Session, in ArticleInput) (*Article, error) {
	if err := s.policy.Authorize(sess, ActionArticleCreate); err != nil {
		return nil, err
	}
	if err := requireRoles(sess, "create article", editorRoles); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	tagIDs := dedupe(in.TagIDs)

	var created *Article
	err := s.mutate(ctx, "CreateArticle", func(ctx context.Context, tx Store) error {
		if err := validateReferences(ctx, tx, in.CategoryID, tagIDs); err != nil {
			return err
		}

		slug, err := EnsureUnique(ctx, tx, NamespaceArticles, baseSlug(title, "article"), "")
		if err != nil {
			return err
		}

		now := s.now()
		a := &Article{
			ID:         newID(),
			Title:      title,
			Slug:       slug,
			Content:    in.Content,
			Excerpt:    cloneString(in.Excerpt),
			Status:     StatusDraft,
			CategoryID: cloneString(in.CategoryID),
			AuthorID:   sess.ActorID,
			CreatedAt:  now,
			UpdatedAt:  now,
			TagIDs:     tagIDs,
		}
		if err := tx.InsertArticle(ctx, a); err != nil {
			return internal("insert article", err)
		}
		if len(tagIDs) > 0 {
			if err := tx.InsertArticleTags(ctx, a.ID, tagIDs); err != nil {
				return internal("insert article tags", err)
			}
		}

		plan := reconcilePlan{}
		if a.CategoryID != nil {
			plan.addCategories(*a.CategoryID)
		}
		plan.addTags(tagIDs...)
		if err := plan.run(ctx, tx); err != nil {
			return err
		}

		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, &AuditEntry{
		Session:   sess,
		Action:    AuditActionCreated,
		ArticleID: created.ID,
		NewStatus: created.Status,
		Metadata:  map[string]any{"slug": created.Slug},
	})
	return created, nil
}

// UpdateArticle applies a partial update. Content edits require SUPERVISOR+,
// any status change requires ADMIN+. When one part of the patch is not
// permitted the whole patch is rejected and the article is left unchanged.
func (s *Service) UpdateArticle(ctx context.Context, sess *Session, id string, patch ArticlePatch) (*Article, error) {
	if err := s.policy.Authorize(sess, ActionArticleEdit); err != nil {
		return nil, err
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var (
		updated *Article
		from    ArticleStatus
		changed []string
	)
	err := s.mutate(ctx, "UpdateArticle", func(ctx context.Context, tx Store) error {
		changed = nil

		current, err := s.loadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		from = current.Status

		to := current.Status
		if patch.Status != nil {
			to = *patch.Status
		}
		tr := Transition{From: current.Status, To: to}

		// Every permission check happens before the first write.
		if patch.touchesContent() || !tr.ChangesStatus() {
			if err := requireRoles(sess, "edit article", editorRoles); err != nil {
				return err
			}
		}
		if tr.ChangesStatus() {
			what := fmt.Sprintf("change article status from %s to %s", tr.From, tr.To)
			if err := requireRoles(sess, what, tr.RequiredRoles()); err != nil {
				return err
			}
			if err := s.policy.Authorize(sess, ActionArticleStatus); err != nil {
				return err
			}
		}

		var newTags []string
		if patch.TagIDs != nil {
			newTags = dedupe(*patch.TagIDs)
			if newTags == nil {
				newTags = []string{}
			}
		}
		if err := validateReferences(ctx, tx, patch.CategoryID, newTags); err != nil {
			return err
		}

		next := current.Clone()
		if patch.Title != nil && applyTitle(next, strings.TrimSpace(*patch.Title)) {
			slug, err := EnsureUnique(ctx, tx, NamespaceArticles, baseSlug(next.Title, "article"), next.ID)
			if err != nil {
				return err
			}
			next.Slug = slug
			changed = append(changed, "title")
			if slug != current.Slug {
				changed = append(changed, "slug")
			}
		}
		if patch.Content != nil && *patch.Content != next.Content {
			next.Content = *patch.Content
			changed = append(changed, "content")
		}
		switch {
		case patch.ClearExcerpt:
			next.Excerpt = nil
		case patch.Excerpt != nil:
			next.Excerpt = cloneString(patch.Excerpt)
		}
		if !equalStringPtr(current.Excerpt, next.Excerpt) {
			changed = append(changed, "excerpt")
		}
		switch {
		case patch.ClearCategory:
			next.CategoryID = nil
		case patch.CategoryID != nil:
			next.CategoryID = cloneString(patch.CategoryID)
		}

		now := s.now()
		ApplyTransition(next, to, now)
		next.UpdatedAt = now

		plan := reconcilePlan{}
		if cats := AffectedCategories(current.CategoryID, next.CategoryID); len(cats) > 0 {
			plan.addCategories(cats...)
			changed = append(changed, "category")
		}
		if newTags != nil {
			if affected := AffectedTags(current.TagIDs, newTags); len(affected) > 0 {
				plan.addTags(affected...)
				next.TagIDs = newTags
				changed = append(changed, "tags")
			}
		}
		if tr.ChangesStatus() {
			changed = append(changed, "status")
		}

		if err := tx.UpdateArticle(ctx, next); err != nil {
			return internal("update article", err)
		}
		if len(plan.tags) > 0 {
			if err := tx.DeleteArticleTags(ctx, next.ID); err != nil {
				return internal("delete article tags", err)
			}
			if len(newTags) > 0 {
				if err := tx.InsertArticleTags(ctx, next.ID, newTags); err != nil {
					return internal("insert article tags", err)
				}
			}
		}
		if err := plan.run(ctx, tx); err != nil {
			return err
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := AuditActionUpdated
	if from != updated.Status {
		action = AuditActionTransition
	}
	s.audit(ctx, &AuditEntry{
		Session:        sess,
		Action:         action,
		ArticleID:      updated.ID,
		PreviousStatus: from,
		NewStatus:      updated.Status,
		Metadata:       map[string]any{"changed": changed},
	})
	return updated, nil
}

// SoftDeleteArticle archives the article. It is the one move into ARCHIVED a
// SUPERVISOR may perform. The row and its tags stay, so no counter changes.
// Archiving an archived article is a no-op.
func (s *Service) SoftDeleteArticle(ctx context.Context, sess *Session, id string) (*Article, error) {
	if err := s.policy.Authorize(sess, ActionArticleArchive); err != nil {
		return nil, err
	}
	if err := requireRoles(sess, "archive article", editorRoles); err != nil {
		return nil, err
	}

	var (
		archived *Article
		from     ArticleStatus
	)
	err := s.mutate(ctx, "SoftDeleteArticle", func(ctx context.Context, tx Store) error {
		current, err := s.loadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		from = current.Status
		if current.Status == StatusArchived {
			archived = current
			return nil
		}

		next := current.Clone()
		now := s.now()
		ApplyTransition(next, StatusArchived, now)
		next.UpdatedAt = now
		if err := tx.UpdateArticle(ctx, next); err != nil {
			return internal("archive article", err)
		}
		archived = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if from != StatusArchived {
		s.audit(ctx, &AuditEntry{
			Session:        sess,
			Action:         AuditActionArchived,
			ArticleID:      archived.ID,
			PreviousStatus: from,
			NewStatus:      StatusArchived,
		})
	}
	return archived, nil
}

// HardDeleteArticle removes the article and its tag associations, then
// reconciles every tag it carried and its category.
func (s *Service) HardDeleteArticle(ctx context.Context, sess *Session, id string) error {
	if err := s.policy.Authorize(sess, ActionArticleDelete); err != nil {
		return err
	}
	if err := requireRoles(sess, "delete article", publisherRoles); err != nil {
		return err
	}

	var deleted *Article
	err := s.mutate(ctx, "HardDeleteArticle", func(ctx context.Context, tx Store) error {
		current, err := s.loadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := tx.DeleteArticleTags(ctx, current.ID); err != nil {
			return internal("delete article tags", err)
		}
		if err := tx.DeleteArticle(ctx, current.ID); err != nil {
			return internal("delete article", err)
		}

		plan := reconcilePlan{}
		if current.CategoryID != nil {
			plan.addCategories(*current.CategoryID)
		}
		plan.addTags(current.TagIDs...)
		if err := plan.run(ctx, tx); err != nil {
			return err
		}

		deleted = current
		return nil
	})
	if err != nil {
		return err
	}

	s.audit(ctx, &AuditEntry{
		Session:        sess,
		Action:         AuditActionDeleted,
		ArticleID:      deleted.ID,
		PreviousStatus: deleted.Status,
		Metadata:       map[string]any{"slug": deleted.Slug, "tags": deleted.TagIDs},
	})
	return nil
}

// GetArticle returns the article if the actor may see it. Invisible and
// missing articles both yield ErrNotFound. A successful read counts a view.
func (s *Service) GetArticle(ctx context.Context, sess *Session, id string) (*Article, error) {
	if err := s.policy.Authorize(sess, ActionArticleRead); err != nil {
		return nil, err
	}
	a, err := s.store.GetArticle(ctx, id, false)
	return s.visible(ctx, sess, a, err, id)
}

// GetArticleBySlug is GetArticle keyed by slug.
func (s *Service) GetArticleBySlug(ctx context.Context, sess *Session, slug string) (*Article, error) {
	if err := s.policy.Authorize(sess, ActionArticleRead); err != nil {
		return nil, err
	}
	a, err := s.store.GetArticleBySlug(ctx, slug)
	return s.visible(ctx, sess, a, err, slug)
}

func (s *Service) visible(ctx context.Context, sess *Session, a *Article, err error, key string) (*Article, error) {
	if err != nil {
		if IsNotFound(err) {
			return nil, notFound("article", key)
		}
		return nil, internal("get article", err)
	}
	if !PredicateFor(sess, nil).Matches(a) {
		return nil, notFound("article", key)
	}

	tags, err := s.store.ArticleTagIDs(ctx, a.ID)
	if err != nil {
		return nil, internal("get article tags", err)
	}
	a.TagIDs = tags

	if s.views != nil {
		s.views.Record(a.ID)
	}
	return a, nil
}

// ListArticles returns the articles matching filter that the actor may see,
// newest first. Listing does not count views.
func (s *Service) ListArticles(ctx context.Context, sess *Session, filter ArticleFilter) ([]*Article, error) {
	if err := s.policy.Authorize(sess, ActionArticleRead); err != nil {
		return nil, err
	}

	pred := PredicateFor(sess, filter.Status)
	if pred.MatchesNone() {
		return []*Article{}, nil
	}

	articles, err := s.store.ListArticles(ctx, pred, filter)
	if err != nil {
		return nil, internal("list articles", err)
	}
	for _, a := range articles {
		tags, err := s.store.ArticleTagIDs(ctx, a.ID)
		if err != nil {
			return nil, internal("get article tags", err)
		}
		a.TagIDs = tags
	}
	return articles, nil
}

// loadForUpdate locks the article row and loads its tag set.
func (s *Service) loadForUpdate(ctx context.Context, tx Store, id string) (*Article, error) {
	a, err := tx.GetArticle(ctx, id, true)
	if err != nil {
		if IsNotFound(err) {
			return nil, notFound("article", id)
		}
		return nil, internal("get article", err)
	}
	tags, err := tx.ArticleTagIDs(ctx, a.ID)
	if err != nil {
		return nil, internal("get article tags", err)
	}
	a.TagIDs = tags
	return a, nil
}
