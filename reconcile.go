package deskguard

import (
	"context"
	"fmt"
	"sort"
)

// EntityKind names an aggregate carrying a denormalised article count.
type EntityKind string

const (
	KindCategory EntityKind = "category"
	KindTag      EntityKind = "tag"
)

// Reconcile recomputes article_count of one category or tag from the
// association data and overwrites the stored value. It never adjusts the
// counter in place, so a missed call cannot leave drift behind.
// It must run inside the transaction of the mutation that triggered it.
func Reconcile(ctx context.Context, tx TaxonomyStore, kind EntityKind, id string) error {
	switch kind {
	case KindCategory:
		n, err := tx.CountArticlesByCategory(ctx, id)
		if err != nil {
			return internal("count category articles", err)
		}
		return internal("set category count", tx.SetCategoryArticleCount(ctx, id, n))
	case KindTag:
		n, err := tx.CountArticlesByTag(ctx, id)
		if err != nil {
			return internal("count tag articles", err)
		}
		return internal("set tag count", tx.SetTagArticleCount(ctx, id, n))
	default:
		return NewError(ErrValidation, fmt.Sprintf("unknown entity kind %q", kind))
	}
}

// AffectedTags returns the symmetric difference of two tag sets, sorted.
// Tags present in both sets keep their count and are left alone.
func AffectedTags(before, after []string) []string {
	in := func(set []string) map[string]struct{} {
		m := make(map[string]struct{}, len(set))
		for _, id := range set {
			m[id] = struct{}{}
		}
		return m
	}
	b, a := in(before), in(after)

	var out []string
	for id := range b {
		if _, ok := a[id]; !ok {
			out = append(out, id)
		}
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// AffectedCategories returns the categories whose count changes when an
// article moves from before to after. Null sides are skipped.
func AffectedCategories(before, after *string) []string {
	if equalStringPtr(before, after) {
		return nil
	}
	var out []string
	if before != nil {
		out = append(out, *before)
	}
	if after != nil {
		out = append(out, *after)
	}
	return out
}

// reconcilePlan collects the aggregates touched by one mutation.
type reconcilePlan struct {
	categories []string
	tags       []string
}

func (p *reconcilePlan) addCategories(ids ...string) {
	p.categories = append(p.categories, ids...)
}

func (p *reconcilePlan) addTags(ids ...string) {
	p.tags = append(p.tags, ids...)
}

// run reconciles each affected aggregate exactly once.
func (p *reconcilePlan) run(ctx context.Context, tx TaxonomyStore) error {
	for _, id := range dedupe(p.categories) {
		if err := Reconcile(ctx, tx, KindCategory, id); err != nil {
			return err
		}
	}
	for _, id := range dedupe(p.tags) {
		if err := Reconcile(ctx, tx, KindTag, id); err != nil {
			return err
		}
	}
	return nil
}

// CounterDrift describes one aggregate whose stored count was wrong.
type CounterDrift struct {
	Kind     EntityKind
	ID       string
	Name     string
	Stored   int
	Computed int
}

// ReconcileReport summarises a full reconciliation pass.
type ReconcileReport struct {
	Categories int
	Tags       int
	Drift      []CounterDrift
}

// ReconcileAll recomputes every category and tag counter in one transaction
// and reports the ones that had drifted. It is an operator repair tool; the
// regular mutation paths keep counters exact on their own.
func (s *Service) ReconcileAll(ctx context.Context, sess *Session) (*ReconcileReport, error) {
	if err := s.policy.Authorize(sess, ActionCountersReconcile); err != nil {
		return nil, err
	}

	report := &ReconcileReport{}
	err := s.mutate(ctx, "ReconcileAll", func(ctx context.Context, tx Store) error {
		*report = ReconcileReport{}

		categories, err := tx.ListCategories(ctx)
		if err != nil {
			return internal("list categories", err)
		}
		for _, c := range categories {
			n, err := tx.CountArticlesByCategory(ctx, c.ID)
			if err != nil {
				return internal("count category articles", err)
			}
			if n != c.ArticleCount {
				report.Drift = append(report.Drift, CounterDrift{Kind: KindCategory, ID: c.ID, Name: c.Name, Stored: c.ArticleCount, Computed: n})
			}
			if err := tx.SetCategoryArticleCount(ctx, c.ID, n); err != nil {
				return internal("set category count", err)
			}
			report.Categories++
		}

		tags, err := tx.ListTags(ctx)
		if err != nil {
			return internal("list tags", err)
		}
		for _, t := range tags {
			n, err := tx.CountArticlesByTag(ctx, t.ID)
			if err != nil {
				return internal("count tag articles", err)
			}
			if n != t.ArticleCount {
				report.Drift = append(report.Drift, CounterDrift{Kind: KindTag, ID: t.ID, Name: t.Name, Stored: t.ArticleCount, Computed: n})
			}
			if err := tx.SetTagArticleCount(ctx, t.ID, n); err != nil {
				return internal("set tag count", err)
			}
			report.Tags++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("categories", report.Categories).
		Int("tags", report.Tags).
		Int("drift", len(report.Drift)).
		Msg("counters reconciled")
	return report, nil
}
