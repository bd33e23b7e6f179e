package deskguard

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// racingStore simulates concurrent writers winning the slug race.
type racingStore struct {
	*MemoryStore
	collisions int
}

func (s *racingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.MemoryStore.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		return fn(ctx, &racingTx{Store: tx, parent: s})
	})
}

type racingTx struct {
	Store
	parent *racingStore
}

func (t *racingTx) InsertArticle(ctx context.Context, a *Article) error {
	if t.parent.collisions > 0 {
		t.parent.collisions--
		return NewError(ErrSlugTaken, a.Slug).WithEntity("article", a.ID)
	}
	return t.Store.InsertArticle(ctx, a)
}

// brokenStore fails selected writes with a storage error.
type brokenStore struct {
	*MemoryStore
	failInsert bool
	failAudit  bool
}

func (s *brokenStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.MemoryStore.WithinTx(ctx, func(ctx context.Context, tx Store) error {
		return fn(ctx, &brokenTx{Store: tx, parent: s})
	})
}

func (s *brokenStore) InsertAudit(ctx context.Context, entry *ArticleAuditLog) error {
	if s.failAudit {
		return errors.New("audit table unavailable")
	}
	return s.MemoryStore.InsertAudit(ctx, entry)
}

type brokenTx struct {
	Store
	parent *brokenStore
}

func (t *brokenTx) InsertArticle(ctx context.Context, a *Article) error {
	if t.parent.failInsert {
		return errors.New("connection reset")
	}
	return t.Store.InsertArticle(ctx, a)
}

// TestNewService tests constructor defaults
func TestNewService(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	require.NotNil(t, svc.Policy())
	assert.True(t, svc.Policy().Registry().Can(NewRoleSet(RoleAdmin), ActionArticleStatus))
	assert.NoError(t, svc.Close(context.Background()))
	assert.True(t, svc.IsMutationHealthy())
}

// TestSlugRaceRetry tests that a lost slug race is retried in a fresh transaction
func TestSlugRaceRetry(t *testing.T) {
	ctx := context.Background()
	sess := NewSession("supervisor-1", RoleSupervisor)

	t.Run("Succeeds after transient collisions", func(t *testing.T) {
		store := &racingStore{MemoryStore: NewMemoryStore(), collisions: 2}
		svc := NewService(store, nil)

		a, err := svc.CreateArticle(ctx, sess, ArticleInput{Title: "Race", Content: "x"})
		require.NoError(t, err)
		assert.Equal(t, "race", a.Slug)
		assert.Equal(t, 0, store.collisions)

		list, err := svc.ListArticles(ctx, sess, NewArticleFilter())
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("Gives up with a conflict", func(t *testing.T) {
		store := &racingStore{MemoryStore: NewMemoryStore(), collisions: 100}
		svc := NewService(store, nil)

		_, err := svc.CreateArticle(ctx, sess, ArticleInput{Title: "Race", Content: "x"})
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, 100-maxSlugAttempts, store.collisions)
		assert.Equal(t, 409, HTTPStatus(err))

		m := svc.MutationMetrics()
		assert.Equal(t, int64(1), m.TotalMutations)
		assert.Equal(t, int64(1), m.RejectedMutations)
	})
}

// TestMutationMetrics tests committed, rejected and failed accounting
func TestMutationMetrics(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{MemoryStore: NewMemoryStore()}
	svc := NewService(store, nil)
	sess := NewSession("supervisor-1", RoleSupervisor)

	_, err := svc.CreateArticle(ctx, sess, ArticleInput{Title: "Ok", Content: "x"})
	require.NoError(t, err)

	_, err = svc.UpdateArticle(ctx, sess, "missing", ArticlePatch{Content: strPtr("y")})
	require.ErrorIs(t, err, ErrNotFound)

	m := svc.MutationMetrics()
	assert.Equal(t, int64(2), m.TotalMutations)
	assert.Equal(t, int64(1), m.CommittedMutations)
	assert.Equal(t, int64(1), m.RejectedMutations)
	assert.Equal(t, int64(0), m.FailedMutations)
	assert.True(t, svc.IsMutationHealthy())

	store.failInsert = true
	_, err = svc.CreateArticle(ctx, sess, ArticleInput{Title: "Broken", Content: "x"})
	require.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, 500, HTTPStatus(err))

	m = svc.MutationMetrics()
	assert.Equal(t, int64(1), m.FailedMutations)
	assert.False(t, svc.IsMutationHealthy())

	svc.ResetMutationMetrics()
	m = svc.MutationMetrics()
	assert.Equal(t, int64(0), m.TotalMutations)
	assert.Equal(t, int64(0), int64(m.MinDuration))
	assert.True(t, svc.IsMutationHealthy())
}

// TestAuditLog tests audit entries written after each mutation
func TestAuditLog(t *testing.T) {
	ctx := WithAuditContext(context.Background(), AuditContext{
		IPAddress: "10.0.0.7",
		UserAgent: "helpdesk-ui/2.1",
		RequestID: "req-42",
	})
	env := newTestEnv(t)

	a := env.draft(t, env.supervisor, ArticleInput{Title: "Audited"})
	_, err := env.svc.UpdateArticle(ctx, env.supervisor, a.ID, ArticlePatch{Title: strPtr("Audited twice")})
	require.NoError(t, err)
	_, err = env.svc.UpdateArticle(ctx, env.admin, a.ID, ArticlePatch{Status: statusPtr(StatusPublished)})
	require.NoError(t, err)
	_, err = env.svc.SoftDeleteArticle(ctx, env.supervisor, a.ID)
	require.NoError(t, err)
	_, err = env.svc.SoftDeleteArticle(ctx, env.supervisor, a.ID)
	require.NoError(t, err)
	require.NoError(t, env.svc.HardDeleteArticle(ctx, env.admin, a.ID))

	logs, err := env.svc.GetAuditLog(ctx, env.admin, NewAuditLogFilter().WithArticle(a.ID))
	require.NoError(t, err)
	require.Len(t, logs, 5)

	actions := make([]string, len(logs))
	for i, l := range logs {
		actions[i] = l.Action
	}
	assert.Equal(t, []string{"deleted", "archived", "transitioned", "updated", "created"}, actions)

	transition := logs[2]
	assert.Equal(t, "admin-1", transition.ActorID)
	assert.Equal(t, []string{"admin"}, transition.ActorRoles)
	assert.Equal(t, "draft", transition.PreviousStatus)
	assert.Equal(t, "published", transition.NewStatus)
	assert.Equal(t, "10.0.0.7", transition.IPAddress)
	assert.Equal(t, "helpdesk-ui/2.1", transition.UserAgent)
	assert.Equal(t, "req-42", transition.RequestID)

	assert.Equal(t, []string{"title", "slug"}, logs[3].Metadata["changed"])
	assert.Equal(t, "audited", logs[4].Metadata["slug"])
	assert.Empty(t, logs[4].RequestID)

	t.Run("Filter by action", func(t *testing.T) {
		logs, err := env.svc.GetAuditLog(ctx, env.admin, NewAuditLogFilter().WithAction(AuditActionCreated))
		require.NoError(t, err)
		assert.Len(t, logs, 1)
	})

	t.Run("Requires admin", func(t *testing.T) {
		_, err := env.svc.GetAuditLog(ctx, env.supervisor, NewAuditLogFilter())
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

// TestAuditFailureDoesNotFailMutation tests that a lost audit row is only logged
func TestAuditFailureDoesNotFailMutation(t *testing.T) {
	var buf bytes.Buffer
	store := &brokenStore{MemoryStore: NewMemoryStore(), failAudit: true}
	svc := NewService(store, nil, WithLogger(zerolog.New(&buf)))

	a, err := svc.CreateArticle(context.Background(), NewSession("supervisor-1", RoleSupervisor), ArticleInput{Title: "Kept", Content: "x"})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Contains(t, buf.String(), "audit write failed")
	assert.Contains(t, buf.String(), a.ID)
}
