package deskguard

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/stretchr/testify/require"
)

// testClock advances one second on every call so creation order is stable.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// testEnv bundles a service over a MemoryStore with one session per role.
type testEnv struct {
	svc        *Service
	store      *MemoryStore
	clock      *testClock
	agent      *Session
	agent2     *Session
	supervisor *Session
	admin      *Session
	superAdmin *Session
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	store := NewMemoryStore()
	clock := newTestClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)

	return &testEnv{
		svc:        NewService(store, nil, opts...),
		store:      store,
		clock:      clock,
		agent:      NewSession("agent-1", RoleAgent),
		agent2:     NewSession("agent-2", RoleAgent),
		supervisor: NewSession("supervisor-1", RoleSupervisor),
		admin:      NewSession("admin-1", RoleAdmin),
		superAdmin: NewSession("root-1", RoleSuperAdmin),
	}
}

func (e *testEnv) category(t *testing.T, name string) *Category {
	t.Helper()
	c, err := e.svc.CreateCategory(context.Background(), e.supervisor, CategoryInput{Name: name})
	require.NoError(t, err)
	return c
}

func (e *testEnv) tag(t *testing.T, name string) *Tag {
	t.Helper()
	tag, err := e.svc.CreateTag(context.Background(), e.supervisor, name)
	require.NoError(t, err)
	return tag
}

func (e *testEnv) draft(t *testing.T, sess *Session, in ArticleInput) *Article {
	t.Helper()
	if in.Content == "" {
		in.Content = "Body of " + in.Title
	}
	a, err := e.svc.CreateArticle(context.Background(), sess, in)
	require.NoError(t, err)
	return a
}

func (e *testEnv) publish(t *testing.T, id string) *Article {
	t.Helper()
	status := StatusPublished
	a, err := e.svc.UpdateArticle(context.Background(), e.admin, id, ArticlePatch{Status: &status})
	require.NoError(t, err)
	return a
}

func (e *testEnv) tagCount(t *testing.T, id string) int {
	t.Helper()
	tag, err := e.store.GetTag(context.Background(), id)
	require.NoError(t, err)
	return tag.ArticleCount
}

func (e *testEnv) categoryCount(t *testing.T, id string) int {
	t.Helper()
	c, err := e.store.GetCategory(context.Background(), id)
	require.NoError(t, err)
	return c.ArticleCount
}

func statusPtr(s ArticleStatus) *ArticleStatus {
	return &s
}

func strPtr(s string) *string {
	return &s
}

// isDatabaseAvailable checks if the test database is available
func isDatabaseAvailable() bool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := dbkit.New(dbkit.Config{URL: dbURL})
	if err != nil {
		return false
	}
	defer db.Close()

	return db.PingContext(ctx) == nil
}

// requireDatabase skips the test if database is not available
// Use this as: if !requireDatabase(t) { return }
func requireDatabase(t testing.TB) bool {
	if !isDatabaseAvailable() {
		t.Log("Database not available - set TEST_DATABASE_URL to run this test")
		t.Skip("database not available")
		return false
	}
	return true
}
