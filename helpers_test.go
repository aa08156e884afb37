package lendkit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

var testEpoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// testClock is a settable clock for deterministic timestamps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequentialIDs returns ids "id-1", "id-2", ...
func sequentialIDs() IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type testEnv struct {
	ctx   context.Context
	store *MemoryStore
	clock *testClock
	kit   *Kit
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	store := NewMemoryStore()
	clock := newTestClock()
	opts = append([]Option{WithClock(clock.Now), WithIDGenerator(sequentialIDs())}, opts...)
	return &testEnv{
		ctx:   context.Background(),
		store: store,
		clock: clock,
		kit:   New(store, opts...),
	}
}

func (e *testEnv) addUser(t *testing.T, id string, role Role) *User {
	t.Helper()
	u := &User{
		ID:        id,
		Email:     id + "@example.com",
		Name:      id,
		Role:      role,
		CreatedAt: e.clock.Now(),
		UpdatedAt: e.clock.Now(),
	}
	require.NoError(t, e.store.Save(e.ctx, KindUser, u))
	return u
}

func (e *testEnv) addLibrary(t *testing.T, id string) *Library {
	t.Helper()
	l := &Library{ID: id, Name: "Library " + id, CreatedAt: e.clock.Now()}
	require.NoError(t, e.store.Save(e.ctx, KindLibrary, l))
	return l
}

func (e *testEnv) user(t *testing.T, id string) *User {
	t.Helper()
	u, err := e.kit.Roles.GetUser(e.ctx, id)
	require.NoError(t, err)
	return u
}

// faultyStore wraps an EntityStore and fails selected operations.
type faultyStore struct {
	EntityStore
	mu    sync.Mutex
	fail  map[string]Kind // operation -> kind ("" matches every kind)
	err   error
	calls []string
}

func newFaultyStore(inner EntityStore) *faultyStore {
	return &faultyStore{
		EntityStore: inner,
		fail:        make(map[string]Kind),
		err:         errors.New("connection reset by peer"),
	}
}

func (f *faultyStore) FailOn(op string, kind Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = kind
}

func (f *faultyStore) check(op string, kind Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+string(kind))
	k, ok := f.fail[op]
	if ok && (k == "" || k == kind) {
		return f.err
	}
	return nil
}

func (f *faultyStore) Get(ctx context.Context, kind Kind, id string) (Entity, error) {
	if err := f.check("get", kind); err != nil {
		return nil, err
	}
	return f.EntityStore.Get(ctx, kind, id)
}

func (f *faultyStore) Query(ctx context.Context, kind Kind, q Query) ([]Entity, error) {
	if err := f.check("query", kind); err != nil {
		return nil, err
	}
	return f.EntityStore.Query(ctx, kind, q)
}

func (f *faultyStore) Save(ctx context.Context, kind Kind, e Entity) error {
	if err := f.check("save", kind); err != nil {
		return err
	}
	return f.EntityStore.Save(ctx, kind, e)
}

func (f *faultyStore) BatchSave(ctx context.Context, kind Kind, es []Entity) error {
	if err := f.check("batchSave", kind); err != nil {
		return err
	}
	return f.EntityStore.BatchSave(ctx, kind, es)
}

func (f *faultyStore) BatchDelete(ctx context.Context, kind Kind, ids []string) error {
	if err := f.check("batchDelete", kind); err != nil {
		return err
	}
	return f.EntityStore.BatchDelete(ctx, kind, ids)
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
func requireDatabase(t testing.TB) {
	t.Helper()
	if !isDatabaseAvailable() {
		t.Log("Database not available - skipping test")
		t.Log("Set TEST_DATABASE_URL to run database tests")
		t.Skip("database not available")
	}
}

// setupTestDatabase connects to the test database, runs migrations and
// empties every lendkit table.
func setupTestDatabase(t testing.TB) (*dbkit.DBKit, *BunStore) {
	t.Helper()
	requireDatabase(t)

	ctx := context.Background()
	db, err := dbkit.New(dbkit.Config{URL: os.Getenv("TEST_DATABASE_URL")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewBunStore(db)
	_, err = db.Migrate(ctx, store.Migrations())
	require.NoError(t, err)

	for _, table := range []Kind{KindAuditEntry, KindLibraryAssignment, KindLibrary, KindUser} {
		_, err := db.NewRaw("DELETE FROM ?", bun.Ident(string(table))).Exec(ctx)
		require.NoError(t, err)
	}
	return db, store
}

// hookStore runs a callback before the first matching query, modelling a
// concurrent writer that interleaves with a read-then-write operation.
type hookStore struct {
	EntityStore
	once   sync.Once
	kind   Kind
	before func()
}

func (h *hookStore) Query(ctx context.Context, kind Kind, q Query) ([]Entity, error) {
	if kind == h.kind {
		h.once.Do(h.before)
	}
	return h.EntityStore.Query(ctx, kind, q)
}
