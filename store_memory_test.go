package lendkit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEntries(t *testing.T, store EntityStore, n int) {
	t.Helper()
	ctx := context.Background()
	for i := range n {
		require.NoError(t, store.Save(ctx, KindAuditEntry, &AuditEntry{
			ID:        fmt.Sprintf("e-%02d", i),
			UserID:    fmt.Sprintf("u-%d", i%3),
			Action:    AuditActionRoleChange,
			OldRole:   RoleUser,
			NewRole:   Roles[i%len(Roles)],
			ChangedBy: "admin",
			Timestamp: testEpoch.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func entryIDs(rows []Entity) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.EntityID())
	}
	return ids
}

// TestMemoryStoreGetSave tests basic storage
func TestMemoryStoreGetSave(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Get(ctx, KindUser, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Save(ctx, KindUser, &User{ID: "u1", Email: "a@example.com", Role: RoleUser}))
	require.NoError(t, store.Save(ctx, KindUser, &User{ID: "u1", Email: "b@example.com", Role: RoleAdmin}))
	assert.Equal(t, 1, store.Len(KindUser))

	got, err = store.Get(ctx, KindUser, "u1")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, got.(*User).Role)
	assert.Equal(t, 2, store.Writes())

	err = store.Save(ctx, KindUser, &User{})
	assert.True(t, IsValidation(err))
}

// TestMemoryStoreIsolation tests that callers never share memory with stored entities
func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	u := &User{ID: "u1", Role: RoleUser}
	require.NoError(t, store.Save(ctx, KindUser, u))
	u.Role = RoleAdmin

	got, err := store.Get(ctx, KindUser, "u1")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, got.(*User).Role)

	got.(*User).Role = RoleLibrarian
	again, err := store.Get(ctx, KindUser, "u1")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, again.(*User).Role)
}

// TestMemoryStoreQueryFilters tests every filter operator
func TestMemoryStoreQueryFilters(t *testing.T) {
	store := NewMemoryStore()
	seedEntries(t, store, 9)
	mid := testEpoch.Add(4 * time.Minute)

	tests := []struct {
		name  string
		query Query
		want  int
	}{
		{"eq string", NewQuery().WhereEq("user_id", "u-0"), 3},
		{"eq named string", NewQuery().WhereEq("new_role", RoleAdmin), 3},
		{"eq plain string against role", NewQuery().WhereEq("new_role", "ADMIN"), 3},
		{"ne", NewQuery().Where("user_id", OpNe, "u-0"), 6},
		{"lt time", NewQuery().Where("timestamp", OpLt, mid), 4},
		{"lte time", NewQuery().Where("timestamp", OpLte, mid), 5},
		{"gt time", NewQuery().Where("timestamp", OpGt, mid), 4},
		{"gte time", NewQuery().Where("timestamp", OpGte, mid), 5},
		{"combined", NewQuery().WhereEq("user_id", "u-1").Where("timestamp", OpGt, mid), 1},
		{"no filters", NewQuery(), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := store.Query(context.Background(), KindAuditEntry, tt.query)
			require.NoError(t, err)
			assert.Len(t, rows, tt.want)
		})
	}
}

// TestMemoryStoreQueryOrdering tests sorting and pagination
func TestMemoryStoreQueryOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedEntries(t, store, 6)

	rows, err := store.Query(ctx, KindAuditEntry, NewQuery().OrderBy("timestamp", Desc).WithLimit(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"e-05", "e-04", "e-03"}, entryIDs(rows))

	rows, err = store.Query(ctx, KindAuditEntry, NewQuery().OrderBy("timestamp", Desc).WithPagination(2, 4))
	require.NoError(t, err)
	assert.Equal(t, []string{"e-01", "e-00"}, entryIDs(rows))

	rows, err = store.Query(ctx, KindAuditEntry, NewQuery().WithOffset(10))
	require.NoError(t, err)
	assert.Empty(t, rows)

	// Multiple keys: user asc, then timestamp desc.
	rows, err = store.Query(ctx, KindAuditEntry, NewQuery().
		OrderBy("user_id", Asc).
		OrderBy("timestamp", Desc))
	require.NoError(t, err)
	assert.Equal(t, []string{"e-03", "e-00", "e-04", "e-01", "e-05", "e-02"}, entryIDs(rows))

	// Without ordering, insertion order is kept.
	rows, err = store.Query(ctx, KindAuditEntry, NewQuery().WithLimit(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"e-00", "e-01"}, entryIDs(rows))
}

// TestMemoryStoreQueryErrors tests malformed queries
func TestMemoryStoreQueryErrors(t *testing.T) {
	store := NewMemoryStore()
	seedEntries(t, store, 1)

	tests := []struct {
		name  string
		query Query
	}{
		{"unknown field", NewQuery().WhereEq("nope", "x")},
		{"unknown operator", NewQuery().Where("user_id", Op("LIKE"), "x")},
		{"empty field", NewQuery().WhereEq("", "x")},
		{"bad direction", NewQuery().OrderBy("timestamp", Direction("up"))},
		{"negative limit", NewQuery().WithLimit(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Query(context.Background(), KindAuditEntry, tt.query)
			assert.True(t, IsValidation(err), "got %v", err)
		})
	}
}

// TestMemoryStoreBatch tests batch writes and deletes
func TestMemoryStoreBatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.BatchSave(ctx, KindLibrary, []Entity{
		&Library{ID: "a"}, &Library{ID: "b"}, &Library{ID: "c"},
	}))
	assert.Equal(t, 3, store.Len(KindLibrary))

	err := store.BatchSave(ctx, KindLibrary, []Entity{&Library{ID: "d"}, &Library{}})
	assert.True(t, IsValidation(err))
	assert.Equal(t, 3, store.Len(KindLibrary), "rejected batch writes nothing")

	require.NoError(t, store.BatchDelete(ctx, KindLibrary, []string{"a", "c", "missing"}))
	require.NoError(t, store.Delete(ctx, KindLibrary, "missing"))
	rows, err := store.Query(ctx, KindLibrary, NewQuery())
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, entryIDs(rows))
}

// TestMemoryStoreCancelledContext tests that a cancelled context is honoured
func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore()

	_, err := store.Get(ctx, KindUser, "u1")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = store.Query(ctx, KindUser, NewQuery())
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Save(ctx, KindUser, &User{ID: "u1"}), context.Canceled)
	assert.ErrorIs(t, store.BatchDelete(ctx, KindUser, []string{"u1"}), context.Canceled)
	assert.Zero(t, store.Writes())
}

// TestQueryBuilderImmutability tests that derived queries do not share filters or sort keys
func TestQueryBuilderImmutability(t *testing.T) {
	base := NewQuery().WhereEq("user_id", "u1").OrderBy("timestamp", Desc)
	a := base.WhereEq("new_role", RoleAdmin).OrderBy("id", Asc)
	b := base.WhereEq("new_role", RoleUser).OrderBy("id", Desc)

	assert.Len(t, base.Filters, 1)
	assert.Equal(t, RoleAdmin, a.Filters[1].Value)
	assert.Equal(t, RoleUser, b.Filters[1].Value)

	assert.Equal(t, []Order{{Field: "timestamp", Direction: Desc}}, base.Sort)
	assert.Equal(t, Order{Field: "id", Direction: Asc}, a.Sort[1])
	assert.Equal(t, Order{Field: "id", Direction: Desc}, b.Sort[1])
}

// TestCompareValues tests value ordering across types
func TestCompareValues(t *testing.T) {
	assert.Equal(t, 0, compareValues(RoleAdmin, "ADMIN"))
	assert.Equal(t, -1, compareValues("a", "b"))
	assert.Equal(t, 1, compareValues(int64(3), 2))
	assert.Equal(t, -1, compareValues(1.5, 2.0))
	assert.Equal(t, -1, compareValues(testEpoch, testEpoch.Add(time.Nanosecond)))
}
