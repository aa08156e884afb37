package lendkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLibraryEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv(t)
	env.addUser(t, "admin", RoleAdmin)
	env.addUser(t, "librarian", RoleLibrarian)
	env.addUser(t, "reader", RoleUser)
	for _, id := range []string{"lib-a", "lib-b", "lib-c"} {
		env.addLibrary(t, id)
	}
	return env
}

// TestAssignLibrariesRoundTrip tests that a valid set is stored and read back exactly
func TestAssignLibrariesRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "single", input: []string{"lib-a"}, expected: []string{"lib-a"}},
		{name: "several keep input order", input: []string{"lib-c", "lib-a"}, expected: []string{"lib-c", "lib-a"}},
		{name: "duplicates stored once", input: []string{"lib-b", "lib-b", "lib-a"}, expected: []string{"lib-b", "lib-a"}},
		{name: "empty revokes", input: []string{}, expected: []string{}},
		{name: "nil revokes", input: nil, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newLibraryEnv(t)
			ctx := WithActorID(env.ctx, "admin")

			require.NoError(t, env.kit.Libraries.AssignLibraries(ctx, "librarian", tt.input))

			ids, err := env.kit.Libraries.GetAssignedLibraries(ctx, "librarian")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids)
			assert.Equal(t, len(tt.expected), env.store.Len(KindLibraryAssignment))
		})
	}
}

// TestAssignLibrariesReplacesSet tests full replacement without merging
func TestAssignLibrariesReplacesSet(t *testing.T) {
	env := newLibraryEnv(t)

	require.NoError(t, env.kit.Libraries.AssignLibraries(env.ctx, "librarian", []string{"lib-a", "lib-b"}))
	env.clock.Advance(time.Minute)
	require.NoError(t, env.kit.Libraries.AssignLibraries(env.ctx, "librarian", []string{"lib-c"}))

	ids, err := env.kit.Libraries.GetAssignedLibraries(env.ctx, "librarian")
	require.NoError(t, err)
	assert.Equal(t, []string{"lib-c"}, ids)
	assert.Equal(t, 1, env.store.Len(KindLibraryAssignment))

	require.NoError(t, env.kit.Libraries.AssignLibraries(env.ctx, "librarian", nil))
	ids, err = env.kit.Libraries.GetAssignedLibraries(env.ctx, "librarian")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, env.store.Len(KindLibraryAssignment))
}

// TestAssignLibrariesRecordsActor tests the metadata written on each row
func TestAssignLibrariesRecordsActor(t *testing.T) {
	env := newLibraryEnv(t)
	ctx := WithActorID(env.ctx, "admin")

	require.NoError(t, env.kit.Libraries.AssignLibraries(ctx, "librarian", []string{"lib-a"}))

	rows, err := queryAs[LibraryAssignment](env.ctx, env.store, KindLibraryAssignment, NewQuery())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].ID)
	assert.Equal(t, "librarian", rows[0].UserID)
	assert.Equal(t, "lib-a", rows[0].LibraryID)
	assert.Equal(t, "admin", rows[0].AssignedBy)
	assert.Equal(t, env.clock.Now(), rows[0].AssignedAt)
}

// TestAssignLibrariesNonLibrarian tests that only librarians receive libraries
func TestAssignLibrariesNonLibrarian(t *testing.T) {
	for _, id := range []string{"reader", "admin"} {
		t.Run(id, func(t *testing.T) {
			env := newLibraryEnv(t)
			writes := env.store.Writes()

			err := env.kit.Libraries.AssignLibraries(env.ctx, id, []string{"lib-a"})

			require.Error(t, err)
			assert.Equal(t, MsgOnlyLibrarians, err.Error())
			assert.True(t, IsValidation(err))
			assert.Equal(t, writes, env.store.Writes())
		})
	}
}

// TestAssignLibrariesUserNotFound tests the missing user path
func TestAssignLibrariesUserNotFound(t *testing.T) {
	env := newLibraryEnv(t)
	writes := env.store.Writes()

	err := env.kit.Libraries.AssignLibraries(env.ctx, "ghost", []string{"lib-a"})

	require.Error(t, err)
	assert.Equal(t, MsgUserNotFound, err.Error())
	assert.True(t, IsNotFound(err))
	assert.Equal(t, writes, env.store.Writes())
}

// TestAssignLibrariesInvalidIDs tests the unknown library message and that nothing is written
func TestAssignLibrariesInvalidIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		message string
		missing []string
	}{
		{
			name:    "single unknown",
			input:   []string{"lib-x"},
			message: "Invalid library IDs: lib-x",
			missing: []string{"lib-x"},
		},
		{
			name:    "mixed keeps input order",
			input:   []string{"lib-z", "lib-a", "lib-y"},
			message: "Invalid library IDs: lib-z, lib-y",
			missing: []string{"lib-z", "lib-y"},
		},
		{
			name:    "duplicates reported once",
			input:   []string{"lib-x", "lib-b", "lib-x"},
			message: "Invalid library IDs: lib-x",
			missing: []string{"lib-x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newLibraryEnv(t)
			require.NoError(t, env.kit.Libraries.AssignLibraries(env.ctx, "librarian", []string{"lib-c"}))
			writes := env.store.Writes()

			err := env.kit.Libraries.AssignLibraries(env.ctx, "librarian", tt.input)

			require.Error(t, err)
			assert.Equal(t, tt.message, err.Error())
			assert.True(t, IsValidation(err))

			var le *Error
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.missing, le.LibraryIDs)
			assert.Equal(t, writes, env.store.Writes())

			ids, err := env.kit.Libraries.GetAssignedLibraries(env.ctx, "librarian")
			require.NoError(t, err)
			assert.Equal(t, []string{"lib-c"}, ids)
		})
	}
}

// TestGetAssignedLibrariesIgnoresRole tests that stale rows are still returned
func TestGetAssignedLibrariesIgnoresRole(t *testing.T) {
	env := newLibraryEnv(t)
	require.NoError(t, env.kit.Libraries.AssignLibraries(env.ctx, "librarian", []string{"lib-a"}))

	res := env.kit.Roles.AssignRole(env.ctx, "admin", "librarian", RoleUser)
	require.True(t, res.Success)

	ids, err := env.kit.Libraries.GetAssignedLibraries(env.ctx, "librarian")
	require.NoError(t, err)
	assert.Equal(t, []string{"lib-a"}, ids)

	missing, err := env.kit.Libraries.GetAssignedLibraries(env.ctx, "ghost")
	require.NoError(t, err)
	assert.NotNil(t, missing)
	assert.Empty(t, missing)
}

// TestAssignLibrariesStoreFailure tests that store errors are classified and
// that a failed save keeps the previous set
func TestAssignLibrariesStoreFailure(t *testing.T) {
	env := newLibraryEnv(t)
	require.NoError(t, env.kit.Libraries.AssignLibraries(env.ctx, "librarian", []string{"lib-a"}))

	faulty := newFaultyStore(env.store)
	faulty.FailOn("batchSave", KindLibraryAssignment)
	libraries := New(faulty).Libraries

	err := libraries.AssignLibraries(env.ctx, "librarian", []string{"lib-a", "lib-b"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)

	ids, err := env.kit.Libraries.GetAssignedLibraries(env.ctx, "librarian")
	require.NoError(t, err)
	assert.Equal(t, []string{"lib-a"}, ids)
	assert.Equal(t, 1, env.store.Len(KindLibraryAssignment))
}

// TestAssignLibrariesDeleteFailure tests that a failed delete keeps the new set readable
func TestAssignLibrariesDeleteFailure(t *testing.T) {
	env := newLibraryEnv(t)
	require.NoError(t, env.kit.Libraries.AssignLibraries(env.ctx, "librarian", []string{"lib-a"}))

	faulty := newFaultyStore(env.store)
	faulty.FailOn("batchDelete", KindLibraryAssignment)
	libraries := New(faulty).Libraries

	err := libraries.AssignLibraries(env.ctx, "librarian", []string{"lib-b"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)

	ids, err := env.kit.Libraries.GetAssignedLibraries(env.ctx, "librarian")
	require.NoError(t, err)
	assert.Contains(t, ids, "lib-b")
}

// TestGetAssignedLibrariesPositionOrder tests that rows sharing a timestamp
// come back in the order they were assigned
func TestGetAssignedLibrariesPositionOrder(t *testing.T) {
	env := newLibraryEnv(t)
	now := env.clock.Now()
	rows := []Entity{
		&LibraryAssignment{ID: "la-2", UserID: "librarian", LibraryID: "lib-c", AssignedAt: now, Position: 2},
		&LibraryAssignment{ID: "la-0", UserID: "librarian", LibraryID: "lib-b", AssignedAt: now, Position: 0},
		&LibraryAssignment{ID: "la-1", UserID: "librarian", LibraryID: "lib-a", AssignedAt: now, Position: 1},
	}
	require.NoError(t, env.store.BatchSave(env.ctx, KindLibraryAssignment, rows))

	ids, err := env.kit.Libraries.GetAssignedLibraries(env.ctx, "librarian")

	require.NoError(t, err)
	assert.Equal(t, []string{"lib-b", "lib-a", "lib-c"}, ids)
}
