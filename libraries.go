package lendkit

import (
	"context"
	"log/slog"
	"slices"
)

// LibraryAssignmentManager owns the set of libraries each librarian administers.
// Sets are replaced wholesale; rows survive role changes and are only
// interpreted by the AccessPolicyEvaluator.
type LibraryAssignmentManager struct {
	store  EntityStore
	clock  Clock
	newID  IDGenerator
	logger *slog.Logger
}

// NewLibraryAssignmentManager creates a manager over a store.
func NewLibraryAssignmentManager(store EntityStore, opts ...Option) *LibraryAssignmentManager {
	return newLibraryAssignmentManager(store, buildOptions(opts))
}

func newLibraryAssignmentManager(store EntityStore, o options) *LibraryAssignmentManager {
	return &LibraryAssignmentManager{
		store:  store,
		clock:  o.clock,
		newID:  o.newID,
		logger: o.logger,
	}
}

// AssignLibraries replaces the library set of a librarian. An empty slice
// revokes every assignment. Duplicate ids are stored once.
//
// The acting user recorded on each row is taken from the context (WithActorID).
//
// Example:
//
//	ctx = lendkit.WithActorID(ctx, adminID)
//	err := libraries.AssignLibraries(ctx, librarianID, []string{"lib-north", "lib-south"})
//	if lendkit.IsValidation(err) {
//	    // unknown library or not a librarian
//	}
func (m *LibraryAssignmentManager) AssignLibraries(ctx context.Context, userID string, libraryIDs []string) error {
	user, err := getAs[User](ctx, m.store, KindUser, userID)
	if err != nil {
		return wrapStore("load user", err)
	}
	if user == nil {
		return NewError(ErrNotFound, MsgUserNotFound).WithUser(userID)
	}
	if user.Role != RoleLibrarian {
		return NewError(ErrValidation, MsgOnlyLibrarians).WithUser(userID)
	}

	wanted := dedupe(libraryIDs)
	var missing []string
	for _, id := range wanted {
		lib, err := m.store.Get(ctx, KindLibrary, id)
		if err != nil {
			return wrapStore("load library", err)
		}
		if lib == nil {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return invalidLibraryIDsError(missing).WithUser(userID)
	}

	existing, err := m.assignments(ctx, userID)
	if err != nil {
		return err
	}

	// New rows are written before the old ones are removed, so a failed save
	// leaves the previous set in place.
	if len(wanted) > 0 {
		now := m.clock()
		actorID := GetActorID(ctx)
		rows := make([]Entity, 0, len(wanted))
		for i, id := range wanted {
			rows = append(rows, &LibraryAssignment{
				ID:         m.newID(),
				UserID:     userID,
				LibraryID:  id,
				AssignedAt: now,
				AssignedBy: actorID,
				Position:   i,
			})
		}
		if err := m.store.BatchSave(ctx, KindLibraryAssignment, rows); err != nil {
			return wrapStore("save library assignments", err)
		}
	}

	if len(existing) > 0 {
		ids := make([]string, 0, len(existing))
		for _, a := range existing {
			ids = append(ids, a.ID)
		}
		if err := m.store.BatchDelete(ctx, KindLibraryAssignment, ids); err != nil {
			return wrapStore("delete library assignments", err)
		}
	}

	if len(wanted) == 0 {
		m.logger.InfoContext(ctx, "library assignments revoked", slog.String("user_id", userID))
		return nil
	}

	m.logger.InfoContext(ctx, "library assignments replaced",
		slog.String("user_id", userID),
		slog.Any("library_ids", wanted),
	)
	return nil
}

// GetAssignedLibraries returns the library ids stored for a user, oldest
// assignment first. The read ignores the user's current role; a missing user
// or one without rows yields an empty slice.
func (m *LibraryAssignmentManager) GetAssignedLibraries(ctx context.Context, userID string) ([]string, error) {
	rows, err := m.assignments(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.LibraryID)
	}
	return dedupe(ids), nil
}

func (m *LibraryAssignmentManager) assignments(ctx context.Context, userID string) ([]*LibraryAssignment, error) {
	q := NewQuery().
		WhereEq("user_id", userID).
		OrderBy("assigned_at", Asc).
		OrderBy("position", Asc)
	rows, err := queryAs[LibraryAssignment](ctx, m.store, KindLibraryAssignment, q)
	if err != nil {
		return nil, wrapStore("query library assignments", err)
	}
	return rows, nil
}

// dedupe drops repeated ids, keeping the first occurrence.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
