package lendkit

import "context"

// Kind names a collection in the entity store. The SQL store uses it as the table name.
type Kind string

const (
	KindUser              Kind = "users"
	KindLibrary           Kind = "libraries"
	KindLibraryAssignment Kind = "library_assignments"
	KindAuditEntry        Kind = "role_audit_log"
)

// EntityStore is the persistent keyed storage lendkit runs on.
//
// Implementations must be safe for concurrent use. lendkit never holds locks
// or opens transactions across calls: concurrent writers to the same entity
// resolve as last save wins.
type EntityStore interface {
	// Get returns the entity with the given id, or nil and no error when absent.
	Get(ctx context.Context, kind Kind, id string) (Entity, error)

	// Query returns the entities matching every filter, ordered and paginated.
	Query(ctx context.Context, kind Kind, q Query) ([]Entity, error)

	// Save inserts or replaces the entity keyed by its id.
	Save(ctx context.Context, kind Kind, e Entity) error

	// Delete removes the entity with the given id. Deleting a missing id is not an error.
	Delete(ctx context.Context, kind Kind, id string) error

	// BatchSave saves every entity.
	BatchSave(ctx context.Context, kind Kind, es []Entity) error

	// BatchDelete removes every id.
	BatchDelete(ctx context.Context, kind Kind, ids []string) error
}

// getAs loads an entity and asserts its concrete type. A missing entity or a
// type mismatch both return nil.
func getAs[T any, PT interface {
	*T
	Entity
}](ctx context.Context, store EntityStore, kind Kind, id string) (PT, error) {
	e, err := store.Get(ctx, kind, id)
	if err != nil || e == nil {
		return nil, err
	}
	v, _ := e.(PT)
	return v, nil
}

// queryAs runs a query and converts the results to their concrete type,
// skipping entities of another type.
func queryAs[T any, PT interface {
	*T
	Entity
}](ctx context.Context, store EntityStore, kind Kind, q Query) ([]PT, error) {
	rows, err := store.Query(ctx, kind, q)
	if err != nil {
		return nil, err
	}
	out := make([]PT, 0, len(rows))
	for _, e := range rows {
		if v, ok := e.(PT); ok {
			out = append(out, v)
		}
	}
	return out, nil
}
