package lendkit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// BunStore is a PostgreSQL EntityStore built on dbkit.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping, and the result
// is wrapped again with ErrStore so callers can classify infrastructure failures:
//
//	err := store.Save(ctx, lendkit.KindUser, user)
//	if errors.Is(err, lendkit.ErrStore) {
//	    var dbErr *dbkit.Error
//	    if errors.As(err, &dbErr) {
//	        fmt.Printf("Operation: %s, Table: %s\n", dbErr.Operation, dbErr.Table)
//	    }
//	}
type BunStore struct {
	db    dbkit.IDB
	kinds map[Kind]kindSchema
}

type kindSchema struct {
	newEntity func() Entity
	newSlice  func() any
	entities  func(slice any) []Entity
	columns   map[string]struct{}
}

func schemaFor[T any, PT interface {
	*T
	Entity
}](columns ...string) kindSchema {
	cols := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		cols[c] = struct{}{}
	}
	return kindSchema{
		newEntity: func() Entity { return PT(new(T)) },
		newSlice:  func() any { return new([]T) },
		entities: func(slice any) []Entity {
			rows := *(slice.(*[]T))
			out := make([]Entity, 0, len(rows))
			for i := range rows {
				out = append(out, PT(&rows[i]))
			}
			return out
		},
		columns: cols,
	}
}

// NewBunStore creates a BunStore over a dbkit connection or transaction.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := lendkit.NewBunStore(db)
//	if _, err := db.Migrate(ctx, store.Migrations()); err != nil { ... }
func NewBunStore(db dbkit.IDB) *BunStore {
	return &BunStore{
		db:    db,
		kinds: map[Kind]kindSchema{
			KindUser: schemaFor[User](
				"id", "email", "name", "role", "created_at", "updated_at", "updated_by"),
			KindLibrary: schemaFor[Library](
				"id", "name", "created_at"),
			KindLibraryAssignment: schemaFor[LibraryAssignment](
				"id", "user_id", "library_id", "assigned_at", "assigned_by", "position"),
			KindAuditEntry: schemaFor[AuditEntry](
				"id", "user_id", "action", "old_role", "new_role", "changed_by", "timestamp", "ip_address"),
		},
	}
}

func (s *BunStore) schema(kind Kind) (kindSchema, error) {
	schema, ok := s.kinds[kind]
	if !ok {
		return kindSchema{}, NewError(ErrValidation, fmt.Sprintf("unknown entity kind %q", kind))
	}
	return schema, nil
}

func (s *BunStore) column(schema kindSchema, kind Kind, field string) (bun.Ident, error) {
	if _, ok := schema.columns[field]; !ok {
		return "", NewError(ErrValidation, fmt.Sprintf("unknown field %q for %s", field, kind))
	}
	return bun.Ident(field), nil
}

// Get implements EntityStore.
func (s *BunStore) Get(ctx context.Context, kind Kind, id string) (Entity, error) {
	schema, err := s.schema(kind)
	if err != nil {
		return nil, err
	}
	e := schema.newEntity()
	err = dbkit.WithErr1(s.db.NewSelect().Model(e).Where("? = ?", bun.Ident("id"), id).Limit(1).Scan(ctx), "Get"+string(kind)).Err()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, storeError("get "+string(kind), err)
	}
	return e, nil
}

// Query implements EntityStore.
func (s *BunStore) Query(ctx context.Context, kind Kind, q Query) ([]Entity, error) {
	schema, err := s.schema(kind)
	if err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	rows := schema.newSlice()
	sq := s.db.NewSelect().Model(rows)
	for _, f := range q.Filters {
		col, err := s.column(schema, kind, f.Field)
		if err != nil {
			return nil, err
		}
		sq = sq.Where("? "+string(f.Op)+" ?", col, f.Value)
	}
	for _, o := range q.Sort {
		col, err := s.column(schema, kind, o.Field)
		if err != nil {
			return nil, err
		}
		if o.Direction == Desc {
			sq = sq.OrderExpr("? DESC", col)
		} else {
			sq = sq.OrderExpr("? ASC", col)
		}
	}
	if q.Limit > 0 {
		sq = sq.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sq = sq.Offset(q.Offset)
	}

	err = dbkit.WithErr1(sq.Scan(ctx), "Query"+string(kind)).Err()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, storeError("query "+string(kind), err)
	}
	return schema.entities(rows), nil
}

// Save implements EntityStore.
func (s *BunStore) Save(ctx context.Context, kind Kind, e Entity) error {
	if _, err := s.schema(kind); err != nil {
		return err
	}
	return s.save(ctx, s.db, kind, e)
}

func (s *BunStore) save(ctx context.Context, db dbkit.IDB, kind Kind, e Entity) error {
	if e == nil || e.EntityID() == "" {
		return NewError(ErrValidation, "entity id cannot be empty")
	}
	result, err := db.NewInsert().Model(e).On("CONFLICT (id) DO UPDATE").Exec(ctx)
	if err = dbkit.WithErr(result, err, "Save"+string(kind)).Err(); err != nil {
		return storeError("save "+string(kind), err)
	}
	return nil
}

// Delete implements EntityStore.
func (s *BunStore) Delete(ctx context.Context, kind Kind, id string) error {
	return s.BatchDelete(ctx, kind, []string{id})
}

// BatchSave implements EntityStore. The batch runs in one transaction when the
// store was built on a *dbkit.DBKit.
func (s *BunStore) BatchSave(ctx context.Context, kind Kind, es []Entity) error {
	if _, err := s.schema(kind); err != nil {
		return err
	}
	if len(es) == 0 {
		return nil
	}
	return s.inTransaction(ctx, func(db dbkit.IDB) error {
		for _, e := range es {
			if err := s.save(ctx, db, kind, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// BatchDelete implements EntityStore.
func (s *BunStore) BatchDelete(ctx context.Context, kind Kind, ids []string) error {
	schema, err := s.schema(kind)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	result, err := s.db.NewDelete().Model(schema.newEntity()).Where("? IN (?)", bun.Ident("id"), bun.In(ids)).Exec(ctx)
	if err = dbkit.WithErr(result, err, "Delete"+string(kind)).Err(); err != nil {
		return storeError("delete "+string(kind), err)
	}
	return nil
}

// inTransaction runs fn inside a dbkit transaction, reusing the current one
// when the store already wraps a *dbkit.Tx.
func (s *BunStore) inTransaction(ctx context.Context, fn func(db dbkit.IDB) error) error {
	switch db := s.db.(type) {
	case *dbkit.DBKit:
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(tx)
		})
	case *dbkit.Tx:
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(tx)
		})
	default:
		return fn(s.db)
	}
}
