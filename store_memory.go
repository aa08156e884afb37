package lendkit

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process EntityStore. Entities are copied on the way in
// and out, so callers never share memory with stored records.
type MemoryStore struct {
	mu      sync.RWMutex
	kinds   map[Kind]map[string]Entity
	order   map[Kind][]string // insertion order, used as the tie breaker
	writes  int
	deletes int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		kinds: make(map[Kind]map[string]Entity),
		order: make(map[Kind][]string),
	}
}

// Get implements EntityStore.
func (m *MemoryStore) Get(ctx context.Context, kind Kind, id string) (Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.kinds[kind][id]
	if !ok {
		return nil, nil
	}
	return cloneEntity(e), nil
}

// Query implements EntityStore.
func (m *MemoryStore) Query(ctx context.Context, kind Kind, q Query) ([]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	rows := make([]Entity, 0, len(m.order[kind]))
	for _, id := range m.order[kind] {
		e := m.kinds[kind][id]
		ok, err := matchesAll(e, q.Filters)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if ok {
			rows = append(rows, cloneEntity(e))
		}
	}
	m.mu.RUnlock()

	if len(q.Sort) > 0 {
		slices.SortStableFunc(rows, func(a, b Entity) int {
			for _, o := range q.Sort {
				av, _ := a.Field(o.Field)
				bv, _ := b.Field(o.Field)
				c := compareValues(av, bv)
				if o.Direction == Desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(rows) {
			return []Entity{}, nil
		}
		rows = rows[q.Offset:]
	}
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

// Save implements EntityStore.
func (m *MemoryStore) Save(ctx context.Context, kind Kind, e Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e == nil || e.EntityID() == "" {
		return NewError(ErrValidation, "entity id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(kind, e)
	return nil
}

// Delete implements EntityStore.
func (m *MemoryStore) Delete(ctx context.Context, kind Kind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(kind, id)
	return nil
}

// BatchSave implements EntityStore. The batch is applied atomically.
func (m *MemoryStore) BatchSave(ctx context.Context, kind Kind, es []Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range es {
		if e == nil || e.EntityID() == "" {
			return NewError(ErrValidation, "entity id cannot be empty")
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range es {
		m.put(kind, e)
	}
	return nil
}

// BatchDelete implements EntityStore. The batch is applied atomically.
func (m *MemoryStore) BatchDelete(ctx context.Context, kind Kind, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.remove(kind, id)
	}
	return nil
}

// Len returns the number of entities of a kind.
func (m *MemoryStore) Len(kind Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.kinds[kind])
}

// Writes returns the number of entities saved or deleted since creation.
// Tests use it to assert that a failed operation left the store untouched.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes + m.deletes
}

func (m *MemoryStore) put(kind Kind, e Entity) {
	rows, ok := m.kinds[kind]
	if !ok {
		rows = make(map[string]Entity)
		m.kinds[kind] = rows
	}
	id := e.EntityID()
	if _, exists := rows[id]; !exists {
		m.order[kind] = append(m.order[kind], id)
	}
	rows[id] = cloneEntity(e)
	m.writes++
}

func (m *MemoryStore) remove(kind Kind, id string) {
	rows := m.kinds[kind]
	if _, ok := rows[id]; !ok {
		return
	}
	delete(rows, id)
	m.order[kind] = slices.DeleteFunc(m.order[kind], func(v string) bool { return v == id })
	m.deletes++
}

// cloneEntity makes a shallow copy of the struct behind an entity pointer.
// lendkit entities hold only value fields, so a shallow copy is a full copy.
func cloneEntity(e Entity) Entity {
	v := reflect.ValueOf(e)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return e
	}
	c := reflect.New(v.Elem().Type())
	c.Elem().Set(v.Elem())
	return c.Interface().(Entity)
}

func matchesAll(e Entity, filters []Filter) (bool, error) {
	for _, f := range filters {
		v, ok := e.Field(f.Field)
		if !ok {
			return false, NewError(ErrValidation, fmt.Sprintf("unknown field %q", f.Field))
		}
		c := compareValues(v, f.Value)
		var match bool
		switch f.Op {
		case OpEq:
			match = c == 0
		case OpNe:
			match = c != 0
		case OpLt:
			match = c < 0
		case OpLte:
			match = c <= 0
		case OpGt:
			match = c > 0
		case OpGte:
			match = c >= 0
		}
		if !match {
			return false, nil
		}
	}
	return true, nil
}

// compareValues orders two field values. Strings (including named string
// types such as Role), integers, floats and times are compared by value;
// anything else falls back to its formatted representation.
func compareValues(a, b any) int {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.IsValid() && bv.IsValid() {
		switch {
		case av.Kind() == reflect.String && bv.Kind() == reflect.String:
			return cmp.Compare(av.String(), bv.String())
		case av.CanInt() && bv.CanInt():
			return cmp.Compare(av.Int(), bv.Int())
		case av.CanFloat() && bv.CanFloat():
			return cmp.Compare(av.Float(), bv.Float())
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
