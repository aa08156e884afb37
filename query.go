package lendkit

import "slices"

// Op is a filter comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Valid reports whether op is a supported operator.
func (op Op) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Valid reports whether d is a supported direction.
func (d Direction) Valid() bool {
	return d == Asc || d == Desc
}

// Filter restricts a query to entities whose field compares true against Value.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Order sorts query results by a field.
type Order struct {
	Field     string
	Direction Direction
}

// Query describes a store query. All filters must match.
// The zero value matches every entity of a kind, unordered and unbounded.
type Query struct {
	Filters []Filter
	Sort    []Order

	// Pagination; zero means unbounded / from the start.
	Limit  int
	Offset int
}

// NewQuery creates an empty Query.
func NewQuery() Query {
	return Query{}
}

// Where adds a filter.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(slices.Clip(q.Filters), Filter{Field: field, Op: op, Value: value})
	return q
}

// WhereEq adds an equality filter.
func (q Query) WhereEq(field string, value any) Query {
	return q.Where(field, OpEq, value)
}

// OrderBy adds a sort key. Keys apply in the order they are added.
func (q Query) OrderBy(field string, dir Direction) Query {
	q.Sort = append(slices.Clip(q.Sort), Order{Field: field, Direction: dir})
	return q
}

// WithLimit sets the maximum number of results.
func (q Query) WithLimit(limit int) Query {
	q.Limit = limit
	return q
}

// WithOffset sets the number of results to skip.
func (q Query) WithOffset(offset int) Query {
	q.Offset = offset
	return q
}

// WithPagination sets both limit and offset.
func (q Query) WithPagination(limit, offset int) Query {
	q.Limit = limit
	q.Offset = offset
	return q
}

// Validate checks every operator and direction.
func (q Query) Validate() error {
	for _, f := range q.Filters {
		if f.Field == "" {
			return NewError(ErrValidation, "filter field cannot be empty")
		}
		if !f.Op.Valid() {
			return NewError(ErrValidation, msgUnsupportedOperator+string(f.Op))
		}
	}
	for _, o := range q.Sort {
		if o.Field == "" {
			return NewError(ErrValidation, "order field cannot be empty")
		}
		if !o.Direction.Valid() {
			return NewError(ErrValidation, "unsupported sort direction: "+string(o.Direction))
		}
	}
	if q.Limit < 0 || q.Offset < 0 {
		return NewError(ErrValidation, "limit and offset cannot be negative")
	}
	return nil
}
