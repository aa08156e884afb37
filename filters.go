package lendkit

import "time"

// AuditFilter provides options for searching the audit trail.
type AuditFilter struct {
	// Filter by the user whose role changed
	UserID string

	// Filter by the administrator who made the change
	ChangedBy string

	// Filter by the role granted
	NewRole Role

	// Filter by time range, both ends inclusive
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewAuditFilter creates a new AuditFilter with default values.
func NewAuditFilter() AuditFilter {
	return AuditFilter{
		Limit: DefaultRecentAuditLimit,
	}
}

// WithUser sets the user filter.
func (f AuditFilter) WithUser(userID string) AuditFilter {
	f.UserID = userID
	return f
}

// WithChangedBy sets the administrator filter.
func (f AuditFilter) WithChangedBy(actorID string) AuditFilter {
	f.ChangedBy = actorID
	return f
}

// WithNewRole sets the granted role filter.
func (f AuditFilter) WithNewRole(role Role) AuditFilter {
	f.NewRole = role
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditFilter) WithTimeRange(since, until time.Time) AuditFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithPagination sets both limit and offset.
func (f AuditFilter) WithPagination(limit, offset int) AuditFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// query converts the filter into a store query, newest entries first.
func (f AuditFilter) query() Query {
	q := NewQuery()
	if f.UserID != "" {
		q = q.WhereEq("user_id", f.UserID)
	}
	if f.ChangedBy != "" {
		q = q.WhereEq("changed_by", f.ChangedBy)
	}
	if f.NewRole != "" {
		q = q.WhereEq("new_role", f.NewRole)
	}
	if !f.Since.IsZero() {
		q = q.Where("timestamp", OpGte, f.Since)
	}
	if !f.Until.IsZero() {
		q = q.Where("timestamp", OpLte, f.Until)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultRecentAuditLimit
	}
	return q.OrderBy("timestamp", Desc).WithPagination(limit, max(f.Offset, 0))
}
