package lendkit

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// AuditTrail is the append-only log of role changes. Entries are never
// updated; CleanupOldEntries is the only path that removes them.
type AuditTrail struct {
	store     EntityStore
	clock     Clock
	newID     IDGenerator
	retention time.Duration
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewAuditTrail creates an AuditTrail over a store.
func NewAuditTrail(store EntityStore, opts ...Option) *AuditTrail {
	return newAuditTrail(store, buildOptions(opts))
}

func newAuditTrail(store EntityStore, o options) *AuditTrail {
	return &AuditTrail{
		store:     store,
		clock:     o.clock,
		newID:     o.newID,
		retention: o.retention,
		logger:    o.logger,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Retention returns the age after which entries are swept.
func (a *AuditTrail) Retention() time.Duration {
	return a.retention
}

// LogRoleChange records one role change and returns the stored entry.
// When ipAddress is empty the client IP from the context is used, if it
// parses as an address.
//
// Example:
//
//	entry, err := audit.LogRoleChange(ctx, userID, lendkit.RoleUser, lendkit.RoleLibrarian, adminID, "")
func (a *AuditTrail) LogRoleChange(ctx context.Context, userID string, oldRole, newRole Role, changedBy, ipAddress string) (*AuditEntry, error) {
	if ipAddress == "" {
		ipAddress = parseIP(GetIPAddress(ctx))
	}

	entry := &AuditEntry{
		ID:        a.newID(),
		UserID:    userID,
		Action:    AuditActionRoleChange,
		OldRole:   oldRole,
		NewRole:   newRole,
		ChangedBy: changedBy,
		Timestamp: a.clock(),
		IPAddress: ipAddress,
	}
	if err := a.validate.Struct(entry); err != nil {
		return nil, NewError(ErrValidation, msgInvalidAuditEntry+err.Error()).
			WithUser(userID).
			WithActor(changedBy).
			WithCause(err)
	}

	if err := a.store.Save(ctx, KindAuditEntry, entry); err != nil {
		return nil, wrapStore("save audit entry", err)
	}
	return entry, nil
}

// GetAuditTrail returns the entries of one user, newest first.
// A non-positive limit means DefaultAuditTrailLimit.
func (a *AuditTrail) GetAuditTrail(ctx context.Context, userID string, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditTrailLimit
	}
	q := NewQuery().
		WhereEq("user_id", userID).
		OrderBy("timestamp", Desc).
		WithLimit(limit)
	return a.query(ctx, q)
}

// GetRecentAuditEntries returns the latest entries across all users, newest first.
// A non-positive limit means DefaultRecentAuditLimit.
func (a *AuditTrail) GetRecentAuditEntries(ctx context.Context, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentAuditLimit
	}
	q := NewQuery().
		OrderBy("timestamp", Desc).
		WithLimit(limit)
	return a.query(ctx, q)
}

// GetEntry returns one entry, or nil when it does not exist.
func (a *AuditTrail) GetEntry(ctx context.Context, id string) (*AuditEntry, error) {
	entry, err := getAs[AuditEntry](ctx, a.store, KindAuditEntry, id)
	if err != nil {
		return nil, wrapStore("get audit entry", err)
	}
	return entry, nil
}

// CleanupOldEntries deletes every entry older than the retention window and
// returns how many were removed. An entry exactly at the boundary is kept.
//
// The predicate is purely age based, so it is safe to run alongside
// LogRoleChange and to run repeatedly.
func (a *AuditTrail) CleanupOldEntries(ctx context.Context) (int, error) {
	cutoff := a.clock().Add(-a.retention)

	old, err := a.store.Query(ctx, KindAuditEntry, NewQuery().Where("timestamp", OpLt, cutoff))
	if err != nil {
		return 0, wrapStore("query expired audit entries", err)
	}
	if len(old) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(old))
	for _, e := range old {
		ids = append(ids, e.EntityID())
	}
	if err := a.store.BatchDelete(ctx, KindAuditEntry, ids); err != nil {
		return 0, wrapStore("delete audit entries", err)
	}

	a.logger.InfoContext(ctx, "audit entries swept",
		slog.Int("deleted", len(ids)),
		slog.Time("cutoff", cutoff),
	)
	return len(ids), nil
}

// Search returns the entries matching a filter, newest first.
//
// Example:
//
//	entries, err := audit.Search(ctx, lendkit.NewAuditFilter().
//	    WithChangedBy(adminID).
//	    WithTimeRange(weekAgo, now))
func (a *AuditTrail) Search(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error) {
	return a.query(ctx, filter.query())
}

func (a *AuditTrail) query(ctx context.Context, q Query) ([]*AuditEntry, error) {
	entries, err := queryAs[AuditEntry](ctx, a.store, KindAuditEntry, q)
	if err != nil {
		return nil, wrapStore("query audit entries", err)
	}
	return entries, nil
}
