package lendkit

import (
	"context"
	"log/slog"
)

// AssignResult is the outcome of AssignRole. Failures are reported in the
// result rather than as an error so callers can branch on Success.
type AssignResult struct {
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	UserID       string `json:"userId"`
	NewRole      Role   `json:"newRole"`
	PreviousRole Role   `json:"previousRole,omitempty"`

	// Err is the classified failure; match it with errors.Is against the
	// lendkit sentinels.
	Err error `json:"-"`
}

func failed(userID string, newRole Role, err error) AssignResult {
	return AssignResult{
		Success: false,
		Error:   err.Error(),
		UserID:  userID,
		NewRole: newRole,
		Err:     err,
	}
}

// RoleAssignmentEngine changes user roles. It is the only writer of User.Role.
//
// Concurrency: AssignRole reads then writes without locking. Two concurrent
// changes of the same user resolve as last save wins, and both are audited.
type RoleAssignmentEngine struct {
	store    EntityStore
	audit    *AuditTrail
	clock    Clock
	logger   *slog.Logger
	notifier Notifier
}

// NewRoleAssignmentEngine creates an engine recording changes in audit.
func NewRoleAssignmentEngine(store EntityStore, audit *AuditTrail, opts ...Option) *RoleAssignmentEngine {
	return newRoleAssignmentEngine(store, audit, buildOptions(opts))
}

func newRoleAssignmentEngine(store EntityStore, audit *AuditTrail, o options) *RoleAssignmentEngine {
	return &RoleAssignmentEngine{
		store:    store,
		audit:    audit,
		clock:    o.clock,
		logger:   o.logger,
		notifier: o.notifier,
	}
}

// ============================================================================
// ROLE ASSIGNMENT
// ============================================================================

// AssignRole changes the role of target on behalf of actor.
//
// Checks run in a fixed order and stop at the first failure; no failure
// writes anything:
//  1. the actor must exist and be an administrator
//  2. the actor cannot change their own role
//  3. the target must exist
//  4. newRole must be a defined role
//  5. the last administrator cannot be demoted
//
// The change is then saved and audited. An audit failure is logged and does not
// undo the saved role.
//
// Example:
//
//	res := roles.AssignRole(ctx, adminID, userID, lendkit.RoleLibrarian)
//	if !res.Success {
//	    return res.Err
//	}
func (e *RoleAssignmentEngine) AssignRole(ctx context.Context, actorID, targetID string, newRole Role) AssignResult {
	actor, err := getAs[User](ctx, e.store, KindUser, actorID)
	if err != nil {
		return failed(targetID, newRole, wrapStore("load actor", err))
	}
	if actor == nil || actor.Role != RoleAdmin {
		return failed(targetID, newRole, NewError(ErrAuthorization, MsgOnlyAdmins).
			WithActor(actorID).
			WithUser(targetID))
	}

	if targetID == actorID {
		return failed(targetID, newRole, NewError(ErrSelfModification, MsgSelfModification).
			WithActor(actorID).
			WithUser(targetID))
	}

	target, err := getAs[User](ctx, e.store, KindUser, targetID)
	if err != nil {
		return failed(targetID, newRole, wrapStore("load user", err))
	}
	if target == nil {
		return failed(targetID, newRole, NewError(ErrNotFound, MsgUserNotFound).
			WithActor(actorID).
			WithUser(targetID))
	}

	if !newRole.Valid() {
		return failed(targetID, newRole, invalidRoleError(newRole).
			WithActor(actorID).
			WithUser(targetID))
	}

	previousRole := target.Role
	if previousRole == RoleAdmin && newRole != RoleAdmin {
		admins, err := e.CountAdmins(ctx)
		if err != nil {
			return failed(targetID, newRole, err)
		}
		if admins <= 1 {
			return failed(targetID, newRole, NewError(ErrInvariantViolation, MsgLastAdmin).
				WithActor(actorID).
				WithUser(targetID))
		}
	}

	now := e.clock()
	target.Role = newRole
	target.UpdatedAt = now
	target.UpdatedBy = actorID

	if err := e.store.Save(ctx, KindUser, target); err != nil {
		return failed(targetID, newRole, wrapStore("save user", err))
	}

	// The role is committed from here on.
	if _, err := e.audit.LogRoleChange(ctx, targetID, previousRole, newRole, actorID, ""); err != nil {
		e.logger.WarnContext(ctx, "role change not audited",
			slog.String("user_id", targetID),
			slog.String("changed_by", actorID),
			slog.Any("error", err),
		)
	}

	e.logger.InfoContext(ctx, "role assigned",
		slog.String("user_id", targetID),
		slog.String("previous_role", previousRole.String()),
		slog.String("new_role", newRole.String()),
		slog.String("changed_by", actorID),
	)

	e.notify(ctx, RoleChangeEvent{
		UserID:       targetID,
		PreviousRole: previousRole,
		NewRole:      newRole,
		ChangedBy:    actorID,
		ChangedAt:    now,
	})

	return AssignResult{
		Success:      true,
		UserID:       targetID,
		NewRole:      newRole,
		PreviousRole: previousRole,
	}
}

func (e *RoleAssignmentEngine) notify(ctx context.Context, event RoleChangeEvent) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.RoleChanged(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "role change not published",
			slog.String("user_id", event.UserID),
			slog.Any("error", err),
		)
	}
}
