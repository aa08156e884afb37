package lendkit

import (
	"context"
)

// ============================================================================
// READ HELPERS
// ============================================================================

// GetUser returns a user, or nil when it does not exist.
func (e *RoleAssignmentEngine) GetUser(ctx context.Context, userID string) (*User, error) {
	u, err := getAs[User](ctx, e.store, KindUser, userID)
	if err != nil {
		return nil, wrapStore("load user", err)
	}
	return u, nil
}

// GetUsersExcept returns every user but one, ordered by email.
// Management views use it to list the users an admin can act on.
func (e *RoleAssignmentEngine) GetUsersExcept(ctx context.Context, excludeUserID string) ([]*User, error) {
	q := NewQuery().
		Where("id", OpNe, excludeUserID).
		OrderBy("email", Asc)
	users, err := queryAs[User](ctx, e.store, KindUser, q)
	if err != nil {
		return nil, wrapStore("query users", err)
	}
	return users, nil
}

// IsAdmin reports whether the user exists and is an administrator.
func (e *RoleAssignmentEngine) IsAdmin(ctx context.Context, userID string) (bool, error) {
	u, err := e.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return u != nil && u.Role == RoleAdmin, nil
}

// CountAdmins returns the number of stored administrators.
func (e *RoleAssignmentEngine) CountAdmins(ctx context.Context) (int, error) {
	return e.countRole(ctx, RoleAdmin)
}

// CountByRole returns how many users hold each role. Roles nobody holds are reported as 0.
func (e *RoleAssignmentEngine) CountByRole(ctx context.Context) (map[Role]int, error) {
	counts := make(map[Role]int, len(Roles))
	for _, r := range Roles {
		n, err := e.countRole(ctx, r)
		if err != nil {
			return nil, err
		}
		counts[r] = n
	}
	return counts, nil
}

func (e *RoleAssignmentEngine) countRole(ctx context.Context, role Role) (int, error) {
	rows, err := e.store.Query(ctx, KindUser, NewQuery().WhereEq("role", role))
	if err != nil {
		return 0, wrapStore("count users", err)
	}
	return len(rows), nil
}
