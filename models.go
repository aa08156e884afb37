package lendkit

import (
	"slices"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Role is one of the three lending roles.
type Role string

const (
	RoleUser      Role = "USER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

// Roles lists every valid role, lowest privilege first.
var Roles = []Role{RoleUser, RoleLibrarian, RoleAdmin}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleLibrarian || r == RoleAdmin
}

// String returns the role name.
func (r Role) String() string {
	return string(r)
}

// ParseRole converts a case-insensitive role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", invalidRoleError(Role(s))
	}
	return r, nil
}

// Entity is a record held by an EntityStore.
// Field names are the snake_case column names used by the SQL store.
type Entity interface {
	EntityID() string
	Field(name string) (any, bool)
}

// User is an application account. Users are created elsewhere with RoleUser;
// lendkit only changes their role.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk"`
	Email     string    `bun:"email,notnull"`
	Name      string    `bun:"name,notnull"`
	Role      Role      `bun:"role,notnull,default:'USER'"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
	UpdatedBy string    `bun:"updated_by"`
}

// EntityID implements Entity.
func (u *User) EntityID() string { return u.ID }

// Field implements Entity.
func (u *User) Field(name string) (any, bool) {
	switch name {
	case "id":
		return u.ID, true
	case "email":
		return u.Email, true
	case "name":
		return u.Name, true
	case "role":
		return u.Role, true
	case "created_at":
		return u.CreatedAt, true
	case "updated_at":
		return u.UpdatedAt, true
	case "updated_by":
		return u.UpdatedBy, true
	}
	return nil, false
}

// Library is a lending location. Only its existence matters here.
type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:l"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// EntityID implements Entity.
func (l *Library) EntityID() string { return l.ID }

// Field implements Entity.
func (l *Library) Field(name string) (any, bool) {
	switch name {
	case "id":
		return l.ID, true
	case "name":
		return l.Name, true
	case "created_at":
		return l.CreatedAt, true
	}
	return nil, false
}

// LibraryAssignment links a librarian to a library they administer.
// Rows outlive role changes: they are inert while the user is not a librarian.
type LibraryAssignment struct {
	bun.BaseModel `bun:"table:library_assignments,alias:la"`

	ID         string    `bun:"id,pk"`
	UserID     string    `bun:"user_id,notnull"`
	LibraryID  string    `bun:"library_id,notnull"`
	AssignedAt time.Time `bun:"assigned_at,notnull,default:current_timestamp"`
	AssignedBy string    `bun:"assigned_by"`
	// Position is the index of the library in the list it was assigned with.
	Position   int       `bun:"position,notnull"`
}

// EntityID implements Entity.
func (a *LibraryAssignment) EntityID() string { return a.ID }

// Field implements Entity.
func (a *LibraryAssignment) Field(name string) (any, bool) {
	switch name {
	case "id":
		return a.ID, true
	case "user_id":
		return a.UserID, true
	case "library_id":
		return a.LibraryID, true
	case "position":
		return a.Position, true
	case "assigned_at":
		return a.AssignedAt, true
	case "assigned_by":
		return a.AssignedBy, true
	}
	return nil, false
}

// AuditActionRoleChange is the only action recorded in the audit trail.
const AuditActionRoleChange = "role_change"

// AuditEntry records one role change. Entries are never updated; they are
// removed only by the retention sweep.
type AuditEntry struct {
	bun.BaseModel `bun:"table:role_audit_log,alias:ral"`

	ID        string    `bun:"id,pk" json:"id"`
	UserID    string    `bun:"user_id,notnull" json:"userId" validate:"required"`
	Action    string    `bun:"action,notnull" json:"action" validate:"required,eq=role_change"`
	OldRole   Role      `bun:"old_role,notnull" json:"oldRole" validate:"required,oneof=USER LIBRARIAN ADMIN"`
	NewRole   Role      `bun:"new_role,notnull" json:"newRole" validate:"required,oneof=USER LIBRARIAN ADMIN"`
	ChangedBy string    `bun:"changed_by,notnull" json:"changedBy" validate:"required"`
	Timestamp time.Time `bun:"timestamp,notnull" json:"timestamp"`
	IPAddress string    `bun:"ip_address,nullzero" json:"ipAddress,omitempty" validate:"omitempty,ip"`
}

// EntityID implements Entity.
func (e *AuditEntry) EntityID() string { return e.ID }

// Field implements Entity.
func (e *AuditEntry) Field(name string) (any, bool) {
	switch name {
	case "id":
		return e.ID, true
	case "user_id":
		return e.UserID, true
	case "action":
		return e.Action, true
	case "old_role":
		return e.OldRole, true
	case "new_role":
		return e.NewRole, true
	case "changed_by":
		return e.ChangedBy, true
	case "timestamp":
		return e.Timestamp, true
	case "ip_address":
		return e.IPAddress, true
	}
	return nil, false
}

// RoleSnapshot is the permission state captured for a session at login.
// Guards evaluate against the snapshot, so role or library changes reach a
// user only when a new snapshot is captured.
type RoleSnapshot struct {
	UserID     string    `json:"userId"`
	Role       Role      `json:"role"`
	LibraryIDs []string  `json:"libraryIds"`
	CapturedAt time.Time `json:"capturedAt"`
}

// HasLibrary reports whether the snapshot lists the library.
func (s RoleSnapshot) HasLibrary(libraryID string) bool {
	return slices.Contains(s.LibraryIDs, libraryID)
}

// RoleChangeEvent is published after a role change is committed.
type RoleChangeEvent struct {
	UserID       string    `json:"userId"`
	PreviousRole Role      `json:"previousRole"`
	NewRole      Role      `json:"newRole"`
	ChangedBy    string    `json:"changedBy"`
	ChangedAt    time.Time `json:"changedAt"`
}
