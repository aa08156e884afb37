package lendkit

import (
	"github.com/fernandezvara/dbkit"
)

// Migrations returns the schema BunStore runs on.
// Use db.Migrate(ctx, store.Migrations()) to apply them.
//
// users and libraries are owned by the wider application; lendkit creates
// them only when they do not exist yet.
func (s *BunStore) Migrations() []dbkit.Migration {
	return Migrations()
}

// Migrations returns the lendkit schema migrations.
func Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "lendkit-001",
			Description: "Create users table",
			SQL: `
                CREATE TABLE IF NOT EXISTS users (
                    id TEXT PRIMARY KEY,
                    email TEXT NOT NULL,
                    name TEXT NOT NULL,
                    role TEXT NOT NULL DEFAULT 'USER'
                        CHECK (role IN ('USER', 'LIBRARIAN', 'ADMIN')),
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_by TEXT
                )`,
		},
		{
			ID:          "lendkit-002",
			Description: "Create libraries table",
			SQL: `
                CREATE TABLE IF NOT EXISTS libraries (
                    id TEXT PRIMARY KEY,
                    name TEXT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "lendkit-003",
			Description: "Create library_assignments table",
			SQL: `
                CREATE TABLE IF NOT EXISTS library_assignments (
                    id TEXT PRIMARY KEY,
                    user_id TEXT NOT NULL,
                    library_id TEXT NOT NULL,
                    assigned_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    assigned_by TEXT
                )`,
		},
		{
			ID:          "lendkit-004",
			Description: "Create role_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_audit_log (
                    id TEXT PRIMARY KEY,
                    user_id TEXT NOT NULL,
                    action TEXT NOT NULL,
                    old_role TEXT NOT NULL,
                    new_role TEXT NOT NULL,
                    changed_by TEXT NOT NULL,
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    ip_address TEXT
                )`,
		},
		{
			ID:          "lendkit-005",
			Description: "Index role_audit_log by timestamp",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_role_audit_log_timestamp ON role_audit_log (timestamp)`,
		},
		{
			ID:          "lendkit-006",
			Description: "Index role_audit_log by user",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_role_audit_log_user_timestamp ON role_audit_log (user_id, timestamp DESC)`,
		},
		{
			ID:          "lendkit-007",
			Description: "Index library_assignments by user",
			SQL:         `CREATE INDEX IF NOT EXISTS idx_library_assignments_user ON library_assignments (user_id, assigned_at)`,
		},
		{
			ID:          "lendkit-008",
			Description: "Add position to library_assignments",
			SQL:         `ALTER TABLE library_assignments ADD COLUMN IF NOT EXISTS position INTEGER NOT NULL DEFAULT 0`,
		},
	}
}
