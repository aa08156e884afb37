// Package lendkit provides the role-based access control core of a
// multi-library lending application.
//
// It manages three roles (USER, LIBRARIAN, ADMIN), the set of libraries each
// librarian administers, and an append-only audit trail of role changes with
// time-based retention. Authentication is out of scope: callers pass an
// already-verified actor id.
//
// # Core Concepts
//
// Role: one of RoleUser, RoleLibrarian and RoleAdmin. Users are created with
// RoleUser elsewhere; only RoleAssignmentEngine changes a role.
//
// Library assignment: an edge between a librarian and a library. Assignments
// outlive role changes. A demoted librarian keeps the rows, but they grant
// nothing until the user is a librarian again.
//
// Feature: a dot-separated capability such as "inventory.add". A Policy maps
// roles to features, either everywhere (Allow) or only inside the user's
// assigned libraries (AllowInLibrary). Grants support wildcards: "*",
// "area.*" and "*.action".
//
// RoleSnapshot: the role and library set captured when a session starts.
// Access checks evaluate the snapshot, never live state, so changes reach a
// user at their next login (or SessionManager.Refresh).
//
// # Invariants
//
//   - a user's role is always one of the three roles
//   - AssignRole never leaves the store without an administrator
//   - nobody changes their own role
//   - audit entries are never updated; only the retention sweep removes them
//
// # Basic Usage
//
//	// 1. Connect and migrate
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := lendkit.NewBunStore(db)
//	db.Migrate(ctx, store.Migrations())
//
//	// 2. Build the components once and share them
//	kit := lendkit.New(store, lendkit.WithLogger(logger))
//
//	// 3. Change roles and library sets
//	res := kit.Roles.AssignRole(ctx, adminID, userID, lendkit.RoleLibrarian)
//	err := kit.Libraries.AssignLibraries(lendkit.WithActorID(ctx, adminID), userID, []string{"lib-north"})
//
//	// 4. Check access against a session snapshot
//	sessions := kit.Sessions(lendkit.NewRedisSnapshotStore(redisClient, 8*time.Hour))
//	snapshot, _ := sessions.Login(ctx, sessionID, userID)
//	if kit.Evaluator.CanAccessFeature(snapshot, lendkit.FeatureInventoryAdd, "lib-north") {
//	    // show the add-book form
//	}
//
// # Middleware Usage
//
//	guard := lendkit.NewGuard(kit.Evaluator, sessions)
//	router.Use(guard.LoadSnapshot(), guard.InjectAuditContext())
//	router.With(guard.RequireFeature(lendkit.FeatureInventoryAdd, lendkit.LibraryFromParam("libraryID"))).
//	    Post("/libraries/{libraryID}/books", addBookHandler)
//	router.With(guard.RequireAdmin()).
//	    Get("/admin/audit", auditHandler)
//
// # Audit Retention
//
// AuditTrail.CleanupOldEntries deletes entries older than the retention window
// (30 days by default, see WithRetention). It is meant to run on its own
// schedule; the jobs package and cmd/lendkit-worker run it daily through asynq.
//
// # Concurrency
//
// No operation locks or opens a transaction across store calls. Concurrent
// role changes of the same user resolve as last save wins, and every change
// is audited.
package lendkit
