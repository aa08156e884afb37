package lendkit

// Kit bundles the lendkit components over one shared store.
//
// Build it once at startup and share it by reference; it is safe for
// concurrent use and is never reset.
type Kit struct {
	Store     EntityStore
	Roles     *RoleAssignmentEngine
	Libraries *LibraryAssignmentManager
	Audit     *AuditTrail
	Evaluator *AccessPolicyEvaluator
}

// New builds every component over store.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	kit := lendkit.New(lendkit.NewBunStore(db),
//	    lendkit.WithLogger(logger),
//	    lendkit.WithNotifier(lendkit.NewRedisNotifier(redisClient)),
//	)
//	res := kit.Roles.AssignRole(ctx, adminID, userID, lendkit.RoleLibrarian)
func New(store EntityStore, opts ...Option) *Kit {
	o := buildOptions(opts)
	audit := newAuditTrail(store, o)
	return &Kit{
		Store:     store,
		Roles:     newRoleAssignmentEngine(store, audit, o),
		Libraries: newLibraryAssignmentManager(store, o),
		Audit:     audit,
		Evaluator: NewAccessPolicyEvaluator(o.policy),
	}
}

// Sessions returns a SessionManager over the kit's components.
// A nil SnapshotStore means an in-process MemorySnapshotStore.
func (k *Kit) Sessions(snapshots SnapshotStore) *SessionManager {
	return NewSessionManager(k.Roles, k.Libraries, snapshots)
}
