package lendkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// HealthMonitor defines the health monitoring interface of SQL-backed stores.
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	PoolStats() dbkit.PoolStats
}

// PoolManager defines the connection pool management interface.
type PoolManager interface {
	ConfigurePool(config PoolConfig) error
}

// AuditCleaner is the retention sweep, as run by the background worker.
type AuditCleaner interface {
	CleanupOldEntries(ctx context.Context) (int, error)
}

// FeatureChecker decides feature access from a snapshot.
type FeatureChecker interface {
	CanAccessFeature(snapshot RoleSnapshot, feature, libraryID string) bool
}

var (
	_ EntityStore    = (*MemoryStore)(nil)
	_ EntityStore    = (*BunStore)(nil)
	_ HealthMonitor  = (*BunStore)(nil)
	_ PoolManager    = (*BunStore)(nil)
	_ AuditCleaner   = (*AuditTrail)(nil)
	_ FeatureChecker = (*AccessPolicyEvaluator)(nil)
	_ SnapshotStore  = (*MemorySnapshotStore)(nil)
	_ SnapshotStore  = (*RedisSnapshotStore)(nil)
	_ Notifier       = (*Broadcaster)(nil)
	_ Notifier       = (*RedisNotifier)(nil)
	_ Notifier       = MultiNotifier(nil)
)
