package lendkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Health performs a health check of the database behind the store.
// Returns detailed status including latency and connection pool statistics
// when the store wraps a *dbkit.DBKit.
func (s *BunStore) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}

	// Inside a transaction only a basic ping is possible.
	err := s.Ping(ctx)
	status := dbkit.HealthStatus{
		Healthy: err == nil,
		Error:   "Limited health check - not a DBKit instance",
	}
	if err != nil {
		status.Error = err.Error()
	}
	return status
}

// IsHealthy reports whether the database is reachable.
func (s *BunStore) IsHealthy(ctx context.Context) bool {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}
	return s.Ping(ctx) == nil
}

// Ping runs a trivial query against the database.
func (s *BunStore) Ping(ctx context.Context) error {
	var result int
	err := s.db.NewSelect().ColumnExpr("1").Scan(ctx, &result)
	return dbkit.WithErr1(err, "Ping").Err()
}

// PoolStats returns connection pool statistics for monitoring.
// Returns zero values when the store does not wrap a *dbkit.DBKit.
func (s *BunStore) PoolStats() dbkit.PoolStats {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}
