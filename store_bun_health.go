package deskguard

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Health reports reachability, latency and pool statistics. A store bound to
// a transaction only reports reachability.
func (s *BunStore) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}
	status := dbkit.HealthStatus{Healthy: true}
	if err := s.Ping(ctx); err != nil {
		status.Healthy = false
		status.Error = err.Error()
	}
	return status
}

// IsHealthy reports whether the database is reachable.
func (s *BunStore) IsHealthy(ctx context.Context) bool {
	return s.Health(ctx).Healthy
}

// Ping checks the connection through dbkit. Inside a transaction it falls
// back to a trivial query on that transaction.
func (s *BunStore) Ping(ctx context.Context) error {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Ping(ctx)
	}
	var one int
	return dbkit.WithErr1(s.db.NewRaw("SELECT 1").Scan(ctx, &one), "Ping").Err()
}

// PoolConfig sizes the connection pool of a BunStore.
type PoolConfig struct {
	MaxOpenConnections    int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
	ConnectionMaxIdleTime time.Duration
}

// DefaultPoolConfig returns pool settings suited to a single service instance.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    25,
		MaxIdleConnections:    5,
		ConnectionMaxLifetime: 30 * time.Minute,
		ConnectionMaxIdleTime: 5 * time.Minute,
	}
}

// ConfigurePool applies cfg to the underlying connection pool.
func (s *BunStore) ConfigurePool(cfg PoolConfig) error {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}
	bunDB := db.Bun()
	if bunDB == nil {
		return fmt.Errorf("database instance not available")
	}

	bunDB.SetMaxOpenConns(cfg.MaxOpenConnections)
	bunDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	bunDB.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)
	bunDB.SetConnMaxIdleTime(cfg.ConnectionMaxIdleTime)
	return nil
}

// PoolStats returns connection pool statistics, or zero values when the
// store does not wrap a *dbkit.DBKit.
func (s *BunStore) PoolStats() dbkit.PoolStats {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}
