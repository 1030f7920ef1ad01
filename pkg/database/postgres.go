package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/kantei/pkg/config"
)

// ErrNotConfigured DATABASE_URL 미설정 (영속화 비활성)
var ErrNotConfigured = errors.New("database not configured")

// DB wraps the pgxpool.Pool used by the appraisal repository
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool
// ⭐ SSOT: 유일하게 pgxpool.New()를 호출하는 함수
func New(cfg *config.Config) (*DB, error) {
	if !cfg.Database.Enabled() {
		return nil, ErrNotConfigured
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ping checks if the database is accessible
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// HealthCheck ping + 평가 스키마 존재 여부 + pending 매물 수.
// 스키마가 없으면 unhealthy (EnsureSchema 미실행)
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{CheckedAt: time.Now()}

	start := time.Now()
	if err := db.Pool.Ping(ctx); err != nil {
		status.Error = err.Error()
		return status, fmt.Errorf("ping database: %w", err)
	}
	status.Latency = time.Since(start)
	status.Stats = db.Stats()

	if err := db.Pool.QueryRow(ctx, schemaReadyQuery).Scan(&status.SchemaReady); err != nil {
		status.Error = err.Error()
		return status, fmt.Errorf("check schema: %w", err)
	}
	if !status.SchemaReady {
		status.Error = "kantei schema missing"
		return status, ErrSchemaMissing
	}

	if err := db.Pool.QueryRow(ctx, pendingCountQuery).Scan(&status.PendingListings); err != nil {
		status.Error = err.Error()
		return status, fmt.Errorf("count pending listings: %w", err)
	}

	status.Healthy = true
	return status, nil
}

// ErrSchemaMissing kantei.listings / kantei.appraisals 가 없음
var ErrSchemaMissing = errors.New("kantei schema missing")

const (
	schemaReadyQuery  = `SELECT to_regclass('kantei.listings') IS NOT NULL AND to_regclass('kantei.appraisals') IS NOT NULL`
	pendingCountQuery = `SELECT COUNT(*) FROM kantei.listings WHERE status = 'pending'`
)

// HealthStatus /health 에 실리는 DB 상태
type HealthStatus struct {
	Healthy         bool          `json:"healthy"`
	SchemaReady     bool          `json:"schema_ready"`
	PendingListings int64         `json:"pending_listings"`
	CheckedAt       time.Time     `json:"checked_at"`
	Latency         time.Duration `json:"latency"`
	Error           string        `json:"error,omitempty"`
	Stats           PoolStats     `json:"stats"`
}

// PoolStats represents connection pool statistics
type PoolStats struct {
	AcquireCount         int64         `json:"acquire_count"`
	AcquireDuration      time.Duration `json:"acquire_duration"`
	AcquiredConns        int32         `json:"acquired_conns"`
	CanceledAcquireCount int64         `json:"canceled_acquire_count"`
	ConstructingConns    int32         `json:"constructing_conns"`
	EmptyAcquireCount    int64         `json:"empty_acquire_count"`
	IdleConns            int32         `json:"idle_conns"`
	MaxConns             int32         `json:"max_conns"`
	TotalConns           int32         `json:"total_conns"`
}

// Stats returns the current pool statistics
func (db *DB) Stats() PoolStats {
	stats := db.Pool.Stat()
	return PoolStats{
		AcquireCount:         stats.AcquireCount(),
		AcquireDuration:      stats.AcquireDuration(),
		AcquiredConns:        stats.AcquiredConns(),
		CanceledAcquireCount: stats.CanceledAcquireCount(),
		ConstructingConns:    stats.ConstructingConns(),
		EmptyAcquireCount:    stats.EmptyAcquireCount(),
		IdleConns:            stats.IdleConns(),
		MaxConns:             stats.MaxConns(),
		TotalConns:           stats.TotalConns(),
	}
}
