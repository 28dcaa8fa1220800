package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ErrNotInitialized is returned by a Store without a pool.
var ErrNotInitialized = errors.New("store not initialized")

// Options controls connection-pool behaviour. Zero values keep pgxpool defaults,
// except StatementCacheCapacity where 0 turns statement caching off.
type Options struct {
	ApplicationName        string
	MaxConns               int32
	MinConns               int32
	MaxConnIdleTime        time.Duration
	MaxConnLifetime        time.Duration
	ConnTimeout            time.Duration
	StatementCacheCapacity int
	Logger                 *zap.Logger
}

// Store owns the PostgreSQL pool shared by the repositories.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	opts   Options
}

// PoolStats is a point-in-time view of pool occupancy.
type PoolStats struct {
	TotalConns    int32 `json:"totalConns"`
	IdleConns     int32 `json:"idleConns"`
	AcquiredConns int32 `json:"acquiredConns"`
	MaxConns      int32 `json:"maxConns"`
}

// poolConfig applies opts on top of the settings carried by dbURL.
func poolConfig(dbURL string, opts Options) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}

	if opts.StatementCacheCapacity > 0 {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
		cfg.ConnConfig.StatementCacheCapacity = opts.StatementCacheCapacity
	} else {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeDescribeExec
		cfg.ConnConfig.StatementCacheCapacity = 0
	}

	if opts.ApplicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	}
	return cfg, nil
}

// New opens the pool and pings it within opts.ConnTimeout.
func New(ctx context.Context, dbURL string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("store")

	cfg, err := poolConfig(dbURL, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("initializing connection pool",
		zap.String("application_name", opts.ApplicationName),
		zap.Int32("max_conns", cfg.MaxConns),
		zap.Int32("min_conns", cfg.MinConns),
		zap.Duration("max_idle", cfg.MaxConnIdleTime),
		zap.Duration("max_life", cfg.MaxConnLifetime),
		zap.Int("stmt_cache", cfg.ConnConfig.StatementCacheCapacity),
	)

	s := &Store{logger: logger, opts: opts}
	connCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s.pool = pool

	logger.Info("database connection established")
	return s, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.ConnTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.ConnTimeout)
	}
	return ctx, func() {}
}

// Close releases database resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.logger.Info("closing connection pool")
	s.pool.Close()
}

// HealthCheck pings the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return ErrNotInitialized
	}
	checkCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.pool.Ping(checkCtx)
}

// Pool exposes the underlying pgx pool for repositories and migrations.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// PoolStats reports pool occupancy; ok is false when there is no pool.
func (s *Store) PoolStats() (PoolStats, bool) {
	if s == nil || s.pool == nil {
		return PoolStats{}, false
	}
	st := s.pool.Stat()
	return PoolStats{
		TotalConns:    st.TotalConns(),
		IdleConns:     st.IdleConns(),
		AcquiredConns: st.AcquiredConns(),
		MaxConns:      st.MaxConns(),
	}, true
}

// ConnectionStates maps pool occupancy to gauge values keyed by state.
func (s *Store) ConnectionStates() map[string]float64 {
	st, ok := s.PoolStats()
	if !ok {
		return nil
	}
	return map[string]float64{
		"total":    float64(st.TotalConns),
		"idle":     float64(st.IdleConns),
		"acquired": float64(st.AcquiredConns),
		"max":      float64(st.MaxConns),
	}
}
