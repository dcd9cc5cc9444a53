package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/l1jgo/bulletpool/internal/config"
	"go.uber.org/zap"
)

const applicationName = "bulletpool-telemetry"

// Telemetry writes are one CopyFrom per flush, so a couple of connections
// are plenty. statementTimeout bounds a flush that would stall the tick loop.
const (
	defaultMaxConns  = 2
	statementTimeout = "3s"
)

// DB wraps a pgx connection pool for telemetry writes.
type DB struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	poolCfg, err := telemetryPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to telemetry db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping telemetry db: %w", err)
	}

	log.Info("telemetry database connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns),
		zap.Int32("min_conns", poolCfg.MinConns),
	)
	return &DB{Pool: pool, log: log}, nil
}

// telemetryPoolConfig sizes the pool for snapshot writes. MinConns never
// exceeds MaxConns and a zero lifetime keeps pgx's default.
func telemetryPoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse telemetry dsn: %w", err)
	}
	maxConns := int32(cfg.MaxOpenConns)
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	minConns := int32(cfg.MaxIdleConns)
	if minConns < 0 {
		minConns = 0
	}
	if minConns > maxConns {
		minConns = maxConns
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	params := poolCfg.ConnConfig.RuntimeParams
	if _, set := params["application_name"]; !set {
		params["application_name"] = applicationName
	}
	params["statement_timeout"] = statementTimeout
	return poolCfg, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}
