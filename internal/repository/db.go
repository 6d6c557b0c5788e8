// Package repository persists run history in SQLite or PostgreSQL.
package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// Open connects to the history database. A postgres:// DSN goes through a
// pgx pool; anything else is treated as a SQLite path.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*sqlx.DB, *pgxpool.Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("connecting to database", zap.String("dsn", cfg.DSN))

	if isPostgres(cfg.DSN) {
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("failed to connect to database", zap.Error(err))
			return nil, nil, err
		}

		// Zero values keep the pool defaults.
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		if cfg.MinConns > 0 {
			pc.MinConns = cfg.MinConns
		}
		if cfg.MaxConnLifetime > 0 {
			pc.MaxConnLifetime = cfg.MaxConnLifetime
		}
		if cfg.MaxConnIdleTime > 0 {
			pc.MaxConnIdleTime = cfg.MaxConnIdleTime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "consignee-renamer"

		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout(cfg))
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dialCtx, pc)
		if err != nil {
			logger.Error("failed to connect to database", zap.Error(err))
			return nil, nil, err
		}

		db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
		logger.Info("successfully connected to database")
		return db, pool, nil
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return nil, nil, err
	}
	// Single writer keeps SQLite out of SQLITE_BUSY territory.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout(cfg))
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		_ = db.Close()
		return nil, nil, err
	}

	logger.Info("successfully connected to database")
	return db, nil, nil
}

// Close closes the database connections gracefully.
func Close(db *sqlx.DB, pool *pgxpool.Pool, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("closing database connections")
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func HealthCheck(ctx context.Context, db *sqlx.DB, timeout time.Duration, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func dialTimeout(cfg Config) time.Duration {
	if cfg.DialTimeout > 0 {
		return cfg.DialTimeout
	}
	return 5 * time.Second
}
