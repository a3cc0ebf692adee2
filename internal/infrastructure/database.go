// Package infrastructure provides database and connection pool setup.
//
// On PostgreSQL a single pgxpool backs gorm through stdlib.OpenDBFromPool, so
// pool limits from config apply to every query. SQLite is used for local runs
// and tests.
//
// Import Path: nodetree.io/nodetree/internal/infrastructure
package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"nodetree.io/nodetree/internal/config"
	"nodetree.io/nodetree/internal/pkg/logger"
)

// Database bundles the handles of one database connection.
type Database struct {
	Driver string

	// Pool is the shared pgx pool. nil on SQLite.
	Pool *pgxpool.Pool

	// SQL is the *sql.DB underneath Gorm.
	SQL *sql.DB

	Gorm *gorm.DB
}

// NewDatabase opens the database configured in cfg and verifies the connection.
func NewDatabase(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return openSQLite(ctx, cfg)
	case config.DriverPostgres, "":
		return openPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	poolConfig.HealthCheckPeriod = time.Minute

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	gdb, err := OpenGormPostgres(sqlDB, cfg.SlowQueryThreshold)
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, err
	}

	logger.Info("Database connection pool created",
		zap.String("driver", config.DriverPostgres),
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
	)

	return &Database{
		Driver: config.DriverPostgres,
		Pool:   pool,
		SQL:    sqlDB,
		Gorm:   gdb,
	}, nil
}

func openSQLite(ctx context.Context, cfg config.DatabaseConfig) (*Database, error) {
	gdb, err := OpenGormSQLite(cfg.DSN(), cfg.SlowQueryThreshold)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Database opened",
		zap.String("driver", config.DriverSQLite),
		zap.String("path", cfg.SQLitePath),
	)

	return &Database{
		Driver: config.DriverSQLite,
		SQL:    sqlDB,
		Gorm:   gdb,
	}, nil
}

// OpenGormPostgres wraps an existing *sql.DB (usually from stdlib.OpenDBFromPool).
func OpenGormPostgres(sqlDB *sql.DB, slowThreshold time.Duration) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig(slowThreshold))
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}
	return gdb, nil
}

// OpenGormSQLite opens a SQLite database. The connection count is pinned to
// one: in-memory databases are per connection and SQLite allows a single writer.
func OpenGormSQLite(dsn string, slowThreshold time.Duration) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), gormConfig(slowThreshold))
	if err != nil {
		return nil, fmt.Errorf("open gorm sqlite: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

func gormConfig(slowThreshold time.Duration) *gorm.Config {
	return &gorm.Config{
		Logger:         NewGormLogger(logger.Named("gorm"), slowThreshold),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
}

// Ping verifies the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	if d.Pool != nil {
		return d.Pool.Ping(ctx)
	}
	return d.SQL.PingContext(ctx)
}

// Close closes all connections.
func (d *Database) Close() {
	if d.SQL != nil {
		_ = d.SQL.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}
