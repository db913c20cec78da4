package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
)

type Config = common.DatabaseConfig

// Dialect names the SQL flavour behind a DB.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB wraps a *sql.DB together with its dialect.
type DB struct {
	SQL     *sql.DB
	Dialect Dialect

	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to PostgreSQL through a pgx pool for postgres:// DSNs and to
// SQLite otherwise.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.IsPostgres() {
		return openPostgres(ctx, cfg, logger)
	}
	return openSQLite(ctx, cfg, logger)
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, common.NewAppError("DB_CONFIG", "parse dsn", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-extract"

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}

	logger.Info("successfully connected to database")
	return &DB{
		SQL:     stdlib.OpenDBFromPool(pool),
		Dialect: Postgres,
		pool:    pool,
		logger:  logger,
	}, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", SQLite, "dsn", cfg.DSN)
	sqldb, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	// SQLite allows a single writer; one connection serializes workers instead
	// of failing them with SQLITE_BUSY.
	sqldb.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"} {
		if _, err := sqldb.ExecContext(ctx, pragma); err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("%w: %s: %v", common.ErrDatabase, pragma, err)
		}
	}
	return &DB{SQL: sqldb, Dialect: SQLite, logger: logger}, nil
}

// Close closes the database connections gracefully
func (db *DB) Close() {
	db.logger.Info("closing database connections")
	if err := db.SQL.Close(); err != nil {
		db.logger.Error("failed to close database", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	db.logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.SQL.PingContext(ctx); err != nil {
		db.logger.Error("database ping failed", "error", err)
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	db.logger.Debug("database ping successful")
	return nil
}

// rebind rewrites '?' placeholders as $1..$n for postgres.
func (db *DB) rebind(query string) string {
	if db.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
