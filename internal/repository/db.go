package repository

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/hiring-pipeline/db/migrate"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// DB bundles the ent SQL driver with the pgx pool behind it (nil on SQLite).
type DB struct {
	drv  *entsql.Driver
	pool *pgxpool.Pool
	log  *zap.Logger
}

func isSQLiteDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "sqlite://") || strings.HasPrefix(dsn, "file:")
}

// Open creates a pgx pool and wraps it for ent's SQL driver. DSNs starting with
// "sqlite://" or "file:" open an embedded SQLite database instead.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if isSQLiteDSN(cfg.DSN) {
		return openSQLite(cfg, logger)
	}

	logger.Info("connecting to database", zap.String("dialect", dialect.Postgres))
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", zap.Error(err))
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "hiring-pipeline"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return nil, err
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	drv := entsql.OpenDB(dialect.Postgres, db)

	logger.Info("successfully connected to database")
	return &DB{drv: drv, pool: pool, log: logger}, nil
}

func openSQLite(cfg Config, logger *zap.Logger) (*DB, error) {
	dsn := strings.TrimPrefix(cfg.DSN, "sqlite://")
	logger.Info("opening embedded database", zap.String("dialect", dialect.SQLite))
	db, err := stdsql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("failed to open sqlite database", zap.Error(err))
		return nil, err
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	return &DB{drv: entsql.OpenDB(dialect.SQLite, db), log: logger}, nil
}

// Driver exposes the ent SQL driver.
func (d *DB) Driver() *entsql.Driver { return d.drv }

func (d *DB) Dialect() string { return d.drv.Dialect() }

// Migrate creates or upgrades every table.
func (d *DB) Migrate(ctx context.Context) error {
	d.log.Info("running schema migration", zap.String("dialect", d.Dialect()))
	if err := migrate.Create(ctx, d.drv); err != nil {
		d.log.Error("schema migration failed", zap.Error(err))
		return err
	}
	d.log.Info("schema migration complete")
	return nil
}

// Close closes the database connections gracefully
func (d *DB) Close() {
	d.log.Info("closing database connections")
	if err := d.drv.Close(); err != nil {
		d.log.Error("failed to close sql driver", zap.Error(err))
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.log.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if d.pool != nil {
		err = d.pool.Ping(ctx)
	} else {
		err = d.drv.DB().PingContext(ctx)
	}
	if err != nil {
		d.log.Error("database ping failed", zap.Error(err))
		return common.NewAppError("DB_UNAVAILABLE", "ping", errors.Join(common.ErrDatabase, err))
	}
	d.log.Debug("database ping successful")
	return nil
}

// SQLiteDSN builds a file-backed SQLite DSN with foreign keys on, WAL, and
// write transactions that take the database lock up front.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
}
