package server

import (
	"context"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/repository"
)

// ConnectDB opens the database, checks it responds and, when configured,
// migrates the schema.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *zap.Logger) (*repository.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return nil, err
	}
	if err := db.HealthCheck(ctx, cfg.DialTimeout); err != nil {
		db.Close()
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	logger.Info("successfully connected to database", zap.String("dialect", db.Dialect()))
	return db, nil
}
