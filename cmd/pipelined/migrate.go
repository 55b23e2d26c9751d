package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database tables",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if err := requireDSN(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg.Database.AutoMigrate = false
	c, err := openDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.db.Migrate(ctx); err != nil {
		return err
	}
	log.Info("migration complete", zap.String("dialect", c.db.Dialect()))
	return nil
}
