package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
)

var (
	configPath string
	debugLog   bool
	jsonLog    bool
)

var rootCmd = &cobra.Command{
	Use:           "pipelined",
	Short:         "Resume ingestion, scoring and stage tracking",
	Long:          "pipelined ingests uploaded resumes, extracts candidate profiles, scores them against vacancies and tracks candidates through hiring stages.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json", false, "log as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger. Flags override the
// config file and environment.
func setup() (*common.Config, *zap.Logger, error) {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if debugLog {
		cfg.Log.Debug = true
	}
	if jsonLog {
		cfg.Log.JSON = true
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}

// requireDSN is the only check for commands that touch nothing but the database.
func requireDSN(cfg *common.Config) error {
	if cfg.Database.DSN == "" {
		return common.NewAppError("CONFIG_ERROR", "database.dsn (DB_URL) is required", common.ErrInvalidInput)
	}
	return nil
}
