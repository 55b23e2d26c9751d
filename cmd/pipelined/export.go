package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/export"
	"github.com/joseph-ayodele/hiring-pipeline/internal/utils"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <vacancy-id>",
	Short: "Write a vacancy board as an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output XLSX path (default board-<vacancy-id>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	vacancyID, err := utils.ParseUUID("vacancy_id", args[0])
	if err != nil {
		return err
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if err := requireDSN(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := openDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	data, err := export.NewService(c.stages, c.vacancies, log).ExportBoardXLSX(ctx, vacancyID)
	if err != nil {
		return err
	}
	out := exportOut
	if out == "" {
		out = fmt.Sprintf("board-%s.xlsx", vacancyID)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	log.Info("board exported", zap.String("path", out), zap.Int("bytes", len(data)))
	return nil
}
