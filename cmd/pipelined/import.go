package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/ingest"
	"github.com/joseph-ayodele/hiring-pipeline/internal/utils"
)

var (
	importVacancy       string
	importDirs          []string
	importExts          []string
	importWatch         bool
	importIncludeHidden bool
	importDebounce      time.Duration
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Upload every resume under a directory for a vacancy",
	Long: "import uploads resumes found under --dir and enqueues an ingestion job for each. " +
		"With the in-process queue the jobs run before the command exits; with the redis queue " +
		"they are pushed for a running server. --watch keeps importing new files until interrupted.",
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importVacancy, "vacancy", "", "vacancy id (required)")
	importCmd.Flags().StringSliceVar(&importDirs, "dir", nil, "directory to import from (repeatable, required)")
	importCmd.Flags().StringSliceVar(&importExts, "ext", nil, "file extensions to import (default pdf,docx,txt)")
	importCmd.Flags().BoolVar(&importWatch, "watch", false, "keep watching the directories for new files")
	importCmd.Flags().BoolVar(&importIncludeHidden, "include-hidden", false, "import hidden files and directories")
	importCmd.Flags().DurationVar(&importDebounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is imported")
	_ = importCmd.MarkFlagRequired("vacancy")
	_ = importCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	vacancyID, err := utils.ParseUUID("vacancy", importVacancy)
	if err != nil {
		return err
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	queue := newQueue(cfg, c, log, false)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.JobTimeout)
		defer cancel()
		queue.Shutdown(sctx)
	}()

	im := ingest.NewImporter(newIngestService(cfg, c, queue, log), vacancyID, log, importExts...)

	if importWatch {
		return im.Watch(ctx, ingest.WatchConfig{
			Roots:       importDirs,
			InitialScan: true,
			SkipHidden:  !importIncludeHidden,
			Debounce:    importDebounce,
		})
	}

	var failed uint32
	for _, dir := range importDirs {
		results, stats, err := im.ImportDirectory(ctx, dir, !importIncludeHidden)
		if err != nil {
			return err
		}
		for _, r := range results {
			switch {
			case r.Err != "":
				fmt.Fprintf(os.Stdout, "FAIL  %s: %s\n", r.Path, r.Err)
			case r.Deduplicated:
				fmt.Fprintf(os.Stdout, "DUP   %s -> job %s\n", r.Path, r.JobID)
			default:
				fmt.Fprintf(os.Stdout, "OK    %s -> job %s\n", r.Path, r.JobID)
			}
		}
		failed += stats.Failed
		log.Info("import.directory.summary", zap.String("dir", dir), zap.Uint32("succeeded", stats.Succeeded), zap.Uint32("failed", stats.Failed))
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed to import", failed)
	}
	return nil
}
