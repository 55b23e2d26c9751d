package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/utils"
)

var runJobCmd = &cobra.Command{
	Use:   "run-job <job-id>",
	Short: "Drive one ingestion job synchronously",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return driveJob(cmd.Context(), args[0], false)
	},
}

var rerunCmd = &cobra.Command{
	Use:   "rerun <job-id>",
	Short: "Reset a FAILED job and drive it again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return driveJob(cmd.Context(), args[0], true)
	},
}

func init() {
	rootCmd.AddCommand(runJobCmd, rerunCmd)
}

// driveJob wires the pipeline, optionally resets a failed job, then runs it
// in-process and prints where it ended up.
func driveJob(ctx context.Context, rawID string, rerun bool) error {
	jobID, err := utils.ParseUUID("job_id", rawID)
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

	c, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	if rerun {
		if err := c.orch.Rerun(ctx, jobID); err != nil {
			return err
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Pipeline.JobTimeout)
	defer cancel()
	runErr := c.orch.RunJob(runCtx, jobID)
	if runErr != nil {
		log.Error("pipeline.run.error", zap.String("job_id", jobID.String()), zap.Error(runErr))
	}

	if err := printJob(ctx, c, jobID); err != nil {
		return err
	}
	return runErr
}

func printJob(ctx context.Context, c *components, jobID uuid.UUID) error {
	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "job %s: stage=%s attempts=%d", job.ID, job.Stage, job.Attempts)
	if job.ErrorKind != "" {
		fmt.Fprintf(os.Stdout, " error_kind=%s", job.ErrorKind)
	}
	if job.ErrorMessage != nil {
		fmt.Fprintf(os.Stdout, " error=%q", *job.ErrorMessage)
	}
	fmt.Fprintln(os.Stdout)
	return nil
}
