package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/hiring-pipeline/internal/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load vacancies and stage definitions from a YAML file",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "vacancies.yaml", "seed file")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if err := requireDSN(cfg); err != nil {
		return err
	}

	fh, err := os.Open(seedFile)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer fh.Close()
	doc, err := seed.Parse(fh)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, err := openDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	ids, err := seed.NewLoader(c.db, c.vacancies, c.stages, log).Apply(ctx, doc)
	for _, id := range ids {
		fmt.Fprintln(os.Stdout, id)
	}
	return err
}
