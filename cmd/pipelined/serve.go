package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/hiring-pipeline/internal/export"
	"github.com/joseph-ayodele/hiring-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/hiring-pipeline/internal/server"
	"github.com/joseph-ayodele/hiring-pipeline/internal/services/profile"
)

const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC API and pipeline workers",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	queue := newQueue(cfg, c, log, true)

	svcs := server.Services{
		Ingest:   newIngestService(cfg, c, queue, log),
		Tracker:  c.tracker,
		Profiles: profile.NewService(c.candidates, c.vacancies, log),
		Export:   export.NewService(c.stages, c.vacancies, log),
	}
	grpcServer, healthServer := server.NewGRPCServer(svcs, log)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error("failed to listen", zap.String("addr", cfg.Server.GRPCAddr), zap.Error(err))
		return err
	}

	// Everything still active at startup was interrupted by the last shutdown
	// or lost by a failed push; later sweeps only pick up abandoned jobs.
	sweeper := pipeline.NewSweeper(c.jobs, queue, cfg.Redis.LockTTL, 0, log)
	if _, err := sweeper.Requeue(ctx, time.Now()); err != nil {
		log.Warn("pipeline.recovery.failed", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("pipelined listening", zap.String("addr", lis.Addr().String()))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		healthServer.Shutdown()

		stopped := make(chan struct{})
		go func() { defer close(stopped); grpcServer.GracefulStop() }()
		select {
		case <-stopped:
		case <-time.After(shutdownGrace):
			grpcServer.Stop()
		}

		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		queue.Shutdown(sctx)
		return nil
	})
	return g.Wait()
}
