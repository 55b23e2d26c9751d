package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/core/async"
	"github.com/joseph-ayodele/hiring-pipeline/internal/export"
	"github.com/joseph-ayodele/hiring-pipeline/internal/extract"
	"github.com/joseph-ayodele/hiring-pipeline/internal/ingest"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm/openai"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
	"github.com/joseph-ayodele/hiring-pipeline/internal/pipeline"
	repo "github.com/joseph-ayodele/hiring-pipeline/internal/repository"
	"github.com/joseph-ayodele/hiring-pipeline/internal/seed"
	"github.com/joseph-ayodele/hiring-pipeline/internal/server"
	svcingest "github.com/joseph-ayodele/hiring-pipeline/internal/services/ingest"
	"github.com/joseph-ayodele/hiring-pipeline/internal/storage"
	"github.com/joseph-ayodele/hiring-pipeline/internal/tracker"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem       = flag.Bool("inmem", false, "use a throwaway SQLite database")
		dir         = flag.String("dir", "", "directory of resumes to process (required)")
		vacancyFile = flag.String("vacancy", "", "seed YAML describing the vacancy and its stages (required)")
		out         = flag.String("out", "", "output XLSX path (defaults to board.xlsx next to --dir)")
	)
	flag.Parse()

	if *dir == "" || *vacancyFile == "" {
		printError("Error: --dir and --vacancy are required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "board.xlsx")
	}

	cfg, err := common.LoadConfig("")
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if *inmem {
		tmp, err := os.MkdirTemp("", "resume-batch-*")
		if err != nil {
			log.Fatal("failed to create temp dir", zap.Error(err))
		}
		defer os.RemoveAll(tmp)
		cfg.Database.DSN = repo.SQLiteDSN(filepath.Join(tmp, "batch.db"))
		cfg.Pipeline.BlobCacheDir = filepath.Join(tmp, "blobs")
	}
	cfg.Database.AutoMigrate = true
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	fh, err := os.Open(*vacancyFile)
	if err != nil {
		log.Fatal("failed to open vacancy file", zap.Error(err))
	}
	doc, err := seed.Parse(fh)
	_ = fh.Close()
	if err != nil {
		log.Fatal("failed to parse vacancy file", zap.Error(err))
	}
	doc.Vacancies = doc.Vacancies[:1]

	ctx := context.Background()
	db, err := server.ConnectDB(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	vacancies := repo.NewVacancyRepository(db, log)
	candidates := repo.NewCandidateRepository(db, log)
	jobs := repo.NewIngestionJobRepository(db, log)
	stages := repo.NewStageRepository(db, log)

	ids, err := seed.NewLoader(db, vacancies, stages, log).Apply(ctx, doc)
	if err != nil {
		log.Fatal("failed to create vacancy", zap.Error(err))
	}
	if len(ids) == 0 {
		log.Fatal("vacancy already exists; use a fresh database or drop the id")
	}
	vacancyID := ids[0]
	log.Info("using vacancy", zap.String("id", vacancyID.String()), zap.String("title", doc.Vacancies[0].Title))

	inf := openai.NewClient(openai.Config{
		APIKey:             cfg.LLM.APIKey,
		BaseURL:            cfg.LLM.BaseURL,
		Model:              cfg.LLM.Model,
		EmbeddingModel:     cfg.LLM.EmbeddingModel,
		ProfileTemperature: cfg.LLM.ProfileTemperature,
		ScoreTemperature:   cfg.LLM.ScoreTemperature,
		Timeout:            cfg.LLM.Timeout,
	}, log)
	clientCfg := llm.ClientConfig{Timeout: cfg.LLM.Timeout, RequestsPerSecond: cfg.LLM.RequestsPerSecond, Burst: cfg.LLM.Burst}
	scorer := llm.NewScoreClient(inf, clientCfg, log)

	store := storage.NewMemoryStore()
	orch := pipeline.New(pipeline.Deps{
		Tx:         db,
		Jobs:       jobs,
		Candidates: candidates,
		Vacancies:  vacancies,
		Store:      store,
		Extractor:  extract.NewExtractor(log),
		Profiles:   llm.NewProfileClient(inf, clientCfg, log),
		Scorer:     scorer,
		Embedder:   scorer,
		Tracker:    tracker.New(db, stages, candidates, log),
		Cache:      pipeline.NewBlobCache(cfg.Pipeline.BlobCacheDir),
	}, pipeline.Config{
		MaxAttempts:    cfg.Pipeline.MaxAttempts,
		InitialBackoff: cfg.Pipeline.InitialBackoff,
		MaxBackoff:     cfg.Pipeline.MaxBackoff,
	}, log)

	queue := async.NewProcessorQueue(orch, log,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.JobTimeout),
	)
	intake := svcingest.NewService(svcingest.Deps{
		Tx: db, Vacancies: vacancies, Candidates: candidates, Jobs: jobs,
		Store: store, Queue: queue, Control: orch,
	}, log)

	start := time.Now()
	results, stats, err := ingest.NewImporter(intake, vacancyID, log).ImportDirectory(ctx, *dir, true)
	if err != nil {
		log.Fatal("failed to import directory", zap.Error(err))
	}
	log.Info("import complete",
		zap.Int("files", len(results)),
		zap.Uint32("matched", stats.Matched),
		zap.Uint32("succeeded", stats.Succeeded),
		zap.Uint32("failed", stats.Failed),
		zap.Uint32("deduplicated", stats.Deduplicated))

	// Drain every queued job before exporting.
	queue.Shutdown(ctx)

	counts, err := jobs.CountByStage(ctx)
	if err != nil {
		log.Fatal("failed to count jobs", zap.Error(err))
	}
	if left, err := jobs.ListActive(ctx, 10); err == nil && len(left) > 0 {
		log.Warn("jobs left unfinished", zap.Int("jobs", len(left)), zap.String("first_job_id", left[0].String()))
	}

	xlsx, err := export.NewService(stages, vacancies, log).ExportBoardXLSX(ctx, vacancyID)
	if err != nil {
		log.Fatal("failed to export board", zap.Error(err))
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		log.Fatal("failed to write output file", zap.Error(err))
	}

	log.Info("batch processing complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("output_file", *out))

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files imported: %d\n", stats.Succeeded)
	fmt.Printf("- Import failures: %d\n", stats.Failed)
	fmt.Printf("- Completed: %d\n", counts[constants.JobStageCompleted])
	fmt.Printf("- Failed: %d\n", counts[constants.JobStageFailed])
	fmt.Printf("- Output: %s\n", *out)
}
