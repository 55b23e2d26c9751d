package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/async"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	coreasync "github.com/joseph-ayodele/hiring-pipeline/internal/core/async"
	"github.com/joseph-ayodele/hiring-pipeline/internal/core/lock"
	"github.com/joseph-ayodele/hiring-pipeline/internal/extract"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm/gemini"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm/openai"
	"github.com/joseph-ayodele/hiring-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/hiring-pipeline/internal/repository"
	"github.com/joseph-ayodele/hiring-pipeline/internal/server"
	"github.com/joseph-ayodele/hiring-pipeline/internal/services/ingest"
	"github.com/joseph-ayodele/hiring-pipeline/internal/storage"
	"github.com/joseph-ayodele/hiring-pipeline/internal/tracker"
)

// components is everything a job-driving command needs.
type components struct {
	db         *repository.DB
	rdb        *redis.Client
	vacancies  repository.VacancyRepository
	candidates repository.CandidateRepository
	jobs       repository.IngestionJobRepository
	stages     repository.StageRepository
	store      storage.ObjectStore
	tracker    *tracker.Tracker
	orch       *pipeline.Orchestrator
}

func (c *components) Close() {
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	if c.db != nil {
		c.db.Close()
	}
}

// openDB connects the repositories only.
func openDB(ctx context.Context, cfg *common.Config, log *zap.Logger) (*components, error) {
	db, err := server.ConnectDB(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &components{
		db:         db,
		vacancies:  repository.NewVacancyRepository(db, log),
		candidates: repository.NewCandidateRepository(db, log),
		jobs:       repository.NewIngestionJobRepository(db, log),
		stages:     repository.NewStageRepository(db, log),
	}, nil
}

// build wires the full pipeline: database, object store, inference provider,
// locker and orchestrator.
func build(ctx context.Context, cfg *common.Config, log *zap.Logger) (*components, error) {
	c, err := openDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	c.store, err = storage.NewMinioStore(ctx, storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
		Timeout:   cfg.Storage.Timeout,
	}, log)
	if err != nil {
		return nil, err
	}

	inf, err := newInference(ctx, cfg.LLM, log)
	if err != nil {
		return nil, err
	}
	clientCfg := llm.ClientConfig{
		Timeout:           cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
	}
	scorer := llm.NewScoreClient(inf, clientCfg, log)

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.URL != "" {
		c.rdb, err = lock.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		locker = lock.NewRedisLocker(c.rdb, "hiring-pipeline:lock:", log)
	}

	c.tracker = tracker.New(c.db, c.stages, c.candidates, log)
	c.orch = pipeline.New(pipeline.Deps{
		Tx:         c.db,
		Jobs:       c.jobs,
		Candidates: c.candidates,
		Vacancies:  c.vacancies,
		Store:      c.store,
		Extractor:  extract.NewExtractor(log),
		Profiles:   llm.NewProfileClient(inf, clientCfg, log),
		Scorer:     scorer,
		Embedder:   scorer,
		Tracker:    c.tracker,
		Locker:     locker,
		Cache:      pipeline.NewBlobCache(cfg.Pipeline.BlobCacheDir),
	}, pipeline.Config{
		MaxAttempts:    cfg.Pipeline.MaxAttempts,
		InitialBackoff: cfg.Pipeline.InitialBackoff,
		MaxBackoff:     cfg.Pipeline.MaxBackoff,
		LockTTL:        cfg.Redis.LockTTL,
	}, log)

	ok = true
	return c, nil
}

func newInference(ctx context.Context, cfg common.LLMConfig, log *zap.Logger) (llm.Inference, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.NewClient(openai.Config{
			APIKey:             cfg.APIKey,
			BaseURL:            cfg.BaseURL,
			Model:              cfg.Model,
			EmbeddingModel:     cfg.EmbeddingModel,
			ProfileTemperature: cfg.ProfileTemperature,
			ScoreTemperature:   cfg.ScoreTemperature,
			Timeout:            cfg.Timeout,
		}, log), nil
	case "gemini":
		return gemini.NewGenerator(ctx, gemini.Config{
			APIKey:             cfg.APIKey,
			BaseURL:            cfg.BaseURL,
			Model:              cfg.Model,
			EmbeddingModel:     cfg.EmbeddingModel,
			ProfileTemperature: cfg.ProfileTemperature,
			ScoreTemperature:   cfg.ScoreTemperature,
		}, log)
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", common.ErrInvalidInput, cfg.Provider)
	}
}

// newQueue returns the configured work queue. A redis queue only consumes
// when consume is set; the in-process queue always runs its workers.
func newQueue(cfg *common.Config, c *components, log *zap.Logger, consume bool) async.Queue {
	if cfg.Redis.Queue == "redis" {
		rq := coreasync.NewRedisQueue(c.rdb, cfg.Redis.QueueKey, c.orch, log,
			coreasync.WithRedisWorkers(cfg.Pipeline.Workers),
			coreasync.WithRedisProcessTimeout(cfg.Pipeline.JobTimeout),
		)
		if consume {
			rq.Start()
		}
		return rq
	}
	return coreasync.NewProcessorQueue(c.orch, log,
		coreasync.WithWorkers(cfg.Pipeline.Workers),
		coreasync.WithQueueSize(cfg.Pipeline.QueueSize),
		coreasync.WithProcessTimeout(cfg.Pipeline.JobTimeout),
	)
}

func newIngestService(cfg *common.Config, c *components, queue async.Queue, log *zap.Logger) *ingest.Service {
	return ingest.NewService(ingest.Deps{
		Tx:         c.db,
		Vacancies:  c.vacancies,
		Candidates: c.candidates,
		Jobs:       c.jobs,
		Store:      c.store,
		Queue:      queue,
		Control:    c.orch,
		PresignTTL: cfg.Storage.PresignTTL,
	}, log)
}
