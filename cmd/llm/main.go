package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/extract"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm/gemini"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm/openai"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
	"github.com/joseph-ayodele/hiring-pipeline/internal/seed"
	"github.com/joseph-ayodele/hiring-pipeline/internal/services/ingest"
)

// llm runs profile extraction, and scoring when VACANCY_FILE is set, on one
// local resume several times to compare model output across runs.
func main() {
	log, err := logger.New(true, false)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if len(os.Args) < 2 {
		log.Error("usage: llm <resume-file> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 3
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}
	if os.Getenv("OPENAI_API_KEY") == "" {
		log.Error("OPENAI_API_KEY env var is required")
		os.Exit(2)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("read resume", zap.String("path", path), zap.Error(err))
		os.Exit(1)
	}
	mediaType := ingest.ResolveUploadMediaType(data, "", filepath.Base(path))
	res, err := extract.NewExtractor(log).Extract(data, mediaType)
	if err != nil {
		log.Error("extract text", zap.String("media_type", mediaType), zap.Error(err))
		os.Exit(1)
	}
	log.Info("text extracted",
		zap.String("media_type", mediaType),
		zap.Int("chars", len(res.Text)),
		zap.String("preview", logger.TruncateForLog(res.Text, 200)))

	var vacancy *llm.VacancyContext
	if vf := os.Getenv("VACANCY_FILE"); vf != "" {
		vacancy = loadVacancy(log, vf)
	}

	ctx := context.Background()
	inf, err := newInference(ctx, log)
	if err != nil {
		log.Error("init inference", zap.Error(err))
		os.Exit(1)
	}
	cfg := llm.ClientConfig{Timeout: 45 * time.Second}
	profiles := llm.NewProfileClient(inf, cfg, log)
	scorer := llm.NewScoreClient(inf, cfg, log)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for i := 1; i <= times; i++ {
		runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		start := time.Now()
		log.Info("llm.run.start", zap.Int("iter", i), zap.String("model", inf.Model()))

		out := map[string]any{"iter": i}
		profile, err := profiles.ExtractProfile(runCtx, res.Text)
		if err != nil {
			log.Error("llm.run.profile_error", zap.Int("iter", i), zap.Error(err))
		} else {
			out["profile"] = profile
		}
		if vacancy != nil {
			match, err := scorer.ScoreMatch(runCtx, res.Text, *vacancy)
			if err != nil {
				log.Error("llm.run.score_error", zap.Int("iter", i), zap.Error(err))
			} else {
				out["match"] = match
			}
		}
		cancel()

		log.Info("llm.run.done", zap.Int("iter", i), zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		_ = enc.Encode(out)

		time.Sleep(750 * time.Millisecond)
	}
}

func loadVacancy(log *zap.Logger, path string) *llm.VacancyContext {
	fh, err := os.Open(path)
	if err != nil {
		log.Error("open vacancy file", zap.Error(err))
		os.Exit(1)
	}
	defer fh.Close()
	doc, err := seed.Parse(fh)
	if err != nil {
		log.Error("parse vacancy file", zap.Error(err))
		os.Exit(1)
	}
	v := doc.Vacancies[0]
	return &llm.VacancyContext{
		Title:          v.Title,
		Requirements:   v.Requirements,
		RequiredSkills: v.RequiredSkills,
	}
}

func newInference(ctx context.Context, log *zap.Logger) (llm.Inference, error) {
	if getenv("LLM_PROVIDER", "openai") == "gemini" {
		return gemini.NewGenerator(ctx, gemini.Config{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  os.Getenv("OPENAI_MODEL"),
		}, log)
	}
	return openai.NewClient(openai.Config{
		Model:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Timeout: 45 * time.Second,
	}, log), nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
