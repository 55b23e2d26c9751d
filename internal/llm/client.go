package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
)

// ClientConfig bounds how the wrappers call the provider.
type ClientConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// caller holds what ProfileClient and ScoreClient share: provider, pacing
// and the per-call timeout.
type caller struct {
	inf     Inference
	limiter *rate.Limiter
	timeout time.Duration
	log     *zap.Logger
}

func newCaller(inf Inference, cfg ClientConfig, log *zap.Logger) caller {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return caller{
		inf:     inf,
		limiter: rate.NewLimiter(limit, burst),
		timeout: cfg.Timeout,
		log:     logger.OrNop(log),
	}
}

// infer runs one provider call and returns a sanitized, schema-valid document.
func (c caller) infer(ctx context.Context, req Request) ([]byte, error) {
	rid := uuid.NewString()
	start := time.Now()
	log := c.log.With(zap.String("req_id", rid), zap.String("task", string(req.Task)), zap.String("model", c.inf.Model()))
	if jobID := common.JobIDFromContext(ctx); jobID != "" {
		log = log.With(zap.String("job_id", jobID))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.KindError(constants.ErrKindInferenceUnavailable, "rate limiter wait", err)
	}

	log.Info("llm.infer.start", zap.Int("text_len", len(req.Text)))
	raw, err := c.inf.Infer(ctx, req)
	if err != nil {
		err = Classify(err)
		log.Error("llm.infer.call_failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	clean, _, err := NormalizeAndSanitizeJSON(req.Task, raw, log)
	if err != nil {
		log.Error("llm.infer.sanitize_failed", zap.Error(err), zap.String("raw", logger.TruncateForLog(string(raw), 300)))
		return nil, common.KindError(constants.ErrKindInferenceMalformedResponse, "response is not a JSON object", err)
	}
	if err := ValidateTask(req.Task, clean); err != nil {
		log.Error("llm.infer.schema_validation_failed", zap.Error(err), zap.String("content", logger.TruncateForLog(string(clean), 300)))
		return nil, common.KindError(constants.ErrKindInferenceMalformedResponse, "response does not match schema", err)
	}

	log.Info("llm.infer.ok", zap.Duration("elapsed", time.Since(start)))
	return clean, nil
}

func (c caller) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, common.KindError(constants.ErrKindInferenceUnavailable, "rate limiter wait", err)
	}
	vec, err := c.inf.Embed(ctx, text)
	if err != nil {
		return nil, Classify(err)
	}
	if len(vec) == 0 {
		return nil, common.KindError(constants.ErrKindInferenceMalformedResponse, "empty embedding", nil)
	}
	return vec, nil
}

// Classify keeps a provider-assigned kind and maps everything else
// (transport errors, timeouts) to INFERENCE_UNAVAILABLE.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *common.AppError
	if errors.As(err, &ae) && constants.ErrorKind(ae.Code).Valid() {
		return err
	}
	if common.IsTimeout(err) {
		return common.KindError(constants.ErrKindInferenceUnavailable, "inference call timed out", err)
	}
	return common.KindError(constants.ErrKindInferenceUnavailable, "inference call failed", err)
}

// ProfileClient turns resume text into ProfileFields.
type ProfileClient struct {
	caller
}

func NewProfileClient(inf Inference, cfg ClientConfig, log *zap.Logger) *ProfileClient {
	return &ProfileClient{caller: newCaller(inf, cfg, log)}
}

func (c *ProfileClient) ExtractProfile(ctx context.Context, text string) (ProfileFields, error) {
	raw, err := c.infer(ctx, Request{Task: TaskExtractProfile, Text: text})
	if err != nil {
		return ProfileFields{}, err
	}
	var out ProfileFields
	if err := json.Unmarshal(raw, &out); err != nil {
		return ProfileFields{}, common.KindError(constants.ErrKindInferenceMalformedResponse, "decode profile", err)
	}
	if out.Skills == nil {
		out.Skills = []string{}
	}
	return out, nil
}

// ScoreClient rates resume text against a vacancy. It also serves
// embeddings from the same provider.
type ScoreClient struct {
	caller
}

func NewScoreClient(inf Inference, cfg ClientConfig, log *zap.Logger) *ScoreClient {
	return &ScoreClient{caller: newCaller(inf, cfg, log)}
}

func (c *ScoreClient) ScoreMatch(ctx context.Context, text string, vacancy VacancyContext) (MatchResult, error) {
	raw, err := c.infer(ctx, Request{Task: TaskScoreMatch, Text: text, Context: vacancy.asMap()})
	if err != nil {
		return MatchResult{}, err
	}
	var out MatchResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return MatchResult{}, common.KindError(constants.ErrKindInferenceMalformedResponse, "decode match result", err)
	}
	return out, nil
}

func (c *ScoreClient) Embed(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text)
}
