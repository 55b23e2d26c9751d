package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
)

const (
	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
)

type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	EmbeddingModel     string
	ProfileTemperature float32
	ScoreTemperature   float32
}

// Generator wraps the Google GenAI client and implements llm.Inference.
type Generator struct {
	client *genai.Client
	cfg    Config
	log    *zap.Logger
}

var _ llm.Inference = (*Generator)(nil)

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, cfg Config, log *zap.Logger) (*Generator, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.EmbeddingModel = strings.TrimSpace(cfg.EmbeddingModel); cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultEmbeddingModel
	}
	if cfg.ProfileTemperature == 0 {
		cfg.ProfileTemperature = 0.1
	}
	if cfg.ScoreTemperature == 0 {
		cfg.ScoreTemperature = 0.2
	}

	return &Generator{client: client, cfg: cfg, log: logger.OrNop(log)}, nil
}

// Infer sends the task prompt to Gemini with a JSON response type and
// returns the joined text of the first candidates.
func (g *Generator) Infer(ctx context.Context, req llm.Request) ([]byte, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("gemini generator is not initialized")
	}

	temp := g.cfg.ProfileTemperature
	if req.Task == llm.TaskScoreMatch {
		temp = g.cfg.ScoreTemperature
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(llm.BuildSystemPrompt(req.Task), genai.RoleUser),
		Temperature:       genai.Ptr(temp),
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(llm.BuildUserPrompt(req)), config)
	if err != nil {
		g.log.Error("llm.gemini.generate_error", zap.String("task", string(req.Task)), zap.Error(err))
		return nil, classify(err, "generate content")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return nil, common.KindError(constants.ErrKindInferenceMalformedResponse, "gemini api returned empty response", nil)
	}
	return []byte(output), nil
}

func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.cfg.EmbeddingModel, genai.Text(text), nil)
	if err != nil {
		g.log.Warn("llm.gemini.embedding_error", zap.Error(err))
		return nil, classify(err, "embed content")
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, common.KindError(constants.ErrKindInferenceMalformedResponse, "gemini api returned no embedding", nil)
	}
	return resp.Embeddings[0].Values, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.cfg.Model
}

func classify(err error, op string) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr):
		code = apiErrPtr.Code
	}
	if code == 0 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500 {
		return common.KindError(constants.ErrKindInferenceUnavailable, "gemini "+op, err)
	}
	return common.KindError(constants.ErrKindInternal, "gemini "+op, err)
}
