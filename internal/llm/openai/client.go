package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm"
)

// Infer implements llm.Inference using chat/completions in JSON-object mode.
func (c *Client) Infer(ctx context.Context, req llm.Request) ([]byte, error) {
	start := time.Now()

	temp := c.cfg.ProfileTemperature
	if req.Task == llm.TaskScoreMatch {
		temp = c.cfg.ScoreTemperature
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: temp,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: llm.BuildSystemPrompt(req.Task)},
			{Role: goopenai.ChatMessageRoleUser, Content: llm.BuildUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
		},
	})
	if err != nil {
		c.log.Error("llm.openai.chat_error",
			zap.String("task", string(req.Task)),
			zap.Error(err),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil, classify(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, common.KindError(constants.ErrKindInferenceMalformedResponse, "no choices in openai response", nil)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.log.Debug("llm.openai.chat_ok",
		zap.String("task", string(req.Task)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)),
	)
	return []byte(content), nil
}

// Embed implements llm.Inference.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(c.cfg.EmbeddingModel),
	})
	if err != nil {
		c.log.Warn("llm.openai.embedding_error", zap.Error(err))
		return nil, classify(err, "embedding")
	}
	if len(resp.Data) == 0 {
		return nil, common.KindError(constants.ErrKindInferenceMalformedResponse, "no embedding in openai response", nil)
	}
	return resp.Data[0].Embedding, nil
}

// classify maps go-openai errors onto the pipeline taxonomy: 429, 5xx and
// transport failures are retryable, other 4xx are not.
func classify(err error, op string) error {
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	switch {
	case status == 0, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status >= 500:
		return common.KindError(constants.ErrKindInferenceUnavailable, "openai "+op, err)
	default:
		return common.KindError(constants.ErrKindInternal, "openai "+op, err)
	}
}
