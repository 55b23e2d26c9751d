package openai

import (
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/llm"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
)

// Config for the OpenAI client.
type Config struct {
	APIKey         string // if empty, falls back to env OPENAI_API_KEY
	BaseURL        string // default https://api.openai.com/v1
	Model          string // e.g., "gpt-4o-mini"
	EmbeddingModel string // e.g., "text-embedding-3-small"
	// Temperatures per task; the defaults follow the extraction/scoring split.
	ProfileTemperature float32
	ScoreTemperature   float32
	Timeout            time.Duration // http client timeout
}

type Client struct {
	cfg Config
	api *goopenai.Client
	log *zap.Logger
}

var _ llm.Inference = (*Client)(nil)

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = string(goopenai.SmallEmbedding3)
	}
	if cfg.ProfileTemperature == 0 {
		cfg.ProfileTemperature = 0.1
	}
	if cfg.ScoreTemperature == 0 {
		cfg.ScoreTemperature = 0.2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		cfg: cfg,
		api: goopenai.NewClientWithConfig(apiCfg),
		log: logger.OrNop(log),
	}
}

func (c *Client) Model() string { return c.cfg.Model }
