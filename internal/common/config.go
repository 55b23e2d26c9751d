package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `mapstructure:"dsn" validate:"required"`
	MaxConns         int32         `mapstructure:"max_conns" validate:"gte=1"`
	MinConns         int32         `mapstructure:"min_conns" validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `mapstructure:"grpc_addr" validate:"required"`
}

// StorageConfig holds object store configuration
type StorageConfig struct {
	Endpoint   string        `mapstructure:"endpoint" validate:"required"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	Bucket     string        `mapstructure:"bucket" validate:"required"`
	UseSSL     bool          `mapstructure:"use_ssl"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

// RedisConfig holds redis configuration. An empty URL keeps locking and
// queueing in-process.
type RedisConfig struct {
	URL      string        `mapstructure:"url" validate:"required_if=Queue redis"`
	Queue    string        `mapstructure:"queue" validate:"oneof=memory redis"`
	QueueKey string        `mapstructure:"queue_key"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

// LLMConfig holds inference-related configuration
type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=openai gemini"`
	// Model and EmbeddingModel default per provider when empty.
	Model              string        `mapstructure:"model"`
	EmbeddingModel     string        `mapstructure:"embedding_model"`
	APIKey             string        `mapstructure:"api_key" validate:"required"`
	BaseURL            string        `mapstructure:"base_url"`
	ProfileTemperature float32       `mapstructure:"profile_temperature" validate:"gte=0,lte=2"`
	ScoreTemperature   float32       `mapstructure:"score_temperature" validate:"gte=0,lte=2"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RequestsPerSecond  float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst              int           `mapstructure:"burst" validate:"gte=0"`
}

// PipelineConfig holds orchestrator and worker configuration
type PipelineConfig struct {
	Workers        int           `mapstructure:"workers" validate:"gte=1"`
	QueueSize      int           `mapstructure:"queue_size" validate:"gte=1"`
	JobTimeout     time.Duration `mapstructure:"job_timeout" validate:"gt=0"`
	MaxAttempts    int           `mapstructure:"max_attempts" validate:"gte=1"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	BlobCacheDir   string        `mapstructure:"blob_cache_dir"`
}

type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// envBindings keeps the variable names used by existing deployments.
var envBindings = map[string]string{
	"database.dsn":                "DB_URL",
	"database.max_conns":          "DB_MAX_CONNS",
	"database.min_conns":          "DB_MIN_CONNS",
	"database.max_conn_lifetime":  "DB_MAX_CONN_LIFETIME",
	"database.max_conn_idle_time": "DB_MAX_CONN_IDLE_TIME",
	"database.dial_timeout":       "DB_DIAL_TIMEOUT",
	"database.statement_timeout":  "DB_STATEMENT_TIMEOUT",
	"database.auto_migrate":       "DB_AUTO_MIGRATE",
	"server.grpc_addr":            "GRPC_ADDR",
	"storage.endpoint":            "MINIO_ENDPOINT",
	"storage.access_key":          "MINIO_ACCESS_KEY",
	"storage.secret_key":          "MINIO_SECRET_KEY",
	"storage.bucket":              "MINIO_BUCKET",
	"storage.use_ssl":             "MINIO_SECURE",
	"storage.timeout":             "MINIO_TIMEOUT",
	"storage.presign_ttl":         "MINIO_PRESIGN_TTL",
	"redis.url":                   "REDIS_URL",
	"redis.queue":                 "QUEUE_BACKEND",
	"redis.queue_key":             "REDIS_QUEUE_KEY",
	"redis.lock_ttl":              "JOB_LOCK_TTL",
	"llm.provider":                "LLM_PROVIDER",
	"llm.model":                   "OPENAI_MODEL",
	"llm.embedding_model":         "OPENAI_EMBEDDING_MODEL",
	"llm.api_key":                 "OPENAI_API_KEY",
	"llm.base_url":                "OPENAI_BASE_URL",
	"llm.profile_temperature":     "LLM_PROFILE_TEMPERATURE",
	"llm.score_temperature":       "LLM_SCORE_TEMPERATURE",
	"llm.timeout":                 "OPENAI_TIMEOUT",
	"llm.requests_per_second":     "LLM_REQUESTS_PER_SECOND",
	"llm.burst":                   "LLM_BURST",
	"pipeline.workers":            "PIPELINE_WORKERS",
	"pipeline.queue_size":         "PIPELINE_QUEUE_SIZE",
	"pipeline.job_timeout":        "PIPELINE_JOB_TIMEOUT",
	"pipeline.max_attempts":       "PIPELINE_MAX_ATTEMPTS",
	"pipeline.initial_backoff":    "PIPELINE_INITIAL_BACKOFF",
	"pipeline.max_backoff":        "PIPELINE_MAX_BACKOFF",
	"pipeline.blob_cache_dir":     "ARTIFACT_CACHE_DIR",
	"log.json":                    "LOG_JSON",
	"log.debug":                   "LOG_DEBUG",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.dial_timeout", 3*time.Second)
	v.SetDefault("database.statement_timeout", time.Duration(0))
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.bucket", "resumes")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.timeout", 20*time.Second)
	v.SetDefault("storage.presign_ttl", 15*time.Minute)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.queue", "memory")
	v.SetDefault("redis.queue_key", "hiring-pipeline:jobs")
	v.SetDefault("redis.lock_ttl", 20*time.Minute)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.embedding_model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.profile_temperature", 0.1)
	v.SetDefault("llm.score_temperature", 0.2)
	v.SetDefault("llm.timeout", 45*time.Second)
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.burst", 2)
	v.SetDefault("pipeline.workers", 6)
	v.SetDefault("pipeline.queue_size", 512)
	v.SetDefault("pipeline.job_timeout", 15*time.Minute)
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.initial_backoff", 2*time.Second)
	v.SetDefault("pipeline.max_backoff", 30*time.Second)
	v.SetDefault("pipeline.blob_cache_dir", "./tmp/blobs")
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// LoadConfig loads configuration from .env, the environment and an optional
// YAML file at path (empty path skips the file).
func LoadConfig(path string) (*Config, error) {
	// .env is a convenience for local runs; absence is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError("CONFIG_ERROR", "decode config", err)
	}
	return &cfg, nil
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()), ErrInvalidInput)
		}
		return NewAppError("CONFIG_ERROR", "invalid configuration", err)
	}
	if c.Pipeline.MaxBackoff > 0 && c.Pipeline.InitialBackoff > c.Pipeline.MaxBackoff {
		return NewAppError("CONFIG_ERROR", "pipeline.initial_backoff exceeds pipeline.max_backoff", ErrInvalidInput)
	}
	if c.Redis.LockTTL > 0 && c.Redis.LockTTL <= c.Pipeline.JobTimeout {
		return NewAppError("CONFIG_ERROR", "redis.lock_ttl must exceed pipeline.job_timeout", ErrInvalidInput)
	}
	if budget := c.JobBudget(); c.Pipeline.JobTimeout < budget {
		return NewAppError("CONFIG_ERROR",
			fmt.Sprintf("pipeline.job_timeout %s is shorter than the retry budget %s", c.Pipeline.JobTimeout, budget), ErrInvalidInput)
	}
	return nil
}

// JobBudget is the longest one job can take when every retryable stage uses
// all of its attempts: two storage-bound stages, two inference stages, one
// embedding call and the backoff waits between attempts.
func (c *Config) JobBudget() time.Duration {
	attempts := time.Duration(max(c.Pipeline.MaxAttempts, 1))
	storage := 2 * attempts * c.Storage.Timeout
	inference := (2*attempts + 1) * c.LLM.Timeout
	waits := 4 * (attempts - 1) * c.Pipeline.MaxBackoff
	return storage + inference + waits
}
