package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "SKILLDEX"

// Skill sources and embedding providers.
const (
	SourceFS = "fs"
	SourceS3 = "s3"

	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	SkillsDir    string `envconfig:"SKILLS_DIR" default:"skills"`
	SkillsSource string `envconfig:"SKILLS_SOURCE" default:"fs"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"skilldex-skills"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX"`

	EmbeddingProvider    string `envconfig:"EMBEDDING_PROVIDER" default:"none"`
	OpenAIAPIKey         string `envconfig:"OPENAI_API_KEY"`
	OpenAIEmbeddingModel string `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	GeminiAPIKey         string `envconfig:"GEMINI_API_KEY"`
	GeminiEmbeddingModel string `envconfig:"GEMINI_EMBEDDING_MODEL" default:"gemini-embedding-001"`
	EmbeddingDimensions  int    `envconfig:"EMBEDDING_DIMENSIONS"`
	EmbedConcurrency     int    `envconfig:"EMBED_CONCURRENCY" default:"4"`

	EmbedCacheSize int           `envconfig:"EMBED_CACHE_SIZE" default:"1024"`
	EmbedCacheTTL  time.Duration `envconfig:"EMBED_CACHE_TTL" default:"1h"`
	RedisURL       string        `envconfig:"REDIS_URL"`

	SearchLimit       int      `envconfig:"SEARCH_LIMIT" default:"10"`
	SearchThreshold   float64  `envconfig:"SEARCH_THRESHOLD" default:"0.35"`
	EnabledSkills     []string `envconfig:"ENABLED_SKILLS"`
	EnabledCategories []string `envconfig:"ENABLED_CATEGORIES"`

	SkipAutoReindex bool          `envconfig:"SKIP_AUTO_REINDEX" default:"false"`
	ReindexInterval time.Duration `envconfig:"REINDEX_INTERVAL" default:"0"`
	ReindexSchedule string        `envconfig:"REINDEX_SCHEDULE"`
	Watch           bool          `envconfig:"WATCH" default:"false"`

	MaxFileBytes int64 `envconfig:"MAX_FILE_BYTES" default:"1048576"`

	APITokens []string `envconfig:"API_TOKENS"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.normalize()

	return &cfg, nil
}

func (c *Config) normalize() {
	c.SkillsSource = strings.ToLower(strings.TrimSpace(c.SkillsSource))
	c.EmbeddingProvider = strings.ToLower(strings.TrimSpace(c.EmbeddingProvider))
	if c.EmbeddingProvider == "" {
		c.EmbeddingProvider = ProviderNone
	}
	c.EnabledSkills = compact(c.EnabledSkills)
	c.EnabledCategories = compact(c.EnabledCategories)
	c.APITokens = compact(c.APITokens)
}

// Validate rejects configurations that must fail before any index write.
func (c *Config) Validate() error {
	switch c.EmbeddingProvider {
	case ProviderNone:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return domain.ErrMissingOpenAIKey
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return domain.ErrMissingGeminiKey
		}
	default:
		return domain.NewDomainErrorWithCause(domain.ErrCodeConfig, "unsupported embedding provider "+c.EmbeddingProvider, domain.ErrUnknownEmbeddingProvider)
	}

	switch c.SkillsSource {
	case SourceFS:
	case SourceS3:
		if !c.HasS3() {
			return domain.ErrMissingS3Config
		}
	default:
		return domain.NewDomainErrorWithCause(domain.ErrCodeConfig, "unsupported skills source "+c.SkillsSource, domain.ErrUnknownSkillSource)
	}

	if c.SearchThreshold < 0 || c.SearchThreshold > 1 {
		return domain.ErrInvalidThreshold
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.S3Bucket != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisURL != ""
}

func (c *Config) EmbeddingEnabled() bool {
	return c.EmbeddingProvider != "" && c.EmbeddingProvider != ProviderNone
}

func (c *Config) AuthEnabled() bool {
	return len(c.APITokens) > 0
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
