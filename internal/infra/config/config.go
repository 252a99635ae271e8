package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Summary SummaryConfig `yaml:"summary"`
	LLM     LLMConfig     `yaml:"llm"`
	Source  SourceConfig  `yaml:"source"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address         string          `yaml:"address"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	AllowedOrigins  []string        `yaml:"allowedOrigins"`
	MaxUploadBytes  int64           `yaml:"maxUploadBytes"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// SummaryConfig defines the map-reduce pipeline limits.
type SummaryConfig struct {
	MaxWords             int      `yaml:"maxWords"`
	MaxChunkChars        int      `yaml:"maxChunkChars"`
	ChunkOverlap         int      `yaml:"chunkOverlap"`
	MaxCombineChars      int      `yaml:"maxCombineChars"`
	Separators           []string `yaml:"separators"`
	MapConcurrency       int      `yaml:"mapConcurrency"`
	ReduceConcurrency    int      `yaml:"reduceConcurrency"`
	ContinueOnChunkError bool     `yaml:"continueOnChunkError"`
	MapPrompt            string   `yaml:"mapPrompt"`
	ReducePrompt         string   `yaml:"reducePrompt"`
}

// LLMConfig selects and tunes the summarizer backends. API keys are never
// part of the configuration; they arrive with each request.
type LLMConfig struct {
	Provider            string                    `yaml:"provider"`
	Model               string                    `yaml:"model"`
	BaseURL             string                    `yaml:"baseUrl"`
	Temperature         float32                   `yaml:"temperature"`
	MaxTokens           int                       `yaml:"maxTokens"`
	ContextWindowTokens int                       `yaml:"contextWindowTokens"`
	Encoding            string                    `yaml:"encoding"`
	Timeout             time.Duration             `yaml:"timeout"`
	Providers           map[string]ProviderConfig `yaml:"providers"`
	Retry               RetryConfig               `yaml:"retry"`
	Breaker             BreakerConfig             `yaml:"breaker"`
	RateLimit           BackendRateLimitConfig    `yaml:"rateLimit"`
}

// ProviderConfig overrides endpoint and model for one provider.
type ProviderConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
}

// RetryConfig configures retries of transient backend failures.
type RetryConfig struct {
	MaxRetries int           `yaml:"maxRetries"`
	BaseDelay  time.Duration `yaml:"baseDelay"`
	MaxDelay   time.Duration `yaml:"maxDelay"`
	Jitter     time.Duration `yaml:"jitter"`
}

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold float64       `yaml:"failureThreshold"`
	MinRequests      uint32        `yaml:"minRequests"`
	MaxRequests      uint32        `yaml:"maxRequests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
}

// BackendRateLimitConfig throttles outgoing backend calls.
type BackendRateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// SourceConfig describes where documents can be loaded from.
type SourceConfig struct {
	MaxBytes int64    `yaml:"maxBytes"`
	S3       S3Config `yaml:"s3"`
}

// S3Config contains connection settings for S3-compatible storage.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSsl"`
}

// Load reads configuration from CONFIG_PATH or configs/config.yaml and the environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit file path; an empty path falls back to Load's lookup.
func LoadFrom(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(defaultConfigPath); err == nil {
		if err := hydrateFromFile(cfg, defaultConfigPath); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_MAX_UPLOAD_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.HTTP.MaxUploadBytes = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("SUMMARY_MAX_WORDS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.MaxWords = parsed
		}
	}
	if v := os.Getenv("SUMMARY_MAX_CHUNK_CHARS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.MaxChunkChars = parsed
		}
	}
	if v := os.Getenv("SUMMARY_CHUNK_OVERLAP"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.ChunkOverlap = parsed
		}
	}
	if v := os.Getenv("SUMMARY_MAX_COMBINE_CHARS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.MaxCombineChars = parsed
		}
	}
	if v := os.Getenv("SUMMARY_MAP_CONCURRENCY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.MapConcurrency = parsed
		}
	}
	if v := os.Getenv("SUMMARY_REDUCE_CONCURRENCY"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Summary.ReduceConcurrency = parsed
		}
	}
	if v := os.Getenv("SUMMARY_CONTINUE_ON_CHUNK_ERROR"); v != "" {
		cfg.Summary.ContinueOnChunkError = parseBool(v)
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.LLM.Temperature = float32(parsed)
		}
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.MaxTokens = parsed
		}
	}
	if v := os.Getenv("LLM_CONTEXT_WINDOW_TOKENS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.ContextWindowTokens = parsed
		}
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = parsed
		}
	}
	if v := os.Getenv("LLM_RETRY_MAX"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.LLM.Retry.MaxRetries = parsed
		}
	}
	if v := os.Getenv("LLM_BREAKER_ENABLED"); v != "" {
		cfg.LLM.Breaker.Enabled = parseBool(v)
	}
	if v := os.Getenv("LLM_RATE_LIMIT_RPS"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.RateLimit.RequestsPerSecond = parsed
		}
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Source.S3.Endpoint = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.Source.S3.Region = v
	}
	if v := os.Getenv("S3_ACCESS_KEY"); v != "" {
		cfg.Source.S3.AccessKey = v
	}
	if v := os.Getenv("S3_SECRET_KEY"); v != "" {
		cfg.Source.S3.SecretKey = v
	}
	if v := os.Getenv("S3_USE_SSL"); v != "" {
		cfg.Source.S3.UseSSL = parseBool(v)
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"http://localhost:5173"},
			MaxUploadBytes:  1 << 20,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 30,
				Burst:             5,
			},
		},
		Summary: SummaryConfig{
			MaxWords:          20000,
			MaxChunkChars:     5000,
			ChunkOverlap:      350,
			MaxCombineChars:   10000,
			Separators:        []string{"\n\n", "\n"},
			MapConcurrency:    4,
			ReduceConcurrency: 2,
		},
		LLM: LLMConfig{
			Provider:            "groq",
			Model:               "llama3-70b-8192",
			Temperature:         0,
			MaxTokens:           1024,
			ContextWindowTokens: 8192,
			Encoding:            "cl100k_base",
			Timeout:             60 * time.Second,
			Providers: map[string]ProviderConfig{
				"chatgpt":   {Model: "gpt-4o-mini"},
				"openai":    {Model: "gpt-4o-mini"},
				"anthropic": {Model: "claude-sonnet-4-5-20250929"},
			},
			Retry: RetryConfig{
				MaxRetries: 3,
				BaseDelay:  500 * time.Millisecond,
				MaxDelay:   10 * time.Second,
				Jitter:     100 * time.Millisecond,
			},
			Breaker: BreakerConfig{
				Enabled:          true,
				FailureThreshold: 0.6,
				MinRequests:      5,
				MaxRequests:      3,
				Interval:         30 * time.Second,
				Timeout:          60 * time.Second,
			},
			RateLimit: BackendRateLimitConfig{
				RequestsPerSecond: 5,
				Burst:             5,
			},
		},
		Source: SourceConfig{
			MaxBytes: 4 << 20,
			S3: S3Config{
				Region: "us-east-1",
				UseSSL: true,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		return errors.New("http.maxUploadBytes must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.Summary.MaxWords <= 0 {
		return errors.New("summary.maxWords must be positive")
	}
	if c.Summary.MaxChunkChars <= 0 {
		return errors.New("summary.maxChunkChars must be positive")
	}
	if c.Summary.ChunkOverlap < 0 || c.Summary.ChunkOverlap >= c.Summary.MaxChunkChars {
		return errors.New("summary.chunkOverlap must be in [0, maxChunkChars)")
	}
	if c.Summary.MaxCombineChars <= 0 {
		return errors.New("summary.maxCombineChars must be positive")
	}
	if c.Summary.MapConcurrency <= 0 {
		return errors.New("summary.mapConcurrency must be positive")
	}
	if c.Summary.ReduceConcurrency <= 0 {
		return errors.New("summary.reduceConcurrency must be positive")
	}
	if strings.TrimSpace(c.LLM.Provider) == "" {
		return errors.New("llm.provider cannot be empty")
	}
	if c.LLM.MaxTokens <= 0 {
		return errors.New("llm.maxTokens must be positive")
	}
	if c.LLM.ContextWindowTokens <= c.LLM.MaxTokens {
		return errors.New("llm.contextWindowTokens must exceed llm.maxTokens")
	}
	if c.LLM.Retry.MaxRetries < 0 {
		return errors.New("llm.retry.maxRetries cannot be negative")
	}
	if c.LLM.Breaker.Enabled && (c.LLM.Breaker.FailureThreshold <= 0 || c.LLM.Breaker.FailureThreshold > 1) {
		return errors.New("llm.breaker.failureThreshold must be in (0, 1]")
	}
	if c.Source.MaxBytes <= 0 {
		return errors.New("source.maxBytes must be positive")
	}
	return nil
}
