// Package config loads the freelingo configuration from YAML and environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aretw0/freelingo/internal/logging"
	"github.com/aretw0/freelingo/internal/runtime"
	"github.com/aretw0/freelingo/pkg/adapters/llm"
	"github.com/aretw0/freelingo/pkg/observability"
	"github.com/aretw0/freelingo/pkg/persistence/middleware"
	"github.com/aretw0/freelingo/pkg/policy"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the environment variables that override the file.
const EnvPrefix = "FREELINGO_"

const maxConfigFileSize = 1024 * 1024 // 1MB

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full service configuration.
type Config struct {
	Pipeline PipelineConfig              `koanf:"pipeline"`
	LLM      LLMConfig                   `koanf:"llm"`
	Redis    RedisConfig                 `koanf:"redis"`
	Storage  StorageConfig               `koanf:"storage"`
	Server   ServerConfig                `koanf:"server"`
	Log      LogConfig                   `koanf:"log"`
	Tracing  observability.TracingConfig `koanf:"tracing"`
}

// PipelineConfig bounds a run.
type PipelineConfig struct {
	EvaluatorTimeout time.Duration `koanf:"evaluator_timeout"`
	PerStageRetries  int           `koanf:"per_stage_retries"`
	MaxRefereeVisits int           `koanf:"max_referee_visits"`
	// Offline uses the rule-based evaluator instead of a model.
	Offline bool `koanf:"offline"`
}

// LLMConfig selects the model behind the evaluator.
type LLMConfig struct {
	BaseURL           string      `koanf:"base_url"`
	Model             string      `koanf:"model"`
	APIKey            string      `koanf:"api_key"`
	Temperature       float64     `koanf:"temperature"`
	RequestsPerSecond float64     `koanf:"requests_per_second"`
	Burst             int         `koanf:"burst"`
	Prompts           llm.Prompts `koanf:"prompts"`
}

// RedisConfig enables the Redis session store when Addr is set.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Prefix   string        `koanf:"prefix"`
	TTL      time.Duration `koanf:"ttl"`
}

// StorageConfig selects the local session store and its redaction and encryption at rest.
type StorageConfig struct {
	// Dir keeps one JSON file per learner when Redis is not configured.
	Dir string `koanf:"dir"`
	// EncryptionKey is a base64 AES-256 key. Records are stored in clear when empty.
	EncryptionKey string `koanf:"encryption_key"`
	// FallbackKeys are base64 keys still accepted for reading during rotation.
	FallbackKeys []string `koanf:"fallback_keys"`
	// Redact masks dialogue text matching any of these patterns before it is stored.
	Redact []string `koanf:"redact"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used for every key left unset.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			EvaluatorTimeout: runtime.DefaultEvaluatorTimeout,
			PerStageRetries:  policy.DefaultStageRetries,
			MaxRefereeVisits: policy.DefaultMaxRefereeVisits,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: llm.DefaultTemperature,
			Burst:       1,
		},
		Redis: RedisConfig{
			Prefix: "freelingo:session:",
			TTL:    7 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: string(logging.FormatText),
		},
		Tracing: observability.TracingConfig{
			SampleRate: 1,
		},
	}
}

// Load reads the YAML file at path, if any, then applies FREELINGO_* overrides.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FREELINGO_SERVER_PORT, FREELINGO_LLM_API_KEY, ...)
//  2. YAML config file
//  3. Default()
//
// Variables map to keys by section: FREELINGO_PIPELINE_PER_STAGE_RETRIES ->
// pipeline.per_stage_retries, FREELINGO_LLM_PROMPTS_REFEREE -> llm.prompts.referee.
func Load(path string) (*Config, error) {
	var content []byte
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		content, err = io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if len(content) > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
		}
	}
	return Parse(content)
}

// Parse is Load for in-memory YAML.
func Parse(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unset keys keep their default.
	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps FREELINGO_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	if sub, ok := strings.CutPrefix(field, "prompts_"); ok {
		return section + ".prompts." + sub
	}
	return section + "." + field
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Pipeline.EvaluatorTimeout > 0, "pipeline.evaluator_timeout must be positive, got %s", c.Pipeline.EvaluatorTimeout)
	if err := c.Budgets().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline: %w", err))
	}
	if !c.Pipeline.Offline {
		check(strings.TrimSpace(c.LLM.Model) != "", "llm.model is required unless pipeline.offline is set")
	}
	check(c.LLM.Temperature >= 0 && c.LLM.Temperature <= 2, "llm.temperature must be within [0, 2], got %v", c.LLM.Temperature)
	check(c.LLM.RequestsPerSecond >= 0, "llm.requests_per_second must not be negative")
	check(c.Redis.TTL >= 0, "redis.ttl must not be negative")
	if _, err := c.Encryption(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	if _, err := middleware.NewRedactionMiddleware(c.Storage.Redact); err != nil {
		errs = append(errs, fmt.Errorf("storage.redact: %w", err))
	}
	check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port out of range: %d", c.Server.Port)
	check(c.Server.ShutdownTimeout > 0, "server.shutdown_timeout must be positive")
	check(c.Tracing.SampleRate >= 0 && c.Tracing.SampleRate <= 1, "tracing.sample_rate must be within [0, 1], got %v", c.Tracing.SampleRate)
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	check(c.Log.Format == string(logging.FormatText) || c.Log.Format == string(logging.FormatJSON),
		"log.format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.Log.Format)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Budgets converts the pipeline section into retry budgets.
func (c *Config) Budgets() policy.Budgets {
	return policy.UniformBudgets(c.Pipeline.PerStageRetries, c.Pipeline.MaxRefereeVisits)
}

// LLMProvider returns the provider settings of the model client.
func (c *Config) LLMProvider() llm.Config {
	return llm.Config{
		BaseURL: c.LLM.BaseURL,
		Model:   c.LLM.Model,
		APIKey:  c.LLM.APIKey,
	}
}

// Encryption decodes the storage keys. It returns nil when encryption is off.
func (c *Config) Encryption() (*middleware.EncryptionConfig, error) {
	if c.Storage.EncryptionKey == "" {
		if len(c.Storage.FallbackKeys) > 0 {
			return nil, errors.New("fallback_keys set without encryption_key")
		}
		return nil, nil
	}

	active, err := base64.StdEncoding.DecodeString(c.Storage.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption_key: %w", err)
	}
	enc := &middleware.EncryptionConfig{ActiveKey: active}
	for i, raw := range c.Storage.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	if err := enc.Validate(); err != nil {
		return nil, err
	}
	return enc, nil
}
