package main

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/freelingo"
	"github.com/aretw0/freelingo/internal/config"
	"github.com/aretw0/freelingo/pkg/adapters/file"
	"github.com/aretw0/freelingo/pkg/adapters/llm"
	"github.com/aretw0/freelingo/pkg/adapters/memory"
	"github.com/aretw0/freelingo/pkg/adapters/redis"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/observability"
	"github.com/aretw0/freelingo/pkg/persistence/middleware"
	"github.com/aretw0/freelingo/pkg/ports"
	"github.com/aretw0/freelingo/pkg/session"
)

// newEvaluator picks the offline rule-based evaluator or the configured model,
// traced with the global OpenTelemetry provider.
func newEvaluator(cfg *config.Config, logger *slog.Logger) (ports.Evaluator, error) {
	if cfg.Pipeline.Offline {
		logger.Info("using the offline evaluator")
		return observability.TraceEvaluator(memory.NewEvaluator()), nil
	}

	ev, err := llm.NewOpenAI(cfg.LLMProvider(),
		llm.WithPrompts(cfg.LLM.Prompts),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithRateLimit(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst),
		llm.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("using the model evaluator", "model", cfg.LLM.Model, "base_url", cfg.LLM.BaseURL)
	return observability.TraceEvaluator(ev), nil
}

// newSessions uses Redis when an address is configured, then a session
// directory, then memory. The store is wrapped with the configured redaction
// and encryption.
func newSessions(cfg *config.Config, logger *slog.Logger) (*session.Manager, error) {
	if cfg.Redis.Addr == "" {
		var local ports.SessionRepository = memory.NewStore()
		if cfg.Storage.Dir != "" {
			logger.Info("using the file session store", "dir", cfg.Storage.Dir)
			local = file.New(cfg.Storage.Dir)
		} else {
			logger.Info("using the in-memory session store")
		}
		repo, err := withStorageMiddleware(local, cfg, logger)
		if err != nil {
			return nil, err
		}
		return session.NewManager(repo, session.WithLogger(logger)), nil
	}

	store, err := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
		redis.WithPrefix(cfg.Redis.Prefix),
		redis.WithTTL(cfg.Redis.TTL),
	)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	logger.Info("using the redis session store", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)

	repo, err := withStorageMiddleware(store, cfg, logger)
	if err != nil {
		return nil, err
	}
	return session.NewManager(repo,
		session.WithLocker(redis.NewLocker(store.Client(), cfg.Redis.Prefix)),
		session.WithLogger(logger),
	), nil
}

func withStorageMiddleware(repo ports.SessionRepository, cfg *config.Config, logger *slog.Logger) (ports.SessionRepository, error) {
	var mws []middleware.Middleware

	if len(cfg.Storage.Redact) > 0 {
		redact, err := middleware.NewRedactionMiddleware(cfg.Storage.Redact)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		mws = append(mws, redact)
		logger.Info("redacting stored dialogue", "patterns", len(cfg.Storage.Redact))
	}

	enc, err := cfg.Encryption()
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if enc != nil {
		encrypt, err := middleware.NewEncryptionMiddleware(*enc)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		mws = append(mws, encrypt)
		logger.Info("encrypting session records at rest", "fallback_keys", len(enc.FallbackKeys))
	}

	return middleware.Chain(repo, mws...), nil
}

func newPipeline(cfg *config.Config, ev ports.Evaluator, logger *slog.Logger, hooks domain.LifecycleHooks, opts ...freelingo.Option) *freelingo.Pipeline {
	base := []freelingo.Option{
		freelingo.WithLogger(logger),
		freelingo.WithBudgets(cfg.Budgets()),
		freelingo.WithEvaluatorTimeout(cfg.Pipeline.EvaluatorTimeout),
		freelingo.WithLifecycleHooks(hooks),
	}
	return freelingo.New(ev, append(base, opts...)...)
}
