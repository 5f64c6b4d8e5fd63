package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/freelingo/internal/logging"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/schema"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidConfig indicates an unusable provider configuration.
	ErrInvalidConfig = errors.New("invalid llm configuration")

	// ErrEmptyResponse indicates the model returned no choice.
	ErrEmptyResponse = errors.New("model returned no content")
)

// DefaultTemperature keeps answers close to deterministic.
const DefaultTemperature = 0.2

// Generator is the part of llms.Model the evaluator needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Config selects an OpenAI-compatible chat endpoint.
type Config struct {
	// BaseURL of the API, e.g. https://api.openai.com/v1 or a local gateway.
	BaseURL string
	Model   string
	APIKey  string
}

// Validate checks that a model is named.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// Evaluator implements ports.Evaluator with one chat completion per stage.
type Evaluator struct {
	gen         Generator
	prompts     Prompts
	temperature float64
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithPrompts overrides the non-empty stage prompts.
func WithPrompts(p Prompts) Option {
	return func(e *Evaluator) {
		e.prompts = e.prompts.merge(p)
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(e *Evaluator) {
		e.temperature = t
	}
}

// WithRateLimit allows at most rps model calls per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Evaluator) {
		if rps <= 0 {
			e.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New wraps a Generator.
func New(gen Generator, opts ...Option) *Evaluator {
	e := &Evaluator{
		gen:         gen,
		prompts:     DefaultPrompts(),
		temperature: DefaultTemperature,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewOpenAI creates an evaluator backed by an OpenAI-compatible endpoint.
func NewOpenAI(cfg Config, opts ...Option) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for local gateways.
		apiKey = "placeholder"
	}
	clientOpts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithToken(apiKey),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return New(model, opts...), nil
}

// Feedback implements ports.Evaluator.
func (e *Evaluator) Feedback(ctx context.Context, in domain.FeedbackBundle) (*domain.FeedbackOutput, error) {
	var out domain.FeedbackOutput
	if err := e.complete(ctx, domain.StageFeedback, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Plan implements ports.Evaluator.
func (e *Evaluator) Plan(ctx context.Context, in domain.PlannerBundle) (*domain.PlanOutput, error) {
	var out domain.PlanOutput
	if err := e.complete(ctx, domain.StagePlanner, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Words implements ports.Evaluator.
func (e *Evaluator) Words(ctx context.Context, in domain.WordsBundle) (*domain.WordSuggestionOutput, error) {
	var out domain.WordSuggestionOutput
	if err := e.complete(ctx, domain.StageWords, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Referee implements ports.Evaluator.
func (e *Evaluator) Referee(ctx context.Context, in domain.RefereeBundle) (*domain.RefereeOutput, error) {
	var out domain.RefereeOutput
	if err := e.complete(ctx, domain.StageReferee, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *Evaluator) complete(ctx context.Context, stage domain.Stage, bundle, out any) error {
	if e.gen == nil {
		return domain.ErrEvaluatorNotConfigured
	}
	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("%s: encoding bundle: %w", stage, err)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit: %w", stage, err)
		}
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, e.prompts.of(stage)),
		llms.TextParts(llms.ChatMessageTypeHuman, string(payload)),
	}

	start := time.Now()
	resp, err := e.gen.GenerateContent(ctx, messages,
		llms.WithJSONMode(),
		llms.WithTemperature(e.temperature),
	)
	if err != nil {
		return fmt.Errorf("%s: generating: %w", stage, err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return fmt.Errorf("%s: %w: %w", stage, domain.ErrMalformedOutput, ErrEmptyResponse)
	}

	raw := stripFences(resp.Choices[0].Content)
	e.logger.Debug("model answered", "stage", stage, "bytes", len(raw), "elapsed", time.Since(start))

	if err := schema.Decode([]byte(raw), out); err != nil {
		return fmt.Errorf("%s: %w: %w", stage, domain.ErrMalformedOutput, err)
	}
	return nil
}

// stripFences removes a Markdown code fence some models wrap JSON answers in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop an info string such as "json".
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
