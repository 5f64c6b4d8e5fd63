package observability

import (
	"context"

	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/aretw0/freelingo/pkg/observability"

// TraceOption configures TraceEvaluator.
type TraceOption func(*tracedEvaluator)

// WithTracerProvider uses tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) TraceOption {
	return func(t *tracedEvaluator) {
		t.tracer = tp.Tracer(instrumentationName)
	}
}

type tracedEvaluator struct {
	next   ports.Evaluator
	tracer trace.Tracer
}

// TraceEvaluator wraps every call of next in a span named "freelingo.<stage>".
func TraceEvaluator(next ports.Evaluator, opts ...TraceOption) ports.Evaluator {
	t := &tracedEvaluator{next: next, tracer: otel.Tracer(instrumentationName)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *tracedEvaluator) start(ctx context.Context, stage domain.Stage, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("freelingo.stage", string(stage)))
	return t.tracer.Start(ctx, "freelingo."+string(stage), trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *tracedEvaluator) Feedback(ctx context.Context, in domain.FeedbackBundle) (*domain.FeedbackOutput, error) {
	ctx, span := t.start(ctx, domain.StageFeedback,
		attribute.Int("freelingo.transcript_turns", len(in.Transcript)),
		attribute.Int("freelingo.retry_notes", len(in.RefereeFeedback)),
	)
	out, err := t.next.Feedback(ctx, in)
	if err == nil && out != nil {
		span.SetAttributes(attribute.Int("freelingo.mistakes", len(out.Mistakes)))
	}
	finish(span, err)
	return out, err
}

func (t *tracedEvaluator) Plan(ctx context.Context, in domain.PlannerBundle) (*domain.PlanOutput, error) {
	ctx, span := t.start(ctx, domain.StagePlanner, attribute.Int("freelingo.retry_notes", len(in.RefereeFeedback)))
	out, err := t.next.Plan(ctx, in)
	finish(span, err)
	return out, err
}

func (t *tracedEvaluator) Words(ctx context.Context, in domain.WordsBundle) (*domain.WordSuggestionOutput, error) {
	ctx, span := t.start(ctx, domain.StageWords, attribute.Int("freelingo.known_words", len(in.KnownWords)))
	out, err := t.next.Words(ctx, in)
	if err == nil && out != nil {
		span.SetAttributes(attribute.Int("freelingo.new_words", len(out.NewWords)))
	}
	finish(span, err)
	return out, err
}

func (t *tracedEvaluator) Referee(ctx context.Context, in domain.RefereeBundle) (*domain.RefereeOutput, error) {
	ctx, span := t.start(ctx, domain.StageReferee, attribute.Int("freelingo.allowed_words", len(in.AllowedWords)))
	out, err := t.next.Referee(ctx, in)
	if err == nil && out != nil {
		span.SetAttributes(
			attribute.Bool("freelingo.is_valid", out.IsValid),
			attribute.StringSlice("freelingo.violations", out.Violations),
		)
	}
	finish(span, err)
	return out, err
}
