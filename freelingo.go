package freelingo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/freelingo/internal/logging"
	"github.com/aretw0/freelingo/internal/runtime"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/policy"
	"github.com/aretw0/freelingo/pkg/ports"
	"github.com/aretw0/freelingo/pkg/session"
	"github.com/google/uuid"
)

// UnavailableNotice is shown to the learner when a run did not validate.
const UnavailableNotice = "feedback unavailable this time"

// ErrNoSessions is returned by EndSession when the pipeline has no session manager.
var ErrNoSessions = errors.New("pipeline has no session manager")

// Pipeline is the high-level entry point of the library.
// It wraps the internal runtime and holds only immutable configuration,
// so a single value may serve concurrent runs.
type Pipeline struct {
	runtime     *runtime.Engine
	sessions    *session.Manager
	logger      *slog.Logger
	now         func() time.Time
	newRunID    func() string
	runtimeOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Pipeline) {
		p.runtimeOpts = append(p.runtimeOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithBudgets overrides the per-stage retry and referee visit budgets.
func WithBudgets(b policy.Budgets) Option {
	return func(p *Pipeline) {
		p.runtimeOpts = append(p.runtimeOpts, runtime.WithBudgets(b))
	}
}

// WithRoutingRules replaces the referee routing table.
func WithRoutingRules(rules []policy.Rule) Option {
	return func(p *Pipeline) {
		p.runtimeOpts = append(p.runtimeOpts, runtime.WithRoutingRules(rules))
	}
}

// WithEvaluatorTimeout bounds each evaluator call.
func WithEvaluatorTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.runtimeOpts = append(p.runtimeOpts, runtime.WithEvaluatorTimeout(d))
	}
}

// WithSessions enables EndSession by reading snapshots from the manager.
func WithSessions(m *session.Manager) Option {
	return func(p *Pipeline) {
		p.sessions = m
	}
}

// WithClock replaces time.Now for the pipeline and its runtime.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRunIDs replaces the default UUID run id generator.
func WithRunIDs(next func() string) Option {
	return func(p *Pipeline) {
		if next != nil {
			p.newRunID = next
		}
	}
}

// New builds a Pipeline around an evaluator.
// Invalid budgets or routing rules do not fail construction: runs then take
// the degraded single-pass path and ConstructionErr reports why.
func New(evaluator ports.Evaluator, opts ...Option) *Pipeline {
	p := &Pipeline{
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(p.logger),
		runtime.WithClock(p.now),
	}
	runtimeOpts = append(runtimeOpts, p.runtimeOpts...)
	p.runtime = runtime.NewEngine(evaluator, runtimeOpts...)

	if err := p.runtime.ConstructionErr(); err != nil {
		p.logger.Warn("pipeline constructed in degraded mode", "err", err)
	}
	return p
}

// ConstructionErr reports why the routing graph could not be built, or nil.
func (p *Pipeline) ConstructionErr() error {
	return p.runtime.ConstructionErr()
}

// Graph returns the compiled routing graph, or nil in degraded mode.
func (p *Pipeline) Graph() *runtime.Graph {
	return p.runtime.Graph()
}

// Sessions returns the session manager, or nil.
func (p *Pipeline) Sessions() *session.Manager {
	return p.sessions
}

// Run executes one end-of-session run over an already captured snapshot and transcript.
// It always returns a terminal state and never panics.
func (p *Pipeline) Run(ctx context.Context, userID string, snapshot domain.SessionSnapshot, transcript domain.Transcript) *domain.WorkflowState {
	state := domain.NewWorkflowState(p.newRunID(), userID, snapshot, transcript)
	return p.runtime.Run(ctx, state)
}

// Result is the outcome of EndSession.
type Result struct {
	// State is the terminal run state; nil when the session could not be read.
	State *domain.WorkflowState
	// Available is true only for a chain the referee accepted.
	Available bool
	// Notice is the learner-facing message when Available is false.
	Notice string
	// Err explains why no run took place. Run failures never set it.
	Err error
}

// ResultOf classifies a terminal state.
func ResultOf(state *domain.WorkflowState) Result {
	res := Result{State: state}
	if state != nil && state.Validated() {
		res.Available = true
		return res
	}
	res.Notice = UnavailableNotice
	return res
}

// EndSession snapshots the user's session, builds the transcript from its
// dialogue history and runs the pipeline. It never fails the caller: a
// missing session or store error is reported through Result.Err.
func (p *Pipeline) EndSession(ctx context.Context, userID string) Result {
	if p.sessions == nil {
		return Result{Notice: UnavailableNotice, Err: ErrNoSessions}
	}

	snapshot, err := p.sessions.Snapshot(ctx, userID)
	if err != nil {
		p.logger.Warn("end of session without snapshot", "user_id", userID, "err", err)
		return Result{Notice: UnavailableNotice, Err: fmt.Errorf("snapshot %s: %w", userID, err)}
	}

	transcript := domain.BuildTranscript(snapshot.DialogueHistory)
	state := p.Run(ctx, userID, snapshot, transcript)
	return ResultOf(state)
}
