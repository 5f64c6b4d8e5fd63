package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/freelingo/internal/logging"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/policy"
	"github.com/aretw0/freelingo/pkg/ports"
)

// DefaultEvaluatorTimeout bounds a single evaluator call.
const DefaultEvaluatorTimeout = 45 * time.Second

// Engine runs the agent chain over a WorkflowState.
// It holds only configuration and is safe for concurrent use.
type Engine struct {
	evaluator ports.Evaluator
	graph     *Graph
	buildErr  *ConstructionError

	rules   []policy.Rule
	budgets policy.Budgets
	timeout time.Duration
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	now     func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithEvaluatorTimeout overrides DefaultEvaluatorTimeout. Non-positive values are ignored.
func WithEvaluatorTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithBudgets overrides policy.DefaultBudgets.
func WithBudgets(b policy.Budgets) EngineOption {
	return func(e *Engine) {
		e.budgets = b
	}
}

// WithRoutingRules replaces policy.DefaultRules.
func WithRoutingRules(rules []policy.Rule) EngineOption {
	return func(e *Engine) {
		e.rules = rules
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine compiles the graph. A compilation failure is not returned:
// it is kept in ConstructionErr and every run takes the degraded path.
func NewEngine(evaluator ports.Evaluator, opts ...EngineOption) *Engine {
	e := &Engine{
		evaluator: evaluator,
		rules:     policy.DefaultRules(),
		budgets:   policy.DefaultBudgets(),
		timeout:   DefaultEvaluatorTimeout,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.evaluator == nil {
		e.evaluator = ports.EvaluatorFuncs{}
	}

	graph, err := Compile(e.rules, e.budgets)
	if err != nil {
		e.buildErr = &ConstructionError{Err: err}
		e.logger.Warn("graph compilation failed, runs will use the degraded path", "err", err)
		return e
	}
	e.graph = graph
	return e
}

// ConstructionErr returns the compilation failure, or nil.
func (e *Engine) ConstructionErr() error {
	if e.buildErr == nil {
		return nil
	}
	return e.buildErr
}

// Graph returns the compiled graph, or nil when degraded.
func (e *Engine) Graph() *Graph {
	return e.graph
}

// Run executes one run to completion and returns the same state.
// It never panics; the returned state always has a non-nil LastRefereeDecision.
func (e *Engine) Run(ctx context.Context, state *domain.WorkflowState) (out *domain.WorkflowState) {
	state.StartedAt = e.now()
	state.Status = domain.RunRunning
	logger := e.logger.With("run_id", state.RunID, "user_id", state.UserID)
	logger.Debug("run started", "turns", state.Transcript.Len(), "known_words", len(state.Snapshot.KnownWords))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("run aborted by engine fault", "panic", r, "stage", state.CurrentStage)
			e.abort(state, domain.RunFailed, domain.ViolationExecutionFailed, fmt.Sprintf("engine fault in %s: %v", state.CurrentStage, r))
		}
		e.complete(ctx, state, logger)
		out = state
	}()

	if e.graph == nil {
		e.runDegraded(ctx, state, logger)
		return state
	}
	e.runGraph(ctx, state, logger)
	return state
}

func (e *Engine) runGraph(ctx context.Context, state *domain.WorkflowState, logger *slog.Logger) {
	stage := e.graph.Entry()
	// The entry stage always runs so every run records FEEDBACK first;
	// under a done context it takes its fallback.
	for first := true; ; first = false {
		if err := ctx.Err(); err != nil && !first {
			e.abort(state, domain.RunCanceled, domain.ViolationCanceled, fmt.Sprintf("canceled before %s: %v", stage, err))
			return
		}
		e.execute(ctx, state, stage, logger)

		if next, ok := e.graph.Next(stage); ok {
			stage = next
			continue
		}

		d := e.graph.Router().Route(state.LastRefereeDecision, policy.UsageOf(state))
		state.NextStage = d.Target
		e.emitRoute(ctx, state, d, logger)
		logger.Info("referee routed",
			"visit", state.Visits(domain.StageReferee),
			"proposed", d.Proposed,
			"target", d.Target,
			"violation", d.MatchedViolation,
			"tripped", d.Tripped,
		)

		if d.IsTerminal() {
			if d.Tripped {
				state.Finish(domain.RunBreakerTripped, d.Reason, e.now())
			} else {
				state.Finish(domain.RunValidated, d.Reason, e.now())
			}
			return
		}
		state.AgentRetryCount[d.Target]++
		stage = d.Target
	}
}

// runDegraded runs the four stages once, in order, without routing.
func (e *Engine) runDegraded(ctx context.Context, state *domain.WorkflowState, logger *slog.Logger) {
	logger.Warn("running degraded chain", "err", e.buildErr)
	for i, stage := range domain.ChainOrder {
		if err := ctx.Err(); err != nil && i > 0 {
			e.abort(state, domain.RunCanceled, domain.ViolationCanceled, fmt.Sprintf("canceled before %s: %v", stage, err))
			return
		}
		e.execute(ctx, state, stage, logger)
	}
	state.NextStage = domain.StageEnd
	state.Finish(domain.RunDegraded, e.buildErr.Error(), e.now())
}

// abort ends a run early. The fault verdict replaces LastRefereeDecision
// but is not added to RefereeHistory, which only records referee visits.
func (e *Engine) abort(state *domain.WorkflowState, status domain.RunStatus, tag, reason string) {
	if state.Status.IsTerminal() {
		return
	}
	state.LastRefereeDecision = domain.FaultDecision(tag, reason)
	state.NextStage = domain.StageEnd
	state.Finish(status, reason, e.now())
}

func (e *Engine) complete(ctx context.Context, state *domain.WorkflowState, logger *slog.Logger) {
	if state.LastRefereeDecision == nil {
		state.LastRefereeDecision = domain.FaultDecision(domain.ViolationExecutionFailed, "run ended without a referee decision")
	}
	if !state.Status.IsTerminal() {
		state.Finish(domain.RunFailed, "run ended without a terminal decision", e.now())
	}

	logger.Info("run finished",
		"status", state.Status,
		"reason", state.TerminationReason,
		"invocations", state.Invocations(),
		"duration", state.Duration(),
	)
	e.emitRunComplete(ctx, state, logger)
}
