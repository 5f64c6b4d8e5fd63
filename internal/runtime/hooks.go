package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/policy"
)

// Hooks are observers: a panicking hook is logged and the run goes on.
func recoverHook(logger *slog.Logger, hook string) {
	if r := recover(); r != nil {
		logger.Error("lifecycle hook panicked", "hook", hook, "panic", r)
	}
}

func (e *Engine) emitStageEnter(ctx context.Context, ev *domain.StageEvent, logger *slog.Logger) {
	if e.hooks.OnStageEnter == nil {
		return
	}
	defer recoverHook(logger, "OnStageEnter")
	e.hooks.OnStageEnter(ctx, ev)
}

func (e *Engine) emitStageLeave(ctx context.Context, ev *domain.StageEvent, logger *slog.Logger) {
	if e.hooks.OnStageLeave == nil {
		return
	}
	defer recoverHook(logger, "OnStageLeave")
	e.hooks.OnStageLeave(ctx, ev)
}

func (e *Engine) emitRoute(ctx context.Context, state *domain.WorkflowState, d policy.Decision, logger *slog.Logger) {
	if e.hooks.OnRoute == nil {
		return
	}
	defer recoverHook(logger, "OnRoute")
	e.hooks.OnRoute(ctx, &domain.RouteEvent{
		RunID:            state.RunID,
		UserID:           state.UserID,
		RefereeVisit:     state.Visits(domain.StageReferee),
		Proposed:         d.Proposed,
		Target:           d.Target,
		MatchedViolation: d.MatchedViolation,
		Tripped:          d.Tripped,
		Reason:           d.Reason,
		Timestamp:        e.now(),
	})
}

func (e *Engine) emitRunComplete(ctx context.Context, state *domain.WorkflowState, logger *slog.Logger) {
	if e.hooks.OnRunComplete == nil {
		return
	}
	defer recoverHook(logger, "OnRunComplete")
	e.hooks.OnRunComplete(ctx, &domain.RunEvent{
		RunID:       state.RunID,
		UserID:      state.UserID,
		Status:      state.Status,
		Reason:      state.TerminationReason,
		Invocations: state.Invocations(),
		Duration:    state.Duration(),
	})
}
