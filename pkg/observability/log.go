package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/freelingo/pkg/domain"
)

// LogHooks returns hooks that write every lifecycle event to logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(ctx context.Context, e *domain.StageEvent) {
			logger.DebugContext(ctx, "stage_enter",
				"run_id", e.RunID,
				"stage", e.Stage,
				"visit", e.Visit,
			)
		},
		OnStageLeave: func(ctx context.Context, e *domain.StageEvent) {
			attrs := []any{
				"run_id", e.RunID,
				"stage", e.Stage,
				"visit", e.Visit,
				"duration", e.Duration,
			}
			if e.Failure != nil {
				logger.WarnContext(ctx, "stage_fallback", append(attrs, "kind", e.Failure.Kind, "err", e.Failure.Err)...)
				return
			}
			logger.DebugContext(ctx, "stage_leave", attrs...)
		},
		OnRoute: func(ctx context.Context, e *domain.RouteEvent) {
			logger.InfoContext(ctx, "route",
				"run_id", e.RunID,
				"referee_visit", e.RefereeVisit,
				"proposed", e.Proposed,
				"target", e.Target,
				"tripped", e.Tripped,
				"reason", e.Reason,
			)
		},
		OnRunComplete: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run_complete",
				"run_id", e.RunID,
				"user_id", e.UserID,
				"status", e.Status,
				"reason", e.Reason,
				"invocations", e.Invocations,
				"duration", e.Duration,
			)
		},
	}
}
