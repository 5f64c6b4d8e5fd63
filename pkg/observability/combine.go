package observability

import (
	"context"

	"github.com/aretw0/freelingo/pkg/domain"
)

// Combine fans each callback out to every hook set, in argument order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		if h.OnStageEnter != nil {
			out.OnStageEnter = chain(out.OnStageEnter, h.OnStageEnter)
		}
		if h.OnStageLeave != nil {
			out.OnStageLeave = chain(out.OnStageLeave, h.OnStageLeave)
		}
		if h.OnRoute != nil {
			out.OnRoute = chain(out.OnRoute, h.OnRoute)
		}
		if h.OnRunComplete != nil {
			out.OnRunComplete = chain(out.OnRunComplete, h.OnRunComplete)
		}
	}
	return out
}

func chain[E any](first, next func(context.Context, E)) func(context.Context, E) {
	if first == nil {
		return next
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		next(ctx, e)
	}
}
