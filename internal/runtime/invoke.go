package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/freelingo/pkg/domain"
)

// output is implemented by every stage output schema.
type output[T any] interface {
	*T
	Validate() error
}

type callResult[P any] struct {
	out      P
	err      error
	panicked any
}

// invoke runs one evaluator call under timeout and validates its output.
// The call runs on its own goroutine so an evaluator that ignores ctx
// cannot hold the run past the timeout.
func invoke[T any, P output[T]](ctx context.Context, timeout time.Duration, stage domain.Stage, call func(context.Context) (P, error)) (P, *domain.EvaluatorFailure) {
	fail := func(kind domain.FailureKind, err error) (P, *domain.EvaluatorFailure) {
		return nil, &domain.EvaluatorFailure{Stage: stage, Kind: kind, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(domain.FailureTransport, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan callResult[P], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult[P]{panicked: r}
			}
		}()
		out, err := call(callCtx)
		done <- callResult[P]{out: out, err: err}
	}()

	var res callResult[P]
	select {
	case res = <-done:
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fail(domain.FailureTimeout, fmt.Errorf("no answer within %s", timeout))
		}
		return fail(domain.FailureTransport, callCtx.Err())
	}

	switch {
	case res.panicked != nil:
		return fail(domain.FailurePanic, fmt.Errorf("evaluator panicked: %v", res.panicked))
	case res.err != nil:
		if errors.Is(res.err, context.DeadlineExceeded) {
			return fail(domain.FailureTimeout, res.err)
		}
		if errors.Is(res.err, domain.ErrMalformedOutput) {
			return fail(domain.FailureSchema, res.err)
		}
		return fail(domain.FailureTransport, res.err)
	case (*T)(res.out) == nil:
		return fail(domain.FailureSchema, errors.New("evaluator returned no output"))
	}
	if err := res.out.Validate(); err != nil {
		return fail(domain.FailureSchema, err)
	}
	return res.out, nil
}
