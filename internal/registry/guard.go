package registry

import (
	"context"

	"github.com/emperorhan/chainaudit/internal/domain/apperr"
	"github.com/emperorhan/chainaudit/internal/metrics"
)

type guardKey struct{}

// enter marks ctx as carrying an in-flight registry mutation. A mutation whose
// context already carries the mark was issued from inside another one (for
// example by an event sink) and is refused.
func enter(ctx context.Context, op string) (context.Context, error) {
	if outer, ok := ctx.Value(guardKey{}).(string); ok {
		metrics.ReentrantCallsTotal.Inc()
		return ctx, &reentrantError{op: op, outer: outer}
	}
	return context.WithValue(ctx, guardKey{}, op), nil
}

// InMutation reports whether ctx belongs to a registry mutation in progress.
func InMutation(ctx context.Context) bool {
	_, ok := ctx.Value(guardKey{}).(string)
	return ok
}

type reentrantError struct {
	op    string
	outer string
}

func (e *reentrantError) Error() string {
	return e.op + " called while " + e.outer + " is in progress"
}

func (e *reentrantError) Unwrap() error { return apperr.ErrReentrantCall }
