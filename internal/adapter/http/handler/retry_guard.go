package handler

import (
	"context"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// Retrier reruns an operation while the storage reports transient failures
// such as deadlocks and serialization errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// RetryingGuard reruns a whole guarded write on transient storage failures.
// Each attempt goes through the guard again, so an attempt that lost to a
// concurrent duplicate replays instead of executing.
type RetryingGuard struct {
	guard   WriteGuard
	retrier Retrier
}

// NewRetryingGuard wraps guard with retrier.
func NewRetryingGuard(guard WriteGuard, retrier Retrier) *RetryingGuard {
	return &RetryingGuard{guard: guard, retrier: retrier}
}

func (g *RetryingGuard) Execute(ctx context.Context, key domain.IdempotencyKey, op usecase.IdempotentOperation) (*usecase.IdempotentResult, error) {
	var result *usecase.IdempotentResult
	err := g.retrier.Retry(ctx, func() error {
		var err error
		result, err = g.guard.Execute(ctx, key, op)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
