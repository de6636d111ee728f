package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

var errTransient = errors.New("transient")

// retryOnce reruns the operation once after errTransient.
type retryOnce struct{ attempts int }

func (r *retryOnce) Retry(ctx context.Context, operation func() error) error {
	for {
		r.attempts++
		err := operation()
		if errors.Is(err, errTransient) && r.attempts < 2 {
			continue
		}
		return err
	}
}

func TestRetryingGuard_RerunsWholeWrite(t *testing.T) {
	guard := &fakeGuard{}
	retrier := &retryOnce{}
	g := NewRetryingGuard(guard, retrier)

	key, err := domain.NewIdempotencyKey("POST /x", "u-1", "tok", []byte(`{}`))
	if err != nil {
		t.Fatalf("key: %v", err)
	}

	failed := false
	op := func(ctx context.Context, tx usecase.Transaction) (int, any, error) {
		if !failed {
			failed = true
			return 0, nil, errTransient
		}
		return 201, map[string]string{"id": "e-1"}, nil
	}

	res, err := g.Execute(context.Background(), key, op)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.StatusCode != 201 || res.Replayed {
		t.Fatalf("unexpected result %+v", res)
	}
	if retrier.attempts != 2 || guard.runs != 2 {
		t.Fatalf("expected two attempts through the guard, got retrier=%d guard=%d", retrier.attempts, guard.runs)
	}

	// The stored result now replays without another attempt reaching op.
	res, err = g.Execute(context.Background(), key, op)
	if err != nil || !res.Replayed || guard.runs != 2 {
		t.Fatalf("expected replay, got %+v err=%v runs=%d", res, err, guard.runs)
	}
}

func TestRetryingGuard_PermanentErrorReturned(t *testing.T) {
	g := NewRetryingGuard(&fakeGuard{}, &retryOnce{})

	_, err := g.Execute(context.Background(), domain.IdempotencyKey{}, func(ctx context.Context, tx usecase.Transaction) (int, any, error) {
		return 0, nil, domain.ErrInvalidAmount
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
