package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// IdempotentOperation performs a write inside tx and returns the response
// status and payload to store for replays.
type IdempotentOperation func(ctx context.Context, tx Transaction) (int, any, error)

// IdempotentResult is the response of a guarded write.
type IdempotentResult struct {
	StatusCode int
	Body       []byte
	Replayed   bool
}

// IdempotencyGuard makes keyed writes execute at most once. The key is
// reserved in the same transaction as the write, so the operation and its
// stored response commit or roll back together.
type IdempotencyGuard struct {
	txManager TransactionManager
	repo      IdempotencyRepository
	cache     IdempotencyCache
	cacheTTL  time.Duration
	metrics   *metrics.Metrics
}

// NewIdempotencyGuard creates a new IdempotencyGuard. cache may be nil.
func NewIdempotencyGuard(
	txManager TransactionManager,
	repo IdempotencyRepository,
	cache IdempotencyCache,
	cacheTTL time.Duration,
	metrics *metrics.Metrics,
) *IdempotencyGuard {
	if cacheTTL <= 0 {
		cacheTTL = IdempotencyCacheTTL
	}
	return &IdempotencyGuard{
		txManager: txManager,
		repo:      repo,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
	}
}

// Execute runs op at most once per key. A repeated key returns the stored
// response byte for byte with Replayed set. A zero key runs op in a plain
// transaction without recording anything. Failed operations are not
// recorded, so a retry with the same key executes again.
func (g *IdempotencyGuard) Execute(ctx context.Context, key domain.IdempotencyKey, op IdempotentOperation) (*IdempotentResult, error) {
	if key.IsZero() {
		return g.run(ctx, op)
	}

	record, source, err := g.lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return g.replay(record, source), nil
	}

	err = withTx(ctx, g.txManager, func(ctx context.Context, tx Transaction) error {
		now := time.Now().UTC()
		if err := g.repo.Reserve(ctx, tx, key, now); err != nil {
			return err
		}

		status, body, err := execute(ctx, tx, op)
		if err != nil {
			return err
		}

		record = &domain.IdempotencyRecord{
			Key:          key,
			StatusCode:   status,
			ResponseBody: body,
			CreatedAt:    now,
		}
		return g.repo.Complete(ctx, tx, record)
	})
	if errors.Is(err, domain.ErrIdempotencyKeyExists) {
		// A concurrent request with the same key committed first.
		record, err = g.repo.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("load idempotency record after conflict: %w", err)
		}
		return g.replay(record, "race"), nil
	}
	if err != nil {
		return nil, err
	}

	g.remember(ctx, record)

	return &IdempotentResult{StatusCode: record.StatusCode, Body: record.ResponseBody}, nil
}

// PurgeExpired deletes records older than retention and reports how many were removed.
func (g *IdempotencyGuard) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = IdempotencyRetention
	}
	n, err := g.repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	if g.metrics != nil {
		g.metrics.IdempotencyPurged.Add(float64(n))
	}
	return n, nil
}

func (g *IdempotencyGuard) run(ctx context.Context, op IdempotentOperation) (*IdempotentResult, error) {
	var result IdempotentResult
	err := withTx(ctx, g.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		result.StatusCode, result.Body, err = execute(ctx, tx, op)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func execute(ctx context.Context, tx Transaction, op IdempotentOperation) (int, []byte, error) {
	status, payload, err := op(ctx, tx)
	if err != nil {
		return 0, nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode response: %w", err)
	}
	return status, body, nil
}

// lookup checks the cache, then durable storage.
func (g *IdempotencyGuard) lookup(ctx context.Context, key domain.IdempotencyKey) (*domain.IdempotencyRecord, string, error) {
	if g.cache != nil {
		// Cache failures fall through to storage.
		if record, err := g.cache.Get(ctx, key); err == nil && record != nil {
			return record, "cache", nil
		}
	}

	record, err := g.repo.Get(ctx, key)
	if errors.Is(err, domain.ErrIdempotencyNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	g.remember(ctx, record)
	return record, "storage", nil
}

func (g *IdempotencyGuard) remember(ctx context.Context, record *domain.IdempotencyRecord) {
	if g.cache == nil {
		return
	}
	_ = g.cache.Set(ctx, record, g.cacheTTL)
}

func (g *IdempotencyGuard) replay(record *domain.IdempotencyRecord, source string) *IdempotentResult {
	if g.metrics != nil {
		g.metrics.IdempotentReplays.WithLabelValues(source).Inc()
	}
	return &IdempotentResult{
		StatusCode: record.StatusCode,
		Body:       record.ResponseBody,
		Replayed:   true,
	}
}
