package usecase

import (
	"context"
	"errors"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// withTx runs fn inside a new transaction and commits when fn succeeds.
func withTx(ctx context.Context, txManager TransactionManager, fn func(ctx context.Context, tx Transaction) error) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// observeFailure records conflict and integrity failures.
func observeFailure(m *metrics.Metrics, aggregate string, err error) {
	if m == nil || err == nil {
		return
	}
	switch {
	case errors.Is(err, domain.ErrVersionConflict):
		m.VersionConflicts.WithLabelValues(aggregate).Inc()
	case errors.Is(err, domain.ErrIntegrity):
		m.IntegrityFailures.Inc()
	}
}
