package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// IdempotencyRepository implements usecase.IdempotencyRepository.
type IdempotencyRepository struct {
	db DB
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(db DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Reserve inserts a placeholder row for key. A second transaction
// reserving the same key waits on the primary key until the first one
// finishes and then fails with domain.ErrIdempotencyKeyExists.
func (r *IdempotencyRepository) Reserve(ctx context.Context, tx usecase.Transaction, key domain.IdempotencyKey, createdAt time.Time) error {
	_, err := conn(r.db, tx).Exec(ctx, `
		INSERT INTO idempotency_keys (endpoint, user_id, request_hash, created_at)
		VALUES ($1, $2, $3, $4)`,
		key.Endpoint, key.UserID, key.RequestHash, createdAt,
	)
	return translateError(err)
}

// Complete stores the response for a reserved key.
func (r *IdempotencyRepository) Complete(ctx context.Context, tx usecase.Transaction, record *domain.IdempotencyRecord) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE idempotency_keys SET status_code = $4, response_body = $5
		WHERE endpoint = $1 AND user_id = $2 AND request_hash = $3`,
		record.Key.Endpoint, record.Key.UserID, record.Key.RequestHash, record.StatusCode, record.ResponseBody,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIdempotencyNotFound
	}
	return nil
}

// Get returns a completed record.
func (r *IdempotencyRepository) Get(ctx context.Context, key domain.IdempotencyKey) (*domain.IdempotencyRecord, error) {
	record := domain.IdempotencyRecord{Key: key}
	err := r.db.QueryRow(ctx, `
		SELECT status_code, response_body, created_at
		FROM idempotency_keys
		WHERE endpoint = $1 AND user_id = $2 AND request_hash = $3 AND status_code IS NOT NULL`,
		key.Endpoint, key.UserID, key.RequestHash,
	).Scan(&record.StatusCode, &record.ResponseBody, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIdempotencyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteOlderThan removes records created before the cutoff.
func (r *IdempotencyRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
