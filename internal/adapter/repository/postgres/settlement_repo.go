package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// SettlementRepository implements usecase.SettlementRepository.
type SettlementRepository struct {
	db DB
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(db DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

const (
	batchColumns      = `id, group_id, status, void_reason, version, created_at, updated_at`
	settlementColumns = `id, batch_id, group_id, from_membership, to_membership, amount_cents, status, version, created_at, updated_at`
)

// CreateBatch inserts a batch and its settlements in solver order.
func (r *SettlementRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, batch *domain.SettlementBatch) error {
	q := conn(r.db, tx)

	_, err := q.Exec(ctx, `
		INSERT INTO settlement_batches (id, group_id, status, void_reason, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		batch.ID, batch.GroupID, string(batch.Status), batch.VoidReason, batch.Version, batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	for i, s := range batch.Settlements {
		_, err := q.Exec(ctx, `
			INSERT INTO settlements (id, batch_id, group_id, from_membership, to_membership, amount_cents, status, position, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			s.ID, batch.ID, s.GroupID, s.FromMembership, s.ToMembership, s.Amount.Cents(), string(s.Status), i, s.Version, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			return translateError(err)
		}
	}

	return nil
}

// GetBatch retrieves a batch with its settlements.
func (r *SettlementRepository) GetBatch(ctx context.Context, tx usecase.Transaction, id string) (*domain.SettlementBatch, error) {
	q := conn(r.db, tx)

	b, err := scanBatch(q.QueryRow(ctx, `SELECT `+batchColumns+` FROM settlement_batches WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := loadSettlements(ctx, q, []*domain.SettlementBatch{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// GetLatestBatch returns the group's most recently created batch.
func (r *SettlementRepository) GetLatestBatch(ctx context.Context, groupID string) (*domain.SettlementBatch, error) {
	b, err := scanBatch(r.db.QueryRow(ctx, `
		SELECT `+batchColumns+` FROM settlement_batches
		WHERE group_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		groupID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := loadSettlements(ctx, r.db, []*domain.SettlementBatch{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBatches lists a group's batches, newest first.
func (r *SettlementRepository) ListBatches(ctx context.Context, groupID string, limit, offset int) ([]*domain.SettlementBatch, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+batchColumns+` FROM settlement_batches
		WHERE group_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		groupID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	var batches []*domain.SettlementBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		batches = append(batches, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadSettlements(ctx, r.db, batches); err != nil {
		return nil, err
	}
	return batches, nil
}

// GetSettlement retrieves a single settlement.
func (r *SettlementRepository) GetSettlement(ctx context.Context, tx usecase.Transaction, id string) (*domain.Settlement, error) {
	s, err := scanSettlement(conn(r.db, tx).QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSettlementNotFound
	}
	return s, err
}

// UpdateSettlementStatus sets the status if the settlement is still at expectedVersion.
func (r *SettlementRepository) UpdateSettlementStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.SettlementStatus, expectedVersion int64, updatedAt time.Time) (int64, error) {
	var version int64
	err := conn(r.db, tx).QueryRow(ctx, `
		UPDATE settlements SET status = $2, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $3
		RETURNING version`,
		id, string(status), expectedVersion, updatedAt,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: settlement %s is not at version %d", domain.ErrVersionConflict, id, expectedVersion)
	}
	return version, err
}

// VoidBatch marks the batch voided if it is still at expectedVersion.
func (r *SettlementRepository) VoidBatch(ctx context.Context, tx usecase.Transaction, id, reason string, expectedVersion int64, updatedAt time.Time) (int64, error) {
	var version int64
	err := conn(r.db, tx).QueryRow(ctx, `
		UPDATE settlement_batches
		SET status = 'voided', void_reason = $2, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $3
		RETURNING version`,
		id, reason, expectedVersion, updatedAt,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: batch %s is not at version %d", domain.ErrVersionConflict, id, expectedVersion)
	}
	return version, err
}

// VoidSuggestedSettlements voids the batch's unpaid settlements.
func (r *SettlementRepository) VoidSuggestedSettlements(ctx context.Context, tx usecase.Transaction, batchID string, updatedAt time.Time) (int64, error) {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE settlements SET status = 'voided', version = version + 1, updated_at = $2
		WHERE batch_id = $1 AND status = 'suggested'`,
		batchID, updatedAt,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func loadSettlements(ctx context.Context, q querier, batches []*domain.SettlementBatch) error {
	if len(batches) == 0 {
		return nil
	}

	ids := make([]string, len(batches))
	byID := make(map[string]*domain.SettlementBatch, len(batches))
	for i, b := range batches {
		ids[i] = b.ID
		byID[b.ID] = b
	}

	rows, err := q.Query(ctx, `
		SELECT `+settlementColumns+` FROM settlements
		WHERE batch_id = ANY($1)
		ORDER BY batch_id, position`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return err
		}
		if b, ok := byID[s.BatchID]; ok {
			b.Settlements = append(b.Settlements, *s)
		}
	}
	return rows.Err()
}

func scanBatch(row pgx.Row) (*domain.SettlementBatch, error) {
	var (
		b      domain.SettlementBatch
		status string
	)
	if err := row.Scan(&b.ID, &b.GroupID, &status, &b.VoidReason, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = domain.BatchStatus(status)
	b.Settlements = []domain.Settlement{}
	return &b, nil
}

func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var (
		s      domain.Settlement
		cents  int64
		status string
	)
	err := row.Scan(
		&s.ID,
		&s.BatchID,
		&s.GroupID,
		&s.FromMembership,
		&s.ToMembership,
		&cents,
		&status,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Amount = domain.Cents(cents)
	s.Status = domain.SettlementStatus(status)
	return &s, nil
}
