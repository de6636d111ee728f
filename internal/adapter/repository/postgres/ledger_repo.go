package postgres

import (
	"context"

	"github.com/iho/splitledger/internal/domain"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	db DB
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// FindSplitMismatches returns the group's expenses whose stored split
// total differs from the amount.
func (r *LedgerRepository) FindSplitMismatches(ctx context.Context, groupID string) ([]domain.SplitMismatch, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.amount_cents, COALESCE(SUM(s.share_cents), 0)::BIGINT AS split_total
		FROM expenses e
		LEFT JOIN expense_splits s ON s.expense_id = e.id
		WHERE e.group_id = $1
		GROUP BY e.id, e.amount_cents
		HAVING COALESCE(SUM(s.share_cents), 0) <> e.amount_cents
		ORDER BY e.id`,
		groupID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mismatches []domain.SplitMismatch
	for rows.Next() {
		var (
			id            string
			amount, total int64
		)
		if err := rows.Scan(&id, &amount, &total); err != nil {
			return nil, err
		}
		mismatches = append(mismatches, domain.SplitMismatch{
			ExpenseID:  id,
			Amount:     domain.Cents(amount),
			SplitTotal: domain.Cents(total),
		})
	}
	return mismatches, rows.Err()
}
