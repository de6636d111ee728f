package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// ExpenseRepository implements usecase.ExpenseRepository.
type ExpenseRepository struct {
	db DB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `id, group_id, title, amount_cents, currency, paid_by, expense_date, memo, version, created_at, updated_at`

// Create inserts the expense and its splits. The split-sum trigger is
// deferred, so a mismatch is reported when the transaction commits.
func (r *ExpenseRepository) Create(ctx context.Context, tx usecase.Transaction, expense *domain.Expense) error {
	q := conn(r.db, tx)

	_, err := q.Exec(ctx, `
		INSERT INTO expenses (id, group_id, title, amount_cents, currency, paid_by, expense_date, memo, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		expense.ID,
		expense.GroupID,
		expense.Title,
		expense.Amount.Cents(),
		expense.Currency,
		expense.PaidBy,
		expense.ExpenseDate,
		expense.Memo,
		expense.Version,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		return translateError(err)
	}

	for i, s := range expense.Splits {
		_, err := q.Exec(ctx, `
			INSERT INTO expense_splits (id, expense_id, group_id, membership_id, share_cents, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, expense.ID, expense.GroupID, s.MembershipID, s.Share.Cents(), i, s.CreatedAt,
		)
		if err != nil {
			return translateError(err)
		}
	}

	return nil
}

// GetByID retrieves an expense with its splits.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	row := r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrExpenseNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := loadSplits(ctx, r.db, []*domain.Expense{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// ListByGroup lists a group's expenses, most recent expense date first.
func (r *ExpenseRepository) ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*domain.Expense, error) {
	return r.list(ctx, r.db, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE group_id = $1
		ORDER BY expense_date DESC, created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		groupID, limit, offset,
	)
}

// ListAllByGroup loads every expense of a group in creation order.
func (r *ExpenseRepository) ListAllByGroup(ctx context.Context, tx usecase.Transaction, groupID string) ([]*domain.Expense, error) {
	return r.list(ctx, conn(r.db, tx), `
		SELECT `+expenseColumns+` FROM expenses
		WHERE group_id = $1
		ORDER BY created_at, id`,
		groupID,
	)
}

// UpdateDetails updates title, memo and date if the expense is still at expectedVersion.
func (r *ExpenseRepository) UpdateDetails(ctx context.Context, tx usecase.Transaction, expense *domain.Expense, expectedVersion int64) (int64, error) {
	var version int64
	err := conn(r.db, tx).QueryRow(ctx, `
		UPDATE expenses
		SET title = $2, memo = $3, expense_date = $4, updated_at = $5, version = version + 1
		WHERE id = $1 AND version = $6
		RETURNING version`,
		expense.ID, expense.Title, expense.Memo, expense.ExpenseDate, expense.UpdatedAt, expectedVersion,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: expense %s is not at version %d", domain.ErrVersionConflict, expense.ID, expectedVersion)
	}
	return version, err
}

func (r *ExpenseRepository) list(ctx context.Context, q querier, query string, args ...any) ([]*domain.Expense, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	var expenses []*domain.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		expenses = append(expenses, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadSplits(ctx, q, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// loadSplits attaches splits to expenses in their stored order.
func loadSplits(ctx context.Context, q querier, expenses []*domain.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	ids := make([]string, len(expenses))
	byID := make(map[string]*domain.Expense, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
		byID[e.ID] = e
	}

	rows, err := q.Query(ctx, `
		SELECT id, expense_id, group_id, membership_id, share_cents, created_at
		FROM expense_splits
		WHERE expense_id = ANY($1)
		ORDER BY expense_id, position`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s     domain.ExpenseSplit
			cents int64
		)
		if err := rows.Scan(&s.ID, &s.ExpenseID, &s.GroupID, &s.MembershipID, &cents, &s.CreatedAt); err != nil {
			return err
		}
		s.Share = domain.Cents(cents)
		if e, ok := byID[s.ExpenseID]; ok {
			e.Splits = append(e.Splits, s)
		}
	}
	return rows.Err()
}

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var (
		e     domain.Expense
		cents int64
	)
	err := row.Scan(
		&e.ID,
		&e.GroupID,
		&e.Title,
		&cents,
		&e.Currency,
		&e.PaidBy,
		&e.ExpenseDate,
		&e.Memo,
		&e.Version,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Amount = domain.Cents(cents)
	return &e, nil
}
