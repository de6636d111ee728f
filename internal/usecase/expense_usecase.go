package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// ExpenseUseCase records expenses together with their splits.
type ExpenseUseCase struct {
	txManager      TransactionManager
	groupRepo      GroupRepository
	membershipRepo MembershipRepository
	expenseRepo    ExpenseRepository
	activityRepo   ActivityRepository
	idGen          IDGenerator
	metrics        *metrics.Metrics
}

// NewExpenseUseCase creates a new ExpenseUseCase.
func NewExpenseUseCase(
	txManager TransactionManager,
	groupRepo GroupRepository,
	membershipRepo MembershipRepository,
	expenseRepo ExpenseRepository,
	activityRepo ActivityRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *ExpenseUseCase {
	return &ExpenseUseCase{
		txManager:      txManager,
		groupRepo:      groupRepo,
		membershipRepo: membershipRepo,
		expenseRepo:    expenseRepo,
		activityRepo:   activityRepo,
		idGen:          idGen,
		metrics:        metrics,
	}
}

// CreateExpenseInput represents input for creating an expense.
type CreateExpenseInput struct {
	ActorID string
	domain.ExpenseParams
}

// CreateExpense stores an expense and its splits in one transaction.
func (uc *ExpenseUseCase) CreateExpense(ctx context.Context, input CreateExpenseInput) (*domain.Expense, error) {
	var expense *domain.Expense
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		expense, err = uc.CreateExpenseInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		observeFailure(uc.metrics, "expense", err)
		return nil, err
	}
	return expense, nil
}

// CreateExpenseInTx stores an expense inside the caller's transaction. The
// expense and its splits become visible together when tx commits; a split
// total that no longer matches the amount fails the commit.
func (uc *ExpenseUseCase) CreateExpenseInTx(ctx context.Context, tx Transaction, input CreateExpenseInput) (*domain.Expense, error) {
	// 1. Validate before touching storage
	draft, err := domain.NewExpenseDraft(input.ExpenseParams)
	if err != nil {
		return nil, err
	}

	// 2. Resolve group and actor
	actor, err := requireMember(ctx, uc.membershipRepo, tx, draft.GroupID, input.ActorID, domain.ErrGroupNotFound)
	if err != nil {
		return nil, err
	}
	if err := requireWriter(actor); err != nil {
		return nil, err
	}
	group, err := uc.groupRepo.GetByID(ctx, draft.GroupID)
	if err != nil {
		return nil, err
	}

	if draft.Currency == "" {
		draft.Currency = group.Currency
	}
	if draft.Currency != group.Currency {
		return nil, fmt.Errorf("%w: group uses %s", domain.ErrCurrencyMismatch, group.Currency)
	}

	// 3. Every referenced membership must belong to the group
	members, err := uc.membershipRepo.ListByGroup(ctx, tx, draft.GroupID)
	if err != nil {
		return nil, err
	}
	inGroup := make(map[string]struct{}, len(members))
	for _, m := range members {
		inGroup[m.ID] = struct{}{}
	}
	for _, id := range draft.MembershipIDs() {
		if _, ok := inGroup[id]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMembership, id)
		}
	}

	// 4. Persist
	now := time.Now().UTC()
	expense := &domain.Expense{
		ID:          uc.idGen.Generate(),
		GroupID:     draft.GroupID,
		Title:       draft.Title,
		Amount:      draft.Amount,
		Currency:    draft.Currency,
		PaidBy:      draft.PaidBy,
		ExpenseDate: draft.ExpenseDate,
		Memo:        draft.Memo,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		Splits:      make([]domain.ExpenseSplit, 0, len(draft.Shares)),
	}
	for _, s := range draft.Shares {
		expense.Splits = append(expense.Splits, domain.ExpenseSplit{
			ID:           uc.idGen.Generate(),
			ExpenseID:    expense.ID,
			GroupID:      expense.GroupID,
			MembershipID: s.MembershipID,
			Share:        s.Amount,
			CreatedAt:    now,
		})
	}

	if err := uc.expenseRepo.Create(ctx, tx, expense); err != nil {
		return nil, err
	}

	if err := recordActivity(ctx, uc.activityRepo, tx, uc.idGen, domain.Activity{
		GroupID:           expense.GroupID,
		ActorMembershipID: actor.ID,
		EventType:         domain.EventExpenseCreated,
		SubjectID:         expense.ID,
		Metadata: domain.JSON{
			"title":        expense.Title,
			"amount_cents": expense.Amount.Cents(),
			"paid_by":      expense.PaidBy,
			"splits":       len(expense.Splits),
		},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ExpensesCreated.Inc()
		uc.metrics.ExpenseAmount.Observe(float64(expense.Amount.Cents()))
	}

	return expense, nil
}

// GetExpense returns an expense with its splits.
func (uc *ExpenseUseCase) GetExpense(ctx context.Context, actorID, expenseID string) (*domain.Expense, error) {
	expense, err := uc.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, uc.membershipRepo, nil, expense.GroupID, actorID, domain.ErrExpenseNotFound); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpenses lists a group's expenses, newest first.
func (uc *ExpenseUseCase) ListExpenses(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.Expense, error) {
	if _, err := requireMember(ctx, uc.membershipRepo, nil, groupID, actorID, domain.ErrGroupNotFound); err != nil {
		return nil, err
	}
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.expenseRepo.ListByGroup(ctx, groupID, limit, offset)
}

// UpdateExpenseInput changes descriptive fields of an expense. Amount,
// payer and splits are immutable once recorded.
type UpdateExpenseInput struct {
	ActorID         string
	ExpenseID       string
	ExpectedVersion int64
	Title           *string
	Memo            *string
	ExpenseDate     *time.Time
}

// UpdateExpenseDetails applies the update if the expense is still at ExpectedVersion.
func (uc *ExpenseUseCase) UpdateExpenseDetails(ctx context.Context, input UpdateExpenseInput) (*domain.Expense, error) {
	if input.Title == nil && input.Memo == nil && input.ExpenseDate == nil {
		return nil, domain.ErrEmptyUpdate
	}
	if input.ExpectedVersion < 1 {
		return nil, domain.ErrInvalidVersion
	}

	var expense *domain.Expense
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		expense, err = uc.expenseRepo.GetByID(ctx, input.ExpenseID)
		if err != nil {
			return err
		}
		actor, err := requireMember(ctx, uc.membershipRepo, tx, expense.GroupID, input.ActorID, domain.ErrExpenseNotFound)
		if err != nil {
			return err
		}
		if err := requireWriter(actor); err != nil {
			return err
		}
		if err := domain.CheckVersion(expense.Version, input.ExpectedVersion); err != nil {
			return err
		}

		changes := domain.JSON{}
		if input.Title != nil {
			title, err := domain.NormalizeTitle(*input.Title)
			if err != nil {
				return err
			}
			expense.Title = title
			changes["title"] = title
		}
		if input.Memo != nil {
			if err := domain.ValidateMemo(*input.Memo); err != nil {
				return err
			}
			expense.Memo = *input.Memo
			changes["memo"] = *input.Memo
		}
		if input.ExpenseDate != nil {
			if input.ExpenseDate.IsZero() {
				return domain.ErrInvalidExpenseDate
			}
			expense.ExpenseDate = input.ExpenseDate.UTC().Truncate(24 * time.Hour)
			changes["expense_date"] = expense.ExpenseDate.Format(time.DateOnly)
		}

		now := time.Now().UTC()
		expense.UpdatedAt = now
		version, err := uc.expenseRepo.UpdateDetails(ctx, tx, expense, input.ExpectedVersion)
		if err != nil {
			return err
		}
		expense.Version = version

		return recordActivity(ctx, uc.activityRepo, tx, uc.idGen, domain.Activity{
			GroupID:           expense.GroupID,
			ActorMembershipID: actor.ID,
			EventType:         domain.EventExpenseUpdated,
			SubjectID:         expense.ID,
			Metadata:          changes,
			CreatedAt:         now,
		})
	})
	if err != nil {
		observeFailure(uc.metrics, "expense", err)
		return nil, err
	}

	return expense, nil
}
