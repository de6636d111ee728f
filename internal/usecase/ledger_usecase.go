package usecase

import (
	"context"
	"time"

	"github.com/iho/splitledger/internal/domain"
)

// LedgerUseCase answers balance and consistency questions about a group.
type LedgerUseCase struct {
	membershipRepo MembershipRepository
	expenseRepo    ExpenseRepository
	ledgerRepo     LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(membershipRepo MembershipRepository, expenseRepo ExpenseRepository, ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		membershipRepo: membershipRepo,
		expenseRepo:    expenseRepo,
		ledgerRepo:     ledgerRepo,
	}
}

// GetBalances returns every member's paid, owed and net position, ordered
// by membership ID. Members without expenses appear with zeros.
func (uc *LedgerUseCase) GetBalances(ctx context.Context, actorID, groupID string) ([]domain.MemberBalance, error) {
	if _, err := requireMember(ctx, uc.membershipRepo, nil, groupID, actorID, domain.ErrGroupNotFound); err != nil {
		return nil, err
	}

	members, err := uc.membershipRepo.ListByGroup(ctx, nil, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := uc.expenseRepo.ListAllByGroup(ctx, nil, groupID)
	if err != nil {
		return nil, err
	}

	balances := domain.CalculateBalances(expenses)
	for _, m := range members {
		balances.Include(m.ID)
	}
	return balances.Sorted(), nil
}

// IntegrityReport is the result of a group consistency check.
type IntegrityReport struct {
	GroupID     string
	Consistent  bool
	Mismatches  []domain.SplitMismatch
	NetTotal    domain.Money
	ExpenseRows int
	CheckedAt   time.Time
}

// CheckIntegrity verifies that every expense's splits sum to its amount,
// both as stored and as loaded, and that net balances sum to zero.
func (uc *LedgerUseCase) CheckIntegrity(ctx context.Context, actorID, groupID string) (*IntegrityReport, error) {
	if _, err := requireMember(ctx, uc.membershipRepo, nil, groupID, actorID, domain.ErrGroupNotFound); err != nil {
		return nil, err
	}

	stored, err := uc.ledgerRepo.FindSplitMismatches(ctx, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := uc.expenseRepo.ListAllByGroup(ctx, nil, groupID)
	if err != nil {
		return nil, err
	}

	mismatches := mergeMismatches(stored, domain.FindSplitMismatches(expenses))
	net := domain.CalculateBalances(expenses).Total()

	return &IntegrityReport{
		GroupID:     groupID,
		Consistent:  len(mismatches) == 0 && net.IsZero(),
		Mismatches:  mismatches,
		NetTotal:    net,
		ExpenseRows: len(expenses),
		CheckedAt:   time.Now().UTC(),
	}, nil
}

func mergeMismatches(a, b []domain.SplitMismatch) []domain.SplitMismatch {
	seen := make(map[string]struct{}, len(a))
	out := make([]domain.SplitMismatch, 0, len(a)+len(b))
	for _, list := range [][]domain.SplitMismatch{a, b} {
		for _, m := range list {
			if _, ok := seen[m.ExpenseID]; ok {
				continue
			}
			seen[m.ExpenseID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
