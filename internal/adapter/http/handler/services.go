package handler

import (
	"context"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// UserService registers and authenticates users.
type UserService interface {
	Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, input usecase.LoginInput) (string, *domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// GroupService manages groups, memberships and the activity feed.
type GroupService interface {
	CreateGroup(ctx context.Context, input usecase.CreateGroupInput) (*domain.Group, error)
	GetGroup(ctx context.Context, actorID, groupID string) (*domain.Group, error)
	ListGroups(ctx context.Context, actorID string, limit, offset int) ([]*domain.Group, error)
	RenameGroup(ctx context.Context, input usecase.RenameGroupInput) (*domain.Group, error)
	AddMember(ctx context.Context, input usecase.AddMemberInput) (*domain.Membership, error)
	ChangeMemberRole(ctx context.Context, input usecase.ChangeMemberRoleInput) (*domain.Membership, error)
	RemoveMember(ctx context.Context, input usecase.RemoveMemberInput) error
	ListMembers(ctx context.Context, actorID, groupID string) ([]*domain.Membership, error)
	ListActivity(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.Activity, error)
}

// ExpenseService records and reads expenses.
type ExpenseService interface {
	CreateExpenseInTx(ctx context.Context, tx usecase.Transaction, input usecase.CreateExpenseInput) (*domain.Expense, error)
	GetExpense(ctx context.Context, actorID, expenseID string) (*domain.Expense, error)
	ListExpenses(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.Expense, error)
	UpdateExpenseDetails(ctx context.Context, input usecase.UpdateExpenseInput) (*domain.Expense, error)
}

// LedgerService derives balances and checks group integrity.
type LedgerService interface {
	GetBalances(ctx context.Context, actorID, groupID string) ([]domain.MemberBalance, error)
	CheckIntegrity(ctx context.Context, actorID, groupID string) (*usecase.IntegrityReport, error)
}

// SettlementService computes and settles batches.
type SettlementService interface {
	ComputeBatchInTx(ctx context.Context, tx usecase.Transaction, input usecase.ComputeBatchInput) (*domain.SettlementBatch, error)
	GetLatestBatch(ctx context.Context, actorID, groupID string) (*domain.SettlementBatch, error)
	GetBatch(ctx context.Context, actorID, batchID string) (*domain.SettlementBatch, error)
	ListBatches(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.SettlementBatch, error)
	MarkPaidInTx(ctx context.Context, tx usecase.Transaction, input usecase.MarkPaidInput) (*domain.Settlement, error)
	VoidBatchInTx(ctx context.Context, tx usecase.Transaction, input usecase.VoidBatchInput) (*domain.SettlementBatch, error)
}
