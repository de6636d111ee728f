package handler

import (
	"context"
	"io"
	"strings"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

func stringsReader(s string) io.Reader { return strings.NewReader(s) }

type userServiceStub struct {
	registerFn func(ctx context.Context, input usecase.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, input usecase.LoginInput) (string, *domain.User, error)
	getFn      func(ctx context.Context, id string) (*domain.User, error)
}

func (s *userServiceStub) Register(ctx context.Context, input usecase.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, input)
}

func (s *userServiceStub) Login(ctx context.Context, input usecase.LoginInput) (string, *domain.User, error) {
	return s.loginFn(ctx, input)
}

func (s *userServiceStub) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

type groupServiceStub struct {
	createFn     func(ctx context.Context, input usecase.CreateGroupInput) (*domain.Group, error)
	getFn        func(ctx context.Context, actorID, groupID string) (*domain.Group, error)
	listFn       func(ctx context.Context, actorID string, limit, offset int) ([]*domain.Group, error)
	renameFn     func(ctx context.Context, input usecase.RenameGroupInput) (*domain.Group, error)
	addFn        func(ctx context.Context, input usecase.AddMemberInput) (*domain.Membership, error)
	changeRoleFn func(ctx context.Context, input usecase.ChangeMemberRoleInput) (*domain.Membership, error)
	removeFn     func(ctx context.Context, input usecase.RemoveMemberInput) error
	membersFn    func(ctx context.Context, actorID, groupID string) ([]*domain.Membership, error)
	activityFn   func(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.Activity, error)
}

func (s *groupServiceStub) CreateGroup(ctx context.Context, input usecase.CreateGroupInput) (*domain.Group, error) {
	return s.createFn(ctx, input)
}

func (s *groupServiceStub) GetGroup(ctx context.Context, actorID, groupID string) (*domain.Group, error) {
	return s.getFn(ctx, actorID, groupID)
}

func (s *groupServiceStub) ListGroups(ctx context.Context, actorID string, limit, offset int) ([]*domain.Group, error) {
	return s.listFn(ctx, actorID, limit, offset)
}

func (s *groupServiceStub) RenameGroup(ctx context.Context, input usecase.RenameGroupInput) (*domain.Group, error) {
	return s.renameFn(ctx, input)
}

func (s *groupServiceStub) AddMember(ctx context.Context, input usecase.AddMemberInput) (*domain.Membership, error) {
	return s.addFn(ctx, input)
}

func (s *groupServiceStub) ChangeMemberRole(ctx context.Context, input usecase.ChangeMemberRoleInput) (*domain.Membership, error) {
	return s.changeRoleFn(ctx, input)
}

func (s *groupServiceStub) RemoveMember(ctx context.Context, input usecase.RemoveMemberInput) error {
	return s.removeFn(ctx, input)
}

func (s *groupServiceStub) ListMembers(ctx context.Context, actorID, groupID string) ([]*domain.Membership, error) {
	return s.membersFn(ctx, actorID, groupID)
}

func (s *groupServiceStub) ListActivity(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.Activity, error) {
	return s.activityFn(ctx, actorID, groupID, limit, offset)
}

type expenseServiceStub struct {
	createFn func(ctx context.Context, tx usecase.Transaction, input usecase.CreateExpenseInput) (*domain.Expense, error)
	getFn    func(ctx context.Context, actorID, expenseID string) (*domain.Expense, error)
	listFn   func(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.Expense, error)
	updateFn func(ctx context.Context, input usecase.UpdateExpenseInput) (*domain.Expense, error)
}

func (s *expenseServiceStub) CreateExpenseInTx(ctx context.Context, tx usecase.Transaction, input usecase.CreateExpenseInput) (*domain.Expense, error) {
	return s.createFn(ctx, tx, input)
}

func (s *expenseServiceStub) GetExpense(ctx context.Context, actorID, expenseID string) (*domain.Expense, error) {
	return s.getFn(ctx, actorID, expenseID)
}

func (s *expenseServiceStub) ListExpenses(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.Expense, error) {
	return s.listFn(ctx, actorID, groupID, limit, offset)
}

func (s *expenseServiceStub) UpdateExpenseDetails(ctx context.Context, input usecase.UpdateExpenseInput) (*domain.Expense, error) {
	return s.updateFn(ctx, input)
}

type ledgerServiceStub struct {
	balancesFn  func(ctx context.Context, actorID, groupID string) ([]domain.MemberBalance, error)
	integrityFn func(ctx context.Context, actorID, groupID string) (*usecase.IntegrityReport, error)
}

func (s *ledgerServiceStub) GetBalances(ctx context.Context, actorID, groupID string) ([]domain.MemberBalance, error) {
	return s.balancesFn(ctx, actorID, groupID)
}

func (s *ledgerServiceStub) CheckIntegrity(ctx context.Context, actorID, groupID string) (*usecase.IntegrityReport, error) {
	return s.integrityFn(ctx, actorID, groupID)
}

type settlementServiceStub struct {
	computeFn  func(ctx context.Context, tx usecase.Transaction, input usecase.ComputeBatchInput) (*domain.SettlementBatch, error)
	latestFn   func(ctx context.Context, actorID, groupID string) (*domain.SettlementBatch, error)
	getBatchFn func(ctx context.Context, actorID, batchID string) (*domain.SettlementBatch, error)
	listFn     func(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.SettlementBatch, error)
	markPaidFn func(ctx context.Context, tx usecase.Transaction, input usecase.MarkPaidInput) (*domain.Settlement, error)
	voidFn     func(ctx context.Context, tx usecase.Transaction, input usecase.VoidBatchInput) (*domain.SettlementBatch, error)
}

func (s *settlementServiceStub) ComputeBatchInTx(ctx context.Context, tx usecase.Transaction, input usecase.ComputeBatchInput) (*domain.SettlementBatch, error) {
	return s.computeFn(ctx, tx, input)
}

func (s *settlementServiceStub) GetLatestBatch(ctx context.Context, actorID, groupID string) (*domain.SettlementBatch, error) {
	return s.latestFn(ctx, actorID, groupID)
}

func (s *settlementServiceStub) GetBatch(ctx context.Context, actorID, batchID string) (*domain.SettlementBatch, error) {
	return s.getBatchFn(ctx, actorID, batchID)
}

func (s *settlementServiceStub) ListBatches(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.SettlementBatch, error) {
	return s.listFn(ctx, actorID, groupID, limit, offset)
}

func (s *settlementServiceStub) MarkPaidInTx(ctx context.Context, tx usecase.Transaction, input usecase.MarkPaidInput) (*domain.Settlement, error) {
	return s.markPaidFn(ctx, tx, input)
}

func (s *settlementServiceStub) VoidBatchInTx(ctx context.Context, tx usecase.Transaction, input usecase.VoidBatchInput) (*domain.SettlementBatch, error) {
	return s.voidFn(ctx, tx, input)
}
