package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
	"github.com/iho/splitledger/internal/usecase"
	"github.com/iho/splitledger/internal/usecase/mocks"
)

type fixture struct {
	store       *mocks.MemoryStore
	ids         *mocks.SequentialIDs
	metrics     *metrics.Metrics
	groups      *usecase.GroupUseCase
	expenses    *usecase.ExpenseUseCase
	ledger      *usecase.LedgerUseCase
	settlements *usecase.SettlementUseCase
	guard       *usecase.IdempotencyGuard
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := mocks.NewMemoryStore()
	ids := &mocks.SequentialIDs{Prefix: "id-"}
	m := metrics.New(prometheus.NewRegistry())

	return &fixture{
		store:       store,
		ids:         ids,
		metrics:     m,
		groups:      usecase.NewGroupUseCase(store, store.Groups, store.Memberships, store.Users, store.Activities, ids, m),
		expenses:    usecase.NewExpenseUseCase(store, store.Groups, store.Memberships, store.Expenses, store.Activities, ids, m),
		ledger:      usecase.NewLedgerUseCase(store.Memberships, store.Expenses, store.Ledger),
		settlements: usecase.NewSettlementUseCase(store, store.Memberships, store.Expenses, store.Settlements, store.Activities, ids, m),
		guard:       usecase.NewIdempotencyGuard(store, store.Idempotency, nil, time.Hour, m),
	}
}

func (f *fixture) user(t *testing.T, name string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:    "user-" + name,
		Email: name + "@example.com",
		Name:  name,
	}
	if err := f.store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

// group creates a USD group owned by the first name; the rest join as members.
// The returned map is keyed by name.
func (f *fixture) group(t *testing.T, names ...string) (*domain.Group, map[string]*domain.Membership) {
	t.Helper()
	ctx := context.Background()

	owner := f.user(t, names[0])
	g, err := f.groups.CreateGroup(ctx, usecase.CreateGroupInput{ActorID: owner.ID, Name: "Trip", Currency: "USD"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	members := make(map[string]*domain.Membership, len(names))
	om, err := f.store.Memberships.GetByGroupAndUser(ctx, nil, g.ID, owner.ID)
	if err != nil {
		t.Fatalf("owner membership: %v", err)
	}
	members[names[0]] = om

	for _, name := range names[1:] {
		u := f.user(t, name)
		m, err := f.groups.AddMember(ctx, usecase.AddMemberInput{ActorID: owner.ID, GroupID: g.ID, UserID: u.ID})
		if err != nil {
			t.Fatalf("add member %s: %v", name, err)
		}
		members[name] = m
	}
	return g, members
}

func (f *fixture) equalExpense(t *testing.T, g *domain.Group, actor string, payer *domain.Membership, cents int64, participants ...*domain.Membership) *domain.Expense {
	t.Helper()

	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	split, err := domain.NewEqualSplit(ids)
	if err != nil {
		t.Fatalf("equal split: %v", err)
	}

	e, err := f.expenses.CreateExpense(context.Background(), usecase.CreateExpenseInput{
		ActorID: actor,
		ExpenseParams: domain.ExpenseParams{
			GroupID:     g.ID,
			Title:       "Expense",
			Amount:      domain.Cents(cents),
			PaidBy:      payer.ID,
			ExpenseDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Split:       split,
		},
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return e
}
