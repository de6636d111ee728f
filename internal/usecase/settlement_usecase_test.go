package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// settledGroup returns a group where alice paid 900 split three ways, so
// bob and carol each owe alice 300.
func settledGroup(t *testing.T, f *fixture) (*domain.Group, map[string]*domain.Membership) {
	t.Helper()
	g, m := f.group(t, "alice", "bob", "carol")
	f.equalExpense(t, g, "user-alice", m["alice"], 900, m["alice"], m["bob"], m["carol"])
	return g, m
}

func TestSettlementUseCase_ComputeBatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	g, m := settledGroup(t, f)

	batch, err := f.settlements.ComputeBatch(ctx, usecase.ComputeBatchInput{ActorID: "user-bob", GroupID: g.ID})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if batch.Status != domain.BatchStatusSuggested || batch.Version != 1 {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if len(batch.Settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(batch.Settlements))
	}

	want := []struct {
		from, to string
	}{
		{m["bob"].ID, m["alice"].ID},
		{m["carol"].ID, m["alice"].ID},
	}
	for i, s := range batch.Settlements {
		if s.FromMembership != want[i].from || s.ToMembership != want[i].to || s.Amount.Cents() != 300 {
			t.Fatalf("settlement %d = %s->%s %s", i, s.FromMembership, s.ToMembership, s.Amount)
		}
		if s.Status != domain.SettlementStatusSuggested || s.BatchID != batch.ID {
			t.Fatalf("unexpected settlement state %+v", s)
		}
	}
	if batch.TotalAmount().Cents() != 600 {
		t.Fatalf("expected total 600, got %s", batch.TotalAmount())
	}
}

func TestSettlementUseCase_PayerOutsideSplit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	g, m := f.group(t, "alice", "bob", "carol")

	// Alice pays and owes nothing; bob and carol owe 40.00 each.
	split, err := domain.NewExactSplit([]domain.Share{
		{MembershipID: m["bob"].ID, Amount: domain.Cents(4000)},
		{MembershipID: m["carol"].ID, Amount: domain.Cents(4000)},
	})
	if err != nil {
		t.Fatalf("exact split: %v", err)
	}
	if _, err := f.expenses.CreateExpense(ctx, usecase.CreateExpenseInput{
		ActorID: "user-alice",
		ExpenseParams: domain.ExpenseParams{
			GroupID: g.ID, Title: "Tickets", Amount: domain.Cents(8000), PaidBy: m["alice"].ID,
			ExpenseDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Split: split,
		},
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	balances, err := f.ledger.GetBalances(ctx, "user-alice", g.ID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	wantNet := map[string]int64{m["alice"].ID: 8000, m["bob"].ID: -4000, m["carol"].ID: -4000}
	for _, b := range balances {
		if b.Net().Cents() != wantNet[b.MembershipID] {
			t.Fatalf("net for %s = %s, want %d", b.MembershipID, b.Net(), wantNet[b.MembershipID])
		}
	}

	batch, err := f.settlements.ComputeBatch(ctx, usecase.ComputeBatchInput{ActorID: "user-carol", GroupID: g.ID})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(batch.Settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(batch.Settlements))
	}
	for i, from := range []string{m["bob"].ID, m["carol"].ID} {
		s := batch.Settlements[i]
		if s.FromMembership != from || s.ToMembership != m["alice"].ID || s.Amount.Cents() != 4000 {
			t.Fatalf("settlement %d = %s->%s %s", i, s.FromMembership, s.ToMembership, s.Amount)
		}
	}
}

func TestSettlementUseCase_ComputeIsSideEffectFree(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	g, _ := settledGroup(t, f)

	before, err := f.ledger.GetBalances(ctx, "user-alice", g.ID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}

	first, err := f.settlements.ComputeBatch(ctx, usecase.ComputeBatchInput{ActorID: "user-alice", GroupID: g.ID})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := f.settlements.ComputeBatch(ctx, usecase.ComputeBatchInput{ActorID: "user-alice", GroupID: g.ID})
	if err != nil {
		t.Fatalf("compute again: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("each computation must create a new batch")
	}

	after, err := f.ledger.GetBalances(ctx, "user-alice", g.ID)
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("balances changed: %+v -> %+v", before[i], after[i])
		}
	}

	reloaded, err := f.settlements.GetBatch(ctx, "user-alice", first.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if reloaded.Status != domain.BatchStatusSuggested || reloaded.Version != 1 {
		t.Fatalf("earlier batch must be untouched, got %+v", reloaded)
	}

	latest, err := f.settlements.GetLatestBatch(ctx, "user-carol", g.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatalf("expected latest %s, got %s", second.ID, latest.ID)
	}

	list, err := f.settlements.ListBatches(ctx, "user-carol", g.ID, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %d batches", len(list))
	}
}

func TestSettlementUseCase_ComputeEmptyGroup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	g, _ := f.group(t, "alice", "bob")

	batch, err := f.settlements.ComputeBatch(context.Background(), usecase.ComputeBatchInput{ActorID: "user-alice", GroupID: g.ID})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(batch.Settlements) != 0 {
		t.Fatalf("settled group needs no transfers, got %d", len(batch.Settlements))
	}

	if _, err := f.settlements.GetLatestBatch(context.Background(), "user-alice", "missing"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestSettlementUseCase_MarkPaid(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	g, _ := settledGroup(t, f)
	batch, err := f.settlements.ComputeBatch(ctx, usecase.ComputeBatchInput{ActorID: "user-alice", GroupID: g.ID})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	bobOwes := batch.Settlements[0]

	_, err = f.settlements.MarkPaid(ctx, usecase.MarkPaidInput{ActorID: "user-alice", SettlementID: bobOwes.ID, ExpectedVersion: 1})
	if !errors.Is(err, domain.ErrNotDebtor) {
		t.Fatalf("creditor cannot mark paid, got %v", err)
	}

	_, err = f.settlements.MarkPaid(ctx, usecase.MarkPaidInput{ActorID: "user-nobody", SettlementID: bobOwes.ID, ExpectedVersion: 1})
	if !errors.Is(err, domain.ErrSettlementNotFound) {
		t.Fatalf("outsider must see not found, got %v", err)
	}

	_, err = f.settlements.MarkPaid(ctx, usecase.MarkPaidInput{ActorID: "user-bob", SettlementID: bobOwes.ID})
	if !errors.Is(err, domain.ErrInvalidVersion) {
		t.Fatalf("expected ErrInvalidVersion, got %v", err)
	}

	paid, err := f.settlements.MarkPaid(ctx, usecase.MarkPaidInput{ActorID: "user-bob", SettlementID: bobOwes.ID, ExpectedVersion: 1})
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != domain.SettlementStatusPaid || paid.Version != 2 {
		t.Fatalf("unexpected settlement %+v", paid)
	}

	again, err := f.settlements.MarkPaid(ctx, usecase.MarkPaidInput{ActorID: "user-bob", SettlementID: bobOwes.ID, ExpectedVersion: 1})
	if err != nil {
		t.Fatalf("repeat mark paid: %v", err)
	}
	if again.Version != 2 || again.Status != domain.SettlementStatusPaid {
		t.Fatalf("repeat must return the settlement unchanged, got %+v", again)
	}

	carolOwes := batch.Settlements[1]
	_, err = f.settlements.MarkPaid(ctx, usecase.MarkPaidInput{ActorID: "user-carol", SettlementID: carolOwes.ID, ExpectedVersion: 3})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestSettlementUseCase_ConcurrentMarkPaid(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	g, _ := settledGroup(t, f)
	batch, err := f.settlements.ComputeBatch(ctx, usecase.ComputeBatchInput{ActorID: "user-alice", GroupID: g.ID})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	target := batch.Settlements[0]

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.settlements.MarkPaid(ctx, usecase.MarkPaidInput{ActorID: "user-bob", SettlementID: target.ID, ExpectedVersion: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	reloaded, err := f.settlements.GetBatch(ctx, "user-bob", batch.ID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if got := reloaded.Settlements[0]; got.Status != domain.SettlementStatusPaid || got.Version != 2 {
		t.Fatalf("expected exactly one transition, got %+v", got)
	}

	activity, err := f.groups.ListActivity(ctx, "user-alice", g.ID, 100, 0)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	var paidEvents int
	for _, a := range activity {
		if a.EventType == domain.EventSettlementPaid {
			paidEvents++
		}
	}
	if paidEvents != 1 {
		t.Fatalf("expected one paid event, got %d", paidEvents)
	}
}

func TestSettlementUseCase_VoidBatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	g, _ := settledGroup(t, f)
	batch, err := f.settlements.ComputeBatch(ctx, usecase.ComputeBatchInput{ActorID: "user-alice", GroupID: g.ID})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if _, err := f.settlements.MarkPaid(ctx, usecase.MarkPaidInput{ActorID: "user-bob", SettlementID: batch.Settlements[0].ID, ExpectedVersion: 1}); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	_, err = f.settlements.VoidBatch(ctx, usecase.VoidBatchInput{ActorID: "user-alice", BatchID: batch.ID})
	if !errors.Is(err, domain.ErrVoidReasonRequired) {
		t.Fatalf("expected ErrVoidReasonRequired, got %v", err)
	}

	_, err = f.settlements.VoidBatch(ctx, usecase.VoidBatchInput{ActorID: "user-alice", BatchID: batch.ID, Reason: "typo", ExpectedVersion: 7})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	voided, err := f.settlements.VoidBatch(ctx, usecase.VoidBatchInput{ActorID: "user-alice", BatchID: batch.ID, Reason: "wrong receipt", ExpectedVersion: 1})
	if err != nil {
		t.Fatalf("void: %v", err)
	}
	if voided.Status != domain.BatchStatusVoided || voided.VoidReason != "wrong receipt" || voided.Version != 2 {
		t.Fatalf("unexpected batch %+v", voided)
	}

	reloaded, err := f.settlements.GetBatch(ctx, "user-carol", batch.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Settlements[0].Status != domain.SettlementStatusPaid {
		t.Fatal("paid settlements stay paid")
	}
	if reloaded.Settlements[1].Status != domain.SettlementStatusVoided {
		t.Fatal("suggested settlements become voided")
	}
	for i, s := range reloaded.Settlements {
		if s.Amount != batch.Settlements[i].Amount {
			t.Fatal("voiding must not change amounts")
		}
	}

	_, err = f.settlements.VoidBatch(ctx, usecase.VoidBatchInput{ActorID: "user-alice", BatchID: batch.ID, Reason: "again"})
	if !errors.Is(err, domain.ErrBatchAlreadyVoided) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrBatchAlreadyVoided, got %v", err)
	}

	_, err = f.settlements.MarkPaid(ctx, usecase.MarkPaidInput{ActorID: "user-carol", SettlementID: batch.Settlements[1].ID, ExpectedVersion: 2})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("voided settlement cannot be paid, got %v", err)
	}
}

func TestSettlementUseCase_ConcurrentVoid(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	g, _ := settledGroup(t, f)
	batch, err := f.settlements.ComputeBatch(ctx, usecase.ComputeBatchInput{ActorID: "user-alice", GroupID: g.ID})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	const workers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.settlements.VoidBatch(ctx, usecase.VoidBatchInput{ActorID: "user-alice", BatchID: batch.ID, Reason: "dup", ExpectedVersion: 1})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrConflict) {
				t.Errorf("losers must see a conflict, got %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one void to win, got %d", succeeded)
	}
}

func TestSettlementUseCase_ViewerCannotCompute(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	g, _ := settledGroup(t, f)
	v := f.user(t, "victor")
	if _, err := f.groups.AddMember(ctx, usecase.AddMemberInput{ActorID: "user-alice", GroupID: g.ID, UserID: v.ID, Role: domain.RoleViewer}); err != nil {
		t.Fatalf("add viewer: %v", err)
	}

	_, err := f.settlements.ComputeBatch(ctx, usecase.ComputeBatchInput{ActorID: v.ID, GroupID: g.ID})
	if !errors.Is(err, domain.ErrInsufficientRole) || domain.KindOf(err) != domain.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
