package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iho/splitledger/internal/domain"
)

func TestLedgerUseCase_GetBalances(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	g, m := f.group(t, "alice", "bob", "carol", "dave")

	// Alice pays 1000 for three; Bob pays 300 for Alice and Bob.
	f.equalExpense(t, g, "user-alice", m["alice"], 1000, m["alice"], m["bob"], m["carol"])
	f.equalExpense(t, g, "user-bob", m["bob"], 300, m["alice"], m["bob"])

	balances, err := f.ledger.GetBalances(ctx, "user-carol", g.ID)
	if err != nil {
		t.Fatalf("get balances: %v", err)
	}
	if len(balances) != 4 {
		t.Fatalf("expected every member listed, got %d", len(balances))
	}

	want := map[string]int64{
		m["alice"].ID: 1000 - 334 - 150,
		m["bob"].ID:   300 - 333 - 150,
		m["carol"].ID: -333,
		m["dave"].ID:  0,
	}
	var sum domain.Money
	for i, b := range balances {
		if i > 0 && balances[i-1].MembershipID >= b.MembershipID {
			t.Fatal("balances must be ordered by membership ID")
		}
		if got := b.Net().Cents(); got != want[b.MembershipID] {
			t.Fatalf("net for %s = %d, want %d", b.MembershipID, got, want[b.MembershipID])
		}
		sum = sum.Add(b.Net())
	}
	if !sum.IsZero() {
		t.Fatalf("nets must sum to zero, got %s", sum)
	}

	if _, err := f.ledger.GetBalances(ctx, "user-nobody", g.ID); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestLedgerUseCase_CheckIntegrity(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	g, m := f.group(t, "alice", "bob")
	f.equalExpense(t, g, "user-alice", m["alice"], 1000, m["alice"], m["bob"])
	broken := f.equalExpense(t, g, "user-alice", m["bob"], 501, m["alice"], m["bob"])

	report, err := f.ledger.CheckIntegrity(ctx, "user-alice", g.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.Consistent || len(report.Mismatches) != 0 || report.ExpenseRows != 2 {
		t.Fatalf("expected consistent report, got %+v", report)
	}

	// Bypass the commit check to simulate rows written outside the service.
	if err := f.store.Expenses.SetSplits(nil, broken.ID, broken.Splits[1:]); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	report, err = f.ledger.CheckIntegrity(ctx, "user-alice", g.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.Consistent {
		t.Fatal("expected inconsistent report")
	}
	if len(report.Mismatches) != 1 || report.Mismatches[0].ExpenseID != broken.ID {
		t.Fatalf("unexpected mismatches %+v", report.Mismatches)
	}
	if report.Mismatches[0].Amount.Cents() != 501 || report.Mismatches[0].SplitTotal.Cents() != 250 {
		t.Fatalf("unexpected mismatch totals %+v", report.Mismatches[0])
	}
	if report.NetTotal.IsZero() {
		t.Fatal("net total should expose the missing share")
	}
}
