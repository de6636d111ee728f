package domain

import (
	"math/rand/v2"
	"reflect"
	"testing"
)

func netOf(m map[string]int64) map[string]Money {
	out := make(map[string]Money, len(m))
	for id, c := range m {
		out[id] = Cents(c)
	}
	return out
}

func applyTransfers(net map[string]Money, transfers []Transfer) map[string]Money {
	out := make(map[string]Money, len(net))
	for id, amt := range net {
		out[id] = amt
	}
	for _, tr := range transfers {
		out[tr.From] = out[tr.From].Add(tr.Amount)
		out[tr.To] = out[tr.To].Sub(tr.Amount)
	}
	return out
}

func TestSettleDebts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		net  map[string]int64
		want []Transfer
	}{
		{
			name: "one creditor two debtors",
			net:  map[string]int64{"A": 366, "B": -33, "C": -333},
			want: []Transfer{
				{From: "C", To: "A", Amount: Cents(333)},
				{From: "B", To: "A", Amount: Cents(33)},
			},
		},
		{
			name: "equal debtors pay the single creditor in id order",
			net:  map[string]int64{"A": 8000, "B": -4000, "C": -4000},
			want: []Transfer{
				{From: "B", To: "A", Amount: Cents(4000)},
				{From: "C", To: "A", Amount: Cents(4000)},
			},
		},
		{
			name: "chain",
			net:  map[string]int64{"A": 500, "B": -200, "C": -300},
			want: []Transfer{
				{From: "C", To: "A", Amount: Cents(300)},
				{From: "B", To: "A", Amount: Cents(200)},
			},
		},
		{
			name: "tie broken by id",
			net:  map[string]int64{"X": 100, "W": 100, "B": -100, "A": -100},
			want: []Transfer{
				{From: "A", To: "W", Amount: Cents(100)},
				{From: "B", To: "X", Amount: Cents(100)},
			},
		},
		{
			name: "all settled",
			net:  map[string]int64{"A": 0, "B": 0},
			want: nil,
		},
		{
			name: "empty",
			net:  map[string]int64{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SettleDebts(netOf(tt.net))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SettleDebts = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSettleDebtsProperties(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(3, 5))
	members := []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8"}

	for round := 0; round < 300; round++ {
		net := CalculateBalances(randomExpenses(r, members, r.IntN(40)+1)).Net()

		transfers := SettleDebts(net)

		nonZero := 0
		for _, amt := range net {
			if !amt.IsZero() {
				nonZero++
			}
		}
		if nonZero > 0 && len(transfers) > nonZero-1 {
			t.Fatalf("round %d: %d transfers for %d non-zero parties", round, len(transfers), nonZero)
		}

		for _, tr := range transfers {
			if !tr.Amount.IsPositive() {
				t.Fatalf("round %d: non-positive transfer %+v", round, tr)
			}
			if tr.From == tr.To {
				t.Fatalf("round %d: self transfer %+v", round, tr)
			}
		}

		for id, amt := range applyTransfers(net, transfers) {
			if !amt.IsZero() {
				t.Fatalf("round %d: %s left with %v", round, id, amt)
			}
		}

		if again := SettleDebts(net); !reflect.DeepEqual(again, transfers) {
			t.Fatalf("round %d: solver is not deterministic", round)
		}
	}
}
