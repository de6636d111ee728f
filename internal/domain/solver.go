package domain

import "container/heap"

// Transfer moves Amount from the debtor membership From to the creditor To.
type Transfer struct {
	From   string
	To     string
	Amount Money
}

// SettleDebts turns net balances into transfers that zero every balance.
//
// Each step pairs the largest remaining creditor with the largest remaining
// debtor and moves the smaller of the two amounts, so at least one party is
// cleared per step and n parties need at most n-1 transfers. Ties are broken
// by ascending membership ID, making the output a pure function of the input.
// The result is not guaranteed to use the fewest possible transfers.
//
// Balances that do not sum to zero leave the excess unsettled.
func SettleDebts(net map[string]Money) []Transfer {
	creditors := &partyHeap{}
	debtors := &partyHeap{}
	for id, amt := range net {
		switch {
		case amt.IsPositive():
			*creditors = append(*creditors, party{id: id, amount: amt})
		case amt.IsNegative():
			*debtors = append(*debtors, party{id: id, amount: amt.Neg()})
		}
	}
	heap.Init(creditors)
	heap.Init(debtors)

	var transfers []Transfer
	for creditors.Len() > 0 && debtors.Len() > 0 {
		c := heap.Pop(creditors).(party)
		d := heap.Pop(debtors).(party)

		amt := c.amount.Min(d.amount)
		transfers = append(transfers, Transfer{From: d.id, To: c.id, Amount: amt})

		if c.amount = c.amount.Sub(amt); c.amount.IsPositive() {
			heap.Push(creditors, c)
		}
		if d.amount = d.amount.Sub(amt); d.amount.IsPositive() {
			heap.Push(debtors, d)
		}
	}
	return transfers
}

type party struct {
	id     string
	amount Money
}

// partyHeap pops the largest amount first, lowest ID on ties.
type partyHeap []party

func (h partyHeap) Len() int { return len(h) }

func (h partyHeap) Less(i, j int) bool {
	if c := h[i].amount.Cmp(h[j].amount); c != 0 {
		return c > 0
	}
	return h[i].id < h[j].id
}

func (h partyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *partyHeap) Push(x any) { *h = append(*h, x.(party)) }

func (h *partyHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}
