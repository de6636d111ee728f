package domain

import "sort"

// MemberBalance is one membership's position in a group.
type MemberBalance struct {
	MembershipID string
	Paid         Money
	Owed         Money
}

// Net is positive when the group owes the member, negative when the member owes the group.
func (b MemberBalance) Net() Money { return b.Paid.Sub(b.Owed) }

// Balances maps membership ID to its position.
type Balances map[string]MemberBalance

// CalculateBalances credits each payer with the expense amount and debits
// each split holder with its share. Input order does not affect the result.
func CalculateBalances(expenses []*Expense) Balances {
	b := make(Balances)
	for _, e := range expenses {
		payer := b[e.PaidBy]
		payer.MembershipID = e.PaidBy
		payer.Paid = payer.Paid.Add(e.Amount)
		b[e.PaidBy] = payer

		for _, s := range e.Splits {
			debtor := b[s.MembershipID]
			debtor.MembershipID = s.MembershipID
			debtor.Owed = debtor.Owed.Add(s.Share)
			b[s.MembershipID] = debtor
		}
	}
	return b
}

// Include adds zero entries for memberships with no activity.
func (b Balances) Include(ids ...string) {
	for _, id := range ids {
		if _, ok := b[id]; !ok {
			b[id] = MemberBalance{MembershipID: id}
		}
	}
}

// Net returns the net position of every membership.
func (b Balances) Net() map[string]Money {
	out := make(map[string]Money, len(b))
	for id, mb := range b {
		out[id] = mb.Net()
	}
	return out
}

// Total sums the net positions. It is zero whenever every expense's
// splits sum to its amount.
func (b Balances) Total() Money {
	var total Money
	for _, mb := range b {
		total = total.Add(mb.Net())
	}
	return total
}

// Sorted returns the balances ordered by membership ID.
func (b Balances) Sorted() []MemberBalance {
	out := make([]MemberBalance, 0, len(b))
	for _, mb := range b {
		out = append(out, mb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MembershipID < out[j].MembershipID })
	return out
}
