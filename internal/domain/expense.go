package domain

import (
	"fmt"
	"strings"
	"time"
)

// Expense is a payment by one member on behalf of the group.
// The shares of its Splits always sum to Amount.
type Expense struct {
	ID          string
	GroupID     string
	Title       string
	Amount      Money
	Currency    string
	PaidBy      string // membership ID
	ExpenseDate time.Time
	Memo        string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Splits      []ExpenseSplit
}

// ExpenseSplit is one participant's share of an expense.
type ExpenseSplit struct {
	ID           string
	ExpenseID    string
	GroupID      string
	MembershipID string
	Share        Money
	CreatedAt    time.Time
}

// SplitTotal sums the expense's split shares.
func (e *Expense) SplitTotal() Money {
	var total Money
	for _, s := range e.Splits {
		total = total.Add(s.Share)
	}
	return total
}

// SplitsBalanced reports whether every share lies within [0, Amount] and
// the shares sum to Amount. Bounding each share first keeps a wrapped sum
// from passing as equal.
func (e *Expense) SplitsBalanced() bool {
	for _, s := range e.Splits {
		if s.Share.IsNegative() || s.Share.Cmp(e.Amount) > 0 {
			return false
		}
	}
	return e.SplitTotal().Equal(e.Amount)
}

// ExpenseParams carries the caller-supplied fields of a new expense.
type ExpenseParams struct {
	GroupID     string
	Title       string
	Amount      Money
	Currency    string
	PaidBy      string
	ExpenseDate time.Time
	Memo        string
	Split       SplitPolicy
}

// ExpenseDraft is a fully validated expense that has not been stored yet.
// Group membership of PaidBy and the shares is checked by the caller
// against storage.
type ExpenseDraft struct {
	GroupID     string
	Title       string
	Amount      Money
	Currency    string
	PaidBy      string
	ExpenseDate time.Time
	Memo        string
	Shares      []Share
}

// NewExpenseDraft validates params and allocates the split. An empty
// currency is left for the caller to fill from the group.
func NewExpenseDraft(p ExpenseParams) (*ExpenseDraft, error) {
	if err := ValidateAmount(p.Amount); err != nil {
		return nil, err
	}
	title, err := NormalizeTitle(p.Title)
	if err != nil {
		return nil, err
	}
	if err := ValidateMemo(p.Memo); err != nil {
		return nil, err
	}
	currency := ""
	if strings.TrimSpace(p.Currency) != "" {
		if currency, err = NormalizeCurrency(p.Currency); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(p.PaidBy) == "" {
		return nil, fmt.Errorf("%w: payer is required", ErrUnknownMembership)
	}
	if p.ExpenseDate.IsZero() {
		return nil, ErrInvalidExpenseDate
	}
	if p.Split == nil {
		return nil, ErrInvalidSplitPolicy
	}
	shares, err := p.Split.Allocate(p.Amount)
	if err != nil {
		return nil, err
	}

	return &ExpenseDraft{
		GroupID:     p.GroupID,
		Title:       title,
		Amount:      p.Amount,
		Currency:    currency,
		PaidBy:      p.PaidBy,
		ExpenseDate: p.ExpenseDate.UTC().Truncate(24 * time.Hour),
		Memo:        p.Memo,
		Shares:      shares,
	}, nil
}

// MembershipIDs lists the payer followed by every share holder, without repeats.
func (d *ExpenseDraft) MembershipIDs() []string {
	ids := []string{d.PaidBy}
	seen := map[string]struct{}{d.PaidBy: {}}
	for _, s := range d.Shares {
		if _, ok := seen[s.MembershipID]; ok {
			continue
		}
		seen[s.MembershipID] = struct{}{}
		ids = append(ids, s.MembershipID)
	}
	return ids
}

// SplitMismatch reports an expense whose splits do not add up.
type SplitMismatch struct {
	ExpenseID  string
	Amount     Money
	SplitTotal Money
}

// FindSplitMismatches returns every expense whose split total differs from its amount.
func FindSplitMismatches(expenses []*Expense) []SplitMismatch {
	var out []SplitMismatch
	for _, e := range expenses {
		if !e.SplitsBalanced() {
			out = append(out, SplitMismatch{ExpenseID: e.ID, Amount: e.Amount, SplitTotal: e.SplitTotal()})
		}
	}
	return out
}
