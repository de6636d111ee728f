package domain

import (
	"fmt"
	"strings"
)

// Share is the portion of an expense one membership owes.
type Share struct {
	MembershipID string
	Amount       Money
}

// SplitPolicy turns an expense total into per-member shares.
type SplitPolicy interface {
	Allocate(total Money) ([]Share, error)
}

// EqualSplit divides the total evenly; leftover cents go one each to the
// first participants in the order given.
type EqualSplit struct {
	participants []string
}

// NewEqualSplit rejects empty, blank and duplicated participants.
func NewEqualSplit(participants []string) (EqualSplit, error) {
	if len(participants) == 0 {
		return EqualSplit{}, ErrEmptySplits
	}
	if err := checkParticipants(participants); err != nil {
		return EqualSplit{}, err
	}
	return EqualSplit{participants: append([]string(nil), participants...)}, nil
}

func (p EqualSplit) Allocate(total Money) ([]Share, error) {
	if len(p.participants) == 0 {
		return nil, ErrEmptySplits
	}
	amounts, err := SplitEvenly(total, len(p.participants))
	if err != nil {
		return nil, err
	}
	shares := make([]Share, len(amounts))
	for i, a := range amounts {
		shares[i] = Share{MembershipID: p.participants[i], Amount: a}
	}
	return shares, nil
}

// ExactSplit uses caller-supplied shares, which must sum to the total.
type ExactSplit struct {
	shares []Share
}

// NewExactSplit rejects empty, negative, oversized and duplicated shares.
func NewExactSplit(shares []Share) (ExactSplit, error) {
	if len(shares) == 0 {
		return ExactSplit{}, ErrEmptySplits
	}
	ids := make([]string, len(shares))
	for i, s := range shares {
		if s.Amount.IsNegative() {
			return ExactSplit{}, fmt.Errorf("%w: membership %s", ErrNegativeShare, s.MembershipID)
		}
		if s.Amount.Cents() > MaxAmount {
			return ExactSplit{}, fmt.Errorf("%w: membership %s", ErrAmountTooLarge, s.MembershipID)
		}
		ids[i] = s.MembershipID
	}
	if err := checkParticipants(ids); err != nil {
		return ExactSplit{}, err
	}
	return ExactSplit{shares: append([]Share(nil), shares...)}, nil
}

func (p ExactSplit) Allocate(total Money) ([]Share, error) {
	if len(p.shares) == 0 {
		return nil, ErrEmptySplits
	}
	// Each share is bounded by the total before summing, so the sum of a
	// request-sized list cannot overflow.
	var sum Money
	for _, s := range p.shares {
		if s.Amount.Cmp(total) > 0 {
			return nil, fmt.Errorf("%w: share of %s exceeds expense total %s", ErrSplitSumMismatch, s.MembershipID, total)
		}
		sum = sum.Add(s.Amount)
	}
	if !sum.Equal(total) {
		return nil, fmt.Errorf("%w: shares total %s, expense is %s", ErrSplitSumMismatch, sum, total)
	}
	return append([]Share(nil), p.shares...), nil
}

// SplitEvenly divides total into n parts that differ by at most one cent.
// The first total%n parts receive the extra cent.
func SplitEvenly(total Money, n int) ([]Money, error) {
	if n <= 0 {
		return nil, ErrEmptySplits
	}
	if total.IsNegative() {
		return nil, ErrInvalidAmount
	}
	base := total.Cents() / int64(n)
	remainder := total.Cents() % int64(n)

	parts := make([]Money, n)
	for i := range parts {
		c := base
		if int64(i) < remainder {
			c++
		}
		parts[i] = Cents(c)
	}
	return parts, nil
}

func checkParticipants(ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: membership id is required", ErrUnknownMembership)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
