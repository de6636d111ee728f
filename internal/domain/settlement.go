package domain

import (
	"fmt"
	"strings"
	"time"
)

// BatchStatus is the lifecycle state of a settlement batch.
type BatchStatus string

const (
	BatchStatusSuggested BatchStatus = "suggested"
	BatchStatusVoided    BatchStatus = "voided"
)

// SettlementStatus is the lifecycle state of a single settlement.
type SettlementStatus string

const (
	SettlementStatusSuggested SettlementStatus = "suggested"
	SettlementStatusPaid      SettlementStatus = "paid"
	SettlementStatusVoided    SettlementStatus = "voided"
)

// CanTransitionTo reports whether a settlement may move from s to next.
// Paid and voided are terminal.
func (s SettlementStatus) CanTransitionTo(next SettlementStatus) bool {
	return s == SettlementStatusSuggested &&
		(next == SettlementStatusPaid || next == SettlementStatusVoided)
}

// SettlementBatch is one computed snapshot of who should pay whom.
type SettlementBatch struct {
	ID          string
	GroupID     string
	Status      BatchStatus
	VoidReason  string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Settlements []Settlement
}

// Settlement is a suggested payment from one membership to another.
type Settlement struct {
	ID             string
	BatchID        string
	GroupID        string
	FromMembership string
	ToMembership   string
	Amount         Money
	Status         SettlementStatus
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSettlementBatch builds a suggested batch from solver output.
// newID is called once for the batch and once per settlement.
func NewSettlementBatch(groupID string, transfers []Transfer, newID func() string, now time.Time) *SettlementBatch {
	b := &SettlementBatch{
		ID:          newID(),
		GroupID:     groupID,
		Status:      BatchStatusSuggested,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		Settlements: make([]Settlement, 0, len(transfers)),
	}
	for _, t := range transfers {
		b.Settlements = append(b.Settlements, Settlement{
			ID:             newID(),
			BatchID:        b.ID,
			GroupID:        groupID,
			FromMembership: t.From,
			ToMembership:   t.To,
			Amount:         t.Amount,
			Status:         SettlementStatusSuggested,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return b
}

// TotalAmount sums every settlement in the batch.
func (b *SettlementBatch) TotalAmount() Money {
	var total Money
	for _, s := range b.Settlements {
		total = total.Add(s.Amount)
	}
	return total
}

// Void marks the batch voided and voids its still-suggested settlements.
// Paid settlements keep their status. Amounts never change.
func (b *SettlementBatch) Void(reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrVoidReasonRequired
	}
	if len(reason) > MaxVoidReason {
		return fmt.Errorf("%w: reason exceeds %d characters", ErrVoidReasonRequired, MaxVoidReason)
	}
	if b.Status == BatchStatusVoided {
		return ErrBatchAlreadyVoided
	}
	b.Status = BatchStatusVoided
	b.VoidReason = reason
	b.Version++
	b.UpdatedAt = now
	for i := range b.Settlements {
		s := &b.Settlements[i]
		if s.Status == SettlementStatusSuggested {
			s.Status = SettlementStatusVoided
			s.Version++
			s.UpdatedAt = now
		}
	}
	return nil
}

// MarkPaid moves a suggested settlement to paid on behalf of actorMembershipID,
// which must be the paying side. It reports false without error when the
// settlement is already paid.
func (s *Settlement) MarkPaid(actorMembershipID string, now time.Time) (bool, error) {
	if actorMembershipID != s.FromMembership {
		return false, ErrNotDebtor
	}
	if s.Status == SettlementStatusPaid {
		return false, nil
	}
	if !s.Status.CanTransitionTo(SettlementStatusPaid) {
		return false, fmt.Errorf("%w: settlement is %s", ErrInvalidTransition, s.Status)
	}
	s.Status = SettlementStatusPaid
	s.Version++
	s.UpdatedAt = now
	return true, nil
}
