package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// Display renders cents as a two-decimal string for presentation only.
func Display(m domain.Money) string {
	return DisplayCents(m.Cents())
}

// DisplayCents formats a raw cent count with two decimal places.
func DisplayCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFromDomain converts a domain user to a response.
func UserFromDomain(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}

// AuthResponse is returned by a successful login.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GroupFromDomain converts a domain group to a response.
func GroupFromDomain(g *domain.Group) GroupResponse {
	return GroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		Currency:  g.Currency,
		Version:   g.Version,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

// GroupsFromDomain converts a list of groups.
func GroupsFromDomain(groups []*domain.Group) []GroupResponse {
	result := make([]GroupResponse, len(groups))
	for i, g := range groups {
		result[i] = GroupFromDomain(g)
	}
	return result
}

// MembershipResponse represents a membership in API responses.
type MembershipResponse struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// MembershipFromDomain converts a domain membership to a response.
func MembershipFromDomain(m *domain.Membership) MembershipResponse {
	return MembershipResponse{
		ID:        m.ID,
		GroupID:   m.GroupID,
		UserID:    m.UserID,
		Role:      string(m.Role),
		CreatedAt: m.CreatedAt,
	}
}

// MembershipsFromDomain converts a list of memberships.
func MembershipsFromDomain(members []*domain.Membership) []MembershipResponse {
	result := make([]MembershipResponse, len(members))
	for i, m := range members {
		result[i] = MembershipFromDomain(m)
	}
	return result
}

// SplitResponse is one participant's share of an expense.
type SplitResponse struct {
	MembershipID string `json:"membership_id"`
	ShareCents   int64  `json:"share_cents"`
	ShareDisplay string `json:"share_display"`
}

// ExpenseResponse represents an expense in API responses.
type ExpenseResponse struct {
	ID            string          `json:"id"`
	GroupID       string          `json:"group_id"`
	Title         string          `json:"title"`
	AmountCents   int64           `json:"amount_cents"`
	AmountDisplay string          `json:"amount_display"`
	Currency      string          `json:"currency"`
	PaidBy        string          `json:"paid_by"`
	ExpenseDate   string          `json:"expense_date"`
	Memo          string          `json:"memo,omitempty"`
	Version       int64           `json:"version"`
	Splits        []SplitResponse `json:"splits"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ExpenseFromDomain converts a domain expense to a response.
func ExpenseFromDomain(e *domain.Expense) ExpenseResponse {
	splits := make([]SplitResponse, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = SplitResponse{
			MembershipID: s.MembershipID,
			ShareCents:   s.Share.Cents(),
			ShareDisplay: Display(s.Share),
		}
	}
	return ExpenseResponse{
		ID:            e.ID,
		GroupID:       e.GroupID,
		Title:         e.Title,
		AmountCents:   e.Amount.Cents(),
		AmountDisplay: Display(e.Amount),
		Currency:      e.Currency,
		PaidBy:        e.PaidBy,
		ExpenseDate:   e.ExpenseDate.Format(DateLayout),
		Memo:          e.Memo,
		Version:       e.Version,
		Splits:        splits,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

// ExpensesFromDomain converts a list of expenses.
func ExpensesFromDomain(expenses []*domain.Expense) []ExpenseResponse {
	result := make([]ExpenseResponse, len(expenses))
	for i, e := range expenses {
		result[i] = ExpenseFromDomain(e)
	}
	return result
}

// BalanceResponse is one member's position in a group.
type BalanceResponse struct {
	MembershipID string `json:"membership_id"`
	PaidCents    int64  `json:"paid_cents"`
	OwedCents    int64  `json:"owed_cents"`
	NetCents     int64  `json:"net_cents"`
	NetDisplay   string `json:"net_display"`
}

// BalancesFromDomain converts member balances.
func BalancesFromDomain(balances []domain.MemberBalance) []BalanceResponse {
	result := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		net := b.Net()
		result[i] = BalanceResponse{
			MembershipID: b.MembershipID,
			PaidCents:    b.Paid.Cents(),
			OwedCents:    b.Owed.Cents(),
			NetCents:     net.Cents(),
			NetDisplay:   Display(net),
		}
	}
	return result
}

// MismatchResponse describes an expense whose splits do not add up.
type MismatchResponse struct {
	ExpenseID       string `json:"expense_id"`
	AmountCents     int64  `json:"amount_cents"`
	SplitTotalCents int64  `json:"split_total_cents"`
}

// IntegrityResponse is the result of a group integrity check.
type IntegrityResponse struct {
	GroupID       string             `json:"group_id"`
	Consistent    bool               `json:"consistent"`
	NetTotalCents int64              `json:"net_total_cents"`
	ExpenseRows   int                `json:"expense_rows"`
	Mismatches    []MismatchResponse `json:"mismatches"`
	CheckedAt     time.Time          `json:"checked_at"`
}

// IntegrityFromUseCase converts an integrity report.
func IntegrityFromUseCase(r *usecase.IntegrityReport) IntegrityResponse {
	mismatches := make([]MismatchResponse, len(r.Mismatches))
	for i, m := range r.Mismatches {
		mismatches[i] = MismatchResponse{
			ExpenseID:       m.ExpenseID,
			AmountCents:     m.Amount.Cents(),
			SplitTotalCents: m.SplitTotal.Cents(),
		}
	}
	return IntegrityResponse{
		GroupID:       r.GroupID,
		Consistent:    r.Consistent,
		NetTotalCents: r.NetTotal.Cents(),
		ExpenseRows:   r.ExpenseRows,
		Mismatches:    mismatches,
		CheckedAt:     r.CheckedAt,
	}
}

// SettlementResponse represents one suggested transfer.
type SettlementResponse struct {
	ID             string    `json:"id"`
	BatchID        string    `json:"batch_id"`
	FromMembership string    `json:"from_membership_id"`
	ToMembership   string    `json:"to_membership_id"`
	AmountCents    int64     `json:"amount_cents"`
	AmountDisplay  string    `json:"amount_display"`
	Status         string    `json:"status"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SettlementFromDomain converts a domain settlement to a response.
func SettlementFromDomain(s *domain.Settlement) SettlementResponse {
	return SettlementResponse{
		ID:             s.ID,
		BatchID:        s.BatchID,
		FromMembership: s.FromMembership,
		ToMembership:   s.ToMembership,
		AmountCents:    s.Amount.Cents(),
		AmountDisplay:  Display(s.Amount),
		Status:         string(s.Status),
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// BatchResponse represents a settlement batch with its transfers.
type BatchResponse struct {
	ID           string               `json:"id"`
	GroupID      string               `json:"group_id"`
	Status       string               `json:"status"`
	VoidReason   string               `json:"void_reason,omitempty"`
	Version      int64                `json:"version"`
	TotalCents   int64                `json:"total_cents"`
	TotalDisplay string               `json:"total_display"`
	Settlements  []SettlementResponse `json:"settlements"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// BatchFromDomain converts a domain batch to a response.
func BatchFromDomain(b *domain.SettlementBatch) BatchResponse {
	settlements := make([]SettlementResponse, len(b.Settlements))
	for i := range b.Settlements {
		settlements[i] = SettlementFromDomain(&b.Settlements[i])
	}
	total := b.TotalAmount()
	return BatchResponse{
		ID:           b.ID,
		GroupID:      b.GroupID,
		Status:       string(b.Status),
		VoidReason:   b.VoidReason,
		Version:      b.Version,
		TotalCents:   total.Cents(),
		TotalDisplay: Display(total),
		Settlements:  settlements,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

// BatchesFromDomain converts a list of batches.
func BatchesFromDomain(batches []*domain.SettlementBatch) []BatchResponse {
	result := make([]BatchResponse, len(batches))
	for i, b := range batches {
		result[i] = BatchFromDomain(b)
	}
	return result
}

// ActivityResponse is one entry of a group's activity feed.
type ActivityResponse struct {
	ID                string         `json:"id"`
	GroupID           string         `json:"group_id"`
	ActorMembershipID string         `json:"actor_membership_id,omitempty"`
	EventType         string         `json:"event_type"`
	SubjectID         string         `json:"subject_id"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ActivitiesFromDomain converts activity entries.
func ActivitiesFromDomain(activities []*domain.Activity) []ActivityResponse {
	result := make([]ActivityResponse, len(activities))
	for i, a := range activities {
		result[i] = ActivityResponse{
			ID:                a.ID,
			GroupID:           a.GroupID,
			ActorMembershipID: a.ActorMembershipID,
			EventType:         string(a.EventType),
			SubjectID:         a.SubjectID,
			Metadata:          a.Metadata,
			CreatedAt:         a.CreatedAt,
		}
	}
	return result
}

// ListResponse wraps paginated results.
type ListResponse[T any] struct {
	Data   []T `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
