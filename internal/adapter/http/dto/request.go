package dto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// DateLayout is the wire format of expense dates.
const DateLayout = "2006-01-02"

// RegisterRequest represents a request to create a user.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterRequest) ToUseCaseInput() usecase.RegisterInput {
	return usecase.RegisterInput{Email: r.Email, Name: r.Name, Password: r.Password}
}

// LoginRequest represents login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *LoginRequest) ToUseCaseInput() usecase.LoginInput {
	return usecase.LoginInput{Email: r.Email, Password: r.Password}
}

// CreateGroupRequest represents a request to create a group.
type CreateGroupRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateGroupRequest) ToUseCaseInput(actorID string) usecase.CreateGroupInput {
	return usecase.CreateGroupInput{ActorID: actorID, Name: r.Name, Currency: r.Currency}
}

// RenameGroupRequest renames a group at a known version.
type RenameGroupRequest struct {
	Name    string `json:"name"`
	Version int64  `json:"version"`
}

// ToUseCaseInput converts to use case input.
func (r *RenameGroupRequest) ToUseCaseInput(actorID, groupID string) usecase.RenameGroupInput {
	return usecase.RenameGroupInput{ActorID: actorID, GroupID: groupID, Name: r.Name, ExpectedVersion: r.Version}
}

// AddMemberRequest adds a user to a group by ID or email.
type AddMemberRequest struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *AddMemberRequest) ToUseCaseInput(actorID, groupID string) (usecase.AddMemberInput, error) {
	role, err := domain.ParseRole(r.Role)
	if err != nil {
		return usecase.AddMemberInput{}, err
	}
	return usecase.AddMemberInput{
		ActorID: actorID,
		GroupID: groupID,
		UserID:  r.UserID,
		Email:   r.Email,
		Role:    role,
	}, nil
}

// ChangeRoleRequest changes a member's role.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// ToUseCaseInput converts to use case input.
func (r *ChangeRoleRequest) ToUseCaseInput(actorID, groupID, membershipID string) (usecase.ChangeMemberRoleInput, error) {
	if r.Role == "" {
		return usecase.ChangeMemberRoleInput{}, domain.ErrInvalidRole
	}
	role, err := domain.ParseRole(r.Role)
	if err != nil {
		return usecase.ChangeMemberRoleInput{}, err
	}
	return usecase.ChangeMemberRoleInput{
		ActorID:      actorID,
		GroupID:      groupID,
		MembershipID: membershipID,
		Role:         role,
	}, nil
}

// Split policies accepted on the wire.
const (
	SplitPolicyEqual = "equal"
	SplitPolicyExact = "exact"
)

// SplitShareRequest is one explicit share of an exact split.
type SplitShareRequest struct {
	MembershipID string `json:"membership_id"`
	ShareCents   int64  `json:"share_cents"`
}

// CreateExpenseRequest represents a request to record an expense.
type CreateExpenseRequest struct {
	Title       string              `json:"title"`
	AmountCents int64               `json:"amount_cents"`
	Currency    string              `json:"currency,omitempty"`
	PaidBy      string              `json:"paid_by"`
	ExpenseDate string              `json:"expense_date"`
	Memo        string              `json:"memo,omitempty"`
	SplitPolicy string              `json:"split_policy"`
	SplitAmong  []string            `json:"split_among,omitempty"`
	Splits      []SplitShareRequest `json:"splits,omitempty"`
}

// ToUseCaseInput converts to use case input. The split policy is built
// here so malformed splits are rejected before any storage work.
func (r *CreateExpenseRequest) ToUseCaseInput(actorID, groupID string) (usecase.CreateExpenseInput, error) {
	date, err := parseDate(r.ExpenseDate)
	if err != nil {
		return usecase.CreateExpenseInput{}, err
	}

	var split domain.SplitPolicy
	switch strings.ToLower(strings.TrimSpace(r.SplitPolicy)) {
	case SplitPolicyEqual:
		split, err = domain.NewEqualSplit(r.SplitAmong)
	case SplitPolicyExact:
		shares := make([]domain.Share, len(r.Splits))
		for i, s := range r.Splits {
			shares[i] = domain.Share{MembershipID: s.MembershipID, Amount: domain.Cents(s.ShareCents)}
		}
		split, err = domain.NewExactSplit(shares)
	default:
		err = fmt.Errorf("%w: %q", domain.ErrInvalidSplitPolicy, r.SplitPolicy)
	}
	if err != nil {
		return usecase.CreateExpenseInput{}, err
	}

	return usecase.CreateExpenseInput{
		ActorID: actorID,
		ExpenseParams: domain.ExpenseParams{
			GroupID:     groupID,
			Title:       r.Title,
			Amount:      domain.Cents(r.AmountCents),
			Currency:    r.Currency,
			PaidBy:      r.PaidBy,
			ExpenseDate: date,
			Memo:        r.Memo,
			Split:       split,
		},
	}, nil
}

// UpdateExpenseRequest edits the descriptive fields of an expense.
// Amount and splits are immutable.
type UpdateExpenseRequest struct {
	Version     int64   `json:"version"`
	Title       *string `json:"title,omitempty"`
	Memo        *string `json:"memo,omitempty"`
	ExpenseDate *string `json:"expense_date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateExpenseRequest) ToUseCaseInput(actorID, expenseID string) (usecase.UpdateExpenseInput, error) {
	input := usecase.UpdateExpenseInput{
		ActorID:         actorID,
		ExpenseID:       expenseID,
		ExpectedVersion: r.Version,
		Title:           r.Title,
		Memo:            r.Memo,
	}
	if r.ExpenseDate != nil {
		date, err := parseDate(*r.ExpenseDate)
		if err != nil {
			return usecase.UpdateExpenseInput{}, err
		}
		input.ExpenseDate = &date
	}
	return input, nil
}

// MarkPaidRequest marks a settlement paid at a known version.
type MarkPaidRequest struct {
	Version int64 `json:"version"`
}

// ToUseCaseInput converts to use case input.
func (r *MarkPaidRequest) ToUseCaseInput(actorID, settlementID string) usecase.MarkPaidInput {
	return usecase.MarkPaidInput{ActorID: actorID, SettlementID: settlementID, ExpectedVersion: r.Version}
}

// VoidBatchRequest voids a settlement batch. Version is optional.
type VoidBatchRequest struct {
	Reason  string `json:"reason"`
	Version int64  `json:"version,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *VoidBatchRequest) ToUseCaseInput(actorID, batchID string) usecase.VoidBatchInput {
	return usecase.VoidBatchInput{ActorID: actorID, BatchID: batchID, Reason: r.Reason, ExpectedVersion: r.Version}
}

var errDateRequired = errors.New("expense_date is required")

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &domain.Error{Kind: domain.KindValidation, Err: errDateRequired}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &domain.Error{Kind: domain.KindValidation, Err: fmt.Errorf("expense_date must be YYYY-MM-DD: %w", err)}
	}
	return t, nil
}
