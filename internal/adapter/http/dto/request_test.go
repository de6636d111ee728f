package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

func TestCreateExpenseRequest_EqualSplit(t *testing.T) {
	req := &CreateExpenseRequest{
		Title:       "Dinner",
		AmountCents: 1000,
		PaidBy:      "m-1",
		ExpenseDate: "2025-06-01",
		SplitPolicy: "equal",
		SplitAmong:  []string{"m-1", "m-2", "m-3"},
	}

	input, err := req.ToUseCaseInput("u-1", "g-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input.ActorID != "u-1" || input.GroupID != "g-1" || input.PaidBy != "m-1" {
		t.Fatalf("unexpected input %+v", input)
	}
	if input.Amount.Cents() != 1000 {
		t.Fatalf("amount = %d, want 1000", input.Amount.Cents())
	}
	if !input.ExpenseDate.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", input.ExpenseDate)
	}

	shares, err := input.Split.Allocate(input.Amount)
	if err != nil {
		t.Fatalf("shares: %v", err)
	}
	want := []int64{334, 333, 333}
	for i, s := range shares {
		if s.Amount.Cents() != want[i] {
			t.Fatalf("share %d = %d, want %d", i, s.Amount.Cents(), want[i])
		}
	}
}

func TestCreateExpenseRequest_ExactSplit(t *testing.T) {
	req := &CreateExpenseRequest{
		Title:       "Hotel",
		AmountCents: 900,
		PaidBy:      "m-1",
		ExpenseDate: "2025-06-02",
		SplitPolicy: "EXACT",
		Splits: []SplitShareRequest{
			{MembershipID: "m-1", ShareCents: 600},
			{MembershipID: "m-2", ShareCents: 300},
		},
	}

	input, err := req.ToUseCaseInput("u-1", "g-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	shares, err := input.Split.Allocate(input.Amount)
	if err != nil {
		t.Fatalf("shares: %v", err)
	}
	if len(shares) != 2 || shares[0].Amount.Cents() != 600 || shares[1].MembershipID != "m-2" {
		t.Fatalf("unexpected shares %+v", shares)
	}
}

func TestCreateExpenseRequest_Rejections(t *testing.T) {
	base := CreateExpenseRequest{
		Title:       "x",
		AmountCents: 100,
		PaidBy:      "m-1",
		ExpenseDate: "2025-06-01",
		SplitPolicy: "equal",
		SplitAmong:  []string{"m-1"},
	}

	tests := []struct {
		name   string
		mutate func(r *CreateExpenseRequest)
		want   error
	}{
		{"unknown policy", func(r *CreateExpenseRequest) { r.SplitPolicy = "percent" }, domain.ErrInvalidSplitPolicy},
		{"missing date", func(r *CreateExpenseRequest) { r.ExpenseDate = "" }, domain.ErrValidation},
		{"bad date", func(r *CreateExpenseRequest) { r.ExpenseDate = "01/06/2025" }, domain.ErrValidation},
		{"empty equal split", func(r *CreateExpenseRequest) { r.SplitAmong = nil }, domain.ErrEmptySplits},
		{"duplicate participant", func(r *CreateExpenseRequest) { r.SplitAmong = []string{"m-1", "m-1"} }, domain.ErrDuplicateParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			_, err := req.ToUseCaseInput("u-1", "g-1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if domain.KindOf(err) != domain.KindValidation {
				t.Fatalf("expected validation kind, got %q", domain.KindOf(err))
			}
		})
	}
}

func TestUpdateExpenseRequest_ToUseCaseInput(t *testing.T) {
	title := "Lunch"
	date := "2025-07-04"
	req := &UpdateExpenseRequest{Version: 3, Title: &title, ExpenseDate: &date}

	input, err := req.ToUseCaseInput("u-1", "e-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if input.ExpectedVersion != 3 || *input.Title != "Lunch" || input.Memo != nil {
		t.Fatalf("unexpected input %+v", input)
	}
	if input.ExpenseDate == nil || input.ExpenseDate.Month() != time.July {
		t.Fatalf("unexpected date %v", input.ExpenseDate)
	}

	bad := "tomorrow"
	if _, err := (&UpdateExpenseRequest{Version: 1, ExpenseDate: &bad}).ToUseCaseInput("u-1", "e-1"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddMemberRequest_Role(t *testing.T) {
	input, err := (&AddMemberRequest{Email: "bob@example.com"}).ToUseCaseInput("u-1", "g-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := usecase.AddMemberInput{ActorID: "u-1", GroupID: "g-1", Email: "bob@example.com", Role: domain.RoleMember}
	if input != want {
		t.Fatalf("ToUseCaseInput() = %+v, want %+v", input, want)
	}

	if _, err := (&AddMemberRequest{UserID: "u-2", Role: "admin"}).ToUseCaseInput("u-1", "g-1"); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestChangeRoleRequest_RequiresRole(t *testing.T) {
	if _, err := (&ChangeRoleRequest{}).ToUseCaseInput("u-1", "g-1", "m-1"); !errors.Is(err, domain.ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}

	input, err := (&ChangeRoleRequest{Role: "viewer"}).ToUseCaseInput("u-1", "g-1", "m-1")
	if err != nil || input.Role != domain.RoleViewer {
		t.Fatalf("unexpected result %+v, %v", input, err)
	}
}

func TestVoidAndPaidRequests(t *testing.T) {
	void := (&VoidBatchRequest{Reason: "wrong", Version: 2}).ToUseCaseInput("u-1", "b-1")
	if void != (usecase.VoidBatchInput{ActorID: "u-1", BatchID: "b-1", Reason: "wrong", ExpectedVersion: 2}) {
		t.Fatalf("unexpected void input %+v", void)
	}

	paid := (&MarkPaidRequest{Version: 1}).ToUseCaseInput("u-1", "s-1")
	if paid != (usecase.MarkPaidInput{ActorID: "u-1", SettlementID: "s-1", ExpectedVersion: 1}) {
		t.Fatalf("unexpected paid input %+v", paid)
	}
}
