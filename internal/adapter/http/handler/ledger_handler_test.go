package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iho/splitledger/internal/adapter/http/dto"
	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

func TestLedgerHandler_Balances(t *testing.T) {
	h := NewLedgerHandler(&ledgerServiceStub{
		balancesFn: func(ctx context.Context, actorID, groupID string) ([]domain.MemberBalance, error) {
			return []domain.MemberBalance{
				{MembershipID: "m-1", Paid: domain.Cents(1000), Owed: domain.Cents(500)},
				{MembershipID: "m-2", Owed: domain.Cents(500)},
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	h.Balances(rec, request(http.MethodGet, "/api/v1/groups/g-1/balances", "", "u-1", map[string]string{"groupID": "g-1"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp []dto.BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp[0].NetCents != 500 || resp[1].NetDisplay != "-5.00" {
		t.Fatalf("unexpected balances %+v", resp)
	}
}

func TestLedgerHandler_CheckIntegrity(t *testing.T) {
	tests := []struct {
		name   string
		report *usecase.IntegrityReport
		want   int
	}{
		{"consistent", &usecase.IntegrityReport{GroupID: "g-1", Consistent: true}, http.StatusOK},
		{"inconsistent", &usecase.IntegrityReport{
			GroupID:    "g-1",
			Mismatches: []domain.SplitMismatch{{ExpenseID: "e-1", Amount: domain.Cents(100), SplitTotal: domain.Cents(90)}},
		}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewLedgerHandler(&ledgerServiceStub{
				integrityFn: func(ctx context.Context, actorID, groupID string) (*usecase.IntegrityReport, error) {
					return tt.report, nil
				},
			})

			rec := httptest.NewRecorder()
			h.CheckIntegrity(rec, request(http.MethodGet, "/api/v1/groups/g-1/integrity", "", "u-1", map[string]string{"groupID": "g-1"}))

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			var resp dto.IntegrityResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Consistent != tt.report.Consistent || len(resp.Mismatches) != len(tt.report.Mismatches) {
				t.Fatalf("unexpected report %+v", resp)
			}
		})
	}
}
