package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/splitledger/internal/adapter/http/dto"
)

// LedgerHandler serves balances and integrity checks.
type LedgerHandler struct {
	ledger LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// Balances returns every member's net position.
func (h *LedgerHandler) Balances(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	balances, err := h.ledger.GetBalances(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		writeDomainError(w, "failed to get balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesFromDomain(balances))
}

// CheckIntegrity reports whether the group's expenses are consistent.
// An inconsistent group answers 409 with the report.
func (h *LedgerHandler) CheckIntegrity(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	report, err := h.ledger.CheckIntegrity(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		writeDomainError(w, "failed to check integrity", err)
		return
	}

	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusConflict
	}
	writeJSON(w, status, dto.IntegrityFromUseCase(report))
}
