package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/splitledger/internal/adapter/http/dto"
	"github.com/iho/splitledger/internal/usecase"
)

// ExpenseHandler handles expense requests.
type ExpenseHandler struct {
	expenses ExpenseService
	guard    WriteGuard
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenses ExpenseService, guard WriteGuard) *ExpenseHandler {
	return &ExpenseHandler{expenses: expenses, guard: guard}
}

// Create records an expense. Honors Idempotency-Key.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var req dto.CreateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(actor, chi.URLParam(r, "groupID"))
	if err != nil {
		writeDomainError(w, "invalid expense", err)
		return
	}

	writeGuarded(w, r, h.guard, "failed to create expense", func(ctx context.Context, tx usecase.Transaction) (int, any, error) {
		expense, err := h.expenses.CreateExpenseInTx(ctx, tx, input)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, dto.ExpenseFromDomain(expense), nil
	})
}

// List lists a group's expenses.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	expenses, err := h.expenses.ListExpenses(r.Context(), actor, chi.URLParam(r, "groupID"), limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list expenses", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[dto.ExpenseResponse]{
		Data:   dto.ExpensesFromDomain(expenses),
		Limit:  limit,
		Offset: offset,
	})
}

// Get returns one expense with its splits.
func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	expense, err := h.expenses.GetExpense(r.Context(), actor, chi.URLParam(r, "expenseID"))
	if err != nil {
		writeDomainError(w, "failed to get expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExpenseFromDomain(expense))
}

// Update edits an expense's title, memo or date at the expected version.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var req dto.UpdateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(actor, chi.URLParam(r, "expenseID"))
	if err != nil {
		writeDomainError(w, "invalid expense update", err)
		return
	}

	expense, err := h.expenses.UpdateExpenseDetails(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to update expense", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ExpenseFromDomain(expense))
}
