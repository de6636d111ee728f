package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/splitledger/internal/adapter/http/dto"
	"github.com/iho/splitledger/internal/usecase"
)

// SettlementHandler handles settlement batch requests.
type SettlementHandler struct {
	settlements SettlementService
	guard       WriteGuard
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlements SettlementService, guard WriteGuard) *SettlementHandler {
	return &SettlementHandler{settlements: settlements, guard: guard}
}

// Compute snapshots current balances into a new batch. Honors Idempotency-Key.
func (h *SettlementHandler) Compute(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	input := usecase.ComputeBatchInput{ActorID: actor, GroupID: chi.URLParam(r, "groupID")}
	writeGuarded(w, r, h.guard, "failed to compute settlements", func(ctx context.Context, tx usecase.Transaction) (int, any, error) {
		batch, err := h.settlements.ComputeBatchInTx(ctx, tx, input)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, dto.BatchFromDomain(batch), nil
	})
}

// Latest returns the most recent batch of the group.
func (h *SettlementHandler) Latest(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	batch, err := h.settlements.GetLatestBatch(r.Context(), actor, chi.URLParam(r, "groupID"))
	if err != nil {
		writeDomainError(w, "failed to get latest batch", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BatchFromDomain(batch))
}

// List lists the group's batches, newest first.
func (h *SettlementHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	batches, err := h.settlements.ListBatches(r.Context(), actor, chi.URLParam(r, "groupID"), limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list batches", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[dto.BatchResponse]{
		Data:   dto.BatchesFromDomain(batches),
		Limit:  limit,
		Offset: offset,
	})
}

// GetBatch returns one batch with its settlements.
func (h *SettlementHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	batch, err := h.settlements.GetBatch(r.Context(), actor, chi.URLParam(r, "batchID"))
	if err != nil {
		writeDomainError(w, "failed to get batch", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BatchFromDomain(batch))
}

// Void voids a batch. Honors Idempotency-Key.
func (h *SettlementHandler) Void(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var req dto.VoidBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := req.ToUseCaseInput(actor, chi.URLParam(r, "batchID"))
	writeGuarded(w, r, h.guard, "failed to void batch", func(ctx context.Context, tx usecase.Transaction) (int, any, error) {
		batch, err := h.settlements.VoidBatchInTx(ctx, tx, input)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, dto.BatchFromDomain(batch), nil
	})
}

// MarkPaid marks a settlement paid by its debtor. Honors Idempotency-Key.
func (h *SettlementHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorID(w, r)
	if !ok {
		return
	}

	var req dto.MarkPaidRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := req.ToUseCaseInput(actor, chi.URLParam(r, "settlementID"))
	writeGuarded(w, r, h.guard, "failed to mark settlement paid", func(ctx context.Context, tx usecase.Transaction) (int, any, error) {
		settlement, err := h.settlements.MarkPaidInTx(ctx, tx, input)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusOK, dto.SettlementFromDomain(settlement), nil
	})
}
