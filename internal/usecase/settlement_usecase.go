package usecase

import (
	"context"
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// SettlementUseCase computes settlement batches and drives their lifecycle.
type SettlementUseCase struct {
	txManager      TransactionManager
	membershipRepo MembershipRepository
	expenseRepo    ExpenseRepository
	settlementRepo SettlementRepository
	activityRepo   ActivityRepository
	idGen          IDGenerator
	metrics        *metrics.Metrics
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TransactionManager,
	membershipRepo MembershipRepository,
	expenseRepo ExpenseRepository,
	settlementRepo SettlementRepository,
	activityRepo ActivityRepository,
	idGen IDGenerator,
	metrics *metrics.Metrics,
) *SettlementUseCase {
	return &SettlementUseCase{
		txManager:      txManager,
		membershipRepo: membershipRepo,
		expenseRepo:    expenseRepo,
		settlementRepo: settlementRepo,
		activityRepo:   activityRepo,
		idGen:          idGen,
		metrics:        metrics,
	}
}

// ComputeBatchInput represents input for computing a settlement batch.
type ComputeBatchInput struct {
	ActorID string
	GroupID string
}

// ComputeBatch snapshots current balances into a new suggested batch.
func (uc *SettlementUseCase) ComputeBatch(ctx context.Context, input ComputeBatchInput) (*domain.SettlementBatch, error) {
	var batch *domain.SettlementBatch
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		batch, err = uc.ComputeBatchInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// ComputeBatchInTx computes and stores a batch inside the caller's transaction.
// Earlier batches are left untouched.
func (uc *SettlementUseCase) ComputeBatchInTx(ctx context.Context, tx Transaction, input ComputeBatchInput) (*domain.SettlementBatch, error) {
	start := time.Now()

	actor, err := requireMember(ctx, uc.membershipRepo, tx, input.GroupID, input.ActorID, domain.ErrGroupNotFound)
	if err != nil {
		return nil, err
	}
	if err := requireWriter(actor); err != nil {
		return nil, err
	}

	expenses, err := uc.expenseRepo.ListAllByGroup(ctx, tx, input.GroupID)
	if err != nil {
		return nil, err
	}
	transfers := domain.SettleDebts(domain.CalculateBalances(expenses).Net())

	now := time.Now().UTC()
	batch := domain.NewSettlementBatch(input.GroupID, transfers, uc.idGen.Generate, now)
	if err := uc.settlementRepo.CreateBatch(ctx, tx, batch); err != nil {
		return nil, err
	}

	if err := recordActivity(ctx, uc.activityRepo, tx, uc.idGen, domain.Activity{
		GroupID:           input.GroupID,
		ActorMembershipID: actor.ID,
		EventType:         domain.EventSettlementBatchCreate,
		SubjectID:         batch.ID,
		Metadata: domain.JSON{
			"settlements":   len(batch.Settlements),
			"total_cents":   batch.TotalAmount().Cents(),
			"expenses_seen": len(expenses),
		},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.BatchesComputed.Inc()
		uc.metrics.TransfersPerBatch.Observe(float64(len(batch.Settlements)))
		uc.metrics.SettlementDuration.Observe(time.Since(start).Seconds())
	}

	return batch, nil
}

// GetLatestBatch returns the group's most recently created batch of any status.
func (uc *SettlementUseCase) GetLatestBatch(ctx context.Context, actorID, groupID string) (*domain.SettlementBatch, error) {
	if _, err := requireMember(ctx, uc.membershipRepo, nil, groupID, actorID, domain.ErrGroupNotFound); err != nil {
		return nil, err
	}
	return uc.settlementRepo.GetLatestBatch(ctx, groupID)
}

// GetBatch returns a batch with its settlements.
func (uc *SettlementUseCase) GetBatch(ctx context.Context, actorID, batchID string) (*domain.SettlementBatch, error) {
	batch, err := uc.settlementRepo.GetBatch(ctx, nil, batchID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, uc.membershipRepo, nil, batch.GroupID, actorID, domain.ErrBatchNotFound); err != nil {
		return nil, err
	}
	return batch, nil
}

// ListBatches lists a group's batches, newest first.
func (uc *SettlementUseCase) ListBatches(ctx context.Context, actorID, groupID string, limit, offset int) ([]*domain.SettlementBatch, error) {
	if _, err := requireMember(ctx, uc.membershipRepo, nil, groupID, actorID, domain.ErrGroupNotFound); err != nil {
		return nil, err
	}
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.settlementRepo.ListBatches(ctx, groupID, limit, offset)
}

// MarkPaidInput represents input for marking a settlement paid.
type MarkPaidInput struct {
	ActorID         string
	SettlementID    string
	ExpectedVersion int64
}

// MarkPaid marks a settlement paid on behalf of its paying member.
func (uc *SettlementUseCase) MarkPaid(ctx context.Context, input MarkPaidInput) (*domain.Settlement, error) {
	var settlement *domain.Settlement
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		settlement, err = uc.MarkPaidInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// MarkPaidInTx moves a suggested settlement to paid. A settlement that is
// already paid is returned unchanged; the version check applies only when
// the status actually changes.
func (uc *SettlementUseCase) MarkPaidInTx(ctx context.Context, tx Transaction, input MarkPaidInput) (*domain.Settlement, error) {
	if input.ExpectedVersion < 1 {
		return nil, domain.ErrInvalidVersion
	}

	settlement, err := uc.settlementRepo.GetSettlement(ctx, tx, input.SettlementID)
	if err != nil {
		return nil, err
	}
	actor, err := requireMember(ctx, uc.membershipRepo, tx, settlement.GroupID, input.ActorID, domain.ErrSettlementNotFound)
	if err != nil {
		return nil, err
	}

	current := settlement.Version
	now := time.Now().UTC()
	changed, err := settlement.MarkPaid(actor.ID, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		return settlement, nil
	}
	if err := domain.CheckVersion(current, input.ExpectedVersion); err != nil {
		observeFailure(uc.metrics, "settlement", err)
		return nil, err
	}

	version, err := uc.settlementRepo.UpdateSettlementStatus(ctx, tx, settlement.ID, domain.SettlementStatusPaid, input.ExpectedVersion, now)
	if err != nil {
		observeFailure(uc.metrics, "settlement", err)
		return nil, err
	}
	settlement.Version = version

	if err := recordActivity(ctx, uc.activityRepo, tx, uc.idGen, domain.Activity{
		GroupID:           settlement.GroupID,
		ActorMembershipID: actor.ID,
		EventType:         domain.EventSettlementPaid,
		SubjectID:         settlement.ID,
		Metadata: domain.JSON{
			"batch_id":     settlement.BatchID,
			"to":           settlement.ToMembership,
			"amount_cents": settlement.Amount.Cents(),
		},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SettlementsPaid.Inc()
	}

	return settlement, nil
}

// VoidBatchInput represents input for voiding a batch. ExpectedVersion of
// zero skips the caller-side check; the write is still version guarded.
type VoidBatchInput struct {
	ActorID         string
	BatchID         string
	Reason          string
	ExpectedVersion int64
}

// VoidBatch voids a batch and its still-suggested settlements.
func (uc *SettlementUseCase) VoidBatch(ctx context.Context, input VoidBatchInput) (*domain.SettlementBatch, error) {
	var batch *domain.SettlementBatch
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		var err error
		batch, err = uc.VoidBatchInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// VoidBatchInTx voids a batch inside the caller's transaction. Paid
// settlements stay paid and no amount changes.
func (uc *SettlementUseCase) VoidBatchInTx(ctx context.Context, tx Transaction, input VoidBatchInput) (*domain.SettlementBatch, error) {
	if input.ExpectedVersion < 0 {
		return nil, domain.ErrInvalidVersion
	}

	batch, err := uc.settlementRepo.GetBatch(ctx, tx, input.BatchID)
	if err != nil {
		return nil, err
	}
	actor, err := requireMember(ctx, uc.membershipRepo, tx, batch.GroupID, input.ActorID, domain.ErrBatchNotFound)
	if err != nil {
		return nil, err
	}
	if err := requireWriter(actor); err != nil {
		return nil, err
	}

	expected := batch.Version
	if input.ExpectedVersion > 0 {
		if err := domain.CheckVersion(batch.Version, input.ExpectedVersion); err != nil {
			observeFailure(uc.metrics, "settlement_batch", err)
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err := batch.Void(input.Reason, now); err != nil {
		return nil, err
	}

	version, err := uc.settlementRepo.VoidBatch(ctx, tx, batch.ID, batch.VoidReason, expected, now)
	if err != nil {
		observeFailure(uc.metrics, "settlement_batch", err)
		return nil, err
	}
	batch.Version = version

	voided, err := uc.settlementRepo.VoidSuggestedSettlements(ctx, tx, batch.ID, now)
	if err != nil {
		return nil, err
	}

	if err := recordActivity(ctx, uc.activityRepo, tx, uc.idGen, domain.Activity{
		GroupID:           batch.GroupID,
		ActorMembershipID: actor.ID,
		EventType:         domain.EventSettlementBatchVoided,
		SubjectID:         batch.ID,
		Metadata: domain.JSON{
			"reason":             batch.VoidReason,
			"settlements_voided": voided,
		},
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.BatchesVoided.Inc()
	}

	return batch, nil
}
