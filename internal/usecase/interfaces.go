package usecase

import (
	"context"
	"time"

	"github.com/iho/splitledger/internal/domain"
)

// GroupRepository defines data access for groups.
type GroupRepository interface {
	Create(ctx context.Context, tx Transaction, group *domain.Group) error
	GetByID(ctx context.Context, id string) (*domain.Group, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Group, error)
	// UpdateName applies the rename only if the stored version equals
	// expectedVersion and returns the new version.
	UpdateName(ctx context.Context, tx Transaction, id, name string, expectedVersion int64, updatedAt time.Time) (int64, error)
}

// MembershipRepository defines data access for group memberships.
type MembershipRepository interface {
	Create(ctx context.Context, tx Transaction, membership *domain.Membership) error
	GetByID(ctx context.Context, tx Transaction, id string) (*domain.Membership, error)
	GetByGroupAndUser(ctx context.Context, tx Transaction, groupID, userID string) (*domain.Membership, error)
	ListByGroup(ctx context.Context, tx Transaction, groupID string) ([]*domain.Membership, error)
	// LockByGroup lists a group's memberships and locks them for the rest of tx.
	LockByGroup(ctx context.Context, tx Transaction, groupID string) ([]*domain.Membership, error)
	UpdateRole(ctx context.Context, tx Transaction, id string, role domain.Role) error
	Delete(ctx context.Context, tx Transaction, id string) error
	IsReferenced(ctx context.Context, tx Transaction, id string) (bool, error)
}

// ExpenseRepository defines data access for expenses and their splits.
type ExpenseRepository interface {
	// Create stores the expense and all of its splits.
	Create(ctx context.Context, tx Transaction, expense *domain.Expense) error
	GetByID(ctx context.Context, id string) (*domain.Expense, error)
	ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*domain.Expense, error)
	// ListAllByGroup loads every expense of a group with splits.
	ListAllByGroup(ctx context.Context, tx Transaction, groupID string) ([]*domain.Expense, error)
	UpdateDetails(ctx context.Context, tx Transaction, expense *domain.Expense, expectedVersion int64) (int64, error)
}

// LedgerRepository defines group-wide consistency queries.
type LedgerRepository interface {
	FindSplitMismatches(ctx context.Context, groupID string) ([]domain.SplitMismatch, error)
}

// SettlementRepository defines data access for settlement batches.
type SettlementRepository interface {
	// CreateBatch stores the batch and all of its settlements.
	CreateBatch(ctx context.Context, tx Transaction, batch *domain.SettlementBatch) error
	GetBatch(ctx context.Context, tx Transaction, id string) (*domain.SettlementBatch, error)
	GetLatestBatch(ctx context.Context, groupID string) (*domain.SettlementBatch, error)
	ListBatches(ctx context.Context, groupID string, limit, offset int) ([]*domain.SettlementBatch, error)
	GetSettlement(ctx context.Context, tx Transaction, id string) (*domain.Settlement, error)
	UpdateSettlementStatus(ctx context.Context, tx Transaction, id string, status domain.SettlementStatus, expectedVersion int64, updatedAt time.Time) (int64, error)
	VoidBatch(ctx context.Context, tx Transaction, id, reason string, expectedVersion int64, updatedAt time.Time) (int64, error)
	// VoidSuggestedSettlements voids the batch's settlements still in
	// suggested status and reports how many changed.
	VoidSuggestedSettlements(ctx context.Context, tx Transaction, batchID string, updatedAt time.Time) (int64, error)
}

// IdempotencyRepository defines durable storage for idempotency records.
type IdempotencyRepository interface {
	// Reserve claims key inside tx. A concurrent holder of the same key
	// makes it block until that holder finishes; it fails with
	// domain.ErrIdempotencyKeyExists if the holder committed.
	Reserve(ctx context.Context, tx Transaction, key domain.IdempotencyKey, createdAt time.Time) error
	// Complete stores the response for a reserved key.
	Complete(ctx context.Context, tx Transaction, record *domain.IdempotencyRecord) error
	Get(ctx context.Context, key domain.IdempotencyKey) (*domain.IdempotencyRecord, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// IdempotencyCache is an optional read-through cache of completed records.
// A miss returns (nil, nil).
type IdempotencyCache interface {
	Get(ctx context.Context, key domain.IdempotencyKey) (*domain.IdempotencyRecord, error)
	Set(ctx context.Context, record *domain.IdempotencyRecord, ttl time.Duration) error
}

// ActivityRepository defines data access for the group activity log.
// Unpublished rows act as an outbox.
type ActivityRepository interface {
	Create(ctx context.Context, tx Transaction, activity *domain.Activity) error
	ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*domain.Activity, error)
	GetUnpublished(ctx context.Context, limit int) ([]*domain.Activity, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer issues access tokens for authenticated users.
type TokenIssuer interface {
	Generate(userID, email string) (string, error)
}
