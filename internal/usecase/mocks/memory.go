package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// MemoryStore is an in-memory implementation of every repository and the
// transaction manager. Transactions run one at a time against a private
// copy of the state that replaces the shared state on commit. Commit
// rejects expenses whose splits do not sum to the amount, like the
// deferred constraint in Postgres.
type MemoryStore struct {
	txLock sync.Mutex
	mu     sync.RWMutex
	state  *memState

	Groups      *MemoryGroupRepository
	Memberships *MemoryMembershipRepository
	Expenses    *MemoryExpenseRepository
	Ledger      *MemoryLedgerRepository
	Settlements *MemorySettlementRepository
	Idempotency *MemoryIdempotencyRepository
	Activities  *MemoryActivityRepository
	Users       *MemoryUserRepository

	// BeforeCommit, when set, runs at commit time and can fail the commit.
	BeforeCommit func() error
}

type memState struct {
	seq         int64
	users       map[string]domain.User
	groups      map[string]domain.Group
	memberships map[string]domain.Membership
	expenses    map[string]storedExpense
	batches     map[string]storedBatch
	settlements map[string]domain.Settlement
	activities  []domain.Activity
	idempotency map[domain.IdempotencyKey]*domain.IdempotencyRecord
}

type storedExpense struct {
	seq     int64
	expense domain.Expense
}

type storedBatch struct {
	seq   int64
	batch domain.SettlementBatch
	order []string
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{state: newMemState()}
	s.Groups = &MemoryGroupRepository{s}
	s.Memberships = &MemoryMembershipRepository{s}
	s.Expenses = &MemoryExpenseRepository{s}
	s.Ledger = &MemoryLedgerRepository{s}
	s.Settlements = &MemorySettlementRepository{s}
	s.Idempotency = &MemoryIdempotencyRepository{s}
	s.Activities = &MemoryActivityRepository{s}
	s.Users = &MemoryUserRepository{s}
	return s
}

func newMemState() *memState {
	return &memState{
		users:       map[string]domain.User{},
		groups:      map[string]domain.Group{},
		memberships: map[string]domain.Membership{},
		expenses:    map[string]storedExpense{},
		batches:     map[string]storedBatch{},
		settlements: map[string]domain.Settlement{},
		idempotency: map[domain.IdempotencyKey]*domain.IdempotencyRecord{},
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	c.seq = st.seq
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.groups {
		c.groups[k] = v
	}
	for k, v := range st.memberships {
		c.memberships[k] = v
	}
	for k, v := range st.expenses {
		v.expense.Splits = append([]domain.ExpenseSplit(nil), v.expense.Splits...)
		c.expenses[k] = v
	}
	for k, v := range st.batches {
		v.order = append([]string(nil), v.order...)
		c.batches[k] = v
	}
	for k, v := range st.settlements {
		c.settlements[k] = v
	}
	c.activities = append([]domain.Activity(nil), st.activities...)
	for k, v := range st.idempotency {
		rec := *v
		c.idempotency[k] = &rec
	}
	return c
}

func (st *memState) next() int64 {
	st.seq++
	return st.seq
}

// Begin starts a transaction. It blocks while another transaction is open.
func (s *MemoryStore) Begin(ctx context.Context) (usecase.Transaction, error) {
	s.txLock.Lock()
	s.mu.RLock()
	working := s.state.clone()
	s.mu.RUnlock()
	return &memoryTx{store: s, working: working}, nil
}

type memoryTx struct {
	store   *MemoryStore
	working *memState
	done    atomic.Bool
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if !t.done.CompareAndSwap(false, true) {
		return errors.New("transaction already closed")
	}
	defer t.store.txLock.Unlock()

	if t.store.BeforeCommit != nil {
		if err := t.store.BeforeCommit(); err != nil {
			return err
		}
	}
	for _, e := range t.working.expenses {
		if !e.expense.SplitsBalanced() {
			return fmt.Errorf("%w: expense %s", domain.ErrSplitSumViolation, e.expense.ID)
		}
	}

	t.store.mu.Lock()
	t.store.state = t.working
	t.store.mu.Unlock()
	return nil
}

func (t *memoryTx) Rollback(ctx context.Context) error {
	if t.done.CompareAndSwap(false, true) {
		t.store.txLock.Unlock()
	}
	return nil
}

// read runs fn against the transaction's view, or the committed state.
func (s *MemoryStore) read(tx usecase.Transaction, fn func(st *memState) error) error {
	if mt, ok := tx.(*memoryTx); ok && mt != nil {
		return fn(mt.working)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

// write runs fn inside tx, or as its own committed transaction when tx is nil.
func (s *MemoryStore) write(tx usecase.Transaction, fn func(st *memState) error) error {
	if mt, ok := tx.(*memoryTx); ok && mt != nil {
		return fn(mt.working)
	}
	s.txLock.Lock()
	defer s.txLock.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// MemoryGroupRepository implements usecase.GroupRepository.
type MemoryGroupRepository struct{ s *MemoryStore }

func (r *MemoryGroupRepository) Create(ctx context.Context, tx usecase.Transaction, group *domain.Group) error {
	return r.s.write(tx, func(st *memState) error {
		st.groups[group.ID] = *group
		return nil
	})
}

func (r *MemoryGroupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	var out *domain.Group
	err := r.s.read(nil, func(st *memState) error {
		g, ok := st.groups[id]
		if !ok {
			return domain.ErrGroupNotFound
		}
		out = &g
		return nil
	})
	return out, err
}

func (r *MemoryGroupRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Group, error) {
	var out []*domain.Group
	err := r.s.read(nil, func(st *memState) error {
		for _, m := range st.memberships {
			if m.UserID != userID {
				continue
			}
			if g, ok := st.groups[m.GroupID]; ok {
				out = append(out, &g)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		out = page(out, limit, offset)
		return nil
	})
	return out, err
}

func (r *MemoryGroupRepository) UpdateName(ctx context.Context, tx usecase.Transaction, id, name string, expectedVersion int64, updatedAt time.Time) (int64, error) {
	var version int64
	err := r.s.write(tx, func(st *memState) error {
		g, ok := st.groups[id]
		if !ok {
			return domain.ErrGroupNotFound
		}
		if g.Version != expectedVersion {
			return domain.ErrVersionConflict
		}
		g.Name = name
		g.Version++
		g.UpdatedAt = updatedAt
		st.groups[id] = g
		version = g.Version
		return nil
	})
	return version, err
}

// MemoryMembershipRepository implements usecase.MembershipRepository.
type MemoryMembershipRepository struct{ s *MemoryStore }

func (r *MemoryMembershipRepository) Create(ctx context.Context, tx usecase.Transaction, m *domain.Membership) error {
	return r.s.write(tx, func(st *memState) error {
		if _, ok := st.groups[m.GroupID]; !ok {
			return domain.ErrGroupNotFound
		}
		for _, existing := range st.memberships {
			if existing.GroupID == m.GroupID && existing.UserID == m.UserID {
				return domain.ErrAlreadyMember
			}
		}
		st.memberships[m.ID] = *m
		return nil
	})
}

func (r *MemoryMembershipRepository) GetByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.Membership, error) {
	var out *domain.Membership
	err := r.s.read(tx, func(st *memState) error {
		m, ok := st.memberships[id]
		if !ok {
			return domain.ErrMembershipNotFound
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *MemoryMembershipRepository) GetByGroupAndUser(ctx context.Context, tx usecase.Transaction, groupID, userID string) (*domain.Membership, error) {
	var out *domain.Membership
	err := r.s.read(tx, func(st *memState) error {
		for _, m := range st.memberships {
			if m.GroupID == groupID && m.UserID == userID {
				out = &m
				return nil
			}
		}
		return domain.ErrMembershipNotFound
	})
	return out, err
}

// LockByGroup is ListByGroup: memory transactions are already serialized.
func (r *MemoryMembershipRepository) LockByGroup(ctx context.Context, tx usecase.Transaction, groupID string) ([]*domain.Membership, error) {
	return r.ListByGroup(ctx, tx, groupID)
}

func (r *MemoryMembershipRepository) ListByGroup(ctx context.Context, tx usecase.Transaction, groupID string) ([]*domain.Membership, error) {
	var out []*domain.Membership
	err := r.s.read(tx, func(st *memState) error {
		for _, m := range st.memberships {
			if m.GroupID == groupID {
				out = append(out, &m)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *MemoryMembershipRepository) UpdateRole(ctx context.Context, tx usecase.Transaction, id string, role domain.Role) error {
	return r.s.write(tx, func(st *memState) error {
		m, ok := st.memberships[id]
		if !ok {
			return domain.ErrMembershipNotFound
		}
		m.Role = role
		st.memberships[id] = m
		return nil
	})
}

func (r *MemoryMembershipRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return r.s.write(tx, func(st *memState) error {
		if _, ok := st.memberships[id]; !ok {
			return domain.ErrMembershipNotFound
		}
		if st.referenced(id) {
			return domain.ErrMembershipInUse
		}
		delete(st.memberships, id)
		for i := range st.activities {
			if st.activities[i].ActorMembershipID == id {
				st.activities[i].ActorMembershipID = ""
			}
		}
		return nil
	})
}

func (r *MemoryMembershipRepository) IsReferenced(ctx context.Context, tx usecase.Transaction, id string) (bool, error) {
	var referenced bool
	err := r.s.read(tx, func(st *memState) error {
		referenced = st.referenced(id)
		return nil
	})
	return referenced, err
}

func (st *memState) referenced(id string) bool {
	for _, e := range st.expenses {
		if e.expense.PaidBy == id {
			return true
		}
		for _, sp := range e.expense.Splits {
			if sp.MembershipID == id {
				return true
			}
		}
	}
	for _, s := range st.settlements {
		if s.FromMembership == id || s.ToMembership == id {
			return true
		}
	}
	return false
}

// MemoryExpenseRepository implements usecase.ExpenseRepository.
type MemoryExpenseRepository struct{ s *MemoryStore }

func copyExpense(e domain.Expense) *domain.Expense {
	e.Splits = append([]domain.ExpenseSplit(nil), e.Splits...)
	return &e
}

func (r *MemoryExpenseRepository) Create(ctx context.Context, tx usecase.Transaction, expense *domain.Expense) error {
	return r.s.write(tx, func(st *memState) error {
		if _, ok := st.memberships[expense.PaidBy]; !ok {
			return domain.ErrUnknownMembership
		}
		for _, sp := range expense.Splits {
			if _, ok := st.memberships[sp.MembershipID]; !ok {
				return domain.ErrUnknownMembership
			}
			if sp.Share.IsNegative() {
				return domain.ErrNegativeShare
			}
		}
		st.expenses[expense.ID] = storedExpense{seq: st.next(), expense: *copyExpense(*expense)}
		return nil
	})
}

func (r *MemoryExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	var out *domain.Expense
	err := r.s.read(nil, func(st *memState) error {
		e, ok := st.expenses[id]
		if !ok {
			return domain.ErrExpenseNotFound
		}
		out = copyExpense(e.expense)
		return nil
	})
	return out, err
}

func (r *MemoryExpenseRepository) byGroup(st *memState, groupID string) []storedExpense {
	var rows []storedExpense
	for _, e := range st.expenses {
		if e.expense.GroupID == groupID {
			rows = append(rows, e)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	return rows
}

func (r *MemoryExpenseRepository) ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*domain.Expense, error) {
	var out []*domain.Expense
	err := r.s.read(nil, func(st *memState) error {
		rows := r.byGroup(st, groupID)
		for i := len(rows) - 1; i >= 0; i-- {
			out = append(out, copyExpense(rows[i].expense))
		}
		out = page(out, limit, offset)
		return nil
	})
	return out, err
}

func (r *MemoryExpenseRepository) ListAllByGroup(ctx context.Context, tx usecase.Transaction, groupID string) ([]*domain.Expense, error) {
	var out []*domain.Expense
	err := r.s.read(tx, func(st *memState) error {
		for _, row := range r.byGroup(st, groupID) {
			out = append(out, copyExpense(row.expense))
		}
		return nil
	})
	return out, err
}

func (r *MemoryExpenseRepository) UpdateDetails(ctx context.Context, tx usecase.Transaction, expense *domain.Expense, expectedVersion int64) (int64, error) {
	var version int64
	err := r.s.write(tx, func(st *memState) error {
		row, ok := st.expenses[expense.ID]
		if !ok {
			return domain.ErrExpenseNotFound
		}
		if row.expense.Version != expectedVersion {
			return domain.ErrVersionConflict
		}
		row.expense.Title = expense.Title
		row.expense.Memo = expense.Memo
		row.expense.ExpenseDate = expense.ExpenseDate
		row.expense.UpdatedAt = expense.UpdatedAt
		row.expense.Version++
		st.expenses[expense.ID] = row
		version = row.expense.Version
		return nil
	})
	return version, err
}

// SetSplits overwrites an expense's splits inside tx, bypassing validation.
// Tests use it to simulate corrupted writes.
func (r *MemoryExpenseRepository) SetSplits(tx usecase.Transaction, expenseID string, splits []domain.ExpenseSplit) error {
	return r.s.write(tx, func(st *memState) error {
		row, ok := st.expenses[expenseID]
		if !ok {
			return domain.ErrExpenseNotFound
		}
		row.expense.Splits = append([]domain.ExpenseSplit(nil), splits...)
		st.expenses[expenseID] = row
		return nil
	})
}

// MemoryLedgerRepository implements usecase.LedgerRepository.
type MemoryLedgerRepository struct{ s *MemoryStore }

func (r *MemoryLedgerRepository) FindSplitMismatches(ctx context.Context, groupID string) ([]domain.SplitMismatch, error) {
	var out []domain.SplitMismatch
	err := r.s.read(nil, func(st *memState) error {
		var expenses []*domain.Expense
		for _, row := range r.s.Expenses.byGroup(st, groupID) {
			e := row.expense
			expenses = append(expenses, &e)
		}
		out = domain.FindSplitMismatches(expenses)
		return nil
	})
	return out, err
}

// MemorySettlementRepository implements usecase.SettlementRepository.
type MemorySettlementRepository struct{ s *MemoryStore }

func (st *memState) loadBatch(id string) (*domain.SettlementBatch, error) {
	row, ok := st.batches[id]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	b := row.batch
	b.Settlements = make([]domain.Settlement, 0, len(row.order))
	for _, sid := range row.order {
		b.Settlements = append(b.Settlements, st.settlements[sid])
	}
	return &b, nil
}

func (st *memState) batchesOf(groupID string) []storedBatch {
	var rows []storedBatch
	for _, b := range st.batches {
		if b.batch.GroupID == groupID {
			rows = append(rows, b)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	return rows
}

func (r *MemorySettlementRepository) CreateBatch(ctx context.Context, tx usecase.Transaction, batch *domain.SettlementBatch) error {
	return r.s.write(tx, func(st *memState) error {
		row := storedBatch{seq: st.next(), batch: *batch}
		row.batch.Settlements = nil
		for _, s := range batch.Settlements {
			if !s.Amount.IsPositive() || s.FromMembership == s.ToMembership {
				return fmt.Errorf("%w: invalid settlement %s", domain.ErrIntegrity, s.ID)
			}
			st.settlements[s.ID] = s
			row.order = append(row.order, s.ID)
		}
		st.batches[batch.ID] = row
		return nil
	})
}

func (r *MemorySettlementRepository) GetBatch(ctx context.Context, tx usecase.Transaction, id string) (*domain.SettlementBatch, error) {
	var out *domain.SettlementBatch
	err := r.s.read(tx, func(st *memState) error {
		var err error
		out, err = st.loadBatch(id)
		return err
	})
	return out, err
}

func (r *MemorySettlementRepository) GetLatestBatch(ctx context.Context, groupID string) (*domain.SettlementBatch, error) {
	var out *domain.SettlementBatch
	err := r.s.read(nil, func(st *memState) error {
		rows := st.batchesOf(groupID)
		if len(rows) == 0 {
			return domain.ErrBatchNotFound
		}
		var err error
		out, err = st.loadBatch(rows[0].batch.ID)
		return err
	})
	return out, err
}

func (r *MemorySettlementRepository) ListBatches(ctx context.Context, groupID string, limit, offset int) ([]*domain.SettlementBatch, error) {
	var out []*domain.SettlementBatch
	err := r.s.read(nil, func(st *memState) error {
		for _, row := range page(st.batchesOf(groupID), limit, offset) {
			b, err := st.loadBatch(row.batch.ID)
			if err != nil {
				return err
			}
			out = append(out, b)
		}
		return nil
	})
	return out, err
}

func (r *MemorySettlementRepository) GetSettlement(ctx context.Context, tx usecase.Transaction, id string) (*domain.Settlement, error) {
	var out *domain.Settlement
	err := r.s.read(tx, func(st *memState) error {
		s, ok := st.settlements[id]
		if !ok {
			return domain.ErrSettlementNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *MemorySettlementRepository) UpdateSettlementStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.SettlementStatus, expectedVersion int64, updatedAt time.Time) (int64, error) {
	var version int64
	err := r.s.write(tx, func(st *memState) error {
		s, ok := st.settlements[id]
		if !ok {
			return domain.ErrSettlementNotFound
		}
		if s.Version != expectedVersion {
			return domain.ErrVersionConflict
		}
		s.Status = status
		s.Version++
		s.UpdatedAt = updatedAt
		st.settlements[id] = s
		version = s.Version
		return nil
	})
	return version, err
}

func (r *MemorySettlementRepository) VoidBatch(ctx context.Context, tx usecase.Transaction, id, reason string, expectedVersion int64, updatedAt time.Time) (int64, error) {
	var version int64
	err := r.s.write(tx, func(st *memState) error {
		row, ok := st.batches[id]
		if !ok {
			return domain.ErrBatchNotFound
		}
		if row.batch.Version != expectedVersion {
			return domain.ErrVersionConflict
		}
		row.batch.Status = domain.BatchStatusVoided
		row.batch.VoidReason = reason
		row.batch.Version++
		row.batch.UpdatedAt = updatedAt
		st.batches[id] = row
		version = row.batch.Version
		return nil
	})
	return version, err
}

func (r *MemorySettlementRepository) VoidSuggestedSettlements(ctx context.Context, tx usecase.Transaction, batchID string, updatedAt time.Time) (int64, error) {
	var n int64
	err := r.s.write(tx, func(st *memState) error {
		row, ok := st.batches[batchID]
		if !ok {
			return domain.ErrBatchNotFound
		}
		for _, sid := range row.order {
			s := st.settlements[sid]
			if s.Status != domain.SettlementStatusSuggested {
				continue
			}
			s.Status = domain.SettlementStatusVoided
			s.Version++
			s.UpdatedAt = updatedAt
			st.settlements[sid] = s
			n++
		}
		return nil
	})
	return n, err
}

// MemoryIdempotencyRepository implements usecase.IdempotencyRepository.
type MemoryIdempotencyRepository struct{ s *MemoryStore }

func (r *MemoryIdempotencyRepository) Reserve(ctx context.Context, tx usecase.Transaction, key domain.IdempotencyKey, createdAt time.Time) error {
	return r.s.write(tx, func(st *memState) error {
		if _, ok := st.idempotency[key]; ok {
			return domain.ErrIdempotencyKeyExists
		}
		st.idempotency[key] = &domain.IdempotencyRecord{Key: key, CreatedAt: createdAt}
		return nil
	})
}

func (r *MemoryIdempotencyRepository) Complete(ctx context.Context, tx usecase.Transaction, record *domain.IdempotencyRecord) error {
	return r.s.write(tx, func(st *memState) error {
		if _, ok := st.idempotency[record.Key]; !ok {
			return domain.ErrIdempotencyNotFound
		}
		rec := *record
		rec.ResponseBody = append([]byte(nil), record.ResponseBody...)
		st.idempotency[record.Key] = &rec
		return nil
	})
}

func (r *MemoryIdempotencyRepository) Get(ctx context.Context, key domain.IdempotencyKey) (*domain.IdempotencyRecord, error) {
	var out *domain.IdempotencyRecord
	err := r.s.read(nil, func(st *memState) error {
		rec, ok := st.idempotency[key]
		if !ok || rec.StatusCode == 0 {
			return domain.ErrIdempotencyNotFound
		}
		c := *rec
		out = &c
		return nil
	})
	return out, err
}

func (r *MemoryIdempotencyRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.s.write(nil, func(st *memState) error {
		for k, rec := range st.idempotency {
			if rec.CreatedAt.Before(before) {
				delete(st.idempotency, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

// Count reports how many records are stored.
func (r *MemoryIdempotencyRepository) Count() int {
	var n int
	_ = r.s.read(nil, func(st *memState) error {
		n = len(st.idempotency)
		return nil
	})
	return n
}

// MemoryActivityRepository implements usecase.ActivityRepository.
type MemoryActivityRepository struct{ s *MemoryStore }

func (r *MemoryActivityRepository) Create(ctx context.Context, tx usecase.Transaction, a *domain.Activity) error {
	return r.s.write(tx, func(st *memState) error {
		st.activities = append(st.activities, *a)
		return nil
	})
}

func (r *MemoryActivityRepository) ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*domain.Activity, error) {
	var out []*domain.Activity
	err := r.s.read(nil, func(st *memState) error {
		for i := len(st.activities) - 1; i >= 0; i-- {
			if a := st.activities[i]; a.GroupID == groupID {
				out = append(out, &a)
			}
		}
		out = page(out, limit, offset)
		return nil
	})
	return out, err
}

func (r *MemoryActivityRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.Activity, error) {
	var out []*domain.Activity
	err := r.s.read(nil, func(st *memState) error {
		for _, a := range st.activities {
			if a.PublishedAt == nil {
				out = append(out, &a)
			}
		}
		out = page(out, limit, 0)
		return nil
	})
	return out, err
}

func (r *MemoryActivityRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return r.s.write(nil, func(st *memState) error {
		for i := range st.activities {
			if st.activities[i].ID == id {
				at := publishedAt
				st.activities[i].PublishedAt = &at
				return nil
			}
		}
		return fmt.Errorf("activity %s not found", id)
	})
}

// MemoryUserRepository implements usecase.UserRepository.
type MemoryUserRepository struct{ s *MemoryStore }

func (r *MemoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.s.write(nil, func(st *memState) error {
		for _, u := range st.users {
			if u.Email == user.Email {
				return domain.ErrEmailTaken
			}
		}
		st.users[user.ID] = *user
		return nil
	})
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.s.read(nil, func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.s.read(nil, func(st *memState) error {
		for _, u := range st.users {
			if u.Email == email {
				out = &u
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}

// SequentialIDs generates predictable, ordered IDs.
type SequentialIDs struct {
	Prefix string
	n      atomic.Int64
}

func (g *SequentialIDs) Generate() string {
	return fmt.Sprintf("%s%06d", g.Prefix, g.n.Add(1))
}
