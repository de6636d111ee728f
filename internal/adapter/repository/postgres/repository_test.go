package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/splitledger/internal/domain"
)

var fixedTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestGroupRepositoryUpdateNameConflict(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectBegin()
	pool.ExpectQuery("UPDATE groups SET name").
		WithArgs("g-1", "Lisbon", int64(3), fixedTime).
		WillReturnError(pgx.ErrNoRows)

	tx := begin(t, pool)
	_, err := NewGroupRepository(pool).UpdateName(context.Background(), tx, "g-1", "Lisbon", 3, fixedTime)
	if !errors.Is(err, domain.ErrVersionConflict) || domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("expected version conflict, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestGroupRepositoryUpdateNameReturnsVersion(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("UPDATE groups SET name").
		WithArgs("g-1", "Lisbon", int64(1), fixedTime).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(2)))

	version, err := NewGroupRepository(pool).UpdateName(context.Background(), nil, "g-1", "Lisbon", 1, fixedTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 2 {
		t.Fatalf("expected version 2, got %d", version)
	}
	assertExpectations(t, pool)
}

func TestGroupRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM groups WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewGroupRepository(pool).GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
}

func TestMembershipRepositoryListDoesNotLock(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectBegin()
	pool.ExpectQuery("FROM memberships WHERE group_id = \\$1 ORDER BY id$").
		WithArgs("g-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "group_id", "user_id", "role", "created_at"}).
			AddRow("m-1", "g-1", "u-1", "owner", fixedTime))

	tx := begin(t, pool)
	members, err := NewMembershipRepository(pool).ListByGroup(context.Background(), tx, "g-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("unexpected members %+v", members)
	}
	assertExpectations(t, pool)
}

func TestMembershipRepositoryLockRequiresTransaction(t *testing.T) {
	pool := newMockPool(t)
	if _, err := NewMembershipRepository(pool).LockByGroup(context.Background(), nil, "g-1"); err == nil {
		t.Fatal("expected an error without a transaction")
	}
	assertExpectations(t, pool)
}

func TestMembershipRepositoryLockByGroup(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectBegin()
	pool.ExpectQuery("FROM memberships WHERE group_id = \\$1 ORDER BY id FOR UPDATE").
		WithArgs("g-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "group_id", "user_id", "role", "created_at"}).
			AddRow("m-1", "g-1", "u-1", "owner", fixedTime).
			AddRow("m-2", "g-1", "u-2", "viewer", fixedTime))

	tx := begin(t, pool)
	members, err := NewMembershipRepository(pool).LockByGroup(context.Background(), tx, "g-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(members) != 2 || members[0].Role != domain.RoleOwner || members[1].Role != domain.RoleViewer {
		t.Fatalf("unexpected members %+v", members)
	}
	assertExpectations(t, pool)
}

func TestMembershipRepositoryCreateDuplicate(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec("INSERT INTO memberships").
		WithArgs("m-1", "g-1", "u-1", "member", fixedTime).
		WillReturnError(&pgconn.PgError{Code: pgErrUnique, ConstraintName: "memberships_group_user_key"})

	err := NewMembershipRepository(pool).Create(context.Background(), nil, &domain.Membership{
		ID: "m-1", GroupID: "g-1", UserID: "u-1", Role: domain.RoleMember, CreatedAt: fixedTime,
	})
	if !errors.Is(err, domain.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
}

func TestMembershipRepositoryDelete(t *testing.T) {
	tests := []struct {
		name   string
		expect func(pool pgxmock.PgxPoolIface)
		want   error
	}{
		{
			name: "referenced",
			expect: func(pool pgxmock.PgxPoolIface) {
				pool.ExpectExec("DELETE FROM memberships").WithArgs("m-1").
					WillReturnError(&pgconn.PgError{Code: pgErrForeignKey, ConstraintName: "expense_splits_member_fkey"})
			},
			want: domain.ErrMembershipInUse,
		},
		{
			name: "missing",
			expect: func(pool pgxmock.PgxPoolIface) {
				pool.ExpectExec("DELETE FROM memberships").WithArgs("m-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 0))
			},
			want: domain.ErrMembershipNotFound,
		},
		{
			name: "deleted",
			expect: func(pool pgxmock.PgxPoolIface) {
				pool.ExpectExec("DELETE FROM memberships").WithArgs("m-1").
					WillReturnResult(pgxmock.NewResult("DELETE", 1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := newMockPool(t)
			tt.expect(pool)

			err := NewMembershipRepository(pool).Delete(context.Background(), nil, "m-1")
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			assertExpectations(t, pool)
		})
	}
}

func TestExpenseRepositoryGetByIDLoadsSplits(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM expenses WHERE id").
		WithArgs("e-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "group_id", "title", "amount_cents", "currency", "paid_by", "expense_date", "memo", "version", "created_at", "updated_at",
		}).AddRow("e-1", "g-1", "Dinner", int64(1000), "USD", "m-1", fixedTime, "", int64(1), fixedTime, fixedTime))
	pool.ExpectQuery("FROM expense_splits").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "expense_id", "group_id", "membership_id", "share_cents", "created_at"}).
			AddRow("s-1", "e-1", "g-1", "m-1", int64(500), fixedTime).
			AddRow("s-2", "e-1", "g-1", "m-2", int64(500), fixedTime))

	e, err := NewExpenseRepository(pool).GetByID(context.Background(), "e-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Amount != domain.Cents(1000) || len(e.Splits) != 2 || e.SplitTotal() != e.Amount {
		t.Fatalf("unexpected expense %+v", e)
	}
	if e.Splits[0].MembershipID != "m-1" || e.Splits[1].MembershipID != "m-2" {
		t.Fatalf("splits out of order: %+v", e.Splits)
	}
	assertExpectations(t, pool)
}

func TestExpenseRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM expenses WHERE id").WithArgs("e-9").WillReturnError(pgx.ErrNoRows)

	if _, err := NewExpenseRepository(pool).GetByID(context.Background(), "e-9"); !errors.Is(err, domain.ErrExpenseNotFound) {
		t.Fatalf("expected ErrExpenseNotFound, got %v", err)
	}
}

func TestLedgerRepositoryFindSplitMismatches(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM expenses e").
		WithArgs("g-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "amount_cents", "split_total"}).
			AddRow("e-2", int64(501), int64(250)))

	mismatches, err := NewLedgerRepository(pool).FindSplitMismatches(context.Background(), "g-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 1 {
		t.Fatalf("expected one mismatch, got %d", len(mismatches))
	}
	got := mismatches[0]
	if got.ExpenseID != "e-2" || got.Amount != domain.Cents(501) || got.SplitTotal != domain.Cents(250) {
		t.Fatalf("unexpected mismatch %+v", got)
	}
}

func TestSettlementRepositoryStatusConflict(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectBegin()
	pool.ExpectQuery("UPDATE settlements SET status").
		WithArgs("s-1", "paid", int64(1), fixedTime).
		WillReturnError(pgx.ErrNoRows)

	tx := begin(t, pool)
	_, err := NewSettlementRepository(pool).UpdateSettlementStatus(context.Background(), tx, "s-1", domain.SettlementStatusPaid, 1, fixedTime)
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestSettlementRepositoryVoidSuggested(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec("UPDATE settlements SET status = 'voided'").
		WithArgs("b-1", fixedTime).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	n, err := NewSettlementRepository(pool).VoidSuggestedSettlements(context.Background(), nil, "b-1", fixedTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 voided, got %d", n)
	}
}

func TestIdempotencyRepositoryReserveTaken(t *testing.T) {
	pool := newMockPool(t)
	key := domain.IdempotencyKey{Endpoint: "POST /groups/g-1/expenses", UserID: "u-1", RequestHash: "abc"}
	pool.ExpectExec("INSERT INTO idempotency_keys").
		WithArgs(key.Endpoint, key.UserID, key.RequestHash, fixedTime).
		WillReturnError(&pgconn.PgError{Code: pgErrUnique, ConstraintName: "idempotency_keys_pkey"})

	err := NewIdempotencyRepository(pool).Reserve(context.Background(), nil, key, fixedTime)
	if !errors.Is(err, domain.ErrIdempotencyKeyExists) {
		t.Fatalf("expected ErrIdempotencyKeyExists, got %v", err)
	}
}

func TestIdempotencyRepositoryGet(t *testing.T) {
	pool := newMockPool(t)
	key := domain.IdempotencyKey{Endpoint: "POST /groups", UserID: "u-1", RequestHash: "abc"}
	pool.ExpectQuery("FROM idempotency_keys").
		WithArgs(key.Endpoint, key.UserID, key.RequestHash).
		WillReturnRows(pgxmock.NewRows([]string{"status_code", "response_body", "created_at"}).
			AddRow(201, []byte(`{"id":"g-1"}`), fixedTime))
	pool.ExpectQuery("FROM idempotency_keys").
		WithArgs(key.Endpoint, key.UserID, "other").
		WillReturnError(pgx.ErrNoRows)

	repo := NewIdempotencyRepository(pool)
	record, err := repo.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.StatusCode != 201 || string(record.ResponseBody) != `{"id":"g-1"}` || record.Key != key {
		t.Fatalf("unexpected record %+v", record)
	}

	missing := key
	missing.RequestHash = "other"
	if _, err := repo.Get(context.Background(), missing); !errors.Is(err, domain.ErrIdempotencyNotFound) {
		t.Fatalf("expected ErrIdempotencyNotFound, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestIdempotencyRepositoryDeleteOlderThan(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec("DELETE FROM idempotency_keys").
		WithArgs(fixedTime).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	n, err := NewIdempotencyRepository(pool).DeleteOlderThan(context.Background(), fixedTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 rows, got %d", n)
	}
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: pgErrUnique, ConstraintName: "users_email_key"})

	err := NewUserRepository(pool).Create(context.Background(), &domain.User{
		ID: "u-1", Email: "a@example.com", Name: "A", PasswordHash: "x", CreatedAt: fixedTime, UpdatedAt: fixedTime,
	})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserRepositoryGetByEmailNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	if _, err := NewUserRepository(pool).GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
