package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/splitledger/internal/domain"
)

func TestTranslateError(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain error passes through", other, other},
		{"duplicate email", &pgconn.PgError{Code: pgErrUnique, ConstraintName: "users_email_key"}, domain.ErrEmailTaken},
		{"duplicate membership", &pgconn.PgError{Code: pgErrUnique, ConstraintName: "memberships_group_user_key"}, domain.ErrAlreadyMember},
		{"idempotency key taken", &pgconn.PgError{Code: pgErrUnique, ConstraintName: "idempotency_keys_pkey"}, domain.ErrIdempotencyKeyExists},
		{"wrapped", fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgErrUnique, ConstraintName: "idempotency_keys_pkey"}), domain.ErrIdempotencyKeyExists},
		{"foreign membership in split", &pgconn.PgError{Code: pgErrForeignKey, ConstraintName: "expense_splits_member_fkey"}, domain.ErrUnknownMembership},
		{"unknown user", &pgconn.PgError{Code: pgErrForeignKey, ConstraintName: "memberships_user_id_fkey"}, domain.ErrUserNotFound},
		{"deferred split sum", &pgconn.PgError{Code: pgErrIntegrity}, domain.ErrSplitSumViolation},
		{"check constraint", &pgconn.PgError{Code: pgErrCheck, ConstraintName: "settlements_distinct_parties"}, domain.ErrIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	var pgErr *pgconn.PgError
	unmapped := &pgconn.PgError{Code: pgErrUnique, ConstraintName: "something_else"}
	if got := translateError(unmapped); !errors.As(got, &pgErr) {
		t.Fatalf("unmapped constraint should keep the pg error, got %v", got)
	}
}
