package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/splitledger/internal/domain"
)

// PostgreSQL error codes.
const (
	pgErrIntegrity            = "23000"
	pgErrForeignKey           = "23503"
	pgErrUnique               = "23505"
	pgErrCheck                = "23514"
	pgErrSerializationFailure = "40001"
	pgErrDeadlock             = "40P01"
)

// Constraint names from migrations/000001_init.up.sql.
var uniqueViolations = map[string]error{
	"users_email_key":                   domain.ErrEmailTaken,
	"memberships_group_user_key":        domain.ErrAlreadyMember,
	"expense_splits_expense_member_key": domain.ErrDuplicateParticipant,
	"idempotency_keys_pkey":             domain.ErrIdempotencyKeyExists,
}

var foreignKeyViolations = map[string]error{
	"memberships_group_id_fkey":  domain.ErrGroupNotFound,
	"memberships_user_id_fkey":   domain.ErrUserNotFound,
	"expenses_payer_fkey":        domain.ErrUnknownMembership,
	"expense_splits_member_fkey": domain.ErrUnknownMembership,
	"settlements_from_fkey":      domain.ErrUnknownMembership,
	"settlements_to_fkey":        domain.ErrUnknownMembership,
}

// translateError maps constraint violations to domain errors and leaves
// everything else untouched.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrUnique:
		if mapped, ok := uniqueViolations[pgErr.ConstraintName]; ok {
			return mapped
		}
	case pgErrForeignKey:
		if mapped, ok := foreignKeyViolations[pgErr.ConstraintName]; ok {
			return mapped
		}
	case pgErrIntegrity:
		return fmt.Errorf("%w: %s", domain.ErrSplitSumViolation, pgErr.Message)
	case pgErrCheck:
		return fmt.Errorf("%w: %s", domain.ErrIntegrity, pgErr.ConstraintName)
	}
	return err
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure:
			return true
		}
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrForeignKey
}
