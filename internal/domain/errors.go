package domain

import "errors"

// Kind classifies an error so callers can choose a response without
// matching individual sentinels.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindIntegrity  Kind = "integrity"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
)

// Kind sentinels. errors.Is(err, ErrConflict) holds for every conflict error.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrIntegrity  = errors.New("integrity violation")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
)

// Error pairs a message with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() []error {
	return []error{e.Err, e.Kind.sentinel()}
}

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindConflict:
		return ErrConflict
	case KindIntegrity:
		return ErrIntegrity
	case KindNotFound:
		return ErrNotFound
	case KindForbidden:
		return ErrForbidden
	}
	return nil
}

// KindOf reports the Kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Validation errors
var (
	ErrInvalidAmount        = newError(KindValidation, "amount must be positive")
	ErrAmountTooLarge       = newError(KindValidation, "amount exceeds maximum allowed")
	ErrNegativeShare        = newError(KindValidation, "share must not be negative")
	ErrEmptySplits          = newError(KindValidation, "at least one split is required")
	ErrSplitSumMismatch     = newError(KindValidation, "split shares must sum to the expense amount")
	ErrDuplicateParticipant = newError(KindValidation, "participant listed more than once")
	ErrInvalidSplitPolicy   = newError(KindValidation, "unknown split policy")
	ErrUnknownMembership    = newError(KindValidation, "membership does not belong to group")
	ErrCurrencyMismatch     = newError(KindValidation, "currency must match group currency")
	ErrInvalidCurrency      = newError(KindValidation, "invalid currency code")
	ErrInvalidGroupName     = newError(KindValidation, "invalid group name")
	ErrInvalidTitle         = newError(KindValidation, "invalid expense title")
	ErrMemoTooLong          = newError(KindValidation, "memo exceeds maximum length")
	ErrInvalidExpenseDate   = newError(KindValidation, "expense date is required")
	ErrInvalidRole          = newError(KindValidation, "invalid membership role")
	ErrInvalidEmail         = newError(KindValidation, "invalid email format")
	ErrPasswordTooWeak      = newError(KindValidation, "password does not meet requirements")
	ErrInvalidVersion       = newError(KindValidation, "expected version must be positive")
	ErrVoidReasonRequired   = newError(KindValidation, "void reason is required")
	ErrInvalidIdempotency   = newError(KindValidation, "invalid idempotency key")
	ErrEmptyUpdate          = newError(KindValidation, "no fields to update")
)

// Conflict errors
var (
	ErrVersionConflict      = newError(KindConflict, "version conflict")
	ErrNotDebtor            = newError(KindConflict, "only the paying member can mark a settlement as paid")
	ErrInvalidTransition    = newError(KindConflict, "invalid status transition")
	ErrBatchAlreadyVoided   = newError(KindConflict, "settlement batch is already voided")
	ErrAlreadyMember        = newError(KindConflict, "user is already a member of this group")
	ErrMembershipInUse      = newError(KindConflict, "membership is referenced by expenses or settlements")
	ErrLastOwner            = newError(KindConflict, "group must keep at least one owner")
	ErrEmailTaken           = newError(KindConflict, "email is already registered")
	ErrIdempotencyKeyExists = newError(KindConflict, "idempotency key already recorded")
)

// ErrSplitSumViolation is raised when the storage layer rejects a commit
// because an expense's splits no longer add up to its amount.
var ErrSplitSumViolation = newError(KindIntegrity, "expense splits do not sum to expense amount")

// Not found errors
var (
	ErrGroupNotFound       = newError(KindNotFound, "group not found")
	ErrMembershipNotFound  = newError(KindNotFound, "membership not found")
	ErrExpenseNotFound     = newError(KindNotFound, "expense not found")
	ErrBatchNotFound       = newError(KindNotFound, "settlement batch not found")
	ErrSettlementNotFound  = newError(KindNotFound, "settlement not found")
	ErrUserNotFound        = newError(KindNotFound, "user not found")
	ErrIdempotencyNotFound = newError(KindNotFound, "idempotency record not found")
)

// ErrInsufficientRole is returned when a member's role does not allow the action.
var ErrInsufficientRole = newError(KindForbidden, "insufficient role for this operation")

// Authentication errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
