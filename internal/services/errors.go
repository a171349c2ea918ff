package services

import (
	"errors"
	"fmt"
	"strings"

	"betting-pool/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Kind classifies a service error for callers that need to react to it,
// such as the HTTP layer choosing a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindStateConflict
	KindValidation
	KindInsufficientFunds
	KindUnauthorized
	KindForbidden
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindValidation:
		return "validation"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	}
	return "internal"
}

// Error is a classified service error. Err, when set, is the sentinel the
// error matches under errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrUserNotFound          = newError(KindNotFound, "user not found")
	ErrBetNotFound           = newError(KindNotFound, "bet not found")
	ErrParticipationNotFound = newError(KindNotFound, "participation not found")

	ErrBetNotActive            = newError(KindStateConflict, "bet is not active")
	ErrBetAlreadyCompleted     = newError(KindStateConflict, "bet is already completed")
	ErrDuplicateParticipation  = newError(KindStateConflict, "user already participates in this bet")
	ErrBetHasParticipations    = newError(KindStateConflict, "bet already has participations")
	ErrUserDeactivated         = newError(KindStateConflict, "user account is deactivated")
	ErrInvalidStatusTransition = newError(KindStateConflict, "invalid bet status transition")

	ErrInvalidOption        = newError(KindValidation, "option does not belong to this bet")
	ErrInvalidWinningOption = newError(KindValidation, "winning option does not belong to this bet")
	ErrInvalidAmount        = newError(KindValidation, "invalid amount")
	ErrInvalidCommission    = newError(KindValidation, "commission rate must be between 0 and 100")
	ErrInvalidBet           = newError(KindValidation, "invalid bet")
	ErrInvalidInput         = newError(KindValidation, "invalid input")

	ErrInsufficientBalance = newError(KindInsufficientFunds, "insufficient balance")

	ErrUnauthorized = newError(KindUnauthorized, "authentication required")
	ErrForbidden    = newError(KindForbidden, "admin access required")

	ErrConcurrentUpdate = newError(KindConflict, "concurrent update, please retry")
)

// StateError reports an operation rejected by the bet lifecycle.
type StateError struct {
	Status models.BetStatus
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: bet is %s", e.Action, e.Status)
}

func (e *StateError) Unwrap() error {
	if e.Status == models.BetStatusCompleted {
		return ErrBetAlreadyCompleted
	}
	return ErrBetNotActive
}

// validationError wraps a detail message under a validation sentinel.
func validationError(sentinel *Error, format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// KindOf returns the classification of err, defaulting to KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	var st *StateError
	if errors.As(err, &st) {
		return KindStateConflict
	}
	return KindInternal
}

// translateDBError maps driver failures onto the service taxonomy. Errors it
// does not recognise are wrapped with context and stay internal.
func translateDBError(err error, action string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	var st *StateError
	if errors.As(err, &st) {
		return err
	}
	if errors.Is(err, models.ErrLedgerImmutable) {
		return err
	}
	if isSerializationFailure(err) {
		return &Error{Kind: KindConflict, Message: ErrConcurrentUpdate.Message, Err: ErrConcurrentUpdate}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isSerializationFailure matches postgres serialization and deadlock aborts
// and sqlite's busy errors.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
