// Package apierr implements the three-tier error taxonomy of §7: every
// error an outer API boundary or a CLI command surfaces is a
// CanisterError carrying one of the named Kinds and the tier that kind
// belongs to.
//
// Unlike a bare error string, the Kind survives wrapping so callers can
// branch on it with errors.As, the way the teacher's RPCError keeps a
// caller-facing message distinct from an internal one.
package apierr

import (
	"errors"
	"fmt"
)

// Tier classifies how a CanisterError should be handled by a caller.
type Tier int

const (
	// TierValidation errors are always surfaced unchanged to the caller
	// and never retried.
	TierValidation Tier = iota
	// TierLogic errors indicate a bug or corrupt persisted state; the
	// in-progress write is abandoned.
	TierLogic
	// TierTransient errors are captured in the failing entity's state;
	// the caller may retry by re-invoking the operation.
	TierTransient
)

// Kind enumerates the §6/§7 error taxonomy.
type Kind string

const (
	KindUnauthorized     Kind = "Unauthorized"
	KindValidationError  Kind = "ValidationError"
	KindNotFound         Kind = "NotFound"
	KindConflict         Kind = "Conflict"
	KindLocked           Kind = "Locked"
	KindServiceUnavailable Kind = "ServiceUnavailable"
	KindLedgerError      Kind = "LedgerError"
	KindCycleDetected    Kind = "CycleDetected"
	KindLimitExceeded    Kind = "LimitExceeded"
	KindInvalidTransition Kind = "InvalidTransition"
	KindBatchError       Kind = "BatchError"
	KindInternalLogicError Kind = "InternalLogicError"
)

var tierByKind = map[Kind]Tier{
	KindUnauthorized:       TierValidation,
	KindValidationError:    TierValidation,
	KindNotFound:           TierValidation,
	KindConflict:           TierValidation,
	KindLocked:             TierValidation,
	KindServiceUnavailable: TierValidation,
	KindLimitExceeded:      TierValidation,
	KindInvalidTransition:  TierValidation,
	KindCycleDetected:      TierLogic,
	KindInternalLogicError: TierLogic,
	KindLedgerError:        TierTransient,
	KindBatchError:         TierTransient,
}

// CanisterError is the sole error type surfaced at the outer API/CLI
// boundary. It is safe to expose Kind and Message to a caller; Cause is
// for logs only.
type CanisterError struct {
	Kind    Kind
	Message string
	Cause   error

	// Code carries the ledger-rejection code for KindLedgerError.
	Code string
}

func (e *CanisterError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CanisterError) Unwrap() error { return e.Cause }

// Tier returns which of the §7 tiers this error's Kind belongs to.
func (e *CanisterError) Tier() Tier { return tierByKind[e.Kind] }

func newErr(kind Kind, format string, args ...any) *CanisterError {
	return &CanisterError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *CanisterError {
	return newErr(KindUnauthorized, format, args...)
}

func ValidationError(format string, args ...any) *CanisterError {
	return newErr(KindValidationError, format, args...)
}

func NotFound(entity string) *CanisterError {
	return newErr(KindNotFound, "%s not found", entity)
}

func Conflict(format string, args ...any) *CanisterError {
	return newErr(KindConflict, format, args...)
}

func Locked() *CanisterError {
	return newErr(KindLocked, "resource is locked")
}

func ServiceUnavailable(format string, args ...any) *CanisterError {
	return newErr(KindServiceUnavailable, format, args...)
}

func LedgerError(code, message string) *CanisterError {
	return &CanisterError{Kind: KindLedgerError, Message: message, Code: code}
}

func CycleDetected() *CanisterError {
	return newErr(KindCycleDetected, "dependency graph contains a cycle")
}

func LimitExceeded(format string, args ...any) *CanisterError {
	return newErr(KindLimitExceeded, format, args...)
}

func InvalidTransition(format string, args ...any) *CanisterError {
	return newErr(KindInvalidTransition, format, args...)
}

// Batch wraps a set of per-item failures collected from a join_all-style
// concurrent batch (§5, §7).
func Batch(errs []error) *CanisterError {
	return &CanisterError{Kind: KindBatchError, Message: fmt.Sprintf("%d of a batch failed", len(errs)), Cause: errors.Join(errs...)}
}

func InternalLogicError(format string, args ...any) *CanisterError {
	return newErr(KindInternalLogicError, format, args...)
}

// WithCause attaches cause as the Cause of a newly built CanisterError,
// preserving Kind/Message.
func (e *CanisterError) WithCause(cause error) *CanisterError {
	e.Cause = cause
	return e
}

// As is a small helper so call sites can do apierr.As(err) without
// importing errors directly.
func As(err error) (*CanisterError, bool) {
	var ce *CanisterError
	ok := errors.As(err, &ce)
	return ce, ok
}
