package errors

import stderrors "errors"

// Kind classifies a rejected request.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindPrecondition covers malformed or out-of-window input. Rejected before
	// any mutation; retrying requires corrected input.
	KindPrecondition
	// KindAuthorization covers missing signatures and wrong owner or delegate.
	KindAuthorization
	// KindStateConflict covers records whose current state forbids the request.
	KindStateConflict
	// KindResourceExhaustion covers insufficient balances and index bounds.
	KindResourceExhaustion
	// KindDataCorruption covers discriminator mismatches and malformed payloads.
	KindDataCorruption
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition_violation"
	case KindAuthorization:
		return "authorization_failure"
	case KindStateConflict:
		return "state_conflict"
	case KindResourceExhaustion:
		return "resource_exhaustion"
	case KindDataCorruption:
		return "data_corruption"
	default:
		return "unknown"
	}
}

// Error is a sentinel error carrying its Kind.
type Error struct {
	kind Kind
	msg  string
}

// New returns a sentinel error of the supplied kind.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind reports the error class.
func (e *Error) Kind() Kind { return e.kind }

// KindOf walks the wrap chain and returns the first classified kind.
func KindOf(err error) Kind {
	var classified *Error
	if stderrors.As(err, &classified) {
		return classified.kind
	}
	return KindUnknown
}

// Retryable reports whether the same request may succeed later without the
// caller changing it.
func Retryable(err error) bool {
	return KindOf(err) == KindResourceExhaustion
}
