package movable

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can pick a response without string
// matching.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindPersistence Kind = "persistence"
)

// Kind sentinels. errors.Is(err, ErrConflict) holds for any *Error of that
// kind.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("concurrent modification")
	ErrPersistence = errors.New("persistence failure")
)

// Detailed causes carried inside an *Error.
var (
	ErrInvalidRank     = errors.New("rank out of range")
	ErrEmptyItemID     = errors.New("item ID cannot be empty")
	ErrInvalidScope    = errors.New("invalid scope")
	ErrItemNotFound    = errors.New("item not found")
	ErrVersionMismatch = errors.New("scope version changed")
	ErrRankMismatch    = errors.New("stored rank changed")
)

type Error struct {
	Kind    Kind
	Op      string
	Scope   string
	ItemID  string
	Applied int // writes applied before the failure; rolled back with the transaction
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("movable: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	if e.Scope != "" {
		fmt.Fprintf(&b, "[%s] ", e.Scope)
	}
	if e.ItemID != "" {
		fmt.Fprintf(&b, "item %s ", e.ItemID)
	}
	b.WriteString(string(e.Kind))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrConflict:
		return e.Kind == KindConflict
	case ErrPersistence:
		return e.Kind == KindPersistence
	}
	return false
}

func NewValidationError(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func NewNotFoundError(op, itemID string, err error) *Error {
	if err == nil {
		err = ErrItemNotFound
	}
	return &Error{Kind: KindNotFound, Op: op, ItemID: itemID, Err: err}
}

func NewConflictError(op, scope string, err error) *Error {
	return &Error{Kind: KindConflict, Op: op, Scope: scope, Err: err}
}

func NewPersistenceError(op, scope, itemID string, applied int, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Scope: scope, ItemID: itemID, Applied: applied, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
