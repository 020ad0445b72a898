// Package idwrap wraps ULIDs so every stored entity shares one identifier
// type that can be scanned from BLOB columns and rendered as text on the wire.
package idwrap

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

type IDWrap struct {
	ulid ulid.ULID
}

var ErrEmptyID = errors.New("idwrap: empty id")

func New(id ulid.ULID) IDWrap {
	return IDWrap{ulid: id}
}

func NewNow() IDWrap {
	return IDWrap{ulid: ulid.Make()}
}

// NewAt returns a fresh ID whose time component is t. Used when rows are
// seeded with explicit creation times.
func NewAt(t time.Time) IDWrap {
	return IDWrap{ulid: ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy())}
}

func NewText(s string) (IDWrap, error) {
	if s == "" {
		return IDWrap{}, ErrEmptyID
	}
	id, err := ulid.Parse(s)
	if err != nil {
		return IDWrap{}, fmt.Errorf("idwrap: parse %q: %w", s, err)
	}
	return IDWrap{ulid: id}, nil
}

func NewTextMust(s string) IDWrap {
	id, err := NewText(s)
	if err != nil {
		panic(err)
	}
	return id
}

func NewFromBytes(data []byte) (IDWrap, error) {
	var id ulid.ULID
	if err := id.UnmarshalBinary(data); err != nil {
		return IDWrap{}, err
	}
	return IDWrap{ulid: id}, nil
}

func (u IDWrap) String() string {
	return u.ulid.String()
}

func (u IDWrap) Bytes() []byte {
	return u.ulid[:]
}

func (u IDWrap) IsZero() bool {
	return u.ulid == ulid.ULID{}
}

func (u IDWrap) Compare(other IDWrap) int {
	return u.ulid.Compare(other.ulid)
}

func (u IDWrap) Time() time.Time {
	return ulid.Time(u.ulid.Time())
}

// Value stores the 16 raw bytes.
func (u IDWrap) Value() (driver.Value, error) {
	return u.ulid[:], nil
}

func (u *IDWrap) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return u.ulid.UnmarshalBinary(v)
	case string:
		return u.ulid.UnmarshalText([]byte(v))
	case nil:
		return ErrEmptyID
	default:
		return fmt.Errorf("idwrap: cannot scan %T", value)
	}
}

func (u IDWrap) MarshalText() ([]byte, error) {
	return u.ulid.MarshalText()
}

func (u *IDWrap) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyID
	}
	return u.ulid.UnmarshalText(data)
}

// NullIDWrap is an optional id column.
type NullIDWrap struct {
	ID    IDWrap
	Valid bool
}

func NewNull(id *IDWrap) NullIDWrap {
	if id == nil {
		return NullIDWrap{}
	}
	return NullIDWrap{ID: *id, Valid: true}
}

func (n NullIDWrap) Ptr() *IDWrap {
	if !n.Valid {
		return nil
	}
	id := n.ID
	return &id
}

func (n NullIDWrap) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.ID.Value()
}

func (n *NullIDWrap) Scan(value any) error {
	if value == nil {
		n.ID, n.Valid = IDWrap{}, false
		return nil
	}
	n.Valid = true
	return n.ID.Scan(value)
}
