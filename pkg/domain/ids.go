package domain

import (
	"github.com/google/uuid"

	dErrors "bonds/pkg/domain-errors"
)

// Typed identifiers keep account and bond ids from being mixed up at compile
// time. The zero value is the nil UUID and means "not set".
type (
	AccountID uuid.UUID
	BondID    uuid.UUID
)

// NewAccountID returns a random account id.
func NewAccountID() AccountID { return AccountID(uuid.New()) }

// NewBondID returns a random bond id.
func NewBondID() BondID { return BondID(uuid.New()) }

func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id AccountID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id BondID) String() string { return uuid.UUID(id).String() }
func (id BondID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// ParseAccountID parses and validates an account id.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account id")
	return AccountID(u), err
}

// ParseBondID parses and validates a bond id.
func ParseBondID(s string) (BondID, error) {
	u, err := parseUUID(s, "bond id")
	return BondID(u), err
}

func parseUUID(s, name string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, name+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+name)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, name+" cannot be nil")
	}
	return u, nil
}
