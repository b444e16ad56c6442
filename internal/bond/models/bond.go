package models

import (
	"time"

	id "bonds/pkg/domain"
)

// Field length limits, counted in characters.
const (
	MaxISINLength      = 12
	MaxCurrencyLength  = 3
	MaxLEILength       = 20
	MaxLegalNameLength = 10
)

// DateLayout is the only accepted maturity format.
const DateLayout = "2006-01-02"

// Bond is an owner-scoped instrument record enriched with the issuer's legal
// name.
//
// Invariants:
//   - Owner is set once at creation from the authenticated caller
//   - LegalName is non-empty for every stored record
//   - ISIN, Currency and LEI respect their maximum lengths
type Bond struct {
	ID        id.BondID
	Owner     id.AccountID
	ISIN      string
	Size      int32
	Currency  string
	Maturity  time.Time
	LEI       string
	LegalName string
	CreatedAt time.Time
}

// BondFields holds the validated client-supplied fields of a bond.
type BondFields struct {
	ISIN     string
	Size     int32
	Currency string
	Maturity time.Time
	LEI      string
}

// NewBond assembles a record from validated fields and a resolved legal name.
// The legal name is cut to MaxLegalNameLength characters.
func NewBond(bondID id.BondID, owner id.AccountID, fields BondFields, legalName string, now time.Time) *Bond {
	return &Bond{
		ID:        bondID,
		Owner:     owner,
		ISIN:      fields.ISIN,
		Size:      fields.Size,
		Currency:  fields.Currency,
		Maturity:  fields.Maturity,
		LEI:       fields.LEI,
		LegalName: TruncateLegalName(legalName),
		CreatedAt: now,
	}
}

// TruncateLegalName cuts name to MaxLegalNameLength characters.
func TruncateLegalName(name string) string {
	runes := []rune(name)
	if len(runes) <= MaxLegalNameLength {
		return name
	}
	return string(runes[:MaxLegalNameLength])
}

// BondResponse is the API representation of a bond.
type BondResponse struct {
	ISIN      string `json:"isin"`
	Size      int32  `json:"size"`
	Currency  string `json:"currency"`
	Maturity  string `json:"maturity"`
	LEI       string `json:"lei"`
	LegalName string `json:"legal_name"`
}

// ToResponse converts the record to its API representation.
func (b *Bond) ToResponse() BondResponse {
	return BondResponse{
		ISIN:      b.ISIN,
		Size:      b.Size,
		Currency:  b.Currency,
		Maturity:  b.Maturity.Format(DateLayout),
		LEI:       b.LEI,
		LegalName: b.LegalName,
	}
}
