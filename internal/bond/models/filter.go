package models

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Filterable fields accepted on list queries.
const (
	FilterISIN      = "isin"
	FilterSize      = "size"
	FilterCurrency  = "currency"
	FilterMaturity  = "maturity"
	FilterLEI       = "lei"
	FilterLegalName = "legal_name"
)

// FilterFields lists the query keys that narrow a bond listing. Any other key
// is ignored.
var FilterFields = []string{FilterISIN, FilterSize, FilterCurrency, FilterMaturity, FilterLEI, FilterLegalName}

// Filter is a set of exact-match conditions combined with AND. A nil pointer
// leaves the field unconstrained.
type Filter struct {
	ISIN      *string
	Size      *int32
	Currency  *string
	Maturity  *time.Time
	LEI       *string
	LegalName *string
}

// ParseFilter builds a Filter from query parameters, ignoring unknown keys.
// ok is false when a recognised key carries a value that cannot be compared
// with its field, in which case no record can match.
func ParseFilter(params map[string]string) (filter Filter, ok bool) {
	for key, value := range params {
		switch key {
		case FilterISIN, FilterCurrency, FilterLEI, FilterLegalName:
			if !storableText(value) {
				return Filter{}, false
			}
		}
		switch key {
		case FilterISIN:
			filter.ISIN = ptr(value)
		case FilterCurrency:
			filter.Currency = ptr(value)
		case FilterLEI:
			filter.LEI = ptr(value)
		case FilterLegalName:
			filter.LegalName = ptr(value)
		case FilterSize:
			n, err := ParseInteger(value)
			if err != nil || n > math.MaxInt32 || n < math.MinInt32 {
				return Filter{}, false
			}
			size := int32(n)
			filter.Size = &size
		case FilterMaturity:
			d, err := ParseDate(value)
			if err != nil {
				return Filter{}, false
			}
			filter.Maturity = &d
		}
	}
	return filter, true
}

// storableText reports whether value could equal a stored text column:
// valid UTF-8 without NUL bytes.
func storableText(value string) bool {
	return utf8.ValidString(value) && !strings.ContainsRune(value, 0)
}

// Matches reports whether b satisfies every condition in f.
func (f Filter) Matches(b *Bond) bool {
	switch {
	case f.ISIN != nil && *f.ISIN != b.ISIN:
		return false
	case f.Size != nil && *f.Size != b.Size:
		return false
	case f.Currency != nil && *f.Currency != b.Currency:
		return false
	case f.Maturity != nil && !f.Maturity.Equal(b.Maturity):
		return false
	case f.LEI != nil && *f.LEI != b.LEI:
		return false
	case f.LegalName != nil && *f.LegalName != b.LegalName:
		return false
	}
	return true
}

func ptr[T any](v T) *T { return &v }
