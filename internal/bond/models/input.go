package models

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bonds/pkg/validation"
)

// Validation messages returned to clients.
const (
	MsgRequired        = validation.MsgRequired
	MsgNull            = validation.MsgNull
	MsgBlank           = validation.MsgBlank
	MsgInvalidString   = validation.MsgInvalidString
	MsgNullCharacter   = validation.MsgNullCharacter
	MsgInvalidInteger  = "A valid integer is required."
	MsgIntegerTooLarge = "String value too large."
	MsgInvalidDate     = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
)

const maxIntegerStringLength = 1000

// trailingZeroDecimal matches a ".0" suffix that still denotes an integer.
var trailingZeroDecimal = regexp.MustCompile(`\.0*\s*$`)

// RawInput is a decoded request body. Values are strings for form bodies and
// JSON-typed values (json.Number for numbers) for JSON bodies.
type RawInput map[string]any

// ParseBondInput validates the five client-supplied fields and collects every
// failure. Keys other than the five fields, including owner and legal_name,
// are ignored.
func ParseBondInput(raw RawInput) (BondFields, validation.Errors) {
	var fields BondFields
	errs := validation.Errors{}

	if v, ok := parseChar(raw, "isin", MaxISINLength, errs); ok {
		fields.ISIN = v
	}
	if v, ok := parseInt32(raw, "size", errs); ok {
		fields.Size = v
	}
	if v, ok := parseChar(raw, "currency", MaxCurrencyLength, errs); ok {
		fields.Currency = v
	}
	if v, ok := parseDate(raw, "maturity", errs); ok {
		fields.Maturity = v
	}
	if v, ok := parseChar(raw, "lei", MaxLEILength, errs); ok {
		fields.LEI = v
	}

	if !errs.Empty() {
		return BondFields{}, errs
	}
	return fields, nil
}

func parseChar(raw RawInput, field string, maxLen int, errs validation.Errors) (string, bool) {
	return validation.Text(raw, field, validation.TextOptions{MaxLength: maxLen}, errs)
}

func parseInt32(raw RawInput, field string, errs validation.Errors) (int32, bool) {
	v, ok := validation.Present(raw, field, errs)
	if !ok {
		return 0, false
	}

	var n int64
	switch val := v.(type) {
	case string:
		if len(val) > maxIntegerStringLength {
			errs.Add(field, MsgIntegerTooLarge)
			return 0, false
		}
		parsed, err := ParseInteger(val)
		if err != nil {
			errs.Add(field, MsgInvalidInteger)
			return 0, false
		}
		n = parsed
	case json.Number:
		parsed, err := ParseInteger(val.String())
		if err != nil {
			f, ferr := val.Float64()
			if ferr != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
				errs.Add(field, MsgInvalidInteger)
				return 0, false
			}
			parsed = int64(f)
		}
		n = parsed
	case float64:
		if val != math.Trunc(val) || val > math.MaxInt64 || val < math.MinInt64 {
			errs.Add(field, MsgInvalidInteger)
			return 0, false
		}
		n = int64(val)
	case int:
		n = int64(val)
	case int64:
		n = val
	case int32:
		n = int64(val)
	default:
		errs.Add(field, MsgInvalidInteger)
		return 0, false
	}

	if n > math.MaxInt32 {
		errs.Add(field, fmt.Sprintf("Ensure this value is less than or equal to %d.", math.MaxInt32))
		return 0, false
	}
	if n < math.MinInt32 {
		errs.Add(field, fmt.Sprintf("Ensure this value is greater than or equal to %d.", math.MinInt32))
		return 0, false
	}
	return int32(n), true
}

// ParseInteger parses a decimal integer, tolerating surrounding whitespace
// and a zero fractional part such as "100.00".
func ParseInteger(s string) (int64, error) {
	s = strings.TrimSpace(trailingZeroDecimal.ReplaceAllString(s, ""))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse integer %q: %w", s, err)
	}
	return n, nil
}

func parseDate(raw RawInput, field string, errs validation.Errors) (time.Time, bool) {
	v, ok := validation.Present(raw, field, errs)
	if !ok {
		return time.Time{}, false
	}
	s, isString := v.(string)
	if !isString {
		errs.Add(field, MsgInvalidDate)
		return time.Time{}, false
	}
	d, err := ParseDate(s)
	if err != nil {
		errs.Add(field, MsgInvalidDate)
		return time.Time{}, false
	}
	return d, true
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}
