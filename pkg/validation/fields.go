package validation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Messages shared by every field check.
const (
	MsgRequired      = "This field is required."
	MsgNull          = "This field may not be null."
	MsgBlank         = "This field may not be blank."
	MsgInvalidString = "Not a valid string."
	MsgNullCharacter = "Null characters are not allowed."
)

// MaxLengthMessage is reported when a text field exceeds max characters.
func MaxLengthMessage(max int) string {
	return fmt.Sprintf("Ensure this field has no more than %d characters.", max)
}

// Present looks field up in raw and records a required or null error when
// it has no usable value.
func Present(raw map[string]any, field string, errs Errors) (any, bool) {
	v, ok := raw[field]
	if !ok {
		errs.Add(field, MsgRequired)
		return nil, false
	}
	if v == nil {
		errs.Add(field, MsgNull)
		return nil, false
	}
	return v, true
}

// TextOptions tune a Text check.
type TextOptions struct {
	// MaxLength is the character limit; zero means unlimited.
	MaxLength int
	// KeepWhitespace disables trimming surrounding whitespace.
	KeepWhitespace bool
}

// Text reads a required, non-blank text field. Numbers are accepted and
// converted to their decimal text; booleans and composite values are not.
func Text(raw map[string]any, field string, opts TextOptions, errs Errors) (string, bool) {
	v, ok := Present(raw, field, errs)
	if !ok {
		return "", false
	}

	var s string
	switch val := v.(type) {
	case string:
		s = val
	case json.Number:
		s = val.String()
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	default:
		errs.Add(field, MsgInvalidString)
		return "", false
	}

	if !utf8.ValidString(s) {
		errs.Add(field, MsgInvalidString)
		return "", false
	}
	if strings.ContainsRune(s, 0) {
		errs.Add(field, MsgNullCharacter)
		return "", false
	}
	if !opts.KeepWhitespace {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		errs.Add(field, MsgBlank)
		return "", false
	}
	if opts.MaxLength > 0 && utf8.RuneCountInString(s) > opts.MaxLength {
		errs.Add(field, MaxLengthMessage(opts.MaxLength))
		return "", false
	}
	return s, true
}
