// Package validation accumulates field-scoped input errors so a request can
// report every problem at once instead of failing on the first one.
package validation

import (
	"fmt"
	"sort"
	"strings"
)

// NonFieldErrors is the key used for errors that do not belong to a single
// input field.
const NonFieldErrors = "non_field_errors"

// Errors maps a field name to the messages collected for it. It implements
// error so a non-empty set can be returned through ordinary error paths.
type Errors map[string][]string

// Add appends a message to field.
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Merge copies every message from other into e.
func (e Errors) Merge(other Errors) {
	for field, msgs := range other {
		e[field] = append(e[field], msgs...)
	}
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// Empty reports whether no messages were collected.
func (e Errors) Empty() bool {
	return len(e) == 0
}

// Err returns e as an error, or nil when nothing was collected.
func (e Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e[field], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
