package lei

import (
	"errors"
	"fmt"
)

// Kind is the normalized failure taxonomy for directory lookups. Every
// failure the resolver returns carries exactly one of these.
type Kind string

const (
	// KindTimeout indicates the directory did not answer within the read timeout.
	KindTimeout Kind = "upstream_timeout"

	// KindUpstream indicates a non-2xx status or an unexpected transport failure.
	KindUpstream Kind = "upstream_error"

	// KindMalformed indicates the directory answered with a payload we cannot use.
	KindMalformed Kind = "upstream_malformed"
)

// Error wraps a directory failure with its classification and the operation
// that produced it.
type Error struct {
	Kind       Kind
	Op         string
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("lei %s [%s]: %s: %v", e.Op, e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("lei %s [%s]: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(kind Kind, op, message string, underlying error) *Error {
	return &Error{
		Kind:       kind,
		Op:         op,
		Message:    message,
		Underlying: underlying,
	}
}

// KindOf extracts the failure kind from err. Errors that did not come from
// this package are reported as KindUpstream.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUpstream
}
