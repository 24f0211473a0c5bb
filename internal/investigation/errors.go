package investigation

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedQuery means no targets could be extracted. Fatal for the call.
	ErrMalformedQuery = errors.New("malformed query: no extractable targets")

	// ErrTransient marks module failures worth retrying (network, timeout).
	ErrTransient = errors.New("transient module error")

	// ErrPermanent marks module failures that must not be retried.
	ErrPermanent = errors.New("permanent module error")

	// ErrMalformedReport is a compiler precondition violation, a programming
	// error rather than a runtime-recoverable condition.
	ErrMalformedReport = errors.New("malformed report: nil plan")
)

func Transientf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrTransient, fmt.Sprintf(format, args...))
}

func Permanentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPermanent, fmt.Sprintf(format, args...))
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
