// Package errs defines the error taxonomy shared by every rbfinterp package.
// Callers match the sentinels with errors.Is; packages wrap them with
// context through github.com/pkg/errors.
package errs

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument is returned when a sizing or tolerance precondition
	// is violated. It is always detected before any state is mutated.
	ErrInvalidArgument = errors.New("rbfinterp: invalid argument")

	// ErrNotSupported is returned when an operation cannot be performed with
	// the given model, e.g. incremental fitting with a nonzero nugget.
	ErrNotSupported = errors.New("rbfinterp: not supported")

	// ErrNotConverged is returned when the iterative solver exhausts its
	// iteration budget.
	ErrNotConverged = errors.New("rbfinterp: solver did not converge")

	// ErrIO is returned by the data loading and writing helpers.
	ErrIO = errors.New("rbfinterp: i/o error")
)

// InvalidArgument wraps ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// NotSupported wraps ErrNotSupported with a formatted message.
func NotSupported(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotSupported, format, args...)
}

// NotConverged wraps ErrNotConverged with a formatted message.
func NotConverged(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotConverged, format, args...)
}

// IO wraps ErrIO around the underlying cause.
func IO(err error, format string, args ...interface{}) error {
	return errors.Wrapf(ErrIO, format+": %v", append(args, err)...)
}
