package status

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/go-errors/errors"
)

// Kind classifies why onchaind gave up, mirroring the three-way taxonomy
// the master process uses to decide how to react.
type Kind uint8

const (
	// BadCommand means the master process sent onchaind a message it
	// could not make sense of: malformed, out of sequence, or otherwise
	// violating the wire protocol.
	BadCommand Kind = iota + 1

	// CryptoFailed means a cryptographic check failed: a signature did
	// not verify, a derived key did not match an expected script, or a
	// revocation secret did not reconcile with the shachain it was
	// supposed to extend.
	CryptoFailed

	// InternalError means onchaind hit a state it believes is
	// unreachable given its own invariants.
	InternalError
)

func (k Kind) String() string {
	switch k {
	case BadCommand:
		return "bad_command"
	case CryptoFailed:
		return "crypto_failed"
	case InternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit code this daemon uses for a given
// failure kind.
func (k Kind) ExitCode() int {
	switch k {
	case BadCommand:
		return 1
	case CryptoFailed:
		return 2
	case InternalError:
		return 3
	default:
		return 3
	}
}

// Error wraps a fatal failure with a stack trace captured at the point of
// failure, via go-errors/errors, so a crash report shows exactly where in
// onchaind the invariant broke rather than just where it was logged.
type Error struct {
	Kind  Kind
	cause *errors.Error
}

func (e *Error) Error() string {
	return e.cause.Error()
}

// ErrorStack returns the full captured stack trace.
func (e *Error) ErrorStack() string {
	return e.cause.ErrorStack()
}

// New builds a status.Error of the given kind with a captured stack trace.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:  kind,
		cause: errors.Wrap(fmt.Errorf(format, args...), 1),
	}
}

// log is package-scoped so Fail can log the failure before exiting, in the
// same style as onchaind's other packages.
var log = btclog.Disabled

// UseLogger installs a logger for the status package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// exit is a package variable so tests can intercept process termination.
var exit = os.Exit

// Fail logs a fatal failure at Critical level with its stack trace and
// terminates the process with the exit code belonging to kind. It never
// returns.
func Fail(kind Kind, format string, args ...interface{}) {
	err := New(kind, format, args...)
	log.Criticalf("%v: %v\n%v", kind, err.Error(), err.ErrorStack())
	exit(kind.ExitCode())
}
