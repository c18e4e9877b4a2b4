// Package lerrors is the unified error and diagnostic-sink package for the
// VM and engine. It distinguishes fatal errors (bytecode malformed, register
// stack misuse, missing procedure) from non-fatal diagnostics (register
// leak, clone limit reached, broadcast/target miss) so that the two are
// never confused: per spec, diagnostics are reported but never halt a
// project.
package lerrors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type (
	// ErrorKind distinguishes where a fatal error originates.
	ErrorKind int
	// Error captures a fatal VM/engine error: malformed bytecode, register
	// stack misuse, a missing procedure table entry, or an error returned
	// by a host primitive.
	Error struct {
		Kind      ErrorKind
		Script    string
		PC        int64
		Err       error
		Traceback []string
	}
)

const (
	// BytecodeErr is raised for an unknown opcode or a truncated instruction
	// stream.
	BytecodeErr ErrorKind = iota
	// RegisterErr is raised when READ_ARG names an argument slot the
	// current argument frame does not have. Register arena bounds are not
	// checked; an arena over- or underflow panics instead.
	RegisterErr
	// MissingProcedureErr is raised when CALL_PROCEDURE names an index with
	// no procedure-table entry.
	MissingProcedureErr
	// UserErr wraps an error value returned by a host primitive (EXEC
	// callback).
	UserErr
)

func (k ErrorKind) String() string {
	switch k {
	case BytecodeErr:
		return "bytecode"
	case RegisterErr:
		return "register"
	case MissingProcedureErr:
		return "missing-procedure"
	case UserErr:
		return "user"
	default:
		return "unknown"
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf(
		"%v:%v: %v error: %v\nstack traceback:\n%v",
		e.Script, e.PC, e.Kind, e.Err, strings.Join(e.Traceback, "\n"),
	)
}

// Unwrap lets errors.Is/As see through to the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Wrap attaches call-stack context to an underlying cause and returns the
// unified Error type. Uses github.com/pkg/errors so the original error
// retains a stack trace for the zerolog sink to log if needed.
func Wrap(kind ErrorKind, script string, pc int64, traceback []string, cause error) *Error {
	return &Error{
		Kind:      kind,
		Script:    script,
		PC:        pc,
		Err:       errors.WithStack(cause),
		Traceback: traceback,
	}
}
