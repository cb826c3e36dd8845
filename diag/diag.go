// Package diag implements the three-tier error severity model the SPIR-V
// backend uses: Fatal (process abort), Error (reported, collected, fails
// compilation at the end), and Zombie (deferred, resolved by the linker).
package diag

import (
	"fmt"

	"github.com/gogpu/naga/hostir"
	"github.com/pkg/errors"
)

// FatalError is panicked by codegen paths that hit an unrecoverable
// condition: an unparseable target, a mismatched target spec, or an
// internal invariant violation ("compiler bug"). Callers recover it only at
// a process boundary (cmd/spirvcg's main, or a test helper).
type FatalError struct {
	Span    hostir.Span
	Message string
	Bug     bool // true for "compiler bug" internal-invariant fatals
	cause   error
}

func (e *FatalError) Error() string {
	if e.Bug {
		return fmt.Sprintf("compiler bug at %v: %s", e.Span, e.Message)
	}
	return fmt.Sprintf("fatal error at %v: %s", e.Span, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *FatalError) Unwrap() error { return e.cause }

// Fatal panics with a FatalError carrying a stack trace.
func Fatal(span hostir.Span, format string, args ...any) {
	panic(&FatalError{
		Span:    span,
		Message: fmt.Sprintf(format, args...),
		cause:   errors.New(fmt.Sprintf(format, args...)),
	})
}

// Bug panics with a FatalError marked as an internal invariant violation,
// mirroring rustc's span_bug!.
func Bug(span hostir.Span, format string, args ...any) {
	panic(&FatalError{
		Span:    span,
		Message: fmt.Sprintf(format, args...),
		Bug:     true,
		cause:   errors.New(fmt.Sprintf(format, args...)),
	})
}

// Error is a steady-state, reported diagnostic: codegen keeps going, but
// compilation must fail once all of it is collected.
type Error struct {
	Span    hostir.Span
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("%s (at %v)", e.Message, e.Span) }

// Sink accumulates Error-tier diagnostics for one codegen unit.
type Sink struct {
	errs []Error
}

// Report records a steady-state error; codegen continues.
func (s *Sink) Report(span hostir.Span, format string, args ...any) {
	s.errs = append(s.errs, Error{Span: span, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any Error-tier diagnostic was recorded.
func (s *Sink) HasErrors() bool { return len(s.errs) > 0 }

// Errors returns all recorded Error-tier diagnostics, in report order.
func (s *Sink) Errors() []Error { return s.errs }
