package compiler

import (
	"errors"
	"fmt"
)

// Severity classifies a Diagnostic (spec §6.3).
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one entry of the error-collector channel: a message, the
// source byte offset of the offending token, and a severity.
type Diagnostic struct {
	Message  string
	Offset   int
	Severity Severity
}

// Diagnostics accumulates Diagnostic entries for a single compilation.
// Lowering appends to it before throwing the fatal CompileError that aborts
// the pass (spec §7: "Diagnostics are appended to the collector before the
// throw").
type Diagnostics struct {
	items []Diagnostic
}

// Add records a diagnostic (spec §6.3 `add(message, source_byte_offset,
// severity)`).
func (d *Diagnostics) Add(message string, offset int, severity Severity) {
	d.items = append(d.items, Diagnostic{Message: message, Offset: offset, Severity: severity})
}

// Items returns every diagnostic recorded so far, in emission order.
func (d *Diagnostics) Items() []Diagnostic { return d.items }

// HasErrors reports whether any accumulated diagnostic is SeverityError.
func (d *Diagnostics) HasErrors() bool {
	for _, it := range d.items {
		if it.Severity == SeverityError {
			return true
		}
	}
	return false
}

// CompileError is the semantic error kind of spec §7: the fatal error that
// aborts lowering on the first offense. Callers can recover it with
// IsCompileError, the same way the teacher's compiler exposes
// IsSemanticError against its SemanticError type.
type CompileError struct {
	Diagnostic Diagnostic
}

func (e *CompileError) Error() string { return e.Diagnostic.Message }

// IsCompileError reports whether err is (or wraps) a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// fail records a diagnostic and returns the fatal error that unwinds the
// current lowering call. Every compile-time error surfaced by the lowering
// engine goes through here so the diagnostic channel and the returned error
// never disagree (spec §7).
func (c *Compiler) fail(offset int, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	c.diags.Add(msg, offset, SeverityError)
	return &CompileError{Diagnostic: Diagnostic{Message: msg, Offset: offset, Severity: SeverityError}}
}
