// Package vm provides error handling for the robologo virtual machine.
package vm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zurustar/robologo/pkg/compiler/ast"
)

// ErrorType represents the type of runtime error.
type ErrorType string

const (
	// Fatal errors - execution must stop
	ErrorInvalidProgram    ErrorType = "INVALID_PROGRAM"
	ErrorStepLimitExceeded ErrorType = "STEP_LIMIT_EXCEEDED"
	ErrorCancelled         ErrorType = "CANCELLED"
	ErrorTimeout           ErrorType = "TIMEOUT"

	// Non-fatal errors - execution continues with a zero value
	ErrorDivisionByZero ErrorType = ErrorType(ast.DivisionByZero)
	ErrorUndefinedVar   ErrorType = ErrorType(ast.UndefinedVariable)
)

// RuntimeError represents a runtime error in the VM.
type RuntimeError struct {
	Type    ErrorType
	Message string
	PC      int    // Instruction index if available, -1 otherwise
	Context string // Disassembly of the instruction being executed
	Err     error  // Underlying cause, if any
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.PC >= 0 && e.Context != "" {
		return fmt.Sprintf("[%s] %s at instruction %d (%s)", e.Type, e.Message, e.PC, e.Context)
	}
	if e.PC >= 0 {
		return fmt.Sprintf("[%s] %s at instruction %d", e.Type, e.Message, e.PC)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the error is fatal and execution should stop.
func (e *RuntimeError) IsFatal() bool {
	switch e.Type {
	case ErrorDivisionByZero, ErrorUndefinedVar:
		return false
	default:
		return true
	}
}

// NewRuntimeError creates a new RuntimeError.
func NewRuntimeError(errType ErrorType, message string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		PC:      -1,
	}
}

// NewRuntimeErrorAt creates a new RuntimeError located at an instruction.
func NewRuntimeErrorAt(errType ErrorType, message string, pc int, instr string) *RuntimeError {
	return &RuntimeError{
		Type:    errType,
		Message: message,
		PC:      pc,
		Context: instr,
	}
}

// Error helper functions for common error types

// NewInvalidProgramError wraps a program validation failure.
func NewInvalidProgramError(err error) *RuntimeError {
	e := NewRuntimeError(ErrorInvalidProgram, fmt.Sprintf("invalid program: %v", err))
	e.Err = err
	return e
}

// NewStepLimitError reports that the step budget was used up.
func NewStepLimitError(limit, pc int) *RuntimeError {
	return NewRuntimeErrorAt(ErrorStepLimitExceeded, fmt.Sprintf("step limit of %d exceeded", limit), pc, "")
}

// NewCancelledError reports that Run stopped because its context ended.
// A deadline produces ErrorTimeout, anything else ErrorCancelled.
func NewCancelledError(cause error, timeout time.Duration, pc int) *RuntimeError {
	e := NewRuntimeErrorAt(ErrorCancelled, "execution cancelled", pc, "")
	if errors.Is(cause, context.DeadlineExceeded) {
		e.Type = ErrorTimeout
		e.Message = "execution deadline exceeded"
		if timeout > 0 {
			e.Message = fmt.Sprintf("execution timed out after %s", timeout)
		}
	}
	e.Err = cause
	return e
}

// NewDiagnostic converts an expression evaluation report into a non-fatal
// RuntimeError.
func NewDiagnostic(kind ast.DiagnosticKind, detail string, pc int, instr string) *RuntimeError {
	var msg string
	switch kind {
	case ast.DivisionByZero:
		msg = fmt.Sprintf("division by zero in %s", detail)
	case ast.UndefinedVariable:
		msg = fmt.Sprintf("undefined variable: %s", detail)
	default:
		msg = detail
	}
	return NewRuntimeErrorAt(ErrorType(kind), msg, pc, instr)
}
