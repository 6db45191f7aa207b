// Package compiler provides the compilation pipeline for robologo programs.
// This file defines the CompileError type for structured error reporting.
package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zurustar/robologo/pkg/compiler/compiler"
	"github.com/zurustar/robologo/pkg/compiler/lexer"
	"github.com/zurustar/robologo/pkg/compiler/parser"
)

// Compilation phases reported in CompileError.Phase.
const (
	PhaseLexer    = "lexer"
	PhaseParser   = "parser"
	PhaseCompiler = "compiler"
)

// CompileError represents a structured compilation error with location information.
// It implements the error interface and provides detailed context about where
// the error occurred in the source code.
type CompileError struct {
	// Phase indicates which compilation phase generated the error.
	// Valid values: "lexer", "parser", "compiler"
	Phase string

	// Message is the human-readable error description.
	Message string

	// Line is the 1-indexed line number where the error occurred.
	Line int

	// Column is the 1-indexed column number where the error occurred.
	Column int

	// Context contains the source code around the error location.
	// This includes 2 lines before and after the error line,
	// with a pointer (^) indicating the error column.
	Context string

	// Err is the error reported by the phase.
	Err error
}

// Error implements the error interface.
// It returns a formatted error message including phase, location, message, and context.
func (e *CompileError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s error at line %d, column %d: %s\n%s",
			e.Phase, e.Line, e.Column, e.Message, e.Context)
	}
	return fmt.Sprintf("%s error at line %d, column %d: %s",
		e.Phase, e.Line, e.Column, e.Message)
}

// Unwrap returns the phase error, so errors.Is(err, parser.ErrUnparseable)
// and errors.As(err, **lexer.LexError) work on a CompileError.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// withContext converts an error from one of the pipeline stages into a
// CompileError carrying an excerpt of source. Errors without a location
// are returned unchanged.
func withContext(err error, source string) error {
	var (
		lexErr  *lexer.LexError
		compErr *compiler.CompilerError
	)
	switch {
	case errors.As(err, &lexErr):
		return &CompileError{
			Phase:   PhaseLexer,
			Message: lexErr.Message,
			Line:    lexErr.Line,
			Column:  lexErr.Column,
			Context: GenerateErrorContext(source, lexErr.Line, lexErr.Column),
			Err:     err,
		}
	case errors.As(err, &compErr):
		phase := PhaseCompiler
		if errors.Is(compErr, parser.ErrUnparseable) {
			phase = PhaseParser
		}
		return &CompileError{
			Phase:   phase,
			Message: compErr.Message,
			Line:    compErr.Line,
			Column:  compErr.Column,
			Context: GenerateErrorContext(source, compErr.Line, compErr.Column),
			Err:     err,
		}
	default:
		return err
	}
}

// GenerateErrorContext generates source code context around an error location.
// It includes 2 lines before and 2 lines after the error line, with line numbers
// and a pointer (^) indicating the error column.
//
// Example output:
//
//	  2 | X = 5
//	  3 | move forward X
//	> 4 | turn (X +)
//	    |      ^
//	  5 | end
func GenerateErrorContext(source string, line, column int) string {
	if source == "" || line <= 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}

	// 2 lines before and 2 lines after, clamped to the source
	start := line - 3
	if start < 0 {
		start = 0
	}
	end := line + 2
	if end > len(lines) {
		end = len(lines)
	}

	var buf strings.Builder
	lineNumWidth := len(fmt.Sprintf("%d", end))

	for i := start; i < end; i++ {
		lineNum := i + 1
		lineContent := strings.TrimRight(lines[i], "\r")

		if lineNum != line {
			buf.WriteString(fmt.Sprintf("  %*d | %s\n", lineNumWidth, lineNum, lineContent))
			continue
		}

		buf.WriteString(fmt.Sprintf("> %*d | %s\n", lineNumWidth, lineNum, lineContent))
		// "> " + lineNumWidth + " | "
		pointerIndent := 2 + lineNumWidth + 3
		if column > 0 {
			buf.WriteString(fmt.Sprintf("%s%s^\n", strings.Repeat(" ", pointerIndent), caretPadding(lineContent, column)))
		} else {
			buf.WriteString(fmt.Sprintf("%s^\n", strings.Repeat(" ", pointerIndent)))
		}
	}

	return buf.String()
}

// caretPadding returns column-1 columns of padding, keeping tabs from the
// source line so the caret lines up under tab-indented code.
func caretPadding(line string, column int) string {
	var b strings.Builder
	n := 0
	for _, r := range line {
		if n >= column-1 {
			break
		}
		if r == '\t' {
			b.WriteRune('\t')
		} else {
			b.WriteRune(' ')
		}
		n++
	}
	for ; n < column-1; n++ {
		b.WriteRune(' ')
	}
	return b.String()
}
