// Package compiler provides the compilation pipeline for robologo programs.
// It transforms source text into an opcode.Program through three stages:
// 1. Lexer: whitespace-delimited statement tokens
// 2. Parser: expression tokens to expression trees
// 3. Compiler: state machine emitting backpatched instructions
//
// This package provides a unified API over the stages:
// - Compile: Compiles a source string
// - CompileWithOptions: Compiles with additional options
// - CompileScript: Compiles a script loaded by pkg/script
// - CompileFile: Loads, decodes and compiles a source file
// - LoadProgram: Loads a source file or a precompiled .robc file
// - SaveProgram: Writes a compiled program as a .robc file
package compiler

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zurustar/robologo/pkg/compiler/compiler"
	"github.com/zurustar/robologo/pkg/opcode"
	"github.com/zurustar/robologo/pkg/script"
)

// CompileOptions provides configuration options for compilation.
type CompileOptions struct {
	// MaxExpressionLength bounds a single expression; 0 selects the default.
	MaxExpressionLength int

	// Encoding of source files read by CompileFile and LoadProgram.
	// Empty selects UTF-8.
	Encoding string

	// Logger receives compile progress; nil selects logger.GetLogger().
	Logger *slog.Logger
}

func (o CompileOptions) newCompiler() *compiler.Compiler {
	opts := []compiler.Option{compiler.WithMaxExpressionLength(o.MaxExpressionLength)}
	if o.Logger != nil {
		opts = append(opts, compiler.WithLogger(o.Logger))
	}
	return compiler.New(opts...)
}

// Compile compiles source code to a Program with default options.
// A failure is returned as a *CompileError with source context when the
// failing stage reported a location.
func Compile(source string) (opcode.Program, error) {
	return CompileWithOptions(source, CompileOptions{})
}

// CompileWithOptions compiles source code with additional options.
func CompileWithOptions(source string, opts CompileOptions) (opcode.Program, error) {
	program, err := opts.newCompiler().CompileString(source)
	if err != nil {
		return nil, withContext(err, source)
	}
	return program, nil
}

// CompileScript compiles a script loaded by script.Load. Errors are
// prefixed with the script's file name.
func CompileScript(s *script.Script, opts CompileOptions) (opcode.Program, error) {
	program, err := CompileWithOptions(s.Content, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.FileName, err)
	}
	return program, nil
}

// CompileFile reads a source file, converts it to UTF-8 from
// opts.Encoding, and compiles it.
func CompileFile(path string, opts CompileOptions) (opcode.Program, error) {
	s, err := script.Load(path, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return CompileScript(s, opts)
}

// LoadProgram returns the program stored at path: a .robc file is decoded,
// anything else is compiled as source.
func LoadProgram(path string, opts CompileOptions) (opcode.Program, error) {
	if !script.IsCompiled(path) {
		return CompileFile(path, opts)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	program, err := opcode.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return program, nil
}

// SaveProgram writes program to path in the binary .robc form.
func SaveProgram(path string, program opcode.Program) error {
	data, err := opcode.Marshal(program)
	if err != nil {
		return fmt.Errorf("failed to encode program: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
