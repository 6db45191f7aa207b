// Package compiler turns robologo program text into an opcode.Program.
//
// Compilation is a single pass over the token stream driven by a finite
// state machine: each state handles exactly one token and returns the next
// state. Instructions are emitted as soon as a statement is recognised;
// control-flow blocks are resolved by backpatching through codegen.
package compiler

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/zurustar/robologo/pkg/compiler/codegen"
	"github.com/zurustar/robologo/pkg/compiler/lexer"
	"github.com/zurustar/robologo/pkg/compiler/parser"
	"github.com/zurustar/robologo/pkg/compiler/token"
	"github.com/zurustar/robologo/pkg/logger"
	"github.com/zurustar/robologo/pkg/opcode"
)

// Palette lists the named colors; a name compiles to its index.
var Palette = []string{"red", "green", "blue"}

// ColorIndex returns the palette index of a color name.
func ColorIndex(name string) (int, bool) {
	for i, c := range Palette {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// CompilerError represents an error that occurred during compilation.
// It includes the location of the offending token.
type CompilerError struct {
	Message string
	Line    int
	Column  int
	// Err is the underlying expression parse error, if any.
	Err error
}

// Error implements the error interface.
func (e *CompilerError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compiler error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("compiler error: %s", e.Message)
}

// Unwrap returns the underlying parse error.
func (e *CompilerError) Unwrap() error {
	return e.Err
}

// NewCompilerError creates a new CompilerError with the given message and location.
func NewCompilerError(message string, line, column int) *CompilerError {
	return &CompilerError{
		Message: message,
		Line:    line,
		Column:  column,
	}
}

// Compiler compiles program text. It holds only configuration; every call
// to Compile works on its own session, so a Compiler can be reused and
// shared by independent compilations.
type Compiler struct {
	exprs *parser.Parser
	log   *slog.Logger
}

// Option is a functional option for configuring the Compiler.
type Option func(*Compiler)

// WithMaxExpressionLength bounds the length of a single expression.
func WithMaxExpressionLength(n int) Option {
	return func(c *Compiler) {
		c.exprs = parser.New(parser.WithMaxLength(n))
	}
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Compiler) {
		c.log = log
	}
}

// New creates a new Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		exprs: parser.New(),
		log:   logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompileString compiles an in-memory program.
func (c *Compiler) CompileString(src string) (opcode.Program, error) {
	return c.Compile(strings.NewReader(src))
}

// Compile reads a whole program from r and compiles it. On any error the
// partial instruction buffer is discarded and a nil Program is returned.
func (c *Compiler) Compile(r io.Reader) (opcode.Program, error) {
	s := &session{
		c:    c,
		lex:  lexer.New(r),
		code: codegen.NewBuffer(),
	}
	program, err := s.run()
	if err != nil {
		c.log.Debug("Compilation failed", "error", err)
		return nil, err
	}
	c.log.Debug("Program compiled", "instructions", len(program))
	return program, nil
}

// session is the per-call compilation state.
type session struct {
	c      *Compiler
	lex    *lexer.Lexer
	code   *codegen.Buffer
	blocks codegen.Stack
	// opened holds the keyword token of each open block, parallel to blocks
	opened []token.Token
}

func (s *session) run() (opcode.Program, error) {
	st := state{kind: stateIdle}
	for {
		tok, err := s.lex.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == token.EOF {
			if st.kind != stateIdle {
				return nil, s.errorf(tok, "unexpected end of input in %s statement", st.kind)
			}
			break
		}
		if st, err = handlers[st.kind](s, st, tok); err != nil {
			return nil, err
		}
	}

	if n := len(s.opened); n > 0 {
		open := s.opened[n-1]
		return nil, s.errorf(open, "%q block is never closed with \"end\"", open.Literal)
	}
	return s.code.Program()
}

func (s *session) errorf(tok token.Token, format string, args ...any) *CompilerError {
	return NewCompilerError(fmt.Sprintf(format, args...), tok.Line, tok.Column)
}

func (s *session) push(tok token.Token, blk codegen.Block) {
	s.blocks.Push(blk)
	s.opened = append(s.opened, tok)
}

func (s *session) pop() codegen.Block {
	if len(s.opened) > 0 {
		s.opened = s.opened[:len(s.opened)-1]
	}
	return s.blocks.Pop()
}
