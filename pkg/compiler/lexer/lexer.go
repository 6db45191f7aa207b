// Package lexer splits robologo program text into tokens.
//
// Tokens are whitespace delimited. A balanced parenthesized run is a single
// expression token and may span lines; a run starting with an uppercase
// letter or a digit is an expression token; every other run is a keyword
// token. Double-quoted text is a comment.
package lexer

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/zurustar/robologo/pkg/compiler/token"
)

// LexError reports malformed input with its location.
type LexError struct {
	Message string
	Line    int
	Column  int
}

// Error implements the error interface.
func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Lexer tokenizes robologo source code read from an io.Reader.
type Lexer struct {
	src *source
	buf strings.Builder
}

// New creates a Lexer reading from r.
func New(r io.Reader) *Lexer {
	return &Lexer{src: newSource(r)}
}

// NewString creates a Lexer over an in-memory program.
func NewString(input string) *Lexer {
	return New(strings.NewReader(input))
}

// NextToken returns the next token. At the end of input it returns a token
// of type token.EOF, repeatedly.
func (l *Lexer) NextToken() (token.Token, error) {
	ch, line, col, err := l.skipWhitespace()
	if err != nil {
		return token.Token{}, err
	}
	if ch == eof {
		return token.Token{Type: token.EOF, Line: line, Column: col}, nil
	}

	tok := token.Token{Line: line, Column: col}
	switch {
	case ch == '(':
		tok.Type = token.EXPRESSION
		tok.Literal, err = l.readParenthesized(line, col)
	case unicode.IsUpper(ch), unicode.IsDigit(ch):
		tok.Type = token.EXPRESSION
		tok.Literal, err = l.readRun()
	default:
		tok.Type = token.KEYWORD
		tok.Literal, err = l.readRun()
	}
	if err != nil {
		return token.Token{}, err
	}
	return tok, nil
}

func (l *Lexer) skipWhitespace() (rune, int, int, error) {
	for {
		ch, line, col, err := l.src.peek()
		if err != nil || ch == eof || !unicode.IsSpace(ch) {
			return ch, line, col, err
		}
		l.src.next()
	}
}

// readRun consumes runes up to the next whitespace or end of input.
func (l *Lexer) readRun() (string, error) {
	l.buf.Reset()
	for {
		ch, _, _, err := l.src.peek()
		if err != nil {
			return "", err
		}
		if ch == eof || unicode.IsSpace(ch) {
			return l.buf.String(), nil
		}
		l.src.next()
		l.buf.WriteRune(ch)
	}
}

// readParenthesized consumes a balanced (...) run, parentheses included.
func (l *Lexer) readParenthesized(line, col int) (string, error) {
	l.buf.Reset()
	depth := 0
	for {
		ch, _, _, err := l.src.next()
		if err != nil {
			return "", err
		}
		if ch == eof {
			return "", &LexError{Message: "unterminated parenthesized expression", Line: line, Column: col}
		}
		l.buf.WriteRune(ch)
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return l.buf.String(), nil
			}
		}
	}
}
