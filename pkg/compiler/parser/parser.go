// Package parser turns an infix expression string into an ast.Node.
//
// The parser is operator-precedence based rather than grammar based: the
// string is cut into operator, element and parenthesized-subexpression
// tokens, and every token span is split at its loosest operator. Among
// operators of equal rank the leftmost one is chosen, so a chain such as
// 10-4-3 groups to the right as 10-(4-3).
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/zurustar/robologo/pkg/compiler/ast"
)

// DefaultMaxLength is the default upper bound on expression source length.
const DefaultMaxLength = 256

// ErrUnparseable is wrapped by every error returned from Parse.
var ErrUnparseable = errors.New("unparseable expression")

// ParseError describes why an expression was rejected.
type ParseError struct {
	Expr   string
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrUnparseable.Error(), e.Expr, e.Reason)
}

// Unwrap lets errors.Is match ErrUnparseable.
func (e *ParseError) Unwrap() error {
	return ErrUnparseable
}

// Parser parses expressions. A Parser holds only configuration and may be
// shared between goroutines.
type Parser struct {
	maxLength int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxLength sets the longest expression string Parse accepts.
// Values <= 0 select DefaultMaxLength.
func WithMaxLength(n int) Option {
	return func(p *Parser) {
		if n <= 0 {
			n = DefaultMaxLength
		}
		p.maxLength = n
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{maxLength: DefaultMaxLength}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxLength returns the configured length bound.
func (p *Parser) MaxLength() int {
	return p.maxLength
}

// Parse parses expr into a complete expression tree. On failure it returns
// a nil node and a *ParseError; it never returns a partial tree.
func (p *Parser) Parse(expr string) (ast.Node, error) {
	if len(expr) > p.maxLength {
		return nil, fail(expr, "longer than %d bytes", p.maxLength)
	}
	if err := checkParens(expr); err != nil {
		return nil, err
	}
	return p.parseExpr(strings.TrimSpace(expr))
}

// checkParens rejects unbalanced parentheses in a single scan.
func checkParens(expr string) error {
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fail(expr, "unexpected ')' at offset %d", i)
			}
		}
	}
	if depth != 0 {
		return fail(expr, "%d unclosed '('", depth)
	}
	return nil
}

func (p *Parser) parseExpr(expr string) (ast.Node, error) {
	if expr == "" {
		return nil, fail(expr, "empty expression")
	}
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	return p.parseSpan(expr, tokens, 0, len(tokens))
}

// parseSpan parses tokens[lo:hi].
func (p *Parser) parseSpan(src string, tokens []exprToken, lo, hi int) (ast.Node, error) {
	switch hi - lo {
	case 0:
		return nil, fail(src, "missing operand")
	case 1:
		tok := tokens[lo]
		switch tok.kind {
		case tokSubExpr:
			return p.parseExpr(strings.TrimSpace(tok.text))
		case tokElement:
			return parseElement(tok.text)
		default:
			return nil, fail(src, "operator %q has no operand", tok.text)
		}
	}

	split := -1
	for i := lo; i < hi; i++ {
		if tokens[i].kind != tokOperator {
			continue
		}
		if split == -1 || tokens[i].rank < tokens[split].rank {
			split = i
		}
	}
	if split == -1 {
		return nil, fail(src, "missing operator between operands")
	}

	tok := tokens[split]
	if tok.unary {
		if split != lo {
			return nil, fail(src, "misplaced unary operator %q", tok.text)
		}
		operand, err := p.parseSpan(src, tokens, lo+1, hi)
		if err != nil {
			return nil, err
		}
		op, _ := ast.LookupUnary(tok.text)
		return &ast.UnaryOp{Op: op, Operand: operand}, nil
	}

	left, err := p.parseSpan(src, tokens, lo, split)
	if err != nil {
		return nil, err
	}
	right, err := p.parseSpan(src, tokens, split+1, hi)
	if err != nil {
		return nil, err
	}
	op, _, _ := ast.LookupBinary(tok.text)
	return &ast.BinaryOp{Op: op, Left: left, Right: right}, nil
}

// parseElement resolves a single element token to a literal or a variable.
func parseElement(elem string) (ast.Node, error) {
	elem = strings.TrimSpace(elem)
	if elem == "" {
		return nil, fail(elem, "empty element")
	}
	if isDigits(elem) {
		v, err := strconv.Atoi(elem)
		if err != nil {
			return nil, fail(elem, "integer literal out of range")
		}
		return &ast.Literal{Value: v}, nil
	}
	if !IsIdentifier(elem) {
		return nil, fail(elem, "malformed identifier")
	}
	return &ast.Variable{Name: elem}, nil
}

// IsIdentifier reports whether s is a valid user identifier: an uppercase
// letter followed by letters or digits.
func IsIdentifier(s string) bool {
	for i, r := range s {
		if i == 0 {
			if !unicode.IsUpper(r) {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func fail(expr, format string, args ...any) *ParseError {
	return &ParseError{Expr: expr, Reason: fmt.Sprintf(format, args...)}
}
