package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zurustar/robologo/pkg/compiler/ast"
)

type tokenKind int

const (
	tokElement tokenKind = iota
	tokOperator
	tokSubExpr
)

type exprToken struct {
	kind  tokenKind
	text  string
	unary bool
	rank  int
}

// operatorSpellings is scanned in order at each position.
var operatorSpellings = []string{"+", "-", "*", "/", "and", "or", "=", ">", "<", "!"}

// tokenize cuts expr into element, operator and parenthesized tokens and
// classifies each operator as unary or binary.
func tokenize(expr string) ([]exprToken, error) {
	var tokens []exprToken
	elemStart := 0

	flush := func(end int) {
		if text := strings.TrimSpace(expr[elemStart:end]); text != "" {
			tokens = append(tokens, exprToken{kind: tokElement, text: text})
		}
	}

	i := 0
	for i < len(expr) {
		if expr[i] == '(' {
			flush(i)
			end := matchParen(expr, i)
			if end < 0 {
				return nil, fail(expr, "unclosed '(' at offset %d", i)
			}
			tokens = append(tokens, exprToken{kind: tokSubExpr, text: expr[i+1 : end]})
			i = end + 1
			elemStart = i
			continue
		}
		if expr[i] == ')' {
			return nil, fail(expr, "unexpected ')' at offset %d", i)
		}
		if op := operatorAt(expr, i); op != "" {
			flush(i)
			tokens = append(tokens, exprToken{kind: tokOperator, text: op})
			i += len(op)
			elemStart = i
			continue
		}
		i++
	}
	flush(len(expr))

	for idx := range tokens {
		tok := &tokens[idx]
		if tok.kind != tokOperator {
			continue
		}
		tok.unary = idx == 0 || tokens[idx-1].kind == tokOperator
		if tok.unary {
			if _, ok := ast.LookupUnary(tok.text); !ok {
				return nil, fail(expr, "%q is not a unary operator", tok.text)
			}
			tok.rank = ast.RankUnary
			continue
		}
		_, rank, ok := ast.LookupBinary(tok.text)
		if !ok {
			return nil, fail(expr, "%q is not a binary operator", tok.text)
		}
		tok.rank = rank
	}
	return tokens, nil
}

// matchParen returns the index of the ')' closing the '(' at open, or -1.
func matchParen(expr string, open int) int {
	depth := 0
	for i := open; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// operatorAt returns the operator spelled at expr[i:], or "".
// Word operators only match on word boundaries.
func operatorAt(expr string, i int) string {
	for _, op := range operatorSpellings {
		if !strings.HasPrefix(expr[i:], op) {
			continue
		}
		if isWordOperator(op) && !atWordBoundary(expr, i, i+len(op)) {
			continue
		}
		return op
	}
	return ""
}

func isWordOperator(op string) bool {
	r, _ := utf8.DecodeRuneInString(op)
	return unicode.IsLetter(r)
}

func atWordBoundary(expr string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(expr[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(expr) {
		r, _ := utf8.DecodeRuneInString(expr[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
