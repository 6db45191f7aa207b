package token

import "fmt"

type TokenType string

// Token is one whitespace-delimited unit of program text.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

const (
	EOF = "EOF"

	// EXPRESSION is an uppercase-leading run, a digit-leading run, or a
	// balanced parenthesized run (parentheses included in Literal).
	EXPRESSION = "EXPRESSION"

	// KEYWORD is any other run, including "=".
	KEYWORD = "KEYWORD"
)

// Keywords
const (
	SET       = "set"
	COLOR     = "color"
	THICKNESS = "thickness"
	TO        = "to"
	START     = "start"
	STOP      = "stop"
	STROKE    = "stroke"
	MOVE      = "move"
	FORWARD   = "forward"
	BACKWARD  = "backward"
	TURN      = "turn"
	LEFT      = "left"
	RIGHT     = "right"
	IF        = "if"
	ELSE      = "else"
	WHILE     = "while"
	UNTIL     = "until"
	REPEAT    = "repeat"
	TIMES     = "times"
	END       = "end"
	INCREMENT = "increment"
	DECREMENT = "decrement"
	ASSIGN    = "="
)

// Is reports whether the token is the given keyword.
func (t Token) Is(keyword string) bool {
	return t.Type == KEYWORD && t.Literal == keyword
}

// String describes the token for error messages.
func (t Token) String() string {
	if t.Type == EOF {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Literal)
}
