package lexer

import (
	"bufio"
	"errors"
	"io"
)

// eof is returned by source when the input is exhausted.
const eof = rune(-1)

// source is a rune reader that strips "double-quoted" comments. A comment
// reads as a single space so it still separates tokens. peek and next share
// one filtered lookahead slot, so both see exactly the same stream.
type source struct {
	r *bufio.Reader

	// position of the next raw rune
	line   int
	column int

	buffered bool
	ch       rune
	chLine   int
	chColumn int
	err      error
}

func newSource(r io.Reader) *source {
	return &source{r: bufio.NewReader(r), line: 1, column: 1}
}

// peek returns the next filtered rune and its position without consuming it.
func (s *source) peek() (rune, int, int, error) {
	if !s.buffered {
		s.ch, s.chLine, s.chColumn, s.err = s.fill()
		s.buffered = true
	}
	return s.ch, s.chLine, s.chColumn, s.err
}

// next consumes and returns the next filtered rune.
func (s *source) next() (rune, int, int, error) {
	ch, line, col, err := s.peek()
	if err == nil && ch != eof {
		s.buffered = false
	}
	return ch, line, col, err
}

func (s *source) fill() (rune, int, int, error) {
	ch, line, col, err := s.readRaw()
	if err != nil || ch != '"' {
		return ch, line, col, err
	}
	for {
		c, _, _, err := s.readRaw()
		if err != nil {
			return eof, line, col, err
		}
		if c == eof {
			return eof, line, col, &LexError{Message: "unterminated comment", Line: line, Column: col}
		}
		if c == '"' {
			return ' ', line, col, nil
		}
	}
}

func (s *source) readRaw() (rune, int, int, error) {
	line, col := s.line, s.column
	ch, _, err := s.r.ReadRune()
	if errors.Is(err, io.EOF) {
		return eof, line, col, nil
	}
	if err != nil {
		return eof, line, col, err
	}
	if ch == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
	return ch, line, col, nil
}
