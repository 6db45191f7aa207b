package compiler

import (
	"errors"
	"fmt"

	"github.com/zurustar/robologo/pkg/compiler/ast"
	"github.com/zurustar/robologo/pkg/compiler/codegen"
	"github.com/zurustar/robologo/pkg/compiler/token"
	"github.com/zurustar/robologo/pkg/opcode"
)

// stateKind identifies what the compiler expects next.
type stateKind int

const (
	stateIdle stateKind = iota
	stateAssignOperator
	stateAssignValue
	stateSet
	stateSetColorTo
	stateSetThicknessTo
	stateColor
	stateThickness
	stateStart
	stateStop
	stateMove
	stateMoveForward
	stateMoveBackward
	stateTurn
	stateIf
	stateWhile
	stateUntil
	stateRepeat
	stateRepeatTimes
	stateIncrement
	stateDecrement
)

var stateNames = [...]string{
	stateIdle:           "idle",
	stateAssignOperator: "assignment",
	stateAssignValue:    "assignment",
	stateSet:            "set",
	stateSetColorTo:     "set color",
	stateSetThicknessTo: "set thickness",
	stateColor:          "set color",
	stateThickness:      "set thickness",
	stateStart:          "start",
	stateStop:           "stop",
	stateMove:           "move",
	stateMoveForward:    "move forward",
	stateMoveBackward:   "move backward",
	stateTurn:           "turn",
	stateIf:             "if",
	stateWhile:          "while",
	stateUntil:          "until",
	stateRepeat:         "repeat",
	stateRepeatTimes:    "repeat",
	stateIncrement:      "increment",
	stateDecrement:      "decrement",
}

func (k stateKind) String() string {
	if k >= 0 && int(k) < len(stateNames) {
		return fmt.Sprintf("%q", stateNames[k])
	}
	return fmt.Sprintf("state(%d)", int(k))
}

// state is the current FSM state plus the values carried between tokens of
// one statement.
type state struct {
	kind stateKind
	name string   // assignment target
	expr ast.Node // repeat count
	// start is the keyword token that opened the statement
	start token.Token
}

var idleState = state{kind: stateIdle}

type handler func(s *session, st state, tok token.Token) (state, error)

var handlers = [...]handler{
	stateIdle:           (*session).idle,
	stateAssignOperator: (*session).assignOperator,
	stateAssignValue:    (*session).assignValue,
	stateSet:            (*session).set,
	stateSetColorTo:     expectKeyword(token.TO, stateColor),
	stateSetThicknessTo: expectKeyword(token.TO, stateThickness),
	stateColor:          (*session).color,
	stateThickness:      emitAction(opcode.SetThickness),
	stateStart:          strokeAction(1),
	stateStop:           strokeAction(0),
	stateMove:           (*session).move,
	stateMoveForward:    emitAction(opcode.Move),
	stateMoveBackward:   (*session).moveBackward,
	stateTurn:           (*session).turn,
	stateIf:             openBlock(func(b *codegen.Buffer, e ast.Node) codegen.Block { return codegen.OpenIf(b, e) }),
	stateWhile:          openBlock(func(b *codegen.Buffer, e ast.Node) codegen.Block { return codegen.OpenWhile(b, e) }),
	stateUntil:          openBlock(func(b *codegen.Buffer, e ast.Node) codegen.Block { return codegen.OpenUntil(b, e) }),
	stateRepeat:         (*session).repeat,
	stateRepeatTimes:    (*session).repeatTimes,
	stateIncrement:      step(ast.Add),
	stateDecrement:      step(ast.Subtract),
}

// statementKeywords maps keywords that begin a statement to the state that
// follows them.
var statementKeywords = map[string]stateKind{
	token.SET:       stateSet,
	token.START:     stateStart,
	token.STOP:      stateStop,
	token.MOVE:      stateMove,
	token.TURN:      stateTurn,
	token.IF:        stateIf,
	token.WHILE:     stateWhile,
	token.UNTIL:     stateUntil,
	token.REPEAT:    stateRepeat,
	token.INCREMENT: stateIncrement,
	token.DECREMENT: stateDecrement,
}

func (s *session) idle(_ state, tok token.Token) (state, error) {
	if tok.Type == token.EXPRESSION {
		node, err := s.expression(tok)
		if err != nil {
			return idleState, err
		}
		if v, ok := node.(*ast.Variable); ok {
			return state{kind: stateAssignOperator, name: v.Name}, nil
		}
		// VAR=expr written without spaces arrives as one comparison token
		if b, ok := node.(*ast.BinaryOp); ok && b.Op == ast.Equals {
			if v, ok := b.Left.(*ast.Variable); ok {
				s.code.Emit(opcode.NewAssign(v.Name, b.Right))
				return idleState, nil
			}
		}
		return idleState, s.errorf(tok, "expected a statement, got expression %s", tok)
	}

	switch tok.Literal {
	case token.ELSE:
		return idleState, s.elseBlock(tok)
	case token.END:
		return idleState, s.endBlock(tok)
	}
	if next, ok := statementKeywords[tok.Literal]; ok {
		return state{kind: next, start: tok}, nil
	}
	return idleState, s.errorf(tok, "unknown statement %s", tok)
}

func (s *session) assignOperator(st state, tok token.Token) (state, error) {
	if !tok.Is(token.ASSIGN) {
		return idleState, s.errorf(tok, "expected \"=\" after %s, got %s", st.name, tok)
	}
	return state{kind: stateAssignValue, name: st.name}, nil
}

func (s *session) assignValue(st state, tok token.Token) (state, error) {
	node, err := s.expression(tok)
	if err != nil {
		return idleState, err
	}
	s.code.Emit(opcode.NewAssign(st.name, node))
	return idleState, nil
}

func (s *session) set(_ state, tok token.Token) (state, error) {
	switch {
	case tok.Is(token.COLOR):
		return state{kind: stateSetColorTo}, nil
	case tok.Is(token.THICKNESS):
		return state{kind: stateSetThicknessTo}, nil
	}
	return idleState, s.errorf(tok, "expected \"color\" or \"thickness\" after \"set\", got %s", tok)
}

func expectKeyword(keyword string, next stateKind) handler {
	return func(s *session, st state, tok token.Token) (state, error) {
		if !tok.Is(keyword) {
			return idleState, s.errorf(tok, "expected %q in %s statement, got %s", keyword, st.kind, tok)
		}
		return state{kind: next}, nil
	}
}

func (s *session) color(st state, tok token.Token) (state, error) {
	if tok.Type == token.KEYWORD {
		i, ok := ColorIndex(tok.Literal)
		if !ok {
			return idleState, s.errorf(tok, "unknown color %s", tok)
		}
		s.code.Emit(opcode.NewAction(opcode.SetColor, &ast.Literal{Value: i}))
		return idleState, nil
	}
	return emitAction(opcode.SetColor)(s, st, tok)
}

// emitAction parses tok as the action argument and emits the action.
func emitAction(action opcode.ActionID) handler {
	return func(s *session, _ state, tok token.Token) (state, error) {
		node, err := s.expression(tok)
		if err != nil {
			return idleState, err
		}
		s.code.Emit(opcode.NewAction(action, node))
		return idleState, nil
	}
}

// strokeAction emits SetStroke(on) once the "stroke" keyword follows.
func strokeAction(on int) handler {
	return func(s *session, st state, tok token.Token) (state, error) {
		if !tok.Is(token.STROKE) {
			return idleState, s.errorf(tok, "expected \"stroke\" after %s, got %s", st.kind, tok)
		}
		s.code.Emit(opcode.NewAction(opcode.SetStroke, &ast.Literal{Value: on}))
		return idleState, nil
	}
}

func (s *session) move(st state, tok token.Token) (state, error) {
	switch {
	case tok.Is(token.FORWARD):
		return state{kind: stateMoveForward}, nil
	case tok.Is(token.BACKWARD):
		return state{kind: stateMoveBackward}, nil
	}
	return emitAction(opcode.Move)(s, st, tok)
}

func (s *session) moveBackward(_ state, tok token.Token) (state, error) {
	node, err := s.expression(tok)
	if err != nil {
		return idleState, err
	}
	s.code.Emit(opcode.NewAction(opcode.Move, &ast.UnaryOp{Op: ast.Negate, Operand: node}))
	return idleState, nil
}

func (s *session) turn(st state, tok token.Token) (state, error) {
	switch {
	case tok.Is(token.LEFT):
		s.code.Emit(opcode.NewAction(opcode.Turn, &ast.Literal{Value: 90}))
		return idleState, nil
	case tok.Is(token.RIGHT):
		s.code.Emit(opcode.NewAction(opcode.Turn, &ast.Literal{Value: -90}))
		return idleState, nil
	}
	return emitAction(opcode.Turn)(s, st, tok)
}

// openBlock parses the block condition and pushes the block open emits.
func openBlock(open func(*codegen.Buffer, ast.Node) codegen.Block) handler {
	return func(s *session, st state, tok token.Token) (state, error) {
		cond, err := s.expression(tok)
		if err != nil {
			return idleState, err
		}
		s.push(st.start, open(s.code, cond))
		return idleState, nil
	}
}

func (s *session) repeat(st state, tok token.Token) (state, error) {
	count, err := s.expression(tok)
	if err != nil {
		return idleState, err
	}
	return state{kind: stateRepeatTimes, expr: count, start: st.start}, nil
}

func (s *session) repeatTimes(st state, tok token.Token) (state, error) {
	if !tok.Is(token.TIMES) {
		return idleState, s.errorf(tok, "expected \"times\" after repeat count, got %s", tok)
	}
	s.push(st.start, codegen.OpenRepeat(s.code, st.expr, s.blocks.RepeatDepth()+1))
	return idleState, nil
}

// step compiles increment/decrement as an assignment of the variable
// combined with 1.
func step(op ast.BinaryOperator) handler {
	return func(s *session, st state, tok token.Token) (state, error) {
		node, err := s.expression(tok)
		if err != nil {
			return idleState, err
		}
		v, ok := node.(*ast.Variable)
		if !ok {
			return idleState, s.errorf(tok, "%s needs a variable, got %s", st.kind, tok)
		}
		s.code.Emit(opcode.NewAssign(v.Name, &ast.BinaryOp{
			Op:    op,
			Left:  &ast.Variable{Name: v.Name},
			Right: &ast.Literal{Value: 1},
		}))
		return idleState, nil
	}
}

func (s *session) elseBlock(tok token.Token) error {
	blk, ok := s.blocks.Top().(*codegen.IfBlock)
	if !ok {
		return s.errorf(tok, "\"else\" outside of an if block")
	}
	if err := blk.Else(s.code); err != nil {
		if errors.Is(err, codegen.ErrDuplicateElse) {
			return s.errorf(tok, "if block already has an \"else\"")
		}
		return s.errorf(tok, "%v", err)
	}
	return nil
}

func (s *session) endBlock(tok token.Token) error {
	blk := s.pop()
	if blk == nil {
		return s.errorf(tok, "\"end\" without an open block")
	}
	if err := blk.Close(s.code); err != nil {
		return s.errorf(tok, "%v", err)
	}
	return nil
}

// expression parses an expression token.
func (s *session) expression(tok token.Token) (ast.Node, error) {
	if tok.Type != token.EXPRESSION {
		return nil, s.errorf(tok, "expected an expression, got %s", tok)
	}
	node, err := s.c.exprs.Parse(tok.Literal)
	if err != nil {
		cerr := s.errorf(tok, "%v", err)
		cerr.Err = err
		return nil, cerr
	}
	return node, nil
}
