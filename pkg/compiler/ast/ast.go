// Package ast defines the expression model for robologo programs.
// Expressions are immutable trees evaluated to integers against an Env.
// There is no boolean type: comparisons and logical operators yield 1 or 0,
// and any nonzero value counts as true.
package ast

import (
	"strconv"
)

// DiagnosticKind classifies a non-fatal evaluation fault.
type DiagnosticKind string

const (
	// DivisionByZero is reported when the right operand of / evaluates to 0.
	DivisionByZero DiagnosticKind = "DIVISION_BY_ZERO"
	// UndefinedVariable is reported when a variable is read before assignment.
	UndefinedVariable DiagnosticKind = "UNDEFINED_VARIABLE"
)

// Env is the environment an expression is evaluated against.
// Get returns the current value of a variable and whether it is set.
// Report receives non-fatal faults; evaluation always continues with 0.
type Env interface {
	Get(name string) (int, bool)
	Report(kind DiagnosticKind, detail string)
}

// Node is an expression tree node.
type Node interface {
	// Eval computes the integer value of the expression.
	Eval(env Env) int
	// String renders the expression in fully parenthesized infix form.
	String() string
}

// Null evaluates to 0. It stands in for an absent argument.
type Null struct{}

func (Null) Eval(Env) int   { return 0 }
func (Null) String() string { return "0" }

// Literal is a constant integer.
type Literal struct {
	Value int
}

func (l *Literal) Eval(Env) int   { return l.Value }
func (l *Literal) String() string { return strconv.Itoa(l.Value) }

// Variable reads a named value from the environment.
type Variable struct {
	Name string
}

// Eval returns the variable's value, or 0 with an UndefinedVariable
// diagnostic when it has never been assigned.
func (v *Variable) Eval(env Env) int {
	val, ok := env.Get(v.Name)
	if !ok {
		env.Report(UndefinedVariable, v.Name)
		return 0
	}
	return val
}

func (v *Variable) String() string { return v.Name }

// UnaryOp applies a prefix operator to a single operand.
type UnaryOp struct {
	Op      UnaryOperator
	Operand Node
}

func (u *UnaryOp) Eval(env Env) int {
	switch u.Op {
	case Negate:
		return -u.Operand.Eval(env)
	case Complement:
		return boolToInt(u.Operand.Eval(env) == 0)
	default:
		return 0
	}
}

func (u *UnaryOp) String() string {
	return string(u.Op) + u.Operand.String()
}

// BinaryOp applies an infix operator to two operands.
type BinaryOp struct {
	Op    BinaryOperator
	Left  Node
	Right Node
}

func (b *BinaryOp) Eval(env Env) int {
	switch b.Op {
	case Add:
		return b.Left.Eval(env) + b.Right.Eval(env)
	case Subtract:
		return b.Left.Eval(env) - b.Right.Eval(env)
	case Multiply:
		return b.Left.Eval(env) * b.Right.Eval(env)
	case Divide:
		l := b.Left.Eval(env)
		r := b.Right.Eval(env)
		if r == 0 {
			env.Report(DivisionByZero, b.String())
			return 0
		}
		return l / r
	case Equals:
		return boolToInt(b.Left.Eval(env) == b.Right.Eval(env))
	case GreaterThan:
		return boolToInt(b.Left.Eval(env) > b.Right.Eval(env))
	case LessThan:
		return boolToInt(b.Left.Eval(env) < b.Right.Eval(env))
	case And:
		// short-circuit: the right side is not evaluated (or diagnosed) when
		// the left side already decides the result
		return boolToInt(b.Left.Eval(env) != 0 && b.Right.Eval(env) != 0)
	case Or:
		return boolToInt(b.Left.Eval(env) != 0 || b.Right.Eval(env) != 0)
	default:
		return 0
	}
}

func (b *BinaryOp) String() string {
	sym := string(b.Op)
	switch b.Op {
	case And:
		sym = "&"
	case Or:
		sym = "|"
	}
	return "(" + b.Left.String() + sym + b.Right.String() + ")"
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
