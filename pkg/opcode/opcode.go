// Package opcode defines the instruction set for the robologo virtual machine.
// This package is the foundation that both the compiler and VM depend on.
// The compiler appends Instructions to a Program, and the VM executes them.
//
// Cross references between instructions are absolute indices into the
// Program, never pointers, so a Program is acyclic and serializable.
package opcode

import (
	"fmt"
	"strings"

	"github.com/zurustar/robologo/pkg/compiler/ast"
)

// Cmd represents an instruction type.
type Cmd string

// Instruction types.
const (
	// Assign stores the value of Expr in variable Name.
	Assign Cmd = "Assign"

	// Jump continues execution at Target.
	Jump Cmd = "Jump"

	// Branch evaluates Expr and continues at True when the result is
	// nonzero, otherwise at False.
	Branch Cmd = "Branch"

	// Action invokes the host capability identified by Action with the
	// value of Expr.
	Action Cmd = "Action"

	// Unset removes variable Name from the environment.
	Unset Cmd = "Unset"
)

// Unresolved marks a Jump/Branch target that has not been backpatched yet.
const Unresolved = -1

// ActionID identifies a host capability invoked by an Action instruction.
type ActionID uint8

// Host capabilities, in the order the host interface declares them.
const (
	SetColor ActionID = iota
	SetThickness
	SetStroke
	Move
	Turn
)

var actionNames = [...]string{
	SetColor:     "color",
	SetThickness: "thickness",
	SetStroke:    "stroke",
	Move:         "move",
	Turn:         "turn",
}

// String returns the short name of the action.
func (a ActionID) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Valid reports whether a is a known action.
func (a ActionID) Valid() bool {
	return int(a) < len(actionNames)
}

// Instruction is a single VM instruction. Which fields are meaningful
// depends on Cmd:
//
//	Assign: Name, Expr
//	Jump:   Target
//	Branch: Expr, True, False
//	Action: Action, Expr
//	Unset:  Name
type Instruction struct {
	Cmd    Cmd
	Name   string
	Expr   ast.Node
	Target int
	True   int
	False  int
	Action ActionID
}

// NewAssign creates an Assign instruction.
func NewAssign(name string, expr ast.Node) Instruction {
	return Instruction{Cmd: Assign, Name: name, Expr: expr}
}

// NewJump creates a Jump instruction.
func NewJump(target int) Instruction {
	return Instruction{Cmd: Jump, Target: target}
}

// NewBranch creates a Branch instruction.
func NewBranch(cond ast.Node, trueIndex, falseIndex int) Instruction {
	return Instruction{Cmd: Branch, Expr: cond, True: trueIndex, False: falseIndex}
}

// NewAction creates an Action instruction.
func NewAction(action ActionID, arg ast.Node) Instruction {
	return Instruction{Cmd: Action, Action: action, Expr: arg}
}

// NewUnset creates an Unset instruction.
func NewUnset(name string) Instruction {
	return Instruction{Cmd: Unset, Name: name}
}

// String renders the instruction in a one-line assembly form.
func (ins Instruction) String() string {
	switch ins.Cmd {
	case Assign:
		return fmt.Sprintf("assign %s %s", ins.Name, exprString(ins.Expr))
	case Jump:
		return fmt.Sprintf("jump %s", targetString(ins.Target))
	case Branch:
		return fmt.Sprintf("branch %s %s %s", exprString(ins.Expr), targetString(ins.True), targetString(ins.False))
	case Action:
		return fmt.Sprintf("%s %s", ins.Action, exprString(ins.Expr))
	case Unset:
		return fmt.Sprintf("unset %s", ins.Name)
	default:
		return fmt.Sprintf("<%s>", ins.Cmd)
	}
}

func exprString(n ast.Node) string {
	if n == nil {
		return "0"
	}
	return n.String()
}

func targetString(t int) string {
	if t == Unresolved {
		return "?"
	}
	return fmt.Sprintf("%d", t)
}

// Program is a compiled instruction sequence. Execution halts when the
// program counter reaches len(Program).
type Program []Instruction

// Validate checks that every instruction is well formed and that every
// Jump/Branch target lies in [0, len(p)].
func (p Program) Validate() error {
	inRange := func(t int) bool { return t >= 0 && t <= len(p) }

	for i, ins := range p {
		switch ins.Cmd {
		case Assign:
			if ins.Name == "" || ins.Expr == nil {
				return fmt.Errorf("instruction %d: assign needs a name and an expression", i)
			}
		case Jump:
			if !inRange(ins.Target) {
				return fmt.Errorf("instruction %d: jump target %d out of range [0, %d]", i, ins.Target, len(p))
			}
		case Branch:
			if ins.Expr == nil {
				return fmt.Errorf("instruction %d: branch has no condition", i)
			}
			if !inRange(ins.True) || !inRange(ins.False) {
				return fmt.Errorf("instruction %d: branch targets %d/%d out of range [0, %d]", i, ins.True, ins.False, len(p))
			}
		case Action:
			if !ins.Action.Valid() {
				return fmt.Errorf("instruction %d: unknown action %d", i, ins.Action)
			}
			if ins.Expr == nil {
				return fmt.Errorf("instruction %d: action has no argument", i)
			}
		case Unset:
			if ins.Name == "" {
				return fmt.Errorf("instruction %d: unset needs a name", i)
			}
		default:
			return fmt.Errorf("instruction %d: unknown command %q", i, ins.Cmd)
		}
	}
	return nil
}

// String returns a numbered disassembly listing, one instruction per line.
func (p Program) String() string {
	var b strings.Builder
	width := len(fmt.Sprintf("%d", len(p)))
	for i, ins := range p {
		fmt.Fprintf(&b, "%*d  %s\n", width, i, ins)
	}
	fmt.Fprintf(&b, "%*d  halt\n", width, len(p))
	return b.String()
}
