package codegen

import (
	"errors"
	"fmt"

	"github.com/zurustar/robologo/pkg/compiler/ast"
	"github.com/zurustar/robologo/pkg/opcode"
)

// BlockKind names the construct that opened a block.
type BlockKind string

const (
	KindIf     BlockKind = "if"
	KindWhile  BlockKind = "while"
	KindUntil  BlockKind = "until"
	KindRepeat BlockKind = "repeat"
)

// ErrDuplicateElse is returned when an if block sees a second else.
var ErrDuplicateElse = errors.New("if block already has an else")

// Block is an open control-flow construct.
type Block interface {
	// Kind reports which keyword opened the block.
	Kind() BlockKind
	// Close emits the block's trailing instructions and resolves every
	// placeholder it owns.
	Close(b *Buffer) error
}

// IfBlock is an open if/else.
type IfBlock struct {
	branch   int
	elseJump int
}

// OpenIf emits Branch(cond, next, ?) and returns the open block.
func OpenIf(b *Buffer, cond ast.Node) *IfBlock {
	at := b.Len()
	b.Emit(opcode.NewBranch(cond, at+1, opcode.Unresolved))
	return &IfBlock{branch: at, elseJump: -1}
}

func (blk *IfBlock) Kind() BlockKind { return KindIf }

// HasElse reports whether Else has been called.
func (blk *IfBlock) HasElse() bool { return blk.elseJump >= 0 }

// Else ends the true arm: it emits a Jump over the false arm and points the
// Branch's false target just past that Jump.
func (blk *IfBlock) Else(b *Buffer) error {
	if blk.HasElse() {
		return ErrDuplicateElse
	}
	blk.elseJump = b.Emit(opcode.NewJump(opcode.Unresolved))
	return b.PatchBranchFalse(blk.branch, b.Len())
}

// Close resolves the pending jump (with else) or the branch (without).
func (blk *IfBlock) Close(b *Buffer) error {
	if blk.HasElse() {
		return b.PatchJump(blk.elseJump, b.Len())
	}
	return b.PatchBranchFalse(blk.branch, b.Len())
}

// LoopBlock is an open while or until loop. An until loop is a while loop
// over the complemented condition.
type LoopBlock struct {
	kind   BlockKind
	branch int
}

// OpenWhile emits Branch(cond, next, ?) and returns the open loop.
func OpenWhile(b *Buffer, cond ast.Node) *LoopBlock {
	at := b.Len()
	b.Emit(opcode.NewBranch(cond, at+1, opcode.Unresolved))
	return &LoopBlock{kind: KindWhile, branch: at}
}

// OpenUntil complements cond once and opens a while loop over it.
func OpenUntil(b *Buffer, cond ast.Node) *LoopBlock {
	loop := OpenWhile(b, &ast.UnaryOp{Op: ast.Complement, Operand: cond})
	loop.kind = KindUntil
	return loop
}

func (blk *LoopBlock) Kind() BlockKind { return blk.kind }

// Close jumps back to the condition and points the exit past that jump.
func (blk *LoopBlock) Close(b *Buffer) error {
	b.Emit(opcode.NewJump(blk.branch))
	return b.PatchBranchFalse(blk.branch, b.Len())
}

// RepeatBlock is an open counted loop driven by a hidden counter variable.
type RepeatBlock struct {
	counter string
	branch  int
}

// CounterName returns the hidden counter of a repeat block opened while
// depth-1 other repeat blocks were open. '#' cannot start a user
// identifier, so the name never collides with program variables.
func CounterName(depth int) string {
	return fmt.Sprintf("#repeat%d", depth)
}

// OpenRepeat emits Assign(counter, count) and Branch(counter > 0, next, ?).
func OpenRepeat(b *Buffer, count ast.Node, depth int) *RepeatBlock {
	counter := CounterName(depth)
	b.Emit(opcode.NewAssign(counter, count))
	at := b.Len()
	b.Emit(opcode.NewBranch(&ast.BinaryOp{
		Op:    ast.GreaterThan,
		Left:  &ast.Variable{Name: counter},
		Right: &ast.Literal{Value: 0},
	}, at+1, opcode.Unresolved))
	return &RepeatBlock{counter: counter, branch: at}
}

func (blk *RepeatBlock) Kind() BlockKind { return KindRepeat }

// Close decrements the counter, jumps back to the test, and routes the
// loop exit through an Unset of the counter.
func (blk *RepeatBlock) Close(b *Buffer) error {
	b.Emit(opcode.NewAssign(blk.counter, &ast.BinaryOp{
		Op:    ast.Subtract,
		Left:  &ast.Variable{Name: blk.counter},
		Right: &ast.Literal{Value: 1},
	}))
	b.Emit(opcode.NewJump(blk.branch))
	if err := b.PatchBranchFalse(blk.branch, b.Len()); err != nil {
		return err
	}
	b.Emit(opcode.NewUnset(blk.counter))
	return nil
}

// Stack is the LIFO of open blocks.
type Stack struct {
	blocks  []Block
	repeats int
}

// Push opens blk as the innermost block.
func (s *Stack) Push(blk Block) {
	if blk.Kind() == KindRepeat {
		s.repeats++
	}
	s.blocks = append(s.blocks, blk)
}

// Pop removes and returns the innermost block, or nil if none is open.
func (s *Stack) Pop() Block {
	if len(s.blocks) == 0 {
		return nil
	}
	blk := s.blocks[len(s.blocks)-1]
	s.blocks = s.blocks[:len(s.blocks)-1]
	if blk.Kind() == KindRepeat {
		s.repeats--
	}
	return blk
}

// Top returns the innermost block without removing it, or nil.
func (s *Stack) Top() Block {
	if len(s.blocks) == 0 {
		return nil
	}
	return s.blocks[len(s.blocks)-1]
}

// Len returns the number of open blocks.
func (s *Stack) Len() int {
	return len(s.blocks)
}

// RepeatDepth returns the number of open repeat blocks.
func (s *Stack) RepeatDepth() int {
	return s.repeats
}
