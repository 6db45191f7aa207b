// Package codegen owns the instruction buffer of a compilation and the
// control-flow blocks that are still open in it.
//
// Block constructors append placeholder Branch/Jump instructions and keep
// the indices they appended. Closing a block only rewrites target fields at
// those indices, so nothing holds a reference into the buffer.
package codegen

import (
	"fmt"

	"github.com/zurustar/robologo/pkg/opcode"
)

// Buffer is a growable instruction arena.
type Buffer struct {
	code []opcode.Instruction
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Emit appends ins and returns its index.
func (b *Buffer) Emit(ins opcode.Instruction) int {
	b.code = append(b.code, ins)
	return len(b.code) - 1
}

// Len returns the number of emitted instructions, which is also the index
// the next instruction will get.
func (b *Buffer) Len() int {
	return len(b.code)
}

// PatchJump resolves the target of the Jump at index i.
func (b *Buffer) PatchJump(i, target int) error {
	ins := &b.code[i]
	if ins.Cmd != opcode.Jump {
		return fmt.Errorf("instruction %d is %s, not Jump", i, ins.Cmd)
	}
	if ins.Target != opcode.Unresolved {
		return fmt.Errorf("jump %d already resolved to %d", i, ins.Target)
	}
	ins.Target = target
	return nil
}

// PatchBranchFalse resolves the false target of the Branch at index i.
func (b *Buffer) PatchBranchFalse(i, target int) error {
	ins := &b.code[i]
	if ins.Cmd != opcode.Branch {
		return fmt.Errorf("instruction %d is %s, not Branch", i, ins.Cmd)
	}
	if ins.False != opcode.Unresolved {
		return fmt.Errorf("branch %d already resolved to %d", i, ins.False)
	}
	ins.False = target
	return nil
}

// Program returns the finished instruction sequence after checking that
// every target has been resolved.
func (b *Buffer) Program() (opcode.Program, error) {
	p := make(opcode.Program, len(b.code))
	copy(p, b.code)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
