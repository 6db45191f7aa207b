// Package vm provides the virtual machine for executing robologo programs.
// It implements a program-counter driven fetch-execute loop with support for:
// - Integer variables (Environment)
// - Host actions (Actions)
// - Soft runtime diagnostics (division by zero, unset variables)
// - Step limit, timeout and context cancellation
package vm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zurustar/robologo/pkg/compiler/ast"
	"github.com/zurustar/robologo/pkg/logger"
	"github.com/zurustar/robologo/pkg/opcode"
)

// MaxDiagnostics bounds the number of recorded non-fatal errors. Later
// ones are still logged and counted.
const MaxDiagnostics = 1000

// Actions is the host capability set invoked by Action instructions.
// The VM does not own the host; each method receives the evaluated
// integer argument.
type Actions interface {
	SetColor(color int)
	SetThickness(thickness int)
	SetStroke(on int)
	Move(distance int)
	Turn(degrees int)
}

// nopActions discards every action.
type nopActions struct{}

func (nopActions) SetColor(int)     {}
func (nopActions) SetThickness(int) {}
func (nopActions) SetStroke(int)    {}
func (nopActions) Move(int)         {}
func (nopActions) Turn(int)         {}

// VM represents the virtual machine that executes a Program.
type VM struct {
	program opcode.Program
	actions Actions
	invalid error

	pc    int
	steps int
	env   *Environment

	diagnostics []*RuntimeError
	dropped     int

	// Configuration
	maxSteps int
	timeout  time.Duration

	running bool
	mu      sync.Mutex

	log *slog.Logger
}

// Option is a functional option for configuring the VM.
type Option func(*VM)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(vm *VM) {
		vm.log = log
	}
}

// WithMaxSteps bounds the number of executed instructions. Zero means
// unbounded.
func WithMaxSteps(n int) Option {
	return func(vm *VM) {
		if n < 0 {
			n = 0
		}
		vm.maxSteps = n
	}
}

// WithTimeout sets the execution timeout applied by Run.
func WithTimeout(timeout time.Duration) Option {
	return func(vm *VM) {
		vm.timeout = timeout
	}
}

// New creates a VM that executes program against actions. A nil actions
// discards every action. The program is validated here; an invalid program
// makes every Step and Run fail with ErrorInvalidProgram.
func New(program opcode.Program, actions Actions, opts ...Option) *VM {
	if actions == nil {
		actions = nopActions{}
	}
	vm := &VM{
		program: program,
		actions: actions,
		env:     NewEnvironment(),
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	if err := program.Validate(); err != nil {
		vm.invalid = NewInvalidProgramError(err)
	}
	return vm
}

// Run executes the program until it halts, a fatal error occurs, or ctx
// (bounded by the configured timeout) is done. Non-fatal errors are
// recorded in Diagnostics and do not stop execution.
func (vm *VM) Run(ctx context.Context) error {
	vm.mu.Lock()
	if vm.running {
		vm.mu.Unlock()
		return fmt.Errorf("VM is already running")
	}
	vm.running = true
	vm.mu.Unlock()

	defer func() {
		vm.mu.Lock()
		vm.running = false
		vm.mu.Unlock()
	}()

	if vm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, vm.timeout)
		defer cancel()
	}

	vm.log.Info("VM started", "instructions", len(vm.program), "max_steps", vm.maxSteps, "timeout", vm.timeout)
	start := time.Now()

	for {
		// Check for cancellation (timeout or stop)
		select {
		case <-ctx.Done():
			err := NewCancelledError(ctx.Err(), vm.timeout, vm.pc)
			vm.log.Info("VM execution stopped", "reason", err.Type, "pc", vm.pc, "steps", vm.steps)
			return err
		default:
		}

		more, err := vm.Step()
		if err != nil {
			vm.log.Error("VM execution failed", "pc", vm.pc, "steps", vm.steps, "error", err)
			return err
		}
		if !more {
			break
		}
	}

	vm.log.Info("VM halted",
		"steps", vm.steps,
		"diagnostics", vm.DiagnosticCount(),
		"elapsed", time.Since(start))
	return nil
}

// Step executes the instruction at the program counter. It reports
// whether the program can continue; a halted VM returns false and no error.
func (vm *VM) Step() (bool, error) {
	if vm.invalid != nil {
		return false, vm.invalid
	}
	if vm.Halted() {
		return false, nil
	}
	if vm.maxSteps > 0 && vm.steps >= vm.maxSteps {
		return false, NewStepLimitError(vm.maxSteps, vm.pc)
	}

	ins := vm.program[vm.pc]
	next := vm.pc + 1
	ev := evaluator{vm: vm}

	switch ins.Cmd {
	case opcode.Assign:
		vm.env.Set(ins.Name, ins.Expr.Eval(ev))
	case opcode.Jump:
		next = ins.Target
	case opcode.Branch:
		if ins.Expr.Eval(ev) != 0 {
			next = ins.True
		} else {
			next = ins.False
		}
	case opcode.Action:
		vm.dispatch(ins.Action, ins.Expr.Eval(ev))
	case opcode.Unset:
		vm.env.Delete(ins.Name)
	}

	vm.steps++
	vm.pc = next
	return !vm.Halted(), nil
}

func (vm *VM) dispatch(action opcode.ActionID, arg int) {
	switch action {
	case opcode.SetColor:
		vm.actions.SetColor(arg)
	case opcode.SetThickness:
		vm.actions.SetThickness(arg)
	case opcode.SetStroke:
		vm.actions.SetStroke(arg)
	case opcode.Move:
		vm.actions.Move(arg)
	case opcode.Turn:
		vm.actions.Turn(arg)
	}
}

// report records a non-fatal evaluation fault at the current instruction.
func (vm *VM) report(kind ast.DiagnosticKind, detail string) {
	d := NewDiagnostic(kind, detail, vm.pc, vm.program[vm.pc].String())
	vm.log.Warn("Runtime error", "type", d.Type, "pc", d.PC, "message", d.Message)
	if len(vm.diagnostics) >= MaxDiagnostics {
		vm.dropped++
		return
	}
	vm.diagnostics = append(vm.diagnostics, d)
}

// evaluator exposes the VM environment to expression evaluation.
type evaluator struct {
	vm *VM
}

func (e evaluator) Get(name string) (int, bool) { return e.vm.env.Get(name) }

func (e evaluator) Report(kind ast.DiagnosticKind, detail string) { e.vm.report(kind, detail) }

// Get returns the value of a variable and whether it is set.
func (vm *VM) Get(name string) (int, bool) {
	return vm.env.Get(name)
}

// Variables returns a copy of the user-visible variables.
func (vm *VM) Variables() map[string]int {
	return vm.env.Snapshot()
}

// Environment returns the VM's variable store.
func (vm *VM) Environment() *Environment {
	return vm.env
}

// Diagnostics returns the recorded non-fatal runtime errors in order.
func (vm *VM) Diagnostics() []*RuntimeError {
	out := make([]*RuntimeError, len(vm.diagnostics))
	copy(out, vm.diagnostics)
	return out
}

// DiagnosticCount returns the number of non-fatal errors, including those
// beyond MaxDiagnostics that were not recorded.
func (vm *VM) DiagnosticCount() int {
	return len(vm.diagnostics) + vm.dropped
}

// PC returns the program counter.
func (vm *VM) PC() int {
	return vm.pc
}

// Steps returns the number of executed instructions.
func (vm *VM) Steps() int {
	return vm.steps
}

// Halted reports whether the program counter has run off the program.
func (vm *VM) Halted() bool {
	return vm.pc >= len(vm.program)
}

// Program returns the program being executed.
func (vm *VM) Program() opcode.Program {
	return vm.program
}
