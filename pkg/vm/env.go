// Package vm provides variable storage for the robologo virtual machine.
package vm

import (
	"strings"
	"sync"
)

// HiddenPrefix starts the names of compiler-generated variables such as
// repeat counters. User identifiers can never start with it.
const HiddenPrefix = "#"

// Environment is the flat integer variable store of a VM. Reads of an
// unset name report ok=false; the VM turns that into a zero value and a
// diagnostic. All methods are safe for concurrent use so the store can be
// inspected while a program runs.
type Environment struct {
	variables map[string]int
	mu        sync.RWMutex
}

// NewEnvironment creates an empty environment.
func NewEnvironment() *Environment {
	return &Environment{
		variables: make(map[string]int),
	}
}

// Get retrieves a variable value by name.
func (e *Environment) Get(name string) (int, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	value, ok := e.variables[name]
	return value, ok
}

// Set creates or overwrites a variable.
func (e *Environment) Set(name string, value int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variables[name] = value
}

// Delete removes a variable.
//
// Returns:
//   - bool: true if the variable was deleted, false if it didn't exist
func (e *Environment) Delete(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.variables[name]; ok {
		delete(e.variables, name)
		return true
	}
	return false
}

// Size returns the number of variables, hidden ones included.
func (e *Environment) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.variables)
}

// Snapshot copies the user-visible variables; compiler-generated names
// are left out.
func (e *Environment) Snapshot() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]int, len(e.variables))
	for k, v := range e.variables {
		if strings.HasPrefix(k, HiddenPrefix) {
			continue
		}
		out[k] = v
	}
	return out
}
