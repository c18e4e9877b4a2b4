package runtime

import (
	"github.com/tanema/scratchvm/host"
	"github.com/tanema/scratchvm/value"
)

// HostFunc is a host-primitive callback reachable via EXEC. It receives the
// VM so it can read/replace registers through the same API bytecode
// opcodes use, and returns how many registers it consumed; the VM frees
// exactly that many.
type HostFunc func(*VM) (int, error)

// Script is the immutable compiled artifact for one top-level block: flat
// bytecode, a constant table, per-script index tables naming which of the
// owning Target's variables/lists each script-local index resolves to, a
// table of host callbacks, and a table of procedure entry points. Nothing
// about a Script changes once built; the same Script backs any number of
// concurrently running VMs (a sprite's original plus every clone), since
// Start binds the Target only at run time.
type Script struct {
	Name         string
	Bytecode     []uint32
	Constants    []value.Value
	VariableRefs []int
	ListRefs     []int
	Functions    []HostFunc
	Procedures   []int64
	// Atomic is true for scripts compiled from a "run without screen
	// refresh" top-level block: their bytecode never contains
	// BREAK_ATOMIC, so they run every LOOP_END to completion within a
	// single step.
	Atomic bool
}

// Start creates a fresh VM bound to target, ready to run from the
// beginning.
func (s *Script) Start(target host.Target) *VM {
	return newVM(s, target)
}
