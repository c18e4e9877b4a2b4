// Package host specifies the external-collaborator boundary: the
// interfaces a hosting application (renderer, asset pipeline, block
// compiler) implements so the VM and engine can observe and mutate the
// world without depending on any concrete rendering/IO/parsing stack. The
// only implementations in this module are the engine's system Clock, the
// Engine's own KeyState, and the CLI's stand-in Target; project file
// parsing, the block-graph compiler, rendering, audio, physics, and input
// polling are all out of scope.
package host

import (
	"time"

	"github.com/tanema/scratchvm/list"
	"github.com/tanema/scratchvm/value"
)

// Target is a named sprite or the stage: the shared mutable context a
// Script runs against. The VM holds non-owning references into a Target's
// Variables/Lists; it never copies or owns them.
type Target interface {
	Name() string
	IsStage() bool
	LayerOrder() int
	Variable(idx int) *value.Value
	List(idx int) *list.List
}

// Compiler produces a Script by emitting opcodes and populating constant/
// variable/list/function/procedure tables from a block graph. It is
// specified here only as the seam the VM consumes; no implementation
// ships in this module.
type Compiler interface {
	Compile(target Target) (Bytecode, error)
}

// Bytecode is the opaque compiled-program shape a Compiler hands to
// Script construction; kept minimal since the compiler itself is out of
// scope.
type Bytecode interface {
	Words() []uint32
}

// Clock is the injectable time source the engine's event loop paces
// against.
type Clock interface {
	CurrentSteadyTime() time.Time
	Sleep(d time.Duration)
}

// RedrawHook is called once at the end of every step, whether or not a
// redraw was requested; it takes no arguments and returns nothing because
// rendering itself is out of scope.
type RedrawHook func()

// KeyState lets a host report which keys are currently held, for
// KeyPressed hats and the `key pressed?` primitive.
type KeyState interface {
	IsKeyPressed(key string) bool
}

// MouseState lets a host report pointer position and button state.
type MouseState interface {
	Position() (x, y float64)
	IsDown() bool
}
