// Package runtime implements the bytecode interpreter: the register-arena
// VM that executes a compiled Script, and the Script artifact itself.
package runtime

import (
	"fmt"
	"math/rand"

	"github.com/tanema/scratchvm/bytecode"
	"github.com/tanema/scratchvm/conf"
	"github.com/tanema/scratchvm/host"
	"github.com/tanema/scratchvm/lerrors"
	"github.com/tanema/scratchvm/list"
	"github.com/tanema/scratchvm/value"
)

// LoopFrame is either a count loop (REPEAT_LOOP/FOREVER_LOOP) or a
// predicate loop (UNTIL_LOOP). Count loops track an iteration index against
// a max (-1 index means "never completes by count", i.e. FOREVER_LOOP);
// predicate loops only need to remember where their predicate region
// starts so it can be re-evaluated.
type LoopFrame struct {
	IsRepeatLoop bool
	Start        int64
	Index        int64
	Max          int64
}

// RNG is the source RANDOM and the list "random" index literal draw from.
// Injectable so tests and replay tooling can supply a seeded source; by
// default newVM installs a math/rand source seeded with 1.
type RNG interface {
	Intn(n int) int
	Float64() float64
}

// VM is one running (or suspended) instance of a Script: its own register
// arena, loop/call/argument-frame stacks, and control flags. Nothing about
// a VM is shared with any other VM, even one started from the same Script.
type VM struct {
	script *Script
	target host.Target
	rng    RNG
	sink   lerrors.Sink

	regs     []value.Value
	regCount int

	loopStack []LoopFrame
	callStack []int64

	argFrames      [][]value.Value
	currentArgsIdx int

	pc      int64
	atomic  bool
	stop    bool
	atEnd   bool
	started bool
}

// Option configures a VM at construction via newVM. Script.Start passes no
// options, so VMs it creates use the defaults.
type Option func(*VM)

// WithRNG overrides the default math/rand-backed source.
func WithRNG(rng RNG) Option { return func(vm *VM) { vm.rng = rng } }

// WithSink overrides the default diagnostic sink.
func WithSink(sink lerrors.Sink) Option { return func(vm *VM) { vm.sink = sink } }

func newVM(script *Script, target host.Target, opts ...Option) *VM {
	vm := &VM{
		script:         script,
		target:         target,
		rng:            rand.New(rand.NewSource(1)), //nolint:gosec // cross-host determinism is an explicit non-goal
		sink:           lerrors.DefaultSink,
		regs:           make([]value.Value, conf.REGISTERCOUNT),
		loopStack:      make([]LoopFrame, 0, conf.INITIALLOOPDEPTH),
		callStack:      make([]int64, 0, conf.INITIALCALLDEPTH),
		currentArgsIdx: -1,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// AtEnd reports whether the VM's outermost activation has finished, either
// by reaching HALT or by a host primitive calling Stop.
func (vm *VM) AtEnd() bool { return vm.atEnd }

// Stopped reports whether an EXEC callback requested a stop.
func (vm *VM) Stopped() bool { return vm.stop }

// Stop requests that the current run halt as soon as the in-flight EXEC
// callback returns, unwinding the call and argument-frame stacks. Host
// primitives implementing "stop this script"/"stop all" call this instead
// of returning an error, since stopping is normal control flow, not a
// fault.
func (vm *VM) Stop() { vm.stop = true }

// Script returns the Script this VM was started from.
func (vm *VM) Script() *Script { return vm.script }

// Target returns the Target this VM is bound to.
func (vm *VM) Target() host.Target { return vm.target }

// --- register arena, per §4.2 ---

// Push writes v to the top of the register arena and advances regCount.
func (vm *VM) Push(v value.Value) { vm.regs[vm.regCount] = v; vm.regCount++ }

// ReplaceTop overwrites the register `depth` below the top (depth=1 is the
// top itself) with v.
func (vm *VM) ReplaceTop(v value.Value, depth int) { vm.regs[vm.regCount-depth] = v }

// Read returns register i (0-based) counting from `depth` below the top.
func (vm *VM) Read(i, depth int) value.Value { return vm.regs[vm.regCount-depth+i] }

// ReadPtr returns a pointer to register i (0-based) counting from `depth`
// below the top, for in-place mutation (arithmetic ops).
func (vm *VM) ReadPtr(i, depth int) *value.Value { return &vm.regs[vm.regCount-depth+i] }

// Free discards the top k registers.
func (vm *VM) Free(k int) { vm.regCount -= k }

// RegCount reports the current register count, mostly for tests asserting
// register balance.
func (vm *VM) RegCount() int { return vm.regCount }

func (vm *VM) fatal(kind lerrors.ErrorKind, cause error) *lerrors.Error {
	return lerrors.Wrap(kind, vm.script.Name, vm.pc, nil, cause)
}

// Run executes from the VM's current program counter until it reaches
// atEnd, a stop request, or a yield point (a non-atomic LOOP_END, or an
// EXEC callback that requested stop). It returns a fatal error for
// malformed bytecode, register-stack misuse, or a missing procedure; any
// other condition (register leak, clone limit, broadcast/target miss) goes
// through the diagnostic sink instead.
func (vm *VM) Run() error {
	if !vm.started {
		vm.pc = 0
		vm.atomic = true
		vm.atEnd = false
		vm.started = true
	}
	for {
		op, args, ok := bytecode.Decode(vm.script.Bytecode, vm.pc)
		if !ok {
			return vm.fatal(lerrors.BytecodeErr, fmt.Errorf("malformed bytecode at pc %d", vm.pc))
		}
		switch op {
		case bytecode.HALT:
			if vm.regCount > 0 {
				vm.sink.Diagnostic(lerrors.RegisterLeak, map[string]string{
					"script": vm.script.Name,
				}, fmt.Sprintf("%d registers leaked at HALT", vm.regCount))
			}
			if len(vm.callStack) == 0 {
				vm.atEnd = true
				return nil
			}
			vm.pc = vm.callStack[len(vm.callStack)-1]
			vm.callStack = vm.callStack[:len(vm.callStack)-1]
			vm.argFrames = vm.argFrames[:len(vm.argFrames)-1]
			if len(vm.argFrames) == 0 {
				vm.currentArgsIdx = -1
			} else {
				vm.currentArgsIdx = len(vm.argFrames) - 1
			}
			continue

		case bytecode.IF:
			cond := vm.Read(0, 1)
			vm.Free(1)
			if cond.ToBool() {
				vm.pc += 1 + int64(len(args))
			} else {
				landing, ok := skipIfBranch(vm.script.Bytecode, vm.pc+1)
				if !ok {
					return vm.fatal(lerrors.BytecodeErr, fmt.Errorf("unterminated IF at pc %d", vm.pc))
				}
				// landing is the matching ELSE or ENDIF, both zero-arg, so
				// landing+1 is either the else-branch body or the
				// instruction right past an else-less IF.
				vm.pc = landing + 1
			}
			continue

		case bytecode.ELSE:
			landing, ok := skipToEndif(vm.script.Bytecode, vm.pc+1)
			if !ok {
				return vm.fatal(lerrors.BytecodeErr, fmt.Errorf("unterminated ELSE at pc %d", vm.pc))
			}
			vm.pc = landing
			continue

		case bytecode.ENDIF:
			vm.pc += 1 + int64(len(args))
			continue

		case bytecode.FOREVER_LOOP:
			vm.loopStack = append(vm.loopStack, LoopFrame{IsRepeatLoop: true, Start: vm.pc + 1, Index: -1})
			vm.pc++
			continue

		case bytecode.REPEAT_LOOP:
			count := vm.Read(0, 1).ToLong()
			vm.Free(1)
			if count <= 0 {
				landing, ok := skipLoopBody(vm.script.Bytecode, vm.pc+1)
				if !ok {
					return vm.fatal(lerrors.BytecodeErr, fmt.Errorf("unterminated REPEAT_LOOP at pc %d", vm.pc))
				}
				vm.pc = landing + 1
			} else {
				vm.loopStack = append(vm.loopStack, LoopFrame{IsRepeatLoop: true, Start: vm.pc + 1, Index: 0, Max: count})
				vm.pc++
			}
			continue

		case bytecode.UNTIL_LOOP:
			predStart := vm.pc + 1
			beginPC, err := vm.evalUntilCondition(predStart)
			if err != nil {
				return err
			}
			cond := vm.Read(0, 1)
			vm.Free(1)
			bodyStart := beginPC + 1
			if cond.ToBool() {
				landing, ok := skipLoopBody(vm.script.Bytecode, bodyStart)
				if !ok {
					return vm.fatal(lerrors.BytecodeErr, fmt.Errorf("unterminated UNTIL_LOOP at pc %d", vm.pc))
				}
				vm.pc = landing + 1
			} else {
				vm.loopStack = append(vm.loopStack, LoopFrame{IsRepeatLoop: false, Start: predStart})
				vm.pc = bodyStart
			}
			continue

		case bytecode.BEGIN_UNTIL_LOOP:
			return vm.fatal(lerrors.BytecodeErr, fmt.Errorf("BEGIN_UNTIL_LOOP reached outside predicate evaluation at pc %d", vm.pc))

		case bytecode.LOOP_END:
			yield, err := vm.handleLoopEnd()
			if err != nil {
				return err
			}
			if yield {
				return nil
			}
			continue

		case bytecode.BREAK_ATOMIC:
			vm.atomic = false
			vm.pc += 1 + int64(len(args))
			continue

		case bytecode.EXEC:
			fn := vm.script.Functions[args[0]]
			n, err := fn(vm)
			if err != nil {
				return vm.fatal(lerrors.UserErr, err)
			}
			vm.Free(n)
			if vm.stop {
				vm.stop = false
				if vm.regCount > 0 {
					vm.sink.Diagnostic(lerrors.RegisterLeak, map[string]string{
						"script": vm.script.Name,
					}, fmt.Sprintf("%d registers leaked on stop", vm.regCount))
				}
				vm.callStack = vm.callStack[:0]
				vm.argFrames = vm.argFrames[:0]
				vm.currentArgsIdx = -1
				vm.pc += 1 + int64(len(args))
				vm.atEnd = true
				return nil
			}
			vm.pc += 1 + int64(len(args))
			continue

		default:
			next, err := vm.execStep(op, args, vm.pc)
			if err != nil {
				return err
			}
			vm.pc = next
			continue
		}
	}
}

// handleLoopEnd closes one iteration of the innermost loop frame. It
// returns yield=true when the script is non-atomic and should return
// control to the scheduler at the VM's now-updated pc.
func (vm *VM) handleLoopEnd() (yield bool, err error) {
	if len(vm.loopStack) == 0 {
		return false, vm.fatal(lerrors.BytecodeErr, fmt.Errorf("LOOP_END with no open loop frame at pc %d", vm.pc))
	}
	top := &vm.loopStack[len(vm.loopStack)-1]
	if top.IsRepeatLoop {
		if top.Index == -1 {
			vm.pc = top.Start
		} else {
			top.Index++
			if top.Index < top.Max {
				vm.pc = top.Start
			} else {
				vm.loopStack = vm.loopStack[:len(vm.loopStack)-1]
				vm.pc++
			}
		}
	} else {
		beginPC, evalErr := vm.evalUntilCondition(top.Start)
		if evalErr != nil {
			return false, evalErr
		}
		cond := vm.Read(0, 1)
		vm.Free(1)
		if cond.ToBool() {
			vm.loopStack = vm.loopStack[:len(vm.loopStack)-1]
			vm.pc++
		} else {
			vm.pc = beginPC + 1
		}
	}
	return !vm.atomic, nil
}

// evalUntilCondition runs the predicate region starting at start (right
// after UNTIL_LOOP or at a predicate loop frame's Start) until it reaches
// BEGIN_UNTIL_LOOP, leaving the boolean predicate result as the sole
// pushed register. It returns BEGIN_UNTIL_LOOP's own pc.
func (vm *VM) evalUntilCondition(start int64) (int64, error) {
	pc := start
	for {
		op, args, ok := bytecode.Decode(vm.script.Bytecode, pc)
		if !ok {
			return 0, vm.fatal(lerrors.BytecodeErr, fmt.Errorf("malformed until-predicate at pc %d", pc))
		}
		if op == bytecode.BEGIN_UNTIL_LOOP {
			return pc, nil
		}
		switch op {
		case bytecode.HALT, bytecode.FOREVER_LOOP, bytecode.REPEAT_LOOP, bytecode.UNTIL_LOOP, bytecode.LOOP_END:
			return 0, vm.fatal(lerrors.BytecodeErr, fmt.Errorf("unsupported opcode %v inside until-predicate at pc %d", op, pc))
		}
		next, err := vm.execStep(op, args, pc)
		if err != nil {
			return 0, err
		}
		pc = next
	}
}

// skipIfBranch scans forward from start (right after an IF) to the matching
// ELSE or ENDIF, tracking nested IF/ENDIF depth so an inner if-block's own
// markers don't stop the scan early.
func skipIfBranch(code []uint32, start int64) (int64, bool) {
	pc := start
	depth := 0
	for {
		op, args, ok := bytecode.Decode(code, pc)
		if !ok {
			return 0, false
		}
		switch {
		case op == bytecode.IF:
			depth++
		case op == bytecode.ENDIF:
			if depth == 0 {
				return pc, true
			}
			depth--
		case op == bytecode.ELSE && depth == 0:
			return pc, true
		}
		pc += 1 + int64(len(args))
	}
}

// skipToEndif scans forward from start to the matching ENDIF, tracking
// nested IF/ENDIF depth; used both by ELSE and by the "condition true"
// branch of IF landing on ELSE.
func skipToEndif(code []uint32, start int64) (int64, bool) {
	return skipTo(code, start, func(op bytecode.Op) bool { return op == bytecode.IF }, func(op bytecode.Op) bool { return op == bytecode.ENDIF })
}

// skipLoopBody scans forward from start to the matching LOOP_END, tracking
// nested loop-opener/LOOP_END depth.
func skipLoopBody(code []uint32, start int64) (int64, bool) {
	return skipTo(code, start, func(op bytecode.Op) bool {
		return op == bytecode.FOREVER_LOOP || op == bytecode.REPEAT_LOOP || op == bytecode.UNTIL_LOOP
	}, func(op bytecode.Op) bool { return op == bytecode.LOOP_END })
}

func skipTo(code []uint32, start int64, isOpen, isClose func(bytecode.Op) bool) (int64, bool) {
	pc := start
	depth := 0
	for {
		op, args, ok := bytecode.Decode(code, pc)
		if !ok {
			return 0, false
		}
		if isClose(op) {
			if depth == 0 {
				return pc, true
			}
			depth--
		} else if isOpen(op) {
			depth++
		}
		pc += 1 + int64(len(args))
	}
}

func randInt(rng RNG, lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + rng.Intn(hi-lo+1)
}

func (vm *VM) listRNG() func(lo, hi int) int {
	return func(lo, hi int) int { return randInt(vm.rng, lo, hi) }
}

// resolveList looks up the list at the script-local index carried in args.
func (vm *VM) resolveList(scriptIdx uint32) *list.List {
	targetIdx := vm.script.ListRefs[scriptIdx]
	return vm.target.List(targetIdx)
}

// resolveVar looks up the variable at the script-local index carried in
// args.
func (vm *VM) resolveVar(scriptIdx uint32) *value.Value {
	targetIdx := vm.script.VariableRefs[scriptIdx]
	return vm.target.Variable(targetIdx)
}
