package runtime

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/tanema/scratchvm/bytecode"
	"github.com/tanema/scratchvm/lerrors"
	"github.com/tanema/scratchvm/value"
)

// execStep executes every opcode that isn't structural control flow (those
// are handled directly in Run, since they move pc by more than one
// instruction's width or need access to the loop/call stacks). It is also
// the engine evalUntilCondition nested-reentry runs against, so arithmetic,
// list, string, variable, and procedure semantics are never duplicated
// between top-level dispatch and predicate evaluation. It returns the next
// pc.
func (vm *VM) execStep(op bytecode.Op, args []uint32, pc int64) (int64, error) {
	next := pc + 1 + int64(len(args))
	switch op {
	case bytecode.CONST:
		vm.Push(vm.script.Constants[args[0]])

	case bytecode.NULL:
		vm.Push(value.Default())

	case bytecode.PRINT:
		fmt.Println(vm.Read(0, 1).ToString())
		vm.Free(1)

	case bytecode.ADD:
		a := vm.ReadPtr(0, 2)
		a.Add(vm.Read(1, 2))
		vm.Free(1)
	case bytecode.SUB:
		a := vm.ReadPtr(0, 2)
		a.Subtract(vm.Read(1, 2))
		vm.Free(1)
	case bytecode.MUL:
		a := vm.ReadPtr(0, 2)
		a.Multiply(vm.Read(1, 2))
		vm.Free(1)
	case bytecode.DIV:
		a := vm.ReadPtr(0, 2)
		a.Divide(vm.Read(1, 2))
		vm.Free(1)
	case bytecode.MOD:
		a := vm.ReadPtr(0, 2)
		a.Mod(vm.Read(1, 2))
		vm.Free(1)

	case bytecode.RANDOM:
		lo := vm.Read(0, 2).ToDouble()
		hi := vm.Read(1, 2).ToDouble()
		vm.Free(1)
		vm.ReplaceTop(vm.drawRandom(lo, hi), 1)

	case bytecode.ROUND:
		vm.ReadPtr(0, 1).Round()
	case bytecode.ABS:
		vm.ReadPtr(0, 1).Abs()
	case bytecode.FLOOR:
		vm.ReadPtr(0, 1).Floor()
	case bytecode.CEIL:
		vm.ReadPtr(0, 1).Ceil()
	case bytecode.SQRT:
		vm.ReadPtr(0, 1).Sqrt()
	case bytecode.SIN:
		vm.ReadPtr(0, 1).Sin()
	case bytecode.COS:
		vm.ReadPtr(0, 1).Cos()
	case bytecode.TAN:
		vm.ReadPtr(0, 1).Tan()
	case bytecode.ASIN:
		vm.ReadPtr(0, 1).Asin()
	case bytecode.ACOS:
		vm.ReadPtr(0, 1).Acos()
	case bytecode.ATAN:
		vm.ReadPtr(0, 1).Atan()

	case bytecode.GT:
		res := vm.Read(0, 2).Compare(vm.Read(1, 2)) > 0
		vm.Free(1)
		vm.ReplaceTop(value.NewBool(res), 1)
	case bytecode.LT:
		res := vm.Read(0, 2).Compare(vm.Read(1, 2)) < 0
		vm.Free(1)
		vm.ReplaceTop(value.NewBool(res), 1)
	case bytecode.EQ:
		res := vm.Read(0, 2).Equals(vm.Read(1, 2))
		vm.Free(1)
		vm.ReplaceTop(value.NewBool(res), 1)
	case bytecode.AND:
		res := vm.Read(0, 2).ToBool() && vm.Read(1, 2).ToBool()
		vm.Free(1)
		vm.ReplaceTop(value.NewBool(res), 1)
	case bytecode.OR:
		res := vm.Read(0, 2).ToBool() || vm.Read(1, 2).ToBool()
		vm.Free(1)
		vm.ReplaceTop(value.NewBool(res), 1)
	case bytecode.NOT:
		res := !vm.Read(0, 1).ToBool()
		vm.ReplaceTop(value.NewBool(res), 1)

	case bytecode.SET_VAR:
		*vm.resolveVar(args[0]) = vm.Read(0, 1)
		vm.Free(1)
	case bytecode.CHANGE_VAR:
		vm.resolveVar(args[0]).Add(vm.Read(0, 1))
		vm.Free(1)
	case bytecode.READ_VAR:
		vm.Push(*vm.resolveVar(args[0]))

	case bytecode.READ_LIST:
		vm.Push(value.NewString(vm.resolveList(args[0]).ToString()))
	case bytecode.LIST_APPEND:
		vm.resolveList(args[0]).Append(vm.Read(0, 1))
		vm.Free(1)
	case bytecode.LIST_DEL:
		vm.resolveList(args[0]).Delete(vm.Read(0, 1), vm.listRNG())
		vm.Free(1)
	case bytecode.LIST_DEL_ALL:
		vm.resolveList(args[0]).Clear()
	case bytecode.LIST_INSERT:
		item := vm.Read(0, 2)
		index := vm.Read(1, 2)
		vm.Free(2)
		vm.resolveList(args[0]).Insert(index, item, vm.listRNG())
	case bytecode.LIST_REPLACE:
		index := vm.Read(0, 2)
		item := vm.Read(1, 2)
		vm.Free(2)
		vm.resolveList(args[0]).Replace(index, item, vm.listRNG())
	case bytecode.LIST_GET_ITEM:
		result := vm.resolveList(args[0]).GetItem(vm.Read(0, 1), vm.listRNG())
		vm.ReplaceTop(result, 1)
	case bytecode.LIST_INDEX_OF:
		result := vm.resolveList(args[0]).IndexOf(vm.Read(0, 1))
		vm.ReplaceTop(value.NewLong(int64(result)), 1)
	case bytecode.LIST_LENGTH:
		vm.Push(value.NewLong(int64(vm.resolveList(args[0]).Size())))
	case bytecode.LIST_CONTAINS:
		result := vm.resolveList(args[0]).Contains(vm.Read(0, 1))
		vm.ReplaceTop(value.NewBool(result), 1)

	case bytecode.STR_CONCAT:
		a := vm.Read(0, 2).ToString()
		b := vm.Read(1, 2).ToString()
		vm.Free(1)
		vm.ReplaceTop(value.NewString(a+b), 1)
	case bytecode.STR_AT:
		units := vm.Read(0, 2).ToUTF16()
		idx := int(vm.Read(1, 2).ToLong())
		vm.Free(1)
		result := ""
		if idx >= 1 && idx <= len(units) {
			result = string(utf16.Decode(units[idx-1 : idx]))
		}
		vm.ReplaceTop(value.NewString(result), 1)
	case bytecode.STR_LENGTH:
		n := len(vm.Read(0, 1).ToUTF16())
		vm.ReplaceTop(value.NewLong(int64(n)), 1)
	case bytecode.STR_CONTAINS:
		haystack := strings.ToLower(vm.Read(0, 2).ToString())
		needle := strings.ToLower(vm.Read(1, 2).ToString())
		vm.Free(1)
		vm.ReplaceTop(value.NewBool(strings.Contains(haystack, needle)), 1)

	case bytecode.INIT_PROCEDURE:
		vm.argFrames = append(vm.argFrames, nil)
	case bytecode.ADD_ARG:
		top := len(vm.argFrames) - 1
		vm.argFrames[top] = append(vm.argFrames[top], vm.Read(0, 1))
		vm.Free(1)
	case bytecode.CALL_PROCEDURE:
		procIdx := args[0]
		if int(procIdx) >= len(vm.script.Procedures) {
			return 0, vm.fatal(lerrors.MissingProcedureErr, fmt.Errorf("no procedure at index %d", procIdx))
		}
		entry := vm.script.Procedures[procIdx]
		vm.callStack = append(vm.callStack, next)
		vm.currentArgsIdx = len(vm.argFrames) - 1
		return entry, nil
	case bytecode.READ_ARG:
		if vm.currentArgsIdx < 0 || int(args[0]) >= len(vm.argFrames[vm.currentArgsIdx]) {
			return 0, vm.fatal(lerrors.RegisterErr, fmt.Errorf("READ_ARG %d out of range", args[0]))
		}
		vm.Push(vm.argFrames[vm.currentArgsIdx][args[0]])

	default:
		return 0, vm.fatal(lerrors.BytecodeErr, fmt.Errorf("unhandled opcode %v at pc %d", op, pc))
	}
	return next, nil
}

// drawRandom picks a uniform value in [lo, hi]. When both bounds coerce to
// whole numbers the draw is an inclusive integer pick; otherwise it's a
// continuous float draw, matching the two distinct RANDOM behaviors
// Scratch's "pick random" block exposes.
func (vm *VM) drawRandom(lo, hi float64) value.Value {
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == float64(int64(lo)) && hi == float64(int64(hi)) {
		return value.NewLong(int64(randInt(vm.rng, int(lo), int(hi))))
	}
	return value.NewNumber(lo + vm.rng.Float64()*(hi-lo))
}
