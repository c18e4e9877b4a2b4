package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanema/scratchvm/bytecode"
	"github.com/tanema/scratchvm/value"
)

// prog concatenates a sequence of encoded instructions into one bytecode
// stream, returning the stream and the starting pc of each instruction (in
// encoding order) so tests can reference jump targets without hand
// counting words.
func prog(instrs ...[]uint32) (code []uint32, starts []int64) {
	for _, in := range instrs {
		starts = append(starts, int64(len(code)))
		code = append(code, in...)
	}
	return code, starts
}

func enc(op bytecode.Op, args ...uint32) []uint32 { return bytecode.Encode(op, args...) }

func TestArithmeticThroughVariable(t *testing.T) {
	t.Parallel()
	code, _ := prog(
		enc(bytecode.CONST, 0),
		enc(bytecode.CONST, 1),
		enc(bytecode.ADD),
		enc(bytecode.SET_VAR, 0),
		enc(bytecode.HALT),
	)
	script := &Script{
		Name:         "s1",
		Bytecode:     code,
		Constants:    []value.Value{value.NewNumber(5), value.NewNumber(3)},
		VariableRefs: []int{0},
	}
	target := newFakeTarget(1, 0)
	vm := script.Start(target)
	require.NoError(t, vm.Run())
	assert.True(t, vm.AtEnd())
	assert.Equal(t, float64(8), target.Variable(0).ToDouble())
	assert.Equal(t, 0, vm.RegCount())
}

func TestRepeatLoopRunsExactCount(t *testing.T) {
	t.Parallel()
	code, _ := prog(
		enc(bytecode.CONST, 0), // count = 3
		enc(bytecode.REPEAT_LOOP),
		enc(bytecode.CONST, 1), // delta = 1
		enc(bytecode.CHANGE_VAR, 0),
		enc(bytecode.LOOP_END),
		enc(bytecode.HALT),
	)
	script := &Script{
		Name:         "s2",
		Bytecode:     code,
		Constants:    []value.Value{value.NewLong(3), value.NewNumber(1)},
		VariableRefs: []int{0},
		Atomic:       true,
	}
	target := newFakeTarget(1, 0)
	vm := script.Start(target)
	require.NoError(t, vm.Run())
	assert.True(t, vm.AtEnd())
	assert.Equal(t, float64(3), target.Variable(0).ToDouble())
}

func TestRepeatLoopWithNonPositiveCountSkipsBody(t *testing.T) {
	t.Parallel()
	code, _ := prog(
		enc(bytecode.CONST, 0), // count = 0
		enc(bytecode.REPEAT_LOOP),
		enc(bytecode.CONST, 1),
		enc(bytecode.CHANGE_VAR, 0),
		enc(bytecode.LOOP_END),
		enc(bytecode.HALT),
	)
	script := &Script{
		Name:         "s2b",
		Bytecode:     code,
		Constants:    []value.Value{value.NewLong(0), value.NewNumber(1)},
		VariableRefs: []int{0},
	}
	target := newFakeTarget(1, 0)
	vm := script.Start(target)
	require.NoError(t, vm.Run())
	assert.Equal(t, float64(0), target.Variable(0).ToDouble())
}

func TestForeverLoopWithBreakAtomicYieldsPerIteration(t *testing.T) {
	t.Parallel()
	code, _ := prog(
		enc(bytecode.FOREVER_LOOP),
		enc(bytecode.CONST, 0), // delta = 1
		enc(bytecode.CHANGE_VAR, 0),
		enc(bytecode.BREAK_ATOMIC),
		enc(bytecode.LOOP_END),
		enc(bytecode.HALT),
	)
	script := &Script{
		Name:         "s3",
		Bytecode:     code,
		Constants:    []value.Value{value.NewNumber(1)},
		VariableRefs: []int{0},
	}
	target := newFakeTarget(1, 0)
	vm := script.Start(target)

	require.NoError(t, vm.Run())
	assert.False(t, vm.AtEnd())
	assert.Equal(t, float64(1), target.Variable(0).ToDouble())

	require.NoError(t, vm.Run())
	assert.False(t, vm.AtEnd())
	assert.Equal(t, float64(2), target.Variable(0).ToDouble())

	require.NoError(t, vm.Run())
	assert.False(t, vm.AtEnd())
	assert.Equal(t, float64(3), target.Variable(0).ToDouble())
}

func TestTanAtAsymptotesAndZero(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		deg  int64
		want func(value.Value) bool
	}{
		{90, value.Value.IsInfinity},
		{270, value.Value.IsNegativeInfinity},
	} {
		code, _ := prog(
			enc(bytecode.CONST, 0),
			enc(bytecode.TAN),
			enc(bytecode.SET_VAR, 0),
			enc(bytecode.HALT),
		)
		script := &Script{
			Name:         "s4",
			Bytecode:     code,
			Constants:    []value.Value{value.NewLong(tc.deg)},
			VariableRefs: []int{0},
		}
		target := newFakeTarget(1, 0)
		vm := script.Start(target)
		require.NoError(t, vm.Run())
		assert.True(t, tc.want(*target.Variable(0)))
	}

	code, _ := prog(
		enc(bytecode.CONST, 0),
		enc(bytecode.TAN),
		enc(bytecode.SET_VAR, 0),
		enc(bytecode.HALT),
	)
	script := &Script{
		Name:         "s4-zero",
		Bytecode:     code,
		Constants:    []value.Value{value.NewLong(0)},
		VariableRefs: []int{0},
	}
	target := newFakeTarget(1, 0)
	vm := script.Start(target)
	require.NoError(t, vm.Run())
	assert.InDelta(t, 0, target.Variable(0).ToDouble(), 1e-9)
}

func TestListAppendAndGetItem(t *testing.T) {
	t.Parallel()
	code, _ := prog(
		enc(bytecode.CONST, 0), // "a"
		enc(bytecode.LIST_APPEND, 0),
		enc(bytecode.CONST, 1), // "b"
		enc(bytecode.LIST_APPEND, 0),
		enc(bytecode.CONST, 2), // index 1
		enc(bytecode.LIST_GET_ITEM, 0),
		enc(bytecode.SET_VAR, 0),
		enc(bytecode.HALT),
	)
	script := &Script{
		Name:      "s5",
		Bytecode:  code,
		Constants: []value.Value{value.NewString("a"), value.NewString("b"), value.NewLong(1)},
		VariableRefs: []int{0},
		ListRefs:     []int{0},
	}
	target := newFakeTarget(1, 1)
	vm := script.Start(target)
	require.NoError(t, vm.Run())
	assert.Equal(t, "a", target.Variable(0).ToString())
	assert.Equal(t, 2, target.List(0).Size())
}

func TestProcedureCallWithArgument(t *testing.T) {
	t.Parallel()
	main := []uint32{}
	main = append(main, enc(bytecode.INIT_PROCEDURE)...)
	main = append(main, enc(bytecode.CONST, 0)...) // arg value 7
	main = append(main, enc(bytecode.ADD_ARG)...)
	main = append(main, enc(bytecode.CALL_PROCEDURE, 0)...)
	main = append(main, enc(bytecode.HALT)...)

	procStart := int64(len(main))
	proc := []uint32{}
	proc = append(proc, enc(bytecode.READ_ARG, 0)...)
	proc = append(proc, enc(bytecode.SET_VAR, 0)...)
	proc = append(proc, enc(bytecode.HALT)...)

	code := append(main, proc...)
	script := &Script{
		Name:         "s6",
		Bytecode:     code,
		Constants:    []value.Value{value.NewNumber(7)},
		VariableRefs: []int{0},
		Procedures:   []int64{procStart},
	}
	target := newFakeTarget(1, 0)
	vm := script.Start(target)
	require.NoError(t, vm.Run())
	assert.True(t, vm.AtEnd())
	assert.Equal(t, float64(7), target.Variable(0).ToDouble())
	assert.Equal(t, 0, vm.RegCount())
}

func TestIfElseTakesCorrectBranch(t *testing.T) {
	t.Parallel()
	code, _ := prog(
		enc(bytecode.CONST, 0), // false
		enc(bytecode.IF),
		enc(bytecode.CONST, 1), // would set 1
		enc(bytecode.SET_VAR, 0),
		enc(bytecode.ELSE),
		enc(bytecode.CONST, 2), // sets 2
		enc(bytecode.SET_VAR, 0),
		enc(bytecode.ENDIF),
		enc(bytecode.HALT),
	)
	script := &Script{
		Name:         "if-else",
		Bytecode:     code,
		Constants:    []value.Value{value.NewBool(false), value.NewNumber(1), value.NewNumber(2)},
		VariableRefs: []int{0},
	}
	target := newFakeTarget(1, 0)
	vm := script.Start(target)
	require.NoError(t, vm.Run())
	assert.Equal(t, float64(2), target.Variable(0).ToDouble())
}

func TestUntilLoopRunsUntilPredicateTrue(t *testing.T) {
	t.Parallel()
	// until (var = 3): change var by 1
	code, _ := prog(
		enc(bytecode.UNTIL_LOOP),
		enc(bytecode.READ_VAR, 0),
		enc(bytecode.CONST, 0), // 3
		enc(bytecode.EQ),
		enc(bytecode.BEGIN_UNTIL_LOOP),
		enc(bytecode.CONST, 1), // 1
		enc(bytecode.CHANGE_VAR, 0),
		enc(bytecode.LOOP_END),
		enc(bytecode.HALT),
	)
	script := &Script{
		Name:         "until",
		Bytecode:     code,
		Constants:    []value.Value{value.NewLong(3), value.NewNumber(1)},
		VariableRefs: []int{0},
		Atomic:       true,
	}
	target := newFakeTarget(1, 0)
	vm := script.Start(target)
	require.NoError(t, vm.Run())
	assert.True(t, vm.AtEnd())
	assert.Equal(t, float64(3), target.Variable(0).ToDouble())
}
