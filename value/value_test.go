package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToBool(t *testing.T) {
	t.Parallel()
	assert.True(t, NewNumber(1).ToBool())
	assert.False(t, NewNumber(0).ToBool())
	assert.True(t, NewString("true").ToBool())
	assert.True(t, NewString("1").ToBool())
	assert.False(t, NewString("false").ToBool())
	assert.False(t, NewString("0").ToBool())
	assert.False(t, NewString("").ToBool())
	assert.True(t, NewString("hello").ToBool())
	assert.True(t, NewSpecial(Infinity).ToBool())
	assert.False(t, NewSpecial(NaN).ToBool())
}

func TestToDoubleAndToLong(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 4.0, NewString("4").ToDouble())
	assert.Equal(t, 0.0, NewString("not a number").ToDouble())
	assert.Equal(t, int64(4), NewString("4.9").ToLong())
	assert.Equal(t, int64(0), NewSpecial(Infinity).ToLong())
	assert.Equal(t, int64(0), NewSpecial(NaN).ToLong())
}

func TestToStringRendersSpecials(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Infinity", NewSpecial(Infinity).ToString())
	assert.Equal(t, "-Infinity", NewSpecial(NegativeInfinity).ToString())
	assert.Equal(t, "NaN", NewSpecial(NaN).ToString())
	assert.Equal(t, "7", NewLong(7).ToString())
}

func TestIngestNormalizesNonFiniteNumbers(t *testing.T) {
	t.Parallel()
	assert.True(t, NewNumber(math.Inf(1)).IsInfinity())
	assert.True(t, NewNumber(math.Inf(-1)).IsNegativeInfinity())
	assert.True(t, NewNumber(math.NaN()).IsNaN())
}

func TestCompareNumeric(t *testing.T) {
	t.Parallel()
	assert.Equal(t, -1, NewNumber(1).Compare(NewNumber(2)))
	assert.Equal(t, 1, NewNumber(2).Compare(NewNumber(1)))
	assert.Equal(t, 0, NewNumber(2).Compare(NewLong(2)))
}

func TestCompareFallsBackToCaseInsensitiveString(t *testing.T) {
	t.Parallel()
	assert.True(t, NewString("Hello").Equals(NewString("hello")))
	assert.False(t, NewString("cat").Equals(NewString("dog")))
}

func TestAddInfinityPropagation(t *testing.T) {
	t.Parallel()
	inf := NewSpecial(Infinity)
	negInf := NewSpecial(NegativeInfinity)

	v := NewSpecial(Infinity)
	v.Add(inf)
	assert.True(t, v.IsInfinity())

	v = NewSpecial(Infinity)
	v.Add(negInf)
	assert.True(t, v.IsNaN())

	v = NewNumber(5)
	v.Add(inf)
	assert.True(t, v.IsInfinity())
}

func TestDivideByZero(t *testing.T) {
	t.Parallel()
	v := NewNumber(5)
	v.Divide(NewNumber(0))
	assert.True(t, v.IsInfinity())

	v = NewNumber(0)
	v.Divide(NewNumber(0))
	assert.True(t, v.IsNaN())
}

func TestModMatchesDivisorSign(t *testing.T) {
	t.Parallel()
	v := NewNumber(-7)
	v.Mod(NewNumber(3))
	assert.Equal(t, 2.0, v.ToDouble())

	v = NewNumber(7)
	v.Mod(NewNumber(-3))
	assert.Equal(t, -2.0, v.ToDouble())

	v = NewNumber(5)
	v.Mod(NewNumber(0))
	assert.True(t, v.IsNaN())
}

func TestAbsNegativeInfinityBecomesInfinity(t *testing.T) {
	t.Parallel()
	v := NewSpecial(NegativeInfinity)
	v.Abs()
	assert.True(t, v.IsInfinity())
}

func TestSqrtDomain(t *testing.T) {
	t.Parallel()
	v := NewNumber(-4)
	v.Sqrt()
	assert.True(t, v.IsNaN())

	v = NewNumber(4)
	v.Sqrt()
	assert.Equal(t, 2.0, v.ToDouble())

	v = NewSpecial(Infinity)
	v.Sqrt()
	assert.True(t, v.IsInfinity())
}

func TestTanAsymptotes(t *testing.T) {
	t.Parallel()
	v := NewLong(90)
	v.Tan()
	assert.True(t, v.IsInfinity())

	v = NewLong(270)
	v.Tan()
	assert.True(t, v.IsNegativeInfinity())

	v = NewLong(450)
	v.Tan()
	assert.True(t, v.IsInfinity())
}

func TestInverseTrigDomainPreservedForCompatibility(t *testing.T) {
	t.Parallel()
	v := NewNumber(2)
	v.Atan()
	assert.True(t, v.IsNaN())

	v = NewNumber(2)
	v.Asin()
	assert.True(t, v.IsNaN())

	v = NewNumber(0.5)
	v.Atan()
	assert.False(t, v.IsNaN())
}

func TestRoundProducesLong(t *testing.T) {
	t.Parallel()
	v := NewNumber(2.6)
	v.Round()
	assert.Equal(t, Long, v.Kind())
	assert.Equal(t, int64(3), v.ToLong())
}

func TestRoundLeavesSpecialValuesUnchanged(t *testing.T) {
	t.Parallel()

	v := NewSpecial(Infinity)
	v.Round()
	assert.True(t, v.IsInfinity())

	v = NewSpecial(NegativeInfinity)
	v.Round()
	assert.True(t, v.IsNegativeInfinity())

	v = NewSpecial(NaN)
	v.Round()
	assert.True(t, v.IsNaN())
}

func TestDefaultValueCoercesToZeroAndFalse(t *testing.T) {
	t.Parallel()
	d := Default()
	assert.Equal(t, 0.0, d.ToDouble())
	assert.False(t, d.ToBool())
	assert.Equal(t, "", d.ToString())
}

func TestToUTF16(t *testing.T) {
	t.Parallel()
	units := NewString("hi").ToUTF16()
	assert.Equal(t, []uint16{'h', 'i'}, units)
}
