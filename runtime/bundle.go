package runtime

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/shamaton/msgpack/v2"

	"github.com/tanema/scratchvm/conf"
	"github.com/tanema/scratchvm/value"
)

// bundleEnvelope is the on-wire shape of a dumped Script: a signature/version
// header the loader checks before handing the payload to msgpack, followed
// by the Script fields msgpack can serialize directly (HostFunc callbacks
// can't cross the wire, so Functions is rebuilt by the host after load via
// BindFunctions).
type bundleEnvelope struct {
	Name         string
	Bytecode     []uint32
	Constants    []bundledValue
	VariableRefs []int
	ListRefs     []int
	Procedures   []int64
	Atomic       bool
}

// bundledValue is an exported, msgpack-walkable shape for value.Value, which
// keeps its own fields unexported so nothing outside the package can
// construct an inconsistent Value. Only the field matching Kind is
// meaningful; the rest are zero.
type bundledValue struct {
	Kind    value.Kind
	Num     float64
	Long    int64
	Bool    bool
	Str     string
	Special value.SpecialKind
}

func toBundledValue(v value.Value) bundledValue {
	b := bundledValue{Kind: v.Kind()}
	switch v.Kind() {
	case value.Number:
		b.Num = v.ToDouble()
	case value.Long:
		b.Long = v.ToLong()
	case value.Bool:
		b.Bool = v.ToBool()
	case value.String:
		b.Str = v.ToString()
	case value.Special:
		switch {
		case v.IsInfinity():
			b.Special = value.Infinity
		case v.IsNegativeInfinity():
			b.Special = value.NegativeInfinity
		default:
			b.Special = value.NaN
		}
	}
	return b
}

func fromBundledValue(b bundledValue) value.Value {
	switch b.Kind {
	case value.Number:
		return value.NewNumber(b.Num)
	case value.Long:
		return value.NewLong(b.Long)
	case value.Bool:
		return value.NewBool(b.Bool)
	case value.String:
		return value.NewString(b.Str)
	case value.Special:
		return value.NewSpecial(b.Special)
	default:
		return value.Default()
	}
}

// Dump serializes a Script to w, preceded by conf.BUNDLESIGNATURE and the
// current conf.BUNDLEVERSION so LoadScript can reject foreign or
// incompatible data before decoding it.
func Dump(w io.Writer, s *Script) error {
	if _, err := io.WriteString(w, conf.BUNDLESIGNATURE); err != nil {
		return err
	}
	if err := msgpack.MarshalWrite(w, conf.BUNDLEVERSION); err != nil {
		return err
	}
	env := bundleEnvelope{
		Name:         s.Name,
		Bytecode:     s.Bytecode,
		VariableRefs: s.VariableRefs,
		ListRefs:     s.ListRefs,
		Procedures:   s.Procedures,
		Atomic:       s.Atomic,
	}
	for _, c := range s.Constants {
		env.Constants = append(env.Constants, toBundledValue(c))
	}
	return msgpack.MarshalWrite(w, env)
}

// LoadScript decodes a bundle written by Dump. The returned Script has no
// Functions; callers wire host callbacks in afterward via
// Script.BindFunctions, since callbacks can't be serialized.
func LoadScript(r io.Reader) (*Script, error) {
	sig := make([]byte, len(conf.BUNDLESIGNATURE))
	if _, err := io.ReadFull(r, sig); err != nil {
		return nil, errors.Wrap(err, "reading bundle signature")
	}
	if string(sig) != conf.BUNDLESIGNATURE {
		return nil, fmt.Errorf("not a scratchvm bundle (bad signature)")
	}
	var version string
	if err := msgpack.UnmarshalRead(r, &version); err != nil {
		return nil, errors.Wrap(err, "reading bundle version")
	}
	if version != conf.BUNDLEVERSION {
		return nil, fmt.Errorf("bundle version %q incompatible with %q", version, conf.BUNDLEVERSION)
	}
	var env bundleEnvelope
	if err := msgpack.UnmarshalRead(r, &env); err != nil {
		return nil, errors.Wrap(err, "decoding bundle payload")
	}
	s := &Script{
		Name:         env.Name,
		Bytecode:     env.Bytecode,
		VariableRefs: env.VariableRefs,
		ListRefs:     env.ListRefs,
		Procedures:   env.Procedures,
		Atomic:       env.Atomic,
	}
	for _, c := range env.Constants {
		s.Constants = append(s.Constants, fromBundledValue(c))
	}
	return s, nil
}

// BindFunctions attaches the host-callback table a loaded Script needs for
// its EXEC instructions; the host building this table is responsible for
// matching indices to the compiler that originally emitted the bytecode.
func (s *Script) BindFunctions(fns []HostFunc) { s.Functions = fns }

// DumpToBytes is a convenience wrapper around Dump for callers that want an
// in-memory bundle (e.g. embedding one in a test fixture) rather than a
// stream.
func DumpToBytes(s *Script) ([]byte, error) {
	var buf bytes.Buffer
	if err := Dump(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
