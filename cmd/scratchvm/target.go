package main

import (
	"github.com/tanema/scratchvm/bytecode"
	"github.com/tanema/scratchvm/list"
	"github.com/tanema/scratchvm/runtime"
	"github.com/tanema/scratchvm/value"
)

// cliTarget is the single stand-in host.Target the run/debug commands bind
// a loaded bundle against, sized just large enough to back every
// variable/list index the Script's VariableRefs/ListRefs name. There is no
// sprite, costume, or stage concept here; this CLI drives exactly one
// Script against exactly one target.
type cliTarget struct {
	name      string
	variables []value.Value
	lists     []*list.List
}

func newCLITarget(name string, script *runtime.Script) *cliTarget {
	nVars := maxRefPlusOne(script.VariableRefs)
	nLists := maxRefPlusOne(script.ListRefs)
	t := &cliTarget{
		name:      name,
		variables: make([]value.Value, nVars),
		lists:     make([]*list.List, nLists),
	}
	for i := range t.lists {
		t.lists[i] = list.New()
	}
	return t
}

func maxRefPlusOne(refs []int) int {
	max := 0
	for _, r := range refs {
		if r+1 > max {
			max = r + 1
		}
	}
	return max
}

func (t *cliTarget) Name() string                  { return t.name }
func (t *cliTarget) IsStage() bool                 { return false }
func (t *cliTarget) LayerOrder() int               { return 0 }
func (t *cliTarget) Variable(idx int) *value.Value { return &t.variables[idx] }
func (t *cliTarget) List(idx int) *list.List       { return t.lists[idx] }

// bindNoopFunctions scans a Script's bytecode for the highest EXEC function
// index it references and binds that many no-op callbacks, since this CLI
// has no renderer, sensing, or asset pipeline to serve a real host
// primitive. Each no-op consumes nothing and always succeeds; a bundle that
// depends on an EXEC callback actually changing state or registers needs an
// embedding application, not this CLI.
func bindNoopFunctions(script *runtime.Script) {
	maxIdx := -1
	var pc int64
	for {
		op, args, ok := bytecode.Decode(script.Bytecode, pc)
		if !ok {
			break
		}
		if op == bytecode.EXEC && len(args) > 0 && int(args[0]) > maxIdx {
			maxIdx = int(args[0])
		}
		pc += 1 + int64(len(args))
	}
	fns := make([]runtime.HostFunc, maxIdx+1)
	for i := range fns {
		fns[i] = func(vm *runtime.VM) (int, error) { return 0, nil }
	}
	script.BindFunctions(fns)
}
