package runtime

import (
	"github.com/tanema/scratchvm/list"
	"github.com/tanema/scratchvm/value"
)

// fakeTarget is a minimal host.Target backing a fixed number of variables
// and lists, for VM tests that don't need a real sprite/stage.
type fakeTarget struct {
	name      string
	variables []value.Value
	lists     []*list.List
}

func newFakeTarget(nVars, nLists int) *fakeTarget {
	t := &fakeTarget{name: "Sprite1", variables: make([]value.Value, nVars), lists: make([]*list.List, nLists)}
	for i := range t.lists {
		t.lists[i] = list.New()
	}
	return t
}

func (t *fakeTarget) Name() string      { return t.name }
func (t *fakeTarget) IsStage() bool     { return false }
func (t *fakeTarget) LayerOrder() int   { return 0 }
func (t *fakeTarget) Variable(idx int) *value.Value { return &t.variables[idx] }
func (t *fakeTarget) List(idx int) *list.List        { return t.lists[idx] }
