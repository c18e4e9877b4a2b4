// Package list implements the VM's List type: an ordered sequence of
// value.Value addressed by 1-based external indices, with the literal index
// forms ("last", "all", "random") each op's bytecode handler recognizes.
package list

import (
	"strings"

	farm "github.com/dgryski/go-farm"

	"github.com/tanema/scratchvm/conf"
	"github.com/tanema/scratchvm/value"
)

// List is an ordered sequence of Value. At conf.LISTHASHTHRESHOLD
// elements or more it also maintains a farm-hash membership index so Contains/
// IndexOf avoid an O(n) scan on large lists; below threshold the index is
// skipped entirely since building it would cost more than a linear scan.
type List struct {
	items []value.Value
	index map[uint64][]int // hash(ToString()) -> item positions, lazily built
}

// New builds an empty List.
func New() *List { return &List{} }

// FixIndex resolves a numeric 1-based index against a list of length n,
// returning 0 (meaning "no-op") if n is 0, i<1, or i>n; otherwise i
// unchanged.
func FixIndex(i, n int) int {
	if n == 0 || i < 1 || i > n {
		return 0
	}
	return i
}

func (l *List) invalidateIndex() { l.index = nil }

func (l *List) hash(v value.Value) uint64 {
	s := v.ToString()
	return farm.Hash64([]byte(s))
}

func (l *List) ensureIndex() {
	if l.index != nil || len(l.items) < conf.LISTHASHTHRESHOLD {
		return
	}
	l.index = make(map[uint64][]int, len(l.items))
	for i, it := range l.items {
		h := l.hash(it)
		l.index[h] = append(l.index[h], i)
	}
}

// Size returns the number of elements.
func (l *List) Size() int { return len(l.items) }

// Append adds v to the end.
func (l *List) Append(v value.Value) {
	l.items = append(l.items, v)
	if l.index != nil {
		h := l.hash(v)
		l.index[h] = append(l.index[h], len(l.items)-1)
	}
}

// Clear removes all elements.
func (l *List) Clear() {
	l.items = nil
	l.index = nil
}

// At returns the item at 1-based index i. Callers must resolve literal
// indices and FixIndex first; i must be in [1, Size()].
func (l *List) At(i int) value.Value { return l.items[i-1] }

// Set replaces the item at 1-based index i.
func (l *List) Set(i int, v value.Value) {
	l.items[i-1] = v
	l.invalidateIndex()
}

// InsertAt inserts v before 1-based index i.
func (l *List) InsertAt(i int, v value.Value) {
	l.items = append(l.items, value.Value{})
	copy(l.items[i:], l.items[i-1:len(l.items)-1])
	l.items[i-1] = v
	l.invalidateIndex()
}

// RemoveAt deletes the item at 1-based index i.
func (l *List) RemoveAt(i int) {
	l.items = append(l.items[:i-1], l.items[i:]...)
	l.invalidateIndex()
}

// IndexOf returns the 1-based index of the first item equal to v, or 0 if
// absent.
func (l *List) IndexOf(v value.Value) int {
	l.ensureIndex()
	if l.index != nil {
		for _, pos := range l.index[l.hash(v)] {
			if l.items[pos].Equals(v) {
				return pos + 1
			}
		}
		return 0
	}
	for i, it := range l.items {
		if it.Equals(v) {
			return i + 1
		}
	}
	return 0
}

// Contains reports whether v is present.
func (l *List) Contains(v value.Value) bool { return l.IndexOf(v) != 0 }

// ToString joins the items per Scratch's list-to-string rule: no separator
// when every item renders as a single character, a single space otherwise.
func (l *List) ToString() string {
	allSingleChar := true
	parts := make([]string, len(l.items))
	for i, it := range l.items {
		s := it.ToString()
		parts[i] = s
		if len([]rune(s)) != 1 {
			allSingleChar = false
		}
	}
	sep := " "
	if allSingleChar {
		sep = ""
	}
	return strings.Join(parts, sep)
}

// resolveIndex turns a register-read indexValue into a 1-based position (0
// meaning no-op) per FixIndex, honoring the "last"/"random" literals;
// emptyRandomDefault is the result to use when the list is empty and the
// literal is "random" (0 for delete/replace/get, 1 for insert).
func resolveIndex(indexValue value.Value, size int, emptyRandomDefault int, rng func(lo, hi int) int) int {
	if indexValue.Kind() == value.String {
		switch indexValue.ToString() {
		case "last":
			return size
		case "random":
			if size == 0 {
				return emptyRandomDefault
			}
			return rng(1, size)
		default:
			return 0
		}
	}
	return FixIndex(int(indexValue.ToLong()), size)
}

// Delete implements LIST_DEL: "all" clears the list; otherwise the
// resolved index (0 meaning no-op) is removed.
func (l *List) Delete(indexValue value.Value, rng func(lo, hi int) int) {
	if indexValue.Kind() == value.String && indexValue.ToString() == "all" {
		l.Clear()
		return
	}
	idx := resolveIndex(indexValue, l.Size(), 0, rng)
	if idx != 0 {
		l.RemoveAt(idx)
	}
}

// Insert implements LIST_INSERT: "last" appends; a numeric/"random" index
// inserts before that position; inserting into an empty list always
// succeeds at position 1 regardless of what the index resolved to.
func (l *List) Insert(indexValue value.Value, v value.Value, rng func(lo, hi int) int) {
	if indexValue.Kind() == value.String && indexValue.ToString() == "last" {
		l.Append(v)
		return
	}
	idx := resolveIndex(indexValue, l.Size(), 1, rng)
	if l.Size() == 0 {
		l.Append(v)
		return
	}
	if idx != 0 {
		l.InsertAt(idx, v)
	}
}

// Replace implements LIST_REPLACE: resolves the index (including "last" and
// "random") and overwrites in place; index 0 is a no-op.
func (l *List) Replace(indexValue value.Value, v value.Value, rng func(lo, hi int) int) {
	idx := resolveIndex(indexValue, l.Size(), 0, rng)
	if idx != 0 {
		l.Set(idx, v)
	}
}

// GetItem implements LIST_GET_ITEM: resolves the index (including "last"
// and "random") and returns the item, or an empty string Value when the
// index resolves to 0 (out of range, or "random" on an empty list).
func (l *List) GetItem(indexValue value.Value, rng func(lo, hi int) int) value.Value {
	idx := resolveIndex(indexValue, l.Size(), 0, rng)
	if idx == 0 {
		return value.NewString("")
	}
	return l.At(idx)
}
