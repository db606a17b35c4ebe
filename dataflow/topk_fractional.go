// Copyright (C) 2024 The ivm-engine Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package dataflow

import (
	"sort"

	"github.com/where-app-hq/ivm-engine/dataflow/fractional"
	"github.com/where-app-hq/ivm-engine/mset"
)

// Indexed pairs a value surviving in a top-K window with the stable
// fractional index assigned to its current position.
type Indexed[V any] struct {
	Value V
	Index string
}

type windowEntry[V any] struct {
	key string
	val V
	idx string
}

// topKFractionalOp is the array-backed (O(n) per touched key)
// fractional-index top-K from spec.md §4.5/§9: unlike plain
// reduce-based top-K, it diffs its own previous window against the
// freshly computed one and emits only the entries whose presence or
// neighbors changed, reusing every other entry's index unchanged.
type topKFractionalOp[K comparable, V any] struct {
	base
	in           *Reader[Pair[K, V]]
	out          *Edge[Pair[K, Indexed[V]]]
	less         func(a, b V) bool
	offset, limit int
	byKey        map[K]*mset.Multiset[V]
	window       map[K][]windowEntry[V]
}

// NewTopKFractional builds the fractional-indexed top-K operator
// described above. less ranks a ahead of b when it returns true.
func NewTopKFractional[K comparable, V any](g *Graph, in *Edge[Pair[K, V]], less func(a, b V) bool, offset, limit int) (*Edge[Pair[K, Indexed[V]]], error) {
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &topKFractionalOp[K, V]{
		base:   b,
		in:     in.NewReader(),
		out:    NewEdge[Pair[K, Indexed[V]]](g),
		less:   less,
		offset: offset,
		limit:  limit,
		byKey:  make(map[K]*mset.Multiset[V]),
		window: make(map[K][]windowEntry[V]),
	}
	register(g, op)
	return op.out, nil
}

func (o *topKFractionalOp[K, V]) pending() bool { return !o.in.IsEmpty() }

func (o *topKFractionalOp[K, V]) run() error {
	touched := map[K]struct{}{}
	for _, ms := range o.in.Drain() {
		for _, p := range ms.Inner() {
			bag, ok := o.byKey[p.Value.Key]
			if !ok {
				bag = &mset.Multiset[V]{}
				o.byKey[p.Value.Key] = bag
			}
			bag.Add(p.Value.Row, p.Mult)
			touched[p.Value.Key] = struct{}{}
		}
	}

	emit := &mset.Multiset[Pair[K, Indexed[V]]]{}
	for k := range touched {
		bag := o.byKey[k].Consolidate()
		o.byKey[k] = bag

		vals := expandByMultV(bag.Inner())
		// Stable, not just sorted: assignWindowIndices's index reuse
		// relies on two equally-ranked survivors keeping the same
		// relative order round over round.
		sort.SliceStable(vals, func(i, j int) bool { return o.less(vals[i], vals[j]) })
		lo, hi := o.offset, o.offset+o.limit
		if lo > len(vals) {
			lo = len(vals)
		}
		if hi > len(vals) {
			hi = len(vals)
		}
		windowVals := vals[lo:hi]

		newWindow := assignWindowIndices(o.window[k], windowVals)
		emitWindowDiff(emit, k, o.window[k], newWindow)

		if len(newWindow) == 0 {
			delete(o.window, k)
			if bag.IsEmpty() {
				delete(o.byKey, k)
			}
		} else {
			o.window[k] = newWindow
		}
	}
	if !emit.IsEmpty() {
		o.out.Send(emit)
	}
	return nil
}

func expandByMultV[V any](pairs []mset.Pair[V]) []V {
	out := make([]V, 0, len(pairs))
	for _, p := range pairs {
		if p.Mult <= 0 {
			continue
		}
		for i := 0; i < p.Mult; i++ {
			out = append(out, p.Value)
		}
	}
	return out
}

// assignWindowIndices reuses an entry's fractional index from old
// whenever that index still sorts correctly between its *resolved*
// neighbors in vals -- not whenever its neighbor keys happen to be
// unchanged. A survivor that simply had an entry leave or join the
// window on one side keeps its old index; only entries whose old
// index would no longer sort correctly get a freshly generated one,
// strictly between their resolved neighbors. Shared by both the
// array-backed and treap-backed (ostree) top-K operators.
func assignWindowIndices[V any](old []windowEntry[V], vals []V) []windowEntry[V] {
	oldIdx := make(map[string]string, len(old))
	for _, e := range old {
		oldIdx[e.key] = e.idx
	}

	keys := make([]string, len(vals))
	for i, v := range vals {
		keys[i] = mset.Key(v)
	}

	// less's sort order is stable across rounds for any two distinct
	// values, so the relative order of entries that survive from old
	// to vals never changes -- their old indices are therefore still
	// increasing left to right in vals. Scanning forward and keeping
	// any old index that sorts after the last accepted one is exactly
	// "still sorts between its resolved neighbors": the left side is
	// checked directly, and the right side is enforced when the next
	// entry's own candidate is checked against this one.
	resolved := make([]string, len(vals))
	last := ""
	for i, k := range keys {
		if idx, ok := oldIdx[k]; ok && idx > last {
			resolved[i] = idx
			last = idx
		}
	}

	i := 0
	for i < len(resolved) {
		if resolved[i] != "" {
			i++
			continue
		}
		lo := ""
		if i > 0 {
			lo = resolved[i-1]
		}
		j := i
		for j < len(resolved) && resolved[j] == "" {
			j++
		}
		hi := ""
		if j < len(resolved) {
			hi = resolved[j]
		}
		prev := lo
		for x := i; x < j; x++ {
			resolved[x] = fractional.Between(prev, hi)
			prev = resolved[x]
		}
		i = j
	}

	out := make([]windowEntry[V], len(vals))
	for i, v := range vals {
		out[i] = windowEntry[V]{key: keys[i], val: v, idx: resolved[i]}
	}
	return out
}

// emitWindowDiff emits -1 for every old entry whose key is gone or
// whose index moved, and +1 for every new entry that is new or whose
// index moved -- entries that kept the same key and index are left
// untouched, which is the whole point of carrying a fractional index
// forward instead of resending the full window every round.
func emitWindowDiff[K comparable, V any](emit *mset.Multiset[Pair[K, Indexed[V]]], k K, old, new []windowEntry[V]) {
	oldByKey := make(map[string]windowEntry[V], len(old))
	for _, e := range old {
		oldByKey[e.key] = e
	}
	newByKey := make(map[string]windowEntry[V], len(new))
	for _, e := range new {
		newByKey[e.key] = e
	}
	for _, e := range old {
		if n, ok := newByKey[e.key]; ok && n.idx == e.idx {
			continue
		}
		emit.Add(Pair[K, Indexed[V]]{Key: k, Row: Indexed[V]{Value: e.val, Index: e.idx}}, -1)
	}
	for _, e := range new {
		if o2, ok := oldByKey[e.key]; ok && o2.idx == e.idx {
			continue
		}
		emit.Add(Pair[K, Indexed[V]]{Key: k, Row: Indexed[V]{Value: e.val, Index: e.idx}}, 1)
	}
}
