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

import "github.com/where-app-hq/ivm-engine/mset"

// topKTreeOp is semantically identical to topKFractionalOp -- same
// fractional-index window diffing via assignWindowIndices and
// emitWindowDiff -- but keeps each key's live group in an ostree
// instead of a plain slice, so applying this round's deltas is a
// sequence of O(log n) point updates instead of an O(n) rebuild.
type topKTreeOp[K comparable, V any] struct {
	base
	in            *Reader[Pair[K, V]]
	out           *Edge[Pair[K, Indexed[V]]]
	less          func(a, b V) bool
	offset, limit int
	byKey         map[K]*ostree[V]
	window        map[K][]windowEntry[V]
}

// NewTopKTree is the tree-backed top-K variant from spec.md §9; the
// tree is the ostree treap, not a B+-tree.
func NewTopKTree[K comparable, V any](g *Graph, in *Edge[Pair[K, V]], less func(a, b V) bool, offset, limit int) (*Edge[Pair[K, Indexed[V]]], error) {
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &topKTreeOp[K, V]{
		base:   b,
		in:     in.NewReader(),
		out:    NewEdge[Pair[K, Indexed[V]]](g),
		less:   less,
		offset: offset,
		limit:  limit,
		byKey:  make(map[K]*ostree[V]),
		window: make(map[K][]windowEntry[V]),
	}
	register(g, op)
	return op.out, nil
}

func (o *topKTreeOp[K, V]) pending() bool { return !o.in.IsEmpty() }

func (o *topKTreeOp[K, V]) run() error {
	touched := map[K]struct{}{}
	for _, ms := range o.in.Drain() {
		for _, p := range ms.Inner() {
			tree, ok := o.byKey[p.Value.Key]
			if !ok {
				tree = newOSTree[V](o.less)
				o.byKey[p.Value.Key] = tree
			}
			tree.Upsert(p.Value.Row, p.Mult)
			touched[p.Value.Key] = struct{}{}
		}
	}

	emit := &mset.Multiset[Pair[K, Indexed[V]]]{}
	for k := range touched {
		tree := o.byKey[k]
		vals := tree.InOrder(nil)
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
			if tree.Len() == 0 {
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
