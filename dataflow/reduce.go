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

// ReduceFunc computes the current output rows for one key from the
// full (consolidated) list of values accumulated under that key so
// far. It is re-run in full for every touched key each round -- it is
// not itself incremental; reduceOp's job is turning its output into
// an incremental diff.
type ReduceFunc[K comparable, V, U any] func(key K, values []mset.Pair[V]) []U

// reduceOp is the keyed aggregate primitive that group-by and the
// plain top-K (with NewOrderBy on top of it) are built from; distinct
// and the fractional-index top-K variants are separate operators. It
// owns one Multiset[V] per key plus the last output list it
// emitted for that key, so on the next touch it can emit exactly the
// diff (old negated, new added) rather than resending the whole
// group.
type reduceOp[K comparable, V, U any] struct {
	base
	in      *Reader[Pair[K, V]]
	out     *Edge[Pair[K, U]]
	fn      ReduceFunc[K, V, U]
	byKey   map[K]*mset.Multiset[V]
	prevOut map[K][]U
}

// NewReduce applies fn per touched key and emits the incremental diff
// of its output against what was emitted for that key last time. An
// empty new output list makes the key disappear entirely.
func NewReduce[K comparable, V, U any](g *Graph, in *Edge[Pair[K, V]], fn ReduceFunc[K, V, U]) (*Edge[Pair[K, U]], error) {
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &reduceOp[K, V, U]{
		base:    b,
		in:      in.NewReader(),
		out:     NewEdge[Pair[K, U]](g),
		fn:      fn,
		byKey:   make(map[K]*mset.Multiset[V]),
		prevOut: make(map[K][]U),
	}
	register(g, op)
	return op.out, nil
}

func (o *reduceOp[K, V, U]) pending() bool { return !o.in.IsEmpty() }

func (o *reduceOp[K, V, U]) run() error {
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

	emit := &mset.Multiset[Pair[K, U]]{}
	for k := range touched {
		bag := o.byKey[k].Consolidate()
		o.byKey[k] = bag

		newOut := o.fn(k, bag.Inner())
		oldOut := o.prevOut[k]
		for _, u := range oldOut {
			emit.Add(Pair[K, U]{Key: k, Row: u}, -1)
		}
		for _, u := range newOut {
			emit.Add(Pair[K, U]{Key: k, Row: u}, 1)
		}

		if len(newOut) == 0 {
			delete(o.prevOut, k)
			if bag.IsEmpty() {
				delete(o.byKey, k)
			}
		} else {
			o.prevOut[k] = newOut
		}
	}
	if !emit.IsEmpty() {
		o.out.Send(emit)
	}
	return nil
}
