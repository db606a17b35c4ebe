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

// distinctOp maintains one running multiplicity per distinct value
// across all rounds and emits only the +1/-1 transition when a value
// crosses the present/absent boundary, so its cumulative output
// always sits at multiplicity 0 or 1 per value.
type distinctOp[T any] struct {
	base
	in      *Reader[T]
	out     *Edge[T]
	mult    map[string]int
	vals    map[string]T
	present map[string]bool
}

// NewDistinct emits each distinct value at multiplicity 1 while it is
// net-present, and retracts it (multiplicity -1) once it is not.
func NewDistinct[T any](g *Graph, in *Edge[T]) (*Edge[T], error) {
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &distinctOp[T]{
		base:    b,
		in:      in.NewReader(),
		out:     NewEdge[T](g),
		mult:    make(map[string]int),
		vals:    make(map[string]T),
		present: make(map[string]bool),
	}
	register(g, op)
	return op.out, nil
}

func (o *distinctOp[T]) pending() bool { return !o.in.IsEmpty() }

func (o *distinctOp[T]) run() error {
	touched := map[string]struct{}{}
	for _, ms := range o.in.Drain() {
		for _, p := range ms.Inner() {
			k := mset.Key(p.Value)
			o.mult[k] += p.Mult
			o.vals[k] = p.Value
			touched[k] = struct{}{}
		}
	}
	emit := &mset.Multiset[T]{}
	for k := range touched {
		now := o.mult[k] > 0
		was := o.present[k]
		switch {
		case now && !was:
			emit.Add(o.vals[k], 1)
		case !now && was:
			emit.Add(o.vals[k], -1)
		}
		o.present[k] = now
		if o.mult[k] == 0 {
			delete(o.mult, k)
			delete(o.vals, k)
			delete(o.present, k)
		}
	}
	if !emit.IsEmpty() {
		o.out.Send(emit)
	}
	return nil
}
