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

// outputOp is the materialization boundary (spec.md §6.2): it invokes
// fn on every input multiset, in arrival order, then forwards it
// unchanged. fn must tolerate transient within-round cancellations --
// it is called once per multiset queued this round, not once per
// fully-settled key.
type outputOp[T any] struct {
	base
	in  *Reader[T]
	out *Edge[T]
	fn  func(*mset.Multiset[T])
}

// NewOutput registers fn as a side-effecting observer of in and
// returns an edge carrying the same data onward, so Output can be
// chained like any other operator.
func NewOutput[T any](g *Graph, in *Edge[T], fn func(*mset.Multiset[T])) (*Edge[T], error) {
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &outputOp[T]{base: b, in: in.NewReader(), out: NewEdge[T](g), fn: fn}
	register(g, op)
	return op.out, nil
}

func (o *outputOp[T]) pending() bool { return !o.in.IsEmpty() }

func (o *outputOp[T]) run() error {
	for _, ms := range o.in.Drain() {
		o.fn(ms)
		o.out.Send(ms)
	}
	return nil
}
