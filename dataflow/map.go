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

// mapOp is a linear operator: every input multiset is mapped
// element-wise through f and forwarded, one output per input, with no
// state carried across rounds.
type mapOp[T, U any] struct {
	base
	in  *Reader[T]
	out *Edge[U]
	f   func(T) U
}

// NewMap applies f to every value flowing through in, preserving
// multiplicities.
func NewMap[T, U any](g *Graph, in *Edge[T], f func(T) U) (*Edge[U], error) {
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &mapOp[T, U]{base: b, in: in.NewReader(), out: NewEdge[U](g), f: f}
	register(g, op)
	return op.out, nil
}

func (o *mapOp[T, U]) pending() bool { return !o.in.IsEmpty() }

func (o *mapOp[T, U]) run() error {
	for _, ms := range o.in.Drain() {
		o.out.Send(mset.Map(ms, o.f))
	}
	return nil
}
