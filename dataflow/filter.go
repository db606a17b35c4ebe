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

// filterOp is a linear operator forwarding only values matching p.
type filterOp[T any] struct {
	base
	in  *Reader[T]
	out *Edge[T]
	p   func(T) bool
}

// NewFilter forwards input.filter(p), preserving multiplicities.
func NewFilter[T any](g *Graph, in *Edge[T], p func(T) bool) (*Edge[T], error) {
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &filterOp[T]{base: b, in: in.NewReader(), out: NewEdge[T](g), p: p}
	register(g, op)
	return op.out, nil
}

func (o *filterOp[T]) pending() bool { return !o.in.IsEmpty() }

func (o *filterOp[T]) run() error {
	for _, ms := range o.in.Drain() {
		o.out.Send(ms.Filter(o.p))
	}
	return nil
}
