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

// negateOp is a linear operator flipping the sign of every
// multiplicity it forwards. Used on its own and as a building block
// for the anti/left/right/full join variants.
type negateOp[T any] struct {
	base
	in  *Reader[T]
	out *Edge[T]
}

// NewNegate forwards input.negate().
func NewNegate[T any](g *Graph, in *Edge[T]) (*Edge[T], error) {
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &negateOp[T]{base: b, in: in.NewReader(), out: NewEdge[T](g)}
	register(g, op)
	return op.out, nil
}

func (o *negateOp[T]) pending() bool { return !o.in.IsEmpty() }

func (o *negateOp[T]) run() error {
	for _, ms := range o.in.Drain() {
		o.out.Send(ms.Negate())
	}
	return nil
}
