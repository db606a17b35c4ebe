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

// debugOp is a passthrough that logs each multiset's textual form to
// the owning graph's logger, tagged with name.
type debugOp[T any] struct {
	base
	in     *Reader[T]
	out    *Edge[T]
	name   string
	indent bool
}

// NewDebug logs every multiset flowing through in under name, then
// forwards it unchanged. When indent is true, multi-line indented
// formatting (mset.Multiset.IndentString) is used instead of the
// compact single-line form.
func NewDebug[T any](g *Graph, in *Edge[T], name string, indent bool) (*Edge[T], error) {
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &debugOp[T]{base: b, in: in.NewReader(), out: NewEdge[T](g), name: name, indent: indent}
	register(g, op)
	return op.out, nil
}

func (o *debugOp[T]) pending() bool { return !o.in.IsEmpty() }

func (o *debugOp[T]) run() error {
	for _, ms := range o.in.Drain() {
		if o.indent {
			o.g.logger.Printf("[%s] %s", o.name, ms.IndentString())
		} else {
			o.g.logger.Printf("[%s] %s", o.name, ms.String())
		}
		o.out.Send(ms)
	}
	return nil
}
