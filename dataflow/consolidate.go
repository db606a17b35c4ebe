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

// consolidateOp folds every multiset queued this round into one,
// consolidated, and emits it as a single send. A round with no
// pending input emits nothing at all.
type consolidateOp[T any] struct {
	base
	in  *Reader[T]
	out *Edge[T]
}

// NewConsolidate emits one consolidated multiset per round.
func NewConsolidate[T any](g *Graph, in *Edge[T]) (*Edge[T], error) {
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &consolidateOp[T]{base: b, in: in.NewReader(), out: NewEdge[T](g)}
	register(g, op)
	return op.out, nil
}

func (o *consolidateOp[T]) pending() bool { return !o.in.IsEmpty() }

func (o *consolidateOp[T]) run() error {
	batch := o.in.Drain()
	if len(batch) == 0 {
		return nil
	}
	acc := batch[0]
	for _, ms := range batch[1:] {
		acc = mset.Concat(acc, ms)
	}
	o.out.Send(acc.Consolidate())
	return nil
}
