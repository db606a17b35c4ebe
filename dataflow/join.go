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
	"github.com/where-app-hq/ivm-engine/index"
	"github.com/where-app-hq/ivm-engine/mset"
)

// innerJoinOp is the one stateful join primitive; every other join
// variant (left, right, full, anti) is expressed by composing it with
// negate, concat and map, per spec.md §4.5.
type innerJoinOp[K comparable, A, B any] struct {
	base
	inA *Reader[Pair[K, A]]
	inB *Reader[Pair[K, B]]
	out *Edge[index.Joined[K, A, B]]
	a   *index.Index[K, A]
	b   *index.Index[K, B]
}

// NewInnerJoin keeps two Indexes, A and B, and on every round:
//  1. collects this round's deltas for each side across every message
//     received (not just the first -- required for correctness when a
//     key is both inserted and deleted in the same round),
//  2. joins deltaA against B as it stood before this round,
//  3. appends deltaA into A,
//  4. joins the now-updated A (old+delta) against deltaB, which
//     together with step 2 covers deltaA⋈B_old ∪ A_old⋈deltaB ∪
//     deltaA⋈deltaB,
//  5. appends deltaB into B.
func NewInnerJoin[K comparable, A, B any](g *Graph, left *Edge[Pair[K, A]], right *Edge[Pair[K, B]]) (*Edge[index.Joined[K, A, B]], error) {
	if err := sameGraph(left, right); err != nil {
		return nil, err
	}
	b, err := newBase(g)
	if err != nil {
		return nil, err
	}
	op := &innerJoinOp[K, A, B]{
		base: b,
		inA:  left.NewReader(),
		inB:  right.NewReader(),
		out:  NewEdge[index.Joined[K, A, B]](g),
		a:    index.New[K, A](),
		b:    index.New[K, B](),
	}
	register(g, op)
	return op.out, nil
}

func (o *innerJoinOp[K, A, B]) pending() bool {
	return !o.inA.IsEmpty() || !o.inB.IsEmpty()
}

func (o *innerJoinOp[K, A, B]) run() error {
	deltaA := index.New[K, A]()
	for _, ms := range o.inA.Drain() {
		for _, p := range ms.Inner() {
			deltaA.AddValue(p.Value.Key, p.Value.Row, p.Mult)
		}
	}
	deltaB := index.New[K, B]()
	for _, ms := range o.inB.Drain() {
		for _, p := range ms.Inner() {
			deltaB.AddValue(p.Value.Key, p.Value.Row, p.Mult)
		}
	}

	r1 := index.Join(deltaA, o.b)
	o.a.Append(deltaA)
	r2 := index.Join(o.a, deltaB)
	o.b.Append(deltaB)

	out := mset.Concat(r1, r2)
	if !out.IsEmpty() {
		o.out.Send(out)
	}
	return nil
}

// Nullable represents the possible absence of one side of an outer
// join result.
type Nullable[V any] struct {
	Valid bool
	Value V
}

func some[V any](v V) Nullable[V] { return Nullable[V]{Valid: true, Value: v} }

func none[V any]() Nullable[V] { return Nullable[V]{} }

// OuterJoined is the row shape produced by left/right/full join: the
// shared key, plus each side wrapped in Nullable so an unmatched side
// is representable without a pointer or zero-value ambiguity.
type OuterJoined[K comparable, A, B any] struct {
	Key   K
	Left  Nullable[A]
	Right Nullable[B]
}

// NewFilterBy is the semi-join primitive (spec.md's filter-by): it
// keeps left rows whose key also appears, with positive multiplicity,
// on the right side. It is expressed as an inner join followed by a
// projection back onto the left row.
func NewFilterBy[K comparable, A, B any](g *Graph, left *Edge[Pair[K, A]], right *Edge[Pair[K, B]]) (*Edge[Pair[K, A]], error) {
	joined, err := NewInnerJoin(g, left, right)
	if err != nil {
		return nil, err
	}
	return NewMap(g, joined, func(j index.Joined[K, A, B]) Pair[K, A] {
		return Pair[K, A]{Key: j.Key, Row: j.Left}
	})
}

// NewAntiJoin keeps left rows whose key has no match on the right:
// left minus (left filterBy right).
func NewAntiJoin[K comparable, A, B any](g *Graph, left *Edge[Pair[K, A]], right *Edge[Pair[K, B]]) (*Edge[Pair[K, A]], error) {
	matched, err := NewFilterBy[K, A, B](g, left, right)
	if err != nil {
		return nil, err
	}
	negated, err := NewNegate(g, matched)
	if err != nil {
		return nil, err
	}
	return NewConcat(g, left, negated)
}

// NewLeftJoin emits the inner join plus every unmatched left row with
// a none right side.
func NewLeftJoin[K comparable, A, B any](g *Graph, left *Edge[Pair[K, A]], right *Edge[Pair[K, B]]) (*Edge[OuterJoined[K, A, B]], error) {
	inner, err := NewInnerJoin(g, left, right)
	if err != nil {
		return nil, err
	}
	innerOuter, err := NewMap(g, inner, func(j index.Joined[K, A, B]) OuterJoined[K, A, B] {
		return OuterJoined[K, A, B]{Key: j.Key, Left: some(j.Left), Right: some(j.Right)}
	})
	if err != nil {
		return nil, err
	}
	anti, err := NewAntiJoin(g, left, right)
	if err != nil {
		return nil, err
	}
	antiOuter, err := NewMap(g, anti, func(p Pair[K, A]) OuterJoined[K, A, B] {
		return OuterJoined[K, A, B]{Key: p.Key, Left: some(p.Row), Right: none[B]()}
	})
	if err != nil {
		return nil, err
	}
	return NewConcat(g, innerOuter, antiOuter)
}

// NewRightJoin is NewLeftJoin with the sides swapped and the result
// row re-flipped back to (left, right) order.
func NewRightJoin[K comparable, A, B any](g *Graph, left *Edge[Pair[K, A]], right *Edge[Pair[K, B]]) (*Edge[OuterJoined[K, A, B]], error) {
	swapped, err := NewLeftJoin[K, B, A](g, right, left)
	if err != nil {
		return nil, err
	}
	return NewMap(g, swapped, func(j OuterJoined[K, B, A]) OuterJoined[K, A, B] {
		return OuterJoined[K, A, B]{Key: j.Key, Left: j.Right, Right: j.Left}
	})
}

// NewFullJoin emits the inner join, every unmatched left row, and
// every unmatched right row.
func NewFullJoin[K comparable, A, B any](g *Graph, left *Edge[Pair[K, A]], right *Edge[Pair[K, B]]) (*Edge[OuterJoined[K, A, B]], error) {
	lj, err := NewLeftJoin(g, left, right)
	if err != nil {
		return nil, err
	}
	rightAnti, err := NewAntiJoin(g, right, left)
	if err != nil {
		return nil, err
	}
	rightAntiOuter, err := NewMap(g, rightAnti, func(p Pair[K, B]) OuterJoined[K, A, B] {
		return OuterJoined[K, A, B]{Key: p.Key, Left: none[A](), Right: some(p.Row)}
	})
	if err != nil {
		return nil, err
	}
	return NewConcat(g, lj, rightAntiOuter)
}
