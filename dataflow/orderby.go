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

import "github.com/where-app-hq/ivm-engine/index"

const sentinelKey = 0

// NewOrderBy is spec.md's order-by primitive: it projects each row to
// its sort key S, rekeys the whole stream onto a single sentinel so
// top-K can see every row as one group, runs the plain reduce-based
// top-K over the projected keys, then joins the surviving (key, sort
// key) pairs back against the original keyed stream to restore full
// row payloads, and consolidates the result.
func NewOrderBy[K comparable, V, S any](g *Graph, in *Edge[Pair[K, V]], sortKey func(V) S, less func(a, b S) bool, offset, limit int) (*Edge[Pair[K, V]], error) {
	projected, err := NewMap(g, in, func(p Pair[K, V]) Pair[int, Pair[K, S]] {
		return Pair[int, Pair[K, S]]{Key: sentinelKey, Row: Pair[K, S]{Key: p.Key, Row: sortKey(p.Row)}}
	})
	if err != nil {
		return nil, err
	}
	ordered, err := NewTopK(g, projected, func(a, b Pair[K, S]) bool { return less(a.Row, b.Row) }, offset, limit)
	if err != nil {
		return nil, err
	}
	witnesses, err := Unkey(g, ordered)
	if err != nil {
		return nil, err
	}
	joined, err := NewInnerJoin(g, witnesses, in)
	if err != nil {
		return nil, err
	}
	restored, err := NewMap(g, joined, func(j index.Joined[K, S, V]) Pair[K, V] {
		return Pair[K, V]{Key: j.Key, Row: j.Right}
	})
	if err != nil {
		return nil, err
	}
	return NewConsolidate(g, restored)
}

// NewOrderByFractional is NewOrderBy built on the fractional-index
// top-K instead, so surviving rows carry a stable position index
// across rounds in addition to their restored payload.
func NewOrderByFractional[K comparable, V, S any](g *Graph, in *Edge[Pair[K, V]], sortKey func(V) S, less func(a, b S) bool, offset, limit int) (*Edge[Pair[K, Indexed[V]]], error) {
	projected, err := NewMap(g, in, func(p Pair[K, V]) Pair[int, Pair[K, S]] {
		return Pair[int, Pair[K, S]]{Key: sentinelKey, Row: Pair[K, S]{Key: p.Key, Row: sortKey(p.Row)}}
	})
	if err != nil {
		return nil, err
	}
	ordered, err := NewTopKFractional(g, projected, func(a, b Pair[K, S]) bool { return less(a.Row, b.Row) }, offset, limit)
	if err != nil {
		return nil, err
	}
	witnessesIndexed, err := Unkey(g, ordered)
	if err != nil {
		return nil, err
	}
	witnesses, err := NewMap(g, witnessesIndexed, func(ix Indexed[Pair[K, S]]) Pair[K, Indexed[S]] {
		return Pair[K, Indexed[S]]{Key: ix.Value.Key, Row: Indexed[S]{Value: ix.Value.Row, Index: ix.Index}}
	})
	if err != nil {
		return nil, err
	}
	joined, err := NewInnerJoin(g, witnesses, in)
	if err != nil {
		return nil, err
	}
	restored, err := NewMap(g, joined, func(j index.Joined[K, Indexed[S], V]) Pair[K, Indexed[V]] {
		return Pair[K, Indexed[V]]{Key: j.Key, Row: Indexed[V]{Value: j.Right, Index: j.Left.Index}}
	})
	if err != nil {
		return nil, err
	}
	return NewConsolidate(g, restored)
}
