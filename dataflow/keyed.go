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

// KeyBy attaches a key derived from each value by f, turning an
// unkeyed stream into a Pair stream. It is a thin specialization of
// Map and carries no state of its own.
func KeyBy[K comparable, V any](g *Graph, in *Edge[V], f func(V) K) (*Edge[Pair[K, V]], error) {
	return NewMap(g, in, func(v V) Pair[K, V] {
		return Pair[K, V]{Key: f(v), Row: v}
	})
}

// Rekey replaces every row's key with f(row), keeping the row value
// unchanged. Used e.g. by order-by to move an entire stream onto a
// single sentinel key.
func Rekey[K, K2 comparable, V any](g *Graph, in *Edge[Pair[K, V]], f func(Pair[K, V]) K2) (*Edge[Pair[K2, V]], error) {
	return NewMap(g, in, func(p Pair[K, V]) Pair[K2, V] {
		return Pair[K2, V]{Key: f(p), Row: p.Row}
	})
}

// Unkey drops the key from a Pair stream, leaving only the row
// values.
func Unkey[K comparable, V any](g *Graph, in *Edge[Pair[K, V]]) (*Edge[V], error) {
	return NewMap(g, in, func(p Pair[K, V]) V { return p.Row })
}
