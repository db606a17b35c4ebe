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

// Pair is the keyed-row shape the collection layer feeds across the
// input boundary: a stable primary key K paired with a row value V.
type Pair[K comparable, V any] struct {
	Key K
	Row V
}

// Root is the input boundary (spec.md §6.1): the collection layer
// calls SendData once per batch of row changes, and Root forwards the
// multiset verbatim to every operator reading its Output edge. Root
// itself never transforms data and is not itself scheduled by Run --
// it writes directly to its output edge, and the next Run call is
// what lets downstream operators observe the new data.
type Root[K comparable, V any] struct {
	out *Edge[Pair[K, V]]
}

// NewRoot allocates a Root bound to g.
func NewRoot[K comparable, V any](g *Graph) *Root[K, V] {
	return &Root[K, V]{out: NewEdge[Pair[K, V]](g)}
}

// Output returns the edge that downstream operators read from.
func (r *Root[K, V]) Output() *Edge[Pair[K, V]] { return r.out }

// SendData pushes one batch of keyed deltas into the graph. Typical
// calls encode an insert as Pair{k,v} at +1, a delete as the previous
// Pair at -1, and an update as both in the same multiset.
func (r *Root[K, V]) SendData(ms *mset.Multiset[Pair[K, V]]) {
	r.out.Send(ms)
}
