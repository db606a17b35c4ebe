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
	"github.com/where-app-hq/ivm-engine/heap"
	"github.com/where-app-hq/ivm-engine/mset"
)

// NewTopK is the reduce-based top-K (spec.md §4.5): per touched key
// it fully re-sorts the group via a bounded min-heap scan, correct but
// O(n log k) per touched key rather than incremental. less orders two
// values such that less(a,b) means a ranks ahead of b; offset/limit
// slice the ordered window.
func NewTopK[K comparable, V any](g *Graph, in *Edge[Pair[K, V]], less func(a, b V) bool, offset, limit int) (*Edge[Pair[K, V]], error) {
	fn := ReduceFunc[K, V, V](func(_ K, values []mset.Pair[V]) []V {
		expanded := expandPairs(values)
		ordered := boundedTopK(expanded, less, offset+limit)
		lo := offset
		if lo > len(ordered) {
			lo = len(ordered)
		}
		hi := offset + limit
		if hi > len(ordered) {
			hi = len(ordered)
		}
		if lo >= hi {
			return nil
		}
		return append([]V(nil), ordered[lo:hi]...)
	})
	return NewReduce(g, in, fn)
}

func expandPairs[V any](values []mset.Pair[V]) []V {
	out := make([]V, 0, len(values))
	for _, p := range values {
		if p.Mult <= 0 {
			continue
		}
		for i := 0; i < p.Mult; i++ {
			out = append(out, p.Value)
		}
	}
	return out
}

// boundedTopK keeps only the best bound elements of vals under less,
// using a bounded max-heap (ordered by worst-first) so memory stays
// O(bound) rather than O(n log n) full-sort when bound << len(vals).
func boundedTopK[V any](vals []V, less func(a, b V) bool, bound int) []V {
	if bound <= 0 {
		return nil
	}
	worseFirst := func(a, b V) bool { return less(b, a) }
	var h []V
	for _, v := range vals {
		if len(h) < bound {
			heap.PushSlice(&h, v, worseFirst)
			continue
		}
		if less(v, h[0]) {
			h[0] = v
			heap.FixSlice(h, 0, worseFirst)
		}
	}
	out := make([]V, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out[i] = heap.PopSlice(&h, worseFirst)
	}
	return out
}
