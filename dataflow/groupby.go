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

// NewGroupBy is map + reduce composed: rows are keyed by keyFn, then
// every aggregate in aggs is recomputed over the full touched group
// each round, and build assembles the key plus the aggregate results
// (keyed by Aggregate.Name) into the output row. A group whose net
// multiplicity is zero or negative disappears -- build is never
// called for it.
func NewGroupBy[K comparable, V, U any](g *Graph, in *Edge[V], keyFn func(V) K, aggs []Aggregate[V], build func(key K, results map[string]any) U) (*Edge[Pair[K, U]], error) {
	keyed, err := KeyBy(g, in, keyFn)
	if err != nil {
		return nil, err
	}
	fn := ReduceFunc[K, V, U](func(key K, values []mset.Pair[V]) []U {
		total := 0
		for _, v := range values {
			total += v.Mult
		}
		if total <= 0 {
			return nil
		}
		results := make(map[string]any, len(aggs))
		for _, a := range aggs {
			results[a.Name] = a.compute(values)
		}
		return []U{build(key, results)}
	})
	return NewReduce(g, keyed, fn)
}
