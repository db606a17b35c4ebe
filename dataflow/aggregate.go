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
	"sort"

	"github.com/where-app-hq/ivm-engine/mset"
)

// Aggregate bundles the three pure functions spec.md §4.5 requires of
// every group-by aggregate: a per-row projection, an associative fold
// over (partial, multiplicity) pairs, and an optional final
// presentation step.
type Aggregate[V any] struct {
	Name    string
	PreMap  func(V) any
	Reduce  func(partials []mset.Pair[any]) any
	PostMap func(any) any
}

func (a Aggregate[V]) compute(rows []mset.Pair[V]) any {
	partials := make([]mset.Pair[any], len(rows))
	for i, r := range rows {
		partials[i] = mset.Pair[any]{Value: a.PreMap(r.Value), Mult: r.Mult}
	}
	combined := a.Reduce(partials)
	if a.PostMap != nil {
		return a.PostMap(combined)
	}
	return combined
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// SumAggregate sums get(row) across every row in the group, weighting
// each occurrence by its multiplicity.
func SumAggregate[V any](name string, get func(V) float64) Aggregate[V] {
	return Aggregate[V]{
		Name:   name,
		PreMap: func(v V) any { return get(v) },
		Reduce: func(partials []mset.Pair[any]) any {
			var sum float64
			for _, p := range partials {
				sum += asFloat(p.Value) * float64(p.Mult)
			}
			return sum
		},
	}
}

// CountAggregate counts the net multiplicity of every row in the
// group, ignoring the row's value entirely.
func CountAggregate[V any](name string) Aggregate[V] {
	return Aggregate[V]{
		Name:   name,
		PreMap: func(V) any { return nil },
		Reduce: func(partials []mset.Pair[any]) any {
			var n int
			for _, p := range partials {
				n += p.Mult
			}
			return n
		},
	}
}

// AvgAggregate divides the weighted sum by the net count in PostMap,
// per spec.md's example of a presentation step built on a shared
// partial.
func AvgAggregate[V any](name string, get func(V) float64) Aggregate[V] {
	type sumCount struct {
		sum   float64
		count int
	}
	return Aggregate[V]{
		Name:   name,
		PreMap: func(v V) any { return get(v) },
		Reduce: func(partials []mset.Pair[any]) any {
			var sc sumCount
			for _, p := range partials {
				sc.sum += asFloat(p.Value) * float64(p.Mult)
				sc.count += p.Mult
			}
			return sc
		},
		PostMap: func(c any) any {
			sc := c.(sumCount)
			if sc.count == 0 {
				return 0.0
			}
			return sc.sum / float64(sc.count)
		},
	}
}

// MinAggregate keeps the smallest value, expanded one copy per net
// multiplicity so a value retracted down to zero presence drops out.
func MinAggregate[V any](name string, get func(V) float64) Aggregate[V] {
	return extremeAggregate(name, get, func(a, b float64) bool { return a < b })
}

// MaxAggregate keeps the largest value.
func MaxAggregate[V any](name string, get func(V) float64) Aggregate[V] {
	return extremeAggregate(name, get, func(a, b float64) bool { return a > b })
}

func extremeAggregate[V any](name string, get func(V) float64, better func(a, b float64) bool) Aggregate[V] {
	return Aggregate[V]{
		Name:   name,
		PreMap: func(v V) any { return get(v) },
		Reduce: func(partials []mset.Pair[any]) any {
			var best float64
			found := false
			for _, p := range expandByMult(partials) {
				v := asFloat(p)
				if !found || better(v, best) {
					best = v
					found = true
				}
			}
			if !found {
				return nil
			}
			return best
		},
	}
}

// MedianAggregate computes the exact median of the materialized
// group, not a streaming approximation: median is defined here as a
// point-in-time recomputation over the fully expanded value list, the
// same way every other aggregate in this package is a full
// recomputation over touched keys.
func MedianAggregate[V any](name string, get func(V) float64) Aggregate[V] {
	return Aggregate[V]{
		Name:   name,
		PreMap: func(v V) any { return get(v) },
		Reduce: func(partials []mset.Pair[any]) any {
			vals := make([]float64, 0, len(partials))
			for _, v := range expandByMult(partials) {
				vals = append(vals, asFloat(v))
			}
			if len(vals) == 0 {
				return nil
			}
			sort.Float64s(vals)
			mid := len(vals) / 2
			if len(vals)%2 == 1 {
				return vals[mid]
			}
			return (vals[mid-1] + vals[mid]) / 2
		},
	}
}

// ModeAggregate returns the value with the highest net multiplicity.
// Ties resolve to the smallest tied value, so the result is
// deterministic across runs that touch the same keys in a different
// order.
func ModeAggregate[V any](name string, get func(V) float64) Aggregate[V] {
	return Aggregate[V]{
		Name:   name,
		PreMap: func(v V) any { return get(v) },
		Reduce: func(partials []mset.Pair[any]) any {
			counts := map[float64]int{}
			for _, p := range partials {
				counts[asFloat(p.Value)] += p.Mult
			}
			best, bestCount := 0.0, 0
			haveBest := false
			for v, c := range counts {
				if c <= 0 {
					continue
				}
				if !haveBest || c > bestCount || (c == bestCount && v < best) {
					best, bestCount, haveBest = v, c, true
				}
			}
			if !haveBest {
				return nil
			}
			return best
		},
	}
}

// expandByMult repeats each partial's value |Mult| times, dropping
// negative-mult leftovers silently (they only ever appear transiently
// mid-round and are expected to have been folded away by the time
// Reduce runs over a fully consolidated group).
func expandByMult(partials []mset.Pair[any]) []any {
	out := make([]any, 0, len(partials))
	for _, p := range partials {
		if p.Mult <= 0 {
			continue
		}
		for i := 0; i < p.Mult; i++ {
			out = append(out, p.Value)
		}
	}
	return out
}
