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

package mset

import (
	"fmt"
	"strings"
)

// Pair is a single (value, multiplicity) entry of a Multiset.
//
// A positive Mult means the value was observed that many times
// (inserted); a negative Mult means it was retracted that many times.
// Mult == 0 is only ever valid transiently, before Consolidate.
type Pair[T any] struct {
	Value T
	Mult  int
}

// Multiset is a finite bag of (T, int) pairs. The zero value is an
// empty Multiset ready to use.
//
// Multiset is the unit of data that flows across every dataflow
// stream edge (see package dataflow). It is intentionally a thin
// wrapper around a slice: operators are expected to build one by
// appending, then hand it off without further mutation (values are
// treated as immutable by convention, per spec.md §5).
type Multiset[T any] struct {
	inner []Pair[T]
}

// New constructs a Multiset directly from a list of pairs, without
// copying or consolidating them.
func New[T any](pairs ...Pair[T]) *Multiset[T] {
	return &Multiset[T]{inner: pairs}
}

// Of is a convenience constructor for a Multiset whose every element
// has multiplicity +1.
func Of[T any](values ...T) *Multiset[T] {
	pairs := make([]Pair[T], len(values))
	for i, v := range values {
		pairs[i] = Pair[T]{Value: v, Mult: 1}
	}
	return &Multiset[T]{inner: pairs}
}

// Add appends a single (value, mult) pair without consolidating.
func (m *Multiset[T]) Add(v T, mult int) {
	m.inner = append(m.inner, Pair[T]{Value: v, Mult: mult})
}

// Len returns the number of raw (possibly-cancelling) pairs.
func (m *Multiset[T]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.inner)
}

// Inner exposes the underlying pair sequence read-only. Callers must
// not mutate the returned slice's elements' Value in place (values
// are shared across readers of a stream edge).
func (m *Multiset[T]) Inner() []Pair[T] {
	if m == nil {
		return nil
	}
	return m.inner
}

// Concat returns the bag union of m and other: every pair from both
// is present in the result, with no consolidation performed.
func Concat[T any](m, other *Multiset[T]) *Multiset[T] {
	out := make([]Pair[T], 0, m.Len()+other.Len())
	out = append(out, m.Inner()...)
	out = append(out, other.Inner()...)
	return &Multiset[T]{inner: out}
}

// Map applies f to every value in m, leaving multiplicities
// unchanged, and returns the result as a new Multiset.
func Map[T, U any](m *Multiset[T], f func(T) U) *Multiset[U] {
	in := m.Inner()
	out := make([]Pair[U], len(in))
	for i, p := range in {
		out[i] = Pair[U]{Value: f(p.Value), Mult: p.Mult}
	}
	return &Multiset[U]{inner: out}
}

// Filter retains only the pairs whose value satisfies p.
func (m *Multiset[T]) Filter(p func(T) bool) *Multiset[T] {
	in := m.Inner()
	out := make([]Pair[T], 0, len(in))
	for _, pair := range in {
		if p(pair.Value) {
			out = append(out, pair)
		}
	}
	return &Multiset[T]{inner: out}
}

// Negate flips the sign of every multiplicity in m.
func (m *Multiset[T]) Negate() *Multiset[T] {
	in := m.Inner()
	out := make([]Pair[T], len(in))
	for i, p := range in {
		out[i] = Pair[T]{Value: p.Value, Mult: -p.Mult}
	}
	return &Multiset[T]{inner: out}
}

// Consolidate groups pairs by structural equality of Value (see
// canonicalKey), sums their multiplicities, and drops any entry whose
// summed multiplicity is zero. The returned Multiset satisfies
// spec.md's P1 (consolidation) invariant: it never contains a zero
// entry. Relative order among surviving entries is the order in
// which their key was first seen.
func (m *Multiset[T]) Consolidate() *Multiset[T] {
	in := m.Inner()
	if len(in) == 0 {
		return &Multiset[T]{}
	}
	order := make([]string, 0, len(in))
	sums := make(map[string]int, len(in))
	vals := make(map[string]T, len(in))
	for _, p := range in {
		k := canonicalKey(p.Value)
		if _, ok := sums[k]; !ok {
			order = append(order, k)
			vals[k] = p.Value
		}
		sums[k] += p.Mult
	}
	out := make([]Pair[T], 0, len(order))
	for _, k := range order {
		if s := sums[k]; s != 0 {
			out = append(out, Pair[T]{Value: vals[k], Mult: s})
		}
	}
	return &Multiset[T]{inner: out}
}

// IsEmpty reports whether m has zero pairs (not whether it would
// consolidate to empty -- callers that care about the latter should
// Consolidate first).
func (m *Multiset[T]) IsEmpty() bool {
	return m.Len() == 0
}

// String renders m in a compact debug form, e.g. "[(a, +1), (b, -2)]".
func (m *Multiset[T]) String() string {
	return m.format(false, 0)
}

// IndentString renders m with each pair on its own indented line,
// for use by the debug(name, indent=true) operator.
func (m *Multiset[T]) IndentString() string {
	return m.format(true, 1)
}

func (m *Multiset[T]) format(indent bool, depth int) string {
	var b strings.Builder
	in := m.Inner()
	if !indent {
		b.WriteByte('[')
		for i, p := range in {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "(%v, %+d)", p.Value, p.Mult)
		}
		b.WriteByte(']')
		return b.String()
	}
	pad := strings.Repeat("  ", depth)
	b.WriteString("[\n")
	for _, p := range in {
		fmt.Fprintf(&b, "%s(%v, %+d)\n", pad, p.Value, p.Mult)
	}
	b.WriteString(strings.Repeat("  ", depth-1))
	b.WriteByte(']')
	return b.String()
}

// Hash returns a cheap digest of v, suitable for log lines or as a
// map-bucketing aid; it is not used for equality (see canonicalKey).
func Hash[T any](v T) uint64 {
	return hashOf(v)
}

// Key returns v's canonical structural-equality key: two values with
// equal Key are the same value for Consolidate's purposes (same type,
// same fields/elements), and two values with different Key are always
// distinct, even if their Hash happens to collide. Stateful operators
// outside this package (distinct, reduce, join via index.Index) use
// Key rather than Hash as their map key for exactly that reason.
func Key[T any](v T) string {
	return canonicalKey(v)
}

// Equal reports whether a and b consolidate to the same Multiset,
// ignoring element order.
func Equal[T any](a, b *Multiset[T]) bool {
	ac := a.Consolidate().Inner()
	bc := b.Consolidate().Inner()
	if len(ac) != len(bc) {
		return false
	}
	am := make(map[string]int, len(ac))
	for _, p := range ac {
		am[canonicalKey(p.Value)] = p.Mult
	}
	for _, p := range bc {
		m, ok := am[canonicalKey(p.Value)]
		if !ok || m != p.Mult {
			return false
		}
	}
	return true
}
