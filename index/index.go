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

package index

import (
	"github.com/where-app-hq/ivm-engine/mset"
)

// Index is a per-key multiset store: key -> bag of (value, mult). It
// is the state that a keyed stateful operator (chiefly join) owns.
//
// K is constrained to comparable because keys here are always the
// primary keys or join keys assigned upstream by the source
// collection -- scalar identifiers, not arbitrary structural values.
// Value equality for the per-key bag, in contrast, goes through
// mset.Multiset, which supports arbitrary structural values.
type Index[K comparable, V any] struct {
	data  map[K]*mset.Multiset[V]
	dirty map[K]struct{}
}

// New constructs an empty Index.
func New[K comparable, V any]() *Index[K, V] {
	return &Index[K, V]{
		data:  make(map[K]*mset.Multiset[V]),
		dirty: make(map[K]struct{}),
	}
}

// AddValue appends a single (value, mult) pair under key k and marks
// k dirty so that the next Get/Join call recompacts it.
func (ix *Index[K, V]) AddValue(k K, v V, mult int) {
	bag, ok := ix.data[k]
	if !ok {
		bag = &mset.Multiset[V]{}
		ix.data[k] = bag
	}
	bag.Add(v, mult)
	ix.dirty[k] = struct{}{}
}

// Append merges every (key, value, mult) triple from other into ix,
// marking every touched key dirty.
func (ix *Index[K, V]) Append(other *Index[K, V]) {
	if other == nil {
		return
	}
	for k, bag := range other.data {
		for _, p := range bag.Inner() {
			ix.AddValue(k, p.Value, p.Mult)
		}
	}
}

// compact folds equal values together under key k, summing
// multiplicities and dropping zero entries, if k is marked dirty.
// Reading (via Get, or as part of Join) always observes a compacted
// key, per spec.md's index-compaction invariant.
func (ix *Index[K, V]) compact(k K) {
	if _, ok := ix.dirty[k]; !ok {
		return
	}
	if bag, ok := ix.data[k]; ok {
		ix.data[k] = bag.Consolidate()
	}
	delete(ix.dirty, k)
}

// Get lazily compacts k and returns its current pair list. The
// returned slice may be empty (for an untouched or fully-cancelled
// key) but is never nil-vs-empty-meaningful; callers should use
// len(...) to test for presence.
func (ix *Index[K, V]) Get(k K) []mset.Pair[V] {
	ix.compact(k)
	bag, ok := ix.data[k]
	if !ok {
		return nil
	}
	return bag.Inner()
}

// Keys returns every key that has ever had a value added, including
// ones whose entries have since compacted to empty (see Has). Used by
// operators that need to iterate touched
// keys without forcing compaction of keys they won't read.
func (ix *Index[K, V]) Keys() []K {
	keys := make([]K, 0, len(ix.data))
	for k := range ix.data {
		keys = append(keys, k)
	}
	return keys
}

// Has reports whether k has ever had a value added (regardless of
// whether it has since compacted to empty).
func (ix *Index[K, V]) Has(k K) bool {
	_, ok := ix.data[k]
	return ok
}

// Joined is a single row produced by Join: a shared key plus the left
// and right values whose product multiplicity survived.
type Joined[K comparable, A, B any] struct {
	Key   K
	Left  A
	Right B
}

// Join produces the inner-join multiset of a and b: for every key
// present in both, every pair of compacted (left, right) entries is
// emitted with multiplicity left.Mult * right.Mult, omitting any pair
// whose product is zero.
func Join[K comparable, A, B any](a *Index[K, A], b *Index[K, B]) *mset.Multiset[Joined[K, A, B]] {
	out := &mset.Multiset[Joined[K, A, B]]{}
	// iterate the smaller side's keys to bound the work to
	// min(|a|, |b|) key lookups rather than |a|+|b|.
	if len(a.data) <= len(b.data) {
		for k := range a.data {
			if !b.Has(k) {
				continue
			}
			joinKey(out, k, a.Get(k), b.Get(k))
		}
	} else {
		for k := range b.data {
			if !a.Has(k) {
				continue
			}
			joinKey(out, k, a.Get(k), b.Get(k))
		}
	}
	return out
}

func joinKey[K comparable, A, B any](out *mset.Multiset[Joined[K, A, B]], k K, left []mset.Pair[A], right []mset.Pair[B]) {
	for _, l := range left {
		for _, r := range right {
			mult := l.Mult * r.Mult
			if mult == 0 {
				continue
			}
			out.Add(Joined[K, A, B]{Key: k, Left: l.Value, Right: r.Value}, mult)
		}
	}
}
