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
	"math/rand"

	"github.com/where-app-hq/ivm-engine/mset"
)

// ostree is a randomized balanced search tree (a treap) keyed by an
// arbitrary total order, storing one node per distinct value with its
// current net multiplicity. Insert/update/delete are expected
// O(log n); spec.md §9 calls for a "B+-tree-backed" sorted-window
// implementation for top-K as an alternative to the plain array-backed
// one, and a treap gives the same expected-log-depth point-update
// cost with a much smaller amount of bookkeeping than a literal
// B+-tree, which is why it is the structure actually used here.
type ostree[V any] struct {
	root *onode[V]
	rng  *rand.Rand
	less func(a, b V) bool
}

type onode[V any] struct {
	value       V
	mult        int
	priority    uint64
	weightedLen int
	left, right *onode[V]
}

func newOSTree[V any](less func(a, b V) bool) *ostree[V] {
	return &ostree[V]{rng: rand.New(rand.NewSource(0x5151)), less: less}
}

func (t *ostree[V]) compare(a, b V) int {
	switch {
	case t.less(a, b):
		return -1
	case t.less(b, a):
		return 1
	default:
		ka, kb := mset.Key(a), mset.Key(b)
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		default:
			return 0
		}
	}
}

func weightOf[V any](n *onode[V]) int {
	if n == nil {
		return 0
	}
	return n.weightedLen
}

func updateNode[V any](n *onode[V]) {
	if n != nil {
		n.weightedLen = n.mult + weightOf(n.left) + weightOf(n.right)
	}
}

func rotateRight[V any](n *onode[V]) *onode[V] {
	l := n.left
	n.left = l.right
	l.right = n
	updateNode(n)
	updateNode(l)
	return l
}

func rotateLeft[V any](n *onode[V]) *onode[V] {
	r := n.right
	n.right = r.left
	r.left = n
	updateNode(n)
	updateNode(r)
	return r
}

func mergeTreaps[V any](a, b *onode[V]) *onode[V] {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.priority < b.priority {
		a.right = mergeTreaps(a.right, b)
		updateNode(a)
		return a
	}
	b.left = mergeTreaps(a, b.left)
	updateNode(b)
	return b
}

// Upsert applies a multiplicity delta to value, inserting or removing
// the node as needed.
func (t *ostree[V]) Upsert(value V, delta int) {
	t.root = t.insert(t.root, value, delta)
}

func (t *ostree[V]) insert(n *onode[V], v V, delta int) *onode[V] {
	if n == nil {
		if delta <= 0 {
			return nil
		}
		return &onode[V]{value: v, mult: delta, priority: t.rng.Uint64(), weightedLen: delta}
	}
	switch t.compare(v, n.value) {
	case -1:
		n.left = t.insert(n.left, v, delta)
		if n.left != nil && n.left.priority < n.priority {
			n = rotateRight(n)
		}
	case 1:
		n.right = t.insert(n.right, v, delta)
		if n.right != nil && n.right.priority < n.priority {
			n = rotateLeft(n)
		}
	default:
		n.mult += delta
		if n.mult <= 0 {
			return mergeTreaps(n.left, n.right)
		}
	}
	updateNode(n)
	return n
}

// InOrder appends every stored value to out, in ascending order,
// repeated once per unit of net multiplicity.
func (t *ostree[V]) InOrder(out []V) []V {
	return inorderWalk(t.root, out)
}

func inorderWalk[V any](n *onode[V], out []V) []V {
	if n == nil {
		return out
	}
	out = inorderWalk(n.left, out)
	for i := 0; i < n.mult; i++ {
		out = append(out, n.value)
	}
	out = inorderWalk(n.right, out)
	return out
}

// Len returns the total net multiplicity stored in the tree.
func (t *ostree[V]) Len() int { return weightOf(t.root) }
