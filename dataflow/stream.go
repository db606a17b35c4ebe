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

// Edge is a stream: a single writer side (held by the operator that
// produces it) fanning out to zero or more Reader sides (held by the
// operators that consume it). Sends are queued per-reader so that two
// readers draining at different points in the same round never
// interfere with each other.
type Edge[T any] struct {
	g       *Graph
	readers []*Reader[T]
}

// NewEdge allocates an edge owned by g. Operators should not call this
// directly; use the edge returned by an operator's constructor (or
// Root.Output) and NewReader on it.
func NewEdge[T any](g *Graph) *Edge[T] {
	return &Edge[T]{g: g}
}

// Graph reports the owning graph, used by binary operators to check
// that both of their inputs belong to the same graph.
func (e *Edge[T]) Graph() *Graph { return e.g }

// NewReader registers a new reader against the edge. Every downstream
// operator that consumes this edge calls NewReader exactly once when
// it is constructed.
func (e *Edge[T]) NewReader() *Reader[T] {
	r := &Reader[T]{edge: e}
	e.readers = append(e.readers, r)
	return r
}

// Send enqueues ms on every registered reader. A nil or empty ms is
// still enqueued -- callers that want to skip a no-op round should
// check mset.Multiset.IsEmpty before calling Send, as distinct,
// reduce, join and the top-K operators do; the other built-in
// operators send whatever they produce, empty or not.
func (e *Edge[T]) Send(ms *mset.Multiset[T]) {
	for _, r := range e.readers {
		r.queue = append(r.queue, ms)
	}
}

// Reader is one consumer's view of an Edge: its own FIFO queue of
// pending deltas, independent of any other reader on the same edge.
type Reader[T any] struct {
	edge  *Edge[T]
	queue []*mset.Multiset[T]
}

// Graph reports the graph that owns the edge this reader reads from.
func (r *Reader[T]) Graph() *Graph { return r.edge.g }

// IsEmpty reports whether the reader currently has no pending input.
// Graph.Run uses this to decide whether an operator needs to be
// invoked this round.
func (r *Reader[T]) IsEmpty() bool { return len(r.queue) == 0 }

// Drain removes and returns every multiset currently queued, in the
// order they were sent, leaving the reader empty.
func (r *Reader[T]) Drain() []*mset.Multiset[T] {
	out := r.queue
	r.queue = nil
	return out
}
