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

// Package dataflow implements the incremental dataflow graph: Graph
// (the operator/stream owner), Edge/Reader (FIFO stream edges), and
// the full catalog of physical operators described in spec.md §4.4
// and §4.5 -- map, filter, negate, concat, consolidate, output, debug,
// distinct, reduce, join (inner/left/right/full/anti), keyBy/rekey/
// unkey, top-K (plain and fractional-indexed), group-by, order-by,
// and filter-by.
//
// A Graph is built by constructing operators against it (each
// constructor both registers the operator and returns handles to its
// output edge), then calling Finalize, after which topology is frozen
// and Run can be invoked once per round. Operators never reach across
// to another operator's state; they only read their own input
// Readers and write their own output Edge, per spec.md's
// per-operator-locality invariant.
package dataflow
