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

// Package qir defines the query intermediate representation that the
// engine's compiler consumes. It is not parsed from source text here:
// a qir.Query is already a relational plan skeleton: it names its
// inputs by alias, carries join clauses, and leaves expression
// sub-trees (qir.Expr) as a small closed grammar of ref/val/func/agg
// nodes. The compiler package walks this tree and wires dataflow
// operators; it never re-derives the tree's shape from source syntax.
//
// QIR nodes are built once by a front end outside this module's scope
// and handed to the compiler by value; nothing in this package mutates
// a Query after construction.
package qir
