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

package qir

import (
	"fmt"
	"strings"
)

// Source is a relational input to a Query: either a direct reference
// to a named input collection, or an inline sub-query. Both carry the
// alias under which their rows are namespaced once joined or selected
// from.
type Source interface {
	source()
	Alias() string
	String() string
}

// CollectionRef names an externally-supplied keyed stream by id, the
// way a QIR tree names one of the root collections the compiler's
// input map supplies.
type CollectionRef struct {
	RefAlias string
	ID       string
}

func (CollectionRef) source() {}

func (c CollectionRef) Alias() string { return c.RefAlias }

func (c CollectionRef) String() string {
	return fmt.Sprintf("%s AS %s", c.ID, c.RefAlias)
}

// QueryRef wraps an inline sub-query as a Source. Two QueryRef values
// that embed the *same* Query pointer (e.g. one used in both a from
// and a join) must compile to the same operator chain; see
// compiler.Cache.
type QueryRef struct {
	RefAlias string
	Sub      *Query
}

func (QueryRef) source() {}

func (q QueryRef) Alias() string { return q.RefAlias }

func (q QueryRef) String() string {
	return fmt.Sprintf("(%s) AS %s", q.Sub.String(), q.RefAlias)
}

// JoinType enumerates the relational join kinds a Join clause may
// request.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
	JoinAnti
)

func (t JoinType) String() string {
	switch t {
	case JoinInner:
		return "INNER"
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	case JoinCross:
		return "CROSS"
	case JoinAnti:
		return "ANTI"
	default:
		return fmt.Sprintf("JoinType(%d)", int(t))
	}
}

// Join describes one additional relation joined into a query's from
// clause. Left and Right are key expressions evaluated against the
// accumulated row so far and the newly joined source respectively;
// Where is an optional join-local predicate applied after the join
// (the ON clause plus any extra conditions).
type Join struct {
	Type  JoinType
	From  Source
	Left  Expr
	Right Expr
	Where Expr
}

// Order describes one key of an order-by clause.
type Order struct {
	Expression Expr
	Descending bool
	NullsLast  bool
	// StringSort names how string-typed order keys compare. The
	// compiler compares strings byte-wise ("lexical") whatever this
	// says; "locale" is accepted, but Locale/LocaleOptions are not
	// consulted.
	StringSort    string
	Locale        string
	LocaleOptions map[string]any
}

// With is one named common-table-expression entry in a query's with
// clause: a sub-query plus the alias it is referenced by.
type With struct {
	As    string
	Query *Query
}

// OrderIndexMode selects whether and how a compiled order-by exposes
// each result row's position as an extra output column. This is not
// part of the original grammar's literal fields -- it lets the
// compiler choose between the plain and fractional-index top-K
// primitives without the caller having to know which one backs a
// given query.
type OrderIndexMode int

const (
	// NoIndex restores rows without any position column, the grammar's
	// original behavior.
	NoIndex OrderIndexMode = iota
	// NumericIndex requests a dense integer position; current wiring
	// treats it identically to NoIndex (see DESIGN.md).
	NumericIndex
	// FractionalIndex requests the fractional-index top-K primitive,
	// so each row carries a position that stays stable across
	// subsequent inserts without reassigning its neighbors.
	FractionalIndex
)

// Query is the root relational node: a from source, zero or more
// joins, optional filtering/aggregation/ordering/pagination, an
// optional projection, and zero or more CTEs visible to this query
// and its sub-trees.
type Query struct {
	With    []With
	From    Source
	Join    []Join
	Where   []Expr
	GroupBy []Expr
	Having  []Expr
	OrderBy []Order
	Limit   *int
	Offset  *int
	// IndexMode selects whether OrderBy's compiled output carries a
	// position column; see OrderIndexMode.
	IndexMode OrderIndexMode
	// IndexColumn names the output column IndexMode writes the row's
	// position into. Defaults to "$index" when empty.
	IndexColumn string
	// Select maps output column name to the expression producing it.
	// A nil Select means "project every namespaced column of From and
	// every Join unchanged" (select *).
	Select map[string]Expr
	// SelectOrder preserves the output column order for Select, since
	// Go map iteration order is unspecified and result rows should be
	// stable.
	SelectOrder []string
}

// IndexColumnOr returns IndexColumn, defaulting to "$index" when unset.
func (q *Query) IndexColumnOr() string {
	if q.IndexColumn == "" {
		return "$index"
	}
	return q.IndexColumn
}

func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Select == nil {
		b.WriteString("*")
	} else {
		for i, name := range q.SelectOrder {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s AS %s", q.Select[name].String(), name)
		}
	}
	b.WriteString(" FROM ")
	if q.From != nil {
		b.WriteString(q.From.String())
	}
	for _, j := range q.Join {
		fmt.Fprintf(&b, " %s JOIN %s", j.Type, j.From)
	}
	if len(q.Where) > 0 {
		b.WriteString(" WHERE ...")
	}
	return b.String()
}

// Expr is the closed grammar of scalar/aggregate expressions QIR
// carries: property references, literal values, non-aggregate
// functions, and aggregate functions (only legal where a Query has a
// GroupBy).
type Expr interface {
	expr()
	String() string
}

// Ref is a path-based reference into the namespaced row under
// evaluation, e.g. []string{"orders", "amount"} for orders.amount. An
// empty path is a compile-time error (see compiler.EmptyRefPath).
type Ref struct {
	Path []string
}

func (Ref) expr() {}

func (r Ref) String() string { return strings.Join(r.Path, ".") }

// Val is a constant value baked into the query at compile time.
type Val struct {
	Value any
}

func (Val) expr() {}

func (v Val) String() string { return fmt.Sprintf("%v", v.Value) }

// Func is a call to one of the evaluator's built-in non-aggregate
// functions (string/numeric/array/pattern/boolean/comparison/JSON/
// date). Unknown names are a compile-time error.
type Func struct {
	Name string
	Args []Expr
}

func (Func) expr() {}

func (f Func) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", f.Name, strings.Join(parts, ", "))
}

// Agg is a call to an aggregate function; legal only inside a
// group-by's Select/Having, and only as a direct entry there (nested
// aggregates are not part of this grammar).
type Agg struct {
	Name string
	Args []Expr
}

func (Agg) expr() {}

func (a Agg) String() string {
	parts := make([]string, len(a.Args))
	for i, arg := range a.Args {
		parts[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", a.Name, strings.Join(parts, ", "))
}
