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

// Package compiler walks a qir.Query tree (§4.6) and wires dataflow
// operators into a pipeline that emits the query's materialized
// result as a keyed stream. It never interprets a QIR tree a second
// time after compiling it once: every expression is compiled through
// eval.Compile exactly once into a closure, per node, and every
// sub-query object is compiled at most once per Compiler via cache.go.
package compiler

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/where-app-hq/ivm-engine/dataflow"
	"github.com/where-app-hq/ivm-engine/eval"
	"github.com/where-app-hq/ivm-engine/index"
	"github.com/where-app-hq/ivm-engine/ints"
	"github.com/where-app-hq/ivm-engine/qir"
)

// Row is the namespaced or flattened record flowing through a
// compiled pipeline; it is exactly eval.Row, re-exported under the
// compiler's own name since it is this package's primary currency.
type Row = eval.Row

// Stream is a keyed row stream: the unit every compiled pipeline
// stage consumes and produces. Keys are always strings -- see
// DESIGN.md's "post-join primary key" decision for why a single
// uniform key type was chosen over per-source key types.
type Stream = *dataflow.Edge[dataflow.Pair[string, Row]]

// RawStream is the external input boundary: a collection's own keyed
// delta stream, before the compiler has namespaced it under an alias.
// Row values here are whatever shape the collection layer produced
// (typically map[string]any, but the compiler does not require it
// until the row is referenced by a propRef).
type RawStream = *dataflow.Edge[dataflow.Pair[string, any]]

// errBox carries the first runtime (eval) error encountered while a
// compiled pipeline's closures run during a tick. dataflow's Map and
// Filter operators have no error channel of their own (every operator
// in the catalog is a pure, total transform over Multisets), so a
// compiled expression's ExecError cannot propagate through Graph.Run
// directly. Compile captures it here instead; the caller checks
// Result.Err() after every tick, which is the same "propagates out of
// run() immediately" contract spec.md §7 asks for, just surfaced
// through a side channel rather than Graph.Run's own return value.
type errBox struct {
	mu  sync.Mutex
	err error
}

func (b *errBox) set(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
}

func (b *errBox) get() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *errBox) take() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.err
	b.err = nil
	return err
}

// Result is what Compile returns: the compiled output stream plus the
// error box any runtime evaluation failure during a subsequent tick
// is recorded into.
type Result struct {
	Output Stream
	errs   *errBox
}

// Err returns the first runtime evaluation error observed by any
// operator in this compilation since the last call to Err, or nil.
// Call it after every dataflow.Graph.Run.
func (r *Result) Err() error {
	if r == nil {
		return nil
	}
	return r.errs.take()
}

// Compiler compiles one or more qir.Query trees against a fixed set
// of input collections into a shared dataflow.Graph.
type Compiler struct {
	g      *dataflow.Graph
	inputs map[string]RawStream
	cache  *cache
}

// New constructs a Compiler. inputs maps each collectionRef id (the
// QIR source's ID field, e.g. "users") to the keyed delta stream the
// collection layer feeds for it.
func New(g *dataflow.Graph, inputs map[string]RawStream) *Compiler {
	return &Compiler{g: g, inputs: inputs, cache: newCache()}
}

// Compile wires q's full pipeline into the graph and returns its
// output stream. If it returns an error, the operators wired by the
// steps that succeeded before the failing one stay registered in the
// graph and keep consuming their inputs on later ticks; no returned
// stream exposes their output.
func (c *Compiler) Compile(q *qir.Query) (*Result, error) {
	eb := &errBox{}
	out, err := c.compileQuery(q, map[string]Stream{}, eb)
	if err != nil {
		return nil, err
	}
	return &Result{Output: out, errs: eb}, nil
}

func (c *Compiler) compileQuery(q *qir.Query, ctes map[string]Stream, eb *errBox) (Stream, error) {
	if q.From == nil {
		return nil, compileErrorf(MissingFrom, "query has no from source")
	}

	scope := make(map[string]Stream, len(ctes)+len(q.With))
	for k, v := range ctes {
		scope[k] = v
	}
	seen := make(map[string]bool, len(q.With))
	for _, w := range q.With {
		if w.As == "" {
			return nil, compileErrorf(CTEMissingAlias, "with-entry missing alias")
		}
		if seen[w.As] {
			return nil, compileErrorf(DuplicateCTEName, "duplicate CTE name %q", w.As)
		}
		seen[w.As] = true
		cteStream, err := c.compileQuery(w.Query, scope, eb)
		if err != nil {
			return nil, err
		}
		scope[w.As] = cteStream
	}

	running, err := c.compileSource(q.From, scope, eb)
	if err != nil {
		return nil, err
	}

	for _, j := range q.Join {
		running, err = c.compileJoin(running, j, scope, eb)
		if err != nil {
			return nil, err
		}
	}

	for _, w := range q.Where {
		running, err = c.applyFilter(running, w, eb)
		if err != nil {
			return nil, err
		}
	}

	aggregating := len(q.GroupBy) > 0 || selectHasAgg(q.Select)
	if aggregating {
		running, err = c.compileGroupBy(running, q, eb)
		if err != nil {
			return nil, err
		}
	}

	for _, h := range q.Having {
		running, err = c.applyFilter(running, h, eb)
		if err != nil {
			return nil, err
		}
	}

	if len(q.OrderBy) > 0 {
		running, err = c.compileOrderBy(running, q, eb)
		if err != nil {
			return nil, err
		}
	} else if q.Limit != nil || q.Offset != nil {
		return nil, compileErrorf(LimitOffsetWithoutOrderBy, "limit/offset requires an order-by clause")
	}

	if q.Select != nil {
		running, err = c.compileSelect(running, q, aggregating, eb)
		if err != nil {
			return nil, err
		}
	}

	return running, nil
}

func (c *Compiler) compileSource(src qir.Source, scope map[string]Stream, eb *errBox) (Stream, error) {
	switch s := src.(type) {
	case qir.CollectionRef:
		if cte, ok := scope[s.ID]; ok {
			return c.wrapSubquery(cte, s.RefAlias)
		}
		raw, ok := c.inputs[s.ID]
		if !ok {
			return nil, compileErrorf(UnknownInput, "unknown input %q", s.ID)
		}
		return c.wrapCollection(raw, s.RefAlias)
	case qir.QueryRef:
		sub, ok := c.cache.get(s.Sub)
		if !ok {
			compiled, err := c.compileQuery(s.Sub, scope, eb)
			if err != nil {
				return nil, err
			}
			c.cache.put(s.Sub, compiled)
			sub = compiled
		}
		return c.wrapSubquery(sub, s.RefAlias)
	default:
		return nil, compileErrorf(UnknownInput, "unrecognized source type %T", src)
	}
}

func (c *Compiler) wrapCollection(raw RawStream, alias string) (Stream, error) {
	return dataflow.NewMap(c.g, raw, func(p dataflow.Pair[string, any]) dataflow.Pair[string, Row] {
		return dataflow.Pair[string, Row]{Key: p.Key, Row: Row{alias: p.Row}}
	})
}

func (c *Compiler) wrapSubquery(sub Stream, alias string) (Stream, error) {
	return dataflow.NewMap(c.g, sub, func(p dataflow.Pair[string, Row]) dataflow.Pair[string, Row] {
		// Store the row under map[string]any's dynamic type, not Row's,
		// so compileRef's path-walking (which type-asserts to
		// map[string]any at every intermediate step) sees the same
		// shape regardless of whether a namespaced value came from a
		// root collection or a nested sub-query.
		return dataflow.Pair[string, Row]{Key: p.Key, Row: Row{alias: map[string]any(p.Row)}}
	})
}

func mergeRows(a, b Row) Row {
	out := make(Row, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func (c *Compiler) compileJoin(running Stream, j qir.Join, scope map[string]Stream, eb *errBox) (Stream, error) {
	joined, err := c.compileSource(j.From, scope, eb)
	if err != nil {
		return nil, err
	}

	var leftRekeyed, rightRekeyed Stream
	if j.Type == qir.JoinCross {
		leftRekeyed, err = dataflow.Rekey(c.g, running, func(dataflow.Pair[string, Row]) string { return "0" })
		if err != nil {
			return nil, err
		}
		rightRekeyed, err = dataflow.Rekey(c.g, joined, func(dataflow.Pair[string, Row]) string { return "0" })
		if err != nil {
			return nil, err
		}
	} else {
		leftFn, err := eval.Compile(j.Left, nil)
		if err != nil {
			return nil, classifyEvalErr(err)
		}
		rightFn, err := eval.Compile(j.Right, nil)
		if err != nil {
			return nil, classifyEvalErr(err)
		}
		leftRekeyed, err = dataflow.Rekey(c.g, running, joinKeyFn(leftFn, eb, "\x00<error:left>"))
		if err != nil {
			return nil, err
		}
		rightRekeyed, err = dataflow.Rekey(c.g, joined, joinKeyFn(rightFn, eb, "\x00<error:right>"))
		if err != nil {
			return nil, err
		}
	}

	var merged Stream
	switch j.Type {
	case qir.JoinInner, qir.JoinCross:
		inner, err := dataflow.NewInnerJoin[string, Row, Row](c.g, leftRekeyed, rightRekeyed)
		if err != nil {
			return nil, err
		}
		merged, err = dataflow.NewMap(c.g, inner, func(p index.Joined[string, Row, Row]) dataflow.Pair[string, Row] {
			return dataflow.Pair[string, Row]{Key: p.Key, Row: mergeRows(p.Left, p.Right)}
		})
		if err != nil {
			return nil, err
		}
	case qir.JoinLeft:
		lj, err := dataflow.NewLeftJoin[string, Row, Row](c.g, leftRekeyed, rightRekeyed)
		if err != nil {
			return nil, err
		}
		merged, err = mapOuterJoined(c.g, lj)
		if err != nil {
			return nil, err
		}
	case qir.JoinRight:
		rj, err := dataflow.NewRightJoin[string, Row, Row](c.g, leftRekeyed, rightRekeyed)
		if err != nil {
			return nil, err
		}
		merged, err = mapOuterJoined(c.g, rj)
		if err != nil {
			return nil, err
		}
	case qir.JoinFull:
		fj, err := dataflow.NewFullJoin[string, Row, Row](c.g, leftRekeyed, rightRekeyed)
		if err != nil {
			return nil, err
		}
		merged, err = mapOuterJoined(c.g, fj)
		if err != nil {
			return nil, err
		}
	case qir.JoinAnti:
		merged, err = dataflow.NewAntiJoin[string, Row, Row](c.g, leftRekeyed, rightRekeyed)
		if err != nil {
			return nil, err
		}
	default:
		return nil, compileErrorf(InvalidJoinType, "invalid join type %v", j.Type)
	}

	if j.Where != nil {
		merged, err = c.applyFilter(merged, j.Where, eb)
		if err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func mapOuterJoined(g *dataflow.Graph, in *dataflow.Edge[dataflow.OuterJoined[string, Row, Row]]) (Stream, error) {
	return dataflow.NewMap(g, in, func(p dataflow.OuterJoined[string, Row, Row]) dataflow.Pair[string, Row] {
		out := Row{}
		if p.Left.Valid {
			for k, v := range p.Left.Value {
				out[k] = v
			}
		}
		if p.Right.Valid {
			for k, v := range p.Right.Value {
				out[k] = v
			}
		}
		return dataflow.Pair[string, Row]{Key: p.Key, Row: out}
	})
}

// joinKeyFn turns a compiled key expression into the error-free
// func(Pair) string that Rekey requires; a runtime evaluation failure
// is recorded into eb and the row is rekeyed onto sentinel, which the
// caller picks per join side so that it matches neither a real key
// nor the other side's sentinel; a failing key expression silently
// produces no match rather than panicking mid-tick.
func joinKeyFn(f eval.Func, eb *errBox, sentinel string) func(dataflow.Pair[string, Row]) string {
	return func(p dataflow.Pair[string, Row]) string {
		v, err := f(p.Row)
		if err != nil {
			eb.set(err)
			return sentinel
		}
		return canonicalScalar(v)
	}
}

func canonicalScalar(v any) string {
	if v == nil {
		return "\x00<null>"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func (c *Compiler) applyFilter(in Stream, e qir.Expr, eb *errBox) (Stream, error) {
	f, err := eval.Compile(e, nil)
	if err != nil {
		return nil, classifyEvalErr(err)
	}
	return dataflow.NewFilter(c.g, in, func(p dataflow.Pair[string, Row]) bool {
		v, err := f(p.Row)
		if err != nil {
			eb.set(err)
			return false
		}
		b, _ := v.(bool)
		return b
	})
}

func selectHasAgg(sel map[string]qir.Expr) bool {
	for _, e := range sel {
		if _, ok := e.(qir.Agg); ok {
			return true
		}
	}
	return false
}

func refNameOrIndex(e qir.Expr, i int) string {
	if r, ok := e.(qir.Ref); ok && len(r.Path) > 0 {
		return r.Path[len(r.Path)-1]
	}
	return fmt.Sprintf("key%d", i)
}

func (c *Compiler) compileGroupBy(running Stream, q *qir.Query, eb *errBox) (Stream, error) {
	unkeyed, err := dataflow.Unkey(c.g, running)
	if err != nil {
		return nil, err
	}

	groupFns := make([]eval.Func, len(q.GroupBy))
	groupNames := make([]string, len(q.GroupBy))
	for i, e := range q.GroupBy {
		f, err := eval.Compile(e, nil)
		if err != nil {
			return nil, classifyEvalErr(err)
		}
		groupFns[i] = f
		groupNames[i] = refNameOrIndex(e, i)
	}

	keyFn := func(row Row) string {
		vals := make([]any, len(groupFns))
		for i, f := range groupFns {
			v, err := f(row)
			if err != nil {
				eb.set(err)
			}
			vals[i] = v
		}
		b, _ := json.Marshal(vals)
		return string(b)
	}

	var aggs []dataflow.Aggregate[Row]
	if q.Select != nil {
		order := q.SelectOrder
		if len(order) == 0 {
			for name := range q.Select {
				order = append(order, name)
			}
		}
		for _, name := range order {
			aggExpr, ok := q.Select[name].(qir.Agg)
			if !ok {
				continue
			}
			spec, err := c.buildAggregate(name, aggExpr, eb)
			if err != nil {
				return nil, err
			}
			aggs = append(aggs, spec)
		}
	}

	build := func(key string, results map[string]any) Row {
		var vals []any
		_ = json.Unmarshal([]byte(key), &vals)
		out := Row{}
		for i, name := range groupNames {
			if i < len(vals) {
				out[name] = vals[i]
			}
		}
		for name, v := range results {
			out[name] = v
		}
		return out
	}

	return dataflow.NewGroupBy[string, Row, Row](c.g, unkeyed, keyFn, aggs, build)
}

func (c *Compiler) buildAggregate(name string, agg qir.Agg, eb *errBox) (dataflow.Aggregate[Row], error) {
	var getter func(Row) float64
	if len(agg.Args) > 0 {
		f, err := eval.Compile(agg.Args[0], nil)
		if err != nil {
			return dataflow.Aggregate[Row]{}, classifyEvalErr(err)
		}
		getter = func(row Row) float64 {
			v, err := f(row)
			if err != nil {
				eb.set(err)
				return 0
			}
			n, _ := eval.AsFloat(v)
			return n
		}
	}
	switch agg.Name {
	case "sum":
		return dataflow.SumAggregate[Row](name, getter), nil
	case "count":
		return dataflow.CountAggregate[Row](name), nil
	case "avg":
		return dataflow.AvgAggregate[Row](name, getter), nil
	case "min":
		return dataflow.MinAggregate[Row](name, getter), nil
	case "max":
		return dataflow.MaxAggregate[Row](name, getter), nil
	case "median":
		return dataflow.MedianAggregate[Row](name, getter), nil
	case "mode":
		return dataflow.ModeAggregate[Row](name, getter), nil
	default:
		return dataflow.Aggregate[Row]{}, compileErrorf(UnknownFunction, "unknown aggregate %q", agg.Name)
	}
}

func (c *Compiler) compileOrderBy(running Stream, q *qir.Query, eb *errBox) (Stream, error) {
	fns := make([]eval.Func, len(q.OrderBy))
	for i, o := range q.OrderBy {
		f, err := eval.Compile(o.Expression, nil)
		if err != nil {
			return nil, classifyEvalErr(err)
		}
		fns[i] = f
	}
	sortKey := func(row Row) []any {
		vals := make([]any, len(fns))
		for i, f := range fns {
			v, err := f(row)
			if err != nil {
				eb.set(err)
			}
			vals[i] = v
		}
		return vals
	}
	less := func(a, b []any) bool {
		for i, o := range q.OrderBy {
			cmp := compareOrderValue(a[i], b[i], o)
			if cmp == 0 {
				continue
			}
			if o.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	}

	offset, limit := 0, int(^uint(0)>>1)
	if q.Offset != nil {
		offset = ints.Max(0, *q.Offset)
	}
	if q.Limit != nil {
		limit = ints.Max(0, *q.Limit)
	} else {
		// unbounded window: keep offset+limit from overflowing
		limit -= offset
	}

	if q.IndexMode == qir.FractionalIndex {
		indexed, err := dataflow.NewOrderByFractional(c.g, running, sortKey, less, offset, limit)
		if err != nil {
			return nil, err
		}
		return dataflow.NewMap(c.g, indexed, func(p dataflow.Pair[string, dataflow.Indexed[Row]]) dataflow.Pair[string, Row] {
			out := mergeRows(p.Row.Value, nil)
			out[q.IndexColumnOr()] = p.Row.Index
			return dataflow.Pair[string, Row]{Key: p.Key, Row: out}
		})
	}
	return dataflow.NewOrderBy(c.g, running, sortKey, less, offset, limit)
}

func compareOrderValue(a, b any, o qir.Order) int {
	aNull, bNull := a == nil, b == nil
	if aNull || bNull {
		if aNull && bNull {
			return 0
		}
		sign := -1
		if o.NullsLast {
			sign = 1
		}
		if aNull {
			return sign
		}
		return -sign
	}
	if af, aok := eval.AsFloat(a); aok {
		if bf, bok := eval.AsFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(as, bs)
	}
	return 0
}

func (c *Compiler) compileSelect(running Stream, q *qir.Query, aggregating bool, eb *errBox) (Stream, error) {
	order := q.SelectOrder
	if len(order) == 0 {
		for name := range q.Select {
			order = append(order, name)
		}
	}
	type projector struct {
		name    string
		passAgg bool
		fn      eval.Func
	}
	projs := make([]projector, 0, len(order))
	for _, name := range order {
		expr := q.Select[name]
		if _, ok := expr.(qir.Agg); ok && aggregating {
			projs = append(projs, projector{name: name, passAgg: true})
			continue
		}
		f, err := eval.Compile(expr, nil)
		if err != nil {
			return nil, classifyEvalErr(err)
		}
		projs = append(projs, projector{name: name, fn: f})
	}
	return dataflow.NewMap(c.g, running, func(p dataflow.Pair[string, Row]) dataflow.Pair[string, Row] {
		out := Row{}
		for _, pr := range projs {
			if pr.passAgg {
				out[pr.name] = p.Row[pr.name]
				continue
			}
			v, err := pr.fn(p.Row)
			if err != nil {
				eb.set(err)
			}
			out[pr.name] = v
		}
		return dataflow.Pair[string, Row]{Key: p.Key, Row: out}
	})
}

func classifyEvalErr(err error) error {
	switch err.(type) {
	case *eval.UnknownFunctionError:
		return compileErrorf(UnknownFunction, "%s", err.Error())
	case *eval.EmptyRefPathError:
		return compileErrorf(EmptyRefPath, "%s", err.Error())
	case *eval.AggregateOutsideGroupByError:
		return compileErrorf(AggregateOutsideGroupBy, "%s", err.Error())
	default:
		return err
	}
}
