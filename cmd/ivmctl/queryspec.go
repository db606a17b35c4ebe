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

package main

import (
	"fmt"
	"os"

	"github.com/where-app-hq/ivm-engine/qir"
	"sigs.k8s.io/yaml"
)

// ExprSpec is the YAML-friendly mirror of qir.Expr: exactly one of
// Ref/Func/Agg is set, or none of them, in which case Val (possibly
// nil) is a literal. Kept as a single tagged struct rather than a
// discriminated set of types so a query file reads as plain nested
// YAML instead of requiring a type-tag field per node.
type ExprSpec struct {
	Ref  []string   `json:"ref,omitempty"`
	Func string     `json:"func,omitempty"`
	Agg  string     `json:"agg,omitempty"`
	Args []ExprSpec `json:"args,omitempty"`
	Val  any        `json:"val,omitempty"`
}

func (e ExprSpec) toQIR() (qir.Expr, error) {
	switch {
	case len(e.Ref) > 0:
		return qir.Ref{Path: e.Ref}, nil
	case e.Func != "":
		args, err := toQIRExprs(e.Args)
		if err != nil {
			return nil, err
		}
		return qir.Func{Name: e.Func, Args: args}, nil
	case e.Agg != "":
		args, err := toQIRExprs(e.Args)
		if err != nil {
			return nil, err
		}
		return qir.Agg{Name: e.Agg, Args: args}, nil
	default:
		return qir.Val{Value: e.Val}, nil
	}
}

func toQIRExprs(specs []ExprSpec) ([]qir.Expr, error) {
	out := make([]qir.Expr, len(specs))
	for i, s := range specs {
		e, err := s.toQIR()
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

// SourceSpec names either a root collection or an inline sub-query as
// a join/from target.
type SourceSpec struct {
	Alias      string     `json:"alias"`
	Collection string     `json:"collection,omitempty"`
	Query      *QuerySpec `json:"query,omitempty"`
}

func (s SourceSpec) toQIR() (qir.Source, error) {
	switch {
	case s.Query != nil:
		sub, err := s.Query.ToQIR()
		if err != nil {
			return nil, err
		}
		return qir.QueryRef{RefAlias: s.Alias, Sub: sub}, nil
	case s.Collection != "":
		return qir.CollectionRef{RefAlias: s.Alias, ID: s.Collection}, nil
	default:
		return nil, fmt.Errorf("source %q: neither collection nor query set", s.Alias)
	}
}

// JoinSpec is one entry of a query's join clause.
type JoinSpec struct {
	Type  string     `json:"type"`
	From  SourceSpec `json:"from"`
	Left  ExprSpec   `json:"left"`
	Right ExprSpec   `json:"right"`
	Where *ExprSpec  `json:"where,omitempty"`
}

var joinTypes = map[string]qir.JoinType{
	"inner": qir.JoinInner,
	"left":  qir.JoinLeft,
	"right": qir.JoinRight,
	"full":  qir.JoinFull,
	"cross": qir.JoinCross,
	"anti":  qir.JoinAnti,
}

func (j JoinSpec) toQIR() (qir.Join, error) {
	kind, ok := joinTypes[j.Type]
	if !ok {
		return qir.Join{}, fmt.Errorf("unknown join type %q", j.Type)
	}
	from, err := j.From.toQIR()
	if err != nil {
		return qir.Join{}, err
	}
	out := qir.Join{Type: kind, From: from}
	if kind != qir.JoinCross {
		left, err := j.Left.toQIR()
		if err != nil {
			return qir.Join{}, err
		}
		right, err := j.Right.toQIR()
		if err != nil {
			return qir.Join{}, err
		}
		out.Left, out.Right = left, right
	}
	if j.Where != nil {
		w, err := j.Where.toQIR()
		if err != nil {
			return qir.Join{}, err
		}
		out.Where = w
	}
	return out, nil
}

// OrderSpec is one entry of a query's order-by clause.
type OrderSpec struct {
	Expr       ExprSpec `json:"expr"`
	Descending bool     `json:"descending,omitempty"`
	NullsLast  bool     `json:"nullsLast,omitempty"`
}

func (o OrderSpec) toQIR() (qir.Order, error) {
	e, err := o.Expr.toQIR()
	if err != nil {
		return qir.Order{}, err
	}
	return qir.Order{Expression: e, Descending: o.Descending, NullsLast: o.NullsLast}, nil
}

// WithSpec is one named common-table-expression entry.
type WithSpec struct {
	As    string    `json:"as"`
	Query QuerySpec `json:"query"`
}

// QuerySpec is the root of a query file: everything qir.Query needs,
// spelled in plain YAML so a query can be authored without writing Go.
type QuerySpec struct {
	With        []WithSpec          `json:"with,omitempty"`
	From        SourceSpec          `json:"from"`
	Join        []JoinSpec          `json:"join,omitempty"`
	Where       []ExprSpec          `json:"where,omitempty"`
	GroupBy     []ExprSpec          `json:"groupBy,omitempty"`
	Having      []ExprSpec          `json:"having,omitempty"`
	OrderBy     []OrderSpec         `json:"orderBy,omitempty"`
	Limit       *int                `json:"limit,omitempty"`
	Offset      *int                `json:"offset,omitempty"`
	Fractional  bool                `json:"fractionalIndex,omitempty"`
	IndexColumn string              `json:"indexColumn,omitempty"`
	Select      map[string]ExprSpec `json:"select,omitempty"`
	SelectOrder []string            `json:"selectOrder,omitempty"`
}

// ToQIR translates a parsed query file into the qir.Query tree the
// compiler consumes.
func (q QuerySpec) ToQIR() (*qir.Query, error) {
	out := &qir.Query{
		Limit:       q.Limit,
		Offset:      q.Offset,
		IndexColumn: q.IndexColumn,
		SelectOrder: q.SelectOrder,
	}
	if q.Fractional {
		out.IndexMode = qir.FractionalIndex
	}
	for _, w := range q.With {
		sub, err := w.Query.ToQIR()
		if err != nil {
			return nil, fmt.Errorf("with %q: %w", w.As, err)
		}
		out.With = append(out.With, qir.With{As: w.As, Query: sub})
	}
	from, err := q.From.toQIR()
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	out.From = from
	for i, j := range q.Join {
		jq, err := j.toQIR()
		if err != nil {
			return nil, fmt.Errorf("join[%d]: %w", i, err)
		}
		out.Join = append(out.Join, jq)
	}
	if out.Where, err = toQIRExprs(q.Where); err != nil {
		return nil, fmt.Errorf("where: %w", err)
	}
	if out.GroupBy, err = toQIRExprs(q.GroupBy); err != nil {
		return nil, fmt.Errorf("groupBy: %w", err)
	}
	if out.Having, err = toQIRExprs(q.Having); err != nil {
		return nil, fmt.Errorf("having: %w", err)
	}
	for i, o := range q.OrderBy {
		oq, err := o.toQIR()
		if err != nil {
			return nil, fmt.Errorf("orderBy[%d]: %w", i, err)
		}
		out.OrderBy = append(out.OrderBy, oq)
	}
	if q.Select != nil {
		out.Select = make(map[string]qir.Expr, len(q.Select))
		for name, spec := range q.Select {
			e, err := spec.toQIR()
			if err != nil {
				return nil, fmt.Errorf("select %q: %w", name, err)
			}
			out.Select[name] = e
		}
	}
	return out, nil
}

// loadQuerySpec reads a query file -- YAML or JSON, sigs.k8s.io/yaml
// accepts both -- and translates it into a qir.Query.
func loadQuerySpec(path string) (*qir.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec QuerySpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return spec.ToQIR()
}
