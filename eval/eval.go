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

package eval

import (
	"fmt"

	"github.com/where-app-hq/ivm-engine/qir"
)

// Row is the namespaced record a compiled expression evaluates
// against: source alias -> that source's row value.
type Row map[string]any

// Func is a compiled expression: a row in, a value and error out.
// Compile never returns a Func that re-walks the qir.Expr tree at
// call time; dispatch on node kind and function name happens once,
// during Compile.
type Func func(Row) (any, error)

// AggHandler is supplied by the compiler for the one context in which
// qir.Agg is legal: inside a group-by's aggregate-spec construction.
// Compile calls it once per qir.Agg node it encounters and otherwise
// never evaluates aggregates itself.
type AggHandler func(name string, args []qir.Expr) (Func, error)

// UnknownFunctionError is returned by Compile when a qir.Func or
// qir.Agg names a function this evaluator does not implement. The
// compiler package classifies this into its own CompileError taxonomy
// (UnknownFunction).
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("eval: unknown function %q", e.Name)
}

// EmptyRefPathError is returned by Compile when a qir.Ref carries an
// empty Path.
type EmptyRefPathError struct{}

func (e *EmptyRefPathError) Error() string { return "eval: empty ref path" }

// AggregateOutsideGroupByError is returned by Compile when it
// encounters a qir.Agg node and no AggHandler was supplied (i.e. the
// expression is not being compiled in group-by scope).
type AggregateOutsideGroupByError struct {
	Name string
}

func (e *AggregateOutsideGroupByError) Error() string {
	return fmt.Sprintf("eval: aggregate %q used outside group-by", e.Name)
}

// Compile turns a qir.Expr into a Func. agg is nil outside group-by
// scope: encountering a qir.Agg node then returns
// AggregateOutsideGroupByError, matching spec.md's rule that
// evaluating an aggregate outside its scope is an error.
func Compile(e qir.Expr, agg AggHandler) (Func, error) {
	switch n := e.(type) {
	case qir.Ref:
		return compileRef(n)
	case qir.Val:
		v := n.Value
		return func(Row) (any, error) { return v, nil }, nil
	case qir.Func:
		return compileFunc(n, agg)
	case qir.Agg:
		if agg == nil {
			return nil, &AggregateOutsideGroupByError{Name: n.Name}
		}
		return agg(n.Name, n.Args)
	default:
		return nil, fmt.Errorf("eval: unrecognized expression node %T", e)
	}
}

func compileRef(n qir.Ref) (Func, error) {
	if len(n.Path) == 0 {
		return nil, &EmptyRefPathError{}
	}
	path := append([]string(nil), n.Path...)
	return func(row Row) (any, error) {
		var cur any = map[string]any(row)
		for _, seg := range path {
			if cur == nil {
				// null intermediate: SQL-like NULL propagates.
				return nil, nil
			}
			m, ok := cur.(map[string]any)
			if !ok {
				// missing/non-record intermediate: undefined.
				return nil, nil
			}
			next, present := m[seg]
			if !present {
				return nil, nil
			}
			cur = next
		}
		return cur, nil
	}, nil
}

func compileFunc(n qir.Func, agg AggHandler) (Func, error) {
	args := make([]Func, len(n.Args))
	for i, a := range n.Args {
		f, err := Compile(a, agg)
		if err != nil {
			return nil, err
		}
		args[i] = f
	}
	switch n.Name {
	case "and":
		return compileShortCircuit(args, true), nil
	case "or":
		return compileShortCircuit(args, false), nil
	case "not":
		inner := args[0]
		return func(row Row) (any, error) {
			v, err := inner(row)
			if err != nil {
				return nil, err
			}
			b, _ := v.(bool)
			return !b, nil
		}, nil
	}
	builtin, ok := builtins[n.Name]
	if !ok {
		return nil, &UnknownFunctionError{Name: n.Name}
	}
	return func(row Row) (any, error) {
		vals := make([]any, len(args))
		for i, f := range args {
			v, err := f(row)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return builtin(vals)
	}, nil
}

// compileShortCircuit implements and/or's lazy evaluation: and stops
// at the first falsy operand, or stops at the first truthy one.
func compileShortCircuit(args []Func, isAnd bool) Func {
	return func(row Row) (any, error) {
		result := isAnd
		for _, f := range args {
			v, err := f(row)
			if err != nil {
				return nil, err
			}
			b, _ := v.(bool)
			if isAnd && !b {
				return false, nil
			}
			if !isAnd && b {
				return true, nil
			}
			result = b
		}
		return result, nil
	}
}
