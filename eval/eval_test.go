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
	"testing"

	"github.com/where-app-hq/ivm-engine/qir"
)

func mustCompile(t *testing.T, e qir.Expr) Func {
	t.Helper()
	f, err := Compile(e, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return f
}

func TestRefWalksPath(t *testing.T) {
	f := mustCompile(t, qir.Ref{Path: []string{"u", "age"}})
	row := Row{"u": map[string]any{"age": 25.0}}
	v, err := f(row)
	if err != nil || v != 25.0 {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestRefMissingIntermediateIsUndefined(t *testing.T) {
	f := mustCompile(t, qir.Ref{Path: []string{"u", "missing", "x"}})
	row := Row{"u": map[string]any{"age": 25.0}}
	v, err := f(row)
	if err != nil || v != nil {
		t.Fatalf("expected nil/undefined, got %v, %v", v, err)
	}
}

func TestRefNullIntermediatePropagates(t *testing.T) {
	f := mustCompile(t, qir.Ref{Path: []string{"u", "x"}})
	row := Row{"u": nil}
	v, err := f(row)
	if err != nil || v != nil {
		t.Fatalf("expected null propagation, got %v, %v", v, err)
	}
}

func TestEmptyRefPathIsCompileError(t *testing.T) {
	_, err := Compile(qir.Ref{}, nil)
	if _, ok := err.(*EmptyRefPathError); !ok {
		t.Fatalf("expected EmptyRefPathError, got %v", err)
	}
}

func TestUnknownFunctionIsCompileError(t *testing.T) {
	_, err := Compile(qir.Func{Name: "frobnicate"}, nil)
	if _, ok := err.(*UnknownFunctionError); !ok {
		t.Fatalf("expected UnknownFunctionError, got %v", err)
	}
}

func TestAggregateOutsideGroupByIsError(t *testing.T) {
	_, err := Compile(qir.Agg{Name: "sum", Args: []qir.Expr{qir.Val{Value: 1.0}}}, nil)
	if _, ok := err.(*AggregateOutsideGroupByError); !ok {
		t.Fatalf("expected AggregateOutsideGroupByError, got %v", err)
	}
}

func TestAndShortCircuits(t *testing.T) {
	calls := 0
	// second arg is length() of a number, which raises TypeMismatch
	// whenever it is evaluated; and() must return false without ever
	// reaching it once the first operand is false.
	f := mustCompile(t, qir.Func{Name: "and", Args: []qir.Expr{
		qir.Val{Value: false},
		qir.Func{Name: "length", Args: []qir.Expr{qir.Val{Value: 42.0}}},
	}})
	v, err := f(nil)
	if err != nil {
		t.Fatalf("expected and() to short-circuit before the erroring operand: %v", err)
	}
	if v != false {
		t.Fatalf("got %v", v)
	}
	_ = calls
}

func TestCoalesceAndConcat(t *testing.T) {
	f := mustCompile(t, qir.Func{Name: "coalesce", Args: []qir.Expr{
		qir.Val{Value: nil}, qir.Val{Value: nil}, qir.Val{Value: "x"},
	}})
	v, _ := f(nil)
	if v != "x" {
		t.Fatalf("got %v", v)
	}

	f2 := mustCompile(t, qir.Func{Name: "concat", Args: []qir.Expr{
		qir.Val{Value: "a"}, qir.Val{Value: nil}, qir.Val{Value: "b"},
	}})
	v2, _ := f2(nil)
	if v2 != "ab" {
		t.Fatalf("got %v", v2)
	}
}

func TestDivideByZeroIsNull(t *testing.T) {
	f := mustCompile(t, qir.Func{Name: "divide", Args: []qir.Expr{
		qir.Val{Value: 10.0}, qir.Val{Value: 0.0},
	}})
	v, err := f(nil)
	if err != nil || v != nil {
		t.Fatalf("expected null, got %v, %v", v, err)
	}
}

func TestInFalseWhenHaystackNotArray(t *testing.T) {
	f := mustCompile(t, qir.Func{Name: "in", Args: []qir.Expr{
		qir.Val{Value: "x"}, qir.Val{Value: "not-an-array"},
	}})
	v, _ := f(nil)
	if v != false {
		t.Fatalf("got %v", v)
	}
}

func TestLengthTypeMismatchRaises(t *testing.T) {
	f := mustCompile(t, qir.Func{Name: "length", Args: []qir.Expr{qir.Val{Value: 42.0}}})
	_, err := f(nil)
	ee, ok := err.(*ExecError)
	if !ok || ee.Kind != TypeMismatch {
		t.Fatalf("expected TypeMismatch ExecError, got %v", err)
	}
}
