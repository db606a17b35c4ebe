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

package mset

import "testing"

func TestConsolidateDropsZero(t *testing.T) {
	m := New(
		Pair[string]{Value: "a", Mult: 2},
		Pair[string]{Value: "a", Mult: -2},
		Pair[string]{Value: "b", Mult: 1},
	)
	got := m.Consolidate()
	if got.Len() != 1 {
		t.Fatalf("expected 1 surviving entry, got %d (%s)", got.Len(), got)
	}
	if got.Inner()[0].Value != "b" || got.Inner()[0].Mult != 1 {
		t.Fatalf("unexpected survivor: %+v", got.Inner()[0])
	}
}

func TestConsolidateSums(t *testing.T) {
	m := New(
		Pair[int]{Value: 1, Mult: 3},
		Pair[int]{Value: 1, Mult: -1},
		Pair[int]{Value: 2, Mult: 5},
	)
	got := m.Consolidate()
	want := map[int]int{1: 2, 2: 5}
	if got.Len() != len(want) {
		t.Fatalf("got %d entries, want %d", got.Len(), len(want))
	}
	for _, p := range got.Inner() {
		if want[p.Value] != p.Mult {
			t.Fatalf("entry %v: got mult %d, want %d", p.Value, p.Mult, want[p.Value])
		}
	}
}

func TestConsolidateDistinguishesTypesNotJustText(t *testing.T) {
	// integer 1 must never be conflated with string "1"
	type row struct {
		V any
	}
	m := New(
		Pair[row]{Value: row{V: 1}, Mult: 1},
		Pair[row]{Value: row{V: "1"}, Mult: 1},
	)
	got := m.Consolidate()
	if got.Len() != 2 {
		t.Fatalf("expected int 1 and string \"1\" to remain distinct, got %d entries: %s", got.Len(), got)
	}
}

func TestMapPreservesMultiplicity(t *testing.T) {
	m := New(Pair[int]{Value: 1, Mult: -4})
	out := Map(m, func(v int) int { return v * 10 })
	if out.Inner()[0].Value != 10 || out.Inner()[0].Mult != -4 {
		t.Fatalf("Map corrupted pair: %+v", out.Inner()[0])
	}
}

func TestFilter(t *testing.T) {
	m := Of(1, 2, 3, 4, 5)
	out := m.Filter(func(v int) bool { return v%2 == 0 })
	if out.Len() != 2 {
		t.Fatalf("expected 2 even values, got %d", out.Len())
	}
}

func TestNegate(t *testing.T) {
	m := New(Pair[int]{Value: 7, Mult: 3})
	out := m.Negate()
	if out.Inner()[0].Mult != -3 {
		t.Fatalf("expected -3, got %d", out.Inner()[0].Mult)
	}
}

func TestConcatIsUnconsolidated(t *testing.T) {
	a := Of(1)
	b := New(Pair[int]{Value: 1, Mult: -1})
	out := Concat(a, b)
	if out.Len() != 2 {
		t.Fatalf("concat should not consolidate, got %d entries", out.Len())
	}
	if out.Consolidate().Len() != 0 {
		t.Fatalf("consolidating the concatenation should cancel to empty")
	}
}

func TestEqual(t *testing.T) {
	a := New(
		Pair[int]{Value: 1, Mult: 1},
		Pair[int]{Value: 1, Mult: 1},
		Pair[int]{Value: 2, Mult: 1},
	)
	b := New(
		Pair[int]{Value: 2, Mult: 1},
		Pair[int]{Value: 1, Mult: 2},
	)
	if !Equal(a, b) {
		t.Fatalf("expected a and b to be equal after consolidation")
	}
}

func TestEmptyMultisetNeverEmitsZero(t *testing.T) {
	var m Multiset[int]
	if !m.IsEmpty() {
		t.Fatalf("zero value Multiset should be empty")
	}
	if got := m.Consolidate(); got.Len() != 0 {
		t.Fatalf("consolidating empty should stay empty, got %d", got.Len())
	}
}
