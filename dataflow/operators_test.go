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
	"testing"

	"github.com/where-app-hq/ivm-engine/mset"
)

func collect[T any](g *Graph, e *Edge[T]) (*[]*mset.Multiset[T], error) {
	var got []*mset.Multiset[T]
	_, err := NewOutput(g, e, func(ms *mset.Multiset[T]) { got = append(got, ms) })
	return &got, err
}

func TestMapDoublesValuesPreservingMult(t *testing.T) {
	g := quietGraph()
	root := NewRoot[int, int](g)
	doubled, err := NewMap(g, root.Output(), func(p Pair[int, int]) Pair[int, int] {
		return Pair[int, int]{Key: p.Key, Row: p.Row * 2}
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, doubled)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()
	root.SendData(mset.New(mset.Pair[Pair[int, int]]{Value: Pair[int, int]{Key: 1, Row: 3}, Mult: -2}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	if len(*got) != 1 {
		t.Fatalf("expected 1 output multiset, got %d", len(*got))
	}
	p := (*got)[0].Inner()[0]
	if p.Value.Row != 6 || p.Mult != -2 {
		t.Fatalf("unexpected mapped pair: %+v", p)
	}
}

func TestFilterDropsNonMatching(t *testing.T) {
	g := quietGraph()
	root := NewRoot[int, int](g)
	evens, err := NewFilter(g, root.Output(), func(p Pair[int, int]) bool { return p.Row%2 == 0 })
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, evens)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()
	root.SendData(mset.Of(
		Pair[int, int]{Key: 1, Row: 1},
		Pair[int, int]{Key: 2, Row: 2},
		Pair[int, int]{Key: 3, Row: 3},
		Pair[int, int]{Key: 4, Row: 4},
	))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	if (*got)[0].Len() != 2 {
		t.Fatalf("expected 2 even rows, got %d", (*got)[0].Len())
	}
}

func TestConsolidateEmitsOncePerRoundAndDropsZero(t *testing.T) {
	g := quietGraph()
	root := NewRoot[int, string](g)
	consolidated, err := NewConsolidate(g, root.Output())
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, consolidated)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	root.SendData(mset.New(mset.Pair[Pair[int, string]]{Value: Pair[int, string]{Key: 1, Row: "a"}, Mult: 1}))
	root.SendData(mset.New(mset.Pair[Pair[int, string]]{Value: Pair[int, string]{Key: 1, Row: "a"}, Mult: -1}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	if len(*got) != 1 {
		t.Fatalf("expected exactly one output send this round, got %d", len(*got))
	}
	if (*got)[0].Len() != 0 {
		t.Fatalf("expected the cancelling pair to consolidate away, got %s", (*got)[0])
	}

	*got = nil
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	if len(*got) != 0 {
		t.Fatalf("expected no output on an empty round, got %d sends", len(*got))
	}
}

func TestConcatForwardsBothSidesUnconsolidated(t *testing.T) {
	g := quietGraph()
	r1 := NewRoot[int, string](g)
	r2 := NewRoot[int, string](g)
	merged, err := NewConcat(g, r1.Output(), r2.Output())
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, merged)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()
	r1.SendData(mset.Of(Pair[int, string]{Key: 1, Row: "a"}))
	r2.SendData(mset.Of(Pair[int, string]{Key: 2, Row: "b"}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, ms := range *got {
		total += ms.Len()
	}
	if total != 2 {
		t.Fatalf("expected both sides' pairs forwarded, got %d", total)
	}
}

func TestNegateFlipsSign(t *testing.T) {
	g := quietGraph()
	root := NewRoot[int, string](g)
	negated, err := NewNegate(g, root.Output())
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, negated)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()
	root.SendData(mset.New(mset.Pair[Pair[int, string]]{Value: Pair[int, string]{Key: 1, Row: "a"}, Mult: 3}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	if (*got)[0].Inner()[0].Mult != -3 {
		t.Fatalf("expected -3, got %d", (*got)[0].Inner()[0].Mult)
	}
}
