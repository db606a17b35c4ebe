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

	"github.com/where-app-hq/ivm-engine/index"
	"github.com/where-app-hq/ivm-engine/mset"
)

func TestInnerJoinMatchesAcrossRounds(t *testing.T) {
	g := quietGraph()
	left := NewRoot[int, string](g)
	right := NewRoot[int, string](g)
	joined, err := NewInnerJoin(g, left.Output(), right.Output())
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, joined)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	left.SendData(mset.Of(Pair[int, string]{Key: 1, Row: "alice"}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	if len(*got) != 0 {
		t.Fatalf("no match yet, expected no output, got %v", *got)
	}

	right.SendData(mset.Of(Pair[int, string]{Key: 1, Row: "order-1"}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	total := 0
	for _, ms := range *got {
		total += ms.Len()
	}
	if total != 1 {
		t.Fatalf("expected one match once right side arrives, got %d", total)
	}
}

func TestInnerJoinSeesSameRoundInsertAndDelete(t *testing.T) {
	g := quietGraph()
	left := NewRoot[int, string](g)
	right := NewRoot[int, string](g)
	joined, err := NewInnerJoin(g, left.Output(), right.Output())
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, joined)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()
	right.SendData(mset.Of(Pair[int, string]{Key: 1, Row: "order-1"}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	*got = nil

	// insert then delete key 1 within the same round: net effect
	// should be as if nothing happened.
	left.SendData(mset.New(
		mset.Pair[Pair[int, string]]{Value: Pair[int, string]{Key: 1, Row: "alice"}, Mult: 1},
		mset.Pair[Pair[int, string]]{Value: Pair[int, string]{Key: 1, Row: "alice"}, Mult: -1},
	))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	out := &mset.Multiset[index.Joined[int, string, string]]{}
	for _, ms := range *got {
		out = mset.Concat(out, ms)
	}
	if out.Consolidate().Len() != 0 {
		t.Fatalf("expected insert+delete in one round to net to nothing, got %s", out.Consolidate())
	}
}

func TestAntiJoinKeepsUnmatchedLeftRows(t *testing.T) {
	g := quietGraph()
	left := NewRoot[int, string](g)
	right := NewRoot[int, string](g)
	anti, err := NewAntiJoin(g, left.Output(), right.Output())
	if err != nil {
		t.Fatal(err)
	}
	consolidated, err := NewConsolidate(g, anti)
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, consolidated)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	left.SendData(mset.Of(
		Pair[int, string]{Key: 1, Row: "alice"},
		Pair[int, string]{Key: 2, Row: "bob"},
	))
	right.SendData(mset.Of(Pair[int, string]{Key: 1, Row: "order-1"}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	c := (*got)[0]
	if c.Len() != 1 || c.Inner()[0].Value.Key != 2 {
		t.Fatalf("expected only key 2 (unmatched) to survive, got %s", c)
	}
}

func TestLeftJoinEmitsNoneForUnmatchedRight(t *testing.T) {
	g := quietGraph()
	left := NewRoot[int, string](g)
	right := NewRoot[int, string](g)
	lj, err := NewLeftJoin(g, left.Output(), right.Output())
	if err != nil {
		t.Fatal(err)
	}
	consolidated, err := NewConsolidate(g, lj)
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, consolidated)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	left.SendData(mset.Of(Pair[int, string]{Key: 1, Row: "alice"}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	c := (*got)[0]
	if c.Len() != 1 {
		t.Fatalf("expected one row, got %s", c)
	}
	row := c.Inner()[0].Value
	if !row.Left.Valid || row.Left.Value != "alice" || row.Right.Valid {
		t.Fatalf("expected left-only row with no right match, got %+v", row)
	}
}

func TestRightJoinEmitsNoneForUnmatchedLeft(t *testing.T) {
	g := quietGraph()
	left := NewRoot[int, string](g)
	right := NewRoot[int, string](g)
	rj, err := NewRightJoin(g, left.Output(), right.Output())
	if err != nil {
		t.Fatal(err)
	}
	consolidated, err := NewConsolidate(g, rj)
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, consolidated)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	right.SendData(mset.Of(Pair[int, string]{Key: 1, Row: "order-1"}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	c := (*got)[0]
	if c.Len() != 1 {
		t.Fatalf("expected one row, got %s", c)
	}
	row := c.Inner()[0].Value
	if !row.Right.Valid || row.Right.Value != "order-1" || row.Left.Valid {
		t.Fatalf("expected right-only row with no left match, got %+v", row)
	}
}

func TestFullJoinEmitsBothUnmatchedSides(t *testing.T) {
	g := quietGraph()
	left := NewRoot[int, string](g)
	right := NewRoot[int, string](g)
	fj, err := NewFullJoin(g, left.Output(), right.Output())
	if err != nil {
		t.Fatal(err)
	}
	consolidated, err := NewConsolidate(g, fj)
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, consolidated)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	left.SendData(mset.Of(
		Pair[int, string]{Key: 1, Row: "alice"},
		Pair[int, string]{Key: 2, Row: "bob"},
	))
	right.SendData(mset.Of(
		Pair[int, string]{Key: 2, Row: "order-2"},
		Pair[int, string]{Key: 3, Row: "order-3"},
	))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	c := (*got)[0]
	if c.Len() != 3 {
		t.Fatalf("expected 3 rows (1 matched + 1 left-only + 1 right-only), got %s", c)
	}
	byKey := map[int]OuterJoined[int, string, string]{}
	for _, p := range c.Inner() {
		byKey[p.Value.Key] = p.Value
	}
	if !byKey[1].Left.Valid || byKey[1].Right.Valid {
		t.Fatalf("expected key 1 left-only, got %+v", byKey[1])
	}
	if !byKey[2].Left.Valid || !byKey[2].Right.Valid {
		t.Fatalf("expected key 2 matched on both sides, got %+v", byKey[2])
	}
	if byKey[3].Left.Valid || !byKey[3].Right.Valid {
		t.Fatalf("expected key 3 right-only, got %+v", byKey[3])
	}
}
