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

type order struct {
	region string
	amount float64
}

type regionTotal struct {
	region string
	sum    float64
	count  int
}

func TestGroupBySumAndCountPerRegion(t *testing.T) {
	g := quietGraph()
	root := NewRoot[int, order](g)
	unkeyed, err := Unkey(g, root.Output())
	if err != nil {
		t.Fatal(err)
	}
	grouped, err := NewGroupBy(g, unkeyed,
		func(o order) string { return o.region },
		[]Aggregate[order]{
			SumAggregate[order]("sum", func(o order) float64 { return o.amount }),
			CountAggregate[order]("count"),
		},
		func(region string, results map[string]any) regionTotal {
			return regionTotal{region: region, sum: results["sum"].(float64), count: results["count"].(int)}
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, grouped)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	root.SendData(mset.Of(
		Pair[int, order]{Key: 1, Row: order{region: "west", amount: 10}},
		Pair[int, order]{Key: 2, Row: order{region: "west", amount: 20}},
		Pair[int, order]{Key: 3, Row: order{region: "east", amount: 5}},
	))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	totals := map[string]regionTotal{}
	for _, ms := range *got {
		for _, p := range ms.Inner() {
			if p.Mult > 0 {
				totals[p.Value.Key] = p.Value.Row
			}
		}
	}
	if totals["west"].sum != 30 || totals["west"].count != 2 {
		t.Fatalf("unexpected west total: %+v", totals["west"])
	}
	if totals["east"].sum != 5 || totals["east"].count != 1 {
		t.Fatalf("unexpected east total: %+v", totals["east"])
	}
}

func TestGroupByGroupDisappearsWhenEmptied(t *testing.T) {
	g := quietGraph()
	root := NewRoot[int, order](g)
	unkeyed, err := Unkey(g, root.Output())
	if err != nil {
		t.Fatal(err)
	}
	grouped, err := NewGroupBy(g, unkeyed,
		func(o order) string { return o.region },
		[]Aggregate[order]{CountAggregate[order]("count")},
		func(region string, results map[string]any) regionTotal {
			return regionTotal{region: region, count: results["count"].(int)}
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, grouped)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	root.SendData(mset.Of(Pair[int, order]{Key: 1, Row: order{region: "west"}}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	*got = nil
	root.SendData(mset.New(mset.Pair[Pair[int, order]]{Value: Pair[int, order]{Key: 1, Row: order{region: "west"}}, Mult: -1}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	c := (*got)[0].Consolidate()
	if c.Len() != 1 || c.Inner()[0].Mult != -1 {
		t.Fatalf("expected the emptied group's last output retracted, got %s", c)
	}
}
