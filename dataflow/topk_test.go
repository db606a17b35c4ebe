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

func TestTopKReturnsHighestWithinOffsetLimit(t *testing.T) {
	g := quietGraph()
	root := NewRoot[string, int](g)
	top, err := NewTopK(g, root.Output(), func(a, b int) bool { return a > b }, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	consolidated, err := NewConsolidate(g, top)
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, consolidated)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	root.SendData(mset.Of(
		Pair[string, int]{Key: "g", Row: 5},
		Pair[string, int]{Key: "g", Row: 9},
		Pair[string, int]{Key: "g", Row: 1},
		Pair[string, int]{Key: "g", Row: 7},
	))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	c := (*got)[0]
	vals := map[int]bool{}
	for _, p := range c.Inner() {
		vals[p.Value.Row] = true
	}
	if !vals[9] || !vals[7] || len(vals) != 2 {
		t.Fatalf("expected top 2 (9,7), got %v", c)
	}
}

func TestTopKRespectsOffset(t *testing.T) {
	g := quietGraph()
	root := NewRoot[string, int](g)
	top, err := NewTopK(g, root.Output(), func(a, b int) bool { return a > b }, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, top)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	root.SendData(mset.Of(
		Pair[string, int]{Key: "g", Row: 5},
		Pair[string, int]{Key: "g", Row: 9},
		Pair[string, int]{Key: "g", Row: 1},
	))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	if (*got)[0].Inner()[0].Value.Row != 5 {
		t.Fatalf("expected the second-ranked value (5), got %+v", (*got)[0].Inner())
	}
}
