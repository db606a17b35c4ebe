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

func sumReduce(_ int, values []mset.Pair[int]) []int {
	total := 0
	for _, v := range values {
		total += v.Value * v.Mult
	}
	if total == 0 {
		return nil
	}
	return []int{total}
}

func TestReduceEmitsDiffAgainstPreviousOutput(t *testing.T) {
	g := quietGraph()
	root := NewRoot[int, int](g)
	summed, err := NewReduce(g, root.Output(), ReduceFunc[int, int, int](sumReduce))
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, summed)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	root.SendData(mset.Of(Pair[int, int]{Key: 1, Row: 5}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	if (*got)[0].Inner()[0].Value.Row != 5 || (*got)[0].Inner()[0].Mult != 1 {
		t.Fatalf("expected first emitted sum to be +5, got %+v", (*got)[0].Inner())
	}

	*got = nil
	root.SendData(mset.Of(Pair[int, int]{Key: 1, Row: 3}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	sum := (*got)[0].Consolidate()
	want := map[int]int{5: -1, 8: 1}
	for _, p := range sum.Inner() {
		if want[p.Value.Row] != p.Mult {
			t.Fatalf("unexpected diff entry %+v", p)
		}
	}
}

func TestReduceKeyDisappearsOnEmptyOutput(t *testing.T) {
	g := quietGraph()
	root := NewRoot[int, int](g)
	summed, err := NewReduce(g, root.Output(), ReduceFunc[int, int, int](sumReduce))
	if err != nil {
		t.Fatal(err)
	}
	got, err := collect(g, summed)
	if err != nil {
		t.Fatal(err)
	}
	g.Finalize()

	root.SendData(mset.Of(Pair[int, int]{Key: 1, Row: 5}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	*got = nil
	root.SendData(mset.New(mset.Pair[Pair[int, int]]{Value: Pair[int, int]{Key: 1, Row: 5}, Mult: -1}))
	if err := g.Run(); err != nil {
		t.Fatal(err)
	}
	c := (*got)[0].Consolidate()
	if c.Len() != 1 || c.Inner()[0].Mult != -1 {
		t.Fatalf("expected key's last output to be retracted, got %s", c)
	}
}
