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

package fractional

import "testing"

func TestBetweenOrdersCorrectly(t *testing.T) {
	a := Between("", "")
	b := Between(a, "")
	if !(a < b) {
		t.Fatalf("expected %q < %q", a, b)
	}
	c := Between("", a)
	if !(c < a) {
		t.Fatalf("expected %q < %q", c, a)
	}
}

func TestBetweenInsertsInMiddleRepeatedly(t *testing.T) {
	lo, hi := "a", "b"
	prev := lo
	for i := 0; i < 50; i++ {
		mid := Between(prev, hi)
		if !(prev < mid && mid < hi) {
			t.Fatalf("iteration %d: expected %q < %q < %q", i, prev, mid, hi)
		}
		prev = mid
	}
}

func TestFirstIsBetweenEmptyBounds(t *testing.T) {
	f := First()
	if f == "" {
		t.Fatalf("expected a non-empty first index")
	}
}
