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

import "testing"

func TestLikeMatchWildcards(t *testing.T) {
	cases := []struct {
		s, pat string
		want   bool
	}{
		{"hello", "h%", true},
		{"hello", "h_llo", true},
		{"hello", "h_l", false},
		{"100%", `100\%`, true},
		{"100x", `100\%`, false},
		{"a_b", `a\_b`, true},
		{"axb", `a\_b`, false},
		{"", "%", true},
		{"abc", "a%c", true},
		{"abc", "a%d", false},
	}
	for _, c := range cases {
		if got := likeMatch(c.s, c.pat); got != c.want {
			t.Errorf("likeMatch(%q, %q) = %v, want %v", c.s, c.pat, got, c.want)
		}
	}
}

func TestJSONExtractWalksPath(t *testing.T) {
	v, err := bJSONExtract([]any{`{"a":{"b":[1,2,3]}}`, "a", "b", 1.0})
	if err != nil {
		t.Fatal(err)
	}
	if v != 2.0 {
		t.Fatalf("got %v", v)
	}
}

func TestJSONExtractMissingPathIsNull(t *testing.T) {
	v, err := bJSONExtract([]any{`{"a":1}`, "b"})
	if err != nil || v != nil {
		t.Fatalf("got %v, %v", v, err)
	}
}

func TestJSONExtractInvalidJSONErrors(t *testing.T) {
	_, err := bJSONExtract([]any{`not json`, "a"})
	ee, ok := err.(*ExecError)
	if !ok || ee.Kind != InvalidJSON {
		t.Fatalf("expected InvalidJSON ExecError, got %v", err)
	}
}

func TestDateFromStringAndNumber(t *testing.T) {
	v, err := bDate([]any{"2024-01-02T03:04:05Z"})
	if err != nil {
		t.Fatal(err)
	}
	if v == nil {
		t.Fatal("expected a date.Time value")
	}

	v2, err := bDate([]any{float64(0)})
	if err != nil || v2 == nil {
		t.Fatalf("got %v, %v", v2, err)
	}

	v3, err := bDate([]any{nil})
	if err != nil || v3 != nil {
		t.Fatalf("expected null passthrough, got %v, %v", v3, err)
	}
}

func TestDateInvalidStringErrors(t *testing.T) {
	_, err := bDate([]any{"not a date"})
	ee, ok := err.(*ExecError)
	if !ok || ee.Kind != InvalidDate {
		t.Fatalf("expected InvalidDate ExecError, got %v", err)
	}
}

func TestComparisons(t *testing.T) {
	v, _ := bCompare(cmpLT)([]any{1.0, 2.0})
	if v != true {
		t.Fatalf("got %v", v)
	}
	v, _ = bCompare(cmpEQ)([]any{nil, nil})
	if v != true {
		t.Fatalf("eq(null, null) should be true, got %v", v)
	}
	v, _ = bCompare(cmpEQ)([]any{nil, 1.0})
	if v != false {
		t.Fatalf("eq(null, 1) should be false, got %v", v)
	}
}
