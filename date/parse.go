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

package date

import (
	"strings"
	"time"
)

// parse backs Parse, recognizing RFC3339-family timestamps (with
// optional nanosecond precision and an optional Z or ±HH:MM offset; a
// missing offset reads as UTC, and a space may stand in for the 'T'
// separator) by delegating to time.Parse the same way
// FromTime/Now/Unix already hand off component extraction to the
// standard library.
func parse(data []byte) (year, month, day, hour, min, sec, ns int, ok bool) {
	s := strings.TrimSpace(string(data))
	if len(s) > 10 && s[10] == ' ' {
		s = s[:10] + "T" + s[11:]
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04:05.999999999", s)
		if err != nil {
			return 0, 0, 0, 0, 0, 0, 0, false
		}
	}
	t = t.UTC()
	return t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), true
}

// parseDuration backs ParseDuration. It recognizes an optional
// <digits>y, <digits>m, <digits>d run, each component optional but
// only valid in that order, with no extra characters anywhere in the
// input. Year is capped at 3 digits, month at 4, and day at 5 --
// matching the widest calendar offsets this package's callers need to
// express (expiry/retention windows) without overflowing int math in
// Duration.Add/Sub's normalization.
func parseDuration(data []byte) (year, month, day int, ok bool) {
	i := 0
	n := len(data)

	// component tries to consume a digit run immediately followed by
	// suffix. A digit run present but rejected (wrong suffix or too
	// many digits) leaves i untouched so the same digits can be
	// retried against the next suffix in sequence.
	component := func(suffix byte, maxDigits int) int {
		start := i
		j := start
		for j < n && data[j] >= '0' && data[j] <= '9' {
			j++
		}
		if j == start || j-start > maxDigits || j >= n || data[j] != suffix {
			return 0
		}
		v := 0
		for _, b := range data[start:j] {
			v = v*10 + int(b-'0')
		}
		i = j + 1
		return v
	}

	y := component('y', 3)
	m := component('m', 4)
	d := component('d', 5)
	if i != n {
		return 0, 0, 0, false
	}
	return y, m, d, true
}
