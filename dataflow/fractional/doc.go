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

// Package fractional generates stable, lexically-ordered string
// indices between two existing indices, so that inserting an element
// into a sorted window only needs to assign one new index rather than
// renumber every element after it (spec.md §9). Indices are base-62
// digit strings ("a" < "a5" < "b" < ...); Between computes a string
// that sorts strictly between its two (possibly absent) bounds.
package fractional
