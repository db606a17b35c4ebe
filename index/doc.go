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

// Package index implements Index, the per-key multiset store that the
// join operator (and anything else keyed) uses to accumulate state
// across rounds.
//
// An Index compacts a key's value list lazily: addValue/append only
// mark a key dirty, and the next Get (or Join) for that key is what
// actually folds equal values together and drops zero-multiplicity
// entries. This keeps steady-state appends O(1) while bounding memory
// at read time, exactly as spec.md §4.2 requires.
package index
