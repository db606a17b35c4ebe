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

// Package mset implements Multiset, the signed-multiplicity bag of
// values that every delta flowing through the dataflow graph is made
// of.
//
// A Multiset never carries entries with multiplicity zero once
// Consolidate has been applied; callers that need to inspect raw,
// possibly-cancelling entries (the state within a single round) use
// Inner directly.
package mset
