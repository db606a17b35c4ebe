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

package compiler

import "github.com/where-app-hq/ivm-engine/qir"

// cache is the sub-query compile cache: a QIR sub-query object
// compiled twice within one Compile call (e.g. the same *qir.Query
// used in both a from and a join.from) is compiled once and reused,
// per spec.md §4.6 item 9 and property P8.
//
// Keying is by *qir.Query pointer identity, the Go analogue of
// spec.md §9's "explicitly allocated node id" resolution: a *qir.Query
// already has a stable identity for the lifetime of one Compile call,
// so no separate id needs to be minted.
type cache struct {
	streams map[*qir.Query]Stream
}

func newCache() *cache {
	return &cache{streams: make(map[*qir.Query]Stream)}
}

func (c *cache) get(q *qir.Query) (Stream, bool) {
	s, ok := c.streams[q]
	return s, ok
}

func (c *cache) put(q *qir.Query, s Stream) {
	c.streams[q] = s
}
