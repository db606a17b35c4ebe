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

// Package eval compiles qir.Expr trees into Go closures once, ahead
// of the per-row hot path, rather than interpreting the tree on every
// invocation. A compiled expression is a Func: namespaced row in,
// (value, error) out.
//
// A Row is the namespaced record an expression evaluates against:
// alias -> that source's row value. Row values and nested record
// fields use Go's encoding/json decode shape
// (map[string]any, []any, float64, string, bool, nil).
package eval
