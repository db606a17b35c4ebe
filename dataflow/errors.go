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

import "fmt"

// GraphErrorKind enumerates the ways a Graph can refuse an operation.
type GraphErrorKind int

const (
	// GraphErrorFinalized is returned when an operator constructor is
	// called against a Graph that has already been finalized.
	GraphErrorFinalized GraphErrorKind = iota
	// GraphErrorCrossGraph is returned when a binary operator (concat,
	// join, ...) is given edges owned by two different
	// Graph instances.
	GraphErrorCrossGraph
	// GraphErrorNotFinalized is returned when Run is called on a
	// Graph that has not yet been finalized.
	GraphErrorNotFinalized
	// GraphErrorBusy is returned when Run is invoked re-entrantly --
	// from inside another Run call on the same Graph, e.g. from an
	// Output or debug callback that holds a reference back to the
	// graph it was registered on.
	GraphErrorBusy
)

func (k GraphErrorKind) String() string {
	switch k {
	case GraphErrorFinalized:
		return "graph already finalized"
	case GraphErrorCrossGraph:
		return "edges belong to different graphs"
	case GraphErrorNotFinalized:
		return "graph not finalized"
	case GraphErrorBusy:
		return "graph is already running"
	default:
		return "unknown graph error"
	}
}

// GraphError is the single error type the dataflow package returns
// for structural misuse of a Graph -- never for data-level failures,
// which surface as eval.ExecError instead.
type GraphError struct {
	Kind GraphErrorKind
	Msg  string
}

func (e *GraphError) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func graphErrorf(kind GraphErrorKind, f string, args ...interface{}) *GraphError {
	return &GraphError{Kind: kind, Msg: fmt.Sprintf(f, args...)}
}
