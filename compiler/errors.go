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

import "fmt"

// CompileErrorKind enumerates the ways a qir.Query can be malformed,
// per spec.md §7.
type CompileErrorKind int

const (
	MissingFrom CompileErrorKind = iota
	UnknownInput
	DuplicateCTEName
	CTEMissingAlias
	CTEHasKeyBy
	LimitOffsetWithoutOrderBy
	UnknownFunction
	EmptyRefPath
	AggregateOutsideGroupBy
	InvalidJoinType
)

func (k CompileErrorKind) String() string {
	switch k {
	case MissingFrom:
		return "MissingFrom"
	case UnknownInput:
		return "UnknownInput"
	case DuplicateCTEName:
		return "DuplicateCTEName"
	case CTEMissingAlias:
		return "CTEMissingAlias"
	case CTEHasKeyBy:
		return "CTEHasKeyBy"
	case LimitOffsetWithoutOrderBy:
		return "LimitOffsetWithoutOrderBy"
	case UnknownFunction:
		return "UnknownFunction"
	case EmptyRefPath:
		return "EmptyRefPath"
	case AggregateOutsideGroupBy:
		return "AggregateOutsideGroupBy"
	case InvalidJoinType:
		return "InvalidJoinType"
	default:
		return fmt.Sprintf("CompileErrorKind(%d)", int(k))
	}
}

// CompileError is raised synchronously at compile time. Operators that
// Compile had already wired before raising one stay in the graph.
type CompileError struct {
	Kind CompileErrorKind
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile: %s: %s", e.Kind, e.Msg)
}

func compileErrorf(kind CompileErrorKind, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
