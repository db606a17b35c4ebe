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

import (
	"encoding/json"
	"strings"

	"github.com/where-app-hq/ivm-engine/date"
	"github.com/where-app-hq/ivm-engine/utf8"
)

// builtin is an eagerly-evaluated function: every argument has
// already been compiled and run against the row by the time builtin
// sees it. and/or/not are handled separately in compileFunc because
// they must short-circuit.
type builtin func(args []any) (any, error)

var builtins = map[string]builtin{
	"upper":     bUpper,
	"lower":     bLower,
	"length":    bLength,
	"concat":    bConcat,
	"coalesce":  bCoalesce,
	"add":       bArith('+'),
	"subtract":  bArith('-'),
	"multiply":  bArith('*'),
	"divide":    bArith('/'),
	"in":        bIn,
	"like":      bLike(false),
	"ilike":     bLike(true),
	"eq":        bCompare(cmpEQ),
	"neq":       bCompare(cmpNEQ),
	"lt":        bCompare(cmpLT),
	"lte":       bCompare(cmpLTE),
	"gt":        bCompare(cmpGT),
	"gte":       bCompare(cmpGTE),
	"json_extract": bJSONExtract,
	"date":         bDate,
}

func isNullish(v any) bool { return v == nil }

func bUpper(args []any) (any, error) {
	s, ok := args[0].(string)
	if !ok {
		// TypeMismatch is reserved for length(); upper/lower pass
		// non-strings through unchanged per spec.md §4.7.
		return args[0], nil
	}
	return strings.ToUpper(s), nil
}

func bLower(args []any) (any, error) {
	s, ok := args[0].(string)
	if !ok {
		return args[0], nil
	}
	return strings.ToLower(s), nil
}

func bLength(args []any) (any, error) {
	switch v := args[0].(type) {
	case string:
		return utf8.ValidStringLength([]byte(v)), nil
	case []any:
		return len(v), nil
	default:
		return nil, execErrorf(TypeMismatch, "length() of non-string/non-array %T", args[0])
	}
}

func bConcat(args []any) (any, error) {
	var b strings.Builder
	for _, a := range args {
		if isNullish(a) {
			continue
		}
		s, ok := a.(string)
		if !ok {
			s = toDisplayString(a)
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func bCoalesce(args []any) (any, error) {
	for _, a := range args {
		if !isNullish(a) {
			return a, nil
		}
	}
	return nil, nil
}

// AsFloat coerces a value to a float64 for callers outside this
// package that need the same numeric coercion rules arithmetic and
// comparison builtins use (the compiler's aggregate getters and
// order-by numeric comparisons, in particular). A nullish value is
// not coerced to zero; callers that want that must check for nil
// themselves.
func AsFloat(v any) (float64, bool) { return asFloat(v, false) }

func asFloat(v any, defaultZero bool) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	if isNullish(v) && defaultZero {
		return 0, true
	}
	return 0, false
}

func bArith(op byte) builtin {
	return func(args []any) (any, error) {
		a, aok := asFloat(args[0], true)
		b, bok := asFloat(args[1], true)
		if !aok || !bok {
			return nil, execErrorf(TypeMismatch, "%c of non-numeric operand", op)
		}
		switch op {
		case '+':
			return a + b, nil
		case '-':
			return a - b, nil
		case '*':
			return a * b, nil
		case '/':
			if b == 0 {
				return nil, nil
			}
			return a / b, nil
		}
		panic("unreachable")
	}
}

func bIn(args []any) (any, error) {
	needle, haystack := args[0], args[1]
	arr, ok := haystack.([]any)
	if !ok {
		return false, nil
	}
	for _, v := range arr {
		if valuesEqual(needle, v) {
			return true, nil
		}
	}
	return false, nil
}

// bLike compiles % / _ wildcards with \ as the only escape character,
// per spec.md's resolved Open Question (only \% and \_ are escapes;
// every other regex metacharacter is literal).
func bLike(insensitive bool) builtin {
	return func(args []any) (any, error) {
		s, sok := args[0].(string)
		pat, pok := args[1].(string)
		if !sok || !pok {
			return false, nil
		}
		if insensitive {
			s = strings.ToLower(s)
			pat = strings.ToLower(pat)
		}
		return likeMatch(s, pat), nil
	}
}

func likeMatch(s, pat string) bool {
	// Translate the LIKE pattern into a simple recursive matcher
	// instead of building a regexp, since only two metacharacters
	// (and one escape) are in play.
	return likeMatchRunes([]rune(s), []rune(pat))
}

func likeMatchRunes(s, pat []rune) bool {
	for len(pat) > 0 {
		switch pat[0] {
		case '\\':
			if len(pat) < 2 || (pat[1] != '%' && pat[1] != '_') {
				// stray backslash: treated literally.
				if len(s) == 0 || s[0] != '\\' {
					return false
				}
				s, pat = s[1:], pat[1:]
				continue
			}
			if len(s) == 0 || s[0] != pat[1] {
				return false
			}
			s, pat = s[1:], pat[2:]
		case '%':
			if len(pat) == 1 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if likeMatchRunes(s[i:], pat[1:]) {
					return true
				}
			}
			return false
		case '_':
			if len(s) == 0 {
				return false
			}
			s, pat = s[1:], pat[1:]
		default:
			if len(s) == 0 || s[0] != pat[0] {
				return false
			}
			s, pat = s[1:], pat[1:]
		}
	}
	return len(s) == 0
}

type cmpKind int

const (
	cmpEQ cmpKind = iota
	cmpNEQ
	cmpLT
	cmpLTE
	cmpGT
	cmpGTE
)

func bCompare(kind cmpKind) builtin {
	return func(args []any) (any, error) {
		a, b := args[0], args[1]
		switch kind {
		case cmpEQ:
			return valuesEqual(a, b), nil
		case cmpNEQ:
			return !valuesEqual(a, b), nil
		}
		af, aok := asFloat(a, false)
		bf, bok := asFloat(b, false)
		if aok && bok {
			switch kind {
			case cmpLT:
				return af < bf, nil
			case cmpLTE:
				return af <= bf, nil
			case cmpGT:
				return af > bf, nil
			case cmpGTE:
				return af >= bf, nil
			}
		}
		as, aIsStr := a.(string)
		bs, bIsStr := b.(string)
		if aIsStr && bIsStr {
			switch kind {
			case cmpLT:
				return as < bs, nil
			case cmpLTE:
				return as <= bs, nil
			case cmpGT:
				return as > bs, nil
			case cmpGTE:
				return as >= bs, nil
			}
		}
		return false, nil
	}
}

func bJSONExtract(args []any) (any, error) {
	input := args[0]
	if isNullish(input) {
		return nil, nil
	}
	var cur any
	switch v := input.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &cur); err != nil {
			return nil, execErrorf(InvalidJSON, "json_extract: %s", err)
		}
	default:
		cur = v
	}
	for _, p := range args[1:] {
		if cur == nil {
			return nil, nil
		}
		switch key := p.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, nil
			}
			cur, ok = m[key]
			if !ok {
				return nil, nil
			}
		default:
			idx, ok := asFloat(p, false)
			arr, isArr := cur.([]any)
			if !ok || !isArr || int(idx) < 0 || int(idx) >= len(arr) {
				return nil, nil
			}
			cur = arr[int(idx)]
		}
	}
	return cur, nil
}

func bDate(args []any) (any, error) {
	input := args[0]
	if isNullish(input) {
		return nil, nil
	}
	switch v := input.(type) {
	case date.Time:
		return v, nil
	case float64:
		return date.Unix(int64(v), 0), nil
	case int:
		return date.Unix(int64(v), 0), nil
	case int64:
		return date.Unix(v, 0), nil
	case string:
		t, ok := date.Parse([]byte(v))
		if !ok {
			return nil, execErrorf(InvalidDate, "date(): unparseable date string %q", v)
		}
		return t, nil
	default:
		return nil, execErrorf(InvalidDate, "date(): unsupported input type %T", v)
	}
}

func toDisplayString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		if s {
			return "true"
		}
		return "false"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func valuesEqual(a, b any) bool {
	if isNullish(a) || isNullish(b) {
		return isNullish(a) && isNullish(b)
	}
	af, aok := asFloat(a, false)
	bf, bok := asFloat(b, false)
	if aok && bok {
		return af == bf
	}
	return a == b
}
