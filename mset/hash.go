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

package mset

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/dchest/siphash"
)

// siphash key used to digest canonicalized values. The key is fixed
// so that digests are stable across rounds and processes; it is not
// a security boundary, only a distribution aid (see canonicalKey,
// which is what consolidation actually groups by).
const (
	sipK0 = 0x736e656c6c657231
	sipK1 = 0x6976656e67696e65
)

// type tags used to prefix every canonicalized value so that
// structurally different types (e.g. integer 1 vs string "1")
// never collide.
const (
	tagNil byte = iota
	tagBool
	tagInt
	tagUint
	tagFloat
	tagString
	tagBytes
	tagSlice
	tagMap
	tagStruct
	tagPointer
)

// canonicalKey produces a deterministic, type-distinguishing
// serialization of v suitable for use as a map key when grouping
// structurally-equal values during consolidation. Two values that
// produce the same canonicalKey are considered the same element of a
// Multiset. Tags distinguish kind families, not exact Go types: every
// signed integer width shares one tag (int(1) and int64(1) give the
// same key), as do every unsigned width and both float widths, while
// values of different families, such as integer 1 and string "1",
// get different keys.
func canonicalKey(v any) string {
	var buf []byte
	buf = appendValue(buf, reflect.ValueOf(v))
	return string(buf)
}

// hashOf returns a cheap 64-bit digest of v's canonical encoding. It
// is used for log/debug summaries and as a bucketing aid; it is never
// used on its own to decide equality (canonicalKey is, since digests
// can collide).
func hashOf(v any) uint64 {
	var buf []byte
	buf = appendValue(buf, reflect.ValueOf(v))
	return siphash.Hash(sipK0, sipK1, buf)
}

func appendValue(buf []byte, rv reflect.Value) []byte {
	if !rv.IsValid() {
		return append(buf, tagNil)
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return append(buf, tagNil)
		}
		buf = append(buf, tagPointer)
		return appendValue(buf, rv.Elem())
	case reflect.Bool:
		buf = append(buf, tagBool)
		if rv.Bool() {
			return append(buf, 1)
		}
		return append(buf, 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf = append(buf, tagInt)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(rv.Int()))
		return append(buf, tmp[:]...)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		buf = append(buf, tagUint)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], rv.Uint())
		return append(buf, tmp[:]...)
	case reflect.Float32, reflect.Float64:
		buf = append(buf, tagFloat)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(rv.Float()))
		return append(buf, tmp[:]...)
	case reflect.String:
		buf = append(buf, tagString)
		return appendLenPrefixed(buf, []byte(rv.String()))
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			buf = append(buf, tagBytes)
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return appendLenPrefixed(buf, b)
		}
		buf = append(buf, tagSlice)
		buf = appendUvarint(buf, uint64(rv.Len()))
		for i := 0; i < rv.Len(); i++ {
			buf = appendValue(buf, rv.Index(i))
		}
		return buf
	case reflect.Map:
		buf = append(buf, tagMap)
		keys := rv.MapKeys()
		enc := make([]string, len(keys))
		vals := make([]reflect.Value, len(keys))
		for i, k := range keys {
			enc[i] = string(appendValue(nil, k))
			vals[i] = rv.MapIndex(k)
		}
		order := make([]int, len(keys))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool { return enc[order[a]] < enc[order[b]] })
		buf = appendUvarint(buf, uint64(len(keys)))
		for _, i := range order {
			buf = append(buf, enc[i]...)
			buf = appendValue(buf, vals[i])
		}
		return buf
	case reflect.Struct:
		buf = append(buf, tagStruct)
		t := rv.Type()
		buf = appendLenPrefixed(buf, []byte(t.Name()))
		buf = appendUvarint(buf, uint64(t.NumField()))
		for i := 0; i < t.NumField(); i++ {
			buf = appendLenPrefixed(buf, []byte(t.Field(i).Name))
			buf = appendValue(buf, rv.Field(i))
		}
		return buf
	default:
		// Channels, funcs, unsafe pointers: not valid Multiset
		// element content. We don't error here (all mset
		// operations are total per spec.md §4.1) but degrade
		// to a type+pointer-identity tag so at least distinct
		// instances don't silently collide.
		buf = append(buf, tagString)
		return appendLenPrefixed(buf, []byte(fmt.Sprintf("<%s:%v>", rv.Type(), rv)))
	}
}

func appendLenPrefixed(buf, b []byte) []byte {
	buf = appendUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}
