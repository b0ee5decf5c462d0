// Copyright 2022 The go-syncdoc Authors
// This file is part of the go-syncdoc library.
//
// The go-syncdoc library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-syncdoc library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-syncdoc library. If not, see <http://www.gnu.org/licenses/>.

package types

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/syncdoc/go-syncdoc/columnar"
)

// ValueKind discriminates the members of the scalar value union.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueUint
	ValueInt
	ValueF64
	ValueString
	ValueBytes
	ValueCounter
	ValueTimestamp
)

// ScalarValue is a tagged union of the primitive values storable in a
// document. Counter carries increment-merge semantics; Timestamp is epoch
// milliseconds.
type ScalarValue struct {
	Kind  ValueKind
	Bool  bool
	Uint  uint64
	Int   int64 // int, counter and timestamp payloads
	F64   float64
	Str   string
	Bytes []byte
}

func NullValue() ScalarValue             { return ScalarValue{Kind: ValueNull} }
func BoolValue(b bool) ScalarValue       { return ScalarValue{Kind: ValueBool, Bool: b} }
func UintValue(v uint64) ScalarValue     { return ScalarValue{Kind: ValueUint, Uint: v} }
func IntValue(v int64) ScalarValue       { return ScalarValue{Kind: ValueInt, Int: v} }
func F64Value(v float64) ScalarValue     { return ScalarValue{Kind: ValueF64, F64: v} }
func StringValue(s string) ScalarValue   { return ScalarValue{Kind: ValueString, Str: s} }
func BytesValue(b []byte) ScalarValue    { return ScalarValue{Kind: ValueBytes, Bytes: b} }
func CounterValue(v int64) ScalarValue   { return ScalarValue{Kind: ValueCounter, Int: v} }
func TimestampValue(ms int64) ScalarValue { return ScalarValue{Kind: ValueTimestamp, Int: ms} }

// IsNull reports whether v is the null value.
func (v ScalarValue) IsNull() bool { return v.Kind == ValueNull }

// Equal reports whether two scalar values are identical.
func (v ScalarValue) Equal(other ScalarValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValueNull:
		return true
	case ValueBool:
		return v.Bool == other.Bool
	case ValueUint:
		return v.Uint == other.Uint
	case ValueInt, ValueCounter, ValueTimestamp:
		return v.Int == other.Int
	case ValueF64:
		return v.F64 == other.F64
	case ValueString:
		return v.Str == other.Str
	case ValueBytes:
		return bytes.Equal(v.Bytes, other.Bytes)
	}
	return false
}

// String implements the stringer interface.
func (v ScalarValue) String() string {
	switch v.Kind {
	case ValueNull:
		return "null"
	case ValueBool:
		return fmt.Sprintf("%t", v.Bool)
	case ValueUint:
		return fmt.Sprintf("%d", v.Uint)
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueF64:
		return fmt.Sprintf("%g", v.F64)
	case ValueString:
		return fmt.Sprintf("%q", v.Str)
	case ValueBytes:
		return fmt.Sprintf("0x%x", v.Bytes)
	case ValueCounter:
		return fmt.Sprintf("counter(%d)", v.Int)
	case ValueTimestamp:
		return fmt.Sprintf("timestamp(%d)", v.Int)
	}
	return "invalid"
}

// EncodeScalar returns the value column type tag and payload bytes for
// v.
func EncodeScalar(v ScalarValue) (uint8, []byte) {
	return v.encode()
}

// DecodeScalar reconstructs a scalar value from a value column entry.
func DecodeScalar(tag uint8, payload []byte) (ScalarValue, error) {
	return decodeScalar(tag, payload)
}

// encode returns the value column type tag and payload bytes for v.
func (v ScalarValue) encode() (uint8, []byte) {
	switch v.Kind {
	case ValueNull:
		return columnar.TagNull, nil
	case ValueBool:
		if v.Bool {
			return columnar.TagTrue, nil
		}
		return columnar.TagFalse, nil
	case ValueUint:
		return columnar.TagUint, columnar.AppendUleb128(nil, v.Uint)
	case ValueInt:
		return columnar.TagInt, columnar.AppendSleb128(nil, v.Int)
	case ValueF64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.F64))
		return columnar.TagF64, b[:]
	case ValueString:
		return columnar.TagString, []byte(v.Str)
	case ValueBytes:
		return columnar.TagBytes, v.Bytes
	case ValueCounter:
		return columnar.TagCounter, columnar.AppendSleb128(nil, v.Int)
	case ValueTimestamp:
		return columnar.TagTimestamp, columnar.AppendSleb128(nil, v.Int)
	}
	return columnar.TagNull, nil
}

// decodeScalar reconstructs a scalar value from a value column entry.
// 32-bit floats are widened to f64.
func decodeScalar(tag uint8, payload []byte) (ScalarValue, error) {
	d := columnar.NewDecoder(payload)
	switch tag {
	case columnar.TagNull:
		return NullValue(), nil
	case columnar.TagFalse:
		return BoolValue(false), nil
	case columnar.TagTrue:
		return BoolValue(true), nil
	case columnar.TagUint:
		v, err := d.ReadUleb128()
		if err != nil {
			return ScalarValue{}, err
		}
		if !d.Done() {
			return ScalarValue{}, ErrBadValuePayload
		}
		return UintValue(v), nil
	case columnar.TagInt:
		v, err := d.ReadSleb128()
		if err != nil {
			return ScalarValue{}, err
		}
		if !d.Done() {
			return ScalarValue{}, ErrBadValuePayload
		}
		return IntValue(v), nil
	case columnar.TagF32:
		if len(payload) != 4 {
			return ScalarValue{}, ErrBadValuePayload
		}
		f := math.Float32frombits(binary.LittleEndian.Uint32(payload))
		return F64Value(float64(f)), nil
	case columnar.TagF64:
		if len(payload) != 8 {
			return ScalarValue{}, ErrBadValuePayload
		}
		return F64Value(math.Float64frombits(binary.LittleEndian.Uint64(payload))), nil
	case columnar.TagString:
		if !utf8.Valid(payload) {
			return ScalarValue{}, columnar.ErrInvalidUTF8
		}
		return StringValue(string(payload)), nil
	case columnar.TagBytes:
		b := make([]byte, len(payload))
		copy(b, payload)
		return BytesValue(b), nil
	case columnar.TagCounter:
		v, err := d.ReadSleb128()
		if err != nil {
			return ScalarValue{}, err
		}
		if !d.Done() {
			return ScalarValue{}, ErrBadValuePayload
		}
		return CounterValue(v), nil
	case columnar.TagTimestamp:
		v, err := d.ReadSleb128()
		if err != nil {
			return ScalarValue{}, err
		}
		if !d.Done() {
			return ScalarValue{}, ErrBadValuePayload
		}
		return TimestampValue(v), nil
	}
	return ScalarValue{}, columnar.ErrBadValueTag
}
