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

package columnar

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io/ioutil"
)

// ColumnType identifies the primitive codec a column is decoded with.
type ColumnType uint32

const (
	ColumnGroup ColumnType = iota
	ColumnActor
	ColumnInt
	ColumnDeltaInt
	ColumnBoolean
	ColumnString
	ColumnValueMeta
	ColumnValue
)

const specDeflateBit = 0x08

// ColumnSpec is the 32-bit word identifying a column: a logical column id
// in the upper bits, a deflate flag and the column type in the low nibble.
type ColumnSpec uint32

// MakeColumnSpec assembles a spec from a column id and type.
func MakeColumnSpec(id uint32, typ ColumnType) ColumnSpec {
	return ColumnSpec(id<<4) | ColumnSpec(typ)
}

// ID returns the logical column id.
func (s ColumnSpec) ID() uint32 { return uint32(s) >> 4 }

// Type returns the column type.
func (s ColumnSpec) Type() ColumnType { return ColumnType(s & 0x07) }

// Deflate reports whether the column data is stored DEFLATE compressed.
func (s ColumnSpec) Deflate() bool { return s&specDeflateBit != 0 }

// WithDeflate returns the spec with the deflate flag set.
func (s ColumnSpec) WithDeflate() ColumnSpec { return s | specDeflateBit }

// Normalize returns the spec with the deflate flag cleared. Columns are
// ordered by their normalised spec on the wire.
func (s ColumnSpec) Normalize() ColumnSpec { return s &^ specDeflateBit }

// RawColumn is one column of a column set: its spec and its encoded data.
type RawColumn struct {
	Spec ColumnSpec
	Data []byte
}

// DeflateThreshold is the size above which writers compress individual
// column data. Columns at or below the threshold are stored raw.
const DeflateThreshold = 250

// WriteColumnSet appends a column set to buf: a length-prefixed list of
// (spec, byte length) pairs followed by the column data in the same order.
// Columns with empty data are omitted. Columns must already be in
// ascending normalised spec order.
func WriteColumnSet(buf []byte, cols []RawColumn) ([]byte, error) {
	present := make([]RawColumn, 0, len(cols))
	for _, c := range cols {
		if len(c.Data) > 0 {
			present = append(present, c)
		}
	}
	for i := 1; i < len(present); i++ {
		if present[i].Spec.Normalize() <= present[i-1].Spec.Normalize() {
			return nil, ErrColumnOrder
		}
	}
	buf = AppendUleb128(buf, uint64(len(present)))
	for _, c := range present {
		buf = AppendUleb128(buf, uint64(c.Spec))
		buf = AppendUleb128(buf, uint64(len(c.Data)))
	}
	for _, c := range present {
		buf = append(buf, c.Data...)
	}
	return buf, nil
}

// DeflateColumns compresses the data of any column larger than threshold,
// setting the deflate flag on its spec. The input is not modified.
func DeflateColumns(cols []RawColumn, threshold int) []RawColumn {
	out := make([]RawColumn, len(cols))
	for i, c := range cols {
		if len(c.Data) <= threshold || c.Spec.Deflate() {
			out[i] = c
			continue
		}
		out[i] = RawColumn{Spec: c.Spec.WithDeflate(), Data: Deflate(c.Data)}
	}
	return out
}

// ReadColumnSet parses a column set from d, validating the layout rules:
// ascending normalised spec order without duplicates, raw value columns
// immediately preceded by their metadata column, no group column inside
// another group's run. Deflated columns are inflated; the returned specs
// carry no deflate flag.
func ReadColumnSet(d *Decoder) ([]RawColumn, error) {
	n, err := d.ReadUleb128()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Len())/2 {
		// Each column header takes at least two bytes.
		return nil, ErrTruncated
	}
	cols := make([]RawColumn, n)
	lengths := make([]uint64, n)
	var (
		totalLen   uint64
		groupID    uint32
		inGroup    bool
		prevSpec   ColumnSpec
		havePrev   bool
		prevIsMeta bool
	)
	for i := range cols {
		spec64, err := d.ReadUleb128()
		if err != nil {
			return nil, err
		}
		length, err := d.ReadUleb128()
		if err != nil {
			return nil, err
		}
		spec := ColumnSpec(spec64)
		if havePrev {
			switch {
			case spec.Normalize() == prevSpec.Normalize():
				return nil, ErrDuplicateColumn
			case spec.Normalize() < prevSpec.Normalize():
				return nil, ErrColumnOrder
			}
		}
		if inGroup && spec.ID() != groupID {
			inGroup = false
		}
		switch spec.Type() {
		case ColumnGroup:
			if inGroup {
				return nil, ErrNestedGroup
			}
			groupID, inGroup = spec.ID(), true
		case ColumnValue:
			if !prevIsMeta || prevSpec.ID() != spec.ID() {
				return nil, ErrValueWithoutMeta
			}
		}
		prevIsMeta = spec.Type() == ColumnValueMeta
		prevSpec, havePrev = spec, true
		totalLen += length
		if totalLen < length || totalLen > uint64(d.Len()) {
			return nil, ErrTruncated
		}
		cols[i].Spec = spec
		lengths[i] = length
	}
	for i := range cols {
		data, err := d.ReadBytes(int(lengths[i]))
		if err != nil {
			return nil, err
		}
		if cols[i].Spec.Deflate() {
			inflated, err := inflate(data)
			if err != nil {
				return nil, err
			}
			cols[i].Spec = cols[i].Spec.Normalize()
			data = inflated
		}
		cols[i].Data = data
	}
	return cols, nil
}

// Inflate decompresses a raw DEFLATE stream.
func Inflate(data []byte) ([]byte, error) {
	return inflate(data)
}

// Deflate compresses data as a raw DEFLATE stream.
func Deflate(data []byte) []byte {
	var b bytes.Buffer
	w, _ := flate.NewWriter(&b, flate.DefaultCompression)
	w.Write(data)
	w.Close()
	return b.Bytes()
}

func inflate(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	out, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDeflate, err)
	}
	r.Close()
	return out, nil
}
