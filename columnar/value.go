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

// Value type tags carried in the low 4 bits of each value metadata entry.
// The upper bits hold the payload byte length.
const (
	TagNull      = 0
	TagFalse     = 1
	TagTrue      = 2
	TagUint      = 3 // unsigned LEB128 payload
	TagInt       = 4 // signed LEB128 payload
	TagF32       = 5 // little-endian IEEE-754 single
	TagF64       = 6 // little-endian IEEE-754 double
	TagString    = 7 // UTF-8 payload
	TagBytes     = 8
	TagCounter   = 9  // signed LEB128 payload
	TagTimestamp = 10 // signed LEB128 payload, epoch milliseconds

	maxValueTag = 10
)

// ValueEncoder encodes a stream of tagged values into two parallel
// columns: a metadata column (run length encoded unsigned integers whose
// low 4 bits are the type tag and upper bits the payload length) and a raw
// column of concatenated payloads.
type ValueEncoder struct {
	meta UintRLEEncoder
	raw  []byte
}

// Append adds one value to the stream. Null, false and true must carry an
// empty payload.
func (e *ValueEncoder) Append(tag uint8, payload []byte) {
	e.meta.Append(uint64(len(payload))<<4 | uint64(tag))
	e.raw = append(e.raw, payload...)
}

// MetaBytes returns the encoded metadata column. Call once, after the last
// Append.
func (e *ValueEncoder) MetaBytes() []byte { return e.meta.Bytes() }

// RawBytes returns the raw payload column.
func (e *ValueEncoder) RawBytes() []byte { return e.raw }

// ValueDecoder decodes the parallel metadata and raw value columns.
type ValueDecoder struct {
	meta *UintRLEDecoder
	raw  *Decoder
}

// NewValueDecoder returns a decoder over the given column pair.
func NewValueDecoder(meta, raw []byte) *ValueDecoder {
	return &ValueDecoder{meta: NewUintRLEDecoder(meta), raw: NewDecoder(raw)}
}

// Done reports whether the stream is exhausted.
func (r *ValueDecoder) Done() bool { return r.meta.Done() }

// Next returns the next value's type tag and payload.
func (r *ValueDecoder) Next() (tag uint8, payload []byte, err error) {
	m, null, err := r.meta.Next()
	if err != nil {
		return 0, nil, err
	}
	if null {
		// A null metadata entry stands for an absent value.
		return TagNull, nil, nil
	}
	tag = uint8(m & 0x0f)
	length := m >> 4
	if tag > maxValueTag {
		return 0, nil, ErrBadValueTag
	}
	if tag <= TagTrue && length != 0 {
		return 0, nil, ErrBadValueTag
	}
	payload, err = r.raw.ReadBytes(int(length))
	if err != nil {
		return 0, nil, err
	}
	return tag, payload, nil
}
