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

// DeltaEncoder encodes a stream of signed integers as first differences
// against a running absolute value, run length encoded. The initial
// absolute is 0. A null passes through without advancing the absolute.
type DeltaEncoder struct {
	rle IntRLEEncoder
	abs int64
}

// Append adds a value to the stream.
func (e *DeltaEncoder) Append(v int64) {
	e.rle.Append(v - e.abs)
	e.abs = v
}

// AppendNull adds a null to the stream.
func (e *DeltaEncoder) AppendNull() {
	e.rle.AppendNull()
}

// Bytes flushes any pending record and returns the encoded stream.
func (e *DeltaEncoder) Bytes() []byte {
	return e.rle.Bytes()
}

// DeltaDecoder decodes a first-difference stream.
type DeltaDecoder struct {
	rle *IntRLEDecoder
	abs int64
}

// NewDeltaDecoder returns a decoder over buf.
func NewDeltaDecoder(buf []byte) *DeltaDecoder {
	return &DeltaDecoder{rle: NewIntRLEDecoder(buf)}
}

// Done reports whether the stream is exhausted.
func (r *DeltaDecoder) Done() bool { return r.rle.Done() }

// Next returns the next value, or null=true for a null entry.
func (r *DeltaDecoder) Next() (int64, bool, error) {
	d, null, err := r.rle.Next()
	if err != nil || null {
		return 0, null, err
	}
	r.abs += d
	return r.abs, false, nil
}
