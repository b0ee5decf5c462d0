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

// Package columnar implements the byte-level building blocks of the storage
// format: LEB128 integer framing, the four primitive column codecs (run
// length, delta, boolean run and raw value) and the typed column sets that
// change and document chunks are assembled from.
//
// Every decoder in this package is an explicit state machine owning a cursor
// into its input slice. Decoders never retain state across inputs and a
// decoder fed the output of the matching encoder yields the original value
// sequence exactly.
package columnar

import (
	"unicode/utf8"
)

// AppendUleb128 appends v to b as an unsigned LEB128 integer.
func AppendUleb128(b []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

// AppendSleb128 appends v to b as a signed LEB128 integer.
func AppendSleb128(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

// AppendBytes appends a length-prefixed byte string to b.
func AppendBytes(b, data []byte) []byte {
	b = AppendUleb128(b, uint64(len(data)))
	return append(b, data...)
}

// AppendString appends a length-prefixed UTF-8 string to b.
func AppendString(b []byte, s string) []byte {
	b = AppendUleb128(b, uint64(len(s)))
	return append(b, s...)
}

// Decoder is a cursor over an input buffer. All reads consume from the
// front; a read past the end fails with ErrTruncated and leaves the cursor
// unchanged.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder returns a decoder reading from buf. The decoder aliases buf;
// the caller must not mutate it while decoding.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Len returns the number of unread bytes.
func (d *Decoder) Len() int { return len(d.buf) - d.off }

// Done reports whether the input is exhausted.
func (d *Decoder) Done() bool { return d.off >= len(d.buf) }

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int { return d.off }

// ReadByte consumes a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.off >= len(d.buf) {
		return 0, ErrTruncated
	}
	b := d.buf[d.off]
	d.off++
	return b, nil
}

// ReadBytes consumes n bytes and returns them as a subslice of the input.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || d.Len() < n {
		return nil, ErrTruncated
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b, nil
}

// ReadUleb128 consumes an unsigned LEB128 integer.
func (d *Decoder) ReadUleb128() (uint64, error) {
	var v uint64
	var shift uint
	start := d.off
	for {
		if d.off >= len(d.buf) {
			d.off = start
			return 0, ErrTruncated
		}
		c := d.buf[d.off]
		d.off++
		if shift == 63 && c > 1 {
			d.off = start
			return 0, ErrLeb128Overflow
		}
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, nil
		}
		shift += 7
		if shift > 63 {
			d.off = start
			return 0, ErrLeb128Overflow
		}
	}
}

// ReadSleb128 consumes a signed LEB128 integer.
func (d *Decoder) ReadSleb128() (int64, error) {
	var v int64
	var shift uint
	start := d.off
	for {
		if d.off >= len(d.buf) {
			d.off = start
			return 0, ErrTruncated
		}
		c := d.buf[d.off]
		d.off++
		v |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			if shift < 64 && c&0x40 != 0 {
				v |= -1 << shift
			}
			return v, nil
		}
		if shift > 63 {
			d.off = start
			return 0, ErrLeb128Overflow
		}
	}
}

// ReadLenBytes consumes a length-prefixed byte string.
func (d *Decoder) ReadLenBytes() ([]byte, error) {
	start := d.off
	n, err := d.ReadUleb128()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Len()) {
		d.off = start
		return nil, ErrTruncated
	}
	return d.ReadBytes(int(n))
}

// ReadString consumes a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadLenBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ErrInvalidUTF8
	}
	return string(b), nil
}
