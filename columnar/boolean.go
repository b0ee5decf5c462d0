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

// BooleanEncoder encodes a stream of booleans as alternating unsigned
// LEB128 run lengths, starting with the count of leading false values
// (possibly zero).
type BooleanEncoder struct {
	buf   []byte
	cur   bool
	count uint64
	any   bool
}

// Append adds a value to the stream.
func (e *BooleanEncoder) Append(v bool) {
	if !e.any {
		e.any = true
		if v {
			// Zero-length leading false run.
			e.buf = AppendUleb128(e.buf, 0)
		}
		e.cur = v
		e.count = 1
		return
	}
	if v == e.cur {
		e.count++
		return
	}
	e.buf = AppendUleb128(e.buf, e.count)
	e.cur = v
	e.count = 1
}

// Bytes flushes the trailing run and returns the encoded stream. An empty
// stream yields no bytes.
func (e *BooleanEncoder) Bytes() []byte {
	if e.any && e.count > 0 {
		e.buf = AppendUleb128(e.buf, e.count)
		e.count = 0
	}
	return e.buf
}

// BooleanDecoder decodes an alternating run length boolean stream.
// Zero-length runs are accepted anywhere, including a meaningless
// trailing zero emitted by some historical producers.
type BooleanDecoder struct {
	d     *Decoder
	cur   bool
	count uint64
	err   error
}

// NewBooleanDecoder returns a decoder over buf.
func NewBooleanDecoder(buf []byte) *BooleanDecoder {
	// The first run read flips cur to false.
	return &BooleanDecoder{d: NewDecoder(buf), cur: true}
}

// Done reports whether the stream is exhausted. Trailing zero-length runs
// are consumed.
func (r *BooleanDecoder) Done() bool {
	for r.count == 0 {
		if r.d.Done() || r.err != nil {
			return true
		}
		c, err := r.d.ReadUleb128()
		if err != nil {
			r.err = err
			return true
		}
		r.cur = !r.cur
		r.count = c
	}
	return false
}

// Next returns the next boolean value.
func (r *BooleanDecoder) Next() (bool, error) {
	if r.Done() {
		if r.err != nil {
			return false, r.err
		}
		return false, ErrTruncated
	}
	r.count--
	return r.cur, nil
}
