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

// The run length format is a sequence of records, each introduced by a
// signed LEB128 count:
//
//	count > 0: a run of count copies of the single value that follows
//	count < 0: |count| literal values back to back
//	count = 0: a null run; an unsigned LEB128 run length follows, no value
//
// Encoders coalesce equal adjacent values into runs and emit literal
// records for non-repeating stretches. Decoders accept any legal mix.

// UintRLEEncoder encodes a stream of unsigned integers (with nulls) in run
// length form. Values are unsigned LEB128.
type UintRLEEncoder struct {
	buf    []byte
	lit    []uint64
	runVal uint64
	runLen int64
	nulls  uint64
}

// Append adds a value to the stream.
func (e *UintRLEEncoder) Append(v uint64) {
	if e.nulls > 0 {
		e.flushNulls()
	}
	if e.runLen > 0 && v == e.runVal {
		e.runLen++
		return
	}
	if e.runLen > 1 {
		e.flushRun()
	} else if e.runLen == 1 {
		e.lit = append(e.lit, e.runVal)
	}
	e.runVal = v
	e.runLen = 1
}

// AppendNull adds a null to the stream.
func (e *UintRLEEncoder) AppendNull() {
	e.finishValues()
	e.nulls++
}

// Bytes flushes any pending record and returns the encoded stream. The
// encoder must not be used afterwards.
func (e *UintRLEEncoder) Bytes() []byte {
	e.finishValues()
	e.flushLit()
	if e.nulls > 0 {
		e.flushNulls()
	}
	return e.buf
}

func (e *UintRLEEncoder) finishValues() {
	if e.runLen > 1 {
		e.flushRun()
	} else if e.runLen == 1 {
		e.lit = append(e.lit, e.runVal)
		e.runLen = 0
	}
	e.flushLit()
}

func (e *UintRLEEncoder) flushRun() {
	e.flushLit()
	e.buf = AppendSleb128(e.buf, e.runLen)
	e.buf = AppendUleb128(e.buf, e.runVal)
	e.runLen = 0
}

func (e *UintRLEEncoder) flushLit() {
	if len(e.lit) == 0 {
		return
	}
	e.buf = AppendSleb128(e.buf, -int64(len(e.lit)))
	for _, v := range e.lit {
		e.buf = AppendUleb128(e.buf, v)
	}
	e.lit = e.lit[:0]
}

func (e *UintRLEEncoder) flushNulls() {
	e.buf = AppendSleb128(e.buf, 0)
	e.buf = AppendUleb128(e.buf, e.nulls)
	e.nulls = 0
}

// UintRLEDecoder decodes a run length stream of unsigned integers.
type UintRLEDecoder struct {
	d       *Decoder
	count   int64
	nulls   uint64
	runVal  uint64
	literal bool
}

// NewUintRLEDecoder returns a decoder over buf.
func NewUintRLEDecoder(buf []byte) *UintRLEDecoder {
	return &UintRLEDecoder{d: NewDecoder(buf)}
}

// Done reports whether the stream is exhausted.
func (r *UintRLEDecoder) Done() bool {
	return r.count == 0 && r.nulls == 0 && r.d.Done()
}

// Next returns the next value, or null=true for a null entry.
func (r *UintRLEDecoder) Next() (v uint64, null bool, err error) {
	for r.count == 0 && r.nulls == 0 {
		if err := r.loadRecord(); err != nil {
			return 0, false, err
		}
	}
	if r.nulls > 0 {
		r.nulls--
		return 0, true, nil
	}
	if r.literal {
		v, err = r.d.ReadUleb128()
		if err != nil {
			return 0, false, err
		}
	} else {
		v = r.runVal
	}
	r.count--
	return v, false, nil
}

func (r *UintRLEDecoder) loadRecord() error {
	if r.d.Done() {
		return ErrTruncated
	}
	c, err := r.d.ReadSleb128()
	if err != nil {
		return err
	}
	switch {
	case c > 0:
		r.runVal, err = r.d.ReadUleb128()
		if err != nil {
			return err
		}
		r.count, r.literal = c, false
	case c < 0:
		if c == -c {
			return ErrBadRunLength
		}
		r.count, r.literal = -c, true
	default:
		r.nulls, err = r.d.ReadUleb128()
		if err != nil {
			return err
		}
	}
	return nil
}

// IntRLEEncoder encodes a stream of signed integers (with nulls) in run
// length form. Values are signed LEB128. It backs the delta codec.
type IntRLEEncoder struct {
	buf    []byte
	lit    []int64
	runVal int64
	runLen int64
	nulls  uint64
}

// Append adds a value to the stream.
func (e *IntRLEEncoder) Append(v int64) {
	if e.nulls > 0 {
		e.flushNulls()
	}
	if e.runLen > 0 && v == e.runVal {
		e.runLen++
		return
	}
	if e.runLen > 1 {
		e.flushRun()
	} else if e.runLen == 1 {
		e.lit = append(e.lit, e.runVal)
	}
	e.runVal = v
	e.runLen = 1
}

// AppendNull adds a null to the stream.
func (e *IntRLEEncoder) AppendNull() {
	e.finishValues()
	e.nulls++
}

// Bytes flushes any pending record and returns the encoded stream.
func (e *IntRLEEncoder) Bytes() []byte {
	e.finishValues()
	e.flushLit()
	if e.nulls > 0 {
		e.flushNulls()
	}
	return e.buf
}

func (e *IntRLEEncoder) finishValues() {
	if e.runLen > 1 {
		e.flushRun()
	} else if e.runLen == 1 {
		e.lit = append(e.lit, e.runVal)
		e.runLen = 0
	}
	e.flushLit()
}

func (e *IntRLEEncoder) flushRun() {
	e.flushLit()
	e.buf = AppendSleb128(e.buf, e.runLen)
	e.buf = AppendSleb128(e.buf, e.runVal)
	e.runLen = 0
}

func (e *IntRLEEncoder) flushLit() {
	if len(e.lit) == 0 {
		return
	}
	e.buf = AppendSleb128(e.buf, -int64(len(e.lit)))
	for _, v := range e.lit {
		e.buf = AppendSleb128(e.buf, v)
	}
	e.lit = e.lit[:0]
}

func (e *IntRLEEncoder) flushNulls() {
	e.buf = AppendSleb128(e.buf, 0)
	e.buf = AppendUleb128(e.buf, e.nulls)
	e.nulls = 0
}

// IntRLEDecoder decodes a run length stream of signed integers.
type IntRLEDecoder struct {
	d       *Decoder
	count   int64
	nulls   uint64
	runVal  int64
	literal bool
}

// NewIntRLEDecoder returns a decoder over buf.
func NewIntRLEDecoder(buf []byte) *IntRLEDecoder {
	return &IntRLEDecoder{d: NewDecoder(buf)}
}

// Done reports whether the stream is exhausted.
func (r *IntRLEDecoder) Done() bool {
	return r.count == 0 && r.nulls == 0 && r.d.Done()
}

// Next returns the next value, or null=true for a null entry.
func (r *IntRLEDecoder) Next() (v int64, null bool, err error) {
	for r.count == 0 && r.nulls == 0 {
		if err := r.loadRecord(); err != nil {
			return 0, false, err
		}
	}
	if r.nulls > 0 {
		r.nulls--
		return 0, true, nil
	}
	if r.literal {
		v, err = r.d.ReadSleb128()
		if err != nil {
			return 0, false, err
		}
	} else {
		v = r.runVal
	}
	r.count--
	return v, false, nil
}

func (r *IntRLEDecoder) loadRecord() error {
	if r.d.Done() {
		return ErrTruncated
	}
	c, err := r.d.ReadSleb128()
	if err != nil {
		return err
	}
	switch {
	case c > 0:
		r.runVal, err = r.d.ReadSleb128()
		if err != nil {
			return err
		}
		r.count, r.literal = c, false
	case c < 0:
		if c == -c {
			return ErrBadRunLength
		}
		r.count, r.literal = -c, true
	default:
		r.nulls, err = r.d.ReadUleb128()
		if err != nil {
			return err
		}
	}
	return nil
}

// StringRLEEncoder encodes a stream of UTF-8 strings (with nulls) in run
// length form. Values are length-prefixed.
type StringRLEEncoder struct {
	buf    []byte
	lit    []string
	runVal string
	runLen int64
	hasRun bool
	nulls  uint64
}

// Append adds a value to the stream.
func (e *StringRLEEncoder) Append(v string) {
	if e.nulls > 0 {
		e.flushNulls()
	}
	if e.hasRun && e.runLen > 0 && v == e.runVal {
		e.runLen++
		return
	}
	if e.runLen > 1 {
		e.flushRun()
	} else if e.runLen == 1 {
		e.lit = append(e.lit, e.runVal)
	}
	e.runVal = v
	e.runLen = 1
	e.hasRun = true
}

// AppendNull adds a null to the stream.
func (e *StringRLEEncoder) AppendNull() {
	e.finishValues()
	e.nulls++
}

// Bytes flushes any pending record and returns the encoded stream.
func (e *StringRLEEncoder) Bytes() []byte {
	e.finishValues()
	e.flushLit()
	if e.nulls > 0 {
		e.flushNulls()
	}
	return e.buf
}

func (e *StringRLEEncoder) finishValues() {
	if e.runLen > 1 {
		e.flushRun()
	} else if e.runLen == 1 {
		e.lit = append(e.lit, e.runVal)
		e.runLen = 0
	}
	e.flushLit()
}

func (e *StringRLEEncoder) flushRun() {
	e.flushLit()
	e.buf = AppendSleb128(e.buf, e.runLen)
	e.buf = AppendString(e.buf, e.runVal)
	e.runLen = 0
}

func (e *StringRLEEncoder) flushLit() {
	if len(e.lit) == 0 {
		return
	}
	e.buf = AppendSleb128(e.buf, -int64(len(e.lit)))
	for _, v := range e.lit {
		e.buf = AppendString(e.buf, v)
	}
	e.lit = e.lit[:0]
}

func (e *StringRLEEncoder) flushNulls() {
	e.buf = AppendSleb128(e.buf, 0)
	e.buf = AppendUleb128(e.buf, e.nulls)
	e.nulls = 0
}

// StringRLEDecoder decodes a run length stream of strings.
type StringRLEDecoder struct {
	d       *Decoder
	count   int64
	nulls   uint64
	runVal  string
	literal bool
}

// NewStringRLEDecoder returns a decoder over buf.
func NewStringRLEDecoder(buf []byte) *StringRLEDecoder {
	return &StringRLEDecoder{d: NewDecoder(buf)}
}

// Done reports whether the stream is exhausted.
func (r *StringRLEDecoder) Done() bool {
	return r.count == 0 && r.nulls == 0 && r.d.Done()
}

// Next returns the next value, or null=true for a null entry.
func (r *StringRLEDecoder) Next() (v string, null bool, err error) {
	for r.count == 0 && r.nulls == 0 {
		if err := r.loadRecord(); err != nil {
			return "", false, err
		}
	}
	if r.nulls > 0 {
		r.nulls--
		return "", true, nil
	}
	if r.literal {
		v, err = r.d.ReadString()
		if err != nil {
			return "", false, err
		}
	} else {
		v = r.runVal
	}
	r.count--
	return v, false, nil
}

func (r *StringRLEDecoder) loadRecord() error {
	if r.d.Done() {
		return ErrTruncated
	}
	c, err := r.d.ReadSleb128()
	if err != nil {
		return err
	}
	switch {
	case c > 0:
		r.runVal, err = r.d.ReadString()
		if err != nil {
			return err
		}
		r.count, r.literal = c, false
	case c < 0:
		if c == -c {
			return ErrBadRunLength
		}
		r.count, r.literal = -c, true
	default:
		r.nulls, err = r.d.ReadUleb128()
		if err != nil {
			return err
		}
	}
	return nil
}
