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
	"errors"
)

var (
	// ErrTruncated is returned when the input ends before the value the
	// framing announced.
	ErrTruncated = errors.New("columnar: truncated input")

	// ErrLeb128Overflow is returned when a LEB128 integer does not fit in
	// 64 bits.
	ErrLeb128Overflow = errors.New("columnar: LEB128 integer overflow")

	// ErrInvalidUTF8 is returned when a string column carries bytes that
	// are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("columnar: invalid UTF-8 string")

	// ErrBadRunLength is returned when a run record carries an impossible
	// count.
	ErrBadRunLength = errors.New("columnar: bad run length")

	// ErrBadValueTag is returned when a value metadata entry carries a tag
	// with a non-zero length where none is allowed, or a reserved tag.
	ErrBadValueTag = errors.New("columnar: bad value type tag")

	// ErrColumnOrder is returned when the columns of a column set are not
	// in ascending normalised spec order.
	ErrColumnOrder = errors.New("columnar: columns out of order")

	// ErrDuplicateColumn is returned when a column spec appears twice in
	// one column set.
	ErrDuplicateColumn = errors.New("columnar: duplicate column")

	// ErrValueWithoutMeta is returned when a raw value column is not
	// immediately preceded by its metadata column.
	ErrValueWithoutMeta = errors.New("columnar: raw value column without metadata column")

	// ErrNestedGroup is returned when a group column appears inside the
	// grouped run of another group column.
	ErrNestedGroup = errors.New("columnar: nested group column")

	// ErrBadDeflate is returned when a deflated column does not inflate.
	ErrBadDeflate = errors.New("columnar: corrupt deflate stream")
)
