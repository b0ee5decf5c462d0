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

package state

import (
	"errors"
)

var (
	// ErrMissingOp is returned when an op references a target op that is
	// not part of the document.
	ErrMissingOp = errors.New("state: referenced op not found")

	// ErrMissingElem is returned when a sequence key names an element
	// that does not exist in the object.
	ErrMissingElem = errors.New("state: sequence element not found")

	// ErrDanglingCursor is returned when a cursor's element no longer
	// resolves within its object.
	ErrDanglingCursor = errors.New("state: dangling cursor element")

	// ErrNotACounter is returned when an increment targets an op that is
	// not a counter.
	ErrNotACounter = errors.New("state: increment target is not a counter")
)
