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

package common

import (
	"errors"
)

var (
	// ErrIndexOutOfBounds is returned if a sequence index is out of bounds.
	ErrIndexOutOfBounds = errors.New("index out of bounds")

	// ErrObjectNotFound is returned when a query names an object id that
	// does not exist in the document.
	ErrObjectNotFound = errors.New("object not found")

	// ErrWrongKeyKind is returned when a string key is used on a sequence
	// object or an index key on a map object.
	ErrWrongKeyKind = errors.New("wrong key kind for object type")
)
