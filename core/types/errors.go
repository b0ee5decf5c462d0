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
	"errors"
)

var (
	// ErrBadMagic is returned when a chunk does not start with the magic
	// bytes.
	ErrBadMagic = errors.New("types: bad chunk magic")

	// ErrBadChecksum is returned when a chunk's checksum does not match
	// its body.
	ErrBadChecksum = errors.New("types: chunk checksum mismatch")

	// ErrUnknownChunkType is returned for chunk type bytes outside 0..3.
	ErrUnknownChunkType = errors.New("types: unknown chunk type")

	// ErrNotAChange is returned when a change decode is handed a chunk of
	// a different type.
	ErrNotAChange = errors.New("types: chunk is not a change")

	// ErrBadValuePayload is returned when a value payload does not parse
	// under its type tag.
	ErrBadValuePayload = errors.New("types: bad value payload")

	// ErrBadActorIndex is returned when a column references an actor
	// index outside the chunk's actor table.
	ErrBadActorIndex = errors.New("types: actor index out of range")

	// ErrBadAction is returned for action codes outside the known set.
	ErrBadAction = errors.New("types: unknown op action")

	// ErrMissingOps is returned for a change with an empty operation
	// list.
	ErrMissingOps = errors.New("types: change has no operations")

	// ErrBadPred is returned when a pred entry is not strictly less than
	// the op's own id.
	ErrBadPred = errors.New("types: pred not less than op id")

	// ErrBadOpCounter is returned when an op's counter does not equal
	// start_op plus its index, or the op is not authored by the change's
	// actor.
	ErrBadOpCounter = errors.New("types: op counter mismatch against start_op")

	// ErrDepsOrder is returned when a dependency hash list is not
	// ascending and duplicate free.
	ErrDepsOrder = errors.New("types: dependency hashes out of order")

	// ErrMixedColumns is returned when the actor, counter and string
	// columns of an op's object or key mix null and non-null entries in a
	// combination that names no valid object or key.
	ErrMixedColumns = errors.New("types: inconsistent null pattern in op columns")

	// ErrTrailingBytes is returned when a chunk body has bytes left after
	// its last field.
	ErrTrailingBytes = errors.New("types: trailing bytes after chunk body")
)
