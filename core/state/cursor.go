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
	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// CursorBias picks which side of a visible element a cursor resolves to:
// BiasBefore gives the element's own index, BiasAfter the index just past
// it. A deleted element resolves the same way under either bias.
type CursorBias int8

const (
	BiasBefore CursorBias = iota
	BiasAfter
)

// Cursor is a stable reference to a list or text position. It is a value
// type and remains valid across concurrent inserts and deletes.
type Cursor struct {
	Obj  types.ObjID
	Elem types.OpID
	Bias CursorBias
}

// GetCursor returns a cursor anchored at the element currently at the
// given visible index.
func (s *DocState) GetCursor(obj types.ObjID, index int, clock types.Clock) (Cursor, error) {
	o, err := s.seqObject(obj)
	if err != nil {
		return Cursor{}, err
	}
	e, ok := o.elemAtVisibleIndex(index, clock)
	if !ok {
		return Cursor{}, common.ErrIndexOutOfBounds
	}
	return Cursor{Obj: obj, Elem: e.elemID}, nil
}

// ResolveCursor seeks the cursor's element in the sequence and counts the
// visible elements before it. When the element itself has been deleted
// the cursor collapses onto the position where it used to be, whatever
// its bias.
func (s *DocState) ResolveCursor(c Cursor, clock types.Clock) (int, error) {
	o, err := s.seqObject(c.Obj)
	if err != nil {
		return 0, err
	}
	pos, ok := o.indexOfElem(c.Elem)
	if !ok {
		return 0, ErrDanglingCursor
	}
	if c.Bias == BiasAfter && o.elems[pos].visibleAt(clock) {
		// Point one past the element rather than at it.
		return o.visibleIndex(pos+1, clock), nil
	}
	return o.visibleIndex(pos, clock), nil
}
