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
	"sort"

	"github.com/syncdoc/go-syncdoc/common"
)

// Action is the wire code of an operation's action.
type Action uint8

const (
	ActionMakeMap   Action = 0
	ActionSet       Action = 1
	ActionMakeList  Action = 2
	ActionDel       Action = 3
	ActionMakeText  Action = 4
	ActionInc       Action = 5
	ActionMakeTable Action = 6
	ActionMarkBegin Action = 7
	ActionMarkEnd   Action = 8

	maxAction = ActionMarkEnd
)

// IsMake reports whether a creates an object.
func (a Action) IsMake() bool {
	switch a {
	case ActionMakeMap, ActionMakeList, ActionMakeText, ActionMakeTable:
		return true
	}
	return false
}

// IsMark reports whether a is a mark boundary.
func (a Action) IsMark() bool {
	return a == ActionMarkBegin || a == ActionMarkEnd
}

// String implements the stringer interface.
func (a Action) String() string {
	switch a {
	case ActionMakeMap:
		return "makeMap"
	case ActionSet:
		return "set"
	case ActionMakeList:
		return "makeList"
	case ActionDel:
		return "del"
	case ActionMakeText:
		return "makeText"
	case ActionInc:
		return "inc"
	case ActionMakeTable:
		return "makeTable"
	case ActionMarkBegin:
		return "markBegin"
	case ActionMarkEnd:
		return "markEnd"
	}
	return "unknown"
}

// Op is one primitive mutation of one object. Actor indices in ID, Obj,
// Key and Pred refer to the actor table of the change (or document) the op
// belongs to.
type Op struct {
	ID     OpID
	Obj    ObjID
	Key    Key
	Insert bool
	Action Action
	Value  ScalarValue // set/inc payload, or the mark value for markBegin
	Pred   []OpID      // ascending Lamport order

	// Mark fields, meaningful only for markBegin/markEnd.
	Expand   bool
	MarkName string
}

// ElemID returns the element identity this op establishes or targets in a
// sequence: its own id for an insert, otherwise the key's element.
func (o *Op) ElemID() OpID {
	if o.Insert {
		return o.ID
	}
	return o.Key.Elem
}

// SortOpIDs sorts ids into ascending Lamport order resolved against the
// given actor table.
func SortOpIDs(ids []OpID, actors []common.ActorID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Cmp(ids[j], actors) < 0 })
}
