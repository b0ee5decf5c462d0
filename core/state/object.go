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

// ObjKind is the shape of a materialised object.
type ObjKind uint8

const (
	KindMap ObjKind = iota
	KindTable
	KindList
	KindText
)

// IsSequence reports whether the kind is list-like.
func (k ObjKind) IsSequence() bool { return k == KindList || k == KindText }

// String implements the stringer interface.
func (k ObjKind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindTable:
		return "table"
	case KindList:
		return "list"
	case KindText:
		return "text"
	}
	return "unknown"
}

// KindOfAction maps a make action to the kind of object it creates.
func KindOfAction(a types.Action) ObjKind {
	switch a {
	case types.ActionMakeList:
		return KindList
	case types.ActionMakeText:
		return KindText
	case types.ActionMakeTable:
		return KindTable
	default:
		return KindMap
	}
}

// record is one applied operation together with the ids of the operations
// that overwrote it. Increment operations are absorbed into the record of
// the counter they target rather than recorded as successors.
type record struct {
	op   types.Op
	succ []types.OpID
	incs []types.Op
}

// presentAt reports whether the record's op is within the clock.
func (r *record) presentAt(clock types.Clock) bool {
	return clock.Covers(r.op.ID)
}

// visibleAt reports whether the record is present and not overwritten by
// any op within the clock.
func (r *record) visibleAt(clock types.Clock) bool {
	if !clock.Covers(r.op.ID) {
		return false
	}
	for _, s := range r.succ {
		if clock.Covers(s) {
			return false
		}
	}
	return true
}

// counterValueAt folds the covered increments into the counter's base
// value.
func (r *record) counterValueAt(clock types.Clock) int64 {
	v := r.op.Value.Int
	for i := range r.incs {
		if clock.Covers(r.incs[i].ID) {
			v += r.incs[i].Value.Int
		}
	}
	return v
}

// element is one position in a sequence object: the insert op's record
// first, followed by the update records targeting the element, ascending
// by op id.
type element struct {
	elemID  types.OpID
	records []*record
}

// isMarkBoundary reports whether the element is an invisible mark
// boundary rather than content.
func (e *element) isMarkBoundary() bool {
	return e.records[0].op.Action.IsMark()
}

// winnerAt returns the visible record with the largest Lamport id, if the
// element is visible at all under the clock.
func (e *element) winnerAt(clock types.Clock, actors []common.ActorID) (*record, bool) {
	var win *record
	for _, r := range e.records {
		if !r.visibleAt(clock) {
			continue
		}
		if win == nil || r.op.ID.Cmp(win.op.ID, actors) > 0 {
			win = r
		}
	}
	return win, win != nil
}

// visibleAt reports whether the element holds any visible content.
func (e *element) visibleAt(clock types.Clock) bool {
	if e.isMarkBoundary() {
		return false
	}
	for _, r := range e.records {
		if r.visibleAt(clock) {
			return true
		}
	}
	return false
}

// object is the materialised operation set of one map, table, list or
// text object.
type object struct {
	id   types.ObjID
	kind ObjKind

	// map/table state
	entries map[string][]*record

	// sequence state, in replicated-array order including tombstones and
	// mark boundaries
	elems  []*element
	byElem map[types.OpID]*element

	// every value-bearing op applied to this object, for pred resolution
	byID map[types.OpID]*record
}

func newObject(id types.ObjID, kind ObjKind) *object {
	o := &object{id: id, kind: kind, byID: make(map[types.OpID]*record)}
	if kind.IsSequence() {
		o.byElem = make(map[types.OpID]*element)
	} else {
		o.entries = make(map[string][]*record)
	}
	return o
}

// indexOfElem returns the position of the element with the given id in
// the full (tombstoned) sequence.
func (o *object) indexOfElem(id types.OpID) (int, bool) {
	if _, ok := o.byElem[id]; !ok {
		return 0, false
	}
	for i, e := range o.elems {
		if e.elemID == id {
			return i, true
		}
	}
	return 0, false
}

// insertElem integrates an insert op into the sequence. The new element
// goes after its anchor; among siblings anchored at the same position the
// element with the greater Lamport id comes first.
func (o *object) insertElem(op types.Op, actors []common.ActorID) *element {
	pos := 0
	if !op.Key.IsHead() {
		idx, _ := o.indexOfElem(op.Key.Elem)
		pos = idx + 1
	}
	for pos < len(o.elems) && o.elems[pos].elemID.Cmp(op.ID, actors) > 0 {
		pos++
	}
	rec := &record{op: op}
	e := &element{elemID: op.ID, records: []*record{rec}}
	o.elems = append(o.elems, nil)
	copy(o.elems[pos+1:], o.elems[pos:])
	o.elems[pos] = e
	o.byElem[op.ID] = e
	o.byID[op.ID] = rec
	return e
}

// addRecord stores a non-insert value op (set, make, mark) under its key.
func (o *object) addRecord(op types.Op, actors []common.ActorID) *record {
	rec := &record{op: op}
	if o.kind.IsSequence() {
		e := o.byElem[op.Key.Elem]
		e.records = insertSorted(e.records, rec, actors)
	} else {
		o.entries[op.Key.Str] = insertSorted(o.entries[op.Key.Str], rec, actors)
	}
	o.byID[op.ID] = rec
	return rec
}

func insertSorted(recs []*record, rec *record, actors []common.ActorID) []*record {
	pos := len(recs)
	for pos > 0 && recs[pos-1].op.ID.Cmp(rec.op.ID, actors) > 0 {
		pos--
	}
	recs = append(recs, nil)
	copy(recs[pos+1:], recs[pos:])
	recs[pos] = rec
	return recs
}

// visibleIndex converts a position in the full sequence into the index
// among visible elements at the clock.
func (o *object) visibleIndex(pos int, clock types.Clock) int {
	n := 0
	for i := 0; i < pos && i < len(o.elems); i++ {
		if o.elems[i].visibleAt(clock) {
			n++
		}
	}
	return n
}

// elemAtVisibleIndex returns the element at the given visible index.
func (o *object) elemAtVisibleIndex(index int, clock types.Clock) (*element, bool) {
	n := 0
	for _, e := range o.elems {
		if !e.visibleAt(clock) {
			continue
		}
		if n == index {
			return e, true
		}
		n++
	}
	return nil, false
}

// visibleLen counts the visible elements at the clock.
func (o *object) visibleLen(clock types.Clock) int {
	n := 0
	for _, e := range o.elems {
		if e.visibleAt(clock) {
			n++
		}
	}
	return n
}
