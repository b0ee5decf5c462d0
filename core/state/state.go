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

// Package state materialises the object tree of a document from its
// applied operations and answers read queries against it, optionally at a
// point in time given by a vector clock.
package state

import (
	"sort"

	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// DocState is the materialised object tree. It holds indices over the
// applied operations and never mutates them.
type DocState struct {
	actors    *ActorTable
	objs      map[types.ObjID]*object
	observers []Observer
}

// New returns an empty document state rooted at a map object.
func New(actors *ActorTable) *DocState {
	s := &DocState{
		actors: actors,
		objs:   make(map[types.ObjID]*object),
	}
	s.objs[types.RootObjID] = newObject(types.RootObjID, KindMap)
	return s
}

// Observe registers an observer receiving a patch stream as changes
// apply.
func (s *DocState) Observe(o Observer) {
	s.observers = append(s.observers, o)
}

// ObjKind returns the kind of an existing object.
func (s *DocState) ObjKind(obj types.ObjID) (ObjKind, error) {
	o, ok := s.objs[obj]
	if !ok {
		return 0, common.ErrObjectNotFound
	}
	return o.kind, nil
}

// CheckOps verifies that the ops of one change can be applied against the
// current tree: every object, sequence element and pred target must
// resolve, either in the document or earlier in the same op list, and key
// kinds must match the object shapes. Nothing is mutated.
func (s *DocState) CheckOps(ops []types.Op) error {
	newObjs := make(map[types.ObjID]ObjKind)
	newOps := make(map[types.OpID]types.Action)
	newElems := make(map[types.ObjID]map[types.OpID]bool)

	for i := range ops {
		op := &ops[i]
		var kind ObjKind
		if o, ok := s.objs[op.Obj]; ok {
			kind = o.kind
		} else if k, ok := newObjs[op.Obj]; ok {
			kind = k
		} else {
			return common.ErrObjectNotFound
		}
		if op.Key.Kind == types.KeyMap && kind.IsSequence() {
			return common.ErrWrongKeyKind
		}
		if op.Key.Kind == types.KeySeq && !kind.IsSequence() {
			return common.ErrWrongKeyKind
		}
		if op.Insert && !kind.IsSequence() {
			return common.ErrWrongKeyKind
		}
		if op.Key.Kind == types.KeySeq && !op.Key.IsHead() {
			if !s.elemResolvable(op.Obj, op.Key.Elem, newElems) {
				return ErrMissingElem
			}
		}
		for _, p := range op.Pred {
			if !s.predResolvable(op.Obj, p, newOps) {
				return ErrMissingOp
			}
		}
		if op.Action.IsMake() {
			newObjs[types.ObjID(op.ID)] = KindOfAction(op.Action)
		}
		if op.Insert {
			m := newElems[op.Obj]
			if m == nil {
				m = make(map[types.OpID]bool)
				newElems[op.Obj] = m
			}
			m[op.ID] = true
		}
		newOps[op.ID] = op.Action
	}
	return nil
}

func (s *DocState) elemResolvable(obj types.ObjID, elem types.OpID, newElems map[types.ObjID]map[types.OpID]bool) bool {
	if o, ok := s.objs[obj]; ok && o.byElem != nil {
		if _, ok := o.byElem[elem]; ok {
			return true
		}
	}
	return newElems[obj][elem]
}

func (s *DocState) predResolvable(obj types.ObjID, pred types.OpID, newOps map[types.OpID]types.Action) bool {
	if o, ok := s.objs[obj]; ok {
		if _, ok := o.byID[pred]; ok {
			return true
		}
	}
	_, ok := newOps[pred]
	return ok
}

// ApplyOps applies the ops of one change in order. The caller has already
// run CheckOps; a failure here would indicate an internal inconsistency.
func (s *DocState) ApplyOps(ops []types.Op) {
	for i := range ops {
		s.applyOp(ops[i])
	}
}

func (s *DocState) applyOp(op types.Op) {
	obj := s.objs[op.Obj]
	if op.Action.IsMake() {
		id := types.ObjID(op.ID)
		if _, ok := s.objs[id]; !ok {
			s.objs[id] = newObject(id, KindOfAction(op.Action))
		}
	}
	switch {
	case op.Insert:
		e := obj.insertElem(op, s.actors.IDs())
		s.notifyInsert(obj, e, op)
	case op.Action == types.ActionDel:
		s.applyDelete(obj, op)
	case op.Action == types.ActionInc:
		s.applyIncrement(obj, op)
	default:
		rec := obj.addRecord(op, s.actors.IDs())
		s.applySucc(obj, op)
		s.notifyPut(obj, rec)
	}
}

func (s *DocState) applySucc(obj *object, op types.Op) {
	for _, p := range op.Pred {
		if r, ok := obj.byID[p]; ok {
			r.succ = append(r.succ, op.ID)
		}
	}
}

func (s *DocState) applyDelete(obj *object, op types.Op) {
	// Capture positions for the patch stream before the targets go
	// invisible.
	if obj.kind.IsSequence() && !op.Key.IsHead() {
		if pos, ok := obj.indexOfElem(op.Key.Elem); ok {
			index := obj.visibleIndex(pos, nil)
			visible := obj.elems[pos].visibleAt(nil)
			s.applySucc(obj, op)
			if visible && !obj.elems[pos].visibleAt(nil) {
				s.notifyDeleteSeq(obj, index)
			}
			return
		}
	}
	s.applySucc(obj, op)
	if !obj.kind.IsSequence() {
		if recs, ok := obj.entries[op.Key.Str]; ok && len(recs) > 0 {
			if !anyVisible(recs, nil) {
				s.notifyDeleteMap(obj, op.Key.Str)
			}
		}
	}
}

func (s *DocState) applyIncrement(obj *object, op types.Op) {
	for _, p := range op.Pred {
		r, ok := obj.byID[p]
		if !ok {
			continue
		}
		if r.op.Value.Kind == types.ValueCounter {
			r.incs = append(r.incs, op)
			s.notifyIncrement(obj, r, op)
		}
	}
}

// visibleRecordFor returns the current winning record at a key, used to
// distinguish updates from fresh puts in the patch stream.
func (s *DocState) visibleRecordFor(obj *object, key types.Key) *record {
	if obj.kind.IsSequence() {
		if e, ok := obj.byElem[key.Elem]; ok {
			if win, ok := e.winnerAt(nil, s.actors.IDs()); ok {
				return win
			}
		}
		return nil
	}
	var win *record
	for _, r := range obj.entries[key.Str] {
		if r.visibleAt(nil) {
			if win == nil || r.op.ID.Cmp(win.op.ID, s.actors.IDs()) > 0 {
				win = r
			}
		}
	}
	return win
}

func anyVisible(recs []*record, clock types.Clock) bool {
	for _, r := range recs {
		if r.visibleAt(clock) {
			return true
		}
	}
	return false
}

// Row is one operation row of an object, with its successor set, in the
// order the document encoding stores them.
type Row struct {
	Op   types.Op
	Succ []types.OpID
}

// EachObject walks the objects in id order (root first), yielding each
// object's rows: map keys bytewise ascending with their ops ascending by
// id, sequences in replicated-array order with each element's insert op
// first. Delete ops appear only inside succ sets; increments are rows of
// their own and also appear in the counter's succ set.
func (s *DocState) EachObject(fn func(obj types.ObjID, rows []Row)) {
	ids := make([]types.ObjID, 0, len(s.objs))
	for id := range s.objs {
		ids = append(ids, id)
	}
	actors := s.actors.IDs()
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a.IsRoot() != b.IsRoot() {
			return a.IsRoot()
		}
		return a.Opid().Cmp(b.Opid(), actors) < 0
	})
	for _, id := range ids {
		fn(id, s.objectRows(s.objs[id]))
	}
}

func (s *DocState) objectRows(o *object) []Row {
	var rows []Row
	if o.kind.IsSequence() {
		for _, e := range o.elems {
			rows = s.appendSlotRows(rows, e.records)
		}
		return rows
	}
	keys := make([]string, 0, len(o.entries))
	for k := range o.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = s.appendSlotRows(rows, o.entries[k])
	}
	return rows
}

// appendSlotRows emits the rows of one slot (a map key or a sequence
// element) ascending by op id. Increments become rows of their own and
// are folded into the succ set of the counter they target.
func (s *DocState) appendSlotRows(rows []Row, recs []*record) []Row {
	actors := s.actors.IDs()
	slot := make([]Row, 0, len(recs))
	for _, r := range recs {
		succ := make([]types.OpID, 0, len(r.succ)+len(r.incs))
		succ = append(succ, r.succ...)
		for i := range r.incs {
			succ = append(succ, r.incs[i].ID)
		}
		types.SortOpIDs(succ, actors)
		slot = append(slot, Row{Op: r.op, Succ: succ})
		for i := range r.incs {
			slot = append(slot, Row{Op: r.incs[i]})
		}
	}
	sort.SliceStable(slot, func(i, j int) bool {
		return slot[i].Op.ID.Cmp(slot[j].Op.ID, actors) < 0
	})
	return append(rows, slot...)
}

// NumObjects returns the number of live objects including the root.
func (s *DocState) NumObjects() int { return len(s.objs) }
