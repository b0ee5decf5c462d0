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
	"github.com/syncdoc/go-syncdoc/core/types"
)

// PatchAction discriminates the fine-grained mutation records emitted
// while changes apply.
type PatchAction uint8

const (
	PatchPut PatchAction = iota
	PatchInsert
	PatchDelete
	PatchSpliceText
	PatchIncrement
)

// Patch is one fine-grained mutation of the materialised tree. It is an
// additive observation layer: consuming patches never alters which ops
// apply or in what order.
type Patch struct {
	Action   PatchAction
	Obj      types.ObjID
	Key      string // map objects
	Index    int    // sequence objects
	Value    Value
	Text     string // text splices
	Delta    int64  // increments
	Conflict bool   // put left multiple visible values behind
}

// Observer consumes the patch stream of a document.
type Observer interface {
	ApplyPatch(Patch)
}

func (s *DocState) emit(p Patch) {
	for _, o := range s.observers {
		o.ApplyPatch(p)
	}
}

func (s *DocState) notifyInsert(obj *object, e *element, op types.Op) {
	if len(s.observers) == 0 || e.isMarkBoundary() {
		return
	}
	pos, _ := obj.indexOfElem(e.elemID)
	index := obj.visibleIndex(pos, nil)
	val := s.recordValue(e.records[0], nil)
	if obj.kind == KindText && op.Value.Kind == types.ValueString {
		s.emit(Patch{Action: PatchSpliceText, Obj: obj.id, Index: index, Text: op.Value.Str})
		return
	}
	s.emit(Patch{Action: PatchInsert, Obj: obj.id, Index: index, Value: val})
}

func (s *DocState) notifyPut(obj *object, rec *record) {
	if len(s.observers) == 0 {
		return
	}
	win := s.visibleRecordFor(obj, rec.op.Key)
	if win == nil || win != rec {
		// The new op lost its conflict set; the materialised value is
		// unchanged.
		return
	}
	p := Patch{Action: PatchPut, Obj: obj.id, Value: s.recordValue(rec, nil)}
	if obj.kind.IsSequence() {
		if e, ok := obj.byElem[rec.op.Key.Elem]; ok {
			pos, _ := obj.indexOfElem(e.elemID)
			p.Index = obj.visibleIndex(pos, nil)
		}
	} else {
		p.Key = rec.op.Key.Str
		p.Conflict = s.conflictAt(obj, rec.op.Key.Str)
	}
	s.emit(p)
}

func (s *DocState) conflictAt(obj *object, key string) bool {
	n := 0
	for _, r := range obj.entries[key] {
		if r.visibleAt(nil) {
			n++
		}
	}
	return n > 1
}

func (s *DocState) notifyDeleteSeq(obj *object, index int) {
	if len(s.observers) == 0 {
		return
	}
	s.emit(Patch{Action: PatchDelete, Obj: obj.id, Index: index})
}

func (s *DocState) notifyDeleteMap(obj *object, key string) {
	if len(s.observers) == 0 {
		return
	}
	s.emit(Patch{Action: PatchDelete, Obj: obj.id, Key: key})
}

func (s *DocState) notifyIncrement(obj *object, rec *record, op types.Op) {
	if len(s.observers) == 0 {
		return
	}
	p := Patch{Action: PatchIncrement, Obj: obj.id, Delta: op.Value.Int}
	if obj.kind.IsSequence() {
		if pos, ok := obj.indexOfElem(rec.op.Key.Elem); ok {
			p.Index = obj.visibleIndex(pos, nil)
		}
	} else {
		p.Key = rec.op.Key.Str
	}
	s.emit(p)
}
