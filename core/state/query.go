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
	"sort"
	"strings"

	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// Value is the result of a read query: either a scalar or a reference to
// a nested object, along with the id of the op that put it there.
type Value struct {
	IsObject bool
	Obj      types.ObjID
	Kind     ObjKind
	Scalar   types.ScalarValue
	ID       types.OpID
}

func (s *DocState) recordValue(r *record, clock types.Clock) Value {
	if r.op.Action.IsMake() {
		id := types.ObjID(r.op.ID)
		return Value{IsObject: true, Obj: id, Kind: s.objs[id].kind, ID: r.op.ID}
	}
	if r.op.Value.Kind == types.ValueCounter {
		return Value{Scalar: types.CounterValue(r.counterValueAt(clock)), ID: r.op.ID}
	}
	return Value{Scalar: r.op.Value, ID: r.op.ID}
}

// visibleRecords returns the visible conflict set of a map key, ascending
// by op id.
func (s *DocState) visibleRecords(o *object, key string, clock types.Clock) []*record {
	var out []*record
	for _, r := range o.entries[key] {
		if r.visibleAt(clock) {
			out = append(out, r)
		}
	}
	return out
}

// MapGet returns the winning value of a map key: among the visible
// conflict set, the one with the largest Lamport id.
func (s *DocState) MapGet(obj types.ObjID, key string, clock types.Clock) (Value, bool, error) {
	o, err := s.mapObject(obj)
	if err != nil {
		return Value{}, false, err
	}
	recs := s.visibleRecords(o, key, clock)
	if len(recs) == 0 {
		return Value{}, false, nil
	}
	return s.recordValue(recs[len(recs)-1], clock), true, nil
}

// MapGetAll returns the full visible conflict set of a map key ascending
// by op id; the last entry is the winner.
func (s *DocState) MapGetAll(obj types.ObjID, key string, clock types.Clock) ([]Value, error) {
	o, err := s.mapObject(obj)
	if err != nil {
		return nil, err
	}
	recs := s.visibleRecords(o, key, clock)
	vals := make([]Value, len(recs))
	for i, r := range recs {
		vals[i] = s.recordValue(r, clock)
	}
	return vals, nil
}

// Keys returns the map keys with at least one visible value, ascending.
func (s *DocState) Keys(obj types.ObjID, clock types.Clock) ([]string, error) {
	o, err := s.mapObject(obj)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(o.entries))
	for k, recs := range o.entries {
		if anyVisible(recs, clock) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// MapEntry is one key of a map range query.
type MapEntry struct {
	Key   string
	Value Value
}

// MapRange returns the winning values of the keys in [from, to),
// ascending by key. An empty to bound is unbounded.
func (s *DocState) MapRange(obj types.ObjID, from, to string, clock types.Clock) ([]MapEntry, error) {
	keys, err := s.Keys(obj, clock)
	if err != nil {
		return nil, err
	}
	var out []MapEntry
	for _, k := range keys {
		if strings.Compare(k, from) < 0 {
			continue
		}
		if to != "" && strings.Compare(k, to) >= 0 {
			break
		}
		v, ok, err := s.MapGet(obj, k, clock)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, MapEntry{Key: k, Value: v})
		}
	}
	return out, nil
}

// Values returns the winning values of all visible map keys in key order,
// or every visible element of a sequence in order.
func (s *DocState) Values(obj types.ObjID, clock types.Clock) ([]Value, error) {
	o, ok := s.objs[obj]
	if !ok {
		return nil, common.ErrObjectNotFound
	}
	if o.kind.IsSequence() {
		return s.ListRange(obj, 0, -1, clock)
	}
	keys, err := s.Keys(obj, clock)
	if err != nil {
		return nil, err
	}
	vals := make([]Value, 0, len(keys))
	for _, k := range keys {
		v, ok, err := s.MapGet(obj, k, clock)
		if err != nil {
			return nil, err
		}
		if ok {
			vals = append(vals, v)
		}
	}
	return vals, nil
}

// Length returns the number of visible keys of a map or visible elements
// of a sequence.
func (s *DocState) Length(obj types.ObjID, clock types.Clock) (int, error) {
	o, ok := s.objs[obj]
	if !ok {
		return 0, common.ErrObjectNotFound
	}
	if o.kind.IsSequence() {
		return o.visibleLen(clock), nil
	}
	keys, err := s.Keys(obj, clock)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// SeqGet returns the winning value of the sequence element at the given
// visible index.
func (s *DocState) SeqGet(obj types.ObjID, index int, clock types.Clock) (Value, bool, error) {
	o, err := s.seqObject(obj)
	if err != nil {
		return Value{}, false, err
	}
	e, ok := o.elemAtVisibleIndex(index, clock)
	if !ok {
		return Value{}, false, common.ErrIndexOutOfBounds
	}
	win, ok := e.winnerAt(clock, s.actors.IDs())
	if !ok {
		return Value{}, false, nil
	}
	return s.recordValue(win, clock), true, nil
}

// ListRange returns the winning values of the visible elements in
// [from, to). A negative to bound is unbounded.
func (s *DocState) ListRange(obj types.ObjID, from, to int, clock types.Clock) ([]Value, error) {
	o, err := s.seqObject(obj)
	if err != nil {
		return nil, err
	}
	var out []Value
	index := 0
	for _, e := range o.elems {
		if !e.visibleAt(clock) {
			continue
		}
		if index >= from && (to < 0 || index < to) {
			if win, ok := e.winnerAt(clock, s.actors.IDs()); ok {
				out = append(out, s.recordValue(win, clock))
			}
		}
		index++
		if to >= 0 && index >= to {
			break
		}
	}
	return out, nil
}

// Text materialises a text object as a string.
func (s *DocState) Text(obj types.ObjID, clock types.Clock) (string, error) {
	o, err := s.seqObject(obj)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, e := range o.elems {
		if !e.visibleAt(clock) {
			continue
		}
		win, ok := e.winnerAt(clock, s.actors.IDs())
		if !ok {
			continue
		}
		if win.op.Value.Kind == types.ValueString {
			b.WriteString(win.op.Value.Str)
		}
	}
	return b.String(), nil
}

// ElemAt returns the element id at a visible index, for building
// operations that target the position.
func (s *DocState) ElemAt(obj types.ObjID, index int, clock types.Clock) (types.OpID, error) {
	o, err := s.seqObject(obj)
	if err != nil {
		return types.OpID{}, err
	}
	e, ok := o.elemAtVisibleIndex(index, clock)
	if !ok {
		return types.OpID{}, common.ErrIndexOutOfBounds
	}
	return e.elemID, nil
}

// VisiblePreds returns the op ids a new mutation of the given key must
// list as pred: the currently visible conflict set.
func (s *DocState) VisiblePreds(obj types.ObjID, key types.Key) ([]types.OpID, error) {
	o, ok := s.objs[obj]
	if !ok {
		return nil, common.ErrObjectNotFound
	}
	var preds []types.OpID
	if o.kind.IsSequence() {
		e, ok := o.byElem[key.Elem]
		if !ok {
			return nil, ErrMissingElem
		}
		for _, r := range e.records {
			if r.visibleAt(nil) {
				preds = append(preds, r.op.ID)
			}
		}
	} else {
		for _, r := range o.entries[key.Str] {
			if r.visibleAt(nil) {
				preds = append(preds, r.op.ID)
			}
		}
	}
	types.SortOpIDs(preds, s.actors.IDs())
	return preds, nil
}

// CounterPred returns the id of the visible counter op at a key, the pred
// an increment must carry.
func (s *DocState) CounterPred(obj types.ObjID, key types.Key) (types.OpID, error) {
	preds, err := s.VisiblePreds(obj, key)
	if err != nil {
		return types.OpID{}, err
	}
	o := s.objs[obj]
	for _, id := range preds {
		if r, ok := o.byID[id]; ok && r.op.Value.Kind == types.ValueCounter {
			return id, nil
		}
	}
	return types.OpID{}, ErrNotACounter
}

func (s *DocState) mapObject(obj types.ObjID) (*object, error) {
	o, ok := s.objs[obj]
	if !ok {
		return nil, common.ErrObjectNotFound
	}
	if o.kind.IsSequence() {
		return nil, common.ErrWrongKeyKind
	}
	return o, nil
}

func (s *DocState) seqObject(obj types.ObjID) (*object, error) {
	o, ok := s.objs[obj]
	if !ok {
		return nil, common.ErrObjectNotFound
	}
	if !o.kind.IsSequence() {
		return nil, common.ErrWrongKeyKind
	}
	return o, nil
}
