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

// Mark is one named annotation over a range of visible positions in a
// text or list object. End is exclusive.
type Mark struct {
	Name  string
	Value types.ScalarValue
	Start int
	End   int
}

// openMark is an unmatched begin boundary during a marks walk, kept
// sorted ascending by id so the largest id for a name wins.
type openMark struct {
	id    types.OpID
	name  string
	value types.ScalarValue
}

// Marks walks a sequence object and returns its active mark ranges at the
// clock. A mark boundary participates when its begin op is itself present
// and not deleted. When several begins of the same name overlap, the one
// with the largest Lamport id supplies the value; null values silence the
// name entirely.
func (s *DocState) Marks(obj types.ObjID, clock types.Clock) ([]Mark, error) {
	o, err := s.seqObject(obj)
	if err != nil {
		return nil, err
	}
	actors := s.actors.IDs()
	var (
		open  []openMark
		out   []Mark
		index int
	)
	active := func(name string) (types.ScalarValue, bool) {
		for i := len(open) - 1; i >= 0; i-- {
			if open[i].name == name {
				if open[i].value.IsNull() {
					return types.ScalarValue{}, false
				}
				return open[i].value, true
			}
		}
		return types.ScalarValue{}, false
	}
	names := func() []string {
		var ns []string
		seen := make(map[string]bool)
		for _, m := range open {
			if !seen[m.name] {
				seen[m.name] = true
				ns = append(ns, m.name)
			}
		}
		return ns
	}
	for _, e := range o.elems {
		if e.isMarkBoundary() {
			rec := e.records[0]
			if !rec.visibleAt(clock) {
				continue
			}
			switch rec.op.Action {
			case types.ActionMarkBegin:
				open = insertOpenMark(open, openMark{
					id:    rec.op.ID,
					name:  rec.op.MarkName,
					value: rec.op.Value,
				}, actors)
			case types.ActionMarkEnd:
				// An end pairs with the begin authored immediately
				// before it by the same actor.
				begin := types.NewOpID(rec.op.ID.Counter-1, rec.op.ID.Actor)
				for i, m := range open {
					if m.id == begin {
						open = append(open[:i], open[i+1:]...)
						break
					}
				}
			}
			continue
		}
		if !e.visibleAt(clock) {
			continue
		}
		for _, name := range names() {
			if v, ok := active(name); ok {
				out = extendMark(out, name, v, index)
			}
		}
		index++
	}
	return out, nil
}

func insertOpenMark(open []openMark, m openMark, actors []common.ActorID) []openMark {
	pos := len(open)
	for pos > 0 && open[pos-1].id.Cmp(m.id, actors) > 0 {
		pos--
	}
	open = append(open, openMark{})
	copy(open[pos+1:], open[pos:])
	open[pos] = m
	return open
}

// extendMark grows the trailing range for (name, value) to cover index,
// or opens a new range at index.
func extendMark(out []Mark, name string, v types.ScalarValue, index int) []Mark {
	for i := len(out) - 1; i >= 0; i-- {
		m := &out[i]
		if m.Name == name && m.Value.Equal(v) && m.End == index {
			m.End = index + 1
			return out
		}
	}
	return append(out, Mark{Name: name, Value: v, Start: index, End: index + 1})
}
