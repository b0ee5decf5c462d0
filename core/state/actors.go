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
)

// ActorTable is the per-document intern pool of actor identities. Actors
// are appended in first-seen order and referenced everywhere else by
// index. The table only ever grows.
type ActorTable struct {
	ids   []common.ActorID
	index map[string]int
}

// NewActorTable returns an empty actor table.
func NewActorTable() *ActorTable {
	return &ActorTable{index: make(map[string]int)}
}

// Ensure interns id and returns its index.
func (t *ActorTable) Ensure(id common.ActorID) int {
	if i, ok := t.index[string(id)]; ok {
		return i
	}
	i := len(t.ids)
	t.ids = append(t.ids, common.BytesToActorID(id))
	t.index[string(id)] = i
	return i
}

// Lookup returns the index of id, if interned.
func (t *ActorTable) Lookup(id common.ActorID) (int, bool) {
	i, ok := t.index[string(id)]
	return i, ok
}

// ByIndex returns the actor id at index i.
func (t *ActorTable) ByIndex(i int) common.ActorID { return t.ids[i] }

// Len returns the number of interned actors.
func (t *ActorTable) Len() int { return len(t.ids) }

// IDs returns the table in index order. The slice aliases the table and
// must not be mutated.
func (t *ActorTable) IDs() []common.ActorID { return t.ids }
