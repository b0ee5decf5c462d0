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
	"sync/atomic"

	"github.com/syncdoc/go-syncdoc/common"
)

// Change is an immutable batch of operations authored by one actor.
// Actors[0] is the author; the remaining entries are the other actors
// referenced by the ops, sorted lexicographically. Actor indices inside
// Ops refer to this table.
type Change struct {
	Actors  []common.ActorID
	Seq     uint64
	StartOp uint64
	Time    int64
	Message string
	Deps    []common.Hash // ascending
	Ops     []Op
	Extra   []byte

	// caches of the canonical encoding and its hash, populated on first
	// use or at decode time
	hash atomic.Value
	enc  atomic.Value
}

// Actor returns the author of the change.
func (c *Change) Actor() common.ActorID { return c.Actors[0] }

// MaxOp returns the counter of the last operation in the change.
func (c *Change) MaxOp() uint64 {
	return c.StartOp + uint64(len(c.Ops)) - 1
}

// Hash returns the SHA-256 hash of the change's canonical chunk encoding.
// It is computed on first call and cached thereafter.
func (c *Change) Hash() common.Hash {
	if h := c.hash.Load(); h != nil {
		return h.(common.Hash)
	}
	h := ChunkHash(ChunkChange, c.encodeBody())
	c.hash.Store(h)
	return h
}

// Validate checks the change's structural invariants: a non-empty op
// list, dense op counters starting at StartOp, ops authored by Actors[0],
// pred entries strictly below the op id and an ascending dependency list.
func (c *Change) Validate() error {
	if len(c.Ops) == 0 {
		return ErrMissingOps
	}
	if len(c.Actors) == 0 || len(c.Actors[0]) == 0 {
		return ErrBadActorIndex
	}
	for i := 1; i < len(c.Deps); i++ {
		if c.Deps[i].Cmp(c.Deps[i-1]) <= 0 {
			return ErrDepsOrder
		}
	}
	for i := range c.Ops {
		op := &c.Ops[i]
		if op.ID.Actor != 0 || op.ID.Counter != c.StartOp+uint64(i) {
			return ErrBadOpCounter
		}
		if op.Action > maxAction {
			return ErrBadAction
		}
		for _, p := range op.Pred {
			if p.Cmp(op.ID, c.Actors) >= 0 {
				return ErrBadPred
			}
		}
	}
	return nil
}
