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

// ClockData is one actor's entry in a vector clock: the largest change
// sequence number and the largest op counter of that actor within a
// causal past.
type ClockData struct {
	Seq   uint64
	MaxOp uint64
}

// Clock is a vector clock keyed by document actor index. A nil Clock
// stands for the full present and covers every op.
type Clock map[int]ClockData

// Covers reports whether the op identified by id lies within the causal
// past the clock summarises.
func (c Clock) Covers(id OpID) bool {
	if c == nil {
		return true
	}
	d, ok := c[id.Actor]
	return ok && id.Counter <= d.MaxOp
}

// CoversSeq reports whether the clock includes the actor's change with
// the given sequence number.
func (c Clock) CoversSeq(actor int, seq uint64) bool {
	if c == nil {
		return true
	}
	d, ok := c[actor]
	return ok && seq <= d.Seq
}

// Include raises the clock's entry for actor to at least the given data.
func (c Clock) Include(actor int, d ClockData) {
	cur, ok := c[actor]
	if !ok || d.Seq > cur.Seq {
		cur.Seq = d.Seq
	}
	if !ok || d.MaxOp > cur.MaxOp {
		cur.MaxOp = d.MaxOp
	}
	c[actor] = cur
}

// Union folds other into c elementwise by maximum.
func (c Clock) Union(other Clock) {
	for actor, d := range other {
		c.Include(actor, d)
	}
}

// Clone returns an independent copy of the clock.
func (c Clock) Clone() Clock {
	if c == nil {
		return nil
	}
	out := make(Clock, len(c))
	for actor, d := range c {
		out[actor] = d
	}
	return out
}
