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

// Package core implements the document engine: the append-only change
// DAG, causal application, the materialised tree queries, transactions
// and the snapshot save/load codecs.
package core

import (
	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/state"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// Document is one replica of a collaborative document. A document is
// single-threaded: callers serialise access externally.
type Document struct {
	actorID   common.ActorID
	actors    *state.ActorTable
	graph     *opGraph
	state     *state.DocState
	tx        *Transaction
	observers []state.Observer

	// maxOp is the largest op counter seen in any applied change; new
	// transactions start above it.
	maxOp uint64
}

// NewDocument returns an empty document authored by a fresh random
// actor.
func NewDocument() *Document {
	return NewDocumentWithActor(common.NewActorID())
}

// NewDocumentWithActor returns an empty document authoring changes as
// the given actor.
func NewDocumentWithActor(actor common.ActorID) *Document {
	actors := state.NewActorTable()
	return &Document{
		actorID: actor,
		actors:  actors,
		graph:   newOpGraph(actors),
		state:   state.New(actors),
	}
}

// ActorID returns the local authoring identity.
func (d *Document) ActorID() common.ActorID { return d.actorID }

// SetActorID changes the local authoring identity for future
// transactions.
func (d *Document) SetActorID(actor common.ActorID) { d.actorID = actor }

// Observe registers an observer for the patch stream emitted as changes
// apply.
func (d *Document) Observe(o state.Observer) {
	d.observers = append(d.observers, o)
	d.state.Observe(o)
}

// rebuildState rematerialises the tree from the applied history, used by
// transaction rollback. The derived state is always reconstructible from
// the ordered change set.
func (d *Document) rebuildState() {
	d.state = state.New(d.actors)
	for _, c := range d.graph.history {
		d.state.ApplyOps(d.remapOps(c))
	}
	// Observers re-attach after the replay; rebuilding emits no patches.
	for _, o := range d.observers {
		d.state.Observe(o)
	}
}

// GetHeads returns the hashes of the changes no other applied change
// depends on, ascending.
func (d *Document) GetHeads() []common.Hash { return d.graph.headHashes() }

// GetChangeByHash returns the applied change with the given hash, or
// nil.
func (d *Document) GetChangeByHash(h common.Hash) *types.Change {
	c, _ := d.graph.changeByHash(h)
	return c
}

// GetChanges lists the applied changes that are not in the causal past
// of haveDeps, in apply order.
func (d *Document) GetChanges(haveDeps []common.Hash) []*types.Change {
	return d.graph.getChanges(haveDeps)
}

// GetLastLocalChange returns the most recent change authored by the
// local actor, or nil.
func (d *Document) GetLastLocalChange() *types.Change {
	actorIdx, ok := d.actors.Lookup(d.actorID)
	if !ok {
		return nil
	}
	positions := d.graph.states[actorIdx]
	if len(positions) == 0 {
		return nil
	}
	return d.graph.history[positions[len(positions)-1]]
}

// GetMissingDeps returns the dependency hashes needed before the queued
// changes (and the given heads, if any) can apply, ascending.
func (d *Document) GetMissingDeps(heads []common.Hash) []common.Hash {
	return d.graph.missingDeps(heads)
}

// FilterChanges removes from candidates every hash within the causal
// past of heads.
func (d *Document) FilterChanges(heads []common.Hash, candidates map[common.Hash]struct{}) {
	d.graph.filterChanges(heads, candidates)
}

// NumChanges returns the number of applied changes.
func (d *Document) NumChanges() int { return len(d.graph.history) }

// ApplyChanges applies a batch of changes. Changes whose dependencies
// are absent are buffered and applied once the gap closes. A
// structurally or semantically invalid change aborts with no mutation of
// the document.
func (d *Document) ApplyChanges(changes []*types.Change) error {
	if d.tx != nil {
		return ErrTransactionOpen
	}
	for _, c := range changes {
		if err := d.applyOne(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyChange applies a single change.
func (d *Document) ApplyChange(c *types.Change) error {
	if d.tx != nil {
		return ErrTransactionOpen
	}
	return d.applyOne(c)
}

func (d *Document) applyOne(c *types.Change) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if d.graph.contains(c.Hash()) {
		return nil
	}
	if !d.graph.depsSatisfied(c) {
		d.graph.enqueue(c)
		return nil
	}
	if err := d.commitChange(c); err != nil {
		return err
	}
	for {
		next := d.graph.popSatisfied()
		if next == nil {
			return nil
		}
		if d.graph.contains(next.Hash()) {
			continue
		}
		if err := d.commitChange(next); err != nil {
			return err
		}
	}
}

// commitChange verifies seq contiguity and semantic validity, then
// indexes and materialises the change. Verification precedes every
// mutation of the tree so a rejected change leaves no trace.
func (d *Document) commitChange(c *types.Change) error {
	actorIdx := d.actors.Ensure(c.Actor())
	if c.Seq != d.graph.seqForActor(actorIdx)+1 {
		return ErrSeqGap
	}
	aops := d.remapOps(c)
	if err := d.state.CheckOps(aops); err != nil {
		return err
	}
	d.graph.addApplied(c, actorIdx)
	d.state.ApplyOps(aops)
	if c.MaxOp() > d.maxOp {
		d.maxOp = c.MaxOp()
	}
	return nil
}

// remapOps rewrites the change's ops from change-local actor indices to
// document actor indices.
func (d *Document) remapOps(c *types.Change) []types.Op {
	idx := make([]int, len(c.Actors))
	for i, a := range c.Actors {
		idx[i] = d.actors.Ensure(a)
	}
	aops := make([]types.Op, len(c.Ops))
	for i, op := range c.Ops {
		op.ID.Actor = idx[op.ID.Actor]
		if !op.Obj.IsRoot() {
			op.Obj.Actor = idx[op.Obj.Actor]
		}
		if op.Key.Kind == types.KeySeq && !op.Key.IsHead() {
			op.Key.Elem.Actor = idx[op.Key.Elem.Actor]
		}
		if len(op.Pred) > 0 {
			pred := make([]types.OpID, len(op.Pred))
			for j, p := range op.Pred {
				p.Actor = idx[p.Actor]
				pred[j] = p
			}
			op.Pred = pred
		}
		aops[i] = op
	}
	return aops
}

// clockForHeads resolves an optional point-in-time heads argument into a
// clock; nil heads means the present.
func (d *Document) clockForHeads(heads []common.Hash) types.Clock {
	if len(heads) == 0 {
		return nil
	}
	return d.graph.clockAt(heads)
}

// Get returns the winning value at a map key, optionally at the given
// heads.
func (d *Document) Get(obj types.ObjID, key string, heads []common.Hash) (state.Value, bool, error) {
	return d.state.MapGet(obj, key, d.clockForHeads(heads))
}

// GetAll returns the full conflict set at a map key; the last entry is
// the winner.
func (d *Document) GetAll(obj types.ObjID, key string, heads []common.Hash) ([]state.Value, error) {
	return d.state.MapGetAll(obj, key, d.clockForHeads(heads))
}

// GetIndex returns the winning value of the sequence element at a
// visible index.
func (d *Document) GetIndex(obj types.ObjID, index int, heads []common.Hash) (state.Value, bool, error) {
	return d.state.SeqGet(obj, index, d.clockForHeads(heads))
}

// Keys lists the visible map keys, ascending.
func (d *Document) Keys(obj types.ObjID, heads []common.Hash) ([]string, error) {
	return d.state.Keys(obj, d.clockForHeads(heads))
}

// Values lists the visible values of a map (in key order) or sequence
// (in element order).
func (d *Document) Values(obj types.ObjID, heads []common.Hash) ([]state.Value, error) {
	return d.state.Values(obj, d.clockForHeads(heads))
}

// Length returns the number of visible keys or elements.
func (d *Document) Length(obj types.ObjID, heads []common.Hash) (int, error) {
	return d.state.Length(obj, d.clockForHeads(heads))
}

// Text materialises a text object.
func (d *Document) Text(obj types.ObjID, heads []common.Hash) (string, error) {
	return d.state.Text(obj, d.clockForHeads(heads))
}

// ListRange returns the visible elements in [from, to); to < 0 is
// unbounded.
func (d *Document) ListRange(obj types.ObjID, from, to int, heads []common.Hash) ([]state.Value, error) {
	return d.state.ListRange(obj, from, to, d.clockForHeads(heads))
}

// MapRange returns the visible entries with keys in [from, to); an empty
// to is unbounded.
func (d *Document) MapRange(obj types.ObjID, from, to string, heads []common.Hash) ([]state.MapEntry, error) {
	return d.state.MapRange(obj, from, to, d.clockForHeads(heads))
}

// Marks returns the active mark ranges of a text or list object.
func (d *Document) Marks(obj types.ObjID, heads []common.Hash) ([]state.Mark, error) {
	return d.state.Marks(obj, d.clockForHeads(heads))
}

// GetCursor returns a stable cursor for the element at a visible index.
func (d *Document) GetCursor(obj types.ObjID, index int, heads []common.Hash) (state.Cursor, error) {
	return d.state.GetCursor(obj, index, d.clockForHeads(heads))
}

// ResolveCursor converts a cursor back to a visible index.
func (d *Document) ResolveCursor(c state.Cursor, heads []common.Hash) (int, error) {
	return d.state.ResolveCursor(c, d.clockForHeads(heads))
}

// ObjKind returns the kind of an object.
func (d *Document) ObjKind(obj types.ObjID) (state.ObjKind, error) {
	return d.state.ObjKind(obj)
}

// Fork clones the document into a new replica with a fresh actor
// identity.
func (d *Document) Fork() (*Document, error) {
	out := NewDocument()
	if err := out.ApplyChanges(d.GetChanges(nil)); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge applies every change of other that this document lacks.
func (d *Document) Merge(other *Document) error {
	return d.ApplyChanges(other.GetChanges(d.GetHeads()))
}
