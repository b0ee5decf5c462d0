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

package core

import (
	"sort"

	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/state"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// Transaction accumulates the operations of one change. Mutations apply
// to the materialised tree as they are made, so later operations in the
// same transaction observe earlier ones; commit seals them into a single
// change whose deps are the document's heads, and rollback rebuilds the
// tree from the applied history.
type Transaction struct {
	doc      *Document
	actorIdx int
	deps     []common.Hash
	startOp  uint64
	ops      []types.Op
}

// Begin opens a transaction authored by the document's actor.
func (d *Document) Begin() (*Transaction, error) {
	if d.tx != nil {
		return nil, ErrTransactionOpen
	}
	tx := &Transaction{
		doc:      d,
		actorIdx: d.actors.Ensure(d.actorID),
		deps:     d.GetHeads(),
		startOp:  d.maxOp + 1,
	}
	d.tx = tx
	return tx, nil
}

func (tx *Transaction) nextID() types.OpID {
	return types.NewOpID(tx.startOp+uint64(len(tx.ops)), tx.actorIdx)
}

// addOp validates one op against the tree and applies it.
func (tx *Transaction) addOp(op types.Op) error {
	if err := tx.doc.state.CheckOps([]types.Op{op}); err != nil {
		return err
	}
	tx.doc.state.ApplyOps([]types.Op{op})
	tx.ops = append(tx.ops, op)
	return nil
}

// Put sets a map key to a scalar value.
func (tx *Transaction) Put(obj types.ObjID, key string, v types.ScalarValue) error {
	pred, err := tx.doc.state.VisiblePreds(obj, types.MapKey(key))
	if err != nil {
		return err
	}
	return tx.addOp(types.Op{
		ID:     tx.nextID(),
		Obj:    obj,
		Key:    types.MapKey(key),
		Action: types.ActionSet,
		Value:  v,
		Pred:   pred,
	})
}

// PutObject creates a fresh object under a map key and returns its id.
func (tx *Transaction) PutObject(obj types.ObjID, key string, kind state.ObjKind) (types.ObjID, error) {
	pred, err := tx.doc.state.VisiblePreds(obj, types.MapKey(key))
	if err != nil {
		return types.ObjID{}, err
	}
	op := types.Op{
		ID:     tx.nextID(),
		Obj:    obj,
		Key:    types.MapKey(key),
		Action: makeAction(kind),
		Pred:   pred,
	}
	if err := tx.addOp(op); err != nil {
		return types.ObjID{}, err
	}
	return types.ObjID(op.ID), nil
}

// Insert inserts a scalar element at a visible index of a list or text
// object.
func (tx *Transaction) Insert(obj types.ObjID, index int, v types.ScalarValue) error {
	key, err := tx.anchorFor(obj, index)
	if err != nil {
		return err
	}
	return tx.addOp(types.Op{
		ID:     tx.nextID(),
		Obj:    obj,
		Key:    key,
		Insert: true,
		Action: types.ActionSet,
		Value:  v,
	})
}

// InsertObject inserts a fresh object element at a visible index.
func (tx *Transaction) InsertObject(obj types.ObjID, index int, kind state.ObjKind) (types.ObjID, error) {
	key, err := tx.anchorFor(obj, index)
	if err != nil {
		return types.ObjID{}, err
	}
	op := types.Op{
		ID:     tx.nextID(),
		Obj:    obj,
		Key:    key,
		Insert: true,
		Action: makeAction(kind),
	}
	if err := tx.addOp(op); err != nil {
		return types.ObjID{}, err
	}
	return types.ObjID(op.ID), nil
}

// PutIndex overwrites the element at a visible index with a scalar.
func (tx *Transaction) PutIndex(obj types.ObjID, index int, v types.ScalarValue) error {
	elem, err := tx.doc.state.ElemAt(obj, index, nil)
	if err != nil {
		return err
	}
	pred, err := tx.doc.state.VisiblePreds(obj, types.SeqKey(elem))
	if err != nil {
		return err
	}
	return tx.addOp(types.Op{
		ID:     tx.nextID(),
		Obj:    obj,
		Key:    types.SeqKey(elem),
		Action: types.ActionSet,
		Value:  v,
		Pred:   pred,
	})
}

// Delete removes a map key.
func (tx *Transaction) Delete(obj types.ObjID, key string) error {
	pred, err := tx.doc.state.VisiblePreds(obj, types.MapKey(key))
	if err != nil {
		return err
	}
	if len(pred) == 0 {
		return common.ErrObjectNotFound
	}
	return tx.addOp(types.Op{
		ID:     tx.nextID(),
		Obj:    obj,
		Key:    types.MapKey(key),
		Action: types.ActionDel,
		Pred:   pred,
	})
}

// DeleteIndex removes the element at a visible index.
func (tx *Transaction) DeleteIndex(obj types.ObjID, index int) error {
	elem, err := tx.doc.state.ElemAt(obj, index, nil)
	if err != nil {
		return err
	}
	pred, err := tx.doc.state.VisiblePreds(obj, types.SeqKey(elem))
	if err != nil {
		return err
	}
	return tx.addOp(types.Op{
		ID:     tx.nextID(),
		Obj:    obj,
		Key:    types.SeqKey(elem),
		Action: types.ActionDel,
		Pred:   pred,
	})
}

// Increment adds to the counter stored at a map key.
func (tx *Transaction) Increment(obj types.ObjID, key string, by int64) error {
	pred, err := tx.doc.state.CounterPred(obj, types.MapKey(key))
	if err != nil {
		return err
	}
	return tx.addOp(types.Op{
		ID:     tx.nextID(),
		Obj:    obj,
		Key:    types.MapKey(key),
		Action: types.ActionInc,
		Value:  types.IntValue(by),
		Pred:   []types.OpID{pred},
	})
}

// SpliceText deletes del elements at pos of a text object and inserts
// the given text, one element per UTF-8 rune.
func (tx *Transaction) SpliceText(obj types.ObjID, pos, del int, text string) error {
	for i := 0; i < del; i++ {
		if err := tx.DeleteIndex(obj, pos); err != nil {
			return err
		}
	}
	index := pos
	for _, r := range text {
		if err := tx.Insert(obj, index, types.StringValue(string(r))); err != nil {
			return err
		}
		index++
	}
	return nil
}

// Mark annotates [start, end) of a text or list object with a named
// value. The boundaries are invisible elements. expand is stored on both
// boundary ops and survives encoding; it does not change where later
// inserts at the edges of the range are placed.
func (tx *Transaction) Mark(obj types.ObjID, start, end int, name string, v types.ScalarValue, expand bool) error {
	beginKey, err := tx.anchorFor(obj, start)
	if err != nil {
		return err
	}
	if err := tx.addOp(types.Op{
		ID:       tx.nextID(),
		Obj:      obj,
		Key:      beginKey,
		Insert:   true,
		Action:   types.ActionMarkBegin,
		Value:    v,
		Expand:   expand,
		MarkName: name,
	}); err != nil {
		return err
	}
	endKey, err := tx.anchorFor(obj, end)
	if err != nil {
		return err
	}
	return tx.addOp(types.Op{
		ID:     tx.nextID(),
		Obj:    obj,
		Key:    endKey,
		Insert: true,
		Action: types.ActionMarkEnd,
		Expand: expand,
	})
}

// Unmark clears a named mark over [start, end) by writing a null-valued
// mark, which silences the name across the range.
func (tx *Transaction) Unmark(obj types.ObjID, start, end int, name string) error {
	return tx.Mark(obj, start, end, name, types.NullValue(), false)
}

// anchorFor resolves the insert anchor for a visible index: the head for
// index zero, otherwise the element at index-1.
func (tx *Transaction) anchorFor(obj types.ObjID, index int) (types.Key, error) {
	if index == 0 {
		if _, err := tx.doc.state.ObjKind(obj); err != nil {
			return types.Key{}, err
		}
		return types.HeadKey, nil
	}
	elem, err := tx.doc.state.ElemAt(obj, index-1, nil)
	if err != nil {
		return types.Key{}, err
	}
	return types.SeqKey(elem), nil
}

// CommitOptions carries the optional metadata of a commit.
type CommitOptions struct {
	Message string
	Time    int64
}

// Commit seals the transaction into a single change, indexes it and
// returns its hash. An empty transaction commits to nothing.
func (tx *Transaction) Commit(opts CommitOptions) (common.Hash, error) {
	d := tx.doc
	if d.tx != tx {
		return common.Hash{}, ErrNoTransaction
	}
	d.tx = nil
	if len(tx.ops) == 0 {
		return common.Hash{}, nil
	}
	c := tx.buildChange(opts)
	if err := c.Validate(); err != nil {
		d.rebuildState()
		return common.Hash{}, err
	}
	d.graph.addApplied(c, tx.actorIdx)
	if c.MaxOp() > d.maxOp {
		d.maxOp = c.MaxOp()
	}
	return c.Hash(), nil
}

// Rollback abandons the transaction and rebuilds the tree without its
// ops.
func (tx *Transaction) Rollback() error {
	d := tx.doc
	if d.tx != tx {
		return ErrNoTransaction
	}
	d.tx = nil
	if len(tx.ops) > 0 {
		d.rebuildState()
	}
	return nil
}

// buildChange converts the accumulated doc-indexed ops into a change
// with its own actor table: the author first, then the other referenced
// actors sorted lexicographically.
func (tx *Transaction) buildChange(opts CommitOptions) *types.Change {
	d := tx.doc
	referenced := make(map[int]bool)
	collect := func(id types.OpID) { referenced[id.Actor] = true }
	for i := range tx.ops {
		op := &tx.ops[i]
		if !op.Obj.IsRoot() {
			collect(op.Obj.Opid())
		}
		if op.Key.Kind == types.KeySeq && !op.Key.IsHead() {
			collect(op.Key.Elem)
		}
		for _, p := range op.Pred {
			collect(p)
		}
	}
	delete(referenced, tx.actorIdx)
	others := make([]common.ActorID, 0, len(referenced))
	for idx := range referenced {
		others = append(others, d.actors.ByIndex(idx))
	}
	common.SortActorIDs(others)

	actors := make([]common.ActorID, 0, len(others)+1)
	actors = append(actors, d.actors.ByIndex(tx.actorIdx))
	actors = append(actors, others...)
	local := make(map[int]int, len(actors))
	for i, a := range actors {
		docIdx, _ := d.actors.Lookup(a)
		local[docIdx] = i
	}

	ops := make([]types.Op, len(tx.ops))
	for i, op := range tx.ops {
		op.ID.Actor = local[op.ID.Actor]
		if !op.Obj.IsRoot() {
			op.Obj.Actor = local[op.Obj.Actor]
		}
		if op.Key.Kind == types.KeySeq && !op.Key.IsHead() {
			op.Key.Elem.Actor = local[op.Key.Elem.Actor]
		}
		if len(op.Pred) > 0 {
			pred := make([]types.OpID, len(op.Pred))
			for j, p := range op.Pred {
				p.Actor = local[p.Actor]
				pred[j] = p
			}
			sort.Slice(pred, func(a, b int) bool { return pred[a].Cmp(pred[b], actors) < 0 })
			op.Pred = pred
		}
		ops[i] = op
	}
	return &types.Change{
		Actors:  actors,
		Seq:     d.graph.seqForActor(tx.actorIdx) + 1,
		StartOp: tx.startOp,
		Time:    opts.Time,
		Message: opts.Message,
		Deps:    tx.deps,
		Ops:     ops,
	}
}

func makeAction(kind state.ObjKind) types.Action {
	switch kind {
	case state.KindList:
		return types.ActionMakeList
	case state.KindText:
		return types.ActionMakeText
	case state.KindTable:
		return types.ActionMakeTable
	default:
		return types.ActionMakeMap
	}
}
