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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/state"
	"github.com/syncdoc/go-syncdoc/core/types"
)

func testActor(b byte) common.ActorID {
	return common.BytesToActorID(bytes.Repeat([]byte{b}, 16))
}

func commit(t *testing.T, tx *Transaction) common.Hash {
	t.Helper()
	hash, err := tx.Commit(CommitOptions{})
	require.NoError(t, err)
	return hash
}

func begin(t *testing.T, d *Document) *Transaction {
	t.Helper()
	tx, err := d.Begin()
	require.NoError(t, err)
	return tx
}

// Two actors concurrently write the same map key into an empty
// document. The value with the larger Lamport id wins and the loser
// remains observable as a conflict.
func TestTwoWriterMapConflict(t *testing.T) {
	docA := NewDocumentWithActor(testActor(0x01))
	txA := begin(t, docA)
	require.NoError(t, txA.Put(types.RootObjID, "name", types.StringValue("Alice")))
	commit(t, txA)

	docB := NewDocumentWithActor(testActor(0x02))
	txB := begin(t, docB)
	require.NoError(t, txB.Put(types.RootObjID, "name", types.StringValue("Bob")))
	commit(t, txB)

	merged := NewDocument()
	require.NoError(t, merged.ApplyChanges(docA.GetChanges(nil)))
	require.NoError(t, merged.ApplyChanges(docB.GetChanges(nil)))

	v, ok, err := merged.Get(types.RootObjID, "name", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Bob", v.Scalar.Str)

	all, err := merged.GetAll(types.RootObjID, "name", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Alice", all[0].Scalar.Str)
	require.Equal(t, "Bob", all[1].Scalar.Str)

	// The merge commutes: applying in the opposite order yields the same
	// winner and the same heads.
	other := NewDocument()
	require.NoError(t, other.ApplyChanges(docB.GetChanges(nil)))
	require.NoError(t, other.ApplyChanges(docA.GetChanges(nil)))
	v2, _, err := other.Get(types.RootObjID, "name", nil)
	require.NoError(t, err)
	require.Equal(t, "Bob", v2.Scalar.Str)
	require.Equal(t, merged.GetHeads(), other.GetHeads())
}

// Concurrent inserts at the same position order by descending Lamport
// id: the newer insert lands closer to its anchor.
func TestConcurrentListInserts(t *testing.T) {
	docA := NewDocumentWithActor(testActor(0x01))
	txA := begin(t, docA)
	list, err := txA.PutObject(types.RootObjID, "list", state.KindList)
	require.NoError(t, err)
	require.NoError(t, txA.Insert(list, 0, types.StringValue("x")))
	commit(t, txA)

	docB := NewDocumentWithActor(testActor(0x02))
	require.NoError(t, docB.ApplyChanges(docA.GetChanges(nil)))

	txA2 := begin(t, docA)
	require.NoError(t, txA2.Insert(list, 1, types.StringValue("y")))
	commit(t, txA2)

	txB := begin(t, docB)
	require.NoError(t, txB.Insert(list, 1, types.StringValue("z")))
	commit(t, txB)

	require.NoError(t, docA.Merge(docB))
	require.NoError(t, docB.Merge(docA))

	for _, doc := range []*Document{docA, docB} {
		vals, err := doc.Values(list, nil)
		require.NoError(t, err)
		require.Len(t, vals, 3)
		require.Equal(t, "x", vals[0].Scalar.Str)
		require.Equal(t, "z", vals[1].Scalar.Str)
		require.Equal(t, "y", vals[2].Scalar.Str)
	}
}

// Counter increments commute regardless of merge order.
func TestCounterIncrementsCommute(t *testing.T) {
	docA := NewDocumentWithActor(testActor(0x01))
	txA := begin(t, docA)
	require.NoError(t, txA.Put(types.RootObjID, "counter", types.CounterValue(0)))
	commit(t, txA)

	docB := NewDocumentWithActor(testActor(0x02))
	require.NoError(t, docB.ApplyChanges(docA.GetChanges(nil)))

	txA2 := begin(t, docA)
	require.NoError(t, txA2.Increment(types.RootObjID, "counter", 5))
	commit(t, txA2)

	txB := begin(t, docB)
	require.NoError(t, txB.Increment(types.RootObjID, "counter", 5))
	commit(t, txB)

	require.NoError(t, docA.Merge(docB))
	require.NoError(t, docB.Merge(docA))

	for _, doc := range []*Document{docA, docB} {
		v, ok, err := doc.Get(types.RootObjID, "counter", nil)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, types.ValueCounter, v.Scalar.Kind)
		require.Equal(t, int64(10), v.Scalar.Int)
	}
}

func TestApplyIdempotent(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	require.NoError(t, tx.Put(types.RootObjID, "k", types.IntValue(1)))
	commit(t, tx)

	changes := doc.GetChanges(nil)
	other := NewDocument()
	require.NoError(t, other.ApplyChanges(changes))
	require.NoError(t, other.ApplyChanges(changes))
	require.Equal(t, 1, other.NumChanges())
}

// A change arriving before its dependencies is buffered and applied
// exactly once when the gap closes.
func TestCausalDelivery(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	for i, val := range []string{"one", "two", "three"} {
		tx := begin(t, doc)
		require.NoError(t, tx.Put(types.RootObjID, "k", types.StringValue(val)))
		commit(t, tx)
		require.Equal(t, i+1, doc.NumChanges())
	}
	changes := doc.GetChanges(nil)

	other := NewDocument()
	require.NoError(t, other.ApplyChange(changes[2]))
	require.Equal(t, 0, other.NumChanges())
	require.Len(t, other.GetMissingDeps(nil), 1)

	require.NoError(t, other.ApplyChange(changes[1]))
	require.Equal(t, 0, other.NumChanges())

	require.NoError(t, other.ApplyChange(changes[0]))
	require.Equal(t, 3, other.NumChanges())
	require.Empty(t, other.GetMissingDeps(nil))

	v, _, err := other.Get(types.RootObjID, "k", nil)
	require.NoError(t, err)
	require.Equal(t, "three", v.Scalar.Str)
}

func TestSeqGapRejected(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	require.NoError(t, tx.Put(types.RootObjID, "k", types.IntValue(1)))
	commit(t, tx)
	c := doc.GetChanges(nil)[0]

	// Forge a change by the same actor with a hole in the seq numbering.
	bad := &types.Change{
		Actors:  c.Actors,
		Seq:     3,
		StartOp: c.MaxOp() + 1,
		Deps:    []common.Hash{c.Hash()},
		Ops: []types.Op{{
			ID:     types.NewOpID(c.MaxOp()+1, 0),
			Obj:    types.RootObjID,
			Key:    types.MapKey("k2"),
			Action: types.ActionSet,
			Value:  types.IntValue(2),
		}},
	}
	other := NewDocument()
	require.NoError(t, other.ApplyChange(c))
	require.ErrorIs(t, other.ApplyChange(bad), ErrSeqGap)
	require.Equal(t, 1, other.NumChanges())
}

func TestPointInTimeQueries(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	require.NoError(t, tx.Put(types.RootObjID, "k", types.StringValue("old")))
	h1 := commit(t, tx)

	tx = begin(t, doc)
	require.NoError(t, tx.Put(types.RootObjID, "k", types.StringValue("new")))
	commit(t, tx)

	v, ok, err := doc.Get(types.RootObjID, "k", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "new", v.Scalar.Str)

	v, ok, err = doc.Get(types.RootObjID, "k", []common.Hash{h1})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "old", v.Scalar.Str)
}

func TestTextSpliceAndMarks(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	text, err := tx.PutObject(types.RootObjID, "text", state.KindText)
	require.NoError(t, err)
	require.NoError(t, tx.SpliceText(text, 0, 0, "hello"))
	commit(t, tx)

	s, err := doc.Text(text, nil)
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	tx = begin(t, doc)
	require.NoError(t, tx.SpliceText(text, 1, 3, "ipp"))
	commit(t, tx)
	s, err = doc.Text(text, nil)
	require.NoError(t, err)
	require.Equal(t, "hippo", s)

	tx = begin(t, doc)
	require.NoError(t, tx.Mark(text, 0, 3, "bold", types.BoolValue(true), false))
	commit(t, tx)

	marks, err := doc.Marks(text, nil)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	require.Equal(t, "bold", marks[0].Name)
	require.Equal(t, 0, marks[0].Start)
	require.Equal(t, 3, marks[0].End)

	length, err := doc.Length(text, nil)
	require.NoError(t, err)
	require.Equal(t, 5, length)
}

func TestCursorStability(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	text, err := tx.PutObject(types.RootObjID, "text", state.KindText)
	require.NoError(t, err)
	require.NoError(t, tx.SpliceText(text, 0, 0, "abc"))
	commit(t, tx)

	cursor, err := doc.GetCursor(text, 1, nil)
	require.NoError(t, err)

	idx, err := doc.ResolveCursor(cursor, nil)
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	// Insert before the cursor's element: the resolved index shifts by
	// exactly the number of earlier inserts.
	tx = begin(t, doc)
	require.NoError(t, tx.SpliceText(text, 0, 0, "xy"))
	commit(t, tx)

	idx, err = doc.ResolveCursor(cursor, nil)
	require.NoError(t, err)
	require.Equal(t, 3, idx)

	// Deleting the element collapses the cursor onto its position.
	tx = begin(t, doc)
	require.NoError(t, tx.DeleteIndex(text, 3))
	commit(t, tx)
	idx, err = doc.ResolveCursor(cursor, nil)
	require.NoError(t, err)
	require.Equal(t, 3, idx)
}

func TestDeleteAndKeys(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	require.NoError(t, tx.Put(types.RootObjID, "a", types.IntValue(1)))
	require.NoError(t, tx.Put(types.RootObjID, "b", types.IntValue(2)))
	commit(t, tx)

	tx = begin(t, doc)
	require.NoError(t, tx.Delete(types.RootObjID, "a"))
	commit(t, tx)

	keys, err := doc.Keys(types.RootObjID, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, keys)

	_, ok, err := doc.Get(types.RootObjID, "a", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTransactionRollback(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	require.NoError(t, tx.Put(types.RootObjID, "keep", types.IntValue(1)))
	commit(t, tx)

	tx = begin(t, doc)
	require.NoError(t, tx.Put(types.RootObjID, "drop", types.IntValue(2)))
	require.NoError(t, tx.Rollback())

	_, ok, err := doc.Get(types.RootObjID, "drop", nil)
	require.NoError(t, err)
	require.False(t, ok)
	v, ok, err := doc.Get(types.RootObjID, "keep", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), v.Scalar.Int)
	require.Equal(t, 1, doc.NumChanges())
}

func TestWrongKeyKind(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	list, err := tx.PutObject(types.RootObjID, "list", state.KindList)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(list, 0, types.IntValue(1)))
	commit(t, tx)

	_, _, err = doc.Get(list, "nope", nil)
	require.ErrorIs(t, err, common.ErrWrongKeyKind)

	_, err = doc.Text(types.RootObjID, nil)
	require.ErrorIs(t, err, common.ErrWrongKeyKind)

	_, _, err = doc.Get(types.ObjID(types.NewOpID(99, 0)), "k", nil)
	require.ErrorIs(t, err, common.ErrObjectNotFound)
}

type patchCollector struct {
	patches []state.Patch
}

func (p *patchCollector) ApplyPatch(patch state.Patch) {
	p.patches = append(p.patches, patch)
}

// The patch stream mirrors the applied mutations without altering them.
func TestPatchObserver(t *testing.T) {
	docA := NewDocumentWithActor(testActor(0x01))
	txA := begin(t, docA)
	require.NoError(t, txA.Put(types.RootObjID, "k", types.StringValue("v")))
	list, err := txA.PutObject(types.RootObjID, "list", state.KindList)
	require.NoError(t, err)
	require.NoError(t, txA.Insert(list, 0, types.IntValue(9)))
	commit(t, txA)

	docB := NewDocument()
	collector := &patchCollector{}
	docB.Observe(collector)
	require.NoError(t, docB.Merge(docA))

	var puts, inserts int
	for _, p := range collector.patches {
		switch p.Action {
		case state.PatchPut:
			puts++
		case state.PatchInsert:
			inserts++
		}
	}
	require.Equal(t, 2, puts) // scalar put and the list object put
	require.Equal(t, 1, inserts)

	// Observation is additive: an unobserved replica converges to the
	// same state.
	plain := NewDocument()
	require.NoError(t, plain.Merge(docA))
	require.Equal(t, docB.GetHeads(), plain.GetHeads())
}

// When two begins of the same name overlap, the one with the larger
// Lamport id supplies the value.
func TestOverlappingMarks(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	text, err := tx.PutObject(types.RootObjID, "text", state.KindText)
	require.NoError(t, err)
	require.NoError(t, tx.SpliceText(text, 0, 0, "abcd"))
	commit(t, tx)

	tx = begin(t, doc)
	require.NoError(t, tx.Mark(text, 0, 4, "size", types.IntValue(10), false))
	commit(t, tx)
	tx = begin(t, doc)
	require.NoError(t, tx.Mark(text, 1, 3, "size", types.IntValue(20), false))
	commit(t, tx)

	marks, err := doc.Marks(text, nil)
	require.NoError(t, err)
	bySpan := make(map[int]int64)
	for _, m := range marks {
		require.Equal(t, "size", m.Name)
		for i := m.Start; i < m.End; i++ {
			bySpan[i] = m.Value.Int
		}
	}
	require.Equal(t, int64(10), bySpan[0])
	require.Equal(t, int64(20), bySpan[1])
	require.Equal(t, int64(20), bySpan[2])
	require.Equal(t, int64(10), bySpan[3])
}

func TestForkAndMerge(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	require.NoError(t, tx.Put(types.RootObjID, "k", types.IntValue(1)))
	commit(t, tx)

	fork, err := doc.Fork()
	require.NoError(t, err)
	tx, err = fork.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put(types.RootObjID, "k2", types.IntValue(2)))
	commit(t, tx)

	require.NoError(t, doc.Merge(fork))
	v, ok, err := doc.Get(types.RootObjID, "k2", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(2), v.Scalar.Int)
}
