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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syncdoc/go-syncdoc/core/state"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// buildRichDocument exercises maps, lists, text, counters, deletes,
// conflicts and multiple actors.
func buildRichDocument(t *testing.T) *Document {
	t.Helper()
	docA := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, docA)
	require.NoError(t, tx.Put(types.RootObjID, "title", types.StringValue("inventory")))
	require.NoError(t, tx.Put(types.RootObjID, "count", types.CounterValue(10)))
	list, err := tx.PutObject(types.RootObjID, "items", state.KindList)
	require.NoError(t, err)
	require.NoError(t, tx.Insert(list, 0, types.StringValue("apples")))
	require.NoError(t, tx.Insert(list, 1, types.StringValue("pears")))
	text, err := tx.PutObject(types.RootObjID, "note", state.KindText)
	require.NoError(t, err)
	require.NoError(t, tx.SpliceText(text, 0, 0, "restock"))
	_, err = tx.Commit(CommitOptions{Message: "initial", Time: 1650000000000})
	require.NoError(t, err)

	docB := NewDocumentWithActor(testActor(0x02))
	require.NoError(t, docB.Merge(docA))
	txB := begin(t, docB)
	require.NoError(t, txB.Put(types.RootObjID, "title", types.StringValue("stock")))
	require.NoError(t, txB.Increment(types.RootObjID, "count", 5))
	commit(t, txB)

	tx = begin(t, docA)
	require.NoError(t, tx.Insert(list, 2, types.StringValue("plums")))
	require.NoError(t, tx.DeleteIndex(list, 0))
	commit(t, tx)

	require.NoError(t, docA.Merge(docB))
	return docA
}

func TestSaveLoadRoundTrip(t *testing.T) {
	doc := buildRichDocument(t)
	blob := doc.Save()

	loaded, err := Load(blob)
	require.NoError(t, err)

	// Same change set and same heads.
	require.Equal(t, doc.NumChanges(), loaded.NumChanges())
	require.Equal(t, doc.GetHeads(), loaded.GetHeads())
	for _, c := range doc.GetChanges(nil) {
		require.NotNil(t, loaded.GetChangeByHash(c.Hash()), "change %s lost", c.Hash().TerminalString())
	}

	// Same materialised values.
	v, ok, err := loaded.Get(types.RootObjID, "title", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "stock", v.Scalar.Str)

	v, ok, err = loaded.Get(types.RootObjID, "count", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(15), v.Scalar.Int)

	listVal, ok, err := loaded.Get(types.RootObjID, "items", nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, listVal.IsObject)
	vals, err := loaded.Values(listVal.Obj, nil)
	require.NoError(t, err)
	require.Len(t, vals, 2)
	require.Equal(t, "pears", vals[0].Scalar.Str)
	require.Equal(t, "plums", vals[1].Scalar.Str)

	noteVal, ok, err := loaded.Get(types.RootObjID, "note", nil)
	require.NoError(t, err)
	require.True(t, ok)
	s, err := loaded.Text(noteVal.Obj, nil)
	require.NoError(t, err)
	require.Equal(t, "restock", s)

	// The reconstructed changes carry their metadata.
	first := loaded.GetChanges(nil)[0]
	require.Equal(t, "initial", first.Message)
	require.Equal(t, int64(1650000000000), first.Time)
}

func TestSaveLoadSaveStable(t *testing.T) {
	doc := buildRichDocument(t)
	blob := doc.Save()
	loaded, err := Load(blob)
	require.NoError(t, err)
	require.Equal(t, doc.GetHeads(), loaded.GetHeads())

	again, err := Load(loaded.Save())
	require.NoError(t, err)
	require.Equal(t, loaded.GetHeads(), again.GetHeads())
}

func TestSaveIncremental(t *testing.T) {
	doc := NewDocumentWithActor(testActor(0x01))
	tx := begin(t, doc)
	require.NoError(t, tx.Put(types.RootObjID, "k", types.IntValue(1)))
	commit(t, tx)
	snapshot := doc.Save()
	mark := doc.GetHeads()

	tx = begin(t, doc)
	require.NoError(t, tx.Put(types.RootObjID, "k", types.IntValue(2)))
	commit(t, tx)
	incr := doc.SaveIncremental(mark)
	require.NotEmpty(t, incr)

	// A snapshot plus its incremental tail loads to the same document.
	loaded, err := Load(append(append([]byte{}, snapshot...), incr...))
	require.NoError(t, err)
	require.Equal(t, doc.GetHeads(), loaded.GetHeads())
	v, _, err := loaded.Get(types.RootObjID, "k", nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), v.Scalar.Int)

	// The tail alone also applies through LoadIncremental.
	fromSnap, err := Load(snapshot)
	require.NoError(t, err)
	n, err := fromSnap.LoadIncremental(incr)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, doc.GetHeads(), fromSnap.GetHeads())
}

func TestLoadRejectsTamperedHeads(t *testing.T) {
	doc := buildRichDocument(t)
	blob := doc.Save()

	chunks, err := types.ParseChunks(blob)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	// Re-frame the body with one head hash corrupted; the checksum is
	// recomputed so only the semantic check can catch it.
	body := append([]byte{}, chunks[0].Body...)
	// The first head hash begins after the actor table: locate it by
	// searching for the head bytes.
	head := doc.GetHeads()[0]
	idx := indexOf(body, head.Bytes())
	require.GreaterOrEqual(t, idx, 0)
	body[idx] ^= 0xff
	tampered := types.WriteChunk(nil, types.ChunkDocument, body)
	_, err = Load(tampered)
	require.Error(t, err)
}

func TestLoadEmptyInput(t *testing.T) {
	_, err := Load(nil)
	require.ErrorIs(t, err, ErrNoDocumentChunk)
}

func TestLoadChangeChunksOnly(t *testing.T) {
	doc := buildRichDocument(t)
	var blob []byte
	for _, c := range doc.GetChanges(nil) {
		blob = append(blob, c.Encode()...)
	}
	loaded, err := Load(blob)
	require.NoError(t, err)
	require.Equal(t, doc.GetHeads(), loaded.GetHeads())
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func TestEmptyDocumentSaveLoad(t *testing.T) {
	doc := NewDocument()
	loaded, err := Load(doc.Save())
	require.NoError(t, err)
	require.Equal(t, 0, loaded.NumChanges())
	require.Empty(t, loaded.GetHeads())
}
