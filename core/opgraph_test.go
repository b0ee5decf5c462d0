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

	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// buildHistory produces a document with history [a1, a2, b1, b2, b3]
// where a* and b* are initially independent lines of work and b3 joins
// them with deps {a2, b2}.
func buildHistory(t *testing.T) (*Document, []*types.Change) {
	t.Helper()
	docA := NewDocumentWithActor(testActor(0x0a))
	for _, v := range []string{"a1", "a2"} {
		tx := begin(t, docA)
		require.NoError(t, tx.Put(types.RootObjID, "a", types.StringValue(v)))
		commit(t, tx)
	}
	docB := NewDocumentWithActor(testActor(0x0b))
	for _, v := range []string{"b1", "b2"} {
		tx := begin(t, docB)
		require.NoError(t, tx.Put(types.RootObjID, "b", types.StringValue(v)))
		commit(t, tx)
	}
	require.NoError(t, docB.Merge(docA))
	tx := begin(t, docB)
	require.NoError(t, tx.Put(types.RootObjID, "b", types.StringValue("b3")))
	commit(t, tx)

	doc := NewDocument()
	require.NoError(t, doc.ApplyChanges(docA.GetChanges(nil)))
	require.NoError(t, doc.ApplyChanges(docB.GetChanges(doc.GetHeads())))
	require.Equal(t, 5, doc.NumChanges())

	history := doc.GetChanges(nil)
	require.Len(t, history, 5)
	// b3 carries both lines as deps.
	require.Len(t, history[4].Deps, 2)
	return doc, history
}

func TestGetChangesEmptyDeps(t *testing.T) {
	doc, history := buildHistory(t)
	got := doc.GetChanges(nil)
	require.Equal(t, history, got)
}

func TestGetChangesFastPath(t *testing.T) {
	doc, history := buildHistory(t)
	a1, b1, b3 := history[0], history[2], history[4]

	// From {a1, b1} the linear scan covers everything that follows.
	got := doc.GetChanges([]common.Hash{a1.Hash(), b1.Hash()})
	require.Len(t, got, 3)
	require.Equal(t, history[1].Hash(), got[0].Hash())
	require.Equal(t, history[3].Hash(), got[1].Hash())
	require.Equal(t, b3.Hash(), got[2].Hash())

	// From the sole head nothing is missing.
	require.Empty(t, doc.GetChanges([]common.Hash{b3.Hash()}))
}

func TestGetChangesClockFallback(t *testing.T) {
	doc, history := buildHistory(t)
	a1 := history[0]

	// From {a1} alone the scan meets b3's mixed dependencies and falls
	// back to the vector clock: everything outside a1's causal past.
	got := doc.GetChanges([]common.Hash{a1.Hash()})
	require.Len(t, got, 4)
	hashes := make(map[common.Hash]bool)
	for _, c := range got {
		hashes[c.Hash()] = true
	}
	require.False(t, hashes[a1.Hash()])
	for _, c := range history[1:] {
		require.True(t, hashes[c.Hash()])
	}
}

func TestGetChangesUnknownHash(t *testing.T) {
	doc, history := buildHistory(t)
	unknown := common.HexToHash("ff00000000000000000000000000000000000000000000000000000000000000")
	got := doc.GetChanges([]common.Hash{unknown})
	require.Len(t, got, len(history))
}

func TestFilterChanges(t *testing.T) {
	doc, history := buildHistory(t)
	a1, a2, b3 := history[0], history[1], history[4]

	candidates := map[common.Hash]struct{}{
		a1.Hash(): {},
		a2.Hash(): {},
		b3.Hash(): {},
	}
	// Everything in the causal past of a2 goes; b3 stays.
	doc.FilterChanges([]common.Hash{a2.Hash()}, candidates)
	require.Len(t, candidates, 1)
	_, ok := candidates[b3.Hash()]
	require.True(t, ok)
}

func TestClockCacheIdempotent(t *testing.T) {
	doc, history := buildHistory(t)
	head := history[4].Hash()
	first := doc.graph.clockFor(head)
	second := doc.graph.clockFor(head)
	require.Equal(t, first, second)

	// The cached clock covers both actors at their final seq.
	aIdx, ok := doc.actors.Lookup(testActor(0x0a))
	require.True(t, ok)
	bIdx, ok := doc.actors.Lookup(testActor(0x0b))
	require.True(t, ok)
	require.Equal(t, uint64(2), first[aIdx].Seq)
	require.Equal(t, uint64(3), first[bIdx].Seq)
}

func TestHeadsTracking(t *testing.T) {
	doc, history := buildHistory(t)
	heads := doc.GetHeads()
	require.Len(t, heads, 1)
	require.Equal(t, history[4].Hash(), heads[0])
}
