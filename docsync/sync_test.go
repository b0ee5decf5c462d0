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

package docsync

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core"
	"github.com/syncdoc/go-syncdoc/core/types"
)

func testActor(b byte) common.ActorID {
	return common.BytesToActorID(bytes.Repeat([]byte{b}, 16))
}

func putCommit(t *testing.T, doc *core.Document, key, val string) {
	t.Helper()
	tx, err := doc.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put(types.RootObjID, key, types.StringValue(val)))
	_, err = tx.Commit(core.CommitOptions{})
	require.NoError(t, err)
}

// runSync alternates generate/receive between two peers until neither
// has anything to say, returning the number of change chunks that went
// over the wire.
func runSync(t *testing.T, p, q *core.Document, ps, qs *SyncState) int {
	t.Helper()
	sent := 0
	for round := 0; round < 20; round++ {
		msgP := GenerateSyncMessage(p, ps)
		msgQ := GenerateSyncMessage(q, qs)
		if msgP == nil && msgQ == nil {
			return sent
		}
		if msgP != nil {
			sent += len(msgP.Changes)
			decoded, err := DecodeMessage(msgP.Encode())
			require.NoError(t, err)
			_, err = ReceiveSyncMessage(q, qs, decoded)
			require.NoError(t, err)
		}
		if msgQ != nil {
			sent += len(msgQ.Changes)
			decoded, err := DecodeMessage(msgQ.Encode())
			require.NoError(t, err)
			_, err = ReceiveSyncMessage(p, ps, decoded)
			require.NoError(t, err)
		}
	}
	t.Fatal("sync did not converge")
	return sent
}

// Peers with partially overlapping histories exchange exactly what the
// other lacks and agree on heads and shared heads.
func TestSyncWithOverlap(t *testing.T) {
	p := core.NewDocumentWithActor(testActor(0x01))
	putCommit(t, p, "shared", "one")
	putCommit(t, p, "shared", "two")

	q := core.NewDocumentWithActor(testActor(0x02))
	require.NoError(t, q.Merge(p))

	// P gains one extra change, Q gains a two-change chain.
	putCommit(t, p, "p", "extra")
	putCommit(t, q, "q", "first")
	putCommit(t, q, "q", "second")

	ps, qs := NewSyncState(), NewSyncState()
	sent := runSync(t, p, q, ps, qs)

	require.Equal(t, p.GetHeads(), q.GetHeads())
	require.Equal(t, p.GetHeads(), ps.SharedHeads)
	require.Equal(t, q.GetHeads(), qs.SharedHeads)
	// One change from P, two from Q; Bloom false positives could only
	// reduce, not grow, this count... and with three changes they are
	// vanishingly unlikely.
	require.Equal(t, 3, sent)
}

// Two documents sharing no history converge to identical heads.
func TestSyncFromScratch(t *testing.T) {
	p := core.NewDocumentWithActor(testActor(0x01))
	for _, v := range []string{"a", "b", "c"} {
		putCommit(t, p, "pk", v)
	}
	q := core.NewDocumentWithActor(testActor(0x02))
	for _, v := range []string{"x", "y"} {
		putCommit(t, q, "qk", v)
	}

	ps, qs := NewSyncState(), NewSyncState()
	sent := runSync(t, p, q, ps, qs)

	require.Equal(t, p.GetHeads(), q.GetHeads())
	require.Equal(t, 5, sent)

	vp, _, err := p.Get(types.RootObjID, "qk", nil)
	require.NoError(t, err)
	require.Equal(t, "y", vp.Scalar.Str)
	vq, _, err := q.Get(types.RootObjID, "pk", nil)
	require.NoError(t, err)
	require.Equal(t, "c", vq.Scalar.Str)
}

func TestSyncNothingNew(t *testing.T) {
	p := core.NewDocumentWithActor(testActor(0x01))
	putCommit(t, p, "k", "v")
	q := core.NewDocumentWithActor(testActor(0x02))
	require.NoError(t, q.Merge(p))

	ps, qs := NewSyncState(), NewSyncState()
	runSync(t, p, q, ps, qs)

	// Fully aligned: both sides fall silent.
	require.Nil(t, GenerateSyncMessage(p, ps))
	require.Nil(t, GenerateSyncMessage(q, qs))
}

func TestSyncResetOnUnknownFrontier(t *testing.T) {
	p := core.NewDocumentWithActor(testActor(0x01))
	putCommit(t, p, "k", "v")

	// The peer claims a frontier we have never seen.
	ps := NewSyncState()
	ps.TheirHave = []Have{{
		LastSync: []common.Hash{common.HexToHash("aa00000000000000000000000000000000000000000000000000000000000000")},
		Bloom:    NewBloomFilter(nil),
	}}
	ps.HaveTheirHave = true
	ps.TheirNeed, ps.HaveTheirNeed = nil, true

	msg := GenerateSyncMessage(p, ps)
	require.NotNil(t, msg)
	require.Empty(t, msg.Changes)
	require.Empty(t, msg.Need)
	require.Len(t, msg.Have, 1)
	require.Empty(t, msg.Have[0].LastSync)
}

func TestSyncStatePersistence(t *testing.T) {
	s := NewSyncState()
	s.SharedHeads = []common.Hash{
		common.HexToHash("0100000000000000000000000000000000000000000000000000000000000000"),
		common.HexToHash("0200000000000000000000000000000000000000000000000000000000000000"),
	}
	s.LastSentHeads = s.SharedHeads
	s.SentHashes.Add(s.SharedHeads[0])

	restored, err := DecodeSyncState(s.Encode())
	require.NoError(t, err)
	require.Equal(t, s.SharedHeads, restored.SharedHeads)
	// Volatile fields do not survive.
	require.Empty(t, restored.LastSentHeads)
	require.Equal(t, 0, restored.SentHashes.Cardinality())
}

func TestMessageRoundTrip(t *testing.T) {
	p := core.NewDocumentWithActor(testActor(0x01))
	putCommit(t, p, "k", "v")
	ps := NewSyncState()
	msg := GenerateSyncMessage(p, ps)
	require.NotNil(t, msg)

	decoded, err := DecodeMessage(msg.Encode())
	require.NoError(t, err)
	require.Equal(t, msg.Heads, decoded.Heads)
	require.Equal(t, msg.Need, decoded.Need)
	require.Equal(t, len(msg.Have), len(decoded.Have))
	require.Equal(t, len(msg.Changes), len(decoded.Changes))
}

func TestMessageBadTypeByte(t *testing.T) {
	_, err := DecodeMessage([]byte{0x41})
	require.ErrorIs(t, err, ErrBadMessageType)
	_, err = DecodeSyncState([]byte{0x42})
	require.ErrorIs(t, err, ErrBadMessageType)
}
