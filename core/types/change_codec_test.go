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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syncdoc/go-syncdoc/columnar"
	"github.com/syncdoc/go-syncdoc/common"
)

func testActor(b byte) common.ActorID {
	return common.BytesToActorID(bytes.Repeat([]byte{b}, 16))
}

func sampleChange() *Change {
	actorA := testActor(0x01)
	actorB := testActor(0x02)
	listID := ObjID(NewOpID(1, 0))
	return &Change{
		Actors:  []common.ActorID{actorA, actorB},
		Seq:     2,
		StartOp: 10,
		Time:    1647000000000,
		Message: "edit the plan",
		Deps: []common.Hash{
			common.HexToHash("1111111111111111111111111111111111111111111111111111111111111111"),
			common.HexToHash("2222222222222222222222222222222222222222222222222222222222222222"),
		},
		Ops: []Op{
			{
				ID:     NewOpID(10, 0),
				Obj:    RootObjID,
				Key:    MapKey("title"),
				Action: ActionSet,
				Value:  StringValue("notes"),
				Pred:   []OpID{NewOpID(4, 1)},
			},
			{
				ID:     NewOpID(11, 0),
				Obj:    listID,
				Key:    HeadKey,
				Insert: true,
				Action: ActionSet,
				Value:  IntValue(-7),
			},
			{
				ID:     NewOpID(12, 0),
				Obj:    listID,
				Key:    SeqKey(NewOpID(11, 0)),
				Insert: true,
				Action: ActionSet,
				Value:  F64Value(2.5),
			},
			{
				ID:     NewOpID(13, 0),
				Obj:    RootObjID,
				Key:    MapKey("count"),
				Action: ActionSet,
				Value:  CounterValue(0),
			},
			{
				ID:     NewOpID(14, 0),
				Obj:    RootObjID,
				Key:    MapKey("count"),
				Action: ActionInc,
				Value:  IntValue(5),
				Pred:   []OpID{NewOpID(13, 0)},
			},
			{
				ID:     NewOpID(15, 0),
				Obj:    RootObjID,
				Key:    MapKey("payload"),
				Action: ActionSet,
				Value:  BytesValue([]byte{0xca, 0xfe}),
			},
		},
		Extra: []byte("app data"),
	}
}

func TestChangeRoundTrip(t *testing.T) {
	c := sampleChange()
	enc := c.Encode()

	got, err := DecodeChange(enc)
	require.NoError(t, err)
	require.Equal(t, c.Seq, got.Seq)
	require.Equal(t, c.StartOp, got.StartOp)
	require.Equal(t, c.Time, got.Time)
	require.Equal(t, c.Message, got.Message)
	require.Equal(t, c.Deps, got.Deps)
	require.Equal(t, len(c.Ops), len(got.Ops))
	for i := range c.Ops {
		require.Equal(t, c.Ops[i].ID, got.Ops[i].ID, "op %d", i)
		require.Equal(t, c.Ops[i].Obj, got.Ops[i].Obj, "op %d", i)
		require.Equal(t, c.Ops[i].Key, got.Ops[i].Key, "op %d", i)
		require.Equal(t, c.Ops[i].Insert, got.Ops[i].Insert, "op %d", i)
		require.Equal(t, c.Ops[i].Action, got.Ops[i].Action, "op %d", i)
		require.True(t, c.Ops[i].Value.Equal(got.Ops[i].Value), "op %d", i)
		require.Equal(t, c.Ops[i].Pred, got.Ops[i].Pred, "op %d", i)
	}
	require.True(t, bytes.Equal(c.Extra, got.Extra))
	require.Equal(t, c.Hash(), got.Hash())

	// Re-encoding a decoded change reproduces the input bytes exactly.
	require.True(t, bytes.Equal(enc, got.Encode()))
}

func TestChangeEncodeDeterministic(t *testing.T) {
	a := sampleChange().Encode()
	b := sampleChange().Encode()
	require.True(t, bytes.Equal(a, b))
	require.Equal(t, sampleChange().Hash(), sampleChange().Hash())
}

func TestChangeCompressedRoundTrip(t *testing.T) {
	c := sampleChange()
	// Pad the message so the body crosses the deflate threshold.
	c.Message = string(bytes.Repeat([]byte("x"), 2*columnar.DeflateThreshold))
	enc := c.EncodeCompressed()

	chunks, err := ParseChunks(enc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, ChunkCompressed, chunks[0].Type)

	got, err := DecodeChangeChunk(chunks[0])
	require.NoError(t, err)
	require.Equal(t, c.Hash(), got.Hash())
	require.Equal(t, c.Message, got.Message)
}

func TestChangeWithMarksRoundTrip(t *testing.T) {
	actor := testActor(0x03)
	text := ObjID(NewOpID(1, 0))
	c := &Change{
		Actors:  []common.ActorID{actor},
		Seq:     2,
		StartOp: 5,
		Ops: []Op{
			{
				ID:       NewOpID(5, 0),
				Obj:      text,
				Key:      HeadKey,
				Insert:   true,
				Action:   ActionMarkBegin,
				Value:    BoolValue(true),
				Expand:   true,
				MarkName: "bold",
			},
			{
				ID:     NewOpID(6, 0),
				Obj:    text,
				Key:    SeqKey(NewOpID(5, 0)),
				Insert: true,
				Action: ActionMarkEnd,
				Expand: true,
			},
		},
	}
	got, err := DecodeChange(c.Encode())
	require.NoError(t, err)
	require.Equal(t, ActionMarkBegin, got.Ops[0].Action)
	require.Equal(t, "bold", got.Ops[0].MarkName)
	require.True(t, got.Ops[0].Expand)
	require.True(t, got.Ops[0].Value.Equal(BoolValue(true)))
	require.Equal(t, ActionMarkEnd, got.Ops[1].Action)
	require.Equal(t, "", got.Ops[1].MarkName)
}

func TestTruncatedChunkRejected(t *testing.T) {
	enc := sampleChange().Encode()
	_, err := DecodeChange(enc[:len(enc)-10])
	require.ErrorIs(t, err, columnar.ErrTruncated)
}

func TestBadMagicRejected(t *testing.T) {
	enc := sampleChange().Encode()
	enc[0] ^= 0xff
	_, err := ParseChunks(enc)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestBadChecksumRejected(t *testing.T) {
	enc := sampleChange().Encode()
	enc[4] ^= 0xff
	_, err := ParseChunks(enc)
	require.ErrorIs(t, err, ErrBadChecksum)
}

func TestCorruptBodyRejected(t *testing.T) {
	enc := sampleChange().Encode()
	// Flip a byte inside the body and fix up nothing: the checksum
	// catches it.
	enc[len(enc)-3] ^= 0xff
	_, err := ParseChunks(enc)
	require.ErrorIs(t, err, ErrBadChecksum)
}

func TestPredNotBelowIDRejected(t *testing.T) {
	actor := testActor(0x04)
	c := &Change{
		Actors:  []common.ActorID{actor},
		Seq:     1,
		StartOp: 1,
		Ops: []Op{{
			ID:     NewOpID(1, 0),
			Obj:    RootObjID,
			Key:    MapKey("k"),
			Action: ActionSet,
			Value:  IntValue(1),
			Pred:   []OpID{NewOpID(1, 0)}, // its own id
		}},
	}
	require.ErrorIs(t, c.Validate(), ErrBadPred)
}

func TestOpCounterMismatchRejected(t *testing.T) {
	actor := testActor(0x05)
	c := &Change{
		Actors:  []common.ActorID{actor},
		Seq:     1,
		StartOp: 1,
		Ops: []Op{{
			ID:     NewOpID(7, 0),
			Obj:    RootObjID,
			Key:    MapKey("k"),
			Action: ActionSet,
			Value:  IntValue(1),
		}},
	}
	require.ErrorIs(t, c.Validate(), ErrBadOpCounter)
}

func TestEmptyChangeRejected(t *testing.T) {
	c := &Change{Actors: []common.ActorID{testActor(0x06)}, Seq: 1, StartOp: 1}
	require.ErrorIs(t, c.Validate(), ErrMissingOps)
}

func TestParseMultipleChunks(t *testing.T) {
	a := sampleChange().Encode()
	b := sampleChange().Encode()
	chunks, err := ParseChunks(append(append([]byte{}, a...), b...))
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, ChunkChange, chunks[0].Type)
}
