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

	"github.com/syncdoc/go-syncdoc/columnar"
	"github.com/syncdoc/go-syncdoc/common"
)

// Change body layout:
//
//	author actor (length prefixed)
//	count of other actors, then each (length prefixed, sorted)
//	seq (ULEB) | start_op (ULEB) | time (SLEB) | message (length prefixed)
//	dep count, then 32 byte hashes ascending
//	op column set
//	extra bytes (length prefixed)
//
// The canonical form hashes is this byte sequence with all columns
// un-deflated; encoding the same logical change twice yields identical
// bytes.

// Encode returns the change as a framed chunk of type change.
func (c *Change) Encode() []byte {
	if enc := c.enc.Load(); enc != nil {
		return enc.([]byte)
	}
	body := c.encodeBody()
	out := WriteChunk(nil, ChunkChange, body)
	c.enc.Store(out)
	return out
}

// EncodeCompressed returns the change as a compressed chunk when the body
// is large enough for DEFLATE to pay off, and as a plain change chunk
// otherwise. The checksum of a compressed chunk is that of the inner
// change chunk.
func (c *Change) EncodeCompressed() []byte {
	body := c.encodeBody()
	if len(body) <= columnar.DeflateThreshold {
		return c.Encode()
	}
	hash := ChunkHash(ChunkChange, body)
	deflated := columnar.Deflate(body)
	return writeChunkChecksum(nil, ChunkCompressed, deflated, hash[:4])
}

func (c *Change) encodeBody() []byte {
	body := columnar.AppendBytes(nil, c.Actors[0])
	body = columnar.AppendUleb128(body, uint64(len(c.Actors)-1))
	for _, a := range c.Actors[1:] {
		body = columnar.AppendBytes(body, a)
	}
	body = columnar.AppendUleb128(body, c.Seq)
	body = columnar.AppendUleb128(body, c.StartOp)
	body = columnar.AppendSleb128(body, c.Time)
	body = columnar.AppendString(body, c.Message)
	body = columnar.AppendUleb128(body, uint64(len(c.Deps)))
	for _, dep := range c.Deps {
		body = append(body, dep.Bytes()...)
	}
	cols := encodeChangeOps(c.Ops)
	body, _ = columnar.WriteColumnSet(body, cols)
	body = columnar.AppendBytes(body, c.Extra)
	return body
}

// encodeChangeOps builds the op column set of a change chunk. The id
// columns are omitted: every op is authored by the change actor and the
// counters are dense from start_op. Mark columns appear only when the
// change carries mark ops.
func encodeChangeOps(ops []Op) []columnar.RawColumn {
	var (
		objActor  columnar.UintRLEEncoder
		objCtr    columnar.UintRLEEncoder
		keyActor  columnar.UintRLEEncoder
		keyCtr    columnar.DeltaEncoder
		keyStr    columnar.StringRLEEncoder
		insert    columnar.BooleanEncoder
		action    columnar.UintRLEEncoder
		val       columnar.ValueEncoder
		predNum   columnar.UintRLEEncoder
		predActor columnar.UintRLEEncoder
		predCtr   columnar.DeltaEncoder
		expand    columnar.BooleanEncoder
		markName  columnar.StringRLEEncoder
	)
	hasMarks := false
	for i := range ops {
		if ops[i].Action.IsMark() {
			hasMarks = true
			break
		}
	}
	for i := range ops {
		op := &ops[i]
		if op.Obj.IsRoot() {
			objActor.AppendNull()
			objCtr.AppendNull()
		} else {
			objActor.Append(uint64(op.Obj.Actor))
			objCtr.Append(op.Obj.Counter)
		}
		switch {
		case op.Key.Kind == KeyMap:
			keyActor.AppendNull()
			keyCtr.AppendNull()
			keyStr.Append(op.Key.Str)
		case op.Key.IsHead():
			keyActor.AppendNull()
			keyCtr.Append(0)
			keyStr.AppendNull()
		default:
			keyActor.Append(uint64(op.Key.Elem.Actor))
			keyCtr.Append(int64(op.Key.Elem.Counter))
			keyStr.AppendNull()
		}
		insert.Append(op.Insert)
		action.Append(uint64(op.Action))
		if opHasValue(op.Action) {
			tag, payload := op.Value.encode()
			val.Append(tag, payload)
		} else {
			val.Append(columnar.TagNull, nil)
		}
		predNum.Append(uint64(len(op.Pred)))
		for _, p := range op.Pred {
			predActor.Append(uint64(p.Actor))
			predCtr.Append(int64(p.Counter))
		}
		if hasMarks {
			expand.Append(op.Expand)
			if op.Action == ActionMarkBegin {
				markName.Append(op.MarkName)
			} else {
				markName.AppendNull()
			}
		}
	}
	cols := []columnar.RawColumn{
		{Spec: ColObjActor, Data: objActor.Bytes()},
		{Spec: ColObjCtr, Data: objCtr.Bytes()},
		{Spec: ColKeyActor, Data: keyActor.Bytes()},
		{Spec: ColKeyCtr, Data: keyCtr.Bytes()},
		{Spec: ColKeyStr, Data: keyStr.Bytes()},
		{Spec: ColInsert, Data: insert.Bytes()},
		{Spec: ColAction, Data: action.Bytes()},
		{Spec: ColValMeta, Data: val.MetaBytes()},
		{Spec: ColValRaw, Data: val.RawBytes()},
		{Spec: ColPredNum, Data: predNum.Bytes()},
		{Spec: ColPredActor, Data: predActor.Bytes()},
		{Spec: ColPredCtr, Data: predCtr.Bytes()},
	}
	if hasMarks {
		cols = append(cols,
			columnar.RawColumn{Spec: ColExpand, Data: expand.Bytes()},
			columnar.RawColumn{Spec: ColMarkName, Data: markName.Bytes()},
		)
	}
	return cols
}

func opHasValue(a Action) bool {
	return a == ActionSet || a == ActionInc || a == ActionMarkBegin
}

// DecodeChange parses a single framed change chunk (plain or compressed).
func DecodeChange(data []byte) (*Change, error) {
	chunks, err := ParseChunks(data)
	if err != nil {
		return nil, err
	}
	if len(chunks) != 1 {
		return nil, ErrNotAChange
	}
	return DecodeChangeChunk(chunks[0])
}

// DecodeChangeChunk decodes a split-out chunk as a change. Compressed
// bodies are inflated and their checksum verified against the inner
// change chunk.
func DecodeChangeChunk(chunk Chunk) (*Change, error) {
	body := chunk.Body
	if chunk.Type == ChunkCompressed {
		inflated, err := columnar.Inflate(body)
		if err != nil {
			return nil, err
		}
		hash := ChunkHash(ChunkChange, inflated)
		if !bytes.Equal(hash[:4], chunk.Checksum[:]) {
			return nil, ErrBadChecksum
		}
		body = inflated
	} else if chunk.Type != ChunkChange {
		return nil, ErrNotAChange
	}
	c, err := decodeChangeBody(body)
	if err != nil {
		return nil, err
	}
	c.hash.Store(ChunkHash(ChunkChange, body))
	c.enc.Store(WriteChunk(nil, ChunkChange, body))
	return c, nil
}

func decodeChangeBody(body []byte) (*Change, error) {
	d := columnar.NewDecoder(body)
	author, err := d.ReadLenBytes()
	if err != nil {
		return nil, err
	}
	nOthers, err := d.ReadUleb128()
	if err != nil {
		return nil, err
	}
	if nOthers > uint64(d.Len()) {
		return nil, columnar.ErrTruncated
	}
	actors := make([]common.ActorID, 1, nOthers+1)
	actors[0] = common.BytesToActorID(author)
	for i := uint64(0); i < nOthers; i++ {
		other, err := d.ReadLenBytes()
		if err != nil {
			return nil, err
		}
		actors = append(actors, common.BytesToActorID(other))
	}
	c := &Change{Actors: actors}
	if c.Seq, err = d.ReadUleb128(); err != nil {
		return nil, err
	}
	if c.StartOp, err = d.ReadUleb128(); err != nil {
		return nil, err
	}
	if c.Time, err = d.ReadSleb128(); err != nil {
		return nil, err
	}
	if c.Message, err = d.ReadString(); err != nil {
		return nil, err
	}
	nDeps, err := d.ReadUleb128()
	if err != nil {
		return nil, err
	}
	if nDeps > uint64(d.Len())/common.HashLength {
		return nil, columnar.ErrTruncated
	}
	c.Deps = make([]common.Hash, nDeps)
	for i := range c.Deps {
		h, err := d.ReadBytes(common.HashLength)
		if err != nil {
			return nil, err
		}
		c.Deps[i] = common.BytesToHash(h)
	}
	cols, err := columnar.ReadColumnSet(d)
	if err != nil {
		return nil, err
	}
	if c.Ops, err = decodeChangeOps(cols, c.StartOp, len(actors)); err != nil {
		return nil, err
	}
	if c.Extra, err = d.ReadLenBytes(); err != nil {
		return nil, err
	}
	if !d.Done() {
		return nil, ErrTrailingBytes
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeChangeOps(cols []columnar.RawColumn, startOp uint64, numActors int) ([]Op, error) {
	actionData := columnData(cols, ColAction)
	if actionData == nil {
		return nil, ErrMissingOps
	}
	var (
		actionD   = columnar.NewUintRLEDecoder(actionData)
		objActorD = newUintCol(columnData(cols, ColObjActor))
		objCtrD   = newUintCol(columnData(cols, ColObjCtr))
		keyActorD = newUintCol(columnData(cols, ColKeyActor))
		keyCtrD   = newDeltaCol(columnData(cols, ColKeyCtr))
		keyStrD   = newStrCol(columnData(cols, ColKeyStr))
		insertD   = columnar.NewBooleanDecoder(columnData(cols, ColInsert))
		valD      = columnar.NewValueDecoder(columnData(cols, ColValMeta), columnData(cols, ColValRaw))
		predNumD  = newUintCol(columnData(cols, ColPredNum))
		predActD  = newUintCol(columnData(cols, ColPredActor))
		predCtrD  = newDeltaCol(columnData(cols, ColPredCtr))
		expandD   = columnar.NewBooleanDecoder(columnData(cols, ColExpand))
		markND    = newStrCol(columnData(cols, ColMarkName))
		hasMarks  = columnData(cols, ColExpand) != nil || columnData(cols, ColMarkName) != nil
		valAbsent = columnData(cols, ColValMeta) == nil
	)
	var ops []Op
	for i := 0; !actionD.Done(); i++ {
		var op Op
		op.ID = NewOpID(startOp+uint64(i), 0)

		a, null, err := actionD.Next()
		if err != nil {
			return nil, err
		}
		if null || a > uint64(maxAction) {
			return nil, ErrBadAction
		}
		op.Action = Action(a)

		if op.Obj, err = readObj(objActorD, objCtrD, numActors); err != nil {
			return nil, err
		}
		if op.Key, err = readKey(keyActorD, keyCtrD, keyStrD, numActors); err != nil {
			return nil, err
		}
		if op.Insert, err = readBool(insertD); err != nil {
			return nil, err
		}
		if valAbsent {
			op.Value = NullValue()
		} else {
			tag, payload, err := valD.Next()
			if err != nil {
				return nil, err
			}
			if op.Value, err = decodeScalar(tag, payload); err != nil {
				return nil, err
			}
		}
		n, null, err := predNumD.next()
		if err != nil {
			return nil, err
		}
		if !null && n > 0 {
			capHint := n
			if capHint > 1024 {
				capHint = 1024
			}
			op.Pred = make([]OpID, 0, capHint)
			for j := uint64(0); j < n; j++ {
				actor, anull, err := predActD.next()
				if err != nil {
					return nil, err
				}
				ctr, cnull, err := predCtrD.next()
				if err != nil {
					return nil, err
				}
				if anull || cnull || actor >= uint64(numActors) || ctr <= 0 {
					return nil, ErrBadActorIndex
				}
				op.Pred = append(op.Pred, NewOpID(uint64(ctr), int(actor)))
			}
		}
		if hasMarks {
			if op.Expand, err = readBool(expandD); err != nil {
				return nil, err
			}
			name, nameNull, err := markND.next()
			if err != nil {
				return nil, err
			}
			if !nameNull {
				op.MarkName = name
			}
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Nullable column wrappers: an absent column yields a null for every row.
type uintCol struct{ d *columnar.UintRLEDecoder }

func newUintCol(data []byte) uintCol {
	if data == nil {
		return uintCol{}
	}
	return uintCol{d: columnar.NewUintRLEDecoder(data)}
}

func (c uintCol) next() (uint64, bool, error) {
	if c.d == nil {
		return 0, true, nil
	}
	return c.d.Next()
}

type deltaCol struct{ d *columnar.DeltaDecoder }

func newDeltaCol(data []byte) deltaCol {
	if data == nil {
		return deltaCol{}
	}
	return deltaCol{d: columnar.NewDeltaDecoder(data)}
}

func (c deltaCol) next() (int64, bool, error) {
	if c.d == nil {
		return 0, true, nil
	}
	return c.d.Next()
}

type strCol struct{ d *columnar.StringRLEDecoder }

func newStrCol(data []byte) strCol {
	if data == nil {
		return strCol{}
	}
	return strCol{d: columnar.NewStringRLEDecoder(data)}
}

func (c strCol) next() (string, bool, error) {
	if c.d == nil {
		return "", true, nil
	}
	return c.d.Next()
}

func readObj(actorD, ctrD uintCol, numActors int) (ObjID, error) {
	actor, aNull, err := actorD.next()
	if err != nil {
		return ObjID{}, err
	}
	ctr, cNull, err := ctrD.next()
	if err != nil {
		return ObjID{}, err
	}
	if aNull != cNull {
		return ObjID{}, ErrMixedColumns
	}
	if aNull {
		return RootObjID, nil
	}
	if actor >= uint64(numActors) || ctr == 0 {
		return ObjID{}, ErrBadActorIndex
	}
	return ObjID(NewOpID(ctr, int(actor))), nil
}

func readKey(actorD uintCol, ctrD deltaCol, strD strCol, numActors int) (Key, error) {
	actor, aNull, err := actorD.next()
	if err != nil {
		return Key{}, err
	}
	ctr, cNull, err := ctrD.next()
	if err != nil {
		return Key{}, err
	}
	str, sNull, err := strD.next()
	if err != nil {
		return Key{}, err
	}
	switch {
	case !sNull && aNull && cNull:
		return MapKey(str), nil
	case sNull && aNull && !cNull && ctr == 0:
		return HeadKey, nil
	case sNull && !aNull && !cNull:
		if actor >= uint64(numActors) || ctr <= 0 {
			return Key{}, ErrBadActorIndex
		}
		return SeqKey(NewOpID(uint64(ctr), int(actor))), nil
	}
	return Key{}, ErrMixedColumns
}

func readBool(d *columnar.BooleanDecoder) (bool, error) {
	if d.Done() {
		// Absent boolean columns decode as all false.
		return false, nil
	}
	return d.Next()
}
