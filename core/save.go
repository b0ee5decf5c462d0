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
	"github.com/syncdoc/go-syncdoc/columnar"
	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/state"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// Change-metadata column specs of the document chunk, one row per
// change: author, seq, the largest op counter, timestamp, message,
// dependency indices into the same column set and the extra payload.
var (
	colDocActor    = columnar.MakeColumnSpec(0, columnar.ColumnActor)
	colDocSeq      = columnar.MakeColumnSpec(0, columnar.ColumnDeltaInt)
	colDocMaxOp    = columnar.MakeColumnSpec(1, columnar.ColumnDeltaInt)
	colDocTime     = columnar.MakeColumnSpec(2, columnar.ColumnDeltaInt)
	colDocMessage  = columnar.MakeColumnSpec(3, columnar.ColumnString)
	colDocDepsNum  = columnar.MakeColumnSpec(4, columnar.ColumnGroup)
	colDocDepsIdx  = columnar.MakeColumnSpec(4, columnar.ColumnDeltaInt)
	colDocExtraLen = columnar.MakeColumnSpec(5, columnar.ColumnValueMeta)
	colDocExtraRaw = columnar.MakeColumnSpec(5, columnar.ColumnValue)
)

// Save encodes the whole document as a single snapshot chunk: the sorted
// actor table, the heads, one metadata row per change in apply order,
// one row per op in tree order with its successor set, and a trailing
// per-head change index for O(heads) seeks. Any open transaction must be
// committed or rolled back first.
func (d *Document) Save() []byte {
	actors, toChunk := d.sortedActorTable()

	body := columnar.AppendUleb128(nil, uint64(len(actors)))
	for _, a := range actors {
		body = columnar.AppendBytes(body, a)
	}
	heads := d.GetHeads()
	body = columnar.AppendUleb128(body, uint64(len(heads)))
	for _, h := range heads {
		body = append(body, h.Bytes()...)
	}

	body, _ = columnar.WriteColumnSet(body, d.encodeChangeMeta(toChunk))
	opCols := columnar.DeflateColumns(d.encodeDocOps(toChunk), columnar.DeflateThreshold)
	body, _ = columnar.WriteColumnSet(body, opCols)

	for _, h := range heads {
		pos := d.graph.historyByHash[h]
		body = columnar.AppendUleb128(body, uint64(pos))
	}
	return types.WriteChunk(nil, types.ChunkDocument, body)
}

// SaveIncremental encodes the changes since the given heads as a
// sequence of bare change chunks, suitable for appending to an earlier
// save.
func (d *Document) SaveIncremental(since []common.Hash) []byte {
	var out []byte
	for _, c := range d.GetChanges(since) {
		out = append(out, c.Encode()...)
	}
	return out
}

// sortedActorTable returns the document's actors sorted ascending, with
// a mapping from in-memory index to chunk index.
func (d *Document) sortedActorTable() ([]common.ActorID, []int) {
	ids := d.actors.IDs()
	sorted := make([]common.ActorID, len(ids))
	copy(sorted, ids)
	common.SortActorIDs(sorted)
	toChunk := make([]int, len(ids))
	pos := make(map[string]int, len(sorted))
	for i, a := range sorted {
		pos[string(a)] = i
	}
	for i, a := range ids {
		toChunk[i] = pos[string(a)]
	}
	return sorted, toChunk
}

func (d *Document) encodeChangeMeta(toChunk []int) []columnar.RawColumn {
	var (
		actor   columnar.UintRLEEncoder
		seq     columnar.DeltaEncoder
		maxOp   columnar.DeltaEncoder
		timeEnc columnar.DeltaEncoder
		message columnar.StringRLEEncoder
		depsNum columnar.UintRLEEncoder
		depsIdx columnar.DeltaEncoder
		extra   columnar.ValueEncoder
	)
	for _, c := range d.graph.history {
		actorIdx, _ := d.actors.Lookup(c.Actor())
		actor.Append(uint64(toChunk[actorIdx]))
		seq.Append(int64(c.Seq))
		maxOp.Append(int64(c.MaxOp()))
		timeEnc.Append(c.Time)
		if c.Message == "" {
			message.AppendNull()
		} else {
			message.Append(c.Message)
		}
		depsNum.Append(uint64(len(c.Deps)))
		for _, dep := range c.Deps {
			depsIdx.Append(int64(d.graph.historyByHash[dep]))
		}
		extra.Append(columnar.TagBytes, c.Extra)
	}
	return []columnar.RawColumn{
		{Spec: colDocActor, Data: actor.Bytes()},
		{Spec: colDocSeq, Data: seq.Bytes()},
		{Spec: colDocMaxOp, Data: maxOp.Bytes()},
		{Spec: colDocTime, Data: timeEnc.Bytes()},
		{Spec: colDocMessage, Data: message.Bytes()},
		{Spec: colDocDepsNum, Data: depsNum.Bytes()},
		{Spec: colDocDepsIdx, Data: depsIdx.Bytes()},
		{Spec: colDocExtraLen, Data: extra.MetaBytes()},
		{Spec: colDocExtraRaw, Data: extra.RawBytes()},
	}
}

// encodeDocOps lays the tree's op rows into the document op columns:
// explicit id columns, the succ group instead of pred, and the same
// obj/key/insert/action/value columns as change chunks.
func (d *Document) encodeDocOps(toChunk []int) []columnar.RawColumn {
	var (
		objActor  columnar.UintRLEEncoder
		objCtr    columnar.UintRLEEncoder
		keyActor  columnar.UintRLEEncoder
		keyCtr    columnar.DeltaEncoder
		keyStr    columnar.StringRLEEncoder
		idActor   columnar.UintRLEEncoder
		idCtr     columnar.DeltaEncoder
		insert    columnar.BooleanEncoder
		action    columnar.UintRLEEncoder
		val       columnar.ValueEncoder
		succNum   columnar.UintRLEEncoder
		succActor columnar.UintRLEEncoder
		succCtr   columnar.DeltaEncoder
		expand    columnar.BooleanEncoder
		markName  columnar.StringRLEEncoder
		hasMarks  bool
	)
	d.state.EachObject(func(obj types.ObjID, rows []state.Row) {
		for i := range rows {
			if rows[i].Op.Action.IsMark() {
				hasMarks = true
			}
		}
	})
	d.state.EachObject(func(obj types.ObjID, rows []state.Row) {
		for i := range rows {
			row := &rows[i]
			op := &row.Op
			if op.Obj.IsRoot() {
				objActor.AppendNull()
				objCtr.AppendNull()
			} else {
				objActor.Append(uint64(toChunk[op.Obj.Actor]))
				objCtr.Append(op.Obj.Counter)
			}
			switch {
			case op.Key.Kind == types.KeyMap:
				keyActor.AppendNull()
				keyCtr.AppendNull()
				keyStr.Append(op.Key.Str)
			case op.Key.IsHead():
				keyActor.AppendNull()
				keyCtr.Append(0)
				keyStr.AppendNull()
			default:
				keyActor.Append(uint64(toChunk[op.Key.Elem.Actor]))
				keyCtr.Append(int64(op.Key.Elem.Counter))
				keyStr.AppendNull()
			}
			idActor.Append(uint64(toChunk[op.ID.Actor]))
			idCtr.Append(int64(op.ID.Counter))
			insert.Append(op.Insert)
			action.Append(uint64(op.Action))
			if op.Action == types.ActionSet || op.Action == types.ActionInc || op.Action == types.ActionMarkBegin {
				tag, payload := types.EncodeScalar(op.Value)
				val.Append(tag, payload)
			} else {
				val.Append(columnar.TagNull, nil)
			}
			succNum.Append(uint64(len(row.Succ)))
			for _, s := range row.Succ {
				succActor.Append(uint64(toChunk[s.Actor]))
				succCtr.Append(int64(s.Counter))
			}
			if hasMarks {
				expand.Append(op.Expand)
				if op.Action == types.ActionMarkBegin {
					markName.Append(op.MarkName)
				} else {
					markName.AppendNull()
				}
			}
		}
	})
	cols := []columnar.RawColumn{
		{Spec: types.ColObjActor, Data: objActor.Bytes()},
		{Spec: types.ColObjCtr, Data: objCtr.Bytes()},
		{Spec: types.ColKeyActor, Data: keyActor.Bytes()},
		{Spec: types.ColKeyCtr, Data: keyCtr.Bytes()},
		{Spec: types.ColKeyStr, Data: keyStr.Bytes()},
		{Spec: types.ColIDActor, Data: idActor.Bytes()},
		{Spec: types.ColIDCtr, Data: idCtr.Bytes()},
		{Spec: types.ColInsert, Data: insert.Bytes()},
		{Spec: types.ColAction, Data: action.Bytes()},
		{Spec: types.ColValMeta, Data: val.MetaBytes()},
		{Spec: types.ColValRaw, Data: val.RawBytes()},
		{Spec: types.ColSuccNum, Data: succNum.Bytes()},
		{Spec: types.ColSuccActor, Data: succActor.Bytes()},
		{Spec: types.ColSuccCtr, Data: succCtr.Bytes()},
	}
	if hasMarks {
		cols = append(cols,
			columnar.RawColumn{Spec: types.ColExpand, Data: expand.Bytes()},
			columnar.RawColumn{Spec: types.ColMarkName, Data: markName.Bytes()},
		)
	}
	return cols
}
