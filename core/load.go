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
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/syncdoc/go-syncdoc/columnar"
	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/types"
)

var (
	// ErrBadDepIndex is returned when a document chunk's dependency
	// index does not point at an earlier change row.
	ErrBadDepIndex = errors.New("core: dependency index out of order")

	// ErrBundleUnsupported is returned for bundle chunks, which this
	// implementation does not consume.
	ErrBundleUnsupported = errors.New("core: bundle chunks not supported")
)

// Load reconstructs a document from a stored byte stream: one or more
// framed chunks in any order, typically a snapshot followed by
// incremental change chunks.
func Load(data []byte) (*Document, error) {
	chunks, err := types.ParseChunks(data)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoDocumentChunk
	}
	d := NewDocument()
	for _, ch := range chunks {
		switch ch.Type {
		case types.ChunkDocument:
			fresh := d.NumChanges() == 0
			changes, heads, err := decodeDocumentChunk(ch.Body)
			if err != nil {
				return nil, err
			}
			if err := d.ApplyChanges(changes); err != nil {
				return nil, err
			}
			if fresh && !common.HashesEqual(d.GetHeads(), heads) {
				return nil, ErrHeadsMismatch
			}
		case types.ChunkChange, types.ChunkCompressed:
			c, err := types.DecodeChangeChunk(ch)
			if err != nil {
				return nil, err
			}
			if err := d.ApplyChange(c); err != nil {
				return nil, err
			}
		case types.ChunkBundle:
			return nil, ErrBundleUnsupported
		}
	}
	if missing := d.GetMissingDeps(nil); len(missing) > 0 {
		logrus.WithFields(logrus.Fields{
			"missing": len(missing),
			"queued":  len(d.graph.queue),
		}).Warn("loaded document has unresolved dependencies")
	}
	return d, nil
}

// LoadIncremental applies the chunks in data on top of an existing
// document and returns the number of changes applied.
func (d *Document) LoadIncremental(data []byte) (int, error) {
	chunks, err := types.ParseChunks(data)
	if err != nil {
		return 0, err
	}
	before := d.NumChanges()
	for _, ch := range chunks {
		switch ch.Type {
		case types.ChunkDocument:
			changes, _, err := decodeDocumentChunk(ch.Body)
			if err != nil {
				return d.NumChanges() - before, err
			}
			if err := d.ApplyChanges(changes); err != nil {
				return d.NumChanges() - before, err
			}
		case types.ChunkChange, types.ChunkCompressed:
			c, err := types.DecodeChangeChunk(ch)
			if err != nil {
				return d.NumChanges() - before, err
			}
			if err := d.ApplyChange(c); err != nil {
				return d.NumChanges() - before, err
			}
		case types.ChunkBundle:
			return d.NumChanges() - before, ErrBundleUnsupported
		}
	}
	return d.NumChanges() - before, nil
}

type metaRow struct {
	actor   int
	seq     uint64
	maxOp   uint64
	time    int64
	message string
	deps    []int
	extra   []byte
}

type docOpRow struct {
	op   types.Op
	succ []types.OpID
}

// decodeDocumentChunk rebuilds the change list of a snapshot chunk. The
// op rows are re-attributed to their changes by actor and counter range,
// pred sets are derived from the stored succ sets, and delete ops, which
// have no rows of their own, are synthesised from dangling succ entries.
func decodeDocumentChunk(body []byte) ([]*types.Change, []common.Hash, error) {
	d := columnar.NewDecoder(body)
	nActors, err := d.ReadUleb128()
	if err != nil {
		return nil, nil, err
	}
	if nActors > uint64(d.Len()) {
		return nil, nil, columnar.ErrTruncated
	}
	actors := make([]common.ActorID, nActors)
	for i := range actors {
		b, err := d.ReadLenBytes()
		if err != nil {
			return nil, nil, err
		}
		actors[i] = common.BytesToActorID(b)
	}
	nHeads, err := d.ReadUleb128()
	if err != nil {
		return nil, nil, err
	}
	if nHeads > uint64(d.Len())/common.HashLength {
		return nil, nil, columnar.ErrTruncated
	}
	heads := make([]common.Hash, nHeads)
	for i := range heads {
		b, err := d.ReadBytes(common.HashLength)
		if err != nil {
			return nil, nil, err
		}
		heads[i] = common.BytesToHash(b)
	}

	metaCols, err := columnar.ReadColumnSet(d)
	if err != nil {
		return nil, nil, err
	}
	metaRows, err := decodeMetaRows(metaCols, len(actors))
	if err != nil {
		return nil, nil, err
	}
	opCols, err := columnar.ReadColumnSet(d)
	if err != nil {
		return nil, nil, err
	}
	opRows, err := decodeDocOpRows(opCols, len(actors))
	if err != nil {
		return nil, nil, err
	}
	// The optional trailing head index array; tolerated absent for older
	// producers.
	if !d.Done() {
		for range heads {
			if _, err := d.ReadUleb128(); err != nil {
				return nil, nil, err
			}
		}
		if !d.Done() {
			return nil, nil, types.ErrTrailingBytes
		}
	}

	changes, err := assembleChanges(actors, metaRows, opRows)
	if err != nil {
		return nil, nil, err
	}
	computed := computeHeads(changes)
	if !common.HashesEqual(computed, heads) {
		return nil, nil, ErrHeadsMismatch
	}
	return changes, heads, nil
}

func decodeMetaRows(cols []columnar.RawColumn, numActors int) ([]metaRow, error) {
	actorData := columnDataOf(cols, colDocActor)
	if actorData == nil {
		return nil, nil
	}
	var (
		actorD = columnar.NewUintRLEDecoder(actorData)
		seqD   = columnar.NewDeltaDecoder(columnDataOf(cols, colDocSeq))
		maxOpD = columnar.NewDeltaDecoder(columnDataOf(cols, colDocMaxOp))
		timeD  = columnar.NewDeltaDecoder(columnDataOf(cols, colDocTime))
		msgD   = columnar.NewStringRLEDecoder(columnDataOf(cols, colDocMessage))
		numD   = columnar.NewUintRLEDecoder(columnDataOf(cols, colDocDepsNum))
		idxD   = columnar.NewDeltaDecoder(columnDataOf(cols, colDocDepsIdx))
		valD   = columnar.NewValueDecoder(columnDataOf(cols, colDocExtraLen), columnDataOf(cols, colDocExtraRaw))
	)
	var rows []metaRow
	for i := 0; !actorD.Done(); i++ {
		var row metaRow
		actor, null, err := actorD.Next()
		if err != nil {
			return nil, err
		}
		if null || actor >= uint64(numActors) {
			return nil, types.ErrBadActorIndex
		}
		row.actor = int(actor)
		seq, null, err := seqD.Next()
		if err != nil {
			return nil, err
		}
		if null || seq <= 0 {
			return nil, ErrSeqGap
		}
		row.seq = uint64(seq)
		maxOp, null, err := maxOpD.Next()
		if err != nil {
			return nil, err
		}
		if null || maxOp < 0 {
			return nil, types.ErrBadOpCounter
		}
		row.maxOp = uint64(maxOp)
		t, null, err := timeD.Next()
		if err != nil {
			return nil, err
		}
		if !null {
			row.time = t
		}
		msg, null, err := msgD.Next()
		if err != nil {
			return nil, err
		}
		if !null {
			row.message = msg
		}
		n, null, err := numD.Next()
		if err != nil {
			return nil, err
		}
		if !null {
			for j := uint64(0); j < n; j++ {
				idx, inull, err := idxD.Next()
				if err != nil {
					return nil, err
				}
				if inull || idx < 0 || int(idx) >= i {
					return nil, ErrBadDepIndex
				}
				row.deps = append(row.deps, int(idx))
			}
		}
		if !valD.Done() {
			_, payload, err := valD.Next()
			if err != nil {
				return nil, err
			}
			if len(payload) > 0 {
				row.extra = append([]byte(nil), payload...)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeDocOpRows(cols []columnar.RawColumn, numActors int) ([]docOpRow, error) {
	actionData := columnDataOf(cols, types.ColAction)
	if actionData == nil {
		return nil, nil
	}
	var (
		actionD   = columnar.NewUintRLEDecoder(actionData)
		objActorD = newDocCol(columnDataOf(cols, types.ColObjActor))
		objCtrD   = newDocCol(columnDataOf(cols, types.ColObjCtr))
		keyActorD = newDocCol(columnDataOf(cols, types.ColKeyActor))
		keyCtrD   = newDocDelta(columnDataOf(cols, types.ColKeyCtr))
		keyStrD   = newDocStr(columnDataOf(cols, types.ColKeyStr))
		idActorD  = newDocCol(columnDataOf(cols, types.ColIDActor))
		idCtrD    = newDocDelta(columnDataOf(cols, types.ColIDCtr))
		insertD   = columnar.NewBooleanDecoder(columnDataOf(cols, types.ColInsert))
		valD      = columnar.NewValueDecoder(columnDataOf(cols, types.ColValMeta), columnDataOf(cols, types.ColValRaw))
		succNumD  = newDocCol(columnDataOf(cols, types.ColSuccNum))
		succActD  = newDocCol(columnDataOf(cols, types.ColSuccActor))
		succCtrD  = newDocDelta(columnDataOf(cols, types.ColSuccCtr))
		expandD   = columnar.NewBooleanDecoder(columnDataOf(cols, types.ColExpand))
		markND    = newDocStr(columnDataOf(cols, types.ColMarkName))
		hasMarks  = columnDataOf(cols, types.ColExpand) != nil || columnDataOf(cols, types.ColMarkName) != nil
		valAbsent = columnDataOf(cols, types.ColValMeta) == nil
	)
	var rows []docOpRow
	for !actionD.Done() {
		var row docOpRow
		op := &row.op

		a, null, err := actionD.Next()
		if err != nil {
			return nil, err
		}
		if null || a > uint64(types.ActionMarkEnd) {
			return nil, types.ErrBadAction
		}
		op.Action = types.Action(a)

		objActor, oaNull, err := objActorD.next()
		if err != nil {
			return nil, err
		}
		objCtr, ocNull, err := objCtrD.next()
		if err != nil {
			return nil, err
		}
		switch {
		case oaNull && ocNull:
			op.Obj = types.RootObjID
		case !oaNull && !ocNull && objActor < uint64(numActors) && objCtr > 0:
			op.Obj = types.ObjID(types.NewOpID(objCtr, int(objActor)))
		default:
			return nil, types.ErrBadActorIndex
		}

		keyActor, kaNull, err := keyActorD.next()
		if err != nil {
			return nil, err
		}
		keyCtr, kcNull, err := keyCtrD.next()
		if err != nil {
			return nil, err
		}
		keyStr, ksNull, err := keyStrD.next()
		if err != nil {
			return nil, err
		}
		switch {
		case !ksNull && kaNull && kcNull:
			op.Key = types.MapKey(keyStr)
		case ksNull && kaNull && !kcNull && keyCtr == 0:
			op.Key = types.HeadKey
		case ksNull && !kaNull && !kcNull && keyActor < uint64(numActors) && keyCtr > 0:
			op.Key = types.SeqKey(types.NewOpID(uint64(keyCtr), int(keyActor)))
		default:
			return nil, types.ErrMixedColumns
		}

		idActor, iaNull, err := idActorD.next()
		if err != nil {
			return nil, err
		}
		idCtr, icNull, err := idCtrD.next()
		if err != nil {
			return nil, err
		}
		if iaNull || icNull || idActor >= uint64(numActors) || idCtr <= 0 {
			return nil, types.ErrBadActorIndex
		}
		op.ID = types.NewOpID(uint64(idCtr), int(idActor))

		if op.Insert, err = readDocBool(insertD); err != nil {
			return nil, err
		}
		if valAbsent {
			op.Value = types.NullValue()
		} else {
			tag, payload, err := valD.Next()
			if err != nil {
				return nil, err
			}
			if op.Value, err = types.DecodeScalar(tag, payload); err != nil {
				return nil, err
			}
		}
		n, null, err := succNumD.next()
		if err != nil {
			return nil, err
		}
		if !null {
			for j := uint64(0); j < n; j++ {
				sActor, saNull, err := succActD.next()
				if err != nil {
					return nil, err
				}
				sCtr, scNull, err := succCtrD.next()
				if err != nil {
					return nil, err
				}
				if saNull || scNull || sActor >= uint64(numActors) || sCtr <= 0 {
					return nil, types.ErrBadActorIndex
				}
				row.succ = append(row.succ, types.NewOpID(uint64(sCtr), int(sActor)))
			}
		}
		if hasMarks {
			if op.Expand, err = readDocBool(expandD); err != nil {
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
		rows = append(rows, row)
	}
	return rows, nil
}

// assembleChanges re-attributes op rows to changes, synthesises delete
// ops from dangling succ entries, derives pred sets and builds each
// change with its own actor table.
func assembleChanges(actors []common.ActorID, metaRows []metaRow, opRows []docOpRow) ([]*types.Change, error) {
	rowByID := make(map[types.OpID]int, len(opRows))
	for i := range opRows {
		if _, dup := rowByID[opRows[i].op.ID]; dup {
			return nil, ErrChangeOverlap
		}
		rowByID[opRows[i].op.ID] = i
	}
	deletes := make(map[types.OpID]*types.Op)
	for i := range opRows {
		row := &opRows[i]
		for _, s := range row.succ {
			if j, ok := rowByID[s]; ok {
				opRows[j].op.Pred = append(opRows[j].op.Pred, row.op.ID)
				continue
			}
			del := deletes[s]
			if del == nil {
				key := row.op.Key
				if row.op.Insert {
					key = types.SeqKey(row.op.ID)
				}
				del = &types.Op{ID: s, Obj: row.op.Obj, Key: key, Action: types.ActionDel}
				deletes[s] = del
			}
			del.Pred = append(del.Pred, row.op.ID)
		}
	}

	perActor := make(map[int][]types.Op)
	for i := range opRows {
		op := opRows[i].op
		perActor[op.ID.Actor] = append(perActor[op.ID.Actor], op)
	}
	for _, del := range deletes {
		perActor[del.ID.Actor] = append(perActor[del.ID.Actor], *del)
	}
	for actor := range perActor {
		ops := perActor[actor]
		sort.Slice(ops, func(i, j int) bool { return ops[i].ID.Counter < ops[j].ID.Counter })
		perActor[actor] = ops
	}

	cursor := make(map[int]int)
	changes := make([]*types.Change, 0, len(metaRows))
	for _, m := range metaRows {
		ops := perActor[m.actor]
		start := cursor[m.actor]
		end := start
		for end < len(ops) && ops[end].ID.Counter <= m.maxOp {
			end++
		}
		cursor[m.actor] = end
		chunk := ops[start:end]
		if len(chunk) == 0 {
			return nil, types.ErrMissingOps
		}
		startOp := m.maxOp - uint64(len(chunk)) + 1
		for i := range chunk {
			if chunk[i].ID.Counter != startOp+uint64(i) {
				return nil, ErrChangeOverlap
			}
		}
		deps := make([]common.Hash, len(m.deps))
		for i, idx := range m.deps {
			deps[i] = changes[idx].Hash()
		}
		common.SortHashes(deps)
		c, err := buildChunkChange(actors, m, startOp, chunk, deps)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	for actor, ops := range perActor {
		if cursor[actor] != len(ops) {
			return nil, ErrChangeOverlap
		}
	}
	return changes, nil
}

// buildChunkChange remaps a change's ops from document-chunk actor
// indices to the change's own actor table.
func buildChunkChange(actors []common.ActorID, m metaRow, startOp uint64, ops []types.Op, deps []common.Hash) (*types.Change, error) {
	referenced := make(map[int]bool)
	for i := range ops {
		op := &ops[i]
		if !op.Obj.IsRoot() {
			referenced[op.Obj.Actor] = true
		}
		if op.Key.Kind == types.KeySeq && !op.Key.IsHead() {
			referenced[op.Key.Elem.Actor] = true
		}
		for _, p := range op.Pred {
			referenced[p.Actor] = true
		}
	}
	delete(referenced, m.actor)
	others := make([]common.ActorID, 0, len(referenced))
	for idx := range referenced {
		others = append(others, actors[idx])
	}
	common.SortActorIDs(others)
	table := make([]common.ActorID, 0, len(others)+1)
	table = append(table, actors[m.actor])
	table = append(table, others...)
	local := make(map[string]int, len(table))
	for i, a := range table {
		local[string(a)] = i
	}
	remap := func(chunkIdx int) int { return local[string(actors[chunkIdx])] }

	out := make([]types.Op, len(ops))
	for i, op := range ops {
		op.ID.Actor = remap(op.ID.Actor)
		if !op.Obj.IsRoot() {
			op.Obj.Actor = remap(op.Obj.Actor)
		}
		if op.Key.Kind == types.KeySeq && !op.Key.IsHead() {
			op.Key.Elem.Actor = remap(op.Key.Elem.Actor)
		}
		if len(op.Pred) > 0 {
			pred := make([]types.OpID, len(op.Pred))
			for j, p := range op.Pred {
				p.Actor = remap(p.Actor)
				pred[j] = p
			}
			sort.Slice(pred, func(a, b int) bool { return pred[a].Cmp(pred[b], table) < 0 })
			op.Pred = pred
		}
		out[i] = op
	}
	c := &types.Change{
		Actors:  table,
		Seq:     m.seq,
		StartOp: startOp,
		Time:    m.time,
		Message: m.message,
		Deps:    deps,
		Ops:     out,
		Extra:   m.extra,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// computeHeads derives the head set of a change list: every hash that no
// other change lists as a dependency.
func computeHeads(changes []*types.Change) []common.Hash {
	heads := make(map[common.Hash]struct{}, len(changes))
	for _, c := range changes {
		heads[c.Hash()] = struct{}{}
	}
	for _, c := range changes {
		for _, dep := range c.Deps {
			delete(heads, dep)
		}
	}
	out := make([]common.Hash, 0, len(heads))
	for h := range heads {
		out = append(out, h)
	}
	common.SortHashes(out)
	return out
}

func columnDataOf(cols []columnar.RawColumn, spec columnar.ColumnSpec) []byte {
	for _, c := range cols {
		if c.Spec.Normalize() == spec.Normalize() {
			return c.Data
		}
	}
	return nil
}

// Nullable column wrappers over absent document columns.
type docCol struct{ d *columnar.UintRLEDecoder }

func newDocCol(data []byte) docCol {
	if data == nil {
		return docCol{}
	}
	return docCol{d: columnar.NewUintRLEDecoder(data)}
}

func (c docCol) next() (uint64, bool, error) {
	if c.d == nil {
		return 0, true, nil
	}
	return c.d.Next()
}

type docDelta struct{ d *columnar.DeltaDecoder }

func newDocDelta(data []byte) docDelta {
	if data == nil {
		return docDelta{}
	}
	return docDelta{d: columnar.NewDeltaDecoder(data)}
}

func (c docDelta) next() (int64, bool, error) {
	if c.d == nil {
		return 0, true, nil
	}
	return c.d.Next()
}

type docStr struct{ d *columnar.StringRLEDecoder }

func newDocStr(data []byte) docStr {
	if data == nil {
		return docStr{}
	}
	return docStr{d: columnar.NewStringRLEDecoder(data)}
}

func (c docStr) next() (string, bool, error) {
	if c.d == nil {
		return "", true, nil
	}
	return c.d.Next()
}

func readDocBool(d *columnar.BooleanDecoder) (bool, error) {
	if d.Done() {
		return false, nil
	}
	return d.Next()
}
