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
	"github.com/syncdoc/go-syncdoc/columnar"
	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core/types"
)

// Wire type bytes of the sync blobs. Neither is a chunk: sync traffic is
// never framed by the chunk magic.
const (
	messageTypeSync  byte = 0x42
	messageTypeState byte = 0x43
)

// Have advertises a causal frontier: the heads of the last known common
// prefix and a Bloom filter over the changes beyond it.
type Have struct {
	LastSync []common.Hash
	Bloom    *BloomFilter
}

// Message is one round of the reconciliation protocol.
type Message struct {
	Heads   []common.Hash
	Need    []common.Hash
	Have    []Have
	Changes []*types.Change
}

// Encode serialises the message as a sync blob.
func (m *Message) Encode() []byte {
	out := []byte{messageTypeSync}
	out = appendHashList(out, m.Heads)
	out = appendHashList(out, m.Need)
	out = columnar.AppendUleb128(out, uint64(len(m.Have)))
	for _, h := range m.Have {
		out = appendHashList(out, h.LastSync)
		out = columnar.AppendBytes(out, h.Bloom.Bytes())
	}
	out = columnar.AppendUleb128(out, uint64(len(m.Changes)))
	for _, c := range m.Changes {
		out = columnar.AppendBytes(out, c.Encode())
	}
	return out
}

// DecodeMessage parses a sync blob.
func DecodeMessage(data []byte) (*Message, error) {
	d := columnar.NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if t != messageTypeSync {
		return nil, ErrBadMessageType
	}
	m := &Message{}
	if m.Heads, err = readHashList(d); err != nil {
		return nil, err
	}
	if m.Need, err = readHashList(d); err != nil {
		return nil, err
	}
	nHave, err := d.ReadUleb128()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nHave; i++ {
		var h Have
		if h.LastSync, err = readHashList(d); err != nil {
			return nil, err
		}
		bloomBytes, err := d.ReadLenBytes()
		if err != nil {
			return nil, err
		}
		if h.Bloom, err = DecodeBloom(bloomBytes); err != nil {
			return nil, err
		}
		m.Have = append(m.Have, h)
	}
	nChanges, err := d.ReadUleb128()
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < nChanges; i++ {
		chunk, err := d.ReadLenBytes()
		if err != nil {
			return nil, err
		}
		c, err := types.DecodeChange(chunk)
		if err != nil {
			return nil, err
		}
		m.Changes = append(m.Changes, c)
	}
	if !d.Done() {
		return nil, types.ErrTrailingBytes
	}
	return m, nil
}

func appendHashList(out []byte, hashes []common.Hash) []byte {
	out = columnar.AppendUleb128(out, uint64(len(hashes)))
	for _, h := range hashes {
		out = append(out, h.Bytes()...)
	}
	return out
}

func readHashList(d *columnar.Decoder) ([]common.Hash, error) {
	n, err := d.ReadUleb128()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Len())/common.HashLength {
		return nil, columnar.ErrTruncated
	}
	out := make([]common.Hash, n)
	for i := range out {
		b, err := d.ReadBytes(common.HashLength)
		if err != nil {
			return nil, err
		}
		out[i] = common.BytesToHash(b)
		if i > 0 && out[i].Cmp(out[i-1]) <= 0 {
			return nil, ErrHashOrder
		}
	}
	return out, nil
}
