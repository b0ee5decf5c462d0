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
	mapset "github.com/deckarep/golang-set"

	"github.com/syncdoc/go-syncdoc/columnar"
	"github.com/syncdoc/go-syncdoc/common"
)

// SyncState is the per-peer bookkeeping of the protocol. Only the shared
// heads survive persistence; everything else is volatile session state.
type SyncState struct {
	SharedHeads   []common.Hash
	LastSentHeads []common.Hash

	TheirHeads     []common.Hash
	HaveTheirHeads bool
	TheirNeed      []common.Hash
	HaveTheirNeed  bool
	TheirHave      []Have
	HaveTheirHave  bool

	// SentHashes tracks what we already transmitted this session, the
	// same way a peer's known-transaction set is tracked in a chain
	// handler.
	SentHashes mapset.Set
}

// NewSyncState returns a fresh peer state.
func NewSyncState() *SyncState {
	return &SyncState{SentHashes: mapset.NewSet()}
}

// Encode persists the durable part of the state as a state blob.
func (s *SyncState) Encode() []byte {
	out := []byte{messageTypeState}
	return appendHashList(out, s.SharedHeads)
}

// DecodeSyncState restores a persisted peer state. All volatile fields
// start empty.
func DecodeSyncState(data []byte) (*SyncState, error) {
	d := columnar.NewDecoder(data)
	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if t != messageTypeState {
		return nil, ErrBadMessageType
	}
	shared, err := readHashList(d)
	if err != nil {
		return nil, err
	}
	if !d.Done() {
		return nil, ErrBadMessageType
	}
	s := NewSyncState()
	s.SharedHeads = shared
	return s, nil
}
