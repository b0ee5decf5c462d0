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

// Package common contains the basic identity types shared by every layer
// of the document engine.
package common

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// HashLength is the expected length of a change hash.
const HashLength = 32

// Hash represents the 32 byte SHA-256 hash of a canonically encoded change
// or document chunk.
type Hash [HashLength]byte

// BytesToHash sets b to hash. If b is larger than len(h), b will be cropped
// from the left.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash sets byte representation of s to hash. If b is larger than
// len(h), b will be cropped from the left.
func HexToHash(s string) Hash {
	b, _ := hex.DecodeString(s)
	return BytesToHash(b)
}

// Bytes gets the byte representation of the underlying hash.
func (h Hash) Bytes() []byte { return h[:] }

// Hex converts a hash to a hex string.
func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

// String implements the stringer interface and is used also by the logger
// when doing full logging into a file.
func (h Hash) String() string { return h.Hex() }

// TerminalString implements log.TerminalStringer, formatting a string for
// console output during logging.
func (h Hash) TerminalString() string {
	return fmt.Sprintf("%x..%x", h[:3], h[29:])
}

// SetBytes sets the hash to the value of b. If b is larger than len(h),
// b will be cropped from the left.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// Cmp compares two hashes as big-endian byte strings.
func (h Hash) Cmp(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// SortHashes sorts a slice of hashes in ascending byte order, the order
// required of every hash list on the wire.
func SortHashes(hs []Hash) {
	sort.Slice(hs, func(i, j int) bool { return hs[i].Cmp(hs[j]) < 0 })
}

// HashesEqual reports whether a and b contain the same hashes in the same
// order.
func HashesEqual(a, b []Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ActorIDLength is the length of locally generated actor identities.
// Remote peers may use identifiers of any non-zero length.
const ActorIDLength = 16

// ActorID is the opaque identity of a replica. Actor ids are compared
// lexicographically when breaking Lamport ties.
type ActorID []byte

// NewActorID returns a fresh random 16 byte actor identity.
func NewActorID() ActorID {
	id := uuid.New()
	return ActorID(id[:])
}

// BytesToActorID returns a copy of b as an actor id.
func BytesToActorID(b []byte) ActorID {
	id := make(ActorID, len(b))
	copy(id, b)
	return id
}

// HexToActorID decodes s as a hex actor id, returning nil on bad input.
func HexToActorID(s string) ActorID {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return ActorID(b)
}

// Bytes gets the byte representation of the actor id.
func (a ActorID) Bytes() []byte { return a }

// Hex converts an actor id to a hex string.
func (a ActorID) Hex() string { return hex.EncodeToString(a) }

// String implements the stringer interface.
func (a ActorID) String() string { return a.Hex() }

// Cmp compares two actor ids lexicographically.
func (a ActorID) Cmp(other ActorID) int {
	return bytes.Compare(a, other)
}

// Equal reports whether two actor ids are the same identity.
func (a ActorID) Equal(other ActorID) bool {
	return bytes.Equal(a, other)
}

// SortActorIDs sorts a slice of actor ids lexicographically.
func SortActorIDs(ids []ActorID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Cmp(ids[j]) < 0 })
}
