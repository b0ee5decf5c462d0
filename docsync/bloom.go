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

// Package docsync implements the peer-to-peer reconciliation protocol: a
// Bloom-filter-assisted exchange of the changes each peer lacks, over an
// ordered reliable transport supplied by the host.
package docsync

import (
	"encoding/binary"

	"github.com/syncdoc/go-syncdoc/columnar"
	"github.com/syncdoc/go-syncdoc/common"
)

// Bloom filter shape: ten bits and seven probes per entry give a false
// positive rate of roughly 1%. The probe positions are derived from the
// first twelve bytes of the change hash itself, so no extra hashing is
// needed.
const (
	bloomBitsPerEntry = 10
	bloomNumProbes    = 7
)

// BloomFilter advertises a set of change hashes probabilistically. The
// zero-entry filter matches nothing and serialises to no bytes.
type BloomFilter struct {
	numEntries   uint32
	bitsPerEntry uint32
	numProbes    uint32
	bits         []byte
}

// NewBloomFilter builds a filter over the given hashes.
func NewBloomFilter(hashes []common.Hash) *BloomFilter {
	f := &BloomFilter{
		numEntries:   uint32(len(hashes)),
		bitsPerEntry: bloomBitsPerEntry,
		numProbes:    bloomNumProbes,
	}
	f.bits = make([]byte, (uint64(f.numEntries)*uint64(f.bitsPerEntry)+7)/8)
	for _, h := range hashes {
		for _, p := range f.probes(h) {
			f.bits[p/8] |= 1 << (p % 8)
		}
	}
	return f
}

// probes derives the bit positions of a hash: three little-endian words
// from the hash seed a double-hashing sequence modulo the filter size.
func (f *BloomFilter) probes(h common.Hash) []uint32 {
	modulo := uint32(8 * len(f.bits))
	if modulo == 0 {
		return nil
	}
	x := binary.LittleEndian.Uint32(h[0:4]) % modulo
	y := binary.LittleEndian.Uint32(h[4:8]) % modulo
	z := binary.LittleEndian.Uint32(h[8:12]) % modulo
	out := make([]uint32, 0, f.numProbes)
	out = append(out, x)
	for i := uint32(1); i < f.numProbes; i++ {
		x = (x + y) % modulo
		y = (y + z) % modulo
		out = append(out, x)
	}
	return out
}

// ContainsHash reports whether the hash is probably in the advertised
// set. False positives occur at the configured rate; false negatives
// never.
func (f *BloomFilter) ContainsHash(h common.Hash) bool {
	if f.numEntries == 0 {
		return false
	}
	for _, p := range f.probes(h) {
		if f.bits[p/8]&(1<<(p%8)) == 0 {
			return false
		}
	}
	return true
}

// Bytes serialises the filter.
func (f *BloomFilter) Bytes() []byte {
	if f.numEntries == 0 {
		return nil
	}
	out := columnar.AppendUleb128(nil, uint64(f.numEntries))
	out = columnar.AppendUleb128(out, uint64(f.bitsPerEntry))
	out = columnar.AppendUleb128(out, uint64(f.numProbes))
	return append(out, f.bits...)
}

// DecodeBloom parses a serialised filter, validating its parameters.
func DecodeBloom(data []byte) (*BloomFilter, error) {
	if len(data) == 0 {
		return &BloomFilter{}, nil
	}
	d := columnar.NewDecoder(data)
	entries, err := d.ReadUleb128()
	if err != nil {
		return nil, err
	}
	bitsPer, err := d.ReadUleb128()
	if err != nil {
		return nil, err
	}
	probes, err := d.ReadUleb128()
	if err != nil {
		return nil, err
	}
	if entries == 0 || entries > 1<<32-1 || bitsPer == 0 || bitsPer > 64 || probes == 0 || probes > 255 {
		return nil, ErrBadBloomParams
	}
	want := (entries*bitsPer + 7) / 8
	bits, err := d.ReadBytes(d.Len())
	if err != nil || uint64(len(bits)) != want {
		return nil, ErrBadBloomParams
	}
	return &BloomFilter{
		numEntries:   uint32(entries),
		bitsPerEntry: uint32(bitsPer),
		numProbes:    uint32(probes),
		bits:         append([]byte(nil), bits...),
	}, nil
}
