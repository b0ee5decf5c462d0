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
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syncdoc/go-syncdoc/common"
)

func hashOf(i int) common.Hash {
	sum := sha256.Sum256([]byte{byte(i), byte(i >> 8)})
	return common.BytesToHash(sum[:])
}

func TestBloomNoFalseNegatives(t *testing.T) {
	var hashes []common.Hash
	for i := 0; i < 200; i++ {
		hashes = append(hashes, hashOf(i))
	}
	f := NewBloomFilter(hashes)
	for _, h := range hashes {
		require.True(t, f.ContainsHash(h))
	}
}

func TestBloomFalsePositiveRate(t *testing.T) {
	var hashes []common.Hash
	for i := 0; i < 1000; i++ {
		hashes = append(hashes, hashOf(i))
	}
	f := NewBloomFilter(hashes)
	fp := 0
	probes := 10000
	for i := 0; i < probes; i++ {
		if f.ContainsHash(hashOf(100000 + i)) {
			fp++
		}
	}
	// Ten bits and seven probes per entry target roughly 1%; allow a
	// generous margin.
	require.Less(t, fp, probes/25)
}

func TestBloomEmpty(t *testing.T) {
	f := NewBloomFilter(nil)
	require.False(t, f.ContainsHash(hashOf(1)))
	require.Empty(t, f.Bytes())

	decoded, err := DecodeBloom(nil)
	require.NoError(t, err)
	require.False(t, decoded.ContainsHash(hashOf(1)))
}

func TestBloomRoundTrip(t *testing.T) {
	var hashes []common.Hash
	for i := 0; i < 50; i++ {
		hashes = append(hashes, hashOf(i))
	}
	f := NewBloomFilter(hashes)
	decoded, err := DecodeBloom(f.Bytes())
	require.NoError(t, err)
	for _, h := range hashes {
		require.True(t, decoded.ContainsHash(h))
	}
}

func TestBloomBadParams(t *testing.T) {
	// Zero probes.
	blob := []byte{1, 10, 0, 0xff, 0xff}
	_, err := DecodeBloom(blob)
	require.ErrorIs(t, err, ErrBadBloomParams)

	// Bit data shorter than the parameters demand.
	f := NewBloomFilter([]common.Hash{hashOf(1), hashOf(2), hashOf(3)})
	blob = f.Bytes()
	_, err = DecodeBloom(blob[:len(blob)-1])
	require.ErrorIs(t, err, ErrBadBloomParams)
}
