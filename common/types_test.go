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

package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashConversions(t *testing.T) {
	h := HexToHash("00000000000000000000000000000000000000000000000000000000deadbeef")
	require.Equal(t, "00000000000000000000000000000000000000000000000000000000deadbeef", h.Hex())
	require.Equal(t, h, BytesToHash(h.Bytes()))

	// Short input is left padded.
	short := BytesToHash([]byte{0x01})
	require.Equal(t, byte(0x01), short[HashLength-1])
	require.Equal(t, byte(0x00), short[0])
}

func TestSortHashes(t *testing.T) {
	a := HexToHash("0100000000000000000000000000000000000000000000000000000000000000")
	b := HexToHash("0200000000000000000000000000000000000000000000000000000000000000")
	c := HexToHash("0300000000000000000000000000000000000000000000000000000000000000")
	hs := []Hash{c, a, b}
	SortHashes(hs)
	require.Equal(t, []Hash{a, b, c}, hs)
	require.True(t, HashesEqual(hs, []Hash{a, b, c}))
	require.False(t, HashesEqual(hs, []Hash{a, b}))
}

func TestActorIDs(t *testing.T) {
	a := NewActorID()
	b := NewActorID()
	require.Len(t, a.Bytes(), ActorIDLength)
	require.False(t, a.Equal(b))
	require.Equal(t, a, HexToActorID(a.Hex()))

	x := BytesToActorID([]byte{0x01})
	y := BytesToActorID([]byte{0x02})
	require.Negative(t, x.Cmp(y))
	ids := []ActorID{y, x}
	SortActorIDs(ids)
	require.Equal(t, x, ids[0])
}
