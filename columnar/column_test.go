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

package columnar

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColumnSpecFields(t *testing.T) {
	spec := MakeColumnSpec(7, ColumnDeltaInt)
	require.Equal(t, uint32(7), spec.ID())
	require.Equal(t, ColumnDeltaInt, spec.Type())
	require.False(t, spec.Deflate())
	require.True(t, spec.WithDeflate().Deflate())
	require.Equal(t, spec, spec.WithDeflate().Normalize())
}

func TestColumnSetRoundTrip(t *testing.T) {
	cols := []RawColumn{
		{Spec: MakeColumnSpec(0, ColumnActor), Data: []byte{1, 2}},
		{Spec: MakeColumnSpec(0, ColumnInt), Data: []byte{3}},
		{Spec: MakeColumnSpec(1, ColumnString), Data: []byte{4, 5, 6}},
		{Spec: MakeColumnSpec(2, ColumnBoolean), Data: nil}, // omitted
	}
	buf, err := WriteColumnSet(nil, cols)
	require.NoError(t, err)
	got, err := ReadColumnSet(NewDecoder(buf))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 0; i < 3; i++ {
		require.Equal(t, cols[i].Spec, got[i].Spec)
		require.True(t, bytes.Equal(cols[i].Data, got[i].Data))
	}
}

func TestColumnSetRejectsDuplicates(t *testing.T) {
	buf := AppendUleb128(nil, 2)
	buf = AppendUleb128(buf, uint64(MakeColumnSpec(0, ColumnInt)))
	buf = AppendUleb128(buf, 1)
	buf = AppendUleb128(buf, uint64(MakeColumnSpec(0, ColumnInt)))
	buf = AppendUleb128(buf, 1)
	buf = append(buf, 0, 0)
	_, err := ReadColumnSet(NewDecoder(buf))
	require.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestColumnSetRejectsMisordering(t *testing.T) {
	buf := AppendUleb128(nil, 2)
	buf = AppendUleb128(buf, uint64(MakeColumnSpec(1, ColumnInt)))
	buf = AppendUleb128(buf, 1)
	buf = AppendUleb128(buf, uint64(MakeColumnSpec(0, ColumnInt)))
	buf = AppendUleb128(buf, 1)
	buf = append(buf, 0, 0)
	_, err := ReadColumnSet(NewDecoder(buf))
	require.ErrorIs(t, err, ErrColumnOrder)
}

func TestColumnSetRejectsValueWithoutMeta(t *testing.T) {
	buf := AppendUleb128(nil, 1)
	buf = AppendUleb128(buf, uint64(MakeColumnSpec(3, ColumnValue)))
	buf = AppendUleb128(buf, 1)
	buf = append(buf, 0)
	_, err := ReadColumnSet(NewDecoder(buf))
	require.ErrorIs(t, err, ErrValueWithoutMeta)
}

func TestColumnSetRejectsTruncatedData(t *testing.T) {
	buf := AppendUleb128(nil, 1)
	buf = AppendUleb128(buf, uint64(MakeColumnSpec(0, ColumnInt)))
	buf = AppendUleb128(buf, 100)
	buf = append(buf, 1, 2, 3)
	_, err := ReadColumnSet(NewDecoder(buf))
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDeflatedColumnRoundTrip(t *testing.T) {
	var enc UintRLEEncoder
	for i := 0; i < 1000; i++ {
		enc.Append(uint64(i % 3))
	}
	data := enc.Bytes()
	cols := DeflateColumns([]RawColumn{
		{Spec: MakeColumnSpec(0, ColumnInt), Data: data},
	}, 16)
	require.True(t, cols[0].Spec.Deflate())
	require.NotEqual(t, data, cols[0].Data)

	buf, err := WriteColumnSet(nil, cols)
	require.NoError(t, err)
	got, err := ReadColumnSet(NewDecoder(buf))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.False(t, got[0].Spec.Deflate())
	require.True(t, bytes.Equal(data, got[0].Data))
}

func TestBadDeflateRejected(t *testing.T) {
	buf := AppendUleb128(nil, 1)
	buf = AppendUleb128(buf, uint64(MakeColumnSpec(0, ColumnInt).WithDeflate()))
	buf = AppendUleb128(buf, 4)
	buf = append(buf, 0xde, 0xad, 0xbe, 0xef)
	_, err := ReadColumnSet(NewDecoder(buf))
	require.ErrorIs(t, err, ErrBadDeflate)
}
