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
	"github.com/syncdoc/go-syncdoc/columnar"
)

// Column specs of the operation column sets. The same logical columns
// appear in change chunks (with the pred group, and the constant id
// columns omitted) and in document chunks (with explicit id columns and
// the succ group instead of pred).
var (
	ColObjActor  = columnar.MakeColumnSpec(0, columnar.ColumnActor)
	ColObjCtr    = columnar.MakeColumnSpec(0, columnar.ColumnInt)
	ColKeyActor  = columnar.MakeColumnSpec(1, columnar.ColumnActor)
	ColKeyCtr    = columnar.MakeColumnSpec(1, columnar.ColumnDeltaInt)
	ColKeyStr    = columnar.MakeColumnSpec(1, columnar.ColumnString)
	ColIDActor   = columnar.MakeColumnSpec(2, columnar.ColumnActor)
	ColIDCtr     = columnar.MakeColumnSpec(2, columnar.ColumnDeltaInt)
	ColInsert    = columnar.MakeColumnSpec(3, columnar.ColumnBoolean)
	ColAction    = columnar.MakeColumnSpec(4, columnar.ColumnInt)
	ColValMeta   = columnar.MakeColumnSpec(5, columnar.ColumnValueMeta)
	ColValRaw    = columnar.MakeColumnSpec(5, columnar.ColumnValue)
	ColPredNum   = columnar.MakeColumnSpec(7, columnar.ColumnGroup)
	ColPredActor = columnar.MakeColumnSpec(7, columnar.ColumnActor)
	ColPredCtr   = columnar.MakeColumnSpec(7, columnar.ColumnDeltaInt)
	ColSuccNum   = columnar.MakeColumnSpec(8, columnar.ColumnGroup)
	ColSuccActor = columnar.MakeColumnSpec(8, columnar.ColumnActor)
	ColSuccCtr   = columnar.MakeColumnSpec(8, columnar.ColumnDeltaInt)
	ColExpand    = columnar.MakeColumnSpec(9, columnar.ColumnBoolean)
	ColMarkName  = columnar.MakeColumnSpec(10, columnar.ColumnString)
)

// columnData returns the data of the column with the given spec, or nil
// when the column is absent (all-null on the wire).
func columnData(cols []columnar.RawColumn, spec columnar.ColumnSpec) []byte {
	for _, c := range cols {
		if c.Spec.Normalize() == spec.Normalize() {
			return c.Data
		}
	}
	return nil
}
