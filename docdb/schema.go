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

package docdb

import (
	"github.com/syncdoc/go-syncdoc/common"
)

// Key layout of the store. All values are snappy compressed.
var (
	// changePrefix + change hash -> change chunk
	changePrefix = []byte("c")

	// snapshotKey -> latest document chunk
	snapshotKey = []byte("snapshot")

	// headsKey -> ascending hash list of the snapshot's heads
	headsKey = []byte("heads")

	// syncPrefix + peer id -> persisted sync state blob
	syncPrefix = []byte("s")
)

func changeKey(h common.Hash) []byte {
	return append(append([]byte(nil), changePrefix...), h.Bytes()...)
}

func syncKey(peer string) []byte {
	return append(append([]byte(nil), syncPrefix...), peer...)
}
