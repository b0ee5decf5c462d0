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
)

var (
	// ErrSeqGap is returned when a change's seq does not directly follow
	// the actor's last applied change.
	ErrSeqGap = errors.New("core: non-contiguous seq for actor")

	// ErrNoDocumentChunk is returned when a load finds no document chunk
	// and no change chunks in its input.
	ErrNoDocumentChunk = errors.New("core: input contains no chunks")

	// ErrHeadsMismatch is returned when the heads recomputed from a
	// loaded document disagree with the heads stored in the chunk.
	ErrHeadsMismatch = errors.New("core: loaded heads mismatch")

	// ErrChangeOverlap is returned when a document chunk's op rows cannot
	// be attributed to a change.
	ErrChangeOverlap = errors.New("core: op row outside any change")

	// ErrTransactionOpen is returned when an operation requires no open
	// transaction but one is in progress.
	ErrTransactionOpen = errors.New("core: transaction already in progress")

	// ErrNoTransaction is returned by commit or rollback without an open
	// transaction.
	ErrNoTransaction = errors.New("core: no open transaction")
)
