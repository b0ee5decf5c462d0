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
	"errors"
)

var (
	// ErrBadMessageType is returned when a blob does not open with the
	// expected type byte.
	ErrBadMessageType = errors.New("docsync: unknown message type byte")

	// ErrBadBloomParams is returned when a Bloom filter's parameters are
	// out of range or disagree with its bit data.
	ErrBadBloomParams = errors.New("docsync: bloom filter parameters out of range")

	// ErrHashOrder is returned when a hash list on the wire is not
	// ascending.
	ErrHashOrder = errors.New("docsync: hash list out of order")
)
