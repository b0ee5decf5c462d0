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

// Package types contains the data types of the document engine: operation
// identifiers, scalar values, operations, changes and their binary chunk
// encoding.
package types

import (
	"fmt"

	"github.com/syncdoc/go-syncdoc/common"
)

// OpID is the Lamport timestamp identifying one operation: a per-actor
// counter paired with an actor, referenced by index into an actor table.
// The zero OpID is the distinguished root/head sentinel.
type OpID struct {
	Counter uint64
	Actor   int
}

// NewOpID returns the op id for the given counter and actor index.
func NewOpID(counter uint64, actor int) OpID {
	return OpID{Counter: counter, Actor: actor}
}

// IsZero reports whether id is the root/head sentinel.
func (id OpID) IsZero() bool { return id.Counter == 0 }

// Cmp orders two op ids as Lamport timestamps: by counter, ties broken by
// the actor identity bytes resolved through actors.
func (id OpID) Cmp(other OpID, actors []common.ActorID) int {
	switch {
	case id.Counter < other.Counter:
		return -1
	case id.Counter > other.Counter:
		return 1
	case id.Actor == other.Actor:
		return 0
	}
	return actors[id.Actor].Cmp(actors[other.Actor])
}

// String implements the stringer interface.
func (id OpID) String() string {
	return fmt.Sprintf("%d@%d", id.Counter, id.Actor)
}

// ObjID identifies an object: the root sentinel or the op id of the make
// operation that created the object.
type ObjID OpID

// RootObjID is the distinguished root map object.
var RootObjID = ObjID{}

// IsRoot reports whether o is the root object.
func (o ObjID) IsRoot() bool { return o.Counter == 0 }

// Opid returns the object id as an op id.
func (o ObjID) Opid() OpID { return OpID(o) }

// String implements the stringer interface.
func (o ObjID) String() string {
	if o.IsRoot() {
		return "_root"
	}
	return OpID(o).String()
}

// KeyKind discriminates map keys from sequence position anchors.
type KeyKind uint8

const (
	// KeyMap is a string key within a map or table object.
	KeyMap KeyKind = iota
	// KeySeq is a sequence position anchor: the head sentinel or the op
	// id of a prior insert.
	KeySeq
)

// Key addresses a slot within an object.
type Key struct {
	Kind KeyKind
	Str  string
	Elem OpID
}

// MapKey returns a string key.
func MapKey(s string) Key { return Key{Kind: KeyMap, Str: s} }

// SeqKey returns a sequence anchor key. A zero elem is the head.
func SeqKey(elem OpID) Key { return Key{Kind: KeySeq, Elem: elem} }

// HeadKey anchors an insert at the front of a sequence.
var HeadKey = Key{Kind: KeySeq}

// IsHead reports whether k anchors at the head of a sequence.
func (k Key) IsHead() bool { return k.Kind == KeySeq && k.Elem.IsZero() }

// String implements the stringer interface.
func (k Key) String() string {
	if k.Kind == KeyMap {
		return k.Str
	}
	if k.IsHead() {
		return "_head"
	}
	return k.Elem.String()
}
