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
	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"

	"github.com/syncdoc/go-syncdoc/columnar"
	"github.com/syncdoc/go-syncdoc/common"
	"github.com/syncdoc/go-syncdoc/core"
	"github.com/syncdoc/go-syncdoc/core/types"
	"github.com/syncdoc/go-syncdoc/docsync"
)

// WriteChange stores a change chunk under its hash.
func (d *Database) WriteChange(c *types.Change) error {
	return d.Put(changeKey(c.Hash()), snappy.Encode(nil, c.Encode()))
}

// HasChange reports whether a change is stored.
func (d *Database) HasChange(h common.Hash) bool {
	ok, _ := d.Has(changeKey(h))
	return ok
}

// ReadChange retrieves and decodes a stored change, via the decoded
// change cache.
func (d *Database) ReadChange(h common.Hash) (*types.Change, error) {
	if cached, ok := d.cache.Get(h); ok {
		return cached.(*types.Change), nil
	}
	blob, err := d.Get(changeKey(h))
	if err != nil {
		return nil, err
	}
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, err
	}
	c, err := types.DecodeChange(raw)
	if err != nil {
		return nil, err
	}
	d.cache.Add(h, c)
	return c, nil
}

// WriteSnapshot stores the document's snapshot chunk and its heads,
// replacing any previous snapshot.
func (d *Database) WriteSnapshot(doc *core.Document) error {
	if err := d.Put(snapshotKey, snappy.Encode(nil, doc.Save())); err != nil {
		return err
	}
	heads := doc.GetHeads()
	blob := columnar.AppendUleb128(nil, uint64(len(heads)))
	for _, h := range heads {
		blob = append(blob, h.Bytes()...)
	}
	if err := d.Put(headsKey, snappy.Encode(nil, blob)); err != nil {
		return err
	}
	d.log.WithFields(logrus.Fields{
		"changes": doc.NumChanges(),
		"heads":   len(heads),
	}).Debug("wrote document snapshot")
	return nil
}

// ReadSnapshot loads the stored document snapshot.
func (d *Database) ReadSnapshot() (*core.Document, error) {
	blob, err := d.Get(snapshotKey)
	if err != nil {
		return nil, err
	}
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, err
	}
	return core.Load(raw)
}

// ReadHeads loads the heads recorded with the snapshot.
func (d *Database) ReadHeads() ([]common.Hash, error) {
	blob, err := d.Get(headsKey)
	if err != nil {
		return nil, err
	}
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, err
	}
	dec := columnar.NewDecoder(raw)
	n, err := dec.ReadUleb128()
	if err != nil {
		return nil, err
	}
	if n > uint64(dec.Len())/common.HashLength {
		return nil, columnar.ErrTruncated
	}
	heads := make([]common.Hash, n)
	for i := range heads {
		b, err := dec.ReadBytes(common.HashLength)
		if err != nil {
			return nil, err
		}
		heads[i] = common.BytesToHash(b)
	}
	return heads, nil
}

// WriteSyncState persists the durable part of a peer's sync state.
func (d *Database) WriteSyncState(peer string, s *docsync.SyncState) error {
	return d.Put(syncKey(peer), snappy.Encode(nil, s.Encode()))
}

// ReadSyncState restores a peer's sync state, or returns a fresh one if
// none is stored.
func (d *Database) ReadSyncState(peer string) (*docsync.SyncState, error) {
	blob, err := d.Get(syncKey(peer))
	if err != nil {
		return docsync.NewSyncState(), nil
	}
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, err
	}
	return docsync.DecodeSyncState(raw)
}
