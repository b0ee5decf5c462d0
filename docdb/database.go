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

// Package docdb persists documents, change chunks and per-peer sync
// state in a leveldb key-value store. Values are snappy compressed and
// decoded changes are held in an LRU cache.
package docdb

import (
	"github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"

	lru "github.com/hashicorp/golang-lru"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate
	// to leveldb.
	minCache = 16

	// minHandles is the minimum number of file handles to allocate to
	// leveldb.
	minHandles = 16

	// changeCacheSize is the number of decoded changes kept in memory.
	changeCacheSize = 4096
)

// Database is a persisted chunk store backed by leveldb.
type Database struct {
	fn    string
	db    *leveldb.DB
	cache *lru.Cache
	log   *logrus.Entry
}

// New opens (or creates) a store at the given path.
func New(file string, cache, handles int) (*Database, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	logger := logrus.WithField("database", file)
	logger.WithFields(logrus.Fields{
		"cache":   cache,
		"handles": handles,
	}).Info("allocated cache and file handles")

	db, err := leveldb.OpenFile(file, &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
	})
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return newDatabase(file, db, logger), nil
}

// NewMemory opens an in-memory store, for tests and ephemeral hosts.
func NewMemory() *Database {
	db, _ := leveldb.Open(storage.NewMemStorage(), nil)
	return newDatabase("", db, logrus.WithField("database", "memory"))
}

func newDatabase(fn string, db *leveldb.DB, logger *logrus.Entry) *Database {
	cache, _ := lru.New(changeCacheSize)
	return &Database{fn: fn, db: db, cache: cache, log: logger}
}

// Put inserts the given value into the store.
func (d *Database) Put(key, value []byte) error {
	return d.db.Put(key, value, nil)
}

// Get retrieves the given key if it's present in the store.
func (d *Database) Get(key []byte) ([]byte, error) {
	return d.db.Get(key, nil)
}

// Has retrieves whether a key is present in the store.
func (d *Database) Has(key []byte) (bool, error) {
	return d.db.Has(key, nil)
}

// Delete removes the key from the store.
func (d *Database) Delete(key []byte) error {
	return d.db.Delete(key, nil)
}

// Close flushes and closes the underlying leveldb.
func (d *Database) Close() error {
	if err := d.db.Close(); err != nil {
		d.log.WithError(err).Error("failed to close database")
		return err
	}
	d.log.Info("database closed")
	return nil
}

// Path returns the filesystem path of the store, empty for in-memory
// instances.
func (d *Database) Path() string { return d.fn }
