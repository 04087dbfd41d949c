// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package trie

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
)

// nodeCacheBytes bounds the in-front-of-disk node encoding cache; it exists
// purely to cut re-fetch cost for hot nodes (e.g. the upper trie layers
// revisited every block), not for correctness.
const nodeCacheBytes = 32 * 1024 * 1024

// Database is the content-addressed node store all Tries opened against the
// same backing ethdb.Database share. Keys are the node's own Keccak-256
// hash (spec.md §6: "Values are content-addressed (k = Keccak(v)) for trie
// nodes"), so distinct Trie/subtrie instances naturally dedupe shared
// subtrees in the store without any reference counting.
type Database struct {
	diskdb ethdb.Database
	clean  *fastcache.Cache

	lock    sync.Mutex
	pending map[string][]byte // dirty node encodings not yet flushed to diskdb
}

// NewDatabase wraps diskdb with a trie node cache.
func NewDatabase(diskdb ethdb.Database) *Database {
	return &Database{
		diskdb:  diskdb,
		clean:   fastcache.New(nodeCacheBytes),
		pending: make(map[string][]byte),
	}
}

func (db *Database) Get(hash []byte) ([]byte, error) {
	if enc, ok := db.clean.HasGet(nil, hash); ok {
		return enc, nil
	}
	db.lock.Lock()
	if enc, ok := db.pending[string(hash)]; ok {
		db.lock.Unlock()
		return enc, nil
	}
	db.lock.Unlock()

	enc, err := db.diskdb.Get(hash)
	if err != nil {
		return nil, err
	}
	db.clean.Set(hash, enc)
	return enc, nil
}

// insert stages committed node encodings. Nothing is durable until Flush.
func (db *Database) insert(nodes map[string][]byte) {
	db.lock.Lock()
	defer db.lock.Unlock()
	for hash, enc := range nodes {
		db.pending[hash] = enc
	}
}

// Insert stages an arbitrary content-addressed blob (e.g. contract code
// keyed by its own Keccak hash, spec.md §6) alongside trie nodes, so a
// single Flush durably writes both in one batch.
func (db *Database) Insert(hash, value []byte) {
	db.lock.Lock()
	defer db.lock.Unlock()
	db.pending[string(hash)] = common.CopyBytes(value)
}

// Flush writes every staged node encoding to the backing store in a single
// batch, matching spec.md §6's batch_write(pairs) contract, and warms the
// clean cache with what it wrote.
func (db *Database) Flush() error {
	db.lock.Lock()
	defer db.lock.Unlock()
	if len(db.pending) == 0 {
		return nil
	}
	batch := db.diskdb.NewBatch()
	for hash, enc := range db.pending {
		if err := batch.Put([]byte(hash), enc); err != nil {
			return err
		}
		db.clean.Set([]byte(hash), enc)
	}
	if err := batch.Write(); err != nil {
		return err
	}
	db.pending = make(map[string][]byte)
	return nil
}

// DiskDB exposes the underlying store for components (e.g. core/rawdb) that
// need to read/write secondary indices alongside trie nodes.
func (db *Database) DiskDB() ethdb.Database { return db.diskdb }
