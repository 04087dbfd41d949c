// Copyright 2018 The go-ethereum Authors
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

// Package memorydb implements an in-memory ethdb.Database used by tests and
// by callers that only need an ephemeral store (e.g. the throwaway trie in
// core/types/derive_sha.go).
package memorydb

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
)

var errMemorydbClosed = errors.New("memorydb: closed")

// Database is a map-backed ethdb.Database.
type Database struct {
	lock sync.RWMutex
	db   map[string][]byte
}

// New returns a new empty in-memory database.
func New() *Database {
	return &Database{db: make(map[string][]byte)}
}

func (d *Database) Has(key []byte) (bool, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	if d.db == nil {
		return false, errMemorydbClosed
	}
	_, ok := d.db[string(key)]
	return ok, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	if d.db == nil {
		return nil, errMemorydbClosed
	}
	if v, ok := d.db[string(key)]; ok {
		return append([]byte{}, v...), nil
	}
	return nil, ethdb.ErrNotFound
}

func (d *Database) Put(key, value []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.db == nil {
		return errMemorydbClosed
	}
	d.db[string(key)] = append([]byte{}, value...)
	return nil
}

func (d *Database) Delete(key []byte) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.db == nil {
		return errMemorydbClosed
	}
	delete(d.db, string(key))
	return nil
}

func (d *Database) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.db = nil
	return nil
}

func (d *Database) NewBatch() ethdb.Batch {
	return &batch{db: d}
}

func (d *Database) NewIterator(prefix, start []byte) ethdb.Iterator {
	d.lock.RLock()
	defer d.lock.RUnlock()

	var keys []string
	for k := range d.db {
		if strings.HasPrefix(k, string(prefix)) && k >= string(prefix)+string(start) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return &iterator{keys: keys, db: d}
}

type keyvalue struct {
	key    []byte
	value  []byte
	delete bool
}

type batch struct {
	db     *Database
	writes []keyvalue
	size   int
}

func (b *batch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyvalue{append([]byte{}, key...), append([]byte{}, value...), false})
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyvalue{append([]byte{}, key...), nil, true})
	b.size += len(key)
	return nil
}

func (b *batch) ValueSize() int { return b.size }

func (b *batch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()
	if b.db.db == nil {
		return errMemorydbClosed
	}
	for _, kv := range b.writes {
		if kv.delete {
			delete(b.db.db, string(kv.key))
			continue
		}
		b.db.db[string(kv.key)] = kv.value
	}
	return nil
}

func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

type iterator struct {
	keys []string
	pos  int
	db   *Database
}

func (it *iterator) Next() bool {
	if it.pos >= len(it.keys) {
		return false
	}
	it.pos++
	return true
}

func (it *iterator) Key() []byte {
	if it.pos == 0 || it.pos > len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.pos-1])
}

func (it *iterator) Value() []byte {
	if it.pos == 0 || it.pos > len(it.keys) {
		return nil
	}
	it.db.lock.RLock()
	defer it.db.lock.RUnlock()
	return it.db.db[it.keys[it.pos-1]]
}

func (it *iterator) Release() {}
