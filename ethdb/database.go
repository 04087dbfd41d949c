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

// Package ethdb defines the abstract key-value backing store (spec.md §6):
// every consensus-critical component talks to storage only through this
// interface, never through a concrete database package directly.
package ethdb

import "errors"

// ErrNotFound is returned by Get when the requested key is absent.
var ErrNotFound = errors.New("ethdb: not found")

// KeyValueReader wraps the read side of a key-value store.
type KeyValueReader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the write side of a key-value store.
type KeyValueWriter interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Batch accumulates a set of writes for atomic commit; it is the concrete
// type backing spec.md §6's batch_write(pairs) operation.
type Batch interface {
	KeyValueWriter
	ValueSize() int
	Write() error
	Reset()
}

// Batcher is implemented by stores that can produce a write batch.
type Batcher interface {
	NewBatch() Batch
}

// Iterator walks a range of key-value pairs in key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

// Iteratee is implemented by stores that support ordered iteration over a
// key prefix.
type Iteratee interface {
	NewIterator(prefix, start []byte) Iterator
}

// KeyValueStore is the full abstract backing-store contract from spec.md §6.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	Batcher
	Iteratee
	Close() error
}

// Database is the type every component is constructed with; currently
// identical to KeyValueStore, kept distinct so a richer ancestor (e.g. one
// that also exposes an ancient/freezer tier) can be introduced without
// touching call sites.
type Database interface {
	KeyValueStore
}
