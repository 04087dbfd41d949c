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

// Package leveldb is the on-disk ethdb.Database binding, backed by
// github.com/syndtr/goleveldb with Snappy block compression enabled (the
// same compression family geth's own leveldb binding and RLPx framing use).
package leveldb

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/ethereum/go-ethereum/ethdb"
)

// Database wraps a goleveldb handle as an ethdb.Database.
type Database struct {
	db *leveldb.DB
}

// New opens (creating if absent) a leveldb store at file, sized by cache
// (MB) and handles (open file descriptors), matching geth's classic
// NewLDBDatabase constructor shape.
func New(file string, cache int, handles int, readonly bool) (*Database, error) {
	if cache < 16 {
		cache = 16
	}
	if handles < 16 {
		handles = 16
	}
	opts := &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
		Filter:                 filter.NewBloomFilter(10),
		Compression:            opt.SnappyCompression,
		ReadOnly:               readonly,
	}
	db, err := leveldb.OpenFile(file, opts)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Has(key []byte) (bool, error) { return d.db.Has(key, nil) }

func (d *Database) Get(key []byte) ([]byte, error) {
	v, err := d.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ethdb.ErrNotFound
	}
	return v, err
}

func (d *Database) Put(key, value []byte) error { return d.db.Put(key, value, nil) }
func (d *Database) Delete(key []byte) error      { return d.db.Delete(key, nil) }
func (d *Database) Close() error                 { return d.db.Close() }

func (d *Database) NewBatch() ethdb.Batch { return &batch{db: d.db, b: new(leveldb.Batch)} }

func (d *Database) NewIterator(prefix, start []byte) ethdb.Iterator {
	rng := util.BytesPrefix(prefix)
	if start != nil {
		rng.Start = append(append([]byte{}, prefix...), start...)
	}
	return d.db.NewIterator(rng, nil)
}

type batch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	size int
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	b.size += len(key) + len(value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	b.size += len(key)
	return nil
}

func (b *batch) ValueSize() int { return b.size }
func (b *batch) Write() error   { return b.db.Write(b.b, nil) }
func (b *batch) Reset()         { b.b.Reset(); b.size = 0 }
