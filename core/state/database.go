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

// Package state implements the Account & State API (C3): account records,
// per-account storage accessors, the code store, and touched-accounts
// cleanup, layered over the trie (C1).
package state

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/trie"
)

// codeSizeCacheSize bounds the code-hash -> code LRU cache (spec.md §4.3
// get_code), avoiding a trie/db round trip for contracts called repeatedly
// within a sync burst.
const codeSizeCacheSize = 100000

// Database wraps the account trie and per-account storage subtries (C1)
// behind the interface core/state.StateDB is built on, adding an
// in-memory code cache the way geth's state.Database does.
type Database interface {
	// OpenTrie opens the account trie at root.
	OpenTrie(root common.Hash) (*trie.SecureTrie, error)
	// OpenStorageTrie opens an account's storage subtrie at root
	// (spec.md §4.1 "Storage subtries").
	OpenStorageTrie(addrHash, root common.Hash) (*trie.SecureTrie, error)
	// ContractCode returns the code for the given code hash.
	ContractCode(addrHash, codeHash common.Hash) ([]byte, error)
	// TrieDB returns the underlying content-addressed node store.
	TrieDB() *trie.Database
}

// NewDatabase creates a state database over db, the backing
// ethdb.Database from spec.md §6.
func NewDatabase(db ethdb.Database) Database {
	csc, _ := lru.New(codeSizeCacheSize)
	return &cachingDB{
		db:            trie.NewDatabase(db),
		codeSizeCache: csc,
	}
}

type cachingDB struct {
	db            *trie.Database
	codeSizeCache *lru.Cache
}

func (db *cachingDB) OpenTrie(root common.Hash) (*trie.SecureTrie, error) {
	return trie.NewSecure(root, db.db)
}

func (db *cachingDB) OpenStorageTrie(addrHash, root common.Hash) (*trie.SecureTrie, error) {
	return trie.NewSecure(root, db.db)
}

func (db *cachingDB) ContractCode(addrHash, codeHash common.Hash) ([]byte, error) {
	if v, ok := db.codeSizeCache.Get(codeHash); ok {
		return v.([]byte), nil
	}
	code, err := db.db.Get(codeHash.Bytes())
	if err != nil {
		return nil, err
	}
	db.codeSizeCache.Add(codeHash, code)
	return code, nil
}

func (db *cachingDB) TrieDB() *trie.Database { return db.db }
