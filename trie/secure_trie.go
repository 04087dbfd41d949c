// Copyright 2016 The go-ethereum Authors
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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SecureTrie wraps Trie and hashes every key with Keccak-256 before it
// touches the tree, per spec.md §4.1's "Storage subtries" and the account
// trie's own keying rule: trie keys are never the account address or the
// storage slot index directly, they are Keccak(key). This makes tree depth
// independent of how keys are chosen by the caller and is what lets two
// storage subtries with the same root hash be proven identical without
// revealing which slots they cover.
//
// The preimage of each hashed key is kept alongside it in secKeyCache so
// callers that need the original key back (for example, iterating an
// account's storage for a debug dump) can recover it; this mirrors the
// go-ethereum SecureTrie's getSecKeyCache.
type SecureTrie struct {
	trie          Trie
	secKeyCache   map[string][]byte
	secKeyCacheOK bool
}

// NewSecure opens a secure trie with the given root.
func NewSecure(root common.Hash, db *Database) (*SecureTrie, error) {
	t, err := New(root, db)
	if err != nil {
		return nil, err
	}
	return &SecureTrie{trie: *t}, nil
}

// Get returns the value stored for key. key is the original, un-hashed key;
// the trie itself only ever stores Keccak(key).
func (t *SecureTrie) Get(key []byte) []byte {
	return t.trie.Get(t.hashKey(key))
}

func (t *SecureTrie) TryGet(key []byte) ([]byte, error) {
	return t.trie.TryGet(t.hashKey(key))
}

// Update stores value for key. Per spec.md's "writing the zero word is
// equivalent to deleting the slot" storage-subtrie rule, callers are
// expected to pass an empty value (or call Delete) rather than RLP-encoding
// a zero word — TryUpdate treats empty value identically to TryDelete via
// the underlying Trie.
func (t *SecureTrie) Update(key, value []byte) {
	if err := t.TryUpdate(key, value); err != nil {
		panic(err)
	}
}

func (t *SecureTrie) TryUpdate(key, value []byte) error {
	hk := t.hashKey(key)
	err := t.trie.TryUpdate(hk, value)
	if err != nil {
		return err
	}
	t.getSecKeyCache()[string(hk)] = append([]byte{}, key...)
	return nil
}

func (t *SecureTrie) Delete(key []byte) {
	if err := t.TryDelete(key); err != nil {
		panic(err)
	}
}

func (t *SecureTrie) TryDelete(key []byte) error {
	hk := t.hashKey(key)
	delete(t.getSecKeyCache(), string(hk))
	return t.trie.TryDelete(hk)
}

// GetKey returns the preimage of a hashed key, or nil if it isn't cached in
// this process.
func (t *SecureTrie) GetKey(shaKey []byte) []byte {
	if key, ok := t.getSecKeyCache()[string(shaKey)]; ok {
		return key
	}
	return nil
}

func (t *SecureTrie) Hash() common.Hash {
	return t.trie.Hash()
}

func (t *SecureTrie) Commit() (common.Hash, error) {
	return t.trie.Commit()
}

func (t *SecureTrie) Database() *Database {
	return t.trie.Database()
}

// Copy returns an independent SecureTrie sharing the same backing Database.
func (t *SecureTrie) Copy() *SecureTrie {
	cp := *t
	cp.trie = *t.trie.Copy()
	return &cp
}

func (t *SecureTrie) hashKey(key []byte) []byte {
	h := crypto.Keccak256(key)
	return h
}

func (t *SecureTrie) getSecKeyCache() map[string][]byte {
	if !t.secKeyCacheOK {
		t.secKeyCache = make(map[string][]byte)
		t.secKeyCacheOK = true
	}
	return t.secKeyCache
}
