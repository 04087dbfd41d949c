// Copyright 2014 The go-ethereum Authors
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

package state

import (
	"bytes"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// stateObject is the in-memory, mutable representation of one account
// (spec.md §3's 4-tuple) plus its dirty storage overlay. StateDB keeps one
// stateObject per address touched during the life of the StateDB value;
// Commit flushes dirty storage into the account's subtrie and the account
// itself into the account trie.
type stateObject struct {
	address  common.Address
	addrHash common.Hash
	data     types.StateAccount
	db       *StateDB

	trie *trie.SecureTrie // storage subtrie, opened lazily
	code []byte

	originStorage map[common.Hash]common.Hash // cache of storage entries read from the trie, unmodified
	dirtyStorage  map[common.Hash]common.Hash // storage entries modified in this transaction/block

	dirtyCode bool
	suicided  bool
	deleted   bool
}

// empty reports spec.md §3's account-emptiness predicate.
func (s *stateObject) empty() bool {
	return s.data.Nonce == 0 && s.data.Balance.Sign() == 0 && bytes.Equal(s.data.CodeHash, types.EmptyCodeHash.Bytes())
}

// newObject creates a state object for addr out of account data, or a fresh
// empty account if data is nil.
func newObject(db *StateDB, address common.Address, data *types.StateAccount) *stateObject {
	if data == nil {
		data = types.NewEmptyStateAccount(trie.EmptyRoot())
	}
	if data.Balance == nil {
		data.Balance = new(big.Int)
	}
	if data.CodeHash == nil {
		data.CodeHash = types.EmptyCodeHash.Bytes()
	}
	return &stateObject{
		db:            db,
		address:       address,
		addrHash:      crypto.Keccak256Hash(address[:]),
		data:          *data,
		originStorage: make(map[common.Hash]common.Hash),
		dirtyStorage:  make(map[common.Hash]common.Hash),
	}
}

// EncodeRLP implements rlp.Encoder, used only to compute the account trie
// leaf value (spec.md §4.1 "Values are RLP-encoded prior to insertion").
func (s *stateObject) EncodeRLP(w io.Writer) error {
	enc, err := rlp.EncodeToBytes(&s.data)
	if err != nil {
		return err
	}
	_, err = w.Write(enc)
	return err
}

func (s *stateObject) markSuicided() { s.suicided = true }

func (s *stateObject) touch() {
	s.db.journal.append(touchChange{account: &s.address})
}

// getTrie lazily opens the account's storage subtrie (spec.md §4.1
// "Storage subtries"). Each account's storage root is independent even when
// two accounts' roots coincide, since the open call returns a fresh
// traversal handle into the shared content-addressed node store rather than
// any account-specific structure.
func (s *stateObject) getTrie(db Database) (*trie.SecureTrie, error) {
	if s.trie == nil {
		var err error
		s.trie, err = db.OpenStorageTrie(s.addrHash, s.data.Root)
		if err != nil {
			return nil, err
		}
	}
	return s.trie, nil
}

// GetState returns the value at key, consulting the dirty overlay first,
// then the origin cache, then the subtrie.
func (s *stateObject) GetState(db Database, key common.Hash) common.Hash {
	if value, dirty := s.dirtyStorage[key]; dirty {
		return value
	}
	return s.GetCommittedState(db, key)
}

// GetCommittedState returns the trie's view of key, ignoring any
// not-yet-committed write in the current transaction.
func (s *stateObject) GetCommittedState(db Database, key common.Hash) common.Hash {
	if value, cached := s.originStorage[key]; cached {
		return value
	}
	tr, err := s.getTrie(db)
	if err != nil {
		return common.Hash{}
	}
	enc := tr.Get(key[:])
	var value common.Hash
	if len(enc) > 0 {
		var content []byte
		if err := rlp.DecodeBytes(enc, &content); err == nil {
			value.SetBytes(content)
		}
	}
	s.originStorage[key] = value
	return value
}

// SetState writes value at key into the dirty overlay; a zero value is
// equivalent to deletion and is still tracked here so updateTrie can delete
// the trie entry rather than writing a zero-value leaf (spec.md §4.1
// "Writing zero deletes").
func (s *stateObject) SetState(db Database, key, value common.Hash) {
	prev := s.GetState(db, key)
	if prev == value {
		return
	}
	s.db.journal.append(storageChange{
		account:  &s.address,
		key:      key,
		prevalue: prev,
	})
	s.setState(key, value)
}

func (s *stateObject) setState(key, value common.Hash) {
	s.dirtyStorage[key] = value
}

// updateTrie writes every dirty storage entry into the subtrie, deleting
// keys whose dirty value is zero (spec.md §4.1).
func (s *stateObject) updateTrie(db Database) (*trie.SecureTrie, error) {
	tr, err := s.getTrie(db)
	if err != nil {
		return nil, err
	}
	for key, value := range s.dirtyStorage {
		delete(s.dirtyStorage, key)
		if value == (common.Hash{}) {
			tr.Delete(key[:])
			delete(s.originStorage, key)
			continue
		}
		v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
		tr.Update(key[:], v)
		s.originStorage[key] = value
	}
	return tr, nil
}

// updateRoot sets s.data.Root to the subtrie's current hash after
// updateTrie has applied every dirty entry.
func (s *stateObject) updateRoot(db Database) {
	tr, err := s.updateTrie(db)
	if err != nil {
		return
	}
	s.data.Root = tr.Hash()
}

// CommitTrie commits the storage subtrie to the backing store, returning
// its root.
func (s *stateObject) CommitTrie(db Database) error {
	tr, err := s.updateTrie(db)
	if err != nil {
		return err
	}
	root, err := tr.Commit()
	if err != nil {
		return err
	}
	s.data.Root = root
	return nil
}

func (s *stateObject) AddBalance(amount *big.Int) {
	if amount.Sign() == 0 {
		if s.empty() {
			s.touch()
		}
		return
	}
	s.SetBalance(new(big.Int).Add(s.Balance(), amount))
}

func (s *stateObject) SubBalance(amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	s.SetBalance(new(big.Int).Sub(s.Balance(), amount))
}

func (s *stateObject) SetBalance(amount *big.Int) {
	s.db.journal.append(balanceChange{
		account: &s.address,
		prev:    new(big.Int).Set(s.data.Balance),
	})
	s.setBalance(amount)
}

func (s *stateObject) setBalance(amount *big.Int) { s.data.Balance = amount }

func (s *stateObject) SetNonce(nonce uint64) {
	s.db.journal.append(nonceChange{
		account: &s.address,
		prev:    s.data.Nonce,
	})
	s.setNonce(nonce)
}

func (s *stateObject) setNonce(nonce uint64) { s.data.Nonce = nonce }

func (s *stateObject) CodeHash() []byte    { return s.data.CodeHash }
func (s *stateObject) Balance() *big.Int   { return s.data.Balance }
func (s *stateObject) Nonce() uint64       { return s.data.Nonce }
func (s *stateObject) Address() common.Address { return s.address }

func (s *stateObject) Code(db Database) []byte {
	if s.code != nil {
		return s.code
	}
	if bytes.Equal(s.CodeHash(), types.EmptyCodeHash.Bytes()) {
		return nil
	}
	code, err := db.ContractCode(s.addrHash, common.BytesToHash(s.CodeHash()))
	if err != nil {
		s.db.setError(fmt.Errorf("can't load code hash %x: %v", s.CodeHash(), err))
	}
	s.code = code
	return code
}

func (s *stateObject) SetCode(codeHash common.Hash, code []byte) {
	prevcode := s.Code(s.db.db)
	s.db.journal.append(codeChange{
		account:  &s.address,
		prevhash: s.CodeHash(),
		prevcode: prevcode,
	})
	s.setCode(codeHash, code)
}

func (s *stateObject) setCode(codeHash common.Hash, code []byte) {
	s.code = code
	s.data.CodeHash = codeHash[:]
	s.dirtyCode = true
}

// deepCopy returns a copy of s detached from db, used by StateDB.Copy to
// snapshot the whole working set cheaply.
func (s *stateObject) deepCopy(db *StateDB) *stateObject {
	obj := newObject(db, s.address, &s.data)
	if s.trie != nil {
		obj.trie = s.trie.Copy()
	}
	obj.code = s.code
	obj.dirtyStorage = make(map[common.Hash]common.Hash, len(s.dirtyStorage))
	for k, v := range s.dirtyStorage {
		obj.dirtyStorage[k] = v
	}
	obj.originStorage = make(map[common.Hash]common.Hash, len(s.originStorage))
	for k, v := range s.originStorage {
		obj.originStorage[k] = v
	}
	obj.suicided = s.suicided
	obj.dirtyCode = s.dirtyCode
	obj.deleted = s.deleted
	return obj
}
