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
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/trie"
)

// StateDB is the world state (spec.md §3): the account trie plus every
// opened per-account storage subtrie, with a journal of reversible edits
// so a reverted call or a failed transaction can be undone without
// re-reading from disk. It implements every operation of C3 (§4.3) and is
// what C4 (the EVM) and C5 (the transaction pipeline) are given as their
// state handle.
type StateDB struct {
	db   Database
	trie *trie.SecureTrie

	stateObjects      map[common.Address]*stateObject
	stateObjectsDirty map[common.Address]struct{}

	// touched holds the addresses passed to AddTouchedAddress since the last
	// Finalise (spec.md §4.3 "Touched-accounts cleanup"). No opcode handler
	// in core/vm calls AddTouchedAddress, so BALANCE, EXTCODE*, the CALL
	// family and SELFDESTRUCT do not add to it; an account marked by
	// stateObject.touch (a zero-value AddBalance on an empty account) or
	// otherwise modified reaches Finalise's cleanup through the journal's
	// dirty set instead.
	touched map[common.Address]struct{}

	thash, bhash common.Hash
	txIndex      int
	logs         map[common.Hash][]*types.Log
	logSize      uint

	preimages map[common.Hash][]byte

	journal        *journal
	validRevisions []revision
	nextRevisionID int

	refund uint64

	dbErr error
}

type revision struct {
	id           int
	journalIndex int
}

// New opens the state trie rooted at root over db, ready for reads and
// journaled writes.
func New(root common.Hash, db Database) (*StateDB, error) {
	tr, err := db.OpenTrie(root)
	if err != nil {
		return nil, err
	}
	return &StateDB{
		db:                db,
		trie:              tr,
		stateObjects:      make(map[common.Address]*stateObject),
		stateObjectsDirty: make(map[common.Address]struct{}),
		touched:           make(map[common.Address]struct{}),
		logs:              make(map[common.Hash][]*types.Log),
		preimages:         make(map[common.Hash][]byte),
		journal:           newJournal(),
	}, nil
}

func (s *StateDB) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}

// Error returns the first database error encountered during execution, if
// any; spec.md §7's "Logical inconsistencies (corrupt store, missing trie
// node): fatal to the process" is reported here so the caller can fail
// fast rather than commit a state root built on partial reads.
func (s *StateDB) Error() error { return s.dbErr }

// Database returns the underlying trie/code database.
func (s *StateDB) Database() Database { return s.db }

// ---- account accessors (spec.md §4.3) ----

func (s *StateDB) getStateObject(addr common.Address) *stateObject {
	if obj := s.stateObjects[addr]; obj != nil {
		if obj.deleted {
			return nil
		}
		return obj
	}
	enc := s.trie.Get(addr[:])
	if len(enc) == 0 {
		return nil
	}
	var data types.StateAccount
	if err := decodeAccountRLP(enc, &data); err != nil {
		s.setError(fmt.Errorf("can't decode account %x: %v", addr, err))
		return nil
	}
	obj := newObject(s, addr, &data)
	s.setStateObject(obj)
	return obj
}

func (s *StateDB) setStateObject(object *stateObject) {
	s.stateObjects[object.address] = object
}

// GetOrNewStateObject returns the existing object for addr, creating an
// empty one (and marking it dirty/created) if absent.
func (s *StateDB) GetOrNewStateObject(addr common.Address) *stateObject {
	obj := s.getStateObject(addr)
	if obj == nil || obj.deleted {
		obj, _ = s.createObject(addr)
	}
	return obj
}

func (s *StateDB) createObject(addr common.Address) (newobj, prev *stateObject) {
	prev = s.getStateObject(addr)
	newobj = newObject(s, addr, nil)
	newobj.data.Root = trie.EmptyRoot()
	if prev == nil {
		s.journal.append(createObjectChange{account: &addr})
	} else {
		s.journal.append(resetObjectChange{prev: prev})
	}
	s.setStateObject(newobj)
	return newobj, prev
}

// CreateAccount is called by C5 step 4 when executing a contract-creation
// transaction: it installs a new, empty account for the contract address,
// carrying over any existing balance a prior transfer may have created
// (spec.md §4.5 step 4 "transfer value" can precede code deployment).
func (s *StateDB) CreateAccount(addr common.Address) {
	new, prev := s.createObject(addr)
	if prev != nil {
		new.setBalance(prev.data.Balance)
	}
}

// Exist reports whether addr has a live account (spec.md §4.5's
// "missing_account" check).
func (s *StateDB) Exist(addr common.Address) bool {
	return s.getStateObject(addr) != nil
}

// Empty reports spec.md §3's emptiness predicate for addr, treating a
// missing account as empty (used by the touched-accounts cleanup pass).
func (s *StateDB) Empty(addr common.Address) bool {
	obj := s.getStateObject(addr)
	return obj == nil || obj.empty()
}

func (s *StateDB) GetBalance(addr common.Address) *big.Int {
	obj := s.getStateObject(addr)
	if obj != nil {
		return obj.Balance()
	}
	return common.Big0
}

func (s *StateDB) GetNonce(addr common.Address) uint64 {
	obj := s.getStateObject(addr)
	if obj != nil {
		return obj.Nonce()
	}
	return 0
}

func (s *StateDB) GetCodeHash(addr common.Address) common.Hash {
	obj := s.getStateObject(addr)
	if obj == nil {
		return common.Hash{}
	}
	return common.BytesToHash(obj.CodeHash())
}

func (s *StateDB) GetCode(addr common.Address) []byte {
	obj := s.getStateObject(addr)
	if obj != nil {
		return obj.Code(s.db)
	}
	return nil
}

func (s *StateDB) GetCodeSize(addr common.Address) int {
	return len(s.GetCode(addr))
}

func (s *StateDB) GetState(addr common.Address, hash common.Hash) common.Hash {
	obj := s.getStateObject(addr)
	if obj != nil {
		return obj.GetState(s.db, hash)
	}
	return common.Hash{}
}

func (s *StateDB) SetState(addr common.Address, key, value common.Hash) {
	if obj := s.GetOrNewStateObject(addr); obj != nil {
		obj.SetState(s.db, key, value)
	}
}

func (s *StateDB) AddBalance(addr common.Address, amount *big.Int) {
	s.GetOrNewStateObject(addr).AddBalance(amount)
}

func (s *StateDB) SubBalance(addr common.Address, amount *big.Int) {
	s.GetOrNewStateObject(addr).SubBalance(amount)
}

func (s *StateDB) SetBalance(addr common.Address, amount *big.Int) {
	s.GetOrNewStateObject(addr).SetBalance(amount)
}

func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	s.GetOrNewStateObject(addr).SetNonce(nonce)
}

func (s *StateDB) SetCode(addr common.Address, code []byte) {
	obj := s.GetOrNewStateObject(addr)
	obj.SetCode(crypto.Keccak256Hash(code), code)
}

// ---- touched / suicide (spec.md §4.3, §4.5 step 7) ----

// AddTouchedAddress marks addr touched: "any address that was the subject
// of BALANCE, EXTCODECOPY, EXTCODEHASH, EXTCODESIZE, CALL/CALLCODE/
// DELEGATECALL/STATICCALL, SELFDESTRUCT, or received value" (spec.md §4.3).
func (s *StateDB) AddTouchedAddress(addr common.Address) {
	if _, ok := s.touched[addr]; !ok {
		s.touched[addr] = struct{}{}
	}
	if obj := s.getStateObject(addr); obj != nil {
		obj.touch()
	}
}

func (s *StateDB) Suicide(addr common.Address) bool {
	obj := s.getStateObject(addr)
	if obj == nil {
		return false
	}
	s.journal.append(suicideChange{
		account:     &addr,
		prev:        obj.suicided,
		prevbalance: new(big.Int).Set(obj.Balance()),
	})
	obj.markSuicided()
	obj.data.Balance = new(big.Int)
	return true
}

func (s *StateDB) HasSuicided(addr common.Address) bool {
	obj := s.getStateObject(addr)
	return obj != nil && obj.suicided
}

// Finalise applies spec.md §4.5 step 7's finalization: addresses in the
// self-destruct set are removed, then (per §4.3, gated by
// deleteEmptyObjects — the Rules.CleanTouchedAccounts() flag) every touched
// address whose account is currently empty is removed too.
func (s *StateDB) Finalise(deleteEmptyObjects bool) {
	for addr := range s.journal.dirties {
		obj, exist := s.stateObjects[addr]
		if !exist {
			continue
		}
		if obj.suicided || (deleteEmptyObjects && obj.empty()) {
			obj.deleted = true
		}
		s.stateObjectsDirty[addr] = struct{}{}
	}
	if deleteEmptyObjects {
		for addr := range s.touched {
			obj := s.stateObjects[addr]
			if obj != nil && !obj.deleted && obj.empty() {
				obj.deleted = true
				s.stateObjectsDirty[addr] = struct{}{}
			}
		}
	}
	s.clearJournalAndRefund()
}

func (s *StateDB) clearJournalAndRefund() {
	s.journal = newJournal()
	s.validRevisions = s.validRevisions[:0]
	s.touched = make(map[common.Address]struct{})
}

// IntermediateRoot computes the account trie's root after Finalise, without
// committing it to the backing store — used for the pre-Byzantium
// receipt's intermediate state root (spec.md §3 Receipt).
func (s *StateDB) IntermediateRoot(deleteEmptyObjects bool) common.Hash {
	s.Finalise(deleteEmptyObjects)
	for addr := range s.stateObjectsDirty {
		obj := s.stateObjects[addr]
		if obj == nil || obj.deleted {
			continue
		}
		obj.updateRoot(s.db)
	}
	for addr := range s.stateObjectsDirty {
		obj := s.stateObjects[addr]
		if obj == nil {
			continue
		}
		if obj.deleted {
			s.deleteStateObject(obj)
		} else {
			s.updateStateObject(obj)
		}
	}
	return s.trie.Hash()
}

func (s *StateDB) updateStateObject(obj *stateObject) {
	s.trie.Update(obj.address[:], accountRLP(&obj.data))
}

func (s *StateDB) deleteStateObject(obj *stateObject) {
	s.trie.Delete(obj.address[:])
}

// Commit writes every dirty account and storage subtrie to the backing
// store and returns the new state root (spec.md §3 "the state root equals
// the root of that trie").
func (s *StateDB) Commit(deleteEmptyObjects bool) (common.Hash, error) {
	root := s.IntermediateRoot(deleteEmptyObjects)
	for addr := range s.stateObjectsDirty {
		obj := s.stateObjects[addr]
		if obj == nil || obj.deleted {
			continue
		}
		if obj.dirtyCode {
			s.db.TrieDB().Insert(common.BytesToHash(obj.CodeHash()).Bytes(), obj.code)
			obj.dirtyCode = false
		}
		if err := obj.CommitTrie(s.db); err != nil {
			return common.Hash{}, err
		}
	}
	delete(s.stateObjectsDirty, common.Address{})
	if _, err := s.trie.Commit(); err != nil {
		return common.Hash{}, err
	}
	return root, nil
}

// ---- snapshots (spec.md §4.4's "reversion" / "exceptional halt") ----

// Snapshot records the journal's current length under a fresh revision id,
// the restore point a REVERT or exceptional halt rolls back to.
func (s *StateDB) Snapshot() int {
	id := s.nextRevisionID
	s.nextRevisionID++
	s.validRevisions = append(s.validRevisions, revision{id, s.journal.length()})
	return id
}

// RevertToSnapshot undoes every journal entry recorded since Snapshot(id)
// was taken, implementing spec.md §4.4's reversion/exceptional-halt
// contract ("pre_call_state") without re-reading the trie.
func (s *StateDB) RevertToSnapshot(revid int) {
	idx := sort.Search(len(s.validRevisions), func(i int) bool {
		return s.validRevisions[i].id >= revid
	})
	if idx == len(s.validRevisions) || s.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := s.validRevisions[idx].journalIndex
	s.journal.revert(s, snapshot)
	s.validRevisions = s.validRevisions[:idx]
}

// ---- logs / refunds / preimages (EVM substate, spec.md §4.4) ----

func (s *StateDB) AddRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	s.refund += gas
}

func (s *StateDB) SubRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	if gas > s.refund {
		panic("refund counter below zero")
	}
	s.refund -= gas
}

func (s *StateDB) GetRefund() uint64 { return s.refund }

func (s *StateDB) Prepare(thash, bhash common.Hash, ti int) {
	s.thash, s.bhash, s.txIndex = thash, bhash, ti
}

func (s *StateDB) AddLog(log *types.Log) {
	s.journal.append(addLogChange{txhash: s.thash})
	log.TxHash = s.thash
	log.BlockHash = s.bhash
	log.TxIndex = uint(s.txIndex)
	log.Index = s.logSize
	s.logs[s.thash] = append(s.logs[s.thash], log)
	s.logSize++
}

// GetLogs returns every log emitted by the transaction hash, used to
// assemble the receipt (spec.md §4.5 step 8).
func (s *StateDB) GetLogs(hash common.Hash) []*types.Log { return s.logs[hash] }

func (s *StateDB) Logs() []*types.Log {
	var logs []*types.Log
	for _, lgs := range s.logs {
		logs = append(logs, lgs...)
	}
	return logs
}

func (s *StateDB) AddPreimage(hash common.Hash, preimage []byte) {
	if _, ok := s.preimages[hash]; !ok {
		s.journal.append(addPreimageChange{hash: hash})
		pi := make([]byte, len(preimage))
		copy(pi, preimage)
		s.preimages[hash] = pi
	}
}

// Copy returns a deep, independent snapshot of s, so a caller can execute
// against the copy without mutating s.
func (s *StateDB) Copy() *StateDB {
	state := &StateDB{
		db:                s.db,
		trie:              s.trie.Copy(),
		stateObjects:      make(map[common.Address]*stateObject, len(s.journal.dirties)),
		stateObjectsDirty: make(map[common.Address]struct{}, len(s.journal.dirties)),
		touched:           make(map[common.Address]struct{}, len(s.touched)),
		refund:            s.refund,
		logs:              make(map[common.Hash][]*types.Log, len(s.logs)),
		logSize:           s.logSize,
		preimages:         make(map[common.Hash][]byte, len(s.preimages)),
		journal:           newJournal(),
	}
	for addr := range s.journal.dirties {
		if object, exist := s.stateObjects[addr]; exist {
			state.stateObjects[addr] = object.deepCopy(state)
			state.stateObjectsDirty[addr] = struct{}{}
		}
	}
	for addr := range s.stateObjectsDirty {
		if _, exist := state.stateObjects[addr]; !exist {
			state.stateObjects[addr] = s.stateObjects[addr].deepCopy(state)
			state.stateObjectsDirty[addr] = struct{}{}
		}
	}
	for addr := range s.touched {
		state.touched[addr] = struct{}{}
	}
	for hash, logs := range s.logs {
		cpy := make([]*types.Log, len(logs))
		copy(cpy, logs)
		state.logs[hash] = cpy
	}
	for hash, preimage := range s.preimages {
		state.preimages[hash] = preimage
	}
	return state
}
