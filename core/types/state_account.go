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

package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EmptyCodeHash is Keccak(""), the code hash of an externally-owned account
// (spec.md §3: "code hash of the contract bytecode, or the Keccak of the
// empty string for EOAs").
var EmptyCodeHash = crypto.Keccak256Hash(nil)

// StateAccount is the 4-tuple the state trie stores per address (spec.md
// §3): nonce, balance, storage root, code hash. It is the leaf value of the
// account trie, RLP-encoded exactly as declared here.
type StateAccount struct {
	Nonce    uint64
	Balance  *big.Int
	Root     common.Hash // merkle root of the per-account storage subtrie
	CodeHash []byte
}

// NewEmptyStateAccount returns the account value for a brand new,
// never-touched address: zero nonce, zero balance, the given empty-trie
// root (the caller's trie.EmptyRoot(), passed in rather than imported here
// to keep core/types free of a dependency on core/trie), and the empty
// code hash.
func NewEmptyStateAccount(emptyRoot common.Hash) *StateAccount {
	return &StateAccount{
		Balance:  new(big.Int),
		Root:     emptyRoot,
		CodeHash: EmptyCodeHash.Bytes(),
	}
}

// IsEmpty reports spec.md §3's emptiness predicate: "nonce=0, balance=0,
// and code hash is the empty-keccak."
func (a *StateAccount) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.Sign() == 0 && common.BytesToHash(a.CodeHash) == EmptyCodeHash
}

// Copy returns a deep copy so mutating the returned account cannot alias
// state already committed to a trie leaf.
func (a *StateAccount) Copy() *StateAccount {
	cpy := &StateAccount{
		Nonce:    a.Nonce,
		Balance:  new(big.Int).Set(a.Balance),
		Root:     a.Root,
		CodeHash: common.CopyBytes(a.CodeHash),
	}
	return cpy
}
