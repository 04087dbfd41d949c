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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// DerivableList is anything that can be turned into a trie keyed by
// RLP(index) (spec.md §4.6: "a trie mapping RLP(index) → RLP(trx|receipt)").
type DerivableList interface {
	Len() int
	GetRlp(i int) []byte
}

// DeriveSha builds a fresh, throwaway trie over list and returns its root
// hash: the block's transactions root or receipts root. The trie is backed
// by an ephemeral in-memory database since only the root is needed — this
// is never the canonical state trie, so there is nothing to persist.
func DeriveSha(list DerivableList) common.Hash {
	t, err := trie.New(common.Hash{}, trie.NewDatabase(memorydb.New()))
	if err != nil {
		panic(err)
	}
	for i := 0; i < list.Len(); i++ {
		key, err := rlp.EncodeToBytes(uint(i))
		if err != nil {
			panic(err)
		}
		t.Update(key, list.GetRlp(i))
	}
	return t.Hash()
}
