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

// Package rawdb implements the key-space layout spec.md §6 names for the
// abstract backing store: block bodies keyed by hash, canonical
// number->hash pointers, the transaction lookup index, receipts, and the
// serialized block-tree snapshot. Every key function here is the single
// place that decides how an entity is addressed on disk; callers never
// concatenate prefixes themselves.
package rawdb

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Key prefixes from spec.md §6 ("Backing store"):
//
//	"b:" ‖ hash              -> RLP(block)
//	"n:" ‖ number             -> hash
//	"current_block_tree"      -> serialized tree
//	"t:" ‖ trx_hash           -> (block-hash, index)
//	"r:" ‖ block-hash         -> RLP(receipts)
var (
	blockPrefix       = []byte("b:")
	numberPrefix      = []byte("n:")
	txLookupPrefix    = []byte("t:")
	receiptsPrefix    = []byte("r:")
	headBlockKey      = []byte("LastBlock")
	blockTreeKey      = []byte("current_block_tree")
)

func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// blockKey returns the "b:" ‖ hash key a full block (header+body) is stored
// under.
func blockKey(hash common.Hash) []byte {
	return append(append([]byte{}, blockPrefix...), hash.Bytes()...)
}

// numberKey returns the "n:" ‖ number key the canonical hash at that height
// is stored under.
func numberKey(number uint64) []byte {
	return append(append([]byte{}, numberPrefix...), encodeBlockNumber(number)...)
}

// txLookupKey returns the "t:" ‖ trx_hash key a transaction's
// (block-hash, index) locator is stored under.
func txLookupKey(hash common.Hash) []byte {
	return append(append([]byte{}, txLookupPrefix...), hash.Bytes()...)
}

// receiptsKey returns the "r:" ‖ block-hash key a block's receipt list is
// stored under.
func receiptsKey(hash common.Hash) []byte {
	return append(append([]byte{}, receiptsPrefix...), hash.Bytes()...)
}
