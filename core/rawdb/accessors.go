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

package rawdb

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
)

// WriteBlock stores a full block (header+body) under its "b:" ‖ hash key.
func WriteBlock(db ethdb.KeyValueWriter, block *types.Block) {
	data, err := rlp.EncodeToBytes(block)
	if err != nil {
		log.Crit("Failed to RLP encode block", "err", err)
	}
	if err := db.Put(blockKey(block.Hash()), data); err != nil {
		log.Crit("Failed to store block", "err", err)
	}
}

// ReadBlock retrieves the block stored under hash, or nil if absent.
func ReadBlock(db ethdb.KeyValueReader, hash common.Hash) *types.Block {
	data, _ := db.Get(blockKey(hash))
	if len(data) == 0 {
		return nil
	}
	block, err := types.DecodeBlockRLP(data)
	if err != nil {
		log.Error("Invalid block RLP", "hash", hash, "err", err)
		return nil
	}
	return block
}

// DeleteBlock removes the block stored under hash.
func DeleteBlock(db ethdb.KeyValueWriter, hash common.Hash) {
	if err := db.Delete(blockKey(hash)); err != nil {
		log.Crit("Failed to delete block", "err", err)
	}
}

// WriteCanonicalHash stores hash as the canonical block at number under its
// "n:" ‖ number key.
func WriteCanonicalHash(db ethdb.KeyValueWriter, hash common.Hash, number uint64) {
	if err := db.Put(numberKey(number), hash.Bytes()); err != nil {
		log.Crit("Failed to store canonical hash", "err", err)
	}
}

// ReadCanonicalHash retrieves the canonical block hash at number, or the
// zero hash if none has been written.
func ReadCanonicalHash(db ethdb.KeyValueReader, number uint64) common.Hash {
	data, _ := db.Get(numberKey(number))
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// DeleteCanonicalHash removes the canonical pointer at number, used when a
// chain reorg displaces the block that used to be canonical there.
func DeleteCanonicalHash(db ethdb.KeyValueWriter, number uint64) {
	if err := db.Delete(numberKey(number)); err != nil {
		log.Crit("Failed to delete canonical hash", "err", err)
	}
}

// WriteHeadBlockHash stores the hash of the current canonical head, the
// single entry a restart reads first to resume a block tree (spec.md §6
// "Persistence layout").
func WriteHeadBlockHash(db ethdb.KeyValueWriter, hash common.Hash) {
	if err := db.Put(headBlockKey, hash.Bytes()); err != nil {
		log.Crit("Failed to store head block hash", "err", err)
	}
}

// ReadHeadBlockHash retrieves the stored canonical head hash, or the zero
// hash on a fresh database.
func ReadHeadBlockHash(db ethdb.KeyValueReader) common.Hash {
	data, _ := db.Get(headBlockKey)
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// txLookupEntry is the RLP shape stored under a "t:" key: which block a
// transaction landed in and its index within that block's body.
type txLookupEntry struct {
	BlockHash  common.Hash
	BlockIndex uint64
	Index      uint64
}

// WriteTxLookupEntries indexes every transaction in block under "t:" ‖
// trx_hash -> (block-hash, index), spec.md §6.
func WriteTxLookupEntries(db ethdb.KeyValueWriter, block *types.Block) {
	for i, tx := range block.Transactions() {
		entry := txLookupEntry{
			BlockHash:  block.Hash(),
			BlockIndex: block.NumberU64(),
			Index:      uint64(i),
		}
		data, err := rlp.EncodeToBytes(entry)
		if err != nil {
			log.Crit("Failed to encode transaction lookup entry", "err", err)
		}
		if err := db.Put(txLookupKey(tx.Hash()), data); err != nil {
			log.Crit("Failed to store transaction lookup entry", "err", err)
		}
	}
}

// ReadTxLookupEntry returns the block hash and index a transaction was
// included at, or ok=false if the hash is unknown.
func ReadTxLookupEntry(db ethdb.KeyValueReader, hash common.Hash) (blockHash common.Hash, index uint64, ok bool) {
	data, _ := db.Get(txLookupKey(hash))
	if len(data) == 0 {
		return common.Hash{}, 0, false
	}
	var entry txLookupEntry
	if err := rlp.DecodeBytes(data, &entry); err != nil {
		log.Error("Invalid transaction lookup entry RLP", "hash", hash, "err", err)
		return common.Hash{}, 0, false
	}
	return entry.BlockHash, entry.Index, true
}

// WriteReceipts stores receipts for the block identified by hash under its
// "r:" key.
func WriteReceipts(db ethdb.KeyValueWriter, hash common.Hash, receipts types.Receipts) {
	data, err := rlp.EncodeToBytes(receipts)
	if err != nil {
		log.Crit("Failed to encode block receipts", "err", err)
	}
	if err := db.Put(receiptsKey(hash), data); err != nil {
		log.Crit("Failed to store block receipts", "err", err)
	}
}

// ReadReceipts retrieves the receipts stored for block hash, or nil.
func ReadReceipts(db ethdb.KeyValueReader, hash common.Hash) types.Receipts {
	data, _ := db.Get(receiptsKey(hash))
	if len(data) == 0 {
		return nil
	}
	var receipts types.Receipts
	if err := rlp.DecodeBytes(data, &receipts); err != nil {
		log.Error("Invalid receipt array RLP", "hash", hash, "err", err)
		return nil
	}
	return receipts
}

// WriteBlockTreeSnapshot stores the block tree's serialized snapshot
// (spec.md §6 "current_block_tree"), the whole-graph persistence format a
// restart rebuilds from before replaying only newer blocks.
func WriteBlockTreeSnapshot(db ethdb.KeyValueWriter, data []byte) {
	if err := db.Put(blockTreeKey, data); err != nil {
		log.Crit("Failed to store block tree snapshot", "err", err)
	}
}

// ReadBlockTreeSnapshot retrieves the most recently stored block tree
// snapshot, or nil if none exists yet.
func ReadBlockTreeSnapshot(db ethdb.KeyValueReader) []byte {
	data, _ := db.Get(blockTreeKey)
	return data
}
