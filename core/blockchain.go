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

package core

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
)

// triesInMemory is the commit interval spec.md §5 names: "The state
// trie's in-memory working set is bounded by a commit interval (every 100
// blocks flushes to the backing store)" and §4.10 "Save the canonical head
// and committed trie to the backing store every 100 blocks."
const triesInMemory = 100

// AddBlockResult is spec.md §4.7's `add_block(block) -> {:ok | :orphan |
// {:invalid, reason}}` contract, spelled out as a Go return shape.
type AddBlockResult int

const (
	ResultOK AddBlockResult = iota
	ResultOrphan
	ResultKnown
	ResultInvalid
)

// BlockChain is the block tree (C7): a directed graph from block hashes to
// parent hashes rooted at genesis, each node carrying total difficulty,
// with canonical-head selection by greatest total difficulty (spec.md
// §4.7). It owns the persistent world state (C1/C3) and drives block
// execution and validation (C5/C6) as blocks are added.
type BlockChain struct {
	chainConfig *params.ChainConfig
	db          ethdb.Database
	stateCache  state.Database
	engine      consensus.Engine
	validator   *BlockValidator
	processor   *StateProcessor

	mu sync.RWMutex

	genesisBlock *types.Block
	currentBlock *types.Block
	currentTd    *big.Int

	headers map[common.Hash]*types.Header
	tds     map[common.Hash]*big.Int
	bodies  map[common.Hash]*types.Block // Queued/Valid blocks kept for in-memory retrieval
	numbers map[uint64]common.Hash       // canonical number -> hash index (in-memory mirror of rawdb)

	// orphans buffers blocks received before their parent is known, keyed
	// by the missing parent's hash (spec.md §4.7 "Orphans").
	orphans map[common.Hash][]*types.Block

	insertedSinceFlush int
}

// NewBlockChain opens (or resumes) a block tree over db, seeded by
// genesis. If db already carries a head block (spec.md §6 "Persistence
// layout": "a restart reconstructs the block tree from the stored
// snapshot"), that head becomes the starting canonical block instead of
// genesis.
func NewBlockChain(db ethdb.Database, config *params.ChainConfig, genesis *Genesis, engine consensus.Engine) (*BlockChain, error) {
	existingHead := rawdb.ReadHeadBlockHash(db)

	var genesisBlock *types.Block
	var err error
	if existingHead == (common.Hash{}) {
		genesisBlock, err = genesis.Commit(db)
	} else {
		genesisBlock, err = genesis.ToBlock(db)
	}
	if err != nil {
		return nil, fmt.Errorf("core: genesis commit: %w", err)
	}
	bc := &BlockChain{
		chainConfig: config,
		db:          db,
		stateCache:  state.NewDatabase(db),
		engine:      engine,
		headers:     make(map[common.Hash]*types.Header),
		tds:         make(map[common.Hash]*big.Int),
		bodies:      make(map[common.Hash]*types.Block),
		numbers:     make(map[uint64]common.Hash),
		orphans:     make(map[common.Hash][]*types.Block),
	}
	bc.validator = NewBlockValidator(config, engine)
	bc.processor = NewStateProcessor(config, engine)
	bc.processor.SetHashResolver(bc.hashResolverFor)

	bc.insertGenesisNode(genesisBlock)

	if existingHead != (common.Hash{}) && existingHead != genesisBlock.Hash() {
		if block := rawdb.ReadBlock(db, existingHead); block != nil {
			bc.resumeFrom(block)
		}
	}
	return bc, nil
}

func (bc *BlockChain) insertGenesisNode(block *types.Block) {
	bc.genesisBlock = block
	bc.currentBlock = block
	bc.currentTd = new(big.Int).Set(block.Difficulty())
	bc.headers[block.Hash()] = block.Header()
	bc.tds[block.Hash()] = new(big.Int).Set(bc.currentTd)
	bc.bodies[block.Hash()] = block
	bc.numbers[0] = block.Hash()
}

// resumeFrom reconstructs the in-memory header/td/number index for every
// ancestor of head stored on disk, then marks head the current canonical
// block — the "replay only blocks newer than the snapshot" half of
// spec.md §6 is the caller's job (the sync engine re-requests anything
// past this head); this half only needs to make head itself addressable.
func (bc *BlockChain) resumeFrom(head *types.Block) {
	chain := []*types.Block{head}
	cur := head
	for cur.NumberU64() > 0 {
		parent := rawdb.ReadBlock(bc.db, cur.ParentHash())
		if parent == nil {
			log.Error("Missing ancestor while resuming block chain", "hash", cur.ParentHash())
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	// Walk from genesis forward so each total difficulty builds on its
	// already-registered parent.
	for i := len(chain) - 1; i >= 0; i-- {
		b := chain[i]
		bc.headers[b.Hash()] = b.Header()
		bc.bodies[b.Hash()] = b
		bc.numbers[b.NumberU64()] = b.Hash()
		if b.NumberU64() == 0 {
			continue
		}
		parentTd := bc.tds[b.ParentHash()]
		if parentTd == nil {
			parentTd = new(big.Int)
		}
		bc.tds[b.Hash()] = new(big.Int).Add(parentTd, b.Difficulty())
	}
	bc.currentBlock = head
	bc.currentTd = new(big.Int).Set(bc.tds[head.Hash()])
}

// Config returns the chain's consensus configuration, satisfying
// consensus.ChainHeaderReader.
func (bc *BlockChain) Config() *params.ChainConfig { return bc.chainConfig }

// Genesis returns the chain's genesis block.
func (bc *BlockChain) Genesis() *types.Block { return bc.genesisBlock }

// CurrentBlock returns the canonical head (spec.md §4.7 canonical_head()).
func (bc *BlockChain) CurrentBlock() *types.Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.currentBlock
}

// GetHeaderByHash implements consensus.ChainHeaderReader and spec.md
// §4.7's get_by_hash(h).
func (bc *BlockChain) GetHeaderByHash(hash common.Hash) *types.Header {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.headers[hash]
}

// GetHeader implements consensus.ChainHeaderReader: hash+number lookup,
// here just an existence-checked alias for GetHeaderByHash since headers
// are keyed by hash alone.
func (bc *BlockChain) GetHeader(hash common.Hash, number uint64) *types.Header {
	h := bc.GetHeaderByHash(hash)
	if h == nil || h.Number.Uint64() != number {
		return nil
	}
	return h
}

// GetHeaderByNumber implements consensus.ChainHeaderReader and spec.md
// §4.7's get_by_number(n): "returns the canonical block at that height".
func (bc *BlockChain) GetHeaderByNumber(number uint64) *types.Header {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	hash, ok := bc.numbers[number]
	if !ok {
		return nil
	}
	return bc.headers[hash]
}

// GetBlockByHash returns the full block (header+body) for hash, whether
// or not it is on the canonical chain, or nil if unknown.
func (bc *BlockChain) GetBlockByHash(hash common.Hash) *types.Block {
	bc.mu.RLock()
	if b, ok := bc.bodies[hash]; ok {
		bc.mu.RUnlock()
		return b
	}
	bc.mu.RUnlock()
	return rawdb.ReadBlock(bc.db, hash)
}

// GetBlockByNumber returns the canonical block at number (spec.md §4.7
// get_by_number(n)).
func (bc *BlockChain) GetBlockByNumber(number uint64) *types.Block {
	header := bc.GetHeaderByNumber(number)
	if header == nil {
		return nil
	}
	return bc.GetBlockByHash(header.Hash())
}

// GetTd returns the total difficulty accumulated by hash, or nil if hash
// is unknown.
func (bc *BlockChain) GetTd(hash common.Hash) *big.Int {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	if td, ok := bc.tds[hash]; ok {
		return new(big.Int).Set(td)
	}
	return nil
}

// GetReceiptsByHash returns the receipts stored for the block with the
// given hash, or nil if that block is unknown or has none.
func (bc *BlockChain) GetReceiptsByHash(hash common.Hash) types.Receipts {
	return rawdb.ReadReceipts(bc.db, hash)
}

// DB returns the underlying key-value store, the access eth's GetNodeData
// responder (C8/C10 wire support) needs to serve raw trie/code nodes.
func (bc *BlockChain) DB() ethdb.Database { return bc.db }

// HasBlock reports whether hash is a known block, without the cost of
// materializing the full body the way GetBlockByHash does.
func (bc *BlockChain) HasBlock(hash common.Hash) bool {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	_, ok := bc.headers[hash]
	return ok
}

// PathToRoot implements spec.md §4.7's path_to_root(hash): the ordered
// list of ancestor hashes from hash back to (and including) genesis.
func (bc *BlockChain) PathToRoot(hash common.Hash) []common.Hash {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	var path []common.Hash
	for {
		header, ok := bc.headers[hash]
		if !ok {
			return nil
		}
		path = append(path, hash)
		if header.Number.Sign() == 0 {
			return path
		}
		hash = header.ParentHash
	}
}

// AddBlock implements spec.md §4.7's add_block contract: validates block
// against its parent if known, executes it, and — on success — updates
// canonical-head selection by total difficulty. A block whose parent is
// not yet known is buffered as an orphan and re-examined once that parent
// is added.
func (bc *BlockChain) AddBlock(block *types.Block) (AddBlockResult, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.addBlockLocked(block)
}

func (bc *BlockChain) addBlockLocked(block *types.Block) (AddBlockResult, error) {
	hash := block.Hash()
	if _, known := bc.headers[hash]; known {
		return ResultKnown, nil
	}
	parentHeader, ok := bc.headers[block.ParentHash()]
	if !ok {
		bc.orphans[block.ParentHash()] = append(bc.orphans[block.ParentHash()], block)
		return ResultOrphan, nil
	}
	if err := bc.insertValid(block, parentHeader); err != nil {
		return ResultInvalid, err
	}
	bc.reexamineOrphans(hash)
	return ResultOK, nil
}

// insertValid runs the full C6 validation and C5 execution pipeline for a
// block whose parent is already Valid, then registers it in the tree and
// re-evaluates the canonical head.
func (bc *BlockChain) insertValid(block *types.Block, parentHeader *types.Header) error {
	header := block.Header()

	if err := ValidateHeader(bc.chainConfig, header, parentHeader); err != nil {
		return err
	}
	if err := bc.validator.ValidateDifficulty(bc, header, parentHeader); err != nil {
		return err
	}
	if err := bc.engine.VerifySeal(bc, header); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPoW, err)
	}
	if err := bc.validator.ValidateUncles(block, bc.ancestorGetter(parentHeader)); err != nil {
		return err
	}

	parentRoot := parentHeader.Root
	statedb, err := state.New(parentRoot, bc.stateCache)
	if err != nil {
		return fmt.Errorf("core: open parent state: %w", err)
	}

	receipts, _, usedGas, err := bc.processor.Process(block, statedb, vm.Config{})
	if err != nil {
		return err
	}
	if err := bc.validator.ValidateBody(block, receipts, usedGas); err != nil {
		return err
	}
	AccumulateRewards(bc.chainConfig, statedb, header, block.Uncles())

	rules := bc.chainConfig.Rules(header.Number)
	if err := bc.validator.ValidateState(header, statedb, rules); err != nil {
		return err
	}
	if _, err := statedb.Commit(rules.CleanTouchedAccounts()); err != nil {
		return fmt.Errorf("core: state commit: %w", err)
	}

	td := new(big.Int).Add(bc.tds[parentHeader.Hash()], header.Difficulty)

	bc.headers[block.Hash()] = header
	bc.tds[block.Hash()] = td
	bc.bodies[block.Hash()] = block

	rawdb.WriteBlock(bc.db, block)
	rawdb.WriteReceipts(bc.db, block.Hash(), receipts)
	rawdb.WriteTxLookupEntries(bc.db, block)

	bc.maybeReorg(block, td)
	bc.maybeFlush()
	return nil
}

// ancestorGetter builds the generations-back ancestor lookup
// ValidateUncles needs, walking parent links from from (the new block's
// parent, generation 1), whether or not that chain is the canonical one.
func (bc *BlockChain) ancestorGetter(from *types.Header) func(uint64) *types.Header {
	return func(generations uint64) *types.Header {
		h := from
		for i := uint64(1); i < generations; i++ {
			if h.Number.Sign() == 0 {
				return nil
			}
			parent, ok := bc.headers[h.ParentHash]
			if !ok {
				return nil
			}
			h = parent
		}
		return h
	}
}

// hashResolverFor implements the BLOCKHASH opcode's ancestor walk: it
// returns a function from block number to the hash of header's ancestor
// at that number, walking parent pointers rather than the canonical-number
// index so a block still being validated during a reorg resolves against
// its own chain, not whatever is canonical yet. Called only while bc.mu is
// already held by the insertion path (via StateProcessor.Process), so it
// must not itself acquire bc.mu.
func (bc *BlockChain) hashResolverFor(header *types.Header) func(uint64) common.Hash {
	return func(number uint64) common.Hash {
		if number >= header.Number.Uint64() {
			return common.Hash{}
		}
		cur := header
		for cur.Number.Uint64() > number {
			parent, ok := bc.headers[cur.ParentHash]
			if !ok {
				return common.Hash{}
			}
			cur = parent
		}
		return cur.Hash()
	}
}

// maybeReorg updates the canonical chain if block's total difficulty beats
// the current head's, applying spec.md §3's tie-break: "greatest total
// difficulty; ties broken by lower block number, then lower hash."
func (bc *BlockChain) maybeReorg(block *types.Block, td *big.Int) {
	cmp := td.Cmp(bc.currentTd)
	better := cmp > 0
	if cmp == 0 {
		switch {
		case block.NumberU64() < bc.currentBlock.NumberU64():
			better = true
		case block.NumberU64() == bc.currentBlock.NumberU64():
			better = lessHash(block.Hash(), bc.currentBlock.Hash())
		}
	}
	if !better {
		return
	}
	bc.writeCanonicalChain(block)
	bc.currentBlock = block
	bc.currentTd = td
}

func lessHash(a, b common.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// writeCanonicalChain walks head back to the common ancestor with the
// previous canonical chain, rewriting the "n:" number->hash pointer for
// every block along the new path (spec.md §6).
func (bc *BlockChain) writeCanonicalChain(head *types.Block) {
	var newChain []*types.Block
	cur := head
	for {
		existing, ok := bc.numbers[cur.NumberU64()]
		if ok && existing == cur.Hash() {
			break
		}
		newChain = append(newChain, cur)
		if cur.NumberU64() == 0 {
			break
		}
		parent, ok := bc.bodies[cur.ParentHash()]
		if !ok {
			parent = rawdb.ReadBlock(bc.db, cur.ParentHash())
			if parent == nil {
				break
			}
		}
		cur = parent
	}
	for _, b := range newChain {
		bc.numbers[b.NumberU64()] = b.Hash()
		rawdb.WriteCanonicalHash(bc.db, b.Hash(), b.NumberU64())
	}
	rawdb.WriteHeadBlockHash(bc.db, head.Hash())
}

// maybeFlush durably writes staged trie nodes every triesInMemory blocks
// (spec.md §5/§4.10's 100-block commit interval), bounding the in-memory
// working set.
func (bc *BlockChain) maybeFlush() {
	bc.insertedSinceFlush++
	if bc.insertedSinceFlush < triesInMemory {
		return
	}
	bc.insertedSinceFlush = 0
	if err := bc.stateCache.TrieDB().Flush(); err != nil {
		log.Error("Failed to flush trie database", "err", err)
	}
}

// reexamineOrphans re-attempts insertion of every block that was buffered
// waiting on parentHash (spec.md §4.7 "Orphans ... re-examined when the
// parent becomes Valid"), recursively unblocking their own children.
func (bc *BlockChain) reexamineOrphans(parentHash common.Hash) {
	pending := bc.orphans[parentHash]
	delete(bc.orphans, parentHash)
	for _, block := range pending {
		if _, err := bc.addBlockLocked(block); err != nil {
			log.Debug("Orphan block failed validation once parent arrived", "hash", block.Hash(), "err", err)
		}
	}
}
