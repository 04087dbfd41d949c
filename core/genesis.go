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

package core

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/params"
)

// GenesisAccount is one entry of spec.md §6's chain-spec "initial account
// allocations (address -> (nonce, balance, optional code, optional storage
// map))".
type GenesisAccount struct {
	Nonce   uint64
	Balance *big.Int
	Code    []byte
	Storage map[common.Hash]common.Hash
}

// Genesis is the chain-spec input spec.md §6 describes: chain id, genesis
// header fields, initial allocations, and the fork schedule. Only the
// degree to which a configured genesis's state root must be reproducible
// is in scope (spec.md §1) — this is that reproduction path.
type Genesis struct {
	Config     *params.ChainConfig
	Nonce      uint64
	Timestamp  uint64
	ExtraData  []byte
	GasLimit   uint64
	Difficulty *big.Int
	Mixhash    common.Hash
	Coinbase   common.Address
	Alloc      map[common.Address]GenesisAccount

	Number     uint64
	ParentHash common.Hash
}

// ToBlock deterministically builds the unsealed genesis block: opens a
// fresh state trie over db, writes every allocation (spec.md §3 "the root
// after genesis account insertion must match the chain-specified genesis
// state root"), commits it, and assembles the header around the resulting
// state root plus this Genesis's own header fields. No transactions or
// uncles exist at genesis, so the transactions/receipts/uncle roots are the
// well-known empty-trie/empty-list values.
func (g *Genesis) ToBlock(db ethdb.Database) (*types.Block, error) {
	statedb, err := state.New(common.Hash{}, state.NewDatabase(db))
	if err != nil {
		return nil, fmt.Errorf("core: genesis state open: %w", err)
	}
	for addr, account := range g.Alloc {
		statedb.AddBalance(addr, account.Balance)
		statedb.SetNonce(addr, account.Nonce)
		if len(account.Code) > 0 {
			statedb.SetCode(addr, account.Code)
		}
		for key, value := range account.Storage {
			statedb.SetState(addr, key, value)
		}
	}
	root, err := statedb.Commit(false)
	if err != nil {
		return nil, fmt.Errorf("core: genesis state commit: %w", err)
	}

	head := &types.Header{
		Number:      new(big.Int).SetUint64(g.Number),
		Nonce:       types.EncodeNonce(g.Nonce),
		Time:        g.Timestamp,
		ParentHash:  g.ParentHash,
		Extra:       g.ExtraData,
		GasLimit:    g.GasLimit,
		GasUsed:     0,
		Difficulty:  g.Difficulty,
		MixDigest:   g.Mixhash,
		Coinbase:    g.Coinbase,
		Root:        root,
		TxHash:      types.EmptyRootHash,
		ReceiptHash: types.EmptyRootHash,
		UncleHash:   types.EmptyUncleHash,
	}
	if head.GasLimit == 0 {
		head.GasLimit = params.GenesisGasLimit
	}
	if head.Difficulty == nil {
		head.Difficulty = big.NewInt(1)
	}
	return types.NewBlock(head, nil, nil), nil
}

// Commit writes the genesis block and its state to db and records it as
// the chain's number-0 canonical block and initial head, per spec.md §6
// "Persistence layout".
func (g *Genesis) Commit(db ethdb.Database) (*types.Block, error) {
	block, err := g.ToBlock(db)
	if err != nil {
		return nil, err
	}
	if block.NumberU64() != 0 {
		return nil, fmt.Errorf("core: can't commit genesis block with number > 0")
	}
	rawdb.WriteBlock(db, block)
	rawdb.WriteReceipts(db, block.Hash(), nil)
	rawdb.WriteCanonicalHash(db, block.Hash(), block.NumberU64())
	rawdb.WriteHeadBlockHash(db, block.Hash())
	return block, nil
}

// DefaultGenesisAlloc seeds a handful of funded accounts for local chains
// used by tests (no consensus meaning of its own — the chain-spec supplies
// the real mainnet/testnet allocation, which this package does not embed).
func DefaultGenesisAlloc(balance *big.Int, addrs ...common.Address) map[common.Address]GenesisAccount {
	alloc := make(map[common.Address]GenesisAccount, len(addrs))
	for _, addr := range addrs {
		alloc[addr] = GenesisAccount{Balance: new(big.Int).Set(balance)}
	}
	return alloc
}

// MustDecodeHex is a small helper genesis-loading code uses to turn a
// chain-spec's hex-encoded extra-data/code fields into bytes, panicking on
// malformed input the way config-loading code is expected to fail fast on.
func MustDecodeHex(s string) []byte {
	b, err := hexutil.Decode(s)
	if err != nil {
		panic(err)
	}
	return b
}
