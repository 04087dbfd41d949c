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

package core

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
)

// StateProcessor applies every transaction in a block through C5 (the
// state transition) and assembles the per-transaction receipts C6 needs to
// build the receipts root and compare it against the header (spec.md
// §4.6 "Transactions").
type StateProcessor struct {
	config       *params.ChainConfig
	engine       consensus.Engine
	hashResolver func(header *types.Header) func(uint64) common.Hash
}

// NewStateProcessor builds a processor for config, consulting engine only
// for the block author (reward beneficiary) — it does not re-verify the
// seal, which C6's header validator already did.
func NewStateProcessor(config *params.ChainConfig, engine consensus.Engine) *StateProcessor {
	return &StateProcessor{config: config, engine: engine}
}

// SetHashResolver wires the BLOCKHASH opcode's ancestor lookup, called once
// by BlockChain after both it and the processor exist. factory is handed
// the header currently being processed and must return a function from
// block number to that header's ancestor hash at that number — bound per
// block (not to the canonical chain alone) since a block being validated
// during a reorg is not yet canonical itself.
func (p *StateProcessor) SetHashResolver(factory func(header *types.Header) func(uint64) common.Hash) {
	p.hashResolver = factory
}

// Process runs every transaction of block against statedb in order
// (spec.md §5: "within a single block, transactions apply strictly in
// index order"), returning the receipts and logs produced plus total gas
// used. It does not apply the block reward — see AccumulateRewards,
// called separately by BlockChain when it inserts a block, so genesis (which has no
// reward) and test harnesses that want pre-reward state can skip it.
func (p *StateProcessor) Process(block *types.Block, statedb *state.StateDB, cfg vm.Config) (types.Receipts, []*types.Log, uint64, error) {
	var (
		receipts types.Receipts
		usedGas  = new(uint64)
		header   = block.Header()
		allLogs  []*types.Log
		gp       = new(GasPool).AddGas(block.GasLimit())
	)
	var getHash func(uint64) common.Hash
	if p.hashResolver != nil {
		getHash = p.hashResolver(header)
	}
	blockContext := NewEVMBlockContext(header, p.engine, getHash)
	for i, tx := range block.Transactions() {
		statedb.Prepare(tx.Hash(), block.Hash(), i)
		receipt, err := applyTransaction(p.config, gp, statedb, header, tx, usedGas, blockContext, cfg)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("core: transaction %x failed: %w", tx.Hash(), err)
		}
		receipts = append(receipts, receipt)
		allLogs = append(allLogs, receipt.Logs...)
	}
	return receipts, allLogs, *usedGas, nil
}

// applyTransaction runs one transaction (spec.md §4.5 steps 1-8) and
// builds its receipt.
func applyTransaction(config *params.ChainConfig, gp *GasPool, statedb *state.StateDB, header *types.Header, tx *types.Transaction, usedGas *uint64, blockContext vm.BlockContext, cfg vm.Config) (*types.Receipt, error) {
	signer := types.MakeSigner(config, header.Number)
	msg, err := tx.AsMessage(signer)
	if err != nil {
		return nil, err
	}
	txContext := vm.TxContext{Origin: msg.From(), GasPrice: msg.GasPrice()}
	evm := vm.NewEVM(blockContext, txContext, statedb, config, cfg)

	result, err := ApplyMessage(evm, msg, gp)
	if err != nil {
		return nil, err
	}

	rules := config.Rules(header.Number)
	statedb.Finalise(rules.CleanTouchedAccounts())

	*usedGas += result.UsedGas

	receipt := &types.Receipt{CumulativeGasUsed: *usedGas}
	if rules.ReceiptStatusUsed() {
		if result.Failed() {
			receipt.Status = types.ReceiptStatusFailed
		} else {
			receipt.Status = types.ReceiptStatusSuccessful
		}
	} else {
		root := statedb.IntermediateRoot(rules.CleanTouchedAccounts())
		receipt.PostState = root.Bytes()
	}
	receipt.TxHash = tx.Hash()
	receipt.GasUsed = result.UsedGas
	if msg.To() == nil {
		receipt.ContractAddress = vm.CreateAddress(msg.From(), tx.Nonce())
	}
	receipt.Logs = statedb.GetLogs(tx.Hash())
	receipt.Bloom = types.LogsBloom(receipt.Logs)
	return receipt, nil
}

// NewEVMBlockContext assembles the BlockContext the EVM's COINBASE/NUMBER/
// DIFFICULTY/GASLIMIT opcodes and BLOCKHASH's ancestor walk read from,
// binding engine.Author (spec.md §4.6 "Rewards" beneficiary) instead of
// hard-coding header.Coinbase so a non-Ethash engine (e.g. a future
// signature-recovering one) can override it.
func NewEVMBlockContext(header *types.Header, engine consensus.Engine, getHash func(uint64) common.Hash) vm.BlockContext {
	beneficiary, _ := engine.Author(header)
	if getHash == nil {
		getHash = func(uint64) common.Hash { return common.Hash{} }
	}
	return vm.BlockContext{
		Coinbase:    beneficiary,
		BlockNumber: new(big.Int).Set(header.Number),
		Time:        new(big.Int).SetUint64(header.Time),
		Difficulty:  new(big.Int).Set(header.Difficulty),
		GasLimit:    header.GasLimit,
		GetHash:     getHash,
	}
}
