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
	"github.com/ethereum/go-ethereum/consensus/misc"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// maxUncles is spec.md §4.6's "0-2 uncles" cap.
const maxUncles = 2

// BlockValidator implements the header, body and post-state checks of
// spec.md §4.6 (C6): everything a block tree (C7) must pass before a
// Queued block becomes Valid.
type BlockValidator struct {
	config *params.ChainConfig
	engine consensus.Engine
}

func NewBlockValidator(config *params.ChainConfig, engine consensus.Engine) *BlockValidator {
	return &BlockValidator{config: config, engine: engine}
}

// ValidateHeader checks header against parent per spec.md §4.6 "Header
// validation of block B against parent P", excluding difficulty and the
// PoW seal, which depend on the wider chain (ValidateDifficulty,
// engine.VerifySeal) and are checked separately by the caller.
func ValidateHeader(config *params.ChainConfig, header, parent *types.Header) error {
	if header.ParentHash != parent.Hash() {
		return fmt.Errorf("%w: have %x, want %x", ErrUnknownAncestor, header.ParentHash, parent.Hash())
	}
	if header.Number == nil {
		return ErrInvalidNumber
	}
	expectedNumber := new(big.Int).Add(parent.Number, big.NewInt(1))
	if header.Number.Cmp(expectedNumber) != 0 {
		return fmt.Errorf("%w: have %v, want %v", ErrInvalidNumber, header.Number, expectedNumber)
	}
	if header.Time <= parent.Time {
		return ErrInvalidTimestamp
	}
	if err := validateGasLimit(header, parent); err != nil {
		return err
	}
	if uint64(len(header.Extra)) > params.MaximumExtraDataSize {
		return fmt.Errorf("%w: %d > %d", ErrExtraDataTooLong, len(header.Extra), params.MaximumExtraDataSize)
	}
	if header.Difficulty == nil || header.Difficulty.Sign() <= 0 {
		return ErrInvalidDifficulty
	}
	if err := misc.VerifyDAOHeaderExtraData(config, header); err != nil {
		return err
	}
	return nil
}

// validateGasLimit enforces spec.md §4.6's drift bound: "within
// [P.gas_limit - P.gas_limit/1024 + 1, P.gas_limit + P.gas_limit/1024 - 1]
// and >= 5000".
func validateGasLimit(header, parent *types.Header) error {
	if header.GasLimit < params.MinGasLimit {
		return fmt.Errorf("%w: %d < %d", ErrGasLimitTooLow, header.GasLimit, params.MinGasLimit)
	}
	diff := int64(parent.GasLimit) - int64(header.GasLimit)
	if diff < 0 {
		diff *= -1
	}
	limit := parent.GasLimit / params.GasLimitBoundDivisor
	if uint64(diff) >= limit {
		return fmt.Errorf("%w: have %d, want within %d of %d", ErrInvalidGasLimit, header.GasLimit, limit, parent.GasLimit)
	}
	return nil
}

// ValidateDifficulty checks header's declared difficulty against the
// engine's calculation from parent and chain (spec.md §4.6: "B.difficulty
// must equal the computed value").
func (v *BlockValidator) ValidateDifficulty(chain consensus.ChainHeaderReader, header, parent *types.Header) error {
	want := v.engine.CalcDifficulty(chain, header.Time, parent)
	if want.Cmp(header.Difficulty) != 0 {
		return fmt.Errorf("%w: have %v, want %v", ErrInvalidDifficulty, header.Difficulty, want)
	}
	return nil
}

// ValidateUncles applies spec.md §4.6 "Uncles": 0-2 uncles, each an
// ancestor-within-7-blocks and not already included, each independently
// header-valid. getAncestor(generations) returns the ancestor header that
// many blocks back from block along its parent links (1 is block's parent),
// or nil when that ancestor is unknown.
func (v *BlockValidator) ValidateUncles(block *types.Block, getAncestor func(generations uint64) *types.Header) error {
	uncles := block.Uncles()
	if len(uncles) > maxUncles {
		return ErrTooManyUncles
	}
	if len(uncles) == 0 {
		return nil
	}
	seen := make(map[common.Hash]bool)
	for _, uncle := range uncles {
		hash := uncle.Hash()
		if seen[hash] {
			return ErrDuplicateUncle
		}
		seen[hash] = true
		if hash == block.Hash() {
			return ErrUncleIsAncestor
		}

		var ancestorFound bool
		for gen := uint64(1); gen <= 7; gen++ {
			ancestor := getAncestor(gen)
			if ancestor == nil {
				break
			}
			if ancestor.Hash() == uncle.Hash() {
				return ErrUncleIsAncestor
			}
			if ancestor.Hash() == uncle.ParentHash {
				ancestorFound = true
				if err := ValidateHeader(v.config, uncle, ancestor); err != nil {
					return fmt.Errorf("invalid uncle header: %w", err)
				}
				break
			}
		}
		if !ancestorFound {
			return ErrDanglingUncle
		}
	}
	return nil
}

// ValidateBody checks the transactions/receipts/uncle roots and gas-used
// figure spec.md §4.6 names: "Both must equal the block-header-declared
// roots bit-exactly. Block.gas_used must equal the last receipt's
// cumulative gas." Called after StateProcessor.Process has produced
// receipts.
func (v *BlockValidator) ValidateBody(block *types.Block, receipts types.Receipts, usedGas uint64) error {
	header := block.Header()

	txRoot := types.DeriveSha(types.Transactions(block.Transactions()))
	if txRoot != header.TxHash {
		return fmt.Errorf("%w: have %x, want %x", ErrInvalidTxRoot, txRoot, header.TxHash)
	}
	receiptRoot := types.DeriveSha(receipts)
	if receiptRoot != header.ReceiptHash {
		return fmt.Errorf("%w: have %x, want %x", ErrInvalidReceiptRoot, receiptRoot, header.ReceiptHash)
	}
	bloom := types.CreateBloom(receipts)
	if bloom != header.Bloom {
		return ErrInvalidBloom
	}
	if usedGas != header.GasUsed {
		return fmt.Errorf("%w: have %d, want %d", ErrInvalidGasUsed, usedGas, header.GasUsed)
	}
	if uncleHash := types.CalcUncleHash(block.Uncles()); uncleHash != header.UncleHash {
		return ErrInvalidUncleHash
	}
	return nil
}

// ValidateState checks the post-execution state root statedb produced
// against header's declared root (spec.md §3 "the state root equals the
// root of that trie"; §4.6 "receipts produced ... must match the block's
// stated roots or the block is rejected").
func (v *BlockValidator) ValidateState(header *types.Header, statedb *state.StateDB, rules params.Rules) error {
	root := statedb.IntermediateRoot(rules.CleanTouchedAccounts())
	if root != header.Root {
		return fmt.Errorf("%w: have %x, want %x", ErrInvalidStateRoot, root, header.Root)
	}
	return nil
}
