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

// Package params holds the consensus-critical, per-fork configuration (C11):
// every feature flag and numeric parameter that C3-C6 consult instead of
// dispatching on a literal fork name.
package params

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainConfig is the consensus-critical configuration for one chain. Forks
// form a total order by activation block number; a nil activation block
// means the fork is not scheduled. Every decision site in core/state,
// core/vm and core/ consults this value directly rather than branching on a
// fork name.
type ChainConfig struct {
	ChainID *big.Int `json:"chainId"`

	HomesteadBlock      *big.Int `json:"homesteadBlock,omitempty"`
	DAOForkBlock        *big.Int `json:"daoForkBlock,omitempty"`
	DAOForkSupport      bool     `json:"daoForkSupport,omitempty"`
	EIP150Block         *big.Int `json:"eip150Block,omitempty"` // Tangerine Whistle
	EIP155Block         *big.Int `json:"eip155Block,omitempty"` // Spurious Dragon (chain-id replay protection)
	EIP158Block         *big.Int `json:"eip158Block,omitempty"` // Spurious Dragon (empty-account pruning)
	ByzantiumBlock      *big.Int `json:"byzantiumBlock,omitempty"`
	ConstantinopleBlock *big.Int `json:"constantinopleBlock,omitempty"`
	PetersburgBlock     *big.Int `json:"petersburgBlock,omitempty"`
}

// IsHomestead reports whether num is on or after the Homestead fork block.
func (c *ChainConfig) IsHomestead(num *big.Int) bool { return isForked(c.HomesteadBlock, num) }

// IsDAOFork reports whether num is on or after the DAO fork block.
func (c *ChainConfig) IsDAOFork(num *big.Int) bool { return isForked(c.DAOForkBlock, num) }

// IsEIP150 reports whether the Tangerine Whistle gas-repricing rules
// (call-family EIP-150 gas adjustments from spec.md §4.11) apply at num.
func (c *ChainConfig) IsEIP150(num *big.Int) bool { return isForked(c.EIP150Block, num) }

// IsEIP155 reports whether the chain-id replay-protection signing rule
// (spec.md §4.5 step 1) applies at num.
func (c *ChainConfig) IsEIP155(num *big.Int) bool { return isForked(c.EIP155Block, num) }

// IsEIP158 reports whether empty-account semantics (spec.md §3's "empty"
// predicate and the §4.3 touched-accounts cleanup) apply at num.
func (c *ChainConfig) IsEIP158(num *big.Int) bool { return isForked(c.EIP158Block, num) }

// IsByzantium reports whether num is on or after Byzantium: receipt status
// byte instead of intermediate state root (spec.md §3 Receipt), REVERT,
// STATICCALL, RETURNDATA(COPY|SIZE), modexp/bn256 precompiles.
func (c *ChainConfig) IsByzantium(num *big.Int) bool { return isForked(c.ByzantiumBlock, num) }

// IsConstantinople reports whether num is on or after Constantinople:
// CREATE2, EXTCODEHASH, net-metered SSTORE (superseded by Petersburg, see
// IsPetersburg), and the first difficulty-bomb delay.
func (c *ChainConfig) IsConstantinople(num *big.Int) bool {
	return isForked(c.ConstantinopleBlock, num)
}

// IsPetersburg reports whether num is on or after Petersburg, which
// reverted Constantinople's net-gas SSTORE metering (EIP-1283) while
// keeping its other changes. Per spec.md §9's open question ("choose
// Petersburg rules where ambiguity remains"), PetersburgBlock always
// tracks ConstantinopleBlock in chain configs produced by this package —
// see MainnetChainConfig and AllProtocolChanges.
func (c *ChainConfig) IsPetersburg(num *big.Int) bool { return isForked(c.PetersburgBlock, num) }

func isForked(forkBlock, num *big.Int) bool {
	if forkBlock == nil || num == nil {
		return false
	}
	return forkBlock.Cmp(num) <= 0
}

// Rules is a ChainConfig resolved against one block number: every IsXxx
// predicate evaluated once, so hot paths (the EVM interpreter loop, the
// intrinsic-gas calculator) branch on plain booleans instead of re-running
// big.Int comparisons per opcode.
type Rules struct {
	ChainID                                                 *big.Int
	IsHomestead, IsEIP150, IsEIP155, IsEIP158                bool
	IsByzantium, IsConstantinople, IsPetersburg              bool
}

// Rules resolves c against block number num.
func (c *ChainConfig) Rules(num *big.Int) Rules {
	chainID := c.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}
	return Rules{
		ChainID:          new(big.Int).Set(chainID),
		IsHomestead:      c.IsHomestead(num),
		IsEIP150:         c.IsEIP150(num),
		IsEIP155:         c.IsEIP155(num),
		IsEIP158:         c.IsEIP158(num),
		IsByzantium:      c.IsByzantium(num),
		IsConstantinople: c.IsConstantinople(num),
		IsPetersburg:     c.IsPetersburg(num),
	}
}

// CleanTouchedAccounts reports spec.md §4.3's `clean_touched_accounts?`
// flag: post-Spurious-Dragon, empty touched accounts are deleted.
func (r Rules) CleanTouchedAccounts() bool { return r.IsEIP158 }

// HasRevert reports spec.md §4.11's `has_revert?` flag (the REVERT opcode).
func (r Rules) HasRevert() bool { return r.IsByzantium }

// HasStaticCall reports spec.md §4.11's `has_static_call?` flag.
func (r Rules) HasStaticCall() bool { return r.IsByzantium }

// HasReturnData reports spec.md §4.11's `has_returndata?` flag
// (RETURNDATASIZE/RETURNDATACOPY).
func (r Rules) HasReturnData() bool { return r.IsByzantium }

// HasCreate2 reports spec.md §4.11's `has_create2?` flag.
func (r Rules) HasCreate2() bool { return r.IsConstantinople }

// HasExtCodeHash reports spec.md §4.11's `has_ext_code_hash?` flag.
func (r Rules) HasExtCodeHash() bool { return r.IsConstantinople }

// ReceiptStatusUsed reports whether a receipt's post-state indicator is the
// Byzantium+ status byte (spec.md §3 Receipt) rather than an intermediate
// state root.
func (r Rules) ReceiptStatusUsed() bool { return r.IsByzantium }

// NetSSToreMetering reports whether SSTORE uses the Constantinople/
// Petersburg net-gas metering scheme (false once Petersburg reverts it —
// see IsPetersburg's doc comment).
func (r Rules) NetSSToreMetering() bool { return r.IsConstantinople && !r.IsPetersburg }

// MainnetChainConfig is the configuration for mainnet, with every fork named
// in spec.md active at its historical mainnet block.
var MainnetChainConfig = &ChainConfig{
	ChainID:             big.NewInt(1),
	HomesteadBlock:      big.NewInt(1_150_000),
	DAOForkBlock:        big.NewInt(1_920_000),
	DAOForkSupport:      true,
	EIP150Block:         big.NewInt(2_463_000),
	EIP155Block:         big.NewInt(2_675_000),
	EIP158Block:         big.NewInt(2_675_000),
	ByzantiumBlock:      big.NewInt(4_370_000),
	ConstantinopleBlock: big.NewInt(7_280_000),
	PetersburgBlock:     big.NewInt(7_280_000),
}

// AllProtocolChanges is a config with every fork activated from block 0,
// used by unit tests that want the newest rule set without a real chain
// history.
var AllProtocolChanges = &ChainConfig{
	ChainID:             big.NewInt(1337),
	HomesteadBlock:      big.NewInt(0),
	DAOForkBlock:        nil,
	DAOForkSupport:      false,
	EIP150Block:         big.NewInt(0),
	EIP155Block:         big.NewInt(0),
	EIP158Block:         big.NewInt(0),
	ByzantiumBlock:      big.NewInt(0),
	ConstantinopleBlock: big.NewInt(0),
	PetersburgBlock:     big.NewInt(0),
}

// String implements fmt.Stringer for log lines.
func (c *ChainConfig) String() string {
	return fmt.Sprintf("{ChainID: %v Homestead: %v DAO: %v EIP150: %v EIP155: %v EIP158: %v Byzantium: %v Constantinople: %v Petersburg: %v}",
		c.ChainID, c.HomesteadBlock, c.DAOForkBlock, c.EIP150Block, c.EIP155Block, c.EIP158Block, c.ByzantiumBlock, c.ConstantinopleBlock, c.PetersburgBlock)
}

// DAORefundContract is the address that received drained DAO-fork balances;
// kept for configs with DAOForkSupport set.
var DAORefundContract = common.HexToAddress("0xbf4ed7b27f1d666546e30d74d50d173d20bca754")
