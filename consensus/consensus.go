// Copyright 2017 The go-ethereum Authors
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

// Package consensus defines the pluggable boundary between block rule
// validation (C6) and the proof-of-work/difficulty engine. Only Ethash's
// difficulty function and an external seal-verification signature are in
// scope (spec.md §1: "the Ethash proof-of-work verifier beyond its external
// signature"); mining is explicitly a non-goal.
package consensus

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// ChainHeaderReader supplies the ancestor lookups difficulty calculation
// and uncle validation need, without pulling the whole block tree (C7)
// into this package's import graph.
type ChainHeaderReader interface {
	Config() *params.ChainConfig
	GetHeader(hash common.Hash, number uint64) *types.Header
	GetHeaderByNumber(number uint64) *types.Header
	GetHeaderByHash(hash common.Hash) *types.Header
}

// Engine is the consensus boundary C6 validates headers against: the
// difficulty an honest header at this position must carry, and whether a
// candidate header's proof-of-work seal is valid. Mining (producing a
// valid nonce/mixHash) is out of scope per spec.md §1's non-goals; Seal is
// intentionally absent from this interface.
type Engine interface {
	// CalcDifficulty returns the difficulty a new header should have given
	// its parent (spec.md §4.6: "B.difficulty computed from P per the
	// active fork's difficulty function").
	CalcDifficulty(chain ChainHeaderReader, time uint64, parent *types.Header) *big.Int

	// VerifySeal checks a header's proof-of-work nonce/mixDigest against
	// its difficulty (spec.md §4.6 "Proof-of-work" — the external Ethash
	// verifier this package stubs behind an interface per spec.md §1).
	VerifySeal(chain ChainHeaderReader, header *types.Header) error

	// Author returns the beneficiary the block reward (§4.6 "Rewards") is
	// credited to; for Ethash this is simply header.Coinbase.
	Author(header *types.Header) (common.Address, error)
}
