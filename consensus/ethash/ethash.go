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

// Package ethash implements the difficulty side of consensus.Engine
// (spec.md §4.6) and stubs the PoW verification signature spec.md §1
// scopes out ("the Ethash proof-of-work verifier beyond its external
// signature"). It never mines: Seal/SealHash are intentionally absent,
// matching spec.md's Non-goals ("Mining/PoW block production").
package ethash

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrInvalidPoW is available to Verifier implementations to report a
// header whose seal does not meet its difficulty target. VerifySeal itself
// never returns it; it returns whatever the wired Verifier returns.
var ErrInvalidPoW = errors.New("ethash: invalid proof-of-work")

// Verifier is the external signature spec.md §1 leaves abstract: something
// that can check a header's nonce/mixDigest pair is a valid Ethash seal
// for its difficulty. Production wiring supplies a real implementation;
// tests and this package's zero value supply a permissive stub.
type Verifier interface {
	Verify(header *types.Header) error
}

// acceptAllVerifier treats every header as sealed correctly. It exists so
// Ethash can be constructed and exercised (difficulty checks, chain
// assembly) without vendoring real Ethash DAG generation, which is out of
// this spec's scope.
type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(*types.Header) error { return nil }

// Ethash implements consensus.Engine. Its difficulty function is fully
// implemented per spec.md §4.6; seal verification is delegated to a
// pluggable Verifier so a real Ethash DAG/hashimoto implementation can be
// substituted without touching any C6 call site.
type Ethash struct {
	verifier Verifier
}

// New constructs an Ethash engine that accepts any seal, matching this
// spec's scope (difficulty function + an external verifier interface, not
// a mining/verification implementation).
func New() *Ethash {
	return &Ethash{verifier: acceptAllVerifier{}}
}

// NewWithVerifier constructs an Ethash engine that delegates seal checks
// to v, for callers that have wired a real PoW verifier.
func NewWithVerifier(v Verifier) *Ethash {
	return &Ethash{verifier: v}
}

// Author returns header.Coinbase: Ethash credits the block reward (spec.md
// §4.6 "Rewards") to the header's declared beneficiary directly, with no
// additional signature-recovery step (unlike clique-style engines).
func (ethash *Ethash) Author(header *types.Header) (common.Address, error) {
	return header.Coinbase, nil
}

// VerifySeal checks header's proof-of-work (spec.md §4.6 "Proof-of-work:
// mix_hash and nonce verify under Ethash (external verifier)"), after one
// sanity check every valid header must satisfy regardless of which concrete
// verifier is wired in: the difficulty must be positive.
func (ethash *Ethash) VerifySeal(chain consensus.ChainHeaderReader, header *types.Header) error {
	if header.Difficulty.Sign() <= 0 {
		return errInvalidDifficulty
	}
	return ethash.verifier.Verify(header)
}

var errInvalidDifficulty = errors.New("ethash: non-positive difficulty")

// CalcDifficultyFrontier, exported for tests and for genesis-difficulty
// reproduction tooling that needs the bare Frontier formula without a
// chain config in hand.
func CalcDifficultyFrontier(time uint64, parent *types.Header) *big.Int {
	return calcDifficultyFrontier(time, parent)
}
