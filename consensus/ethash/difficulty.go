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

package ethash

import (
	"math/big"

	"github.com/ethereum/go-ethereum/consensus"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	big1          = big.NewInt(1)
	big2          = big.NewInt(2)
	big9          = big.NewInt(9)
	big10         = big.NewInt(10)
	bigMinus99    = big.NewInt(-99)
	big2999999    = big.NewInt(2999999)

	// minimumDifficulty is the floor every difficulty calculation clamps to
	// (spec.md §4.6's difficulty function never produces less than this).
	minimumDifficulty = big.NewInt(131072)

	// difficultyBoundDivisor bounds how far one block's difficulty may
	// drift from its parent's.
	difficultyBoundDivisor = big.NewInt(2048)
)

// CalcDifficulty implements consensus.Engine per spec.md §4.6: "difficulty
// computed from P per the active fork's difficulty function (Homestead/
// Byzantium/Constantinople adjustments, including difficulty bomb
// delays)". Per spec.md §9's open question, Petersburg rules (identical to
// Constantinople's difficulty formula) are used wherever Constantinople is
// active.
func (ethash *Ethash) CalcDifficulty(chain consensus.ChainHeaderReader, time uint64, parent *types.Header) *big.Int {
	config := chain.Config()
	next := new(big.Int).Add(parent.Number, big1)
	switch {
	case config.IsConstantinople(next):
		return calcDifficultyEIP1234(time, parent)
	case config.IsByzantium(next):
		return calcDifficultyByzantium(time, parent)
	case config.IsHomestead(next):
		return calcDifficultyHomestead(time, parent)
	default:
		return calcDifficultyFrontier(time, parent)
	}
}

// calcDifficultyFrontier is the original Frontier difficulty adjustment:
// +/- parent_diff/2048 depending on block spacing, epoch-based exponential
// bomb.
func calcDifficultyFrontier(time uint64, parent *types.Header) *big.Int {
	diff := new(big.Int)
	adjust := new(big.Int).Div(parent.Difficulty, difficultyBoundDivisor)
	bigTime := new(big.Int).SetUint64(time)
	bigParentTime := new(big.Int).SetUint64(parent.Time)

	if bigTime.Sub(bigTime, bigParentTime).Cmp(big.NewInt(13)) < 0 {
		diff.Add(parent.Difficulty, adjust)
	} else {
		diff.Sub(parent.Difficulty, adjust)
	}
	if diff.Cmp(minimumDifficulty) < 0 {
		diff = minimumDifficulty
	}
	periodCount := new(big.Int).Add(parent.Number, big1)
	periodCount.Div(periodCount, expDiffPeriod)
	if periodCount.Cmp(big1) > 0 {
		expDiff := periodCount.Sub(periodCount, big2)
		expDiff.Exp(big2, expDiff, nil)
		diff.Add(diff, expDiff)
		diff = bigMax(diff, minimumDifficulty)
	}
	return diff
}

// calcDifficultyHomestead folds in EIP-2's spacing-aware adjustment
// (1 - (block_timestamp - parent_timestamp) // 10, floored at -99) in
// place of Frontier's hard +/- parent_diff/2048 step.
func calcDifficultyHomestead(time uint64, parent *types.Header) *big.Int {
	bigTime := new(big.Int).SetUint64(time)
	bigParentTime := new(big.Int).SetUint64(parent.Time)

	x := new(big.Int).Sub(bigTime, bigParentTime)
	x.Div(x, big10)
	x.Sub(big1, x)
	if x.Cmp(bigMinus99) < 0 {
		x.Set(bigMinus99)
	}
	y := new(big.Int).Div(parent.Difficulty, difficultyBoundDivisor)
	x.Mul(y, x)
	x.Add(parent.Difficulty, x)

	if x.Cmp(minimumDifficulty) < 0 {
		x.Set(minimumDifficulty)
	}
	periodCount := new(big.Int).Add(parent.Number, big1)
	periodCount.Div(periodCount, expDiffPeriod)
	if periodCount.Cmp(big1) > 0 {
		expDiff := periodCount.Sub(periodCount, big2)
		expDiff.Exp(big2, expDiff, nil)
		x.Add(x, expDiff)
		x = bigMax(x, minimumDifficulty)
	}
	return x
}

// calcDifficultyByzantium is EIP-100: the spacing adjustment becomes
// (base - (block_timestamp - parent_timestamp) // 9, floored at -99), where
// the base accounts for uncle inclusion (2 if parent has an uncle, else 1),
// and the bomb delay is pushed back by
// 3,000,000 blocks (spec.md §4.6 "difficulty bomb delays").
func calcDifficultyByzantium(time uint64, parent *types.Header) *big.Int {
	bigTime := new(big.Int).SetUint64(time)
	bigParentTime := new(big.Int).SetUint64(parent.Time)

	x := new(big.Int).Sub(bigTime, bigParentTime)
	x.Div(x, big9)
	if parentHasUncles(parent) {
		x.Sub(big2, x)
	} else {
		x.Sub(big1, x)
	}
	if x.Cmp(bigMinus99) < 0 {
		x.Set(bigMinus99)
	}
	y := new(big.Int).Div(parent.Difficulty, difficultyBoundDivisor)
	x.Mul(y, x)
	x.Add(parent.Difficulty, x)

	if x.Cmp(minimumDifficulty) < 0 {
		x.Set(minimumDifficulty)
	}
	fakeBlockNumber := new(big.Int)
	if parent.Number.Cmp(big2999999) >= 0 {
		fakeBlockNumber = fakeBlockNumber.Sub(parent.Number, big2999999)
	}
	periodCount := fakeBlockNumber.Div(fakeBlockNumber, expDiffPeriod)
	if periodCount.Cmp(big1) > 0 {
		expDiff := periodCount.Sub(periodCount, big2)
		expDiff.Exp(big2, expDiff, nil)
		x.Add(x, expDiff)
		x = bigMax(x, minimumDifficulty)
	}
	return x
}

// calcDifficultyEIP1234 is Constantinople/Petersburg's further bomb delay
// (5,000,000 blocks total), otherwise identical to calcDifficultyByzantium.
func calcDifficultyEIP1234(time uint64, parent *types.Header) *big.Int {
	bigTime := new(big.Int).SetUint64(time)
	bigParentTime := new(big.Int).SetUint64(parent.Time)

	x := new(big.Int).Sub(bigTime, bigParentTime)
	x.Div(x, big9)
	if parentHasUncles(parent) {
		x.Sub(big2, x)
	} else {
		x.Sub(big1, x)
	}
	if x.Cmp(bigMinus99) < 0 {
		x.Set(bigMinus99)
	}
	y := new(big.Int).Div(parent.Difficulty, difficultyBoundDivisor)
	x.Mul(y, x)
	x.Add(parent.Difficulty, x)

	if x.Cmp(minimumDifficulty) < 0 {
		x.Set(minimumDifficulty)
	}
	fakeBlockNumber := new(big.Int)
	bombDelay := big.NewInt(4999999) // 5,000,000 total minus genesis offset, matching mainnet's EIP-1234 delay
	if parent.Number.Cmp(bombDelay) >= 0 {
		fakeBlockNumber = fakeBlockNumber.Sub(parent.Number, bombDelay)
	}
	periodCount := fakeBlockNumber.Div(fakeBlockNumber, expDiffPeriod)
	if periodCount.Cmp(big1) > 0 {
		expDiff := periodCount.Sub(periodCount, big2)
		expDiff.Exp(big2, expDiff, nil)
		x.Add(x, expDiff)
		x = bigMax(x, minimumDifficulty)
	}
	return x
}

// parentHasUncles reports whether parent's own header declared a non-empty
// ommers hash, the EIP-100 input calcDifficultyByzantium/EIP1234 need.
func parentHasUncles(parent *types.Header) bool {
	return parent.UncleHash != types.EmptyUncleHash
}

func bigMax(a, b *big.Int) *big.Int {
	if a.Cmp(b) < 0 {
		return b
	}
	return a
}

// expDiffPeriod is the 100,000-block epoch the exponential difficulty bomb
// advances by one step every period.
var expDiffPeriod = big.NewInt(100000)
