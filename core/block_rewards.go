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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

var big8 = big.NewInt(8)
var big32 = big.NewInt(32)

// AccumulateRewards credits the block reward to header's beneficiary and
// the uncle rewards to each uncle's beneficiary and the block beneficiary,
// per spec.md §4.6 "Rewards": "5 ETH (pre-Byzantium) / 3 ETH (Byzantium) /
// 2 ETH (Constantinople+) to the block's beneficiary, plus 1/32 of the base
// reward per included uncle to the beneficiary, plus
// base_reward * (8 - (B.number - U.number)) / 8 to each uncle's own
// beneficiary." It is called after StateProcessor.Process and before the
// post-state root is taken, since the reward mutates state the root must
// reflect.
func AccumulateRewards(config *params.ChainConfig, statedb *state.StateDB, header *types.Header, uncles []*types.Header) {
	blockReward := blockRewardFor(config, header.Number)

	reward := new(big.Int).Set(blockReward)
	r := new(big.Int)
	for _, uncle := range uncles {
		r.Add(uncle.Number, big8)
		r.Sub(r, header.Number)
		r.Mul(r, blockReward)
		r.Div(r, big8)
		statedb.AddBalance(uncle.Coinbase, r)

		r.Div(blockReward, big32)
		reward.Add(reward, r)
	}
	statedb.AddBalance(header.Coinbase, reward)
}

// blockRewardFor resolves the base block reward active at number, per
// spec.md §4.6's Frontier/Byzantium/Constantinople schedule.
func blockRewardFor(config *params.ChainConfig, number *big.Int) *big.Int {
	var ether uint64
	switch {
	case config.IsConstantinople(number):
		ether = params.ConstantinopleBlockReward
	case config.IsByzantium(number):
		ether = params.ByzantiumBlockReward
	default:
		ether = params.FrontierBlockReward
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(ether), common.Ether)
}
