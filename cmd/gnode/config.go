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

package main

import (
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/params"
)

// nodeConfig is the node-level configuration spec.md §1's ambient
// configuration story calls for: datadir, listen address, bootstrap
// nodes, max peers — plain data, loaded via internal/cfgfile and
// overridden by whatever flags the user passed on the command line.
// Consensus-critical configuration (params.ChainConfig) is threaded
// separately through the genesis, never folded into this struct, per
// SPEC_FULL.md's "no singletons or global mutable config" rule.
type nodeConfig struct {
	DataDir    string
	ListenAddr string
	MaxPeers   int
	NetworkID  uint64
	Bootnodes  []string
	Verbosity  int
}

func defaultNodeConfig() nodeConfig {
	return nodeConfig{
		DataDir:    defaultDataDir(),
		ListenAddr: ":30303",
		MaxPeers:   10,
		NetworkID:  1,
		Verbosity:  3,
	}
}

func (c nodeConfig) nodeKeyPath() string     { return filepath.Join(c.DataDir, "nodekey") }
func (c nodeConfig) chainDBPath() string     { return filepath.Join(c.DataDir, "chaindata") }
func (c nodeConfig) configFilePath() string  { return filepath.Join(c.DataDir, "gnode.toml") }

// devGenesis builds the deterministic local-development chain spec used
// when no genesis file is supplied: Homestead through Petersburg all
// active from block zero, matching a quick devnet rather than mainnet's
// historical fork schedule.
func devGenesis() *core.Genesis {
	cfg := &params.ChainConfig{
		ChainID:             big.NewInt(1337),
		HomesteadBlock:      big.NewInt(0),
		EIP150Block:         big.NewInt(0),
		EIP155Block:         big.NewInt(0),
		EIP158Block:         big.NewInt(0),
		ByzantiumBlock:      big.NewInt(0),
		ConstantinopleBlock: big.NewInt(0),
		PetersburgBlock:     big.NewInt(0),
	}
	return &core.Genesis{
		Config:     cfg,
		GasLimit:   params.GenesisGasLimit,
		Difficulty: big.NewInt(1),
		Alloc:      map[common.Address]core.GenesisAccount{},
	}
}

// defaultDataDir mirrors geth's per-OS default datadir convention, rooted
// under the user's home directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gnode"
	}
	return filepath.Join(home, ".gnode")
}
