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

// Package eth implements the eth/62 and eth/63 wire sub-protocols: block
// and transaction propagation, and the request/response pairs the sync
// engine (C10) drives to fill in missing chain history.
package eth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	eth62 = 62
	eth63 = 63
)

// ProtocolVersions lists the versions this node speaks, highest first so
// capability negotiation prefers eth/63's extra node-data/receipts codes
// when the peer supports them.
var ProtocolVersions = []uint{eth63, eth62}

// protocolLengths gives the number of packet codes each version reserves.
var protocolLengths = map[uint]uint64{eth63: 17, eth62: 8}

const protocolMaxMsgSize = 10 * 1024 * 1024

// Packet codes, identical across eth/62 and eth/63 for the codes eth/62
// also has; eth/63 only adds GetNodeData..Receipts.
const (
	StatusMsg          = 0x00
	NewBlockHashesMsg  = 0x01
	TransactionsMsg    = 0x02
	GetBlockHeadersMsg = 0x03
	BlockHeadersMsg    = 0x04
	GetBlockBodiesMsg  = 0x05
	BlockBodiesMsg     = 0x06
	NewBlockMsg        = 0x07
	GetNodeDataMsg     = 0x0d
	NodeDataMsg        = 0x0e
	GetReceiptsMsg     = 0x0f
	ReceiptsMsg        = 0x10
)

// statusData is the StatusMsg payload exchanged immediately after the RLPx
// Hello handshake, before any other eth packet is sent.
type statusData struct {
	ProtocolVersion uint32
	NetworkID       uint64
	TD              *big.Int
	CurrentBlock    common.Hash
	GenesisBlock    common.Hash
}

// newBlockHashesData is one entry of NewBlockHashesMsg: a block a peer is
// announcing without sending its full body.
type newBlockHashesData []struct {
	Hash   common.Hash
	Number uint64
}

// getBlockHeadersData is GetBlockHeadersMsg: request headers starting at
// an origin, Amount of them, Skip between each, in Reverse order or not.
// Real eth encodes the origin as either a hash or a number inside one RLP
// slot; this repo's rlp package has no hook for a custom union decoder
// (rlp.Encoder exists but there is no matching rlp.Decoder interface), so
// the two origin forms are carried as separate fields instead — OriginHash
// is used when non-zero, OriginNumber otherwise.
type getBlockHeadersData struct {
	OriginHash   common.Hash
	OriginNumber uint64
	Amount       uint64
	Skip         uint64
	Reverse      bool
}

// newBlockData is NewBlockMsg: a full block plus its sender's total
// difficulty, so the receiver can immediately judge whether it extends
// the canonical chain.
type newBlockData struct {
	Block *types.Block
	TD    *big.Int
}

// getBlockBodiesData / blockBodiesData by hash, used directly as []common.Hash
// and []*blockBody respectively (no wrapper struct needed on the wire).
type blockBody struct {
	Transactions []*types.Transaction
	Uncles       []*types.Header
}

type blockBodiesData []*blockBody
