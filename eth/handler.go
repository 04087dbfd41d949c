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

package eth

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/eth/downloader"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/p2p"
)

// ProtocolManager wires the eth/62-63 wire protocol (C8 payload) to the
// block tree (C7) and the sync engine (C10): it runs one goroutine per
// peer dispatching incoming packets, and hands newly-downloaded blocks to
// BlockChain.AddBlock.
type ProtocolManager struct {
	networkID  uint64
	chain      *core.BlockChain
	downloader *downloader.Downloader

	mu    sync.Mutex
	peers map[string]*peer

	log log.Logger
}

// NewProtocolManager builds the manager and its Protocol set, ready to be
// added to a p2p.Server's Config.Protocols.
func NewProtocolManager(networkID uint64, chain *core.BlockChain) *ProtocolManager {
	pm := &ProtocolManager{
		networkID: networkID,
		chain:     chain,
		peers:     make(map[string]*peer),
		log:       log.New("module", "eth"),
	}
	pm.downloader = downloader.New(downloader.Config{
		InsertChain: func(block *types.Block) error {
			_, err := chain.AddBlock(block)
			return err
		},
		HasBlock:     chain.HasBlock,
		CurrentBlock: func() uint64 { return chain.CurrentBlock().NumberU64() },
	})
	return pm
}

// Protocols returns one p2p.Protocol per version this node speaks, in
// descending-preference order (spec.md §4.8 capability negotiation picks
// the highest version both sides list).
func (pm *ProtocolManager) Protocols() []p2p.Protocol {
	protos := make([]p2p.Protocol, len(ProtocolVersions))
	for i, v := range ProtocolVersions {
		v := v
		protos[i] = p2p.Protocol{
			Name:    "eth",
			Version: v,
			Length:  protocolLengths[v],
			Run: func(p2pPeer *p2p.Peer, rw p2p.MsgReadWriter) error {
				return pm.runPeer(newPeer(v, p2pPeer, rw))
			},
		}
	}
	return protos
}

func (pm *ProtocolManager) runPeer(p *peer) error {
	head := pm.chain.CurrentBlock()
	if err := p.Handshake(pm.networkID, pm.chain.GetTd(head.Hash()), head.Hash(), pm.chain.Genesis().Hash()); err != nil {
		return fmt.Errorf("eth: handshake failed: %w", err)
	}
	pm.mu.Lock()
	pm.peers[p.id] = p
	pm.mu.Unlock()
	pm.downloader.RegisterPeer(p.id, head2Peer{p})

	defer func() {
		pm.mu.Lock()
		delete(pm.peers, p.id)
		pm.mu.Unlock()
		pm.downloader.UnregisterPeer(p.id)
	}()

	for {
		if err := pm.handleMsg(p); err != nil {
			return err
		}
	}
}

// head2Peer adapts *peer to downloader.Peer without the downloader package
// importing eth (which would import p2p, which eth already imports,
// forming a cycle if done the other way).
type head2Peer struct{ p *peer }

func (h head2Peer) RequestHeadersByNumber(origin uint64, amount, skip int, reverse bool) error {
	return h.p.RequestHeadersByNumber(origin, amount, skip, reverse)
}
func (h head2Peer) RequestBodies(hashes []common.Hash) error { return h.p.RequestBodies(hashes) }
func (h head2Peer) Head() (common.Hash, *big.Int)            { return h.p.Head() }

func (pm *ProtocolManager) handleMsg(p *peer) error {
	msg, err := p.rw.ReadMsg()
	if err != nil {
		return err
	}
	if msg.Size > protocolMaxMsgSize {
		return fmt.Errorf("eth: message too large (%d bytes)", msg.Size)
	}
	defer msg.Discard()

	switch msg.Code {
	case StatusMsg:
		return fmt.Errorf("eth: unexpected status message")

	case GetBlockHeadersMsg:
		return pm.handleGetBlockHeaders(p, msg)

	case BlockHeadersMsg:
		return pm.downloader.DeliverHeaders(p.id, decodeHeaders(msg))

	case GetBlockBodiesMsg:
		return pm.handleGetBlockBodies(p, msg)

	case BlockBodiesMsg:
		var bodies blockBodiesData
		if err := msg.Decode(&bodies); err != nil {
			return err
		}
		return pm.downloader.DeliverBodies(p.id, bodiesToTxsAndUncles(bodies))

	case NewBlockHashesMsg:
		var ann newBlockHashesData
		return msg.Decode(&ann)

	case NewBlockMsg:
		var req newBlockData
		if err := msg.Decode(&req); err != nil {
			return err
		}
		p.markBlock(req.Block.Hash())
		p.SetHead(req.Block.Hash(), req.TD)
		if _, err := pm.chain.AddBlock(req.Block); err != nil {
			pm.log.Debug("failed to import announced block", "hash", req.Block.Hash(), "err", err)
			if req.Block.NumberU64() > pm.chain.CurrentBlock().NumberU64()+1 {
				go func() {
					if err := pm.downloader.SynchroniseAny(); err != nil {
						pm.log.Debug("sync after announcement failed", "err", err)
					}
				}()
			}
		}
		return nil

	case TransactionsMsg:
		var txs []*types.Transaction
		return msg.Decode(&txs)

	case GetNodeDataMsg:
		return pm.handleGetNodeData(p, msg)

	case GetReceiptsMsg:
		return pm.handleGetReceipts(p, msg)

	case NodeDataMsg, ReceiptsMsg:
		return msg.Discard()

	default:
		return fmt.Errorf("eth: unknown message code %d", msg.Code)
	}
}

func (pm *ProtocolManager) handleGetBlockHeaders(p *peer, msg p2p.Msg) error {
	var req getBlockHeadersData
	if err := msg.Decode(&req); err != nil {
		return err
	}
	var origin *types.Header
	if req.OriginHash != (common.Hash{}) {
		if b := pm.chain.GetBlockByHash(req.OriginHash); b != nil {
			origin = b.Header()
		}
	} else if b := pm.chain.GetBlockByNumber(req.OriginNumber); b != nil {
		origin = b.Header()
	}
	var headers []*types.Header
	for origin != nil && uint64(len(headers)) < req.Amount {
		headers = append(headers, origin)
		var nextNum uint64
		if req.Reverse {
			if origin.Number.Uint64() < req.Skip+1 {
				break
			}
			nextNum = origin.Number.Uint64() - (req.Skip + 1)
		} else {
			nextNum = origin.Number.Uint64() + req.Skip + 1
		}
		if b := pm.chain.GetBlockByNumber(nextNum); b != nil {
			origin = b.Header()
		} else {
			origin = nil
		}
	}
	return p2p.Send(p.rw, BlockHeadersMsg, headers)
}

func (pm *ProtocolManager) handleGetBlockBodies(p *peer, msg p2p.Msg) error {
	var hashes []common.Hash
	if err := msg.Decode(&hashes); err != nil {
		return err
	}
	var bodies blockBodiesData
	for _, hash := range hashes {
		if b := pm.chain.GetBlockByHash(hash); b != nil {
			bodies = append(bodies, &blockBody{Transactions: b.Transactions(), Uncles: b.Uncles()})
		}
	}
	return p2p.Send(p.rw, BlockBodiesMsg, bodies)
}

func (pm *ProtocolManager) handleGetReceipts(p *peer, msg p2p.Msg) error {
	var hashes []common.Hash
	if err := msg.Decode(&hashes); err != nil {
		return err
	}
	var receipts []types.Receipts
	for _, hash := range hashes {
		receipts = append(receipts, pm.chain.GetReceiptsByHash(hash))
	}
	return p2p.Send(p.rw, ReceiptsMsg, receipts)
}

func (pm *ProtocolManager) handleGetNodeData(p *peer, msg p2p.Msg) error {
	var hashes []common.Hash
	if err := msg.Decode(&hashes); err != nil {
		return err
	}
	var data [][]byte
	for _, hash := range hashes {
		if blob, err := pm.chain.DB().Get(hash.Bytes()); err == nil {
			data = append(data, blob)
		}
	}
	return p2p.Send(p.rw, NodeDataMsg, data)
}

func decodeHeaders(msg p2p.Msg) []*types.Header {
	var headers []*types.Header
	msg.Decode(&headers)
	return headers
}

func bodiesToTxsAndUncles(bodies blockBodiesData) []downloader.Body {
	out := make([]downloader.Body, len(bodies))
	for i, b := range bodies {
		out[i] = downloader.Body{Transactions: b.Transactions, Uncles: b.Uncles}
	}
	return out
}
