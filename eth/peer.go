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

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/p2p"
)

const (
	maxKnownBlocks = 1024
	maxKnownTxs    = 32768
)

// peer is one eth-protocol session: a p2p.Peer plus the sync-relevant
// state spec.md §5's "per-peer pending-request budget" calls for — head
// hash/total-difficulty and two bloom-ish dedupe sets so a block or
// transaction this peer already announced isn't relayed back to it.
type peer struct {
	id      string
	p       *p2p.Peer
	rw      p2p.MsgReadWriter
	version uint

	mu   sync.RWMutex
	head common.Hash
	td   *big.Int

	knownBlocks mapset.Set[common.Hash]
	knownTxs    mapset.Set[common.Hash]
}

func newPeer(version uint, p *p2p.Peer, rw p2p.MsgReadWriter) *peer {
	return &peer{
		id:          p.Node().ID.String(),
		p:           p,
		rw:          rw,
		version:     version,
		knownBlocks: mapset.NewSet[common.Hash](),
		knownTxs:    mapset.NewSet[common.Hash](),
	}
}

func (p *peer) Head() (common.Hash, *big.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.head, p.td
}

func (p *peer) SetHead(head common.Hash, td *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.head, p.td = head, td
}

func (p *peer) markBlock(hash common.Hash) {
	for p.knownBlocks.Cardinality() >= maxKnownBlocks {
		p.knownBlocks.Pop()
	}
	p.knownBlocks.Add(hash)
}

func (p *peer) markTransaction(hash common.Hash) {
	for p.knownTxs.Cardinality() >= maxKnownTxs {
		p.knownTxs.Pop()
	}
	p.knownTxs.Add(hash)
}

// Handshake exchanges StatusMsg per spec.md §4.10's "sync begins after the
// status handshake confirms a compatible genesis and network id", sending
// ours while concurrently reading theirs.
func (p *peer) Handshake(networkID uint64, td *big.Int, head, genesis common.Hash) error {
	errc := make(chan error, 2)
	var status statusData

	go func() {
		errc <- p2p.Send(p.rw, StatusMsg, &statusData{
			ProtocolVersion: uint32(p.version),
			NetworkID:       networkID,
			TD:              td,
			CurrentBlock:    head,
			GenesisBlock:    genesis,
		})
	}()
	go func() {
		errc <- p.readStatus(&status, genesis)
	}()
	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil {
			return err
		}
	}
	if status.NetworkID != networkID {
		return fmt.Errorf("eth: network id mismatch: got %d, want %d", status.NetworkID, networkID)
	}
	p.SetHead(status.CurrentBlock, status.TD)
	return nil
}

func (p *peer) readStatus(status *statusData, genesis common.Hash) error {
	msg, err := p.rw.ReadMsg()
	if err != nil {
		return err
	}
	if msg.Code != StatusMsg {
		return fmt.Errorf("eth: first message must be status, got code %d", msg.Code)
	}
	if msg.Size > protocolMaxMsgSize {
		return fmt.Errorf("eth: status message too large (%d bytes)", msg.Size)
	}
	if err := msg.Decode(status); err != nil {
		return err
	}
	if status.GenesisBlock != genesis {
		return fmt.Errorf("eth: genesis mismatch: got %x, want %x", status.GenesisBlock, genesis)
	}
	return nil
}

func (p *peer) RequestHeadersByNumber(origin uint64, amount, skip int, reverse bool) error {
	return p2p.Send(p.rw, GetBlockHeadersMsg, &getBlockHeadersData{
		OriginNumber: origin, Amount: uint64(amount), Skip: uint64(skip), Reverse: reverse,
	})
}

func (p *peer) RequestBodies(hashes []common.Hash) error {
	return p2p.Send(p.rw, GetBlockBodiesMsg, hashes)
}

func (p *peer) RequestReceipts(hashes []common.Hash) error {
	return p2p.Send(p.rw, GetReceiptsMsg, hashes)
}

func (p *peer) AsyncSendNewBlock(block *types.Block, td *big.Int) {
	if !p.knownBlocks.Contains(block.Hash()) {
		p.markBlock(block.Hash())
		p2p.Send(p.rw, NewBlockMsg, &newBlockData{Block: block, TD: td})
	}
}
