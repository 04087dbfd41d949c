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

package downloader

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakePeer answers RequestHeadersByNumber/RequestBodies by delivering
// pre-baked replies back through the Downloader asynchronously, mimicking a
// real peer's network round trip closely enough to drive fetchRound.
type fakePeer struct {
	d       *Downloader
	id      string
	headers []*types.Header // full chain, by number starting at 1
}

func (p *fakePeer) Head() (common.Hash, *big.Int) { return common.Hash{}, big.NewInt(0) }

func (p *fakePeer) RequestHeadersByNumber(origin uint64, amount, skip int, reverse bool) error {
	var batch []*types.Header
	for _, h := range p.headers {
		n := h.Number.Uint64()
		if n < origin {
			continue
		}
		if len(batch) >= amount {
			break
		}
		batch = append(batch, h)
	}
	go p.d.DeliverHeaders(p.id, batch)
	return nil
}

func (p *fakePeer) RequestBodies(hashes []common.Hash) error {
	bodies := make([]Body, len(hashes))
	go p.d.DeliverBodies(p.id, bodies)
	return nil
}

func chainOfEmptyHeaders(n int) []*types.Header {
	headers := make([]*types.Header, n)
	for i := 0; i < n; i++ {
		headers[i] = &types.Header{
			Number:     big.NewInt(int64(i + 1)),
			UncleHash:  types.EmptyUncleHash,
			TxHash:     types.EmptyRootHash,
			Difficulty: big.NewInt(1),
		}
	}
	return headers
}

func TestSynchroniseInsertsContiguousRun(t *testing.T) {
	var mu sync.Mutex
	inserted := make([]uint64, 0)
	current := uint64(0)

	d := New(Config{
		InsertChain: func(b *types.Block) error {
			mu.Lock()
			defer mu.Unlock()
			inserted = append(inserted, b.NumberU64())
			current = b.NumberU64()
			return nil
		},
		HasBlock:     func(common.Hash) bool { return false },
		CurrentBlock: func() uint64 { mu.Lock(); defer mu.Unlock(); return current },
	})

	peer := &fakePeer{d: d, id: "p1", headers: chainOfEmptyHeaders(5)}
	d.RegisterPeer("p1", peer)

	if err := d.Synchronise("p1"); err != nil {
		t.Fatalf("Synchronise: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(inserted) != 5 {
		t.Fatalf("expected 5 blocks inserted, got %d: %v", len(inserted), inserted)
	}
	for i, n := range inserted {
		if n != uint64(i+1) {
			t.Fatalf("expected contiguous insert order, got %v", inserted)
		}
	}
}

func TestSynchroniseUnknownPeer(t *testing.T) {
	d := New(Config{
		InsertChain:  func(*types.Block) error { return nil },
		HasBlock:     func(common.Hash) bool { return false },
		CurrentBlock: func() uint64 { return 0 },
	})
	if err := d.Synchronise("ghost"); err != errNoPeers {
		t.Fatalf("expected errNoPeers, got %v", err)
	}
}

func TestUnregisterPeerCancelsPendingWait(t *testing.T) {
	d := New(Config{
		InsertChain:  func(*types.Block) error { return nil },
		HasBlock:     func(common.Hash) bool { return false },
		CurrentBlock: func() uint64 { return 0 },
	})
	d.mu.Lock()
	d.peers["stuck"] = &fakePeer{d: d, id: "stuck"}
	d.mu.Unlock()

	ch := make(chan []*types.Header, 1)
	d.pendingMu.Lock()
	d.headerCh["stuck"] = ch
	d.pendingMu.Unlock()

	d.UnregisterPeer("stuck")

	if _, err := waitChan(ch, 0); err != errRequestFailed {
		t.Fatalf("expected a closed channel to fail the wait, got %v", err)
	}
}

func TestNextMissingSkipsQueuedSlots(t *testing.T) {
	d := New(Config{CurrentBlock: func() uint64 { return 10 }})
	d.queue[11] = &queueItem{}
	d.queue[12] = &queueItem{}
	if got := d.nextMissing(); got != 13 {
		t.Fatalf("expected next missing 13, got %d", got)
	}
}

func TestEmptyBody(t *testing.T) {
	h := &types.Header{UncleHash: types.EmptyUncleHash, TxHash: types.EmptyRootHash}
	if !emptyBody(h) {
		t.Fatalf("expected header with empty roots to report an empty body")
	}
	h2 := &types.Header{UncleHash: types.EmptyUncleHash, TxHash: common.HexToHash("0x1")}
	if emptyBody(h2) {
		t.Fatalf("expected header with a non-empty tx root to report a non-empty body")
	}
}
