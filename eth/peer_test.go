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
	"math/big"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/p2p"
)

func newTestPeer(rw p2p.MsgReadWriter) *peer {
	return &peer{
		id:          "test",
		rw:          rw,
		version:     eth63,
		knownBlocks: mapset.NewSet[common.Hash](),
		knownTxs:    mapset.NewSet[common.Hash](),
	}
}

func TestHandshakeSucceedsOnMatchingGenesis(t *testing.T) {
	rw1, rw2 := p2p.MsgPipe()
	p1, p2 := newTestPeer(rw1), newTestPeer(rw2)

	genesis := common.HexToHash("0x1")
	head := common.HexToHash("0x2")

	errc := make(chan error, 2)
	go func() { errc <- p1.Handshake(1, big.NewInt(100), head, genesis) }()
	go func() { errc <- p2.Handshake(1, big.NewInt(200), head, genesis) }()

	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil {
			t.Fatalf("Handshake: %v", err)
		}
	}

	gotHead, gotTD := p1.Head()
	if gotHead != head {
		t.Fatalf("expected p1 to learn peer's head, got %x", gotHead)
	}
	if gotTD.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("expected p1 to learn peer's TD 200, got %v", gotTD)
	}
}

func TestHandshakeRejectsGenesisMismatch(t *testing.T) {
	rw1, rw2 := p2p.MsgPipe()
	p1 := newTestPeer(rw1)
	p2 := newTestPeer(rw2)

	errc := make(chan error, 2)
	go func() { errc <- p1.Handshake(1, big.NewInt(1), common.Hash{}, common.HexToHash("0xaa")) }()
	go func() { errc <- p2.Handshake(1, big.NewInt(1), common.Hash{}, common.HexToHash("0xbb")) }()

	var sawErr bool
	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil {
			sawErr = true
		}
	}
	if !sawErr {
		t.Fatalf("expected a genesis mismatch to fail the handshake on at least one side")
	}
}

func TestMarkBlockCapsKnownSet(t *testing.T) {
	p := newTestPeer(nil)
	for i := 0; i < maxKnownBlocks+10; i++ {
		p.markBlock(common.BytesToHash(big.NewInt(int64(i)).Bytes()))
	}
	if p.knownBlocks.Cardinality() != maxKnownBlocks {
		t.Fatalf("expected known-block set capped at %d, got %d", maxKnownBlocks, p.knownBlocks.Cardinality())
	}
}

func TestRequestHeadersByNumberSendsGetBlockHeaders(t *testing.T) {
	rw1, rw2 := p2p.MsgPipe()
	p1 := newTestPeer(rw1)

	if err := p1.RequestHeadersByNumber(42, 10, 0, false); err != nil {
		t.Fatalf("RequestHeadersByNumber: %v", err)
	}

	msg, err := rw2.ReadMsg()
	if err != nil {
		t.Fatalf("ReadMsg: %v", err)
	}
	if msg.Code != GetBlockHeadersMsg {
		t.Fatalf("expected code %d, got %d", GetBlockHeadersMsg, msg.Code)
	}
	var req getBlockHeadersData
	if err := msg.Decode(&req); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if req.OriginNumber != 42 || req.Amount != 10 {
		t.Fatalf("unexpected request payload: %+v", req)
	}
}
