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

// Package downloader implements the block-queue sync engine (C10): it
// drives GetBlockHeaders/GetBlockBodies request-response pairs against
// active peers, fills in the gap between the local canonical head and a
// peer's announced head, and hands assembled blocks to the block tree.
package downloader

import (
	"errors"
	"math/big"
	"math/rand"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
)

const (
	maxHeaderFetch = 192
	maxBodyFetch   = 128
	requestTTL     = 15 * time.Second
)

var (
	errNoPeers       = errors.New("downloader: no peers available")
	errRequestFailed = errors.New("downloader: request timed out or peer vanished")
	errBodyMismatch  = errors.New("downloader: body count does not match requested headers")
)

// Body is one GetBlockBodies response element: a block's transactions and
// ommer headers, to be recombined with the header fetched earlier by
// position (spec.md §4.10: "Upon receiving bodies, associate by position").
type Body struct {
	Transactions []*types.Transaction
	Uncles       []*types.Header
}

// Peer is the subset of the eth-protocol peer the downloader drives.
type Peer interface {
	RequestHeadersByNumber(origin uint64, amount, skip int, reverse bool) error
	RequestBodies(hashes []common.Hash) error
	Head() (common.Hash, *big.Int)
}

// Config supplies the downloader with the callbacks it needs into the
// block tree without importing core (which would create an import cycle
// through eth -> core -> ... -> eth/downloader).
type Config struct {
	InsertChain  func(block *types.Block) error
	HasBlock     func(hash common.Hash) bool
	CurrentBlock func() uint64
}

type queueState int

const (
	awaitingBody queueState = iota
	complete
)

type queueItem struct {
	header *types.Header
	body   *Body
	state  queueState
}

// Downloader is the block queue described by spec.md §4.10: a map keyed by
// block number holding header and optional body, drained into the block
// tree in order as runs of contiguous complete slots accumulate.
type Downloader struct {
	cfg Config
	log log.Logger

	mu    sync.Mutex
	peers map[string]Peer
	queue map[uint64]*queueItem

	pendingMu sync.Mutex
	headerCh  map[string]chan []*types.Header
	bodyCh    map[string]chan []Body

	// blacklist holds peer ids SynchroniseAny skips when picking a random
	// active peer. No code path adds to it: a block that fails to insert is
	// dropped from the queue without its source peer being marked.
	blacklist mapset.Set[string]
}

// New builds a Downloader bound to the given block-tree callbacks.
func New(cfg Config) *Downloader {
	return &Downloader{
		cfg:       cfg,
		log:       log.New("module", "downloader"),
		peers:     make(map[string]Peer),
		queue:     make(map[uint64]*queueItem),
		headerCh:  make(map[string]chan []*types.Header),
		bodyCh:    make(map[string]chan []Body),
		blacklist: mapset.NewSet[string](),
	}
}

// RegisterPeer adds p to the active set and kicks off a synchronisation
// attempt against it in the background.
func (d *Downloader) RegisterPeer(id string, p Peer) {
	d.mu.Lock()
	d.peers[id] = p
	d.mu.Unlock()
	go func() {
		if err := d.Synchronise(id); err != nil {
			d.log.Debug("sync attempt failed", "peer", id, "err", err)
		}
	}()
}

// UnregisterPeer drops p from the active set and wakes any goroutine
// blocked waiting on a reply from it, the cancellation spec.md §5 requires
// ("a dropped connection cancels all in-flight requests to that peer").
func (d *Downloader) UnregisterPeer(id string) {
	d.mu.Lock()
	delete(d.peers, id)
	d.mu.Unlock()

	d.pendingMu.Lock()
	if ch, ok := d.headerCh[id]; ok {
		close(ch)
		delete(d.headerCh, id)
	}
	if ch, ok := d.bodyCh[id]; ok {
		close(ch)
		delete(d.bodyCh, id)
	}
	d.pendingMu.Unlock()
}

// DeliverHeaders feeds an incoming BlockHeadersMsg to whichever goroutine
// is waiting on a reply from id.
func (d *Downloader) DeliverHeaders(id string, headers []*types.Header) error {
	d.pendingMu.Lock()
	ch, ok := d.headerCh[id]
	d.pendingMu.Unlock()
	if !ok {
		return nil // unsolicited or already timed out, ignore
	}
	select {
	case ch <- headers:
	default:
	}
	return nil
}

// DeliverBodies feeds an incoming BlockBodiesMsg to whichever goroutine is
// waiting on a reply from id.
func (d *Downloader) DeliverBodies(id string, bodies []Body) error {
	d.pendingMu.Lock()
	ch, ok := d.bodyCh[id]
	d.pendingMu.Unlock()
	if !ok {
		return nil
	}
	select {
	case ch <- bodies:
	default:
	}
	return nil
}

// Synchronise drives the request/response loop against peer id until that
// peer has no more headers to offer beyond the local canonical head, or a
// request fails outright.
func (d *Downloader) Synchronise(id string) error {
	for {
		more, err := d.fetchRound(id)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// fetchRound issues one GetBlockHeaders/GetBlockBodies round-trip and
// drains any contiguous completed queue slots into the block tree. It
// reports whether the peer may have more headers beyond this batch.
func (d *Downloader) fetchRound(id string) (bool, error) {
	d.mu.Lock()
	p, ok := d.peers[id]
	d.mu.Unlock()
	if !ok {
		return false, errNoPeers
	}

	origin := d.nextMissing()
	headerCh := make(chan []*types.Header, 1)
	d.pendingMu.Lock()
	d.headerCh[id] = headerCh
	d.pendingMu.Unlock()
	defer func() {
		d.pendingMu.Lock()
		delete(d.headerCh, id)
		d.pendingMu.Unlock()
	}()

	if err := p.RequestHeadersByNumber(origin, maxHeaderFetch, 0, false); err != nil {
		return false, err
	}
	headers, err := waitChan(headerCh, requestTTL)
	if err != nil {
		return false, err
	}
	if len(headers) == 0 {
		return false, nil
	}

	var needBodies []common.Hash
	d.mu.Lock()
	for _, h := range headers {
		item := &queueItem{header: h}
		if emptyBody(h) {
			item.state = complete
			item.body = &Body{}
		} else {
			needBodies = append(needBodies, h.Hash())
		}
		d.queue[h.Number.Uint64()] = item
	}
	d.mu.Unlock()

	if len(needBodies) > 0 {
		for start := 0; start < len(needBodies); start += maxBodyFetch {
			end := start + maxBodyFetch
			if end > len(needBodies) {
				end = len(needBodies)
			}
			if err := d.fetchBodies(id, p, headers, needBodies[start:end]); err != nil {
				return false, err
			}
		}
	}

	d.drainQueue()
	return len(headers) == maxHeaderFetch, nil
}

func (d *Downloader) fetchBodies(id string, p Peer, headers []*types.Header, hashes []common.Hash) error {
	bodyCh := make(chan []Body, 1)
	d.pendingMu.Lock()
	d.bodyCh[id] = bodyCh
	d.pendingMu.Unlock()
	defer func() {
		d.pendingMu.Lock()
		delete(d.bodyCh, id)
		d.pendingMu.Unlock()
	}()

	if err := p.RequestBodies(hashes); err != nil {
		return err
	}
	bodies, err := waitChan(bodyCh, requestTTL)
	if err != nil {
		return err
	}
	if len(bodies) != len(hashes) {
		return errBodyMismatch
	}

	byHash := make(map[common.Hash]*types.Header, len(headers))
	for _, h := range headers {
		byHash[h.Hash()] = h
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, hash := range hashes {
		h, ok := byHash[hash]
		if !ok {
			continue
		}
		item, ok := d.queue[h.Number.Uint64()]
		if !ok {
			continue
		}
		body := bodies[i]
		item.body = &body
		item.state = complete
	}
	return nil
}

// drainQueue inserts every contiguous run of complete slots starting at
// the current head + 1, per spec.md §4.10's gap-filling rule.
func (d *Downloader) drainQueue() {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := d.cfg.CurrentBlock() + 1
	for {
		item, ok := d.queue[next]
		if !ok || item.state != complete {
			return
		}
		block := types.NewBlockWithHeader(item.header).WithBody(item.body.Transactions, item.body.Uncles)
		if err := d.cfg.InsertChain(block); err != nil {
			d.log.Warn("sync insert failed", "number", next, "err", err)
			delete(d.queue, next)
			return
		}
		delete(d.queue, next)
		next++
	}
}

// nextMissing is the lowest block number above the canonical head not
// already queued, the gap-filling target spec.md §4.10 describes.
func (d *Downloader) nextMissing() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.cfg.CurrentBlock() + 1
	for {
		if _, ok := d.queue[n]; !ok {
			return n
		}
		n++
	}
}

// emptyBody reports whether a header's block has no transactions or
// ommers, letting the queue slot complete without a GetBlockBodies round
// trip at all.
func emptyBody(h *types.Header) bool {
	return h.UncleHash == types.EmptyUncleHash && h.TxHash == types.EmptyRootHash
}

// SynchroniseAny picks an arbitrary non-blacklisted active peer (the
// "random active peers" target spec.md §4.10 calls for) and runs a sync
// round against it; used when a NewBlock announcement reveals this node
// has fallen behind rather than waiting for the next peer registration.
func (d *Downloader) SynchroniseAny() error {
	d.mu.Lock()
	ids := make([]string, 0, len(d.peers))
	for id := range d.peers {
		if !d.blacklist.Contains(id) {
			ids = append(ids, id)
		}
	}
	d.mu.Unlock()
	if len(ids) == 0 {
		return errNoPeers
	}
	return d.Synchronise(ids[rand.Intn(len(ids))])
}

func waitChan[T any](ch chan T, timeout time.Duration) (T, error) {
	var zero T
	select {
	case v, ok := <-ch:
		if !ok {
			return zero, errRequestFailed
		}
		return v, nil
	case <-time.After(timeout):
		return zero, errRequestFailed
	}
}
