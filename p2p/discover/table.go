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

// Package discover implements the Kademlia-style node discovery protocol
// of spec.md §4.9: a 256-bucket routing table keyed by XOR distance from
// this node's id, populated and refreshed by signed UDP ping/pong and
// findnode/neighbors exchanges.
package discover

import (
	"container/list"
	"crypto/ecdsa"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/p2p/enode"
)

const (
	bucketSize        = 16 // K, spec.md §4.9 "each bucket holds up to K=16 entries"
	numBuckets        = 256
	alpha             = 3 // concurrency factor for iterative lookups
	bucketRefreshTime = 5 * time.Minute
	seenCacheSize     = 1024
)

// bucketEntry is one routing-table entry: a known node plus the last time
// it was confirmed live.
type bucketEntry struct {
	node     *enode.Node
	addedAt  time.Time
	lastSeen time.Time
}

// bucket holds up to bucketSize entries at one particular XOR-distance
// range, most-recently-seen at the back per spec.md §4.9's eviction rule
// ("new nodes are added to the back ... the front is preferred for
// eviction").
type bucket struct {
	entries *list.List // of *bucketEntry
}

func newBucket() *bucket { return &bucket{entries: list.New()} }

// Table is the Kademlia routing table for one local node.
type Table struct {
	mu      sync.Mutex
	self    enode.ID
	buckets [numBuckets]*bucket

	seen *lru.Cache // node ids recently sent a findnode query, dedupes lookups

	net  transport
	log  log.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// transport is the subset of *UDP the table needs, split out so lookup
// logic can be exercised without a real socket.
type transport interface {
	ping(n *enode.Node) error
	findnode(n *enode.Node, target enode.ID) ([]*enode.Node, error)
	localNode() *enode.Node
}

// NewTable creates a routing table rooted at self, bootstrapped from seed.
func NewTable(self enode.ID, net transport, seed []*enode.Node) *Table {
	seen, _ := lru.New(seenCacheSize)
	tab := &Table{
		self:   self,
		net:    net,
		seen:   seen,
		log:    log.New("module", "discover"),
		closed: make(chan struct{}),
	}
	for i := range tab.buckets {
		tab.buckets[i] = newBucket()
	}
	for _, n := range seed {
		tab.addVerified(n)
	}
	return tab
}

// Close stops the table's background refresh loop (RefreshLoop).
func (tab *Table) Close() {
	tab.closeOnce.Do(func() { close(tab.closed) })
}

// logDistance returns the index (0-255) of the bucket a,b's XOR distance
// falls into: the position of the highest differing bit.
func logDistance(a, b enode.ID) int {
	lz := 0
	for i := range a {
		x := a[i] ^ b[i]
		if x == 0 {
			lz += 8
			continue
		}
		for x&0x80 == 0 {
			lz++
			x <<= 1
		}
		break
	}
	d := len(a)*8 - lz
	if d == 0 {
		return 0
	}
	return d - 1
}

func (tab *Table) bucketFor(id enode.ID) *bucket {
	if id == tab.self {
		return tab.buckets[0]
	}
	return tab.buckets[logDistance(tab.self, id)]
}

// addVerified inserts n into its bucket, or moves it to the back (most
// recently seen) if already present, or pings the bucket's stalest entry
// for a possible eviction if the bucket is full — spec.md §4.9's "on a
// full bucket, the node at the front is pinged; if it fails to respond it
// is evicted and replaced."
func (tab *Table) addVerified(n *enode.Node) {
	if n.ID == tab.self {
		return
	}
	tab.mu.Lock()
	b := tab.bucketFor(n.ID)
	for e := b.entries.Front(); e != nil; e = e.Next() {
		be := e.Value.(*bucketEntry)
		if be.node.ID == n.ID {
			be.node = n
			be.lastSeen = time.Now()
			b.entries.MoveToBack(e)
			tab.mu.Unlock()
			return
		}
	}
	entry := &bucketEntry{node: n, addedAt: time.Now(), lastSeen: time.Now()}
	if b.entries.Len() < bucketSize {
		b.entries.PushBack(entry)
		tab.mu.Unlock()
		return
	}
	stalest := b.entries.Front()
	tab.mu.Unlock()

	oldest := stalest.Value.(*bucketEntry).node
	if err := tab.net.ping(oldest); err != nil {
		tab.mu.Lock()
		b.entries.Remove(stalest)
		b.entries.PushBack(entry)
		tab.mu.Unlock()
		tab.log.Debug("evicted unresponsive node", "id", oldest.ID)
	} else {
		tab.mu.Lock()
		b.entries.MoveToBack(stalest)
		tab.mu.Unlock()
	}
}

// closest returns the n nodes in the table closest to target, sorted by
// ascending XOR distance — the candidate set findNeighbours answers with
// and lookups refine against.
func (tab *Table) closest(target enode.ID, n int) []*enode.Node {
	tab.mu.Lock()
	defer tab.mu.Unlock()

	var all []*enode.Node
	for _, b := range tab.buckets {
		for e := b.entries.Front(); e != nil; e = e.Next() {
			all = append(all, e.Value.(*bucketEntry).node)
		}
	}
	sortByDistance(all, target)
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func sortByDistance(nodes []*enode.Node, target enode.ID) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0; j-- {
			if logDistance(nodes[j].ID, target) < logDistance(nodes[j-1].ID, target) {
				nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
			} else {
				break
			}
		}
	}
}

func idPriv(priv *ecdsa.PrivateKey) enode.ID {
	return enode.PublicKeyToID(&priv.PublicKey)
}
