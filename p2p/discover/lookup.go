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

package discover

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/p2p/enode"
)

// lookup runs one iterative Kademlia lookup for target (spec.md §4.9:
// "random target, α-closest-verified-peer fan-out, repeat until no closer
// peer learned"). It queries up to alpha nodes at a time and keeps
// refining the candidate set until a round yields nothing closer than
// what was already known.
func (tab *Table) lookup(target enode.ID) []*enode.Node {
	asked := make(map[enode.ID]bool)
	asked[tab.self] = true

	result := tab.closest(target, bucketSize)

	for {
		var toQuery []*enode.Node
		for _, n := range result {
			if !asked[n.ID] {
				asked[n.ID] = true
				toQuery = append(toQuery, n)
				if len(toQuery) == alpha {
					break
				}
			}
		}
		if len(toQuery) == 0 {
			return result
		}

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			learned []*enode.Node
		)
		for _, n := range toQuery {
			wg.Add(1)
			go func(n *enode.Node) {
				defer wg.Done()
				if !tab.markSeen(n.ID) {
					return
				}
				found, err := tab.net.findnode(n, target)
				if err != nil {
					return
				}
				mu.Lock()
				learned = append(learned, found...)
				mu.Unlock()
				for _, f := range found {
					tab.addVerified(f)
				}
			}(n)
		}
		wg.Wait()

		before := closestDistance(result, target)
		result = mergeClosest(result, learned, target, bucketSize)
		after := closestDistance(result, target)
		if after >= before {
			return result
		}
	}
}

// markSeen dedupes findnode queries to the same node across lookups: it
// returns false if id is still in the seen cache, which holds the last
// seenCacheSize queried ids. Entries are evicted by LRU order, not by age.
func (tab *Table) markSeen(id enode.ID) bool {
	if tab.seen == nil {
		return true
	}
	if tab.seen.Contains(id) {
		return false
	}
	tab.seen.Add(id, time.Now())
	return true
}

func closestDistance(nodes []*enode.Node, target enode.ID) int {
	if len(nodes) == 0 {
		return numBuckets + 1
	}
	return logDistance(nodes[0].ID, target)
}

func mergeClosest(a, b []*enode.Node, target enode.ID, n int) []*enode.Node {
	seen := make(map[enode.ID]bool, len(a))
	merged := make([]*enode.Node, 0, len(a)+len(b))
	for _, x := range a {
		if !seen[x.ID] {
			seen[x.ID] = true
			merged = append(merged, x)
		}
	}
	for _, x := range b {
		if !seen[x.ID] {
			seen[x.ID] = true
			merged = append(merged, x)
		}
	}
	sortByDistance(merged, target)
	if len(merged) > n {
		merged = merged[:n]
	}
	return merged
}

func randomID() enode.ID {
	var id enode.ID
	rand.Read(id[:])
	return id
}

// RefreshLoop periodically runs a lookup for a random target, the
// background activity that keeps distant buckets populated (spec.md §4.9),
// until the table is closed.
func (tab *Table) RefreshLoop() {
	ticker := time.NewTicker(bucketRefreshTime)
	defer ticker.Stop()
	tab.lookup(randomID())
	for {
		select {
		case <-ticker.C:
			tab.lookup(randomID())
		case <-tab.closed:
			return
		}
	}
}

// LookupRandom runs one lookup for a random target and returns the
// closest nodes found; UDP.LookupRandom exposes it to cmd/gnode's
// dialDiscovered loop, which dials the nodes it returns.
func (tab *Table) LookupRandom() []*enode.Node {
	return tab.lookup(randomID())
}
