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

package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestBloomContainsInsertedValue(t *testing.T) {
	var b Bloom
	x := []byte("a test value")
	b.Add(x)
	if !b.Test(x) {
		t.Fatalf("bloom does not contain its own inserted value")
	}
}

func TestBloomUnionOfLogs(t *testing.T) {
	addrA := common.BytesToAddress([]byte("address-a"))
	addrB := common.BytesToAddress([]byte("address-b"))
	topic := common.BytesToHash([]byte("a distinguishing topic value"))

	logsA := []*Log{{Address: addrA}}
	logsB := []*Log{{Address: addrB, Topics: []common.Hash{topic}}}

	bloomA := LogsBloom(logsA)
	bloomB := LogsBloom(logsB)

	var union Bloom
	for i := range union {
		union[i] = bloomA[i] | bloomB[i]
	}

	combined := LogsBloom(append(append([]*Log{}, logsA...), logsB...))
	if combined != union {
		t.Fatalf("bloom_of(xs++ys) != bloom_of(xs) OR bloom_of(ys)")
	}
	if !combined.Test(addrA.Bytes()) || !combined.Test(addrB.Bytes()) || !combined.Test(topic.Bytes()) {
		t.Fatalf("combined bloom missing an inserted value")
	}
}

func TestBloomCreateFromReceipts(t *testing.T) {
	addr := common.BytesToAddress([]byte("receipt-address"))
	r := &Receipt{Logs: []*Log{{Address: addr}}}
	b := CreateBloom([]*Receipt{r})
	if !b.Test(addr.Bytes()) {
		t.Fatalf("receipt bloom does not contain its own log's address")
	}
}
