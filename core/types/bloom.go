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
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// BloomByteLength is the number of bytes in a header logs-bloom (2048 bits).
const BloomByteLength = 256

// BloomBitLength is the number of bits in a header logs-bloom.
const BloomBitLength = 8 * BloomByteLength

// Bloom is the 2048-bit logs-bloom filter carried in a block header
// (spec.md §4.6).
type Bloom [BloomByteLength]byte

// BytesToBloom sets b to the rightmost BloomByteLength bytes of b, panicking
// if d is longer.
func BytesToBloom(d []byte) Bloom {
	var b Bloom
	b.SetBytes(d)
	return b
}

func (b *Bloom) SetBytes(d []byte) {
	if len(b) < len(d) {
		panic(fmt.Sprintf("bloom bytes too big %d %d", len(b), len(d)))
	}
	copy(b[BloomByteLength-len(d):], d)
}

// Add sets the three bits bloom9 derives from d.
func (b *Bloom) Add(d []byte) {
	addBloomBits(b, bloom9Bits(d))
}

func (b Bloom) Bytes() []byte { return b[:] }

// Test reports whether the three bits derived from topic are all set —
// per spec.md §8 this may false-positive but MUST NOT false-negative.
func (b Bloom) Test(topic []byte) bool {
	bloomBits := bloom9Bits(topic)
	for _, idx := range bloomBits {
		byteIdx := BloomByteLength - 1 - idx/8
		bitMask := byte(1) << (idx % 8)
		if b[byteIdx]&bitMask == 0 {
			return false
		}
	}
	return true
}

// bloom9Bits returns the three 11-bit indices (spec.md §4.6: "three distinct
// 11-bit indices, big-endian pairs, first two bytes of each 8-byte slice,
// masked to 11 bits") derived from Keccak256(d), as bit offsets counted from
// the least-significant bit of the 2048-bit vector.
func bloom9Bits(d []byte) [3]uint {
	h := crypto.Keccak256(d)
	var idx [3]uint
	for i := 0; i < 3; i++ {
		v := (uint(h[2*i]) << 8) | uint(h[2*i+1])
		idx[i] = v & 0x7ff
	}
	return idx
}

func addBloomBits(b *Bloom, idx [3]uint) {
	for _, bit := range idx {
		byteIdx := BloomByteLength - 1 - bit/8
		bitMask := byte(1) << (bit % 8)
		b[byteIdx] |= bitMask
	}
}

// CreateBloom computes the union logs-bloom over every receipt's logs
// (spec.md §4.6: "the header's logs_bloom is the OR of all per-log blooms").
func CreateBloom(receipts []*Receipt) Bloom {
	var b Bloom
	for _, receipt := range receipts {
		for _, log := range receipt.Logs {
			b.Add(log.Address.Bytes())
			for _, topic := range log.Topics {
				th := topic
				b.Add(th[:])
			}
		}
	}
	return b
}

// LogsBloom computes the bloom over a single list of logs, used when
// constructing a receipt before the containing block's header is known.
func LogsBloom(logs []*Log) Bloom {
	var b Bloom
	for _, log := range logs {
		b.Add(log.Address.Bytes())
		for _, topic := range log.Topics {
			th := topic
			b.Add(th[:])
		}
	}
	return b
}
