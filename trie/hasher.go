// Copyright 2016 The go-ethereum Authors
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

package trie

import (
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// hasher computes the RLP encoding of dirty nodes bottom-up, per spec.md
// §9's "commit walks the arena, hashes each dirty node" design note. A
// node's encoding is embedded directly in its parent when shorter than 32
// bytes (spec.md §4.1); otherwise it is addressed by its Keccak-256 hash and
// staged in pending for the eventual Database.insert/Flush.
type hasher struct {
	pending map[string][]byte
}

func newHasher() *hasher {
	return &hasher{pending: make(map[string][]byte)}
}

// hash returns the encoding of n (used by the caller either as the trie
// root's preimage or, when embedding, inserted verbatim into the parent).
func (h *hasher) hash(n node) []byte {
	switch n := n.(type) {
	case *shortNode:
		return h.encodeShort(n)
	case *fullNode:
		return h.encodeFull(n)
	case valueNode:
		enc, _ := rlp.EncodeToBytes([]byte(n))
		return enc
	case hashNode:
		enc, _ := rlp.EncodeToBytes([]byte(n))
		return enc
	case nil:
		enc, _ := rlp.EncodeToBytes([]byte(nil))
		return enc
	default:
		panic("trie: unknown node type in hasher")
	}
}

func (h *hasher) encodeShort(n *shortNode) []byte {
	key := hexToCompact(n.Key)
	var valRef interface{}
	if hasTerm(n.Key) {
		vn, _ := n.Val.(valueNode)
		valRef = []byte(vn)
	} else {
		valRef = h.childReference(n.Val)
	}
	enc, _ := rlp.EncodeToBytes([]interface{}{key, valRef})
	return enc
}

func (h *hasher) encodeFull(n *fullNode) []byte {
	items := make([]interface{}, 17)
	for i := 0; i < 16; i++ {
		items[i] = h.childReference(n.Children[i])
	}
	if vn, ok := n.Children[16].(valueNode); ok {
		items[16] = []byte(vn)
	} else {
		items[16] = []byte(nil)
	}
	enc, _ := rlp.EncodeToBytes(items)
	return enc
}

// childReference returns what a parent node should store for child n: the
// raw bytes of n's own encoding when short enough to embed, or a 32-byte
// hash reference once n has been staged for writing.
func (h *hasher) childReference(n node) interface{} {
	switch n := n.(type) {
	case nil:
		return []byte(nil)
	case hashNode:
		return []byte(n)
	case valueNode:
		return []byte(n)
	case *shortNode, *fullNode:
		enc := h.hash(n)
		if len(enc) < 32 {
			return rlp.RawValue(enc)
		}
		hash := crypto.Keccak256(enc)
		h.pending[string(hash)] = enc
		return hash
	default:
		panic("trie: unknown child type")
	}
}
