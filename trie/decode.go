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

package trie

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// decodeNode turns a node's raw RLP encoding (as stored in the Database,
// keyed by its own hash) back into a node. hash may be nil when decoding an
// embedded node reached via decodeRef rather than the store.
func decodeNode(hash, buf []byte) (node, error) {
	kind, content, rest, err := rlp.Split(buf)
	if err != nil {
		return nil, err
	}
	if kind != 0xc0 {
		return nil, fmt.Errorf("trie: expected list, got string")
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trie: %d trailing bytes after node", len(rest))
	}
	items, err := splitListItems(content)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 2:
		return decodeShort(hash, items)
	case 17:
		return decodeFull(hash, items)
	default:
		return nil, fmt.Errorf("trie: invalid node with %d list elements", len(items))
	}
}

func splitListItems(content []byte) ([][]byte, error) {
	var items [][]byte
	for len(content) > 0 {
		raw, rest, err := rlp.SplitRaw(content)
		if err != nil {
			return nil, err
		}
		items = append(items, raw)
		content = rest
	}
	return items, nil
}

func decodeShort(hash []byte, items [][]byte) (node, error) {
	kind, keyBytes, rest, err := rlp.Split(items[0])
	if err != nil {
		return nil, err
	}
	if kind != 0x80 || len(rest) != 0 {
		return nil, fmt.Errorf("trie: invalid short-node key encoding")
	}
	key := compactToHex(keyBytes)
	if hasTerm(key) {
		val, err := decodeValue(items[1])
		if err != nil {
			return nil, err
		}
		return &shortNode{Key: key, Val: val, hash: hashNode(hash)}, nil
	}
	val, err := decodeRef(items[1])
	if err != nil {
		return nil, err
	}
	return &shortNode{Key: key, Val: val, hash: hashNode(hash)}, nil
}

func decodeFull(hash []byte, items [][]byte) (node, error) {
	n := &fullNode{hash: hashNode(hash)}
	for i := 0; i < 16; i++ {
		child, err := decodeRef(items[i])
		if err != nil {
			return nil, fmt.Errorf("trie: child %d: %w", i, err)
		}
		n.Children[i] = child
	}
	val, err := decodeValue(items[16])
	if err != nil {
		return nil, err
	}
	if val != nil {
		n.Children[16] = val
	}
	return n, nil
}

// decodeRef decodes a child reference: either an embedded node (itself a
// list) or a 32-byte hash pointing into the Database.
func decodeRef(raw []byte) (node, error) {
	kind, content, rest, err := rlp.Split(raw)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trie: trailing bytes in reference")
	}
	if kind == 0xc0 {
		return decodeNode(nil, raw)
	}
	if len(content) == 0 {
		return nil, nil
	}
	if len(content) == 32 {
		return hashNode(content), nil
	}
	return nil, fmt.Errorf("trie: invalid reference length %d", len(content))
}

// decodeValue decodes a value slot: a plain byte string, or absence (nil).
func decodeValue(raw []byte) (node, error) {
	kind, content, rest, err := rlp.Split(raw)
	if err != nil {
		return nil, err
	}
	if kind != 0x80 || len(rest) != 0 {
		return nil, fmt.Errorf("trie: invalid value encoding")
	}
	if len(content) == 0 {
		return nil, nil
	}
	return valueNode(content), nil
}
