// Copyright 2014 The go-ethereum Authors
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

import "fmt"

// node is implemented by fullNode, shortNode, hashNode and valueNode.
//
// In-memory dirty nodes hold direct child pointers ("arena" in the sense of
// spec.md §9: the in-process node graph, garbage-collected by Go rather than
// by an explicit index); a child that has already been committed is
// replaced by a hashNode reference once Commit walks the graph.
type node interface {
	fstring(string) string
	cacheHash() hashNode
}

type (
	// fullNode is a branch: 16 nibble-indexed children plus a value slot.
	fullNode struct {
		Children [17]node
		hash     hashNode
	}

	// shortNode is a leaf or extension: Key holds hex nibbles with the
	// hex-prefix terminator semantics of encoding.go, Val is either a
	// valueNode (leaf) or another node (extension).
	shortNode struct {
		Key  []byte
		Val  node
		hash hashNode
	}

	// hashNode is an unresolved 32-byte reference to a node in the backing
	// store.
	hashNode []byte

	// valueNode is a leaf's raw (already RLP-encoded, per spec.md §4.1)
	// value.
	valueNode []byte
)

func (n *fullNode) cacheHash() hashNode  { return n.hash }
func (n *shortNode) cacheHash() hashNode { return n.hash }
func (n hashNode) cacheHash() hashNode   { return nil }
func (n valueNode) cacheHash() hashNode  { return nil }

func (n *fullNode) copy() *fullNode {
	cp := *n
	return &cp
}

func (n *shortNode) copy() *shortNode {
	cp := *n
	return &cp
}

func (n *fullNode) fstring(ind string) string {
	resp := fmt.Sprintf("[\n%s  ", ind)
	for i, child := range n.Children {
		if child == nil {
			resp += fmt.Sprintf("%s: <nil> ", indices[i])
			continue
		}
		resp += fmt.Sprintf("%s: %v", indices[i], child.fstring(ind+"  "))
	}
	return resp + fmt.Sprintf("\n%s] ", ind)
}

func (n *shortNode) fstring(ind string) string {
	return fmt.Sprintf("{%x: %v} ", n.Key, n.Val.fstring(ind+"  "))
}

func (n hashNode) fstring(ind string) string  { return fmt.Sprintf("<%x> ", []byte(n)) }
func (n valueNode) fstring(ind string) string { return fmt.Sprintf("%x ", []byte(n)) }

var indices = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "a", "b", "c", "d", "e", "f", "[17]"}
