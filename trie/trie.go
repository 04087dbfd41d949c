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

// Package trie implements the Merkle-Patricia trie (spec.md §4.1, C1): an
// authenticated key-value map whose root hash is part of Ethereum consensus.
package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// emptyRoot is the root hash of a trie holding no key/value pairs:
// Keccak(RLP("")).
var emptyRoot = crypto.Keccak256Hash([]byte{0x80})

// EmptyRoot returns the canonical empty-trie root hash.
func EmptyRoot() common.Hash { return emptyRoot }

// ErrMissingNode is returned when a hash referenced from a resolved node is
// absent from the backing store — a logical inconsistency (spec.md §7),
// fatal to the caller rather than a validation failure.
var ErrMissingNode = errors.New("trie: missing node in database")

// Trie is a Merkle-Patricia trie rooted at Root() and backed by db. The
// zero value is not valid; use New.
type Trie struct {
	db   *Database
	root node
}

// New opens a trie with the given root. A zero root (or the empty-trie
// root) yields a trie with no entries — this is how subtrie(root) from
// spec.md §4.1 is implemented: the same Database is shared by every
// per-account storage trie, so subtrees are naturally deduplicated.
func New(root common.Hash, db *Database) (*Trie, error) {
	t := &Trie{db: db}
	if root != (common.Hash{}) && root != emptyRoot {
		t.root = hashNode(root.Bytes())
	}
	return t, nil
}

// Database returns the trie's backing node store.
func (t *Trie) Database() *Database { return t.db }

// Get returns the value stored for key, or nil if key is absent.
func (t *Trie) Get(key []byte) []byte {
	v, newroot, didResolve, err := t.get(t.root, keybytesToHex(key), 0)
	if err != nil {
		return nil
	}
	if didResolve {
		t.root = newroot
	}
	return v
}

// TryGet is Get with an explicit error for a missing backing-store node.
func (t *Trie) TryGet(key []byte) ([]byte, error) {
	v, newroot, didResolve, err := t.get(t.root, keybytesToHex(key), 0)
	if didResolve {
		t.root = newroot
	}
	return v, err
}

func (t *Trie) get(origNode node, key []byte, pos int) (value []byte, newnode node, didResolve bool, err error) {
	switch n := origNode.(type) {
	case nil:
		return nil, nil, false, nil
	case valueNode:
		return []byte(n), n, false, nil
	case *shortNode:
		if len(key)-pos < len(n.Key) || !bytes.Equal(n.Key, key[pos:pos+len(n.Key)]) {
			return nil, n, false, nil
		}
		value, newnode, didResolve, err = t.get(n.Val, key, pos+len(n.Key))
		if err == nil && didResolve {
			n = n.copy()
			n.Val = newnode
		}
		return value, n, didResolve, err
	case *fullNode:
		value, newnode, didResolve, err = t.get(n.Children[key[pos]], key, pos+1)
		if err == nil && didResolve {
			n = n.copy()
			n.Children[key[pos]] = newnode
		}
		return value, n, didResolve, err
	case hashNode:
		child, err := t.resolveHash(n)
		if err != nil {
			return nil, n, true, err
		}
		value, newnode, _, err := t.get(child, key, pos)
		return value, newnode, true, err
	default:
		panic(fmt.Sprintf("trie: unexpected node type %T", origNode))
	}
}

func (t *Trie) resolveHash(n hashNode) (node, error) {
	enc, err := t.db.Get(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %x (%v)", ErrMissingNode, []byte(n), err)
	}
	return decodeNode(n, enc)
}

// Update associates key with value, per spec.md §4.1's `put`. Storing a
// value that RLP-encodes to the empty string is equivalent to Delete —
// spec.md: "the empty RLP-encoded value is equivalent to deletion".
func (t *Trie) Update(key, value []byte) {
	if err := t.TryUpdate(key, value); err != nil {
		panic(err)
	}
}

func (t *Trie) TryUpdate(key, value []byte) error {
	k := keybytesToHex(key)
	if len(value) != 0 {
		_, n, err := t.insert(t.root, nil, k, valueNode(value))
		if err != nil {
			return err
		}
		t.root = n
		return nil
	}
	_, n, err := t.delete(t.root, nil, k)
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *Trie) insert(n node, prefix, key []byte, value node) (bool, node, error) {
	if len(key) == 0 {
		if v, ok := n.(valueNode); ok {
			return !bytes.Equal(v, value.(valueNode)), value, nil
		}
		return true, value, nil
	}
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen == len(n.Key) {
			dirty, nn, err := t.insert(n.Val, append(prefix, key[:matchlen]...), key[matchlen:], value)
			if !dirty || err != nil {
				return false, n, err
			}
			return true, &shortNode{Key: n.Key, Val: nn}, nil
		}
		branch := &fullNode{}
		var err error
		_, branch.Children[n.Key[matchlen]], err = t.insert(nil, append(prefix, n.Key[:matchlen+1]...), n.Key[matchlen+1:], n.Val)
		if err != nil {
			return false, nil, err
		}
		_, branch.Children[key[matchlen]], err = t.insert(nil, append(prefix, key[:matchlen+1]...), key[matchlen+1:], value)
		if err != nil {
			return false, nil, err
		}
		if matchlen == 0 {
			return true, branch, nil
		}
		return true, &shortNode{Key: key[:matchlen], Val: branch}, nil

	case *fullNode:
		dirty, nn, err := t.insert(n.Children[key[0]], append(prefix, key[0]), key[1:], value)
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.Children[key[0]] = nn
		return true, n, nil

	case nil:
		return true, &shortNode{Key: append([]byte{}, key...), Val: value}, nil

	case hashNode:
		child, err := t.resolveHash(n)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.insert(child, prefix, key, value)
		if !dirty || err != nil {
			return false, n, err
		}
		return true, nn, nil

	default:
		panic(fmt.Sprintf("trie: unexpected node type %T", n))
	}
}

// Delete removes key from the trie; deleting an absent key is a no-op.
func (t *Trie) Delete(key []byte) {
	if err := t.TryDelete(key); err != nil {
		panic(err)
	}
}

func (t *Trie) TryDelete(key []byte) error {
	k := keybytesToHex(key)
	_, n, err := t.delete(t.root, nil, k)
	if err != nil {
		return err
	}
	t.root = n
	return nil
}

func (t *Trie) delete(n node, prefix, key []byte) (bool, node, error) {
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		if matchlen < len(n.Key) {
			return false, n, nil
		}
		if matchlen == len(key) {
			return true, nil, nil
		}
		dirty, child, err := t.delete(n.Val, append(prefix, key[:len(n.Key)]...), key[len(n.Key):])
		if !dirty || err != nil {
			return false, n, err
		}
		switch child := child.(type) {
		case *shortNode:
			return true, &shortNode{Key: concat(n.Key, child.Key...), Val: child.Val}, nil
		default:
			return true, &shortNode{Key: n.Key, Val: child}, nil
		}

	case *fullNode:
		dirty, nn, err := t.delete(n.Children[key[0]], append(prefix, key[0]), key[1:])
		if !dirty || err != nil {
			return false, n, err
		}
		n = n.copy()
		n.Children[key[0]] = nn

		pos := -1
		for i, child := range &n.Children {
			if child != nil {
				if pos == -1 {
					pos = i
				} else {
					pos = -2
					break
				}
			}
		}
		if pos >= 0 {
			if pos != 16 {
				cnode, err := t.resolve(n.Children[pos], prefix)
				if err != nil {
					return false, nil, err
				}
				if cnode, ok := cnode.(*shortNode); ok {
					k := append([]byte{byte(pos)}, cnode.Key...)
					return true, &shortNode{Key: k, Val: cnode.Val}, nil
				}
			}
			return true, &shortNode{Key: []byte{byte(pos)}, Val: n.Children[pos]}, nil
		}
		return true, n, nil

	case valueNode:
		return true, nil, nil

	case nil:
		return false, nil, nil

	case hashNode:
		child, err := t.resolveHash(n)
		if err != nil {
			return false, nil, err
		}
		dirty, nn, err := t.delete(child, prefix, key)
		if !dirty || err != nil {
			return false, n, err
		}
		return true, nn, nil

	default:
		panic(fmt.Sprintf("trie: unexpected node type %T", n))
	}
}

func (t *Trie) resolve(n node, prefix []byte) (node, error) {
	if hn, ok := n.(hashNode); ok {
		return t.resolveHash(hn)
	}
	return n, nil
}

func concat(s1 []byte, s2 ...byte) []byte {
	r := make([]byte, len(s1)+len(s2))
	copy(r, s1)
	copy(r[len(s1):], s2)
	return r
}

// Hash returns the trie's current root hash without writing anything to the
// backing store.
func (t *Trie) Hash() common.Hash {
	if t.root == nil {
		return emptyRoot
	}
	h := newHasher()
	enc := h.hash(t.root)
	return crypto.Keccak256Hash(enc)
}

// Commit hashes every dirty node bottom-up, stages the (hash, encoding)
// pairs, flushes them to the backing Database in one batch, and collapses
// the in-memory tree to a single hashNode reference (spec.md §4.1's
// `commit`).
func (t *Trie) Commit() (common.Hash, error) {
	if t.root == nil {
		return emptyRoot, nil
	}
	h := newHasher()
	enc := h.hash(t.root)
	root := crypto.Keccak256(enc)
	h.pending[string(root)] = enc
	t.db.insert(h.pending)
	if err := t.db.Flush(); err != nil {
		return common.Hash{}, err
	}
	t.root = hashNode(root)
	return common.BytesToHash(root), nil
}

// Copy returns a trie sharing t's Database and current root node. The node
// graph is not cloned; the two tries still evolve independently because
// insert, delete and get never change a node in place (they build or copy
// a node before modifying it).
func (t *Trie) Copy() *Trie {
	return &Trie{db: t.db, root: t.root}
}
