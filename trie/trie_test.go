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

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

func newEmpty(t *testing.T) *Trie {
	t.Helper()
	db := NewDatabase(memorydb.New())
	tr, err := New(common.Hash{}, db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestEmptyTrieHashIsCanonical(t *testing.T) {
	tr := newEmpty(t)
	if tr.Hash() != emptyRoot {
		t.Fatalf("empty trie hash %x != canonical empty root %x", tr.Hash(), emptyRoot)
	}
	root, err := tr.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if root != emptyRoot {
		t.Fatalf("committed empty trie root %x != canonical empty root %x", root, emptyRoot)
	}
}

func TestGetMissingKey(t *testing.T) {
	tr := newEmpty(t)
	tr.Update([]byte("somekey"), []byte("value"))
	if v := tr.Get([]byte("nosuchkey")); v != nil {
		t.Fatalf("expected nil for missing key, got %x", v)
	}
}

func TestUpdateAndGet(t *testing.T) {
	tr := newEmpty(t)
	pairs := map[string]string{
		"doe":        "reindeer",
		"dog":        "puppy",
		"dogglesworth": "cat",
	}
	for k, v := range pairs {
		tr.Update([]byte(k), []byte(v))
	}
	for k, v := range pairs {
		got := tr.Get([]byte(k))
		if !bytes.Equal(got, []byte(v)) {
			t.Fatalf("Get(%q) = %q, want %q", k, got, v)
		}
	}
}

// TestDeleteRestoresOriginal checks delete(put(t,k,v),k) == t for a key
// that was absent before the put, across a tree already holding other keys.
func TestDeleteRestoresOriginal(t *testing.T) {
	tr := newEmpty(t)
	base := map[string]string{
		"alpha": "1",
		"beta":  "2",
		"gamma": "3",
	}
	for k, v := range base {
		tr.Update([]byte(k), []byte(v))
	}
	before := tr.Hash()

	tr.Update([]byte("delta"), []byte("4"))
	if tr.Hash() == before {
		t.Fatalf("hash unchanged after inserting a new key")
	}

	tr.Delete([]byte("delta"))
	after := tr.Hash()
	if after != before {
		t.Fatalf("delete(put(t,k,v),k) != t: got %x, want %x", after, before)
	}
}

func TestDeleteThenGetIsNil(t *testing.T) {
	tr := newEmpty(t)
	tr.Update([]byte("key"), []byte("value"))
	tr.Delete([]byte("key"))
	if v := tr.Get([]byte("key")); v != nil {
		t.Fatalf("expected nil after delete, got %x", v)
	}
}

// TestUpdateEmptyValueDeletes checks that storing a zero-length value is
// equivalent to deletion, matching the storage-subtrie zero-word rule.
func TestUpdateEmptyValueDeletes(t *testing.T) {
	tr := newEmpty(t)
	tr.Update([]byte("key"), []byte("value"))
	tr.Update([]byte("key"), []byte{})
	if v := tr.Get([]byte("key")); v != nil {
		t.Fatalf("expected nil after empty-value update, got %x", v)
	}
}

func TestCommitPersistsAcrossReopen(t *testing.T) {
	db := NewDatabase(memorydb.New())
	tr, err := New(common.Hash{}, db)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr.Update([]byte("foo"), []byte("bar"))
	tr.Update([]byte("food"), []byte("bars"))
	root, err := tr.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	reopened, err := New(root, db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if v := reopened.Get([]byte("foo")); !bytes.Equal(v, []byte("bar")) {
		t.Fatalf("Get(foo) after reopen = %q, want bar", v)
	}
	if v := reopened.Get([]byte("food")); !bytes.Equal(v, []byte("bars")) {
		t.Fatalf("Get(food) after reopen = %q, want bars", v)
	}
}

// TestSecureTrieAccountIndependence is the storage-subtrie independence
// property: deleting account A's storage must not affect account B's
// storage even when their storage roots were equal beforehand, because the
// same Database content-addresses both subtrees by hash and neither subtree
// holds a back-reference to the account that pointed at it.
func TestSecureTrieAccountIndependence(t *testing.T) {
	db := NewDatabase(memorydb.New())

	storageA, err := NewSecure(common.Hash{}, db)
	if err != nil {
		t.Fatalf("NewSecure A: %v", err)
	}
	storageA.Update([]byte{0x01}, []byte("slotvalue"))
	rootA, err := storageA.Commit()
	if err != nil {
		t.Fatalf("commit A: %v", err)
	}

	storageB, err := NewSecure(rootA, db)
	if err != nil {
		t.Fatalf("NewSecure B: %v", err)
	}
	if storageB.Hash() != rootA {
		t.Fatalf("B's initial root %x != A's root %x", storageB.Hash(), rootA)
	}

	storageA.Delete([]byte{0x01})
	if _, err := storageA.Commit(); err != nil {
		t.Fatalf("commit A after delete: %v", err)
	}

	if got := storageB.Get([]byte{0x01}); !bytes.Equal(got, []byte("slotvalue")) {
		t.Fatalf("B's value for shared key changed after A's delete: got %q", got)
	}
	if storageB.Hash() != rootA {
		t.Fatalf("B's root changed after A's delete: %x != %x", storageB.Hash(), rootA)
	}
}

func TestSecureTrieGetKeyRecoversPreimage(t *testing.T) {
	db := NewDatabase(memorydb.New())
	tr, err := NewSecure(common.Hash{}, db)
	if err != nil {
		t.Fatalf("NewSecure: %v", err)
	}
	key := []byte("preimage-key")
	tr.Update(key, []byte("value"))

	hashed := tr.hashKey(key)
	got := tr.GetKey(hashed)
	if !bytes.Equal(got, key) {
		t.Fatalf("GetKey = %q, want %q", got, key)
	}
}

func TestBranchCollapseOnDelete(t *testing.T) {
	tr := newEmpty(t)
	// Two keys sharing a nibble prefix force a branch node; deleting one
	// must collapse the branch back down rather than leaving a one-child
	// fullNode in the tree.
	tr.Update([]byte{0x11, 0x11}, []byte("a"))
	tr.Update([]byte{0x11, 0x22}, []byte("b"))
	tr.Delete([]byte{0x11, 0x22})

	single := newEmpty(t)
	single.Update([]byte{0x11, 0x11}, []byte("a"))

	if tr.Hash() != single.Hash() {
		t.Fatalf("collapsed trie hash %x != single-entry trie hash %x", tr.Hash(), single.Hash())
	}
}
