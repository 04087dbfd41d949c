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

package crypto

import (
	"bytes"
	"math/big"
	"testing"
)

func TestSignAndRecover(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := Keccak256([]byte("sign and recover this"))
	sig, err := Sign(msg, key)
	if err != nil {
		t.Fatal(err)
	}
	recovered, err := Ecrecover(msg, sig)
	if err != nil {
		t.Fatal(err)
	}
	want := FromECDSAPub(&key.PublicKey)
	if !bytes.Equal(recovered, want) {
		t.Fatalf("recovered pubkey mismatch:\ngot  %x\nwant %x", recovered, want)
	}
}

func TestCreateAddressDeterministic(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	sender := PubkeyToAddress(key.PublicKey)
	a := CreateAddress(sender, 5)
	b := CreateAddress(sender, 5)
	if a != b {
		t.Fatalf("CreateAddress is not deterministic")
	}
	if a == CreateAddress(sender, 6) {
		t.Fatalf("CreateAddress collided across nonces")
	}
}

func TestKeccak256HashLength(t *testing.T) {
	h := Keccak256Hash([]byte("hello"))
	if len(h.Bytes()) != 32 {
		t.Fatalf("expected 32-byte digest, got %d", len(h.Bytes()))
	}
	if Keccak256Hash([]byte("hello")) != h {
		t.Fatalf("Keccak256Hash is not deterministic")
	}
}

func TestValidateSignatureValues(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := Keccak256([]byte("validate me"))
	sig, err := Sign(msg, key)
	if err != nil {
		t.Fatal(err)
	}
	r := new(big.Int).SetBytes(sig[0:32])
	s := new(big.Int).SetBytes(sig[32:64])
	if !ValidateSignatureValues(sig[64], r, s, true) {
		t.Fatalf("expected freshly produced signature to validate")
	}
}
