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

package types

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

type ecdsaPrivateKeyForTest ecdsa.PrivateKey

func (k *ecdsaPrivateKeyForTest) priv() *ecdsa.PrivateKey { return (*ecdsa.PrivateKey)(k) }

func testAddr() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000aa")
}

func encodeTx(tx *Transaction) ([]byte, error) { return rlp.EncodeToBytes(tx) }

func testKey(t *testing.T) *ecdsaPrivateKeyForTest {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return (*ecdsaPrivateKeyForTest)(key)
}

func TestTransactionSignAndRecoverFrontier(t *testing.T) {
	key := testKey(t)
	tx := NewTransaction(1, testAddr(), big.NewInt(100), 21000, big.NewInt(1), nil)

	signed, err := SignTx(tx, FrontierSigner{}, key.priv())
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	from, err := Sender(FrontierSigner{}, signed)
	if err != nil {
		t.Fatalf("Sender: %v", err)
	}
	want := crypto.PubkeyToAddress(key.priv().PublicKey)
	if from != want {
		t.Fatalf("recovered sender %x != expected %x", from, want)
	}
}

func TestTransactionSignAndRecoverEIP155(t *testing.T) {
	key := testKey(t)
	signer := NewEIP155Signer(big.NewInt(1))
	tx := NewContractCreation(5, big.NewInt(5), 100000, big.NewInt(3), []byte{0x01})

	signed, err := SignTx(tx, signer, key.priv())
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}
	if !signed.Protected() {
		t.Fatalf("EIP-155-signed transaction should be Protected()")
	}
	if signed.ChainId().Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("ChainId() = %v, want 1", signed.ChainId())
	}
	from, err := Sender(signer, signed)
	if err != nil {
		t.Fatalf("Sender: %v", err)
	}
	want := crypto.PubkeyToAddress(key.priv().PublicKey)
	if from != want {
		t.Fatalf("recovered sender %x != expected %x", from, want)
	}
}

func TestTransactionRoundTripRLP(t *testing.T) {
	key := testKey(t)
	signer := NewEIP155Signer(big.NewInt(1))
	tx := NewTransaction(7, testAddr(), big.NewInt(42), 90000, big.NewInt(2), []byte("hello"))
	signed, err := SignTx(tx, signer, key.priv())
	if err != nil {
		t.Fatalf("SignTx: %v", err)
	}

	var buf []byte
	if buf, err = encodeTx(signed); err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeTransactionRLP(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Hash() != signed.Hash() {
		t.Fatalf("round-tripped transaction hash mismatch: %x != %x", decoded.Hash(), signed.Hash())
	}
	fromOrig, _ := Sender(signer, signed)
	fromDecoded, _ := Sender(signer, decoded)
	if fromOrig != fromDecoded {
		t.Fatalf("round-tripped transaction sender mismatch")
	}
}
