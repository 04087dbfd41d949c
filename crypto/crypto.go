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

// Package crypto wraps the secp256k1 and Keccak-256 primitives the rest of
// the module treats as an abstract boundary (spec.md §1): signing and
// recovery are backed by github.com/btcsuite/btcd/btcec/v2, hashing by
// golang.org/x/crypto/sha3.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/sha3"

	"github.com/ethereum/go-ethereum/common"
)

const (
	DigestLength  = 32
	SignatureLength = 64 + 1 // r || s || v
)

var secp256k1N, _ = new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
var secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)

// Keccak256 computes the Keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, b := range data {
		h.Write(b)
	}
	return h.Sum(nil)
}

// Keccak256Hash computes the Keccak-256 digest and returns it as a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return common.BytesToHash(Keccak256(data...))
}

// NewKeccakState returns a fresh Keccak-256 hash.Hash, for callers that need
// a running state across many Write calls (the RLPx frame MAC chain, p2p's
// egress/ingress accumulators) rather than a one-shot digest.
func NewKeccakState() hash.Hash {
	return sha3.NewLegacyKeccak256()
}

// CreateAddress computes the contract address for a CREATE from the sender
// address and its nonce (spec.md §4.5 step 4): low 160 bits of
// Keccak(RLP([sender, nonce])).
func CreateAddress(addr common.Address, nonce uint64) common.Address {
	data, _ := rlpEncodeAddressNonce(addr, nonce)
	return common.BytesToAddress(Keccak256(data)[12:])
}

// CreateAddress2 computes a CREATE2 contract address (EIP-1014): the low
// 160 bits of Keccak(0xff || sender || salt || Keccak(init_code)).
func CreateAddress2(addr common.Address, salt [32]byte, codeHash []byte) common.Address {
	data := append([]byte{0xff}, addr.Bytes()...)
	data = append(data, salt[:]...)
	data = append(data, codeHash...)
	return common.BytesToAddress(Keccak256(data)[12:])
}

// PubkeyToAddress derives the 20-byte address from an uncompressed secp256k1
// public key: the low 160 bits of Keccak256 of the 64-byte X||Y encoding.
func PubkeyToAddress(pub ecdsa.PublicKey) common.Address {
	pubBytes := FromECDSAPub(&pub)
	return common.BytesToAddress(Keccak256(pubBytes[1:])[12:])
}

// FromECDSAPub serializes a public key in the uncompressed 65-byte form
// (0x04 || X || Y).
func FromECDSAPub(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(btcec.S256(), pub.X, pub.Y)
}

// S256 returns the secp256k1 curve used throughout this package.
func S256() elliptic.Curve {
	return btcec.S256()
}

// GenerateKey generates a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(btcec.S256(), rand.Reader)
}

// ToECDSA parses a secp256k1 private key from a 32-byte big-endian scalar.
func ToECDSA(d []byte) (*ecdsa.PrivateKey, error) {
	if len(d) != 32 {
		return nil, fmt.Errorf("crypto: invalid private key length %d", len(d))
	}
	priv := new(ecdsa.PrivateKey)
	priv.PublicKey.Curve = btcec.S256()
	priv.D = new(big.Int).SetBytes(d)
	if priv.D.Cmp(secp256k1N) >= 0 || priv.D.Sign() == 0 {
		return nil, errors.New("crypto: invalid private key, not in [1, N-1]")
	}
	priv.PublicKey.X, priv.PublicKey.Y = btcec.S256().ScalarBaseMult(d)
	if priv.PublicKey.X == nil {
		return nil, errors.New("crypto: invalid private key")
	}
	return priv, nil
}

// FromECDSA serializes the private key's D value as 32 big-endian bytes.
func FromECDSA(priv *ecdsa.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	return common.LeftPadBytes(priv.D.Bytes(), 32)
}

// LoadECDSA loads a hex-encoded secp256k1 private key from file, the node
// identity key cmd/gnode persists across restarts so a node's enode id
// stays stable.
func LoadECDSA(file string) (*ecdsa.PrivateKey, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	d, err := hex.DecodeString(strings.TrimSpace(string(buf)))
	if err != nil {
		return nil, fmt.Errorf("crypto: malformed key file %s: %w", file, err)
	}
	return ToECDSA(d)
}

// SaveECDSA writes priv to file as hex, creating it with owner-only
// permissions since it is the node's long-term identity secret.
func SaveECDSA(file string, priv *ecdsa.PrivateKey) error {
	return os.WriteFile(file, []byte(hex.EncodeToString(FromECDSA(priv))), 0600)
}

// Sign computes an ECDSA signature over a 32-byte digest, returning the
// 65-byte r||s||v encoding used by Ethereum transactions and the RLPx
// handshake (recovery id v in {0,1}).
func Sign(digestHash []byte, prv *ecdsa.PrivateKey) ([]byte, error) {
	if len(digestHash) != DigestLength {
		return nil, fmt.Errorf("crypto: hash is required to be exactly %d bytes (%d)", DigestLength, len(digestHash))
	}
	key := toBtcecPriv(prv)
	sig, err := signCompact(key, digestHash)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// Ecrecover recovers the uncompressed public key (65 bytes) associated with
// the signature over digestHash.
func Ecrecover(digestHash, sig []byte) ([]byte, error) {
	pub, err := SigToPub(digestHash, sig)
	if err != nil {
		return nil, err
	}
	return FromECDSAPub(pub), nil
}

// SigToPub recovers the public key from a 65-byte r||s||v signature.
func SigToPub(digestHash, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != SignatureLength {
		return nil, errors.New("crypto: invalid signature length")
	}
	return recoverCompact(digestHash, sig)
}

// ValidateSignatureValues enforces the low-s rule (homestead forward) and
// the group-order bound required by spec.md §3's transaction invariants.
func ValidateSignatureValues(v byte, r, s *big.Int, homestead bool) bool {
	if r.Sign() <= 0 || s.Sign() <= 0 {
		return false
	}
	if r.Cmp(secp256k1N) >= 0 || s.Cmp(secp256k1N) >= 0 {
		return false
	}
	if homestead && s.Cmp(secp256k1HalfN) > 0 {
		return false
	}
	return v == 0 || v == 1
}
