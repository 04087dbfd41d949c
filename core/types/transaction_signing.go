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

package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// sigCache memoizes a transaction's recovered sender keyed by the Signer
// that recovered it, so re-validating the same transaction against the
// same chain config (the common case during sync) does not repeat an
// ECDSA recovery.
type sigCache struct {
	signer Signer
	from   common.Address
}

// Signer encapsulates transaction signature handling. The initial
// implementation (FrontierSigner) covers unprotected (v ∈ {27,28})
// signatures; EIP155Signer adds chain-id replay protection (spec.md §3,
// §4.5 step 1). MakeSigner selects the right one for a given fork config
// and block number (spec.md §4.11: "every consensus-critical decision...
// consults this object").
type Signer interface {
	// Sender returns the sender address of the transaction.
	Sender(tx *Transaction) (common.Address, error)
	// SignatureValues returns the raw R, S, V values from a signature made
	// with the Sign method.
	SignatureValues(tx *Transaction, sig []byte) (r, s, v *big.Int, err error)
	// Hash returns the signing hash of the transaction (spec.md §4.5 step
	// 1's "signing hash" RLP structure).
	Hash(tx *Transaction) common.Hash
	// Equal reports whether two signers produce identical output for the
	// same transaction.
	Equal(Signer) bool
}

// MakeSigner selects a Signer for blockNumber under config, per spec.md
// §4.11.
func MakeSigner(config *params.ChainConfig, blockNumber *big.Int) Signer {
	if config.IsEIP155(blockNumber) {
		return NewEIP155Signer(config.ChainID)
	}
	return FrontierSigner{}
}

// SignTx signs tx with prv using signer, returning the signed transaction.
func SignTx(tx *Transaction, s Signer, prv *ecdsa.PrivateKey) (*Transaction, error) {
	h := s.Hash(tx)
	sig, err := crypto.Sign(h[:], prv)
	if err != nil {
		return nil, err
	}
	return tx.WithSignature(s, sig)
}

// Sender returns the address derived from the transaction's signature,
// consulting and populating tx's sender cache.
func Sender(signer Signer, tx *Transaction) (common.Address, error) {
	if sc := tx.from.Load(); sc != nil {
		cache := sc.(sigCache)
		if cache.signer.Equal(signer) {
			return cache.from, nil
		}
	}
	addr, err := signer.Sender(tx)
	if err != nil {
		return common.Address{}, err
	}
	tx.from.Store(sigCache{signer: signer, from: addr})
	return addr, nil
}

// FrontierSigner implements the pre-EIP-155 signing scheme: v ∈ {27, 28},
// no chain-id folded in.
type FrontierSigner struct{}

func (s FrontierSigner) Equal(s2 Signer) bool {
	_, ok := s2.(FrontierSigner)
	return ok
}

// Hash computes spec.md §4.5 step 1's pre-EIP-155 signing hash:
// Keccak(RLP([nonce, gas_price, gas_limit, to, value, data])).
func (s FrontierSigner) Hash(tx *Transaction) common.Hash {
	return rlpHash([]interface{}{
		tx.data.AccountNonce,
		tx.data.Price,
		tx.data.GasLimit,
		tx.data.Recipient,
		tx.data.Amount,
		tx.data.Payload,
	})
}

func (s FrontierSigner) SignatureValues(tx *Transaction, sig []byte) (r, sVal, v *big.Int, err error) {
	return frontierSignatureValues(sig)
}

func frontierSignatureValues(sig []byte) (r, s, v *big.Int, err error) {
	if len(sig) != 65 {
		return nil, nil, nil, fmt.Errorf("wrong size for signature: got %d, want 65", len(sig))
	}
	r = new(big.Int).SetBytes(sig[:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetBytes([]byte{sig[64] + 27})
	return r, s, v, nil
}

func (s FrontierSigner) Sender(tx *Transaction) (common.Address, error) {
	v, r, sVal := tx.data.V, tx.data.R, tx.data.S
	if v.BitLen() > 8 {
		return common.Address{}, ErrInvalidSig
	}
	vByte := byte(v.Uint64() - 27)
	if !validateSignatureValues(vByte, r, sVal, false) {
		return common.Address{}, ErrInvalidSig
	}
	h := s.Hash(tx)
	return recoverPlain(h, r, sVal, vByte)
}

// EIP155Signer implements the chain-id replay-protection scheme (spec.md
// §3 "Post-EIP-155: v encodes chain-id").
type EIP155Signer struct {
	chainId, chainIdMul *big.Int
}

func NewEIP155Signer(chainId *big.Int) EIP155Signer {
	if chainId == nil {
		chainId = new(big.Int)
	}
	return EIP155Signer{chainId: chainId, chainIdMul: new(big.Int).Mul(chainId, big.NewInt(2))}
}

func (s EIP155Signer) Equal(s2 Signer) bool {
	other, ok := s2.(EIP155Signer)
	return ok && other.chainId.Cmp(s.chainId) == 0
}

// Hash computes spec.md §4.5 step 1's EIP-155 signing hash:
// Keccak(RLP([nonce, gas_price, gas_limit, to, value, data, chain_id, 0, 0])).
func (s EIP155Signer) Hash(tx *Transaction) common.Hash {
	return rlpHash([]interface{}{
		tx.data.AccountNonce,
		tx.data.Price,
		tx.data.GasLimit,
		tx.data.Recipient,
		tx.data.Amount,
		tx.data.Payload,
		s.chainId, uint(0), uint(0),
	})
}

func (s EIP155Signer) SignatureValues(tx *Transaction, sig []byte) (r, sVal, v *big.Int, err error) {
	r, sVal, v, err = frontierSignatureValues(sig)
	if err != nil {
		return nil, nil, nil, err
	}
	if s.chainId.Sign() != 0 {
		v = big.NewInt(int64(sig[64] + 35))
		v.Add(v, s.chainIdMul)
	}
	return r, sVal, v, nil
}

func (s EIP155Signer) Sender(tx *Transaction) (common.Address, error) {
	if !tx.Protected() {
		return FrontierSigner{}.Sender(tx)
	}
	if tx.ChainId().Cmp(s.chainId) != 0 {
		return common.Address{}, fmt.Errorf("types: transaction chain id mismatch: have %v want %v", tx.ChainId(), s.chainId)
	}
	v := new(big.Int).Sub(tx.data.V, s.chainIdMul)
	v.Sub(v, big.NewInt(35))
	if v.BitLen() > 8 {
		return common.Address{}, ErrInvalidSig
	}
	vByte := byte(v.Uint64())
	r, sVal := tx.data.R, tx.data.S
	if !validateSignatureValues(vByte, r, sVal, true) {
		return common.Address{}, ErrInvalidSig
	}
	h := s.Hash(tx)
	return recoverPlain(h, r, sVal, vByte)
}

func recoverPlain(sighash common.Hash, r, s *big.Int, v byte) (common.Address, error) {
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, ErrInvalidSig
	}
	sig := make([]byte, 65)
	copy(sig[32-len(r.Bytes()):32], r.Bytes())
	copy(sig[64-len(s.Bytes()):64], s.Bytes())
	sig[64] = v
	pub, err := crypto.Ecrecover(sighash[:], sig)
	if err != nil {
		return common.Address{}, err
	}
	if len(pub) == 0 || pub[0] != 4 {
		return common.Address{}, errors.New("types: invalid public key")
	}
	var addr common.Address
	copy(addr[:], crypto.Keccak256(pub[1:])[12:])
	return addr, nil
}
