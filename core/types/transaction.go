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
	"errors"
	"io"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrInvalidSig is returned when a transaction's signature values fail the
// secp256k1 group-order / low-s checks (spec.md §3's transaction
// invariants).
var ErrInvalidSig = errors.New("types: invalid transaction v, r, s values")

// txdata is the RLP shape of a transaction (spec.md §3): nonce, gas price,
// gas limit, recipient (nil for contract creation), value, data/init
// payload, and the ECDSA triplet. Recipient is *common.Address so "contract
// creation" (empty `to`) round-trips as the RLP empty string rather than
// the 20 zero bytes of the zero address.
type txdata struct {
	AccountNonce uint64          `json:"nonce"`
	Price        *big.Int        `json:"gasPrice"`
	GasLimit     uint64          `json:"gas"`
	Recipient    *common.Address `json:"to" rlp:"nil"`
	Amount       *big.Int        `json:"value"`
	Payload      []byte          `json:"input"`
	V            *big.Int        `json:"v"`
	R            *big.Int        `json:"r"`
	S            *big.Int        `json:"s"`
}

// Transaction is the signed, wire/storage-encoded transaction (spec.md §3).
// Hash and sender are cached after first computation since both are
// requested repeatedly by the state processor and the downloader.
type Transaction struct {
	data txdata

	hash atomic.Value
	size atomic.Value
	from atomic.Value
}

// NewTransaction builds an unsigned message-call transaction.
func NewTransaction(nonce uint64, to common.Address, amount *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) *Transaction {
	return newTransaction(nonce, &to, amount, gasLimit, gasPrice, data)
}

// NewContractCreation builds an unsigned contract-creation transaction; its
// payload is the `init` code rather than call `data` (spec.md §3).
func NewContractCreation(nonce uint64, amount *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) *Transaction {
	return newTransaction(nonce, nil, amount, gasLimit, gasPrice, data)
}

func newTransaction(nonce uint64, to *common.Address, amount *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte) *Transaction {
	d := txdata{
		AccountNonce: nonce,
		Recipient:    to,
		Payload:      data,
		GasLimit:     gasLimit,
		Price:        new(big.Int),
		Amount:       new(big.Int),
		V:            new(big.Int),
		R:            new(big.Int),
		S:            new(big.Int),
	}
	if amount != nil {
		d.Amount.Set(amount)
	}
	if gasPrice != nil {
		d.Price.Set(gasPrice)
	}
	return &Transaction{data: d}
}

func (tx *Transaction) Nonce() uint64         { return tx.data.AccountNonce }
func (tx *Transaction) GasPrice() *big.Int    { return new(big.Int).Set(tx.data.Price) }
func (tx *Transaction) Gas() uint64           { return tx.data.GasLimit }
func (tx *Transaction) Value() *big.Int       { return new(big.Int).Set(tx.data.Amount) }
func (tx *Transaction) Data() []byte          { return common.CopyBytes(tx.data.Payload) }
func (tx *Transaction) CheckNonce() bool      { return true }

// To returns the recipient, or nil for a contract-creation transaction.
func (tx *Transaction) To() *common.Address {
	if tx.data.Recipient == nil {
		return nil
	}
	to := *tx.data.Recipient
	return &to
}

// ChainId returns the EIP-155 chain-id folded into V, or nil pre-EIP-155.
func (tx *Transaction) ChainId() *big.Int {
	return deriveChainID(tx.data.V)
}

// Protected reports whether the transaction is signed with replay
// protection (EIP-155), spec.md §3: "Post-EIP-155: v encodes chain-id."
func (tx *Transaction) Protected() bool {
	return isProtectedV(tx.data.V)
}

func isProtectedV(v *big.Int) bool {
	if v.BitLen() <= 8 {
		vv := v.Uint64()
		return vv != 27 && vv != 28
	}
	return true
}

// RawSignatureValues returns the raw v, r, s signature fields.
func (tx *Transaction) RawSignatureValues() (v, r, s *big.Int) {
	return tx.data.V, tx.data.R, tx.data.S
}

// Hash returns (and caches) the Keccak-256 hash of the transaction's RLP
// encoding — its identity in the block's transactions root, in receipts,
// and in the "t:" secondary index (spec.md §6).
func (tx *Transaction) Hash() common.Hash {
	if hash := tx.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	h := rlpHash(tx)
	tx.hash.Store(h)
	return h
}

// EncodeRLP implements rlp.Encoder.
func (tx *Transaction) EncodeRLP(w io.Writer) error {
	enc, err := rlp.EncodeToBytes(&tx.data)
	if err != nil {
		return err
	}
	_, err = w.Write(enc)
	return err
}

// DecodeTransactionRLP decodes a transaction from its wire/storage
// encoding, matching this package's whole-buffer decode convention.
func DecodeTransactionRLP(data []byte) (*Transaction, error) {
	var d txdata
	if err := rlp.DecodeBytes(data, &d); err != nil {
		return nil, err
	}
	return &Transaction{data: d}, nil
}

// WithSignature returns a new transaction with the given signature applied,
// computed by signer over this transaction's signing hash.
func (tx *Transaction) WithSignature(signer Signer, sig []byte) (*Transaction, error) {
	r, s, v, err := signer.SignatureValues(tx, sig)
	if err != nil {
		return nil, err
	}
	cpy := &Transaction{data: tx.data}
	cpy.data.V, cpy.data.R, cpy.data.S = v, r, s
	return cpy, nil
}

// AsMessage converts tx into a Message using sender recovered via signer,
// consumed by the state transition (C5).
func (tx *Transaction) AsMessage(signer Signer) (Message, error) {
	msg := Message{
		nonce:      tx.data.AccountNonce,
		gasLimit:   tx.data.GasLimit,
		gasPrice:   new(big.Int).Set(tx.data.Price),
		to:         tx.data.Recipient,
		amount:     tx.data.Amount,
		data:       tx.data.Payload,
		checkNonce: true,
	}
	var err error
	msg.from, err = Sender(signer, tx)
	return msg, err
}

// Transactions implements DerivableList for trie-root construction (§4.6).
type Transactions []*Transaction

func (s Transactions) Len() int { return len(s) }

// GetRlp returns the RLP encoding of the i'th transaction, used as the leaf
// value when building the transactions-root trie (spec.md §4.6: "a trie
// mapping RLP(index) → RLP(trx)").
func (s Transactions) GetRlp(i int) []byte {
	enc, err := rlp.EncodeToBytes(s[i])
	if err != nil {
		panic(err)
	}
	return enc
}

// Message is the sender-resolved view of a transaction the state transition
// operates on (C5), decoupled from signature representation.
type Message struct {
	to         *common.Address
	from       common.Address
	nonce      uint64
	amount     *big.Int
	gasLimit   uint64
	gasPrice   *big.Int
	data       []byte
	checkNonce bool
}

func NewMessage(from common.Address, to *common.Address, nonce uint64, amount *big.Int, gasLimit uint64, gasPrice *big.Int, data []byte, checkNonce bool) Message {
	return Message{
		from:       from,
		to:         to,
		nonce:      nonce,
		amount:     amount,
		gasLimit:   gasLimit,
		gasPrice:   gasPrice,
		data:       data,
		checkNonce: checkNonce,
	}
}

func (m Message) From() common.Address  { return m.from }
func (m Message) To() *common.Address   { return m.to }
func (m Message) GasPrice() *big.Int    { return m.gasPrice }
func (m Message) Value() *big.Int       { return m.amount }
func (m Message) Gas() uint64           { return m.gasLimit }
func (m Message) Nonce() uint64         { return m.nonce }
func (m Message) Data() []byte          { return m.data }
func (m Message) CheckNonce() bool      { return m.checkNonce }

// deriveChainID recovers the EIP-155 chain-id folded into a pre-signed (or
// signed) V value: chain_id = (v - 35) / 2, per spec.md §4.5 step 1. A
// pre-EIP-155 v (27, 28, or the unsigned 0/1 placeholder) has no chain-id.
func deriveChainID(v *big.Int) *big.Int {
	if v.BitLen() <= 8 {
		vv := v.Uint64()
		if vv == 27 || vv == 28 || vv < 2 {
			return new(big.Int)
		}
		return new(big.Int).SetUint64((vv - 35) / 2)
	}
	vv := new(big.Int).Sub(v, big.NewInt(35))
	return vv.Div(vv, big.NewInt(2))
}

// validateSignatureValues checks the secp256k1 group-order and low-s rules
// shared by every Signer implementation.
func validateSignatureValues(v byte, r, s *big.Int, homestead bool) bool {
	return crypto.ValidateSignatureValues(v, r, s, homestead)
}
