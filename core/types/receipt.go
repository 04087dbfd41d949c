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
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// Receipt status values (spec.md §3: "Byzantium+: 0/1 status").
const (
	ReceiptStatusFailed     = uint64(0)
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt is the execution outcome of one transaction (spec.md §3). Its
// PostState field carries a pre-Byzantium intermediate state root when
// len(PostState) != 0, or is empty once the Byzantium status byte
// (§4.5 step 8 / §4.11 "Byzantium receipt-status rule") takes over — the
// two representations are mutually exclusive and distinguished only by
// which one is populated, matching the teacher's homesteadReceiptRLP/
// byzantiumReceiptRLP split collapsed into one struct for a single
// implementation.
type Receipt struct {
	PostState         []byte `json:"root"`
	Status            uint64 `json:"status"`
	CumulativeGasUsed uint64 `json:"cumulativeGasUsed"`
	Bloom             Bloom  `json:"logsBloom"`
	Logs              []*Log `json:"logs"`

	TxHash          common.Hash    `json:"transactionHash" rlp:"-"`
	ContractAddress common.Address `json:"contractAddress" rlp:"-"`
	GasUsed         uint64         `json:"gasUsed" rlp:"-"`
}

// NewReceipt creates a pre-Byzantium receipt carrying an intermediate state
// root; with a nil or empty root the receipt encodes its Byzantium status
// byte instead (see statusEncoding).
func NewReceipt(root []byte, failed bool, cumulativeGasUsed uint64) *Receipt {
	r := &Receipt{PostState: common.CopyBytes(root), CumulativeGasUsed: cumulativeGasUsed}
	if failed {
		r.Status = ReceiptStatusFailed
	} else {
		r.Status = ReceiptStatusSuccessful
	}
	return r
}

// statusEncoding returns the consensus byte-string value written for the
// post-state/status slot, implementing spec.md §4.11's Byzantium
// receipt-status rule: after Byzantium a receipt carries a 0/1 status
// instead of an intermediate root.
func (r *Receipt) statusEncoding() []byte {
	if len(r.PostState) == 0 {
		if r.Status == ReceiptStatusFailed {
			return nil
		}
		return []byte{1}
	}
	return r.PostState
}

// receiptRLP is the consensus encoding: [postStateOrStatus, cumulativeGasUsed, bloom, logs].
type receiptRLP struct {
	PostStateOrStatus []byte
	CumulativeGasUsed uint64
	Bloom             Bloom
	Logs              []*Log
}

func (r *Receipt) EncodeRLP(w io.Writer) error {
	enc, err := rlp.EncodeToBytes(&receiptRLP{
		PostStateOrStatus: r.statusEncoding(),
		CumulativeGasUsed: r.CumulativeGasUsed,
		Bloom:             r.Bloom,
		Logs:              r.Logs,
	})
	if err != nil {
		return err
	}
	_, err = w.Write(enc)
	return err
}

// DecodeReceiptRLP decodes a receipt from its storage encoding, restoring
// PostState/Status from whichever representation was written.
func DecodeReceiptRLP(data []byte) (*Receipt, error) {
	var dec receiptRLP
	if err := rlp.DecodeBytes(data, &dec); err != nil {
		return nil, err
	}
	r := &Receipt{
		CumulativeGasUsed: dec.CumulativeGasUsed,
		Bloom:             dec.Bloom,
		Logs:              dec.Logs,
	}
	switch len(dec.PostStateOrStatus) {
	case 0:
		r.Status = ReceiptStatusFailed
	case 1:
		if dec.PostStateOrStatus[0] != 1 {
			return nil, errors.New("types: invalid receipt status byte")
		}
		r.Status = ReceiptStatusSuccessful
	case 32:
		r.PostState = dec.PostStateOrStatus
	default:
		return nil, fmt.Errorf("types: invalid receipt post-state/status length %d", len(dec.PostStateOrStatus))
	}
	return r, nil
}

// Receipts implements DerivableList for trie-root construction (§4.6).
type Receipts []*Receipt

func (rs Receipts) Len() int { return len(rs) }

// GetRlp returns the RLP encoding of the i'th receipt, used as the leaf
// value when building the receipts-root trie.
func (rs Receipts) GetRlp(i int) []byte {
	var buf bytes.Buffer
	if err := rs[i].EncodeRLP(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
