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
	"encoding/binary"
	"io"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	// EmptyRootHash is the root of a trie with no entries, used for a
	// block's transactions/receipts root when the block has no transactions
	// (spec.md §4.10's "empty body" test) and reused by trie.EmptyRoot.
	EmptyRootHash = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

	// EmptyUncleHash is Keccak(RLP([])), the ommers hash when a block has no
	// uncles.
	EmptyUncleHash = rlpHash([]*Header(nil))
)

// BlockNonce is the 8-byte consensus nonce in a block header (spec.md §3).
type BlockNonce [8]byte

// EncodeNonce converts a uint64 into a BlockNonce by big-endian encoding.
func EncodeNonce(i uint64) BlockNonce {
	var n BlockNonce
	binary.BigEndian.PutUint64(n[:], i)
	return n
}

// Uint64 returns the integer value of a block nonce.
func (n BlockNonce) Uint64() uint64 { return binary.BigEndian.Uint64(n[:]) }

// Header is the consensus-significant block header (spec.md §3): every
// field is bit-exact in RLP and participates in the block hash.
type Header struct {
	ParentHash  common.Hash    `json:"parentHash"`
	UncleHash   common.Hash    `json:"sha3Uncles"`
	Coinbase    common.Address `json:"miner"`
	Root        common.Hash    `json:"stateRoot"`
	TxHash      common.Hash    `json:"transactionsRoot"`
	ReceiptHash common.Hash    `json:"receiptsRoot"`
	Bloom       Bloom          `json:"logsBloom"`
	Difficulty  *big.Int       `json:"difficulty"`
	Number      *big.Int       `json:"number"`
	GasLimit    uint64         `json:"gasLimit"`
	GasUsed     uint64         `json:"gasUsed"`
	Time        uint64         `json:"timestamp"`
	Extra       []byte         `json:"extraData"`
	MixDigest   common.Hash    `json:"mixHash"`
	Nonce       BlockNonce     `json:"nonce"`
}

// Hash returns the Keccak-256 hash of the header's RLP encoding; used as
// the parent hash of the following block and as the block's own identity in
// the block tree (C7).
func (h *Header) Hash() common.Hash {
	return rlpHash(h)
}

func rlpHash(x interface{}) common.Hash {
	enc, err := rlp.EncodeToBytes(x)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// Body is a block's non-header content: its transactions and uncle headers.
type Body struct {
	Transactions []*Transaction
	Uncles       []*Header
}

// Block is an immutable header plus body, as assembled by C6 and stored by
// C7. The header's hash and the block's encoded size are cached after first
// computation since both are requested repeatedly during sync and chain
// traversal.
type Block struct {
	header       *Header
	uncles       []*Header
	transactions []*Transaction

	hash atomic.Value
	size atomic.Value
}

// NewBlock assembles a block from a header and body. The
// transactions/receipts/uncle roots are taken as the caller placed them in
// header (C6 is responsible for setting those before calling NewBlock; this
// constructor does not compute or check them, matching the teacher's
// "header carries pre-computed roots" convention so the same constructor
// works for both freshly mined blocks, which exist outside this spec's
// scope, and blocks rehydrated from the wire/store).
func NewBlock(header *Header, txs []*Transaction, uncles []*Header) *Block {
	b := &Block{header: CopyHeader(header)}
	if len(txs) > 0 {
		b.transactions = make([]*Transaction, len(txs))
		copy(b.transactions, txs)
	}
	if len(uncles) > 0 {
		b.uncles = make([]*Header, len(uncles))
		for i := range uncles {
			b.uncles[i] = CopyHeader(uncles[i])
		}
	}
	return b
}

// NewBlockWithHeader creates a block with the given header and no body;
// callers attach transactions/uncles via WithBody.
func NewBlockWithHeader(header *Header) *Block {
	return &Block{header: CopyHeader(header)}
}

// WithBody returns a new block with the same header and the given body.
func (b *Block) WithBody(transactions []*Transaction, uncles []*Header) *Block {
	return NewBlock(b.header, transactions, uncles)
}

// CopyHeader creates a deep copy of a header so in-progress construction
// cannot alias a block that has already been handed to another component.
func CopyHeader(h *Header) *Header {
	cpy := *h
	if cpy.Difficulty = new(big.Int); h.Difficulty != nil {
		cpy.Difficulty.Set(h.Difficulty)
	}
	if cpy.Number = new(big.Int); h.Number != nil {
		cpy.Number.Set(h.Number)
	}
	if len(h.Extra) > 0 {
		cpy.Extra = common.CopyBytes(h.Extra)
	}
	return &cpy
}

func (b *Block) Header() *Header { return CopyHeader(b.header) }

func (b *Block) Transactions() []*Transaction { return b.transactions }

func (b *Block) Transaction(hash common.Hash) *Transaction {
	for _, tx := range b.transactions {
		if tx.Hash() == hash {
			return tx
		}
	}
	return nil
}

func (b *Block) Uncles() []*Header { return b.uncles }

func (b *Block) Number() *big.Int     { return new(big.Int).Set(b.header.Number) }
func (b *Block) NumberU64() uint64    { return b.header.Number.Uint64() }
func (b *Block) GasLimit() uint64     { return b.header.GasLimit }
func (b *Block) GasUsed() uint64      { return b.header.GasUsed }
func (b *Block) Difficulty() *big.Int { return new(big.Int).Set(b.header.Difficulty) }
func (b *Block) Time() uint64         { return b.header.Time }
func (b *Block) ParentHash() common.Hash  { return b.header.ParentHash }
func (b *Block) Root() common.Hash        { return b.header.Root }
func (b *Block) TxHash() common.Hash      { return b.header.TxHash }
func (b *Block) ReceiptHash() common.Hash { return b.header.ReceiptHash }
func (b *Block) UncleHash() common.Hash   { return b.header.UncleHash }
func (b *Block) Bloom() Bloom             { return b.header.Bloom }
func (b *Block) Coinbase() common.Address { return b.header.Coinbase }
func (b *Block) Extra() []byte            { return common.CopyBytes(b.header.Extra) }
func (b *Block) MixDigest() common.Hash   { return b.header.MixDigest }
func (b *Block) Nonce() uint64            { return b.header.Nonce.Uint64() }

// Hash returns (and caches) the block's identity: the hash of its header.
func (b *Block) Hash() common.Hash {
	if hash := b.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	h := b.header.Hash()
	b.hash.Store(h)
	return h
}

// Body returns the block's transactions and uncles as a Body value.
func (b *Block) Body() *Body {
	return &Body{Transactions: b.transactions, Uncles: b.uncles}
}

// Size returns (and caches) the block's RLP-encoded size in bytes, used by
// the downloader (C10) to bound in-flight response sizes.
func (b *Block) Size() uint64 {
	if size := b.size.Load(); size != nil {
		return size.(uint64)
	}
	enc, err := rlp.EncodeToBytes(b)
	if err != nil {
		panic(err)
	}
	size := uint64(len(enc))
	b.size.Store(size)
	return size
}

// EncodeRLP implements rlp.Encoder: a block is encoded as [header, txs,
// uncles], the wire shape used by both storage (§6) and the eth/62+
// NewBlock packet (§6 "Wire protocols").
func (b *Block) EncodeRLP(w io.Writer) error {
	enc, err := rlp.EncodeToBytes([]interface{}{b.header, b.transactions, b.uncles})
	if err != nil {
		return err
	}
	_, err = w.Write(enc)
	return err
}

// extblock is the [header, txs, uncles] decoding shape of a block.
// DecodeBlockRLP decodes into it with rlp.DecodeBytes rather than through
// an io.Reader-based DecodeRLP method, matching this package's decoder's
// whole-buffer style.
type extblock struct {
	Header *Header
	Txs    []*Transaction
	Uncles []*Header
}

// DecodeBlockRLP decodes a block from its wire/storage encoding.
func DecodeBlockRLP(data []byte) (*Block, error) {
	var eb extblock
	if err := rlp.DecodeBytes(data, &eb); err != nil {
		return nil, err
	}
	b := &Block{header: eb.Header, uncles: eb.Uncles, transactions: eb.Txs}
	return b, nil
}
