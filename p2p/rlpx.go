// Copyright 2015 The go-ethereum Authors
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

package p2p

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"hash"
	"io"
	"io/ioutil"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
)

// secrets holds the session keys derived at the end of the encrypted
// handshake (spec.md §4.8): "Secrets: ingress/egress AES keys and two
// Keccak-256-updated MAC states."
type secrets struct {
	AES, MAC   []byte
	EgressMAC  hash.Hash
	IngressMAC hash.Hash
}

// zeroHeader is the 13 bytes of header-data RLPx's real implementation
// carries for capability/context bookkeeping; this implementation does not
// use per-protocol context ids, so it is always zero.
var zeroHeader = []byte{0xC2, 0x80, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

// maxFrameSize bounds a single frame's declared length, guarding ReadMsg
// against allocating an attacker-chosen amount of memory before the MAC
// that would reject the frame has even been checked.
const maxFrameSize = 32 * 1024 * 1024

// rlpxFrameRW implements the framed session of spec.md §4.8 part 2 over a
// raw connection, once the encrypted handshake has produced secrets.
type rlpxFrameRW struct {
	conn io.ReadWriter

	mu sync.Mutex

	enc cipher.Stream
	dec cipher.Stream

	macCipher  cipher.Block
	egressMAC  hash.Hash
	ingressMAC hash.Hash

	snappy bool
}

func newRLPXFrameRW(conn io.ReadWriter, s secrets, snappyEnabled bool) (*rlpxFrameRW, error) {
	macc, err := aes.NewCipher(s.MAC)
	if err != nil {
		return nil, err
	}
	encc, err := aes.NewCipher(s.AES)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, encc.BlockSize())
	return &rlpxFrameRW{
		conn:       conn,
		enc:        cipher.NewCTR(encc, iv),
		dec:        cipher.NewCTR(encc, iv),
		macCipher:  macc,
		egressMAC:  s.EgressMAC,
		ingressMAC: s.IngressMAC,
		snappy:     snappyEnabled,
	}, nil
}

// updateMAC folds seed into mac (AES-ECB-encrypting the running digest XOR
// seed, then absorbing the result), the construction spec.md §4.8 calls
// "two Keccak-256-updated MAC states" and real RLPx uses to bind each
// frame's header/body to the session's running transcript.
func updateMAC(mac hash.Hash, block cipher.Block, seed []byte) []byte {
	aesbuf := make([]byte, aes.BlockSize)
	block.Encrypt(aesbuf, mac.Sum(nil)[:aes.BlockSize])
	for i := range aesbuf {
		aesbuf[i] ^= seed[i]
	}
	mac.Write(aesbuf)
	return mac.Sum(nil)[:aes.BlockSize]
}

func putInt24(v uint32, b []byte) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func readInt24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// WriteMsg writes msg as one RLPx frame: header (length + metadata + MAC)
// followed by the zero-padded, MAC'd payload.
func (rw *rlpxFrameRW) WriteMsg(msg Msg) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	payload, err := ioutil.ReadAll(msg.Payload)
	if err != nil {
		return err
	}
	if rw.snappy {
		payload = snappy.Encode(nil, payload)
	}

	ptype, _ := rlp.EncodeToBytes(msg.Code)
	headbuf := make([]byte, 32)
	fsize := uint32(len(ptype)) + uint32(len(payload))
	putInt24(fsize, headbuf)
	copy(headbuf[3:16], zeroHeader)

	rw.enc.XORKeyStream(headbuf[:16], headbuf[:16])
	copy(headbuf[16:32], updateMAC(rw.egressMAC, rw.macCipher, headbuf[:16]))
	if _, err := rw.conn.Write(headbuf); err != nil {
		return err
	}

	framebuf := append(ptype, payload...)
	if padding := len(framebuf) % 16; padding > 0 {
		framebuf = append(framebuf, make([]byte, 16-padding)...)
	}
	rw.enc.XORKeyStream(framebuf, framebuf)
	rw.egressMAC.Write(framebuf)
	if _, err := rw.conn.Write(framebuf); err != nil {
		return err
	}

	fmacseed := rw.egressMAC.Sum(nil)
	mac := updateMAC(rw.egressMAC, rw.macCipher, fmacseed)
	_, err = rw.conn.Write(mac)
	return err
}

// ReadMsg decodes the next RLPx frame off the connection.
func (rw *rlpxFrameRW) ReadMsg() (Msg, error) {
	headbuf := make([]byte, 32)
	if _, err := io.ReadFull(rw.conn, headbuf); err != nil {
		return Msg{}, err
	}
	wantHeaderMAC := updateMAC(rw.ingressMAC, rw.macCipher, headbuf[:16])
	if !hmacEqual(wantHeaderMAC, headbuf[16:32]) {
		return Msg{}, errBadMAC
	}
	rw.dec.XORKeyStream(headbuf[:16], headbuf[:16])
	fsize := readInt24(headbuf)
	if fsize > maxFrameSize {
		return Msg{}, errBadFrameSize
	}

	rounded := fsize
	if padding := fsize % 16; padding > 0 {
		rounded += 16 - padding
	}
	framebuf := make([]byte, rounded)
	if _, err := io.ReadFull(rw.conn, framebuf); err != nil {
		return Msg{}, err
	}
	rw.ingressMAC.Write(framebuf)

	frameMAC := make([]byte, 16)
	if _, err := io.ReadFull(rw.conn, frameMAC); err != nil {
		return Msg{}, err
	}
	fmacseed := rw.ingressMAC.Sum(nil)
	wantFrameMAC := updateMAC(rw.ingressMAC, rw.macCipher, fmacseed)
	if !hmacEqual(wantFrameMAC, frameMAC) {
		return Msg{}, errBadMAC
	}

	rw.dec.XORKeyStream(framebuf, framebuf)
	content := framebuf[:fsize]

	codeRaw, rest, err := rlp.SplitRaw(content)
	if err != nil {
		return Msg{}, fmt.Errorf("%w: %v", errMalformedRLP, err)
	}
	var code uint64
	if err := rlp.DecodeBytes(codeRaw, &code); err != nil {
		return Msg{}, fmt.Errorf("%w: %v", errMalformedRLP, err)
	}
	if rw.snappy {
		decoded, err := snappy.Decode(nil, rest)
		if err != nil {
			return Msg{}, fmt.Errorf("p2p: bad snappy payload: %v", err)
		}
		rest = decoded
	}
	return Msg{Code: code, Size: uint32(len(rest)), Payload: bytes.NewReader(rest), ReceivedAt: time.Now()}, nil
}

func hmacEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

// xorBytes returns a XOR b, truncated to the shorter of the two — used to
// fold a peer's nonce into the shared MAC secret.
func xorBytes(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}
