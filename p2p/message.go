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

// Package p2p implements the RLPx transport (C8): an encrypted, framed
// session between two nodes that negotiates a capability set and then
// multiplexes application sub-protocols (eth/62, eth/63, ...) over it.
package p2p

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"time"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/rlp"
)

// Msg is one decoded RLPx application packet: a code (offset within the
// session's packet-id space), its RLP-encoded body's length, and a reader
// over the still-undecoded body (spec.md §4.8 "Payload = RLP-encoded
// packet-type-id followed by RLP-encoded packet body").
type Msg struct {
	Code       uint64
	Size       uint32
	Payload    io.Reader
	ReceivedAt time.Time
}

// Decode reads m's payload into val, as an RLP-encoded struct.
func (m Msg) Decode(val interface{}) error {
	if err := rlp.Decode(m.Payload, val); err != nil {
		return fmt.Errorf("p2p: %w (code %d)", err, m.Code)
	}
	return nil
}

// Discard drains m's payload without decoding it, required before reading
// the next message off the same connection.
func (m Msg) Discard() error {
	_, err := io.Copy(ioutil.Discard, m.Payload)
	return err
}

func (m Msg) String() string {
	return fmt.Sprintf("msg #%d (%d bytes)", m.Code, m.Size)
}

// MsgReader is implemented by anything a Protocol's Run loop can pull
// packets from.
type MsgReader interface {
	ReadMsg() (Msg, error)
}

// MsgWriter is implemented by anything a Protocol's Run loop can push
// packets to.
type MsgWriter interface {
	WriteMsg(Msg) error
}

// MsgReadWriter groups MsgReader and MsgWriter, the interface a Protocol's
// Run function is handed for the one capability it negotiated.
type MsgReadWriter interface {
	MsgReader
	MsgWriter
}

// Send RLP-encodes data as the body of a packet with code and writes it to
// rw. It is the usual way a Protocol emits an outbound packet.
func Send(rw MsgWriter, code uint64, data interface{}) error {
	payload, err := rlp.EncodeToBytes(data)
	if err != nil {
		return err
	}
	return rw.WriteMsg(Msg{Code: code, Size: uint32(len(payload)), Payload: bytes.NewReader(payload)})
}

// ExpectMsg reads a message from r and verifies its code and content
// against the given values, returning an error on any mismatch. Used by
// handshake code that knows exactly what it wants to see next.
func ExpectMsg(r MsgReader, code uint64, content interface{}) error {
	msg, err := r.ReadMsg()
	if err != nil {
		return err
	}
	if msg.Code != code {
		return fmt.Errorf("p2p: message code mismatch: got %d, want %d", msg.Code, code)
	}
	if content == nil {
		return msg.Discard()
	}
	return msg.Decode(content)
}

// MsgPipe creates a pair of in-memory, connected RLPx message pipes: writes
// on one end arrive as reads on the other. Used by protocol tests that need
// a MsgReadWriter without a real network connection.
func MsgPipe() (*MsgPipeRW, *MsgPipeRW) {
	ch1, ch2 := make(chan Msg, 16), make(chan Msg, 16)
	return &MsgPipeRW{w: ch1, r: ch2}, &MsgPipeRW{w: ch2, r: ch1}
}

// MsgPipeRW is one end of a pipe created by MsgPipe.
type MsgPipeRW struct {
	w chan<- Msg
	r <-chan Msg
}

func (p *MsgPipeRW) WriteMsg(msg Msg) error {
	payload, err := ioutil.ReadAll(msg.Payload)
	if err != nil {
		return err
	}
	msg.Payload = bytes.NewReader(payload)
	p.w <- msg
	return nil
}

func (p *MsgPipeRW) ReadMsg() (Msg, error) {
	msg, ok := <-p.r
	if !ok {
		return Msg{}, io.EOF
	}
	return msg, nil
}

// Cap is a peer capability, a named sub-protocol at a specific version
// (spec.md §4.8 "capabilities = list of (name, version)").
type Cap struct {
	Name    string
	Version uint
}

func (cap Cap) String() string {
	return fmt.Sprintf("%s/%d", cap.Name, cap.Version)
}

// capsByNameAndVersion sorts a Cap slice by (Name, Version) so capability
// negotiation is deterministic between both peers.
type capsByNameAndVersion []Cap

func (cs capsByNameAndVersion) Len() int      { return len(cs) }
func (cs capsByNameAndVersion) Swap(i, j int) { cs[i], cs[j] = cs[j], cs[i] }
func (cs capsByNameAndVersion) Less(i, j int) bool {
	return cs[i].Name < cs[j].Name || (cs[i].Name == cs[j].Name && cs[i].Version < cs[j].Version)
}

// protoHandshake is the DEVp2p Hello packet (spec.md §4.8): "protocol
// version, client id, capabilities, listen port, node id".
type protoHandshake struct {
	Version    uint64
	Name       string
	Caps       []Cap
	ListenPort uint64
	ID         []byte // secp256k1 public key, uncompressed, without format byte
}

func (hs *protoHandshake) nodeID() enode.ID {
	return enode.PubkeyToID(hs.ID)
}
