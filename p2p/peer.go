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

package p2p

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/rlp"
)

const (
	baseProtocolVersion = 5
	baseProtocolLength  = uint64(16)
	handshakeTimeout    = 5 * time.Second
	pingInterval        = 15 * time.Second

	handshakeMsg = 0
	discMsg      = 1
	pingMsg      = 2
	pongMsg      = 3
)

var errProtocolReturned = errors.New("p2p: protocol returned")

// Peer is one established, capability-negotiated RLPx session. It owns the
// framed connection and dispatches each incoming packet to the protoRW of
// the capability it belongs to, per spec.md §4.8's packet-id offset scheme.
type Peer struct {
	rw      *rlpxFrameRW
	node    *enode.Node
	caps    []Cap
	name    string
	running map[string]*protoRW

	wg       sync.WaitGroup
	protoErr chan error
	closed   chan struct{}
	disc     chan DiscReason

	log log.Logger
}

// protoRW is one negotiated capability's view of the session: messages are
// offset into its reserved packet-id range on write and filtered back out
// of it on read, so a Protocol's Run function sees a code space starting
// at zero regardless of how many other capabilities share the connection.
type protoRW struct {
	Protocol
	in     chan Msg
	closed <-chan struct{}
	wstart chan struct{}
	werr   chan error
	offset uint64
	w      MsgWriter
}

func (rw *protoRW) WriteMsg(msg Msg) error {
	if msg.Code >= rw.Length {
		return fmt.Errorf("p2p: invalid message code %d for %s (max %d)", msg.Code, rw.Name, rw.Length)
	}
	msg.Code += rw.offset
	select {
	case <-rw.wstart:
		err := rw.w.WriteMsg(msg)
		rw.werr <- err
		return err
	case <-rw.closed:
		return fmt.Errorf("p2p: shutting down")
	}
}

func (rw *protoRW) ReadMsg() (Msg, error) {
	select {
	case msg := <-rw.in:
		return msg, nil
	case <-rw.closed:
		return Msg{}, io.EOF
	}
}

// newPeer negotiates protocols from caps (the remote Hello's advertised
// capabilities) against protocols (what we run locally) and returns a Peer
// ready to have its run loop started.
func newPeer(node *enode.Node, name string, rw *rlpxFrameRW, caps []Cap, protocols []Protocol) *Peer {
	running := matchProtocols(protocols, caps)
	return &Peer{
		rw:       rw,
		node:     node,
		name:     name,
		caps:     caps,
		running:  running,
		closed:   make(chan struct{}),
		disc:     make(chan DiscReason),
		protoErr: make(chan error, len(running)+1),
		log:      log.New("id", node.ID.String()[2:10], "conn", node.TCPAddr().String()),
	}
}

// matchProtocols implements spec.md §4.8's capability negotiation: for each
// protocol name both sides advertise, pick the highest version both
// support, and lay out its packet-id range contiguously after the base
// protocol's 16 reserved codes.
func matchProtocols(protocols []Protocol, caps []Cap) map[string]*protoRW {
	sorted := append([]Cap{}, caps...)
	sort.Sort(capsByNameAndVersion(sorted))

	result := make(map[string]*protoRW)
	offset := baseProtocolLength
	for i := 0; i < len(sorted); {
		name := sorted[i].Name
		j := i
		for j < len(sorted) && sorted[j].Name == name {
			j++
		}
		var best *Protocol
		for k := j - 1; k >= i; k-- {
			if p := findProtocol(protocols, name, sorted[k].Version); p != nil {
				best = p
				break
			}
		}
		if best != nil {
			result[name] = &protoRW{Protocol: *best, offset: offset, in: make(chan Msg)}
			offset += best.Length
		}
		i = j
	}
	return result
}

func findProtocol(protocols []Protocol, name string, version uint) *Protocol {
	for i := range protocols {
		if protocols[i].Name == name && protocols[i].Version == version {
			return &protocols[i]
		}
	}
	return nil
}

// run starts every negotiated protocol's Run function, pumps incoming
// frames to the right protoRW, answers Ping with Pong, and blocks until the
// session ends, returning the reason the caller (or the peer) gave.
func (p *Peer) run() (DiscReason, error) {
	var (
		writeStart = make(chan struct{}, 1)
		writeErr   = make(chan error, 1)
		readErr    = make(chan error, 1)
		reason     DiscReason
	)
	writeStart <- struct{}{}

	p.wg.Add(1)
	go p.readLoop(readErr)

	p.startProtocols(writeStart, writeErr)

	pingTimer := time.NewTicker(pingInterval)
	defer pingTimer.Stop()

loop:
	for {
		select {
		case err := <-writeErr:
			writeStart <- struct{}{}
			if err != nil {
				p.log.Debug("p2p write error", "err", err)
				reason = DiscNetworkError
				break loop
			}
		case err := <-readErr:
			if r, ok := err.(DiscReason); ok {
				reason = r
			} else {
				reason = DiscNetworkError
			}
			break loop
		case err := <-p.protoErr:
			reason = discReasonForError(err)
			break loop
		case reason = <-p.disc:
			break loop
		case <-pingTimer.C:
			go func() { writeErr <- Send(p.rw, pingMsg, []byte{}) }()
		}
	}

	close(p.closed)
	p.wg.Wait()
	return reason, nil
}

func discReasonForError(err error) DiscReason {
	if r, ok := err.(DiscReason); ok {
		return r
	}
	return DiscSubprotocolError
}

func (p *Peer) startProtocols(writeStart <-chan struct{}, writeErr chan<- error) {
	for _, proto := range p.running {
		proto := proto
		proto.closed = p.closed
		proto.wstart = make(chan struct{}, 1)
		proto.wstart <- struct{}{}
		proto.werr = make(chan error, 1)
		proto.w = p.rw

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			err := proto.Run(p, proto)
			if err == nil {
				err = errProtocolReturned
			}
			select {
			case p.protoErr <- err:
			case <-p.closed:
			}
		}()
	}
}

// readLoop demultiplexes incoming frames: base-protocol packets (ping,
// pong, disconnect) are handled here, everything else is routed to the
// protoRW whose offset range contains the packet code.
func (p *Peer) readLoop(errc chan<- error) {
	defer p.wg.Done()
	for {
		msg, err := p.rw.ReadMsg()
		if err != nil {
			errc <- err
			return
		}
		if err := p.handle(msg); err != nil {
			errc <- err
			return
		}
	}
}

func (p *Peer) handle(msg Msg) error {
	switch {
	case msg.Code == pingMsg:
		return Send(p.rw, pongMsg, []byte{})
	case msg.Code == pongMsg:
		return nil
	case msg.Code == discMsg:
		var reason [1]DiscReason
		rlp.Decode(msg.Payload, &reason)
		return reason[0]
	case msg.Code < baseProtocolLength:
		return msg.Discard()
	default:
		for _, proto := range p.running {
			if msg.Code >= proto.offset && msg.Code < proto.offset+proto.Length {
				msg.Code -= proto.offset
				select {
				case proto.in <- msg:
					return nil
				case <-p.closed:
					return io.EOF
				}
			}
		}
		return fmt.Errorf("%w: code %d", errUnknownCap, msg.Code)
	}
}

// Disconnect terminates the session, delivering reason as the local
// disconnect cause.
func (p *Peer) Disconnect(reason DiscReason) {
	select {
	case p.disc <- reason:
	case <-p.closed:
	}
}

func (p *Peer) Node() *enode.Node { return p.node }
func (p *Peer) Caps() []Cap       { return p.caps }
func (p *Peer) Name() string      { return p.name }

// doProtoHandshake exchanges Hello packets (spec.md §4.8: "protocol
// version, client id, capabilities, listen port, node id") over rw,
// sending our handshake concurrently with reading the peer's so neither
// side blocks waiting on the other to go first.
func doProtoHandshake(rw MsgReadWriter, our *protoHandshake) (*protoHandshake, error) {
	werr := make(chan error, 1)
	go func() { werr <- Send(rw, handshakeMsg, our) }()

	their, err := readProtoHandshake(rw)
	if err != nil {
		<-werr
		return nil, err
	}
	if err := <-werr; err != nil {
		return nil, fmt.Errorf("p2p: write handshake: %w", err)
	}
	return their, nil
}

const maxHandshakeSize = 10 * 1024 * 1024

func readProtoHandshake(rw MsgReader) (*protoHandshake, error) {
	msg, err := rw.ReadMsg()
	if err != nil {
		return nil, err
	}
	if msg.Size > maxHandshakeSize {
		return nil, fmt.Errorf("p2p: handshake message too big (%d bytes)", msg.Size)
	}
	if msg.Code == discMsg {
		var reason [1]DiscReason
		rlp.Decode(msg.Payload, &reason)
		return nil, reason[0]
	}
	if msg.Code != handshakeMsg {
		return nil, fmt.Errorf("p2p: expected handshake, got code %d", msg.Code)
	}
	var hs protoHandshake
	if err := msg.Decode(&hs); err != nil {
		return nil, err
	}
	if len(hs.ID) != enode.IDLength {
		return nil, fmt.Errorf("p2p: invalid node id in handshake")
	}
	return &hs, nil
}
