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

package discover

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/ethereum/go-ethereum/rlp"
)

// Packet type bytes, spec.md §4.9's "signed ping/pong/findnode/neighbours
// wire messages".
const (
	pingPacket = iota + 1
	pongPacket
	findnodePacket
	neighborsPacket
)

const (
	expiration    = 20 * time.Second
	respTimeout   = 500 * time.Millisecond
	hashSize      = 32
	sigSize       = 65
	headSize      = hashSize + sigSize
)

var (
	errPacketTooSmall = errors.New("discover: packet too small")
	errBadHash        = errors.New("discover: bad packet hash")
	errExpired        = errors.New("discover: packet expired")
	errTimeout        = errors.New("discover: reply timed out")
)

type rpcEndpoint struct {
	IP  net.IP
	UDP uint16
	TCP uint16
}

type pingPayload struct {
	Version    uint
	From, To   rpcEndpoint
	Expiration uint64
}

type pongPayload struct {
	To         rpcEndpoint
	ReplyTok   []byte
	Expiration uint64
}

type findnodePayload struct {
	Target     [64]byte
	Expiration uint64
}

type rpcNode struct {
	IP  net.IP
	UDP uint16
	TCP uint16
	ID  []byte
}

type neighborsPayload struct {
	Nodes      []rpcNode
	Expiration uint64
}

// UDP is the discv4 transport: it owns the socket, signs and verifies
// every packet, and matches replies to outstanding requests so Table's
// ping/findnode calls can block on a result.
type UDP struct {
	conn *net.UDPConn
	priv *ecdsa.PrivateKey
	tab  *Table
	self *enode.Node

	mu      sync.Mutex
	pending map[string]chan interface{} // key: remote addr + reply packet type

	closing chan struct{}
	log     log.Logger
}

// ListenUDP starts the discovery transport on conn and builds the routing
// table rooted at priv's node id, seeded with bootnodes.
func ListenUDP(conn *net.UDPConn, priv *ecdsa.PrivateKey, self *enode.Node, bootnodes []*enode.Node) (*UDP, error) {
	t := &UDP{
		conn:    conn,
		priv:    priv,
		self:    self,
		pending: make(map[string]chan interface{}),
		closing: make(chan struct{}),
		log:     log.New("module", "discover"),
	}
	t.tab = NewTable(idPriv(priv), t, bootnodes)
	go t.readLoop()
	go t.tab.RefreshLoop()
	return t, nil
}

func (t *UDP) Close() {
	close(t.closing)
	t.conn.Close()
	t.tab.Close()
}

// localNode satisfies the transport interface Table depends on.
func (t *UDP) localNode() *enode.Node { return t.self }

// LookupRandom exposes the routing table's random-target lookup so callers
// outside this package (the p2p-server dial loop) can pull fresh peer
// endpoints without reaching into the unexported table field.
func (t *UDP) LookupRandom() []*enode.Node { return t.tab.LookupRandom() }

func (t *UDP) readLoop() {
	buf := make([]byte, 1280)
	for {
		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.closing:
				return
			default:
				t.log.Debug("discover read error", "err", err)
				continue
			}
		}
		if err := t.handlePacket(from, buf[:n]); err != nil {
			t.log.Debug("discover bad packet", "from", from, "err", err)
		}
	}
}

func (t *UDP) handlePacket(from *net.UDPAddr, buf []byte) error {
	fromID, ptype, payload, err := decodePacket(buf)
	if err != nil {
		return err
	}
	switch ptype {
	case pingPacket:
		var req pingPayload
		if err := rlp.DecodeBytes(payload, &req); err != nil {
			return err
		}
		if expired(req.Expiration) {
			return errExpired
		}
		t.sendPong(from, buf[:hashSize])
		t.tab.addVerified(enode.NewNode(fromID, from.IP, uint16(from.Port), req.From.TCP))

	case pongPacket:
		var req pongPayload
		if err := rlp.DecodeBytes(payload, &req); err != nil {
			return err
		}
		t.deliver(from, pongPacket, req)

	case findnodePacket:
		var req findnodePayload
		if err := rlp.DecodeBytes(payload, &req); err != nil {
			return err
		}
		if expired(req.Expiration) {
			return errExpired
		}
		var target enode.ID
		copy(target[:], req.Target[:])
		closest := t.tab.closest(target, bucketSize)
		t.sendNeighbors(from, closest)

	case neighborsPacket:
		var req neighborsPayload
		if err := rlp.DecodeBytes(payload, &req); err != nil {
			return err
		}
		t.deliver(from, neighborsPacket, req)

	default:
		return fmt.Errorf("discover: unknown packet type %d", ptype)
	}
	return nil
}

func (t *UDP) deliver(from *net.UDPAddr, ptype byte, payload interface{}) {
	key := replyKey(from, ptype)
	t.mu.Lock()
	ch, ok := t.pending[key]
	t.mu.Unlock()
	if ok {
		select {
		case ch <- payload:
		default:
		}
	}
}

func replyKey(addr *net.UDPAddr, ptype byte) string {
	return fmt.Sprintf("%s:%d", addr.String(), ptype)
}

func (t *UDP) awaitReply(addr *net.UDPAddr, ptype byte) chan interface{} {
	ch := make(chan interface{}, 1)
	t.mu.Lock()
	t.pending[replyKey(addr, ptype)] = ch
	t.mu.Unlock()
	return ch
}

func (t *UDP) cancelReply(addr *net.UDPAddr, ptype byte) {
	t.mu.Lock()
	delete(t.pending, replyKey(addr, ptype))
	t.mu.Unlock()
}

func (t *UDP) send(addr *net.UDPAddr, ptype byte, req interface{}) ([]byte, error) {
	packet, hash, err := encodePacket(t.priv, byte(ptype), req)
	if err != nil {
		return nil, err
	}
	_, err = t.conn.WriteToUDP(packet, addr)
	return hash, err
}

// ping blocks until n replies with a pong or respTimeout elapses, the
// liveness check Table uses before evicting a full bucket's stalest entry.
func (t *UDP) ping(n *enode.Node) error {
	addr := n.UDPAddr()
	ch := t.awaitReply(addr, pongPacket)
	defer t.cancelReply(addr, pongPacket)

	req := pingPayload{
		Version:    4,
		From:       rpcEndpoint{IP: t.self.IP, UDP: t.self.UDP, TCP: t.self.TCP},
		To:         rpcEndpoint{IP: n.IP, UDP: n.UDP, TCP: n.TCP},
		Expiration: uint64(time.Now().Add(expiration).Unix()),
	}
	if _, err := t.send(addr, pingPacket, req); err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-time.After(respTimeout):
		return errTimeout
	}
}

func (t *UDP) sendPong(to *net.UDPAddr, replyTok []byte) {
	resp := pongPayload{
		To:         rpcEndpoint{IP: to.IP, UDP: uint16(to.Port)},
		ReplyTok:   replyTok,
		Expiration: uint64(time.Now().Add(expiration).Unix()),
	}
	t.send(to, pongPacket, resp)
}

// findnode asks n for its closest known nodes to target, blocking for one
// neighbours reply.
func (t *UDP) findnode(n *enode.Node, target enode.ID) ([]*enode.Node, error) {
	addr := n.UDPAddr()
	ch := t.awaitReply(addr, neighborsPacket)
	defer t.cancelReply(addr, neighborsPacket)

	var targetBuf [64]byte
	copy(targetBuf[:], target[:])
	req := findnodePayload{Target: targetBuf, Expiration: uint64(time.Now().Add(expiration).Unix())}
	if _, err := t.send(addr, findnodePacket, req); err != nil {
		return nil, err
	}
	select {
	case reply := <-ch:
		resp := reply.(neighborsPayload)
		nodes := make([]*enode.Node, 0, len(resp.Nodes))
		for _, rn := range resp.Nodes {
			var id enode.ID
			copy(id[:], rn.ID)
			nodes = append(nodes, enode.NewNode(id, rn.IP, rn.UDP, rn.TCP))
		}
		return nodes, nil
	case <-time.After(respTimeout):
		return nil, errTimeout
	}
}

func (t *UDP) sendNeighbors(to *net.UDPAddr, nodes []*enode.Node) {
	rn := make([]rpcNode, len(nodes))
	for i, n := range nodes {
		rn[i] = rpcNode{IP: n.IP, UDP: n.UDP, TCP: n.TCP, ID: append([]byte{}, n.ID[:]...)}
	}
	resp := neighborsPayload{Nodes: rn, Expiration: uint64(time.Now().Add(expiration).Unix())}
	t.send(to, neighborsPacket, resp)
}

func expired(ts uint64) bool {
	return time.Unix(int64(ts), 0).Before(time.Now())
}

// encodePacket signs ptype||rlp(req) and wraps it per spec.md §4.9:
// hash(32) || sig(65) || type(1) || rlp(payload), where hash binds the
// signature and body together so a truncated or flipped packet is
// detectable without a separate MAC.
func encodePacket(priv *ecdsa.PrivateKey, ptype byte, req interface{}) (packet, hash []byte, err error) {
	payload, err := rlp.EncodeToBytes(req)
	if err != nil {
		return nil, nil, err
	}
	body := append([]byte{ptype}, payload...)
	sig, err := crypto.Sign(crypto.Keccak256(body), priv)
	if err != nil {
		return nil, nil, err
	}
	signed := append(sig, body...)
	h := crypto.Keccak256(signed)
	return append(h, signed...), h, nil
}

func decodePacket(input []byte) (fromID enode.ID, ptype byte, payload []byte, err error) {
	if len(input) < headSize+1 {
		return fromID, 0, nil, errPacketTooSmall
	}
	hash, signed := input[:hashSize], input[hashSize:]
	if !bytes.Equal(hash, crypto.Keccak256(signed)) {
		return fromID, 0, nil, errBadHash
	}
	sig, body := signed[:sigSize], signed[sigSize:]
	pubkey, err := crypto.Ecrecover(crypto.Keccak256(body), sig)
	if err != nil {
		return fromID, 0, nil, err
	}
	return enode.PubkeyToID(pubkey), body[0], body[1:], nil
}
