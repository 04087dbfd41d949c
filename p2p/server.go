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
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/p2p/enode"
)

// Config groups a Server's static parameters. spec.md §5 fixes the outbound
// peer cap at a small constant ("e.g. 10"); MaxPeers defaults to that when
// left zero.
type Config struct {
	PrivateKey     *ecdsa.PrivateKey
	Name           string
	ListenAddr     string
	MaxPeers       int
	Protocols      []Protocol
	BootstrapNodes []*enode.Node
}

const defaultMaxPeers = 10

// Server owns a listener and the set of established Peer sessions,
// enforcing spec.md §5's "outbound peer connections are capped" policy.
type Server struct {
	Config

	lock      sync.Mutex
	running   bool
	listener  net.Listener
	peers     map[enode.ID]*Peer
	localNode *enode.Node

	quit     chan struct{}
	loopWG   sync.WaitGroup
	addpeer  chan *conn
	delpeer  chan peerDrop

	log log.Logger
}

// conn is the still-unidentified state of one connection between the
// RLPx handshake completing and the Peer being admitted or rejected.
type conn struct {
	fd    net.Conn
	rw    *rlpxFrameRW
	node  *enode.Node
	caps  []Cap
	name  string
}

type peerDrop struct {
	peer   *Peer
	reason DiscReason
}

// Start opens the listener and begins accepting inbound connections and
// dialing bootstrap nodes.
func (srv *Server) Start() error {
	srv.lock.Lock()
	defer srv.lock.Unlock()
	if srv.running {
		return errAlreadyRunning
	}
	if srv.PrivateKey == nil {
		return errors.New("p2p: Server.PrivateKey must be set")
	}
	if srv.MaxPeers == 0 {
		srv.MaxPeers = defaultMaxPeers
	}
	srv.log = log.New("module", "p2p")
	srv.quit = make(chan struct{})
	srv.addpeer = make(chan *conn)
	srv.delpeer = make(chan peerDrop)
	srv.peers = make(map[enode.ID]*Peer)
	srv.localNode = enode.NewNode(enode.PublicKeyToID(&srv.PrivateKey.PublicKey), nil, 0, 0)

	if srv.ListenAddr != "" {
		listener, err := net.Listen("tcp", srv.ListenAddr)
		if err != nil {
			return err
		}
		srv.listener = listener
		srv.loopWG.Add(1)
		go srv.listenLoop()
	}

	srv.running = true
	srv.loopWG.Add(1)
	go srv.run()

	for _, n := range srv.BootstrapNodes {
		n := n
		go func() {
			if err := srv.Dial(n); err != nil {
				srv.log.Debug("dial failed", "node", n, "err", err)
			}
		}()
	}
	return nil
}

// Stop tears down the listener and every active peer.
func (srv *Server) Stop() {
	srv.lock.Lock()
	if !srv.running {
		srv.lock.Unlock()
		return
	}
	srv.running = false
	if srv.listener != nil {
		srv.listener.Close()
	}
	close(srv.quit)
	srv.lock.Unlock()
	srv.loopWG.Wait()
}

func (srv *Server) listenLoop() {
	defer srv.loopWG.Done()
	for {
		fd, err := srv.listener.Accept()
		if err != nil {
			return
		}
		go func() {
			if err := srv.SetupConn(fd, nil); err != nil {
				srv.log.Debug("inbound connection rejected", "addr", fd.RemoteAddr(), "err", err)
				fd.Close()
			}
		}()
	}
}

// Dial connects to node as the initiating side.
func (srv *Server) Dial(node *enode.Node) error {
	fd, err := net.Dial("tcp", node.TCPAddr().String())
	if err != nil {
		return err
	}
	return srv.SetupConn(fd, node)
}

// SetupConn runs the RLPx encrypted handshake and capability negotiation
// on fd and, on success, hands the result to the peer-admission loop.
// dialDest is non-nil when we are the initiator (spec.md §4.8 phase 1).
func (srv *Server) SetupConn(fd net.Conn, dialDest *enode.Node) error {
	fd.SetDeadline(time.Now().Add(handshakeTimeout))
	defer fd.SetDeadline(time.Time{})

	var dialPubkey *ecdsa.PublicKey
	if dialDest != nil {
		pub, err := dialDest.ID.Pubkey()
		if err != nil {
			return fmt.Errorf("p2p: invalid dial target: %w", err)
		}
		dialPubkey = pub
	}

	sec, err := doEncHandshake(fd, srv.PrivateKey, dialPubkey)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return ErrHandshakeTimeout
		}
		return fmt.Errorf("p2p: encrypted handshake failed: %w", err)
	}
	rw, err := newRLPXFrameRW(fd, sec, false)
	if err != nil {
		return err
	}

	our := &protoHandshake{
		Version:    baseProtocolVersion,
		Name:       srv.Name,
		Caps:       srv.ourCaps(),
		ListenPort: uint64(srv.localPort()),
		ID:         crypto.FromECDSAPub(&srv.PrivateKey.PublicKey)[1:],
	}
	their, err := doProtoHandshake(rw, our)
	if err != nil {
		return fmt.Errorf("p2p: protocol handshake failed: %w", err)
	}
	remoteID := enode.PubkeyToID(their.ID)
	if remoteID == srv.localNode.ID {
		return DiscSelf
	}
	if dialDest != nil && remoteID != dialDest.ID {
		return DiscUnexpectedIdentity
	}
	if their.Version >= 5 && baseProtocolVersion >= 5 {
		rw.snappy = true
	}

	node := dialDest
	if node == nil {
		host, port, err := net.SplitHostPort(fd.RemoteAddr().String())
		if err != nil {
			return err
		}
		tcpPort, _ := strconv.Atoi(port)
		node = enode.NewNode(remoteID, net.ParseIP(host), uint16(tcpPort), uint16(tcpPort))
	}

	c := &conn{fd: fd, rw: rw, node: node, caps: their.Caps, name: their.Name}
	select {
	case srv.addpeer <- c:
	case <-srv.quit:
		return errors.New("p2p: server shutting down")
	}
	return nil
}

func (srv *Server) ourCaps() []Cap {
	caps := make([]Cap, len(srv.Protocols))
	for i, p := range srv.Protocols {
		caps[i] = p.cap()
	}
	return caps
}

func (srv *Server) localPort() int {
	if srv.listener == nil {
		return 0
	}
	_, port, _ := net.SplitHostPort(srv.listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

// run is the only goroutine that admits connections handed over by addpeer
// and reaps peers whose run loop exited; srv.peers is still guarded by
// srv.lock since Peers() reads it from the caller's goroutine.
func (srv *Server) run() {
	defer srv.loopWG.Done()
running:
	for {
		select {
		case c := <-srv.addpeer:
			srv.lock.Lock()
			reason := srv.checkpoint(c)
			var p *Peer
			if reason == 0 {
				p = newPeer(c.node, c.name, c.rw, c.caps, srv.Protocols)
				srv.peers[c.node.ID] = p
			}
			peerCount := len(srv.peers)
			srv.lock.Unlock()

			if reason != 0 {
				srv.log.Debug("peer rejected", "node", c.node, "reason", reason)
				go sendDiscMsg(c.rw, reason)
				c.fd.Close()
				continue
			}
			srv.log.Debug("peer added", "id", c.node.ID, "peers", peerCount)
			go srv.runPeer(p, c.fd)

		case pd := <-srv.delpeer:
			srv.lock.Lock()
			delete(srv.peers, pd.peer.node.ID)
			peerCount := len(srv.peers)
			srv.lock.Unlock()
			srv.log.Debug("peer removed", "id", pd.peer.node.ID, "reason", pd.reason, "peers", peerCount)

		case <-srv.quit:
			srv.lock.Lock()
			for _, p := range srv.peers {
				p.Disconnect(DiscQuitting)
			}
			srv.lock.Unlock()
			break running
		}
	}
}

// checkpoint returns the DiscReason to reject c with, or 0 to admit it.
// DiscRequested (value 0) can never be a rejection cause here, so it
// doubles as "admitted". Caller must hold srv.lock.
func (srv *Server) checkpoint(c *conn) DiscReason {
	if len(srv.peers) >= srv.MaxPeers {
		return DiscTooManyPeers
	}
	if _, exists := srv.peers[c.node.ID]; exists {
		return DiscAlreadyConnected
	}
	if len(c.caps) == 0 {
		return DiscUselessPeer
	}
	if len(matchProtocols(srv.Protocols, c.caps)) == 0 {
		return DiscUselessPeer
	}
	return 0
}

func (srv *Server) runPeer(p *Peer, fd net.Conn) {
	reason, _ := p.run()
	fd.Close()
	select {
	case srv.delpeer <- peerDrop{peer: p, reason: reason}:
	case <-srv.quit:
	}
}

func sendDiscMsg(rw MsgWriter, reason DiscReason) {
	Send(rw, discMsg, []DiscReason{reason})
}

// LocalNode returns this server's own identity.
func (srv *Server) LocalNode() *enode.Node { return srv.localNode }

// Peers returns a snapshot of the currently connected peers.
func (srv *Server) Peers() []*Peer {
	srv.lock.Lock()
	defer srv.lock.Unlock()
	list := make([]*Peer, 0, len(srv.peers))
	for _, p := range srv.peers {
		list = append(list, p)
	}
	return list
}
