// Copyright 2018 The go-ethereum Authors
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

// Package enode defines the node identity shared by the RLPx transport
// (C8) and Kademlia discovery (C9): a 64-byte uncompressed secp256k1
// public key (the "node id" of spec.md §4.8/§4.9), plus its network
// address.
package enode

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Pubkey reconstructs the uncompressed secp256k1 public key id was derived
// from, the inverse of PubkeyToID. Needed to dial a node: the transport
// layer authenticates against the peer's static key, not its 64-byte id.
func (id ID) Pubkey() (*ecdsa.PublicKey, error) {
	full := append([]byte{0x04}, id[:]...)
	curve := crypto.S256()
	x, y := elliptic.Unmarshal(curve, full)
	if x == nil {
		return nil, fmt.Errorf("enode: invalid node id")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// IDLength is the byte length of an uncompressed secp256k1 public key with
// its leading format byte stripped — spec.md §4.9: "node id = 64-byte
// uncompressed public key".
const IDLength = 64

// ID is a node's public-key identity.
type ID [IDLength]byte

func (id ID) String() string { return hexutil.Encode(id[:]) }

// Bytes returns id's raw 64 bytes.
func (id ID) Bytes() []byte { return id[:] }

// PubkeyToID converts an uncompressed secp256k1 public key (as produced by
// crypto.FromECDSAPub, with its 0x04 prefix byte) into an ID.
func PubkeyToID(pubkey []byte) ID {
	var id ID
	if len(pubkey) == 65 && pubkey[0] == 4 {
		copy(id[:], pubkey[1:])
	} else if len(pubkey) == IDLength {
		copy(id[:], pubkey)
	}
	return id
}

// PublicKeyToID converts an *ecdsa.PublicKey into an ID.
func PublicKeyToID(pub *ecdsa.PublicKey) ID {
	return PubkeyToID(crypto.FromECDSAPub(pub))
}

// Node is a remote node's address and identity as carried through
// discovery (C9) and used to dial the RLPx transport (C8).
type Node struct {
	ID  ID
	IP  net.IP
	UDP uint16
	TCP uint16
}

// NewNode builds a Node from its constituent fields.
func NewNode(id ID, ip net.IP, udpPort, tcpPort uint16) *Node {
	return &Node{ID: id, IP: ip, UDP: udpPort, TCP: tcpPort}
}

// UDPAddr returns the address discovery packets are sent to.
func (n *Node) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: n.IP, Port: int(n.UDP)}
}

// TCPAddr returns the address the RLPx transport dials.
func (n *Node) TCPAddr() *net.TCPAddr {
	return &net.TCPAddr{IP: n.IP, Port: int(n.TCP)}
}

// String renders n as an enode:// URL, go-ethereum's node-address format.
func (n *Node) String() string {
	return fmt.Sprintf("enode://%s@%s:%d?discport=%d", n.ID.String()[2:], n.IP.String(), n.TCP, n.UDP)
}

// ParseNode parses an "enode://<id>@<ip>:<tcp>?discport=<udp>" URL, the
// bootstrap-node format spec.md §6's node configuration accepts.
func ParseNode(rawurl string) (*Node, error) {
	const prefix = "enode://"
	if !strings.HasPrefix(rawurl, prefix) {
		return nil, fmt.Errorf("enode: missing %q prefix", prefix)
	}
	rest := rawurl[len(prefix):]
	at := strings.IndexByte(rest, '@')
	if at < 0 {
		return nil, fmt.Errorf("enode: missing '@' separator")
	}
	idHex, hostPart := rest[:at], rest[at+1:]
	idBytes, err := hexutil.Decode("0x" + idHex)
	if err != nil || len(idBytes) != IDLength {
		return nil, fmt.Errorf("enode: invalid node id")
	}
	var id ID
	copy(id[:], idBytes)

	host := hostPart
	discport := 0
	if q := strings.IndexByte(hostPart, '?'); q >= 0 {
		host = hostPart[:q]
		query := hostPart[q+1:]
		if strings.HasPrefix(query, "discport=") {
			fmt.Sscanf(query[len("discport="):], "%d", &discport)
		}
	}
	ipStr, portStr, err := net.SplitHostPort(host)
	if err != nil {
		return nil, fmt.Errorf("enode: invalid host:port: %w", err)
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil, fmt.Errorf("enode: invalid IP %q", ipStr)
	}
	var tcpPort int
	fmt.Sscanf(portStr, "%d", &tcpPort)
	if discport == 0 {
		discport = tcpPort
	}
	return &Node{ID: id, IP: ip, UDP: uint16(discport), TCP: uint16(tcpPort)}, nil
}
