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

// Protocol is an application-level sub-protocol multiplexed over one RLPx
// session (eth/62, eth/63, ...). Name+Version identify it during capability
// negotiation; Length is the number of packet codes it reserves, spec.md
// §4.8's "each capability is assigned a contiguous packet-id range".
type Protocol struct {
	Name    string
	Version uint
	Length  uint64

	// Run is launched in its own goroutine once the capability has been
	// negotiated with a peer. It owns rw for the protocol's lifetime and
	// returning ends the peer's participation in this capability; a
	// non-nil error tears down the whole connection.
	Run func(peer *Peer, rw MsgReadWriter) error
}

func (p Protocol) cap() Cap {
	return Cap{Name: p.Name, Version: p.Version}
}
