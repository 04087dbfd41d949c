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

import "fmt"

// DiscReason is the code sent in a disconnect packet, identifying why a
// peer connection is being torn down (spec.md §4.8 "Failure model").
type DiscReason uint

const (
	DiscRequested DiscReason = iota
	DiscNetworkError
	DiscProtocolError
	DiscUselessPeer
	DiscTooManyPeers
	DiscAlreadyConnected
	DiscIncompatibleVersion
	DiscInvalidIdentity
	DiscQuitting
	DiscUnexpectedIdentity
	DiscSelf
	DiscReadTimeout
	DiscSubprotocolError
)

var discReasonStrings = [...]string{
	DiscRequested:           "disconnect requested",
	DiscNetworkError:        "network error",
	DiscProtocolError:       "breach of protocol",
	DiscUselessPeer:         "useless peer",
	DiscTooManyPeers:        "too many peers",
	DiscAlreadyConnected:    "already connected",
	DiscIncompatibleVersion: "incompatible p2p protocol version",
	DiscInvalidIdentity:     "invalid node identity",
	DiscQuitting:            "client quitting",
	DiscUnexpectedIdentity:  "unexpected identity",
	DiscSelf:                "connected to self",
	DiscReadTimeout:         "read timeout",
	DiscSubprotocolError:    "subprotocol error",
}

func (d DiscReason) Error() string {
	if int(d) < len(discReasonStrings) {
		return discReasonStrings[d]
	}
	return fmt.Sprintf("unknown disconnect reason %d", uint(d))
}

func (d DiscReason) String() string { return d.Error() }

// the other malformed-input failure modes spec.md §4.8's "Failure model"
// lists alongside DiscReason.
var (
	errBadMAC         = fmt.Errorf("p2p: bad MAC")
	errBadFrameSize   = fmt.Errorf("p2p: bad frame size")
	errMalformedRLP   = fmt.Errorf("p2p: malformed RLP")
	errUnknownCap     = fmt.Errorf("p2p: unknown capability")
	errAlreadyRunning = fmt.Errorf("p2p: server already running")
)
