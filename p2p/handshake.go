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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
	"github.com/ethereum/go-ethereum/rlp"
)

const (
	sigLen = 65 // signature + recovery id
	pubLen = 64 // uncompressed public key, format byte stripped
	shaLen = 32
)

var (
	ErrHandshakeTimeout = errors.New("p2p: handshake timeout")
	errInvalidAuth      = errors.New("p2p: invalid auth message")
)

// authMsgV4 is AuthMsgV4 (spec.md §4.8): "sig over (static-shared-secret
// XOR nonce), static-public-key, nonce, protocol-version".
type authMsgV4 struct {
	Signature       [sigLen]byte
	InitiatorPubkey [pubLen]byte
	Nonce           [shaLen]byte
	Version         uint
}

// authRespV4 is AckRespV4: "ephemeral-public-key, nonce, protocol-version".
type authRespV4 struct {
	RandomPubkey [pubLen]byte
	Nonce        [shaLen]byte
	Version      uint
}

// encHandshake carries the state one side of the RLPx encrypted handshake
// accumulates across the auth/ack exchange, the input to secrets().
type encHandshake struct {
	initiator bool
	remote    *ecdsa.PublicKey // the peer's static public key

	initNonce, respNonce []byte
	randomPrivKey        *ecdsa.PrivateKey // our ephemeral key
	remoteRandomPub      *ecdsa.PublicKey  // peer's ephemeral key
}

// doEncHandshake runs spec.md §4.8 phase 1 over conn, returning the session
// secrets phase 2's frame codec is built from.
func doEncHandshake(conn io.ReadWriter, prv *ecdsa.PrivateKey, dialDest *ecdsa.PublicKey) (secrets, error) {
	h := &encHandshake{initiator: dialDest != nil, remote: dialDest}
	if h.initiator {
		return h.initiatorEncHandshake(conn, prv)
	}
	return h.receiverEncHandshake(conn, prv)
}

func (h *encHandshake) initiatorEncHandshake(conn io.ReadWriter, prv *ecdsa.PrivateKey) (secrets, error) {
	authMsg, err := h.makeAuthMsg(prv)
	if err != nil {
		return secrets{}, err
	}
	authPacket, err := h.sealEIP8(authMsg, h.remote)
	if err != nil {
		return secrets{}, err
	}
	if _, err := conn.Write(authPacket); err != nil {
		return secrets{}, err
	}

	ackPacket, ackMsg, err := readHandshakeMsg(conn, prv, new(authRespV4))
	if err != nil {
		return secrets{}, err
	}
	resp := ackMsg.(*authRespV4)
	h.respNonce = resp.Nonce[:]
	h.remoteRandomPub, err = importPublicKey(resp.RandomPubkey[:])
	if err != nil {
		return secrets{}, err
	}
	return h.secrets(authPacket, ackPacket)
}

func (h *encHandshake) receiverEncHandshake(conn io.ReadWriter, prv *ecdsa.PrivateKey) (secrets, error) {
	authPacket, authIface, err := readHandshakeMsg(conn, prv, new(authMsgV4))
	if err != nil {
		return secrets{}, err
	}
	auth := authIface.(*authMsgV4)
	h.initNonce = auth.Nonce[:]
	h.remote, err = importPublicKey(auth.InitiatorPubkey[:])
	if err != nil {
		return secrets{}, err
	}
	staticShared, err := ecdhSharedSecret(prv, h.remote)
	if err != nil {
		return secrets{}, err
	}
	h.remoteRandomPub, err = crypto.SigToPub(xorBytes(staticShared, h.initNonce), auth.Signature[:])
	if err != nil {
		return secrets{}, err
	}

	h.randomPrivKey, err = crypto.GenerateKey()
	if err != nil {
		return secrets{}, err
	}
	h.respNonce = make([]byte, shaLen)
	if _, err := rand.Read(h.respNonce); err != nil {
		return secrets{}, err
	}
	resp := &authRespV4{Version: 4}
	copy(resp.Nonce[:], h.respNonce)
	copy(resp.RandomPubkey[:], exportPublicKey(&h.randomPrivKey.PublicKey))

	ackPacket, err := h.sealEIP8(resp, h.remote)
	if err != nil {
		return secrets{}, err
	}
	if _, err := conn.Write(ackPacket); err != nil {
		return secrets{}, err
	}
	return h.secrets(authPacket, ackPacket)
}

// makeAuthMsg builds AuthMsgV4 as the initiator: a signature over the
// static ECDH secret XOR our random nonce, proving possession of prv
// without revealing it.
func (h *encHandshake) makeAuthMsg(prv *ecdsa.PrivateKey) (*authMsgV4, error) {
	staticShared, err := ecdhSharedSecret(prv, h.remote)
	if err != nil {
		return nil, err
	}
	h.initNonce = make([]byte, shaLen)
	if _, err := rand.Read(h.initNonce); err != nil {
		return nil, err
	}
	signed := xorBytes(staticShared, h.initNonce)

	h.randomPrivKey, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	signature, err := crypto.Sign(signed, h.randomPrivKey)
	if err != nil {
		return nil, err
	}
	msg := new(authMsgV4)
	copy(msg.Signature[:], signature)
	copy(msg.InitiatorPubkey[:], exportPublicKey(&prv.PublicKey))
	copy(msg.Nonce[:], h.initNonce)
	msg.Version = 4
	return msg, nil
}

// secrets derives the frame-codec keys from the ephemeral ECDH secret and
// both nonces, per spec.md §4.8: "derive frame secrets by combining the
// ECDH of ephemeral keys with both nonces and the literal auth/ack byte
// sequences."
func (h *encHandshake) secrets(auth, authResp []byte) (secrets, error) {
	ecdheSecret, err := ecdhSharedSecret(h.randomPrivKey, h.remoteRandomPub)
	if err != nil {
		return secrets{}, err
	}

	sharedSecret := crypto.Keccak256(ecdheSecret, crypto.Keccak256(h.respNonce, h.initNonce))
	aesSecret := crypto.Keccak256(ecdheSecret, sharedSecret)
	s := secrets{
		AES: aesSecret,
		MAC: crypto.Keccak256(ecdheSecret, aesSecret),
	}

	mac1 := crypto.NewKeccakState()
	mac1.Write(xorBytes(s.MAC, h.respNonce))
	mac1.Write(auth)
	mac2 := crypto.NewKeccakState()
	mac2.Write(xorBytes(s.MAC, h.initNonce))
	mac2.Write(authResp)

	if h.initiator {
		s.EgressMAC, s.IngressMAC = mac1, mac2
	} else {
		s.EgressMAC, s.IngressMAC = mac2, mac1
	}
	return s, nil
}

// sealEIP8 RLP-encodes msg and wraps it per EIP-8: a 2-byte big-endian size
// prefix followed by an ECIES ciphertext keyed, as additional authenticated
// data, on that prefix (spec.md §4.8: "always write EIP-8").
func (h *encHandshake) sealEIP8(msg interface{}, remote *ecdsa.PublicKey) ([]byte, error) {
	plain, err := rlp.EncodeToBytes(msg)
	if err != nil {
		return nil, err
	}
	pad := make([]byte, 100+(len(plain)%16))
	if _, err := rand.Read(pad); err != nil {
		return nil, err
	}
	plain = append(plain, pad...)

	prefix := make([]byte, 2)
	eciesOverhead := 65 + 16 + 32
	binary.BigEndian.PutUint16(prefix, uint16(len(plain)+eciesOverhead))

	enc, err := ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(remote), plain, nil, prefix)
	if err != nil {
		return nil, err
	}
	return append(prefix, enc...), nil
}

// readHandshakeMsg reads one EIP-8-or-legacy-wrapped handshake packet off
// conn and decodes it into out (an *authMsgV4 or *authRespV4), returning
// the exact bytes read (needed verbatim by secrets()).
func readHandshakeMsg(conn io.ReadWriter, prv *ecdsa.PrivateKey, out interface{}) ([]byte, interface{}, error) {
	prefix := make([]byte, 2)
	if _, err := io.ReadFull(conn, prefix); err != nil {
		return nil, nil, err
	}
	size := binary.BigEndian.Uint16(prefix)
	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, nil, err
	}
	key := ecies.ImportECDSA(prv)
	dec, err := key.Decrypt(body, nil, prefix)
	if err == nil {
		if err := rlp.DecodeBytes(dec, out); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", errInvalidAuth, err)
		}
		return append(prefix, body...), out, nil
	}

	// Fall back to the pre-EIP-8 plain form: no size prefix, whole packet
	// is the ECIES ciphertext with no AAD, sized by the wire-fixed legacy
	// message lengths.
	legacy := append(append([]byte{}, prefix...), body...)
	dec, err = key.Decrypt(legacy, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errInvalidAuth, err)
	}
	if err := rlp.DecodeBytes(dec, out); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errInvalidAuth, err)
	}
	return legacy, out, nil
}

// ecdhSharedSecret returns the X coordinate of the ECDH shared point
// between prv and pub, the raw material both the static and ephemeral
// secrets (spec.md §4.8) are derived from.
func ecdhSharedSecret(prv *ecdsa.PrivateKey, pub *ecdsa.PublicKey) ([]byte, error) {
	if prv == nil || pub == nil {
		return nil, errors.New("p2p: missing key for ECDH")
	}
	x, _ := pub.Curve.ScalarMult(pub.X, pub.Y, prv.D.Bytes())
	if x == nil {
		return nil, errors.New("p2p: ECDH shared secret is point at infinity")
	}
	sk := make([]byte, (pub.Curve.Params().BitSize+7)/8)
	xBytes := x.Bytes()
	copy(sk[len(sk)-len(xBytes):], xBytes)
	return sk, nil
}

func exportPublicKey(pub *ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(pub)[1:] // strip the 0x04 prefix byte
}

func importPublicKey(b []byte) (*ecdsa.PublicKey, error) {
	if len(b) != pubLen {
		return nil, fmt.Errorf("p2p: invalid public key length %d", len(b))
	}
	full := append([]byte{0x04}, b...)
	x, y := elliptic.Unmarshal(crypto.S256(), full)
	if x == nil {
		return nil, fmt.Errorf("p2p: invalid public key")
	}
	return &ecdsa.PublicKey{Curve: crypto.S256(), X: x, Y: y}, nil
}
