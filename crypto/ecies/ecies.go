// Copyright (c) 2013 Kyle Isom <kyle@tyrfingr.is>
// Copyright (c) 2012 The Go Authors. All rights reserved.
// This file is part of the go-ethereum library.

// Package ecies implements the Elliptic Curve Integrated Encryption Scheme,
// used by the RLPx handshake (spec.md §4.8) to encrypt AuthMsgV4/AckRespV4
// to the peer's static public key.
package ecies

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"hash"
	"io"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

var (
	ErrImportDers        = errors.New("ecies: failed to import DER key")
	ErrInvalidCurve      = errors.New("ecies: invalid elliptic curve")
	ErrInvalidPublicKey  = errors.New("ecies: invalid public key")
	ErrSharedKeyIsPointAtInfinity = errors.New("ecies: shared key is point at infinity")
	ErrSharedKeyTooBig   = errors.New("ecies: shared key params are too big")
	ErrKeyDataTooLong    = errors.New("ecies: can't supply requested key data")
	ErrInvalidMessage    = errors.New("ecies: invalid message")
)

// DefaultCurve is the curve used for the RLPx handshake: secp256k1.
var DefaultCurve = btcec.S256()

// ECIESParams groups the cipher-suite choices for an ECIES operation.
type ECIESParams struct {
	hashAlgo  func() hash.Hash
	Hash      func() hash.Hash
	Curve     elliptic.Curve
	BlockSize int
	KeyLen    int
}

var ECIES_AES128_SHA256 = &ECIESParams{
	Hash:      sha256.New,
	hashAlgo:  sha256.New,
	Curve:     DefaultCurve,
	BlockSize: aes.BlockSize,
	KeyLen:    16,
}

func paramsFromCurve(curve elliptic.Curve) *ECIESParams {
	if curve == DefaultCurve {
		return ECIES_AES128_SHA256
	}
	return nil
}

// PublicKey is an ECIES public key.
type PublicKey struct {
	X, Y  *big.Int
	Curve elliptic.Curve
	Params *ECIESParams
}

// PrivateKey is an ECIES private key.
type PrivateKey struct {
	PublicKey
	D *big.Int
}

// ImportECDSA converts a standard ecdsa private key into an ECIES one.
func ImportECDSA(prv *ecdsa.PrivateKey) *PrivateKey {
	pub := ImportECDSAPublic(&prv.PublicKey)
	return &PrivateKey{*pub, prv.D}
}

// ImportECDSAPublic converts a standard ecdsa public key into an ECIES one.
func ImportECDSAPublic(pub *ecdsa.PublicKey) *PublicKey {
	return &PublicKey{
		X:      pub.X,
		Y:      pub.Y,
		Curve:  pub.Curve,
		Params: paramsFromCurve(pub.Curve),
	}
}

// ExportECDSA converts an ECIES private key back into an ecdsa private key.
func (prv *PrivateKey) ExportECDSA() *ecdsa.PrivateKey {
	pub := &prv.PublicKey
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: pub.Curve, X: pub.X, Y: pub.Y},
		D:         prv.D,
	}
}

// GenerateKey generates a new ECIES keypair on the given curve.
func GenerateKey(rnd io.Reader, curve elliptic.Curve, params *ECIESParams) (*PrivateKey, error) {
	d, x, y, err := elliptic.GenerateKey(curve, rnd)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = paramsFromCurve(curve)
	}
	pub := PublicKey{X: x, Y: y, Curve: curve, Params: params}
	return &PrivateKey{PublicKey: pub, D: new(big.Int).SetBytes(d)}, nil
}

// GenerateShared derives the ECDH shared secret between prv and pub. It
// returns ErrSharedKeyTooBig when skLen+macLen exceeds the curve's byte
// length.
func (prv *PrivateKey) GenerateShared(pub *PublicKey, skLen, macLen int) ([]byte, error) {
	if prv.PublicKey.Curve != pub.Curve {
		return nil, ErrInvalidCurve
	}
	if skLen+macLen > maxSharedKeyLength(pub) {
		return nil, ErrSharedKeyTooBig
	}
	x, _ := pub.Curve.ScalarMult(pub.X, pub.Y, prv.D.Bytes())
	if x == nil {
		return nil, ErrSharedKeyIsPointAtInfinity
	}
	sk := make([]byte, (pub.Curve.Params().BitSize+7)/8)
	xBytes := x.Bytes()
	copy(sk[len(sk)-len(xBytes):], xBytes)
	return sk, nil
}

func maxSharedKeyLength(pub *PublicKey) int {
	return (pub.Curve.Params().BitSize + 7) / 8
}

// concatKDF implements NIST SP 800-56 Concatenation Key Derivation Function.
func concatKDF(hasher hash.Hash, z, s1 []byte, kdLen int) ([]byte, error) {
	counterBytes := make([]byte, 4)
	k := make([]byte, 0, roundup(kdLen, hasher.Size()))
	for counter := uint32(1); len(k) < kdLen; counter++ {
		binary.BigEndian.PutUint32(counterBytes, counter)
		hasher.Reset()
		hasher.Write(counterBytes)
		hasher.Write(z)
		hasher.Write(s1)
		k = hasher.Sum(k)
	}
	return k[:kdLen], nil
}

func roundup(n, m int) int {
	if n%m == 0 {
		return n
	}
	return n + m - n%m
}

func messageTag(hasher func() hash.Hash, km, msg, shared []byte) []byte {
	mac := hmac.New(hasher, km)
	mac.Write(msg)
	mac.Write(shared)
	return mac.Sum(nil)
}

func symEncrypt(rnd io.Reader, params *ECIESParams, key, plaintext []byte) (ct []byte, iv []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, params.BlockSize)
	if _, err := io.ReadFull(rnd, iv); err != nil {
		return nil, nil, err
	}
	stream := cipher.NewCTR(block, iv)
	ct = make([]byte, len(plaintext))
	stream.XORKeyStream(ct, plaintext)
	return ct, iv, nil
}

func symDecrypt(params *ECIESParams, key, ct []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ct) < params.BlockSize {
		return nil, ErrInvalidMessage
	}
	iv := ct[:params.BlockSize]
	body := ct[params.BlockSize:]
	stream := cipher.NewCTR(block, iv)
	pt := make([]byte, len(body))
	stream.XORKeyStream(pt, body)
	return pt, nil
}

// Encrypt encrypts plaintext to pub, embedding an ephemeral public key, IV,
// ciphertext, and MAC tag in the output, exactly the container format the
// RLPx handshake wraps per EIP-8 (length prefix is added by the p2p layer).
func Encrypt(rnd io.Reader, pub *PublicKey, m, s1, s2 []byte) ([]byte, error) {
	params := pub.Params
	if params == nil {
		params = paramsFromCurve(pub.Curve)
	}
	if params == nil {
		return nil, ErrInvalidCurve
	}
	ephemeral, err := GenerateKey(rnd, pub.Curve, params)
	if err != nil {
		return nil, err
	}
	z, err := ephemeral.GenerateShared(pub, params.KeyLen, params.KeyLen)
	if err != nil {
		return nil, err
	}
	hash := params.Hash()
	K, err := concatKDF(hash, z, s1, 2*params.KeyLen)
	if err != nil {
		return nil, err
	}
	Ke := K[:params.KeyLen]
	Km := K[params.KeyLen:]
	hash.Reset()
	hash.Write(Km)
	Km = hash.Sum(nil)

	em, iv, err := symEncrypt(rnd, params, Ke, m)
	if err != nil {
		return nil, err
	}
	d := messageTag(params.hashAlgo, Km, append(iv, em...), s2)

	pubBytes := elliptic.Marshal(pub.Curve, ephemeral.PublicKey.X, ephemeral.PublicKey.Y)
	out := make([]byte, 0, len(pubBytes)+len(iv)+len(em)+len(d))
	out = append(out, pubBytes...)
	out = append(out, iv...)
	out = append(out, em...)
	out = append(out, d...)
	return out, nil
}

// Decrypt reverses Encrypt using the recipient's private key.
func (prv *PrivateKey) Decrypt(ct, s1, s2 []byte) ([]byte, error) {
	params := prv.PublicKey.Params
	if params == nil {
		params = paramsFromCurve(prv.PublicKey.Curve)
	}
	if params == nil {
		return nil, ErrInvalidCurve
	}
	hashSize := params.Hash().Size()
	curveByteLen := (prv.PublicKey.Curve.Params().BitSize + 7) / 8
	pubLen := 1 + 2*curveByteLen
	if len(ct) < pubLen+params.BlockSize+hashSize {
		return nil, ErrInvalidMessage
	}

	x, y := elliptic.Unmarshal(prv.PublicKey.Curve, ct[:pubLen])
	if x == nil {
		return nil, ErrInvalidPublicKey
	}
	ephemeral := &PublicKey{X: x, Y: y, Curve: prv.PublicKey.Curve, Params: params}

	z, err := prv.GenerateShared(ephemeral, params.KeyLen, params.KeyLen)
	if err != nil {
		return nil, err
	}
	hash := params.Hash()
	K, err := concatKDF(hash, z, s1, 2*params.KeyLen)
	if err != nil {
		return nil, err
	}
	Ke := K[:params.KeyLen]
	Km := K[params.KeyLen:]
	hash.Reset()
	hash.Write(Km)
	Km = hash.Sum(nil)

	d := ct[len(ct)-hashSize:]
	body := ct[pubLen : len(ct)-hashSize]
	tag := messageTag(params.hashAlgo, Km, body, s2)
	if !hmac.Equal(d, tag) {
		return nil, ErrInvalidMessage
	}

	return symDecrypt(params, Ke, body)
}
