// Copyright (c) 2013 Kyle Isom <kyle@tyrfingr.is>
// This file is part of the go-ethereum library.

package ecies

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	prv, err := GenerateKey(rand.Reader, DefaultCurve, nil)
	if err != nil {
		t.Fatal(err)
	}
	message := []byte("ECIES test message, auth data appended")
	ct, err := Encrypt(rand.Reader, &prv.PublicKey, message, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	pt, err := prv.Decrypt(ct, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(pt, message) {
		t.Fatalf("decrypted mismatch: got %x want %x", pt, message)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	prv1, _ := GenerateKey(rand.Reader, DefaultCurve, nil)
	prv2, _ := GenerateKey(rand.Reader, DefaultCurve, nil)
	ct, err := Encrypt(rand.Reader, &prv1.PublicKey, []byte("secret"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := prv2.Decrypt(ct, nil, nil); err == nil {
		t.Fatal("expected decryption with the wrong key to fail")
	}
}

func TestSharedKeyMatches(t *testing.T) {
	prv1, _ := GenerateKey(rand.Reader, DefaultCurve, nil)
	prv2, _ := GenerateKey(rand.Reader, DefaultCurve, nil)
	s1, err := prv1.GenerateShared(&prv2.PublicKey, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := prv2.GenerateShared(&prv1.PublicKey, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(s1, s2) {
		t.Fatalf("ECDH shared secrets differ: %x vs %x", s1, s2)
	}
}
