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

package common

import "testing"

func TestBytesConversion(t *testing.T) {
	bytes := []byte{5}
	hash := BytesToHash(bytes)

	var exp Hash
	exp[31] = 5

	if hash != exp {
		t.Errorf("expected %x got %x", exp, hash)
	}
}

func TestIsHexAddress(t *testing.T) {
	tests := []struct {
		address string
		valid   bool
	}{
		{"", false},
		{"0x", false},
		{"00", false},
		{"0x00", false},
		{"0000000000000000000000000000000000000000", true},
		{"0x0000000000000000000000000000000000000000", true},
		{"000000000000000000000000000000000000000", false},
		{"0x000000000000000000000000000000000000000", false},
		{"0x0000000000000000000000000000000000000000", true},
		{"00x0000000000000000000000000000000000000", false},
		{"0x0x0000000000000000000000000000000000000", false},
		{"abcdefghijklmnopqrstuvwxyz0123456789xxxx", false},
		{"0xabcdefghijklmnopqrstuvwxyz0123456789xxxx", false},
		{"0x00000000000000000000000000000000000000dd", true},
		{"00000000000000000000000000000000000000dd", true},
	}

	for i, tt := range tests {
		if valid := IsHexAddress(tt.address); valid != tt.valid {
			t.Errorf("test %d: address validity mismatch: have %v, want %v (%s)", i, valid, tt.valid, tt.address)
		}
	}
}

func TestAddressHex(t *testing.T) {
	addr := HexToAddress("0x00000000000000000000000000000000000000dd")
	if addr.Hex() != "0x00000000000000000000000000000000000000dd" {
		t.Errorf("got %s", addr.Hex())
	}
}
