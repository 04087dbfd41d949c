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

// Package math provides safe big.Int helpers shared by the difficulty
// function (consensus/ethash), the EVM's 256-bit arithmetic (core/vm) and
// genesis account parsing (core.Genesis).
package math

import "math/big"

var (
	tt255   = BigPow(2, 255)
	tt256   = BigPow(2, 256)
	tt256m1 = new(big.Int).Sub(tt256, big.NewInt(1))

	// MaxBig256 is the maximum value representable by a 256-bit word
	// (spec.md §3 "Word — 256-bit big-endian unsigned integer").
	MaxBig256 = new(big.Int).Set(tt256m1)
)

// BigPow returns a ** b as a big integer.
func BigPow(a, b int64) *big.Int {
	r := big.NewInt(a)
	return r.Exp(r, big.NewInt(b), nil)
}

// BigMax returns the larger of x or y.
func BigMax(x, y *big.Int) *big.Int {
	if x.Cmp(y) < 0 {
		return y
	}
	return x
}

// BigMin returns the smaller of x or y.
func BigMin(x, y *big.Int) *big.Int {
	if x.Cmp(y) > 0 {
		return y
	}
	return x
}

// U256 wraps v into the 256-bit unsigned range, matching the EVM's modular
// word arithmetic (spec.md §3).
func U256(v *big.Int) *big.Int {
	return v.And(v, tt256m1)
}

// S256 interprets v as a two's-complement signed 256-bit word, used by
// signed opcodes (SDIV, SMOD, SGT, SLT).
func S256(v *big.Int) *big.Int {
	if v.Cmp(tt255) < 0 {
		return v
	}
	return new(big.Int).Sub(v, tt256)
}

// PaddedBigBytes encodes bigint as a big-endian byte slice, left-padded
// with zeros to n bytes.
func PaddedBigBytes(bigint *big.Int, n int) []byte {
	if bigint.BitLen()/8 >= n {
		return bigint.Bytes()
	}
	ret := make([]byte, n)
	ReadBits(bigint, ret)
	return ret
}

// ReadBits fills buf with the big-endian bytes of bigint, left-padded with
// zeros.
func ReadBits(bigint *big.Int, buf []byte) {
	i := len(buf)
	for _, d := range bigint.Bits() {
		for j := 0; j < wordBytes && i > 0; j++ {
			i--
			buf[i] = byte(d)
			d >>= 8
		}
	}
}

const wordBits = 32 << (uint64(^big.Word(0)) >> 63)
const wordBytes = wordBits / 8
