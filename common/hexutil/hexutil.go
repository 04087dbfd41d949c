// Copyright 2017 The go-ethereum Authors
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

// Package hexutil implements hex encoding with 0x prefixes for JSON, used by
// chain-spec and genesis-allocation fields (spec.md §6 "Chain specification
// (input)") so genesis.json files round-trip the same way geth's do.
package hexutil

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
)

const uintBits = 32 << (uint64(^uint(0)) >> 63)

var (
	ErrEmptyString  = errors.New("empty hex string")
	ErrSyntax       = errors.New("invalid hex string")
	ErrMissingPrefix = errors.New("hex string without 0x prefix")
	ErrOddLength    = errors.New("hex string of odd length")
	ErrEmptyNumber  = errors.New("hex string \"0x\"")
	ErrLeadingZero  = errors.New("hex number with leading zero digits")
	ErrUint64Range  = errors.New("hex number > 64 bits")
	ErrBig256Range  = errors.New("hex number > 256 bits")
)

// Decode decodes a hex string with 0x prefix.
func Decode(input string) ([]byte, error) {
	if len(input) == 0 {
		return nil, ErrEmptyString
	}
	if !has0xPrefix(input) {
		return nil, ErrMissingPrefix
	}
	b, err := hex.DecodeString(input[2:])
	if err != nil {
		err = mapHexError(err)
	}
	return b, err
}

// MustDecode decodes a hex string with 0x prefix, panicking on error. Used
// for compile-time-constant test fixtures, matching the teacher's usage.
func MustDecode(input string) []byte {
	dec, err := Decode(input)
	if err != nil {
		panic(err)
	}
	return dec
}

// Encode encodes b as a hex string with 0x prefix.
func Encode(b []byte) string {
	enc := make([]byte, len(b)*2+2)
	copy(enc, "0x")
	hex.Encode(enc[2:], b)
	return string(enc)
}

// DecodeUint64 decodes a hex string with 0x prefix as a quantity.
func DecodeUint64(input string) (uint64, error) {
	raw, err := checkNumber(input)
	if err != nil {
		return 0, err
	}
	dec, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		err = mapHexError(err)
	}
	return dec, err
}

// EncodeUint64 encodes i as a hex string with 0x prefix.
func EncodeUint64(i uint64) string {
	enc := make([]byte, 2, 10)
	copy(enc, "0x")
	return string(strconv.AppendUint(enc, i, 16))
}

// DecodeBig decodes a hex string with 0x prefix as a quantity, arbitrary
// precision (genesis account balances may exceed 64 bits).
func DecodeBig(input string) (*big.Int, error) {
	raw, err := checkNumber(input)
	if err != nil {
		return nil, err
	}
	if len(raw) > 64 {
		return nil, ErrBig256Range
	}
	bigWordNibbles := 16
	words := make([]big.Word, len(raw)/bigWordNibbles+1)
	end := len(raw)
	for i := range words {
		start := end - bigWordNibbles
		if start < 0 {
			start = 0
		}
		for ri := start; ri < end; ri++ {
			nib, err := decodeNibble(raw[ri])
			if err != nil {
				return nil, ErrSyntax
			}
			words[i] = words[i]*16 + big.Word(nib)
		}
		end = start
	}
	dec := new(big.Int).SetBits(words)
	return dec, nil
}

// EncodeBig encodes bigint as a hex string with 0x prefix.
func EncodeBig(bigint *big.Int) string {
	if bigint.Sign() == 0 {
		return "0x0"
	}
	return fmt.Sprintf("%#x", bigint)
}

func checkNumber(input string) (raw string, err error) {
	if len(input) == 0 {
		return "", ErrEmptyString
	}
	if !has0xPrefix(input) {
		return "", ErrMissingPrefix
	}
	input = input[2:]
	if len(input) == 0 {
		return "", ErrEmptyNumber
	}
	if len(input) > 1 && input[0] == '0' {
		return "", ErrLeadingZero
	}
	return input, nil
}

func decodeNibble(in byte) (uint64, error) {
	switch {
	case in >= '0' && in <= '9':
		return uint64(in - '0'), nil
	case in >= 'A' && in <= 'F':
		return uint64(in-'A') + 10, nil
	case in >= 'a' && in <= 'f':
		return uint64(in-'a') + 10, nil
	default:
		return 0, ErrSyntax
	}
}

func mapHexError(err error) error {
	var e hex.InvalidByteError
	switch {
	case errors.As(err, &e):
		return ErrSyntax
	case errors.Is(err, hex.ErrLength):
		return ErrOddLength
	case errors.Is(err, strconv.ErrRange):
		return ErrUint64Range
	default:
		return err
	}
}

func has0xPrefix(input string) bool {
	return len(input) >= 2 && input[0] == '0' && (input[1] == 'x' || input[1] == 'X')
}

// Bytes marshals/unmarshals as a JSON string with 0x prefix. Used for
// genesis extra-data and account code fields.
type Bytes []byte

func (b Bytes) MarshalText() ([]byte, error) {
	result := make([]byte, len(b)*2+2)
	copy(result, `0x`)
	hex.Encode(result[2:], b)
	return result, nil
}

func (b *Bytes) UnmarshalJSON(input []byte) error {
	if !isString(input) {
		return errNonString("hexutil.Bytes")
	}
	return b.UnmarshalText(input[1 : len(input)-1])
}

func (b *Bytes) UnmarshalText(input []byte) error {
	raw, err := checkText(input)
	if err != nil {
		return err
	}
	dec := make([]byte, len(raw)/2)
	if _, err = hex.Decode(dec, raw); err != nil {
		return mapHexError(err)
	}
	*b = dec
	return nil
}

func (b Bytes) String() string { return Encode(b) }

// Uint64 marshals/unmarshals as a JSON string with 0x prefix.
type Uint64 uint64

func (i Uint64) MarshalText() ([]byte, error) {
	return []byte(EncodeUint64(uint64(i))), nil
}

func (i *Uint64) UnmarshalJSON(input []byte) error {
	if !isString(input) {
		return errNonString("hexutil.Uint64")
	}
	return i.UnmarshalText(input[1 : len(input)-1])
}

func (i *Uint64) UnmarshalText(input []byte) error {
	raw, err := checkNumberText(input)
	if err != nil {
		return err
	}
	if len(raw) > 16 {
		return ErrUint64Range
	}
	var result uint64
	for _, c := range raw {
		nib, err := decodeNibble(c)
		if err != nil {
			return ErrSyntax
		}
		result = result*16 + nib
	}
	*i = Uint64(result)
	return nil
}

// Big marshals/unmarshals as a JSON string with 0x prefix. Used for genesis
// account balances and difficulty.
type Big big.Int

func (b Big) MarshalText() ([]byte, error) {
	return []byte(EncodeBig((*big.Int)(&b))), nil
}

func (b *Big) UnmarshalJSON(input []byte) error {
	if !isString(input) {
		return errNonString("hexutil.Big")
	}
	return b.UnmarshalText(input[1 : len(input)-1])
}

func (b *Big) UnmarshalText(input []byte) error {
	raw, err := checkNumberText(input)
	if err != nil {
		return err
	}
	if len(raw) > 64 {
		return ErrBig256Range
	}
	words := make([]big.Word, len(raw)/16+1)
	end := len(raw)
	for i := range words {
		start := end - 16
		if start < 0 {
			start = 0
		}
		for ri := start; ri < end; ri++ {
			nib, err := decodeNibble(raw[ri])
			if err != nil {
				return ErrSyntax
			}
			words[i] = words[i]*16 + big.Word(nib)
		}
		end = start
	}
	dec := new(big.Int).SetBits(words)
	*(*big.Int)(b) = *dec
	return nil
}

func (b *Big) ToInt() *big.Int { return (*big.Int)(b) }

func isString(input []byte) bool {
	return len(input) >= 2 && input[0] == '"' && input[len(input)-1] == '"'
}

func checkText(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if !has0xPrefix(string(input)) {
		return nil, ErrMissingPrefix
	}
	input = input[2:]
	if len(input)%2 != 0 {
		return nil, ErrOddLength
	}
	return input, nil
}

func checkNumberText(input []byte) (raw []byte, err error) {
	if len(input) == 0 {
		return nil, nil
	}
	if !has0xPrefix(string(input)) {
		return nil, ErrMissingPrefix
	}
	input = input[2:]
	if len(input) == 0 {
		return nil, ErrEmptyNumber
	}
	if len(input) > 1 && input[0] == '0' {
		return nil, ErrLeadingZero
	}
	return input, nil
}

func errNonString(typ string) error {
	return fmt.Errorf("json: cannot unmarshal non-string into Go value of type %s", typ)
}
