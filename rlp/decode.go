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

package rlp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"reflect"
)

var (
	ErrExpectedString    = errors.New("rlp: expected string or byte")
	ErrExpectedList      = errors.New("rlp: expected list")
	ErrCanonSize         = errors.New("rlp: non-canonical size information")
	ErrCanonInt          = errors.New("rlp: non-canonical integer format")
	ErrElemTooLarge      = errors.New("rlp: element is larger than containing list")
	ErrValueTooLarge     = errors.New("rlp: value size exceeds available input")
	ErrMoreThanOneValue  = errors.New("rlp: input contains more than one value")
	ErrUnsupportedType   = errors.New("rlp: type is not RLP-deserializable")
	errUintOverflow      = errors.New("rlp: uint overflow")
	errNotAPointer       = errors.New("rlp: interface given to Decode must be a non-nil pointer")
)

// item is a decoded RLP node: either a byte string (list == false) or an
// ordered sequence of child items (list == true).
type item struct {
	list     bool
	content  []byte // raw payload for a string item
	children []item // child items for a list item
}

// Decode parses RLP-encoded data from r into the value pointed to by val.
func Decode(r io.Reader, val interface{}) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return DecodeBytes(b, val)
}

// DecodeBytes parses the RLP-encoded data in b into the value pointed to by
// val. The full input must be consumed by exactly one value.
func DecodeBytes(b []byte, val interface{}) error {
	rv := reflect.ValueOf(val)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errNotAPointer
	}
	it, rest, err := parseItem(b)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return ErrMoreThanOneValue
	}
	return decodeInto(it, rv.Elem())
}

// Split returns the raw content of the first RLP value in b, along with the
// remaining unconsumed bytes, and whether the value is a list.
func Split(b []byte) (kind byte, content, rest []byte, err error) {
	it, rest, err := parseItem(b)
	if err != nil {
		return 0, nil, nil, err
	}
	if it.list {
		return 0xc0, encodeItemPayload(it), rest, nil
	}
	return 0x80, it.content, rest, nil
}

// SplitRaw returns the full raw encoding (header + payload) of the first
// value in b, plus the unconsumed remainder. Used by trie node decoding to
// distinguish an embedded child node (itself a list) from a 32-byte hash
// reference without fully decoding either.
func SplitRaw(b []byte) (raw, rest []byte, err error) {
	it, rest, err := parseItem(b)
	if err != nil {
		return nil, nil, err
	}
	return reEncode(it), rest, nil
}

func encodeItemPayload(it item) []byte {
	var buf bytes.Buffer
	for _, c := range it.children {
		if c.list {
			writeListHeader(&buf, len(encodeItemPayload(c)))
			buf.Write(encodeItemPayload(c))
		} else {
			writeString(&buf, c.content)
		}
	}
	return buf.Bytes()
}

// parseItem parses exactly one RLP value from the front of b, enforcing
// canonical length-prefix encoding, and returns the unconsumed remainder.
func parseItem(b []byte) (item, []byte, error) {
	if len(b) == 0 {
		return item{}, nil, io.ErrUnexpectedEOF
	}
	prefix := b[0]
	switch {
	case prefix < 0x80:
		return item{content: b[0:1]}, b[1:], nil

	case prefix < 0xb8:
		size := int(prefix - 0x80)
		if len(b) < 1+size {
			return item{}, nil, ErrValueTooLarge
		}
		content := b[1 : 1+size]
		if size == 1 && content[0] < 0x80 {
			return item{}, nil, ErrCanonSize
		}
		return item{content: content}, b[1+size:], nil

	case prefix < 0xc0:
		lenOfLen := int(prefix - 0xb7)
		if len(b) < 1+lenOfLen {
			return item{}, nil, ErrValueTooLarge
		}
		sizeBytes := b[1 : 1+lenOfLen]
		if sizeBytes[0] == 0 {
			return item{}, nil, ErrCanonSize
		}
		size, err := decodeLength(sizeBytes)
		if err != nil {
			return item{}, nil, err
		}
		if size < 56 {
			return item{}, nil, ErrCanonSize
		}
		start := 1 + lenOfLen
		if len(b) < start+size {
			return item{}, nil, ErrValueTooLarge
		}
		return item{content: b[start : start+size]}, b[start+size:], nil

	case prefix < 0xf8:
		size := int(prefix - 0xc0)
		if len(b) < 1+size {
			return item{}, nil, ErrValueTooLarge
		}
		return parseListBody(b[1:1+size], b[1+size:])

	default:
		lenOfLen := int(prefix - 0xf7)
		if len(b) < 1+lenOfLen {
			return item{}, nil, ErrValueTooLarge
		}
		sizeBytes := b[1 : 1+lenOfLen]
		if sizeBytes[0] == 0 {
			return item{}, nil, ErrCanonSize
		}
		size, err := decodeLength(sizeBytes)
		if err != nil {
			return item{}, nil, err
		}
		if size < 56 {
			return item{}, nil, ErrCanonSize
		}
		start := 1 + lenOfLen
		if len(b) < start+size {
			return item{}, nil, ErrValueTooLarge
		}
		return parseListBody(b[start:start+size], b[start+size:])
	}
}

func parseListBody(body, rest []byte) (item, []byte, error) {
	var children []item
	for len(body) > 0 {
		var (
			child item
			err   error
		)
		child, body, err = parseItem(body)
		if err != nil {
			return item{}, nil, err
		}
		children = append(children, child)
	}
	return item{list: true, children: children}, rest, nil
}

func decodeLength(b []byte) (int, error) {
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	if n > uint64(int(^uint(0)>>1)) {
		return 0, ErrValueTooLarge
	}
	return int(n), nil
}

func decodeInto(it item, v reflect.Value) error {
	if v.Type() == rawValueType {
		v.SetBytes(reEncode(it))
		return nil
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return decodeInto(it, v.Elem())
	}

	switch v.Kind() {
	case reflect.Struct:
		if v.Type() == bigIntType {
			return decodeBigInt(it, v.Addr().Interface().(*big.Int))
		}
		if !it.list {
			return ErrExpectedList
		}
		return decodeStruct(it, v)

	case reflect.Slice:
		if isByteSlice(v.Type()) {
			if it.list {
				return ErrExpectedString
			}
			v.SetBytes(append([]byte{}, it.content...))
			return nil
		}
		if !it.list {
			return ErrExpectedList
		}
		sl := reflect.MakeSlice(v.Type(), len(it.children), len(it.children))
		for i, c := range it.children {
			if err := decodeInto(c, sl.Index(i)); err != nil {
				return err
			}
		}
		v.Set(sl)
		return nil

	case reflect.Array:
		if isByteSlice(v.Type()) {
			if it.list {
				return ErrExpectedString
			}
			if len(it.content) != v.Len() {
				return fmt.Errorf("rlp: array length mismatch: have %d want %d", len(it.content), v.Len())
			}
			reflect.Copy(v, reflect.ValueOf(it.content))
			return nil
		}
		if !it.list || len(it.children) != v.Len() {
			return ErrExpectedList
		}
		for i, c := range it.children {
			if err := decodeInto(c, v.Index(i)); err != nil {
				return err
			}
		}
		return nil

	case reflect.String:
		if it.list {
			return ErrExpectedString
		}
		v.SetString(string(it.content))
		return nil

	case reflect.Bool:
		if it.list {
			return ErrExpectedString
		}
		switch {
		case len(it.content) == 0:
			v.SetBool(false)
		case len(it.content) == 1 && it.content[0] == 1:
			v.SetBool(true)
		default:
			return errors.New("rlp: invalid boolean value")
		}
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if it.list {
			return ErrExpectedString
		}
		n, err := decodeUint(it.content, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
		return nil

	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedType, v.Type())
	}
}

func decodeStruct(it item, v reflect.Value) error {
	t := v.Type()
	var fieldIdx int
	exported := make([]int, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" || f.Tag.Get("rlp") == "-" {
			continue
		}
		exported = append(exported, i)
	}
	if len(it.children) != len(exported) {
		return fmt.Errorf("rlp: struct %s: got %d fields, want %d", t.Name(), len(it.children), len(exported))
	}
	for _, fi := range exported {
		f := t.Field(fi)
		child := it.children[fieldIdx]
		if f.Tag.Get("rlp") == "nil" && f.Type.Kind() == reflect.Ptr && !child.list && len(child.content) == 0 {
			v.Field(fi).Set(reflect.Zero(f.Type))
		} else if err := decodeInto(child, v.Field(fi)); err != nil {
			return fmt.Errorf("rlp: field %s: %w", t.Field(fi).Name, err)
		}
		fieldIdx++
	}
	return nil
}

func decodeBigInt(it item, i *big.Int) error {
	if it.list {
		return ErrExpectedString
	}
	if len(it.content) > 0 && it.content[0] == 0 {
		return ErrCanonInt
	}
	i.SetBytes(it.content)
	return nil
}

func decodeUint(content []byte, bits int) (uint64, error) {
	if len(content) > 0 && content[0] == 0 {
		return 0, ErrCanonInt
	}
	if len(content) > 8 {
		return 0, errUintOverflow
	}
	var n uint64
	for _, c := range content {
		n = n<<8 | uint64(c)
	}
	if bits < 64 && n >= (uint64(1)<<uint(bits)) {
		return 0, errUintOverflow
	}
	return n, nil
}

func reEncode(it item) []byte {
	var buf bytes.Buffer
	if it.list {
		payload := encodeItemPayload(it)
		writeListHeader(&buf, len(payload))
		buf.Write(payload)
	} else {
		writeString(&buf, it.content)
	}
	return buf.Bytes()
}
