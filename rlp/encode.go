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

// RawValue represents an already RLP-encoded value, copied verbatim into the
// output by Encode and left unparsed by Decode.
type RawValue []byte

// Encoder is implemented by types that want to control their own RLP
// encoding.
type Encoder interface {
	EncodeRLP(io.Writer) error
}

var (
	ErrNegativeBigInt = errors.New("rlp: cannot encode negative big.Int")

	encoderInterface = reflect.TypeOf((*Encoder)(nil)).Elem()
	bigIntType       = reflect.TypeOf(big.Int{})
	rawValueType     = reflect.TypeOf(RawValue{})
)

// Encode writes the canonical RLP encoding of val to w.
func Encode(w io.Writer, val interface{}) error {
	buf, err := EncodeToBytes(val)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// EncodeToBytes returns the canonical RLP encoding of val.
func EncodeToBytes(val interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, reflect.ValueOf(val)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v reflect.Value) error {
	if !v.IsValid() {
		// nil interface{}: encode as empty string.
		writeString(buf, nil)
		return nil
	}
	if v.Type() == rawValueType {
		raw := v.Interface().(RawValue)
		if len(raw) == 0 {
			return errors.New("rlp: cannot encode empty RawValue")
		}
		buf.Write(raw)
		return nil
	}
	if v.Type().Implements(encoderInterface) {
		return v.Interface().(Encoder).EncodeRLP(buf)
	}
	if v.CanAddr() && reflect.PtrTo(v.Type()).Implements(encoderInterface) {
		return v.Addr().Interface().(Encoder).EncodeRLP(buf)
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			if v.Type().Elem().Kind() == reflect.Array && v.Type().Elem().Elem().Kind() == reflect.Uint8 {
				writeString(buf, nil)
				return nil
			}
			return encodeValue(buf, reflect.Zero(v.Type().Elem()))
		}
		return encodeValue(buf, v.Elem())

	case reflect.Struct:
		if v.Type() == bigIntType {
			return encodeBigInt(buf, v.Addr().Interface().(*big.Int))
		}
		return encodeStruct(buf, v)

	case reflect.Slice, reflect.Array:
		if isByteSlice(v.Type()) {
			writeString(buf, toBytes(v))
			return nil
		}
		return encodeList(buf, v)

	case reflect.String:
		writeString(buf, []byte(v.String()))
		return nil

	case reflect.Bool:
		if v.Bool() {
			writeString(buf, []byte{1})
		} else {
			writeString(buf, nil)
		}
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		writeUint(buf, v.Uint())
		return nil

	case reflect.Interface:
		return encodeValue(buf, v.Elem())

	default:
		return fmt.Errorf("rlp: type %v is not RLP-serializable", v.Type())
	}
}

func isByteSlice(t reflect.Type) bool {
	elem := t.Elem()
	return elem.Kind() == reflect.Uint8 && elem.Name() == "uint8"
}

func toBytes(v reflect.Value) []byte {
	if v.Kind() == reflect.Slice {
		return v.Bytes()
	}
	b := make([]byte, v.Len())
	reflect.Copy(reflect.ValueOf(b), v)
	return b
}

func encodeBigInt(buf *bytes.Buffer, i *big.Int) error {
	if i == nil {
		writeString(buf, nil)
		return nil
	}
	if i.Sign() == -1 {
		return ErrNegativeBigInt
	}
	if i.Sign() == 0 {
		writeString(buf, nil)
		return nil
	}
	writeString(buf, i.Bytes())
	return nil
}

func encodeStruct(buf *bytes.Buffer, v reflect.Value) error {
	var body bytes.Buffer
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		tag := f.Tag.Get("rlp")
		if tag == "-" {
			continue
		}
		if err := encodeValue(&body, v.Field(i)); err != nil {
			return fmt.Errorf("rlp: field %s: %w", f.Name, err)
		}
	}
	writeListHeader(buf, body.Len())
	buf.Write(body.Bytes())
	return nil
}

func encodeList(buf *bytes.Buffer, v reflect.Value) error {
	var body bytes.Buffer
	for i := 0; i < v.Len(); i++ {
		if err := encodeValue(&body, v.Index(i)); err != nil {
			return err
		}
	}
	writeListHeader(buf, body.Len())
	buf.Write(body.Bytes())
	return nil
}

func writeUint(buf *bytes.Buffer, i uint64) {
	if i == 0 {
		writeString(buf, nil)
		return
	}
	var b [8]byte
	n := putUintBE(b[:], i)
	writeString(buf, b[8-n:])
}

func putUintBE(b []byte, i uint64) int {
	switch {
	case i < (1 << 8):
		b[7] = byte(i)
		return 1
	case i < (1 << 16):
		b[6] = byte(i >> 8)
		b[7] = byte(i)
		return 2
	case i < (1 << 24):
		b[5] = byte(i >> 16)
		b[6] = byte(i >> 8)
		b[7] = byte(i)
		return 3
	case i < (1 << 32):
		b[4] = byte(i >> 24)
		b[5] = byte(i >> 16)
		b[6] = byte(i >> 8)
		b[7] = byte(i)
		return 4
	default:
		n := 5
		for shift := uint(32); i>>shift != 0; shift += 8 {
			n++
		}
		for j := 0; j < n; j++ {
			b[7-j] = byte(i >> (8 * uint(j)))
		}
		return n
	}
}

// writeString writes the canonical RLP encoding of a byte string.
func writeString(buf *bytes.Buffer, s []byte) {
	if len(s) == 1 && s[0] <= 0x7f {
		buf.WriteByte(s[0])
		return
	}
	writeHeader(buf, 0x80, 0xb7, len(s))
	buf.Write(s)
}

// writeListHeader writes the list-kind length prefix for a payload of the
// given size (the payload itself must already be in the caller's buffer
// that follows this header).
func writeListHeader(buf *bytes.Buffer, size int) {
	writeHeader(buf, 0xc0, 0xf7, size)
}

func writeHeader(buf *bytes.Buffer, smallBase, longBase byte, size int) {
	if size < 56 {
		buf.WriteByte(smallBase + byte(size))
		return
	}
	var lenBytes [8]byte
	n := putUintBE(lenBytes[:], uint64(size))
	buf.WriteByte(longBase + byte(n))
	buf.Write(lenBytes[8-n:])
}
