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

// Package rlp implements the RLP serialization format described in the
// Ethereum Yellow Paper (appendix B). RLP encodes nested structures of byte
// strings and lists, and nothing else: it is untyped, and the type
// information required to decode a value must come from the caller (usually
// via Go's struct field order, matching the canonical field order of the
// Ethereum entity being encoded).
//
// Encoding rules:
//
//   - A single byte in [0x00, 0x7f] encodes itself.
//   - A byte string 0-55 bytes long is encoded as a single byte 0x80+len
//     followed by the string.
//   - A byte string longer than 55 bytes is encoded as a single byte
//     0xb7+len(len(string)) followed by the length, followed by the string.
//   - A list whose payload is 0-55 bytes is encoded as a single byte
//     0xc0+len(payload) followed by the concatenation of the encodings of
//     its items.
//   - A list whose payload is longer than 55 bytes is encoded as a single
//     byte 0xf7+len(len(payload)) followed by the length, followed by the
//     payload.
//
// Decoding rejects any non-canonical length prefix (e.g. a single byte
// encoded via the 0x80 form, or a length-of-length prefix with a leading
// zero byte), since consensus hashing requires a unique encoding per value.
package rlp
