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

package vm

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/ethereum/go-ethereum/common"
)

// ContractRef is anything that can appear as a call's caller or callee
// (an address, possibly also holding a live Contract for the current
// frame).
type ContractRef interface {
	Address() common.Address
}

// AccountRef is the trivial ContractRef wrapping a bare address, used for
// the outermost call's caller (the transaction sender, which has no code).
type AccountRef common.Address

func (ar AccountRef) Address() common.Address { return common.Address(ar) }

// Contract is one call frame's execution context: its code, input, gas
// meter and the caller/value that invoked it (spec.md §4.4's
// "(code, caller, callee, value, call_data, gas, ...)").
type Contract struct {
	CallerAddress common.Address
	caller        ContractRef
	self          ContractRef

	Code     []byte
	CodeHash common.Hash
	Input    []byte

	Gas   uint64
	value *big.Int
}

// NewContract returns a new frame executing code belonging to object, on
// behalf of caller, carrying value, with gas as its initial gas meter.
func NewContract(caller ContractRef, object ContractRef, value *big.Int, gas uint64) *Contract {
	c := &Contract{CallerAddress: caller.Address(), caller: caller, self: object}
	c.Gas = gas
	c.value = value
	return c
}

func (c *Contract) validJumpdest(dest *uint256.Int) bool {
	if !dest.IsUint64() {
		return false
	}
	udest := dest.Uint64()
	if udest >= uint64(len(c.Code)) {
		return false
	}
	if OpCode(c.Code[udest]) != JUMPDEST {
		return false
	}
	return c.isCode(udest)
}

// isCode reports whether udest indexes into code (not push-data) by
// scanning forward from the start, matching geth's codeBitmap analysis.
func (c *Contract) isCode(udest uint64) bool {
	i := uint64(0)
	for i < udest {
		op := OpCode(c.Code[i])
		if op.IsPush() {
			i += uint64(op.PushSize()) + 1
			continue
		}
		i++
	}
	return i == udest
}

func (c *Contract) AsDelegate() *Contract {
	c.CallerAddress = c.caller.Address()
	return c
}

func (c *Contract) GetOp(n uint64) OpCode {
	if n < uint64(len(c.Code)) {
		return OpCode(c.Code[n])
	}
	return STOP
}

func (c *Contract) Caller() common.Address { return c.CallerAddress }

func (c *Contract) UseGas(gas uint64) bool {
	if c.Gas < gas {
		return false
	}
	c.Gas -= gas
	return true
}

func (c *Contract) Address() common.Address { return c.self.Address() }

func (c *Contract) Value() *big.Int { return c.value }

func (c *Contract) SetCode(hash common.Hash, code []byte) {
	c.Code = code
	c.CodeHash = hash
}

func (c *Contract) SetCallCode(addr common.Address, hash common.Hash, code []byte) {
	c.Code = code
	c.CodeHash = hash
}
