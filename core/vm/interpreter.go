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
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/ethereum/go-ethereum/common"
)

// EVMInterpreter runs one call frame's bytecode to completion, matching
// spec.md §4.4's execution-function contract: it returns (output, err)
// where err is nil on STOP/RETURN, ErrExecutionReverted on REVERT, or an
// exceptional-halt sentinel from errors.go.
type EVMInterpreter struct {
	evm *EVM

	readOnly   bool
	returnData []byte
}

// keccakStatePool is a package-wide pool of reusable Keccak256 hashers,
// shared by every interpreter, avoiding a fresh sha3.NewLegacyKeccak256
// allocation on every SHA3 opcode.
var keccakStatePool = sync.Pool{
	New: func() interface{} { return sha3.NewLegacyKeccak256() },
}

func NewEVMInterpreter(evm *EVM) *EVMInterpreter {
	return &EVMInterpreter{evm: evm}
}

// hasherBuf computes Keccak256 of data for the SHA3 opcode.
func (in *EVMInterpreter) hasherBuf(data []byte) common.Hash {
	h := keccakStatePool.Get().(hash.Hash)
	defer keccakStatePool.Put(h)
	h.Reset()
	h.Write(data)
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// Run interprets contract's code starting at pc 0 until a STOP/RETURN
// halts normally, REVERT unwinds with ErrExecutionReverted, or an
// exceptional halt aborts the call (spec.md §4.4).
func (in *EVMInterpreter) Run(contract *Contract, input []byte, readOnly bool) ([]byte, error) {
	in.returnData = nil
	if len(contract.Code) == 0 {
		return nil, nil
	}

	if readOnly && !in.readOnly {
		in.readOnly = true
		defer func() { in.readOnly = false }()
	}

	var (
		op          OpCode
		mem         = NewMemory()
		stack       = newstack()
		pc          = uint64(0)
		cost        uint64
		scope       = &ScopeContext{Memory: mem, Stack: stack, Contract: contract}
		res         []byte
		err         error
	)
	contract.Input = input

	jt := in.evm.interpreterTable
	for {
		op = contract.GetOp(pc)
		operation := jt[op]
		if operation == nil {
			return nil, ErrInvalidOpCode
		}
		if sErr := stack.require(operation.minStack); sErr != nil {
			return nil, sErr
		}
		if stack.len() > operation.maxStack {
			return nil, &ErrStackOverflow{stackLen: stack.len(), limit: operation.maxStack}
		}

		cost = operation.constantGas
		if !contract.UseGas(cost) {
			return nil, ErrOutOfGas
		}

		var memorySize uint64
		if operation.memorySize != nil {
			size, overflow := operation.memorySize(stack)
			if overflow {
				return nil, ErrGasUintOverflow
			}
			memorySize = toWordSize(size) * 32
			if memorySize < size {
				return nil, ErrGasUintOverflow
			}
		}
		if operation.dynamicGas != nil {
			dynCost, dErr := operation.dynamicGas(in.evm, contract, stack, mem, memorySize)
			if dErr != nil {
				return nil, dErr
			}
			if !contract.UseGas(dynCost) {
				return nil, ErrOutOfGas
			}
		}
		if memorySize > 0 {
			mem.Resize(memorySize)
		}

		res, err = operation.execute(&pc, in, scope)
		if err != nil {
			break
		}
		pc++
	}

	if err == errStopToken {
		err = nil
	}
	return res, err
}
