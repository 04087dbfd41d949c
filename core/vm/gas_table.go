// Copyright 2016 The go-ethereum Authors
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
	"github.com/holiman/uint256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// wordInt aliases uint256.Int so memory/gas helpers below read the way
// geth's own gas_table.go does, without repeating the full import path.
type wordInt = uint256.Int

// memory size helpers: each reports the byte length memory must reach,
// derived from the top-of-stack operands, before the opcode's gas and
// execute funcs run. The jump table wires these in via operation.memorySize.

func memorySha3(stack *Stack) (uint64, bool)   { return calcMemSize(stack.Back(0), stack.Back(1)) }
func memoryMLoad(stack *Stack) (uint64, bool)  { return calcMemSize(stack.Back(0), &word32) }
func memoryMStore8(stack *Stack) (uint64, bool) {
	return calcMemSize(stack.Back(0), &word1)
}
func memoryMStore(stack *Stack) (uint64, bool) { return calcMemSize(stack.Back(0), &word32) }
func memoryCodeCopy(stack *Stack) (uint64, bool) {
	return calcMemSize(stack.Back(0), stack.Back(2))
}
func memoryExtCodeCopy(stack *Stack) (uint64, bool) {
	return calcMemSize(stack.Back(1), stack.Back(3))
}
func memoryCallDataCopy(stack *Stack) (uint64, bool) {
	return calcMemSize(stack.Back(0), stack.Back(2))
}
func memoryReturnDataCopy(stack *Stack) (uint64, bool) {
	return calcMemSize(stack.Back(0), stack.Back(2))
}
func memoryReturn(stack *Stack) (uint64, bool) { return calcMemSize(stack.Back(0), stack.Back(1)) }
func memoryRevert(stack *Stack) (uint64, bool) { return calcMemSize(stack.Back(0), stack.Back(1)) }
func memoryLog(stack *Stack) (uint64, bool)    { return calcMemSize(stack.Back(0), stack.Back(1)) }
func memoryCreate(stack *Stack) (uint64, bool) { return calcMemSize(stack.Back(1), stack.Back(2)) }
func memoryCreate2(stack *Stack) (uint64, bool) {
	return calcMemSize(stack.Back(1), stack.Back(2))
}
func memoryCall(stack *Stack) (uint64, bool) {
	x, overflow := calcMemSize(stack.Back(5), stack.Back(6))
	if overflow {
		return x, true
	}
	y, overflow := calcMemSize(stack.Back(3), stack.Back(4))
	if overflow {
		return y, true
	}
	if x > y {
		return x, false
	}
	return y, false
}
func memoryDelegateCall(stack *Stack) (uint64, bool) {
	x, overflow := calcMemSize(stack.Back(4), stack.Back(5))
	if overflow {
		return x, true
	}
	y, overflow := calcMemSize(stack.Back(2), stack.Back(3))
	if overflow {
		return y, true
	}
	if x > y {
		return x, false
	}
	return y, false
}
func memoryStaticCall(stack *Stack) (uint64, bool) { return memoryDelegateCall(stack) }

var word32 = mkword(32)
var word1 = mkword(1)

func mkword(n uint64) (w wordInt) { w.SetUint64(n); return }

// calcMemSize returns offset+size, unrounded (gas.go's memoryGasCost rounds
// it up to whole words), 0 for a zero size, or (0, true) on uint64 overflow.
func calcMemSize(off, l *wordInt) (uint64, bool) {
	if l.IsZero() {
		return 0, false
	}
	if off.BitLen() > 64 || l.BitLen() > 64 {
		return 0, true
	}
	sum := new(wordInt).Add(off, l)
	if !sum.IsUint64() {
		return 0, true
	}
	return sum.Uint64(), false
}

// dynamic gas functions, invoked after memorySize's expansion has been
// charged via gasMemoryExpansion so each only adds its own marginal cost.

func gasMemoryExpansion(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

func gasSha3(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	size := stack.Back(1)
	words := toWordSize(size.Uint64())
	wordGas, overflow := mulOverflow(words, GasSha3Word)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return addOverflow(gas, wordGas)
}

func gasCallDataCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	words := toWordSize(stack.Back(2).Uint64())
	wordGas, overflow := mulOverflow(words, GasFastestStep)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return addOverflow(gas, wordGas)
}

func gasCodeCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return gasCallDataCopy(evm, contract, stack, mem, memorySize)
}

func gasExtCodeCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	words := toWordSize(stack.Back(3).Uint64())
	wordGas, overflow := mulOverflow(words, GasFastestStep)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return addOverflow(gas, wordGas)
}

func gasReturnDataCopy(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

func gasExp(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	exponent := stack.Back(1)
	gas, overflow := mulOverflow(expByteLen(exponent), GasExpByte)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

func gasSStore(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	loc := stack.Back(0)
	val := stack.Back(1)
	key := common.Hash(loc.Bytes32())
	current := evm.StateDB.GetState(contract.Address(), key)
	var currentW, valueW wordInt
	currentW.SetBytes(current.Bytes())
	valueW = *val
	return sstoreGas(currentW, valueW), nil
}

func gasSelfdestruct(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	var gas uint64
	if evm.chainRules.IsEIP150 {
		gas = params.Call150Gas
		beneficiary := stack.Back(0)
		addr := common.Address(beneficiary.Bytes20())
		if evm.chainRules.IsEIP158 {
			if evm.StateDB.Empty(addr) && evm.StateDB.GetBalance(contract.Address()).Sign() != 0 {
				gas += params.CallNewAccountGas
			}
		} else if !evm.StateDB.Exist(addr) {
			gas += params.CallNewAccountGas
		}
	}
	return gas, nil
}

func gasCall(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	value := stack.Back(2)
	if !value.IsZero() {
		gas, err = addOverflow(gas, params.CallValueTransferGas)
		if err != nil {
			return 0, err
		}
	}
	addr := common.Address(stack.Back(1).Bytes20())
	if evm.chainRules.IsEIP158 {
		if evm.StateDB.Empty(addr) && !value.IsZero() {
			gas, err = addOverflow(gas, params.CallNewAccountGas)
		}
	} else if !evm.StateDB.Exist(addr) {
		gas, err = addOverflow(gas, params.CallNewAccountGas)
	}
	return gas, err
}

func gasCallCode(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	value := stack.Back(2)
	if !value.IsZero() {
		gas, err = addOverflow(gas, params.CallValueTransferGas)
	}
	return gas, err
}

func gasDelegateCall(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

func gasStaticCall(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

func gasCreate(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

func gasCreate2(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := memoryGasCost(mem, memorySize)
	if err != nil {
		return 0, err
	}
	size := stack.Back(2)
	words := toWordSize(size.Uint64())
	wordGas, overflow := mulOverflow(words, GasSha3Word)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return addOverflow(gas, wordGas)
}

func makeGasLog(n int) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		requestedSize := stack.Back(1)
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		gas, err = addOverflow(gas, uint64(n)*GasLogTopic)
		if err != nil {
			return 0, err
		}
		words := toWordSize(requestedSize.Uint64())
		dataGas, overflow := mulOverflow(words, GasLogData)
		if overflow {
			return 0, ErrGasUintOverflow
		}
		gas, err = addOverflow(gas, dataGas)
		if err != nil {
			return 0, err
		}
		return addOverflow(gas, GasLog)
	}
}

func mulOverflow(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	c := a * b
	return c, c/a != b
}

func addOverflow(a, b uint64) (uint64, error) {
	c := a + b
	if c < a {
		return 0, ErrGasUintOverflow
	}
	return c, nil
}
