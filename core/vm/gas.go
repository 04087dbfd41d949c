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

package vm

import (
	"github.com/holiman/uint256"

	"github.com/ethereum/go-ethereum/params"
)

// Gas costs for opcodes whose cost never varies by fork or operand,
// grouped the way geth's gas_table.go does.
const (
	GasQuickStep   uint64 = 2
	GasFastestStep uint64 = 3
	GasFastStep    uint64 = 5
	GasMidStep     uint64 = 8
	GasSlowStep    uint64 = 10
	GasExtStep     uint64 = 20

	GasSha3Word       uint64 = 6
	GasMemoryWord      uint64 = 3
	GasLogTopic       uint64 = 375
	GasLogData        uint64 = 8
	GasLog            uint64 = 375
	GasExpByte        uint64 = 10 // post-EIP-158; pre-EIP-158 is 10 as well in this config, see gasExp
	GasCreate         uint64 = 32000
)

// toWordSize rounds a byte size up to a whole 32-byte EVM word.
func toWordSize(size uint64) uint64 {
	if size > (1<<64-1)-31 {
		return (1<<64 - 1) / 32
	}
	return (size + 31) / 32
}

// memoryGasCost computes the quadratic memory-expansion cost of growing
// memory to newMemSize bytes, charged as the delta over the previous high
//-water mark (mem.lastGasCost).
func memoryGasCost(mem *Memory, newMemSize uint64) (uint64, error) {
	if newMemSize == 0 {
		return 0, nil
	}
	if newMemSize > 0x1FFFFFFFE0 {
		return 0, ErrGasUintOverflow
	}
	newMemSizeWords := toWordSize(newMemSize)
	newMemSize = newMemSizeWords * 32

	if newMemSize > uint64(mem.Len()) {
		square := newMemSizeWords * newMemSizeWords
		linCoef := newMemSizeWords * GasMemoryWord
		quadCoef := square / 512
		newTotalFee := linCoef + quadCoef

		fee := newTotalFee - mem.lastGasCost
		mem.lastGasCost = newTotalFee
		return fee, nil
	}
	return 0, nil
}

// callGas computes the gas forwarded to a CALL-family sub-call: all but
// 1/64th of the remaining gas post-EIP-150 (spec.md §4.11 "EIP-150 gas
// adjustments for call-family opcodes"), or exactly the requested amount
// pre-EIP-150.
func callGas(rules params.Rules, availableGas, base uint64, callCost *uint256.Int) (uint64, error) {
	if rules.IsEIP150 {
		availableGas = availableGas - base
		gas := availableGas - availableGas/64
		if !callCost.IsUint64() || gas < callCost.Uint64() {
			return gas, nil
		}
	}
	if !callCost.IsUint64() {
		return 0, ErrGasUintOverflow
	}
	return callCost.Uint64(), nil
}

// expByteLen returns the byte length of the exponent's big-endian
// representation; gasExp charges GasExpByte per byte of it (spec.md names only the
// gas-repricing flags; the EXP byte cost itself is pre-EIP-150 stable).
func expByteLen(exponent *uint256.Int) uint64 {
	expBitLen := exponent.BitLen()
	if expBitLen == 0 {
		return 0
	}
	return uint64((expBitLen+7)/8)
}

// sstoreGas computes SSTORE's gas charge under gross metering (spec.md §9's
// resolved "choose Petersburg rules": net-gas EIP-1283 metering is never
// active in this implementation, see params.Rules.NetSSToreMetering).
func sstoreGas(current, value uint256.Int) uint64 {
	if current == value {
		return params.SstoreResetGas // geth charges the "no-op" case at reset price pre-net-metering too
	}
	if current.IsZero() {
		return params.SstoreSetGas
	}
	if value.IsZero() {
		return params.SstoreClearGas
	}
	return params.SstoreResetGas
}

// sstoreRefund returns the refund to add when a non-zero slot is cleared to
// zero under gross metering.
func sstoreRefund(current, value uint256.Int) uint64 {
	if !current.IsZero() && value.IsZero() {
		return params.SstoreRefundGas
	}
	return 0
}
