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

package params

// Gas costs referenced directly by spec.md (intrinsic gas, contract
// creation, refunds). Opcode-level gas tables live in core/vm; this file
// only holds the cross-cutting constants the transaction pipeline (C5) and
// block rules (C6) need independent of any single opcode.
const (
	TxGas                     uint64 = 21000 // spec.md §4.5 step 2: base intrinsic gas cost
	TxGasContractCreation     uint64 = 53000 // TxGas + homestead's +32000 creation surcharge; charged for contract creation once Homestead rules apply
	TxDataZeroGas             uint64 = 4     // per zero byte of tx data/init
	TxDataNonZeroGasFrontier  uint64 = 68    // per non-zero byte, pre-Istanbul
	TxDataNonZeroGasEIP2028   uint64 = 16    // unused before Istanbul; kept for forward reference, not activated by any fork this config enables
	CallCreateDepth           uint64 = 1024  // spec.md §9 "EVM control flow": sub-call stack depth cap
	CreateDataGas             uint64 = 200   // per byte of code stored after a successful CREATE/CREATE2 (spec.md §4.5 step 4)
	CallValueTransferGas      uint64 = 9000  // paid by the caller when CALL carries non-zero value
	CallStipend               uint64 = 2300  // forwarded to the callee when CALL carries non-zero value
	CallNewAccountGas         uint64 = 25000 // paid when CALL would create a new, previously-empty account

	SstoreSetGas    uint64 = 20000 // storing a value into a zero slot
	SstoreResetGas  uint64 = 5000  // storing a value into a non-zero slot
	SstoreClearGas  uint64 = 5000  // original gross-metering refund trigger cost; paired with SstoreRefundGas
	SstoreRefundGas uint64 = 15000 // refund for clearing a slot back to zero under gross metering

	// EIP-150 (Tangerine Whistle) call-family gas adjustments (spec.md
	// §4.11's "EIP-150 gas adjustments for call-family opcodes").
	Call150Gas    uint64 = 700
	Create150Gas  uint64 = 32000
	Quad64Gas     uint64 = 4 // not referenced by any gas formula in this repository

	MaxCodeSize = 24576 // EIP-170, folded into EIP158 activation in this config
)

// Precompiled-contract gas: these addresses are wired through core/vm's
// precompile table (spec.md §4.4), not the opcode loop.
const (
	EcrecoverGas            uint64 = 3000
	Sha256BaseGas           uint64 = 60
	Sha256PerWordGas        uint64 = 12
	Ripemd160BaseGas        uint64 = 600
	Ripemd160PerWordGas     uint64 = 120
	IdentityBaseGas         uint64 = 15
	IdentityPerWordGas      uint64 = 3
	ModExpQuadCoeffDiv      uint64 = 20 // Byzantium modexp gas-formula divisor
	Bn256AddGasByzantium    uint64 = 500
	Bn256ScalarMulGasByzantium uint64 = 40000
	Bn256PairingBaseGasByzantium uint64 = 100000
	Bn256PairingPerPointGasByzantium uint64 = 80000
)

// Block-reward schedule (spec.md §4.6 "Rewards"); whole-ether amounts,
// scaled to wei at the call site via common.Ether (see core/block_rewards.go).
const (
	FrontierBlockReward        uint64 = 5
	ByzantiumBlockReward       uint64 = 3
	ConstantinopleBlockReward  uint64 = 2
)

// GenesisGasLimit is the default gas limit used for Genesis configs that
// don't specify one explicitly.
const GenesisGasLimit uint64 = 4712388

// MinGasLimit is the floor enforced by header validation (spec.md §4.6:
// "gas_limit ... ≥ 5000").
const MinGasLimit uint64 = 5000

// GasLimitBoundDivisor bounds how much gas_limit may drift from its parent
// per block (spec.md §4.6: "within [P.gas_limit − P.gas_limit/1024 + 1, ...]").
const GasLimitBoundDivisor uint64 = 1024

// MaximumExtraDataSize is spec.md §4.6's "B.extra_data ≤ 32 bytes".
const MaximumExtraDataSize uint64 = 32
