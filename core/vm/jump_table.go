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

package vm

import "github.com/ethereum/go-ethereum/params"

// executionFunc implements one opcode's side effect, mutating stack/memory
// and returning call-terminating output bytes when relevant (RETURN/REVERT).
type executionFunc func(pc *uint64, interp *EVMInterpreter, scope *ScopeContext) ([]byte, error)

// gasFunc computes an opcode's dynamic gas charge, added to its constant
// gas; most opcodes have none (constantGas alone suffices).
type gasFunc func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error)

// memorySizeFunc returns the number of bytes memory must be expanded to
// before dynamicGas/execute run, derived from the stack's top operands.
type memorySizeFunc func(stack *Stack) (uint64, bool)

// operation is one opcode's complete behavior: gas cost, stack arity, and
// memory-expansion requirement, exactly as geth's core/vm/jump_table.go
// models it.
type operation struct {
	execute     executionFunc
	constantGas uint64
	dynamicGas  gasFunc
	minStack    int
	maxStack    int
	memorySize  memorySizeFunc
}

// JumpTable indexes operation by opcode byte.
type JumpTable [256]*operation

// NewFrontierInstructionSet returns the baseline (Frontier) opcode table.
func NewFrontierInstructionSet() JumpTable {
	tbl := newBaseInstructionSet()
	return tbl
}

// NewHomesteadInstructionSet adds DELEGATECALL.
func NewHomesteadInstructionSet() JumpTable {
	tbl := NewFrontierInstructionSet()
	tbl[DELEGATECALL] = &operation{
		execute: opDelegateCall, constantGas: params.Call150Gas, dynamicGas: gasDelegateCall,
		minStack: minStack(6, 1), maxStack: maxStack(6, 1), memorySize: memoryDelegateCall,
	}
	return tbl
}

// NewTangerineWhistleInstructionSet repricess call-family/SLOAD/EXTCODE* per
// EIP-150 (spec.md §4.11).
func NewTangerineWhistleInstructionSet() JumpTable {
	tbl := NewHomesteadInstructionSet()
	tbl[CALL].constantGas = params.Call150Gas
	tbl[CALLCODE].constantGas = params.Call150Gas
	tbl[DELEGATECALL].constantGas = params.Call150Gas
	tbl[EXTCODESIZE].constantGas = 700
	tbl[EXTCODECOPY].constantGas = 700
	tbl[BALANCE].constantGas = 400
	tbl[SLOAD].constantGas = 200
	return tbl
}

// NewSpuriousDragonInstructionSet is gas-identical to Tangerine Whistle;
// EIP-158's changes are all in touched-account cleanup (core/state), not
// opcode gas.
func NewSpuriousDragonInstructionSet() JumpTable {
	return NewTangerineWhistleInstructionSet()
}

// NewByzantiumInstructionSet adds REVERT, STATICCALL, RETURNDATA(SIZE|COPY)
// and the modexp/bn256 precompiles (contracts.go), per spec.md §4.11.
func NewByzantiumInstructionSet() JumpTable {
	tbl := NewSpuriousDragonInstructionSet()
	tbl[REVERT] = &operation{execute: opRevert, dynamicGas: gasMemoryExpansion, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryRevert}
	tbl[STATICCALL] = &operation{
		execute: opStaticCall, constantGas: params.Call150Gas, dynamicGas: gasStaticCall,
		minStack: minStack(6, 1), maxStack: maxStack(6, 1), memorySize: memoryStaticCall,
	}
	tbl[RETURNDATASIZE] = &operation{execute: opReturnDataSize, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[RETURNDATACOPY] = &operation{execute: opReturnDataCopy, constantGas: GasFastestStep, dynamicGas: gasReturnDataCopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryReturnDataCopy}
	return tbl
}

// NewConstantinopleInstructionSet adds CREATE2, EXTCODEHASH, SHL/SHR/SAR,
// and (subject to params.Rules.NetSSToreMetering, resolved false per
// spec.md §9's Petersburg decision) would add net-gas SSTORE metering.
func NewConstantinopleInstructionSet() JumpTable {
	tbl := NewByzantiumInstructionSet()
	tbl[SHL] = &operation{execute: opSHL, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SHR] = &operation{execute: opSHR, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SAR] = &operation{execute: opSAR, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[EXTCODEHASH] = &operation{execute: opExtCodeHash, constantGas: 400, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[CREATE2] = &operation{
		execute: opCreate2, constantGas: GasCreate, dynamicGas: gasCreate2,
		minStack: minStack(4, 1), maxStack: maxStack(4, 1), memorySize: memoryCreate2,
	}
	return tbl
}

func minStack(pops, push int) int { return pops }
func maxStack(pops, push int) int { return stackLimit + pops - push }

func newBaseInstructionSet() JumpTable {
	var tbl JumpTable
	tbl[STOP] = &operation{execute: opStop, minStack: minStack(0, 0), maxStack: maxStack(0, 0)}
	tbl[ADD] = &operation{execute: opAdd, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[MUL] = &operation{execute: opMul, constantGas: GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SUB] = &operation{execute: opSub, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[DIV] = &operation{execute: opDiv, constantGas: GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SDIV] = &operation{execute: opSdiv, constantGas: GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[MOD] = &operation{execute: opMod, constantGas: GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SMOD] = &operation{execute: opSmod, constantGas: GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[ADDMOD] = &operation{execute: opAddmod, constantGas: GasMidStep, minStack: minStack(3, 1), maxStack: maxStack(3, 1)}
	tbl[MULMOD] = &operation{execute: opMulmod, constantGas: GasMidStep, minStack: minStack(3, 1), maxStack: maxStack(3, 1)}
	tbl[EXP] = &operation{execute: opExp, constantGas: GasSlowStep, dynamicGas: gasExp, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SIGNEXTEND] = &operation{execute: opSignExtend, constantGas: GasFastStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[LT] = &operation{execute: opLt, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[GT] = &operation{execute: opGt, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SLT] = &operation{execute: opSlt, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SGT] = &operation{execute: opSgt, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[EQ] = &operation{execute: opEq, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[ISZERO] = &operation{execute: opIszero, constantGas: GasFastestStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[AND] = &operation{execute: opAnd, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[OR] = &operation{execute: opOr, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[XOR] = &operation{execute: opXor, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[NOT] = &operation{execute: opNot, constantGas: GasFastestStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[BYTE] = &operation{execute: opByte, constantGas: GasFastestStep, minStack: minStack(2, 1), maxStack: maxStack(2, 1)}
	tbl[SHA3] = &operation{execute: opSha3, constantGas: 30, dynamicGas: gasSha3, minStack: minStack(2, 1), maxStack: maxStack(2, 1), memorySize: memorySha3}
	tbl[ADDRESS] = &operation{execute: opAddress, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[BALANCE] = &operation{execute: opBalance, constantGas: 20, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[ORIGIN] = &operation{execute: opOrigin, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[CALLER] = &operation{execute: opCaller, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[CALLVALUE] = &operation{execute: opCallValue, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[CALLDATALOAD] = &operation{execute: opCallDataLoad, constantGas: GasFastestStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[CALLDATASIZE] = &operation{execute: opCallDataSize, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[CALLDATACOPY] = &operation{execute: opCallDataCopy, constantGas: GasFastestStep, dynamicGas: gasCallDataCopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryCallDataCopy}
	tbl[CODESIZE] = &operation{execute: opCodeSize, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[CODECOPY] = &operation{execute: opCodeCopy, constantGas: GasFastestStep, dynamicGas: gasCodeCopy, minStack: minStack(3, 0), maxStack: maxStack(3, 0), memorySize: memoryCodeCopy}
	tbl[GASPRICE] = &operation{execute: opGasprice, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[EXTCODESIZE] = &operation{execute: opExtCodeSize, constantGas: 20, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[EXTCODECOPY] = &operation{execute: opExtCodeCopy, constantGas: 20, dynamicGas: gasExtCodeCopy, minStack: minStack(4, 0), maxStack: maxStack(4, 0), memorySize: memoryExtCodeCopy}
	tbl[BLOCKHASH] = &operation{execute: opBlockhash, constantGas: GasExtStep, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[COINBASE] = &operation{execute: opCoinbase, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[TIMESTAMP] = &operation{execute: opTimestamp, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[NUMBER] = &operation{execute: opNumber, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[DIFFICULTY] = &operation{execute: opDifficulty, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[GASLIMIT] = &operation{execute: opGasLimit, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[POP] = &operation{execute: opPop, constantGas: 2, minStack: minStack(1, 0), maxStack: maxStack(1, 0)}
	tbl[MLOAD] = &operation{execute: opMload, constantGas: GasFastestStep, dynamicGas: gasMemoryExpansion, minStack: minStack(1, 1), maxStack: maxStack(1, 1), memorySize: memoryMLoad}
	tbl[MSTORE] = &operation{execute: opMstore, constantGas: GasFastestStep, dynamicGas: gasMemoryExpansion, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryMStore}
	tbl[MSTORE8] = &operation{execute: opMstore8, constantGas: GasFastestStep, dynamicGas: gasMemoryExpansion, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryMStore8}
	tbl[SLOAD] = &operation{execute: opSload, constantGas: 50, minStack: minStack(1, 1), maxStack: maxStack(1, 1)}
	tbl[SSTORE] = &operation{execute: opSstore, dynamicGas: gasSStore, minStack: minStack(2, 0), maxStack: maxStack(2, 0)}
	tbl[JUMP] = &operation{execute: opJump, constantGas: GasMidStep, minStack: minStack(1, 0), maxStack: maxStack(1, 0)}
	tbl[JUMPI] = &operation{execute: opJumpi, constantGas: 10, minStack: minStack(2, 0), maxStack: maxStack(2, 0)}
	tbl[PC] = &operation{execute: opPc, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[MSIZE] = &operation{execute: opMsize, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[GAS] = &operation{execute: opGas, constantGas: GasQuickStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	tbl[JUMPDEST] = &operation{execute: opJumpdest, constantGas: 1, minStack: minStack(0, 0), maxStack: maxStack(0, 0)}
	for i := byte(PUSH1); i <= byte(PUSH32); i++ {
		tbl[i] = &operation{execute: opPush, constantGas: GasFastestStep, minStack: minStack(0, 1), maxStack: maxStack(0, 1)}
	}
	for i := byte(DUP1); i <= byte(DUP16); i++ {
		n := int(i-byte(DUP1)) + 1
		tbl[i] = &operation{execute: makeDup(n), constantGas: GasFastestStep, minStack: minStack(n, n+1), maxStack: maxStack(n, n+1)}
	}
	for i := byte(SWAP1); i <= byte(SWAP16); i++ {
		n := int(i-byte(SWAP1)) + 1
		tbl[i] = &operation{execute: makeSwap(n), constantGas: GasFastestStep, minStack: minStack(n+1, n+1), maxStack: maxStack(n+1, n+1)}
	}
	for i := byte(LOG0); i <= byte(LOG4); i++ {
		n := int(i - byte(LOG0))
		tbl[i] = &operation{execute: makeLog(n), dynamicGas: makeGasLog(n), minStack: minStack(n+2, 0), maxStack: maxStack(n+2, 0), memorySize: memoryLog}
	}
	tbl[CREATE] = &operation{execute: opCreate, constantGas: GasCreate, dynamicGas: gasCreate, minStack: minStack(3, 1), maxStack: maxStack(3, 1), memorySize: memoryCreate}
	tbl[CALL] = &operation{execute: opCall, constantGas: 40, dynamicGas: gasCall, minStack: minStack(7, 1), maxStack: maxStack(7, 1), memorySize: memoryCall}
	tbl[CALLCODE] = &operation{execute: opCallCode, constantGas: 40, dynamicGas: gasCallCode, minStack: minStack(7, 1), maxStack: maxStack(7, 1), memorySize: memoryCall}
	tbl[RETURN] = &operation{execute: opReturn, dynamicGas: gasMemoryExpansion, minStack: minStack(2, 0), maxStack: maxStack(2, 0), memorySize: memoryReturn}
	tbl[INVALID] = &operation{execute: opUndefined, minStack: minStack(0, 0), maxStack: maxStack(0, 0)}
	tbl[SELFDESTRUCT] = &operation{execute: opSelfdestruct, dynamicGas: gasSelfdestruct, minStack: minStack(1, 0), maxStack: maxStack(1, 0)}
	return tbl
}
