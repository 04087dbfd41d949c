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
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

// emptyCodeHash is the Keccak256 of an empty byte string, the CodeHash a
// freshly created (not yet deployed-to) account carries.
var emptyCodeHash = crypto.Keccak256Hash(nil)

func hashCode(code []byte) common.Hash {
	if len(code) == 0 {
		return emptyCodeHash
	}
	return crypto.Keccak256Hash(code)
}

// CreateAddress re-exports crypto.CreateAddress under the name the rest of
// this file's create() helper uses.
func CreateAddress(addr common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(addr, nonce)
}

func create2Address(addr common.Address, salt [32]byte, codeHash common.Hash) common.Address {
	return crypto.CreateAddress2(addr, salt, codeHash.Bytes())
}

// StateDB is the subset of core/state.StateDB the EVM needs, kept as an
// interface here so core/vm never imports core/state directly (breaking
// the import cycle state->vm->state would otherwise create).
type StateDB interface {
	CreateAccount(common.Address)

	SubBalance(common.Address, *big.Int)
	AddBalance(common.Address, *big.Int)
	GetBalance(common.Address) *big.Int

	GetNonce(common.Address) uint64
	SetNonce(common.Address, uint64)

	GetCodeHash(common.Address) common.Hash
	GetCode(common.Address) []byte
	SetCode(common.Address, []byte)
	GetCodeSize(common.Address) int

	AddRefund(uint64)
	SubRefund(uint64)
	GetRefund() uint64

	GetState(common.Address, common.Hash) common.Hash
	SetState(common.Address, common.Hash, common.Hash)

	Suicide(common.Address) bool
	HasSuicided(common.Address) bool

	Exist(common.Address) bool
	Empty(common.Address) bool

	AddLog(*types.Log)
	AddPreimage(common.Hash, []byte)

	Snapshot() int
	RevertToSnapshot(int)
}

// BlockContext groups the block-wide read-only values opcodes like COINBASE
// and NUMBER expose; GetHash resolves BLOCKHASH against the ancestor chain.
type BlockContext struct {
	GetHash func(uint64) common.Hash

	Coinbase    common.Address
	GasLimit    uint64
	BlockNumber *big.Int
	Time        *big.Int
	Difficulty  *big.Int
}

// TxContext groups the transaction-wide values (ORIGIN, GASPRICE).
type TxContext struct {
	Origin   common.Address
	GasPrice *big.Int
}

// Config bundles the interpreter knobs callers may override; zero value
// runs with no extra restrictions beyond what ChainConfig.Rules already
// implies.
type Config struct {
	NoRecursion bool
}

// EVM is the call-frame orchestrator: it builds Contract values, dispatches
// to the interpreter, and implements CALL/CREATE's account-creation,
// value-transfer and depth-limit semantics (spec.md §4.4).
type EVM struct {
	BlockContext
	TxContext

	StateDB StateDB

	depth int

	chainConfig *params.ChainConfig
	chainRules  params.Rules

	Config Config

	interpreterTable JumpTable
}

func NewEVM(blockCtx BlockContext, txCtx TxContext, statedb StateDB, chainConfig *params.ChainConfig, config Config) *EVM {
	evm := &EVM{
		BlockContext: blockCtx,
		TxContext:    txCtx,
		StateDB:      statedb,
		chainConfig:  chainConfig,
		Config:       config,
		chainRules:   chainConfig.Rules(blockCtx.BlockNumber),
	}
	evm.interpreterTable = evm.pickInstructionSet()
	return evm
}

func (evm *EVM) pickInstructionSet() JumpTable {
	switch {
	case evm.chainRules.IsConstantinople:
		return NewConstantinopleInstructionSet()
	case evm.chainRules.IsByzantium:
		return NewByzantiumInstructionSet()
	case evm.chainRules.IsEIP158:
		return NewSpuriousDragonInstructionSet()
	case evm.chainRules.IsEIP150:
		return NewTangerineWhistleInstructionSet()
	case evm.chainRules.IsHomestead:
		return NewHomesteadInstructionSet()
	default:
		return NewFrontierInstructionSet()
	}
}

// Reset rebinds the EVM to a new transaction context and StateDB so one EVM
// value can be reused across every transaction in a block.
func (evm *EVM) Reset(txCtx TxContext, statedb StateDB) {
	evm.TxContext = txCtx
	evm.StateDB = statedb
}

func (evm *EVM) ChainConfig() *params.ChainConfig { return evm.chainConfig }

// Call executes the contract at addr with the given input and value,
// charging gas from the caller's frame and crediting unused gas back.
func (evm *EVM) Call(caller ContractRef, addr common.Address, input []byte, gas uint64, value *big.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.Config.NoRecursion && evm.depth > 0 {
		return nil, gas, nil
	}
	if evm.depth > int(params.CallCreateDepth) {
		return nil, gas, ErrDepth
	}
	if value.Sign() != 0 && !evm.CanTransfer(caller.Address(), value) {
		return nil, gas, ErrInsufficientBalance
	}
	snapshot := evm.StateDB.Snapshot()
	p, isPrecompile := evm.precompile(addr)

	if !evm.StateDB.Exist(addr) {
		if !isPrecompile && evm.chainRules.IsEIP158 && value.Sign() == 0 {
			return nil, gas, nil
		}
		evm.StateDB.CreateAccount(addr)
	}
	evm.Transfer(caller.Address(), addr, value)

	var contract *Contract
	if isPrecompile {
		contract = NewContract(caller, AccountRef(addr), value, gas)
	} else {
		code := evm.StateDB.GetCode(addr)
		contract = NewContract(caller, AccountRef(addr), value, gas)
		contract.SetCallCode(addr, evm.StateDB.GetCodeHash(addr), code)
	}

	if len(contract.Code) == 0 && !isPrecompile {
		return nil, gas, nil
	}

	evm.depth++
	if isPrecompile {
		ret, err = RunPrecompiledContract(p, input, contract)
		leftOverGas = contract.Gas
	} else {
		ret, err = evm.interpret(contract, input, false)
		leftOverGas = contract.Gas
	}
	evm.depth--

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			leftOverGas = 0
		}
	}
	return ret, leftOverGas, err
}

// CallCode is like Call but executes addr's code in the caller's own
// storage/address context.
func (evm *EVM) CallCode(caller ContractRef, addr common.Address, input []byte, gas uint64, value *big.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, gas, ErrDepth
	}
	if value.Sign() != 0 && !evm.CanTransfer(caller.Address(), value) {
		return nil, gas, ErrInsufficientBalance
	}
	snapshot := evm.StateDB.Snapshot()
	p, isPrecompile := evm.precompile(addr)

	var contract *Contract
	if isPrecompile {
		contract = NewContract(caller, AccountRef(caller.Address()), value, gas)
	} else {
		code := evm.StateDB.GetCode(addr)
		contract = NewContract(caller, AccountRef(caller.Address()), value, gas)
		contract.SetCallCode(addr, evm.StateDB.GetCodeHash(addr), code)
	}

	evm.depth++
	if isPrecompile {
		ret, err = RunPrecompiledContract(p, input, contract)
	} else {
		ret, err = evm.interpret(contract, input, false)
	}
	leftOverGas = contract.Gas
	evm.depth--

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			leftOverGas = 0
		}
	}
	return ret, leftOverGas, err
}

// DelegateCall executes addr's code with the caller's own address, value,
// and sender preserved from the parent frame (EIP-7).
func (evm *EVM) DelegateCall(caller ContractRef, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, gas, ErrDepth
	}
	var contractCaller ContractRef
	var value *big.Int
	if parent, ok := caller.(*Contract); ok {
		contractCaller = AccountRef(parent.CallerAddress)
		value = parent.value
	} else {
		contractCaller = caller
		value = new(big.Int)
	}
	snapshot := evm.StateDB.Snapshot()
	p, isPrecompile := evm.precompile(addr)

	contract := NewContract(contractCaller, AccountRef(caller.Address()), value, gas).AsDelegate()
	if !isPrecompile {
		code := evm.StateDB.GetCode(addr)
		contract.SetCallCode(addr, evm.StateDB.GetCodeHash(addr), code)
	}

	evm.depth++
	if isPrecompile {
		ret, err = RunPrecompiledContract(p, input, contract)
	} else {
		ret, err = evm.interpret(contract, input, false)
	}
	leftOverGas = contract.Gas
	evm.depth--

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			leftOverGas = 0
		}
	}
	return ret, leftOverGas, err
}

// StaticCall is Call with state mutation disabled (EIP-214): SSTORE, LOG,
// CREATE, SELFDESTRUCT and value-bearing CALL all fail inside it.
func (evm *EVM) StaticCall(caller ContractRef, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, gas, ErrDepth
	}
	snapshot := evm.StateDB.Snapshot()

	contract := NewContract(caller, AccountRef(addr), new(big.Int), gas)
	p, isPrecompile := evm.precompile(addr)

	evm.depth++
	if isPrecompile {
		ret, err = RunPrecompiledContract(p, input, contract)
	} else {
		code := evm.StateDB.GetCode(addr)
		contract.SetCallCode(addr, evm.StateDB.GetCodeHash(addr), code)
		ret, err = evm.interpret(contract, input, true)
	}
	leftOverGas = contract.Gas
	evm.depth--

	if err != nil {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			leftOverGas = 0
		}
	}
	return ret, leftOverGas, err
}

func (evm *EVM) interpret(contract *Contract, input []byte, readOnly bool) ([]byte, error) {
	interp := NewEVMInterpreter(evm)
	return interp.Run(contract, input, readOnly)
}

// Create deploys code from a CREATE opcode or an externally-signed
// contract-creation transaction, at the classic CREATE address derivation
// (spec.md §4.2 "Contract address derivation", non-CREATE2 branch).
func (evm *EVM) Create(caller ContractRef, code []byte, gas uint64, value *big.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	contractAddr = CreateAddress(caller.Address(), evm.StateDB.GetNonce(caller.Address()))
	return evm.create(caller, code, gas, value, contractAddr)
}

// Create2 deploys using the CREATE2 deterministic address scheme (EIP-1014).
func (evm *EVM) Create2(caller ContractRef, code []byte, gas uint64, value *big.Int, salt *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	codeHash := hashCode(code)
	contractAddr = create2Address(caller.Address(), salt.Bytes32(), codeHash)
	return evm.create(caller, code, gas, value, contractAddr)
}

func (evm *EVM) create(caller ContractRef, code []byte, gas uint64, value *big.Int, address common.Address) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	if evm.depth > int(params.CallCreateDepth) {
		return nil, common.Address{}, gas, ErrDepth
	}
	if value.Sign() != 0 && !evm.CanTransfer(caller.Address(), value) {
		return nil, common.Address{}, gas, ErrInsufficientBalance
	}
	nonce := evm.StateDB.GetNonce(caller.Address())
	evm.StateDB.SetNonce(caller.Address(), nonce+1)

	contractHash := evm.StateDB.GetCodeHash(address)
	if evm.StateDB.GetNonce(address) != 0 || (contractHash != (common.Hash{}) && contractHash != emptyCodeHash) {
		return nil, common.Address{}, 0, ErrContractAddressCollision
	}
	snapshot := evm.StateDB.Snapshot()
	evm.StateDB.CreateAccount(address)
	if evm.chainRules.IsEIP158 {
		evm.StateDB.SetNonce(address, 1)
	}
	evm.Transfer(caller.Address(), address, value)

	contract := NewContract(caller, AccountRef(address), value, gas)
	contract.SetCallCode(address, hashCode(code), code)

	if evm.Config.NoRecursion && evm.depth > 0 {
		return nil, address, gas, nil
	}

	evm.depth++
	ret, err = evm.interpret(contract, nil, false)
	evm.depth--

	maxCodeSizeExceeded := evm.chainRules.IsEIP158 && len(ret) > params.MaxCodeSize
	if err == nil && !maxCodeSizeExceeded {
		createDataGas := uint64(len(ret)) * params.CreateDataGas
		if contract.UseGas(createDataGas) {
			evm.StateDB.SetCode(address, ret)
		} else {
			err = ErrCodeStoreOutOfGas
		}
	}
	if maxCodeSizeExceeded && err == nil {
		err = ErrMaxCodeSizeExceeded
	}
	if err != nil && (evm.chainRules.IsHomestead || err != ErrCodeStoreOutOfGas) {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.UseGas(contract.Gas)
		}
	}
	return ret, address, contract.Gas, err
}

// CanTransfer and Transfer implement spec.md §4.2's balance check/move.
func (evm *EVM) CanTransfer(addr common.Address, amount *big.Int) bool {
	return evm.StateDB.GetBalance(addr).Cmp(amount) >= 0
}

func (evm *EVM) Transfer(from, to common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	evm.StateDB.SubBalance(from, amount)
	evm.StateDB.AddBalance(to, amount)
}
