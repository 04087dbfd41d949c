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

package core

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
)

// IntrinsicGas computes the upfront gas a transaction owes before any EVM
// byte is executed (spec.md §4.5 step 2): TxGas, plus the creation
// surcharge, plus per-byte data cost.
func IntrinsicGas(data []byte, contractCreation bool, rules params.Rules) (uint64, error) {
	var gas uint64
	if contractCreation && rules.IsHomestead {
		gas = params.TxGasContractCreation
	} else {
		gas = params.TxGas
	}
	if len(data) > 0 {
		var nz uint64
		for _, b := range data {
			if b != 0 {
				nz++
			}
		}
		if (math.MaxUint64-gas)/params.TxDataNonZeroGasFrontier < nz {
			return 0, vm.ErrGasUintOverflow
		}
		gas += nz * params.TxDataNonZeroGasFrontier

		z := uint64(len(data)) - nz
		if (math.MaxUint64-gas)/params.TxDataZeroGas < z {
			return 0, vm.ErrGasUintOverflow
		}
		gas += z * params.TxDataZeroGas
	}
	return gas, nil
}

// GasPool tracks the gas still available within a block (spec.md §4.6 "gas
// accounting"): every transaction subtracts its gas limit before executing,
// and refundGas returns the unused portion to the pool when the
// transaction ends.
type GasPool uint64

func (gp *GasPool) AddGas(amount uint64) *GasPool {
	if uint64(*gp)+amount < uint64(*gp) {
		panic("gas pool pushed above uint64")
	}
	*(*uint64)(gp) += amount
	return gp
}

func (gp *GasPool) SubGas(amount uint64) error {
	if uint64(*gp) < amount {
		return ErrGasLimitReached
	}
	*(*uint64)(gp) -= amount
	return nil
}

func (gp *GasPool) Gas() uint64 { return uint64(*gp) }

// StateTransition applies one transaction's message against a StateDB
// through the EVM, implementing spec.md §4.5's full pipeline: pre-checks,
// upfront gas charge, execution, refund, miner payment.
type StateTransition struct {
	gp         *GasPool
	msg        types.Message
	gas        uint64
	gasPrice   *big.Int
	initialGas uint64
	value      *big.Int
	data       []byte
	state      vm.StateDB
	evm        *vm.EVM
}

// ExecutionResult is what ApplyMessage returns: the gas actually used,
// any revert data, and the top-level EVM error (nil on success,
// ErrExecutionReverted on revert; Failed reports both errors as failure).
type ExecutionResult struct {
	UsedGas    uint64
	Err        error
	ReturnData []byte
}

func (r *ExecutionResult) Failed() bool { return r.Err != nil }

// NewStateTransition builds a StateTransition for msg against evm/gp.
func NewStateTransition(evm *vm.EVM, msg types.Message, gp *GasPool) *StateTransition {
	return &StateTransition{
		gp:       gp,
		evm:      evm,
		msg:      msg,
		gasPrice: msg.GasPrice(),
		value:    msg.Value(),
		data:     msg.Data(),
		state:    evm.StateDB,
	}
}

// ApplyMessage runs msg to completion on evm and accounts its gas against
// gp. It is the external entry point core/state_processor.go calls once
// per transaction.
func ApplyMessage(evm *vm.EVM, msg types.Message, gp *GasPool) (*ExecutionResult, error) {
	return NewStateTransition(evm, msg, gp).TransitionDb()
}

func (st *StateTransition) to() common.Address {
	if st.msg.To() == nil {
		return common.Address{}
	}
	return *st.msg.To()
}

// buyGas checks that the sender's balance covers gas*price + value (spec.md
// §4.5 step 3), failing with ErrInsufficientFunds if it can't, and then
// charges gas*price upfront; the value moves later, with the call or
// creation itself.
func (st *StateTransition) buyGas() error {
	mgval := new(big.Int).Mul(new(big.Int).SetUint64(st.msg.Gas()), st.gasPrice)
	balanceCheck := new(big.Int).Add(mgval, st.value)
	if have, want := st.state.GetBalance(st.msg.From()), balanceCheck; have.Cmp(want) < 0 {
		return ErrInsufficientFunds
	}
	if err := st.gp.SubGas(st.msg.Gas()); err != nil {
		return err
	}
	st.gas += st.msg.Gas()
	st.initialGas = st.msg.Gas()
	st.state.SubBalance(st.msg.From(), mgval)
	return nil
}

// preCheck runs the spec.md §4.5 step-1/step-3 validations that must pass
// before any gas is consumed: nonce match (when the message asks for it),
// then, through buyGas, sufficient balance and block gas. The sender was
// already recovered by AsMessage, and the intrinsic-gas floor is checked
// afterwards in TransitionDb.
func (st *StateTransition) preCheck() error {
	if st.msg.CheckNonce() {
		nonce := st.state.GetNonce(st.msg.From())
		if nonce < st.msg.Nonce() {
			return ErrNonceTooHigh
		} else if nonce > st.msg.Nonce() {
			return ErrNonceTooLow
		}
	}
	return st.buyGas()
}

// TransitionDb runs the full pipeline and returns the execution result.
func (st *StateTransition) TransitionDb() (*ExecutionResult, error) {
	if err := st.preCheck(); err != nil {
		return nil, err
	}
	msg := st.msg
	sender := vm.AccountRef(msg.From())
	rules := st.evm.ChainConfig().Rules(st.evm.BlockContext.BlockNumber)
	contractCreation := msg.To() == nil

	gas, err := IntrinsicGas(st.data, contractCreation, rules)
	if err != nil {
		return nil, err
	}
	if st.gas < gas {
		return nil, ErrIntrinsicGas
	}
	st.gas -= gas

	var (
		vmerr error
		ret   []byte
	)
	if contractCreation {
		ret, _, st.gas, vmerr = st.evm.Create(sender, st.data, st.gas, st.value)
	} else {
		st.state.SetNonce(msg.From(), st.state.GetNonce(msg.From())+1)
		ret, st.gas, vmerr = st.evm.Call(sender, st.to(), st.data, st.gas, st.value)
	}

	st.refundGas(rules)
	st.state.AddBalance(st.evm.BlockContext.Coinbase, new(big.Int).Mul(new(big.Int).SetUint64(st.gasUsed()), st.gasPrice))

	return &ExecutionResult{
		UsedGas:    st.gasUsed(),
		Err:        vmerr,
		ReturnData: ret,
	}, nil
}

// refundGas credits the sender for unused gas plus the capped refund
// counter (spec.md §4.5 step 6: "min(refund_counter, gas_used/2)").
func (st *StateTransition) refundGas(rules params.Rules) {
	refund := st.gasUsed() / 2
	if available := st.state.GetRefund(); refund > available {
		refund = available
	}
	st.gas += refund

	remaining := new(big.Int).Mul(new(big.Int).SetUint64(st.gas), st.gasPrice)
	st.state.AddBalance(st.msg.From(), remaining)

	st.gp.AddGas(st.gas)
}

func (st *StateTransition) gasUsed() uint64 {
	return st.initialGas - st.gas
}
