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
	"errors"
	"fmt"
)

// Exceptional-halt sentinels (spec.md §4.4 "Exceptional halt"): any of
// these causes the call to return (0, pre_call_state, empty, empty_substate).
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrNoCompatibleInterpreter  = errors.New("no compatible interpreter")
	ErrWriteProtection          = errors.New("write protection") // STATICCALL context attempted a state mutation
	ErrInvalidJump              = errors.New("invalid jump destination")
	ErrInvalidOpCode            = errors.New("invalid opcode")
	ErrReturnDataOutOfBounds    = errors.New("return data out of bounds")
	ErrExecutionReverted        = errors.New("execution reverted") // the REVERT opcode (spec.md §4.4 "Reversion")
	ErrMaxCodeSizeExceeded      = errors.New("max code size exceeded")
	ErrGasUintOverflow          = errors.New("gas uint64 overflow")
	ErrUnimplementedPrecompile  = errors.New("precompile not implemented in this build")
)

// errStopToken is the sentinel opStop/opReturn/opSelfdestruct return to end
// the interpreter loop without signalling an exceptional halt; Run() never
// surfaces it to its caller.
var errStopToken = errors.New("stop token")

// ErrStackUnderflow reports a pop/peek against too few stack items.
type ErrStackUnderflow struct {
	stackLen int
	required int
}

func (e *ErrStackUnderflow) Error() string {
	return fmt.Sprintf("stack underflow (%d <=> %d)", e.stackLen, e.required)
}

// ErrStackOverflow reports a push beyond stackLimit.
type ErrStackOverflow struct {
	stackLen int
	limit    int
}

func (e *ErrStackOverflow) Error() string {
	return fmt.Sprintf("stack limit reached %d (%d)", e.stackLen, e.limit)
}
