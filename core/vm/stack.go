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
	"github.com/holiman/uint256"
)

// stackLimit is the maximum stack depth permitted by the protocol, 1024
// slots, mirrored against CallCreateDepth (params.CallCreateDepth) for the
// call-stack itself.
const stackLimit = 1024

// Stack is the EVM's 256-bit word stack (spec.md §3 "Word"). Words are
// holiman/uint256.Int values rather than math/big.Int: fixed four-limb
// arrays avoid the allocation churn math/big incurs on every PUSH/POP in
// the interpreter's hot loop, the same tradeoff geth's own core/vm makes.
type Stack struct {
	data []uint256.Int
}

func newstack() *Stack { return &Stack{data: make([]uint256.Int, 0, 16)} }

func (st *Stack) push(d *uint256.Int) { st.data = append(st.data, *d) }

func (st *Stack) pop() (ret uint256.Int) {
	ret = st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return
}

func (st *Stack) len() int { return len(st.data) }

func (st *Stack) swap(n int) {
	st.data[st.len()-n], st.data[st.len()-1] = st.data[st.len()-1], st.data[st.len()-n]
}

func (st *Stack) dup(n int) {
	st.push(&st.data[st.len()-n])
}

func (st *Stack) peek() *uint256.Int { return &st.data[st.len()-1] }

func (st *Stack) Back(n int) *uint256.Int { return &st.data[st.len()-n-1] }

func (st *Stack) require(n int) error {
	if st.len() < n {
		return &ErrStackUnderflow{stackLen: st.len(), required: n}
	}
	return nil
}
