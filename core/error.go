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

package core

import "errors"

// Transaction validation errors (spec.md §4.5 "pre-execution validation"),
// surfaced by StateTransition.preCheck before any gas is spent.
var (
	ErrNonceTooLow          = errors.New("nonce too low")
	ErrNonceTooHigh         = errors.New("nonce too high")
	ErrInvalidSender        = errors.New("invalid sender")
	ErrMissingAccount       = errors.New("sender account does not exist")
	ErrInsufficientFunds    = errors.New("insufficient funds for gas * price + value")
	ErrIntrinsicGas         = errors.New("intrinsic gas too low")
	ErrGasLimitReached      = errors.New("gas limit reached")
	ErrNegativeValue        = errors.New("negative value")
	ErrOversizedData        = errors.New("oversized data")
	ErrGasUintOverflow      = errors.New("gas uint64 overflow")
)

// Block/header validation errors (spec.md §4.6).
var (
	ErrKnownBlock           = errors.New("block already known")
	ErrUnknownAncestor      = errors.New("unknown ancestor")
	ErrPrunedAncestor       = errors.New("pruned ancestor")
	ErrFutureBlock          = errors.New("block in the future")
	ErrInvalidNumber        = errors.New("invalid block number")
	ErrInvalidTerminalBlock = errors.New("insufficient difficulty")
	ErrInvalidDifficulty    = errors.New("invalid difficulty")
	ErrInvalidMixDigest     = errors.New("invalid mix digest")
	ErrInvalidPoW           = errors.New("invalid proof-of-work")
	ErrInvalidUncleHash     = errors.New("invalid uncle hash")
	ErrTooManyUncles        = errors.New("too many uncles")
	ErrDuplicateUncle       = errors.New("duplicate uncle")
	ErrUncleIsAncestor      = errors.New("uncle is ancestor")
	ErrDanglingUncle        = errors.New("uncle's parent is not ancestor")
	ErrInvalidGasLimit      = errors.New("invalid gas limit")
	ErrGasLimitTooLow       = errors.New("gas limit below minimum")
	ErrExtraDataTooLong     = errors.New("extra-data too long")
	ErrInvalidTxRoot        = errors.New("invalid transaction root hash")
	ErrInvalidReceiptRoot   = errors.New("invalid receipt root hash")
	ErrInvalidBloom         = errors.New("invalid bloom")
	ErrInvalidStateRoot     = errors.New("invalid state root hash")
	ErrInvalidGasUsed       = errors.New("invalid gas used")
)
