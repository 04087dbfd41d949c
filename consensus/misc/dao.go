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

// Package misc holds small consensus-adjacent checks shared across engines
// that don't belong to any one of C1-C11's named components: the DAO
// fork's extra-data marker check.
package misc

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// daoForkBlockExtra is the required extra-data value for the DAO fork
// block and the nine blocks following it on a chain that supports the
// fork, signalling client support for the irregular state change.
var daoForkBlockExtra = []byte("dao-hard-fork")

// ErrBadProDAOExtra and ErrBadNoDAOExtra are returned when a header at a
// DAO-fork-adjacent height carries extra-data inconsistent with the
// chain's configured DAOForkSupport.
var (
	ErrBadProDAOExtra = errors.New("bad DAO pro-fork extra-data")
	ErrBadNoDAOExtra  = errors.New("bad DAO no-fork extra-data")
)

// VerifyDAOHeaderExtraData checks a header in the DAO-fork window against
// config.DAOForkSupport: a supporting chain requires the marker on the
// fork block and its next nine; a non-supporting chain rejects the marker
// to keep the two forks from accepting each other's headers.
func VerifyDAOHeaderExtraData(config *params.ChainConfig, header *types.Header) error {
	if config.DAOForkBlock == nil {
		return nil
	}
	limit := new(big.Int).Add(config.DAOForkBlock, big.NewInt(9))
	if header.Number.Cmp(config.DAOForkBlock) < 0 || header.Number.Cmp(limit) > 0 {
		return nil
	}
	if config.DAOForkSupport {
		if !bytes.Equal(header.Extra, daoForkBlockExtra) {
			return ErrBadProDAOExtra
		}
		return nil
	}
	if bytes.Equal(header.Extra, daoForkBlockExtra) {
		return ErrBadNoDAOExtra
	}
	return nil
}
