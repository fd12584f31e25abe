// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ledger

import (
	"fmt"
	"strings"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	aliasGovernor = "governor"
	aliasTimelock = "timelock"
)

// address parses a hex address or an alias
func (ls *LedgerState) address(value string) (common.Address, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case aliasGovernor:
		return ls.config.Governor.Address(), nil
	case aliasTimelock:
		if tl := ls.timelock(); tl != nil {
			return tl.Address(), nil
		}
		return common.Address{}, governor.ErrNoTimelock
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q", ErrInvalidTransaction, value)
	}
	return common.HexToAddress(value), nil
}

// reference resolves a label or a hex id
func (ls *LedgerState) reference(value string) (common.Hash, error) {
	if id, ok := ls.labels[value]; ok {
		return id, nil
	}
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		raw, err := hexutil.Decode(value)
		if err == nil && len(raw) == common.HashLength {
			return common.BytesToHash(raw), nil
		}
		return common.Hash{}, fmt.Errorf("%w: invalid id %q", ErrInvalidTransaction, value)
	}
	return common.Hash{}, fmt.Errorf("%w: %q", ErrUnknownLabel, value)
}

// optionalHash parses an optional 32-byte hex value, defaulting to zero
func optionalHash(value string) (common.Hash, error) {
	if value == "" {
		return common.Hash{}, nil
	}
	raw, err := hexutil.Decode(value)
	if err != nil || len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: invalid hash %q", ErrInvalidTransaction, value)
	}
	return common.BytesToHash(raw), nil
}

// contractABI returns the built-in ABI of a target, if it has one
func (ls *LedgerState) contractABI(target common.Address) (abi.ABI, bool) {
	if target == ls.config.Governor.Address() {
		return governor.AdminABI, true
	}
	if tl := ls.timelock(); tl != nil && target == tl.Address() {
		return timelock.AdminABI, true
	}
	return abi.ABI{}, false
}

// bundle builds an action bundle from its description
func (ls *LedgerState) bundle(specs []ActionSpec) (action.Bundle, error) {
	ret := make(action.Bundle, 0, len(specs))
	for idx, spec := range specs {
		target, err := ls.address(spec.Target)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", idx, err)
		}
		var payload []byte
		switch {
		case spec.Method != "" && spec.Payload != "":
			return nil, fmt.Errorf(
				"%w: action %d has both method and payload",
				ErrInvalidTransaction,
				idx,
			)
		case spec.Method != "":
			contract, ok := ls.contractABI(target)
			if !ok {
				return nil, fmt.Errorf(
					"%w: action %d: no known methods on %s",
					ErrInvalidTransaction,
					idx,
					target.Hex(),
				)
			}
			payload, err = action.EncodeCallStrings(contract, spec.Method, ls.expandArgs(spec.Args))
			if err != nil {
				return nil, fmt.Errorf("action %d: %w", idx, err)
			}
		default:
			payload, err = hexutil.Decode(spec.Payload)
			if err != nil {
				return nil, fmt.Errorf(
					"%w: action %d payload: %w",
					ErrInvalidTransaction,
					idx,
					err,
				)
			}
		}
		ret = append(ret, action.Action{
			Target:  target,
			Value:   spec.Value,
			Payload: payload,
		})
	}
	return ret, nil
}

// expandArgs replaces address aliases and role names with their hex form
func (ls *LedgerState) expandArgs(args []string) []string {
	ret := make([]string, len(args))
	for idx, arg := range args {
		ret[idx] = arg
		switch strings.ToLower(arg) {
		case aliasGovernor, aliasTimelock:
			if addr, err := ls.address(arg); err == nil {
				ret[idx] = addr.Hex()
			}
			continue
		}
		if role, err := timelock.ParseRole(arg); err == nil && !strings.HasPrefix(arg, "0x") {
			ret[idx] = common.Hash(role).Hex()
		}
	}
	return ret
}
