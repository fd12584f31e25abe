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

package timelock

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/executor"
	"github.com/ethereum/go-ethereum/common"
)

// AdminABI describes the calls the timelock accepts from its own operations
var AdminABI = action.MustParseABI(`[
	{"type":"function","name":"updateDelay","inputs":[{"name":"newDelay","type":"uint256"}]},
	{"type":"function","name":"grantRole","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}]},
	{"type":"function","name":"revokeRole","inputs":[{"name":"role","type":"bytes32"},{"name":"account","type":"address"}]}
]`)

// HasRole reports whether account holds role
func (t *Timelock) HasRole(role Role, account common.Address, txn *database.Txn) (bool, error) {
	return t.config.DB.HasTimelockRole(role.Bytes(), account.Bytes(), txn)
}

// Roles returns every role grant
func (t *Timelock) Roles(txn *database.Txn) ([]RoleGrant, error) {
	rows, err := t.config.DB.GetTimelockRoles(txn)
	if err != nil {
		return nil, err
	}
	ret := make([]RoleGrant, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, RoleGrant{
			Role:    Role(common.BytesToHash(row.Role)),
			Account: common.BytesToAddress(row.Account),
		})
	}
	return ret, nil
}

// GrantRole gives role to account. The caller needs AdminRole
func (t *Timelock) GrantRole(
	caller common.Address,
	role Role,
	account common.Address,
	txn *database.Txn,
) error {
	return t.config.DB.Update(txn, func(txn *database.Txn) error {
		if err := t.checkRole(AdminRole, caller, txn); err != nil {
			return err
		}
		_, err := t.grant(role, account, caller, txn)
		return err
	})
}

// RevokeRole takes role from account. The caller needs AdminRole
func (t *Timelock) RevokeRole(
	caller common.Address,
	role Role,
	account common.Address,
	txn *database.Txn,
) error {
	return t.config.DB.Update(txn, func(txn *database.Txn) error {
		if err := t.checkRole(AdminRole, caller, txn); err != nil {
			return err
		}
		_, err := t.revoke(role, account, caller, txn)
		return err
	})
}

// RenounceRole gives up a role held by the caller
func (t *Timelock) RenounceRole(
	caller common.Address,
	role Role,
	account common.Address,
	txn *database.Txn,
) error {
	if caller != account {
		return ErrBadConfirmation
	}
	return t.config.DB.Update(txn, func(txn *database.Txn) error {
		_, err := t.revoke(role, account, caller, txn)
		return err
	})
}

// UpdateDelay changes the minimum delay. Only the timelock itself may call
// it, through an executed operation
func (t *Timelock) UpdateDelay(caller common.Address, delay uint64, txn *database.Txn) error {
	if caller != t.config.Address {
		return fmt.Errorf("%w: %s is not the timelock", ErrUnauthorized, caller.Hex())
	}
	return t.config.DB.Update(txn, func(txn *database.Txn) error {
		old, err := t.MinDelay(txn)
		if err != nil {
			return err
		}
		settings, err := t.config.DB.GetTimelockSettings(txn)
		if err != nil {
			return err
		}
		if settings == nil {
			return errors.New("timelock is not initialized")
		}
		settings.MinDelay = delay
		if err := t.config.DB.SetTimelockSettings(settings, txn); err != nil {
			return err
		}
		t.publishOnCommit(
			txn,
			MinDelayChangedEventType,
			MinDelayChangedEvent{OldDelay: old, NewDelay: delay},
			nil,
		)
		return nil
	})
}

func (t *Timelock) grant(
	role Role,
	account common.Address,
	sender common.Address,
	txn *database.Txn,
) (bool, error) {
	added, err := t.config.DB.AddTimelockRole(role.Bytes(), account.Bytes(), txn)
	if err != nil {
		return false, err
	}
	if added {
		t.publishOnCommit(
			txn,
			RoleGrantedEventType,
			RoleEvent{Role: role, Account: account, Sender: sender},
			nil,
		)
	}
	return added, nil
}

func (t *Timelock) revoke(
	role Role,
	account common.Address,
	sender common.Address,
	txn *database.Txn,
) (bool, error) {
	removed, err := t.config.DB.DeleteTimelockRole(role.Bytes(), account.Bytes(), txn)
	if err != nil {
		return false, err
	}
	if removed {
		t.publishOnCommit(
			txn,
			RoleRevokedEventType,
			RoleEvent{Role: role, Account: account, Sender: sender},
			nil,
		)
	}
	return removed, nil
}

func (t *Timelock) checkRole(role Role, account common.Address, txn *database.Txn) error {
	ok, err := t.HasRole(role, account, txn)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s lacks %s", ErrUnauthorized, account.Hex(), role)
	}
	return nil
}

func (t *Timelock) checkExecutor(caller common.Address, txn *database.Txn) error {
	open, err := t.HasRole(ExecutorRole, Anyone, txn)
	if err != nil {
		return err
	}
	if open {
		return nil
	}
	return t.checkRole(ExecutorRole, caller, txn)
}

// Handler returns the executor handler for calls addressed to the timelock
func (t *Timelock) Handler() executor.Handler {
	return executor.HandlerFunc(t.handle)
}

func (t *Timelock) handle(_ context.Context, call executor.Call) error {
	method, args, err := action.DecodeCall(AdminABI, call.Action.Payload)
	if err != nil {
		return err
	}
	switch method.Name {
	case "updateDelay":
		delay, ok := args[0].(*big.Int)
		if !ok || !delay.IsUint64() {
			return fmt.Errorf("invalid delay %v", args[0])
		}
		return t.UpdateDelay(call.Caller, delay.Uint64(), call.Txn)
	case "grantRole", "revokeRole":
		if call.Caller != t.config.Address {
			return fmt.Errorf("%w: %s is not the timelock", ErrUnauthorized, call.Caller.Hex())
		}
		role, ok := args[0].([32]byte)
		if !ok {
			return fmt.Errorf("invalid role %v", args[0])
		}
		account, ok := args[1].(common.Address)
		if !ok {
			return fmt.Errorf("invalid account %v", args[1])
		}
		if method.Name == "grantRole" {
			return t.GrantRole(call.Caller, Role(role), account, call.Txn)
		}
		return t.RevokeRole(call.Caller, Role(role), account, call.Txn)
	}
	return fmt.Errorf("%w: %s", action.ErrUnknownMethod, method.Name)
}
