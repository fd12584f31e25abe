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
	"github.com/blinklabs-io/gavel/action"
	"github.com/ethereum/go-ethereum/common"
)

const (
	CallScheduledEventType   = "timelock.call_scheduled"
	CallExecutedEventType    = "timelock.call_executed"
	CancelledEventType       = "timelock.cancelled"
	RoleGrantedEventType     = "timelock.role_granted"
	RoleRevokedEventType     = "timelock.role_revoked"
	MinDelayChangedEventType = "timelock.min_delay_changed"
)

type CallScheduledEvent struct {
	OperationID    common.Hash    `json:"operationId"`
	Predecessor    common.Hash    `json:"predecessor"`
	Salt           common.Hash    `json:"salt"`
	Bundle         action.Bundle  `json:"bundle"`
	Delay          uint64         `json:"delay"`
	ReadyTimestamp uint64         `json:"readyTimestamp"`
	Proposer       common.Address `json:"proposer"`
	Height         uint64         `json:"height"`
}

type CallExecutedEvent struct {
	OperationID common.Hash    `json:"operationId"`
	Executor    common.Address `json:"executor"`
	Height      uint64         `json:"height"`
	Timestamp   uint64         `json:"timestamp"`
}

type CancelledEvent struct {
	OperationID common.Hash    `json:"operationId"`
	Canceller   common.Address `json:"canceller"`
	Height      uint64         `json:"height"`
}

type RoleEvent struct {
	Role    Role           `json:"role"`
	Account common.Address `json:"account"`
	Sender  common.Address `json:"sender"`
}

type MinDelayChangedEvent struct {
	OldDelay uint64 `json:"oldDelay"`
	NewDelay uint64 `json:"newDelay"`
}
