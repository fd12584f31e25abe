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

package models

import "errors"

var ErrTimelockOperationNotFound = errors.New("timelock operation not found")

// TimelockOperation is a scheduled action bundle. Canceled operations are
// removed so the same bundle may be scheduled again.
type TimelockOperation struct {
	ID                uint   `gorm:"primarykey"`
	OperationID       []byte `gorm:"uniqueIndex;size:32;not null"`
	Predecessor       []byte `gorm:"size:32;not null"`
	Salt              []byte `gorm:"size:32;not null"`
	Proposer          []byte `gorm:"size:20;not null"`
	ActionCount       uint32 `gorm:"not null"`
	Delay             uint64 `gorm:"not null"`
	ScheduledHeight   uint64 `gorm:"index;not null"`
	ReadyTimestamp    uint64 `gorm:"index;not null"`
	ExecutedHeight    *uint64
	ExecutedTimestamp *uint64
}

// TableName returns the table name
func (TimelockOperation) TableName() string {
	return "timelock_operation"
}

// TimelockRole grants a role to an account
type TimelockRole struct {
	ID      uint   `gorm:"primarykey"`
	Role    []byte `gorm:"uniqueIndex:idx_timelock_role_account,priority:1;size:32;not null"`
	Account []byte `gorm:"uniqueIndex:idx_timelock_role_account,priority:2;size:20;not null"`
}

// TableName returns the table name
func (TimelockRole) TableName() string {
	return "timelock_role"
}

// TimelockSettings holds the timelock minimum delay
type TimelockSettings struct {
	ID       uint   `gorm:"primarykey"`
	MinDelay uint64 `gorm:"not null"`
}

// TableName returns the table name
func (TimelockSettings) TableName() string {
	return "timelock_settings"
}
