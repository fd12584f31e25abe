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

import "github.com/blinklabs-io/gavel/database/types"

// WeightCheckpoint records the voting weight of an account from Height onward
type WeightCheckpoint struct {
	ID      uint         `gorm:"primarykey"`
	Account []byte       `gorm:"uniqueIndex:idx_weight_account_height,priority:1;size:20;not null"`
	Height  uint64       `gorm:"uniqueIndex:idx_weight_account_height,priority:2;not null"`
	Weight  types.Uint64 `gorm:"not null"`
}

// TableName returns the table name
func (WeightCheckpoint) TableName() string {
	return "weight_checkpoint"
}

// SupplyCheckpoint records the total voting weight from Height onward
type SupplyCheckpoint struct {
	ID     uint         `gorm:"primarykey"`
	Height uint64       `gorm:"uniqueIndex;not null"`
	Total  types.Uint64 `gorm:"not null"`
}

// TableName returns the table name
func (SupplyCheckpoint) TableName() string {
	return "supply_checkpoint"
}

// QuorumCheckpoint records the quorum numerator from Height onward
type QuorumCheckpoint struct {
	ID        uint   `gorm:"primarykey"`
	Height    uint64 `gorm:"uniqueIndex;not null"`
	Numerator uint64 `gorm:"not null"`
}

// TableName returns the table name
func (QuorumCheckpoint) TableName() string {
	return "quorum_checkpoint"
}
