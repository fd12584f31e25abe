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

package gormstore

import (
	"errors"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetQuorumCheckpoint returns the numerator in effect at the given height,
// or nil if none was ever recorded at or below it
func (d *Store) GetQuorumCheckpoint(
	height uint64,
	txn types.Txn,
) (*models.QuorumCheckpoint, error) {
	var checkpoint models.QuorumCheckpoint
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("height <= ?", height).
		Order("height DESC").
		First(&checkpoint); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &checkpoint, nil
}

// GetLatestQuorumCheckpoint returns the most recent quorum checkpoint
func (d *Store) GetLatestQuorumCheckpoint(
	txn types.Txn,
) (*models.QuorumCheckpoint, error) {
	var checkpoint models.QuorumCheckpoint
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Order("height DESC").First(&checkpoint); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &checkpoint, nil
}

// SetQuorumCheckpoint creates or replaces the quorum checkpoint at a height
func (d *Store) SetQuorumCheckpoint(
	checkpoint *models.QuorumCheckpoint,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "height"}},
		DoUpdates: clause.AssignmentColumns([]string{"numerator"}),
	}
	if result := db.Clauses(onConflict).Create(checkpoint); result.Error != nil {
		return result.Error
	}
	return nil
}
