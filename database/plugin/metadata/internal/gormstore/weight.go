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

// GetWeightCheckpoint returns the latest checkpoint for an account at or
// below the given height, or nil if none exists
func (d *Store) GetWeightCheckpoint(
	account []byte,
	height uint64,
	txn types.Txn,
) (*models.WeightCheckpoint, error) {
	var checkpoint models.WeightCheckpoint
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"account = ? AND height <= ?",
		account,
		height,
	).Order("height DESC").First(&checkpoint); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &checkpoint, nil
}

// GetLatestWeightCheckpoint returns the most recent checkpoint for an account
func (d *Store) GetLatestWeightCheckpoint(
	account []byte,
	txn types.Txn,
) (*models.WeightCheckpoint, error) {
	var checkpoint models.WeightCheckpoint
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("account = ?", account).
		Order("height DESC").
		First(&checkpoint); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &checkpoint, nil
}

// GetWeightCheckpoints returns the full weight history of an account in
// ascending height order
func (d *Store) GetWeightCheckpoints(
	account []byte,
	txn types.Txn,
) ([]models.WeightCheckpoint, error) {
	var checkpoints []models.WeightCheckpoint
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("account = ?", account).
		Order("height ASC").
		Find(&checkpoints); result.Error != nil {
		return nil, result.Error
	}
	return checkpoints, nil
}

// SetWeightCheckpoint creates a checkpoint or replaces the weight of the
// checkpoint at the same height
func (d *Store) SetWeightCheckpoint(
	checkpoint *models.WeightCheckpoint,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "account"},
			{Name: "height"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"weight"}),
	}
	if result := db.Clauses(onConflict).Create(checkpoint); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetSupplyCheckpoint returns the latest supply checkpoint at or below the
// given height, or nil if none exists
func (d *Store) GetSupplyCheckpoint(
	height uint64,
	txn types.Txn,
) (*models.SupplyCheckpoint, error) {
	var checkpoint models.SupplyCheckpoint
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

// GetLatestSupplyCheckpoint returns the most recent supply checkpoint
func (d *Store) GetLatestSupplyCheckpoint(
	txn types.Txn,
) (*models.SupplyCheckpoint, error) {
	var checkpoint models.SupplyCheckpoint
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

// SetSupplyCheckpoint creates or replaces the supply checkpoint at a height
func (d *Store) SetSupplyCheckpoint(
	checkpoint *models.SupplyCheckpoint,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "height"}},
		DoUpdates: clause.AssignmentColumns([]string{"total"}),
	}
	if result := db.Clauses(onConflict).Create(checkpoint); result.Error != nil {
		return result.Error
	}
	return nil
}
