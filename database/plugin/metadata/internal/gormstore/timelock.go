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

const timelockSettingsRowId = 1

// GetTimelockSettings returns the timelock settings, or nil if they have
// not been initialized
func (d *Store) GetTimelockSettings(
	txn types.Txn,
) (*models.TimelockSettings, error) {
	var settings models.TimelockSettings
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.First(&settings, timelockSettingsRowId); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &settings, nil
}

// SetTimelockSettings creates or updates the timelock settings
func (d *Store) SetTimelockSettings(
	settings *models.TimelockSettings,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	settings.ID = timelockSettingsRowId
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"min_delay"}),
	}
	if result := db.Clauses(onConflict).Create(settings); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetTimelockOperation returns a scheduled operation, or nil if the
// operation is unknown
func (d *Store) GetTimelockOperation(
	operationId []byte,
	txn types.Txn,
) (*models.TimelockOperation, error) {
	var op models.TimelockOperation
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("operation_id = ?", operationId).
		First(&op); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &op, nil
}

// SetTimelockOperation inserts a new operation or saves an existing one
func (d *Store) SetTimelockOperation(
	op *models.TimelockOperation,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if op.ID == 0 {
		if result := db.Create(op); result.Error != nil {
			return result.Error
		}
		return nil
	}
	if result := db.Save(op); result.Error != nil {
		return result.Error
	}
	return nil
}

// DeleteTimelockOperation removes a scheduled operation
func (d *Store) DeleteTimelockOperation(
	operationId []byte,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Where("operation_id = ?", operationId).
		Delete(&models.TimelockOperation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTimelockOperationNotFound
	}
	return nil
}

// HasTimelockRole reports whether the account holds the role
func (d *Store) HasTimelockRole(
	role []byte,
	account []byte,
	txn types.Txn,
) (bool, error) {
	var count int64
	db, err := d.resolveDB(txn)
	if err != nil {
		return false, err
	}
	if result := db.Model(&models.TimelockRole{}).Where(
		"role = ? AND account = ?",
		role,
		account,
	).Count(&count); result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// GetTimelockRoles returns all role grants
func (d *Store) GetTimelockRoles(
	txn types.Txn,
) ([]models.TimelockRole, error) {
	var roles []models.TimelockRole
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Order("id ASC").Find(&roles); result.Error != nil {
		return nil, result.Error
	}
	return roles, nil
}

// AddTimelockRole grants a role and reports whether the grant is new
func (d *Store) AddTimelockRole(
	role *models.TimelockRole,
	txn types.Txn,
) (bool, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return false, err
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(role)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteTimelockRole revokes a role and reports whether it was held
func (d *Store) DeleteTimelockRole(
	role []byte,
	account []byte,
	txn types.Txn,
) (bool, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return false, err
	}
	result := db.Where("role = ? AND account = ?", role, account).
		Delete(&models.TimelockRole{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
