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

package database

import (
	"fmt"

	"github.com/blinklabs-io/gavel/database/models"
)

// GetTimelockSettings returns the timelock settings, or nil before they are
// initialized
func (d *Database) GetTimelockSettings(txn *Txn) (*models.TimelockSettings, error) {
	var ret *models.TimelockSettings
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTimelockSettings(txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get timelock settings: %w", err)
		}
		return nil
	})
	return ret, err
}

// SetTimelockSettings writes the timelock settings
func (d *Database) SetTimelockSettings(
	settings *models.TimelockSettings,
	txn *Txn,
) error {
	return d.Update(txn, func(txn *Txn) error {
		if err := d.metadata.SetTimelockSettings(settings, txn.Metadata()); err != nil {
			return fmt.Errorf("failed to set timelock settings: %w", err)
		}
		return nil
	})
}

// GetTimelockOperation returns a scheduled operation, or
// models.ErrTimelockOperationNotFound
func (d *Database) GetTimelockOperation(
	operationId []byte,
	txn *Txn,
) (*models.TimelockOperation, error) {
	var ret *models.TimelockOperation
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTimelockOperation(operationId, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get timelock operation: %w", err)
		}
		if ret == nil {
			return models.ErrTimelockOperationNotFound
		}
		return nil
	})
	return ret, err
}

// SetTimelockOperation inserts or updates a scheduled operation
func (d *Database) SetTimelockOperation(
	op *models.TimelockOperation,
	txn *Txn,
) error {
	return d.Update(txn, func(txn *Txn) error {
		if err := d.metadata.SetTimelockOperation(op, txn.Metadata()); err != nil {
			return fmt.Errorf("failed to set timelock operation: %w", err)
		}
		return nil
	})
}

// DeleteTimelockOperation removes a scheduled operation and its bundle
func (d *Database) DeleteTimelockOperation(operationId []byte, txn *Txn) error {
	return d.Update(txn, func(txn *Txn) error {
		if err := d.metadata.DeleteTimelockOperation(operationId, txn.Metadata()); err != nil {
			return fmt.Errorf("failed to delete timelock operation: %w", err)
		}
		return d.DeleteOperationBundle(operationId, txn)
	})
}

// HasTimelockRole reports whether an account holds a role
func (d *Database) HasTimelockRole(role []byte, account []byte, txn *Txn) (bool, error) {
	var ret bool
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.HasTimelockRole(role, account, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to check timelock role: %w", err)
		}
		return nil
	})
	return ret, err
}

// GetTimelockRoles returns every role grant
func (d *Database) GetTimelockRoles(txn *Txn) ([]models.TimelockRole, error) {
	var ret []models.TimelockRole
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetTimelockRoles(txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get timelock roles: %w", err)
		}
		return nil
	})
	return ret, err
}

// AddTimelockRole grants a role and reports whether the grant is new
func (d *Database) AddTimelockRole(role []byte, account []byte, txn *Txn) (bool, error) {
	var ret bool
	err := d.Update(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.AddTimelockRole(
			&models.TimelockRole{Role: role, Account: account},
			txn.Metadata(),
		)
		if err != nil {
			return fmt.Errorf("failed to add timelock role: %w", err)
		}
		return nil
	})
	return ret, err
}

// DeleteTimelockRole revokes a role and reports whether it was held
func (d *Database) DeleteTimelockRole(role []byte, account []byte, txn *Txn) (bool, error) {
	var ret bool
	err := d.Update(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.DeleteTimelockRole(role, account, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to delete timelock role: %w", err)
		}
		return nil
	})
	return ret, err
}
