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

// GetWeightCheckpoint returns the checkpoint of an account in effect at the
// given height, or nil when the account had no weight history by then
func (d *Database) GetWeightCheckpoint(
	account []byte,
	height uint64,
	txn *Txn,
) (*models.WeightCheckpoint, error) {
	var ret *models.WeightCheckpoint
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetWeightCheckpoint(account, height, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get weight checkpoint: %w", err)
		}
		return nil
	})
	return ret, err
}

// GetLatestWeightCheckpoint returns the newest checkpoint of an account
func (d *Database) GetLatestWeightCheckpoint(
	account []byte,
	txn *Txn,
) (*models.WeightCheckpoint, error) {
	var ret *models.WeightCheckpoint
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetLatestWeightCheckpoint(account, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get weight checkpoint: %w", err)
		}
		return nil
	})
	return ret, err
}

// GetWeightHistory returns every checkpoint of an account, oldest first
func (d *Database) GetWeightHistory(
	account []byte,
	txn *Txn,
) ([]models.WeightCheckpoint, error) {
	var ret []models.WeightCheckpoint
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetWeightCheckpoints(account, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get weight history: %w", err)
		}
		return nil
	})
	return ret, err
}

// SetWeightCheckpoint writes a weight checkpoint
func (d *Database) SetWeightCheckpoint(
	checkpoint *models.WeightCheckpoint,
	txn *Txn,
) error {
	return d.Update(txn, func(txn *Txn) error {
		if err := d.metadata.SetWeightCheckpoint(checkpoint, txn.Metadata()); err != nil {
			return fmt.Errorf("failed to set weight checkpoint: %w", err)
		}
		return nil
	})
}

// GetSupplyCheckpoint returns the supply checkpoint in effect at the given
// height, or nil
func (d *Database) GetSupplyCheckpoint(
	height uint64,
	txn *Txn,
) (*models.SupplyCheckpoint, error) {
	var ret *models.SupplyCheckpoint
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetSupplyCheckpoint(height, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get supply checkpoint: %w", err)
		}
		return nil
	})
	return ret, err
}

// GetLatestSupplyCheckpoint returns the newest supply checkpoint
func (d *Database) GetLatestSupplyCheckpoint(
	txn *Txn,
) (*models.SupplyCheckpoint, error) {
	var ret *models.SupplyCheckpoint
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetLatestSupplyCheckpoint(txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get supply checkpoint: %w", err)
		}
		return nil
	})
	return ret, err
}

// SetSupplyCheckpoint writes a supply checkpoint
func (d *Database) SetSupplyCheckpoint(
	checkpoint *models.SupplyCheckpoint,
	txn *Txn,
) error {
	return d.Update(txn, func(txn *Txn) error {
		if err := d.metadata.SetSupplyCheckpoint(checkpoint, txn.Metadata()); err != nil {
			return fmt.Errorf("failed to set supply checkpoint: %w", err)
		}
		return nil
	})
}

// GetQuorumCheckpoint returns the quorum numerator checkpoint in effect at
// the given height, or nil
func (d *Database) GetQuorumCheckpoint(
	height uint64,
	txn *Txn,
) (*models.QuorumCheckpoint, error) {
	var ret *models.QuorumCheckpoint
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetQuorumCheckpoint(height, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get quorum checkpoint: %w", err)
		}
		return nil
	})
	return ret, err
}

// GetLatestQuorumCheckpoint returns the newest quorum numerator checkpoint
func (d *Database) GetLatestQuorumCheckpoint(
	txn *Txn,
) (*models.QuorumCheckpoint, error) {
	var ret *models.QuorumCheckpoint
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetLatestQuorumCheckpoint(txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get quorum checkpoint: %w", err)
		}
		return nil
	})
	return ret, err
}

// SetQuorumCheckpoint writes a quorum numerator checkpoint
func (d *Database) SetQuorumCheckpoint(
	checkpoint *models.QuorumCheckpoint,
	txn *Txn,
) error {
	return d.Update(txn, func(txn *Txn) error {
		if err := d.metadata.SetQuorumCheckpoint(checkpoint, txn.Metadata()); err != nil {
			return fmt.Errorf("failed to set quorum checkpoint: %w", err)
		}
		return nil
	})
}
