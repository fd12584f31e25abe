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
	"errors"
	"fmt"

	"github.com/blinklabs-io/gavel/database/types"
)

// ErrBundleNotFound is returned when no action bundle is stored under a key
var ErrBundleNotFound = errors.New("action bundle not found")

// GetProposalBundle returns the encoded action bundle of a proposal revision
func (d *Database) GetProposalBundle(
	proposalId []byte,
	revision uint32,
	txn *Txn,
) ([]byte, error) {
	return d.getBundle(types.ProposalBundleKey(proposalId, revision), txn)
}

// SetProposalBundle stores the encoded action bundle of a proposal revision
func (d *Database) SetProposalBundle(
	proposalId []byte,
	revision uint32,
	data []byte,
	txn *Txn,
) error {
	return d.setBundle(types.ProposalBundleKey(proposalId, revision), data, txn)
}

// GetOperationBundle returns the encoded action bundle of a timelock operation
func (d *Database) GetOperationBundle(operationId []byte, txn *Txn) ([]byte, error) {
	return d.getBundle(types.OperationBundleKey(operationId), txn)
}

// SetOperationBundle stores the encoded action bundle of a timelock operation
func (d *Database) SetOperationBundle(
	operationId []byte,
	data []byte,
	txn *Txn,
) error {
	return d.setBundle(types.OperationBundleKey(operationId), data, txn)
}

// DeleteOperationBundle removes the action bundle of a timelock operation
func (d *Database) DeleteOperationBundle(operationId []byte, txn *Txn) error {
	return d.Update(txn, func(txn *Txn) error {
		if err := d.blob.Delete(txn.Blob(), types.OperationBundleKey(operationId)); err != nil {
			return fmt.Errorf("failed to delete operation bundle: %w", err)
		}
		return nil
	})
}

func (d *Database) getBundle(key []byte, txn *Txn) ([]byte, error) {
	var ret []byte
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.blob.Get(txn.Blob(), key)
		if err != nil {
			if errors.Is(err, types.ErrBlobKeyNotFound) {
				return ErrBundleNotFound
			}
			return fmt.Errorf("failed to get bundle: %w", err)
		}
		return nil
	})
	return ret, err
}

func (d *Database) setBundle(key []byte, data []byte, txn *Txn) error {
	return d.Update(txn, func(txn *Txn) error {
		if err := d.blob.Set(txn.Blob(), key, data); err != nil {
			return fmt.Errorf("failed to set bundle: %w", err)
		}
		return nil
	})
}
