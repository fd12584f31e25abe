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
	"github.com/blinklabs-io/gavel/database/types"
)

// GetTip returns the last applied point. The boolean is false when no
// block has been applied yet
func (d *Database) GetTip(txn *Txn) (types.Point, bool, error) {
	var ret types.Point
	var found bool
	err := d.View(txn, func(txn *Txn) error {
		tip, err := d.metadata.GetTip(txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get tip: %w", err)
		}
		if tip != nil {
			ret = types.Point{Height: tip.Height, Timestamp: tip.Timestamp}
			found = true
		}
		return nil
	})
	return ret, found, err
}

// SetTip records the last applied point
func (d *Database) SetTip(point types.Point, txn *Txn) error {
	return d.Update(txn, func(txn *Txn) error {
		tip := &models.Tip{Height: point.Height, Timestamp: point.Timestamp}
		if err := d.metadata.SetTip(tip, txn.Metadata()); err != nil {
			return fmt.Errorf("failed to set tip: %w", err)
		}
		return nil
	})
}
