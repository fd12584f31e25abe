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

	"github.com/blinklabs-io/gavel/database/types"
	"gorm.io/gorm"
)

// gormTxn wraps a GORM transaction and implements types.Txn
type gormTxn struct {
	store    *Store
	tx       *gorm.DB
	finished bool
}

func (t *gormTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.tx == nil {
		return nil
	}
	return t.tx.Commit().Error
}

func (t *gormTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback().Error
	if errors.Is(err, gorm.ErrInvalidTransaction) {
		return nil
	}
	return err
}

// resolveDB returns the GORM handle for the provided transaction, or the
// plain database handle when txn is nil
func (d *Store) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return d.db, nil
	}
	gtxn, ok := txn.(*gormTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if gtxn.store != d {
		return nil, errors.New("transaction from different store")
	}
	if gtxn.finished {
		return nil, errors.New("transaction already finished")
	}
	if gtxn.tx == nil {
		return nil, types.ErrNilTxn
	}
	if gtxn.tx.Error != nil {
		return nil, gtxn.tx.Error
	}
	return gtxn.tx, nil
}
