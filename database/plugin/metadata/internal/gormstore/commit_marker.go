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
	"gorm.io/gorm/clause"
)

const commitMarkerRowId = 1

// CommitMarker is the single-row table holding the last commit marker
type CommitMarker struct {
	ID        uint `gorm:"primarykey"`
	Sequence  uint64
	Timestamp int64
}

func (CommitMarker) TableName() string {
	return "commit_marker"
}

func (d *Store) GetCommitMarker() (types.CommitMarker, error) {
	var row CommitMarker
	result := d.DB().First(&row, commitMarkerRowId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return types.CommitMarker{}, nil
		}
		return types.CommitMarker{}, result.Error
	}
	return types.CommitMarker{
		Sequence:  row.Sequence,
		Timestamp: row.Timestamp,
	}, nil
}

func (d *Store) SetCommitMarker(
	marker types.CommitMarker,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	row := CommitMarker{
		ID:        commitMarkerRowId,
		Sequence:  marker.Sequence,
		Timestamp: marker.Timestamp,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"sequence", "timestamp"}),
	}).Create(&row)
	return result.Error
}
