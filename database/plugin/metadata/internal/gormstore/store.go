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

// Package gormstore holds the metadata queries shared by the GORM backed
// stores. Dialect plugins open the connection and embed a Store
package gormstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

// SchemaVersion is the version of the tables written by this store. A
// database written by a newer version is refused
const SchemaVersion = 1

var ErrSchemaTooNew = errors.New("metadata schema is newer than supported")

// SchemaInfo is the single-row table holding the schema version
type SchemaInfo struct {
	ID      uint `gorm:"primarykey"`
	Version int
}

func (SchemaInfo) TableName() string {
	return "schema_info"
}

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New wraps an open connection, enables query tracing and migrates the
// schema. The Store is returned alongside a migration error so the caller
// can close it
func New(db *gorm.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Store{db: db, logger: logger}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return s, err
	}
	if err := s.migrate(); err != nil {
		return s, err
	}
	return s, nil
}

// DB returns the underlying GORM database handle
func (d *Store) DB() *gorm.DB {
	return d.db
}

// Logger returns the logger the store was created with
func (d *Store) Logger() *slog.Logger {
	return d.logger
}

// Transaction creates a new database transaction
func (d *Store) Transaction() types.Txn {
	return &gormTxn{store: d, tx: d.db.Begin()}
}

func (d *Store) migrate() error {
	if err := d.db.AutoMigrate(&SchemaInfo{}); err != nil {
		return err
	}
	var info SchemaInfo
	result := d.db.Limit(1).Find(&info)
	if result.Error != nil {
		return result.Error
	}
	if info.Version > SchemaVersion {
		return fmt.Errorf(
			"%w: %d > %d",
			ErrSchemaTooNew,
			info.Version,
			SchemaVersion,
		)
	}
	tables := append([]any{&CommitMarker{}}, models.MigrateModels...)
	for _, model := range tables {
		d.logger.Debug(
			fmt.Sprintf("creating table: %T", model),
			"component", "database",
		)
		if err := d.db.AutoMigrate(model); err != nil {
			return err
		}
	}
	if info.Version == SchemaVersion {
		return nil
	}
	return d.db.Save(&SchemaInfo{ID: 1, Version: SchemaVersion}).Error
}
