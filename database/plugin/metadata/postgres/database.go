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

package postgres

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/blinklabs-io/gavel/database/plugin/metadata/internal/gormstore"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DefaultMaxOpenConns    = 20
	DefaultConnMaxLifetime = time.Hour
)

var ErrMissingDSN = errors.New("postgres: DSN is required")

// MetadataStorePostgres keeps the metadata tables in a PostgreSQL database
type MetadataStorePostgres struct {
	*gormstore.Store
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	dsn             string
	maxOpenConns    int
	connMaxLifetime time.Duration
}

// New connects to the database and migrates the schema
func New(
	dsn string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*MetadataStorePostgres, error) {
	return NewWithOptions(
		WithDSN(dsn),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

func NewWithOptions(opts ...PostgresOptionFunc) (*MetadataStorePostgres, error) {
	d := &MetadataStorePostgres{
		maxOpenConns:    DefaultMaxOpenConns,
		connMaxLifetime: DefaultConnMaxLifetime,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.dsn == "" {
		return nil, ErrMissingDSN
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadataDb, err := gorm.Open(
		postgres.Open(d.dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	sqlDB, err := metadataDb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(d.maxOpenConns / 2)
	sqlDB.SetMaxOpenConns(d.maxOpenConns)
	sqlDB.SetConnMaxLifetime(d.connMaxLifetime)
	d.logger.Info(
		"connected to postgres metadata store",
		"component", "database",
		"dsn", RedactDSN(d.dsn),
	)
	store, err := gormstore.New(metadataDb, d.logger)
	d.Store = store
	if err != nil {
		// MetadataStorePostgres is available for recovery, so return it with error
		return d, err
	}
	return d, nil
}

// Close closes the connection pool
func (d *MetadataStorePostgres) Close() error {
	if d.Store == nil {
		return nil
	}
	db, err := d.DB().DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// RedactDSN hides the password of a URL form DSN. Other forms are replaced
// entirely
func RedactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "[redacted]"
	}
	return u.Redacted()
}
