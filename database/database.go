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
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/blinklabs-io/gavel/database/plugin/blob"
	"github.com/blinklabs-io/gavel/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds the options for opening a database. A non-empty MetadataDSN
// moves the metadata tables to an external database
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DataDir      string
	MetadataDSN  string
}

// Database pairs the metadata store (rows and indexes) with the blob store
// (action bundles). Both are written through a single Txn
type Database struct {
	logger         *slog.Logger
	blob           blob.BlobStore
	metadata       metadata.MetadataStore
	dataDir        string
	commitSequence atomic.Uint64
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Update runs fn in a read-write transaction. When txn is non-nil, fn runs
// in that transaction and the caller remains responsible for committing it
func (d *Database) Update(txn *Txn, fn func(*Txn) error) error {
	if txn != nil {
		if !txn.readWrite {
			return ErrReadOnlyTxn
		}
		return fn(txn)
	}
	return d.Transaction(true).Do(fn)
}

// View runs fn in a read-only transaction, or in txn when it is non-nil
func (d *Database) View(txn *Txn, fn func(*Txn) error) error {
	if txn != nil {
		return fn(txn)
	}
	txn = d.Transaction(false)
	defer txn.Release()
	return fn(txn)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	// Close metadata
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	// Close blob
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Both stores must be at the same commit
	if err := d.checkCommitMarker(); err != nil {
		return err
	}
	return nil
}

// New creates a new database instance with optional persistence using the
// configured data directory. An empty data directory keeps everything in memory
func New(cfg *Config) (*Database, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	metadataDb, err := metadata.New(
		cfg.DataDir,
		cfg.MetadataDSN,
		cfg.Logger,
		cfg.PromRegistry,
	)
	if err != nil {
		if metadataDb != nil {
			_ = metadataDb.Close()
		}
		return nil, err
	}
	blobDb, err := blob.New(cfg.DataDir, cfg.Logger, cfg.PromRegistry)
	if err != nil {
		_ = metadataDb.Close()
		if blobDb != nil {
			_ = blobDb.Close()
		}
		return nil, err
	}
	db := &Database{
		logger:   cfg.Logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  cfg.DataDir,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
