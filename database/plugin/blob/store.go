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

package blob

import (
	"log/slog"

	"github.com/blinklabs-io/gavel/database/plugin/blob/badger"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

type BlobStore interface {
	Close() error
	NewTransaction(bool) types.Txn
	Get(types.Txn, []byte) ([]byte, error)
	Set(types.Txn, []byte, []byte) error
	Delete(types.Txn, []byte) error

	GetCommitMarker() (types.CommitMarker, error)
	SetCommitMarker(types.CommitMarker, types.Txn) error
}

// New returns a started blob store
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (BlobStore, error) {
	store, err := badger.New(
		badger.WithDataDir(dataDir),
		badger.WithLogger(logger),
		badger.WithPromRegistry(promRegistry),
	)
	if store == nil {
		return nil, err
	}
	return store, err
}
