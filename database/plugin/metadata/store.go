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

package metadata

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/plugin/metadata/mysql"
	"github.com/blinklabs-io/gavel/database/plugin/metadata/postgres"
	"github.com/blinklabs-io/gavel/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

var ErrUnsupportedDSN = errors.New("unsupported metadata DSN")

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitMarker() (types.CommitMarker, error)
	SetCommitMarker(types.CommitMarker, types.Txn) error
	Transaction() types.Txn

	// Ledger tip
	GetTip(types.Txn) (*models.Tip, error)
	SetTip(*models.Tip, types.Txn) error

	// Weight history
	GetWeightCheckpoint(
		[]byte, // account
		uint64, // height
		types.Txn,
	) (*models.WeightCheckpoint, error)
	GetLatestWeightCheckpoint(
		[]byte, // account
		types.Txn,
	) (*models.WeightCheckpoint, error)
	GetWeightCheckpoints(
		[]byte, // account
		types.Txn,
	) ([]models.WeightCheckpoint, error)
	SetWeightCheckpoint(*models.WeightCheckpoint, types.Txn) error
	GetSupplyCheckpoint(
		uint64, // height
		types.Txn,
	) (*models.SupplyCheckpoint, error)
	GetLatestSupplyCheckpoint(types.Txn) (*models.SupplyCheckpoint, error)
	SetSupplyCheckpoint(*models.SupplyCheckpoint, types.Txn) error

	// Quorum numerator history
	GetQuorumCheckpoint(
		uint64, // height
		types.Txn,
	) (*models.QuorumCheckpoint, error)
	GetLatestQuorumCheckpoint(types.Txn) (*models.QuorumCheckpoint, error)
	SetQuorumCheckpoint(*models.QuorumCheckpoint, types.Txn) error

	// Governor
	GetGovernorSettings(types.Txn) (*models.GovernorSettings, error)
	SetGovernorSettings(*models.GovernorSettings, types.Txn) error
	GetProposal(
		[]byte, // proposalId
		types.Txn,
	) (*models.Proposal, error)
	GetProposals(types.Txn) ([]models.Proposal, error)
	SetProposal(*models.Proposal, types.Txn) error
	GetBallot(
		uint, // proposal row ID
		[]byte, // voter
		types.Txn,
	) (*models.Ballot, error)
	GetBallots(
		uint, // proposal row ID
		types.Txn,
	) ([]models.Ballot, error)
	AddBallot(*models.Ballot, types.Txn) error

	// Timelock
	GetTimelockSettings(types.Txn) (*models.TimelockSettings, error)
	SetTimelockSettings(*models.TimelockSettings, types.Txn) error
	GetTimelockOperation(
		[]byte, // operationId
		types.Txn,
	) (*models.TimelockOperation, error)
	SetTimelockOperation(*models.TimelockOperation, types.Txn) error
	DeleteTimelockOperation(
		[]byte, // operationId
		types.Txn,
	) error
	HasTimelockRole(
		[]byte, // role
		[]byte, // account
		types.Txn,
	) (bool, error)
	GetTimelockRoles(types.Txn) ([]models.TimelockRole, error)
	AddTimelockRole(*models.TimelockRole, types.Txn) (bool, error)
	DeleteTimelockRole(
		[]byte, // role
		[]byte, // account
		types.Txn,
	) (bool, error)
}

// New returns a started metadata store. A postgres:// or mysql:// URL in dsn
// selects that plugin, otherwise SQLite is used under dataDir
func New(
	dataDir string,
	dsn string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	switch {
	case dsn == "":
		store, err := sqlite.New(dataDir, logger, promRegistry)
		if store == nil {
			return nil, err
		}
		// The store is returned alongside any migration error so it can be closed
		return store, err
	case strings.HasPrefix(dsn, "postgres://"),
		strings.HasPrefix(dsn, "postgresql://"):
		store, err := postgres.New(dsn, logger, promRegistry)
		if store == nil {
			return nil, err
		}
		return store, err
	case strings.HasPrefix(dsn, "mysql://"):
		store, err := mysql.New(dsn, logger, promRegistry)
		if store == nil {
			return nil, err
		}
		return store, err
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedDSN, postgres.RedactDSN(dsn))
}
