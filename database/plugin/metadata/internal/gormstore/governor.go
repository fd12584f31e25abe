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

	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const governorSettingsRowId = 1

// GetGovernorSettings returns the governor settings, or nil if they have not
// been initialized
func (d *Store) GetGovernorSettings(
	txn types.Txn,
) (*models.GovernorSettings, error) {
	var settings models.GovernorSettings
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.First(&settings, governorSettingsRowId); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &settings, nil
}

// SetGovernorSettings creates or updates the governor settings
func (d *Store) SetGovernorSettings(
	settings *models.GovernorSettings,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	settings.ID = governorSettingsRowId
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"voting_delay",
			"voting_period",
			"proposal_threshold",
		}),
	}
	if result := db.Clauses(onConflict).Create(settings); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetProposal returns the latest revision of a proposal, or nil if the
// proposal ID is unknown
func (d *Store) GetProposal(
	proposalId []byte,
	txn types.Txn,
) (*models.Proposal, error) {
	var proposal models.Proposal
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("proposal_id = ?", proposalId).
		Order("revision DESC").
		First(&proposal); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &proposal, nil
}

// GetProposals returns every proposal revision in creation order
func (d *Store) GetProposals(
	txn types.Txn,
) ([]models.Proposal, error) {
	var proposals []models.Proposal
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Order("id ASC").Find(&proposals); result.Error != nil {
		return nil, result.Error
	}
	return proposals, nil
}

// SetProposal inserts a new proposal revision or saves changes to an
// existing one
func (d *Store) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if proposal.ID == 0 {
		if result := db.Create(proposal); result.Error != nil {
			return result.Error
		}
		return nil
	}
	if result := db.Save(proposal); result.Error != nil {
		return result.Error
	}
	return nil
}

// GetBallot returns the ballot of a voter on a proposal revision, or nil
func (d *Store) GetBallot(
	proposalId uint,
	voter []byte,
	txn types.Txn,
) (*models.Ballot, error) {
	var ballot models.Ballot
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where(
		"proposal_id = ? AND voter = ?",
		proposalId,
		voter,
	).First(&ballot); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ballot, nil
}

// GetBallots returns all ballots cast on a proposal revision in cast order
func (d *Store) GetBallots(
	proposalId uint,
	txn types.Txn,
) ([]models.Ballot, error) {
	var ballots []models.Ballot
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	if result := db.Where("proposal_id = ?", proposalId).
		Order("id ASC").
		Find(&ballots); result.Error != nil {
		return nil, result.Error
	}
	return ballots, nil
}

// AddBallot records a ballot. The unique index on (proposal, voter) rejects
// a second ballot from the same voter
func (d *Store) AddBallot(
	ballot *models.Ballot,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(ballot); result.Error != nil {
		return result.Error
	}
	return nil
}
