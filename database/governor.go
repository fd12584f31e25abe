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

	"github.com/blinklabs-io/gavel/database/models"
)

// ErrBallotExists is returned when a voter already has a ballot on a proposal
var ErrBallotExists = errors.New("ballot already exists")

// GetGovernorSettings returns the governor settings, or nil before they are
// initialized
func (d *Database) GetGovernorSettings(txn *Txn) (*models.GovernorSettings, error) {
	var ret *models.GovernorSettings
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetGovernorSettings(txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get governor settings: %w", err)
		}
		return nil
	})
	return ret, err
}

// SetGovernorSettings writes the governor settings
func (d *Database) SetGovernorSettings(
	settings *models.GovernorSettings,
	txn *Txn,
) error {
	return d.Update(txn, func(txn *Txn) error {
		if err := d.metadata.SetGovernorSettings(settings, txn.Metadata()); err != nil {
			return fmt.Errorf("failed to set governor settings: %w", err)
		}
		return nil
	})
}

// GetProposal returns the latest revision of a proposal. It returns
// models.ErrProposalNotFound for an unknown proposal ID
func (d *Database) GetProposal(proposalId []byte, txn *Txn) (*models.Proposal, error) {
	var ret *models.Proposal
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposal(proposalId, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get proposal: %w", err)
		}
		if ret == nil {
			return models.ErrProposalNotFound
		}
		return nil
	})
	return ret, err
}

// GetProposals returns every proposal revision in creation order
func (d *Database) GetProposals(txn *Txn) ([]models.Proposal, error) {
	var ret []models.Proposal
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetProposals(txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get proposals: %w", err)
		}
		return nil
	})
	return ret, err
}

// SetProposal inserts or updates a proposal revision
func (d *Database) SetProposal(proposal *models.Proposal, txn *Txn) error {
	return d.Update(txn, func(txn *Txn) error {
		if err := d.metadata.SetProposal(proposal, txn.Metadata()); err != nil {
			return fmt.Errorf("failed to set proposal: %w", err)
		}
		return nil
	})
}

// GetBallot returns the ballot of a voter on a proposal revision, or nil
func (d *Database) GetBallot(
	proposalRowId uint,
	voter []byte,
	txn *Txn,
) (*models.Ballot, error) {
	var ret *models.Ballot
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetBallot(proposalRowId, voter, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get ballot: %w", err)
		}
		return nil
	})
	return ret, err
}

// GetBallots returns the ballots cast on a proposal revision in cast order
func (d *Database) GetBallots(proposalRowId uint, txn *Txn) ([]models.Ballot, error) {
	var ret []models.Ballot
	err := d.View(txn, func(txn *Txn) error {
		var err error
		ret, err = d.metadata.GetBallots(proposalRowId, txn.Metadata())
		if err != nil {
			return fmt.Errorf("failed to get ballots: %w", err)
		}
		return nil
	})
	return ret, err
}

// AddBallot records a ballot, returning ErrBallotExists if the voter has
// already voted on the proposal revision
func (d *Database) AddBallot(ballot *models.Ballot, txn *Txn) error {
	return d.Update(txn, func(txn *Txn) error {
		existing, err := d.metadata.GetBallot(
			ballot.ProposalID,
			ballot.Voter,
			txn.Metadata(),
		)
		if err != nil {
			return fmt.Errorf("failed to get ballot: %w", err)
		}
		if existing != nil {
			return ErrBallotExists
		}
		if err := d.metadata.AddBallot(ballot, txn.Metadata()); err != nil {
			return fmt.Errorf("failed to add ballot: %w", err)
		}
		return nil
	})
}
