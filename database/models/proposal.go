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

package models

import (
	"errors"

	"github.com/blinklabs-io/gavel/database/types"
)

var ErrProposalNotFound = errors.New("proposal not found")

// Proposal is one revision of a governance proposal. Identical content may
// be proposed again once an earlier revision reaches a terminal state, so
// the proposal ID alone is not unique.
type Proposal struct {
	ID              uint         `gorm:"primarykey"`
	ProposalID      []byte       `gorm:"uniqueIndex:idx_proposal_revision,priority:1;size:32;not null"`
	Revision        uint32       `gorm:"uniqueIndex:idx_proposal_revision,priority:2;not null"`
	Proposer        []byte       `gorm:"index;size:20;not null"`
	DescriptionHash []byte       `gorm:"size:32;not null"`
	Description     string       `gorm:"not null"`
	ActionCount     uint32       `gorm:"not null"`
	CreatedHeight   uint64       `gorm:"index;not null"`
	SnapshotHeight  uint64       `gorm:"not null"`
	VoteStart       uint64       `gorm:"index;not null"`
	VoteEnd         uint64       `gorm:"index;not null"`
	ForWeight       types.Uint64 `gorm:"not null"`
	AgainstWeight   types.Uint64 `gorm:"not null"`
	AbstainWeight   types.Uint64 `gorm:"not null"`
	OperationID     []byte       `gorm:"size:32"`
	Eta             *uint64
	QueuedHeight    *uint64
	ExecutedHeight  *uint64
	CanceledHeight  *uint64
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// Ballot is the single vote of one account on one proposal revision
type Ballot struct {
	ID         uint         `gorm:"primarykey"`
	ProposalID uint         `gorm:"uniqueIndex:idx_ballot_voter,priority:1;not null"`
	Voter      []byte       `gorm:"uniqueIndex:idx_ballot_voter,priority:2;size:20;not null"`
	Support    uint8        `gorm:"not null"`
	Weight     types.Uint64 `gorm:"not null"`
	Reason     string
	CastHeight uint64 `gorm:"index;not null"`
}

// TableName returns the table name
func (Ballot) TableName() string {
	return "ballot"
}

// GovernorSettings holds the parameters that governance itself may change
type GovernorSettings struct {
	ID                uint         `gorm:"primarykey"`
	VotingDelay       uint64       `gorm:"not null"`
	VotingPeriod      uint64       `gorm:"not null"`
	ProposalThreshold types.Uint64 `gorm:"not null"`
}

// TableName returns the table name
func (GovernorSettings) TableName() string {
	return "governor_settings"
}
