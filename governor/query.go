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

package governor

import (
	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/counting"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/ethereum/go-ethereum/common"
)

// Proposal is a proposal revision with its bundle and derived state
type Proposal struct {
	ID              common.Hash    `json:"id"`
	Revision        uint32         `json:"revision"`
	Proposer        common.Address `json:"proposer"`
	Description     string         `json:"description"`
	DescriptionHash common.Hash    `json:"descriptionHash"`
	Bundle          action.Bundle  `json:"bundle"`
	CreatedHeight   uint64         `json:"createdHeight"`
	SnapshotHeight  uint64         `json:"snapshotHeight"`
	VoteStart       uint64         `json:"voteStart"`
	VoteEnd         uint64         `json:"voteEnd"`
	Tally           counting.Tally `json:"tally"`
	Quorum          uint64         `json:"quorum"`
	State           State          `json:"state"`
	OperationID     *common.Hash   `json:"operationId,omitempty"`
	Eta             *uint64        `json:"eta,omitempty"`
	QueuedHeight    *uint64        `json:"queuedHeight,omitempty"`
	ExecutedHeight  *uint64        `json:"executedHeight,omitempty"`
	CanceledHeight  *uint64        `json:"canceledHeight,omitempty"`
}

// Ballot is a recorded vote
type Ballot struct {
	Voter      common.Address   `json:"voter"`
	Support    counting.Support `json:"support"`
	Weight     uint64           `json:"weight"`
	Reason     string           `json:"reason,omitempty"`
	CastHeight uint64           `json:"castHeight"`
}

func (g *Governor) view(
	row *models.Proposal,
	point types.Point,
	txn *database.Txn,
) (*Proposal, error) {
	bundle, err := g.bundle(row, txn)
	if err != nil {
		return nil, err
	}
	state, err := g.state(row, point, txn)
	if err != nil {
		return nil, err
	}
	ret := &Proposal{
		ID:              common.BytesToHash(row.ProposalID),
		Revision:        row.Revision,
		Proposer:        common.BytesToAddress(row.Proposer),
		Description:     row.Description,
		DescriptionHash: common.BytesToHash(row.DescriptionHash),
		Bundle:          bundle,
		CreatedHeight:   row.CreatedHeight,
		SnapshotHeight:  row.SnapshotHeight,
		VoteStart:       row.VoteStart,
		VoteEnd:         row.VoteEnd,
		Tally:           tallyOf(row),
		State:           state,
		Eta:             row.Eta,
		QueuedHeight:    row.QueuedHeight,
		ExecutedHeight:  row.ExecutedHeight,
		CanceledHeight:  row.CanceledHeight,
	}
	if len(row.OperationID) > 0 {
		opId := common.BytesToHash(row.OperationID)
		ret.OperationID = &opId
	}
	// The quorum is only known once the snapshot height has passed
	if row.SnapshotHeight <= point.Height {
		ret.Quorum, err = g.config.Quorum.QuorumAt(row.SnapshotHeight, txn)
		if err != nil {
			return nil, err
		}
	}
	return ret, nil
}

// Proposal returns the latest revision of a proposal as of point
func (g *Governor) Proposal(
	id common.Hash,
	point types.Point,
	txn *database.Txn,
) (*Proposal, error) {
	var ret *Proposal
	err := g.config.DB.View(txn, func(txn *database.Txn) error {
		row, err := g.getProposal(id, txn)
		if err != nil {
			return err
		}
		ret, err = g.view(row, point, txn)
		return err
	})
	return ret, err
}

// Proposals returns every proposal revision in creation order as of point
func (g *Governor) Proposals(point types.Point, txn *database.Txn) ([]Proposal, error) {
	var ret []Proposal
	err := g.config.DB.View(txn, func(txn *database.Txn) error {
		rows, err := g.config.DB.GetProposals(txn)
		if err != nil {
			return err
		}
		ret = make([]Proposal, 0, len(rows))
		for i := range rows {
			p, err := g.view(&rows[i], point, txn)
			if err != nil {
				return err
			}
			ret = append(ret, *p)
		}
		return nil
	})
	return ret, err
}

// Ballots returns the ballots on the latest revision of a proposal
func (g *Governor) Ballots(id common.Hash, txn *database.Txn) ([]Ballot, error) {
	var ret []Ballot
	err := g.config.DB.View(txn, func(txn *database.Txn) error {
		row, err := g.getProposal(id, txn)
		if err != nil {
			return err
		}
		rows, err := g.config.DB.GetBallots(row.ID, txn)
		if err != nil {
			return err
		}
		ret = make([]Ballot, 0, len(rows))
		for _, b := range rows {
			ret = append(ret, Ballot{
				Voter:      common.BytesToAddress(b.Voter),
				Support:    counting.Support(b.Support),
				Weight:     uint64(b.Weight),
				Reason:     b.Reason,
				CastHeight: b.CastHeight,
			})
		}
		return nil
	})
	return ret, err
}

// HasVoted reports whether voter has a ballot on the latest revision
func (g *Governor) HasVoted(id common.Hash, voter common.Address, txn *database.Txn) (bool, error) {
	var ret bool
	err := g.config.DB.View(txn, func(txn *database.Txn) error {
		row, err := g.getProposal(id, txn)
		if err != nil {
			return err
		}
		ballot, err := g.config.DB.GetBallot(row.ID, voter.Bytes(), txn)
		if err != nil {
			return err
		}
		ret = ballot != nil
		return nil
	})
	return ret, err
}

// ProposalSnapshot returns the height weights are read at
func (g *Governor) ProposalSnapshot(id common.Hash, txn *database.Txn) (uint64, error) {
	row, err := g.getProposal(id, txn)
	if err != nil {
		return 0, err
	}
	return row.SnapshotHeight, nil
}

// ProposalDeadline returns the last height votes are accepted at
func (g *Governor) ProposalDeadline(id common.Hash, txn *database.Txn) (uint64, error) {
	row, err := g.getProposal(id, txn)
	if err != nil {
		return 0, err
	}
	return row.VoteEnd, nil
}

// Quorum returns the quorum for a snapshot height
func (g *Governor) Quorum(height uint64, txn *database.Txn) (uint64, error) {
	return g.config.Quorum.QuorumAt(height, txn)
}
