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
	"fmt"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/ethereum/go-ethereum/common"
)

// Propose registers a bundle for voting. The proposer needs at least the
// proposal threshold of weight at the current height. Identical content may
// be proposed again once the earlier revision reaches a terminal state
func (g *Governor) Propose(
	proposer common.Address,
	bundle action.Bundle,
	description string,
	point types.Point,
	txn *database.Txn,
) (common.Hash, error) {
	var ret common.Hash
	err := g.config.DB.Update(txn, func(txn *database.Txn) error {
		if err := bundle.Validate(); err != nil {
			return err
		}
		settings, err := g.Settings(txn)
		if err != nil {
			return err
		}
		if settings.ProposalThreshold > 0 {
			weight, err := g.config.Weights.WeightAt(proposer, point.Height, txn)
			if err != nil {
				return err
			}
			if weight < settings.ProposalThreshold {
				return fmt.Errorf(
					"%w: %d < %d",
					ErrBelowThreshold,
					weight,
					settings.ProposalThreshold,
				)
			}
		}
		descHash := action.DescriptionHash(description)
		id, err := action.ProposalID(bundle, descHash)
		if err != nil {
			return err
		}
		var revision uint32
		existing, err := g.getProposal(id, txn)
		switch {
		case err == nil:
			state, err := g.state(existing, point, txn)
			if err != nil {
				return err
			}
			if !state.Terminal() {
				return fmt.Errorf("%w: %s is %s", ErrDuplicateProposal, id.Hex(), state)
			}
			revision = existing.Revision + 1
		case !isUnknownProposal(err):
			return err
		}
		voteStart := point.Height + settings.VotingDelay
		voteEnd := voteStart + settings.VotingPeriod
		row := &models.Proposal{
			ProposalID:      id.Bytes(),
			Revision:        revision,
			Proposer:        proposer.Bytes(),
			DescriptionHash: descHash.Bytes(),
			Description:     description,
			ActionCount:     uint32(len(bundle)), //nolint:gosec
			CreatedHeight:   point.Height,
			SnapshotHeight: snapshotHeight(
				g.config.SnapshotPolicy,
				point.Height,
				voteStart,
			),
			VoteStart: voteStart,
			VoteEnd:   voteEnd,
		}
		if err := g.config.DB.SetProposal(row, txn); err != nil {
			return err
		}
		data, err := bundle.MarshalCBOR()
		if err != nil {
			return err
		}
		if err := g.config.DB.SetProposalBundle(id.Bytes(), revision, data, txn); err != nil {
			return err
		}
		evt := ProposalCreatedEvent{
			ProposalID:     id,
			Revision:       revision,
			Proposer:       proposer,
			Bundle:         bundle,
			Description:    description,
			SnapshotHeight: row.SnapshotHeight,
			VoteStart:      voteStart,
			VoteEnd:        voteEnd,
		}
		g.publishOnCommit(txn, ProposalCreatedEventType, evt, func() {
			g.metrics.proposals.Inc()
		})
		g.config.Logger.Info(
			fmt.Sprintf(
				"proposal %s created, voting from %d to %d",
				id.Hex(),
				voteStart,
				voteEnd,
			),
			"component", "governor",
			"proposer", proposer.Hex(),
			"revision", revision,
		)
		ret = id
		return nil
	})
	g.recordFailure("propose", err)
	return ret, err
}
