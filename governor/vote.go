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
	"errors"
	"fmt"

	"github.com/blinklabs-io/gavel/counting"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/ethereum/go-ethereum/common"
)

// CastVote records the ballot of voter on an active proposal, weighted by
// the voter's weight at the proposal snapshot. It returns the weight
func (g *Governor) CastVote(
	voter common.Address,
	id common.Hash,
	support counting.Support,
	reason string,
	point types.Point,
	txn *database.Txn,
) (uint64, error) {
	var ret uint64
	err := g.config.DB.Update(txn, func(txn *database.Txn) error {
		row, err := g.getProposal(id, txn)
		if err != nil {
			return err
		}
		state, err := g.state(row, point, txn)
		if err != nil {
			return err
		}
		if state != StateActive {
			return fmt.Errorf("%w: %s is %s", ErrNotActive, id.Hex(), state)
		}
		existing, err := g.config.DB.GetBallot(row.ID, voter.Bytes(), txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyVoted, voter.Hex())
		}
		weight, err := g.config.Weights.WeightAt(voter, row.SnapshotHeight, txn)
		if err != nil {
			return err
		}
		tally, err := g.config.Counting.CountVote(tallyOf(row), support, weight)
		if err != nil {
			return err
		}
		err = g.config.DB.AddBallot(
			&models.Ballot{
				ProposalID: row.ID,
				Voter:      voter.Bytes(),
				Support:    uint8(support),
				Weight:     types.Uint64(weight),
				Reason:     reason,
				CastHeight: point.Height,
			},
			txn,
		)
		if err != nil {
			if errors.Is(err, database.ErrBallotExists) {
				return fmt.Errorf("%w: %s", ErrAlreadyVoted, voter.Hex())
			}
			return err
		}
		row.ForWeight = types.Uint64(tally.For)
		row.AgainstWeight = types.Uint64(tally.Against)
		row.AbstainWeight = types.Uint64(tally.Abstain)
		if err := g.config.DB.SetProposal(row, txn); err != nil {
			return err
		}
		evt := VoteCastEvent{
			ProposalID: id,
			Revision:   row.Revision,
			Voter:      voter,
			Support:    support,
			Weight:     weight,
			Reason:     reason,
			Height:     point.Height,
		}
		g.publishOnCommit(txn, VoteCastEventType, evt, func() {
			g.metrics.votes.WithLabelValues(support.String()).Inc()
			g.metrics.voteWeight.WithLabelValues(support.String()).Add(float64(weight))
		})
		g.config.Logger.Debug(
			"vote cast",
			"component", "governor",
			"proposal", id.Hex(),
			"voter", voter.Hex(),
			"support", support.String(),
			"weight", weight,
		)
		ret = weight
		return nil
	})
	g.recordFailure("vote", err)
	return ret, err
}
