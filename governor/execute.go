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
	"context"
	"fmt"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var saltArguments = abiArguments("address", "bytes32", "uint32")

func abiArguments(typeNames ...string) abi.Arguments {
	ret := make(abi.Arguments, 0, len(typeNames))
	for _, name := range typeNames {
		t, err := abi.NewType(name, "", nil)
		if err != nil {
			panic(err)
		}
		ret = append(ret, abi.Argument{Type: t})
	}
	return ret
}

// TimelockSalt returns the salt a proposal revision is scheduled with, so
// that each revision maps to a distinct operation
func (g *Governor) TimelockSalt(descriptionHash common.Hash, revision uint32) (common.Hash, error) {
	packed, err := saltArguments.Pack(g.config.Address, [32]byte(descriptionHash), revision)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}

// Queue schedules a succeeded proposal on the timelock with the minimum delay
func (g *Governor) Queue(
	id common.Hash,
	point types.Point,
	txn *database.Txn,
) (common.Hash, error) {
	var ret common.Hash
	err := g.config.DB.Update(txn, func(txn *database.Txn) error {
		if g.config.Timelock == nil {
			return ErrNoTimelock
		}
		row, err := g.getProposal(id, txn)
		if err != nil {
			return err
		}
		state, err := g.state(row, point, txn)
		if err != nil {
			return err
		}
		if state != StateSucceeded {
			return fmt.Errorf("%w: %s is %s", ErrNotSucceeded, id.Hex(), state)
		}
		bundle, err := g.bundle(row, txn)
		if err != nil {
			return err
		}
		delay, err := g.config.Timelock.MinDelay(txn)
		if err != nil {
			return err
		}
		salt, err := g.TimelockSalt(common.BytesToHash(row.DescriptionHash), row.Revision)
		if err != nil {
			return err
		}
		opId, err := g.config.Timelock.Schedule(
			g.config.Address,
			bundle,
			common.Hash{},
			salt,
			delay,
			point,
			txn,
		)
		if err != nil {
			return err
		}
		eta := point.Timestamp + delay
		height := point.Height
		row.OperationID = opId.Bytes()
		row.Eta = &eta
		row.QueuedHeight = &height
		if err := g.config.DB.SetProposal(row, txn); err != nil {
			return err
		}
		evt := ProposalQueuedEvent{
			ProposalID:  id,
			Revision:    row.Revision,
			OperationID: opId,
			Eta:         eta,
			Height:      point.Height,
		}
		g.publishOnCommit(txn, ProposalQueuedEventType, evt, nil)
		g.config.Logger.Info(
			fmt.Sprintf("proposal %s queued, executable after %d", id.Hex(), eta),
			"component", "governor",
			"operation", opId.Hex(),
		)
		ret = opId
		return nil
	})
	g.recordFailure("queue", err)
	return ret, err
}

// Execute runs the bundle of a succeeded proposal, or of a queued proposal
// once its timelock delay has passed. A failing action reverts the whole
// bundle
func (g *Governor) Execute(
	ctx context.Context,
	id common.Hash,
	point types.Point,
	txn *database.Txn,
) error {
	err := g.config.DB.Update(txn, func(txn *database.Txn) error {
		row, err := g.getProposal(id, txn)
		if err != nil {
			return err
		}
		state, err := g.state(row, point, txn)
		if err != nil {
			return err
		}
		if g.config.Timelock != nil {
			switch state {
			case StateQueued:
			case StateExecuted:
				return fmt.Errorf("%w: %s", ErrAlreadyExecuted, id.Hex())
			case StateSucceeded:
				return fmt.Errorf("%w: %s", ErrNotQueued, id.Hex())
			default:
				return fmt.Errorf("%w: %s is %s", ErrNotSucceeded, id.Hex(), state)
			}
			err := g.config.Timelock.Execute(
				ctx,
				g.config.Address,
				common.BytesToHash(row.OperationID),
				point,
				txn,
			)
			if err != nil {
				return err
			}
		} else {
			switch state {
			case StateSucceeded:
			case StateExecuted:
				return fmt.Errorf("%w: %s", ErrAlreadyExecuted, id.Hex())
			default:
				return fmt.Errorf("%w: %s is %s", ErrNotSucceeded, id.Hex(), state)
			}
			bundle, err := g.bundle(row, txn)
			if err != nil {
				return err
			}
			if err := g.config.Executor.Execute(ctx, txn, g.config.Address, bundle, point); err != nil {
				return err
			}
		}
		height := point.Height
		row.ExecutedHeight = &height
		if err := g.config.DB.SetProposal(row, txn); err != nil {
			return err
		}
		evt := ProposalExecutedEvent{
			ProposalID: id,
			Revision:   row.Revision,
			Height:     point.Height,
		}
		g.publishOnCommit(txn, ProposalExecutedEventType, evt, func() {
			g.metrics.executions.Inc()
		})
		g.config.Logger.Info(
			fmt.Sprintf("proposal %s executed", id.Hex()),
			"component", "governor",
			"actions", row.ActionCount,
			"height", point.Height,
		)
		return nil
	})
	g.recordFailure("execute", err)
	return err
}

// Cancel stops a pending or active proposal. The proposer and the
// privileged canceler may always cancel. Anyone may cancel once the
// proposer's current weight drops below the proposal threshold
func (g *Governor) Cancel(
	caller common.Address,
	id common.Hash,
	point types.Point,
	txn *database.Txn,
) error {
	err := g.config.DB.Update(txn, func(txn *database.Txn) error {
		row, err := g.getProposal(id, txn)
		if err != nil {
			return err
		}
		state, err := g.state(row, point, txn)
		if err != nil {
			return err
		}
		switch state {
		case StatePending, StateActive:
		case StateExecuted:
			return fmt.Errorf("%w: %s", ErrAlreadyExecuted, id.Hex())
		default:
			return fmt.Errorf("%w: %s is %s", ErrNotCancelable, id.Hex(), state)
		}
		proposer := common.BytesToAddress(row.Proposer)
		if err := g.checkCanceler(caller, proposer, point, txn); err != nil {
			return err
		}
		height := point.Height
		row.CanceledHeight = &height
		if err := g.config.DB.SetProposal(row, txn); err != nil {
			return err
		}
		evt := ProposalCanceledEvent{
			ProposalID: id,
			Revision:   row.Revision,
			Canceler:   caller,
			Height:     point.Height,
		}
		g.publishOnCommit(txn, ProposalCanceledEventType, evt, func() {
			g.metrics.cancellations.Inc()
		})
		g.config.Logger.Info(
			fmt.Sprintf("proposal %s canceled", id.Hex()),
			"component", "governor",
			"canceler", caller.Hex(),
		)
		return nil
	})
	g.recordFailure("cancel", err)
	return err
}

func (g *Governor) checkCanceler(
	caller common.Address,
	proposer common.Address,
	point types.Point,
	txn *database.Txn,
) error {
	if caller == proposer {
		return nil
	}
	if g.config.Canceler != (common.Address{}) && caller == g.config.Canceler {
		return nil
	}
	settings, err := g.Settings(txn)
	if err != nil {
		return err
	}
	weight, err := g.config.Weights.WeightAt(proposer, point.Height, txn)
	if err != nil {
		return err
	}
	if weight < settings.ProposalThreshold {
		return nil
	}
	return fmt.Errorf("%w: %s may not cancel", ErrUnauthorized, caller.Hex())
}

