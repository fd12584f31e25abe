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

// Package governor implements the proposal registry and its state machine:
// proposals are created against a weight snapshot, voted on during a window
// of heights, and executed directly or through a timelock
package governor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/counting"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/executor"
	"github.com/blinklabs-io/gavel/quorum"
	"github.com/blinklabs-io/gavel/snapshot"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

// SnapshotPolicy selects the height weights are read at
type SnapshotPolicy string

const (
	// SnapshotAtCreation uses the last height before the proposal was created
	SnapshotAtCreation SnapshotPolicy = "creation"
	// SnapshotAtVotingStart uses the last height before voting opens
	SnapshotAtVotingStart SnapshotPolicy = "voting_start"
)

// NumeratorUpdater is implemented by quorum policies that governance may adjust
type NumeratorUpdater interface {
	UpdateNumerator(numerator uint64, height uint64, txn *database.Txn) error
}

type Config struct {
	Logger       *slog.Logger
	DB           *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	// Address is the governor's own account
	Address  common.Address
	Weights  snapshot.WeightSource
	Quorum   quorum.Policy
	Counting counting.Policy
	// Executor runs bundles of proposals without a timelock
	Executor executor.Executor
	// Timelock is optional. When set, proposals are queued and executed
	// through it
	Timelock *timelock.Timelock
	// Initial settings; later changed through governance
	VotingDelay       uint64
	VotingPeriod      uint64
	ProposalThreshold uint64
	SnapshotPolicy    SnapshotPolicy
	// GracePeriod is the number of heights after voting ends during which a
	// succeeded proposal may be queued or executed. Zero means forever
	GracePeriod uint64
	// Canceler may cancel any pending or active proposal
	Canceler common.Address
}

type Governor struct {
	config  Config
	metrics *governorMetrics
}

// Settings are the parameters governance may change
type Settings struct {
	VotingDelay       uint64 `json:"votingDelay"`
	VotingPeriod      uint64 `json:"votingPeriod"`
	ProposalThreshold uint64 `json:"proposalThreshold"`
}

func New(cfg Config) (*Governor, error) {
	if cfg.DB == nil {
		return nil, errors.New("governor: database is required")
	}
	if cfg.Weights == nil {
		return nil, errors.New("governor: weight source is required")
	}
	if cfg.Quorum == nil {
		return nil, errors.New("governor: quorum policy is required")
	}
	if cfg.Timelock == nil && cfg.Executor == nil {
		return nil, errors.New("governor: executor or timelock is required")
	}
	if cfg.VotingPeriod == 0 {
		return nil, errors.New("governor: voting period must be positive")
	}
	if cfg.Counting == nil {
		cfg.Counting = counting.Simple{}
	}
	switch cfg.SnapshotPolicy {
	case "":
		cfg.SnapshotPolicy = SnapshotAtCreation
	case SnapshotAtCreation, SnapshotAtVotingStart:
	default:
		return nil, fmt.Errorf("governor: unknown snapshot policy %q", cfg.SnapshotPolicy)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	g := &Governor{
		config: cfg,
	}
	if cfg.PromRegistry != nil {
		g.initMetrics(cfg.PromRegistry)
	}
	return g, nil
}

// Address returns the governor's own account
func (g *Governor) Address() common.Address {
	return g.config.Address
}

// Timelock returns the timelock, or nil
func (g *Governor) Timelock() *timelock.Timelock {
	return g.config.Timelock
}

// Counting returns the counting policy
func (g *Governor) Counting() counting.Policy {
	return g.config.Counting
}

// executorAddress is the account governance-only calls must come from
func (g *Governor) executorAddress() common.Address {
	if g.config.Timelock != nil {
		return g.config.Timelock.Address()
	}
	return g.config.Address
}

// Init writes the initial settings unless they already exist
func (g *Governor) Init(txn *database.Txn) error {
	return g.config.DB.Update(txn, func(txn *database.Txn) error {
		settings, err := g.config.DB.GetGovernorSettings(txn)
		if err != nil {
			return err
		}
		if settings != nil {
			return nil
		}
		return g.config.DB.SetGovernorSettings(
			&models.GovernorSettings{
				VotingDelay:       g.config.VotingDelay,
				VotingPeriod:      g.config.VotingPeriod,
				ProposalThreshold: types.Uint64(g.config.ProposalThreshold),
			},
			txn,
		)
	})
}

// Settings returns the current settings
func (g *Governor) Settings(txn *database.Txn) (Settings, error) {
	row, err := g.config.DB.GetGovernorSettings(txn)
	if err != nil {
		return Settings{}, err
	}
	if row == nil {
		return Settings{
			VotingDelay:       g.config.VotingDelay,
			VotingPeriod:      g.config.VotingPeriod,
			ProposalThreshold: g.config.ProposalThreshold,
		}, nil
	}
	return Settings{
		VotingDelay:       row.VotingDelay,
		VotingPeriod:      row.VotingPeriod,
		ProposalThreshold: uint64(row.ProposalThreshold),
	}, nil
}

// HashProposal returns the id a proposal would be created under
func (g *Governor) HashProposal(bundle action.Bundle, description string) (common.Hash, error) {
	return action.ProposalID(bundle, action.DescriptionHash(description))
}

// getProposal loads the latest revision of a proposal
func (g *Governor) getProposal(id common.Hash, txn *database.Txn) (*models.Proposal, error) {
	row, err := g.config.DB.GetProposal(id.Bytes(), txn)
	if err != nil {
		if errors.Is(err, models.ErrProposalNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProposal, id.Hex())
		}
		return nil, err
	}
	return row, nil
}

func (g *Governor) bundle(row *models.Proposal, txn *database.Txn) (action.Bundle, error) {
	data, err := g.config.DB.GetProposalBundle(row.ProposalID, row.Revision, txn)
	if err != nil {
		return nil, err
	}
	return action.DecodeBundle(data)
}

func tallyOf(row *models.Proposal) counting.Tally {
	return counting.Tally{
		For:     uint64(row.ForWeight),
		Against: uint64(row.AgainstWeight),
		Abstain: uint64(row.AbstainWeight),
	}
}

// state derives the state of a proposal revision at point
func (g *Governor) state(
	row *models.Proposal,
	point types.Point,
	txn *database.Txn,
) (State, error) {
	if row.ExecutedHeight != nil {
		return StateExecuted, nil
	}
	if row.CanceledHeight != nil {
		return StateCanceled, nil
	}
	if point.Height < row.VoteStart {
		return StatePending, nil
	}
	if point.Height <= row.VoteEnd {
		return StateActive, nil
	}
	succeeded, err := g.succeeded(row, txn)
	if err != nil {
		return 0, err
	}
	if !succeeded {
		return StateDefeated, nil
	}
	if row.QueuedHeight != nil && g.config.Timelock != nil {
		opState, err := g.config.Timelock.State(
			common.BytesToHash(row.OperationID),
			point.Timestamp,
			txn,
		)
		if err != nil {
			return 0, err
		}
		switch opState {
		case timelock.OperationDone:
			return StateExecuted, nil
		case timelock.OperationUnset:
			// Cancelled directly on the timelock
			return StateCanceled, nil
		case timelock.OperationExpired:
			return StateExpired, nil
		default:
			return StateQueued, nil
		}
	}
	if g.config.GracePeriod > 0 && point.Height > row.VoteEnd+g.config.GracePeriod {
		return StateExpired, nil
	}
	return StateSucceeded, nil
}

// succeeded reports whether a closed vote reached quorum and passed
func (g *Governor) succeeded(row *models.Proposal, txn *database.Txn) (bool, error) {
	tally := tallyOf(row)
	if !g.config.Counting.VoteSucceeded(tally) {
		return false, nil
	}
	required, err := g.config.Quorum.QuorumAt(row.SnapshotHeight, txn)
	if err != nil {
		return false, err
	}
	return g.config.Counting.QuorumReached(tally, required), nil
}

// State returns the state of the latest revision of a proposal at point
func (g *Governor) State(
	id common.Hash,
	point types.Point,
	txn *database.Txn,
) (State, error) {
	var ret State
	err := g.config.DB.View(txn, func(txn *database.Txn) error {
		row, err := g.getProposal(id, txn)
		if err != nil {
			return err
		}
		ret, err = g.state(row, point, txn)
		return err
	})
	return ret, err
}

func (g *Governor) publishOnCommit(
	txn *database.Txn,
	eventType event.EventType,
	data any,
	after func(),
) {
	txn.OnCommit(func() {
		if g.config.EventBus != nil {
			g.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
		}
		if after != nil && g.metrics != nil {
			after()
		}
	})
}

func snapshotHeight(policy SnapshotPolicy, created uint64, voteStart uint64) uint64 {
	ref := created
	if policy == SnapshotAtVotingStart {
		ref = voteStart
	}
	if ref == 0 {
		return 0
	}
	return ref - 1
}

func isUnknownProposal(err error) bool {
	return errors.Is(err, ErrUnknownProposal)
}
