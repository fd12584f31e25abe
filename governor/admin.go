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
	"errors"
	"fmt"
	"math/big"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/executor"
)

// AdminABI describes the calls the governor accepts from executed proposals
var AdminABI = action.MustParseABI(`[
	{"type":"function","name":"setVotingDelay","inputs":[{"name":"newVotingDelay","type":"uint256"}]},
	{"type":"function","name":"setVotingPeriod","inputs":[{"name":"newVotingPeriod","type":"uint256"}]},
	{"type":"function","name":"setProposalThreshold","inputs":[{"name":"newProposalThreshold","type":"uint256"}]},
	{"type":"function","name":"updateQuorumNumerator","inputs":[{"name":"newQuorumNumerator","type":"uint256"}]}
]`)

// Handler returns the executor handler for calls addressed to the governor.
// Only governance itself may make them: the timelock when there is one,
// otherwise the governor
func (g *Governor) Handler() executor.Handler {
	return executor.HandlerFunc(g.handle)
}

func (g *Governor) handle(_ context.Context, call executor.Call) error {
	if call.Caller != g.executorAddress() {
		return fmt.Errorf(
			"%w: %s is not governance",
			ErrUnauthorized,
			call.Caller.Hex(),
		)
	}
	method, args, err := action.DecodeCall(AdminABI, call.Action.Payload)
	if err != nil {
		return err
	}
	value, ok := args[0].(*big.Int)
	if !ok || !value.IsUint64() {
		return fmt.Errorf("invalid %s argument %v", method.Name, args[0])
	}
	v := value.Uint64()
	switch method.Name {
	case "setVotingDelay":
		return g.updateSettings(method.Name, call.Txn, func(s *models.GovernorSettings) uint64 {
			old := s.VotingDelay
			s.VotingDelay = v
			return old
		})
	case "setVotingPeriod":
		if v == 0 {
			return errors.New("voting period must be positive")
		}
		return g.updateSettings(method.Name, call.Txn, func(s *models.GovernorSettings) uint64 {
			old := s.VotingPeriod
			s.VotingPeriod = v
			return old
		})
	case "setProposalThreshold":
		return g.updateSettings(method.Name, call.Txn, func(s *models.GovernorSettings) uint64 {
			old := uint64(s.ProposalThreshold)
			s.ProposalThreshold = types.Uint64(v)
			return old
		})
	case "updateQuorumNumerator":
		updater, ok := g.config.Quorum.(NumeratorUpdater)
		if !ok {
			return ErrNotUpdatable
		}
		return updater.UpdateNumerator(v, call.Point.Height, call.Txn)
	}
	return fmt.Errorf("%w: %s", action.ErrUnknownMethod, method.Name)
}

func (g *Governor) updateSettings(
	name string,
	txn *database.Txn,
	apply func(*models.GovernorSettings) uint64,
) error {
	return g.config.DB.Update(txn, func(txn *database.Txn) error {
		settings, err := g.config.DB.GetGovernorSettings(txn)
		if err != nil {
			return err
		}
		if settings == nil {
			return errors.New("governor is not initialized")
		}
		old := apply(settings)
		if err := g.config.DB.SetGovernorSettings(settings, txn); err != nil {
			return err
		}
		evt := SettingsChangedEvent{Setting: name, OldValue: old}
		switch name {
		case "setVotingDelay":
			evt.NewValue = settings.VotingDelay
		case "setVotingPeriod":
			evt.NewValue = settings.VotingPeriod
		case "setProposalThreshold":
			evt.NewValue = uint64(settings.ProposalThreshold)
		}
		g.publishOnCommit(txn, SettingsChangedEventType, evt, nil)
		g.config.Logger.Info(
			fmt.Sprintf("governor %s from %d to %d", name, evt.OldValue, evt.NewValue),
			"component", "governor",
		)
		return nil
	})
}
