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

package ledger

import (
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
)

// Tip returns the point of the last applied block
func (ls *LedgerState) Tip() (types.Point, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	tip, _, err := ls.config.DB.GetTip(nil)
	return tip, err
}

func (ls *LedgerState) tip() (types.Point, error) {
	tip, _, err := ls.config.DB.GetTip(nil)
	return tip, err
}

// Resolve returns the id behind a label or hex id
func (ls *LedgerState) Resolve(ref string) (common.Hash, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	return ls.reference(ref)
}

// Labels returns a copy of the assigned labels
func (ls *LedgerState) Labels() map[string]common.Hash {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	ret := make(map[string]common.Hash, len(ls.labels))
	for k, v := range ls.labels {
		ret[k] = v
	}
	return ret
}

// ProposalState returns the state of a proposal at the tip
func (ls *LedgerState) ProposalState(id common.Hash) (governor.State, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	tip, err := ls.tip()
	if err != nil {
		return 0, err
	}
	return ls.config.Governor.State(id, tip, nil)
}

// Proposal returns the latest revision of a proposal at the tip
func (ls *LedgerState) Proposal(id common.Hash) (*governor.Proposal, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	tip, err := ls.tip()
	if err != nil {
		return nil, err
	}
	return ls.config.Governor.Proposal(id, tip, nil)
}

// Proposals returns every proposal revision at the tip
func (ls *LedgerState) Proposals() ([]governor.Proposal, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	tip, err := ls.tip()
	if err != nil {
		return nil, err
	}
	return ls.config.Governor.Proposals(tip, nil)
}

// Ballots returns the ballots on the latest revision of a proposal
func (ls *LedgerState) Ballots(id common.Hash) ([]governor.Ballot, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	return ls.config.Governor.Ballots(id, nil)
}

// Settings returns the current governor settings
func (ls *LedgerState) Settings() (governor.Settings, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	return ls.config.Governor.Settings(nil)
}

// WeightAt returns the weight of an account at height
func (ls *LedgerState) WeightAt(account common.Address, height uint64) (uint64, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	return ls.config.Weights.WeightAt(account, height, nil)
}

// TotalWeightAt returns the total weight at height
func (ls *LedgerState) TotalWeightAt(height uint64) (uint64, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	return ls.config.Weights.TotalWeightAt(height, nil)
}

// Operation returns a timelock operation and its state at the tip
func (ls *LedgerState) Operation(id common.Hash) (*timelock.Operation, timelock.OperationState, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	tl := ls.timelock()
	if tl == nil {
		return nil, timelock.OperationUnset, governor.ErrNoTimelock
	}
	op, err := tl.Operation(id, nil)
	if err != nil {
		return nil, timelock.OperationUnset, err
	}
	tip, err := ls.tip()
	if err != nil {
		return nil, timelock.OperationUnset, err
	}
	state, err := tl.State(id, tip.Timestamp, nil)
	if err != nil {
		return nil, timelock.OperationUnset, err
	}
	return op, state, nil
}

// Roles returns the timelock role grants
func (ls *LedgerState) Roles() ([]timelock.RoleGrant, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	tl := ls.timelock()
	if tl == nil {
		return nil, governor.ErrNoTimelock
	}
	return tl.Roles(nil)
}
