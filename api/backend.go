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

package api

import (
	"context"

	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
)

// Backend is what the API server needs from the ledger. It is satisfied by
// *ledger.LedgerState
type Backend interface {
	Tip() (types.Point, error)
	// Resolve turns a label or hex id into an id
	Resolve(ref string) (common.Hash, error)
	Proposal(id common.Hash) (*governor.Proposal, error)
	Proposals() ([]governor.Proposal, error)
	Ballots(id common.Hash) ([]governor.Ballot, error)
	WeightAt(account common.Address, height uint64) (uint64, error)
	Operation(id common.Hash) (*timelock.Operation, timelock.OperationState, error)
	ApplyBlock(ctx context.Context, block ledger.Block) ([]ledger.Receipt, error)
}

var _ Backend = (*ledger.LedgerState)(nil)
