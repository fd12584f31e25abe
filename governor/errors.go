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

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/counting"
	"github.com/blinklabs-io/gavel/executor"
	"github.com/blinklabs-io/gavel/snapshot"
	"github.com/blinklabs-io/gavel/timelock"
)

var (
	ErrDuplicateProposal = errors.New("proposal already exists")
	ErrUnknownProposal   = errors.New("unknown proposal")
	ErrBelowThreshold    = errors.New("proposer weight is below the proposal threshold")
	ErrNotActive         = errors.New("proposal is not active")
	ErrAlreadyVoted      = errors.New("voter already voted")
	ErrNotSucceeded      = errors.New("proposal has not succeeded")
	ErrNotQueued         = errors.New("proposal must be queued before execution")
	ErrNoTimelock        = errors.New("governor has no timelock")
	ErrNotCancelable     = errors.New("proposal can no longer be canceled")
	ErrUnauthorized      = errors.New("caller is not authorized")
	ErrNotUpdatable      = errors.New("quorum policy cannot be updated")
)

// Errors from lower layers returned unchanged
var (
	ErrEmptyActionSet         = action.ErrEmptyActionSet
	ErrInvalidSupport         = counting.ErrInvalidSupport
	ErrInvalidHeight          = snapshot.ErrInvalidHeight
	ErrActionReverted         = executor.ErrActionReverted
	ErrNotReady               = timelock.ErrNotReady
	ErrPredecessorNotExecuted = timelock.ErrPredecessorNotExecuted
	ErrAlreadyExecuted        = timelock.ErrAlreadyExecuted
	ErrDelayTooShort          = timelock.ErrDelayTooShort
)
