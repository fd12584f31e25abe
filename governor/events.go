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
	"github.com/ethereum/go-ethereum/common"
)

const (
	ProposalCreatedEventType  = "governor.proposal_created"
	VoteCastEventType         = "governor.vote_cast"
	ProposalQueuedEventType   = "governor.proposal_queued"
	ProposalExecutedEventType = "governor.proposal_executed"
	ProposalCanceledEventType = "governor.proposal_canceled"
	SettingsChangedEventType  = "governor.settings_changed"
)

type ProposalCreatedEvent struct {
	ProposalID     common.Hash    `json:"proposalId"`
	Revision       uint32         `json:"revision"`
	Proposer       common.Address `json:"proposer"`
	Bundle         action.Bundle  `json:"bundle"`
	Description    string         `json:"description"`
	SnapshotHeight uint64         `json:"snapshotHeight"`
	VoteStart      uint64         `json:"voteStart"`
	VoteEnd        uint64         `json:"voteEnd"`
}

type VoteCastEvent struct {
	ProposalID common.Hash      `json:"proposalId"`
	Revision   uint32           `json:"revision"`
	Voter      common.Address   `json:"voter"`
	Support    counting.Support `json:"support"`
	Weight     uint64           `json:"weight"`
	Reason     string           `json:"reason,omitempty"`
	Height     uint64           `json:"height"`
}

type ProposalQueuedEvent struct {
	ProposalID  common.Hash `json:"proposalId"`
	Revision    uint32      `json:"revision"`
	OperationID common.Hash `json:"operationId"`
	Eta         uint64      `json:"eta"`
	Height      uint64      `json:"height"`
}

type ProposalExecutedEvent struct {
	ProposalID common.Hash `json:"proposalId"`
	Revision   uint32      `json:"revision"`
	Height     uint64      `json:"height"`
}

type ProposalCanceledEvent struct {
	ProposalID common.Hash    `json:"proposalId"`
	Revision   uint32         `json:"revision"`
	Canceler   common.Address `json:"canceler"`
	Height     uint64         `json:"height"`
}

type SettingsChangedEvent struct {
	Setting  string `json:"setting"`
	OldValue uint64 `json:"oldValue"`
	NewValue uint64 `json:"newValue"`
}
