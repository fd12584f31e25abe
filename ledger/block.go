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
	"errors"

	"github.com/blinklabs-io/gavel/database/types"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidBlock       = errors.New("invalid block")
	ErrUnknownTransaction = errors.New("unknown transaction kind")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrUnknownLabel       = errors.New("unknown label")
	ErrAlreadyInitialized = errors.New("ledger already initialized")
)

// TxKind names the operation a transaction performs
type TxKind string

const (
	TxPropose         TxKind = "propose"
	TxVote            TxKind = "vote"
	TxQueue           TxKind = "queue"
	TxExecute         TxKind = "execute"
	TxCancel          TxKind = "cancel"
	TxMint            TxKind = "mint"
	TxBurn            TxKind = "burn"
	TxTransfer        TxKind = "transfer"
	TxSchedule        TxKind = "schedule"
	TxTimelockExecute TxKind = "timelock_execute"
	TxTimelockCancel  TxKind = "timelock_cancel"
	TxGrantRole       TxKind = "grant_role"
	TxRevokeRole      TxKind = "revoke_role"
	TxRenounceRole    TxKind = "renounce_role"
)

// Block is an ordered batch of transactions at one height
type Block struct {
	Height       uint64        `json:"height"       yaml:"height"`
	Timestamp    uint64        `json:"timestamp"    yaml:"timestamp"`
	Transactions []Transaction `json:"transactions" yaml:"transactions"`
}

func (b Block) Point() types.Point {
	return types.Point{Height: b.Height, Timestamp: b.Timestamp}
}

// ActionSpec describes an action either as a raw hex payload or as a method
// call against the governor or timelock
type ActionSpec struct {
	// Target is a hex address or one of the aliases "governor" and "timelock"
	Target  string   `json:"target"            yaml:"target"`
	Value   uint64   `json:"value,omitempty"   yaml:"value,omitempty"`
	Payload string   `json:"payload,omitempty" yaml:"payload,omitempty"`
	Method  string   `json:"method,omitempty"  yaml:"method,omitempty"`
	Args    []string `json:"args,omitempty"    yaml:"args,omitempty"`
}

// Transaction is a single ledger operation. Which fields apply depends on
// Kind. Addresses accept the "governor" and "timelock" aliases. Proposal and
// operation references accept a hex id or a label assigned earlier
type Transaction struct {
	Kind   TxKind `json:"kind"             yaml:"kind"`
	Sender string `json:"sender,omitempty" yaml:"sender,omitempty"`
	// Label names the proposal or operation created by this transaction
	Label       string       `json:"label,omitempty"       yaml:"label,omitempty"`
	Actions     []ActionSpec `json:"actions,omitempty"     yaml:"actions,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Proposal    string       `json:"proposal,omitempty"    yaml:"proposal,omitempty"`
	Support     string       `json:"support,omitempty"     yaml:"support,omitempty"`
	Reason      string       `json:"reason,omitempty"      yaml:"reason,omitempty"`
	To          string       `json:"to,omitempty"          yaml:"to,omitempty"`
	Amount      uint64       `json:"amount,omitempty"      yaml:"amount,omitempty"`
	Operation   string       `json:"operation,omitempty"   yaml:"operation,omitempty"`
	Predecessor string       `json:"predecessor,omitempty" yaml:"predecessor,omitempty"`
	Salt        string       `json:"salt,omitempty"        yaml:"salt,omitempty"`
	Delay       uint64       `json:"delay,omitempty"       yaml:"delay,omitempty"`
	Role        string       `json:"role,omitempty"        yaml:"role,omitempty"`
	Account     string       `json:"account,omitempty"     yaml:"account,omitempty"`
}

// Receipt is the outcome of one transaction
type Receipt struct {
	Index       int          `json:"index"`
	Kind        TxKind       `json:"kind"`
	ProposalID  *common.Hash `json:"proposalId,omitempty"`
	OperationID *common.Hash `json:"operationId,omitempty"`
	Weight      *uint64      `json:"weight,omitempty"`
	Error       string       `json:"error,omitempty"`
	err         error
}

// Err returns the error the transaction failed with, or nil
func (r Receipt) Err() error {
	return r.err
}

// Succeeded reports whether the transaction was applied
func (r Receipt) Succeeded() bool {
	return r.err == nil
}

// Allocation is initial weight given to an account
type Allocation struct {
	Account string `json:"account" yaml:"account"`
	Amount  uint64 `json:"amount"  yaml:"amount"`
}

// Genesis is the state at height 0
type Genesis struct {
	Timestamp   uint64       `json:"timestamp"   yaml:"timestamp"`
	Allocations []Allocation `json:"allocations" yaml:"allocations"`
}
