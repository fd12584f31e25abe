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
	"context"
	"fmt"

	"github.com/blinklabs-io/gavel/counting"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
)

// apply runs one transaction in txn. It returns the id a label on the
// transaction refers to, if any
func (ls *LedgerState) apply(
	ctx context.Context,
	tx Transaction,
	point types.Point,
	txn *database.Txn,
	receipt *Receipt,
) (*common.Hash, error) {
	switch tx.Kind {
	case TxPropose:
		sender, err := ls.address(tx.Sender)
		if err != nil {
			return nil, err
		}
		bundle, err := ls.bundle(tx.Actions)
		if err != nil {
			return nil, err
		}
		id, err := ls.config.Governor.Propose(sender, bundle, tx.Description, point, txn)
		if err != nil {
			return nil, err
		}
		receipt.ProposalID = &id
		return &id, nil
	case TxVote:
		sender, err := ls.address(tx.Sender)
		if err != nil {
			return nil, err
		}
		id, err := ls.reference(tx.Proposal)
		if err != nil {
			return nil, err
		}
		support, err := counting.ParseSupport(tx.Support)
		if err != nil {
			return nil, err
		}
		weight, err := ls.config.Governor.CastVote(sender, id, support, tx.Reason, point, txn)
		if err != nil {
			return nil, err
		}
		receipt.ProposalID = &id
		receipt.Weight = &weight
		return nil, nil
	case TxQueue:
		id, err := ls.reference(tx.Proposal)
		if err != nil {
			return nil, err
		}
		opId, err := ls.config.Governor.Queue(id, point, txn)
		if err != nil {
			return nil, err
		}
		receipt.ProposalID = &id
		receipt.OperationID = &opId
		return &opId, nil
	case TxExecute:
		id, err := ls.reference(tx.Proposal)
		if err != nil {
			return nil, err
		}
		if err := ls.config.Governor.Execute(ctx, id, point, txn); err != nil {
			return nil, err
		}
		receipt.ProposalID = &id
		return nil, nil
	case TxCancel:
		sender, err := ls.address(tx.Sender)
		if err != nil {
			return nil, err
		}
		id, err := ls.reference(tx.Proposal)
		if err != nil {
			return nil, err
		}
		if err := ls.config.Governor.Cancel(sender, id, point, txn); err != nil {
			return nil, err
		}
		receipt.ProposalID = &id
		return nil, nil
	case TxMint, TxBurn, TxTransfer:
		return nil, ls.applyWeight(tx, point, txn)
	case TxSchedule, TxTimelockExecute, TxTimelockCancel:
		return ls.applyTimelock(ctx, tx, point, txn, receipt)
	case TxGrantRole, TxRevokeRole, TxRenounceRole:
		return nil, ls.applyRole(tx, txn)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTransaction, tx.Kind)
}

func (ls *LedgerState) applyWeight(tx Transaction, point types.Point, txn *database.Txn) error {
	weights := ls.config.Weights
	switch tx.Kind {
	case TxMint:
		to, err := ls.address(tx.To)
		if err != nil {
			return err
		}
		return weights.Mint(to, tx.Amount, point.Height, txn)
	case TxBurn:
		sender, err := ls.address(tx.Sender)
		if err != nil {
			return err
		}
		return weights.Burn(sender, tx.Amount, point.Height, txn)
	default:
		sender, err := ls.address(tx.Sender)
		if err != nil {
			return err
		}
		to, err := ls.address(tx.To)
		if err != nil {
			return err
		}
		return weights.Transfer(sender, to, tx.Amount, point.Height, txn)
	}
}

func (ls *LedgerState) applyTimelock(
	ctx context.Context,
	tx Transaction,
	point types.Point,
	txn *database.Txn,
	receipt *Receipt,
) (*common.Hash, error) {
	tl := ls.timelock()
	if tl == nil {
		return nil, governor.ErrNoTimelock
	}
	sender, err := ls.address(tx.Sender)
	if err != nil {
		return nil, err
	}
	switch tx.Kind {
	case TxSchedule:
		bundle, err := ls.bundle(tx.Actions)
		if err != nil {
			return nil, err
		}
		predecessor, err := ls.optionalReference(tx.Predecessor)
		if err != nil {
			return nil, err
		}
		salt, err := optionalHash(tx.Salt)
		if err != nil {
			return nil, err
		}
		opId, err := tl.Schedule(sender, bundle, predecessor, salt, tx.Delay, point, txn)
		if err != nil {
			return nil, err
		}
		receipt.OperationID = &opId
		return &opId, nil
	case TxTimelockExecute:
		opId, err := ls.reference(tx.Operation)
		if err != nil {
			return nil, err
		}
		if err := tl.Execute(ctx, sender, opId, point, txn); err != nil {
			return nil, err
		}
		receipt.OperationID = &opId
		return nil, nil
	default:
		opId, err := ls.reference(tx.Operation)
		if err != nil {
			return nil, err
		}
		if err := tl.Cancel(sender, opId, point, txn); err != nil {
			return nil, err
		}
		receipt.OperationID = &opId
		return nil, nil
	}
}

func (ls *LedgerState) optionalReference(value string) (common.Hash, error) {
	if value == "" {
		return common.Hash{}, nil
	}
	return ls.reference(value)
}

func (ls *LedgerState) applyRole(tx Transaction, txn *database.Txn) error {
	tl := ls.timelock()
	if tl == nil {
		return governor.ErrNoTimelock
	}
	sender, err := ls.address(tx.Sender)
	if err != nil {
		return err
	}
	account, err := ls.address(tx.Account)
	if err != nil {
		return err
	}
	role, err := timelock.ParseRole(tx.Role)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	switch tx.Kind {
	case TxGrantRole:
		return tl.GrantRole(sender, role, account, txn)
	case TxRevokeRole:
		return tl.RevokeRole(sender, role, account, txn)
	default:
		return tl.RenounceRole(sender, role, account, txn)
	}
}
