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

// Package timelock holds approved action bundles for a minimum delay before
// they may be executed. Scheduling, execution and cancellation are gated by
// roles
package timelock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/gavel/action"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/models"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/executor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	Logger       *slog.Logger
	DB           *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	Executor     executor.Executor
	// Address is the account actions execute as
	Address common.Address
	// MinDelay is the initial minimum delay in seconds
	MinDelay uint64
	// GracePeriod is how long in seconds a ready operation stays executable.
	// Zero means forever
	GracePeriod uint64
	// Admin is an optional additional holder of AdminRole
	Admin      common.Address
	Proposers  []common.Address
	Executors  []common.Address
	Cancellers []common.Address
}

type Timelock struct {
	config  Config
	metrics *timelockMetrics
}

// Operation is a scheduled action bundle
type Operation struct {
	ID                common.Hash    `json:"id"`
	Predecessor       common.Hash    `json:"predecessor"`
	Salt              common.Hash    `json:"salt"`
	Proposer          common.Address `json:"proposer"`
	Bundle            action.Bundle  `json:"bundle"`
	Delay             uint64         `json:"delay"`
	ScheduledHeight   uint64         `json:"scheduledHeight"`
	ReadyTimestamp    uint64         `json:"readyTimestamp"`
	Executed          bool           `json:"executed"`
	ExecutedHeight    uint64         `json:"executedHeight,omitempty"`
	ExecutedTimestamp uint64         `json:"executedTimestamp,omitempty"`
}

func New(cfg Config) (*Timelock, error) {
	if cfg.DB == nil {
		return nil, errors.New("timelock: database is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("timelock: executor is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	t := &Timelock{
		config: cfg,
	}
	if cfg.PromRegistry != nil {
		t.initMetrics(cfg.PromRegistry)
	}
	return t, nil
}

// Address returns the timelock's own account
func (t *Timelock) Address() common.Address {
	return t.config.Address
}

// GracePeriod returns the execution grace period in seconds
func (t *Timelock) GracePeriod() uint64 {
	return t.config.GracePeriod
}

// Init writes the initial minimum delay and role grants. It does nothing if
// the timelock was initialized before
func (t *Timelock) Init(txn *database.Txn) error {
	return t.config.DB.Update(txn, func(txn *database.Txn) error {
		settings, err := t.config.DB.GetTimelockSettings(txn)
		if err != nil {
			return err
		}
		if settings != nil {
			return nil
		}
		err = t.config.DB.SetTimelockSettings(
			&models.TimelockSettings{MinDelay: t.config.MinDelay},
			txn,
		)
		if err != nil {
			return err
		}
		t.publishOnCommit(
			txn,
			MinDelayChangedEventType,
			MinDelayChangedEvent{NewDelay: t.config.MinDelay},
			nil,
		)
		grants := []RoleGrant{{Role: AdminRole, Account: t.config.Address}}
		if t.config.Admin != (common.Address{}) {
			grants = append(grants, RoleGrant{Role: AdminRole, Account: t.config.Admin})
		}
		for _, account := range t.config.Proposers {
			grants = append(
				grants,
				RoleGrant{Role: ProposerRole, Account: account},
				RoleGrant{Role: CancellerRole, Account: account},
			)
		}
		for _, account := range t.config.Executors {
			grants = append(grants, RoleGrant{Role: ExecutorRole, Account: account})
		}
		for _, account := range t.config.Cancellers {
			grants = append(grants, RoleGrant{Role: CancellerRole, Account: account})
		}
		for _, grant := range grants {
			if _, err := t.grant(grant.Role, grant.Account, t.config.Address, txn); err != nil {
				return err
			}
		}
		t.config.Logger.Info(
			fmt.Sprintf(
				"timelock initialized with min delay %d and %d role grants",
				t.config.MinDelay,
				len(grants),
			),
			"component", "timelock",
		)
		return nil
	})
}

// MinDelay returns the current minimum delay in seconds
func (t *Timelock) MinDelay(txn *database.Txn) (uint64, error) {
	settings, err := t.config.DB.GetTimelockSettings(txn)
	if err != nil {
		return 0, err
	}
	if settings == nil {
		return t.config.MinDelay, nil
	}
	return settings.MinDelay, nil
}

// HashOperation returns the id an operation would be scheduled under
func (t *Timelock) HashOperation(
	bundle action.Bundle,
	predecessor common.Hash,
	salt common.Hash,
) (common.Hash, error) {
	return action.OperationID(bundle, predecessor, salt)
}

// Schedule queues a bundle to become executable delay seconds after the
// current timestamp. The caller needs ProposerRole
func (t *Timelock) Schedule(
	caller common.Address,
	bundle action.Bundle,
	predecessor common.Hash,
	salt common.Hash,
	delay uint64,
	point types.Point,
	txn *database.Txn,
) (common.Hash, error) {
	var ret common.Hash
	err := t.config.DB.Update(txn, func(txn *database.Txn) error {
		if err := t.checkRole(ProposerRole, caller, txn); err != nil {
			return err
		}
		if err := bundle.Validate(); err != nil {
			return err
		}
		minDelay, err := t.MinDelay(txn)
		if err != nil {
			return err
		}
		if delay < minDelay {
			return fmt.Errorf("%w: %d < %d", ErrDelayTooShort, delay, minDelay)
		}
		id, err := t.HashOperation(bundle, predecessor, salt)
		if err != nil {
			return err
		}
		if _, err := t.config.DB.GetTimelockOperation(id.Bytes(), txn); err == nil {
			return fmt.Errorf("%w: %s", ErrOperationExists, id.Hex())
		} else if !errors.Is(err, models.ErrTimelockOperationNotFound) {
			return err
		}
		data, err := bundle.MarshalCBOR()
		if err != nil {
			return err
		}
		if err := t.config.DB.SetOperationBundle(id.Bytes(), data, txn); err != nil {
			return err
		}
		op := &models.TimelockOperation{
			OperationID:     id.Bytes(),
			Predecessor:     predecessor.Bytes(),
			Salt:            salt.Bytes(),
			Proposer:        caller.Bytes(),
			ActionCount:     uint32(len(bundle)), //nolint:gosec
			Delay:           delay,
			ScheduledHeight: point.Height,
			ReadyTimestamp:  point.Timestamp + delay,
		}
		if err := t.config.DB.SetTimelockOperation(op, txn); err != nil {
			return err
		}
		evt := CallScheduledEvent{
			OperationID:    id,
			Predecessor:    predecessor,
			Salt:           salt,
			Bundle:         bundle,
			Delay:          delay,
			ReadyTimestamp: op.ReadyTimestamp,
			Proposer:       caller,
			Height:         point.Height,
		}
		t.publishOnCommit(txn, CallScheduledEventType, evt, func() {
			if t.metrics != nil {
				t.metrics.scheduled.Inc()
			}
		})
		t.config.Logger.Debug(
			"operation scheduled",
			"component", "timelock",
			"operation", id.Hex(),
			"ready", op.ReadyTimestamp,
		)
		ret = id
		return nil
	})
	t.recordFailure("schedule", err)
	return ret, err
}

// Execute runs a ready operation as the timelock account. The caller needs
// ExecutorRole unless that role is open to anyone
func (t *Timelock) Execute(
	ctx context.Context,
	caller common.Address,
	id common.Hash,
	point types.Point,
	txn *database.Txn,
) error {
	err := t.config.DB.Update(txn, func(txn *database.Txn) error {
		if err := t.checkExecutor(caller, txn); err != nil {
			return err
		}
		row, err := t.getOperation(id, txn)
		if err != nil {
			return err
		}
		if row.ExecutedHeight != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyExecuted, id.Hex())
		}
		if point.Timestamp < row.ReadyTimestamp {
			return fmt.Errorf(
				"%w: %s ready at %d, now %d",
				ErrNotReady,
				id.Hex(),
				row.ReadyTimestamp,
				point.Timestamp,
			)
		}
		if t.expired(row, point.Timestamp) {
			return fmt.Errorf("%w: %s", ErrOperationExpired, id.Hex())
		}
		predecessor := common.BytesToHash(row.Predecessor)
		if predecessor != (common.Hash{}) {
			pred, err := t.config.DB.GetTimelockOperation(predecessor.Bytes(), txn)
			if err != nil && !errors.Is(err, models.ErrTimelockOperationNotFound) {
				return err
			}
			if pred == nil || pred.ExecutedHeight == nil {
				return fmt.Errorf(
					"%w: %s",
					ErrPredecessorNotExecuted,
					predecessor.Hex(),
				)
			}
		}
		bundle, err := t.bundle(id, txn)
		if err != nil {
			return err
		}
		if err := t.config.Executor.Execute(ctx, txn, t.config.Address, bundle, point); err != nil {
			return err
		}
		height, timestamp := point.Height, point.Timestamp
		row.ExecutedHeight = &height
		row.ExecutedTimestamp = &timestamp
		if err := t.config.DB.SetTimelockOperation(row, txn); err != nil {
			return err
		}
		evt := CallExecutedEvent{
			OperationID: id,
			Executor:    caller,
			Height:      point.Height,
			Timestamp:   point.Timestamp,
		}
		t.publishOnCommit(txn, CallExecutedEventType, evt, func() {
			if t.metrics != nil {
				t.metrics.executed.Inc()
			}
		})
		t.config.Logger.Info(
			"operation executed",
			"component", "timelock",
			"operation", id.Hex(),
			"actions", len(bundle),
			"height", point.Height,
		)
		return nil
	})
	t.recordFailure("execute", err)
	return err
}

// Cancel removes a pending operation. The caller needs CancellerRole
func (t *Timelock) Cancel(
	caller common.Address,
	id common.Hash,
	point types.Point,
	txn *database.Txn,
) error {
	err := t.config.DB.Update(txn, func(txn *database.Txn) error {
		if err := t.checkRole(CancellerRole, caller, txn); err != nil {
			return err
		}
		row, err := t.getOperation(id, txn)
		if err != nil {
			return err
		}
		if row.ExecutedHeight != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyExecuted, id.Hex())
		}
		if err := t.config.DB.DeleteTimelockOperation(id.Bytes(), txn); err != nil {
			return err
		}
		evt := CancelledEvent{
			OperationID: id,
			Canceller:   caller,
			Height:      point.Height,
		}
		t.publishOnCommit(txn, CancelledEventType, evt, func() {
			if t.metrics != nil {
				t.metrics.cancelled.Inc()
			}
		})
		return nil
	})
	t.recordFailure("cancel", err)
	return err
}

// Operation returns a scheduled operation with its bundle
func (t *Timelock) Operation(id common.Hash, txn *database.Txn) (*Operation, error) {
	var ret *Operation
	err := t.config.DB.View(txn, func(txn *database.Txn) error {
		row, err := t.getOperation(id, txn)
		if err != nil {
			return err
		}
		bundle, err := t.bundle(id, txn)
		if err != nil {
			return err
		}
		ret = &Operation{
			ID:              id,
			Predecessor:     common.BytesToHash(row.Predecessor),
			Salt:            common.BytesToHash(row.Salt),
			Proposer:        common.BytesToAddress(row.Proposer),
			Bundle:          bundle,
			Delay:           row.Delay,
			ScheduledHeight: row.ScheduledHeight,
			ReadyTimestamp:  row.ReadyTimestamp,
		}
		if row.ExecutedHeight != nil {
			ret.Executed = true
			ret.ExecutedHeight = *row.ExecutedHeight
		}
		if row.ExecutedTimestamp != nil {
			ret.ExecutedTimestamp = *row.ExecutedTimestamp
		}
		return nil
	})
	return ret, err
}

// State returns the state of an operation at timestamp
func (t *Timelock) State(
	id common.Hash,
	timestamp uint64,
	txn *database.Txn,
) (OperationState, error) {
	row, err := t.config.DB.GetTimelockOperation(id.Bytes(), txn)
	if err != nil {
		if errors.Is(err, models.ErrTimelockOperationNotFound) {
			return OperationUnset, nil
		}
		return OperationUnset, err
	}
	switch {
	case row.ExecutedHeight != nil:
		return OperationDone, nil
	case timestamp < row.ReadyTimestamp:
		return OperationWaiting, nil
	case t.expired(row, timestamp):
		return OperationExpired, nil
	default:
		return OperationReady, nil
	}
}

func (t *Timelock) expired(row *models.TimelockOperation, timestamp uint64) bool {
	if t.config.GracePeriod == 0 {
		return false
	}
	return timestamp > row.ReadyTimestamp+t.config.GracePeriod
}

func (t *Timelock) getOperation(
	id common.Hash,
	txn *database.Txn,
) (*models.TimelockOperation, error) {
	row, err := t.config.DB.GetTimelockOperation(id.Bytes(), txn)
	if err != nil {
		if errors.Is(err, models.ErrTimelockOperationNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, id.Hex())
		}
		return nil, err
	}
	return row, nil
}

func (t *Timelock) bundle(id common.Hash, txn *database.Txn) (action.Bundle, error) {
	data, err := t.config.DB.GetOperationBundle(id.Bytes(), txn)
	if err != nil {
		return nil, err
	}
	return action.DecodeBundle(data)
}

func (t *Timelock) publishOnCommit(
	txn *database.Txn,
	eventType event.EventType,
	data any,
	after func(),
) {
	txn.OnCommit(func() {
		if t.config.EventBus != nil {
			t.config.EventBus.Publish(eventType, event.NewEvent(eventType, data))
		}
		if after != nil {
			after()
		}
	})
}
