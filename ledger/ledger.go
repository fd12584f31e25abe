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

// Package ledger serializes every governance operation: blocks are applied
// one at a time, and each transaction in a block commits or rolls back on
// its own
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/database/types"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/snapshot"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/gavel/ledger"

// Initializer writes the initial state of a component
type Initializer interface {
	Init(txn *database.Txn) error
}

type Config struct {
	Logger       *slog.Logger
	DB           *database.Database
	PromRegistry prometheus.Registerer
	Governor     *governor.Governor
	Weights      *snapshot.Store
	// Initializers run once along with the genesis
	Initializers []Initializer
}

type LedgerState struct {
	config  Config
	metrics *ledgerMetrics
	tracer  trace.Tracer
	labels  map[string]common.Hash
	mutex   sync.RWMutex
}

func New(cfg Config) (*LedgerState, error) {
	if cfg.DB == nil {
		return nil, errors.New("ledger: database is required")
	}
	if cfg.Governor == nil {
		return nil, errors.New("ledger: governor is required")
	}
	if cfg.Weights == nil {
		return nil, errors.New("ledger: weight store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	ls := &LedgerState{
		config: cfg,
		tracer: otel.Tracer(tracerName),
		labels: make(map[string]common.Hash),
	}
	if cfg.PromRegistry != nil {
		ls.initMetrics(cfg.PromRegistry)
	}
	return ls, nil
}

func (ls *LedgerState) timelock() *timelock.Timelock {
	return ls.config.Governor.Timelock()
}

// Initialized reports whether a genesis has been applied
func (ls *LedgerState) Initialized() (bool, error) {
	ls.mutex.RLock()
	defer ls.mutex.RUnlock()
	_, found, err := ls.config.DB.GetTip(nil)
	return found, err
}

// ApplyGenesis writes the state at height 0 and runs the initializers. It
// fails with ErrAlreadyInitialized once a tip exists
func (ls *LedgerState) ApplyGenesis(ctx context.Context, genesis Genesis) error {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	_, span := ls.tracer.Start(ctx, "ledger.genesis")
	defer span.End()
	point := types.Point{Height: 0, Timestamp: genesis.Timestamp}
	err := ls.config.DB.Transaction(true).Do(func(txn *database.Txn) error {
		_, found, err := ls.config.DB.GetTip(txn)
		if err != nil {
			return err
		}
		if found {
			return ErrAlreadyInitialized
		}
		if err := ls.config.DB.SetTip(point, txn); err != nil {
			return err
		}
		for _, initializer := range ls.config.Initializers {
			if err := initializer.Init(txn); err != nil {
				return err
			}
		}
		for _, alloc := range genesis.Allocations {
			account, err := ls.address(alloc.Account)
			if err != nil {
				return err
			}
			if err := ls.config.Weights.Mint(account, alloc.Amount, 0, txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if ls.metrics != nil {
		ls.metrics.tipHeight.Set(0)
	}
	ls.config.Logger.Info(
		fmt.Sprintf("applied genesis with %d allocations", len(genesis.Allocations)),
		"component", "ledger",
	)
	return nil
}

// ApplyBlock applies the transactions of a block in order. The block must
// be above the tip with a timestamp no earlier than the tip's. A failed
// transaction leaves no state behind and does not stop later ones.
// A block is rejected whole when ctx is already done. Once the tip moves,
// cancelling ctx no longer affects the block's transactions
func (ls *LedgerState) ApplyBlock(ctx context.Context, block Block) ([]Receipt, error) {
	ls.mutex.Lock()
	defer ls.mutex.Unlock()
	ctx, span := ls.tracer.Start(
		ctx,
		"ledger.apply_block",
		trace.WithAttributes(
			attribute.Int64("block.height", int64(block.Height)), //nolint:gosec
			attribute.Int("block.transactions", len(block.Transactions)),
		),
	)
	defer span.End()
	tip, found, err := ls.config.DB.GetTip(nil)
	if err != nil {
		return nil, err
	}
	if found {
		if block.Height <= tip.Height {
			return nil, fmt.Errorf(
				"%w: height %d is not above tip %s",
				ErrInvalidBlock,
				block.Height,
				tip,
			)
		}
		if block.Timestamp < tip.Timestamp {
			return nil, fmt.Errorf(
				"%w: timestamp %d is before tip %s",
				ErrInvalidBlock,
				block.Timestamp,
				tip,
			)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	point := block.Point()
	if err := ls.config.DB.SetTip(point, nil); err != nil {
		return nil, err
	}
	txCtx := context.WithoutCancel(ctx)
	receipts := make([]Receipt, 0, len(block.Transactions))
	for idx, tx := range block.Transactions {
		receipts = append(receipts, ls.applyTransaction(txCtx, idx, tx, point))
	}
	if ls.metrics != nil {
		ls.metrics.blocks.Inc()
		ls.metrics.tipHeight.Set(float64(block.Height))
	}
	ls.config.Logger.Debug(
		fmt.Sprintf(
			"applied block %s with %d transactions",
			point,
			len(block.Transactions),
		),
		"component", "ledger",
	)
	return receipts, nil
}

func (ls *LedgerState) applyTransaction(
	ctx context.Context,
	idx int,
	tx Transaction,
	point types.Point,
) Receipt {
	ctx, span := ls.tracer.Start(
		ctx,
		"ledger.transaction",
		trace.WithAttributes(
			attribute.String("tx.kind", string(tx.Kind)),
			attribute.Int("tx.index", idx),
		),
	)
	defer span.End()
	start := time.Now()
	receipt := Receipt{Index: idx, Kind: tx.Kind}
	var newLabel *common.Hash
	err := ls.config.DB.Transaction(true).Do(func(txn *database.Txn) error {
		var err error
		newLabel, err = ls.apply(ctx, tx, point, txn, &receipt)
		return err
	})
	result := "ok"
	if err != nil {
		result = "error"
		receipt.err = err
		receipt.Error = err.Error()
		receipt.ProposalID = nil
		receipt.OperationID = nil
		receipt.Weight = nil
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ls.config.Logger.Debug(
			"transaction failed",
			"component", "ledger",
			"height", point.Height,
			"index", idx,
			"kind", tx.Kind,
			"error", err,
		)
	} else if tx.Label != "" && newLabel != nil {
		ls.labels[tx.Label] = *newLabel
	}
	if ls.metrics != nil {
		ls.metrics.transactions.WithLabelValues(string(tx.Kind), result).Inc()
		ls.metrics.txDuration.WithLabelValues(string(tx.Kind)).
			Observe(time.Since(start).Seconds())
	}
	return receipt
}
