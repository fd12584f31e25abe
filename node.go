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

package gavel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/api"
	"github.com/blinklabs-io/gavel/counting"
	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/executor"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/journal"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/blinklabs-io/gavel/quorum"
	"github.com/blinklabs-io/gavel/snapshot"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
)

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	router        *executor.Router
	weights       *snapshot.Store
	quorum        *quorum.Fraction
	timelock      *timelock.Timelock
	governor      *governor.Governor
	ledgerState   *ledger.LedgerState
	journal       *journal.Journal
	api           *api.Server
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	openOnce      sync.Once
	openErr       error
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Open starts the journal, loads the database, builds the governance
// components and applies the genesis when the database is empty. Run calls
// it before starting services
func (n *Node) Open(ctx context.Context) error {
	n.openOnce.Do(func() {
		n.openErr = n.open(ctx)
	})
	return n.openErr
}

func (n *Node) open(ctx context.Context) error {
	// The journal subscribes first so it records the genesis events
	if err := n.startJournal(ctx); err != nil {
		return err
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:      n.config.dataDir,
		MetadataDSN:  n.config.metadataDSN,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
	})
	if db == nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.router = executor.NewRouter()
	// Weights and quorum
	n.weights, err = snapshot.NewStore(snapshot.StoreConfig{
		Logger:   n.config.logger,
		DB:       n.db,
		EventBus: n.eventBus,
	})
	if err != nil {
		return err
	}
	n.quorum, err = quorum.NewFraction(quorum.FractionConfig{
		Logger:      n.config.logger,
		DB:          n.db,
		EventBus:    n.eventBus,
		Supply:      n.weights,
		Numerator:   n.config.quorumNumerator,
		Denominator: n.config.quorumDenominator,
	})
	if err != nil {
		return err
	}
	countingPolicy, err := counting.New(n.config.counting)
	if err != nil {
		return err
	}
	// Optional timelock
	if n.config.timelockEnabled {
		proposers := n.config.proposers
		if len(proposers) == 0 {
			proposers = []common.Address{n.config.governorAddress}
		}
		executors := n.config.executors
		if len(executors) == 0 {
			executors = []common.Address{timelock.Anyone}
		}
		n.timelock, err = timelock.New(timelock.Config{
			Logger:       n.config.logger,
			DB:           n.db,
			EventBus:     n.eventBus,
			PromRegistry: n.config.promRegistry,
			Executor:     n.router,
			Address:      n.config.timelockAddress,
			MinDelay:     n.config.timelockMinDelay,
			GracePeriod:  n.config.timelockGracePeriod,
			Admin:        n.config.timelockAdmin,
			Proposers:    proposers,
			Executors:    executors,
			Cancellers:   n.config.cancellers,
		})
		if err != nil {
			return err
		}
		n.router.Register(n.timelock.Address(), n.timelock.Handler())
	}
	// Governor
	n.governor, err = governor.New(governor.Config{
		Logger:            n.config.logger,
		DB:                n.db,
		EventBus:          n.eventBus,
		PromRegistry:      n.config.promRegistry,
		Address:           n.config.governorAddress,
		Weights:           n.weights,
		Quorum:            n.quorum,
		Counting:          countingPolicy,
		Executor:          n.router,
		Timelock:          n.timelock,
		VotingDelay:       n.config.votingDelay,
		VotingPeriod:      n.config.votingPeriod,
		ProposalThreshold: n.config.proposalThreshold,
		SnapshotPolicy:    n.config.snapshotPolicy,
		GracePeriod:       n.config.governorGracePeriod,
		Canceler:          n.config.canceler,
	})
	if err != nil {
		return err
	}
	n.router.Register(n.governor.Address(), n.governor.Handler())
	// Ledger
	initializers := []ledger.Initializer{n.quorum}
	if n.timelock != nil {
		initializers = append(initializers, n.timelock)
	}
	initializers = append(initializers, n.governor)
	n.ledgerState, err = ledger.New(ledger.Config{
		Logger:       n.config.logger,
		DB:           n.db,
		PromRegistry: n.config.promRegistry,
		Governor:     n.governor,
		Weights:      n.weights,
		Initializers: initializers,
	})
	if err != nil {
		return fmt.Errorf("failed to load ledger: %w", err)
	}
	if err := n.ledgerState.ApplyGenesis(ctx, n.config.genesis); err != nil {
		if !errors.Is(err, ledger.ErrAlreadyInitialized) {
			return fmt.Errorf("failed to apply genesis: %w", err)
		}
		n.config.logger.Debug(
			"ledger already initialized, skipping genesis",
			"component", "node",
		)
	}
	return nil
}

func (n *Node) startJournal(ctx context.Context) error {
	if n.config.journalURL == "" {
		return nil
	}
	sink, err := journal.OpenSink(
		ctx,
		n.config.journalURL,
		journal.WithSinkLogger(n.config.logger),
		journal.WithCredentialsFile(n.config.journalCredentialsFile),
	)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	n.journal, err = journal.New(journal.Config{
		Logger:       n.config.logger,
		EventBus:     n.eventBus,
		PromRegistry: n.config.promRegistry,
		Sink:         sink,
	})
	if err != nil {
		_ = sink.Close()
		return err
	}
	if err := n.journal.Start(); err != nil {
		return fmt.Errorf("failed to start journal: %w", err)
	}
	return nil
}

func (n *Node) Run(ctx context.Context) error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(ctx); err != nil {
			return err
		}
	}
	if err := n.Open(ctx); err != nil {
		return err
	}
	// Start API
	if n.config.apiListenAddress != "" {
		n.api = api.New(
			api.Config{
				ListenAddress: n.config.apiListenAddress,
				Logger:        n.config.logger,
				Debug:         n.config.apiDebug,
			},
			n.ledgerState,
		)
		if err := n.api.Start(ctx); err != nil {
			return fmt.Errorf("failed to start API: %w", err)
		}
	}
	tip, err := n.ledgerState.Tip()
	if err != nil {
		return err
	}
	n.config.logger.Info(
		"node started at "+tip.String(),
		"component", "node",
	)
	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case <-n.done:
	}
	return nil
}

// Ledger returns the ledger, which is available once Open succeeds
func (n *Node) Ledger() *ledger.LedgerState {
	return n.ledgerState
}

// EventBus returns the bus observation events are published on
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new blocks
	n.config.logger.Debug("shutdown phase 1: stopping API", "component", "node")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}

	// Phase 2: Flush observation records
	n.config.logger.Debug("shutdown phase 2: flushing journal", "component", "node")

	if n.journal != nil {
		if stopErr := n.journal.Stop(); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("journal shutdown: %w", stopErr))
		}
	}

	// Phase 3: Close database
	n.config.logger.Debug("shutdown phase 3: closing database", "component", "node")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources", "component", "node")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}
