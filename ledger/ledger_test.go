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

package ledger_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/blinklabs-io/gavel/database"
	"github.com/blinklabs-io/gavel/executor"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/blinklabs-io/gavel/quorum"
	"github.com/blinklabs-io/gavel/snapshot"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceHex = "0x00000000000000000000000000000000000a11ce"
	bobHex   = "0x0000000000000000000000000000000000000b0b"
	carolHex = "0x00000000000000000000000000000000000ca201"
)

var (
	governorAddr = common.HexToAddress("0x00000000000000000000000000000000000060a1")
	timelockAddr = common.HexToAddress("0x000000000000000000000000000000000000f1e1")
)

func newTestLedger(t *testing.T) *ledger.LedgerState {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	router := executor.NewRouter()
	store, err := snapshot.NewStore(snapshot.StoreConfig{DB: db})
	require.NoError(t, err)
	fraction, err := quorum.NewFraction(quorum.FractionConfig{
		DB:        db,
		Supply:    store,
		Numerator: 4,
	})
	require.NoError(t, err)
	tl, err := timelock.New(timelock.Config{
		DB:        db,
		Executor:  router,
		Address:   timelockAddr,
		MinDelay:  60,
		Proposers: []common.Address{governorAddr},
		Executors: []common.Address{timelock.Anyone},
	})
	require.NoError(t, err)
	g, err := governor.New(governor.Config{
		DB:                db,
		Address:           governorAddr,
		Weights:           store,
		Quorum:            fraction,
		Timelock:          tl,
		VotingDelay:       1,
		VotingPeriod:      5,
		ProposalThreshold: 10,
	})
	require.NoError(t, err)
	router.Register(governorAddr, g.Handler())
	router.Register(timelockAddr, tl.Handler())
	ls, err := ledger.New(ledger.Config{
		DB:           db,
		Governor:     g,
		Weights:      store,
		Initializers: []ledger.Initializer{fraction, tl, g},
	})
	require.NoError(t, err)
	return ls
}

func applyGenesis(t *testing.T, ls *ledger.LedgerState) {
	t.Helper()
	err := ls.ApplyGenesis(context.Background(), ledger.Genesis{
		Timestamp: 1000,
		Allocations: []ledger.Allocation{
			{Account: aliceHex, Amount: 100},
			{Account: bobHex, Amount: 50},
		},
	})
	require.NoError(t, err)
}

func TestApplyGenesisOnce(t *testing.T) {
	ls := newTestLedger(t)
	initialized, err := ls.Initialized()
	require.NoError(t, err)
	assert.False(t, initialized)
	applyGenesis(t, ls)
	err = ls.ApplyGenesis(context.Background(), ledger.Genesis{})
	assert.ErrorIs(t, err, ledger.ErrAlreadyInitialized)
	total, err := ls.TotalWeightAt(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), total)
	settings, err := ls.Settings()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), settings.VotingPeriod)
}

func TestBlockOrdering(t *testing.T) {
	ls := newTestLedger(t)
	ctx := context.Background()
	applyGenesis(t, ls)
	_, err := ls.ApplyBlock(ctx, ledger.Block{Height: 0, Timestamp: 1000})
	assert.ErrorIs(t, err, ledger.ErrInvalidBlock)
	_, err = ls.ApplyBlock(ctx, ledger.Block{Height: 1, Timestamp: 1012})
	require.NoError(t, err)
	_, err = ls.ApplyBlock(ctx, ledger.Block{Height: 1, Timestamp: 1024})
	assert.ErrorIs(t, err, ledger.ErrInvalidBlock)
	_, err = ls.ApplyBlock(ctx, ledger.Block{Height: 2, Timestamp: 1000})
	assert.ErrorIs(t, err, ledger.ErrInvalidBlock)
	// Timestamps may repeat
	_, err = ls.ApplyBlock(ctx, ledger.Block{Height: 5, Timestamp: 1012})
	require.NoError(t, err)
	tip, err := ls.Tip()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), tip.Height)
}

func TestFailedTransactionIsIsolated(t *testing.T) {
	ls := newTestLedger(t)
	applyGenesis(t, ls)
	receipts, err := ls.ApplyBlock(context.Background(), ledger.Block{
		Height:    1,
		Timestamp: 1012,
		Transactions: []ledger.Transaction{
			{Kind: ledger.TxTransfer, Sender: bobHex, To: carolHex, Amount: 51},
			{Kind: ledger.TxTransfer, Sender: bobHex, To: carolHex, Amount: 20},
			{Kind: ledger.TxMint, To: carolHex, Amount: 5},
			{Kind: "bogus"},
			{Kind: ledger.TxVote, Sender: bobHex, Proposal: "missing", Support: "for"},
		},
	})
	require.NoError(t, err)
	require.Len(t, receipts, 5)
	assert.ErrorIs(t, receipts[0].Err(), snapshot.ErrInsufficientWeight)
	assert.NotEmpty(t, receipts[0].Error)
	assert.True(t, receipts[1].Succeeded())
	assert.True(t, receipts[2].Succeeded())
	assert.ErrorIs(t, receipts[3].Err(), ledger.ErrUnknownTransaction)
	assert.ErrorIs(t, receipts[4].Err(), ledger.ErrUnknownLabel)

	weight, err := ls.WeightAt(common.HexToAddress(carolHex), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), weight)
	weight, err = ls.WeightAt(common.HexToAddress(bobHex), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), weight)
	_, err = ls.WeightAt(common.HexToAddress(bobHex), 2)
	assert.ErrorIs(t, err, snapshot.ErrInvalidHeight)
}

func TestTimelockTransactions(t *testing.T) {
	ls := newTestLedger(t)
	ctx := context.Background()
	applyGenesis(t, ls)
	receipts, err := ls.ApplyBlock(ctx, ledger.Block{
		Height:    1,
		Timestamp: 1012,
		Transactions: []ledger.Transaction{
			{Kind: ledger.TxGrantRole, Sender: aliceHex, Role: "proposer", Account: aliceHex},
			{
				Kind:   ledger.TxSchedule,
				Sender: "governor",
				Label:  "delay",
				Delay:  60,
				Actions: []ledger.ActionSpec{
					{Target: "timelock", Method: "updateDelay", Args: []string{"120"}},
				},
			},
			{
				Kind:        ledger.TxSchedule,
				Sender:      "governor",
				Label:       "grant",
				Delay:       60,
				Predecessor: "delay",
				Actions: []ledger.ActionSpec{
					{Target: "timelock", Method: "grantRole", Args: []string{"proposer", aliceHex}},
				},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, receipts, 3)
	// Only the timelock holds the admin role
	assert.ErrorIs(t, receipts[0].Err(), timelock.ErrUnauthorized)
	require.True(t, receipts[1].Succeeded(), receipts[1].Error)
	require.True(t, receipts[2].Succeeded(), receipts[2].Error)

	receipts, err = ls.ApplyBlock(ctx, ledger.Block{
		Height:    2,
		Timestamp: 1072,
		Transactions: []ledger.Transaction{
			{Kind: ledger.TxTimelockExecute, Sender: bobHex, Operation: "grant"},
			{Kind: ledger.TxTimelockExecute, Sender: bobHex, Operation: "delay"},
			{Kind: ledger.TxTimelockExecute, Sender: bobHex, Operation: "grant"},
		},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, receipts[0].Err(), timelock.ErrPredecessorNotExecuted)
	assert.True(t, receipts[1].Succeeded(), receipts[1].Error)
	assert.True(t, receipts[2].Succeeded(), receipts[2].Error)

	roles, err := ls.Roles()
	require.NoError(t, err)
	assert.Contains(t, roles, timelock.RoleGrant{Role: timelock.ProposerRole, Account: common.HexToAddress(aliceHex)})
	grantId, err := ls.Resolve("grant")
	require.NoError(t, err)
	op, state, err := ls.Operation(grantId)
	require.NoError(t, err)
	assert.Equal(t, timelock.OperationDone, state)
	assert.True(t, op.Executed)

	receipts, err = ls.ApplyBlock(ctx, ledger.Block{
		Height:    3,
		Timestamp: 1080,
		Transactions: []ledger.Transaction{
			{Kind: ledger.TxRenounceRole, Sender: aliceHex, Role: "proposer", Account: aliceHex},
			{Kind: ledger.TxSchedule, Sender: aliceHex, Delay: 120, Actions: []ledger.ActionSpec{{Target: bobHex, Payload: "0x01020304"}}},
		},
	})
	require.NoError(t, err)
	assert.True(t, receipts[0].Succeeded(), receipts[0].Error)
	assert.ErrorIs(t, receipts[1].Err(), timelock.ErrUnauthorized)
}

// cancelAfterFirstCheck reports cancellation from the second Err call on,
// as a request context does when the client goes away mid-block
type cancelAfterFirstCheck struct {
	context.Context
	calls atomic.Int32
}

func (c *cancelAfterFirstCheck) Err() error {
	if c.calls.Add(1) > 1 {
		return context.Canceled
	}
	return nil
}

func scheduleDelayUpdate(t *testing.T, ls *ledger.LedgerState) {
	t.Helper()
	receipts, err := ls.ApplyBlock(context.Background(), ledger.Block{
		Height:    1,
		Timestamp: 1012,
		Transactions: []ledger.Transaction{
			{
				Kind:   ledger.TxSchedule,
				Sender: "governor",
				Label:  "delay",
				Delay:  60,
				Actions: []ledger.ActionSpec{
					{Target: "timelock", Method: "updateDelay", Args: []string{"120"}},
				},
			},
		},
	})
	require.NoError(t, err)
	require.True(t, receipts[0].Succeeded(), receipts[0].Error)
}

func TestApplyBlockCancelledContextRejectsBlock(t *testing.T) {
	ls := newTestLedger(t)
	applyGenesis(t, ls)
	scheduleDelayUpdate(t, ls)
	block := ledger.Block{
		Height:    2,
		Timestamp: 2000,
		Transactions: []ledger.Transaction{
			{Kind: ledger.TxMint, To: carolHex, Amount: 5},
			{Kind: ledger.TxTimelockExecute, Sender: bobHex, Operation: "delay"},
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	receipts, err := ls.ApplyBlock(ctx, block)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, receipts)
	tip, err := ls.Tip()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tip.Height)

	// The same block applies once resubmitted
	receipts, err = ls.ApplyBlock(context.Background(), block)
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.True(t, receipts[0].Succeeded(), receipts[0].Error)
	assert.True(t, receipts[1].Succeeded(), receipts[1].Error)
}

func TestApplyBlockIgnoresLateCancellation(t *testing.T) {
	ls := newTestLedger(t)
	applyGenesis(t, ls)
	scheduleDelayUpdate(t, ls)
	ctx := &cancelAfterFirstCheck{Context: context.Background()}
	receipts, err := ls.ApplyBlock(ctx, ledger.Block{
		Height:    2,
		Timestamp: 2000,
		Transactions: []ledger.Transaction{
			{Kind: ledger.TxMint, To: carolHex, Amount: 5},
			{Kind: ledger.TxTimelockExecute, Sender: bobHex, Operation: "delay"},
		},
	})
	require.NoError(t, err)
	require.Len(t, receipts, 2)
	assert.True(t, receipts[0].Succeeded(), receipts[0].Error)
	assert.True(t, receipts[1].Succeeded(), receipts[1].Error)
	id, err := ls.Resolve("delay")
	require.NoError(t, err)
	_, state, err := ls.Operation(id)
	require.NoError(t, err)
	assert.Equal(t, timelock.OperationDone, state)
}
