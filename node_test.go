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

package gavel_test

import (
	"context"
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/journal"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/blinklabs-io/gavel/quorum"
	"github.com/blinklabs-io/gavel/snapshot"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	aliceHex = "0x00000000000000000000000000000000000a11ce"
	bobHex   = "0x0000000000000000000000000000000000000b0b"
)

var testGenesis = ledger.Genesis{
	Timestamp: 1000,
	Allocations: []ledger.Allocation{
		{Account: aliceHex, Amount: 100},
		{Account: bobHex, Amount: 50},
	},
}

func TestNewValidatesConfig(t *testing.T) {
	testDefs := []struct {
		name string
		opts []gavel.ConfigOptionFunc
	}{
		{
			name: "zero voting period",
			opts: []gavel.ConfigOptionFunc{gavel.WithVotingPeriod(0)},
		},
		{
			name: "quorum above one",
			opts: []gavel.ConfigOptionFunc{gavel.WithQuorumFraction(101, 100)},
		},
		{
			name: "unknown counting",
			opts: []gavel.ConfigOptionFunc{gavel.WithCounting("ranked")},
		},
		{
			name: "unknown snapshot policy",
			opts: []gavel.ConfigOptionFunc{gavel.WithSnapshotPolicy("never")},
		},
		{
			name: "timelock at governor address",
			opts: []gavel.ConfigOptionFunc{
				gavel.WithTimelock(gavel.DefaultGovernorAddress, 60),
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := gavel.New(gavel.NewConfig(testDef.opts...))
			assert.Error(t, err)
		})
	}
}

func TestOpenAppliesGenesisOnce(t *testing.T) {
	dataDir := t.TempDir()
	ctx := context.Background()
	open := func() *gavel.Node {
		n, err := gavel.New(gavel.NewConfig(
			gavel.WithDatabasePath(dataDir),
			gavel.WithGenesis(testGenesis),
			gavel.WithTimelock(gavel.DefaultTimelockAddress, 60),
		))
		require.NoError(t, err)
		require.NoError(t, n.Open(ctx))
		return n
	}
	n := open()
	total, err := n.Ledger().TotalWeightAt(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), total)
	roles, err := n.Ledger().Roles()
	require.NoError(t, err)
	assert.NotEmpty(t, roles)
	require.NoError(t, n.Stop())

	// Reopening the same data directory keeps the existing state
	n = open()
	defer n.Stop() //nolint:errcheck
	total, err = n.Ledger().TotalWeightAt(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), total)
}

func TestRunWritesJournal(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	n, err := gavel.New(gavel.NewConfig(
		gavel.WithGenesis(testGenesis),
		gavel.WithPrometheusRegistry(prometheus.NewRegistry()),
		gavel.WithApiListenAddress("127.0.0.1:0"),
		gavel.WithJournal("file://"+journalPath),
		gavel.WithShutdownTimeout(5*time.Second),
	))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- n.Run(ctx)
	}()
	require.Eventually(t, func() bool {
		_, err := os.Stat(journalPath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not stop")
	}

	receipts, err := n.Ledger().ApplyBlock(context.Background(), ledger.Block{
		Height:    1,
		Timestamp: 1012,
		Transactions: []ledger.Transaction{
			{
				Kind:        ledger.TxPropose,
				Sender:      aliceHex,
				Description: "Raise the threshold",
				Actions: []ledger.ActionSpec{
					{
						Target: "governor",
						Method: "setProposalThreshold",
						Args:   []string{"20"},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	require.NoError(t, receipts[0].Err())
	state, err := n.Ledger().ProposalState(*receipts[0].ProposalID)
	require.NoError(t, err)
	assert.Equal(t, governor.StatePending, state)

	require.NoError(t, n.Stop())
	data, err := os.ReadFile(journalPath)
	require.NoError(t, err)
	assert.True(
		t,
		strings.Contains(string(data), governor.ProposalCreatedEventType),
		"journal should contain the proposal: %s", data,
	)
}

func TestDefaultAddressesDiffer(t *testing.T) {
	assert.NotEqual(t, common.Address{}, gavel.DefaultGovernorAddress)
	assert.NotEqual(t, gavel.DefaultGovernorAddress, gavel.DefaultTimelockAddress)
}

func TestOpenJournalsGenesis(t *testing.T) {
	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	n, err := gavel.New(gavel.NewConfig(
		gavel.WithGenesis(testGenesis),
		gavel.WithTimelock(gavel.DefaultTimelockAddress, 60),
		gavel.WithJournal("file://"+journalPath),
	))
	require.NoError(t, err)
	require.NoError(t, n.Open(context.Background()))
	require.NoError(t, n.Stop())

	f, err := os.Open(journalPath)
	require.NoError(t, err)
	defer f.Close()
	counts := make(map[string]int)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var record journal.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		counts[string(record.Type)]++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 2, counts[snapshot.WeightChangedEventType])
	assert.Equal(t, 1, counts[quorum.NumeratorUpdatedEventType])
	assert.Equal(t, 1, counts[timelock.MinDelayChangedEventType])
	assert.Positive(t, counts[timelock.RoleGrantedEventType])
}
