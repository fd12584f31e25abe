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

package journal_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/journal"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memorySink struct {
	mu      sync.Mutex
	batches [][]journal.Record
	closed  bool
}

func (s *memorySink) Write(_ context.Context, records []journal.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]journal.Record(nil), records...))
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) records() []journal.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ret []journal.Record
	for _, batch := range s.batches {
		ret = append(ret, batch...)
	}
	return ret
}

// flakySink fails its first writes then delegates to a memorySink
type flakySink struct {
	memorySink
	failures int
	attempts int
}

func (s *flakySink) Write(ctx context.Context, records []journal.Record) error {
	s.mu.Lock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errors.New("sink unavailable")
	}
	s.mu.Unlock()
	return s.memorySink.Write(ctx, records)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func publish(eb *event.EventBus, eventType event.EventType, data any) {
	eb.Publish(eventType, event.NewEvent(eventType, data))
}

func TestJournalRecordsInOrder(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	sink := &memorySink{}
	reg := prometheus.NewRegistry()
	j, err := journal.New(journal.Config{
		EventBus:      eb,
		Sink:          sink,
		PromRegistry:  reg,
		BatchSize:     2,
		FlushInterval: time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, j.Start())
	id := common.HexToHash("0x01")
	publish(eb, governor.ProposalCreatedEventType, governor.ProposalCreatedEvent{ProposalID: id})
	publish(eb, governor.ProposalQueuedEventType, governor.ProposalQueuedEvent{ProposalID: id})
	publish(eb, timelock.MinDelayChangedEventType, timelock.MinDelayChangedEvent{OldDelay: 60, NewDelay: 120})
	publish(eb, "unrelated.event", 1)
	require.NoError(t, j.Stop())
	// Stopping twice is harmless
	require.NoError(t, j.Stop())

	records := sink.records()
	require.Len(t, records, 3)
	assert.True(t, sink.closed)
	assert.Len(t, sink.batches, 2)
	for idx, record := range records {
		assert.Equal(t, uint64(idx+1), record.Sequence)
	}
	assert.Equal(t, event.EventType(governor.ProposalCreatedEventType), records[0].Type)
	assert.Equal(t, event.EventType(timelock.MinDelayChangedEventType), records[2].Type)
	var created governor.ProposalCreatedEvent
	require.NoError(t, json.Unmarshal(records[0].Data, &created))
	assert.Equal(t, id, created.ProposalID)
	assert.Equal(t, uint64(3), j.Sequence())
	count, err := testutil.GatherAndCount(reg, "gavel_journal_records_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == "gavel_journal_records_total" {
			assert.InDelta(t, 3, family.GetMetric()[0].GetCounter().GetValue(), 0)
		}
	}
	assert.ErrorIs(t, j.Start(), journal.ErrStopped)
}

func TestJournalAnyEventType(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	sink := &memorySink{}
	j, err := journal.New(journal.Config{
		EventBus:      eb,
		Sink:          sink,
		EventTypes:    []event.EventType{event.AnyEventType},
		FlushInterval: time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, j.Start())
	publish(eb, governor.VoteCastEventType, governor.VoteCastEvent{})
	publish(eb, "unrelated.event", 1)
	require.NoError(t, j.Stop())
	records := sink.records()
	require.Len(t, records, 2)
	assert.Equal(t, event.EventType("unrelated.event"), records[1].Type)
}

func TestJournalRetriesFailedBatch(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	sink := &flakySink{failures: 1}
	reg := prometheus.NewRegistry()
	j, err := journal.New(journal.Config{
		EventBus:      eb,
		Sink:          sink,
		PromRegistry:  reg,
		BatchSize:     2,
		FlushInterval: 10 * time.Millisecond,
		RetryBackoff:  time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, j.Start())
	for delay := uint64(1); delay <= 3; delay++ {
		publish(eb, timelock.MinDelayChangedEventType, timelock.MinDelayChangedEvent{NewDelay: delay})
	}
	require.Eventually(t, func() bool {
		return len(sink.records()) == 3
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, j.Stop())

	records := sink.records()
	require.Len(t, records, 3)
	for idx, record := range records {
		assert.Equal(t, uint64(idx+1), record.Sequence)
	}
	assert.InDelta(t, 1, counterValue(t, reg, "gavel_journal_write_failures_total"), 0)
	assert.InDelta(t, 3, counterValue(t, reg, "gavel_journal_records_total"), 0)
	assert.InDelta(t, 0, counterValue(t, reg, "gavel_journal_records_dropped_total"), 0)
}

func TestJournalRetriesOnStop(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	sink := &flakySink{failures: 2}
	j, err := journal.New(journal.Config{
		EventBus:      eb,
		Sink:          sink,
		FlushInterval: time.Hour,
		RetryBackoff:  time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, j.Start())
	publish(eb, timelock.MinDelayChangedEventType, timelock.MinDelayChangedEvent{NewDelay: 1})
	require.NoError(t, j.Stop())
	assert.Len(t, sink.records(), 1)
	assert.Equal(t, 3, sink.attempts)
}

func TestJournalDropsAfterFinalAttempts(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	sink := &flakySink{failures: 10}
	reg := prometheus.NewRegistry()
	j, err := journal.New(journal.Config{
		EventBus:      eb,
		Sink:          sink,
		PromRegistry:  reg,
		FlushInterval: time.Hour,
		RetryBackoff:  time.Millisecond,
		FinalAttempts: 3,
	})
	require.NoError(t, err)
	require.NoError(t, j.Start())
	publish(eb, timelock.MinDelayChangedEventType, timelock.MinDelayChangedEvent{NewDelay: 1})
	publish(eb, timelock.MinDelayChangedEventType, timelock.MinDelayChangedEvent{NewDelay: 2})
	require.NoError(t, j.Stop())
	assert.Empty(t, sink.records())
	assert.Equal(t, 3, sink.attempts)
	assert.InDelta(t, 2, counterValue(t, reg, "gavel_journal_records_dropped_total"), 0)
}

func TestJournalFlushesOnInterval(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	sink := &memorySink{}
	j, err := journal.New(journal.Config{
		EventBus:      eb,
		Sink:          sink,
		FlushInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, j.Start())
	defer j.Stop() //nolint:errcheck
	publish(eb, governor.VoteCastEventType, governor.VoteCastEvent{Weight: 5})
	require.Eventually(t, func() bool {
		return len(sink.records()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.jsonl")
	ctx := context.Background()
	sink, err := journal.OpenSink(ctx, "file://"+path)
	require.NoError(t, err)

	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	j, err := journal.New(journal.Config{
		EventBus:   eb,
		Sink:       sink,
		EventTypes: []event.EventType{governor.ProposalCanceledEventType},
	})
	require.NoError(t, err)
	require.NoError(t, j.Start())
	for range 3 {
		publish(eb, governor.ProposalCanceledEventType, governor.ProposalCanceledEvent{})
	}
	publish(eb, governor.VoteCastEventType, governor.VoteCastEvent{})
	require.NoError(t, j.Stop())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	scanner := bufio.NewScanner(file)
	var lines int
	for scanner.Scan() {
		lines++
		var record journal.Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		assert.Equal(t, uint64(lines), record.Sequence)
		assert.Equal(t, event.EventType(governor.ProposalCanceledEventType), record.Type)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 3, lines)
}

func TestNewValidation(t *testing.T) {
	_, err := journal.New(journal.Config{Sink: &memorySink{}})
	require.Error(t, err)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, err = journal.New(journal.Config{EventBus: eb})
	require.Error(t, err)
}
