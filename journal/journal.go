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

// Package journal archives observation events as JSON records
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/gavel/event"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/quorum"
	"github.com/blinklabs-io/gavel/snapshot"
	"github.com/blinklabs-io/gavel/timelock"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBatchSize     = 100
	DefaultFlushInterval = time.Second
	DefaultQueueSize     = 1000
	DefaultRetryBackoff  = 100 * time.Millisecond
	DefaultMaxBackoff    = 30 * time.Second
	// Number of write attempts for records still pending at shutdown
	DefaultFinalAttempts = 5
)

var ErrStopped = errors.New("journal stopped")

// EventTypes lists every event type a journal records by default
var EventTypes = []event.EventType{
	snapshot.WeightChangedEventType,
	quorum.NumeratorUpdatedEventType,
	governor.ProposalCreatedEventType,
	governor.VoteCastEventType,
	governor.ProposalQueuedEventType,
	governor.ProposalExecutedEventType,
	governor.ProposalCanceledEventType,
	governor.SettingsChangedEventType,
	timelock.CallScheduledEventType,
	timelock.CallExecutedEventType,
	timelock.CancelledEventType,
	timelock.RoleGrantedEventType,
	timelock.RoleRevokedEventType,
	timelock.MinDelayChangedEventType,
}

// Record is one journaled event
type Record struct {
	Sequence  uint64          `json:"sequence"`
	Type      event.EventType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Sink stores batches of records in order
type Sink interface {
	Write(ctx context.Context, records []Record) error
	Close() error
}

type Config struct {
	Logger        *slog.Logger
	EventBus      *event.EventBus
	PromRegistry  prometheus.Registerer
	Sink          Sink
	EventTypes    []event.EventType
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
	// RetryBackoff is the initial delay before a failed batch is written
	// again. The delay doubles on each failure up to MaxBackoff
	RetryBackoff  time.Duration
	MaxBackoff    time.Duration
	FinalAttempts int
}

type Journal struct {
	config   Config
	metrics  *journalMetrics
	queue    chan Record
	subIds   map[event.EventType]event.EventSubscriberId
	sequence uint64
	mu       sync.Mutex
	started  bool
	stopped  bool
	wg       sync.WaitGroup
}

func New(cfg Config) (*Journal, error) {
	if cfg.EventBus == nil {
		return nil, errors.New("journal: event bus is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("journal: sink is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if len(cfg.EventTypes) == 0 {
		cfg.EventTypes = EventTypes
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.MaxBackoff < cfg.RetryBackoff {
		cfg.MaxBackoff = max(DefaultMaxBackoff, cfg.RetryBackoff)
	}
	if cfg.FinalAttempts <= 0 {
		cfg.FinalAttempts = DefaultFinalAttempts
	}
	j := &Journal{
		config: cfg,
		queue:  make(chan Record, cfg.QueueSize),
		subIds: make(map[event.EventType]event.EventSubscriberId),
	}
	if cfg.PromRegistry != nil {
		j.initMetrics(cfg.PromRegistry)
	}
	return j, nil
}

// Start subscribes to the configured event types and starts the writer
func (j *Journal) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return ErrStopped
	}
	if j.started {
		return nil
	}
	j.started = true
	j.wg.Add(1)
	go j.run()
	for _, eventType := range j.config.EventTypes {
		j.subIds[eventType] = j.config.EventBus.RegisterSubscriber(
			eventType,
			&subscriber{journal: j},
		)
	}
	j.config.Logger.Info(
		fmt.Sprintf("journaling %d event types", len(j.config.EventTypes)),
		"component", "journal",
	)
	return nil
}

// Stop unsubscribes, flushes queued records and closes the sink
func (j *Journal) Stop() error {
	j.mu.Lock()
	if j.stopped {
		j.mu.Unlock()
		return nil
	}
	subIds := j.subIds
	j.subIds = nil
	j.mu.Unlock()
	for eventType, subId := range subIds {
		j.config.EventBus.Unsubscribe(eventType, subId)
	}
	j.mu.Lock()
	j.stopped = true
	started := j.started
	close(j.queue)
	j.mu.Unlock()
	if started {
		j.wg.Wait()
	}
	return j.config.Sink.Close()
}

// Sequence returns the sequence number of the last accepted record
func (j *Journal) Sequence() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sequence
}

func (j *Journal) enqueue(evt event.Event) error {
	data, err := json.Marshal(evt.Data)
	if err != nil {
		j.config.Logger.Error(
			"failed to encode event",
			"component", "journal",
			"type", evt.Type,
			"error", err,
		)
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		return ErrStopped
	}
	j.sequence++
	j.queue <- Record{
		Sequence:  j.sequence,
		Type:      evt.Type,
		Timestamp: evt.Timestamp.UTC(),
		Data:      data,
	}
	return nil
}

// run batches queued records. A batch the sink rejects stays pending and
// is retried with the records queued after it, so nothing is dropped or
// reordered while the journal runs
func (j *Journal) run() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.config.FlushInterval)
	defer ticker.Stop()
	batch := make([]Record, 0, j.config.BatchSize)
	backoff := time.Duration(0)
	var retryAt time.Time
	flush := func() {
		if len(batch) == 0 || time.Now().Before(retryAt) {
			return
		}
		if err := j.write(batch); err != nil {
			backoff = nextBackoff(backoff, j.config.RetryBackoff, j.config.MaxBackoff)
			retryAt = time.Now().Add(backoff)
			return
		}
		backoff = 0
		retryAt = time.Time{}
		batch = make([]Record, 0, j.config.BatchSize)
	}
	for {
		select {
		case record, ok := <-j.queue:
			if !ok {
				j.drain(batch)
				return
			}
			batch = append(batch, record)
			if len(batch) >= j.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// drain writes the records left at shutdown, retrying a bounded number of
// times before giving them up
func (j *Journal) drain(batch []Record) {
	if len(batch) == 0 {
		return
	}
	backoff := time.Duration(0)
	for attempt := 1; ; attempt++ {
		if err := j.write(batch); err == nil {
			return
		}
		if attempt >= j.config.FinalAttempts {
			break
		}
		backoff = nextBackoff(backoff, j.config.RetryBackoff, j.config.MaxBackoff)
		time.Sleep(backoff)
	}
	if j.metrics != nil {
		j.metrics.dropped.Add(float64(len(batch)))
	}
	j.config.Logger.Error(
		fmt.Sprintf("dropping %d journal records after %d attempts", len(batch), j.config.FinalAttempts),
		"component", "journal",
		"first", batch[0].Sequence,
		"last", batch[len(batch)-1].Sequence,
	)
}

func nextBackoff(current, initial, limit time.Duration) time.Duration {
	if current <= 0 {
		return initial
	}
	return min(current*2, limit)
}

func (j *Journal) write(batch []Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := j.config.Sink.Write(ctx, batch); err != nil {
		if j.metrics != nil {
			j.metrics.failures.Inc()
		}
		j.config.Logger.Error(
			"failed to write journal records",
			"component", "journal",
			"first", batch[0].Sequence,
			"last", batch[len(batch)-1].Sequence,
			"error", err,
		)
		return err
	}
	if j.metrics != nil {
		j.metrics.records.Add(float64(len(batch)))
		j.metrics.sequence.Set(float64(batch[len(batch)-1].Sequence))
	}
	return nil
}

// subscriber adapts the journal to the event bus. Closing it is a no-op,
// the journal owns its own lifecycle
type subscriber struct {
	journal *Journal
}

func (s *subscriber) Deliver(evt event.Event) error {
	return s.journal.enqueue(evt)
}

func (s *subscriber) Close() {}
