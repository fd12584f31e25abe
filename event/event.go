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

// Package event carries governance notifications from the components that
// commit state changes to the sinks that record them. Delivery is
// synchronous, so subscribers observe events in commit order
package event

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventQueueSize is the channel buffer behind Subscribe
const EventQueueSize = 20

// AnyEventType subscribers receive every published event
const AnyEventType EventType = "*"

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// Subscriber receives events from an EventBus. Close must be idempotent
type Subscriber interface {
	Deliver(Event) error
	Close()
}

type registration struct {
	eventType EventType
	sub       Subscriber
}

type EventBus struct {
	logger    *slog.Logger
	metrics   *eventMetrics
	subs      map[EventSubscriberId]registration
	lastSubId EventSubscriberId
	stopped   bool
	mu        sync.RWMutex
}

// NewEventBus returns an EventBus. Both arguments may be nil
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subs:   make(map[EventSubscriberId]registration),
		logger: logger,
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	return e
}

// errSubscriberFull reports an event dropped by a full subscriber buffer. The
// subscriber stays registered
var errSubscriberFull = errors.New("subscriber buffer full")

// chanSubscriber backs Subscribe. Deliver never blocks, events arriving while
// the buffer is full are dropped
type chanSubscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func (c *chanSubscriber) Deliver(evt Event) error {
	// Close waits for in-flight sends before closing the channel
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
		return nil
	default:
		return errSubscriberFull
	}
}

func (c *chanSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

func subscriberKind(sub Subscriber) string {
	if _, ok := sub.(*chanSubscriber); ok {
		return "in-memory"
	}
	return "external"
}

// Subscribe returns a channel receiving events of eventType. The channel is
// closed on Unsubscribe or Stop. Publish runs inside ledger commits and never
// waits on the channel: events that find its EventQueueSize buffer full are
// dropped and counted. Use RegisterSubscriber for lossless delivery
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	sub := &chanSubscriber{ch: make(chan Event, EventQueueSize)}
	return e.RegisterSubscriber(eventType, sub), sub.ch
}

// SubscribeFunc calls handlerFunc from a dedicated goroutine for each event
// of eventType. A handler that falls behind loses events as with Subscribe
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	go func() {
		for evt := range evtCh {
			handlerFunc(evt)
		}
	}()
	return subId
}

// RegisterSubscriber adds sub for eventType, or for every event type when
// eventType is AnyEventType. A stopped bus closes sub immediately
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	e.lastSubId++
	subId := e.lastSubId
	if e.stopped {
		e.mu.Unlock()
		sub.Close()
		return subId
	}
	e.subs[subId] = registration{eventType: eventType, sub: sub}
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType), subscriberKind(sub)).
			Inc()
	}
	return subId
}

// Unsubscribe removes and closes a subscriber. Unknown ids are ignored
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	reg, ok := e.subs[subId]
	if ok && reg.eventType == eventType {
		delete(e.subs, subId)
	} else {
		ok = false
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType), subscriberKind(reg.sub)).
			Dec()
	}
	reg.sub.Close()
}

// Publish delivers evt to every subscriber of eventType and of AnyEventType,
// in subscription order. Subscribers that fail or panic are removed
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.RLock()
	if e.stopped {
		e.mu.RUnlock()
		return
	}
	ids := make([]EventSubscriberId, 0, len(e.subs))
	for id, reg := range e.subs {
		if reg.eventType == eventType || reg.eventType == AnyEventType {
			ids = append(ids, id)
		}
	}
	targets := make([]registration, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		targets = append(targets, e.subs[id])
	}
	e.mu.RUnlock()
	for i, reg := range targets {
		err := deliver(reg.sub, evt)
		if err == nil {
			continue
		}
		if errors.Is(err, errSubscriberFull) {
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType), "dropped").
					Inc()
			}
			e.logger.Warn(
				"subscriber buffer full, dropping event",
				"component", "event",
				"type", eventType,
				"subscriber", ids[i],
			)
			continue
		}
		e.Unsubscribe(reg.eventType, ids[i])
		if e.metrics != nil {
			e.metrics.deliveryErrors.WithLabelValues(string(eventType), subscriberKind(reg.sub)).
				Inc()
		}
		e.logger.Warn(
			"event delivery error, removing subscriber",
			"component", "event",
			"type", eventType,
			"error", err,
		)
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// Stop closes all subscribers. Later publishes are dropped and later
// registrations are closed on arrival
func (e *EventBus) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	subs := e.subs
	e.subs = make(map[EventSubscriberId]registration)
	e.mu.Unlock()
	for _, reg := range subs {
		reg.sub.Close()
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}
