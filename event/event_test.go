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

package event_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/gavel/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testEventType event.EventType = "test.event"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubscribePublish(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, ch := eb.Subscribe(testEventType)
	eb.Publish(testEventType, event.NewEvent(testEventType, 42))
	select {
	case evt := <-ch:
		assert.Equal(t, testEventType, evt.Type)
		assert.Equal(t, 42, evt.Data)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, ch := eb.Subscribe(testEventType)
	eb.Unsubscribe(testEventType, subId)
	_, ok := <-ch
	assert.False(t, ok)
	// Publishing with no subscribers is a no-op
	eb.Publish(testEventType, event.NewEvent(testEventType, nil))
}

func TestSubscribeFuncAndStop(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	var wg sync.WaitGroup
	wg.Add(3)
	var count atomic.Int32
	eb.SubscribeFunc(testEventType, func(event.Event) {
		count.Add(1)
		wg.Done()
	})
	for i := range 3 {
		eb.Publish(testEventType, event.NewEvent(testEventType, i))
	}
	wg.Wait()
	eb.Stop()
	assert.Equal(t, int32(3), count.Load())
}

func TestAnyEventTypeOrdered(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	var seen []event.EventType
	all := &recordingSubscriber{onDeliver: func(evt event.Event) {
		seen = append(seen, evt.Type)
	}}
	eb.RegisterSubscriber(event.AnyEventType, all)
	other := &recordingSubscriber{}
	eb.RegisterSubscriber("other.event", other)
	eb.Publish(testEventType, event.NewEvent(testEventType, 1))
	eb.Publish("other.event", event.NewEvent("other.event", 2))
	eb.Publish(testEventType, event.NewEvent(testEventType, 3))
	assert.Equal(
		t,
		[]event.EventType{testEventType, "other.event", testEventType},
		seen,
	)
	assert.Equal(t, int32(1), other.calls.Load())
	eb.Stop()
	assert.True(t, all.closed.Load())
	assert.True(t, other.closed.Load())
	// Stopped bus drops publishes
	eb.Publish(testEventType, event.NewEvent(testEventType, 4))
	assert.Equal(t, int32(3), all.calls.Load())
	// Stop is idempotent
	eb.Stop()
}

func TestUnsubscribeWrongType(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	sub := &recordingSubscriber{}
	subId := eb.RegisterSubscriber(testEventType, sub)
	eb.Unsubscribe("other.event", subId)
	assert.False(t, sub.closed.Load())
	eb.Unsubscribe(testEventType, subId)
	assert.True(t, sub.closed.Load())
}

func TestFailingSubscriberRemoved(t *testing.T) {
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	failing := &recordingSubscriber{err: errors.New("sink down")}
	eb.RegisterSubscriber(testEventType, failing)
	eb.Publish(testEventType, event.NewEvent(testEventType, 1))
	assert.True(t, failing.closed.Load())
	eb.Publish(testEventType, event.NewEvent(testEventType, 2))
	assert.Equal(t, int32(1), failing.calls.Load())
	count, err := testutil.GatherAndCount(reg, "gavel_event_delivery_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFullSubscriberDropsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	_, ch := eb.Subscribe(testEventType)
	total := event.EventQueueSize + 5
	for i := range total {
		eb.Publish(testEventType, event.NewEvent(testEventType, i))
	}
	require.Len(t, ch, event.EventQueueSize)
	families, err := reg.Gather()
	require.NoError(t, err)
	var dropped float64
	for _, family := range families {
		if family.GetName() != "gavel_event_delivery_errors_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "kind" && label.GetValue() == "dropped" {
					dropped += metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.InDelta(t, 5, dropped, 0)
	// The oldest events are kept and the subscriber stays registered
	for i := range event.EventQueueSize {
		evt := <-ch
		assert.Equal(t, i, evt.Data)
	}
	eb.Publish(testEventType, event.NewEvent(testEventType, total))
	select {
	case evt := <-ch:
		assert.Equal(t, total, evt.Data)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPanickingSubscriberRemoved(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	panicking := &recordingSubscriber{onDeliver: func(event.Event) { panic("bad sink") }}
	eb.RegisterSubscriber(testEventType, panicking)
	assert.NotPanics(t, func() {
		eb.Publish(testEventType, event.NewEvent(testEventType, 1))
	})
	assert.True(t, panicking.closed.Load())
}

func TestRegisterAfterStop(t *testing.T) {
	eb := event.NewEventBus(nil, nil)
	eb.Stop()
	sub := &recordingSubscriber{}
	eb.RegisterSubscriber(testEventType, sub)
	assert.True(t, sub.closed.Load())
}

type recordingSubscriber struct {
	onDeliver func(event.Event)
	err       error
	calls     atomic.Int32
	closed    atomic.Bool
}

func (r *recordingSubscriber) Deliver(evt event.Event) error {
	r.calls.Add(1)
	if r.onDeliver != nil {
		r.onDeliver(evt)
	}
	return r.err
}

func (r *recordingSubscriber) Close() {
	r.closed.Store(true)
}
