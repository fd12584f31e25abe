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

package timelock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type timelockMetrics struct {
	scheduled prometheus.Counter
	executed  prometheus.Counter
	cancelled prometheus.Counter
	failures  *prometheus.CounterVec
}

func (t *Timelock) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	t.metrics = &timelockMetrics{
		scheduled: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_timelock_scheduled_total",
				Help: "total operations scheduled",
			},
		),
		executed: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_timelock_executed_total",
				Help: "total operations executed",
			},
		),
		cancelled: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_timelock_cancelled_total",
				Help: "total operations cancelled",
			},
		),
		failures: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gavel_timelock_failures_total",
				Help: "total failed timelock operations by operation",
			},
			[]string{"operation"},
		),
	}
}

func (t *Timelock) recordFailure(operation string, err error) {
	if err == nil || t.metrics == nil {
		return
	}
	t.metrics.failures.WithLabelValues(operation).Inc()
}
