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

package journal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type journalMetrics struct {
	records  prometheus.Counter
	failures prometheus.Counter
	dropped  prometheus.Counter
	sequence prometheus.Gauge
}

func (j *Journal) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	j.metrics = &journalMetrics{
		records: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gavel_journal_records_total",
			Help: "total journal records written",
		}),
		failures: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gavel_journal_write_failures_total",
			Help: "total failed journal batch writes",
		}),
		dropped: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "gavel_journal_records_dropped_total",
			Help: "total journal records given up at shutdown",
		}),
		sequence: promautoFactory.NewGauge(prometheus.GaugeOpts{
			Name: "gavel_journal_sequence",
			Help: "sequence number of the last written journal record",
		}),
	}
}
