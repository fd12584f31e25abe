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

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ledgerMetrics struct {
	blocks       prometheus.Counter
	tipHeight    prometheus.Gauge
	transactions *prometheus.CounterVec
	txDuration   *prometheus.HistogramVec
}

func (ls *LedgerState) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	ls.metrics = &ledgerMetrics{
		blocks: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_ledger_blocks_total",
				Help: "total blocks applied",
			},
		),
		tipHeight: promautoFactory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gavel_ledger_tip_height",
				Help: "height of the last applied block",
			},
		),
		transactions: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gavel_ledger_transactions_total",
				Help: "total transactions applied by kind and result",
			},
			[]string{"kind", "result"},
		),
		txDuration: promautoFactory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gavel_ledger_transaction_duration_seconds",
				Help:    "transaction apply duration by kind",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"kind"},
		),
	}
}
