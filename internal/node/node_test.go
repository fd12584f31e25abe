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

package node

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeConfigOpens(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DatabasePath = ""
	cfg.ApiPort = 0
	cfg.Timelock.Enabled = true
	cfg.Genesis = config.GenesisConfig{
		Timestamp: 1000,
		Allocations: []config.AllocationConfig{
			{Account: "0x00000000000000000000000000000000000a11ce", Amount: 100},
		},
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	n, err := gavel.New(NodeConfig(cfg, logger, prometheus.NewRegistry()))
	require.NoError(t, err)
	defer n.Stop() //nolint:errcheck
	require.NoError(t, n.Open(context.Background()))
	total, err := n.Ledger().TotalWeightAt(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), total)
	settings, err := n.Ledger().Settings()
	require.NoError(t, err)
	assert.Equal(t, cfg.Governor.VotingPeriod, settings.VotingPeriod)
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gavel_test_total",
		Help: "test counter",
	})
	registry.MustRegister(counter)
	counter.Inc()
	server := httptest.NewServer(MetricsHandler(registry))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "gavel_test_total 1")

	resp, err = http.Post(
		server.URL+"/grpc.health.v1.Health/Check",
		"application/json",
		strings.NewReader(`{"service":"`+ServiceName+`"}`),
	)
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "SERVING")
}
