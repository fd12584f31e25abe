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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"connectrpc.com/grpcreflect"
	"github.com/blinklabs-io/gavel"
	"github.com/blinklabs-io/gavel/governor"
	"github.com/blinklabs-io/gavel/internal/config"
	"github.com/blinklabs-io/gavel/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ServiceName is reported by the gRPC health and reflection handlers
const ServiceName = "gavel.v1.Governance"

// NodeConfig converts the loaded config into node options. Extra options
// are applied last
func NodeConfig(
	cfg *config.Config,
	logger *slog.Logger,
	registry prometheus.Registerer,
	extra ...gavel.ConfigOptionFunc,
) gavel.Config {
	opts := []gavel.ConfigOptionFunc{
		gavel.WithLogger(logger),
		gavel.WithDatabasePath(cfg.DatabasePath),
		gavel.WithMetadataDSN(cfg.MetadataDsn),
		gavel.WithPrometheusRegistry(registry),
		gavel.WithVotingDelay(cfg.Governor.VotingDelay),
		gavel.WithVotingPeriod(cfg.Governor.VotingPeriod),
		gavel.WithProposalThreshold(cfg.Governor.ProposalThreshold),
		gavel.WithQuorumFraction(
			cfg.Governor.QuorumNumerator,
			cfg.Governor.QuorumDenominator,
		),
		gavel.WithSnapshotPolicy(governor.SnapshotPolicy(cfg.Governor.SnapshotPolicy)),
		gavel.WithCounting(cfg.Governor.Counting),
		gavel.WithGovernorGracePeriod(cfg.Governor.GracePeriod),
		gavel.WithGenesis(genesis(cfg.Genesis)),
		gavel.WithJournal(cfg.Journal),
		gavel.WithJournalCredentialsFile(cfg.JournalCredentialsFile),
		gavel.WithTracing(cfg.Tracing),
		gavel.WithTracingStdout(cfg.TracingStdout),
		gavel.WithShutdownTimeout(cfg.ShutdownTimeoutDuration()),
	}
	if cfg.Governor.Address != "" {
		opts = append(opts, gavel.WithGovernorAddress(common.HexToAddress(cfg.Governor.Address)))
	}
	if cfg.Governor.Canceler != "" {
		opts = append(opts, gavel.WithCanceler(common.HexToAddress(cfg.Governor.Canceler)))
	}
	if cfg.Timelock.Enabled {
		address := gavel.DefaultTimelockAddress
		if cfg.Timelock.Address != "" {
			address = common.HexToAddress(cfg.Timelock.Address)
		}
		opts = append(
			opts,
			gavel.WithTimelock(address, cfg.Timelock.MinDelay),
			gavel.WithTimelockGracePeriod(cfg.Timelock.GracePeriod),
			gavel.WithProposers(config.Addresses(cfg.Timelock.Proposers)...),
			gavel.WithExecutors(config.Addresses(cfg.Timelock.Executors)...),
			gavel.WithCancellers(config.Addresses(cfg.Timelock.Cancellers)...),
		)
		if cfg.Timelock.Admin != "" {
			opts = append(opts, gavel.WithTimelockAdmin(common.HexToAddress(cfg.Timelock.Admin)))
		}
	}
	if cfg.ApiPort > 0 {
		opts = append(
			opts,
			gavel.WithApiListenAddress(fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort)),
		)
	}
	opts = append(opts, extra...)
	return gavel.NewConfig(opts...)
}

func genesis(cfg config.GenesisConfig) ledger.Genesis {
	ret := ledger.Genesis{
		Timestamp:   cfg.Timestamp,
		Allocations: make([]ledger.Allocation, 0, len(cfg.Allocations)),
	}
	for _, alloc := range cfg.Allocations {
		ret.Allocations = append(ret.Allocations, ledger.Allocation{
			Account: alloc.Account,
			Amount:  alloc.Amount,
		})
	}
	return ret
}

// MetricsHandler serves prometheus metrics along with the gRPC health and
// reflection services
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	compress1KB := connect.WithCompressMinBytes(1024)
	mux.Handle(
		grpchealth.NewHandler(
			grpchealth.NewStaticChecker(ServiceName),
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1(
			grpcreflect.NewStaticReflector(ServiceName),
			compress1KB,
		),
	)
	mux.Handle(
		grpcreflect.NewHandlerV1Alpha(
			grpcreflect.NewStaticReflector(ServiceName),
			compress1KB,
		),
	)
	// Use h2c so we can serve HTTP/2 without TLS
	return h2c.NewHandler(mux, &http2.Server{})
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout := cfg.ShutdownTimeoutDuration()
	d, err := gavel.New(
		NodeConfig(cfg, logger, prometheus.DefaultRegisterer),
	)
	if err != nil {
		return err
	}
	// Metrics and health listener
	metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
	logger.Info(
		"serving prometheus metrics on "+metricsAddr,
		"component", "node",
	)
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           MetricsHandler(prometheus.DefaultGatherer),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "node",
			)
			os.Exit(1)
		}
	}()
	stopMetrics := func() {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Run(signalCtx)
	}()

	err = <-errChan
	if err != nil {
		logger.Error("node error", "error", err)
	} else {
		logger.Info("signal received, initiating graceful shutdown")
	}
	stopMetrics()
	if stopErr := d.Stop(); stopErr != nil {
		logger.Error("shutdown errors occurred", "error", stopErr)
		return errors.Join(err, stopErr)
	}
	if err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
