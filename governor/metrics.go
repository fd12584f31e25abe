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

package governor

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type governorMetrics struct {
	proposals     prometheus.Counter
	votes         *prometheus.CounterVec
	voteWeight    *prometheus.CounterVec
	executions    prometheus.Counter
	cancellations prometheus.Counter
	failures      *prometheus.CounterVec
}

func (g *Governor) initMetrics(promRegistry prometheus.Registerer) {
	promautoFactory := promauto.With(promRegistry)
	g.metrics = &governorMetrics{
		proposals: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_governor_proposals_created_total",
				Help: "total proposals created",
			},
		),
		votes: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gavel_governor_votes_cast_total",
				Help: "total votes cast by support",
			},
			[]string{"support"},
		),
		voteWeight: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gavel_governor_vote_weight_total",
				Help: "total weight cast by support",
			},
			[]string{"support"},
		),
		executions: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_governor_proposals_executed_total",
				Help: "total proposals executed",
			},
		),
		cancellations: promautoFactory.NewCounter(
			prometheus.CounterOpts{
				Name: "gavel_governor_proposals_canceled_total",
				Help: "total proposals canceled",
			},
		),
		failures: promautoFactory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gavel_governor_failures_total",
				Help: "total failed governor operations by operation and reason",
			},
			[]string{"operation", "reason"},
		),
	}
}

var failureReasons = []struct {
	err    error
	reason string
}{
	{ErrDuplicateProposal, "duplicate_proposal"},
	{ErrUnknownProposal, "unknown_proposal"},
	{ErrEmptyActionSet, "empty_action_set"},
	{ErrBelowThreshold, "below_threshold"},
	{ErrNotActive, "not_active"},
	{ErrAlreadyVoted, "already_voted"},
	{ErrInvalidSupport, "invalid_support"},
	{ErrNotSucceeded, "not_succeeded"},
	{ErrNotQueued, "not_queued"},
	{ErrNoTimelock, "no_timelock"},
	{ErrNotCancelable, "not_cancelable"},
	{ErrUnauthorized, "unauthorized"},
	{ErrNotReady, "not_ready"},
	{ErrPredecessorNotExecuted, "predecessor_not_executed"},
	{ErrAlreadyExecuted, "already_executed"},
	{ErrActionReverted, "action_reverted"},
	{ErrInvalidHeight, "invalid_height"},
}

func (g *Governor) recordFailure(operation string, err error) {
	if err == nil || g.metrics == nil {
		return
	}
	reason := "other"
	for _, r := range failureReasons {
		if errors.Is(err, r.err) {
			reason = r.reason
			break
		}
	}
	g.metrics.failures.WithLabelValues(operation, reason).Inc()
}
