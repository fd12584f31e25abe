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

package counting_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/blinklabs-io/gavel/counting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleQuorumCountsForAndAbstain(t *testing.T) {
	policy := counting.Simple{}
	tally, err := counting.Count(policy, []counting.Ballot{
		{Support: counting.For, Weight: 30},
		{Support: counting.Abstain, Weight: 10},
		{Support: counting.Against, Weight: 500},
	})
	require.NoError(t, err)
	assert.Equal(t, counting.Tally{For: 30, Against: 500, Abstain: 10}, tally)
	assert.True(t, policy.QuorumReached(tally, 35))
	assert.True(t, policy.QuorumReached(tally, 40))
	assert.False(t, policy.QuorumReached(tally, 41))
}

func TestSimpleVoteSucceeded(t *testing.T) {
	policy := counting.Simple{}
	testDefs := []struct {
		name     string
		tally    counting.Tally
		expected bool
	}{
		{name: "for wins by one", tally: counting.Tally{For: 100, Against: 99}, expected: true},
		{name: "tie fails", tally: counting.Tally{For: 100, Against: 100}, expected: false},
		{name: "abstain does not help", tally: counting.Tally{For: 0, Against: 0, Abstain: 50}, expected: false},
		{name: "against wins", tally: counting.Tally{For: 1, Against: 2}, expected: false},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			assert.Equal(t, testDef.expected, policy.VoteSucceeded(testDef.tally))
		})
	}
}

func TestSimpleInvalidSupport(t *testing.T) {
	_, err := counting.Simple{}.CountVote(counting.Tally{}, counting.Support(3), 1)
	assert.ErrorIs(t, err, counting.ErrInvalidSupport)
}

func TestSimpleOverflow(t *testing.T) {
	tally := counting.Tally{For: math.MaxUint64}
	_, err := counting.Simple{}.CountVote(tally, counting.For, 1)
	assert.ErrorIs(t, err, counting.ErrTallyOverflow)
	assert.True(t, counting.Simple{}.QuorumReached(counting.Tally{For: math.MaxUint64, Abstain: 1}, math.MaxUint64))
}

func TestQuadratic(t *testing.T) {
	policy := counting.Quadratic{}
	tally, err := counting.Count(policy, []counting.Ballot{
		{Support: counting.For, Weight: 100},
		{Support: counting.For, Weight: 15},
		{Support: counting.Against, Weight: 144},
	})
	require.NoError(t, err)
	assert.Equal(t, counting.Tally{For: 13, Against: 12}, tally)
	assert.True(t, policy.VoteSucceeded(tally))
	assert.NotEqual(t, counting.Simple{}.Mode(), policy.Mode())
	_, err = policy.CountVote(tally, counting.Support(9), 4)
	assert.ErrorIs(t, err, counting.ErrInvalidSupport)
}

func TestParseSupport(t *testing.T) {
	for input, expected := range map[string]counting.Support{
		"for":     counting.For,
		"Against": counting.Against,
		"2":       counting.Abstain,
	} {
		support, err := counting.ParseSupport(input)
		require.NoError(t, err)
		assert.Equal(t, expected, support)
	}
	_, err := counting.ParseSupport("maybe")
	assert.ErrorIs(t, err, counting.ErrInvalidSupport)
	assert.Equal(t, "abstain", counting.Abstain.String())

	data, err := json.Marshal(counting.Ballot{Support: counting.For, Weight: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"support":"for","weight":3}`, string(data))
	var ballot counting.Ballot
	require.NoError(t, json.Unmarshal([]byte(`{"support":"abstain","weight":1}`), &ballot))
	assert.Equal(t, counting.Abstain, ballot.Support)
}

func TestNew(t *testing.T) {
	policy, err := counting.New("quadratic")
	require.NoError(t, err)
	assert.IsType(t, counting.Quadratic{}, policy)
	policy, err = counting.New("")
	require.NoError(t, err)
	assert.IsType(t, counting.Simple{}, policy)
	_, err = counting.New("ranked")
	assert.ErrorIs(t, err, counting.ErrUnknownPolicy)
}
