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

// Package counting interprets ballots: how support options accumulate into a
// tally and when a tally reaches quorum and succeeds
package counting

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidSupport = errors.New("invalid support value")
	ErrTallyOverflow  = errors.New("tally overflow")
	ErrUnknownPolicy  = errors.New("unknown counting policy")
)

// Support is the option a ballot supports
type Support uint8

const (
	Against Support = 0
	For     Support = 1
	Abstain Support = 2
)

func (s Support) String() string {
	switch s {
	case Against:
		return "against"
	case For:
		return "for"
	case Abstain:
		return "abstain"
	default:
		return "support(" + strconv.Itoa(int(s)) + ")"
	}
}

func (s Support) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Support) UnmarshalText(text []byte) error {
	support, err := ParseSupport(string(text))
	if err != nil {
		return err
	}
	*s = support
	return nil
}

// ParseSupport accepts an option name or its numeric value
func ParseSupport(value string) (Support, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "against", "0":
		return Against, nil
	case "for", "1":
		return For, nil
	case "abstain", "2":
		return Abstain, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSupport, value)
}

// Ballot is a single counted vote
type Ballot struct {
	Support Support `json:"support"`
	Weight  uint64  `json:"weight"`
}

// Tally is the accumulated weight per option
type Tally struct {
	For     uint64 `json:"for"`
	Against uint64 `json:"against"`
	Abstain uint64 `json:"abstain"`
}

// Policy decides how ballots are counted
type Policy interface {
	// Mode describes the counting rules in the COUNTING_MODE format
	Mode() string
	CountVote(tally Tally, support Support, weight uint64) (Tally, error)
	QuorumReached(tally Tally, quorum uint64) bool
	VoteSucceeded(tally Tally) bool
}

// Count folds ballots into a fresh tally using policy
func Count(policy Policy, ballots []Ballot) (Tally, error) {
	var tally Tally
	var err error
	for _, b := range ballots {
		tally, err = policy.CountVote(tally, b.Support, b.Weight)
		if err != nil {
			return Tally{}, err
		}
	}
	return tally, nil
}

// New returns the policy with the given name
func New(name string) (Policy, error) {
	switch strings.ToLower(name) {
	case "", "simple":
		return Simple{}, nil
	case "quadratic":
		return Quadratic{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
}
