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
	"fmt"
	"strings"
)

// State is the lifecycle position of a proposal
type State uint8

const (
	StatePending State = iota
	StateActive
	StateCanceled
	StateDefeated
	StateSucceeded
	StateQueued
	StateExpired
	StateExecuted
)

var stateNames = map[State]string{
	StatePending:   "Pending",
	StateActive:    "Active",
	StateCanceled:  "Canceled",
	StateDefeated:  "Defeated",
	StateSucceeded: "Succeeded",
	StateQueued:    "Queued",
	StateExpired:   "Expired",
	StateExecuted:  "Executed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", s)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState accepts a state name in any case
func ParseState(value string) (State, error) {
	for state, name := range stateNames {
		if strings.EqualFold(name, value) {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown proposal state %q", value)
}

func (s *State) UnmarshalText(text []byte) error {
	state, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	switch s {
	case StateCanceled, StateDefeated, StateExpired, StateExecuted:
		return true
	}
	return false
}
