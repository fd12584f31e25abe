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

package snapshot

import "sort"

// Checkpoint is a value recorded from Height onward
type Checkpoint struct {
	Height uint64 `json:"height"`
	Value  uint64 `json:"value"`
}

// Trace is an append-only list of checkpoints in ascending height order
type Trace struct {
	checkpoints []Checkpoint
}

// Push records value at height. Pushing at the latest height replaces its
// value. Pushing below it fails with ErrHistoryImmutable
func (t *Trace) Push(height uint64, value uint64) error {
	n := len(t.checkpoints)
	if n > 0 {
		last := &t.checkpoints[n-1]
		if height < last.Height {
			return ErrHistoryImmutable
		}
		if height == last.Height {
			last.Value = value
			return nil
		}
	}
	t.checkpoints = append(t.checkpoints, Checkpoint{Height: height, Value: value})
	return nil
}

// UpperLookup returns the value of the latest checkpoint at or below
// height, or 0 if there is none
func (t *Trace) UpperLookup(height uint64) uint64 {
	// Index of the first checkpoint above height
	idx := sort.Search(len(t.checkpoints), func(i int) bool {
		return t.checkpoints[i].Height > height
	})
	if idx == 0 {
		return 0
	}
	return t.checkpoints[idx-1].Value
}

// Latest returns the newest checkpoint
func (t *Trace) Latest() (Checkpoint, bool) {
	if len(t.checkpoints) == 0 {
		return Checkpoint{}, false
	}
	return t.checkpoints[len(t.checkpoints)-1], true
}

// Len returns the number of checkpoints
func (t *Trace) Len() int {
	return len(t.checkpoints)
}

// Checkpoints returns a copy of the checkpoints
func (t *Trace) Checkpoints() []Checkpoint {
	ret := make([]Checkpoint, len(t.checkpoints))
	copy(ret, t.checkpoints)
	return ret
}
