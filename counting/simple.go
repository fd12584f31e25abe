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

package counting

import (
	"fmt"
	"math/big"
	"math/bits"
)

// Simple counts Against, For and Abstain by weight. For and Abstain count
// toward quorum, and a vote succeeds when For is strictly greater than Against
type Simple struct{}

func (Simple) Mode() string {
	return "support=bravo&quorum=for,abstain"
}

func (Simple) CountVote(tally Tally, support Support, weight uint64) (Tally, error) {
	var target *uint64
	switch support {
	case Against:
		target = &tally.Against
	case For:
		target = &tally.For
	case Abstain:
		target = &tally.Abstain
	default:
		return tally, fmt.Errorf("%w: %d", ErrInvalidSupport, support)
	}
	sum, carry := bits.Add64(*target, weight, 0)
	if carry != 0 {
		return tally, ErrTallyOverflow
	}
	*target = sum
	return tally, nil
}

func (Simple) QuorumReached(tally Tally, quorum uint64) bool {
	sum, carry := bits.Add64(tally.For, tally.Abstain, 0)
	if carry != 0 {
		return true
	}
	return sum >= quorum
}

func (Simple) VoteSucceeded(tally Tally) bool {
	return tally.For > tally.Against
}

// Quadratic follows Simple with each ballot counted at the integer square
// root of its weight
type Quadratic struct {
	Simple
}

func (Quadratic) Mode() string {
	return "support=bravo&quorum=for,abstain&params=quadratic"
}

func (q Quadratic) CountVote(tally Tally, support Support, weight uint64) (Tally, error) {
	return q.Simple.CountVote(tally, support, isqrt(weight))
}

func isqrt(v uint64) uint64 {
	return new(big.Int).Sqrt(new(big.Int).SetUint64(v)).Uint64()
}
