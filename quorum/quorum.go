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

// Package quorum computes the minimum participating weight a proposal needs,
// as of the proposal's snapshot height
package quorum

import (
	"errors"

	"github.com/blinklabs-io/gavel/database"
)

var (
	ErrInvalidQuorumFraction = errors.New("quorum numerator exceeds denominator")
	ErrHistoryImmutable      = errors.New("quorum history below the latest update is immutable")
)

const NumeratorUpdatedEventType = "quorum.numerator_updated"

// NumeratorUpdatedEvent is published when the quorum numerator changes
type NumeratorUpdatedEvent struct {
	Height       uint64 `json:"height"`
	OldNumerator uint64 `json:"oldNumerator"`
	NewNumerator uint64 `json:"newNumerator"`
	Denominator  uint64 `json:"denominator"`
}

// Policy returns the quorum at a snapshot height. The transaction may be nil
type Policy interface {
	QuorumAt(height uint64, txn *database.Txn) (uint64, error)
}

// Fixed is a Policy with a constant quorum
type Fixed uint64

func (f Fixed) QuorumAt(uint64, *database.Txn) (uint64, error) {
	return uint64(f), nil
}
